package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/lazyroster/internal/export"
	"github.com/rebeliceyang/lazyroster/internal/ui/theme"
	"github.com/rebeliceyang/lazyroster/internal/view"
)

// TableView displays the rows of a filtered view
type TableView struct {
	Width        int
	Height       int
	MaxCellWidth int

	table table.Model
	view  *view.View
}

// NewTableView creates a new table view
func NewTableView(th theme.Theme, maxCellWidth int) *TableView {
	if maxCellWidth < 4 {
		maxCellWidth = 4
	}
	tv := &TableView{table: table.New(table.WithFocused(true)), MaxCellWidth: maxCellWidth}
	tv.SetTheme(th)
	return tv
}

// SetTheme restyles the header and selected row
func (tv *TableView) SetTheme(th theme.Theme) {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(th.Border).
		BorderBottom(true).
		Bold(true).
		Foreground(th.TableHeader)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("15")).
		Background(th.TableRowSelected).
		Bold(true)
	tv.table.SetStyles(s)
}

// SetView replaces the displayed rows. The cursor is kept when it still
// points inside the new view.
func (tv *TableView) SetView(v *view.View) {
	tv.view = v
	if v == nil {
		tv.table.SetRows(nil)
		tv.table.SetColumns(nil)
		return
	}

	cols := v.Columns()
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len([]rune(c.Name))
	}

	rows := make([]table.Row, 0, v.Len())
	for _, values := range v.Rows() {
		row := make(table.Row, len(cols))
		for i, cell := range values {
			text := truncate(strings.ReplaceAll(export.Cell(cols[i].Kind, cell), "\n", " "), tv.MaxCellWidth)
			row[i] = text
			widths[i] = max(widths[i], len([]rune(text)))
		}
		rows = append(rows, row)
	}

	columns := make([]table.Column, len(cols))
	for i, c := range cols {
		columns[i] = table.Column{Title: c.Name, Width: min(widths[i], tv.MaxCellWidth)}
	}

	// Old rows can be shorter than the new columns
	tv.table.SetRows(nil)
	tv.table.SetColumns(columns)
	tv.table.SetRows(rows)
	if tv.table.Cursor() >= len(rows) {
		tv.table.SetCursor(max(len(rows)-1, 0))
	}
}

// Cursor returns the selected position within the view
func (tv *TableView) Cursor() int {
	return tv.table.Cursor()
}

// SelectedRow returns the dataset row index under the cursor
func (tv *TableView) SelectedRow() (int, bool) {
	if tv.view == nil || tv.view.Len() == 0 {
		return 0, false
	}
	page := tv.view.Page(tv.table.Cursor(), 1)
	if len(page) == 0 {
		return 0, false
	}
	return page[0], true
}

// Update forwards navigation keys to the table
func (tv *TableView) Update(msg tea.Msg) (*TableView, tea.Cmd) {
	var cmd tea.Cmd
	tv.table, cmd = tv.table.Update(msg)
	return tv, cmd
}

// View renders the table
func (tv *TableView) View() string {
	if tv.view == nil || len(tv.view.Columns()) == 0 {
		return "No data"
	}

	// Header and separator take two lines, status takes one
	tv.table.SetWidth(tv.Width)
	tv.table.SetHeight(max(tv.Height-3, 1))

	body := tv.table.View()
	if tv.view.Len() == 0 {
		body += "\n" + lipgloss.NewStyle().Faint(true).Render("No rows match the current rules and search")
	}
	return body + "\n" + tv.renderStatus()
}

func (tv *TableView) renderStatus() string {
	showing := fmt.Sprintf(" row %d of %d matching (%d total)", min(tv.table.Cursor()+1, tv.view.Len()), tv.view.Len(), tv.view.TotalRows())
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Italic(true).
		Render(showing)
}
