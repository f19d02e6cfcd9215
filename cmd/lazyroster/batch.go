package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rebeliceyang/lazyroster/internal/config"
	"github.com/rebeliceyang/lazyroster/internal/engine"
	"github.com/rebeliceyang/lazyroster/internal/export"
	"github.com/rebeliceyang/lazyroster/internal/history"
	"github.com/rebeliceyang/lazyroster/internal/logging"
	"github.com/rebeliceyang/lazyroster/internal/models"
	"github.com/rebeliceyang/lazyroster/internal/stats"
	"github.com/rebeliceyang/lazyroster/internal/ui/components"
	"github.com/rebeliceyang/lazyroster/internal/view"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("105")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	faint       = lipgloss.NewStyle().Faint(true)
)

func runBatch(ctx context.Context, stdout, stderr io.Writer, cfg *config.Config, opts *cliOptions, session *engine.Session, store *history.Store, logger *logging.Logger) error {
	snap := session.Snapshot()
	toStdout := opts.export == "-"

	// Human output moves to stderr when stdout carries the export
	human := stdout
	if toStdout {
		human = stderr
	}

	if !toStdout {
		limit := opts.limit
		if limit <= 0 {
			limit = cfg.Data.PageSize
		}
		renderRows(human, snap.View, limit, cfg.Data.MaxCellDisplayLength)
		fmt.Fprintln(human, summary(snap.View, snap.Rules.Len(), snap.Rules.Mode(), limit))
	}

	if opts.stats {
		renderStats(human, session.Stats())
	}

	if opts.export != "" {
		format, err := exportFormat(opts, cfg)
		if err != nil {
			return err
		}
		if toStdout {
			err = export.Write(stdout, snap.View, format)
		} else {
			err = export.ToFile(snap.View, opts.export, format)
		}
		logger.LogExport(ctx, opts.export, string(format), snap.View.Len(), err)
		if err != nil {
			return err
		}
		if !toStdout {
			fmt.Fprintf(stderr, "Exported %d rows to %s\n", snap.View.Len(), opts.export)
		}
	}

	if opts.snapshot {
		entry := history.NewSnapshot(snap.Dataset.Name(), snap.Rules, snap.Query, snap.View)
		entry.Note = opts.note
		id, err := store.Add(entry)
		logger.LogSnapshot(ctx, id, err)
		if err != nil {
			return err
		}
		if cfg.History.MaxEntries > 0 {
			if _, err := store.Prune(cfg.History.MaxEntries); err != nil {
				return err
			}
		}
		fmt.Fprintf(stderr, "Saved snapshot #%d\n", id)
	}
	return nil
}

// exportFormat picks --format, then the file extension, then the config
func exportFormat(opts *cliOptions, cfg *config.Config) (export.Format, error) {
	if opts.format != "" {
		return export.ParseFormat(opts.format)
	}
	if opts.export != "-" {
		if f, err := export.FormatFromPath(opts.export); err == nil {
			return f, nil
		}
	}
	return export.ParseFormat(cfg.Export.DefaultFormat)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func renderRows(w io.Writer, v *view.View, limit, maxCell int) {
	cols := v.Columns()
	if len(cols) == 0 {
		return
	}

	t := newTable(models.Names(cols)...)
	ds := v.Dataset()
	for _, i := range v.Page(0, limit) {
		values := ds.Values(i)
		cells := make([]string, len(cols))
		for c, cell := range values {
			cells[c] = clip(export.Cell(cols[c].Kind, cell), maxCell)
		}
		t.Row(cells...)
	}
	fmt.Fprintln(w, t.Render())
}

func summary(v *view.View, rules int, mode models.FilterMode, limit int) string {
	s := fmt.Sprintf("%d of %d rows match (%d rules, %s)", v.Len(), v.TotalRows(), rules, strings.ToUpper(string(mode)))
	if v.Len() > limit {
		s += fmt.Sprintf(", showing first %d", limit)
	}
	return faint.Render(s)
}

func renderStats(w io.Writer, st stats.Statistics) {
	t := newTable("Column", "Kind", "Count", "Missing", "Unique", "Mean", "Std", "Min", "Q1", "Median", "Q3", "Max")
	for _, cs := range st.ColumnStats {
		row := []string{cs.Name, string(cs.Kind), strconv.Itoa(cs.NonMissing), strconv.Itoa(cs.Missing), strconv.Itoa(cs.Unique)}
		if n := cs.Numeric; n != nil {
			std := "-"
			if n.StdDev != nil {
				std = components.FormatFloat(*n.StdDev)
			}
			row = append(row,
				components.FormatFloat(n.Mean), std,
				components.FormatFloat(n.Min), components.FormatFloat(n.Q1),
				components.FormatFloat(n.Median), components.FormatFloat(n.Q3),
				components.FormatFloat(n.Max))
		} else {
			row = append(row, "-", "-", "-", "-", "-", "-", "-")
		}
		t.Row(row...)
	}
	fmt.Fprintln(w, t.Render())
}

func printRecent(w io.Writer, store *history.Store, limit int, filterText string) error {
	var (
		snaps []history.Snapshot
		err   error
	)
	if filterText != "" {
		snaps, err = store.Search(filterText, limit)
	} else {
		snaps, err = store.GetRecent(limit)
	}
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Fprintln(w, "No snapshots recorded yet.")
		return nil
	}

	t := newTable("ID", "When", "Dataset", "Mode", "Rules", "Search", "Rows", "Note")
	for _, s := range snaps {
		labels := make([]string, len(s.Rules))
		for i, r := range s.Rules {
			labels[i] = r.String()
		}
		t.Row(
			strconv.FormatInt(s.ID, 10),
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
			s.DatasetName,
			strings.ToUpper(string(s.Mode)),
			strings.Join(labels, "; "),
			searchText(s.Search),
			fmt.Sprintf("%d/%d", s.MatchedRows, s.TotalRows),
			s.Note,
		)
	}
	fmt.Fprintln(w, t.Render())
	return nil
}

func searchText(q models.SearchQuery) string {
	if q.IsEmpty() {
		return ""
	}
	s := q.Text
	if q.Column != "" {
		s = q.Column + ":" + s
	}
	if q.Negate {
		s = "!" + s
	}
	return s
}

func clip(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if width < 4 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
