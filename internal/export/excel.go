package export

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/rebeliceyang/lazyroster/internal/coerce"
	"github.com/rebeliceyang/lazyroster/internal/models"
	"github.com/rebeliceyang/lazyroster/internal/view"
)

// SheetName is the worksheet the view is written to
const SheetName = "Roster"

const maxColumnWidth = 50

// writeExcel writes v as a single-sheet workbook with a bold frozen header.
// Numeric cells are numbers and date cells are real dates.
func writeExcel(w io.Writer, v *view.View) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	cols := v.Columns()
	widths := make([]int, len(cols))
	header := make([]any, len(cols))
	for c, col := range cols {
		header[c] = col.Name
		widths[c] = utf8.RuneCountInString(col.Name)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := 2
	for _, cells := range v.Rows() {
		out := make([]any, len(cells))
		for c, cell := range cells {
			out[c] = excelValue(cols[c].Kind, cell)
			widths[c] = max(widths[c], utf8.RuneCountInString(Cell(cols[c].Kind, cell)))
		}
		ref, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, ref, &out); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		row++
	}

	if err := styleSheet(f, cols, widths, row-1); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func styleSheet(f *excelize.File, cols []models.Column, widths []int, lastRow int) error {
	if len(cols) == 0 {
		return nil
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
	})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, headerStyle); err != nil {
		return err
	}

	dateFormat := "yyyy-mm-dd"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFormat})
	if err != nil {
		return err
	}

	for c, col := range cols {
		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, name, name, float64(min(widths[c]+2, maxColumnWidth))); err != nil {
			return err
		}
		if col.Kind == models.KindDate && lastRow >= 2 {
			if err := f.SetCellStyle(SheetName, fmt.Sprintf("%s2", name), fmt.Sprintf("%s%d", name, lastRow), dateStyle); err != nil {
				return err
			}
		}
	}

	return f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// excelValue converts a cell to what the workbook stores. Cells that do not
// coerce to their column kind are written as text.
func excelValue(kind models.ColumnKind, cell any) any {
	if coerce.IsMissing(cell) {
		return nil
	}
	switch kind {
	case models.KindNumeric:
		if n, ok := coerce.Number(cell); ok {
			return n
		}
	case models.KindDate:
		if d, ok := coerce.Date(cell); ok {
			return d
		}
	}
	return coerce.Text(cell)
}
