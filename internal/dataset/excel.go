package dataset

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrSheetNotFound is returned when a workbook has no sheet by the requested name.
var ErrSheetNotFound = errors.New("sheet not found")

// ReadExcel reads one sheet of an .xlsx workbook. The sheet's first row is
// the header. An empty sheet name selects the first sheet.
func ReadExcel(r io.Reader, sheet string) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return New(nil, nil)
	}
	if sheet == "" {
		sheet = sheets[0]
	} else {
		name, ok := findSheet(sheets, sheet)
		if !ok {
			return nil, fmt.Errorf("%w: %q (workbook has %s)", ErrSheetNotFound, sheet, strings.Join(sheets, ", "))
		}
		sheet = name
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return New(nil, nil)
	}

	header := rows[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	records := make([][]any, 0, len(rows)-1)
	for _, rec := range rows[1:] {
		records = append(records, cellsOf(rec))
	}
	return FromRecords(header, records)
}

// findSheet matches name against the workbook's sheets ignoring case
func findSheet(sheets []string, name string) (string, bool) {
	for _, s := range sheets {
		if strings.EqualFold(s, name) {
			return s, true
		}
	}
	return "", false
}
