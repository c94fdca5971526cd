package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ukydev/fieldops/internal/batch"
	"github.com/xuri/excelize/v2"
)

// ErrNoSheet is returned for a workbook without any worksheet.
var ErrNoSheet = errors.New("workbook has no sheets")

// ReadRows parses the first sheet of an xlsx workbook. The first row is the
// header; each later non-blank row becomes a batch.Row keyed by column key.
// lines holds the sheet row number of each returned row, so blank rows do
// not shift the numbering. Date cells are returned as raw serial numbers.
func ReadRows(r io.Reader, columns []batch.Column) (rows []batch.Row, lines []int, err error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrNoSheet
	}
	grid, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	rows, lines = []batch.Row{}, []int{}
	if len(grid) == 0 {
		return rows, lines, nil
	}

	keys := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		keys[i], _ = batch.CanonicalKey(columns, h)
	}
	for n, cells := range grid[1:] {
		row := batch.Row{}
		for i, v := range cells {
			if i >= len(keys) || keys[i] == "" || strings.TrimSpace(v) == "" {
				continue
			}
			row[keys[i]] = strings.TrimSpace(v)
		}
		if len(row) > 0 {
			rows = append(rows, row)
			// grid[1:] starts at sheet row 2
			lines = append(lines, n+2)
		}
	}
	return rows, lines, nil
}

// WriteTemplate writes an empty import workbook with the given columns.
func WriteTemplate(w io.Writer, sheet string, columns []batch.Column) error {
	widths := make([]float64, len(columns))
	for i := range widths {
		widths[i] = 20
	}
	f, err := newWorkbook(sheet, batch.Headers(columns), widths)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return f.Write(w)
}
