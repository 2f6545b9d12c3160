package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// xlsxReader iterates the first worksheet of a workbook row by row.
type xlsxReader struct {
	f       *excelize.File
	rows    *excelize.Rows
	headers []string
	line    int
}

// OpenXLSX opens a spreadsheet upload and positions the reader after the
// header row of the first worksheet.
func OpenXLSX(r io.Reader) (Reader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open sheet %q: %w", sheets[0], err)
	}
	if !rows.Next() {
		_ = rows.Close()
		_ = f.Close()
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}
	h, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		_ = f.Close()
		return nil, fmt.Errorf("read header row: %w", err)
	}
	for i := range h {
		h[i] = strings.TrimSpace(h[i])
	}

	return &xlsxReader{f: f, rows: rows, headers: h, line: 1}, nil
}

func (x *xlsxReader) Headers() []string { return x.headers }

func (x *xlsxReader) Next() (Row, error) {
	if !x.rows.Next() {
		if err := x.rows.Error(); err != nil {
			return Row{}, err
		}
		return Row{}, io.EOF
	}
	vals, err := x.rows.Columns()
	if err != nil {
		return Row{}, err
	}
	x.line++
	// Trailing empty cells are dropped by excelize; pad to header width so
	// downstream indexing stays positional.
	if len(vals) < len(x.headers) {
		padded := make([]string, len(x.headers))
		copy(padded, vals)
		vals = padded
	}
	return Row{Line: x.line, Values: vals}, nil
}

func (x *xlsxReader) Close() error {
	if x.rows != nil {
		_ = x.rows.Close()
	}
	return x.f.Close()
}
