// Package parser turns uploaded byte streams (delimited text or spreadsheet
// binary) into a uniform stream of positional string rows. It never buffers
// a whole delimited file; spreadsheet workbooks are iterated row by row via
// excelize's streaming reader.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Row is one source-file data row. Line is the 1-based position in the file
// (the header is line 1), used verbatim in the row-level error report.
type Row struct {
	Line   int
	Values []string
}

// Reader streams rows from one uploaded file.
type Reader interface {
	// Headers returns the header row labels.
	Headers() []string
	// Next returns the next data row, or io.EOF when the file is exhausted.
	Next() (Row, error)
	// Close releases any resources held by the reader.
	Close() error
}

// Open picks a format by file extension: .xlsx (and legacy .xlsm) open the
// spreadsheet path, everything else is treated as delimited text.
func Open(r io.Reader, filename string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return OpenXLSX(r)
	case "", ".csv", ".txt", ".tsv":
		return OpenCSV(r)
	default:
		return nil, fmt.Errorf("unsupported file format %q", filepath.Ext(filename))
	}
}
