package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// sniffSize is how many bytes are peeked to guess delimiter and charset.
const sniffSize = 8 * 1024

// csvReader streams a delimited text file. The delimiter (',' or ';' — the
// latter is what most exports around here actually use) and the charset
// (UTF-8 vs Windows-1252) are sniffed from the first few KB, so operators
// never have to declare either.
type csvReader struct {
	cr      *csv.Reader
	headers []string
	line    int
}

// OpenCSV wraps r with charset decoding and delimiter detection and reads
// the header row.
func OpenCSV(r io.Reader) (Reader, error) {
	br := bufio.NewReaderSize(r, sniffSize)
	head, _ := br.Peek(sniffSize)

	var src io.Reader = br
	if !utf8.Valid(head[:validPrefixLen(head)]) {
		// Not valid UTF-8: assume the Windows-1252 the legacy exports use.
		src = transform.NewReader(br, charmap.Windows1252.NewDecoder())
	}

	cr := csv.NewReader(src)
	cr.Comma = sniffDelimiter(head)
	cr.FieldsPerRecord = -1 // width is enforced per row by the validator
	cr.LazyQuotes = true

	h, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}
	headers := make([]string, len(h))
	for i, c := range h {
		c = strings.TrimSpace(c)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		headers[i] = c
	}

	return &csvReader{cr: cr, headers: headers, line: 1}, nil
}

func (c *csvReader) Headers() []string { return c.headers }

func (c *csvReader) Next() (Row, error) {
	rec, err := c.cr.Read()
	if err != nil {
		return Row{}, err
	}
	c.line++
	return Row{Line: c.line, Values: rec}, nil
}

func (c *csvReader) Close() error { return nil }

// sniffDelimiter counts candidate delimiters outside quotes in the first
// line of the peeked bytes. Semicolon wins ties because comma appears inside
// free-text fields far more often.
func sniffDelimiter(head []byte) rune {
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	var commas, semis, tabs int
	inQuote := false
	for _, b := range head {
		switch b {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				commas++
			}
		case ';':
			if !inQuote {
				semis++
			}
		case '\t':
			if !inQuote {
				tabs++
			}
		}
	}
	switch {
	case semis >= commas && semis >= tabs && semis > 0:
		return ';'
	case tabs > commas && tabs > 0:
		return '\t'
	default:
		return ','
	}
}

// validPrefixLen returns the length of the longest prefix of b that ends on
// a rune boundary, so a rune split by the sniff window is not mistaken for
// mojibake.
func validPrefixLen(b []byte) int {
	n := len(b)
	for n > 0 && n > len(b)-utf8.UTFMax {
		if r, _ := utf8.DecodeLastRune(b[:n]); r != utf8.RuneError {
			return n
		}
		n--
	}
	return n
}
