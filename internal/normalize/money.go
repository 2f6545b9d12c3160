package normalize

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money parses a currency amount written in either the comma-decimal
// ("1.234,56") or dot-decimal ("1,234.56") convention. The right-most
// separator is taken as the decimal mark; every other separator is treated
// as grouping and dropped. A leading "R$" and surrounding spaces are ignored.
func Money(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}

	lastComma := strings.LastIndexByte(s, ',')
	lastDot := strings.LastIndexByte(s, '.')

	switch {
	case lastComma > lastDot:
		// Comma-decimal: dots are grouping, the last comma is the mark.
		s = strings.ReplaceAll(s, ".", "")
		idx := strings.LastIndexByte(s, ',')
		s = strings.ReplaceAll(s[:idx], ",", "") + "." + s[idx+1:]
	case lastDot > lastComma:
		// Dot-decimal: commas are grouping.
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Int parses a plain integer, tolerating a trailing ".0" style decimal part
// that spreadsheet exports attach to numeric cells.
func Int(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
			return int64(f), true
		}
	}
	return 0, false
}
