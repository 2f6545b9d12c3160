package normalize

import (
	"strings"
	"time"
)

// Year bounds for plausible birth and contract dates.
const (
	minYear = 1900
	maxYear = 2050
)

// dayFirstLayouts are tried for inputs shaped day/month/year; the separator
// is normalized to '/' before parsing so one layout per shape suffices.
var dayFirstLayouts = []string{"02/01/2006", "2/1/2006", "02/01/06"}

// Date parses a date in the textual layouts that occur in the source files:
// day/month/year with '/', '-' or '.' separators, or ISO year-month-day.
// Years outside [1900, 2050] are rejected. The result is a UTC midnight
// time.Time; render with FormatDate for the canonical ISO form.
func Date(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	// ISO order first: an unambiguous 4-digit year leads.
	if len(s) >= 8 && isDigit(s[0]) && isDigit(s[1]) && isDigit(s[2]) && isDigit(s[3]) {
		norm := strings.NewReplacer(".", "-", "/", "-").Replace(s)
		if t, err := time.Parse("2006-01-02", norm); err == nil {
			return boundYear(t)
		}
		if t, err := time.Parse("2006-1-2", norm); err == nil {
			return boundYear(t)
		}
		return time.Time{}, false
	}

	norm := strings.NewReplacer(".", "/", "-", "/").Replace(s)
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, norm); err == nil {
			return boundYear(t)
		}
	}
	return time.Time{}, false
}

// FormatDate renders a date in the canonical ISO form.
func FormatDate(t time.Time) string { return t.Format("2006-01-02") }

func boundYear(t time.Time) (time.Time, bool) {
	if t.Year() < minYear || t.Year() > maxYear {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
