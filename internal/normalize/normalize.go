// Package normalize converts raw textual field values into canonical,
// storage-ready values. Every function is pure and total: malformed input
// yields (zero, false), never a panic, so callers can treat each field as a
// value-or-rejection result and keep streaming.
package normalize

import (
	"strings"

	"cadimport/internal/schema"
)

// Field normalizes raw according to the declared kind. The returned value is
// one of: nil (blank input on an optional field), string, int64, time.Time or
// decimal.Decimal, ready to be handed to pgx CopyFrom.
//
// Blank input is not an error: it normalizes to nil so the reconciler's
// fill-the-gaps pass can treat it as "no incoming value". A non-blank value
// that fails its kind's validation returns ok=false.
func Field(kind schema.Kind, raw string) (any, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, true
	}
	switch kind {
	case schema.KindCPF:
		key, ok := CPF(s)
		if !ok {
			return nil, false
		}
		return key, true
	case schema.KindPhone:
		p, ok := Phone(s)
		if !ok {
			return nil, false
		}
		return p, true
	case schema.KindEmail:
		e, ok := Email(s)
		if !ok {
			return nil, false
		}
		return e, true
	case schema.KindDate:
		t, ok := Date(s)
		if !ok {
			return nil, false
		}
		return t, true
	case schema.KindMoney:
		d, ok := Money(s)
		if !ok {
			return nil, false
		}
		return d, true
	case schema.KindInt:
		n, ok := Int(s)
		if !ok {
			return nil, false
		}
		return n, true
	default:
		return s, true
	}
}

// digits strips every non-digit byte from s. Returns "" when nothing is left.
func digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// allSame reports whether every byte of s equals the first. Used to reject
// known-invalid sentinel documents like "00000000000".
func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return len(s) > 0
}
