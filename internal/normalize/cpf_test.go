package normalize

import "testing"

func TestCPFValid(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"529.982.247-25", 52998224725},
		{"52998224725", 52998224725},
		{"01234567890", 1234567890},   // leading zero stripped in the key
		{"012.345.678-90", 1234567890},
		{" 52998224725 ", 52998224725},
	}
	for _, c := range cases {
		got, ok := CPF(c.in)
		if !ok {
			t.Fatalf("CPF(%q): unexpectedly invalid", c.in)
		}
		if got != c.want {
			t.Fatalf("CPF(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestCPFInvalid(t *testing.T) {
	cases := []string{
		"",
		"abc",
		"00000000000", // all-identical sentinel
		"11111111111",
		"52998224726", // wrong second check digit
		"52998224735", // wrong first check digit
		"529982247251", // too long
	}
	for _, c := range cases {
		if _, ok := CPF(c); ok {
			t.Fatalf("CPF(%q): unexpectedly valid", c)
		}
	}
}

// Round-trip: formatting a canonical key and validating it again yields the
// same key, including documents whose digit string starts with zeros.
func TestCPFFormatRoundTrip(t *testing.T) {
	keys := []int64{52998224725, 1234567890}
	for _, k := range keys {
		s := FormatCPF(k)
		if len(s) != 11 {
			t.Fatalf("FormatCPF(%d) = %q, want 11 digits", k, s)
		}
		got, ok := CPF(s)
		if !ok || got != k {
			t.Fatalf("CPF(FormatCPF(%d)) = %d, %v", k, got, ok)
		}
	}
}
