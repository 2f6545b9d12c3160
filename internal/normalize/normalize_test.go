package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cadimport/internal/schema"
)

func TestPhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"5511987654321", "11987654321", true}, // 13 digits: country code dropped
		{"11987654321", "11987654321", true},
		{"(11) 98765-4321", "11987654321", true},
		{"+55 (21) 99876-5432", "21998765432", true},
		{"1187654321", "", false},  // 10 digits, no mobile indicator
		{"11887654321", "", false}, // third digit not 9
		{"20987654321", "", false}, // DDD 20 not assigned
		{"987654321", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := Phone(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("Phone(%q) = %q, %v; want %q, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestEmail(t *testing.T) {
	valid := []string{"a@b.com", "Maria.Silva@example.com.br", "x_y+z@sub.domain.org"}
	for _, s := range valid {
		if _, ok := Email(s); !ok {
			t.Fatalf("Email(%q): unexpectedly invalid", s)
		}
	}
	invalid := []string{"", "a@b", "a b@c.com", "@x.com", "a@.com"}
	for _, s := range invalid {
		if _, ok := Email(s); ok {
			t.Fatalf("Email(%q): unexpectedly valid", s)
		}
	}
	if got, _ := Email("Maria@Example.COM"); got != "maria@example.com" {
		t.Fatalf("Email lowercasing: got %q", got)
	}
}

func TestDate(t *testing.T) {
	want := time.Date(1984, 3, 7, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"07/03/1984", "07-03-1984", "07.03.1984", "1984-03-07", "7/3/1984"} {
		got, ok := Date(in)
		if !ok || !got.Equal(want) {
			t.Fatalf("Date(%q) = %v, %v; want %v", in, got, ok, want)
		}
	}
	// Year boundary: 1899 rejected, 1900 accepted.
	if _, ok := Date("01/01/1899"); ok {
		t.Fatal("Date(1899): unexpectedly valid")
	}
	if _, ok := Date("01/01/1900"); !ok {
		t.Fatal("Date(1900): unexpectedly invalid")
	}
	if _, ok := Date("01/01/2051"); ok {
		t.Fatal("Date(2051): unexpectedly valid")
	}
	if _, ok := Date("31/02/1984"); ok {
		t.Fatal("Date(31/02): unexpectedly valid")
	}
}

func TestMoney(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1.234,56", "1234.56", true},
		{"1,234.56", "1234.56", true},
		{"1234.56", "1234.56", true},
		{"1234,56", "1234.56", true},
		{"R$ 987,10", "987.1", true},
		{"42", "42", true},
		{"abc", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := Money(c.in)
		if ok != c.ok {
			t.Fatalf("Money(%q) ok = %v, want %v", c.in, ok, c.ok)
		}
		if !c.ok {
			continue
		}
		want, _ := decimal.NewFromString(c.want)
		if !got.Equal(want) {
			t.Fatalf("Money(%q) = %s, want %s", c.in, got, want)
		}
	}
}

func TestFieldBlankIsNil(t *testing.T) {
	for _, kind := range []schema.Kind{schema.KindText, schema.KindPhone, schema.KindDate, schema.KindMoney} {
		v, ok := Field(kind, "   ")
		if !ok || v != nil {
			t.Fatalf("Field(%v, blank) = %v, %v; want nil, true", kind, v, ok)
		}
	}
}

func TestFieldInvalidValue(t *testing.T) {
	if _, ok := Field(schema.KindPhone, "123"); ok {
		t.Fatal("Field(phone, 123): unexpectedly valid")
	}
	if _, ok := Field(schema.KindCPF, "00000000000"); ok {
		t.Fatal("Field(cpf, zeros): unexpectedly valid")
	}
}
