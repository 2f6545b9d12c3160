package batch

import (
	"context"
	"io"
	"testing"

	"cadimport/internal/mapping"
	"cadimport/internal/parser"
	"cadimport/internal/schema"
)

// sliceReader feeds canned rows through the parser.Reader interface.
type sliceReader struct {
	headers []string
	rows    []parser.Row
	pos     int
}

func (s *sliceReader) Headers() []string { return s.headers }
func (s *sliceReader) Close() error      { return nil }
func (s *sliceReader) Next() (parser.Row, error) {
	if s.pos >= len(s.rows) {
		return parser.Row{}, io.EOF
	}
	r := s.rows[s.pos]
	s.pos++
	return r, nil
}

func plan(t *testing.T, headers []string, m mapping.Mapping) *mapping.ColumnPlan {
	t.Helper()
	target, err := schema.LookupTarget("pessoas")
	if err != nil {
		t.Fatal(err)
	}
	p, err := mapping.Compile(target, headers, m)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

const (
	cpfA = "52998224725"
	cpfB = "01234567890"
)

func TestValidatePartition(t *testing.T) {
	headers := []string{"CPF", "Nome", "Fone"}
	p := plan(t, headers, mapping.Mapping{"CPF": "cpf", "Nome": "nome", "Fone": "telefone"})

	src := &sliceReader{headers: headers, rows: []parser.Row{
		{Line: 2, Values: []string{cpfA, "Maria", "11987654321"}},
		{Line: 3, Values: []string{"00000000000", "Sentinela", ""}},
		{Line: 4, Values: []string{cpfB, "Jose", "999"}}, // bad phone, still admissible
		{Line: 5, Values: []string{"", "Sem Documento", ""}},
	}}

	res, err := Validate(context.Background(), p, src, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Admissible) != 2 || len(res.Rejected) != 2 {
		t.Fatalf("partition = %d admissible, %d rejected; want 2, 2", len(res.Admissible), len(res.Rejected))
	}

	a := res.Admissible[0]
	if a.Line != 2 || a.Key != 52998224725 || a.Values["nome"] != "Maria" || a.Values["telefone"] != "11987654321" {
		t.Fatalf("row 2 = %+v", a)
	}
	// Invalid non-key field degrades to nil instead of rejecting the row.
	if res.Admissible[1].Values["telefone"] != nil {
		t.Fatalf("bad phone should normalize to nil, got %v", res.Admissible[1].Values["telefone"])
	}
	for _, r := range res.Rejected {
		if r.Reason != ReasonInvalidKey {
			t.Fatalf("reason = %q, want %q", r.Reason, ReasonInvalidKey)
		}
	}
}

func TestValidateDuplicateKeyInFile(t *testing.T) {
	headers := []string{"cpf", "nome"}
	p := plan(t, headers, mapping.Mapping{"cpf": "cpf", "nome": "nome"})

	src := &sliceReader{headers: headers, rows: []parser.Row{
		{Line: 2, Values: []string{cpfA, "A"}},
		{Line: 3, Values: []string{"529.982.247-25", "B"}}, // same key, formatted
	}}

	res, err := Validate(context.Background(), p, src, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Admissible) != 1 || res.Admissible[0].Values["nome"] != "A" {
		t.Fatalf("first occurrence must win: %+v", res.Admissible)
	}
	if len(res.Rejected) != 1 || res.Rejected[0].Reason != ReasonDuplicateKey || res.Rejected[0].Line != 3 {
		t.Fatalf("rejected = %+v", res.Rejected)
	}
}

// Order must be deterministic regardless of worker count.
func TestValidateDeterministicOrder(t *testing.T) {
	headers := []string{"cpf", "nome"}
	p := plan(t, headers, mapping.Mapping{"cpf": "cpf", "nome": "nome"})

	mk := func() *sliceReader {
		rows := []parser.Row{
			{Line: 2, Values: []string{cpfA, "A"}},
			{Line: 3, Values: []string{"bad", "B"}},
			{Line: 4, Values: []string{cpfB, "C"}},
			{Line: 5, Values: []string{"bad2", "D"}},
		}
		return &sliceReader{headers: headers, rows: rows}
	}

	for _, workers := range []int{1, 2, 8} {
		res, err := Validate(context.Background(), p, mk(), workers)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Admissible) != 2 || res.Admissible[0].Line != 2 || res.Admissible[1].Line != 4 {
			t.Fatalf("workers=%d: admissible order %+v", workers, res.Admissible)
		}
		if len(res.Rejected) != 2 || res.Rejected[0].Line != 3 || res.Rejected[1].Line != 5 {
			t.Fatalf("workers=%d: rejected order %+v", workers, res.Rejected)
		}
	}
}

func TestValidateShortRow(t *testing.T) {
	headers := []string{"cpf", "nome", "email"}
	p := plan(t, headers, mapping.Mapping{"cpf": "cpf", "nome": "nome", "email": "email"})

	src := &sliceReader{headers: headers, rows: []parser.Row{
		{Line: 2, Values: []string{cpfA}}, // missing trailing cells
	}}
	res, err := Validate(context.Background(), p, src, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Admissible) != 1 {
		t.Fatalf("short row rejected: %+v", res.Rejected)
	}
	if res.Admissible[0].Values["nome"] != nil || res.Admissible[0].Values["email"] != nil {
		t.Fatalf("missing cells must be nil: %+v", res.Admissible[0].Values)
	}
}
