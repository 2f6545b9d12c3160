package parser

import (
	"io"
	"strings"
	"testing"
)

func readAll(t *testing.T, r Reader) []Row {
	t.Helper()
	var rows []Row
	for {
		row, err := r.Next()
		if err == io.EOF {
			return rows
		}
		if err != nil {
			t.Fatal(err)
		}
		rows = append(rows, row)
	}
}

func TestOpenCSVCommaDelimited(t *testing.T) {
	r, err := OpenCSV(strings.NewReader("cpf,nome\n123,Maria\n456,Jose\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Headers(); len(got) != 2 || got[0] != "cpf" || got[1] != "nome" {
		t.Fatalf("Headers() = %v", got)
	}
	rows := readAll(t, r)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Line != 2 || rows[1].Line != 3 {
		t.Fatalf("line numbers = %d, %d; want 2, 3", rows[0].Line, rows[1].Line)
	}
	if rows[0].Values[1] != "Maria" {
		t.Fatalf("row 1 = %v", rows[0].Values)
	}
}

func TestOpenCSVSemicolonDelimited(t *testing.T) {
	r, err := OpenCSV(strings.NewReader("CPF;NOME;OBS\n123;Silva, Maria;x\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Headers(); len(got) != 3 {
		t.Fatalf("Headers() = %v, want 3 columns", got)
	}
	rows := readAll(t, r)
	if rows[0].Values[1] != "Silva, Maria" {
		t.Fatalf("comma inside semicolon-delimited field mangled: %v", rows[0].Values)
	}
}

func TestOpenCSVStripsBOM(t *testing.T) {
	r, err := OpenCSV(strings.NewReader("\uFEFFcpf,nome\n123,A\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Headers()[0]; got != "cpf" {
		t.Fatalf("BOM not stripped: %q", got)
	}
}

func TestOpenCSVWindows1252(t *testing.T) {
	// "João" in Windows-1252: 0xE3 for ã.
	raw := []byte("cpf,nome\n123,Jo\xe3o\n")
	r, err := OpenCSV(strings.NewReader(string(raw)))
	if err != nil {
		t.Fatal(err)
	}
	rows := readAll(t, r)
	if rows[0].Values[1] != "João" {
		t.Fatalf("charset decode: got %q, want João", rows[0].Values[1])
	}
}

func TestOpenDispatch(t *testing.T) {
	if _, err := Open(strings.NewReader("a,b\n"), "dados.csv"); err != nil {
		t.Fatalf("csv dispatch: %v", err)
	}
	if _, err := Open(strings.NewReader(""), "dados.pdf"); err == nil {
		t.Fatal("pdf must be rejected")
	}
}
