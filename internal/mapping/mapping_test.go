package mapping

import (
	"errors"
	"testing"

	"cadimport/internal/schema"
)

func pessoasTarget(t *testing.T) schema.Target {
	t.Helper()
	target, err := schema.LookupTarget("pessoas")
	if err != nil {
		t.Fatal(err)
	}
	return target
}

func TestCompile(t *testing.T) {
	target := pessoasTarget(t)
	headers := []string{"CPF", "Nome Completo", "Fone", "Obs"}
	m := Mapping{
		"CPF":           "cpf",
		"Nome Completo": "nome",
		"Fone":          "telefone",
		"Obs":           Ignore,
	}

	plan, err := Compile(target, headers, m)
	if err != nil {
		t.Fatal(err)
	}
	if plan.KeyIdx != 0 {
		t.Fatalf("KeyIdx = %d, want 0", plan.KeyIdx)
	}
	if plan.Fields[1] == nil || plan.Fields[1].Name != "nome" {
		t.Fatalf("column 1 not mapped to nome: %+v", plan.Fields[1])
	}
	if plan.Fields[3] != nil {
		t.Fatal("ignored column must compile to nil")
	}
	if got := len(plan.MappedFields()); got != 3 {
		t.Fatalf("MappedFields() = %d fields, want 3", got)
	}
}

func TestCompileHeaderMatchIsCaseInsensitive(t *testing.T) {
	target := pessoasTarget(t)
	plan, err := Compile(target, []string{" cpf ", "NOME"}, Mapping{"CPF": "cpf", "nome": "nome"})
	if err != nil {
		t.Fatal(err)
	}
	if plan.KeyIdx != 0 || plan.Fields[1] == nil {
		t.Fatalf("case-insensitive match failed: %+v", plan)
	}
}

func TestCompileKeyUnmapped(t *testing.T) {
	target := pessoasTarget(t)
	_, err := Compile(target, []string{"Nome"}, Mapping{"Nome": "nome"})
	if !errors.Is(err, ErrKeyUnmapped) {
		t.Fatalf("err = %v, want ErrKeyUnmapped", err)
	}

	// Mapped, but the column is absent from this file's header.
	_, err = Compile(target, []string{"Nome"}, Mapping{"CPF": "cpf", "Nome": "nome"})
	if !errors.Is(err, ErrKeyUnmapped) {
		t.Fatalf("err = %v, want ErrKeyUnmapped", err)
	}
}

func TestCompileManyToOneRejected(t *testing.T) {
	target := pessoasTarget(t)
	_, err := Compile(target, []string{"CPF", "Documento"}, Mapping{"CPF": "cpf", "Documento": "cpf"})
	if err == nil {
		t.Fatal("two columns onto one field must be rejected")
	}
}

func TestCompileUnknownField(t *testing.T) {
	target := pessoasTarget(t)
	_, err := Compile(target, []string{"CPF", "X"}, Mapping{"CPF": "cpf", "X": "nope"})
	if err == nil {
		t.Fatal("unknown canonical field must be rejected")
	}
}
