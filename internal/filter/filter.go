// Package filter turns operator-supplied (field, operator, operand) triples
// into a typed, validated criterion list and compiles it to parameterized
// SQL over the pessoas entity graph. Fields living in satellite tables
// become existential sub-predicates, so an owner with three phone numbers
// still occupies exactly one result row.
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"cadimport/internal/normalize"
)

// Op is a comparison operator.
type Op string

const (
	OpContains    Op = "contains"
	OpEquals      Op = "equals"
	OpStartsWith  Op = "starts-with"
	OpEndsWith    Op = "ends-with"
	OpNotEquals   Op = "not-equals"
	OpEmpty       Op = "is-empty"
	OpNotEmpty    Op = "is-not-empty"
	OpBetween     Op = "between"
	OpGreaterThan Op = "greater-than"
	OpLessThan    Op = "less-than"
)

// arity returns how many operands the operator consumes.
func (o Op) arity() int {
	switch o {
	case OpEmpty, OpNotEmpty:
		return 0
	case OpBetween:
		return 2
	default:
		return 1
	}
}

// Criterion is one submitted filter triple. Values carries the raw textual
// operands; their number and interpretation depend on the operator and the
// field kind.
type Criterion struct {
	Field  string   `json:"field"`
	Op     Op       `json:"operator"`
	Values []string `json:"values,omitempty"`
}

// valueKind classifies a filterable field for operator/operand validation.
type valueKind uint8

const (
	kindText valueKind = iota
	kindDate
	kindNumeric
)

var opsByKind = map[valueKind]map[Op]struct{}{
	kindText: {
		OpContains: {}, OpEquals: {}, OpStartsWith: {}, OpEndsWith: {},
		OpNotEquals: {}, OpEmpty: {}, OpNotEmpty: {},
	},
	kindDate:    {OpBetween: {}, OpEquals: {}, OpEmpty: {}},
	kindNumeric: {OpEquals: {}, OpGreaterThan: {}, OpLessThan: {}, OpBetween: {}, OpEmpty: {}},
}

// fieldDef locates a filterable field in the entity graph.
type fieldDef struct {
	kind valueKind

	// expr is the SQL expression for the field. Native fields reference the
	// p alias; satellite fields reference the s alias of their sub-select;
	// derived fields are full expressions over stored columns.
	expr string

	// satellite names the satellite table when the field is not native to
	// pessoas. ownerCol is its owning-key column.
	satellite string
	ownerCol  string
}

// fields is the registry of filterable canonical fields.
var fields = map[string]fieldDef{
	"cpf":             {kind: kindNumeric, expr: "p.cpf"},
	"nome":            {kind: kindText, expr: "p.nome"},
	"rg":              {kind: kindText, expr: "p.rg"},
	"cnh":             {kind: kindText, expr: "p.cnh"},
	"titulo_eleitor":  {kind: kindText, expr: "p.titulo_eleitor"},
	"nome_mae":        {kind: kindText, expr: "p.nome_mae"},
	"nome_pai":        {kind: kindText, expr: "p.nome_pai"},
	"observacao":      {kind: kindText, expr: "p.observacao"},
	"data_nascimento": {kind: kindDate, expr: "p.data_nascimento"},

	// Derived: age in whole years, computed from the stored birth date.
	"idade": {kind: kindNumeric, expr: "date_part('year', age(p.data_nascimento))"},

	"telefone":   {kind: kindText, expr: "s.numero", satellite: "telefones", ownerCol: "cpf"},
	"email":      {kind: kindText, expr: "s.email", satellite: "emails", ownerCol: "cpf"},
	"logradouro": {kind: kindText, expr: "s.logradouro", satellite: "enderecos", ownerCol: "cpf"},
	"bairro":     {kind: kindText, expr: "s.bairro", satellite: "enderecos", ownerCol: "cpf"},
	"cidade":     {kind: kindText, expr: "s.cidade", satellite: "enderecos", ownerCol: "cpf"},
	"uf":         {kind: kindText, expr: "s.uf", satellite: "enderecos", ownerCol: "cpf"},
	"cep":        {kind: kindText, expr: "s.cep", satellite: "enderecos", ownerCol: "cpf"},
	"empregador": {kind: kindText, expr: "s.empregador", satellite: "empregos", ownerCol: "cpf"},
	"orgao":      {kind: kindText, expr: "s.orgao", satellite: "empregos", ownerCol: "cpf"},
	"matricula":  {kind: kindText, expr: "s.matricula", satellite: "empregos", ownerCol: "cpf"},
	"salario":    {kind: kindNumeric, expr: "s.salario", satellite: "empregos", ownerCol: "cpf"},
}

// ValidationError is a field-level submission error; it never reaches the
// store layer.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("criterion %q: %s", e.Field, e.Message)
}

// checked is a criterion that passed validation, with typed operands.
type checked struct {
	def  fieldDef
	op   Op
	args []any
}

// check validates one criterion. It returns (zero, false, nil) when the
// criterion must be dropped silently: an empty operand on a non-nullary
// operator means the operator never finished filling the filter in.
func check(c Criterion) (checked, bool, error) {
	name := strings.TrimSpace(c.Field)
	def, ok := fields[name]
	if !ok {
		return checked{}, false, &ValidationError{Field: c.Field, Message: "unknown field"}
	}
	if _, ok := opsByKind[def.kind][c.Op]; !ok {
		return checked{}, false, &ValidationError{Field: name, Message: fmt.Sprintf("operator %q not supported for this field", c.Op)}
	}

	want := c.Op.arity()
	vals := make([]string, 0, want)
	for _, v := range c.Values {
		if s := strings.TrimSpace(v); s != "" {
			vals = append(vals, s)
		}
	}
	if want > 0 && len(vals) < want {
		// Operand(s) left blank: drop silently before compilation.
		return checked{}, false, nil
	}
	vals = vals[:want]

	args := make([]any, 0, want)
	for _, v := range vals {
		a, err := parseOperand(def.kind, name, v)
		if err != nil {
			return checked{}, false, err
		}
		args = append(args, a)
	}
	return checked{def: def, op: c.Op, args: args}, true, nil
}

func parseOperand(k valueKind, field, v string) (any, error) {
	switch k {
	case kindDate:
		t, ok := normalize.Date(v)
		if !ok {
			return nil, &ValidationError{Field: field, Message: fmt.Sprintf("not a valid date: %q", v)}
		}
		return t, nil
	case kindNumeric:
		// CPF operands arrive formatted; strip to the canonical key shape.
		if field == "cpf" {
			key, ok := normalize.CPF(v)
			if !ok {
				return nil, &ValidationError{Field: field, Message: fmt.Sprintf("not a valid document number: %q", v)}
			}
			return key, nil
		}
		if n, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64); err == nil {
			return n, nil
		}
		return nil, &ValidationError{Field: field, Message: fmt.Sprintf("not a number: %q", v)}
	default:
		return v, nil
	}
}
