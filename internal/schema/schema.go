// Package schema declares the canonical entity graph targeted by the import
// pipeline and the retrieval engine: the pessoas table keyed by a normalized
// CPF, and its satellite collections (telefones, emails, enderecos, empregos,
// contratos).
//
// The package is purely declarative. Parsers, the column mapper, the batch
// validator and the reconciler all consume these descriptors so that the set
// of canonical fields, their value kinds and their destination columns is
// defined exactly once.
package schema

import "fmt"

// Kind describes how a raw textual value must be normalized before it can be
// staged for a column.
type Kind uint8

const (
	KindText Kind = iota
	KindCPF
	KindPhone
	KindEmail
	KindDate
	KindMoney
	KindInt
)

// String returns the lowercase kind name used in logs and error messages.
func (k Kind) String() string {
	switch k {
	case KindCPF:
		return "cpf"
	case KindPhone:
		return "phone"
	case KindEmail:
		return "email"
	case KindDate:
		return "date"
	case KindMoney:
		return "money"
	case KindInt:
		return "int"
	default:
		return "text"
	}
}

// Field is one canonical field accepted by an import target. Name is the
// canonical identifier operators map source columns onto; Entity/Column is
// the destination the staged value lands in.
type Field struct {
	Name   string
	Entity string
	Column string
	Kind   Kind
}

// Entity describes one destination table and how the reconciler treats it.
type Entity struct {
	// Name is the table name.
	Name string

	// OwnerKey is the column referencing the owning pessoa. Empty for the
	// pessoas table itself.
	OwnerKey string

	// Columns are the staged columns in positional order. The reconciler
	// creates the run-scoped staging table with exactly this shape.
	Columns []string

	// NaturalKey is the uniqueness key within the table. For pessoas this is
	// the primary key; for satellites it is the (owner, sub-key) pair that
	// duplicate rows are silently skipped on.
	NaturalKey []string

	// Enrichable marks entities that take the fill-the-gaps enrichment pass.
	// Multi-valued satellites (telefones, emails, contratos) are insert-only.
	Enrichable bool

	// OwnerJoin is set for entities whose owner is not pessoas directly but
	// resolved through an intermediate table (contratos -> empregos).
	OwnerJoin *OwnerJoin
}

// OwnerJoin resolves a staged row's owner through an intermediate table.
// Staged rows carry MatchColumns; the insert joins Table on them and stores
// Table's id into IDColumn.
type OwnerJoin struct {
	Table        string
	IDColumn     string
	MatchColumns []string
}

// EnrichColumns returns the columns eligible for fill-the-gaps enrichment:
// every staged column that is not part of the natural key.
func (e Entity) EnrichColumns() []string {
	nk := make(map[string]struct{}, len(e.NaturalKey))
	for _, c := range e.NaturalKey {
		nk[c] = struct{}{}
	}
	out := make([]string, 0, len(e.Columns))
	for _, c := range e.Columns {
		if _, ok := nk[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// Target is one selectable import target: the canonical fields a source file
// may be mapped onto. The pessoas target spans the whole entity graph (one
// phone, one e-mail, one address, one job and one contract per row); the
// satellite targets accept standalone files keyed by CPF.
type Target struct {
	Name   string
	Fields []Field
}

// Field looks up a canonical field by name.
func (t Target) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// KeyField returns the CPF key field of the target.
func (t Target) KeyField() Field {
	f, _ := t.Field("cpf")
	return f
}

// EntityFields returns the target's fields destined for the given entity.
func (t Target) EntityFields(entity string) []Field {
	var out []Field
	for _, f := range t.Fields {
		if f.Entity == entity {
			out = append(out, f)
		}
	}
	return out
}

var pessoaFields = []Field{
	{Name: "cpf", Entity: "pessoas", Column: "cpf", Kind: KindCPF},
	{Name: "nome", Entity: "pessoas", Column: "nome", Kind: KindText},
	{Name: "rg", Entity: "pessoas", Column: "rg", Kind: KindText},
	{Name: "cnh", Entity: "pessoas", Column: "cnh", Kind: KindText},
	{Name: "titulo_eleitor", Entity: "pessoas", Column: "titulo_eleitor", Kind: KindText},
	{Name: "data_nascimento", Entity: "pessoas", Column: "data_nascimento", Kind: KindDate},
	{Name: "nome_mae", Entity: "pessoas", Column: "nome_mae", Kind: KindText},
	{Name: "nome_pai", Entity: "pessoas", Column: "nome_pai", Kind: KindText},
	{Name: "observacao", Entity: "pessoas", Column: "observacao", Kind: KindText},
}

var phoneField = Field{Name: "telefone", Entity: "telefones", Column: "numero", Kind: KindPhone}
var emailField = Field{Name: "email", Entity: "emails", Column: "email", Kind: KindEmail}

var enderecoFields = []Field{
	{Name: "logradouro", Entity: "enderecos", Column: "logradouro", Kind: KindText},
	{Name: "bairro", Entity: "enderecos", Column: "bairro", Kind: KindText},
	{Name: "cidade", Entity: "enderecos", Column: "cidade", Kind: KindText},
	{Name: "uf", Entity: "enderecos", Column: "uf", Kind: KindText},
	{Name: "cep", Entity: "enderecos", Column: "cep", Kind: KindText},
}

var empregoFields = []Field{
	{Name: "empregador", Entity: "empregos", Column: "empregador", Kind: KindText},
	{Name: "orgao", Entity: "empregos", Column: "orgao", Kind: KindText},
	{Name: "matricula", Entity: "empregos", Column: "matricula", Kind: KindText},
	{Name: "salario", Entity: "empregos", Column: "salario", Kind: KindMoney},
}

var contratoFields = []Field{
	{Name: "contrato", Entity: "contratos", Column: "contrato", Kind: KindText},
	{Name: "banco", Entity: "contratos", Column: "banco", Kind: KindText},
	{Name: "valor_parcela", Entity: "contratos", Column: "valor_parcela", Kind: KindMoney},
	{Name: "prazo", Entity: "contratos", Column: "prazo", Kind: KindInt},
}

// entities holds the reconciliation descriptors in dependency order: the
// owner table first, then satellites, then contratos (which resolves its
// owner through empregos).
var entities = []Entity{
	{
		Name:       "pessoas",
		Columns:    []string{"cpf", "nome", "rg", "cnh", "titulo_eleitor", "data_nascimento", "nome_mae", "nome_pai", "observacao"},
		NaturalKey: []string{"cpf"},
		Enrichable: true,
	},
	{
		Name:       "telefones",
		OwnerKey:   "cpf",
		Columns:    []string{"cpf", "numero"},
		NaturalKey: []string{"cpf", "numero"},
	},
	{
		Name:       "emails",
		OwnerKey:   "cpf",
		Columns:    []string{"cpf", "email"},
		NaturalKey: []string{"cpf", "email"},
	},
	{
		Name:       "enderecos",
		OwnerKey:   "cpf",
		Columns:    []string{"cpf", "logradouro", "bairro", "cidade", "uf", "cep"},
		NaturalKey: []string{"cpf", "cep"},
		Enrichable: true,
	},
	{
		Name:       "empregos",
		OwnerKey:   "cpf",
		Columns:    []string{"cpf", "empregador", "orgao", "matricula", "salario"},
		NaturalKey: []string{"cpf", "matricula"},
		Enrichable: true,
	},
	{
		Name:       "contratos",
		OwnerKey:   "cpf",
		Columns:    []string{"cpf", "matricula", "contrato", "banco", "valor_parcela", "prazo"},
		NaturalKey: []string{"emprego_id", "contrato"},
		OwnerJoin: &OwnerJoin{
			Table:        "empregos",
			IDColumn:     "emprego_id",
			MatchColumns: []string{"cpf", "matricula"},
		},
	},
}

var targets = buildTargets()

func buildTargets() map[string]Target {
	key := Field{Name: "cpf", Entity: "pessoas", Column: "cpf", Kind: KindCPF}

	full := make([]Field, 0, 24)
	full = append(full, pessoaFields...)
	full = append(full, phoneField, emailField)
	full = append(full, enderecoFields...)
	full = append(full, empregoFields...)
	full = append(full, contratoFields...)

	stand := func(name string, fields ...Field) Target {
		fs := append([]Field{key}, fields...)
		return Target{Name: name, Fields: fs}
	}

	matricula := Field{Name: "matricula", Entity: "contratos", Column: "matricula", Kind: KindText}

	return map[string]Target{
		"pessoas":   {Name: "pessoas", Fields: full},
		"telefones": stand("telefones", phoneField),
		"emails":    stand("emails", emailField),
		"enderecos": stand("enderecos", enderecoFields...),
		"empregos":  stand("empregos", empregoFields...),
		"contratos": stand("contratos", append([]Field{matricula}, contratoFields...)...),
	}
}

// LookupTarget resolves an import target by name.
func LookupTarget(name string) (Target, error) {
	t, ok := targets[name]
	if !ok {
		return Target{}, fmt.Errorf("unknown import target %q", name)
	}
	return t, nil
}

// LookupEntity resolves an entity descriptor by table name.
func LookupEntity(name string) (Entity, error) {
	for _, e := range entities {
		if e.Name == name {
			return e, nil
		}
	}
	return Entity{}, fmt.Errorf("unknown entity %q", name)
}

// Entities returns the reconciliation descriptors in dependency order.
func Entities() []Entity {
	out := make([]Entity, len(entities))
	copy(out, entities)
	return out
}

// TargetNames lists the selectable import targets.
func TargetNames() []string {
	return []string{"pessoas", "telefones", "emails", "enderecos", "empregos", "contratos"}
}
