package importer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadimport/internal/batch"
	"cadimport/internal/mapping"
	"cadimport/internal/schema"
	"cadimport/internal/storage/postgres"
)

func entityResult(inserted, enriched int64, insertedOwners, enrichedOwners []int64) postgres.EntityResult {
	return postgres.EntityResult{
		Inserted:       inserted,
		Enriched:       enriched,
		InsertedOwners: insertedOwners,
		EnrichedOwners: enrichedOwners,
	}
}

func compilePlan(t *testing.T, target string, headers []string, m mapping.Mapping) *mapping.ColumnPlan {
	t.Helper()
	tgt, err := schema.LookupTarget(target)
	require.NoError(t, err)
	plan, err := mapping.Compile(tgt, headers, m)
	require.NoError(t, err)
	return plan
}

func stageNames(sets []stageSet) []string {
	out := make([]string, len(sets))
	for i, s := range sets {
		out[i] = s.entity.Name
	}
	return out
}

func TestBuildStagesDependencyOrder(t *testing.T) {
	plan := compilePlan(t, "pessoas",
		[]string{"cpf", "nome", "telefone", "matricula", "contrato", "valor_parcela"},
		mapping.Mapping{
			"cpf": "cpf", "nome": "nome", "telefone": "telefone",
			"matricula": "matricula", "contrato": "contrato", "valor_parcela": "valor_parcela",
		})

	rows := []batch.Row{{
		Line: 2,
		Key:  52998224725,
		Values: map[string]any{
			"cpf": int64(52998224725), "nome": "Ana", "telefone": "11987654321",
			"matricula": "M-1", "contrato": "C-9", "valor_parcela": decimal.RequireFromString("350.10"),
		},
	}}

	sets := buildStages(plan, rows)
	assert.Equal(t, []string{"pessoas", "telefones", "empregos", "contratos"}, stageNames(sets))

	// contratos stages its join columns alongside its own values.
	last := sets[len(sets)-1]
	var cols []string
	for _, c := range last.cols {
		cols = append(cols, c.Name)
	}
	assert.Equal(t, []string{"cpf", "matricula", "contrato", "valor_parcela"}, cols)
	assert.Equal(t, "M-1", last.rows[0][1])
}

func TestBuildStagesSkipsContratosWithoutMatricula(t *testing.T) {
	plan := compilePlan(t, "pessoas",
		[]string{"cpf", "contrato"},
		mapping.Mapping{"cpf": "cpf", "contrato": "contrato"})

	rows := []batch.Row{{Line: 2, Key: 1, Values: map[string]any{"cpf": int64(1), "contrato": "C-9"}}}

	// Without the matricula join column no contrato row could resolve its
	// employment, so the entity is not staged at all.
	assert.Equal(t, []string{"pessoas"}, stageNames(buildStages(plan, rows)))
}

func TestBuildStagesBareKeysStillStagePessoas(t *testing.T) {
	plan := compilePlan(t, "pessoas", []string{"cpf"}, mapping.Mapping{"cpf": "cpf"})
	rows := []batch.Row{{Line: 2, Key: 42, Values: map[string]any{"cpf": int64(42)}}}

	sets := buildStages(plan, rows)
	require.Len(t, sets, 1)
	assert.Equal(t, "pessoas", sets[0].entity.Name)
	assert.Equal(t, []any{int64(42)}, sets[0].rows[0])
}

func TestBuildStagesNullFillsUnmappedNaturalKey(t *testing.T) {
	// An address file with no CEP column: the natural key (cpf, cep) must
	// still be fully staged or the enrichment join would reference a column
	// the staging table does not have.
	plan := compilePlan(t, "enderecos",
		[]string{"cpf", "cidade", "uf"},
		mapping.Mapping{"cpf": "cpf", "cidade": "cidade", "uf": "uf"})

	rows := []batch.Row{{
		Line: 2, Key: 42,
		Values: map[string]any{"cpf": int64(42), "cidade": "Recife", "uf": "PE"},
	}}

	sets := buildStages(plan, rows)
	require.Len(t, sets, 1)

	var cols []string
	for _, c := range sets[0].cols {
		cols = append(cols, c.Name)
	}
	assert.Equal(t, []string{"cpf", "cidade", "uf", "cep"}, cols)
	assert.Equal(t, []any{int64(42), "Recife", "PE", nil}, sets[0].rows[0])
}

func TestBuildStagesNullFillsUnmappedMatricula(t *testing.T) {
	plan := compilePlan(t, "pessoas",
		[]string{"cpf", "empregador"},
		mapping.Mapping{"cpf": "cpf", "empregador": "empregador"})

	rows := []batch.Row{{Line: 2, Key: 7, Values: map[string]any{"cpf": int64(7), "empregador": "INSS"}}}

	sets := buildStages(plan, rows)
	require.Len(t, sets, 2)
	assert.Equal(t, []string{"pessoas", "empregos"}, stageNames(sets))

	emp := sets[1]
	var cols []string
	for _, c := range emp.cols {
		cols = append(cols, c.Name)
	}
	assert.Equal(t, []string{"cpf", "empregador", "matricula"}, cols)
	assert.Equal(t, []any{int64(7), "INSS", nil}, emp.rows[0])
}

func TestAccountingPerRecord(t *testing.T) {
	a := newAccounting(true)
	a.add("pessoas", entityResult(2, 1, []int64{10, 11}, []int64{12}))
	a.add("telefones", entityResult(3, 0, []int64{10, 13}, nil))

	criados, enriquecidos := a.totals()
	assert.Equal(t, 2, criados)      // 10 and 11
	assert.Equal(t, 2, enriquecidos) // 12 enriched, 13 touched by a satellite only
}

func TestAccountingRowCounts(t *testing.T) {
	a := newAccounting(false)
	a.add("telefones", entityResult(3, 0, []int64{10, 13}, nil))
	a.add("emails", entityResult(1, 0, nil, nil))

	criados, enriquecidos := a.totals()
	assert.Equal(t, 4, criados)
	assert.Equal(t, 0, enriquecidos)
}
