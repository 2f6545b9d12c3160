package importer

import (
	"cadimport/internal/batch"
	"cadimport/internal/mapping"
	"cadimport/internal/schema"
	"cadimport/internal/storage/postgres"
)

// stageSet is one entity's slice of the batch: the staged columns (owner key
// plus every mapped column destined for the entity) and one positional value
// row per admissible source row.
type stageSet struct {
	entity schema.Entity
	cols   []postgres.Column
	rows   [][]any
}

// buildStages splits the admissible rows across the entities the mapping
// actually feeds, in reconciliation dependency order.
//
// An entity is staged when at least one mapped column lands in it beyond the
// owner key; the pessoas table is additionally staged on any whole-graph run
// so a file of bare keys still creates identity records. An entity whose
// owner is resolved through a join (contratos via empregos) is staged only
// when every join column is mapped, since without them no staged row could
// ever resolve an owner.
func buildStages(plan *mapping.ColumnPlan, rows []batch.Row) []stageSet {
	mapped := plan.MappedFields()
	var out []stageSet

	for _, ent := range schema.Entities() {
		cols, sources, ok := stageColumns(ent, plan.Target, mapped)
		if !ok {
			continue
		}

		set := stageSet{entity: ent, cols: cols, rows: make([][]any, 0, len(rows))}
		for _, r := range rows {
			vals := make([]any, len(cols))
			for i, src := range sources {
				if src == "" {
					vals[i] = r.Key
					continue
				}
				vals[i] = r.Values[src]
			}
			set.rows = append(set.rows, vals)
		}
		out = append(out, set)
	}
	return out
}

// stageColumns resolves the staged column set for one entity. sources is
// parallel to cols: the canonical field name feeding each column, or "" for
// the owner key.
func stageColumns(ent schema.Entity, target schema.Target, mapped []schema.Field) ([]postgres.Column, []string, bool) {
	byColumn := func(col string, ownEntityOnly bool) (schema.Field, bool) {
		for _, f := range mapped {
			if f.Column != col {
				continue
			}
			if ownEntityOnly && f.Entity != ent.Name {
				continue
			}
			return f, true
		}
		return schema.Field{}, false
	}

	joinCols := map[string]struct{}{}
	if ent.OwnerJoin != nil {
		for _, c := range ent.OwnerJoin.MatchColumns {
			joinCols[c] = struct{}{}
		}
	}
	naturalKey := map[string]struct{}{}
	for _, c := range ent.NaturalKey {
		naturalKey[c] = struct{}{}
	}

	var cols []postgres.Column
	var sources []string
	values := 0
	for _, c := range ent.Columns {
		if c == "cpf" {
			cols = append(cols, postgres.Column{Name: c, Kind: schema.KindCPF})
			sources = append(sources, "")
			continue
		}
		if _, isJoin := joinCols[c]; isJoin {
			// Join columns may be fed by a field of another entity
			// (matricula lives on empregos but keys contratos).
			f, ok := byColumn(c, false)
			if !ok {
				return nil, nil, false
			}
			cols = append(cols, postgres.Column{Name: c, Kind: f.Kind})
			sources = append(sources, f.Name)
			continue
		}
		f, ok := byColumn(c, true)
		if !ok {
			if _, isKey := naturalKey[c]; isKey && ent.Enrichable {
				// The enrichment join references every natural-key column,
				// so an unmapped one is still staged, NULL-filled. A NULL
				// key never matches an existing row, so such rows take the
				// plain insert path.
				if tf, found := targetField(target, ent.Name, c); found {
					cols = append(cols, postgres.Column{Name: c, Kind: tf.Kind})
					sources = append(sources, tf.Name)
				}
			}
			continue
		}
		cols = append(cols, postgres.Column{Name: c, Kind: f.Kind})
		sources = append(sources, f.Name)
		values++
	}

	if values == 0 && !(ent.Name == "pessoas" && target.Name == "pessoas") {
		return nil, nil, false
	}
	return cols, sources, true
}

// targetField resolves the canonical field of target that feeds the given
// entity column, whether or not the run's mapping covers it.
func targetField(target schema.Target, entity, column string) (schema.Field, bool) {
	for _, f := range target.Fields {
		if f.Entity == entity && f.Column == column {
			return f, true
		}
	}
	return schema.Field{}, false
}

// accounting accumulates run totals across entity passes.
//
// A whole-graph run counts per identity record: criados is the number of
// distinct pessoa keys created during the run, enriquecidos the number of
// distinct keys the run touched without creating (any satellite landing on a
// pre-existing pessoa counts that pessoa as enriched). A standalone satellite
// run counts plain table rows.
type accounting struct {
	perRecord bool
	created   map[int64]struct{}
	touched   map[int64]struct{}
	inserted  int64
	enriched  int64
}

func newAccounting(perRecord bool) *accounting {
	return &accounting{
		perRecord: perRecord,
		created:   make(map[int64]struct{}),
		touched:   make(map[int64]struct{}),
	}
}

func (a *accounting) add(entity string, r postgres.EntityResult) {
	a.inserted += r.Inserted
	a.enriched += r.Enriched
	if !a.perRecord {
		return
	}
	if entity == "pessoas" {
		for _, k := range r.InsertedOwners {
			a.created[k] = struct{}{}
		}
	}
	for _, k := range r.InsertedOwners {
		a.touched[k] = struct{}{}
	}
	for _, k := range r.EnrichedOwners {
		a.touched[k] = struct{}{}
	}
}

func (a *accounting) totals() (criados, enriquecidos int) {
	if !a.perRecord {
		return int(a.inserted), int(a.enriched)
	}
	criados = len(a.created)
	for k := range a.touched {
		if _, ok := a.created[k]; !ok {
			enriquecidos++
		}
	}
	return criados, enriquecidos
}
