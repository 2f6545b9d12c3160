// Package mapping resolves arbitrary source-file column labels onto the
// canonical fields of an import target. The mapping is supplied by the
// operator (or replayed from a saved template); this package only checks it
// and compiles the positional plan the batch validator runs on.
package mapping

import (
	"fmt"
	"strings"

	"cadimport/internal/schema"
)

// Ignore is the explicit "skip this column" disposition. It is distinct from
// an absent entry: a column mapped to Ignore has been dispositioned by the
// operator, an unmapped column simply has not been looked at. Both are
// skipped at run time; the distinction lets a UI tell them apart.
const Ignore = "-"

// ErrKeyUnmapped aborts a run before any row is read: without a source
// column for the CPF key no row can be reconciled.
var ErrKeyUnmapped = fmt.Errorf("no source column mapped to the cpf key field")

// Mapping associates source column labels with canonical field names.
// Values are canonical field names or Ignore.
type Mapping map[string]string

// ColumnPlan is the compiled, positional form of a Mapping for one concrete
// header row: for each source column index, the canonical field it feeds
// (nil when the column is ignored or unmapped).
type ColumnPlan struct {
	Target schema.Target
	Fields []*schema.Field // len == len(headers); nil = skip
	KeyIdx int             // index of the column feeding the cpf key
}

// Compile checks m against the target's canonical fields and the actual
// header row, returning the positional plan.
//
// Rules enforced here:
//   - every mapped-to name must be a canonical field of the target (or Ignore);
//   - each canonical field may receive at most one source column;
//   - the cpf key field must be mapped to a column present in the header.
//
// Header labels are matched case-insensitively and with surrounding space
// trimmed, matching how operators see them in spreadsheets.
func Compile(target schema.Target, headers []string, m Mapping) (*ColumnPlan, error) {
	norm := make(map[string]string, len(m))
	for label, field := range m {
		norm[normLabel(label)] = field
	}

	plan := &ColumnPlan{
		Target: target,
		Fields: make([]*schema.Field, len(headers)),
		KeyIdx: -1,
	}

	claimed := make(map[string]string, len(m)) // canonical field -> source label
	for i, h := range headers {
		name, ok := norm[normLabel(h)]
		if !ok || name == Ignore {
			continue
		}
		f, ok := target.Field(name)
		if !ok {
			return nil, fmt.Errorf("column %q maps to %q, not a field of target %q", h, name, target.Name)
		}
		if prev, dup := claimed[name]; dup {
			return nil, fmt.Errorf("field %q mapped from both %q and %q; each field takes at most one column", name, prev, h)
		}
		claimed[name] = h

		ff := f
		plan.Fields[i] = &ff
		if name == "cpf" {
			plan.KeyIdx = i
		}
	}

	if plan.KeyIdx < 0 {
		return nil, ErrKeyUnmapped
	}
	return plan, nil
}

// MappedFields returns the canonical fields the plan feeds, in column order.
func (p *ColumnPlan) MappedFields() []schema.Field {
	var out []schema.Field
	for _, f := range p.Fields {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out
}

func normLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
