// Package batch runs every parsed source row through the column mapping and
// the field normalizers, partitioning the file into admissible rows and
// rejected rows. Validation never aborts the batch: every failure is
// recorded against its 1-based source line and processing continues.
//
// Row validation is embarrassingly parallel, so it is fanned out across
// workers with golang.org/x/sync/errgroup; each worker writes only its own
// index range, and results are re-joined in original row order so the error
// report is deterministic.
package batch

import (
	"context"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"cadimport/internal/mapping"
	"cadimport/internal/normalize"
	"cadimport/internal/parser"
	"cadimport/internal/schema"
)

// Rejection reason codes. These appear verbatim in the error report.
const (
	ReasonInvalidKey   = "invalid or missing key"
	ReasonDuplicateKey = "duplicate key in file"
)

// Row is one admissible source row: the normalized CPF key plus every
// canonical field value that survived normalization. Values holds nil for
// blank and for non-key fields whose value failed its kind's validation
// (a bad phone must not poison an otherwise good row; the field simply
// contributes nothing).
type Row struct {
	Line   int
	Key    int64
	Values map[string]any
}

// Reject is one rejected source row with its reason and raw snapshot.
type Reject struct {
	Line   int
	Reason string
	Raw    []string
}

// Result is the disjoint partition of a batch.
type Result struct {
	Admissible []Row
	Rejected   []Reject
}

// Validate drains src and partitions it according to plan.
//
// workers <= 0 means GOMAXPROCS. The in-file duplicate-key rule (first
// occurrence wins, later duplicates rejected) is applied after the parallel
// phase, in original row order.
func Validate(ctx context.Context, plan *mapping.ColumnPlan, src parser.Reader, workers int) (Result, error) {
	var raw []parser.Row
	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, err
		}
		raw = append(raw, row)
		if len(raw)%4096 == 0 {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			default:
			}
		}
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(raw) {
		workers = 1
	}

	// Parallel phase: each worker owns a contiguous shard of the slot slice.
	slots := make([]slot, len(raw))
	g, gctx := errgroup.WithContext(ctx)
	chunk := (len(raw) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(raw) {
			hi = len(raw)
		}
		if lo >= hi {
			break
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				slots[i] = validateRow(plan, raw[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	// Sequential phase: dedupe keys in file order and assemble the partition.
	var res Result
	seen := make(map[int64]struct{}, len(raw))
	for i, s := range slots {
		if s.reason != "" {
			res.Rejected = append(res.Rejected, Reject{Line: raw[i].Line, Reason: s.reason, Raw: raw[i].Values})
			continue
		}
		if _, dup := seen[s.row.Key]; dup {
			res.Rejected = append(res.Rejected, Reject{Line: raw[i].Line, Reason: ReasonDuplicateKey, Raw: raw[i].Values})
			continue
		}
		seen[s.row.Key] = struct{}{}
		res.Admissible = append(res.Admissible, s.row)
	}
	return res, nil
}

type slot struct {
	row    Row
	reason string
}

// validateRow normalizes every mapped field of one row. Only a missing or
// invalid key rejects the row.
func validateRow(plan *mapping.ColumnPlan, r parser.Row) slot {
	cell := func(i int) string {
		if i < len(r.Values) {
			return r.Values[i]
		}
		return ""
	}

	key, ok := normalizeKey(cell(plan.KeyIdx))
	if !ok {
		return slot{reason: ReasonInvalidKey}
	}

	values := make(map[string]any, len(plan.Fields))
	for i, f := range plan.Fields {
		if f == nil || i == plan.KeyIdx {
			continue
		}
		v, ok := normalizeField(f.Kind, cell(i))
		if !ok {
			// Non-key field failed validation: degrade to no value.
			v = nil
		}
		values[f.Name] = v
	}
	values["cpf"] = key

	return slot{row: Row{Line: r.Line, Key: key, Values: values}}
}

// Function variables used to introduce test seams. In production these
// point at the normalize package.
var (
	normalizeField = func(k schema.Kind, raw string) (any, bool) { return normalize.Field(k, raw) }
	normalizeKey   = func(raw string) (int64, bool) { return normalize.CPF(raw) }
)
