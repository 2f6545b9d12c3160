package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"cadimport/internal/batch"
	"cadimport/internal/mapping"
	"cadimport/internal/metrics"
	"cadimport/internal/parser"
	"cadimport/internal/report"
	"cadimport/internal/schema"
)

// Upload is the first wizard state: the file is stored and the target is
// resolved, but nothing has been parsed yet.
type Upload struct {
	Filename string
	BlobKey  string
	Target   schema.Target

	eng     *Engine
	content []byte
}

// NewUpload stores the raw file in the blob store and resolves the target.
func (e *Engine) NewUpload(filename, targetName string, src io.Reader) (*Upload, error) {
	target, err := schema.LookupTarget(targetName)
	if err != nil {
		return nil, &UsageError{Err: err}
	}
	content, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	key, err := e.blobs.Put(filename, content)
	if err != nil {
		return nil, err
	}
	return &Upload{Filename: filename, BlobKey: key, Target: target, eng: e, content: content}, nil
}

// Headers parses just the header row, for a mapping UI.
func (u *Upload) Headers() ([]string, error) {
	rd, err := parser.Open(bytes.NewReader(u.content), u.Filename)
	if err != nil {
		return nil, &UsageError{Err: err}
	}
	defer rd.Close()
	return rd.Headers(), nil
}

// Map compiles the operator's column mapping against the actual header row,
// advancing to the Mapped state.
func (u *Upload) Map(m mapping.Mapping) (*Mapped, error) {
	rd, err := parser.Open(bytes.NewReader(u.content), u.Filename)
	if err != nil {
		return nil, &UsageError{Err: err}
	}
	plan, err := mapping.Compile(u.Target, rd.Headers(), m)
	if err != nil {
		rd.Close()
		return nil, &UsageError{Err: err}
	}
	return &Mapped{up: u, plan: plan, reader: rd}, nil
}

// Mapped holds a compiled column plan and the open reader positioned after
// the header row.
type Mapped struct {
	up     *Upload
	plan   *mapping.ColumnPlan
	reader parser.Reader
}

// Validate drains the file through the batch validator, advancing to the
// Validated state. The reader is consumed and closed either way.
func (m *Mapped) Validate(ctx context.Context) (*Validated, error) {
	defer m.reader.Close()
	res, err := batch.Validate(ctx, m.plan, m.reader, m.up.eng.workers)
	if err != nil {
		return nil, err
	}
	return &Validated{up: m.up, plan: m.plan, Batch: res}, nil
}

// Validated carries the admissible/rejected partition. Nothing has been
// written to the database yet; a caller may inspect the partition and abandon
// the run without a trace beyond the stored blob.
type Validated struct {
	Batch batch.Result

	up   *Upload
	plan *mapping.ColumnPlan
}

// Reconciled is the terminal state: the run's audit identity and final
// accounting.
type Reconciled struct {
	RunID        uuid.UUID
	Criados      int
	Enriquecidos int
	Rejeitados   int
	ReportKey    *string
}

// Reconcile opens the run record, stores the row-level error report, merges
// the admissible rows entity by entity, and finalizes the run record.
//
// The import_runs row is finalized exactly once no matter how the pass ends:
// the deferred FinishRun runs on success, on a store error and on context
// cancellation alike, carrying whatever counts had accumulated by then. The
// finalization itself uses a non-cancelable context so a canceled run still
// gets its partial accounting on record.
func (v *Validated) Reconcile(ctx context.Context) (st *Reconciled, err error) {
	eng := v.up.eng
	log := eng.log.WithFields(map[string]any{
		"arquivo": v.up.Filename,
		"target":  v.up.Target.Name,
	})

	runID, err := eng.store.BeginRun(ctx, v.up.Filename, v.up.BlobKey, v.up.Target.Name)
	if err != nil {
		return nil, err
	}
	log = log.WithField("run", runID)

	st = &Reconciled{RunID: runID, Rejeitados: len(v.Batch.Rejected)}
	defer func() {
		fctx := context.WithoutCancel(ctx)
		if ferr := eng.store.FinishRun(fctx, runID, st.Criados, st.Enriquecidos, st.Rejeitados, st.ReportKey); ferr != nil {
			log.WithError(ferr).Error("finalize import run")
			if err == nil {
				err = ferr
			}
		}
		metrics.IncCounter("import_rows_created", float64(st.Criados), metrics.Labels{"target": v.up.Target.Name})
		metrics.IncCounter("import_rows_enriched", float64(st.Enriquecidos), metrics.Labels{"target": v.up.Target.Name})
		metrics.IncCounter("import_rows_rejected", float64(st.Rejeitados), metrics.Labels{"target": v.up.Target.Name})
		if merr := metrics.Flush(); merr != nil {
			log.WithError(merr).Warn("flush metrics")
		}
		if err != nil {
			st = nil
		}
	}()

	if len(v.Batch.Rejected) > 0 {
		key, perr := eng.blobs.Put("report.txt", report.Render(v.Batch.Rejected))
		if perr != nil {
			return st, fmt.Errorf("store error report: %w", perr)
		}
		st.ReportKey = &key
	}

	acc := newAccounting(v.up.Target.Name == "pessoas")
	for _, sg := range buildStages(v.plan, v.Batch.Admissible) {
		lock := eng.locks[sg.entity.Name]
		lock.Lock()
		res, rerr := eng.store.Reconcile(ctx, sg.entity, sg.cols, sg.rows)
		lock.Unlock()
		if rerr != nil {
			return st, fmt.Errorf("reconcile %s: %w", sg.entity.Name, rerr)
		}
		acc.add(sg.entity.Name, res)
		st.Criados, st.Enriquecidos = acc.totals()
	}

	log.WithFields(map[string]any{
		"criados":      st.Criados,
		"enriquecidos": st.Enriquecidos,
		"rejeitados":   st.Rejeitados,
	}).Info("import run finished")
	return st, nil
}
