package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrRunNotFound is returned when a run id resolves to nothing.
var ErrRunNotFound = errors.New("import run not found")

// Run is one execution of the import pipeline against one uploaded file.
type Run struct {
	ID           uuid.UUID  `json:"id"`
	Arquivo      string     `json:"arquivo"`
	BlobKey      string     `json:"blob_key"`
	Entidade     string     `json:"entidade"`
	Criados      int        `json:"criados"`
	Enriquecidos int        `json:"enriquecidos"`
	Rejeitados   int        `json:"rejeitados"`
	ReportKey    *string    `json:"report_key,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// BeginRun creates the run record before reconciliation starts, so a run
// record exists even if the run later fails.
func (s *Store) BeginRun(ctx context.Context, arquivo, blobKey, entidade string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO import_runs (id, arquivo, blob_key, entidade, started_at) VALUES ($1, $2, $3, $4, now())`,
		id, arquivo, blobKey, entidade,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// FinishRun records the final counts and the error-report pointer. It is
// called exactly once per run, on success, partial failure and cancellation
// alike.
func (s *Store) FinishRun(ctx context.Context, id uuid.UUID, criados, enriquecidos, rejeitados int, reportKey *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE import_runs
		    SET criados = $2, enriquecidos = $3, rejeitados = $4, report_key = $5, finished_at = now()
		  WHERE id = $1`,
		id, criados, enriquecidos, rejeitados, reportKey,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// History returns all runs, most recent first.
func (s *Store) History(ctx context.Context) ([]Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, arquivo, blob_key, entidade, criados, enriquecidos, rejeitados, report_key, started_at, finished_at
		   FROM import_runs ORDER BY started_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("run history: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Arquivo, &r.BlobKey, &r.Entidade, &r.Criados, &r.Enriquecidos, &r.Rejeitados, &r.ReportKey, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun loads one run by id.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	var r Run
	err := s.pool.QueryRow(ctx,
		`SELECT id, arquivo, blob_key, entidade, criados, enriquecidos, rejeitados, report_key, started_at, finished_at
		   FROM import_runs WHERE id = $1`, id,
	).Scan(&r.ID, &r.Arquivo, &r.BlobKey, &r.Entidade, &r.Criados, &r.Enriquecidos, &r.Rejeitados, &r.ReportKey, &r.StartedAt, &r.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}
