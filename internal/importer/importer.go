// Package importer orchestrates one import run end to end: store the upload,
// compile the operator's column mapping, partition the file into admissible
// and rejected rows, then reconcile the admissible rows into the entity graph
// in dependency order. The run is modeled as an explicit wizard: each step is
// a value type whose method returns the next state, so a caller can stop
// after any step (to show the header row, or a validation preview) without
// touching the database.
package importer

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cadimport/internal/mapping"
	"cadimport/internal/schema"
	"cadimport/internal/storage/postgres"
)

// UsageError marks a failure caused by what the operator submitted (unknown
// target, unreadable file format, bad column mapping) rather than by the
// pipeline or the store. Transports surface it with its message; anything
// else is an internal failure.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// Store is the storage surface the engine drives. *postgres.Store satisfies
// it; tests substitute a fake.
type Store interface {
	BeginRun(ctx context.Context, arquivo, blobKey, entidade string) (uuid.UUID, error)
	FinishRun(ctx context.Context, id uuid.UUID, criados, enriquecidos, rejeitados int, reportKey *string) error
	Reconcile(ctx context.Context, ent schema.Entity, cols []postgres.Column, rows [][]any) (postgres.EntityResult, error)
}

// Blobs is the subset of the blob store the engine uses.
type Blobs interface {
	Put(name string, content []byte) (string, error)
}

// Engine runs imports. It is safe for concurrent use; reconciliation of any
// one entity table is serialized across runs by a per-entity lock, so two
// concurrent files can never interleave statements against the same table.
type Engine struct {
	store   Store
	blobs   Blobs
	log     *logrus.Entry
	workers int
	locks   map[string]*sync.Mutex
}

// NewEngine wires the engine. workers <= 0 lets the batch validator pick.
func NewEngine(store Store, blobs Blobs, log *logrus.Entry, workers int) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	locks := make(map[string]*sync.Mutex)
	for _, e := range schema.Entities() {
		locks[e.Name] = &sync.Mutex{}
	}
	return &Engine{store: store, blobs: blobs, log: log, workers: workers, locks: locks}
}

// Run executes the whole wizard in one call, for callers that already hold
// the mapping (the CLI, or an API request replaying a saved template).
func (e *Engine) Run(ctx context.Context, filename, targetName string, src io.Reader, m mapping.Mapping) (*Reconciled, error) {
	up, err := e.NewUpload(filename, targetName, src)
	if err != nil {
		return nil, err
	}
	mapped, err := up.Map(m)
	if err != nil {
		return nil, err
	}
	validated, err := mapped.Validate(ctx)
	if err != nil {
		return nil, err
	}
	return validated.Reconcile(ctx)
}
