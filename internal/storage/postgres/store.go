// Package postgres implements the relational store behind the import
// pipeline and the retrieval engine using pgx v5: run-scoped temp-table
// staging loaded via COPY, set-based reconciliation (fill-the-gaps
// enrichment plus insert-where-absent), the import-run audit table and the
// compiled-filter search executor.
package postgres

import (
	"context"
	"fmt"
	"strings"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Store is a pgx-backed implementation of the storage used by the importer
// and the search service.
type Store struct {
	pool *pgxpool.Pool
	log  *logrus.Entry
}

// New constructs a Store and returns a close function for cleanup.
func New(ctx context.Context, dsn string, log *logrus.Entry) (*Store, func(), error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("parse dsn: %w", err)
	}
	// Monetary columns are staged as shopspring decimals; the codec must be
	// registered per connection for COPY to encode them.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{pool: pool, log: log}, pool.Close, nil
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// mapIdent maps a list of column names to their quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgIdent(c)
	}
	return out
}
