package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"cadimport/internal/schema"
)

// Column is one staged column: its destination name plus the value kind it
// was normalized with (the kind picks the staging column's SQL type).
type Column struct {
	Name string
	Kind schema.Kind
}

// EntityResult reports what one entity's reconciliation pass did.
//
// Inserted/Enriched count rows of the entity itself. InsertedOwners and
// EnrichedOwners carry the pessoa keys the pass created or touched, so the
// importer can account a whole-graph run per identity record instead of per
// table row.
type EntityResult struct {
	Inserted       int64
	Enriched       int64
	InsertedOwners []int64
	EnrichedOwners []int64
}

// uniqueViolation is the Postgres SQLSTATE for a unique-constraint error.
const uniqueViolation = "23505"

// Reconcile merges staged rows into the entity's table: COPY into a
// run-scoped temp table, fill-the-gaps enrichment for keyed entities, then
// insert-where-absent (insert-if-not-exists for multi-valued satellites).
// All statements for the entity run in one transaction; any fatal store
// error rolls the whole entity back.
//
// A unique-violation during the insert pass means a concurrent run won the
// race for the same natural key; the losing pass is retried once so the row
// is reconsidered as an enrichment.
func (s *Store) Reconcile(ctx context.Context, ent schema.Entity, cols []Column, rows [][]any) (EntityResult, error) {
	if len(rows) == 0 {
		return EntityResult{}, nil
	}

	res, err := s.reconcileOnce(ctx, ent, cols, rows)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			s.log.WithField("entity", ent.Name).Warn("natural-key race lost, retrying entity as enrichment")
			return s.reconcileOnce(ctx, ent, cols, rows)
		}
		return EntityResult{}, err
	}
	return res, nil
}

func (s *Store) reconcileOnce(ctx context.Context, ent schema.Entity, cols []Column, rows [][]any) (EntityResult, error) {
	var res EntityResult

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stage := "stage_" + ent.Name
	if _, err := tx.Exec(ctx, createStageSQL(stage, cols)); err != nil {
		return res, fmt.Errorf("create staging table: %w", err)
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{stage}, names, pgx.CopyFromRows(rows)); err != nil {
		return res, fmt.Errorf("copy into staging: %w", err)
	}

	switch {
	case ent.Name == "pessoas":
		if err := s.reconcilePessoas(ctx, tx, ent, stage, names, &res); err != nil {
			return res, err
		}
	case ent.OwnerJoin != nil:
		if err := s.reconcileJoined(ctx, tx, ent, stage, names, &res); err != nil {
			return res, err
		}
	default:
		if err := s.reconcileSatellite(ctx, tx, ent, stage, names, &res); err != nil {
			return res, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}

	s.log.WithFields(map[string]any{
		"entity":   ent.Name,
		"staged":   len(rows),
		"inserted": res.Inserted,
		"enriched": res.Enriched,
	}).Info("entity reconciled")
	return res, nil
}

func (s *Store) reconcilePessoas(ctx context.Context, tx pgx.Tx, ent schema.Entity, stage string, staged []string, res *EntityResult) error {
	valueCols := valueColumns(staged, ent.NaturalKey)

	if len(valueCols) > 0 {
		keys, err := collectKeys(ctx, tx, enrichSQL(ent.Name, stage, ent.NaturalKey, valueCols, true))
		if err != nil {
			return fmt.Errorf("enrich %s: %w", ent.Name, err)
		}
		res.Enriched = int64(len(keys))
		res.EnrichedOwners = keys
	}

	keys, err := collectKeys(ctx, tx, insertAbsentSQL(ent.Name, stage, staged))
	if err != nil {
		return fmt.Errorf("insert %s: %w", ent.Name, err)
	}
	res.Inserted = int64(len(keys))
	res.InsertedOwners = keys
	return nil
}

func (s *Store) reconcileSatellite(ctx context.Context, tx pgx.Tx, ent schema.Entity, stage string, staged []string, res *EntityResult) error {
	// Orphan prevention: every staged owner key must resolve to a pessoa by
	// the end of the run, even when the file carries satellite data only.
	if _, err := tx.Exec(ctx, ensureOwnersSQL(stage)); err != nil {
		return fmt.Errorf("ensure owners: %w", err)
	}

	if ent.Enrichable {
		valueCols := valueColumns(staged, ent.NaturalKey)
		if len(valueCols) > 0 {
			keys, err := collectKeys(ctx, tx, enrichSQL(ent.Name, stage, ent.NaturalKey, valueCols, false))
			if err != nil {
				return fmt.Errorf("enrich %s: %w", ent.Name, err)
			}
			res.Enriched = int64(len(keys))
			res.EnrichedOwners = keys
		}
	}

	keys, err := collectKeys(ctx, tx, satelliteInsertSQL(ent, stage, staged))
	if err != nil {
		return fmt.Errorf("insert %s: %w", ent.Name, err)
	}
	res.Inserted = int64(len(keys))
	res.InsertedOwners = keys
	return nil
}

func (s *Store) reconcileJoined(ctx context.Context, tx pgx.Tx, ent schema.Entity, stage string, staged []string, res *EntityResult) error {
	keys, err := collectKeys(ctx, tx, joinedInsertSQL(ent, stage, staged))
	if err != nil {
		return fmt.Errorf("insert %s: %w", ent.Name, err)
	}
	res.Inserted = int64(len(keys))
	res.InsertedOwners = keys
	return nil
}

// collectKeys runs a statement whose RETURNING clause yields pessoa keys and
// collects the distinct set.
func collectKeys(ctx context.Context, tx pgx.Tx, sql string) ([]int64, error) {
	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[int64]struct{})
	var out []int64
	for rows.Next() {
		var k *int64
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		if k == nil {
			continue
		}
		if _, dup := seen[*k]; dup {
			continue
		}
		seen[*k] = struct{}{}
		out = append(out, *k)
	}
	return out, rows.Err()
}

// --- SQL builders -------------------------------------------------------------

// sqlType maps a value kind to the staging column type.
func sqlType(k schema.Kind) string {
	switch k {
	case schema.KindCPF:
		return "BIGINT"
	case schema.KindDate:
		return "DATE"
	case schema.KindMoney:
		return "NUMERIC(14,2)"
	case schema.KindInt:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// createStageSQL declares the run-scoped staging table. ON COMMIT DROP ties
// its lifetime to the entity's transaction, success or failure alike.
func createStageSQL(stage string, cols []Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = pgIdent(c.Name) + " " + sqlType(c.Kind)
	}
	return fmt.Sprintf("CREATE TEMP TABLE %s (%s) ON COMMIT DROP", pgIdent(stage), strings.Join(defs, ", "))
}

// emptyPred is the standardized "empty" test for enrichment: SQL NULL or a
// whitespace-only string.
func emptyPred(col string) string {
	return fmt.Sprintf("(%s IS NULL OR btrim(%s::text) = '')", col, col)
}

// enrichSQL builds the fill-the-gaps update: for staged rows whose natural
// key already exists, set each destination field from the staged value only
// when the destination is currently empty. Rows where nothing would change
// are excluded so the RETURNING set counts only rows actually touched.
func enrichSQL(table, stage string, key, valueCols []string, touchUpdatedAt bool) string {
	sets := make([]string, 0, len(valueCols)+1)
	changed := make([]string, 0, len(valueCols))
	for _, c := range valueCols {
		t := "t." + pgIdent(c)
		sv := "s." + pgIdent(c)
		sets = append(sets, fmt.Sprintf("%s = CASE WHEN %s THEN %s ELSE %s END", pgIdent(c), emptyPred(t), sv, t))
		changed = append(changed, fmt.Sprintf("(%s AND %s IS NOT NULL)", emptyPred(t), sv))
	}
	if touchUpdatedAt {
		sets = append(sets, "updated_at = now()")
	}

	conds := make([]string, 0, len(key)+1)
	for _, k := range key {
		conds = append(conds, fmt.Sprintf("t.%s = s.%s", pgIdent(k), pgIdent(k)))
	}
	conds = append(conds, "("+strings.Join(changed, " OR ")+")")

	return fmt.Sprintf(
		"UPDATE %s AS t SET %s FROM %s AS s WHERE %s RETURNING t.cpf",
		pgIdent(table), strings.Join(sets, ", "), pgIdent(stage), strings.Join(conds, " AND "),
	)
}

// insertAbsentSQL inserts staged pessoas whose key does not exist yet
// (post-enrichment set difference).
func insertAbsentSQL(table, stage string, staged []string) string {
	sel := make([]string, len(staged))
	for i, c := range staged {
		sel[i] = "s." + pgIdent(c)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s AS s WHERE NOT EXISTS (SELECT 1 FROM %s AS t WHERE t.cpf = s.cpf) RETURNING cpf",
		pgIdent(table), strings.Join(mapIdent(staged), ", "), strings.Join(sel, ", "), pgIdent(stage), pgIdent(table),
	)
}

// ensureOwnersSQL creates bare pessoa rows for staged owner keys that do not
// exist yet, so satellite inserts never leave orphans behind.
func ensureOwnersSQL(stage string) string {
	return fmt.Sprintf(
		"INSERT INTO pessoas (cpf) SELECT DISTINCT s.cpf FROM %s AS s ON CONFLICT (cpf) DO NOTHING",
		pgIdent(stage),
	)
}

// satelliteInsertSQL is the insert-if-not-exists pass for satellites: rows
// whose natural key already exists are silently skipped. Rows carrying no
// value at all (every non-owner column NULL) are not inserted.
func satelliteInsertSQL(ent schema.Entity, stage string, staged []string) string {
	sel := make([]string, len(staged))
	for i, c := range staged {
		sel[i] = "s." + pgIdent(c)
	}
	valueCols := valueColumns(staged, []string{ent.OwnerKey})
	nonEmpty := make([]string, len(valueCols))
	for i, c := range valueCols {
		nonEmpty[i] = "s." + pgIdent(c) + " IS NOT NULL"
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s AS s WHERE (%s) ON CONFLICT (%s) DO NOTHING RETURNING %s",
		pgIdent(ent.Name),
		strings.Join(mapIdent(staged), ", "),
		strings.Join(sel, ", "),
		pgIdent(stage),
		strings.Join(nonEmpty, " OR "),
		strings.Join(mapIdent(ent.NaturalKey), ", "),
		pgIdent(ent.OwnerKey),
	)
}

// joinedInsertSQL inserts rows whose owner is resolved through an
// intermediate table (contratos join empregos on cpf+matricula). Staged rows
// that resolve no owner are skipped; they reference an employment record the
// store has never seen.
func joinedInsertSQL(ent schema.Entity, stage string, staged []string) string {
	j := ent.OwnerJoin

	joinConds := make([]string, len(j.MatchColumns))
	for i, c := range j.MatchColumns {
		joinConds[i] = fmt.Sprintf("e.%s = s.%s", pgIdent(c), pgIdent(c))
	}

	valueCols := valueColumns(staged, j.MatchColumns)
	insertCols := append([]string{j.IDColumn}, valueCols...)
	sel := make([]string, 0, len(insertCols))
	sel = append(sel, "e.id")
	nonEmpty := make([]string, 0, len(valueCols))
	for _, c := range valueCols {
		sel = append(sel, "s."+pgIdent(c))
		nonEmpty = append(nonEmpty, "s."+pgIdent(c)+" IS NOT NULL")
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s AS s JOIN %s AS e ON %s WHERE (%s) ON CONFLICT (%s) DO NOTHING RETURNING (SELECT e2.cpf FROM %s AS e2 WHERE e2.id = %s)",
		pgIdent(ent.Name),
		strings.Join(mapIdent(insertCols), ", "),
		strings.Join(sel, ", "),
		pgIdent(stage),
		pgIdent(j.Table),
		strings.Join(joinConds, " AND "),
		strings.Join(nonEmpty, " OR "),
		strings.Join(mapIdent(ent.NaturalKey), ", "),
		pgIdent(j.Table),
		pgIdent(j.IDColumn),
	)
}

// valueColumns returns staged columns that are not part of the given key.
func valueColumns(staged, key []string) []string {
	ks := make(map[string]struct{}, len(key))
	for _, k := range key {
		ks[k] = struct{}{}
	}
	var out []string
	for _, c := range staged {
		if _, ok := ks[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}
