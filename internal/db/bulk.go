package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// InsertIgnore bulk-loads rows via a temp table and
// INSERT ... ON CONFLICT (keys) DO NOTHING. Returns the number of rows
// actually inserted; duplicates are silently dropped.
func InsertIgnore(ctx context.Context, pool Pool, table string, columns, conflictKeys []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 || len(conflictKeys) == 0 {
		return 0, eris.New("db: insert ignore: columns and conflict keys required")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: insert ignore: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tempTable := "_tmp_load_" + table

	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{tempTable}.Sanitize(),
		pgx.Identifier{table}.Sanitize(),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: insert ignore: create temp table for %s", table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: insert ignore: COPY into temp table for %s", table)
	}

	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO NOTHING",
		pgx.Identifier{table}.Sanitize(),
		quoteAndJoin(columns),
		quoteAndJoin(columns),
		pgx.Identifier{tempTable}.Sanitize(),
		quoteAndJoin(conflictKeys),
	)
	tag, err := tx.Exec(ctx, insertSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "db: insert ignore: merge into %s", table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: insert ignore: commit for %s", table)
	}
	return tag.RowsAffected(), nil
}

// BatchUpdate updates existing rows via a temp table and
// UPDATE ... FROM. Only the listed non-key columns are written. The whole
// batch commits or rolls back as a unit.
func BatchUpdate(ctx context.Context, pool Pool, table, keyColumn string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	if len(columns) == 0 {
		return eris.New("db: batch update: no columns specified")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "db: batch update: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tempTable := "_tmp_update_" + table
	allCols := append([]string{keyColumn}, columns...)

	// AS SELECT ... WITH NO DATA takes column types from the base table
	// without cloning its NOT NULL constraints; the COPY below supplies
	// only the key and update columns.
	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s ON COMMIT DROP AS SELECT %s FROM %s WITH NO DATA",
		pgx.Identifier{tempTable}.Sanitize(),
		quoteAndJoin(allCols),
		pgx.Identifier{table}.Sanitize(),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return eris.Wrapf(err, "db: batch update: create temp table for %s", table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, allCols, pgx.CopyFromRows(rows)); err != nil {
		return eris.Wrapf(err, "db: batch update: COPY into temp table for %s", table)
	}

	setClauses := make([]string, 0, len(columns))
	for _, col := range columns {
		q := pgx.Identifier{col}.Sanitize()
		setClauses = append(setClauses, fmt.Sprintf("%s = t.%s", q, q))
	}

	key := pgx.Identifier{keyColumn}.Sanitize()
	updateSQL := fmt.Sprintf(
		"UPDATE %s SET %s FROM %s t WHERE %s.%s = t.%s",
		pgx.Identifier{table}.Sanitize(),
		strings.Join(setClauses, ", "),
		pgx.Identifier{tempTable}.Sanitize(),
		pgx.Identifier{table}.Sanitize(),
		key, key,
	)
	if _, err := tx.Exec(ctx, updateSQL); err != nil {
		return eris.Wrapf(err, "db: batch update: update %s", table)
	}

	return eris.Wrapf(tx.Commit(ctx), "db: batch update: commit for %s", table)
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
