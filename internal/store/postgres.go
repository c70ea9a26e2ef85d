package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/db"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 20
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	lead_id         TEXT PRIMARY KEY,
	fio             TEXT NOT NULL,
	phone           TEXT,
	inn             TEXT,
	dob             TEXT,
	address         TEXT,
	source          TEXT NOT NULL,
	tags            TEXT,
	email           TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	debt_amount     DOUBLE PRECISION,
	debt_type       TEXT,
	creditor        TEXT,
	debt_count      INTEGER NOT NULL DEFAULT 0,
	has_property    BOOLEAN NOT NULL DEFAULT FALSE,
	has_court_order BOOLEAN NOT NULL DEFAULT FALSE,
	is_bankrupt     BOOLEAN NOT NULL DEFAULT FALSE,
	inn_active      BOOLEAN NOT NULL DEFAULT TRUE,
	score           DOUBLE PRECISION,
	is_target       BOOLEAN NOT NULL DEFAULT FALSE,
	reason_1        TEXT,
	reason_2        TEXT,
	reason_3        TEXT,
	group_name      TEXT,
	enriched_at     TIMESTAMPTZ,
	scored_at       TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS scoring_history (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	lead_id      TEXT NOT NULL REFERENCES leads(lead_id),
	score        DOUBLE PRECISION NOT NULL,
	group_name   TEXT NOT NULL,
	reason_1     TEXT,
	filters_used JSONB NOT NULL,
	scored_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS error_logs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	timestamp     TIMESTAMPTZ NOT NULL DEFAULT now(),
	source        TEXT NOT NULL,
	error_type    TEXT NOT NULL,
	error_message TEXT NOT NULL,
	lead_id       TEXT,
	retry_count   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_leads_unenriched ON leads(lead_id) WHERE debt_amount IS NULL;
CREATE INDEX IF NOT EXISTS idx_leads_unscored ON leads(lead_id) WHERE score IS NULL;
CREATE INDEX IF NOT EXISTS idx_leads_target ON leads(is_target, score DESC);
CREATE INDEX IF NOT EXISTS idx_history_lead_id ON scoring_history(lead_id);
CREATE INDEX IF NOT EXISTS idx_error_logs_timestamp ON error_logs(timestamp DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var leadInsertColumns = []string{
	"lead_id", "fio", "phone", "inn", "dob", "address", "source", "tags", "email", "created_at",
}

func (s *PostgresStore) InsertLeads(ctx context.Context, leads []model.Lead) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(leads))
	for _, l := range leads {
		createdAt := l.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		rows = append(rows, []any{
			l.ID, l.FIO, pgNullStr(l.Phone), pgNullStr(l.INN), pgNullStr(l.DOB), pgNullStr(l.Address),
			l.Source, pgNullStr(l.Tags), pgNullStr(l.Email), createdAt,
		})
	}

	n, err := db.InsertIgnore(ctx, s.pool, "leads", leadInsertColumns, []string{"lead_id"}, rows)
	return int(n), err
}

func (s *PostgresStore) CountUnenriched(ctx context.Context) (int, error) {
	return s.countWhere(ctx, "debt_amount IS NULL")
}

func (s *PostgresStore) SelectUnenriched(ctx context.Context, afterID string, limit int) ([]model.Lead, error) {
	return s.selectLeads(ctx,
		`WHERE debt_amount IS NULL AND lead_id > $1 ORDER BY lead_id LIMIT $2`, afterID, limit)
}

var enrichmentColumns = []string{
	"debt_amount", "debt_type", "creditor", "debt_count",
	"has_property", "has_court_order", "is_bankrupt", "inn_active", "enriched_at",
}

func (s *PostgresStore) UpdateEnrichment(ctx context.Context, leads []model.Lead) error {
	if len(leads) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, []any{
			l.ID, l.DebtAmountValue(), pgNullStr(l.DebtType), pgNullStr(l.Creditor), l.DebtCount,
			l.HasProperty, l.HasCourtOrder, l.IsBankrupt, l.INNActive, l.EnrichedAt,
		})
	}
	return db.BatchUpdate(ctx, s.pool, "leads", "lead_id", enrichmentColumns, rows)
}

func (s *PostgresStore) CountUnscored(ctx context.Context) (int, error) {
	return s.countWhere(ctx, "score IS NULL")
}

func (s *PostgresStore) SelectUnscored(ctx context.Context, afterID string, limit int) ([]model.Lead, error) {
	return s.selectLeads(ctx,
		`WHERE score IS NULL AND lead_id > $1 ORDER BY lead_id LIMIT $2`, afterID, limit)
}

// UpdateScores writes score fields and appends history in one transaction,
// so a batch either lands whole or not at all.
func (s *PostgresStore) UpdateScores(ctx context.Context, leads []model.Lead, history []model.ScoringHistory) error {
	if len(leads) == 0 && len(history) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin scoring tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if len(leads) > 0 {
		// Temp table carries only the copied columns; an image of the full
		// leads table would bring the NOT NULL constraints of columns the
		// COPY never supplies.
		if _, err := tx.Exec(ctx,
			`CREATE TEMP TABLE _tmp_update_leads ON COMMIT DROP AS
			 SELECT lead_id, score, is_target, reason_1, reason_2, reason_3, group_name, scored_at
			 FROM leads WITH NO DATA`,
		); err != nil {
			return eris.Wrap(err, "postgres: create scoring temp table")
		}

		cols := []string{"lead_id", "score", "is_target", "reason_1", "reason_2", "reason_3", "group_name", "scored_at"}
		rows := make([][]any, 0, len(leads))
		for _, l := range leads {
			if l.Score == nil {
				continue
			}
			rows = append(rows, []any{
				l.ID, *l.Score, l.IsTarget, pgNullStr(l.Reason1), pgNullStr(l.Reason2), pgNullStr(l.Reason3),
				pgNullStr(l.GroupName), l.ScoredAt,
			})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"_tmp_update_leads"}, cols, pgx.CopyFromRows(rows)); err != nil {
			return eris.Wrap(err, "postgres: COPY scores")
		}

		if _, err := tx.Exec(ctx,
			`UPDATE leads SET score = t.score, is_target = t.is_target, reason_1 = t.reason_1,
			 reason_2 = t.reason_2, reason_3 = t.reason_3, group_name = t.group_name, scored_at = t.scored_at
			 FROM _tmp_update_leads t WHERE leads.lead_id = t.lead_id`,
		); err != nil {
			return eris.Wrap(err, "postgres: apply scores")
		}
	}

	if len(history) > 0 {
		histCols := []string{"id", "lead_id", "score", "group_name", "reason_1", "filters_used", "scored_at"}
		histRows := make([][]any, 0, len(history))
		for _, h := range history {
			id := h.ID
			if id == "" {
				id = uuid.New().String()
			}
			histRows = append(histRows, []any{
				id, h.LeadID, h.Score, h.GroupName, pgNullStr(h.Reason1), h.FiltersUsed, h.ScoredAt,
			})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"scoring_history"}, histCols, pgx.CopyFromRows(histRows)); err != nil {
			return eris.Wrap(err, "postgres: COPY scoring history")
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit scoring")
}

func (s *PostgresStore) IterateTargets(ctx context.Context, fn func(model.Lead) error) error {
	rows, err := s.pool.Query(ctx,
		pgSelectLeadColumns+` FROM leads WHERE is_target ORDER BY score DESC`,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: select targets")
	}
	defer rows.Close()

	for rows.Next() {
		l, err := scanPgLead(rows)
		if err != nil {
			return err
		}
		if err := fn(*l); err != nil {
			return err
		}
	}
	return eris.Wrap(rows.Err(), "postgres: iterate targets")
}

func (s *PostgresStore) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	queries := []struct {
		where string
		dst   *int
	}{
		{"TRUE", &st.TotalLeads},
		{"debt_amount IS NOT NULL", &st.EnrichedLeads},
		{"score IS NOT NULL", &st.ScoredLeads},
		{"is_target", &st.TargetLeads},
	}
	for _, q := range queries {
		n, err := s.countWhere(ctx, q.where)
		if err != nil {
			return st, err
		}
		*q.dst = n
	}
	return st, nil
}

func (s *PostgresStore) AppendErrorLog(ctx context.Context, entry model.ErrorLog) error {
	id := entry.ID
	if id == "" {
		id = uuid.New().String()
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO error_logs (id, timestamp, source, error_type, error_message, lead_id, retry_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, ts, entry.Source, entry.ErrorType, entry.Message, pgNullStr(entry.LeadID), entry.RetryCount,
	)
	return eris.Wrap(err, "postgres: append error log")
}

func (s *PostgresStore) ListErrorLogs(ctx context.Context, limit int) ([]model.ErrorLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, timestamp, source, error_type, error_message, lead_id, retry_count
		 FROM error_logs ORDER BY timestamp DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list error logs")
	}
	defer rows.Close()

	var out []model.ErrorLog
	for rows.Next() {
		var e model.ErrorLog
		var leadID *string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Source, &e.ErrorType, &e.Message, &leadID, &e.RetryCount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan error log")
		}
		if leadID != nil {
			e.LeadID = *leadID
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate error logs")
}

// helpers

const pgSelectLeadColumns = `SELECT lead_id, fio, phone, inn, dob, address, source, tags, email, created_at,
	debt_amount, debt_type, creditor, debt_count, has_property, has_court_order, is_bankrupt, inn_active,
	score, is_target, reason_1, reason_2, reason_3, group_name, enriched_at, scored_at`

func (s *PostgresStore) selectLeads(ctx context.Context, clause string, args ...any) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx, pgSelectLeadColumns+` FROM leads `+clause, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: select leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanPgLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

func (s *PostgresStore) countWhere(ctx context.Context, where string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE `+where).Scan(&n)
	return n, eris.Wrapf(err, "postgres: count leads where %s", where)
}

func scanPgLead(rows pgx.Rows) (*model.Lead, error) {
	var l model.Lead
	var phone, inn, dob, address, tags, email *string
	var debtType, creditor, r1, r2, r3, group *string

	err := rows.Scan(
		&l.ID, &l.FIO, &phone, &inn, &dob, &address, &l.Source, &tags, &email, &l.CreatedAt,
		&l.DebtAmount, &debtType, &creditor, &l.DebtCount, &l.HasProperty, &l.HasCourtOrder,
		&l.IsBankrupt, &l.INNActive,
		&l.Score, &l.IsTarget, &r1, &r2, &r3, &group, &l.EnrichedAt, &l.ScoredAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan lead")
	}

	deref := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	deref(&l.Phone, phone)
	deref(&l.INN, inn)
	deref(&l.DOB, dob)
	deref(&l.Address, address)
	deref(&l.Tags, tags)
	deref(&l.Email, email)
	deref(&l.DebtType, debtType)
	deref(&l.Creditor, creditor)
	deref(&l.Reason1, r1)
	deref(&l.Reason2, r2)
	deref(&l.Reason3, r3)
	deref(&l.GroupName, group)
	return &l, nil
}

func pgNullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
