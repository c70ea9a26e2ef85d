package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	debt_amount     REAL,
	debt_type       TEXT,
	creditor        TEXT,
	debt_count      INTEGER NOT NULL DEFAULT 0,
	has_property    INTEGER NOT NULL DEFAULT 0,
	has_court_order INTEGER NOT NULL DEFAULT 0,
	is_bankrupt     INTEGER NOT NULL DEFAULT 0,
	inn_active      INTEGER NOT NULL DEFAULT 1,
	score           REAL,
	is_target       INTEGER NOT NULL DEFAULT 0,
	reason_1        TEXT,
	reason_2        TEXT,
	reason_3        TEXT,
	group_name      TEXT,
	enriched_at     DATETIME,
	scored_at       DATETIME
);

CREATE TABLE IF NOT EXISTS scoring_history (
	id           TEXT PRIMARY KEY,
	lead_id      TEXT NOT NULL REFERENCES leads(lead_id),
	score        REAL NOT NULL,
	group_name   TEXT NOT NULL,
	reason_1     TEXT,
	filters_used TEXT NOT NULL,
	scored_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS error_logs (
	id            TEXT PRIMARY KEY,
	timestamp     DATETIME NOT NULL DEFAULT (datetime('now')),
	source        TEXT NOT NULL,
	error_type    TEXT NOT NULL,
	error_message TEXT NOT NULL,
	lead_id       TEXT,
	retry_count   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_leads_debt_amount ON leads(debt_amount) WHERE debt_amount IS NULL;
CREATE INDEX IF NOT EXISTS idx_leads_score ON leads(score) WHERE score IS NULL;
CREATE INDEX IF NOT EXISTS idx_leads_target ON leads(is_target, score);
CREATE INDEX IF NOT EXISTS idx_history_lead_id ON scoring_history(lead_id);
CREATE INDEX IF NOT EXISTS idx_error_logs_timestamp ON error_logs(timestamp);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertLeads(ctx context.Context, leads []model.Lead) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO leads (lead_id, fio, phone, inn, dob, address, source, tags, email, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert leads")
	}
	defer stmt.Close() //nolint:errcheck

	inserted := 0
	for _, l := range leads {
		createdAt := l.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		res, err := stmt.ExecContext(ctx,
			l.ID, l.FIO, nullStr(l.Phone), nullStr(l.INN), nullStr(l.DOB), nullStr(l.Address),
			l.Source, nullStr(l.Tags), nullStr(l.Email), createdAt,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert lead %s", l.ID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert leads")
	}
	return inserted, nil
}

func (s *SQLiteStore) CountUnenriched(ctx context.Context) (int, error) {
	return s.countWhere(ctx, "debt_amount IS NULL")
}

func (s *SQLiteStore) SelectUnenriched(ctx context.Context, afterID string, limit int) ([]model.Lead, error) {
	return s.selectLeads(ctx,
		`WHERE debt_amount IS NULL AND lead_id > ? ORDER BY lead_id LIMIT ?`, afterID, limit)
}

func (s *SQLiteStore) UpdateEnrichment(ctx context.Context, leads []model.Lead) error {
	if len(leads) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin enrichment tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE leads SET debt_amount = ?, debt_type = ?, creditor = ?, debt_count = ?,
		 has_property = ?, has_court_order = ?, is_bankrupt = ?, inn_active = ?, enriched_at = ?
		 WHERE lead_id = ?`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare enrichment update")
	}
	defer stmt.Close() //nolint:errcheck

	for _, l := range leads {
		if _, err := stmt.ExecContext(ctx,
			l.DebtAmountValue(), nullStr(l.DebtType), nullStr(l.Creditor), l.DebtCount,
			boolInt(l.HasProperty), boolInt(l.HasCourtOrder), boolInt(l.IsBankrupt), boolInt(l.INNActive),
			l.EnrichedAt, l.ID,
		); err != nil {
			return eris.Wrapf(err, "sqlite: update enrichment for %s", l.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit enrichment")
}

func (s *SQLiteStore) CountUnscored(ctx context.Context) (int, error) {
	return s.countWhere(ctx, "score IS NULL")
}

func (s *SQLiteStore) SelectUnscored(ctx context.Context, afterID string, limit int) ([]model.Lead, error) {
	return s.selectLeads(ctx,
		`WHERE score IS NULL AND lead_id > ? ORDER BY lead_id LIMIT ?`, afterID, limit)
}

func (s *SQLiteStore) UpdateScores(ctx context.Context, leads []model.Lead, history []model.ScoringHistory) error {
	if len(leads) == 0 && len(history) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin scoring tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE leads SET score = ?, is_target = ?, reason_1 = ?, reason_2 = ?, reason_3 = ?,
		 group_name = ?, scored_at = ? WHERE lead_id = ?`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare score update")
	}
	defer stmt.Close() //nolint:errcheck

	for _, l := range leads {
		if l.Score == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			*l.Score, boolInt(l.IsTarget), nullStr(l.Reason1), nullStr(l.Reason2), nullStr(l.Reason3),
			nullStr(l.GroupName), l.ScoredAt, l.ID,
		); err != nil {
			return eris.Wrapf(err, "sqlite: update score for %s", l.ID)
		}
	}

	histStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scoring_history (id, lead_id, score, group_name, reason_1, filters_used, scored_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare history insert")
	}
	defer histStmt.Close() //nolint:errcheck

	for _, h := range history {
		id := h.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := histStmt.ExecContext(ctx,
			id, h.LeadID, h.Score, h.GroupName, nullStr(h.Reason1), h.FiltersUsed, h.ScoredAt,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert history for %s", h.LeadID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit scoring")
}

func (s *SQLiteStore) IterateTargets(ctx context.Context, fn func(model.Lead) error) error {
	rows, err := s.db.QueryContext(ctx, selectLeadColumns+` FROM leads WHERE is_target = 1 ORDER BY score DESC`)
	if err != nil {
		return eris.Wrap(err, "sqlite: select targets")
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return err
		}
		if err := fn(*l); err != nil {
			return err
		}
	}
	return eris.Wrap(rows.Err(), "sqlite: iterate targets")
}

func (s *SQLiteStore) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	queries := []struct {
		where string
		dst   *int
	}{
		{"1=1", &st.TotalLeads},
		{"debt_amount IS NOT NULL", &st.EnrichedLeads},
		{"score IS NOT NULL", &st.ScoredLeads},
		{"is_target = 1", &st.TargetLeads},
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

func (s *SQLiteStore) AppendErrorLog(ctx context.Context, entry model.ErrorLog) error {
	id := entry.ID
	if id == "" {
		id = uuid.New().String()
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO error_logs (id, timestamp, source, error_type, error_message, lead_id, retry_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, ts, entry.Source, entry.ErrorType, entry.Message, nullStr(entry.LeadID), entry.RetryCount,
	)
	return eris.Wrap(err, "sqlite: append error log")
}

func (s *SQLiteStore) ListErrorLogs(ctx context.Context, limit int) ([]model.ErrorLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, source, error_type, error_message, lead_id, retry_count
		 FROM error_logs ORDER BY timestamp DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list error logs")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ErrorLog
	for rows.Next() {
		var e model.ErrorLog
		var leadID sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Source, &e.ErrorType, &e.Message, &leadID, &e.RetryCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan error log")
		}
		e.LeadID = leadID.String
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate error logs")
}

// helpers

const selectLeadColumns = `SELECT lead_id, fio, phone, inn, dob, address, source, tags, email, created_at,
	debt_amount, debt_type, creditor, debt_count, has_property, has_court_order, is_bankrupt, inn_active,
	score, is_target, reason_1, reason_2, reason_3, group_name, enriched_at, scored_at`

func (s *SQLiteStore) selectLeads(ctx context.Context, clause string, args ...any) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx, selectLeadColumns+` FROM leads `+clause, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select leads")
	}
	defer rows.Close() //nolint:errcheck

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

func (s *SQLiteStore) countWhere(ctx context.Context, where string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads WHERE `+where).Scan(&n)
	return n, eris.Wrapf(err, "sqlite: count leads where %s", where)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var phone, inn, dob, address, tags, email sql.NullString
	var debtAmount, score sql.NullFloat64
	var debtType, creditor, r1, r2, r3, group sql.NullString
	var hasProp, hasCourt, bankrupt, innActive, isTarget int
	var enrichedAt, scoredAt sql.NullTime

	err := row.Scan(
		&l.ID, &l.FIO, &phone, &inn, &dob, &address, &l.Source, &tags, &email, &l.CreatedAt,
		&debtAmount, &debtType, &creditor, &l.DebtCount, &hasProp, &hasCourt, &bankrupt, &innActive,
		&score, &isTarget, &r1, &r2, &r3, &group, &enrichedAt, &scoredAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan lead")
	}

	l.Phone, l.INN, l.DOB, l.Address = phone.String, inn.String, dob.String, address.String
	l.Tags, l.Email = tags.String, email.String
	if debtAmount.Valid {
		l.DebtAmount = &debtAmount.Float64
	}
	l.DebtType, l.Creditor = debtType.String, creditor.String
	l.HasProperty, l.HasCourtOrder = hasProp != 0, hasCourt != 0
	l.IsBankrupt, l.INNActive = bankrupt != 0, innActive != 0
	if score.Valid {
		l.Score = &score.Float64
	}
	l.IsTarget = isTarget != 0
	l.Reason1, l.Reason2, l.Reason3, l.GroupName = r1.String, r2.String, r3.String, group.String
	if enrichedAt.Valid {
		l.EnrichedAt = &enrichedAt.Time
	}
	if scoredAt.Valid {
		l.ScoredAt = &scoredAt.Time
	}
	return &l, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
