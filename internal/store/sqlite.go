package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/showscout/showscout-cli/internal/model"
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
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scraping_sources (
	url             TEXT PRIMARY KEY,
	priority_score  INTEGER NOT NULL DEFAULT 50,
	last_success_at DATETIME,
	last_error_at   DATETIME,
	error_streak    INTEGER NOT NULL DEFAULT 0,
	enabled         INTEGER NOT NULL DEFAULT 1,
	claimed_at      DATETIME,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS pending_shows (
	id                 TEXT PRIMARY KEY,
	source_url         TEXT NOT NULL REFERENCES scraping_sources(url),
	raw_payload        TEXT NOT NULL,
	normalized_payload TEXT,
	geocoded_payload   TEXT,
	status             TEXT NOT NULL DEFAULT 'PENDING',
	quality            INTEGER NOT NULL DEFAULT 0,
	duplicate_of       TEXT,
	admin_notes        TEXT NOT NULL DEFAULT '',
	created_at         DATETIME NOT NULL,
	reviewed_at        DATETIME
);

CREATE TABLE IF NOT EXISTS admin_feedback (
	id         TEXT PRIMARY KEY,
	pending_id TEXT NOT NULL REFERENCES pending_shows(id),
	admin_id   TEXT NOT NULL,
	action     TEXT NOT NULL,
	tags       TEXT,
	free_text  TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS production_shows (
	id          TEXT PRIMARY KEY,
	pending_id  TEXT NOT NULL,
	natural_key TEXT NOT NULL UNIQUE,
	start_date  TEXT NOT NULL,
	payload     TEXT NOT NULL,
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sources_enabled_priority ON scraping_sources(enabled, priority_score DESC);
CREATE INDEX IF NOT EXISTS idx_pending_status ON pending_shows(status);
CREATE INDEX IF NOT EXISTS idx_pending_source_url ON pending_shows(source_url);
CREATE INDEX IF NOT EXISTS idx_feedback_pending_id ON admin_feedback(pending_id);
CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON admin_feedback(created_at);
CREATE INDEX IF NOT EXISTS idx_production_start_date ON production_shows(start_date);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Source registry

func (s *SQLiteStore) UpsertSource(ctx context.Context, url string, priority int) (*model.ScrapingSource, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scraping_sources (url, priority_score, enabled, created_at, updated_at)
		 VALUES (?, ?, 1, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET priority_score = excluded.priority_score, updated_at = excluded.updated_at`,
		url, model.ClampPriority(priority), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert source %s", url)
	}
	return s.GetSource(ctx, url)
}

func (s *SQLiteStore) GetSource(ctx context.Context, url string) (*model.ScrapingSource, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM scraping_sources WHERE url = ?`, url)
	return scanSource(row)
}

func (s *SQLiteStore) ListSources(ctx context.Context, filter SourceFilter) ([]model.ScrapingSource, error) {
	query := `SELECT ` + sourceColumns + ` FROM scraping_sources WHERE 1=1`
	var args []any
	if filter.Enabled != nil {
		query += ` AND enabled = ?`
		args = append(args, boolToInt(*filter.Enabled))
	}
	query += ` ORDER BY priority_score DESC, url ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sources")
	}
	defer rows.Close()

	var sources []model.ScrapingSource
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *src)
	}
	return sources, eris.Wrap(rows.Err(), "sqlite: list sources iterate")
}

func (s *SQLiteStore) SetSourceEnabled(ctx context.Context, url string, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scraping_sources SET enabled = ?, updated_at = ? WHERE url = ?`,
		boolToInt(enabled), time.Now().UTC(), url,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set source enabled %s", url)
	}
	return checkFound(res)
}

func (s *SQLiteStore) SetSourcePriority(ctx context.Context, url string, score int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scraping_sources SET priority_score = ?, updated_at = ? WHERE url = ?`,
		model.ClampPriority(score), time.Now().UTC(), url,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set source priority %s", url)
	}
	return checkFound(res)
}

// ClaimBatch selects the highest-priority enabled sources and stamps their
// claim inside one transaction, so concurrent schedulers never pick the same
// source. A claim older than claimTTL is treated as abandoned and reclaimable.
func (s *SQLiteStore) ClaimBatch(ctx context.Context, limit int, claimTTL time.Duration) ([]model.ScrapingSource, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin claim")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	cutoff := now.Add(-claimTTL)

	rows, err := tx.QueryContext(ctx,
		`SELECT `+sourceColumns+` FROM scraping_sources
		 WHERE enabled = 1 AND (claimed_at IS NULL OR claimed_at <= ?)
		 ORDER BY priority_score DESC, last_success_at ASC NULLS FIRST
		 LIMIT ?`,
		cutoff, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: claim select")
	}

	var claimed []model.ScrapingSource
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		claimed = append(claimed, *src)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, eris.Wrap(err, "sqlite: claim iterate")
	}
	rows.Close()

	for i := range claimed {
		if _, err := tx.ExecContext(ctx,
			`UPDATE scraping_sources SET claimed_at = ?, updated_at = ? WHERE url = ?`,
			now, now, claimed[i].URL,
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: stamp claim %s", claimed[i].URL)
		}
		claimed[i].ClaimedAt = &now
	}

	return claimed, eris.Wrap(tx.Commit(), "sqlite: commit claim")
}

// RecordOutcome updates source health after a scrape attempt. A success resets
// the error streak; a failure extends it and disables the source once the
// streak reaches disableStreak. Either way the claim is released.
func (s *SQLiteStore) RecordOutcome(ctx context.Context, url string, success bool, disableStreak int) (*model.ScrapingSource, error) {
	now := time.Now().UTC()
	var res sql.Result
	var err error
	if success {
		res, err = s.db.ExecContext(ctx,
			`UPDATE scraping_sources
			 SET last_success_at = ?, error_streak = 0, claimed_at = NULL, updated_at = ?
			 WHERE url = ?`,
			now, now, url,
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE scraping_sources
			 SET last_error_at = ?,
			     error_streak = error_streak + 1,
			     enabled = CASE WHEN error_streak + 1 >= ? THEN 0 ELSE enabled END,
			     claimed_at = NULL,
			     updated_at = ?
			 WHERE url = ?`,
			now, disableStreak, now, url,
		)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: record outcome %s", url)
	}
	if err := checkFound(res); err != nil {
		return nil, err
	}
	return s.GetSource(ctx, url)
}

// Staged candidates

func (s *SQLiteStore) InsertPendingBatch(ctx context.Context, sourceURL string, raws []model.RawShow) ([]model.PendingShow, error) {
	if len(raws) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin insert pending")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	out := make([]model.PendingShow, 0, len(raws))
	for _, raw := range raws {
		rawJSON, err := json.Marshal(raw)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal raw payload")
		}
		p := model.PendingShow{
			ID:         uuid.New().String(),
			SourceURL:  sourceURL,
			RawPayload: rawJSON,
			Status:     model.StatusPending,
			CreatedAt:  now,
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pending_shows (id, source_url, raw_payload, status, created_at) VALUES (?, ?, ?, ?, ?)`,
			p.ID, p.SourceURL, string(rawJSON), string(p.Status), now,
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert pending for %s", sourceURL)
		}
		out = append(out, p)
	}

	return out, eris.Wrap(tx.Commit(), "sqlite: commit insert pending")
}

func (s *SQLiteStore) GetPending(ctx context.Context, id string) (*model.PendingShow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pendingColumns+` FROM pending_shows WHERE id = ?`, id)
	return scanPending(row)
}

func (s *SQLiteStore) ListPending(ctx context.Context, filter PendingFilter) ([]model.PendingShow, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_shows WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.SourceURL != "" {
		query += ` AND source_url = ?`
		args = append(args, filter.SourceURL)
	}
	if filter.MinQuality > 0 {
		query += ` AND quality >= ?`
		args = append(args, filter.MinQuality)
	}
	query += ` ORDER BY created_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pending")
	}
	defer rows.Close()

	var shows []model.PendingShow
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		shows = append(shows, *p)
	}
	return shows, eris.Wrap(rows.Err(), "sqlite: list pending iterate")
}

func (s *SQLiteStore) UpdateNormalized(ctx context.Context, id string, n *model.NormalizedShow) error {
	nJSON, err := json.Marshal(n)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal normalized payload")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE pending_shows SET normalized_payload = ?, quality = ? WHERE id = ?`,
		string(nJSON), model.QualityScore(n), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update normalized %s", id)
	}
	return checkFound(res)
}

func (s *SQLiteStore) UpdateGeocoded(ctx context.Context, id string, g *model.GeocodedShow) error {
	gJSON, err := json.Marshal(g)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal geocoded payload")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE pending_shows SET geocoded_payload = ? WHERE id = ?`,
		string(gJSON), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update geocoded %s", id)
	}
	return checkFound(res)
}

// TransitionStatus moves a candidate from one status to another with
// compare-and-set semantics. A lost race or wrong current status returns
// ErrConflict, never a silent overwrite.
func (s *SQLiteStore) TransitionStatus(ctx context.Context, id string, from, to model.PendingStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pending_shows SET status = ? WHERE id = ? AND status = ?`,
		string(to), id, string(from),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: transition %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n > 0 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM pending_shows WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: transition check %s", id)
	}
	return eris.Wrapf(ErrConflict, "pending %s is %s, expected %s", id, current, from)
}

func (s *SQLiteStore) MarkDuplicate(ctx context.Context, id, ref string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pending_shows SET status = ?, duplicate_of = ? WHERE id = ? AND status = ?`,
		string(model.StatusDuplicate), ref, id, string(model.StatusPending),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark duplicate %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrConflict, "pending %s not in PENDING", id)
	}
	return nil
}

// DedupWindow returns staged and published candidates whose start date falls
// within windowDays of the given date.
func (s *SQLiteStore) DedupWindow(ctx context.Context, startDate string, windowDays int) ([]model.PendingShow, []model.ProductionShow, error) {
	center, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, nil, nil
	}
	lo := center.AddDate(0, 0, -windowDays).Format("2006-01-02")
	hi := center.AddDate(0, 0, windowDays).Format("2006-01-02")

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pendingColumns+` FROM pending_shows
		 WHERE status IN (?, ?) AND json_extract(normalized_payload, '$.start_date') BETWEEN ? AND ?`,
		string(model.StatusPending), string(model.StatusDuplicate), lo, hi,
	)
	if err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: dedup pending window")
	}
	defer rows.Close()

	var pending []model.PendingShow
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, nil, err
		}
		pending = append(pending, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: dedup pending iterate")
	}

	prodRows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM production_shows WHERE start_date BETWEEN ? AND ?`,
		lo, hi,
	)
	if err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: dedup production window")
	}
	defer prodRows.Close()

	var production []model.ProductionShow
	for prodRows.Next() {
		var payload string
		if err := prodRows.Scan(&payload); err != nil {
			return nil, nil, eris.Wrap(err, "sqlite: scan production payload")
		}
		var prod model.ProductionShow
		if err := json.Unmarshal([]byte(payload), &prod); err != nil {
			return nil, nil, eris.Wrap(err, "sqlite: unmarshal production payload")
		}
		production = append(production, prod)
	}
	return pending, production, eris.Wrap(prodRows.Err(), "sqlite: dedup production iterate")
}

// Review

func (s *SQLiteStore) PublishApproved(ctx context.Context, pendingID string, fb model.AdminFeedback) (*model.ProductionShow, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin publish")
	}
	defer tx.Rollback() //nolint:errcheck

	prod, err := s.publishTx(ctx, tx, pendingID, fb)
	if err != nil {
		return nil, err
	}
	return prod, eris.Wrap(tx.Commit(), "sqlite: commit publish")
}

func (s *SQLiteStore) RejectPending(ctx context.Context, pendingID string, fb model.AdminFeedback) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin reject")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.rejectTx(ctx, tx, pendingID, fb); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit reject")
}

func (s *SQLiteStore) EditPending(ctx context.Context, pendingID string, n *model.NormalizedShow, fb model.AdminFeedback, thenApprove bool) (*model.ProductionShow, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin edit")
	}
	defer tx.Rollback() //nolint:errcheck

	prod, err := s.editTx(ctx, tx, pendingID, n, fb, thenApprove)
	if err != nil {
		return nil, err
	}
	return prod, eris.Wrap(tx.Commit(), "sqlite: commit edit")
}

// BatchReview applies every op in one transaction. Any failure rolls the
// whole batch back.
func (s *SQLiteStore) BatchReview(ctx context.Context, ops []ReviewOp) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin batch review")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, op := range ops {
		switch op.Action {
		case model.ActionApprove:
			_, err = s.publishTx(ctx, tx, op.PendingID, op.Feedback)
		case model.ActionReject:
			err = s.rejectTx(ctx, tx, op.PendingID, op.Feedback)
		case model.ActionEdit:
			_, err = s.editTx(ctx, tx, op.PendingID, op.Normalized, op.Feedback, op.ThenApprove)
		default:
			err = eris.Errorf("sqlite: unknown review action %q", op.Action)
		}
		if err != nil {
			return eris.Wrapf(err, "batch review op %s", op.PendingID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit batch review")
}

func (s *SQLiteStore) ListFeedback(ctx context.Context, pendingID string) ([]model.AdminFeedback, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pending_id, admin_id, action, tags, free_text, created_at
		 FROM admin_feedback WHERE pending_id = ? ORDER BY created_at ASC`,
		pendingID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list feedback")
	}
	defer rows.Close()

	var fbs []model.AdminFeedback
	for rows.Next() {
		var fb model.AdminFeedback
		var tagsJSON sql.NullString
		if err := rows.Scan(&fb.ID, &fb.PendingID, &fb.AdminID, &fb.Action, &tagsJSON, &fb.FreeText, &fb.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan feedback")
		}
		if tagsJSON.Valid && tagsJSON.String != "" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &fb.Tags); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal feedback tags")
			}
		}
		fbs = append(fbs, fb)
	}
	return fbs, eris.Wrap(rows.Err(), "sqlite: list feedback iterate")
}

func (s *SQLiteStore) FeedbackCountsBySource(ctx context.Context, since time.Time) (map[string]model.FeedbackCounts, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.source_url,
		        SUM(CASE WHEN f.action = 'approve' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN f.action = 'reject' THEN 1 ELSE 0 END)
		 FROM admin_feedback f
		 JOIN pending_shows p ON p.id = f.pending_id
		 WHERE f.created_at >= ?
		 GROUP BY p.source_url`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: feedback counts")
	}
	defer rows.Close()

	counts := make(map[string]model.FeedbackCounts)
	for rows.Next() {
		var url string
		var c model.FeedbackCounts
		if err := rows.Scan(&url, &c.Approved, &c.Rejected); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan feedback counts")
		}
		counts[url] = c
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: feedback counts iterate")
}

func (s *SQLiteStore) GetProduction(ctx context.Context, id string) (*model.ProductionShow, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM production_shows WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get production %s", id)
	}
	var prod model.ProductionShow
	if err := json.Unmarshal([]byte(payload), &prod); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal production")
	}
	return &prod, nil
}

// transaction bodies shared by single and batch review ops

func (s *SQLiteStore) publishTx(ctx context.Context, tx *sql.Tx, pendingID string, fb model.AdminFeedback) (*model.ProductionShow, error) {
	p, err := getPendingTx(ctx, tx, pendingID)
	if err != nil {
		return nil, err
	}
	if p.Status.Terminal() {
		return nil, eris.Wrapf(ErrConflict, "pending %s already %s", pendingID, p.Status)
	}

	now := time.Now().UTC()
	prod, err := buildProduction(uuid.New().String(), p, now)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(prod)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal production")
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO production_shows (id, pending_id, natural_key, start_date, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		prod.ID, prod.PendingID, prod.NaturalKey(), prod.StartDate, string(payload), now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, eris.Wrapf(ErrPublishConflict, "natural key %s", prod.NaturalKey())
		}
		return nil, eris.Wrap(err, "sqlite: insert production")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE pending_shows SET status = ?, reviewed_at = ? WHERE id = ? AND status = ?`,
		string(model.StatusApproved), now, pendingID, string(p.Status),
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: approve pending %s", pendingID)
	}

	if err := insertFeedbackTx(ctx, tx, fb, pendingID, model.ActionApprove, now); err != nil {
		return nil, err
	}
	return prod, nil
}

func (s *SQLiteStore) rejectTx(ctx context.Context, tx *sql.Tx, pendingID string, fb model.AdminFeedback) error {
	p, err := getPendingTx(ctx, tx, pendingID)
	if err != nil {
		return err
	}
	if p.Status.Terminal() {
		return eris.Wrapf(ErrConflict, "pending %s already %s", pendingID, p.Status)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE pending_shows SET status = ?, reviewed_at = ? WHERE id = ? AND status = ?`,
		string(model.StatusRejected), now, pendingID, string(p.Status),
	); err != nil {
		return eris.Wrapf(err, "sqlite: reject pending %s", pendingID)
	}
	return insertFeedbackTx(ctx, tx, fb, pendingID, model.ActionReject, now)
}

// editTx replaces the normalized payload and reopens the row. Edits are the
// only path out of a terminal status; the row keeps its id so the audit trail
// stays attached.
func (s *SQLiteStore) editTx(ctx context.Context, tx *sql.Tx, pendingID string, n *model.NormalizedShow, fb model.AdminFeedback, thenApprove bool) (*model.ProductionShow, error) {
	if n == nil {
		return nil, eris.New("sqlite: edit requires a normalized payload")
	}
	if _, err := getPendingTx(ctx, tx, pendingID); err != nil {
		return nil, err
	}

	nJSON, err := json.Marshal(n)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal edited payload")
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE pending_shows
		 SET normalized_payload = ?, quality = ?, status = ?, duplicate_of = NULL, reviewed_at = NULL
		 WHERE id = ?`,
		string(nJSON), model.QualityScore(n), string(model.StatusPending), pendingID,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: edit pending %s", pendingID)
	}

	if err := insertFeedbackTx(ctx, tx, fb, pendingID, model.ActionEdit, now); err != nil {
		return nil, err
	}

	if !thenApprove {
		return nil, nil
	}
	approveFb := fb
	approveFb.ID = ""
	return s.publishTx(ctx, tx, pendingID, approveFb)
}

// helpers

const sourceColumns = `url, priority_score, last_success_at, last_error_at, error_streak, enabled, claimed_at, created_at, updated_at`

const pendingColumns = `id, source_url, raw_payload, normalized_payload, geocoded_payload, status, duplicate_of, admin_notes, created_at, reviewed_at`

type scannable interface {
	Scan(dest ...any) error
}

func scanSource(row scannable) (*model.ScrapingSource, error) {
	var src model.ScrapingSource
	var lastSuccess, lastError, claimed sql.NullTime

	err := row.Scan(&src.URL, &src.PriorityScore, &lastSuccess, &lastError,
		&src.ErrorStreak, &src.Enabled, &claimed, &src.CreatedAt, &src.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan source")
	}

	if lastSuccess.Valid {
		src.LastSuccessAt = &lastSuccess.Time
	}
	if lastError.Valid {
		src.LastErrorAt = &lastError.Time
	}
	if claimed.Valid {
		src.ClaimedAt = &claimed.Time
	}
	return &src, nil
}

func scanPending(row scannable) (*model.PendingShow, error) {
	var p model.PendingShow
	var rawJSON string
	var normJSON, geoJSON, dupOf sql.NullString
	var reviewedAt sql.NullTime

	err := row.Scan(&p.ID, &p.SourceURL, &rawJSON, &normJSON, &geoJSON,
		&p.Status, &dupOf, &p.AdminNotes, &p.CreatedAt, &reviewedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan pending")
	}

	p.RawPayload = []byte(rawJSON)
	if normJSON.Valid && normJSON.String != "" {
		p.Normalized = &model.NormalizedShow{}
		if err := json.Unmarshal([]byte(normJSON.String), p.Normalized); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal normalized payload")
		}
	}
	if geoJSON.Valid && geoJSON.String != "" {
		p.Geocoded = &model.GeocodedShow{}
		if err := json.Unmarshal([]byte(geoJSON.String), p.Geocoded); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal geocoded payload")
		}
	}
	if dupOf.Valid {
		p.DuplicateOf = dupOf.String
	}
	if reviewedAt.Valid {
		p.ReviewedAt = &reviewedAt.Time
	}
	return &p, nil
}

func getPendingTx(ctx context.Context, tx *sql.Tx, id string) (*model.PendingShow, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+pendingColumns+` FROM pending_shows WHERE id = ?`, id)
	return scanPending(row)
}

func insertFeedbackTx(ctx context.Context, tx *sql.Tx, fb model.AdminFeedback, pendingID string, action model.FeedbackAction, now time.Time) error {
	id := fb.ID
	if id == "" {
		id = uuid.New().String()
	}
	var tagsJSON any
	if len(fb.Tags) > 0 {
		b, err := json.Marshal(fb.Tags)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal feedback tags")
		}
		tagsJSON = string(b)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO admin_feedback (id, pending_id, admin_id, action, tags, free_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, pendingID, fb.AdminID, string(action), tagsJSON, fb.FreeText, now,
	)
	return eris.Wrapf(err, "sqlite: insert feedback for %s", pendingID)
}

func checkFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
