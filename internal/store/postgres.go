package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/showscout/showscout-cli/internal/db"
	"github.com/showscout/showscout-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"get_source":        `SELECT url, priority_score, last_success_at, last_error_at, error_streak, enabled, claimed_at, created_at, updated_at FROM scraping_sources WHERE url = $1`,
	"get_pending":       `SELECT id, source_url, raw_payload, normalized_payload, geocoded_payload, status, duplicate_of, admin_notes, created_at, reviewed_at FROM pending_shows WHERE id = $1`,
	"update_normalized": `UPDATE pending_shows SET normalized_payload = $1, quality = $2 WHERE id = $3`,
	"update_geocoded":   `UPDATE pending_shows SET geocoded_payload = $1 WHERE id = $2`,
	"transition_status": `UPDATE pending_shows SET status = $1 WHERE id = $2 AND status = $3`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scraping_sources (
	url             TEXT PRIMARY KEY,
	priority_score  INTEGER NOT NULL DEFAULT 50,
	last_success_at TIMESTAMPTZ,
	last_error_at   TIMESTAMPTZ,
	error_streak    INTEGER NOT NULL DEFAULT 0,
	enabled         BOOLEAN NOT NULL DEFAULT true,
	claimed_at      TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pending_shows (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source_url         TEXT NOT NULL REFERENCES scraping_sources(url),
	raw_payload        JSONB NOT NULL,
	normalized_payload JSONB,
	geocoded_payload   JSONB,
	status             TEXT NOT NULL DEFAULT 'PENDING',
	quality            INTEGER NOT NULL DEFAULT 0,
	duplicate_of       TEXT,
	admin_notes        TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	reviewed_at        TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS admin_feedback (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	pending_id TEXT NOT NULL REFERENCES pending_shows(id),
	admin_id   TEXT NOT NULL,
	action     TEXT NOT NULL,
	tags       JSONB,
	free_text  TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS production_shows (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	pending_id  TEXT NOT NULL,
	natural_key TEXT NOT NULL UNIQUE,
	start_date  TEXT NOT NULL,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sources_enabled_priority ON scraping_sources(enabled, priority_score DESC);
CREATE INDEX IF NOT EXISTS idx_pending_status ON pending_shows(status);
CREATE INDEX IF NOT EXISTS idx_pending_source_url ON pending_shows(source_url);
CREATE INDEX IF NOT EXISTS idx_pending_start_date ON pending_shows((normalized_payload->>'start_date'));
CREATE INDEX IF NOT EXISTS idx_feedback_pending_id ON admin_feedback(pending_id);
CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON admin_feedback(created_at);
CREATE INDEX IF NOT EXISTS idx_production_start_date ON production_shows(start_date);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Source registry

func (s *PostgresStore) UpsertSource(ctx context.Context, url string, priority int) (*model.ScrapingSource, error) {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scraping_sources (url, priority_score, enabled, created_at, updated_at)
		 VALUES ($1, $2, true, $3, $3)
		 ON CONFLICT (url) DO UPDATE SET priority_score = EXCLUDED.priority_score, updated_at = EXCLUDED.updated_at`,
		url, model.ClampPriority(priority), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert source %s", url)
	}
	return s.GetSource(ctx, url)
}

func (s *PostgresStore) GetSource(ctx context.Context, url string) (*model.ScrapingSource, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT url, priority_score, last_success_at, last_error_at, error_streak, enabled, claimed_at, created_at, updated_at
		 FROM scraping_sources WHERE url = $1`, url)
	return scanSourcePg(row)
}

func (s *PostgresStore) ListSources(ctx context.Context, filter SourceFilter) ([]model.ScrapingSource, error) {
	query := `SELECT url, priority_score, last_success_at, last_error_at, error_streak, enabled, claimed_at, created_at, updated_at
	          FROM scraping_sources WHERE 1=1`
	var args []any
	if filter.Enabled != nil {
		args = append(args, *filter.Enabled)
		query += ` AND enabled = $1`
	}
	query += ` ORDER BY priority_score DESC, url ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sources")
	}
	defer rows.Close()

	var sources []model.ScrapingSource
	for rows.Next() {
		src, err := scanSourcePg(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *src)
	}
	return sources, eris.Wrap(rows.Err(), "postgres: list sources iterate")
}

func (s *PostgresStore) SetSourceEnabled(ctx context.Context, url string, enabled bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scraping_sources SET enabled = $1, updated_at = now() WHERE url = $2`,
		enabled, url,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set source enabled %s", url)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetSourcePriority(ctx context.Context, url string, score int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scraping_sources SET priority_score = $1, updated_at = now() WHERE url = $2`,
		model.ClampPriority(score), url,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set source priority %s", url)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimBatch uses FOR UPDATE SKIP LOCKED so concurrent schedulers split the
// registry instead of fighting over the same rows.
func (s *PostgresStore) ClaimBatch(ctx context.Context, limit int, claimTTL time.Duration) ([]model.ScrapingSource, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin claim")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	cutoff := now.Add(-claimTTL)

	rows, err := tx.Query(ctx,
		`SELECT url, priority_score, last_success_at, last_error_at, error_streak, enabled, claimed_at, created_at, updated_at
		 FROM scraping_sources
		 WHERE enabled AND (claimed_at IS NULL OR claimed_at <= $1)
		 ORDER BY priority_score DESC, last_success_at ASC NULLS FIRST
		 LIMIT $2
		 FOR UPDATE SKIP LOCKED`,
		cutoff, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: claim select")
	}

	var claimed []model.ScrapingSource
	for rows.Next() {
		src, err := scanSourcePg(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		claimed = append(claimed, *src)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, eris.Wrap(err, "postgres: claim iterate")
	}
	rows.Close()

	for i := range claimed {
		if _, err := tx.Exec(ctx,
			`UPDATE scraping_sources SET claimed_at = $1, updated_at = $1 WHERE url = $2`,
			now, claimed[i].URL,
		); err != nil {
			return nil, eris.Wrapf(err, "postgres: stamp claim %s", claimed[i].URL)
		}
		claimed[i].ClaimedAt = &now
	}

	return claimed, eris.Wrap(tx.Commit(ctx), "postgres: commit claim")
}

func (s *PostgresStore) RecordOutcome(ctx context.Context, url string, success bool, disableStreak int) (*model.ScrapingSource, error) {
	var tag pgconn.CommandTag
	var err error
	if success {
		tag, err = s.pool.Exec(ctx,
			`UPDATE scraping_sources
			 SET last_success_at = now(), error_streak = 0, claimed_at = NULL, updated_at = now()
			 WHERE url = $1`,
			url,
		)
	} else {
		tag, err = s.pool.Exec(ctx,
			`UPDATE scraping_sources
			 SET last_error_at = now(),
			     error_streak = error_streak + 1,
			     enabled = CASE WHEN error_streak + 1 >= $1 THEN false ELSE enabled END,
			     claimed_at = NULL,
			     updated_at = now()
			 WHERE url = $2`,
			disableStreak, url,
		)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: record outcome %s", url)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetSource(ctx, url)
}

// Staged candidates

// InsertPendingBatch stages extracted candidates with a single COPY.
func (s *PostgresStore) InsertPendingBatch(ctx context.Context, sourceURL string, raws []model.RawShow) ([]model.PendingShow, error) {
	if len(raws) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	out := make([]model.PendingShow, 0, len(raws))
	copyRows := make([][]any, 0, len(raws))
	for _, raw := range raws {
		rawJSON, err := json.Marshal(raw)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal raw payload")
		}
		p := model.PendingShow{
			ID:         uuid.New().String(),
			SourceURL:  sourceURL,
			RawPayload: rawJSON,
			Status:     model.StatusPending,
			CreatedAt:  now,
		}
		out = append(out, p)
		copyRows = append(copyRows, []any{p.ID, sourceURL, string(rawJSON), string(p.Status), now})
	}

	_, err := db.CopyFrom(ctx, s.pool, "pending_shows",
		[]string{"id", "source_url", "raw_payload", "status", "created_at"}, copyRows)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert pending for %s", sourceURL)
	}
	return out, nil
}

func (s *PostgresStore) GetPending(ctx context.Context, id string) (*model.PendingShow, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source_url, raw_payload, normalized_payload, geocoded_payload, status, duplicate_of, admin_notes, created_at, reviewed_at
		 FROM pending_shows WHERE id = $1`, id)
	return scanPendingPg(row)
}

func (s *PostgresStore) ListPending(ctx context.Context, filter PendingFilter) ([]model.PendingShow, error) {
	query := `SELECT id, source_url, raw_payload, normalized_payload, geocoded_payload, status, duplicate_of, admin_notes, created_at, reviewed_at
	          FROM pending_shows WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + itoa(len(args))
	}
	if filter.SourceURL != "" {
		args = append(args, filter.SourceURL)
		query += ` AND source_url = $` + itoa(len(args))
	}
	if filter.MinQuality > 0 {
		args = append(args, filter.MinQuality)
		query += ` AND quality >= $` + itoa(len(args))
	}
	query += ` ORDER BY created_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + itoa(len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pending")
	}
	defer rows.Close()

	var shows []model.PendingShow
	for rows.Next() {
		p, err := scanPendingPg(rows)
		if err != nil {
			return nil, err
		}
		shows = append(shows, *p)
	}
	return shows, eris.Wrap(rows.Err(), "postgres: list pending iterate")
}

func (s *PostgresStore) UpdateNormalized(ctx context.Context, id string, n *model.NormalizedShow) error {
	nJSON, err := json.Marshal(n)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal normalized payload")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE pending_shows SET normalized_payload = $1, quality = $2 WHERE id = $3`,
		string(nJSON), model.QualityScore(n), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update normalized %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateGeocoded(ctx context.Context, id string, g *model.GeocodedShow) error {
	gJSON, err := json.Marshal(g)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal geocoded payload")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE pending_shows SET geocoded_payload = $1 WHERE id = $2`,
		string(gJSON), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update geocoded %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) TransitionStatus(ctx context.Context, id string, from, to model.PendingStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pending_shows SET status = $1 WHERE id = $2 AND status = $3`,
		string(to), id, string(from),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: transition %s", id)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	err = s.pool.QueryRow(ctx, `SELECT status FROM pending_shows WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: transition check %s", id)
	}
	return eris.Wrapf(ErrConflict, "pending %s is %s, expected %s", id, current, from)
}

func (s *PostgresStore) MarkDuplicate(ctx context.Context, id, ref string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pending_shows SET status = $1, duplicate_of = $2 WHERE id = $3 AND status = $4`,
		string(model.StatusDuplicate), ref, id, string(model.StatusPending),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark duplicate %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrConflict, "pending %s not in PENDING", id)
	}
	return nil
}

func (s *PostgresStore) DedupWindow(ctx context.Context, startDate string, windowDays int) ([]model.PendingShow, []model.ProductionShow, error) {
	center, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, nil, nil
	}
	lo := center.AddDate(0, 0, -windowDays).Format("2006-01-02")
	hi := center.AddDate(0, 0, windowDays).Format("2006-01-02")

	rows, err := s.pool.Query(ctx,
		`SELECT id, source_url, raw_payload, normalized_payload, geocoded_payload, status, duplicate_of, admin_notes, created_at, reviewed_at
		 FROM pending_shows
		 WHERE status IN ($1, $2) AND normalized_payload->>'start_date' BETWEEN $3 AND $4`,
		string(model.StatusPending), string(model.StatusDuplicate), lo, hi,
	)
	if err != nil {
		return nil, nil, eris.Wrap(err, "postgres: dedup pending window")
	}
	defer rows.Close()

	var pending []model.PendingShow
	for rows.Next() {
		p, err := scanPendingPg(rows)
		if err != nil {
			return nil, nil, err
		}
		pending = append(pending, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, eris.Wrap(err, "postgres: dedup pending iterate")
	}

	prodRows, err := s.pool.Query(ctx,
		`SELECT payload FROM production_shows WHERE start_date BETWEEN $1 AND $2`,
		lo, hi,
	)
	if err != nil {
		return nil, nil, eris.Wrap(err, "postgres: dedup production window")
	}
	defer prodRows.Close()

	var production []model.ProductionShow
	for prodRows.Next() {
		var payload []byte
		if err := prodRows.Scan(&payload); err != nil {
			return nil, nil, eris.Wrap(err, "postgres: scan production payload")
		}
		var prod model.ProductionShow
		if err := json.Unmarshal(payload, &prod); err != nil {
			return nil, nil, eris.Wrap(err, "postgres: unmarshal production payload")
		}
		production = append(production, prod)
	}
	return pending, production, eris.Wrap(prodRows.Err(), "postgres: dedup production iterate")
}

// Review

func (s *PostgresStore) PublishApproved(ctx context.Context, pendingID string, fb model.AdminFeedback) (*model.ProductionShow, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin publish")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	prod, err := s.publishTxPg(ctx, tx, pendingID, fb)
	if err != nil {
		return nil, err
	}
	return prod, eris.Wrap(tx.Commit(ctx), "postgres: commit publish")
}

func (s *PostgresStore) RejectPending(ctx context.Context, pendingID string, fb model.AdminFeedback) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin reject")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := s.rejectTxPg(ctx, tx, pendingID, fb); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit reject")
}

func (s *PostgresStore) EditPending(ctx context.Context, pendingID string, n *model.NormalizedShow, fb model.AdminFeedback, thenApprove bool) (*model.ProductionShow, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin edit")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	prod, err := s.editTxPg(ctx, tx, pendingID, n, fb, thenApprove)
	if err != nil {
		return nil, err
	}
	return prod, eris.Wrap(tx.Commit(ctx), "postgres: commit edit")
}

func (s *PostgresStore) BatchReview(ctx context.Context, ops []ReviewOp) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin batch review")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, op := range ops {
		switch op.Action {
		case model.ActionApprove:
			_, err = s.publishTxPg(ctx, tx, op.PendingID, op.Feedback)
		case model.ActionReject:
			err = s.rejectTxPg(ctx, tx, op.PendingID, op.Feedback)
		case model.ActionEdit:
			_, err = s.editTxPg(ctx, tx, op.PendingID, op.Normalized, op.Feedback, op.ThenApprove)
		default:
			err = eris.Errorf("postgres: unknown review action %q", op.Action)
		}
		if err != nil {
			return eris.Wrapf(err, "batch review op %s", op.PendingID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit batch review")
}

func (s *PostgresStore) ListFeedback(ctx context.Context, pendingID string) ([]model.AdminFeedback, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, pending_id, admin_id, action, tags, free_text, created_at
		 FROM admin_feedback WHERE pending_id = $1 ORDER BY created_at ASC`,
		pendingID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list feedback")
	}
	defer rows.Close()

	var fbs []model.AdminFeedback
	for rows.Next() {
		var fb model.AdminFeedback
		var tagsJSON []byte
		if err := rows.Scan(&fb.ID, &fb.PendingID, &fb.AdminID, &fb.Action, &tagsJSON, &fb.FreeText, &fb.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan feedback")
		}
		if len(tagsJSON) > 0 {
			if err := json.Unmarshal(tagsJSON, &fb.Tags); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal feedback tags")
			}
		}
		fbs = append(fbs, fb)
	}
	return fbs, eris.Wrap(rows.Err(), "postgres: list feedback iterate")
}

func (s *PostgresStore) FeedbackCountsBySource(ctx context.Context, since time.Time) (map[string]model.FeedbackCounts, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT p.source_url,
		        COUNT(*) FILTER (WHERE f.action = 'approve'),
		        COUNT(*) FILTER (WHERE f.action = 'reject')
		 FROM admin_feedback f
		 JOIN pending_shows p ON p.id = f.pending_id
		 WHERE f.created_at >= $1
		 GROUP BY p.source_url`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: feedback counts")
	}
	defer rows.Close()

	counts := make(map[string]model.FeedbackCounts)
	for rows.Next() {
		var url string
		var c model.FeedbackCounts
		if err := rows.Scan(&url, &c.Approved, &c.Rejected); err != nil {
			return nil, eris.Wrap(err, "postgres: scan feedback counts")
		}
		counts[url] = c
	}
	return counts, eris.Wrap(rows.Err(), "postgres: feedback counts iterate")
}

func (s *PostgresStore) GetProduction(ctx context.Context, id string) (*model.ProductionShow, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM production_shows WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get production %s", id)
	}
	var prod model.ProductionShow
	if err := json.Unmarshal(payload, &prod); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal production")
	}
	return &prod, nil
}

// transaction bodies

func (s *PostgresStore) publishTxPg(ctx context.Context, tx pgx.Tx, pendingID string, fb model.AdminFeedback) (*model.ProductionShow, error) {
	p, err := getPendingTxPg(ctx, tx, pendingID)
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
		return nil, eris.Wrap(err, "postgres: marshal production")
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO production_shows (id, pending_id, natural_key, start_date, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		prod.ID, prod.PendingID, prod.NaturalKey(), prod.StartDate, string(payload), now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, eris.Wrapf(ErrPublishConflict, "natural key %s", prod.NaturalKey())
		}
		return nil, eris.Wrap(err, "postgres: insert production")
	}

	if _, err := tx.Exec(ctx,
		`UPDATE pending_shows SET status = $1, reviewed_at = $2 WHERE id = $3 AND status = $4`,
		string(model.StatusApproved), now, pendingID, string(p.Status),
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: approve pending %s", pendingID)
	}

	if err := insertFeedbackTxPg(ctx, tx, fb, pendingID, model.ActionApprove, now); err != nil {
		return nil, err
	}
	return prod, nil
}

func (s *PostgresStore) rejectTxPg(ctx context.Context, tx pgx.Tx, pendingID string, fb model.AdminFeedback) error {
	p, err := getPendingTxPg(ctx, tx, pendingID)
	if err != nil {
		return err
	}
	if p.Status.Terminal() {
		return eris.Wrapf(ErrConflict, "pending %s already %s", pendingID, p.Status)
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx,
		`UPDATE pending_shows SET status = $1, reviewed_at = $2 WHERE id = $3 AND status = $4`,
		string(model.StatusRejected), now, pendingID, string(p.Status),
	); err != nil {
		return eris.Wrapf(err, "postgres: reject pending %s", pendingID)
	}
	return insertFeedbackTxPg(ctx, tx, fb, pendingID, model.ActionReject, now)
}

func (s *PostgresStore) editTxPg(ctx context.Context, tx pgx.Tx, pendingID string, n *model.NormalizedShow, fb model.AdminFeedback, thenApprove bool) (*model.ProductionShow, error) {
	if n == nil {
		return nil, eris.New("postgres: edit requires a normalized payload")
	}
	if _, err := getPendingTxPg(ctx, tx, pendingID); err != nil {
		return nil, err
	}

	nJSON, err := json.Marshal(n)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal edited payload")
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx,
		`UPDATE pending_shows
		 SET normalized_payload = $1, quality = $2, status = $3, duplicate_of = NULL, reviewed_at = NULL
		 WHERE id = $4`,
		string(nJSON), model.QualityScore(n), string(model.StatusPending), pendingID,
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: edit pending %s", pendingID)
	}

	if err := insertFeedbackTxPg(ctx, tx, fb, pendingID, model.ActionEdit, now); err != nil {
		return nil, err
	}

	if !thenApprove {
		return nil, nil
	}
	approveFb := fb
	approveFb.ID = ""
	return s.publishTxPg(ctx, tx, pendingID, approveFb)
}

// helpers

func scanSourcePg(row pgx.Row) (*model.ScrapingSource, error) {
	var src model.ScrapingSource
	err := row.Scan(&src.URL, &src.PriorityScore, &src.LastSuccessAt, &src.LastErrorAt,
		&src.ErrorStreak, &src.Enabled, &src.ClaimedAt, &src.CreatedAt, &src.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan source")
	}
	return &src, nil
}

func scanPendingPg(row pgx.Row) (*model.PendingShow, error) {
	var p model.PendingShow
	var rawJSON, normJSON, geoJSON []byte
	var dupOf *string

	err := row.Scan(&p.ID, &p.SourceURL, &rawJSON, &normJSON, &geoJSON,
		&p.Status, &dupOf, &p.AdminNotes, &p.CreatedAt, &p.ReviewedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan pending")
	}

	p.RawPayload = rawJSON
	if len(normJSON) > 0 {
		p.Normalized = &model.NormalizedShow{}
		if err := json.Unmarshal(normJSON, p.Normalized); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal normalized payload")
		}
	}
	if len(geoJSON) > 0 {
		p.Geocoded = &model.GeocodedShow{}
		if err := json.Unmarshal(geoJSON, p.Geocoded); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal geocoded payload")
		}
	}
	if dupOf != nil {
		p.DuplicateOf = *dupOf
	}
	return &p, nil
}

func getPendingTxPg(ctx context.Context, tx pgx.Tx, id string) (*model.PendingShow, error) {
	row := tx.QueryRow(ctx,
		`SELECT id, source_url, raw_payload, normalized_payload, geocoded_payload, status, duplicate_of, admin_notes, created_at, reviewed_at
		 FROM pending_shows WHERE id = $1 FOR UPDATE`, id)
	return scanPendingPg(row)
}

func insertFeedbackTxPg(ctx context.Context, tx pgx.Tx, fb model.AdminFeedback, pendingID string, action model.FeedbackAction, now time.Time) error {
	id := fb.ID
	if id == "" {
		id = uuid.New().String()
	}
	var tagsJSON any
	if len(fb.Tags) > 0 {
		b, err := json.Marshal(fb.Tags)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal feedback tags")
		}
		tagsJSON = string(b)
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO admin_feedback (id, pending_id, admin_id, action, tags, free_text, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, pendingID, fb.AdminID, string(action), tagsJSON, fb.FreeText, now,
	)
	return eris.Wrapf(err, "postgres: insert feedback for %s", pendingID)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
