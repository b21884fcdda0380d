package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showscout/showscout-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetSource_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT url, priority_score`).
		WithArgs("https://unknown.example").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetSource(context.Background(), "https://unknown.example")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetSourceEnabled_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE scraping_sources SET enabled`).
		WithArgs(false, "https://unknown.example").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.SetSourceEnabled(context.Background(), "https://unknown.example", false)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_TransitionStatus_Conflict(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE pending_shows SET status`).
		WithArgs("DUPLICATE", "p1", "PENDING").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT status FROM pending_shows`).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("APPROVED"))

	err := s.TransitionStatus(context.Background(), "p1", model.StatusPending, model.StatusDuplicate)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_TransitionStatus_Success(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE pending_shows SET status`).
		WithArgs("EXTRACT_ERROR", "p1", "PENDING").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.TransitionStatus(context.Background(), "p1", model.StatusPending, model.StatusExtractError)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertPendingBatch_UsesCopy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"pending_shows"},
		[]string{"id", "source_url", "raw_payload", "status", "created_at"}).
		WillReturnResult(2)

	name := "Card Show"
	shows, err := s.InsertPendingBatch(context.Background(), "https://a.example", []model.RawShow{
		{Name: &name}, {Name: &name},
	})
	require.NoError(t, err)
	assert.Len(t, shows, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordOutcome_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE scraping_sources`).
		WithArgs("https://unknown.example").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	_, err := s.RecordOutcome(context.Background(), "https://unknown.example", true, 5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
