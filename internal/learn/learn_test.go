package learn

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showscout/showscout-cli/internal/model"
	"github.com/showscout/showscout-cli/internal/store"
)

func TestComputeScore(t *testing.T) {
	tests := []struct {
		name   string
		counts model.FeedbackCounts
		streak int
		want   int
	}{
		{"no history", model.FeedbackCounts{}, 0, 50},
		{"approvals raise", model.FeedbackCounts{Approved: 10}, 0, 70},
		{"rejections sink faster", model.FeedbackCounts{Approved: 3, Rejected: 3}, 0, 47},
		{"error streak drags", model.FeedbackCounts{}, 4, 46},
		{"clamped high", model.FeedbackCounts{Approved: 100}, 0, 100},
		{"clamped low", model.FeedbackCounts{Rejected: 100}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeScore(tt.counts, tt.streak))
		})
	}
}

func TestComputeScore_MonotonicInRejections(t *testing.T) {
	prev := ComputeScore(model.FeedbackCounts{Approved: 5}, 0)
	for rejected := 1; rejected <= 40; rejected++ {
		score := ComputeScore(model.FeedbackCounts{Approved: 5, Rejected: rejected}, 0)
		assert.LessOrEqual(t, score, prev, "score must never rise with an extra rejection")
		prev = score
	}
}

func newTestEngine(t *testing.T) (*Engine, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return New(st, DefaultWindowDays, DefaultDisableFloor), st
}

func seedReviewed(t *testing.T, st *store.SQLiteStore, url string, approved, rejected int) {
	t.Helper()
	ctx := context.Background()
	_, err := st.UpsertSource(ctx, url, model.DefaultPriority)
	require.NoError(t, err)

	for i := 0; i < approved+rejected; i++ {
		name := "Show"
		shows, err := st.InsertPendingBatch(ctx, url, []model.RawShow{{Name: &name}})
		require.NoError(t, err)
		id := shows[0].ID

		n := &model.NormalizedShow{Name: "Show " + id[:8], StartDate: "2026-03-14", City: "Dayton"}
		require.NoError(t, st.UpdateNormalized(ctx, id, n))

		if i < approved {
			_, err = st.PublishApproved(ctx, id, model.AdminFeedback{AdminID: "a", Action: model.ActionApprove})
			require.NoError(t, err)
		} else {
			err = st.RejectPending(ctx, id, model.AdminFeedback{
				AdminID: "a", Action: model.ActionReject, Tags: []model.FeedbackTag{model.TagSpam},
			})
			require.NoError(t, err)
		}
	}
}

func TestRecompute_AdjustsPriorities(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()

	seedReviewed(t, st, "https://good.example", 5, 0)
	seedReviewed(t, st, "https://bad.example", 0, 4)

	adjustments, err := engine.Recompute(ctx)
	require.NoError(t, err)
	require.Len(t, adjustments, 2)

	good, err := st.GetSource(ctx, "https://good.example")
	require.NoError(t, err)
	assert.Equal(t, 60, good.PriorityScore)

	bad, err := st.GetSource(ctx, "https://bad.example")
	require.NoError(t, err)
	assert.Equal(t, 38, bad.PriorityScore)
	assert.True(t, bad.Enabled, "above the floor stays enabled")
}

func TestRecompute_FloorDisables(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()

	seedReviewed(t, st, "https://junk.example", 0, 14)

	_, err := engine.Recompute(ctx)
	require.NoError(t, err)

	src, err := st.GetSource(ctx, "https://junk.example")
	require.NoError(t, err)
	assert.Equal(t, 8, src.PriorityScore)
	assert.False(t, src.Enabled, "floor breach disables the source")
}
