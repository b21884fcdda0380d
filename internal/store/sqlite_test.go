package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showscout/showscout-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func seedSource(t *testing.T, s *SQLiteStore, url string, priority int) {
	t.Helper()
	_, err := s.UpsertSource(context.Background(), url, priority)
	require.NoError(t, err)
}

func stagePending(t *testing.T, s *SQLiteStore, sourceURL string, n *model.NormalizedShow) string {
	t.Helper()
	ctx := context.Background()
	name := "raw"
	shows, err := s.InsertPendingBatch(ctx, sourceURL, []model.RawShow{{Name: &name}})
	require.NoError(t, err)
	require.Len(t, shows, 1)
	if n != nil {
		require.NoError(t, s.UpdateNormalized(ctx, shows[0].ID, n))
	}
	return shows[0].ID
}

func normShow(name, startDate, city string) *model.NormalizedShow {
	return &model.NormalizedShow{Name: name, StartDate: startDate, City: city, State: "OH", Venue: "Hara Arena"}
}

func approveFb(adminID string) model.AdminFeedback {
	return model.AdminFeedback{AdminID: adminID, Action: model.ActionApprove}
}

func TestUpsertSource_Defaults(t *testing.T) {
	s := newTestStore(t)
	src, err := s.UpsertSource(context.Background(), "https://example.com/shows", model.DefaultPriority)
	require.NoError(t, err)

	assert.Equal(t, 50, src.PriorityScore)
	assert.True(t, src.Enabled)
	assert.Zero(t, src.ErrorStreak)
	assert.Nil(t, src.ClaimedAt)
}

func TestUpsertSource_ClampsPriority(t *testing.T) {
	s := newTestStore(t)
	src, err := s.UpsertSource(context.Background(), "https://example.com", 250)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityMax, src.PriorityScore)
}

func TestGetSource_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSource(context.Background(), "https://nowhere.example")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSources_EnabledFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://a.example", 80)
	seedSource(t, s, "https://b.example", 40)
	require.NoError(t, s.SetSourceEnabled(ctx, "https://b.example", false))

	enabled := true
	sources, err := s.ListSources(ctx, SourceFilter{Enabled: &enabled})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "https://a.example", sources[0].URL)
}

func TestClaimBatch_PriorityOrderAndExclusivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://low.example", 20)
	seedSource(t, s, "https://high.example", 90)
	seedSource(t, s, "https://mid.example", 60)

	claimed, err := s.ClaimBatch(ctx, 2, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, "https://high.example", claimed[0].URL)
	assert.Equal(t, "https://mid.example", claimed[1].URL)

	// Claimed sources are invisible to the next batch until released.
	second, err := s.ClaimBatch(ctx, 3, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "https://low.example", second[0].URL)
}

func TestClaimBatch_ExpiredClaimReclaimable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://a.example", 50)

	first, err := s.ClaimBatch(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// TTL of zero means every claim is immediately stale.
	second, err := s.ClaimBatch(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, second, 1)
}

func TestRecordOutcome_SuccessResetsStreak(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://a.example", 50)

	_, err := s.RecordOutcome(ctx, "https://a.example", false, 5)
	require.NoError(t, err)
	src, err := s.RecordOutcome(ctx, "https://a.example", true, 5)
	require.NoError(t, err)

	assert.Zero(t, src.ErrorStreak)
	assert.NotNil(t, src.LastSuccessAt)
	assert.Nil(t, src.ClaimedAt)
}

func TestRecordOutcome_StreakAutoDisables(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://flaky.example", 50)

	var src *model.ScrapingSource
	var err error
	for i := 0; i < 5; i++ {
		src, err = s.RecordOutcome(ctx, "https://flaky.example", false, 5)
		require.NoError(t, err)
	}
	assert.Equal(t, 5, src.ErrorStreak)
	assert.False(t, src.Enabled, "fifth consecutive failure must disable the source")

	// Fourth failure alone must not disable.
	seedSource(t, s, "https://other.example", 50)
	for i := 0; i < 4; i++ {
		src, err = s.RecordOutcome(ctx, "https://other.example", false, 5)
		require.NoError(t, err)
	}
	assert.True(t, src.Enabled)
}

func TestInsertPendingBatch_Roundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://a.example", 50)

	name := "Tri-State Card Show"
	date := "March 14, 2026"
	shows, err := s.InsertPendingBatch(ctx, "https://a.example", []model.RawShow{
		{Name: &name, DateText: &date},
		{Name: &name},
	})
	require.NoError(t, err)
	require.Len(t, shows, 2)

	got, err := s.GetPending(ctx, shows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, "https://a.example", got.SourceURL)
	assert.JSONEq(t, string(shows[0].RawPayload), string(got.RawPayload))
	assert.Nil(t, got.Normalized)
}

func TestUpdateNormalized_SetsQuality(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://a.example", 50)
	id := stagePending(t, s, "https://a.example", normShow("Card Show", "2026-03-14", "Dayton"))

	got, err := s.GetPending(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.Normalized)
	assert.Equal(t, "Card Show", got.Normalized.Name)

	// Quality-filtered listing sees the row.
	shows, err := s.ListPending(ctx, PendingFilter{MinQuality: 80})
	require.NoError(t, err)
	assert.Len(t, shows, 1)

	shows, err = s.ListPending(ctx, PendingFilter{MinQuality: 95})
	require.NoError(t, err)
	assert.Empty(t, shows)
}

func TestTransitionStatus_CAS(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://a.example", 50)
	id := stagePending(t, s, "https://a.example", nil)

	require.NoError(t, s.TransitionStatus(ctx, id, model.StatusPending, model.StatusExtractError))

	err := s.TransitionStatus(ctx, id, model.StatusPending, model.StatusDuplicate)
	assert.ErrorIs(t, err, ErrConflict)

	err = s.TransitionStatus(ctx, "missing-id", model.StatusPending, model.StatusDuplicate)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkDuplicate_OnlyFromPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://a.example", 50)
	id := stagePending(t, s, "https://a.example", nil)

	require.NoError(t, s.MarkDuplicate(ctx, id, "production:abc"))
	got, err := s.GetPending(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDuplicate, got.Status)
	assert.Equal(t, "production:abc", got.DuplicateOf)

	assert.ErrorIs(t, s.MarkDuplicate(ctx, id, "production:xyz"), ErrConflict)
}

func TestDedupWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://a.example", 50)

	inWindow := stagePending(t, s, "https://a.example", normShow("Card Show", "2026-03-16", "Dayton"))
	stagePending(t, s, "https://a.example", normShow("Far Show", "2026-05-01", "Dayton"))

	published := stagePending(t, s, "https://a.example", normShow("Published Show", "2026-03-12", "Dayton"))
	_, err := s.PublishApproved(ctx, published, approveFb("admin1"))
	require.NoError(t, err)

	pending, production, err := s.DedupWindow(ctx, "2026-03-14", 7)
	require.NoError(t, err)

	require.Len(t, pending, 1)
	assert.Equal(t, inWindow, pending[0].ID)
	require.Len(t, production, 1)
	assert.Equal(t, "Published Show", production[0].Title)
}

func TestPublishApproved_CreatesProductionAndFeedback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://a.example", 50)
	id := stagePending(t, s, "https://a.example", normShow("Card Show", "2026-03-14", "Dayton"))
	require.NoError(t, s.UpdateGeocoded(ctx, id, &model.GeocodedShow{Latitude: 39.8, Longitude: -84.2}))

	prod, err := s.PublishApproved(ctx, id, approveFb("admin1"))
	require.NoError(t, err)

	assert.Equal(t, "Card Show", prod.Title)
	assert.Equal(t, id, prod.PendingID)
	require.NotNil(t, prod.Latitude)
	assert.InDelta(t, 39.8, *prod.Latitude, 0.001)

	pending, err := s.GetPending(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, pending.Status)
	assert.NotNil(t, pending.ReviewedAt)

	fbs, err := s.ListFeedback(ctx, id)
	require.NoError(t, err)
	require.Len(t, fbs, 1)
	assert.Equal(t, model.ActionApprove, fbs[0].Action)

	got, err := s.GetProduction(ctx, prod.ID)
	require.NoError(t, err)
	assert.Equal(t, prod.NaturalKey(), got.NaturalKey())
}

func TestPublishApproved_NaturalKeyConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://a.example", 50)

	first := stagePending(t, s, "https://a.example", normShow("Card Show", "2026-03-14", "Dayton"))
	second := stagePending(t, s, "https://a.example", normShow("card show", "2026-03-14", "DAYTON"))

	_, err := s.PublishApproved(ctx, first, approveFb("admin1"))
	require.NoError(t, err)

	_, err = s.PublishApproved(ctx, second, approveFb("admin1"))
	assert.ErrorIs(t, err, ErrPublishConflict, "natural key comparison is case-insensitive")

	// The conflicting candidate must stay reviewable, not half-approved.
	pending, err := s.GetPending(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, pending.Status)
}

func TestPublishApproved_TerminalRowConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://a.example", 50)
	id := stagePending(t, s, "https://a.example", normShow("Card Show", "2026-03-14", "Dayton"))

	_, err := s.PublishApproved(ctx, id, approveFb("admin1"))
	require.NoError(t, err)

	_, err = s.PublishApproved(ctx, id, approveFb("admin2"))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPublishApproved_RequiresNormalized(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://a.example", 50)
	id := stagePending(t, s, "https://a.example", nil)

	_, err := s.PublishApproved(ctx, id, approveFb("admin1"))
	assert.Error(t, err)
}

func TestRejectPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://a.example", 50)
	id := stagePending(t, s, "https://a.example", normShow("Spam Show", "2026-03-14", "Dayton"))

	fb := model.AdminFeedback{AdminID: "admin1", Action: model.ActionReject, Tags: []model.FeedbackTag{model.TagSpam}}
	require.NoError(t, s.RejectPending(ctx, id, fb))

	pending, err := s.GetPending(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, pending.Status)

	fbs, err := s.ListFeedback(ctx, id)
	require.NoError(t, err)
	require.Len(t, fbs, 1)
	assert.Equal(t, []model.FeedbackTag{model.TagSpam}, fbs[0].Tags)

	assert.ErrorIs(t, s.RejectPending(ctx, id, fb), ErrConflict)
}

func TestEditPending_ReopensTerminalRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://a.example", 50)
	id := stagePending(t, s, "https://a.example", normShow("Card Show", "2026-03-14", "Dayton"))

	fb := model.AdminFeedback{AdminID: "admin1", Action: model.ActionReject, Tags: []model.FeedbackTag{model.TagDateFormat}}
	require.NoError(t, s.RejectPending(ctx, id, fb))

	editFb := model.AdminFeedback{AdminID: "admin1", Action: model.ActionEdit}
	_, err := s.EditPending(ctx, id, normShow("Card Show", "2026-03-15", "Dayton"), editFb, false)
	require.NoError(t, err)

	pending, err := s.GetPending(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, pending.Status)
	assert.Nil(t, pending.ReviewedAt)
	assert.Equal(t, "2026-03-15", pending.Normalized.StartDate)

	fbs, err := s.ListFeedback(ctx, id)
	require.NoError(t, err)
	assert.Len(t, fbs, 2, "edit history appends, never overwrites")
}

func TestEditPending_ThenApprove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://a.example", 50)
	id := stagePending(t, s, "https://a.example", normShow("Card Show", "2026-03-14", "Dayton"))

	editFb := model.AdminFeedback{AdminID: "admin1", Action: model.ActionEdit}
	prod, err := s.EditPending(ctx, id, normShow("Card Show Deluxe", "2026-03-14", "Dayton"), editFb, true)
	require.NoError(t, err)
	require.NotNil(t, prod)
	assert.Equal(t, "Card Show Deluxe", prod.Title)

	pending, err := s.GetPending(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, pending.Status)
}

func TestBatchReview_AllOrNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://a.example", 50)

	ok := stagePending(t, s, "https://a.example", normShow("Show A", "2026-03-14", "Dayton"))
	bad := stagePending(t, s, "https://a.example", nil) // no normalized payload, approve must fail

	err := s.BatchReview(ctx, []ReviewOp{
		{PendingID: ok, Action: model.ActionApprove, Feedback: approveFb("admin1")},
		{PendingID: bad, Action: model.ActionApprove, Feedback: approveFb("admin1")},
	})
	require.Error(t, err)

	// First op must have been rolled back with the failed one.
	pending, err := s.GetPending(ctx, ok)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, pending.Status)
}

func TestBatchReview_MixedActions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://a.example", 50)

	a := stagePending(t, s, "https://a.example", normShow("Show A", "2026-03-14", "Dayton"))
	b := stagePending(t, s, "https://a.example", normShow("Show B", "2026-03-15", "Dayton"))

	err := s.BatchReview(ctx, []ReviewOp{
		{PendingID: a, Action: model.ActionApprove, Feedback: approveFb("admin1")},
		{PendingID: b, Action: model.ActionReject, Feedback: model.AdminFeedback{
			AdminID: "admin1", Action: model.ActionReject, Tags: []model.FeedbackTag{model.TagSpam},
		}},
	})
	require.NoError(t, err)

	pa, _ := s.GetPending(ctx, a)
	pb, _ := s.GetPending(ctx, b)
	assert.Equal(t, model.StatusApproved, pa.Status)
	assert.Equal(t, model.StatusRejected, pb.Status)
}

func TestFeedbackCountsBySource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "https://a.example", 50)
	seedSource(t, s, "https://b.example", 50)

	a1 := stagePending(t, s, "https://a.example", normShow("Show A1", "2026-03-14", "Dayton"))
	a2 := stagePending(t, s, "https://a.example", normShow("Show A2", "2026-03-15", "Dayton"))
	b1 := stagePending(t, s, "https://b.example", normShow("Show B1", "2026-03-16", "Dayton"))

	_, err := s.PublishApproved(ctx, a1, approveFb("admin1"))
	require.NoError(t, err)
	rejectFb := model.AdminFeedback{AdminID: "admin1", Action: model.ActionReject, Tags: []model.FeedbackTag{model.TagSpam}}
	require.NoError(t, s.RejectPending(ctx, a2, rejectFb))
	require.NoError(t, s.RejectPending(ctx, b1, rejectFb))

	counts, err := s.FeedbackCountsBySource(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)

	assert.Equal(t, model.FeedbackCounts{Approved: 1, Rejected: 1}, counts["https://a.example"])
	assert.Equal(t, model.FeedbackCounts{Approved: 0, Rejected: 1}, counts["https://b.example"])

	// Outside the learning window nothing counts.
	counts, err = s.FeedbackCountsBySource(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, counts)
}
