// Package store persists the ingestion pipeline's state: the source registry,
// staged show candidates, admin feedback, and the published catalog. Two
// backends implement the same interface, SQLite for single-host deployments
// and PostgreSQL for shared ones.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/showscout/showscout-cli/internal/model"
)

// Sentinel errors. Callers match these with eris.Is.
var (
	// ErrNotFound is returned when the referenced row does not exist.
	ErrNotFound = eris.New("store: not found")

	// ErrConflict is returned when a status transition loses a
	// compare-and-set race or targets a terminal row.
	ErrConflict = eris.New("store: status conflict")

	// ErrPublishConflict is returned when publishing would collide with an
	// existing production show on (title, start_date, city).
	ErrPublishConflict = eris.New("store: publish natural key conflict")
)

// SourceFilter specifies criteria for listing sources.
type SourceFilter struct {
	Enabled *bool `json:"enabled,omitempty"`
	Limit   int   `json:"limit,omitempty"`
}

// PendingFilter specifies criteria for listing staged candidates.
type PendingFilter struct {
	Status     model.PendingStatus `json:"status,omitempty"`
	SourceURL  string              `json:"source_url,omitempty"`
	MinQuality int                 `json:"min_quality,omitempty"`
	Limit      int                 `json:"limit,omitempty"`
	Offset     int                 `json:"offset,omitempty"`
}

// ReviewOp is one item of a batch review. Edits carry the replacement
// normalized payload; ThenApprove publishes in the same transaction.
type ReviewOp struct {
	PendingID   string                `json:"pending_id"`
	Action      model.FeedbackAction  `json:"action"`
	Feedback    model.AdminFeedback   `json:"feedback"`
	Normalized  *model.NormalizedShow `json:"normalized,omitempty"`
	ThenApprove bool                  `json:"then_approve,omitempty"`
}

// Store defines the persistence interface for the ingestion pipeline.
type Store interface {
	// Source registry
	UpsertSource(ctx context.Context, url string, priority int) (*model.ScrapingSource, error)
	GetSource(ctx context.Context, url string) (*model.ScrapingSource, error)
	ListSources(ctx context.Context, filter SourceFilter) ([]model.ScrapingSource, error)
	SetSourceEnabled(ctx context.Context, url string, enabled bool) error
	SetSourcePriority(ctx context.Context, url string, score int) error
	ClaimBatch(ctx context.Context, limit int, claimTTL time.Duration) ([]model.ScrapingSource, error)
	RecordOutcome(ctx context.Context, url string, success bool, disableStreak int) (*model.ScrapingSource, error)

	// Staged candidates
	InsertPendingBatch(ctx context.Context, sourceURL string, raws []model.RawShow) ([]model.PendingShow, error)
	GetPending(ctx context.Context, id string) (*model.PendingShow, error)
	ListPending(ctx context.Context, filter PendingFilter) ([]model.PendingShow, error)
	UpdateNormalized(ctx context.Context, id string, n *model.NormalizedShow) error
	UpdateGeocoded(ctx context.Context, id string, g *model.GeocodedShow) error
	TransitionStatus(ctx context.Context, id string, from, to model.PendingStatus) error
	MarkDuplicate(ctx context.Context, id, ref string) error
	DedupWindow(ctx context.Context, startDate string, windowDays int) ([]model.PendingShow, []model.ProductionShow, error)

	// Review
	PublishApproved(ctx context.Context, pendingID string, fb model.AdminFeedback) (*model.ProductionShow, error)
	RejectPending(ctx context.Context, pendingID string, fb model.AdminFeedback) error
	EditPending(ctx context.Context, pendingID string, n *model.NormalizedShow, fb model.AdminFeedback, thenApprove bool) (*model.ProductionShow, error)
	BatchReview(ctx context.Context, ops []ReviewOp) error
	ListFeedback(ctx context.Context, pendingID string) ([]model.AdminFeedback, error)

	// Learning
	FeedbackCountsBySource(ctx context.Context, since time.Time) (map[string]model.FeedbackCounts, error)

	// Published catalog
	GetProduction(ctx context.Context, id string) (*model.ProductionShow, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// buildProduction assembles the published record from an approved candidate.
// The normalized payload is authoritative; coordinates come from geocoding
// when a match exists.
func buildProduction(id string, p *model.PendingShow, now time.Time) (*model.ProductionShow, error) {
	n := p.Normalized
	if n == nil {
		return nil, eris.Errorf("store: pending %s has no normalized payload", p.ID)
	}
	if n.Name == "" || n.StartDate == "" {
		return nil, eris.Errorf("store: pending %s is missing title or start date", p.ID)
	}

	prod := &model.ProductionShow{
		ID:           id,
		PendingID:    p.ID,
		Title:        n.Name,
		StartDate:    n.StartDate,
		EndDate:      n.EndDate,
		Venue:        n.Venue,
		Street:       n.Street,
		City:         n.City,
		State:        n.State,
		Zip:          n.Zip,
		ContactName:  n.ContactName,
		ContactEmail: n.ContactEmail,
		ContactPhone: n.ContactPhone,
		EntryFee:     n.EntryFee,
		StartTime:    n.StartTime,
		EndTime:      n.EndTime,
		CreatedAt:    now,
	}
	if p.Geocoded != nil {
		lat, lng := p.Geocoded.Latitude, p.Geocoded.Longitude
		prod.Latitude = &lat
		prod.Longitude = &lng
	}
	return prod, nil
}
