// Package learn closes the feedback loop: admin review outcomes over a
// rolling window are folded into each source's priority score, so productive
// sources get scraped first and chronic junk sources sink and eventually
// disable themselves.
package learn

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/showscout/showscout-cli/internal/model"
	"github.com/showscout/showscout-cli/internal/store"
)

// Default tuning. The base sits mid-scale so a new source with no history is
// neither first nor last in line.
const (
	DefaultWindowDays   = 30
	DefaultDisableFloor = 10

	baseScore      = 50
	approvedWeight = 2
	rejectedWeight = 3
)

// Engine recomputes source priorities from review feedback.
type Engine struct {
	store        store.Store
	windowDays   int
	disableFloor int
}

// New creates a learning Engine.
func New(st store.Store, windowDays, disableFloor int) *Engine {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if disableFloor <= 0 {
		disableFloor = DefaultDisableFloor
	}
	return &Engine{store: st, windowDays: windowDays, disableFloor: disableFloor}
}

// Adjustment records one source's recompute outcome.
type Adjustment struct {
	URL      string `json:"url"`
	Old      int    `json:"old"`
	New      int    `json:"new"`
	Disabled bool   `json:"disabled,omitempty"`
}

// ComputeScore derives a priority score from windowed review counts and the
// current error streak. Rejections outweigh approvals so a source cannot
// spam its way to the top; the result is clamped to the valid range.
func ComputeScore(counts model.FeedbackCounts, errorStreak int) int {
	score := baseScore + approvedWeight*counts.Approved - rejectedWeight*counts.Rejected - errorStreak
	return model.ClampPriority(score)
}

// Recompute rescores every registered source from feedback inside the
// window. Sources falling to the disable floor are switched off; they keep
// their history and can be re-enabled by an admin.
func (e *Engine) Recompute(ctx context.Context) ([]Adjustment, error) {
	since := time.Now().UTC().AddDate(0, 0, -e.windowDays)
	counts, err := e.store.FeedbackCountsBySource(ctx, since)
	if err != nil {
		return nil, err
	}

	sources, err := e.store.ListSources(ctx, store.SourceFilter{})
	if err != nil {
		return nil, err
	}

	adjustments := make([]Adjustment, 0, len(sources))
	for _, src := range sources {
		newScore := ComputeScore(counts[src.URL], src.ErrorStreak)
		adj := Adjustment{URL: src.URL, Old: src.PriorityScore, New: newScore}

		if newScore != src.PriorityScore {
			if err := e.store.SetSourcePriority(ctx, src.URL, newScore); err != nil {
				return nil, err
			}
		}
		if newScore <= e.disableFloor && src.Enabled {
			if err := e.store.SetSourceEnabled(ctx, src.URL, false); err != nil {
				return nil, err
			}
			adj.Disabled = true
			zap.L().Warn("source disabled at priority floor",
				zap.String("url", src.URL),
				zap.Int("score", newScore),
			)
		}
		adjustments = append(adjustments, adj)
	}

	zap.L().Info("priority recompute complete",
		zap.Int("sources", len(adjustments)),
		zap.Int("window_days", e.windowDays),
	)
	return adjustments, nil
}
