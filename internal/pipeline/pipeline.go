// Package pipeline orchestrates one ingestion tick: claim a batch of
// sources, then fetch, extract, normalize, geocode, and dedup each source's
// candidates into the staging table. Failures are isolated per source; one
// dead site never sinks the batch.
package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/showscout/showscout-cli/internal/dedup"
	"github.com/showscout/showscout-cli/internal/extract"
	"github.com/showscout/showscout-cli/internal/fetch"
	"github.com/showscout/showscout-cli/internal/model"
	"github.com/showscout/showscout-cli/internal/normalize"
	"github.com/showscout/showscout-cli/internal/resilience"
	"github.com/showscout/showscout-cli/internal/store"
	"github.com/showscout/showscout-cli/pkg/geocode"
)

// Options tunes one batch run.
type Options struct {
	BatchSize     int
	ClaimTTL      time.Duration
	DisableStreak int
	Concurrency   int
	SourceTimeout time.Duration
	SkipGeocode   bool
	DryRun        bool
}

// Runner executes batch ingestion ticks.
type Runner struct {
	store      store.Store
	fetcher    *fetch.Fetcher
	extractor  *extract.Agent
	normalizer *normalize.Normalizer
	geocoder   geocode.Client
	matcher    *dedup.Matcher
	opts       Options
}

// New creates a Runner.
func New(st store.Store, fetcher *fetch.Fetcher, extractor *extract.Agent,
	normalizer *normalize.Normalizer, geocoder geocode.Client, matcher *dedup.Matcher, opts Options) *Runner {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = 30 * time.Minute
	}
	if opts.DisableStreak <= 0 {
		opts.DisableStreak = 5
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = 5 * time.Minute
	}
	return &Runner{
		store:      st,
		fetcher:    fetcher,
		extractor:  extractor,
		normalizer: normalizer,
		geocoder:   geocoder,
		matcher:    matcher,
		opts:       opts,
	}
}

// RunResult summarizes one batch tick.
type RunResult struct {
	Claimed    int `json:"claimed"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Candidates int `json:"candidates"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}

// RunBatch claims and processes one batch of sources.
func (r *Runner) RunBatch(ctx context.Context) (*RunResult, error) {
	sources, err := r.store.ClaimBatch(ctx, r.opts.BatchSize, r.opts.ClaimTTL)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Claimed: len(sources)}
	if len(sources) == 0 {
		zap.L().Info("no claimable sources")
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for _, src := range sources {
		src := src
		g.Go(func() error {
			stats, err := r.processSource(gctx, src)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				zap.L().Warn("source processing failed",
					zap.String("url", src.URL),
					zap.String("kind", string(resilience.KindOf(err))),
					zap.Error(err),
				)
			} else {
				result.Succeeded++
				result.Candidates += stats.candidates
				result.Duplicates += stats.duplicates
				result.Invalid += stats.invalid
			}
			// Partial failure is non-fatal to the batch.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	zap.L().Info("batch tick complete",
		zap.Int("claimed", result.Claimed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("candidates", result.Candidates),
		zap.Int("duplicates", result.Duplicates),
	)
	return result, nil
}

type sourceStats struct {
	candidates int
	duplicates int
	invalid    int
}

// processSource runs the full staging path for one source. The scrape
// outcome (success or failure) is recorded on the source either way unless
// this is a dry run.
func (r *Runner) processSource(ctx context.Context, src model.ScrapingSource) (sourceStats, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.SourceTimeout)
	defer cancel()

	var stats sourceStats

	text, err := r.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return stats, r.recordFailure(ctx, src.URL, err)
	}

	raws, err := r.extractor.Extract(ctx, src.URL, text)
	if err != nil {
		return stats, r.recordFailure(ctx, src.URL, err)
	}

	if r.opts.DryRun {
		zap.L().Info("dry run: candidates not staged",
			zap.String("url", src.URL),
			zap.Int("candidates", len(raws)),
		)
		stats.candidates = len(raws)
		return stats, nil
	}

	pending, err := r.store.InsertPendingBatch(ctx, src.URL, raws)
	if err != nil {
		return stats, r.recordFailure(ctx, src.URL, err)
	}
	stats.candidates = len(pending)

	for _, p := range pending {
		dup, invalid := r.enrich(ctx, p)
		if dup {
			stats.duplicates++
		}
		if invalid {
			stats.invalid++
		}
	}

	if _, err := r.store.RecordOutcome(ctx, src.URL, true, r.opts.DisableStreak); err != nil {
		zap.L().Warn("record success failed", zap.String("url", src.URL), zap.Error(err))
	}
	return stats, nil
}

func (r *Runner) recordFailure(ctx context.Context, url string, cause error) error {
	if r.opts.DryRun {
		return cause
	}
	if _, err := r.store.RecordOutcome(ctx, url, false, r.opts.DisableStreak); err != nil {
		zap.L().Warn("record failure failed", zap.String("url", url), zap.Error(err))
	}
	return cause
}

// enrich normalizes, geocodes, and dedups one staged row. Every step is
// advisory past normalization: a geocode miss or dedup flag never blocks the
// row from review.
func (r *Runner) enrich(ctx context.Context, p model.PendingShow) (dup, invalid bool) {
	var raw model.RawShow
	if err := json.Unmarshal(p.RawPayload, &raw); err != nil {
		zap.L().Warn("unreadable raw payload", zap.String("pending_id", p.ID), zap.Error(err))
		if terr := r.store.TransitionStatus(ctx, p.ID, model.StatusPending, model.StatusExtractError); terr != nil {
			zap.L().Warn("mark extract error failed", zap.String("pending_id", p.ID), zap.Error(terr))
		}
		return false, false
	}

	n := r.normalizer.Normalize(raw)
	invalid = n.Invalid

	if !r.opts.SkipGeocode && !n.Invalid {
		r.geocodeInto(ctx, p.ID, n)
	}

	if err := r.store.UpdateNormalized(ctx, p.ID, n); err != nil {
		zap.L().Warn("update normalized failed", zap.String("pending_id", p.ID), zap.Error(err))
		return false, invalid
	}

	if !n.Invalid && n.StartDate != "" {
		dup = r.flagDuplicate(ctx, p.ID, n)
	}
	return dup, invalid
}

// geocodeInto resolves coordinates and backfills address fields the listing
// itself omitted. Failures are logged and swallowed.
func (r *Runner) geocodeInto(ctx context.Context, pendingID string, n *model.NormalizedShow) {
	addr := geocode.AddressInput{
		Street:  n.Street,
		Venue:   n.Venue,
		City:    n.City,
		State:   n.State,
		ZipCode: n.Zip,
	}
	if !addr.Sufficient() {
		return
	}

	res, err := r.geocoder.Geocode(ctx, addr)
	if err != nil {
		zap.L().Warn("geocode failed",
			zap.String("pending_id", pendingID),
			zap.String("kind", string(resilience.KindGeocode)),
			zap.Error(err),
		)
		return
	}
	if !res.Matched {
		return
	}

	g := &model.GeocodedShow{
		Latitude:       res.Latitude,
		Longitude:      res.Longitude,
		MatchedAddress: res.MatchedAddress,
		Source:         res.Source,
	}
	if err := r.store.UpdateGeocoded(ctx, pendingID, g); err != nil {
		zap.L().Warn("update geocoded failed", zap.String("pending_id", pendingID), zap.Error(err))
		return
	}

	if n.City == "" {
		n.City = res.City
	}
	if n.State == "" {
		n.State = res.State
	}
	if n.Zip == "" {
		n.Zip = res.Zip
	}
}

// flagDuplicate marks the row DUPLICATE when a staged or published candidate
// within the date window scores above the threshold. Advisory only: the
// admin resolves it.
func (r *Runner) flagDuplicate(ctx context.Context, pendingID string, n *model.NormalizedShow) bool {
	pendingPool, prodPool, err := r.store.DedupWindow(ctx, n.StartDate, r.matcher.WindowDays)
	if err != nil {
		zap.L().Warn("dedup window query failed", zap.String("pending_id", pendingID), zap.Error(err))
		return false
	}

	subject := dedup.Candidate{
		ID:        pendingID,
		Kind:      "pending",
		Title:     n.Name,
		Venue:     n.Venue,
		City:      n.City,
		StartDate: n.StartDate,
	}

	pool := make([]dedup.Candidate, 0, len(pendingPool)+len(prodPool))
	for _, other := range pendingPool {
		if other.Normalized == nil {
			continue
		}
		pool = append(pool, dedup.Candidate{
			ID:        other.ID,
			Kind:      "pending",
			Title:     other.Normalized.Name,
			Venue:     other.Normalized.Venue,
			City:      other.Normalized.City,
			StartDate: other.Normalized.StartDate,
		})
	}
	for _, prod := range prodPool {
		pool = append(pool, dedup.Candidate{
			ID:        prod.ID,
			Kind:      "production",
			Title:     prod.Title,
			Venue:     prod.Venue,
			City:      prod.City,
			StartDate: prod.StartDate,
		})
	}

	match, ok := r.matcher.BestMatch(subject, pool)
	if !ok {
		return false
	}

	if err := r.store.MarkDuplicate(ctx, pendingID, match.Ref); err != nil {
		zap.L().Warn("mark duplicate failed", zap.String("pending_id", pendingID), zap.Error(err))
		return false
	}
	zap.L().Info("duplicate flagged",
		zap.String("pending_id", pendingID),
		zap.String("duplicate_of", match.Ref),
		zap.Float64("score", match.Score),
	)
	return true
}
