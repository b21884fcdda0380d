// Package review implements the admin review gateway: listing the staging
// queue, approving, rejecting, editing, and batch operations. Every action
// appends exactly one feedback record; the store enforces transactionality.
package review

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/showscout/showscout-cli/internal/model"
	"github.com/showscout/showscout-cli/internal/store"
)

// DefaultBatchCap bounds one batch review request.
const DefaultBatchCap = 100

var (
	// ErrBatchTooLarge rejects an oversized batch outright; nothing in it
	// is processed.
	ErrBatchTooLarge = eris.New("review: batch exceeds cap")

	// ErrTagRequired rejects a rejection without at least one taxonomy tag.
	ErrTagRequired = eris.New("review: rejection requires at least one tag")

	// ErrInvalidTag rejects feedback carrying a tag outside the taxonomy.
	ErrInvalidTag = eris.New("review: unknown feedback tag")
)

// Service is the admin review gateway.
type Service struct {
	store    store.Store
	batchCap int
}

// New creates a review Service.
func New(st store.Store, batchCap int) *Service {
	if batchCap <= 0 {
		batchCap = DefaultBatchCap
	}
	return &Service{store: st, batchCap: batchCap}
}

// Item is one queue entry with its triage quality score.
type Item struct {
	model.PendingShow
	Quality int `json:"quality"`
}

// ListRequest filters the review queue.
type ListRequest struct {
	Status         model.PendingStatus `json:"status,omitempty"`
	SourceURL      string              `json:"source_url,omitempty"`
	MinQuality     int                 `json:"min_quality,omitempty"`
	IncludeInvalid bool                `json:"include_invalid,omitempty"`
	Limit          int                 `json:"limit,omitempty"`
	Offset         int                 `json:"offset,omitempty"`
}

// List returns the review queue. The default queue hides rows the normalizer
// marked invalid (no name and no date); they stay reachable with
// IncludeInvalid for audit.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Item, error) {
	status := req.Status
	if status == "" {
		status = model.StatusPending
	}

	shows, err := s.store.ListPending(ctx, store.PendingFilter{
		Status:     status,
		SourceURL:  req.SourceURL,
		MinQuality: req.MinQuality,
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(shows))
	for _, p := range shows {
		if !req.IncludeInvalid && p.Normalized != nil && p.Normalized.Invalid {
			continue
		}
		items = append(items, Item{PendingShow: p, Quality: model.QualityScore(p.Normalized)})
	}
	return items, nil
}

// Get returns a single pending show with its feedback history.
func (s *Service) Get(ctx context.Context, id string) (*Item, []model.AdminFeedback, error) {
	p, err := s.store.GetPending(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	fbs, err := s.store.ListFeedback(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return &Item{PendingShow: *p, Quality: model.QualityScore(p.Normalized)}, fbs, nil
}

// Approve publishes a pending show to the production catalog.
func (s *Service) Approve(ctx context.Context, id string, fb model.AdminFeedback) (*model.ProductionShow, error) {
	fb.Action = model.ActionApprove
	if err := validateFeedback(fb, false); err != nil {
		return nil, err
	}

	prod, err := s.store.PublishApproved(ctx, id, fb)
	if err != nil {
		return nil, err
	}
	zap.L().Info("pending show approved",
		zap.String("pending_id", id),
		zap.String("production_id", prod.ID),
		zap.String("admin_id", fb.AdminID),
	)
	return prod, nil
}

// Reject marks a pending show rejected. At least one taxonomy tag is required
// so the learning engine has something to learn from.
func (s *Service) Reject(ctx context.Context, id string, fb model.AdminFeedback) error {
	fb.Action = model.ActionReject
	if err := validateFeedback(fb, true); err != nil {
		return err
	}

	if err := s.store.RejectPending(ctx, id, fb); err != nil {
		return err
	}
	zap.L().Info("pending show rejected",
		zap.String("pending_id", id),
		zap.String("admin_id", fb.AdminID),
		zap.Any("tags", fb.Tags),
	)
	return nil
}

// Edit applies a field patch to the normalized payload and reopens the row.
// Editing is the only path that takes a terminal row back to PENDING; the id
// and feedback history are preserved. With ThenApprove the corrected row is
// published in the same transaction.
func (s *Service) Edit(ctx context.Context, id string, patch Patch, fb model.AdminFeedback, thenApprove bool) (*model.ProductionShow, error) {
	fb.Action = model.ActionEdit
	if err := validateFeedback(fb, false); err != nil {
		return nil, err
	}

	p, err := s.store.GetPending(ctx, id)
	if err != nil {
		return nil, err
	}

	edited := patch.Apply(p.Normalized)
	prod, err := s.store.EditPending(ctx, id, edited, fb, thenApprove)
	if err != nil {
		return nil, err
	}
	zap.L().Info("pending show edited",
		zap.String("pending_id", id),
		zap.String("admin_id", fb.AdminID),
		zap.Bool("then_approve", thenApprove),
	)
	return prod, nil
}

// BatchRequest is a batch of approve/reject decisions.
type BatchRequest struct {
	AdminID string      `json:"admin_id"`
	Items   []BatchItem `json:"items"`
}

// BatchItem is one decision within a batch.
type BatchItem struct {
	PendingID string               `json:"pending_id"`
	Action    model.FeedbackAction `json:"action"`
	Tags      []model.FeedbackTag  `json:"tags,omitempty"`
	FreeText  string               `json:"free_text,omitempty"`
}

// Batch applies up to the cap of approve/reject decisions atomically. An
// oversized or partially invalid batch is rejected before any row changes.
func (s *Service) Batch(ctx context.Context, req BatchRequest) error {
	if len(req.Items) == 0 {
		return eris.New("review: empty batch")
	}
	if len(req.Items) > s.batchCap {
		return eris.Wrapf(ErrBatchTooLarge, "%d items, cap %d", len(req.Items), s.batchCap)
	}

	ops := make([]store.ReviewOp, 0, len(req.Items))
	for _, item := range req.Items {
		fb := model.AdminFeedback{
			AdminID:  req.AdminID,
			Action:   item.Action,
			Tags:     item.Tags,
			FreeText: item.FreeText,
		}
		switch item.Action {
		case model.ActionApprove:
			if err := validateFeedback(fb, false); err != nil {
				return eris.Wrapf(err, "item %s", item.PendingID)
			}
		case model.ActionReject:
			if err := validateFeedback(fb, true); err != nil {
				return eris.Wrapf(err, "item %s", item.PendingID)
			}
		default:
			return eris.Errorf("review: batch supports approve and reject only, got %q", item.Action)
		}
		ops = append(ops, store.ReviewOp{PendingID: item.PendingID, Action: item.Action, Feedback: fb})
	}

	if err := s.store.BatchReview(ctx, ops); err != nil {
		return err
	}
	zap.L().Info("batch review applied",
		zap.Int("items", len(ops)),
		zap.String("admin_id", req.AdminID),
	)
	return nil
}

func validateFeedback(fb model.AdminFeedback, requireTag bool) error {
	if fb.AdminID == "" {
		return eris.New("review: admin id required")
	}
	if requireTag && len(fb.Tags) == 0 {
		return ErrTagRequired
	}
	for _, tag := range fb.Tags {
		if !model.ValidTags[tag] {
			return eris.Wrapf(ErrInvalidTag, "%q", tag)
		}
	}
	return nil
}
