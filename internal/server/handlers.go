package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/showscout/showscout-cli/internal/model"
	"github.com/showscout/showscout-cli/internal/review"
	"github.com/showscout/showscout-cli/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := review.ListRequest{
		Status:         model.PendingStatus(q.Get("status")),
		SourceURL:      q.Get("source_url"),
		IncludeInvalid: q.Get("include_invalid") == "true",
	}
	req.MinQuality, _ = strconv.Atoi(q.Get("min_quality"))
	req.Limit, _ = strconv.Atoi(q.Get("limit"))
	req.Offset, _ = strconv.Atoi(q.Get("offset"))

	items, err := s.reviews.List(r.Context(), req)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) handleGetPending(w http.ResponseWriter, r *http.Request) {
	item, history, err := s.reviews.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"show": item, "feedback": history})
}

type feedbackRequest struct {
	AdminID  string              `json:"admin_id"`
	Tags     []model.FeedbackTag `json:"tags,omitempty"`
	FreeText string              `json:"free_text,omitempty"`
}

func (f feedbackRequest) toModel() model.AdminFeedback {
	return model.AdminFeedback{AdminID: f.AdminID, Tags: f.Tags, FreeText: f.FreeText}
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, eris.Wrap(err, "server: decode body"))
		return
	}

	prod, err := s.reviews.Approve(r.Context(), chi.URLParam(r, "id"), req.toModel())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, prod)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, eris.Wrap(err, "server: decode body"))
		return
	}

	if err := s.reviews.Reject(r.Context(), chi.URLParam(r, "id"), req.toModel()); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

type editRequest struct {
	feedbackRequest
	Patch       review.Patch `json:"patch"`
	ThenApprove bool         `json:"then_approve,omitempty"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, eris.Wrap(err, "server: decode body"))
		return
	}

	prod, err := s.reviews.Edit(r.Context(), chi.URLParam(r, "id"), req.Patch, req.toModel(), req.ThenApprove)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	body := map[string]any{"status": "reopened"}
	if prod != nil {
		body = map[string]any{"status": "published", "production": prod}
	}
	respondJSON(w, http.StatusOK, body)
}

type batchRequest struct {
	feedbackRequest
	Action model.FeedbackAction `json:"action"`
	IDs    []string             `json:"ids"`
}

// handleBatch applies one action to every listed id atomically.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, eris.Wrap(err, "server: decode body"))
		return
	}

	items := make([]review.BatchItem, 0, len(req.IDs))
	for _, id := range req.IDs {
		items = append(items, review.BatchItem{
			PendingID: id,
			Action:    req.Action,
			Tags:      req.Tags,
			FreeText:  req.FreeText,
		})
	}

	if err := s.reviews.Batch(r.Context(), review.BatchRequest{AdminID: req.AdminID, Items: items}); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "applied", "count": len(items)})
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	filter := store.SourceFilter{}
	if v := r.URL.Query().Get("enabled"); v != "" {
		enabled := v == "true"
		filter.Enabled = &enabled
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	sources, err := s.store.ListSources(r.Context(), filter)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sources": sources, "count": len(sources)})
}

type addSourceRequest struct {
	URL      string `json:"url"`
	Priority *int   `json:"priority,omitempty"`
}

func (s *Server) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var req addSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, eris.Wrap(err, "server: decode body"))
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, eris.New("server: url is required"))
		return
	}

	priority := model.DefaultPriority
	if req.Priority != nil {
		priority = *req.Priority
	}

	src, err := s.store.UpsertSource(r.Context(), req.URL, priority)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, src)
}

type updateSourceRequest struct {
	Enabled  *bool `json:"enabled,omitempty"`
	Priority *int  `json:"priority,omitempty"`
}

// handleUpdateSource adjusts a source addressed by its URL in the path. The
// wildcard keeps slashes in the source URL routable.
func (s *Server) handleUpdateSource(w http.ResponseWriter, r *http.Request) {
	rawURL := chi.URLParam(r, "*")
	if decoded, err := url.PathUnescape(rawURL); err == nil {
		rawURL = decoded
	}

	var req updateSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, eris.Wrap(err, "server: decode body"))
		return
	}

	if req.Priority != nil {
		if err := s.store.SetSourcePriority(r.Context(), rawURL, *req.Priority); err != nil {
			respondStoreError(w, err)
			return
		}
	}
	if req.Enabled != nil {
		if err := s.store.SetSourceEnabled(r.Context(), rawURL, *req.Enabled); err != nil {
			respondStoreError(w, err)
			return
		}
	}

	src, err := s.store.GetSource(r.Context(), rawURL)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, src)
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	adjustments, err := s.learner.Recompute(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"adjustments": adjustments, "count": len(adjustments)})
}
