// Package server exposes the admin review API over HTTP. Every mutating
// route requires the admin bearer token; the health probe does not.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/showscout/showscout-cli/internal/learn"
	"github.com/showscout/showscout-cli/internal/review"
	"github.com/showscout/showscout-cli/internal/store"
)

// Server is the admin HTTP API.
type Server struct {
	reviews    *review.Service
	store      store.Store
	learner    *learn.Engine
	adminToken string
}

// New creates a Server. An empty adminToken disables auth; meant for local
// development only.
func New(reviews *review.Service, st store.Store, learner *learn.Engine, adminToken string) *Server {
	return &Server{reviews: reviews, store: st, learner: learner, adminToken: adminToken}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)

		r.Get("/pending", s.handleListPending)
		r.Get("/pending/{id}", s.handleGetPending)
		r.Post("/approve/{id}", s.handleApprove)
		r.Post("/reject/{id}", s.handleReject)
		r.Patch("/edit/{id}", s.handleEdit)
		r.Post("/batch", s.handleBatch)

		r.Get("/sources", s.handleListSources)
		r.Post("/sources", s.handleAddSource)
		r.Patch("/sources/*", s.handleUpdateSource)

		r.Post("/learn/recompute", s.handleRecompute)
	})

	return r
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down admin server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("starting admin server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

// requireAdmin checks the bearer token on every admin route.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.adminToken {
			respondError(w, http.StatusUnauthorized, eris.New("server: invalid admin token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// respondStoreError maps store and review sentinels onto HTTP statuses.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, err)
	case eris.Is(err, store.ErrPublishConflict), eris.Is(err, store.ErrConflict):
		respondError(w, http.StatusConflict, err)
	case eris.Is(err, review.ErrBatchTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, err)
	case eris.Is(err, review.ErrTagRequired), eris.Is(err, review.ErrInvalidTag):
		respondError(w, http.StatusBadRequest, err)
	default:
		zap.L().Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err)
	}
}
