// Package api provides the ops HTTP handlers.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/interprep/internal/rag"
	"github.com/ashureev/interprep/internal/store"
)

// pingTimeout bounds the database check inside the health handler.
const pingTimeout = 2 * time.Second

// Handler serves the ops API: health and knowledge base status.
type Handler struct {
	repo      store.Repository
	retriever rag.Retriever
	logger    *slog.Logger
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, retriever rag.Retriever, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		repo:      repo,
		retriever: retriever,
		logger:    logger.With("component", "api"),
	}
}

// RegisterRoutes registers the ops API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/knowledge/status", h.KnowledgeStatus)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Health reports process and database health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.repo.Ping(ctx); err != nil {
		h.logger.Error("health check db ping failed", "error", err)
		JSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"database": "unreachable",
		})
		return
	}

	JSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "ok",
	})
}

// KnowledgeStatus reports the knowledge base state: whether retrieval
// is configured, which index backs it and what each agent reads.
func (h *Handler) KnowledgeStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.retriever.Status(r.Context())
	if err != nil {
		h.logger.Error("knowledge status failed", "error", err)
		Error(w, http.StatusBadGateway, "knowledge base unreachable")
		return
	}
	JSON(w, http.StatusOK, status)
}
