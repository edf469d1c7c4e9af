package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/globalbooks/fulfillment-system/shared/auth"
	sharedinfra "github.com/globalbooks/fulfillment-system/shared/infrastructure"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/go-chi/chi/v5"
)

const defaultDeadLetterPageSize = 50

// DeadLetterHandlers exposes the reconciliation surface over stored
// dead letters. Admin only.
type DeadLetterHandlers struct {
	store sharedinfra.DeadLetterStore
}

// NewDeadLetterHandlers creates new dead letter handlers
func NewDeadLetterHandlers(store sharedinfra.DeadLetterStore) *DeadLetterHandlers {
	return &DeadLetterHandlers{store: store}
}

// ListDeadLetters returns dead letters awaiting reconciliation
func (h *DeadLetterHandlers) ListDeadLetters(w http.ResponseWriter, r *http.Request) {
	limit := defaultDeadLetterPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	letters, err := h.store.FindUnreconciled(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(letters)
}

// ReconcileDeadLetter marks a dead letter as manually handled
func (h *DeadLetterHandlers) ReconcileDeadLetter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Dead letter ID is required", http.StatusBadRequest)
		return
	}

	if err := h.store.MarkReconciled(r.Context(), models.ID(id)); err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RegisterRoutes registers dead letter routes behind an admin guard
func (h *DeadLetterHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/dead-letters", func(r chi.Router) {
		r.Use(requireAdmin)
		r.Get("/", h.ListDeadLetters)
		r.Post("/{id}/reconcile", h.ReconcileDeadLetter)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.RoleFrom(r.Context()) != auth.RoleAdmin {
			http.Error(w, "admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
