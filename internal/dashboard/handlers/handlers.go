// Package handlers exposes the dashboard query API over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ledgerline/ledgerline/internal/dashboard"
	"github.com/ledgerline/ledgerline/internal/domain"
)

// SnapshotProvider builds dashboard snapshots.
type SnapshotProvider interface {
	GetSnapshot(ctx context.Context, userID int64, rangeToken string) (dashboard.Snapshot, error)
}

// Handler serves the dashboard and live-value endpoints.
type Handler struct {
	snapshots SnapshotProvider
	users     dashboard.UserStore
	valuator  dashboard.LiveValuer
	log       zerolog.Logger
}

// New creates a new dashboard handler.
func New(snapshots SnapshotProvider, users dashboard.UserStore, valuator dashboard.LiveValuer, log zerolog.Logger) *Handler {
	return &Handler{
		snapshots: snapshots,
		users:     users,
		valuator:  valuator,
		log:       log.With().Str("handler", "dashboard").Logger(),
	}
}

// Routes mounts the handler's routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/dashboard/snapshot", h.handleSnapshot)
	r.Get("/portfolio/value", h.handleLiveValue)
}

// handleSnapshot serves GET /api/dashboard/snapshot?user_id=&range=.
// The range defaults to ALL when omitted.
func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	rangeToken := r.URL.Query().Get("range")
	if rangeToken == "" {
		rangeToken = "ALL"
	}

	snap, err := h.snapshots.GetSnapshot(r.Context(), userID, rangeToken)
	switch {
	case errors.Is(err, domain.ErrInvalidRange):
		h.writeError(w, http.StatusBadRequest, "unknown range token")
		return
	case errors.Is(err, domain.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, "user not found")
		return
	case err != nil:
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to build dashboard snapshot")
		h.writeError(w, http.StatusInternalServerError, "failed to build dashboard snapshot")
		return
	}

	h.writeJSON(w, http.StatusOK, snap)
}

// handleLiveValue serves GET /api/portfolio/value?user_id=.
func (h *Handler) handleLiveValue(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	user, err := h.users.User(r.Context(), userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		h.writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to load user")
		h.writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	now := time.Now()
	value, err := h.valuator.Value(r.Context(), user, now)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to compute live value")
		h.writeError(w, http.StatusInternalServerError, "failed to compute live value")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"as_of":            now,
		"total_value":      value.TotalValue,
		"investment_value": value.InvestmentValue,
		"cash_balance":     value.CashBalance,
		"prices_fresh":     value.PricesFresh,
	})
}

func (h *Handler) userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("user_id")
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid user_id")
		return 0, false
	}
	return userID, true
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
