package ingest

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashgrover/insiderwatch/internal/storage"
)

// ListActivities handles GET /api/v1/users/{id}/activities?days=N (§4.7).
func (h *Handlers) ListActivities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "id")
	days := intParam(r, "days", 30)

	activities, err := h.store.ActivitiesForUser(ctx, userID, days)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to list activities", err)
		return
	}
	respondOK(w, "ok", activities)
}

// HistoricalITS handles GET /api/v1/users/{id}/its-history?days=N (§4.7),
// backfilling any missing daily snapshots before responding.
func (h *Handlers) HistoricalITS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "id")
	days := intParam(r, "days", 30)

	history, err := h.service.HistoricalITS(ctx, userID, days)
	if err != nil {
		var unknownUser *storage.UnknownUserError
		if errors.As(err, &unknownUser) {
			respondError(w, http.StatusNotFound, "UNKNOWN_USER", "unknown user id", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to fetch ITS history", err)
		return
	}
	respondOK(w, "ok", history)
}
