package ingest

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/ashgrover/insiderwatch/internal/logging"
	"github.com/ashgrover/insiderwatch/internal/storage"
)

// Handlers holds the dependencies shared by every handler in this package.
type Handlers struct {
	service *Service
	store   *storage.Store
}

// NewHandlers constructs the handler set bound to service and store.
func NewHandlers(service *Service, store *storage.Store) *Handlers {
	return &Handlers{service: service, store: store}
}

// IngestActivity handles POST /api/v1/activities — the agent's single-event
// intake (§6 "Ingest endpoint").
func (h *Handlers) IngestActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ingestActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "malformed request body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &APIResponse{Status: "error", Error: apiErr})
		return
	}

	activity, err := req.toActivity()
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "malformed timestamp", err)
		return
	}

	outcome, err := h.service.IngestActivity(ctx, activity)
	if err != nil {
		var unknownUser *storage.UnknownUserError
		if errors.As(err, &unknownUser) {
			respondError(w, http.StatusNotFound, "UNKNOWN_USER", "unknown user id", err)
			return
		}
		logging.Ctx(ctx).Error().Err(err).Str("user_id", sanitizeLogValue(activity.UserID)).Msg("ingest failed")
		respondError(w, http.StatusInternalServerError, "INGEST_FAILED", "failed to process activity", nil)
		return
	}

	resp := ingestActivityResponse{Status: outcome.Status, ITSScore: outcome.ITSScore}
	if outcome.Alert != nil {
		resp.Alert = &alertResponse{
			AlertID:     outcome.Alert.ID,
			MLScore:     outcome.Alert.MLScore,
			ITSScore:    outcome.Alert.ITSScore,
			RiskLevel:   outcome.Alert.RiskLevel,
			Anomalies:   outcome.Alert.Anomalies,
			Explanation: outcome.Alert.Explanation,
			Timestamp:   outcome.Alert.Timestamp,
		}
	}
	respondOK(w, "ok", resp)
}

// GetUser handles GET /api/v1/users/{id} — the agent's startup handshake and
// the dashboard's user lookup (§6 "User lookup").
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "id")

	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "LOOKUP_FAILED", "failed to look up user", err)
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
		return
	}
	respondOK(w, "ok", user)
}

// ListUsers handles GET /api/v1/users.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.store.ListUsers(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "LOOKUP_FAILED", "failed to list users", err)
		return
	}
	respondOK(w, "ok", users)
}

// DashboardStats handles GET /api/v1/dashboard/stats (§4.7).
func (h *Handlers) DashboardStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.store.DashboardStats(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to compute dashboard stats", err)
		return
	}
	respondOK(w, "ok", stats)
}
