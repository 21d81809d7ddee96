package ingest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/ashgrover/insiderwatch/internal/model"
	"github.com/ashgrover/insiderwatch/internal/storage"
)

// incidentResponse enriches an incident with its human-facing "INCxxxxx"
// reference (§4.7), since model.Incident itself carries only the raw seq.
type incidentResponse struct {
	model.Incident
	Reference string `json:"reference"`
}

func (h *Handlers) withReference(ctx context.Context, incident model.Incident) incidentResponse {
	ref, _ := h.store.IncidentReference(ctx, incident.ID)
	return incidentResponse{Incident: incident, Reference: ref}
}

// resolveIncidentRef looks an incident up by whatever form the operator
// submitted: a raw UUID, or a numeric/prefixed sequence reference ("1",
// "00001", "INC00001") (§4.7, §6 "the handler parses both numeric and
// prefixed forms"). Returns nil, nil if nothing matches either form.
func (h *Handlers) resolveIncidentRef(ctx context.Context, ref string) (*model.Incident, error) {
	if incident, err := h.store.GetIncident(ctx, ref); err != nil {
		return nil, err
	} else if incident != nil {
		return incident, nil
	}

	seq, err := storage.ParseIncidentReference(ref)
	if err != nil {
		return nil, nil
	}
	return h.store.GetIncidentBySeq(ctx, seq)
}

// ListAlerts handles GET /api/v1/alerts?status=&limit=.
func (h *Handlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := r.URL.Query().Get("status")
	limit := intParam(r, "limit", 100)

	alerts, err := h.store.ListAlerts(ctx, status, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to list alerts", err)
		return
	}
	respondOK(w, "ok", alerts)
}

// GetAlert handles GET /api/v1/alerts/{id}.
func (h *Handlers) GetAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	alert, err := h.store.GetAlert(ctx, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to fetch alert", err)
		return
	}
	if alert == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "alert not found", nil)
		return
	}
	respondOK(w, "ok", alert)
}

// ViewAlert handles POST /api/v1/alerts/{id}/view — idempotent (§8 "Marking
// viewed twice is a no-op on the second call").
func (h *Handlers) ViewAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.store.MarkAlertViewed(ctx, id); err != nil {
		respondError(w, http.StatusInternalServerError, "UPDATE_FAILED", "failed to mark alert viewed", err)
		return
	}
	respondOK(w, "ok", nil)
}

type alertStatusRequest struct {
	Status model.AlertStatus `json:"status" validate:"required,oneof=new validated dismissed escalated"`
}

// UpdateAlertStatus handles PATCH /api/v1/alerts/{id}/status — the operator's
// validate/dismiss review action (§6 "status update ... on any tier record").
func (h *Handlers) UpdateAlertStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req alertStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "malformed request body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &APIResponse{Status: "error", Error: apiErr})
		return
	}

	if err := h.store.UpdateAlertStatus(ctx, id, req.Status); err != nil {
		respondError(w, http.StatusInternalServerError, "UPDATE_FAILED", "failed to update alert status", err)
		return
	}
	respondOK(w, "ok", nil)
}

// ConvertAlertToIncident handles POST /api/v1/alerts/{id}/convert-to-incident,
// the operator's manual Tier-1 -> Tier-3 escalation. Idempotent: converting an
// already-converted alert returns the original incident rather than creating
// a duplicate (§8).
func (h *Handlers) ConvertAlertToIncident(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	alert, err := h.store.GetAlert(ctx, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to fetch alert", err)
		return
	}
	if alert == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "alert not found", nil)
		return
	}

	if existing, err := h.store.GetIncidentByFingerprint(ctx, alert.Fingerprint); err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to check for existing incident", err)
		return
	} else if existing != nil {
		respondOK(w, "ok", h.withReference(ctx, *existing))
		return
	}

	now := time.Now().UTC()
	incident := model.Incident{
		UserID:      alert.UserID,
		Fingerprint: alert.Fingerprint,
		Type:        model.IncidentGeneral,
		Severity:    alert.RiskLevel,
		ITSScore:    alert.ITSScore,
		Description: "manually converted from alert: " + alert.Explanation,
		Status:      model.TierStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.CreateIncident(ctx, &incident); err != nil {
		respondError(w, http.StatusInternalServerError, "CREATE_FAILED", "failed to create incident", err)
		return
	}
	if err := h.store.MarkAlertEscalated(ctx, alert.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "UPDATE_FAILED", "failed to mark alert escalated", err)
		return
	}
	respondOK(w, "alert_generated", h.withReference(ctx, incident))
}

// ListThreats handles GET /api/v1/threats?status=&limit=.
func (h *Handlers) ListThreats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := r.URL.Query().Get("status")
	limit := intParam(r, "limit", 100)

	threats, err := h.store.ListThreats(ctx, status, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to list threats", err)
		return
	}
	respondOK(w, "ok", threats)
}

// GetThreat handles GET /api/v1/threats/{id}.
func (h *Handlers) GetThreat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	threat, err := h.store.GetThreat(ctx, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to fetch threat", err)
		return
	}
	if threat == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "threat not found", nil)
		return
	}
	respondOK(w, "ok", threat)
}

type threatStatusRequest struct {
	Status model.TierStatus `json:"status" validate:"required,oneof=open resolved"`
	Notes  string           `json:"notes"`
}

// UpdateThreatStatus handles PATCH /api/v1/threats/{id}/status — covers both
// investigation-note updates and the open->resolved transition.
func (h *Handlers) UpdateThreatStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req threatStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "malformed request body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &APIResponse{Status: "error", Error: apiErr})
		return
	}

	if err := h.store.UpdateThreatStatus(ctx, id, req.Status, req.Notes, time.Now().UTC()); err != nil {
		respondError(w, http.StatusInternalServerError, "UPDATE_FAILED", "failed to update threat status", err)
		return
	}
	respondOK(w, "ok", nil)
}

// PromoteThreatToIncident handles POST /api/v1/threats/{id}/promote, the
// operator's manual Tier-2 -> Tier-3 escalation. Idempotent on the threat's
// existing incident, matched by threat id rather than by re-deriving it from
// the fingerprint, since a threat's own fingerprint may since have produced
// an unrelated auto-promoted incident.
func (h *Handlers) PromoteThreatToIncident(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	threat, err := h.store.GetThreat(ctx, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to fetch threat", err)
		return
	}
	if threat == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "threat not found", nil)
		return
	}

	if existing, err := h.store.GetIncidentByThreatID(ctx, threat.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to check for existing incident", err)
		return
	} else if existing != nil {
		respondOK(w, "ok", h.withReference(ctx, *existing))
		return
	}

	now := time.Now().UTC()
	incident := model.Incident{
		UserID:      threat.UserID,
		Fingerprint: threat.Fingerprint,
		ThreatID:    threat.ID,
		Type:        model.IncidentGeneral,
		Severity:    model.RiskBandFor(threat.ITSScoreAtPromo / 100),
		ITSScore:    threat.ITSScoreAtPromo,
		Description: "manually promoted from threat (" + string(threat.Category) + ")",
		Status:      model.TierStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.CreateIncident(ctx, &incident); err != nil {
		respondError(w, http.StatusInternalServerError, "CREATE_FAILED", "failed to create incident", err)
		return
	}
	if err := h.store.UpdateThreatStatus(ctx, threat.ID, model.TierStatusResolved, threat.InvestigationNotes, now); err != nil {
		respondError(w, http.StatusInternalServerError, "UPDATE_FAILED", "failed to resolve promoted threat", err)
		return
	}
	respondOK(w, "alert_generated", h.withReference(ctx, incident))
}

// ListIncidents handles GET /api/v1/incidents?status=&limit=.
func (h *Handlers) ListIncidents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := r.URL.Query().Get("status")
	limit := intParam(r, "limit", 100)

	incidents, err := h.store.ListIncidents(ctx, status, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to list incidents", err)
		return
	}
	responses := make([]incidentResponse, 0, len(incidents))
	for _, incident := range incidents {
		responses = append(responses, h.withReference(ctx, incident))
	}
	respondOK(w, "ok", responses)
}

// GetIncident handles GET /api/v1/incidents/{id}.
func (h *Handlers) GetIncident(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	incident, err := h.resolveIncidentRef(ctx, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to fetch incident", err)
		return
	}
	if incident == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "incident not found", nil)
		return
	}
	respondOK(w, "ok", h.withReference(ctx, *incident))
}

type resolveRequest struct {
	Notes string `json:"notes"`
}

// ResolveIncident handles POST /api/v1/incidents/{id}/resolve.
func (h *Handlers) ResolveIncident(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req resolveRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "malformed request body", err)
			return
		}
	}

	incident, err := h.resolveIncidentRef(ctx, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to fetch incident", err)
		return
	}
	if incident == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "incident not found", nil)
		return
	}

	if err := h.store.ResolveIncident(ctx, incident.ID, req.Notes, time.Now().UTC()); err != nil {
		respondError(w, http.StatusInternalServerError, "UPDATE_FAILED", "failed to resolve incident", err)
		return
	}
	respondOK(w, "ok", nil)
}
