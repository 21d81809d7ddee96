// Package escalation implements the three-tier Alert -> Threat -> Incident
// state machine (§4.6): fingerprint-linearizable transitions, suppression,
// and dedup-within-escalation.
package escalation

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/ashgrover/insiderwatch/internal/metrics"
	"github.com/ashgrover/insiderwatch/internal/model"
)

// Thresholds holds the externally tunable escalation parameters (§6).
type Thresholds struct {
	AlertFromML         float64
	ThreatFromML        float64
	IncidentFromML      float64
	AlertSuppression    time.Duration
	IncidentDedupWindow time.Duration
}

// DefaultThresholds returns the spec's named defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AlertFromML:         0.30,
		ThreatFromML:        0.75,
		IncidentFromML:      0.90,
		AlertSuppression:    24 * time.Hour,
		IncidentDedupWindow: 2 * time.Hour,
	}
}

// Store is the persistence surface the state machine reads and writes
// through. Implemented by internal/storage.
type Store interface {
	GetOrCreateFingerprint(ctx context.Context, hash, userID string, now time.Time) (*model.FingerprintRecord, bool, error)
	TouchFingerprint(ctx context.Context, hash string, now time.Time) error
	SuppressFingerprint(ctx context.Context, hash string, until time.Time) error
	MarkFingerprintEscalated(ctx context.Context, hash string) error

	GetOpenAlertByFingerprint(ctx context.Context, fingerprint string) (*model.AnomalyAlert, error)
	CreateAlert(ctx context.Context, alert *model.AnomalyAlert) error
	RefreshAlert(ctx context.Context, alertID string, mlScore float64, risk model.RiskBand, explanation string, now time.Time) error
	MarkAlertEscalated(ctx context.Context, alertID string) error

	CreateThreat(ctx context.Context, threat *model.Threat) error

	GetOpenIncidentForUserSince(ctx context.Context, userID string, since time.Time) (*model.Incident, error)
	CreateIncident(ctx context.Context, incident *model.Incident) error
	UpdateIncident(ctx context.Context, incidentID string, its float64, severity model.RiskBand, now time.Time) error
}

// stripes bounds the number of fingerprint-scoped mutexes; fingerprints hash
// onto a fixed stripe rather than each getting its own lock, keeping memory
// bounded under a high fingerprint cardinality while still serializing the
// "create or refresh" decision for any single fingerprint (§5 "Ordering
// guarantees").
const stripes = 256

// Engine drives fingerprint state transitions per §4.6's table.
type Engine struct {
	store      Store
	thresholds Thresholds
	locks      [stripes]sync.Mutex
}

// New creates an Engine bound to store with the given thresholds.
func New(store Store, thresholds Thresholds) *Engine {
	return &Engine{store: store, thresholds: thresholds}
}

func (e *Engine) lockFor(fingerprint string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fingerprint))
	return &e.locks[h.Sum32()%stripes]
}

// Outcome is the result of processing one detected event through the state
// machine, mapped directly onto the ingest response's status field (§6).
type Outcome struct {
	Status      string // alert_generated, anomaly_alert_created, suppressed, already_escalated
	Alert       *model.AnomalyAlert
	ITSScore    float64
	Promoted    bool
}

// ScoredEvent is the detector's output plus the ITS score already computed
// by the caller, as required at each decision point in §4.3 step 6.
type ScoredEvent struct {
	UserID      string
	Fingerprint string
	MLScore     float64
	Explanation string
	ITSScore    float64
	Now         time.Time
}

// Process runs §4.3 steps 5-6 and §4.6's transition table for one scored
// event. It is linearizable per fingerprint: concurrent calls for the same
// fingerprint serialize on a striped lock (§5).
func (e *Engine) Process(ctx context.Context, ev ScoredEvent) (Outcome, error) {
	lock := e.lockFor(ev.Fingerprint)
	lock.Lock()
	defer lock.Unlock()

	fp, created, err := e.store.GetOrCreateFingerprint(ctx, ev.Fingerprint, ev.UserID, ev.Now)
	if err != nil {
		return Outcome{}, fmt.Errorf("fingerprint lookup: %w", err)
	}

	if !created {
		if fp.Escalated {
			if err := e.store.TouchFingerprint(ctx, ev.Fingerprint, ev.Now); err != nil {
				return Outcome{}, fmt.Errorf("touch escalated fingerprint: %w", err)
			}
			metrics.IngestResponseStatusTotal.WithLabelValues("already_escalated").Inc()
			return Outcome{Status: "already_escalated"}, nil
		}
		if fp.IsSuppressed(ev.Now) {
			if err := e.store.TouchFingerprint(ctx, ev.Fingerprint, ev.Now); err != nil {
				return Outcome{}, fmt.Errorf("touch suppressed fingerprint: %w", err)
			}
			metrics.IngestResponseStatusTotal.WithLabelValues("suppressed").Inc()
			return Outcome{Status: "suppressed"}, nil
		}
	}

	risk := riskBandForEvent(ev.MLScore, ev.ITSScore)

	existing, err := e.store.GetOpenAlertByFingerprint(ctx, ev.Fingerprint)
	if err != nil {
		return Outcome{}, fmt.Errorf("open alert lookup: %w", err)
	}

	var alert *model.AnomalyAlert
	if existing == nil {
		alert = &model.AnomalyAlert{
			UserID:          ev.UserID,
			Fingerprint:     ev.Fingerprint,
			MLScore:         ev.MLScore,
			ITSScore:        ev.ITSScore,
			RiskLevel:       risk,
			Explanation:     ev.Explanation,
			Status:          model.AlertStatusNew,
			Timestamp:       ev.Now,
			SuppressedUntil: ev.Now.Add(e.thresholds.AlertSuppression),
			CreatedAt:       ev.Now,
			UpdatedAt:       ev.Now,
		}
		if err := e.store.CreateAlert(ctx, alert); err != nil {
			return Outcome{}, fmt.Errorf("create alert: %w", err)
		}
		if err := e.store.SuppressFingerprint(ctx, ev.Fingerprint, alert.SuppressedUntil); err != nil {
			return Outcome{}, fmt.Errorf("suppress fingerprint: %w", err)
		}
		metrics.EscalationTransitionsTotal.WithLabelValues("none", "alert").Inc()
	} else {
		alert = existing
		if err := e.store.RefreshAlert(ctx, alert.ID, ev.MLScore, risk, ev.Explanation, ev.Now); err != nil {
			return Outcome{}, fmt.Errorf("refresh alert: %w", err)
		}
		metrics.EscalationTransitionsTotal.WithLabelValues("alert", "alert").Inc()
	}

	promoted := false

	if ev.MLScore >= e.thresholds.ThreatFromML {
		threat := &model.Threat{
			UserID:          ev.UserID,
			Fingerprint:     ev.Fingerprint,
			AlertID:         alert.ID,
			Category:        classifyThreat(ev),
			ITSScoreAtPromo: ev.ITSScore,
			Status:          model.TierStatusOpen,
			CreatedAt:       ev.Now,
			UpdatedAt:       ev.Now,
		}
		if err := e.store.CreateThreat(ctx, threat); err != nil {
			return Outcome{}, fmt.Errorf("create threat: %w", err)
		}
		metrics.EscalationTransitionsTotal.WithLabelValues("alert", "threat").Inc()
		promoted = true
	}

	if shouldAutoPromoteIncident(risk, ev.ITSScore, ev.MLScore) {
		if err := e.autoPromoteIncident(ctx, ev, risk); err != nil {
			return Outcome{}, err
		}
		if err := e.store.MarkAlertEscalated(ctx, alert.ID); err != nil {
			return Outcome{}, fmt.Errorf("mark alert escalated: %w", err)
		}
		if err := e.store.MarkFingerprintEscalated(ctx, ev.Fingerprint); err != nil {
			return Outcome{}, fmt.Errorf("mark fingerprint escalated: %w", err)
		}
		metrics.EscalationTransitionsTotal.WithLabelValues("alert", "incident").Inc()
		promoted = true
	}

	status := "alert_generated"
	if existing != nil {
		status = "anomaly_alert_created"
	}
	metrics.IngestResponseStatusTotal.WithLabelValues(status).Inc()

	return Outcome{Status: status, Alert: alert, ITSScore: ev.ITSScore, Promoted: promoted}, nil
}

// shouldAutoPromoteIncident implements §4.3 step 6 / §4.6's direct
// alert->incident trigger.
func shouldAutoPromoteIncident(risk model.RiskBand, its, mlScore float64) bool {
	switch {
	case risk == model.RiskCritical:
		return true
	case risk == model.RiskHigh && its >= 50:
		return true
	case risk == model.RiskHigh && mlScore >= 0.70:
		return true
	case its >= 65:
		return true
	default:
		return false
	}
}

// autoPromoteIncident implements dedup-within-escalation (§4.6): an open
// incident for the same user created within the dedup window is updated in
// place rather than duplicated.
func (e *Engine) autoPromoteIncident(ctx context.Context, ev ScoredEvent, risk model.RiskBand) error {
	since := ev.Now.Add(-e.thresholds.IncidentDedupWindow)
	existing, err := e.store.GetOpenIncidentForUserSince(ctx, ev.UserID, since)
	if err != nil {
		return fmt.Errorf("open incident lookup: %w", err)
	}
	if existing != nil {
		if err := e.store.UpdateIncident(ctx, existing.ID, ev.ITSScore, risk, ev.Now); err != nil {
			return fmt.Errorf("update incident: %w", err)
		}
		return nil
	}

	incident := &model.Incident{
		UserID:      ev.UserID,
		Fingerprint: ev.Fingerprint,
		Type:        incidentTypeFor(ev),
		Severity:    risk,
		ITSScore:    ev.ITSScore,
		Description: ev.Explanation,
		Status:      model.TierStatusOpen,
		CreatedAt:   ev.Now,
		UpdatedAt:   ev.Now,
	}
	if err := e.store.CreateIncident(ctx, incident); err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

func incidentTypeFor(ev ScoredEvent) model.IncidentType {
	if ev.ITSScore >= 65 {
		return model.IncidentInsiderAttack
	}
	return model.IncidentGeneral
}

func classifyThreat(ev ScoredEvent) model.ThreatCategory {
	// A coarse categorization derived from the explanation text; refined
	// categorization belongs to operator investigation notes, not automation.
	switch {
	case containsAny(ev.Explanation, "data transfer", "attachment"):
		return model.ThreatDataExfiltration
	case containsAny(ev.Explanation, "deletion", "Sabotage"):
		return model.ThreatSabotage
	case containsAny(ev.Explanation, "Suspicious process", "Unusual login"):
		return model.ThreatUnauthorizedAccess
	case containsAny(ev.Explanation, "Sensitive file"):
		return model.ThreatPolicyViolation
	default:
		return model.ThreatSuspiciousActivity
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if indexOf(s, sub) >= 0 {
			return true
		}
	}
	return false
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// riskBandForEvent classifies a scored event per §4.3 step 6's two
// independent, OR'd threshold ladders: ml_score and its each have their own
// critical/high/medium cutoffs, and the higher of the two bands wins. This
// is deliberately not routed through model.RiskBandFor, which applies a
// single ladder to one normalized score and would silently raise the
// effective its thresholds to match ml_score's 0.80/0.60/0.40 scale.
func riskBandForEvent(mlScore, itsScore float64) model.RiskBand {
	switch {
	case mlScore >= 0.80 || itsScore >= 70:
		return model.RiskCritical
	case mlScore >= 0.60 || itsScore >= 50:
		return model.RiskHigh
	case mlScore >= 0.40 || itsScore >= 30:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}
