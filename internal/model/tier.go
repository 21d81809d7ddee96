package model

import "time"

// AlertStatus is the lifecycle status of a Tier-1 Anomaly Alert.
type AlertStatus string

const (
	AlertStatusNew        AlertStatus = "new"
	AlertStatusValidated  AlertStatus = "validated"
	AlertStatusDismissed  AlertStatus = "dismissed"
	AlertStatusEscalated  AlertStatus = "escalated"
)

// RiskBand buckets a score into one of four named bands.
type RiskBand string

const (
	RiskLow      RiskBand = "low"
	RiskMedium   RiskBand = "medium"
	RiskHigh     RiskBand = "high"
	RiskCritical RiskBand = "critical"
)

// RiskBandFor classifies a 0..1 score into a RiskBand using the ingest-time
// thresholds (§4.3): critical >= 0.80, high >= 0.60, medium >= 0.40, else low.
func RiskBandFor(score float64) RiskBand {
	switch {
	case score >= 0.80:
		return RiskCritical
	case score >= 0.60:
		return RiskHigh
	case score >= 0.40:
		return RiskMedium
	default:
		return RiskLow
	}
}

// AnomalyAlert is a Tier-1 candidate anomaly.
type AnomalyAlert struct {
	ID             string      `json:"alert_id"`
	UserID         string      `json:"user_id"`
	Fingerprint    string      `json:"fingerprint"`
	MLScore        float64     `json:"ml_score"`
	Confidence     float64     `json:"confidence"`
	ITSScore       float64     `json:"its_score"`
	RiskLevel      RiskBand    `json:"risk_level"`
	Anomalies      []string    `json:"anomalies"`
	Explanation    string      `json:"explanation"`
	Status         AlertStatus `json:"status"`
	Viewed         bool        `json:"viewed"`
	Timestamp      time.Time   `json:"timestamp"`
	SuppressedUntil time.Time  `json:"suppressed_until"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// ThreatCategory enumerates Tier-2 threat classifications.
type ThreatCategory string

const (
	ThreatDataExfiltration   ThreatCategory = "data_exfiltration"
	ThreatUnauthorizedAccess ThreatCategory = "unauthorized_access"
	ThreatSabotage           ThreatCategory = "sabotage"
	ThreatPolicyViolation    ThreatCategory = "policy_violation"
	ThreatSuspiciousActivity ThreatCategory = "suspicious_activity"
)

// TierStatus is shared by Threat and Incident records.
type TierStatus string

const (
	TierStatusOpen     TierStatus = "open"
	TierStatusResolved TierStatus = "resolved"
)

// Threat is a Tier-2 promoted alert.
type Threat struct {
	ID                string         `json:"threat_id"`
	UserID            string         `json:"user_id"`
	Fingerprint       string         `json:"fingerprint"`
	AlertID           string         `json:"alert_id"`
	Category          ThreatCategory `json:"category"`
	ITSScoreAtPromo   float64        `json:"its_score"`
	InvestigationNotes string        `json:"investigation_notes,omitempty"`
	Status            TierStatus     `json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	ResolvedAt        *time.Time     `json:"resolved_at,omitempty"`
}

// IncidentType enumerates the auto-promotion and manual incident types.
type IncidentType string

const (
	IncidentInsiderAttack IncidentType = "insider_attack"
	IncidentGeneral       IncidentType = "general"
)

// Incident is a Tier-3 validated threat or auto-promoted severe alert.
type Incident struct {
	ID          string       `json:"incident_id"`
	UserID      string       `json:"user_id"`
	Fingerprint string       `json:"fingerprint"`
	ThreatID    string       `json:"threat_id,omitempty"`
	Type        IncidentType `json:"type"`
	Severity    RiskBand     `json:"severity"`
	ITSScore    float64      `json:"its_score"`
	Description string       `json:"description"`
	Evidence    map[string]any `json:"evidence,omitempty"`
	Status      TierStatus   `json:"status"`
	Notes       string       `json:"notes,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	ResolvedAt  *time.Time   `json:"resolved_at,omitempty"`
}
