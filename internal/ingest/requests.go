package ingest

import (
	"fmt"
	"time"

	"github.com/ashgrover/insiderwatch/internal/model"
)

// wireLayouts are tried in order when parsing the agent-supplied timestamp:
// agent-local naive timestamps (no zone, per §6's example payloads) and full
// RFC3339 for agents that do attach an offset.
var wireLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func parseWireTimestamp(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range wireLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, firstErr)
}

// ingestDetails is the flexible wire shape for Activity.details: a superset
// of every kind's fields plus the agent-supplied activity_hour, since the
// agent nests hour-of-day inside details rather than at the envelope's top
// level (§8 scenario 1).
type ingestDetails struct {
	ActivityHour *int  `json:"activity_hour"`
	OffHours     *bool `json:"off_hours"`

	Path      string  `json:"path"`
	SizeMB    float64 `json:"size_mb"`
	Sensitive bool    `json:"sensitive"`
	Action    string  `json:"action"`

	Recipient          string  `json:"recipient"`
	External           bool    `json:"external"`
	AttachmentSizeMB   float64 `json:"attachment_size_mb"`
	SuspiciousKeywords int     `json:"suspicious_keywords"`

	Name       string `json:"name"`
	PID        int    `json:"pid"`
	Suspicious bool   `json:"suspicious"`

	ExternalConnections int     `json:"external_connections"`
	Port                int     `json:"port"`
	SentMB              float64 `json:"sent_mb"`
	ReceivedMB          float64 `json:"received_mb"`

	NewLogin      bool  `json:"new_login"`
	UptimeSeconds int64 `json:"uptime_seconds"`
	GeoAnomaly    bool  `json:"geo_anomaly"`
}

// ingestActivityRequest is the validated shape of the ingest endpoint's body
// (§6 "Ingest endpoint").
type ingestActivityRequest struct {
	UserID       string        `json:"user_id" validate:"required,max=128"`
	Timestamp    string        `json:"timestamp" validate:"required"`
	ActivityType string        `json:"activity_type" validate:"required,oneof=logon file_access email process network"`
	DeviceID     string        `json:"device_id"`
	Details      ingestDetails `json:"details"`
}

// toActivity converts the wire request into the internal model, deriving
// activity_hour from the timestamp when the agent did not supply one and
// always re-deriving off_hours from that hour rather than trusting a
// server-side clock (§8 invariant "off-hours flag ... never derived from
// server time when the agent supplied activity_hour").
func (req ingestActivityRequest) toActivity() (model.Activity, error) {
	ts, err := parseWireTimestamp(req.Timestamp)
	if err != nil {
		return model.Activity{}, err
	}

	hour := ts.Hour()
	if req.Details.ActivityHour != nil {
		hour = *req.Details.ActivityHour
	}

	a := model.Activity{
		UserID:       req.UserID,
		DeviceID:     req.DeviceID,
		Timestamp:    ts,
		ActivityHour: hour,
		OffHours:     model.IsOffHours(hour),
		Kind:         model.ActivityKind(req.ActivityType),
	}

	d := req.Details
	switch a.Kind {
	case model.KindLogon:
		a.Details.Logon = &model.LogonDetails{NewLogin: d.NewLogin, UptimeSeconds: d.UptimeSeconds, GeoAnomaly: d.GeoAnomaly}
	case model.KindFileAccess:
		a.Details.FileAccess = &model.FileAccessDetails{Path: d.Path, SizeMB: d.SizeMB, Sensitive: d.Sensitive, Action: d.Action}
	case model.KindEmail:
		a.Details.Email = &model.EmailDetails{
			Recipient: d.Recipient, External: d.External,
			AttachmentSizeMB: d.AttachmentSizeMB, SuspiciousKeywords: d.SuspiciousKeywords,
		}
	case model.KindProcess:
		a.Details.Process = &model.ProcessDetails{Name: d.Name, PID: d.PID, Suspicious: d.Suspicious}
	case model.KindNetwork:
		a.Details.Network = &model.NetworkDetails{
			ExternalConnections: d.ExternalConnections, Port: d.Port, SentMB: d.SentMB, ReceivedMB: d.ReceivedMB,
		}
	}
	return a, nil
}

// alertResponse is the optional alert payload nested in an ingest response
// (§6).
type alertResponse struct {
	AlertID     string          `json:"alert_id"`
	MLScore     float64         `json:"ml_score"`
	ITSScore    float64         `json:"its_score"`
	RiskLevel   model.RiskBand  `json:"risk_level"`
	Anomalies   []string        `json:"anomalies"`
	Explanation string          `json:"explanation"`
	Timestamp   time.Time       `json:"timestamp"`
}

// ingestActivityResponse is the ingest endpoint's response body (§6).
type ingestActivityResponse struct {
	Status   string         `json:"status"`
	ITSScore float64        `json:"its_score"`
	Alert    *alertResponse `json:"alert,omitempty"`
}
