// Package model defines the core entities shared across the agent, the
// ingest service and the training scheduler: activities, the three
// escalation tiers, fingerprints, baselines and historical ITS snapshots.
package model

import "time"

// ActivityKind identifies one of the five closed activity types.
type ActivityKind string

const (
	KindLogon      ActivityKind = "logon"
	KindFileAccess ActivityKind = "file_access"
	KindEmail      ActivityKind = "email"
	KindProcess    ActivityKind = "process"
	KindNetwork    ActivityKind = "network"
)

// Activity is a single observed endpoint event, normalized by the agent and
// persisted exactly once by the ingest service.
type Activity struct {
	ID         string       `json:"id,omitempty"`
	UserID     string       `json:"user_id"`
	DeviceID   string       `json:"device_id,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
	ActivityHour int        `json:"activity_hour"`
	OffHours   bool         `json:"off_hours"`
	Kind       ActivityKind `json:"activity_type"`
	Details    ActivityDetails `json:"details"`
}

// ActivityDetails is a tagged union over the five activity kinds. Exactly
// one of the embedded detail structs is meaningful, selected by Activity.Kind;
// all fields carry zero values that degrade gracefully when absent from the
// inbound payload.
type ActivityDetails struct {
	Logon      *LogonDetails      `json:"logon,omitempty"`
	FileAccess *FileAccessDetails `json:"file_access,omitempty"`
	Email      *EmailDetails      `json:"email,omitempty"`
	Process    *ProcessDetails    `json:"process,omitempty"`
	Network    *NetworkDetails    `json:"network,omitempty"`
}

// LogonDetails describes a session heartbeat or new-login event.
type LogonDetails struct {
	NewLogin      bool  `json:"new_login"`
	UptimeSeconds int64 `json:"uptime_seconds"`
	// GeoAnomaly flags a logon whose apparent location disagrees with the
	// user's established pattern (§4.5 "geographic anomaly count").
	GeoAnomaly bool `json:"geo_anomaly"`
}

// FileAccessDetails describes a file-system observation.
type FileAccessDetails struct {
	Path      string  `json:"path"`
	SizeMB    float64 `json:"size_mb"`
	Sensitive bool    `json:"sensitive"`
	Action    string  `json:"action"` // read, write, delete
}

// EmailDetails describes an outbound/inbound email observation.
type EmailDetails struct {
	Recipient          string  `json:"recipient,omitempty"`
	External           bool    `json:"external"`
	AttachmentSizeMB   float64 `json:"attachment_size_mb"`
	SuspiciousKeywords int     `json:"suspicious_keywords"`
}

// ProcessDetails describes a process-table observation.
type ProcessDetails struct {
	Name       string `json:"name"`
	PID        int    `json:"pid,omitempty"`
	Suspicious bool   `json:"suspicious"`
}

// NetworkDetails describes a connection-table/NIC-counter observation.
type NetworkDetails struct {
	ExternalConnections int     `json:"external_connections"`
	Port                int     `json:"port,omitempty"`
	SentMB              float64 `json:"sent_mb"`
	ReceivedMB          float64 `json:"received_mb"`
}

// User is the minimal identity record the ingest service validates against.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

// IsOffHours reports whether an hour-of-day in [0,24) falls outside the
// working window [7, 19).
func IsOffHours(hour int) bool {
	return hour < 7 || hour >= 19
}
