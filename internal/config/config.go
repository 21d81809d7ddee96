// Package config provides layered configuration (defaults -> config file ->
// environment variables) for the agent, the ingest service and the training
// scheduler, loaded via Koanf v2.
package config

import (
	"fmt"
	"time"
)

// AgentConfig configures the endpoint Activity Agent (§4.2, §6 of the spec).
type AgentConfig struct {
	UserID   string `koanf:"user_id"`
	ServerURL string `koanf:"server_url"`

	ActivityPollInterval time.Duration `koanf:"activity_poll_interval"`
	UploadInterval       time.Duration `koanf:"upload_interval"`
	RetryBudget          int           `koanf:"retry_budget"`
	RetryBaseDelay       time.Duration `koanf:"retry_base_delay"`
	SendBatchSize        int           `koanf:"send_batch_size"`
	ConnectTimeout        time.Duration `koanf:"connect_timeout"`
	OfflineQueueCapacity  int           `koanf:"offline_queue_capacity"`

	FileMonitorEnabled    bool `koanf:"file_monitor_enabled"`
	ProcessMonitorEnabled bool `koanf:"process_monitor_enabled"`
	NetworkMonitorEnabled bool `koanf:"network_monitor_enabled"`
	LoginMonitorEnabled   bool `koanf:"login_monitor_enabled"`

	SensitivePatterns []string `koanf:"sensitive_patterns"`
	MonitoredPaths    []string `koanf:"monitored_paths"`
}

// DefaultAgentConfig returns the spec's §6 configuration defaults.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		ServerURL:             "http://localhost:8000",
		ActivityPollInterval:  5 * time.Second,
		UploadInterval:        20 * time.Second,
		RetryBudget:           3,
		RetryBaseDelay:        2 * time.Second,
		SendBatchSize:         50,
		ConnectTimeout:        10 * time.Second,
		OfflineQueueCapacity:  1000,
		FileMonitorEnabled:    true,
		ProcessMonitorEnabled: true,
		NetworkMonitorEnabled: true,
		LoginMonitorEnabled:   true,
		SensitivePatterns:     []string{"confidential", "secret", "classified", "internal-only"},
		MonitoredPaths:        defaultMonitoredPaths(),
	}
}

// Validate checks required agent configuration fields.
func (c AgentConfig) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	return nil
}

// IngestConfig configures the central Ingest Service (§4.3, §4.7).
type IngestConfig struct {
	ListenAddr string `koanf:"listen_addr"`

	DatabasePath string `koanf:"database_path"`

	DisplayTimezone string `koanf:"display_timezone"`

	FingerprintCacheSize int           `koanf:"fingerprint_cache_size"`
	FingerprintCacheTTL  time.Duration `koanf:"fingerprint_cache_ttl"`

	AlertSuppressionWindow time.Duration `koanf:"alert_suppression_window"`
	IncidentDedupWindow    time.Duration `koanf:"incident_dedup_window"`

	ThresholdAlertML    float64 `koanf:"threshold_alert_ml"`
	ThresholdThreatML   float64 `koanf:"threshold_threat_ml"`
	ThresholdIncidentML float64 `koanf:"threshold_incident_ml"`

	RateLimitRequestsPerMinute int `koanf:"rate_limit_requests_per_minute"`

	CORSOrigins []string `koanf:"cors_origins"`

	Logging LoggingConfig `koanf:"logging"`
}

// DefaultIngestConfig returns the spec's §6 tunable defaults.
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		ListenAddr:                 "0.0.0.0:8000",
		DatabasePath:               "insiderwatch.duckdb",
		DisplayTimezone:            "Asia/Kolkata",
		FingerprintCacheSize:       10000,
		FingerprintCacheTTL:        48 * time.Hour,
		AlertSuppressionWindow:     24 * time.Hour,
		IncidentDedupWindow:        2 * time.Hour,
		ThresholdAlertML:           0.30,
		ThresholdThreatML:          0.75,
		ThresholdIncidentML:        0.90,
		RateLimitRequestsPerMinute: 600,
		CORSOrigins:                []string{"*"},
		Logging:                    LoggingConfig{Level: "info", Format: "json"},
	}
}

// TrainerConfig configures the long-running training/snapshot scheduler (§4.5, §5).
type TrainerConfig struct {
	DatabasePath      string        `koanf:"database_path"`
	CycleInterval     time.Duration `koanf:"cycle_interval"`
	TrustRecoveryRate int           `koanf:"trust_recovery_rate"`
	Logging           LoggingConfig `koanf:"logging"`
}

// DefaultTrainerConfig returns sensible scheduler defaults.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		DatabasePath:      "insiderwatch.duckdb",
		CycleInterval:     24 * time.Hour,
		TrustRecoveryRate: 1,
		Logging:           LoggingConfig{Level: "info", Format: "json"},
	}
}

// LoggingConfig mirrors logging.Config's koanf-bindable fields.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

func defaultMonitoredPaths() []string {
	home, err := userHomeDir()
	if err != nil {
		return nil
	}
	candidates := []string{
		home + "/Documents",
		home + "/Downloads",
		home + "/Desktop",
	}
	return filterExisting(candidates)
}
