// Package storage implements the Persistence & Query layer (§4.7): a
// DuckDB-backed store for activities, the three escalation tiers,
// fingerprints, and historical ITS snapshots, plus the read-side dashboard
// and timeline queries.
package storage

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT '',
	department TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS activities (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	device_id TEXT NOT NULL DEFAULT '',
	timestamp TIMESTAMP NOT NULL,
	activity_hour INTEGER NOT NULL,
	off_hours BOOLEAN NOT NULL,
	kind TEXT NOT NULL,
	details_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activities_user_ts ON activities(user_id, timestamp);

CREATE TABLE IF NOT EXISTS fingerprints (
	hash TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	first_seen TIMESTAMP NOT NULL,
	last_seen TIMESTAMP NOT NULL,
	observation_count INTEGER NOT NULL DEFAULT 1,
	escalated BOOLEAN NOT NULL DEFAULT FALSE,
	suppressed_until TIMESTAMP
);

CREATE TABLE IF NOT EXISTS alerts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	ml_score DOUBLE NOT NULL,
	its_score DOUBLE NOT NULL DEFAULT 0,
	risk_level TEXT NOT NULL,
	anomalies_json TEXT NOT NULL DEFAULT '[]',
	explanation TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	viewed BOOLEAN NOT NULL DEFAULT FALSE,
	timestamp TIMESTAMP NOT NULL,
	suppressed_until TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_fingerprint ON alerts(fingerprint);
CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);

CREATE TABLE IF NOT EXISTS threats (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	alert_id TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL,
	its_score DOUBLE NOT NULL DEFAULT 0,
	investigation_notes TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	resolved_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_threats_status ON threats(status);

CREATE TABLE IF NOT EXISTS incidents (
	id TEXT PRIMARY KEY,
	seq INTEGER NOT NULL,
	user_id TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	threat_id TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL,
	severity TEXT NOT NULL,
	its_score DOUBLE NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT '',
	evidence_json TEXT NOT NULL DEFAULT '{}',
	status TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	resolved_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_incidents_status ON incidents(status);
CREATE SEQUENCE IF NOT EXISTS incidents_seq START 1;

CREATE TABLE IF NOT EXISTS its_snapshots (
	user_id TEXT NOT NULL,
	day TIMESTAMP NOT NULL,
	score DOUBLE NOT NULL,
	risk_level TEXT NOT NULL,
	alert_count INTEGER NOT NULL DEFAULT 0,
	activity_count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, day)
);

CREATE TABLE IF NOT EXISTS trained_weights (
	name TEXT PRIMARY KEY,
	payload_json TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`
