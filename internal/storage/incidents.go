package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/ashgrover/insiderwatch/internal/model"
)

// CreateIncident inserts a new Tier-3 incident, assigning the human-facing
// sequence number from incidents_seq (§4.6, §4.7 "INC00001"-style ids read
// back by ParseIncidentReference).
func (s *Store) CreateIncident(ctx context.Context, incident *model.Incident) error {
	if incident.ID == "" {
		incident.ID = uuid.New().String()
	}
	evidenceJSON, err := json.Marshal(incident.Evidence)
	if err != nil {
		return fmt.Errorf("marshaling evidence: %w", err)
	}

	var seq int64
	row := s.writePool.QueryRowContext(ctx, `SELECT nextval('incidents_seq')`)
	if err := row.Scan(&seq); err != nil {
		return fmt.Errorf("allocating incident sequence: %w", err)
	}

	_, err = s.writePool.ExecContext(ctx,
		`INSERT INTO incidents (id, seq, user_id, fingerprint, threat_id, type, severity, its_score, description, evidence_json, status, notes, created_at, updated_at, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		incident.ID, seq, incident.UserID, incident.Fingerprint, incident.ThreatID, string(incident.Type),
		string(incident.Severity), incident.ITSScore, incident.Description, string(evidenceJSON),
		string(incident.Status), incident.Notes, toUTC(incident.CreatedAt), toUTC(incident.UpdatedAt), optionalTime(incident.ResolvedAt))
	if err != nil {
		return fmt.Errorf("inserting incident: %w", err)
	}
	return nil
}

// GetOpenIncidentForUserSince implements incident dedup-within-escalation
// (§4.6 "same user, open incident created within the dedup window").
func (s *Store) GetOpenIncidentForUserSince(ctx context.Context, userID string, since time.Time) (*model.Incident, error) {
	row := s.readPool.QueryRowContext(ctx,
		`SELECT id, seq, user_id, fingerprint, threat_id, type, severity, its_score, description, evidence_json, status, notes, created_at, updated_at, resolved_at
		 FROM incidents WHERE user_id = ? AND status = 'open' AND created_at >= ?
		 ORDER BY created_at DESC LIMIT 1`, userID, toUTC(since))
	incident, err := scanIncident(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return incident, err
}

// GetIncidentByFingerprint returns the most recent incident for fingerprint,
// if any. Used by the manual alert->incident conversion endpoint to make
// re-conversion idempotent (§8 "Manual alert->incident conversion on an
// already-converted alert returns the original incident, not a new one").
func (s *Store) GetIncidentByFingerprint(ctx context.Context, fingerprint string) (*model.Incident, error) {
	row := s.readPool.QueryRowContext(ctx,
		`SELECT id, seq, user_id, fingerprint, threat_id, type, severity, its_score, description, evidence_json, status, notes, created_at, updated_at, resolved_at
		 FROM incidents WHERE fingerprint = ? ORDER BY created_at DESC LIMIT 1`, fingerprint)
	incident, err := scanIncident(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return incident, err
}

// GetIncidentByThreatID returns the incident promoted from threatID, if any,
// making manual threat->incident promotion idempotent on replay.
func (s *Store) GetIncidentByThreatID(ctx context.Context, threatID string) (*model.Incident, error) {
	row := s.readPool.QueryRowContext(ctx,
		`SELECT id, seq, user_id, fingerprint, threat_id, type, severity, its_score, description, evidence_json, status, notes, created_at, updated_at, resolved_at
		 FROM incidents WHERE threat_id = ? ORDER BY created_at DESC LIMIT 1`, threatID)
	incident, err := scanIncident(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return incident, err
}

// UpdateIncident refreshes an existing incident's score/severity/timestamp
// in place, rather than creating a duplicate within the dedup window.
func (s *Store) UpdateIncident(ctx context.Context, incidentID string, its float64, severity model.RiskBand, now time.Time) error {
	_, err := s.writePool.ExecContext(ctx,
		`UPDATE incidents SET its_score = ?, severity = ?, updated_at = ? WHERE id = ?`,
		its, string(severity), toUTC(now), incidentID)
	if err != nil {
		return fmt.Errorf("updating incident: %w", err)
	}
	return nil
}

// GetIncident fetches an incident by id.
func (s *Store) GetIncident(ctx context.Context, id string) (*model.Incident, error) {
	row := s.readPool.QueryRowContext(ctx,
		`SELECT id, seq, user_id, fingerprint, threat_id, type, severity, its_score, description, evidence_json, status, notes, created_at, updated_at, resolved_at
		 FROM incidents WHERE id = ?`, id)
	incident, err := scanIncident(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return incident, err
}

// GetIncidentBySeq fetches an incident by its human-facing sequence number.
func (s *Store) GetIncidentBySeq(ctx context.Context, seq int64) (*model.Incident, error) {
	row := s.readPool.QueryRowContext(ctx,
		`SELECT id, seq, user_id, fingerprint, threat_id, type, severity, its_score, description, evidence_json, status, notes, created_at, updated_at, resolved_at
		 FROM incidents WHERE seq = ?`, seq)
	incident, err := scanIncident(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return incident, err
}

// ResolveIncident transitions an incident to resolved, recording notes.
func (s *Store) ResolveIncident(ctx context.Context, id, notes string, now time.Time) error {
	_, err := s.writePool.ExecContext(ctx,
		`UPDATE incidents SET status = ?, notes = ?, updated_at = ?, resolved_at = ? WHERE id = ?`,
		string(model.TierStatusResolved), notes, toUTC(now), toUTC(now), id)
	if err != nil {
		return fmt.Errorf("resolving incident: %w", err)
	}
	return nil
}

// ListIncidents returns incidents, optionally filtered by status.
func (s *Store) ListIncidents(ctx context.Context, status string, limit int) ([]model.Incident, error) {
	var rows *sql.Rows
	var err error
	query := `SELECT id, seq, user_id, fingerprint, threat_id, type, severity, its_score, description, evidence_json, status, notes, created_at, updated_at, resolved_at FROM incidents`
	if status != "" {
		rows, err = s.readPool.QueryContext(ctx, query+` WHERE status = ? ORDER BY created_at DESC LIMIT ?`, status, limit)
	} else {
		rows, err = s.readPool.QueryContext(ctx, query+` ORDER BY created_at DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("listing incidents: %w", err)
	}
	defer rows.Close()

	var incidents []model.Incident
	for rows.Next() {
		i, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, *i)
	}
	return incidents, rows.Err()
}

func scanIncident(scanner interface{ Scan(...any) error }) (*model.Incident, error) {
	var i model.Incident
	var seq int64
	var incidentType, severity, status, evidenceJSON string
	var resolvedAt sql.NullTime
	if err := scanner.Scan(&i.ID, &seq, &i.UserID, &i.Fingerprint, &i.ThreatID, &incidentType, &severity,
		&i.ITSScore, &i.Description, &evidenceJSON, &status, &i.Notes, &i.CreatedAt, &i.UpdatedAt, &resolvedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning incident: %w", err)
	}
	i.Type = model.IncidentType(incidentType)
	i.Severity = model.RiskBand(severity)
	i.Status = model.TierStatus(status)
	if resolvedAt.Valid {
		rt := resolvedAt.Time
		i.ResolvedAt = &rt
	}
	if evidenceJSON != "" {
		if err := json.Unmarshal([]byte(evidenceJSON), &i.Evidence); err != nil {
			return nil, fmt.Errorf("unmarshaling evidence: %w", err)
		}
	}
	_ = seq // surfaced via GetIncidentBySeq/ParseIncidentReference, not the struct
	return &i, nil
}

// IncidentReference returns an incident's human-facing "INCxxxxx" display
// id, or "" if the incident does not exist.
func (s *Store) IncidentReference(ctx context.Context, id string) (string, error) {
	var seq int64
	row := s.readPool.QueryRowContext(ctx, `SELECT seq FROM incidents WHERE id = ?`, id)
	if err := row.Scan(&seq); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("looking up incident sequence: %w", err)
	}
	return FormatIncidentReference(seq), nil
}

const incidentSeqPrefix = "INC"

// ParseIncidentReference accepts the three id forms an operator might submit
// for a manual alert/threat -> incident conversion: a raw numeric sequence
// ("1"), a zero-padded sequence ("00001"), or the prefixed display form
// ("INC00001"). It returns the numeric sequence.
func ParseIncidentReference(ref string) (int64, error) {
	trimmed := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(ref)), incidentSeqPrefix)
	trimmed = strings.TrimLeft(trimmed, "0")
	if trimmed == "" {
		trimmed = "0"
	}
	seq, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing incident reference %q: %w", ref, err)
	}
	return seq, nil
}

// FormatIncidentReference renders an incident's human-facing id, "INC"
// followed by the sequence zero-padded to five digits.
func FormatIncidentReference(seq int64) string {
	return fmt.Sprintf("%s%05d", incidentSeqPrefix, seq)
}
