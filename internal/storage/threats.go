package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ashgrover/insiderwatch/internal/model"
)

// CreateThreat inserts a new Tier-2 threat (§4.6 "alert -> threat").
func (s *Store) CreateThreat(ctx context.Context, threat *model.Threat) error {
	if threat.ID == "" {
		threat.ID = uuid.New().String()
	}
	_, err := s.writePool.ExecContext(ctx,
		`INSERT INTO threats (id, user_id, fingerprint, alert_id, category, its_score, investigation_notes, status, created_at, updated_at, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		threat.ID, threat.UserID, threat.Fingerprint, threat.AlertID, string(threat.Category), threat.ITSScoreAtPromo,
		threat.InvestigationNotes, string(threat.Status), toUTC(threat.CreatedAt), toUTC(threat.UpdatedAt), optionalTime(threat.ResolvedAt))
	if err != nil {
		return fmt.Errorf("inserting threat: %w", err)
	}
	return nil
}

// GetThreat fetches a threat by id.
func (s *Store) GetThreat(ctx context.Context, id string) (*model.Threat, error) {
	row := s.readPool.QueryRowContext(ctx,
		`SELECT id, user_id, fingerprint, alert_id, category, its_score, investigation_notes, status, created_at, updated_at, resolved_at
		 FROM threats WHERE id = ?`, id)
	t, err := scanThreat(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// UpdateThreatStatus transitions a threat's status and investigation notes,
// stamping resolved_at when moving to resolved (§4.6 "threat -> resolved").
func (s *Store) UpdateThreatStatus(ctx context.Context, id string, status model.TierStatus, notes string, now time.Time) error {
	var resolvedAt any
	if status == model.TierStatusResolved {
		resolvedAt = toUTC(now)
	}
	_, err := s.writePool.ExecContext(ctx,
		`UPDATE threats SET status = ?, investigation_notes = ?, updated_at = ?, resolved_at = COALESCE(?, resolved_at) WHERE id = ?`,
		string(status), notes, toUTC(now), resolvedAt, id)
	if err != nil {
		return fmt.Errorf("updating threat status: %w", err)
	}
	return nil
}

// ListThreats returns threats, optionally filtered by status.
func (s *Store) ListThreats(ctx context.Context, status string, limit int) ([]model.Threat, error) {
	var rows *sql.Rows
	var err error
	query := `SELECT id, user_id, fingerprint, alert_id, category, its_score, investigation_notes, status, created_at, updated_at, resolved_at FROM threats`
	if status != "" {
		rows, err = s.readPool.QueryContext(ctx, query+` WHERE status = ? ORDER BY created_at DESC LIMIT ?`, status, limit)
	} else {
		rows, err = s.readPool.QueryContext(ctx, query+` ORDER BY created_at DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("listing threats: %w", err)
	}
	defer rows.Close()

	var threats []model.Threat
	for rows.Next() {
		t, err := scanThreat(rows)
		if err != nil {
			return nil, err
		}
		threats = append(threats, *t)
	}
	return threats, rows.Err()
}

func scanThreat(scanner interface{ Scan(...any) error }) (*model.Threat, error) {
	var t model.Threat
	var category, status string
	var resolvedAt sql.NullTime
	if err := scanner.Scan(&t.ID, &t.UserID, &t.Fingerprint, &t.AlertID, &category, &t.ITSScoreAtPromo,
		&t.InvestigationNotes, &status, &t.CreatedAt, &t.UpdatedAt, &resolvedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning threat: %w", err)
	}
	t.Category = model.ThreatCategory(category)
	t.Status = model.TierStatus(status)
	if resolvedAt.Valid {
		rt := resolvedAt.Time
		t.ResolvedAt = &rt
	}
	return &t, nil
}

// optionalTime converts a possibly-nil *time.Time into a driver value,
// shared by threats.go and incidents.go for the resolved_at columns.
func optionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toUTC(*t)
}
