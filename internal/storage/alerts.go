package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/ashgrover/insiderwatch/internal/model"
)

// CreateAlert inserts a new Tier-1 alert, assigning an id if absent.
func (s *Store) CreateAlert(ctx context.Context, alert *model.AnomalyAlert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	anomaliesJSON, err := json.Marshal(alert.Anomalies)
	if err != nil {
		return fmt.Errorf("marshaling anomalies: %w", err)
	}

	_, err = s.writePool.ExecContext(ctx,
		`INSERT INTO alerts (id, user_id, fingerprint, ml_score, its_score, risk_level, anomalies_json, explanation, status, viewed, timestamp, suppressed_until, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, FALSE, ?, ?, ?, ?)`,
		alert.ID, alert.UserID, alert.Fingerprint, alert.MLScore, alert.ITSScore, string(alert.RiskLevel),
		string(anomaliesJSON), alert.Explanation, string(alert.Status), toUTC(alert.Timestamp),
		toUTC(alert.SuppressedUntil), toUTC(alert.CreatedAt), toUTC(alert.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}
	return nil
}

// GetOpenAlertByFingerprint returns the alert in status new/validated for
// fingerprint, or nil if none (§8 "No two alerts with the same fingerprint
// coexist in status ∈ {new, validated}").
func (s *Store) GetOpenAlertByFingerprint(ctx context.Context, fingerprint string) (*model.AnomalyAlert, error) {
	row := s.readPool.QueryRowContext(ctx,
		`SELECT id, user_id, fingerprint, ml_score, its_score, risk_level, anomalies_json, explanation, status, viewed, timestamp, suppressed_until, created_at, updated_at
		 FROM alerts WHERE fingerprint = ? AND status IN ('new', 'validated')
		 ORDER BY created_at DESC LIMIT 1`, fingerprint)
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return alert, err
}

// GetAlert fetches an alert by id.
func (s *Store) GetAlert(ctx context.Context, id string) (*model.AnomalyAlert, error) {
	row := s.readPool.QueryRowContext(ctx,
		`SELECT id, user_id, fingerprint, ml_score, its_score, risk_level, anomalies_json, explanation, status, viewed, timestamp, suppressed_until, created_at, updated_at
		 FROM alerts WHERE id = ?`, id)
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return alert, err
}

// RefreshAlert updates an existing alert in place (§4.6 "alert -> alert
// (refresh)").
func (s *Store) RefreshAlert(ctx context.Context, alertID string, mlScore float64, risk model.RiskBand, explanation string, now time.Time) error {
	_, err := s.writePool.ExecContext(ctx,
		`UPDATE alerts SET ml_score = ?, risk_level = ?, explanation = ?, timestamp = ?, updated_at = ? WHERE id = ?`,
		mlScore, string(risk), explanation, toUTC(now), toUTC(now), alertID)
	if err != nil {
		return fmt.Errorf("refreshing alert: %w", err)
	}
	return nil
}

// MarkAlertEscalated flips an alert's status to escalated on auto-promotion
// to incident (§4.3 step 6).
func (s *Store) MarkAlertEscalated(ctx context.Context, alertID string) error {
	_, err := s.writePool.ExecContext(ctx,
		`UPDATE alerts SET status = ?, updated_at = ? WHERE id = ?`,
		string(model.AlertStatusEscalated), toUTC(time.Now()), alertID)
	if err != nil {
		return fmt.Errorf("marking alert escalated: %w", err)
	}
	return nil
}

// UpdateAlertStatus sets an alert's status directly, for the operator-facing
// manual review workflow (validate/dismiss) rather than the escalation
// engine's own transitions (§6 "status update ... on any tier record").
func (s *Store) UpdateAlertStatus(ctx context.Context, id string, status model.AlertStatus) error {
	_, err := s.writePool.ExecContext(ctx,
		`UPDATE alerts SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), toUTC(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating alert status: %w", err)
	}
	return nil
}

// MarkAlertViewed marks an alert as viewed. Idempotent: a second call is a
// no-op (§8 "Marking-viewed twice is a no-op on the second call").
func (s *Store) MarkAlertViewed(ctx context.Context, alertID string) error {
	_, err := s.writePool.ExecContext(ctx,
		`UPDATE alerts SET viewed = TRUE WHERE id = ? AND viewed = FALSE`, alertID)
	if err != nil {
		return fmt.Errorf("marking alert viewed: %w", err)
	}
	return nil
}

// ListAlerts returns alerts, optionally filtered by status, newest first.
func (s *Store) ListAlerts(ctx context.Context, status string, limit int) ([]model.AnomalyAlert, error) {
	var rows *sql.Rows
	var err error
	query := `SELECT id, user_id, fingerprint, ml_score, its_score, risk_level, anomalies_json, explanation, status, viewed, timestamp, suppressed_until, created_at, updated_at FROM alerts`
	if status != "" {
		rows, err = s.readPool.QueryContext(ctx, query+` WHERE status = ? ORDER BY created_at DESC LIMIT ?`, status, limit)
	} else {
		rows, err = s.readPool.QueryContext(ctx, query+` ORDER BY created_at DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.AnomalyAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func scanAlert(scanner interface{ Scan(...any) error }) (*model.AnomalyAlert, error) {
	var a model.AnomalyAlert
	var riskLevel, anomaliesJSON, status string
	if err := scanner.Scan(&a.ID, &a.UserID, &a.Fingerprint, &a.MLScore, &a.ITSScore, &riskLevel, &anomaliesJSON,
		&a.Explanation, &status, &a.Viewed, &a.Timestamp, &a.SuppressedUntil, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning alert: %w", err)
	}
	a.RiskLevel = model.RiskBand(riskLevel)
	a.Status = model.AlertStatus(status)
	if err := json.Unmarshal([]byte(anomaliesJSON), &a.Anomalies); err != nil {
		return nil, fmt.Errorf("unmarshaling anomalies: %w", err)
	}
	return &a, nil
}
