package storage

import (
	"context"
	"fmt"

	"github.com/ashgrover/insiderwatch/internal/model"
)

// DashboardStats is the read-side aggregate summary (§4.7 "dashboard
// statistics").
type DashboardStats struct {
	TotalUsers    int     `json:"total_users"`
	ActiveThreats int     `json:"active_threats"`
	UnreadAlerts  int     `json:"unread_alerts"`
	AverageITS    float64 `json:"average_its"`
	HighRiskUsers int     `json:"high_risk_users"`
}

// DashboardStats computes the summary over the latest per-user ITS
// snapshot. "Active threats" counts users whose most recent ITS score is
// >= 50; "high-risk users" counts risk_level in {high, critical} (§8
// scenario 5: a zero-activity user still counts, at its_score=5/low).
func (s *Store) DashboardStats(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats

	if err := s.readPool.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&stats.TotalUsers); err != nil {
		return stats, fmt.Errorf("counting users: %w", err)
	}

	if err := s.readPool.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts WHERE viewed = FALSE`).Scan(&stats.UnreadAlerts); err != nil {
		return stats, fmt.Errorf("counting unread alerts: %w", err)
	}

	row := s.readPool.QueryRowContext(ctx, `
		WITH latest AS (
			SELECT user_id, score, risk_level,
				ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY day DESC) AS rn
			FROM its_snapshots
		)
		SELECT
			COALESCE(SUM(CASE WHEN score >= 50 THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(score), 0),
			COALESCE(SUM(CASE WHEN risk_level IN ('high', 'critical') THEN 1 ELSE 0 END), 0)
		FROM latest WHERE rn = 1`)
	if err := row.Scan(&stats.ActiveThreats, &stats.AverageITS, &stats.HighRiskUsers); err != nil {
		return stats, fmt.Errorf("aggregating its snapshots: %w", err)
	}

	return stats, nil
}

// ListUsers returns every known user.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.readPool.QueryContext(ctx, `SELECT id, username, role, department FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role, &u.Department); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
