package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ashgrover/insiderwatch/internal/model"
)

// UpsertITSSnapshot records the day's ITS score for a user, idempotently
// (§4.7 "re-running the same day's snapshot must not create duplicate
// rows"). day is normalized to midnight UTC so repeated calls within the
// same day collide on the PRIMARY KEY (user_id, day).
func (s *Store) UpsertITSSnapshot(ctx context.Context, snap model.HistoricalITSSnapshot) error {
	day := midnightUTC(snap.Day)
	_, err := s.writePool.ExecContext(ctx,
		`INSERT INTO its_snapshots (user_id, day, score, risk_level, alert_count, activity_count)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, day) DO UPDATE SET
			score = excluded.score,
			risk_level = excluded.risk_level,
			alert_count = excluded.alert_count,
			activity_count = excluded.activity_count`,
		snap.UserID, day, snap.Score, string(snap.RiskLevel), snap.AlertCount, snap.ActivityCount)
	if err != nil {
		return fmt.Errorf("upserting its snapshot: %w", err)
	}
	return nil
}

// HistoricalITS returns a user's ITS snapshots over the trailing n days,
// oldest first. A day with no snapshot row is simply absent from the
// result; this is the raw read — ingest.Service.HistoricalITS is the one
// that backfills missing days before a caller sees them (§4.7).
func (s *Store) HistoricalITS(ctx context.Context, userID string, days int) ([]model.HistoricalITSSnapshot, error) {
	since := midnightUTC(time.Now().AddDate(0, 0, -days))
	rows, err := s.readPool.QueryContext(ctx,
		`SELECT user_id, day, score, risk_level, alert_count, activity_count
		 FROM its_snapshots WHERE user_id = ? AND day >= ? ORDER BY day ASC`,
		userID, since)
	if err != nil {
		return nil, fmt.Errorf("querying its snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []model.HistoricalITSSnapshot
	for rows.Next() {
		var snap model.HistoricalITSSnapshot
		var riskLevel string
		if err := rows.Scan(&snap.UserID, &snap.Day, &snap.Score, &riskLevel, &snap.AlertCount, &snap.ActivityCount); err != nil {
			return nil, fmt.Errorf("scanning its snapshot: %w", err)
		}
		snap.RiskLevel = model.RiskBand(riskLevel)
		snap.Day = s.toDisplay(snap.Day)
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// LatestITSSnapshot returns a user's most recent snapshot, or nil if none
// exists yet.
func (s *Store) LatestITSSnapshot(ctx context.Context, userID string) (*model.HistoricalITSSnapshot, error) {
	row := s.readPool.QueryRowContext(ctx,
		`SELECT user_id, day, score, risk_level, alert_count, activity_count
		 FROM its_snapshots WHERE user_id = ? ORDER BY day DESC LIMIT 1`, userID)
	var snap model.HistoricalITSSnapshot
	var riskLevel string
	if err := row.Scan(&snap.UserID, &snap.Day, &snap.Score, &riskLevel, &snap.AlertCount, &snap.ActivityCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning latest its snapshot: %w", err)
	}
	snap.RiskLevel = model.RiskBand(riskLevel)
	return &snap, nil
}
