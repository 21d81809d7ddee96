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

// UnknownUserError is returned by CreateActivity (and by the ingest service's
// user check) when user_id does not reference a known user (§3 "every activity is
// associated with a known user").
type UnknownUserError struct{ UserID string }

func (e *UnknownUserError) Error() string {
	return fmt.Sprintf("unknown user %q", e.UserID)
}

// GetUser fetches a user by id, or (nil, nil) if unknown.
func (s *Store) GetUser(ctx context.Context, userID string) (*model.User, error) {
	row := s.readPool.QueryRowContext(ctx,
		`SELECT id, username, role, department FROM users WHERE id = ?`, userID)
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Role, &u.Department); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return &u, nil
}

// PutUser inserts or replaces a user record. Used by test fixtures and the
// operator-facing user provisioning path (out of ingest's critical path).
func (s *Store) PutUser(ctx context.Context, u model.User) error {
	_, err := s.writePool.ExecContext(ctx,
		`INSERT INTO users (id, username, role, department) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET username = excluded.username, role = excluded.role, department = excluded.department`,
		u.ID, u.Username, u.Role, u.Department)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// CreateActivity persists a into the store exactly once (§4.3 step 2),
// rejecting unknown users.
func (s *Store) CreateActivity(ctx context.Context, a *model.Activity) error {
	user, err := s.GetUser(ctx, a.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return &UnknownUserError{UserID: a.UserID}
	}

	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	detailsJSON, err := json.Marshal(a.Details)
	if err != nil {
		return fmt.Errorf("marshaling activity details: %w", err)
	}

	_, err = s.writePool.ExecContext(ctx,
		`INSERT INTO activities (id, user_id, device_id, timestamp, activity_hour, off_hours, kind, details_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.DeviceID, toUTC(a.Timestamp), a.ActivityHour, a.OffHours, string(a.Kind), string(detailsJSON))
	if err != nil {
		return fmt.Errorf("inserting activity: %w", err)
	}
	return nil
}

// RecentActivities returns this user's activities with timestamp >= since,
// ordered oldest-first, capped at limit entries (§4.3 step 3: trailing
// one-hour context, capped at 100).
func (s *Store) RecentActivities(ctx context.Context, userID string, since time.Time, limit int) ([]model.Activity, error) {
	rows, err := s.readPool.QueryContext(ctx,
		`SELECT id, user_id, device_id, timestamp, activity_hour, off_hours, kind, details_json
		 FROM activities WHERE user_id = ? AND timestamp >= ?
		 ORDER BY timestamp DESC LIMIT ?`,
		userID, toUTC(since), limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent activities: %w", err)
	}
	defer rows.Close()

	activities, err := scanActivities(rows)
	if err != nil {
		return nil, err
	}
	reverse(activities)
	return activities, nil
}

// ActivitiesForUser returns a user's activities over the trailing n days,
// newest first, with timestamps converted to the display timezone (§4.7
// read-side timelines).
func (s *Store) ActivitiesForUser(ctx context.Context, userID string, days int) ([]model.Activity, error) {
	since := toUTC(time.Now().AddDate(0, 0, -days))
	rows, err := s.readPool.QueryContext(ctx,
		`SELECT id, user_id, device_id, timestamp, activity_hour, off_hours, kind, details_json
		 FROM activities WHERE user_id = ? AND timestamp >= ?
		 ORDER BY timestamp DESC`,
		userID, since)
	if err != nil {
		return nil, fmt.Errorf("querying user activities: %w", err)
	}
	defer rows.Close()

	activities, err := scanActivities(rows)
	if err != nil {
		return nil, err
	}
	for i := range activities {
		activities[i].Timestamp = s.toDisplay(activities[i].Timestamp)
	}
	return activities, nil
}

// MostRecentActivities returns a user's most recent n activities regardless
// of age, oldest-first — used by the ITS engine's baseline-floor fallback
// (§4.5 "If the window is empty but older activity exists").
func (s *Store) MostRecentActivities(ctx context.Context, userID string, n int) ([]model.Activity, error) {
	rows, err := s.readPool.QueryContext(ctx,
		`SELECT id, user_id, device_id, timestamp, activity_hour, off_hours, kind, details_json
		 FROM activities WHERE user_id = ? ORDER BY timestamp DESC LIMIT ?`,
		userID, n)
	if err != nil {
		return nil, fmt.Errorf("querying most recent activities: %w", err)
	}
	defer rows.Close()

	activities, err := scanActivities(rows)
	if err != nil {
		return nil, err
	}
	reverse(activities)
	return activities, nil
}

func scanActivities(rows *sql.Rows) ([]model.Activity, error) {
	var activities []model.Activity
	for rows.Next() {
		var a model.Activity
		var kind, detailsJSON string
		if err := rows.Scan(&a.ID, &a.UserID, &a.DeviceID, &a.Timestamp, &a.ActivityHour, &a.OffHours, &kind, &detailsJSON); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		a.Kind = model.ActivityKind(kind)
		if err := json.Unmarshal([]byte(detailsJSON), &a.Details); err != nil {
			return nil, fmt.Errorf("unmarshaling activity details: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func reverse(activities []model.Activity) {
	for i, j := 0, len(activities)-1; i < j; i, j = i+1, j-1 {
		activities[i], activities[j] = activities[j], activities[i]
	}
}
