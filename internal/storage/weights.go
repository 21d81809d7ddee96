package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Names of the weight payloads the training scheduler produces and the
// ingest service consumes.
const (
	WeightNameDetectorRegression = "detector_regression"
	WeightNameITSEnsemble        = "its_ensemble"
)

// SaveTrainedWeights upserts a named, JSON-serialized model payload — the
// handoff point between the training scheduler process and whichever
// ingest service process is currently serving (§4.5, §9 open question 1).
func (s *Store) SaveTrainedWeights(ctx context.Context, name string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling trained weights %q: %w", name, err)
	}

	_, err = s.writePool.ExecContext(ctx, `
		INSERT INTO trained_weights (name, payload_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET payload_json = excluded.payload_json, updated_at = excluded.updated_at`,
		name, string(body), toUTC(time.Now()))
	if err != nil {
		return fmt.Errorf("saving trained weights %q: %w", name, err)
	}
	return nil
}

// LoadTrainedWeights decodes the named payload into out, returning found=false
// if no weights have been trained yet.
func (s *Store) LoadTrainedWeights(ctx context.Context, name string, out any) (found bool, err error) {
	var body string
	row := s.readPool.QueryRowContext(ctx, `SELECT payload_json FROM trained_weights WHERE name = ?`, name)
	if err := row.Scan(&body); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("loading trained weights %q: %w", name, err)
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return false, fmt.Errorf("unmarshaling trained weights %q: %w", name, err)
	}
	return true, nil
}
