package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ashgrover/insiderwatch/internal/metrics"
	"github.com/ashgrover/insiderwatch/internal/model"
)

// GetOrCreateFingerprint implements the linearizable "create or refresh"
// decision for a fingerprint (§5 "Ordering guarantees"). The caller
// (internal/escalation) already holds a per-fingerprint striped lock, so the
// select-then-insert here is safe from a single process; a unique
// constraint on hash still protects against any future multi-writer
// scenario.
func (s *Store) GetOrCreateFingerprint(ctx context.Context, hash, userID string, now time.Time) (*model.FingerprintRecord, bool, error) {
	existing, err := s.getFingerprint(ctx, hash)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if err := s.touchFingerprintLocked(ctx, hash, now); err != nil {
			return nil, false, err
		}
		existing.LastSeen = now
		existing.ObservationCount++
		return existing, false, nil
	}

	fp := &model.FingerprintRecord{
		Hash:             hash,
		UserID:           userID,
		FirstSeen:        now,
		LastSeen:         now,
		ObservationCount: 1,
	}
	_, err = s.writePool.ExecContext(ctx,
		`INSERT INTO fingerprints (hash, user_id, first_seen, last_seen, observation_count, escalated)
		 VALUES (?, ?, ?, ?, 1, FALSE)`,
		hash, userID, toUTC(now), toUTC(now))
	if err != nil {
		return nil, false, fmt.Errorf("inserting fingerprint: %w", err)
	}
	s.fpCache.Put(hash, fp)
	return fp, true, nil
}

// getFingerprint reads through s.fpCache before touching DuckDB; the cache
// is populated on miss so repeated lookups of a hot fingerprint (e.g. a
// user repeating the same sensitive action within the suppression window)
// avoid a round trip to the read pool.
func (s *Store) getFingerprint(ctx context.Context, hash string) (*model.FingerprintRecord, error) {
	if fp, ok := s.fpCache.Get(hash); ok {
		metrics.FingerprintCacheHitTotal.Inc()
		return fp, nil
	}
	metrics.FingerprintCacheMissTotal.Inc()

	row := s.readPool.QueryRowContext(ctx,
		`SELECT hash, user_id, first_seen, last_seen, observation_count, escalated, suppressed_until
		 FROM fingerprints WHERE hash = ?`, hash)

	var fp model.FingerprintRecord
	var suppressedUntil sql.NullTime
	if err := row.Scan(&fp.Hash, &fp.UserID, &fp.FirstSeen, &fp.LastSeen, &fp.ObservationCount, &fp.Escalated, &suppressedUntil); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning fingerprint: %w", err)
	}
	if suppressedUntil.Valid {
		t := suppressedUntil.Time
		fp.SuppressedUntil = &t
	}
	s.fpCache.Put(hash, &fp)
	return &fp, nil
}

func (s *Store) touchFingerprintLocked(ctx context.Context, hash string, now time.Time) error {
	_, err := s.writePool.ExecContext(ctx,
		`UPDATE fingerprints SET last_seen = ?, observation_count = observation_count + 1 WHERE hash = ?`,
		toUTC(now), hash)
	if err != nil {
		return fmt.Errorf("touching fingerprint: %w", err)
	}
	if fp, ok := s.fpCache.Get(hash); ok {
		fp.LastSeen = now
		fp.ObservationCount++
		s.fpCache.Put(hash, fp)
	}
	return nil
}

// TouchFingerprint bumps last-seen/count without changing escalation or
// suppression state, used for the suppressed/already_escalated short-circuit
// paths (§4.3 step 5).
func (s *Store) TouchFingerprint(ctx context.Context, hash string, now time.Time) error {
	return s.touchFingerprintLocked(ctx, hash, now)
}

// SuppressFingerprint sets the suppression deadline on first alert creation
// (§4.6 "Fingerprint suppression").
func (s *Store) SuppressFingerprint(ctx context.Context, hash string, until time.Time) error {
	_, err := s.writePool.ExecContext(ctx,
		`UPDATE fingerprints SET suppressed_until = ? WHERE hash = ?`, toUTC(until), hash)
	if err != nil {
		return fmt.Errorf("suppressing fingerprint: %w", err)
	}
	s.fpCache.Remove(hash)
	return nil
}

// MarkFingerprintEscalated sets the absorbing escalated flag (§4.6).
func (s *Store) MarkFingerprintEscalated(ctx context.Context, hash string) error {
	_, err := s.writePool.ExecContext(ctx,
		`UPDATE fingerprints SET escalated = TRUE WHERE hash = ?`, hash)
	if err != nil {
		return fmt.Errorf("marking fingerprint escalated: %w", err)
	}
	s.fpCache.Remove(hash)
	return nil
}
