package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" //nolint:revive // driver registration only

	"github.com/ashgrover/insiderwatch/internal/cache"
	"github.com/ashgrover/insiderwatch/internal/logging"
)

// fingerprintCacheCapacity/TTL size the read-through cache sitting in front
// of the fingerprints table (§4.7, §9 "Fingerprint cache").
const (
	fingerprintCacheCapacity = 10000
	fingerprintCacheTTL      = 48 * time.Hour
)

// DisplayTimezone is the default deployment display timezone (§4.7, §6).
const DisplayTimezone = "Asia/Kolkata"

// Store is the DuckDB-backed persistence layer. Writes go through a single
// serialized connection (writePool, capped at one open connection) so the
// "create or refresh" fingerprint decision and the daily-snapshot upsert
// never race each other at the driver level; reads use a separate pool
// opened read-only so dashboard/query traffic never blocks ingestion (§4.7,
// §9's upsert-with-unique-constraint resolution).
type Store struct {
	writePool *sql.DB
	readPool  *sql.DB
	location  *time.Location
	fpCache   *cache.FingerprintCache
}

// Open creates (or attaches to) the DuckDB file at path and applies the
// schema. displayTimezone must name a valid IANA zone; it defaults to
// DisplayTimezone when empty.
func Open(path string, displayTimezone string) (*Store, error) {
	if displayTimezone == "" {
		displayTimezone = DisplayTimezone
	}
	loc, err := time.LoadLocation(displayTimezone)
	if err != nil {
		return nil, fmt.Errorf("loading display timezone %q: %w", displayTimezone, err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	writePool, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening write connection: %w", err)
	}
	writePool.SetMaxOpenConns(1)

	if _, err := writePool.Exec(schema); err != nil {
		closeQuietly(writePool)
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	readPool, err := sql.Open("duckdb", path+"?access_mode=read_only")
	if err != nil {
		closeQuietly(writePool)
		return nil, fmt.Errorf("opening read pool: %w", err)
	}
	readPool.SetMaxOpenConns(4)

	return &Store{
		writePool: writePool,
		readPool:  readPool,
		location:  loc,
		fpCache:   cache.New(fingerprintCacheCapacity, fingerprintCacheTTL),
	}, nil
}

// OpenInMemory opens an in-process DuckDB instance, used by tests.
func OpenInMemory() (*Store, error) {
	writePool, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	writePool.SetMaxOpenConns(1)
	if _, err := writePool.Exec(schema); err != nil {
		closeQuietly(writePool)
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	loc, _ := time.LoadLocation(DisplayTimezone)
	// In-memory mode has no second connection to share the database, so
	// reads and writes share the single pool; acceptable for tests.
	return &Store{
		writePool: writePool,
		readPool:  writePool,
		location:  loc,
		fpCache:   cache.New(fingerprintCacheCapacity, fingerprintCacheTTL),
	}, nil
}

// Close releases both connection pools.
func (s *Store) Close() error {
	var firstErr error
	if err := s.writePool.Close(); err != nil {
		firstErr = err
	}
	if s.readPool != s.writePool {
		if err := s.readPool.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func closeQuietly(db *sql.DB) {
	if err := db.Close(); err != nil {
		logging.Warn().Err(err).Msg("error closing database connection")
	}
}

// toUTC normalizes t for storage: naive (zone-less) timestamps are already
// treated as UTC by convention at the agent boundary; this call is the
// single place that enforces it (§4.7 "Timestamp discipline").
func toUTC(t time.Time) time.Time {
	return t.UTC()
}

// toDisplay converts a UTC timestamp read back from storage to the
// configured display timezone. Naive timestamps read back from DuckDB carry
// no zone and are treated as UTC before conversion.
func (s *Store) toDisplay(t time.Time) time.Time {
	if t.Location() == time.UTC || t.Location() == time.Local {
		t = t.UTC()
	}
	return t.In(s.location)
}

func midnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logging.Warn().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	return tx.Commit()
}
