// Package watermark persists the "last successfully processed" timestamp for
// each processing frequency. One row per key, read and written inside a
// single transaction per call so overlapping runs cannot interleave a read
// with a stale write.
package watermark

import (
	"context"
	"database/sql"
	"time"

	"myads-pipeline/internal/common/errors"
)

// Frequency selects which processing cadence a watermark belongs to.
type Frequency string

const (
	Daily  Frequency = "daily"
	Weekly Frequency = "weekly"
)

// Key returns the storage row key for the frequency.
func (f Frequency) Key() string {
	return "last.process." + string(f)
}

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	return f == Daily || f == Weekly
}

// Store reads and writes watermark rows in the pipeline database.
type Store struct {
	db *sql.DB
}

// NewStore creates a store on top of an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get returns the watermark for the frequency, and whether one exists.
func (s *Store) Get(ctx context.Context, freq Frequency) (time.Time, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, false, errors.NewWatermarkReadError(freq.Key(), err)
	}
	defer tx.Rollback()

	var value string
	err = tx.QueryRowContext(ctx,
		`SELECT value FROM storage WHERE key = $1`, freq.Key()).Scan(&value)
	if err == sql.ErrNoRows {
		if err := tx.Commit(); err != nil {
			return time.Time{}, false, errors.NewWatermarkReadError(freq.Key(), err)
		}
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.NewWatermarkReadError(freq.Key(), err)
	}

	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, errors.NewWatermarkReadError(freq.Key(), err)
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, false, errors.NewWatermarkReadError(freq.Key(), err)
	}
	return ts, true, nil
}

// Set records ts as the watermark for the frequency, inserting the row on
// first use. Read-then-write runs in one transaction.
func (s *Store) Set(ctx context.Context, freq Frequency, ts time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewWatermarkWriteError(freq.Key(), err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT value FROM storage WHERE key = $1 FOR UPDATE`, freq.Key()).Scan(&existing)

	value := ts.UTC().Format(time.RFC3339)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO storage (key, value) VALUES ($1, $2)`, freq.Key(), value)
	case err == nil:
		_, err = tx.ExecContext(ctx,
			`UPDATE storage SET value = $2 WHERE key = $1`, freq.Key(), value)
	}
	if err != nil {
		return errors.NewWatermarkWriteError(freq.Key(), err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewWatermarkWriteError(freq.Key(), err)
	}
	return nil
}
