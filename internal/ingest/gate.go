// Package ingest implements the readiness gates that decide whether a freshly
// ingested batch of records has propagated into the searchable index before
// any notification processing is allowed to start.
package ingest

import (
	"context"
	"time"
)

// CheckResult is the terminal outcome of one gate invocation. A timed-out
// check is reported here as Complete=false, not as an error.
type CheckResult struct {
	Complete     bool
	ProbeSubject string
	Attempts     uint
	Elapsed      time.Duration
}

// Gate is a bounded polling check that ingestion has propagated far enough
// for downstream processing to proceed.
type Gate interface {
	Check(ctx context.Context) CheckResult
}

// Probe looks up a single record identifier in the search index and reports
// how many matches the index currently holds.
type Probe interface {
	Probe(ctx context.Context, identifier string) (numFound int, err error)
}

// Clock abstracts wall time and sleeping so the polling loops are testable
// without real delays.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }
