// Package dispatch drives incremental, watermark-based submission of per-user
// notification jobs to the asynchronous worker pool.
package dispatch

import (
	"context"
	"strconv"
	"time"

	"myads-pipeline/internal/common/errors"
	"myads-pipeline/internal/common/logger"
	"myads-pipeline/internal/common/metrics"
	"myads-pipeline/internal/watermark"
)

// EpochFloor is the since-instant used by a first-ever run so that all
// historical users are processed.
var EpochFloor = time.Date(1971, time.January, 1, 12, 0, 0, 0, time.UTC)

// submissionBackoff is the fixed wait before the single submission retry.
const submissionBackoff = 2 * time.Second

// Job is the unit of work handed to the worker pool, one per user.
type Job struct {
	UserID     string              `json:"userId"`
	Frequency  watermark.Frequency `json:"frequency"`
	Force      bool                `json:"force"`
	TestSendTo string              `json:"testSendTo,omitempty"`
}

// JobSubmitter hands a job to the worker pool. Submission is fire-and-forget:
// it returns as soon as the pool has accepted the job.
type JobSubmitter interface {
	Submit(ctx context.Context, job Job) error
}

// UserRegistry enumerates users eligible for processing since an instant.
// Eligibility semantics are owned by the registry, not by this package.
type UserRegistry interface {
	UsersSince(ctx context.Context, since time.Time) ([]string, error)
}

// WatermarkStore is the durable last-processed store used between runs.
type WatermarkStore interface {
	Get(ctx context.Context, freq watermark.Frequency) (time.Time, bool, error)
	Set(ctx context.Context, freq watermark.Frequency, ts time.Time) error
}

// RunOptions carries the per-run parameters from the CLI.
type RunOptions struct {
	// Since overrides the watermark when set.
	Since *time.Time
	// UserIDs bypasses the watermark entirely: one forced job per listed
	// user, watermark untouched.
	UserIDs []string
	Force   bool
	// Frequency selects the watermark key and is carried on every job.
	Frequency watermark.Frequency
	// TestSendTo redirects the generated emails, for manual runs.
	TestSendTo string
}

// Summary is the outcome of one dispatch run.
type Summary struct {
	UsersDispatched int
}

// DispatchOutcome is the per-user result, used only for logs and metrics.
type DispatchOutcome struct {
	UserID    string
	Submitted bool
	Retried   bool
}

// Dispatcher computes the eligible user set and submits one notification job
// per user, advancing the watermark only after the whole loop has been issued.
type Dispatcher struct {
	registry   UserRegistry
	submitter  JobSubmitter
	watermarks WatermarkStore
	logger     logger.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

// New creates a Dispatcher.
func New(registry UserRegistry, submitter JobSubmitter, watermarks WatermarkStore, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		submitter:  submitter,
		watermarks: watermarks,
		logger:     log,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// WithClock replaces the time functions, for tests.
func (d *Dispatcher) WithClock(now func() time.Time, sleep func(time.Duration)) *Dispatcher {
	d.now = now
	d.sleep = sleep
	return d
}

// Run executes one dispatch run. The watermark is advanced to the run's start
// time, captured before enumeration, so users who become eligible during the
// run are caught by the next one; the cost is possible duplicate coverage,
// never a silently skipped user.
func (d *Dispatcher) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	log := d.logger.WithFields(map[string]interface{}{"frequency": string(opts.Frequency)})

	// Manual/test override path: explicit users, always forced, no
	// watermark read or write.
	if len(opts.UserIDs) > 0 {
		for _, userID := range opts.UserIDs {
			job := Job{
				UserID:     userID,
				Frequency:  opts.Frequency,
				Force:      true,
				TestSendTo: opts.TestSendTo,
			}
			outcome, err := d.submitWithRetry(ctx, job)
			if err != nil {
				return Summary{}, err
			}
			d.recordOutcome(log, opts.Frequency, outcome)
		}
		log.Info("done (just the supplied user IDs)", map[string]interface{}{
			"users": len(opts.UserIDs),
		})
		return Summary{UsersDispatched: len(opts.UserIDs)}, nil
	}

	since, err := d.resolveSince(ctx, opts)
	if err != nil {
		return Summary{}, err
	}

	runStart := d.now().UTC()
	timer := time.Now()

	log.Info("processing myADS queries", map[string]interface{}{
		"since": since.Format(time.RFC3339),
	})

	users, err := d.registry.UsersSince(ctx, since)
	if err != nil {
		return Summary{}, errors.NewUserRegistryError(err)
	}

	for _, userID := range users {
		job := Job{
			UserID:     userID,
			Frequency:  opts.Frequency,
			Force:      opts.Force,
			TestSendTo: opts.TestSendTo,
		}
		outcome, err := d.submitWithRetry(ctx, job)
		if err != nil {
			// Aborting here leaves the watermark at its previous value;
			// the next run re-enumerates from the same since.
			return Summary{}, err
		}
		d.recordOutcome(log, opts.Frequency, outcome)
	}

	if err := d.watermarks.Set(ctx, opts.Frequency, runStart); err != nil {
		return Summary{}, err
	}

	metrics.DispatchRunDuration.WithLabelValues(string(opts.Frequency)).Observe(time.Since(timer).Seconds())
	log.Info("done submitting myADS processing tasks", map[string]interface{}{
		"users": len(users),
	})

	return Summary{UsersDispatched: len(users)}, nil
}

// resolveSince picks the since-instant: explicit value, then the stored
// watermark, then the epoch floor for a first-ever run.
func (d *Dispatcher) resolveSince(ctx context.Context, opts RunOptions) (time.Time, error) {
	if opts.Since != nil && !opts.Since.IsZero() {
		return *opts.Since, nil
	}

	ts, found, err := d.watermarks.Get(ctx, opts.Frequency)
	if err != nil {
		return time.Time{}, err
	}
	if !found {
		return EpochFloor, nil
	}
	return ts, nil
}

// submitWithRetry submits the job, waiting a short fixed backoff and retrying
// exactly once if the first attempt fails. A second failure aborts the run.
func (d *Dispatcher) submitWithRetry(ctx context.Context, job Job) (DispatchOutcome, error) {
	err := d.submitter.Submit(ctx, job)
	if err == nil {
		return DispatchOutcome{UserID: job.UserID, Submitted: true}, nil
	}

	d.logger.WithError(err).Warn("job submission failed, retrying after backoff", map[string]interface{}{
		"userId":  job.UserID,
		"backoff": submissionBackoff.String(),
	})
	d.sleep(submissionBackoff)

	if err := d.submitter.Submit(ctx, job); err != nil {
		return DispatchOutcome{UserID: job.UserID, Retried: true},
			errors.NewDispatchSubmissionError(job.UserID, err)
	}

	return DispatchOutcome{UserID: job.UserID, Submitted: true, Retried: true}, nil
}

func (d *Dispatcher) recordOutcome(log logger.Logger, freq watermark.Frequency, outcome DispatchOutcome) {
	metrics.DispatchedJobs.WithLabelValues(string(freq), strconv.FormatBool(outcome.Retried)).Inc()
	log.Debug("notification job submitted", map[string]interface{}{
		"userId":  outcome.UserID,
		"retried": outcome.Retried,
	})
}
