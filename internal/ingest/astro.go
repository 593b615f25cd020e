// internal/ingest/astro.go
package ingest

import (
	"bufio"
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"myads-pipeline/internal/common/config"
	"myads-pipeline/internal/common/logger"
	"myads-pipeline/internal/common/metrics"
)

const gateNameAstro = "astro"

// Sampler draws n identifiers without replacement from candidates. Production
// runs use RandomSampler; tests inject a deterministic one.
type Sampler func(n int, candidates []string) []string

// RandomSampler draws a uniform random sample without replacement.
func RandomSampler(n int, candidates []string) []string {
	if n > len(candidates) {
		n = len(candidates)
	}
	sample := make([]string, 0, n)
	for _, i := range rand.Perm(len(candidates))[:n] {
		sample = append(sample, candidates[i])
	}
	return sample
}

// SampledManifestGate checks whether the weekly astronomy ingest has reached
// the search index. It waits for the local match manifest to be refreshed,
// then probes a random sample of its identifiers; any single verified record
// counts as sufficient evidence of completion.
type SampledManifestGate struct {
	cfg     config.IngestConfig
	probe   Probe
	clock   Clock
	sampler Sampler
	logger  logger.Logger

	// Target overrides the freshness instant the manifest must beat; the
	// zero value means "now minus the configured delta".
	Target time.Time
}

// NewSampledManifestGate creates the weekly (astronomy) readiness gate.
func NewSampledManifestGate(cfg config.IngestConfig, probe Probe, log logger.Logger) *SampledManifestGate {
	return &SampledManifestGate{
		cfg:     cfg,
		probe:   probe,
		clock:   SystemClock(),
		sampler: RandomSampler,
		logger:  log.WithFields(map[string]interface{}{"gate": gateNameAstro}),
	}
}

// WithClock replaces the wall clock, for tests.
func (g *SampledManifestGate) WithClock(clock Clock) *SampledManifestGate {
	g.clock = clock
	return g
}

// WithSampler replaces the sampling function, for tests.
func (g *SampledManifestGate) WithSampler(sampler Sampler) *SampledManifestGate {
	g.sampler = sampler
	return g
}

// Check runs the gate once.
func (g *SampledManifestGate) Check(ctx context.Context) CheckResult {
	target := g.Target
	if target.IsZero() {
		target = g.clock.Now().AddDate(0, 0, -g.cfg.AstroTimedeltaDays)
	}

	sleepDelay := config.GetSeconds(g.cfg.SleepDelay)
	sleepTimeout := config.GetSeconds(g.cfg.SleepTimeout)
	manifestPath := filepath.Join(g.cfg.AstroIncomingDir, "matches.input")

	var elapsed time.Duration

	fresh, elapsed := g.waitForFreshManifest(manifestPath, target, sleepDelay, sleepTimeout, elapsed)
	if !fresh {
		g.logger.Warn("astronomy update did not complete within the timeout limit", map[string]interface{}{
			"manifest": manifestPath,
			"timeout":  sleepTimeout.String(),
		})
		g.recordCheck(false)
		return CheckResult{Elapsed: elapsed}
	}

	records, err := readManifestIdentifiers(manifestPath)
	if err != nil {
		g.logger.WithError(err).Error("failed to read astronomy manifest", map[string]interface{}{
			"manifest": manifestPath,
		})
		g.recordCheck(false)
		return CheckResult{Elapsed: elapsed}
	}
	if len(records) == 0 {
		g.logger.Error("astronomy manifest contains no identifiers", map[string]interface{}{
			"manifest": manifestPath,
		})
		g.recordCheck(false)
		return CheckResult{Elapsed: elapsed}
	}

	// Several randomly selected bibcodes, in case one had ingest issues.
	sample := g.sampler(g.cfg.AstroSampleSize, records)

	result := g.poll(ctx, sample, sleepDelay, sleepTimeout, elapsed)
	g.recordCheck(result.Complete)
	return result
}

// waitForFreshManifest blocks in sleepDelay increments until the manifest's
// mtime is newer than target or the timeout budget is spent.
func (g *SampledManifestGate) waitForFreshManifest(path string, target time.Time, sleepDelay, sleepTimeout, elapsed time.Duration) (bool, time.Duration) {
	fi, err := os.Stat(path)
	if err != nil {
		g.logger.WithError(err).Error("failed to stat astronomy manifest", map[string]interface{}{
			"manifest": path,
		})
		return false, elapsed
	}
	if fi.ModTime().After(target) {
		return true, elapsed
	}

	for elapsed < sleepTimeout {
		elapsed += sleepDelay
		g.clock.Sleep(sleepDelay)

		fi, err = os.Stat(path)
		if err != nil {
			continue
		}
		if fi.ModTime().After(target) {
			return true, elapsed
		}
	}

	return false, elapsed
}

// poll probes each sampled identifier; a single hit is an overall success.
// A full pass of misses sleeps and tries the sample again until timeout.
func (g *SampledManifestGate) poll(ctx context.Context, sample []string, sleepDelay, sleepTimeout, elapsed time.Duration) CheckResult {
	var attempts uint
	var lastSubject string

	for elapsed < sleepTimeout {
		for i, s := range sample {
			attempts++
			lastSubject = s

			numFound, err := g.probe.Probe(ctx, s)
			if err != nil {
				metrics.GateProbeAttempts.WithLabelValues(gateNameAstro, "error").Inc()
				elapsed += sleepDelay
				g.logger.WithError(err).Error("error probing search endpoint, sleeping", map[string]interface{}{
					"bibcode": s,
					"sleep":   sleepDelay.String(),
					"elapsed": elapsed.String(),
				})
				g.clock.Sleep(sleepDelay)
				continue
			}

			if numFound == 0 {
				metrics.GateProbeAttempts.WithLabelValues(gateNameAstro, "miss").Inc()
				if i == len(sample)-1 {
					// Whole sample exhausted with no hits; sleep and
					// start over.
					elapsed += sleepDelay
					g.logger.Warn("astronomy ingest not complete for all in sample, sleeping", map[string]interface{}{
						"sample":  sample,
						"sleep":   sleepDelay.String(),
						"elapsed": elapsed.String(),
					})
					g.clock.Sleep(sleepDelay)
				} else {
					g.logger.Info("astronomy ingest not complete, trying the next in the sample", map[string]interface{}{
						"bibcode": s,
					})
				}
				continue
			}

			metrics.GateProbeAttempts.WithLabelValues(gateNameAstro, "hit").Inc()
			if numFound > 1 {
				g.logger.Error("too many records returned for bibcode", map[string]interface{}{
					"bibcode":  s,
					"numFound": numFound,
				})
			}

			return CheckResult{
				Complete:     true,
				ProbeSubject: s,
				Attempts:     attempts,
				Elapsed:      elapsed,
			}
		}
	}

	g.logger.Warn("astronomy ingest did not complete within the timeout limit", map[string]interface{}{
		"timeout": sleepTimeout.String(),
	})

	return CheckResult{
		Complete:     false,
		ProbeSubject: lastSubject,
		Attempts:     attempts,
		Elapsed:      elapsed,
	}
}

func (g *SampledManifestGate) recordCheck(complete bool) {
	metrics.GateChecks.WithLabelValues(gateNameAstro, strconv.FormatBool(complete)).Inc()
}

// readManifestIdentifiers reads the first whitespace-delimited token of each
// line. Sample line: 2019A&A...632A..94J     K58-37447
func readManifestIdentifiers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 {
			records = append(records, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
