// internal/ingest/arxiv.go
package ingest

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"myads-pipeline/internal/common/config"
	"myads-pipeline/internal/common/errors"
	"myads-pipeline/internal/common/logger"
	"myads-pipeline/internal/common/metrics"
)

const gateNameArxiv = "arxiv"

// IndexMarkerGate checks whether the daily arXiv ingest has reached the search
// index. It locates the highest-sequence record in the day's update manifest,
// extracts its canonical identifier, and polls the search endpoint for it.
type IndexMarkerGate struct {
	cfg    config.IngestConfig
	probe  Probe
	clock  Clock
	logger logger.Logger

	// Date overrides the target ingest date; the zero value means
	// "today minus the configured delta".
	Date time.Time
}

// NewIndexMarkerGate creates the daily (arXiv) readiness gate.
func NewIndexMarkerGate(cfg config.IngestConfig, probe Probe, log logger.Logger) *IndexMarkerGate {
	return &IndexMarkerGate{
		cfg:    cfg,
		probe:  probe,
		clock:  SystemClock(),
		logger: log.WithFields(map[string]interface{}{"gate": gateNameArxiv}),
	}
}

// WithClock replaces the wall clock, for tests.
func (g *IndexMarkerGate) WithClock(clock Clock) *IndexMarkerGate {
	g.clock = clock
	return g
}

// Check runs the gate once. Manifest problems are fatal to this check and
// reported as an immediately incomplete result; probe transport errors are
// absorbed by the polling budget.
func (g *IndexMarkerGate) Check(ctx context.Context) CheckResult {
	date := g.Date
	if date.IsZero() {
		date = g.clock.Now().AddDate(0, 0, -g.cfg.ArxivTimedeltaDays)
	}
	dateStr := date.Format("2006-01-02")

	manifestPath := filepath.Join(g.cfg.ArxivUpdateAgentDir, "UpdateAgent.out."+dateStr+".gz")

	records, err := readGzipManifest(manifestPath)
	if err != nil {
		g.logger.WithError(err).Error("failed to read arXiv update manifest", map[string]interface{}{
			"manifest": manifestPath,
		})
		g.recordCheck(false)
		return CheckResult{}
	}

	marker, ok := selectMarkerRecord(records)
	if !ok {
		g.logger.Error("no numbered record found in arXiv update manifest", map[string]interface{}{
			"manifest": manifestPath,
			"records":  len(records),
		})
		g.recordCheck(false)
		return CheckResult{}
	}

	absPath := filepath.Join(g.cfg.ArxivIncomingAbsDir, marker)
	bibcode, err := parseArxivIdentifier(absPath)
	if err != nil {
		g.logger.WithError(err).Error("failed to extract identifier from arXiv record", map[string]interface{}{
			"record": absPath,
		})
		g.recordCheck(false)
		return CheckResult{}
	}

	result := g.poll(ctx, bibcode)
	g.recordCheck(result.Complete)
	return result
}

// poll queries the search endpoint for the marker identifier until a match
// appears or the timeout budget is spent.
func (g *IndexMarkerGate) poll(ctx context.Context, bibcode string) CheckResult {
	sleepDelay := config.GetSeconds(g.cfg.SleepDelay)
	sleepTimeout := config.GetSeconds(g.cfg.SleepTimeout)

	var elapsed time.Duration
	var attempts uint

	for elapsed < sleepTimeout {
		elapsed += sleepDelay
		attempts++

		numFound, err := g.probe.Probe(ctx, bibcode)
		if err != nil {
			metrics.GateProbeAttempts.WithLabelValues(gateNameArxiv, "error").Inc()
			g.logger.WithError(err).Error("error probing search endpoint, retrying", map[string]interface{}{
				"bibcode": bibcode,
				"elapsed": elapsed.String(),
			})
			g.clock.Sleep(sleepDelay)
			continue
		}

		if numFound == 0 {
			metrics.GateProbeAttempts.WithLabelValues(gateNameArxiv, "miss").Inc()
			g.logger.Info("arXiv ingest not complete, sleeping", map[string]interface{}{
				"bibcode": bibcode,
				"sleep":   sleepDelay.String(),
				"elapsed": elapsed.String(),
			})
			g.clock.Sleep(sleepDelay)
			continue
		}

		metrics.GateProbeAttempts.WithLabelValues(gateNameArxiv, "hit").Inc()
		if numFound > 1 {
			// Treated as success since something was found, but duplicate
			// identifiers should never occur.
			g.logger.Error("too many records returned for bibcode", map[string]interface{}{
				"bibcode":  bibcode,
				"numFound": numFound,
			})
		}

		return CheckResult{
			Complete:     true,
			ProbeSubject: bibcode,
			Attempts:     attempts,
			Elapsed:      elapsed,
		}
	}

	g.logger.Warn("arXiv ingest did not complete within the timeout limit", map[string]interface{}{
		"bibcode": bibcode,
		"timeout": sleepTimeout.String(),
	})

	return CheckResult{
		Complete:     false,
		ProbeSubject: bibcode,
		Attempts:     attempts,
		Elapsed:      elapsed,
	}
}

func (g *IndexMarkerGate) recordCheck(complete bool) {
	metrics.GateChecks.WithLabelValues(gateNameArxiv, strconv.FormatBool(complete)).Inc()
}

// readGzipManifest reads the first whitespace-delimited token of each line.
// Sample line: oai/arXiv.org/0706/2491 2018-06-13T01:00:29
func readGzipManifest(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewManifestMissingError(path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.NewManifestParseError(path, err)
	}
	defer gz.Close()

	var records []string
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 {
			records = append(records, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewManifestParseError(path, err)
	}

	return records, nil
}

// selectMarkerRecord picks the lexically-highest record whose second-to-last
// path segment parses as a number, skipping malformed trailing entries.
func selectMarkerRecord(records []string) (string, bool) {
	sorted := make([]string, len(records))
	copy(sorted, records)
	sort.Strings(sorted)

	for i := len(sorted) - 1; i >= 0; i-- {
		segments := strings.Split(sorted[i], "/")
		if len(segments) < 2 {
			continue
		}
		if _, err := strconv.ParseFloat(segments[len(segments)-2], 64); err == nil {
			return sorted[i], true
		}
	}

	return "", false
}

// parseArxivIdentifier extracts the canonical identifier from a raw arXiv abs
// record. The record is a header of "Key: value" lines; the identifier lives
// in the Paper field (e.g. "Paper: arXiv:0706.2491").
func parseArxivIdentifier(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.NewManifestMissingError(path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if after, found := strings.CutPrefix(line, "Paper:"); found {
			id := strings.TrimSpace(after)
			if id == "" {
				break
			}
			return id, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", errors.NewManifestParseError(path, err)
	}

	return "", errors.NewManifestParseError(path, fmt.Errorf("no identifier found in record"))
}
