// internal/ingest/astro_test.go
package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"myads-pipeline/internal/common/config"
	"myads-pipeline/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAstroConfig(incomingDir string, sampleSize int) config.IngestConfig {
	return config.IngestConfig{
		AstroIncomingDir:   incomingDir,
		AstroTimedeltaDays: 7,
		AstroSampleSize:    sampleSize,
		SleepDelay:         1,
		SleepTimeout:       3,
	}
}

func writeMatchManifest(t *testing.T, dir string, bibcodes []string) string {
	t.Helper()

	path := filepath.Join(dir, "matches.input")
	var content string
	for _, b := range bibcodes {
		content += b + "\tK58-37447\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// headSampler keeps manifest order, making the probe sequence deterministic.
func headSampler(n int, candidates []string) []string {
	if n > len(candidates) {
		n = len(candidates)
	}
	return candidates[:n]
}

// ==========================
// Sampler Tests
// ==========================

func TestRandomSampler(t *testing.T) {
	candidates := []string{"a", "b", "c", "d", "e"}

	sample := RandomSampler(3, candidates)
	assert.Len(t, sample, 3)
	seen := map[string]bool{}
	for _, s := range sample {
		assert.Contains(t, candidates, s)
		assert.False(t, seen[s], "sample must be without replacement")
		seen[s] = true
	}
}

func TestRandomSampler_ClampsToPopulation(t *testing.T) {
	candidates := []string{"a", "b"}
	sample := RandomSampler(10, candidates)
	assert.ElementsMatch(t, candidates, sample)
}

func TestRandomSampler_Empty(t *testing.T) {
	assert.Empty(t, RandomSampler(5, nil))
}

// ==========================
// Gate Tests
// ==========================

func TestSampledManifestGate_Check_ImmediateHit(t *testing.T) {
	dir := t.TempDir()
	writeMatchManifest(t, dir, []string{"2019A&A...632A..94J", "2020MNRAS.491.2217R"})

	probe := &MockProbe{
		ProbeFunc: func(ctx context.Context, identifier string) (int, error) {
			assert.Equal(t, "2019A&A...632A..94J", identifier)
			return 1, nil
		},
	}
	clock := &fakeClock{now: time.Now()}

	gate := NewSampledManifestGate(testAstroConfig(dir, 2), probe, logger.NewTestLogger(t)).
		WithClock(clock).
		WithSampler(headSampler)

	result := gate.Check(context.Background())

	assert.True(t, result.Complete)
	assert.Equal(t, "2019A&A...632A..94J", result.ProbeSubject)
	assert.Equal(t, uint(1), result.Attempts)
	assert.Empty(t, clock.sleeps)
}

func TestSampledManifestGate_Check_MidSampleMiss(t *testing.T) {
	dir := t.TempDir()
	writeMatchManifest(t, dir, []string{"2019A&A...632A..94J", "2020MNRAS.491.2217R"})

	probe := &MockProbe{
		ProbeFunc: func(ctx context.Context, identifier string) (int, error) {
			if identifier == "2019A&A...632A..94J" {
				return 0, nil
			}
			return 1, nil
		},
	}
	clock := &fakeClock{now: time.Now()}

	gate := NewSampledManifestGate(testAstroConfig(dir, 2), probe, logger.NewTestLogger(t)).
		WithClock(clock).
		WithSampler(headSampler)

	result := gate.Check(context.Background())

	assert.True(t, result.Complete)
	assert.Equal(t, "2020MNRAS.491.2217R", result.ProbeSubject)
	assert.Equal(t, uint(2), result.Attempts)
	// A miss mid-sample moves straight to the next identifier.
	assert.Empty(t, clock.sleeps)
}

func TestSampledManifestGate_Check_Timeout(t *testing.T) {
	dir := t.TempDir()
	writeMatchManifest(t, dir, []string{"2019A&A...632A..94J"})

	probe := &MockProbe{
		ProbeFunc: func(ctx context.Context, identifier string) (int, error) {
			return 0, nil
		},
	}
	clock := &fakeClock{now: time.Now()}

	gate := NewSampledManifestGate(testAstroConfig(dir, 1), probe, logger.NewTestLogger(t)).
		WithClock(clock).
		WithSampler(headSampler)

	result := gate.Check(context.Background())

	assert.False(t, result.Complete)
	// Each full pass over the one-element sample costs one sleep interval.
	assert.Equal(t, uint(3), result.Attempts)
	assert.Len(t, clock.sleeps, 3)
}

func TestSampledManifestGate_Check_TransportErrorsAbsorbed(t *testing.T) {
	dir := t.TempDir()
	writeMatchManifest(t, dir, []string{"2019A&A...632A..94J"})

	calls := 0
	probe := &MockProbe{
		ProbeFunc: func(ctx context.Context, identifier string) (int, error) {
			calls++
			if calls == 1 {
				return 0, errors.New("status 502")
			}
			return 1, nil
		},
	}
	clock := &fakeClock{now: time.Now()}

	gate := NewSampledManifestGate(testAstroConfig(dir, 1), probe, logger.NewTestLogger(t)).
		WithClock(clock).
		WithSampler(headSampler)

	result := gate.Check(context.Background())

	assert.True(t, result.Complete)
	assert.Equal(t, uint(2), result.Attempts)
}

func TestSampledManifestGate_Check_StaleManifest(t *testing.T) {
	dir := t.TempDir()
	writeMatchManifest(t, dir, []string{"2019A&A...632A..94J"})

	probe := &MockProbe{
		ProbeFunc: func(ctx context.Context, identifier string) (int, error) {
			t.Fatal("probe must not be called while the manifest is stale")
			return 0, nil
		},
	}
	clock := &fakeClock{now: time.Now()}

	gate := NewSampledManifestGate(testAstroConfig(dir, 1), probe, logger.NewTestLogger(t)).
		WithClock(clock).
		WithSampler(headSampler)
	// Demand a refresh that never happens.
	gate.Target = time.Now().Add(time.Hour)

	result := gate.Check(context.Background())

	assert.False(t, result.Complete)
	assert.Equal(t, uint(0), result.Attempts)
	assert.Len(t, clock.sleeps, 3)
}

func TestSampledManifestGate_Check_MissingManifest(t *testing.T) {
	probe := &MockProbe{
		ProbeFunc: func(ctx context.Context, identifier string) (int, error) {
			t.Fatal("probe must not be called when the manifest is missing")
			return 0, nil
		},
	}

	gate := NewSampledManifestGate(testAstroConfig(t.TempDir(), 1), probe, logger.NewTestLogger(t)).
		WithClock(&fakeClock{now: time.Now()})

	result := gate.Check(context.Background())

	assert.False(t, result.Complete)
}
