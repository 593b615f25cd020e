// internal/notify/guard_test.go
package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T, ttl time.Duration) (*SentGuard, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewSentGuard(rdb, ttl), mr
}

func TestSentGuard_MarkAndCheck(t *testing.T) {
	guard, _ := newTestGuard(t, 48*time.Hour)
	ctx := context.Background()
	day := time.Date(2023, 6, 13, 4, 30, 0, 0, time.UTC)

	sent, err := guard.AlreadySent(ctx, "daily", "user-1", day)
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, guard.MarkSent(ctx, "daily", "user-1", day))

	sent, err = guard.AlreadySent(ctx, "daily", "user-1", day)
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestSentGuard_KeysAreScoped(t *testing.T) {
	guard, _ := newTestGuard(t, 48*time.Hour)
	ctx := context.Background()
	day := time.Date(2023, 6, 13, 4, 30, 0, 0, time.UTC)

	require.NoError(t, guard.MarkSent(ctx, "daily", "user-1", day))

	// A different user, frequency, or day is a different marker.
	sent, err := guard.AlreadySent(ctx, "daily", "user-2", day)
	require.NoError(t, err)
	assert.False(t, sent)

	sent, err = guard.AlreadySent(ctx, "weekly", "user-1", day)
	require.NoError(t, err)
	assert.False(t, sent)

	sent, err = guard.AlreadySent(ctx, "daily", "user-1", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestSentGuard_MarkerExpires(t *testing.T) {
	guard, mr := newTestGuard(t, time.Hour)
	ctx := context.Background()
	day := time.Date(2023, 6, 13, 4, 30, 0, 0, time.UTC)

	require.NoError(t, guard.MarkSent(ctx, "daily", "user-1", day))
	mr.FastForward(2 * time.Hour)

	sent, err := guard.AlreadySent(ctx, "daily", "user-1", day)
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestSentGuard_DayNormalizedToUTC(t *testing.T) {
	guard, _ := newTestGuard(t, 48*time.Hour)
	ctx := context.Background()

	loc := time.FixedZone("EST", -5*3600)
	local := time.Date(2023, 6, 13, 23, 30, 0, 0, loc)
	utc := local.UTC()

	require.NoError(t, guard.MarkSent(ctx, "daily", "user-1", local))

	sent, err := guard.AlreadySent(ctx, "daily", "user-1", utc)
	require.NoError(t, err)
	assert.True(t, sent)
}
