// internal/notify/guard.go
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SentGuard remembers which users already received a notification for a given
// day, so a re-dispatched job does not send a duplicate unless forced.
type SentGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSentGuard creates a guard with the given marker TTL.
func NewSentGuard(rdb *redis.Client, ttl time.Duration) *SentGuard {
	return &SentGuard{
		rdb: rdb,
		ttl: ttl,
	}
}

func (g *SentGuard) key(frequency, userID string, day time.Time) string {
	return fmt.Sprintf("myads:sent:%s:%s:%s", frequency, userID, day.UTC().Format("2006-01-02"))
}

// AlreadySent reports whether a marker exists for the user and day.
func (g *SentGuard) AlreadySent(ctx context.Context, frequency, userID string, day time.Time) (bool, error) {
	n, err := g.rdb.Exists(ctx, g.key(frequency, userID, day)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkSent records a marker for the user and day.
func (g *SentGuard) MarkSent(ctx context.Context, frequency, userID string, day time.Time) error {
	return g.rdb.Set(ctx, g.key(frequency, userID, day), "1", g.ttl).Err()
}
