package streams

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrGroupMissing is returned by GroupLag when the stream exists but has no
// such consumer group, usually because no worker has started yet.
var ErrGroupMissing = errors.New("consumer group missing")

// LagMetrics is the automation queue backlog seen by one consumer group.
type LagMetrics struct {
	// Pending entries were delivered but not acknowledged.
	Pending int64
	// Lag counts entries not yet delivered to the group.
	Lag        int64
	Consumers  int64
	OldestIdle time.Duration
}

// Stalled reports whether the oldest pending entry has sat idle longer than
// claimIdle, i.e. its worker is gone and reclaiming has not caught up.
func (m LagMetrics) Stalled(claimIdle time.Duration) bool {
	return m.Pending > 0 && claimIdle > 0 && m.OldestIdle > claimIdle
}

// GroupLag reads the group's XINFO GROUPS row and, when anything is pending,
// the idle time of the oldest pending entry.
func GroupLag(ctx context.Context, client redis.Cmdable, stream, group string) (LagMetrics, error) {
	if stream == "" || group == "" {
		return LagMetrics{}, fmt.Errorf("stream and group are required")
	}
	groups, err := client.XInfoGroups(ctx, stream).Result()
	if err != nil {
		return LagMetrics{}, fmt.Errorf("xinfo groups %s: %w", stream, err)
	}
	var (
		m     LagMetrics
		found bool
	)
	for _, info := range groups {
		if info.Name == group {
			m = LagMetrics{Pending: info.Pending, Lag: info.Lag, Consumers: info.Consumers}
			found = true
			break
		}
	}
	if !found {
		return LagMetrics{}, fmt.Errorf("%s/%s: %w", stream, group, ErrGroupMissing)
	}
	if m.Pending == 0 {
		return m, nil
	}

	oldest, err := client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream, Group: group, Start: "-", End: "+", Count: 1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return LagMetrics{}, fmt.Errorf("oldest pending %s/%s: %w", stream, group, err)
	}
	if len(oldest) > 0 {
		m.OldestIdle = oldest[0].Idle
	}
	return m, nil
}
