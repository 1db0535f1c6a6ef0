package streams

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLagMetricsStalled(t *testing.T) {
	cases := []struct {
		name string
		m    LagMetrics
		idle time.Duration
		want bool
	}{
		{"empty", LagMetrics{}, time.Minute, false},
		{"fresh pending", LagMetrics{Pending: 2, OldestIdle: 30 * time.Second}, time.Minute, false},
		{"abandoned", LagMetrics{Pending: 1, OldestIdle: 6 * time.Minute}, 5 * time.Minute, true},
		{"no window", LagMetrics{Pending: 1, OldestIdle: time.Hour}, 0, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.m.Stalled(tc.idle), tc.name)
	}
}
