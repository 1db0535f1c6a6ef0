// Package scheduler finds due automations and hands them to the worker queue.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/qqmakana/ai-sales-agent/config"
	"github.com/qqmakana/ai-sales-agent/internal/logger"
	"github.com/qqmakana/ai-sales-agent/internal/store"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Store is the persistence the dispatcher needs.
type Store interface {
	BackfillNextRuns(ctx context.Context, now time.Time, next store.NextRunFunc) (int, error)
	ListDueAutomations(ctx context.Context, now time.Time, limit int) ([]store.Automation, error)
	ClaimAutomation(ctx context.Context, id string, now, staleBefore time.Time) (bool, error)
	ReleaseAutomation(ctx context.Context, id string) error
}

// Enqueuer publishes a claimed automation for the workers.
type Enqueuer interface {
	EnqueueAutomation(ctx context.Context, id string, at time.Time) (string, error)
}

// TickResult counts what one scan did.
type TickResult struct {
	Due     int
	Claimed int
	Locked  int
	Lost    int
	Failed  int
	Skipped bool
}

// Dispatcher runs the scan loop.
type Dispatcher struct {
	cfg   config.SchedulerConfig
	store Store
	queue Enqueuer
	lock  TickLock
	log   zerolog.Logger
	now   func() time.Time

	dispatched otelmetric.Int64Counter
	skipped    otelmetric.Int64Counter
}

// New builds a dispatcher. lock may be nil, which disables the tick lock
// regardless of cfg.TickLock.
func New(cfg config.SchedulerConfig, st Store, queue Enqueuer, lock TickLock, log zerolog.Logger) *Dispatcher {
	meter := otel.Meter("salesagent/scheduler")
	dispatched, _ := meter.Int64Counter("salesagent_automations_dispatched_total",
		otelmetric.WithDescription("Automations claimed and published to the queue"))
	skipped, _ := meter.Int64Counter("salesagent_automations_skipped_total",
		otelmetric.WithDescription("Due automations not dispatched, by reason"))
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Dispatcher{
		cfg:        cfg,
		store:      st,
		queue:      queue,
		lock:       lock,
		log:        logger.Component(log, "scheduler"),
		now:        func() time.Time { return time.Now().UTC() },
		dispatched: dispatched,
		skipped:    skipped,
	}
}

// Run backfills missing next runs, then scans every interval until ctx ends.
func (d *Dispatcher) Run(ctx context.Context) error {
	n, err := d.store.BackfillNextRuns(ctx, d.now(), NextRun)
	if err != nil {
		d.log.Error().Err(err).Msg("backfill next runs")
	} else if n > 0 {
		d.log.Info().Int("count", n).Msg("backfilled next runs")
	}

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()
	for {
		if _, err := d.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.log.Error().Err(err).Msg("scheduler tick")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Tick claims and publishes every due automation once.
func (d *Dispatcher) Tick(ctx context.Context) (TickResult, error) {
	var res TickResult
	now := d.now()

	if d.cfg.TickLock && d.lock != nil {
		ok, err := d.lock.Acquire(ctx, d.cfg.TickLockKey, d.cfg.Interval)
		if err != nil {
			return res, err
		}
		if !ok {
			d.log.Debug().Msg("tick lock held by another dispatcher")
			res.Skipped = true
			return res, nil
		}
	}

	due, err := d.store.ListDueAutomations(ctx, now, d.cfg.BatchSize)
	if err != nil {
		return res, err
	}
	res.Due = len(due)
	staleBefore := now.Add(-d.cfg.StaleLockAfter)

	for _, a := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		log := d.log.With().Str(logger.AutomationField, a.ID).Logger()

		// A lock newer than the staleness window belongs to a live run.
		if a.LockedAt != nil && a.LockedAt.After(staleBefore) {
			res.Locked++
			d.skip(ctx, "locked")
			continue
		}
		won, err := d.store.ClaimAutomation(ctx, a.ID, now, staleBefore)
		if err != nil {
			res.Failed++
			log.Error().Err(err).Msg("claim automation")
			continue
		}
		if !won {
			res.Lost++
			d.skip(ctx, "claimed_elsewhere")
			continue
		}
		if _, err := d.queue.EnqueueAutomation(ctx, a.ID, now); err != nil {
			res.Failed++
			log.Error().Err(err).Msg("publish automation")
			if relErr := d.store.ReleaseAutomation(ctx, a.ID); relErr != nil {
				log.Error().Err(relErr).Msg("release automation after publish failure")
			}
			continue
		}
		res.Claimed++
		if d.dispatched != nil {
			d.dispatched.Add(ctx, 1)
		}
		log.Info().Msg("automation queued")
	}
	return res, nil
}

func (d *Dispatcher) skip(ctx context.Context, reason string) {
	if d.skipped != nil {
		d.skipped.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("reason", reason)))
	}
}
