package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/qqmakana/ai-sales-agent/config"
	"github.com/qqmakana/ai-sales-agent/internal/logger"
	"github.com/qqmakana/ai-sales-agent/internal/queue/streams"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// MessageSource is the consumer-group side of the automation stream.
type MessageSource interface {
	Read(ctx context.Context) ([]streams.Message, error)
	AutoClaim(ctx context.Context, minIdle time.Duration, start string) ([]streams.Message, string, error)
	Ack(ctx context.Context, ids ...string) error
}

// LagReporter is implemented by sources that can report group backlog.
type LagReporter interface {
	Lag(ctx context.Context) (streams.LagMetrics, error)
}

// Idempotency remembers which stream events were already accepted.
type Idempotency interface {
	ClaimIdempotency(ctx context.Context, scope, key string) (bool, error)
	PruneIdempotency(ctx context.Context, before time.Time) (int64, error)
}

// AutomationRunner executes one automation.
type AutomationRunner interface {
	RunAutomation(ctx context.Context, id string) (RunResult, error)
}

const (
	DefaultConcurrency    = 4
	DefaultRunTimeout     = 10 * time.Minute
	DefaultClaimIdle      = 5 * time.Minute
	DefaultIdempotencyTTL = 7 * 24 * time.Hour

	maintenanceInterval = time.Minute
)

// Processor consumes automation.queued events and hands each automation to
// the runner. Every message is acked once handled, whatever the outcome.
type Processor struct {
	cfg    config.WorkerConfig
	source MessageSource
	keys   Idempotency
	runner AutomationRunner
	log    zerolog.Logger
	tracer trace.Tracer
	now    func() time.Time

	handled    otelmetric.Int64Counter
	duplicates otelmetric.Int64Counter
}

func NewProcessor(cfg config.WorkerConfig, source MessageSource, keys Idempotency, runner AutomationRunner, log zerolog.Logger) *Processor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	if cfg.ClaimIdle <= 0 {
		cfg.ClaimIdle = DefaultClaimIdle
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = DefaultIdempotencyTTL
	}
	p := &Processor{
		cfg:    cfg,
		source: source,
		keys:   keys,
		runner: runner,
		log:    logger.Component(log, "worker"),
		tracer: otel.Tracer("salesagent/worker"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	meter := otel.Meter("salesagent/worker")
	var err error
	if p.handled, err = meter.Int64Counter("salesagent_worker_messages_total",
		otelmetric.WithDescription("Automation messages handled by outcome")); err != nil {
		p.log.Warn().Err(err).Msg("create handled counter")
	}
	if p.duplicates, err = meter.Int64Counter("salesagent_worker_duplicates_total",
		otelmetric.WithDescription("Automation messages skipped as already processed")); err != nil {
		p.log.Warn().Err(err).Msg("create duplicate counter")
	}
	return p
}

// Start blocks until ctx is cancelled. In-flight automations are waited for
// before it returns.
func (p *Processor) Start(ctx context.Context) error {
	p.log.Info().Int("concurrency", p.cfg.Concurrency).Msg("worker processor starting")

	jobs := make(chan streams.Message)
	var wg sync.WaitGroup
	for range p.cfg.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range jobs {
				p.Handle(ctx, msg)
			}
		}()
	}

	maintained := make(chan struct{})
	go func() {
		defer close(maintained)
		p.maintain(ctx, jobs)
	}()

	p.readLoop(ctx, jobs)
	<-maintained
	close(jobs)
	wg.Wait()
	p.log.Info().Msg("worker processor stopped")
	return nil
}

func (p *Processor) readLoop(ctx context.Context, jobs chan<- streams.Message) {
	for ctx.Err() == nil {
		msgs, err := p.source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Error().Err(err).Msg("read stream")
			sleep(ctx, time.Second)
			continue
		}
		if !dispatch(ctx, jobs, msgs) {
			return
		}
	}
}

// maintain reclaims entries left pending by dead consumers and prunes old
// idempotency keys.
func (p *Processor) maintain(ctx context.Context, jobs chan<- streams.Message) {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !p.reclaim(ctx, jobs) {
			return
		}
		p.reportLag(ctx)
		if n, err := p.keys.PruneIdempotency(ctx, p.now().Add(-p.cfg.IdempotencyTTL)); err != nil {
			p.log.Warn().Err(err).Msg("prune idempotency keys")
		} else if n > 0 {
			p.log.Debug().Int64("pruned", n).Msg("pruned idempotency keys")
		}
	}
}

func (p *Processor) reportLag(ctx context.Context) {
	lr, ok := p.source.(LagReporter)
	if !ok {
		return
	}
	lag, err := lr.Lag(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("read group lag")
		return
	}
	ev := p.log.Debug()
	if lag.Stalled(p.cfg.ClaimIdle) {
		ev = p.log.Warn()
	}
	ev.Int64("pending", lag.Pending).Int64("lag", lag.Lag).
		Int64("consumers", lag.Consumers).Dur("oldest_idle", lag.OldestIdle).Msg("stream backlog")
}

func (p *Processor) reclaim(ctx context.Context, jobs chan<- streams.Message) bool {
	start := "0-0"
	for {
		msgs, next, err := p.source.AutoClaim(ctx, p.cfg.ClaimIdle, start)
		if err != nil {
			p.log.Warn().Err(err).Msg("autoclaim pending entries")
			return ctx.Err() == nil
		}
		if len(msgs) > 0 {
			p.log.Info().Int("count", len(msgs)).Msg("reclaimed pending entries")
		}
		if !dispatch(ctx, jobs, msgs) {
			return false
		}
		if next == "" || next == "0-0" {
			return true
		}
		start = next
	}
}

// Handle processes one message and acks it. Messages that arrive after
// shutdown began stay pending for another consumer to reclaim.
func (p *Processor) Handle(ctx context.Context, msg streams.Message) {
	if ctx.Err() != nil {
		return
	}
	log := p.log.With().Str("message_id", msg.ID).Str("event_id", msg.Envelope.EventID).Logger()
	outcome, err := p.handle(ctx, msg)
	if err != nil {
		log.Error().Err(err).Msg("handle automation message")
	}
	if p.handled != nil {
		p.handled.Add(context.WithoutCancel(ctx), 1, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if err := p.source.Ack(context.WithoutCancel(ctx), msg.ID); err != nil {
		log.Warn().Err(err).Msg("ack message")
	}
}

func (p *Processor) handle(ctx context.Context, msg streams.Message) (string, error) {
	ctx, span := p.tracer.Start(ctx, "worker.handle_automation")
	defer span.End()

	if msg.Envelope.EventType != streams.EventAutomationQueued {
		return "ignored", fmt.Errorf("unexpected event type %q", msg.Envelope.EventType)
	}
	claimed, err := p.keys.ClaimIdempotency(ctx, streams.EventAutomationQueued, msg.Envelope.EventID)
	if err != nil {
		return "error", fmt.Errorf("claim idempotency: %w", err)
	}
	if !claimed {
		p.log.Info().Str("event_id", msg.Envelope.EventID).Msg("event already processed, skipping")
		if p.duplicates != nil {
			p.duplicates.Add(ctx, 1)
		}
		return "duplicate", nil
	}

	var payload streams.AutomationQueued
	if err := msg.Envelope.Decode(&payload); err != nil {
		return "error", fmt.Errorf("decode payload: %w", err)
	}
	span.SetAttributes(attribute.String("automation.id", payload.AutomationID))

	runCtx, cancel := context.WithTimeout(ctx, p.cfg.RunTimeout)
	defer cancel()
	res, err := p.runner.RunAutomation(runCtx, payload.AutomationID)
	if err != nil {
		span.RecordError(err)
	}
	return string(res.Outcome), err
}

func dispatch(ctx context.Context, jobs chan<- streams.Message, msgs []streams.Message) bool {
	for _, msg := range msgs {
		select {
		case jobs <- msg:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
