package streams

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const envelopeField = "envelope"

// Publisher appends validated envelopes to a single Redis stream.
type Publisher struct {
	client   redis.Cmdable
	registry *SchemaRegistry
	stream   string
	maxLen   int64
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithMaxLenApprox trims the stream to roughly maxLen entries on every append.
func WithMaxLenApprox(maxLen int64) PublisherOption {
	return func(p *Publisher) {
		if maxLen > 0 {
			p.maxLen = maxLen
		}
	}
}

// NewPublisher returns a publisher bound to stream. A nil registry skips payload validation.
func NewPublisher(client redis.Cmdable, registry *SchemaRegistry, stream string, opts ...PublisherOption) *Publisher {
	p := &Publisher{client: client, registry: registry, stream: stream}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stream reports the stream name the publisher writes to.
func (p *Publisher) Stream() string { return p.stream }

// Publish validates env and appends it, returning the stream entry id.
func (p *Publisher) Publish(ctx context.Context, env Envelope) (string, error) {
	if p.stream == "" {
		return "", fmt.Errorf("stream name is required")
	}
	if env.EventID == "" {
		env.EventID = uuid.NewString()
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = time.Now().UTC()
	}
	if p.registry != nil {
		if err := p.registry.ValidateEnvelope(env); err != nil {
			return "", err
		}
	}
	raw, err := env.Marshal()
	if err != nil {
		return "", err
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{envelopeField: raw},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	count(ctx, &publishedEvents, p.stream, env.EventType)
	return id, nil
}

// PublishEvent wraps payload in a fresh envelope and publishes it.
func (p *Publisher) PublishEvent(ctx context.Context, eventType, version string, payload any) (string, error) {
	env, err := NewEnvelope(eventType, version, payload)
	if err != nil {
		return "", err
	}
	return p.Publish(ctx, env)
}

// EnqueueAutomation publishes an automation.queued event for id.
func (p *Publisher) EnqueueAutomation(ctx context.Context, id string, at time.Time) (string, error) {
	return p.PublishEvent(ctx, EventAutomationQueued, VersionV1, AutomationQueued{
		AutomationID: id,
		EnqueuedAt:   at.UTC(),
	})
}
