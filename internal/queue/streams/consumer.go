package streams

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Message is a decoded stream entry.
type Message struct {
	ID       string
	Envelope Envelope
}

// Consumer reads one stream through a consumer group.
type Consumer struct {
	client   redis.Cmdable
	registry *SchemaRegistry
	stream   string
	group    string
	name     string
	block    time.Duration
	count    int64
	log      zerolog.Logger
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithBlock sets how long Read waits for new entries.
func WithBlock(d time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if d > 0 {
			c.block = d
		}
	}
}

// WithCount caps the entries returned by one Read or AutoClaim.
func WithCount(n int64) ConsumerOption {
	return func(c *Consumer) {
		if n > 0 {
			c.count = n
		}
	}
}

// WithLogger sets the logger used for dropped entries.
func WithLogger(log zerolog.Logger) ConsumerOption {
	return func(c *Consumer) { c.log = log }
}

// NewConsumer returns a consumer named name in group.
func NewConsumer(client redis.Cmdable, registry *SchemaRegistry, stream, group, name string, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		client:   client,
		registry: registry,
		stream:   stream,
		group:    group,
		name:     name,
		block:    5 * time.Second,
		count:    10,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EnsureGroup creates the consumer group and the stream when missing.
func EnsureGroup(ctx context.Context, client redis.Cmdable, stream, group string) error {
	if stream == "" || group == "" {
		return fmt.Errorf("stream and group must be provided")
	}
	if err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err(); err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return fmt.Errorf("xgroup create: %w", err)
	}
	return nil
}

// EnsureGroup creates the consumer's group.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	return EnsureGroup(ctx, c.client, c.stream, c.group)
}

func (c *Consumer) check() error {
	if c.stream == "" {
		return fmt.Errorf("stream name is required")
	}
	if c.group == "" || c.name == "" {
		return fmt.Errorf("consumer group and name must be configured")
	}
	return nil
}

// Read returns new entries, blocking up to the configured duration. A timeout yields no messages.
func (c *Consumer) Read(ctx context.Context) ([]Message, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.name,
		Streams:  []string{c.stream, ">"},
		Count:    c.count,
		Block:    c.block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	var out []Message
	for _, st := range streams {
		for _, msg := range st.Messages {
			if decoded, ok := c.decode(ctx, msg); ok {
				out = append(out, decoded)
			}
		}
	}
	return out, nil
}

// AutoClaim takes over entries idle for at least minIdle. The returned cursor
// continues the scan; "0-0" means the pending list was exhausted.
func (c *Consumer) AutoClaim(ctx context.Context, minIdle time.Duration, start string) ([]Message, string, error) {
	if err := c.check(); err != nil {
		return nil, "", err
	}
	if start == "" {
		start = "0-0"
	}
	msgs, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.stream,
		Group:    c.group,
		Consumer: c.name,
		MinIdle:  minIdle,
		Start:    start,
		Count:    c.count,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "0-0", nil
		}
		return nil, "", fmt.Errorf("xautoclaim: %w", err)
	}
	var out []Message
	for _, msg := range msgs {
		if decoded, ok := c.decode(ctx, msg); ok {
			out = append(out, decoded)
		}
	}
	return out, next, nil
}

// Ack acknowledges processed entries.
func (c *Consumer) Ack(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.client.XAck(ctx, c.stream, c.group, ids...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

// Lag reports pending and lag figures for the consumer's group.
func (c *Consumer) Lag(ctx context.Context) (LagMetrics, error) {
	return GroupLag(ctx, c.client, c.stream, c.group)
}

// decode acknowledges and drops entries that cannot be delivered so they do
// not stay pending forever.
func (c *Consumer) decode(ctx context.Context, msg redis.XMessage) (Message, bool) {
	env, err := envelopeFrom(msg)
	if err == nil && c.registry != nil {
		err = c.registry.Validate(env.EventType, env.PayloadVersion, env.Data)
	}
	if err != nil {
		c.log.Warn().Err(err).Str("stream", c.stream).Str("entry_id", msg.ID).Msg("dropping undeliverable stream entry")
		count(ctx, &droppedEvents, c.stream, env.EventType)
		if ackErr := c.client.XAck(ctx, c.stream, c.group, msg.ID).Err(); ackErr != nil {
			c.log.Error().Err(ackErr).Str("entry_id", msg.ID).Msg("ack dropped entry")
		}
		return Message{}, false
	}
	count(ctx, &consumedEvents, c.stream, env.EventType)
	return Message{ID: msg.ID, Envelope: env}, true
}

func envelopeFrom(msg redis.XMessage) (Envelope, error) {
	raw, ok := msg.Values[envelopeField]
	if !ok {
		return Envelope{}, fmt.Errorf("%w: entry has no %q field", ErrInvalidEnvelope, envelopeField)
	}
	switch v := raw.(type) {
	case string:
		return ParseEnvelope([]byte(v))
	case []byte:
		return ParseEnvelope(v)
	default:
		return Envelope{}, fmt.Errorf("%w: unexpected field type %T", ErrInvalidEnvelope, raw)
	}
}
