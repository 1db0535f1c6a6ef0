package streams_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/qqmakana/ai-sales-agent/internal/queue/streams"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	redisC, err := tcRedis.RunContainer(ctx, testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")))
	if err != nil {
		t.Fatalf("redis container: %v", err)
	}
	t.Cleanup(func() { _ = redisC.Terminate(ctx) })

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPublishReadAck(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	reg, err := streams.NewDefaultRegistry()
	require.NoError(t, err)

	const stream, group = "automation.queued", "automation-workers"
	consumer := streams.NewConsumer(client, reg, stream, group, "c1", streams.WithBlock(200*time.Millisecond))
	require.NoError(t, consumer.EnsureGroup(ctx))
	require.NoError(t, consumer.EnsureGroup(ctx), "second create must tolerate BUSYGROUP")

	pub := streams.NewPublisher(client, reg, stream, streams.WithMaxLenApprox(1000))
	_, err = pub.EnqueueAutomation(ctx, "auto-1", time.Now())
	require.NoError(t, err)

	// An entry without a valid envelope is dropped and acknowledged.
	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: map[string]any{"envelope": "{}"}}).Err())

	msgs, err := consumer.Read(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	var payload streams.AutomationQueued
	require.NoError(t, msgs[0].Envelope.Decode(&payload))
	assert.Equal(t, "auto-1", payload.AutomationID)

	lag, err := consumer.Lag(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), lag.Pending)

	require.NoError(t, consumer.Ack(ctx, msgs[0].ID))
	lag, err = consumer.Lag(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), lag.Pending)

	empty, err := consumer.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPublishRejectsInvalidPayload(t *testing.T) {
	client := startRedis(t)
	reg, err := streams.NewDefaultRegistry()
	require.NoError(t, err)
	pub := streams.NewPublisher(client, reg, "automation.queued")

	_, err = pub.PublishEvent(context.Background(), streams.EventAutomationQueued, streams.VersionV1, map[string]any{"automation_id": ""})
	assert.Error(t, err)
}

func TestAutoClaimTakesOverPending(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	reg, err := streams.NewDefaultRegistry()
	require.NoError(t, err)

	const stream, group = "automation.queued", "automation-workers"
	dead := streams.NewConsumer(client, reg, stream, group, "dead", streams.WithBlock(200*time.Millisecond))
	require.NoError(t, dead.EnsureGroup(ctx))
	_, err = streams.NewPublisher(client, reg, stream).EnqueueAutomation(ctx, "auto-2", time.Now())
	require.NoError(t, err)

	msgs, err := dead.Read(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	alive := streams.NewConsumer(client, reg, stream, group, "alive")
	claimed, _, err := alive.AutoClaim(ctx, 0, "")
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, msgs[0].ID, claimed[0].ID)
}

func TestGroupLagReportsBacklog(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	reg, err := streams.NewDefaultRegistry()
	require.NoError(t, err)

	const stream = "automation.queued"
	pub := streams.NewPublisher(client, reg, stream)
	_, err = pub.EnqueueAutomation(ctx, "auto-3", time.Now())
	require.NoError(t, err)

	_, err = streams.GroupLag(ctx, client, stream, "nobody")
	assert.ErrorIs(t, err, streams.ErrGroupMissing)

	c := streams.NewConsumer(client, reg, stream, "automation-workers", "w1", streams.WithBlock(200*time.Millisecond))
	require.NoError(t, c.EnsureGroup(ctx))
	_, err = pub.EnqueueAutomation(ctx, "auto-4", time.Now())
	require.NoError(t, err)

	lag, err := c.Lag(ctx)
	require.NoError(t, err)
	assert.Zero(t, lag.Pending)

	msgs, err := c.Read(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, msgs)
	time.Sleep(50 * time.Millisecond)

	lag, err = c.Lag(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(msgs)), lag.Pending)
	assert.Equal(t, int64(1), lag.Consumers)
	assert.Positive(t, lag.OldestIdle)
	assert.True(t, lag.Stalled(time.Millisecond))
}
