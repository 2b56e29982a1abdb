// ABOUTME: Tests for the Redis and AMQP relays and Multi fan-out
// ABOUTME: Redis tests run against miniredis; AMQP covers message construction only

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/wadash/internal/store"
)

func testMessage() *store.Message {
	return &store.Message{
		ID:        "wamid.1",
		From:      "+15550001",
		Text:      "hello",
		Type:      store.MessageTypeText,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRedisRelay_PublishesEnvelope(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer sub.Close()
	ps := sub.Subscribe(ctx, "wadash:messages")
	defer ps.Close()
	_, err := ps.Receive(ctx)
	require.NoError(t, err)

	r := NewRedisRelay(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "wadash:messages")
	defer r.Close()

	require.NoError(t, r.Relay(ctx, testMessage()))

	select {
	case m := <-ps.Channel():
		var env Envelope
		require.NoError(t, json.Unmarshal([]byte(m.Payload), &env))
		assert.Equal(t, EventNewMessage, env.Type)
		require.NotNil(t, env.Message)
		assert.Equal(t, "wamid.1", env.Message.ID)
		assert.Equal(t, "hello", env.Message.Text)
		assert.False(t, env.RelayedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no message received on channel")
	}
}

func TestRedisRelay_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedisRelay(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), "wadash:messages")
	defer r.Close()

	mr.Close()
	err := r.Relay(context.Background(), testMessage())
	assert.Error(t, err)
}

func TestPublishing_StampsIDsAndType(t *testing.T) {
	msg := testMessage()
	p := publishing(msg, []byte(`{}`))

	assert.Equal(t, "wamid.1", p.MessageId)
	assert.NotEmpty(t, p.CorrelationId)
	assert.Equal(t, EventNewMessage, p.Type)
	assert.Equal(t, "application/json", p.ContentType)
	assert.Equal(t, amqp091.Persistent, p.DeliveryMode)

	msg.ID = ""
	assert.NotEmpty(t, publishing(msg, nil).MessageId, "falls back to a generated id")
}

type fakeRelay struct {
	calls  int
	closed bool
	err    error
}

func (f *fakeRelay) Relay(ctx context.Context, msg *store.Message) error {
	f.calls++
	return f.err
}

func (f *fakeRelay) Close() error {
	f.closed = true
	return f.err
}

func TestMulti_RelaysToAllAndJoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	a := &fakeRelay{err: errA}
	b := &fakeRelay{}
	m := Multi{a, b}

	err := m.Relay(context.Background(), testMessage())
	assert.ErrorIs(t, err, errA)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls, "a failing relay does not stop the others")

	assert.ErrorIs(t, m.Close(), errA)
	assert.True(t, a.closed)
	assert.True(t, b.closed)

	assert.NoError(t, Multi{}.Relay(context.Background(), testMessage()))
}
