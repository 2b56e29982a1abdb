// ABOUTME: Tests for the fan-out Hub
// ABOUTME: Covers join/leave isolation, idempotent join, context cleanup, slow sessions, concurrency

package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/wadash/internal/store"
)

func makeMessage(id string) *store.Message {
	return &store.Message{
		ID:        id,
		From:      "+15550001",
		Text:      "hello from " + id,
		Type:      store.MessageTypeText,
		CreatedAt: time.Now(),
	}
}

func TestHub_JoinedSessionReceivesPublish(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	ch := h.Join(t.Context(), RoomLiveFeed, "s1")
	assert.Equal(t, 1, h.Publish(RoomLiveFeed, makeMessage("m1")))

	select {
	case ev := <-ch:
		assert.Equal(t, "m1", ev.Message.ID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestHub_MultipleSessionsReceiveSameEvent(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	ctx := t.Context()
	chans := []<-chan *Event{
		h.Join(ctx, RoomLiveFeed, "s1"),
		h.Join(ctx, RoomLiveFeed, "s2"),
		h.Join(ctx, RoomLiveFeed, "s3"),
	}

	assert.Equal(t, 3, h.Publish(RoomLiveFeed, makeMessage("m2")))

	for i, ch := range chans {
		select {
		case ev := <-ch:
			assert.Equal(t, "m2", ev.Message.ID, "session %d got wrong event", i)
		case <-time.After(time.Second):
			t.Fatalf("session %d timed out", i)
		}
	}
}

func TestHub_SessionThatNeverJoinedReceivesNothing(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	other := h.Join(t.Context(), "other_room", "outsider")
	assert.Equal(t, 0, h.Publish(RoomLiveFeed, makeMessage("m3")))

	select {
	case <-other:
		t.Fatal("session in another room should not receive live feed events")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_JoinIsIdempotent(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	ctx := t.Context()
	ch1 := h.Join(ctx, RoomLiveFeed, "s1")
	ch2 := h.Join(ctx, RoomLiveFeed, "s1")
	assert.Equal(t, ch1, ch2)
	assert.Equal(t, 1, h.Members(RoomLiveFeed))

	assert.Equal(t, 1, h.Publish(RoomLiveFeed, makeMessage("m4")))
	<-ch1
	select {
	case <-ch1:
		t.Fatal("double join must not double deliver")
	default:
	}
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	ch := h.Join(t.Context(), RoomLiveFeed, "s1")
	h.Leave(RoomLiveFeed, "s1")

	assert.Equal(t, 0, h.Publish(RoomLiveFeed, makeMessage("after-leave")))

	select {
	case ev, ok := <-ch:
		assert.False(t, ok, "channel should be closed after leave, got %v", ev)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after leave")
	}

	// Leaving twice is harmless.
	h.Leave(RoomLiveFeed, "s1")
}

func TestHub_ContextCancellationLeaves(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := h.Join(ctx, RoomLiveFeed, "s1")
	require.Equal(t, 1, h.Members(RoomLiveFeed))

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after context cancel")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancel")
	}
	assert.Equal(t, 0, h.Members(RoomLiveFeed))
}

func TestHub_StaleContextDoesNotRemoveRejoin(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	ctx1, cancel1 := context.WithCancel(context.Background())
	h.Join(ctx1, RoomLiveFeed, "s1")
	h.Leave(RoomLiveFeed, "s1")

	ch := h.Join(t.Context(), RoomLiveFeed, "s1")
	cancel1()
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 1, h.Members(RoomLiveFeed))
	assert.Equal(t, 1, h.Publish(RoomLiveFeed, makeMessage("m5")))
	ev := <-ch
	assert.Equal(t, "m5", ev.Message.ID)
}

func TestHub_SlowSessionDoesNotBlockPublisher(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	ctx := t.Context()
	_ = h.Join(ctx, RoomLiveFeed, "slow")
	fast := h.Join(ctx, RoomLiveFeed, "fast")

	done := make(chan struct{})
	go func() {
		for i := range 200 {
			h.Publish(RoomLiveFeed, makeMessage(fmt.Sprintf("m%d", i)))
		}
		close(done)
	}()

	received := 0
	for {
		select {
		case <-fast:
			received++
		case <-done:
			assert.Greater(t, received, 0, "fast session should receive events")
			return
		case <-time.After(2 * time.Second):
			t.Fatal("publisher blocked by slow session")
		}
	}
}

func TestHub_CloseClosesAllSessions(t *testing.T) {
	h := NewHub(nil)

	ch1 := h.Join(t.Context(), RoomLiveFeed, "s1")
	ch2 := h.Join(t.Context(), "other_room", "s2")

	h.Close()

	for i, ch := range []<-chan *Event{ch1, ch2} {
		select {
		case _, ok := <-ch:
			assert.False(t, ok, "channel %d should be closed after Close()", i)
		case <-time.After(time.Second):
			t.Fatalf("channel %d not closed after Close()", i)
		}
	}
}

func TestHub_ConcurrentChurnAndPublish(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	var wg sync.WaitGroup
	ctx := t.Context()

	for i := range 20 {
		wg.Go(func() {
			id := fmt.Sprintf("s%d", i)
			for range 20 {
				ch := h.Join(ctx, RoomLiveFeed, id)
				select {
				case <-ch:
				default:
				}
				h.Leave(RoomLiveFeed, id)
			}
		})
	}
	for range 10 {
		wg.Go(func() {
			for j := range 50 {
				h.Publish(RoomLiveFeed, makeMessage(fmt.Sprintf("c%d", j)))
			}
		})
	}

	wg.Wait()
	assert.Equal(t, 0, h.Members(RoomLiveFeed))
}
