// ABOUTME: In-memory fan-out hub pushing newly stored messages to live sessions
// ABOUTME: Sessions join named rooms; publish delivers to a snapshot of current members

package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/2389/wadash/internal/store"
)

const (
	// RoomLiveFeed is the room every dashboard session joins to follow
	// incoming messages.
	RoomLiveFeed = "chat_room"

	// sessionBufferSize is the channel buffer for each session.
	sessionBufferSize = 64
)

// Event is the payload delivered to sessions on publish.
type Event struct {
	Message *store.Message `json:"message"`
}

// member is one session's membership in a room.
type member struct {
	mu     sync.RWMutex
	ch     chan *Event
	closed bool
	stop   func() bool // detaches the context cleanup
}

// deliver hands ev to the session without blocking. It holds the read lock
// across the send so close cannot race it.
func (m *member) deliver(ev *Event) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false
	}
	select {
	case m.ch <- ev:
		return true
	default:
		return false
	}
}

func (m *member) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.ch)
}

// Hub provides best-effort, in-memory pub/sub for stored messages. Nothing
// is queued for sessions that are not joined at publish time; the message
// store remains the source of truth.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*member // room -> sessionID -> member
	logger *slog.Logger
}

// NewHub creates a hub. Pass nil logger for default.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:  make(map[string]map[string]*member),
		logger: logger.With("component", "hub"),
	}
}

// Join adds sessionID to room and returns the channel its events arrive on.
// Joining again while already a member returns the same channel. The
// membership ends when ctx is cancelled or Leave is called; either way the
// channel is closed.
func (h *Hub) Join(ctx context.Context, room, sessionID string) <-chan *Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*member)
		h.rooms[room] = members
	}
	if m, exists := members[sessionID]; exists {
		return m.ch
	}

	m := &member{ch: make(chan *Event, sessionBufferSize)}
	m.stop = context.AfterFunc(ctx, func() {
		h.leave(room, sessionID, m)
	})
	members[sessionID] = m

	h.logger.Debug("session joined", "room", room, "session_id", sessionID)
	return m.ch
}

// Leave removes sessionID from room and closes its channel. Leaving a room
// the session is not in is a no-op.
func (h *Hub) Leave(room, sessionID string) {
	h.leave(room, sessionID, nil)
}

// leave removes the session, but only if it is still the membership want
// (nil matches any). This keeps a stale context cleanup from removing a
// later re-join under the same session ID.
func (h *Hub) leave(room, sessionID string, want *member) {
	h.mu.Lock()
	members, ok := h.rooms[room]
	if !ok {
		h.mu.Unlock()
		return
	}
	m, exists := members[sessionID]
	if !exists || (want != nil && m != want) {
		h.mu.Unlock()
		return
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	h.mu.Unlock()

	m.stop()
	m.close()

	h.logger.Debug("session left", "room", room, "session_id", sessionID)
}

// Publish delivers msg to every session currently in room and returns how
// many received it. Sessions whose buffers are full are skipped.
func (h *Hub) Publish(room string, msg *store.Message) int {
	h.mu.RLock()
	members := h.rooms[room]
	targets := make([]*member, 0, len(members))
	for _, m := range members {
		targets = append(targets, m)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return 0
	}

	ev := &Event{Message: msg}
	delivered := 0
	for _, m := range targets {
		if m.deliver(ev) {
			delivered++
			continue
		}
		h.logger.Debug("dropped event for session", "room", room, "message_id", msg.ID)
	}
	return delivered
}

// Members returns the number of sessions in room.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close removes every session from every room.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*member
	for room, members := range h.rooms {
		for _, m := range members {
			all = append(all, m)
		}
		delete(h.rooms, room)
	}
	h.mu.Unlock()

	for _, m := range all {
		m.stop()
		m.close()
	}
	h.logger.Debug("hub closed")
}
