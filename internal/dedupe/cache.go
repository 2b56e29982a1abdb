// ABOUTME: TTL- and size-bounded window of recently seen provider message IDs
// ABOUTME: Claim/Release let ingestion skip redeliveries without losing failed writes

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// entry is one claimed ID and its position in the insertion list.
type entry struct {
	claimedAt time.Time
	elem      *list.Element
}

// Window remembers claimed IDs for ttl, holding at most maxSize of them.
// When full, the oldest claim is forgotten first. It is safe for concurrent
// use.
type Window struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   *list.List // IDs, oldest claim at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a window and starts a background sweep of expired IDs.
func New(ttl time.Duration, maxSize int) *Window {
	if maxSize <= 0 {
		maxSize = 1
	}
	w := &Window{
		entries: make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go w.sweepLoop()
	return w
}

// Claim records id and reports whether the caller is the first to claim it
// within the TTL. A false result means id is a redelivery.
func (w *Window) Claim(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if e, ok := w.entries[id]; ok {
		if now.Sub(e.claimedAt) < w.ttl {
			return false
		}
		w.order.Remove(e.elem)
		delete(w.entries, id)
	}

	for len(w.entries) >= w.maxSize {
		w.evictOldestLocked()
	}
	w.entries[id] = &entry{claimedAt: now, elem: w.order.PushBack(id)}
	return true
}

// Release forgets id so a later delivery is processed again. Ingestion
// releases IDs whose write failed.
func (w *Window) Release(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if e, ok := w.entries[id]; ok {
		w.order.Remove(e.elem)
		delete(w.entries, id)
	}
}

// Len returns the number of remembered IDs, expired or not.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

func (w *Window) evictOldestLocked() {
	front := w.order.Front()
	if front == nil {
		return
	}
	id, _ := front.Value.(string)
	w.order.Remove(front)
	delete(w.entries, id)
}

func (w *Window) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.done:
			return
		}
	}
}

// sweep drops expired IDs. Claims are appended in time order, so it stops
// at the first live one.
func (w *Window) sweep() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for front := w.order.Front(); front != nil; front = w.order.Front() {
		id, _ := front.Value.(string)
		e := w.entries[id]
		if e != nil && now.Sub(e.claimedAt) < w.ttl {
			return
		}
		w.order.Remove(front)
		delete(w.entries, id)
	}
}

// Close stops the background sweep. It is safe to call multiple times.
func (w *Window) Close() {
	w.closeOnce.Do(func() { close(w.done) })
}
