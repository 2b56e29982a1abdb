// ABOUTME: Relays mirror live-feed messages to external brokers
// ABOUTME: Defines the Relay interface, the wire envelope, and Multi fan-out

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/2389/wadash/internal/store"
)

// EventNewMessage is the envelope type for a newly stored inbound message.
const EventNewMessage = "new_message"

// Relay mirrors a stored message to an external system.
type Relay interface {
	Relay(ctx context.Context, msg *store.Message) error
	Close() error
}

// Envelope is the JSON document relays publish.
type Envelope struct {
	Type      string         `json:"type"`
	Message   *store.Message `json:"message"`
	RelayedAt time.Time      `json:"relayed_at"`
}

func encode(msg *store.Message) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:      EventNewMessage,
		Message:   msg,
		RelayedAt: time.Now().UTC(),
	})
}

// Multi relays to every member and joins their errors.
type Multi []Relay

func (m Multi) Relay(ctx context.Context, msg *store.Message) error {
	var errs []error
	for _, r := range m {
		if err := r.Relay(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
