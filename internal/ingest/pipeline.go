// ABOUTME: Ingestion pipeline: parse, normalize, persist, broadcast
// ABOUTME: Also records operator sends after the provider has confirmed them

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/wadash/internal/conversation"
	"github.com/2389/wadash/internal/relay"
	"github.com/2389/wadash/internal/store"
)

// ErrUnsupportedObject is returned for batches that are not WhatsApp
// Business account deliveries.
var ErrUnsupportedObject = errors.New("unsupported webhook object")

const defaultRelayTimeout = 5 * time.Second

// MessageStore persists messages. *store.Store satisfies it.
type MessageStore interface {
	Append(ctx context.Context, msg *store.Message) error
}

// ContactBook creates contacts for first-time senders.
type ContactBook interface {
	LookupContact(ctx context.Context, phone string) (*store.Contact, bool)
	UpsertContact(ctx context.Context, in store.ContactInput) (*store.Contact, error)
}

// Publisher fans a stored message out to live sessions.
type Publisher interface {
	Publish(room string, msg *store.Message) int
}

// Deduper tracks recently stored provider message IDs.
type Deduper interface {
	Claim(id string) bool
	Release(id string)
}

// Options holds the optional collaborators. Nil fields disable the feature.
type Options struct {
	Contacts     ContactBook
	Relay        relay.Relay
	Dedupe       Deduper
	RelayTimeout time.Duration
	Logger       *slog.Logger
	Now          func() time.Time
}

// Pipeline processes webhook batches and sent-message confirmations.
type Pipeline struct {
	messages     MessageStore
	hub          Publisher
	contacts     ContactBook
	relay        relay.Relay
	dedupe       Deduper
	relayTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// BatchResult counts what happened to each message in a batch. Messages
// holds the ones that were stored, in batch order.
type BatchResult struct {
	Received   int
	Stored     int
	Duplicates int
	Failed     int
	Messages   []*store.Message
}

// SentMessage is an outbound message the provider accepted.
type SentMessage struct {
	ID   string // provider-assigned
	To   string
	Text string
}

func New(messages MessageStore, hub Publisher, opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RelayTimeout <= 0 {
		opts.RelayTimeout = defaultRelayTimeout
	}
	return &Pipeline{
		messages:     messages,
		hub:          hub,
		contacts:     opts.Contacts,
		relay:        opts.Relay,
		dedupe:       opts.Dedupe,
		relayTimeout: opts.RelayTimeout,
		logger:       opts.Logger.With("component", "ingest"),
		now:          opts.Now,
	}
}

// HandleBatch runs every message in batch through the pipeline. Only an
// unsupported batch returns an error; per-message persistence failures are
// logged and counted in the result.
func (p *Pipeline) HandleBatch(ctx context.Context, batch *WebhookBatch) (*BatchResult, error) {
	if batch == nil || batch.Object != ObjectBusinessAccount {
		return nil, ErrUnsupportedObject
	}

	res := &BatchResult{}
	for _, entry := range batch.Entry {
		for _, change := range entry.Changes {
			if change.Field != fieldMessages {
				continue
			}
			for _, pm := range change.Value.Messages {
				res.Received++
				p.handleMessage(ctx, change.Value, pm, res)
			}
		}
	}

	if res.Received > 0 {
		p.logger.Info("webhook batch processed",
			"received", res.Received,
			"stored", res.Stored,
			"duplicates", res.Duplicates,
			"failed", res.Failed,
		)
	}
	return res, nil
}

func (p *Pipeline) handleMessage(ctx context.Context, value ChangeValue, pm ProviderMessage, res *BatchResult) {
	if p.dedupe != nil && pm.ID != "" && !p.dedupe.Claim(pm.ID) {
		res.Duplicates++
		p.logger.Debug("skipping redelivered message", "message_id", pm.ID)
		return
	}

	msg := p.normalize(pm)
	if err := p.messages.Append(ctx, msg); err != nil {
		if p.dedupe != nil && pm.ID != "" {
			p.dedupe.Release(pm.ID)
		}
		res.Failed++
		p.logger.Error("failed to store inbound message", "message_id", pm.ID, "from", pm.From, "error", err)
		return
	}
	res.Stored++
	res.Messages = append(res.Messages, msg)

	p.ensureContact(ctx, msg.From, value.profileName(msg.From))
	p.broadcast(ctx, msg)
}

func (p *Pipeline) normalize(pm ProviderMessage) *store.Message {
	receivedAt := p.now().UTC()
	msgType := pm.Type
	if msgType == "" {
		msgType = store.MessageTypeText
	}
	var body string
	if pm.Text != nil {
		body = pm.Text.Body
	}
	return &store.Message{
		ID:         pm.ID,
		From:       pm.From,
		Text:       body,
		Type:       msgType,
		Timestamp:  pm.Timestamp,
		ReceivedAt: &receivedAt,
	}
}

// ensureContact adds a contact for a sender the address book has not seen.
// Existing contacts are never overwritten by provider profile data.
func (p *Pipeline) ensureContact(ctx context.Context, phone, name string) {
	if p.contacts == nil || phone == "" {
		return
	}
	if _, ok := p.contacts.LookupContact(ctx, phone); ok {
		return
	}
	in := store.ContactInput{Phone: phone}
	if name != "" {
		in.Name = &name
	}
	if _, err := p.contacts.UpsertContact(ctx, in); err != nil {
		p.logger.Warn("failed to create contact for sender", "phone", phone, "error", err)
	}
}

func (p *Pipeline) broadcast(ctx context.Context, msg *store.Message) {
	n := p.hub.Publish(conversation.RoomLiveFeed, msg)
	p.logger.Debug("message broadcast", "message_id", msg.ID, "sessions", n)

	if p.relay == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.relayTimeout)
	defer cancel()
	if err := p.relay.Relay(rctx, msg); err != nil {
		p.logger.Warn("relay failed", "message_id", msg.ID, "error", err)
	}
}

// RecordSent persists a message the provider has already accepted. It is
// not broadcast.
func (p *Pipeline) RecordSent(ctx context.Context, sent SentMessage) (*store.Message, error) {
	if sent.ID == "" || sent.To == "" {
		return nil, fmt.Errorf("%w: sent message requires provider id and recipient", store.ErrValidation)
	}
	msg := &store.Message{
		ID:        sent.ID,
		To:        sent.To,
		Text:      sent.Text,
		Type:      store.MessageTypeSent,
		Timestamp: p.now().UTC().Format(time.RFC3339),
	}
	if err := p.messages.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("recording sent message: %w", err)
	}
	p.logger.Info("sent message recorded", "message_id", msg.ID, "to", msg.To)
	return msg, nil
}
