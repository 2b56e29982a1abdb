// ABOUTME: Message repository: append with retention, pagination, search and stats
// ABOUTME: Every query is computed from the stored sequence with no caching

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxMessages is the retention cap for the messages collection.
const MaxMessages = 1000

// Message types with special meaning. Inbound messages carry the provider's
// own type tag (text, image, ...).
const (
	MessageTypeText = "text"
	MessageTypeSent = "sent"
)

// recentWindow is the lookback for Stats.RecentMessages.
const recentWindow = 24 * time.Hour

// Message is one stored inbound or outbound message. ID, Type and the
// timestamps never change after Append.
type Message struct {
	ID         string     `json:"id"`
	From       string     `json:"from,omitempty"`
	To         string     `json:"to,omitempty"`
	Text       string     `json:"text"`
	Type       string     `json:"type"`
	Timestamp  string     `json:"timestamp,omitempty"` // provider-supplied, opaque
	ReceivedAt *time.Time `json:"received_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// EffectiveTime is ReceivedAt when set, otherwise CreatedAt. Stats and
// display ordering both use it.
func (m *Message) EffectiveTime() time.Time {
	if m.ReceivedAt != nil && !m.ReceivedAt.IsZero() {
		return *m.ReceivedAt
	}
	return m.CreatedAt
}

// MessagePage is one page of messages, newest first.
type MessagePage struct {
	Messages   []Message `json:"messages"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	TotalPages int       `json:"totalPages"`
}

// SearchQuery filters messages. Text is required; From and Type are
// optional exact matches.
type SearchQuery struct {
	Text string
	From string
	Type string
}

// SearchResult holds every matching message, newest first.
type SearchResult struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
}

// Stats summarizes the messages and contacts collections.
type Stats struct {
	TotalMessages    int        `json:"totalMessages"`
	ReceivedMessages int        `json:"receivedMessages"`
	SentMessages     int        `json:"sentMessages"`
	TotalContacts    int        `json:"totalContacts"`
	RecentMessages   int        `json:"recentMessages"`
	LastMessageTime  *time.Time `json:"lastMessageTime"`
}

// Messages returns the stored sequence, oldest first.
func (s *Store) Messages(ctx context.Context) []Message {
	return load(ctx, s, CollectionMessages, []Message{})
}

// Append stores msg at the end of the sequence and trims the oldest entries
// beyond the retention cap. An empty ID is replaced with a generated one and
// CreatedAt is always stamped. msg is updated in place with both.
func (s *Store) Append(ctx context.Context, msg *Message) error {
	if msg == nil {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	if msg.Type == "" {
		return fmt.Errorf("%w: message type is required", ErrValidation)
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.CreatedAt = s.now().UTC()

	err := update(ctx, s, CollectionMessages, []Message{}, func(msgs []Message) ([]Message, error) {
		msgs = append(msgs, *msg)
		if over := len(msgs) - s.maxMessages; over > 0 {
			msgs = msgs[over:]
		}
		return msgs, nil
	})
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}

	s.logger.Debug("appended message", "id", msg.ID, "type", msg.Type)
	return nil
}

// Paginate returns page (1-based) of size limit counted from the oldest
// message, with the page itself ordered newest first. Pages past the end are
// empty.
func (s *Store) Paginate(ctx context.Context, page, limit int) (*MessagePage, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1", ErrValidation)
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be >= 1", ErrValidation)
	}

	msgs := s.Messages(ctx)
	total := len(msgs)
	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}

	result := &MessagePage{
		Messages:   []Message{},
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	}
	if page > totalPages {
		return result, nil
	}

	start := (page - 1) * limit
	end := min(start+limit, total)
	for i := end - 1; i >= start; i-- {
		result.Messages = append(result.Messages, msgs[i])
	}
	return result, nil
}

// Search returns all messages whose text contains q.Text (case-insensitive)
// and that match q.From and q.Type when those are set.
func (s *Store) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	if q.Text == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrValidation)
	}
	needle := strings.ToLower(q.Text)

	msgs := s.Messages(ctx)
	result := &SearchResult{Messages: []Message{}}
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if !strings.Contains(strings.ToLower(m.Text), needle) {
			continue
		}
		if q.From != "" && m.From != q.From {
			continue
		}
		if q.Type != "" && m.Type != q.Type {
			continue
		}
		result.Messages = append(result.Messages, m)
	}
	result.Total = len(result.Messages)
	return result, nil
}

// Stats computes message and contact counters from the stored collections.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	msgs := s.Messages(ctx)
	contacts := s.Contacts(ctx)
	cutoff := s.now().Add(-recentWindow)

	stats := &Stats{
		TotalMessages: len(msgs),
		TotalContacts: len(contacts),
	}
	for i := range msgs {
		m := &msgs[i]
		switch {
		case m.Type == MessageTypeText && m.From != "":
			stats.ReceivedMessages++
		case m.Type == MessageTypeSent:
			stats.SentMessages++
		}
		if m.EffectiveTime().After(cutoff) {
			stats.RecentMessages++
		}
	}
	if len(msgs) > 0 {
		last := msgs[len(msgs)-1].EffectiveTime()
		stats.LastMessageTime = &last
	}
	return stats, nil
}
