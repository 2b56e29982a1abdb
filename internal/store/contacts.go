// ABOUTME: Contact repository keyed by phone number
// ABOUTME: Upsert merges supplied fields into the existing record instead of duplicating

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Contact is an address book entry. Phone is unique.
type Contact struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContactInput carries an upsert. Nil fields are left unchanged on an
// existing contact and empty on a new one.
type ContactInput struct {
	Phone string
	Name  *string
	Email *string
	Notes *string
}

// Contacts returns every stored contact in creation order.
func (s *Store) Contacts(ctx context.Context) []Contact {
	return load(ctx, s, CollectionContacts, []Contact{})
}

// LookupContact returns the contact for phone, if any.
func (s *Store) LookupContact(ctx context.Context, phone string) (*Contact, bool) {
	for _, c := range s.Contacts(ctx) {
		if c.Phone == phone {
			return &c, true
		}
	}
	return nil, false
}

// UpsertContact creates the contact for in.Phone or merges in into it.
func (s *Store) UpsertContact(ctx context.Context, in ContactInput) (*Contact, error) {
	if in.Phone == "" {
		return nil, fmt.Errorf("%w: phone number is required", ErrValidation)
	}

	var saved Contact
	created := false
	err := update(ctx, s, CollectionContacts, []Contact{}, func(contacts []Contact) ([]Contact, error) {
		now := s.now().UTC()
		for i := range contacts {
			if contacts[i].Phone != in.Phone {
				continue
			}
			in.applyTo(&contacts[i])
			contacts[i].UpdatedAt = now
			saved = contacts[i]
			return contacts, nil
		}

		c := Contact{
			ID:        uuid.NewString(),
			Phone:     in.Phone,
			CreatedAt: now,
			UpdatedAt: now,
		}
		in.applyTo(&c)
		saved = c
		created = true
		return append(contacts, c), nil
	})
	if err != nil {
		return nil, fmt.Errorf("upserting contact: %w", err)
	}

	s.logger.Debug("upserted contact", "id", saved.ID, "created", created)
	return &saved, nil
}

func (in ContactInput) applyTo(c *Contact) {
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Email != nil {
		c.Email = *in.Email
	}
	if in.Notes != nil {
		c.Notes = *in.Notes
	}
}
