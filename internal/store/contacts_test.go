// ABOUTME: Tests for the contact repository
// ABOUTME: Covers upsert merge semantics, lookup, and concurrent upserts of one phone

package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUpsertContact_CreatesThenMerges(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertContact(ctx, ContactInput{
		Phone: "+15550001",
		Name:  strPtr("Ada"),
		Email: strPtr("ada@example.com"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, clock.Now(), first.CreatedAt)

	clock.Advance(time.Minute)
	second, err := s.UpsertContact(ctx, ContactInput{
		Phone: "+15550001",
		Name:  strPtr("Ada Lovelace"),
	})
	require.NoError(t, err)

	contacts := s.Contacts(ctx)
	require.Len(t, contacts, 1)

	got := contacts[0]
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Equal(t, "ada@example.com", got.Email, "unsupplied fields are kept")
	assert.True(t, got.CreatedAt.Equal(first.CreatedAt))
	assert.True(t, got.UpdatedAt.After(first.UpdatedAt))
}

func TestUpsertContact_RequiresPhone(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.UpsertContact(context.Background(), ContactInput{Name: strPtr("nobody")})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, s.Contacts(context.Background()))
}

func TestLookupContact(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, ok := s.LookupContact(ctx, "+1")
	assert.False(t, ok)

	_, err := s.UpsertContact(ctx, ContactInput{Phone: "+1", Notes: strPtr("vip")})
	require.NoError(t, err)

	c, ok := s.LookupContact(ctx, "+1")
	require.True(t, ok)
	assert.Equal(t, "vip", c.Notes)

	_, ok = s.LookupContact(ctx, "+10")
	assert.False(t, ok, "lookup is exact match")
}

func TestUpsertContact_ConcurrentSamePhoneYieldsOneRecord(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpsertContact(ctx, ContactInput{Phone: "+1", Name: strPtr(fmt.Sprintf("n%d", i))})
			assert.NoError(t, err)
		}()
	}
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpsertContact(ctx, ContactInput{Phone: fmt.Sprintf("+2%d", i)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	contacts := s.Contacts(ctx)
	assert.Len(t, contacts, 21)
}
