// ABOUTME: Tests for the SQLite and file backends
// ABOUTME: Covers directory creation, round trips, on-disk format and reopen persistence

package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteBackend_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "wadash.db")

	b, err := NewSQLiteBackend(dbPath)
	require.NoError(t, err)
	defer b.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file was not created in nested directory")
}

func TestSQLiteBackend_LoadMissing(t *testing.T) {
	b, err := NewSQLiteBackend(":memory:")
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Load(context.Background(), CollectionMessages)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteBackend_SaveReplaces(t *testing.T) {
	b, err := NewSQLiteBackend(":memory:")
	require.NoError(t, err)
	defer b.Close()
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, CollectionContacts, []byte(`[1]`)))
	require.NoError(t, b.Save(ctx, CollectionContacts, []byte(`[1,2]`)))

	doc, err := b.Load(ctx, CollectionContacts)
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(doc))
}

func TestSQLiteBackend_StorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "wadash.db")

	b, err := NewSQLiteBackend(dbPath)
	require.NoError(t, err)
	s, err := Open(ctx, b, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, &Message{ID: "m1", Type: MessageTypeText, From: "+1", Text: "persisted"}))
	_, err = s.UpsertContact(ctx, ContactInput{Phone: "+1", Name: strPtr("Ada")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	b2, err := NewSQLiteBackend(dbPath)
	require.NoError(t, err)
	s2, err := Open(ctx, b2, Options{})
	require.NoError(t, err)
	defer s2.Close()

	msgs := s2.Messages(ctx)
	require.Len(t, msgs, 1)
	assert.Equal(t, "persisted", msgs[0].Text)

	c, ok := s2.LookupContact(ctx, "+1")
	require.True(t, ok)
	assert.Equal(t, "Ada", c.Name)
}

func TestFileBackend_WritesHumanReadableDocuments(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	s, err := Open(ctx, b, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, &Message{ID: "m1", Type: MessageTypeText, From: "+1", Text: "hello"}))

	for _, c := range Collections {
		_, err := os.Stat(filepath.Join(dir, string(c)+".json"))
		assert.NoError(t, err, "missing %s.json", c)
	}

	raw, err := os.ReadFile(b.Path(CollectionMessages))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  {\n", "documents are indented")

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "m1", decoded[0]["id"])
	assert.Equal(t, "hello", decoded[0]["text"])
	assert.Contains(t, decoded[0], "created_at")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, ".json", filepath.Ext(e.Name()), "leftover temp file %s", e.Name())
	}
}

func TestFileBackend_LoadMissing(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	_, err = b.Load(context.Background(), CollectionUsers)
	assert.ErrorIs(t, err, ErrNotFound)
}
