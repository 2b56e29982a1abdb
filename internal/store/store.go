// ABOUTME: Record store for wadash: collection documents behind a pluggable backend
// ABOUTME: Owns initialization, default-on-corruption reads, and per-collection writer locks

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when a write is rejected before touching the backend
var ErrValidation = errors.New("validation failed")

// ErrDuplicate is returned when creating an entity whose key already exists
var ErrDuplicate = errors.New("already exists")

// ErrUnreadable is returned by writes when the stored document exists but
// cannot be read or decoded. The document is left untouched.
var ErrUnreadable = errors.New("collection unreadable")

// Collection names one independently stored document.
type Collection string

// Collections managed by the store.
const (
	CollectionMessages      Collection = "messages"
	CollectionContacts      Collection = "contacts"
	CollectionConfiguration Collection = "configuration"
	CollectionUsers         Collection = "users"
)

// Collections lists every collection in initialization order.
var Collections = []Collection{
	CollectionUsers,
	CollectionConfiguration,
	CollectionMessages,
	CollectionContacts,
}

// DefaultAdminPasswordHash is the bcrypt hash of "password", used to seed the
// admin account when the users collection does not exist yet.
const DefaultAdminPasswordHash = "$2a$10$92IXUNpkjO0rOQ5byMi.Ye4oKoEa3Ro9llC/.og/at2.uheWG/igi"

// Options configures a Store.
type Options struct {
	Logger *slog.Logger

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time

	// MaxMessages overrides the retention cap. Zero means MaxMessages.
	MaxMessages int

	// AdminPasswordHash seeds the default admin user. Empty means
	// DefaultAdminPasswordHash.
	AdminPasswordHash string
}

// Store is the record store. Each collection is read and written as one
// JSON document. Writers of the same collection are serialized; readers
// never block because backends replace documents atomically.
type Store struct {
	backend     Backend
	logger      *slog.Logger
	now         func() time.Time
	maxMessages int

	// locks is populated once in Open and never modified afterwards.
	locks map[Collection]*sync.Mutex
}

// Open creates a Store over backend and runs the initialization step:
// every collection that does not exist yet is written with its default
// document, and the users collection is seeded with an admin account.
func Open(ctx context.Context, backend Backend, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	maxMessages := opts.MaxMessages
	if maxMessages <= 0 {
		maxMessages = MaxMessages
	}
	adminHash := opts.AdminPasswordHash
	if adminHash == "" {
		adminHash = DefaultAdminPasswordHash
	}

	s := &Store{
		backend:     backend,
		logger:      logger.With("component", "store"),
		now:         now,
		maxMessages: maxMessages,
		locks:       make(map[Collection]*sync.Mutex, len(Collections)),
	}
	for _, c := range Collections {
		s.locks[c] = &sync.Mutex{}
	}

	for _, c := range Collections {
		if err := s.seed(ctx, c, adminHash); err != nil {
			return nil, fmt.Errorf("initializing %s: %w", c, err)
		}
	}

	s.logger.Info("record store initialized", "backend", backend.Name())
	return s, nil
}

// seed writes the default document for c if the backend has none.
func (s *Store) seed(ctx context.Context, c Collection, adminHash string) error {
	_, err := s.backend.Load(ctx, c)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		// Present but unreadable. Reads fall back to the default; leave the
		// document alone so an operator can inspect it.
		s.logger.Warn("collection unreadable at startup", "collection", c, "error", err)
		return nil
	}

	var doc any
	switch c {
	case CollectionMessages:
		doc = []Message{}
	case CollectionContacts:
		doc = []Contact{}
	case CollectionConfiguration:
		doc = Settings{}
	case CollectionUsers:
		doc = map[string]User{
			"admin": {
				ID:           "1",
				Username:     "admin",
				PasswordHash: adminHash,
				Role:         RoleAdmin,
				CreatedAt:    s.now().UTC(),
			},
		}
	default:
		return fmt.Errorf("unknown collection %q", c)
	}

	s.logger.Debug("seeding collection", "collection", c)
	return s.save(ctx, c, doc)
}

// Close releases the backend.
func (s *Store) Close() error {
	s.logger.Info("closing record store")
	return s.backend.Close()
}

// save encodes v as an indented JSON document and replaces c with it.
func (s *Store) save(ctx context.Context, c Collection, v any) error {
	doc, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", c, err)
	}
	if err := s.backend.Save(ctx, c, doc); err != nil {
		return fmt.Errorf("writing %s: %w", c, err)
	}
	return nil
}

// load decodes collection c, returning def when the document is missing or
// cannot be decoded. It never fails the caller.
func load[T any](ctx context.Context, s *Store, c Collection, def T) T {
	raw, err := s.backend.Load(ctx, c)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("reading collection failed, using default", "collection", c, "error", err)
		}
		return def
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		s.logger.Warn("collection is corrupt, using default", "collection", c, "error", err)
		return def
	}
	return v
}

// loadForUpdate decodes collection c for a write. Only a missing document
// yields def; any other failure is returned so the caller writes nothing.
func loadForUpdate[T any](ctx context.Context, s *Store, c Collection, def T) (T, error) {
	raw, err := s.backend.Load(ctx, c)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("%w: reading %s: %w", ErrUnreadable, c, err)
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return def, fmt.Errorf("%w: decoding %s: %w", ErrUnreadable, c, err)
	}
	return v, nil
}

// update runs a read-modify-write cycle on c under the collection's lock.
// If the current document cannot be read, or fn returns an error, nothing
// is written.
func update[T any](ctx context.Context, s *Store, c Collection, def T, fn func(T) (T, error)) error {
	mu := s.locks[c]
	mu.Lock()
	defer mu.Unlock()

	cur, err := loadForUpdate(ctx, s, c, def)
	if err != nil {
		s.logger.Error("refusing to overwrite unreadable collection", "collection", c, "error", err)
		return err
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	return s.save(ctx, c, next)
}
