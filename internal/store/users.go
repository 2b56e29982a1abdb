// ABOUTME: Operator accounts stored as a mapping from username to user
// ABOUTME: Password hashes are opaque here; hashing lives in the auth package

package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// RoleAdmin is the role of the seeded operator account.
const RoleAdmin = "admin"

// User is a dashboard operator.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"password"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

func (s *Store) users(ctx context.Context) map[string]User {
	users := load(ctx, s, CollectionUsers, map[string]User{})
	if users == nil {
		users = map[string]User{}
	}
	return users
}

// GetUser returns the operator with the given username.
// Returns ErrNotFound if there is none.
func (s *Store) GetUser(ctx context.Context, username string) (*User, error) {
	u, ok := s.users(ctx)[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// ListUsers returns all operators sorted by username.
func (s *Store) ListUsers(ctx context.Context) []User {
	users := s.users(ctx)
	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// AddUser creates an operator. Returns ErrDuplicate if the username is taken.
func (s *Store) AddUser(ctx context.Context, u User) (*User, error) {
	if u.Username == "" || u.PasswordHash == "" {
		return nil, fmt.Errorf("%w: username and password hash are required", ErrValidation)
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleAdmin
	}
	u.CreatedAt = s.now().UTC()

	err := update(ctx, s, CollectionUsers, map[string]User{}, func(users map[string]User) (map[string]User, error) {
		if users == nil {
			users = map[string]User{}
		}
		if _, exists := users[u.Username]; exists {
			return nil, fmt.Errorf("user %q: %w", u.Username, ErrDuplicate)
		}
		users[u.Username] = u
		return users, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("added user", "username", u.Username, "role", u.Role)
	return &u, nil
}

// SetPasswordHash replaces an operator's password hash.
// Returns ErrNotFound if the user does not exist.
func (s *Store) SetPasswordHash(ctx context.Context, username, hash string) error {
	if hash == "" {
		return fmt.Errorf("%w: password hash is required", ErrValidation)
	}
	return update(ctx, s, CollectionUsers, map[string]User{}, func(users map[string]User) (map[string]User, error) {
		u, ok := users[username]
		if !ok {
			return nil, ErrNotFound
		}
		now := s.now().UTC()
		u.PasswordHash = hash
		u.UpdatedAt = &now
		users[username] = u
		return users, nil
	})
}
