// ABOUTME: Password login and password change for dashboard operators
// ABOUTME: Checks bcrypt hashes from the users collection and issues JWTs

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/2389/wadash/internal/store"
)

var (
	// ErrInvalidCredentials covers both unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingCredentials means a required password field was empty.
	ErrMissingCredentials = errors.New("missing credentials")
)

// UserStore is the subset of the store the authenticator needs.
type UserStore interface {
	GetUser(ctx context.Context, username string) (*store.User, error)
	SetPasswordHash(ctx context.Context, username, hash string) error
}

// Authenticator verifies operator passwords.
type Authenticator struct {
	users  UserStore
	issuer *JWTIssuer
	logger *slog.Logger
}

func NewAuthenticator(users UserStore, issuer *JWTIssuer, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		users:  users,
		issuer: issuer,
		logger: logger.With("component", "auth"),
	}
}

// Login checks username and password and returns a signed token and the
// operator it was issued to.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, *Operator, error) {
	if username == "" || password == "" {
		return "", nil, ErrMissingCredentials
	}

	u, err := a.users.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.logger.Warn("login failed", "username", username, "reason", "unknown user")
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		a.logger.Warn("login failed", "username", username, "reason", "bad password")
		return "", nil, ErrInvalidCredentials
	}

	op := &Operator{ID: u.ID, Username: u.Username, Role: u.Role}
	token, err := a.issuer.Issue(*op)
	if err != nil {
		return "", nil, fmt.Errorf("issuing token: %w", err)
	}

	a.logger.Info("operator logged in", "username", username)
	return token, op, nil
}

// ChangePassword replaces the password of username after checking current.
func (a *Authenticator) ChangePassword(ctx context.Context, username, current, next string) error {
	if current == "" || next == "" {
		return ErrMissingCredentials
	}

	u, err := a.users.GetUser(ctx, username)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	if err := a.users.SetPasswordHash(ctx, username, hash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	a.logger.Info("password changed", "username", username)
	return nil
}

// HashPassword returns the bcrypt hash stored for a password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
