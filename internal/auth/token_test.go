// ABOUTME: Unit tests for JWT token issue and verification
// ABOUTME: Tests valid tokens, invalid tokens, expired tokens and claim checks

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret-key-for-jwt-signing!")

func newTestIssuer(t *testing.T) *JWTIssuer {
	t.Helper()
	issuer, err := NewJWTIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewJWTIssuer() error = %v", err)
	}
	return issuer
}

func TestNewJWTIssuer_RejectsShortSecret(t *testing.T) {
	_, err := NewJWTIssuer([]byte("short"), time.Hour)
	if !errors.Is(err, ErrSecretTooShort) {
		t.Errorf("NewJWTIssuer() error = %v, want ErrSecretTooShort", err)
	}
}

func TestJWTIssuer_RoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)

	want := Operator{ID: "1", Username: "admin", Role: "admin"}
	token, err := issuer.Issue(want)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if *got != want {
		t.Errorf("Verify() = %+v, want %+v", *got, want)
	}
}

func TestJWTIssuer_DefaultTTL(t *testing.T) {
	issuer, err := NewJWTIssuer(testSecret, 0)
	if err != nil {
		t.Fatalf("NewJWTIssuer() error = %v", err)
	}
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return issued }

	token, err := issuer.Issue(Operator{ID: "1", Username: "admin"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	issuer.now = func() time.Time { return issued.Add(23 * time.Hour) }
	if _, err := issuer.Verify(token); err != nil {
		t.Errorf("token should still be valid after 23h: %v", err)
	}

	issuer.now = func() time.Time { return issued.Add(25 * time.Hour) }
	if _, err := issuer.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify() after 25h error = %v, want ErrExpiredToken", err)
	}
}

func TestJWTIssuer_InvalidToken(t *testing.T) {
	issuer := newTestIssuer(t)

	other, err := NewJWTIssuer([]byte("a-completely-different-secret-32"), time.Hour)
	if err != nil {
		t.Fatalf("NewJWTIssuer() error = %v", err)
	}
	foreign, _ := other.Issue(Operator{ID: "1", Username: "admin"})

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "garbage token", token: "not-a-jwt-token"},
		{name: "malformed JWT", token: "header.payload.signature"},
		{name: "wrong secret", token: foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Verify(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestJWTIssuer_ExpiredToken(t *testing.T) {
	issuer, err := NewJWTIssuer(testSecret, -time.Hour)
	if err != nil {
		t.Fatalf("NewJWTIssuer() error = %v", err)
	}
	// A negative ttl falls back to the default, so expire by moving the clock.
	token, _ := issuer.Issue(Operator{ID: "1", Username: "admin"})
	issuer.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	if _, err := issuer.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify() error = %v, want ErrExpiredToken", err)
	}
}

func TestJWTIssuer_MissingClaims(t *testing.T) {
	issuer := newTestIssuer(t)

	sign := func(claims jwt.MapClaims) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		return tok
	}
	exp := time.Now().Add(time.Hour).Unix()

	if _, err := issuer.Verify(sign(jwt.MapClaims{"username": "admin", "exp": exp})); !errors.Is(err, ErrMissingClaim) {
		t.Errorf("missing sub: error = %v, want ErrMissingClaim", err)
	}
	if _, err := issuer.Verify(sign(jwt.MapClaims{"sub": "1", "exp": exp})); !errors.Is(err, ErrMissingClaim) {
		t.Errorf("missing username: error = %v, want ErrMissingClaim", err)
	}
}

func TestJWTIssuer_RejectsOtherSigningMethods(t *testing.T) {
	issuer := newTestIssuer(t)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "username": "admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	if _, err := issuer.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}
