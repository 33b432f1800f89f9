// Package session derives the acting-user identity from the stored
// backend session token. Credential issuance and sign-in are the backend's
// business; the client only reads the token's identity claims so it can
// address its own writes. An absent or expired token means the store runs
// in offline/unauthenticated mode.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for tokens that do not parse as JWTs.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrExpiredToken is returned for tokens past their expiry; callers
	// should fall back to Anonymous.
	ErrExpiredToken = errors.New("session token expired")
)

// Identity is the canonical identity of the acting user. The zero value
// is the unauthenticated identity.
type Identity struct {
	// UserID is the backend's id for the user.
	UserID string

	// Email is the user's canonical key in member/payer references.
	Email string

	// Name is the display name used when the user is added as a member.
	Name string
}

// Authenticated reports whether the identity can be used for remote
// writes. The email is the canonical key, so it is the deciding field.
func (id Identity) Authenticated() bool { return id.Email != "" }

// DisplayName returns the name, falling back to the email.
func (id Identity) DisplayName() string {
	if id.Name != "" {
		return id.Name
	}
	return id.Email
}

// Anonymous is the offline/unauthenticated identity.
func Anonymous() Identity { return Identity{} }

// Claims are the token claims the client reads.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// FromToken extracts the identity from a session token. The signature is
// not verified here — the backend verifies it on every call; the client
// only needs the claims. Expired tokens are rejected so a stale session
// degrades to offline mode instead of producing doomed remote attempts.
func FromToken(token string) (Identity, error) {
	if token == "" {
		return Anonymous(), nil
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return Identity{}, ErrExpiredToken
	}

	return Identity{
		UserID: claims.UserID,
		Email:  claims.Email,
		Name:   claims.Name,
	}, nil
}
