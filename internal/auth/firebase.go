package auth

import (
	"context"
	"fmt"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
)

// Firebase is an [Identity] backed by Firebase Authentication.
type Firebase struct {
	client *fbauth.Client
}

var _ Identity = (*Firebase)(nil)

// NewFirebase wraps an admin auth client.
func NewFirebase(client *fbauth.Client) *Firebase {
	return &Firebase{client: client}
}

// CreateUser implements Identity.
func (f *Firebase) CreateUser(ctx context.Context, name, email, password string) (string, error) {
	params := (&fbauth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(name)
	u, err := f.client.CreateUser(ctx, params)
	if fbauth.IsEmailAlreadyExists(err) {
		return "", ErrEmailExists
	}
	if err != nil {
		return "", fmt.Errorf("auth: create user: %w", err)
	}
	return u.UID, nil
}

// LookupEmail implements Identity.
func (f *Firebase) LookupEmail(ctx context.Context, email string) (string, error) {
	u, err := f.client.GetUserByEmail(ctx, email)
	if fbauth.IsUserNotFound(err) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("auth: get user by email: %w", err)
	}
	return u.UID, nil
}

// SessionCookie implements Identity.
func (f *Firebase) SessionCookie(ctx context.Context, idToken string, ttl time.Duration) (string, error) {
	cookie, err := f.client.SessionCookie(ctx, idToken, ttl)
	if err != nil {
		return "", fmt.Errorf("auth: session cookie: %w", err)
	}
	return cookie, nil
}
