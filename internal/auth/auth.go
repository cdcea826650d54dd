// Package auth signs users up and in against an identity provider and keeps
// a profile document per user.
//
// Results are user-facing: every outcome, including failures, is reported
// as a [Result] with a message suitable for display. Only unexpected backend
// failures are logged.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/prepwise/pkg/docstore"
)

// SessionTTL is the lifetime of a session cookie.
const SessionTTL = 7 * 24 * time.Hour

// User-facing result messages.
const (
	MsgSignedUp        = "Account created successfully. Please sign in."
	MsgEmailInUse      = "This email is already in use"
	MsgSignUpFailed    = "Failed to create an account"
	MsgSignedIn        = "Signed in successfully."
	MsgUnknownUser     = "User does not exist. Create an account instead."
	MsgSignInFailed    = "Failed to log into an account"
	MsgMissingRequired = "Missing required fields"
)

var (
	// ErrEmailExists is returned by Identity.CreateUser for a taken email.
	ErrEmailExists = errors.New("auth: email already exists")

	// ErrUserNotFound is returned by Identity.LookupEmail for an unknown email.
	ErrUserNotFound = errors.New("auth: user not found")
)

// Identity is the identity provider.
type Identity interface {
	// CreateUser registers a user and returns its uid.
	CreateUser(ctx context.Context, name, email, password string) (string, error)

	// LookupEmail returns the uid registered for email.
	LookupEmail(ctx context.Context, email string) (string, error)

	// SessionCookie exchanges a verified ID token for a session cookie.
	SessionCookie(ctx context.Context, idToken string, ttl time.Duration) (string, error)
}

// SignUpRequest is the body of a sign-up.
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInRequest is the body of a sign-in. IDToken is issued to the client
// by the identity provider.
type SignInRequest struct {
	Email   string `json:"email"`
	IDToken string `json:"idToken"`
}

// Result is the outcome of a sign-up or sign-in.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	// Cookie is the session cookie value of a successful sign-in.
	Cookie string `json:"-"`
}

// Profile is the user document stored at sign-up.
type Profile struct {
	Name  string `json:"name" firestore:"name"`
	Email string `json:"email" firestore:"email"`
}

// Service implements sign-up and sign-in.
type Service struct {
	id    Identity
	store docstore.Store
}

// NewService returns a Service using id and storing profiles in store.
func NewService(id Identity, store docstore.Store) *Service {
	return &Service{id: id, store: store}
}

// SignUp creates the user and its profile.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) Result {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" || strings.TrimSpace(req.Name) == "" {
		return Result{Message: MsgMissingRequired}
	}

	uid, err := s.id.CreateUser(ctx, strings.TrimSpace(req.Name), email, req.Password)
	if errors.Is(err, ErrEmailExists) {
		return Result{Message: MsgEmailInUse}
	}
	if err != nil {
		slog.Error("failed to create user", "err", err)
		return Result{Message: MsgSignUpFailed}
	}

	profile := Profile{Name: strings.TrimSpace(req.Name), Email: email}
	if err := s.store.Set(ctx, docstore.CollectionUsers, uid, profile); err != nil {
		slog.Error("failed to store user profile", "uid", uid, "err", err)
		return Result{Message: MsgSignUpFailed}
	}
	slog.Info("user signed up", "uid", uid)
	return Result{Success: true, Message: MsgSignedUp}
}

// SignIn checks that the user exists and issues a session cookie.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) Result {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.IDToken == "" {
		return Result{Message: MsgMissingRequired}
	}

	uid, err := s.id.LookupEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return Result{Message: MsgUnknownUser}
	}
	if err != nil {
		slog.Error("failed to look up user", "err", err)
		return Result{Message: MsgSignInFailed}
	}

	cookie, err := s.id.SessionCookie(ctx, req.IDToken, SessionTTL)
	if err != nil {
		slog.Warn("failed to create session cookie", "uid", uid, "err", err)
		return Result{Message: MsgSignInFailed}
	}
	return Result{Success: true, Message: MsgSignedIn, Cookie: cookie}
}
