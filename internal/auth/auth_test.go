package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/prepwise/internal/auth"
	docmock "github.com/MrWong99/prepwise/pkg/docstore/mock"
)

type fakeIdentity struct {
	createErr error
	lookupErr error
	cookieErr error

	created []string
	ttl     time.Duration
}

func (f *fakeIdentity) CreateUser(_ context.Context, name, email, _ string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, email)
	return "uid-1", nil
}

func (f *fakeIdentity) LookupEmail(context.Context, string) (string, error) {
	if f.lookupErr != nil {
		return "", f.lookupErr
	}
	return "uid-1", nil
}

func (f *fakeIdentity) SessionCookie(_ context.Context, idToken string, ttl time.Duration) (string, error) {
	if f.cookieErr != nil {
		return "", f.cookieErr
	}
	f.ttl = ttl
	return "cookie-for-" + idToken, nil
}

func TestSignUp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		req       auth.SignUpRequest
		createErr error
		setErr    error
		want      auth.Result
		wantSaved bool
	}{
		{
			name:      "success",
			req:       auth.SignUpRequest{Name: " Ada ", Email: "ada@example.com", Password: "hunter22"},
			want:      auth.Result{Success: true, Message: auth.MsgSignedUp},
			wantSaved: true,
		},
		{
			name:      "email taken",
			req:       auth.SignUpRequest{Name: "Ada", Email: "ada@example.com", Password: "hunter22"},
			createErr: auth.ErrEmailExists,
			want:      auth.Result{Message: auth.MsgEmailInUse},
		},
		{
			name:      "provider failure",
			req:       auth.SignUpRequest{Name: "Ada", Email: "ada@example.com", Password: "hunter22"},
			createErr: errors.New("quota exceeded"),
			want:      auth.Result{Message: auth.MsgSignUpFailed},
		},
		{
			name:   "profile write failure",
			req:    auth.SignUpRequest{Name: "Ada", Email: "ada@example.com", Password: "hunter22"},
			setErr: errors.New("permission denied"),
			want:   auth.Result{Message: auth.MsgSignUpFailed},
		},
		{
			name: "missing password",
			req:  auth.SignUpRequest{Name: "Ada", Email: "ada@example.com"},
			want: auth.Result{Message: auth.MsgMissingRequired},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			id := &fakeIdentity{createErr: tt.createErr}
			store := &docmock.Store{SetErr: tt.setErr}
			got := auth.NewService(id, store).SignUp(context.Background(), tt.req)
			if got != tt.want {
				t.Errorf("SignUp = %+v, want %+v", got, tt.want)
			}
			var p auth.Profile
			err := store.Get(context.Background(), "users", "uid-1", &p)
			if tt.wantSaved {
				if err != nil {
					t.Fatalf("profile not stored: %v", err)
				}
				if p.Name != "Ada" || p.Email != "ada@example.com" {
					t.Errorf("profile = %+v", p)
				}
			} else if err == nil {
				t.Error("profile stored for a failed sign-up")
			}
		})
	}
}

func TestSignIn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		req       auth.SignInRequest
		lookupErr error
		cookieErr error
		want      auth.Result
	}{
		{
			name: "success",
			req:  auth.SignInRequest{Email: "ada@example.com", IDToken: "tok"},
			want: auth.Result{Success: true, Message: auth.MsgSignedIn, Cookie: "cookie-for-tok"},
		},
		{
			name:      "unknown user",
			req:       auth.SignInRequest{Email: "ghost@example.com", IDToken: "tok"},
			lookupErr: auth.ErrUserNotFound,
			want:      auth.Result{Message: auth.MsgUnknownUser},
		},
		{
			name:      "lookup failure",
			req:       auth.SignInRequest{Email: "ada@example.com", IDToken: "tok"},
			lookupErr: errors.New("network"),
			want:      auth.Result{Message: auth.MsgSignInFailed},
		},
		{
			name:      "invalid token",
			req:       auth.SignInRequest{Email: "ada@example.com", IDToken: "expired"},
			cookieErr: errors.New("token expired"),
			want:      auth.Result{Message: auth.MsgSignInFailed},
		},
		{
			name: "missing token",
			req:  auth.SignInRequest{Email: "ada@example.com"},
			want: auth.Result{Message: auth.MsgMissingRequired},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			id := &fakeIdentity{lookupErr: tt.lookupErr, cookieErr: tt.cookieErr}
			got := auth.NewService(id, &docmock.Store{}).SignIn(context.Background(), tt.req)
			if got != tt.want {
				t.Errorf("SignIn = %+v, want %+v", got, tt.want)
			}
			if got.Success && id.ttl != auth.SessionTTL {
				t.Errorf("cookie ttl = %v, want %v", id.ttl, auth.SessionTTL)
			}
		})
	}
}
