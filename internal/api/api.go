// Package api exposes the HTTP surface: question generation, sign-up and
// sign-in, and control of the current call view.
//
// Routes are registered on a [http.ServeMux] with method patterns. All
// responses are JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrWong99/prepwise/internal/auth"
	"github.com/MrWong99/prepwise/internal/interview"
	"github.com/MrWong99/prepwise/internal/session"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

var (
	// ErrCallInProgress is returned by Calls.Open while a call view is open.
	ErrCallInProgress = errors.New("api: a call is already in progress")

	// ErrNoCall is returned when no call view is open.
	ErrNoCall = errors.New("api: no call in progress")
)

// Interviews generates, stores and reads interviews.
type Interviews interface {
	Generate(ctx context.Context, req interview.Request) (string, error)
	Get(ctx context.Context, id string) (interview.Record, error)
}

// Accounts signs users up and in.
type Accounts interface {
	SignUp(ctx context.Context, req auth.SignUpRequest) auth.Result
	SignIn(ctx context.Context, req auth.SignInRequest) auth.Result
}

// CallRequest opens a call view.
type CallRequest struct {
	Mode        session.Mode `json:"mode"`
	UserName    string       `json:"userName"`
	UserID      string       `json:"userId"`
	InterviewID string       `json:"interviewId"`
	Questions   []string     `json:"questions"`
}

// Calls owns the single call view of the process.
type Calls interface {
	// Open creates a call view and starts its call. When the transport fails
	// to start, the returned snapshot is in the error state alongside err.
	Open(ctx context.Context, req CallRequest) (session.Snapshot, error)

	// Current returns the snapshot of the open call view.
	Current() (session.Snapshot, bool)

	// End ends the current call at the user's request.
	End(ctx context.Context) (session.Snapshot, error)

	// Close tears the call view down. It reports whether one was open.
	Close() bool
}

// Server holds the handlers. Nil dependencies leave their routes
// unregistered.
type Server struct {
	interviews Interviews
	accounts   Accounts
	calls      Calls

	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

// New returns a Server.
func New(interviews Interviews, accounts Accounts, calls Calls) *Server {
	return &Server{interviews: interviews, accounts: accounts, calls: calls}
}

// Register adds the routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	if s.interviews != nil {
		mux.HandleFunc("POST /interviews/generate", s.generateInterview)
		mux.HandleFunc("GET /interviews/generate", s.generateProbe)
		mux.HandleFunc("GET /interviews/{id}", s.getInterview)
	}
	if s.accounts != nil {
		mux.HandleFunc("POST /auth/sign-up", s.signUp)
		mux.HandleFunc("POST /auth/sign-in", s.signIn)
	}
	if s.calls != nil {
		mux.HandleFunc("POST /calls", s.openCall)
		mux.HandleFunc("GET /calls/current", s.currentCall)
		mux.HandleFunc("POST /calls/current/end", s.endCall)
		mux.HandleFunc("DELETE /calls/current", s.closeCall)
	}
}

// decode reads a JSON body of at most maxBodyBytes into dst.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to write response", "err", err)
	}
}
