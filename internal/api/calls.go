package api

import (
	"errors"
	"net/http"

	"github.com/MrWong99/prepwise/internal/observe"
	"github.com/MrWong99/prepwise/internal/session"
)

type callError struct {
	Error string            `json:"error"`
	Call  *session.Snapshot `json:"call,omitempty"`
}

func (s *Server) openCall(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, callError{Error: errInvalidBody})
		return
	}

	snap, err := s.calls.Open(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, snap)
	case errors.Is(err, ErrCallInProgress):
		writeJSON(w, http.StatusConflict, callError{Error: err.Error()})
	case snap.Status == session.StatusError:
		observe.Logger(r.Context()).Warn("call failed to start", "err", err)
		writeJSON(w, http.StatusBadGateway, callError{Error: snap.ErrorMessage, Call: &snap})
	default:
		observe.Logger(r.Context()).Error("failed to open call", "err", err)
		writeJSON(w, http.StatusInternalServerError, callError{Error: err.Error()})
	}
}

func (s *Server) currentCall(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.calls.Current()
	if !ok {
		writeJSON(w, http.StatusNotFound, callError{Error: ErrNoCall.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) endCall(w http.ResponseWriter, r *http.Request) {
	snap, err := s.calls.End(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, snap)
	case errors.Is(err, ErrNoCall):
		writeJSON(w, http.StatusNotFound, callError{Error: err.Error()})
	case errors.Is(err, session.ErrInvalidTransition), errors.Is(err, session.ErrClosed):
		writeJSON(w, http.StatusConflict, callError{Error: err.Error(), Call: &snap})
	default:
		writeJSON(w, http.StatusInternalServerError, callError{Error: err.Error()})
	}
}

func (s *Server) closeCall(w http.ResponseWriter, _ *http.Request) {
	if !s.calls.Close() {
		writeJSON(w, http.StatusNotFound, callError{Error: ErrNoCall.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
