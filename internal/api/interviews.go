package api

import (
	"errors"
	"net/http"

	"github.com/MrWong99/prepwise/internal/interview"
	"github.com/MrWong99/prepwise/internal/observe"
)

// Error texts of the generation route.
const (
	errInvalidBody      = "Invalid request body"
	errMissingFields    = "Missing required fields"
	errGenerationFailed = "Failed to generate interview questions"
	errSaveFailed       = "Failed to save interview to database"
	errNotFound         = "Interview not found"
)

type envelope struct {
	Success     bool   `json:"success"`
	InterviewID string `json:"interviewId,omitempty"`
	Data        any    `json:"data,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (s *Server) generateInterview(w http.ResponseWriter, r *http.Request) {
	log := observe.Logger(r.Context())

	var raw interview.RawRequest
	if err := decode(w, r, &raw); err != nil {
		log.Debug("rejecting generation request", "err", err)
		writeJSON(w, http.StatusBadRequest, envelope{Error: errInvalidBody})
		return
	}
	req, err := raw.Normalize()
	if err != nil {
		log.Info("rejecting generation request", "err", err)
		writeJSON(w, http.StatusBadRequest, envelope{Error: errMissingFields})
		return
	}

	id, err := s.interviews.Generate(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, envelope{Success: true, InterviewID: id})
	case errors.Is(err, interview.ErrValidation):
		writeJSON(w, http.StatusBadRequest, envelope{Error: errMissingFields})
	case errors.Is(err, interview.ErrPersistence):
		log.Error("failed to save interview", "err", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Error: errSaveFailed})
	default:
		log.Error("failed to generate interview", "err", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Error: errGenerationFailed})
	}
}

func (s *Server) generateProbe(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: "THANK YOU"})
}

func (s *Server) getInterview(w http.ResponseWriter, r *http.Request) {
	ctx := observe.WithCall(r.Context(), observe.Call{InterviewID: r.PathValue("id")})
	rec, err := s.interviews.Get(ctx, r.PathValue("id"))
	switch {
	case errors.Is(err, interview.ErrNotFound):
		writeJSON(w, http.StatusNotFound, envelope{Error: errNotFound})
	case err != nil:
		observe.Logger(ctx).Error("failed to load interview", "err", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Error: http.StatusText(http.StatusInternalServerError)})
	default:
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: rec})
	}
}
