package api

import (
	"net/http"

	"github.com/MrWong99/prepwise/internal/auth"
)

// SessionCookie is the name of the cookie set by sign-in.
const SessionCookie = "session"

// resultStatus maps a failed auth result onto an HTTP status.
func resultStatus(res auth.Result) int {
	switch {
	case res.Success:
		return http.StatusOK
	case res.Message == auth.MsgEmailInUse:
		return http.StatusConflict
	case res.Message == auth.MsgUnknownUser:
		return http.StatusNotFound
	case res.Message == auth.MsgMissingRequired:
		return http.StatusBadRequest
	case res.Message == auth.MsgSignInFailed:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var req auth.SignUpRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, auth.Result{Message: errInvalidBody})
		return
	}
	res := s.accounts.SignUp(r.Context(), req)
	writeJSON(w, resultStatus(res), res)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var req auth.SignInRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, auth.Result{Message: errInvalidBody})
		return
	}
	res := s.accounts.SignIn(r.Context(), req)
	if res.Success {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    res.Cookie,
			Path:     "/",
			MaxAge:   int(auth.SessionTTL.Seconds()),
			HttpOnly: true,
			Secure:   s.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
	writeJSON(w, resultStatus(res), res)
}
