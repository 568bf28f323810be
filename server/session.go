package server

import (
	"errors"
	"net/http"

	"github.com/noisersup/filestore-api/auth"
)

// Handler function for GET /connect.
// Exchanges Basic auth credentials for a fresh session token. Every call
// mints a new token; concurrent sessions for one user are fine.
func (s *Server) connect(w http.ResponseWriter, r *http.Request, _ []string) {
	email, password, ok := r.BasicAuth()
	if !ok {
		errResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := s.auth.VerifyCredentials(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			errResponse(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		s.log.SErr("session", "verifying credentials: %s", err.Error())
		serverError(w)
		return
	}

	token, err := s.auth.Sessions().Create(user.Id)
	if err != nil {
		s.log.SErr("session", "creating session: %s", err.Error())
		serverError(w)
		return
	}

	writeResponse(w, TokenResponse{Token: token}, http.StatusOK)
}

// Handler function for GET /disconnect.
// Revokes the presented token. A token that was never issued (or already
// expired) is answered with 401, same as a missing one.
func (s *Server) disconnect(w http.ResponseWriter, r *http.Request, _ []string) {
	token := r.Header.Get("X-Token")
	if token == "" {
		errResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	existed, err := s.auth.Sessions().Revoke(token)
	if err != nil {
		s.log.SErr("session", "revoking session: %s", err.Error())
		serverError(w)
		return
	}
	if !existed {
		errResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
