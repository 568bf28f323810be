package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/noisersup/filestore-api/auth"
	"github.com/noisersup/filestore-api/database"
)

// Handler function for POST /users.
// Registers a new user; the password is stored as its sha1 hex digest.
func (s *Server) postUser(w http.ResponseWriter, r *http.Request, _ []string) {
	req := RegisterRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResponse(w, http.StatusBadRequest, "Invalid body")
		return
	}
	if req.Email == "" {
		errResponse(w, http.StatusBadRequest, "Missing email")
		return
	}
	if req.Password == "" {
		errResponse(w, http.StatusBadRequest, "Missing password")
		return
	}

	user, err := s.db.CreateUser(r.Context(), req.Email, auth.HashPassword(req.Password))
	if err != nil {
		if errors.Is(err, database.ErrUserExists) {
			errResponse(w, http.StatusBadRequest, "Already exist")
			return
		}
		s.log.SErr("users", "creating user: %s", err.Error())
		serverError(w)
		return
	}

	writeResponse(w, UserResponse{Id: user.Id, Email: user.Email}, http.StatusCreated)
}

// Handler function for GET /users/me.
func (s *Server) getMe(w http.ResponseWriter, r *http.Request, _ []string) {
	user := s.currentUser(w, r)
	if user == nil {
		return
	}
	writeResponse(w, UserResponse{Id: user.Id, Email: user.Email}, http.StatusOK)
}
