package server

import "net/http"

// Handler function for GET /status.
// Reports liveness of both backing stores.
func (s *Server) getStatus(w http.ResponseWriter, r *http.Request, _ []string) {
	writeResponse(w, StatusResponse{
		Redis: s.queue.Alive(),
		Db:    s.db.Alive(r.Context()),
	}, http.StatusOK)
}

// Handler function for GET /stats.
func (s *Server) getStats(w http.ResponseWriter, r *http.Request, _ []string) {
	users, err := s.db.CountUsers(r.Context())
	if err != nil {
		s.log.SErr("app", "counting users: %s", err.Error())
		serverError(w)
		return
	}
	files, err := s.db.CountFiles(r.Context())
	if err != nil {
		s.log.SErr("app", "counting files: %s", err.Error())
		serverError(w)
		return
	}
	writeResponse(w, StatsResponse{Users: users, Files: files}, http.StatusOK)
}
