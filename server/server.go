package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"

	"github.com/noisersup/filestore-api/auth"
	"github.com/noisersup/filestore-api/logger"
	"github.com/noisersup/filestore-api/models"
)

// Server is a structure responsible for handling all http requests.
type Server struct {
	maxUpload int64
	log       *logger.Logger
	db        models.Metadata
	auth      *auth.Auth
	queue     models.Queue
	blobs     models.Blobs
}

func NewServer(log *logger.Logger, db models.Metadata, a *auth.Auth, queue models.Queue, blobs models.Blobs) *Server {
	return &Server{maxUpload: 1024 << 20, log: log, db: db, auth: a, queue: queue, blobs: blobs}
}

// Handler builds the route table. Paths are matched against the regex
// column; capture groups are passed to the handler (here they carry the
// file id segment).
func (s *Server) Handler() http.Handler {
	handlers := []struct {
		regex   *regexp.Regexp
		methods []string
		handle  func(w http.ResponseWriter, r *http.Request, paths []string)
	}{
		{regexp.MustCompile(`^/status$`), []string{"GET"}, s.getStatus},
		{regexp.MustCompile(`^/stats$`), []string{"GET"}, s.getStats},
		{regexp.MustCompile(`^/users$`), []string{"POST"}, s.postUser},
		{regexp.MustCompile(`^/users/me$`), []string{"GET"}, s.getMe},
		{regexp.MustCompile(`^/connect$`), []string{"GET"}, s.connect},
		{regexp.MustCompile(`^/disconnect$`), []string{"GET"}, s.disconnect},
		{regexp.MustCompile(`^/files$`), []string{"POST"}, s.uploadFile},
		{regexp.MustCompile(`^/files$`), []string{"GET"}, s.listFiles},
		{regexp.MustCompile(`^/files/([^/]+)$`), []string{"GET"}, s.showFile},
		{regexp.MustCompile(`^/files/([^/]+)/publish$`), []string{"PUT"}, s.publishFile},
		{regexp.MustCompile(`^/files/([^/]+)/unpublish$`), []string{"PUT"}, s.unpublishFile},
		{regexp.MustCompile(`^/files/([^/]+)/data$`), []string{"GET"}, s.getFileData},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, handler := range handlers {
			match := handler.regex.FindStringSubmatch(r.URL.Path)
			if match == nil {
				continue
			}
			for _, allowed := range handler.methods {
				if r.Method == allowed {
					handler.handle(w, r, match[1:])
					return
				}
			}
		}
		s.log.SWarn("server", "cannot handle %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
	})
}

func (s *Server) Listen(port int) error {
	s.log.Log("Waiting for connection on port: :%d...", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), s.Handler())
}

// currentUser resolves the X-Token header or answers 401 and returns nil.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) *models.User {
	user, err := s.auth.CurrentUser(r.Context(), r.Header.Get("X-Token"))
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			errResponse(w, http.StatusUnauthorized, "Unauthorized")
		} else {
			s.log.SErr("server", "resolving current user: %s", err.Error())
			serverError(w)
		}
		return nil
	}
	return user
}

func writeResponse(w http.ResponseWriter, response interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("JSON encoding error: %s", err)
	}
}

func serverError(w http.ResponseWriter) {
	errResponse(w, http.StatusInternalServerError, "Server error")
}

func errResponse(w http.ResponseWriter, status int, msg string) {
	writeResponse(w, ErrResponse{Error: msg}, status)
}
