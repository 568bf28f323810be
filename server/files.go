package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/noisersup/filestore-api/database"
	"github.com/noisersup/filestore-api/disk"
	"github.com/noisersup/filestore-api/models"

	"github.com/google/uuid"
)

const pageSize = 20

var thumbnailSizes = map[string]int{"500": 500, "250": 250, "100": 100}

// Handler function for POST /files.
// Validates the request, persists the blob (folders excepted), creates
// the metadata record and, for images, enqueues a derivative job once
// the record is committed.
//
// Blob write and metadata write are not one transaction: a crash between
// the two leaves an orphaned blob with no record. Accepted limitation.
func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request, _ []string) {
	user := s.currentUser(w, r)
	if user == nil {
		return
	}

	req := UploadRequest{}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxUpload)).Decode(&req); err != nil {
		errResponse(w, http.StatusBadRequest, "Invalid body")
		return
	}

	// First failure wins: name, kind, data, then parent.
	if req.Name == "" {
		errResponse(w, http.StatusBadRequest, "Missing name")
		return
	}
	if !models.ValidKind(req.Kind) {
		errResponse(w, http.StatusBadRequest, "Missing kind")
		return
	}
	if req.Kind != models.KindFolder && req.Data == "" {
		errResponse(w, http.StatusBadRequest, "Missing data")
		return
	}
	if !s.validParent(w, r, req.ParentId) {
		return
	}

	f := models.File{
		UserId:    user.Id,
		Name:      req.Name,
		Kind:      req.Kind,
		Parent:    req.ParentId,
		IsPublic:  req.IsPublic,
		CreatedAt: time.Now().UTC(),
	}

	if req.Kind != models.KindFolder {
		data, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			errResponse(w, http.StatusBadRequest, "Invalid data")
			return
		}
		path, err := s.blobs.Write(data)
		if err != nil {
			s.log.SErr("files", "writing blob: %s", err.Error())
			serverError(w)
			return
		}
		f.LocalPath = path
	}

	if err := s.db.CreateFile(r.Context(), &f); err != nil {
		// Parent errors can still surface here if the folder vanished
		// between the pre-check and the insert.
		if !mapParentErr(w, err) {
			s.log.SErr("files", "creating record: %s", err.Error())
			serverError(w)
		}
		return
	}

	if f.Kind == models.KindImage {
		job := models.DerivativeJob{FileId: f.Id, UserId: f.UserId, RequestedAt: time.Now().UTC()}
		if err := s.queue.Enqueue(job); err != nil {
			// Record exists, thumbnails will be missing until re-upload.
			s.log.SErr("files", "enqueueing derivative job for %s: %s", f.Id, err.Error())
		}
	}

	writeResponse(w, toFileResponse(&f), http.StatusCreated)
}

// validParent rejects uploads whose parent is absent or not a folder.
// Answers the request itself and returns false on rejection.
func (s *Server) validParent(w http.ResponseWriter, r *http.Request, parent models.ParentRef) bool {
	if parent.IsRoot() {
		return true
	}
	pf, err := s.db.GetFile(r.Context(), parent.Id())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			errResponse(w, http.StatusBadRequest, "Parent not found")
		} else {
			s.log.SErr("files", "looking up parent: %s", err.Error())
			serverError(w)
		}
		return false
	}
	if pf.Kind != models.KindFolder {
		errResponse(w, http.StatusBadRequest, "Parent is not a folder")
		return false
	}
	return true
}

func mapParentErr(w http.ResponseWriter, err error) bool {
	if errors.Is(err, database.ErrParentNotFound) {
		errResponse(w, http.StatusBadRequest, "Parent not found")
		return true
	}
	if errors.Is(err, database.ErrParentNotFolder) {
		errResponse(w, http.StatusBadRequest, "Parent is not a folder")
		return true
	}
	return false
}

// Handler function for GET /files/:id.
// Owner-scoped: somebody else's file id answers 404, not 403, so the
// lookup does not leak that the record exists.
func (s *Server) showFile(w http.ResponseWriter, r *http.Request, paths []string) {
	user := s.currentUser(w, r)
	if user == nil {
		return
	}

	id, err := uuid.Parse(paths[0])
	if err != nil {
		errResponse(w, http.StatusNotFound, "Not found")
		return
	}

	f, err := s.db.GetUserFile(r.Context(), id, user.Id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			errResponse(w, http.StatusNotFound, "Not found")
			return
		}
		s.log.SErr("files", "fetching record: %s", err.Error())
		serverError(w)
		return
	}

	writeResponse(w, toFileResponse(f), http.StatusOK)
}

// Handler function for GET /files?parentId=&page=.
// Pages are pageSize records of the owner's files under one parent.
// No ordering is promised across pages.
func (s *Server) listFiles(w http.ResponseWriter, r *http.Request, _ []string) {
	user := s.currentUser(w, r)
	if user == nil {
		return
	}

	parent, err := models.ParseParentRef(r.URL.Query().Get("parentId"))
	if err != nil {
		errResponse(w, http.StatusBadRequest, "Invalid parentId")
		return
	}

	page := 0
	if p := r.URL.Query().Get("page"); p != "" {
		page, err = strconv.Atoi(p)
		if err != nil || page < 0 {
			page = 0
		}
	}

	files, err := s.db.ListFiles(r.Context(), user.Id, parent, page, pageSize)
	if err != nil {
		s.log.SErr("files", "listing files: %s", err.Error())
		serverError(w)
		return
	}

	out := []FileResponse{}
	for i := range files {
		out = append(out, toFileResponse(&files[i]))
	}
	writeResponse(w, out, http.StatusOK)
}

// Handler functions for PUT /files/:id/publish and /unpublish.
// Owner-only; repeating a transition is a no-op answered with the
// current record.

func (s *Server) publishFile(w http.ResponseWriter, r *http.Request, paths []string) {
	s.setPublic(w, r, paths, true)
}

func (s *Server) unpublishFile(w http.ResponseWriter, r *http.Request, paths []string) {
	s.setPublic(w, r, paths, false)
}

func (s *Server) setPublic(w http.ResponseWriter, r *http.Request, paths []string, public bool) {
	user := s.currentUser(w, r)
	if user == nil {
		return
	}

	id, err := uuid.Parse(paths[0])
	if err != nil {
		errResponse(w, http.StatusNotFound, "Not found")
		return
	}

	f, err := s.db.SetPublic(r.Context(), id, user.Id, public)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			errResponse(w, http.StatusNotFound, "Not found")
			return
		}
		s.log.SErr("files", "updating visibility: %s", err.Error())
		serverError(w)
		return
	}

	writeResponse(w, toFileResponse(f), http.StatusOK)
}

// Handler function for GET /files/:id/data?size=.
// Streams the raw blob, or a generated derivative when size is one of
// the fixed widths. Private files answer 404 to everyone but the owner.
func (s *Server) getFileData(w http.ResponseWriter, r *http.Request, paths []string) {
	id, err := uuid.Parse(paths[0])
	if err != nil {
		errResponse(w, http.StatusNotFound, "Not found")
		return
	}

	f, err := s.db.GetFile(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			errResponse(w, http.StatusNotFound, "Not found")
			return
		}
		s.log.SErr("files", "fetching record: %s", err.Error())
		serverError(w)
		return
	}

	if !s.auth.CanRead(r.Context(), f, r.Header.Get("X-Token")) {
		errResponse(w, http.StatusNotFound, "Not found")
		return
	}

	if f.Kind == models.KindFolder {
		errResponse(w, http.StatusBadRequest, "A folder doesn't have content")
		return
	}
	if f.LocalPath == "" {
		errResponse(w, http.StatusNotFound, "Not found")
		return
	}

	path := f.LocalPath
	if size := r.URL.Query().Get("size"); size != "" {
		width, ok := thumbnailSizes[size]
		if !ok {
			errResponse(w, http.StatusNotFound, "Not found")
			return
		}
		path = disk.DerivativePath(path, width)
	}

	if !s.blobs.Exists(path) {
		errResponse(w, http.StatusNotFound, "Not found")
		return
	}
	content, err := s.blobs.Read(path)
	if err != nil {
		s.log.SErr("files", "reading blob: %s", err.Error())
		serverError(w)
		return
	}

	ctype := mime.TypeByExtension(filepath.Ext(f.Name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}
