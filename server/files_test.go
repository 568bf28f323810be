package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/noisersup/filestore-api/disk"
	"github.com/noisersup/filestore-api/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadBody(name, kind, parentId, data string) string {
	body := fmt.Sprintf(`{"name":%q,"kind":%q`, name, kind)
	if parentId != "" {
		body += fmt.Sprintf(`,"parentId":%q`, parentId)
	}
	if data != "" {
		body += fmt.Sprintf(`,"data":%q`, base64.StdEncoding.EncodeToString([]byte(data)))
	}
	return body + "}"
}

func Test_UploadFolder(t *testing.T) {
	e := newTestEnv(t)
	user, token := e.login(t, "alice@example.com", "pw1")

	w := e.do(t, http.MethodPost, "/files", token, strings.NewReader(uploadBody("docs", "folder", "", "")))
	require.Equal(t, http.StatusCreated, w.Code)

	resp := FileResponse{}
	decodeJSON(t, w, &resp)
	assert.Equal(t, "docs", resp.Name)
	assert.Equal(t, models.KindFolder, resp.Kind)
	assert.Equal(t, user.Id, resp.UserId)
	assert.Equal(t, "0", resp.ParentId.String())
	assert.False(t, resp.IsPublic)

	// folders own no blob and trigger no derivative job
	stored, err := e.db.GetFile(context.Background(), resp.Id)
	require.NoError(t, err)
	assert.Empty(t, stored.LocalPath)
	assert.Empty(t, e.queue.enqueued())
}

func Test_UploadUnauthorized(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/files", "", strings.NewReader(uploadBody("docs", "folder", "", "")))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// First failure wins: name before kind before data before parent.
func Test_UploadValidationOrder(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login(t, "alice@example.com", "pw1")

	cases := []struct {
		body string
		want string
	}{
		{`{}`, "Missing name"},
		{`{"name":"a"}`, "Missing kind"},
		{`{"name":"a","kind":"movie"}`, "Missing kind"},
		{`{"name":"a","kind":"file"}`, "Missing data"},
		{`{"name":"a","kind":"image"}`, "Missing data"},
		{`{"name":"a","kind":"file","data":"###"}`, "Invalid data"},
	}

	for _, c := range cases {
		w := e.do(t, http.MethodPost, "/files", token, strings.NewReader(c.body))
		assert.Equal(t, http.StatusBadRequest, w.Code, c.body)
		resp := ErrResponse{}
		decodeJSON(t, w, &resp)
		assert.Equal(t, c.want, resp.Error, c.body)
	}
}

func Test_UploadParentInvariants(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login(t, "alice@example.com", "pw1")

	// nonexistent parent
	w := e.do(t, http.MethodPost, "/files", token,
		strings.NewReader(uploadBody("a.txt", "file", uuid.New().String(), "hi")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := ErrResponse{}
	decodeJSON(t, w, &resp)
	assert.Equal(t, "Parent not found", resp.Error)

	// parent that is a plain file, not a folder
	w = e.do(t, http.MethodPost, "/files", token, strings.NewReader(uploadBody("b.txt", "file", "", "hi")))
	require.Equal(t, http.StatusCreated, w.Code)
	leaf := FileResponse{}
	decodeJSON(t, w, &leaf)

	w = e.do(t, http.MethodPost, "/files", token,
		strings.NewReader(uploadBody("c.txt", "file", leaf.Id.String(), "hi")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	decodeJSON(t, w, &resp)
	assert.Equal(t, "Parent is not a folder", resp.Error)

	// the root sentinel always works as a parent
	w = e.do(t, http.MethodPost, "/files", token,
		strings.NewReader(`{"name":"d","kind":"folder","parentId":"0"}`))
	assert.Equal(t, http.StatusCreated, w.Code)

	// nesting under a real folder works too
	folder := FileResponse{}
	decodeJSON(t, w, &folder)
	w = e.do(t, http.MethodPost, "/files", token,
		strings.NewReader(uploadBody("e.txt", "file", folder.Id.String(), "hi")))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func Test_UploadImageEnqueuesJob(t *testing.T) {
	e := newTestEnv(t)
	user, token := e.login(t, "alice@example.com", "pw1")

	w := e.do(t, http.MethodPost, "/files", token, strings.NewReader(uploadBody("a.png", "image", "", "raster")))
	require.Equal(t, http.StatusCreated, w.Code)
	resp := FileResponse{}
	decodeJSON(t, w, &resp)

	jobs := e.queue.enqueued()
	require.Len(t, jobs, 1)
	assert.Equal(t, resp.Id, jobs[0].FileId)
	assert.Equal(t, user.Id, jobs[0].UserId)
	assert.False(t, jobs[0].RequestedAt.IsZero())

	// the blob landed on disk before the record was committed
	stored, err := e.db.GetFile(context.Background(), resp.Id)
	require.NoError(t, err)
	content, err := e.blobs.Read(stored.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("raster"), content)
}

func Test_UploadFileNoJob(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login(t, "alice@example.com", "pw1")

	w := e.do(t, http.MethodPost, "/files", token, strings.NewReader(uploadBody("a.txt", "file", "", "hi")))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, e.queue.enqueued())
}

func Test_ShowFile(t *testing.T) {
	e := newTestEnv(t)
	_, aliceToken := e.login(t, "alice@example.com", "pw1")
	_, bobToken := e.login(t, "bob@example.com", "pw2")

	w := e.do(t, http.MethodPost, "/files", aliceToken, strings.NewReader(uploadBody("a.txt", "file", "", "hi")))
	require.Equal(t, http.StatusCreated, w.Code)
	created := FileResponse{}
	decodeJSON(t, w, &created)

	w = e.do(t, http.MethodGet, "/files/"+created.Id.String(), aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// not owned: 404, never 403, so existence is not leaked
	w = e.do(t, http.MethodGet, "/files/"+created.Id.String(), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodGet, "/files/not-a-uuid", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodGet, "/files/"+created.Id.String(), "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func Test_ListPagination(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login(t, "alice@example.com", "pw1")

	const total = 45
	for i := 0; i < total; i++ {
		w := e.do(t, http.MethodPost, "/files", token,
			strings.NewReader(uploadBody(fmt.Sprintf("f%02d", i), "folder", "", "")))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	seen := map[uuid.UUID]bool{}
	sizes := []int{20, 20, 5, 0}
	for page, wantLen := range sizes {
		w := e.do(t, http.MethodGet, fmt.Sprintf("/files?page=%d", page), token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		files := []FileResponse{}
		decodeJSON(t, w, &files)
		assert.Len(t, files, wantLen, "page %d", page)
		for _, f := range files {
			assert.False(t, seen[f.Id], "duplicate across pages")
			seen[f.Id] = true
		}
	}
	assert.Len(t, seen, total)
}

func Test_ListScopedToParent(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login(t, "alice@example.com", "pw1")

	w := e.do(t, http.MethodPost, "/files", token, strings.NewReader(uploadBody("docs", "folder", "", "")))
	require.Equal(t, http.StatusCreated, w.Code)
	folder := FileResponse{}
	decodeJSON(t, w, &folder)

	w = e.do(t, http.MethodPost, "/files", token,
		strings.NewReader(uploadBody("inside.txt", "file", folder.Id.String(), "hi")))
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodGet, "/files?parentId="+folder.Id.String(), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	files := []FileResponse{}
	decodeJSON(t, w, &files)
	require.Len(t, files, 1)
	assert.Equal(t, "inside.txt", files[0].Name)

	w = e.do(t, http.MethodGet, "/files", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &files)
	require.Len(t, files, 1)
	assert.Equal(t, "docs", files[0].Name)
}

func Test_PublishIdempotent(t *testing.T) {
	e := newTestEnv(t)
	_, aliceToken := e.login(t, "alice@example.com", "pw1")
	_, bobToken := e.login(t, "bob@example.com", "pw2")

	w := e.do(t, http.MethodPost, "/files", aliceToken, strings.NewReader(uploadBody("a.txt", "file", "", "hi")))
	require.Equal(t, http.StatusCreated, w.Code)
	created := FileResponse{}
	decodeJSON(t, w, &created)

	target := "/files/" + created.Id.String()

	for i := 0; i < 2; i++ {
		w = e.do(t, http.MethodPut, target+"/publish", aliceToken, nil)
		require.Equal(t, http.StatusOK, w.Code, "publish call %d", i)
		resp := FileResponse{}
		decodeJSON(t, w, &resp)
		assert.True(t, resp.IsPublic)
	}

	w = e.do(t, http.MethodPut, target+"/unpublish", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := FileResponse{}
	decodeJSON(t, w, &resp)
	assert.False(t, resp.IsPublic)

	// owner-only: others get 404
	w = e.do(t, http.MethodPut, target+"/publish", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(t, http.MethodPut, target+"/publish", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func Test_FileDataVisibility(t *testing.T) {
	e := newTestEnv(t)
	_, aliceToken := e.login(t, "alice@example.com", "pw1")
	_, bobToken := e.login(t, "bob@example.com", "pw2")

	w := e.do(t, http.MethodPost, "/files", aliceToken, strings.NewReader(uploadBody("a.txt", "file", "", "secret")))
	require.Equal(t, http.StatusCreated, w.Code)
	created := FileResponse{}
	decodeJSON(t, w, &created)

	target := "/files/" + created.Id.String() + "/data"

	// private: owner only; everyone else sees 404, not 401
	w = e.do(t, http.MethodGet, target, aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "secret", w.Body.String())
	w = e.do(t, http.MethodGet, target, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(t, http.MethodGet, target, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// published: readable with no token at all
	w = e.do(t, http.MethodPut, "/files/"+created.Id.String()+"/publish", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodGet, target, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "secret", w.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
}

func Test_FileDataFolder(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login(t, "alice@example.com", "pw1")

	w := e.do(t, http.MethodPost, "/files", token, strings.NewReader(uploadBody("docs", "folder", "", "")))
	require.Equal(t, http.StatusCreated, w.Code)
	folder := FileResponse{}
	decodeJSON(t, w, &folder)

	w = e.do(t, http.MethodGet, "/files/"+folder.Id.String()+"/data", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := ErrResponse{}
	decodeJSON(t, w, &resp)
	assert.Equal(t, "A folder doesn't have content", resp.Error)
}

func Test_FileDataSizes(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login(t, "alice@example.com", "pw1")

	w := e.do(t, http.MethodPost, "/files", token, strings.NewReader(uploadBody("a.png", "image", "", "original")))
	require.Equal(t, http.StatusCreated, w.Code)
	created := FileResponse{}
	decodeJSON(t, w, &created)

	target := "/files/" + created.Id.String() + "/data"

	// derivative not generated yet
	w = e.do(t, http.MethodGet, target+"?size=250", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// unsupported size value
	w = e.do(t, http.MethodGet, target+"?size=300", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// drop the derivative where the worker would put it
	stored, err := e.db.GetFile(context.Background(), created.Id)
	require.NoError(t, err)
	require.NoError(t, e.blobs.WritePath(disk.DerivativePath(stored.LocalPath, 250), []byte("small")))

	w = e.do(t, http.MethodGet, target+"?size=250", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "small", w.Body.String())

	// no size still serves the original
	w = e.do(t, http.MethodGet, target, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "original", w.Body.String())
}

func Test_FileDataUnknownId(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/files/"+uuid.New().String()+"/data", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
