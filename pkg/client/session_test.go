package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pan123/pkg/api"
	"pan123/pkg/config"
	"pan123/pkg/transfer"
	"pan123/pkg/types"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// vendor is a small in-memory stand-in for the service.
type vendor struct {
	t      *testing.T
	mu     sync.Mutex
	server *httptest.Server

	validToken string
	folders    map[types.FileID][]types.Entry
	recycled   []types.Entry
	blobs      map[types.FileID][]byte
	nextID     types.FileID

	hits   map[string]int
	bodies map[string][][]byte
}

func newVendor(t *testing.T) *vendor {
	v := &vendor{
		t:          t,
		validToken: "fresh-token",
		folders: map[types.FileID][]types.Entry{
			types.RootID: {
				{ID: 20, Name: "docs", Kind: types.KindFolder},
				{ID: 10, Name: "notes.txt", Kind: types.KindFile, Size: 11, Etag: "e10"},
			},
			20: {},
		},
		blobs:  map[types.FileID][]byte{10: []byte("hello notes")},
		nextID: 100,
		hits:   make(map[string]int),
		bodies: make(map[string][][]byte),
	}
	v.server = httptest.NewServer(http.HandlerFunc(v.serve))
	t.Cleanup(v.server.Close)
	return v
}

func (v *vendor) reply(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": code, "message": "msg", "data": data})
}

func (v *vendor) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hits[r.URL.Path]++
	v.bodies[r.URL.Path] = append(v.bodies[r.URL.Path], body)

	authorized := r.Header.Get("Authorization") == "Bearer "+v.validToken

	switch r.URL.Path {
	case "/b/api/user/sign_in":
		form, _ := url.ParseQuery(string(body))
		if form.Get("passport") != "alice" || form.Get("password") != "secret" {
			v.reply(w, 401, nil)
			return
		}
		v.reply(w, 200, map[string]string{"token": v.validToken})

	case "/api/file/list/new":
		if !authorized {
			v.reply(w, 401, nil)
			return
		}
		var parent int64
		fmt.Sscan(r.URL.Query().Get("parentFileId"), &parent)
		entries, ok := v.folders[types.FileID(parent)]
		if !ok {
			v.reply(w, 5000, nil)
			return
		}
		v.reply(w, 0, map[string]interface{}{"InfoList": entries, "Total": len(entries)})

	case "/a/api/file/list/new":
		v.reply(w, 0, map[string]interface{}{"InfoList": v.recycled, "Total": len(v.recycled)})

	case "/a/api/file/upload_request":
		var req struct {
			FileName     string
			ParentFileID types.FileID `json:"parentFileId"`
		}
		_ = json.Unmarshal(body, &req)
		id := v.nextID
		v.nextID++
		v.folders[req.ParentFileID] = append([]types.Entry{{ID: id, Name: req.FileName, Kind: types.KindFolder}}, v.folders[req.ParentFileID]...)
		v.folders[id] = nil
		v.reply(w, 0, map[string]interface{}{"Info": map[string]interface{}{"FileId": id}})

	case "/b/api/file/upload_request":
		v.reply(w, 0, map[string]interface{}{"FileId": 555, "Reuse": true})

	case "/a/api/file/trash":
		var req struct {
			Info      types.Entry `json:"fileTrashInfoList"`
			Operation bool        `json:"operation"`
		}
		_ = json.Unmarshal(body, &req)
		if req.Operation {
			kept := v.folders[types.RootID][:0:0]
			for _, e := range v.folders[types.RootID] {
				if e.ID != req.Info.ID {
					kept = append(kept, e)
				}
			}
			v.folders[types.RootID] = kept
			v.recycled = append(v.recycled, req.Info)
		}
		v.reply(w, 0, nil)

	case "/a/api/share/create":
		v.reply(w, 0, map[string]string{"ShareKey": "abc-123"})

	case "/a/api/file/download_info":
		var req struct {
			FileID types.FileID `json:"fileId"`
		}
		_ = json.Unmarshal(body, &req)
		v.reply(w, 0, map[string]string{"DownloadUrl": fmt.Sprintf("%s/redirect/%d", v.server.URL, req.FileID)})

	default:
		var id types.FileID
		if _, err := fmt.Sscanf(r.URL.Path, "/redirect/%d", &id); err == nil {
			fmt.Fprintf(w, "<a href='%s/blob/%d'>download</a>", v.server.URL, id)
			return
		}
		if _, err := fmt.Sscanf(r.URL.Path, "/blob/%d", &id); err == nil {
			http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(v.blobs[id]))
			return
		}
		http.NotFound(w, r)
	}
}

func (v *vendor) count(path string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hits[path]
}

func (v *vendor) lastBody(path string) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	b := v.bodies[path]
	if len(b) == 0 {
		v.t.Fatalf("no request to %s", path)
	}
	return b[len(b)-1]
}

func signedToken(t *testing.T, exp time.Time) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)
	return token
}

func newSession(t *testing.T, v *vendor, rec *config.Record) (*Session, *config.MemoryStore) {
	store := &config.MemoryStore{Record: rec}
	s, err := New(Options{
		Store:   store,
		BaseURL: v.server.URL,
		Logger:  zaptest.NewLogger(t),
		Rand:    rand.New(rand.NewSource(1)),
		Now:     func() time.Time { return now },
		Sleep:   func(ctx context.Context, d time.Duration) error { return ctx.Err() },
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, store
}

func credentials() *config.Record {
	rec := config.Default()
	rec.UserName, rec.PassWord = "alice", "secret"
	return rec
}

func TestNew_PersistsDeviceIdentity(t *testing.T) {
	v := newVendor(t)
	s, store := newSession(t, v, credentials())

	assert.Equal(t, 1, store.Saves)
	assert.NotEmpty(t, store.Record.DeviceType)
	assert.NotEmpty(t, store.Record.OSVersion)
	assert.Equal(t, store.Record.DeviceType, s.API().Identity().Model)

	rec := credentials()
	rec.DeviceType, rec.OSVersion = "M2001J2E", "Android_10"
	_, store = newSession(t, v, rec)
	assert.Zero(t, store.Saves)
}

func TestOpen_SignsInWithoutToken(t *testing.T) {
	v := newVendor(t)
	s, store := newSession(t, v, credentials())

	entries, err := s.Open(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 1, v.count("/b/api/user/sign_in"))
	assert.Equal(t, "Bearer fresh-token", store.Record.Authorization)
	assert.Equal(t, "Bearer fresh-token", s.Record().Authorization)
}

func TestOpen_ValidTokenSkipsSignIn(t *testing.T) {
	v := newVendor(t)
	v.validToken = signedToken(t, now.Add(24*time.Hour))
	rec := credentials()
	rec.Authorization = "Bearer " + v.validToken
	s, _ := newSession(t, v, rec)

	_, err := s.Open(context.Background())
	require.NoError(t, err)
	assert.Zero(t, v.count("/b/api/user/sign_in"))
	assert.Equal(t, 1, v.count("/api/file/list/new"))
}

func TestOpen_ExpiredTokenSignsIn(t *testing.T) {
	v := newVendor(t)
	rec := credentials()
	rec.Authorization = signedToken(t, now.Add(-time.Hour))
	s, _ := newSession(t, v, rec)

	_, err := s.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v.count("/b/api/user/sign_in"))
	assert.Equal(t, 1, v.count("/api/file/list/new"))
}

func TestOpen_RejectedTokenSignsInOnce(t *testing.T) {
	v := newVendor(t)
	rec := credentials()
	rec.Authorization = signedToken(t, now.Add(time.Hour))
	s, store := newSession(t, v, rec)

	entries, err := s.Open(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 1, v.count("/b/api/user/sign_in"))
	assert.Equal(t, 2, v.count("/api/file/list/new"))
	assert.Equal(t, "Bearer fresh-token", store.Record.Authorization)
}

func TestOpen_NoCredentials(t *testing.T) {
	v := newVendor(t)
	s, _ := newSession(t, v, config.Default())

	_, err := s.Open(context.Background())
	require.ErrorIs(t, err, types.ErrInvalidOperation)
	assert.Zero(t, v.count("/b/api/user/sign_in"))
}

func TestLogin_BadCredentialsKeepOld(t *testing.T) {
	v := newVendor(t)
	s, _ := newSession(t, v, credentials())

	err := s.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.Equal(t, 401, api.StatusCode(err))
	assert.Equal(t, "secret", s.Record().PassWord)

	require.NoError(t, s.Login(context.Background(), "alice", "secret"))
	assert.Equal(t, "Bearer fresh-token", s.Record().Authorization)
}

func openSession(t *testing.T, v *vendor) *Session {
	s, _ := newSession(t, v, credentials())
	_, err := s.Open(context.Background())
	require.NoError(t, err)
	return s
}

func TestMkdir(t *testing.T) {
	v := newVendor(t)
	s := openSession(t, v)
	ctx := context.Background()

	id, err := s.Mkdir(ctx, "docs", false)
	require.NoError(t, err)
	assert.Equal(t, types.FileID(20), id)
	assert.Zero(t, v.count("/a/api/file/upload_request"))

	id, err = s.Mkdir(ctx, "music", false)
	require.NoError(t, err)
	assert.Equal(t, types.FileID(100), id)
	assert.Equal(t, 3, s.Cursor().Len())

	var req map[string]interface{}
	require.NoError(t, json.Unmarshal(v.lastBody("/a/api/file/upload_request"), &req))
	assert.Equal(t, "newCreateFolder", req["event"])
	assert.Equal(t, true, req["NotReuse"])

	id, err = s.Mkdir(ctx, "docs", true)
	require.NoError(t, err)
	assert.Equal(t, types.FileID(101), id)

	_, err = s.Mkdir(ctx, "", false)
	assert.ErrorIs(t, err, types.ErrInvalidOperation)
}

func TestTrashAndRestore(t *testing.T) {
	v := newVendor(t)
	s := openSession(t, v)
	ctx := context.Background()

	_, err := s.Trash(ctx, 7)
	require.ErrorIs(t, err, types.ErrInvalidOperation)
	assert.Zero(t, v.count("/a/api/file/trash"))

	e, err := s.Trash(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", e.Name)
	assert.Equal(t, 1, s.Cursor().Len())

	_, err = s.RestoreIndex(ctx, 0)
	require.ErrorIs(t, err, types.ErrInvalidOperation)

	bin, err := s.Recycle(ctx)
	require.NoError(t, err)
	require.Len(t, bin, 1)

	restored, err := s.RestoreIndex(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, types.FileID(10), restored.ID)

	var req map[string]interface{}
	require.NoError(t, json.Unmarshal(v.lastBody("/a/api/file/trash"), &req))
	assert.Equal(t, false, req["operation"])
}

func TestShareAndLink(t *testing.T) {
	v := newVendor(t)
	s := openSession(t, v)
	ctx := context.Background()

	_, err := s.Share(ctx, nil, "")
	require.ErrorIs(t, err, types.ErrInvalidOperation)
	_, err = s.Share(ctx, []int{0, 9}, "")
	require.ErrorIs(t, err, types.ErrInvalidOperation)
	assert.Zero(t, v.count("/a/api/share/create"))

	link, err := s.Share(ctx, []int{0, 1}, "x1y2")
	require.NoError(t, err)
	assert.Equal(t, v.server.URL+"/s/abc-123", link)

	var req map[string]interface{}
	require.NoError(t, json.Unmarshal(v.lastBody("/a/api/share/create"), &req))
	assert.Equal(t, "20,10", req["fileIdList"])
	assert.Equal(t, "x1y2", req["sharePwd"])

	u, err := s.Link(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, v.server.URL+"/blob/10", u)
}

func TestDownloadThroughPool(t *testing.T) {
	v := newVendor(t)
	s := openSession(t, v)
	dir := t.TempDir()

	_, err := s.Download(context.Background(), 5, DownloadOptions{Dir: dir}, transfer.Handlers{})
	require.ErrorIs(t, err, types.ErrInvalidOperation)

	task, err := s.Download(context.Background(), 1, DownloadOptions{Dir: dir}, transfer.Handlers{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	state, err := task.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, transfer.StateCompleted, state)

	got, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello notes", string(got))
	assert.Len(t, s.Pool().List(), 1)
}

func TestUploadThroughPool(t *testing.T) {
	v := newVendor(t)
	s := openSession(t, v)
	path := filepath.Join(t.TempDir(), "up.txt")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o600))

	var result interface{}
	task := s.Upload(context.Background(), path, types.DuplicateFail, transfer.Handlers{
		OnResult: func(r interface{}) { result = r },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	state, err := task.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, transfer.StateCompleted, state)
	require.NotNil(t, result)

	var req map[string]interface{}
	require.NoError(t, json.Unmarshal(v.lastBody("/b/api/file/upload_request"), &req))
	assert.Equal(t, "up.txt", req["fileName"])
	assert.Equal(t, float64(0), req["parentFileId"])
}
