package upload

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pan123/pkg/api"
	"pan123/pkg/metrics"
	"pan123/pkg/storage"
	"pan123/pkg/transfer"
	"pan123/pkg/types"
)

// fakeAPI records the upload protocol and stores part bodies.
type fakeAPI struct {
	mu       sync.Mutex
	requests []api.UploadRequest
	linked   []int
	parts    map[int][]byte
	listed   int
	merged   int
	finished []types.FileID

	responses   []*api.UploadResponse
	requestErrs []error
	partURLErr  error
	listErr     error
	completeErr error
	onPut       func(part int)
}

func newFakeAPI(resp ...*api.UploadResponse) *fakeAPI {
	return &fakeAPI{parts: make(map[int][]byte), responses: resp}
}

func session() *api.UploadResponse {
	return &api.UploadResponse{FileID: 77, Bucket: "b", StorageNode: "n", Key: "k", UploadID: "u"}
}

func (f *fakeAPI) RequestUpload(ctx context.Context, req api.UploadRequest) (*api.UploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.requestErrs) && f.requestErrs[i] != nil {
		return nil, f.requestErrs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func (f *fakeAPI) PartURL(ctx context.Context, s *types.UploadSession, part int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linked = append(f.linked, part)
	if f.partURLErr != nil {
		return "", f.partURLErr
	}
	return fmt.Sprintf("part-%d", part), nil
}

func (f *fakeAPI) PutPart(ctx context.Context, target string, body io.Reader, size int64) error {
	var part int
	if _, err := fmt.Sscanf(target, "part-%d", &part); err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("part %d: read %d bytes, want %d", part, len(data), size)
	}
	f.mu.Lock()
	f.parts[part] = data
	onPut := f.onPut
	f.mu.Unlock()
	if onPut != nil {
		onPut(part)
	}
	return nil
}

func (f *fakeAPI) ListUploadParts(ctx context.Context, s *types.UploadSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed++
	return f.listErr
}

func (f *fakeAPI) CompleteMultipart(ctx context.Context, s *types.UploadSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merged++
	return nil
}

func (f *fakeAPI) UploadComplete(ctx context.Context, id types.FileID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, id)
	return f.completeErr
}

func (f *fakeAPI) assembled() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]int, 0, len(f.parts))
	for k := range f.parts {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	var buf bytes.Buffer
	for _, k := range keys {
		buf.Write(f.parts[k])
	}
	return buf.Bytes()
}

// flagGate cancels once tripped.
type flagGate struct {
	tripped atomic.Bool
}

func (g *flagGate) Checkpoint(ctx context.Context) error {
	if g.tripped.Load() {
		return transfer.ErrCancelled
	}
	return ctx.Err()
}

func writeFile(t *testing.T, size int) (string, []byte) {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*7 + i/251)
	}
	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path, data
}

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

type sleeps struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleeps) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func newEngine(t *testing.T, f *fakeAPI, opts Options) *Engine {
	opts.Logger = zaptest.NewLogger(t)
	return New(f, opts)
}

func TestUpload_Multipart(t *testing.T) {
	path, data := writeFile(t, 2*storage.PartSize+100)
	f := newFakeAPI(session())
	s := &sleeps{}
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	e := newEngine(t, f, Options{Concurrency: 2, Sleep: s.sleep, Metrics: m})

	var mu sync.Mutex
	var reports []int64
	res, err := e.Upload(context.Background(), Request{Path: path, Parent: 12}, nil, func(done, total int64) {
		mu.Lock()
		reports = append(reports, done)
		mu.Unlock()
		assert.Equal(t, int64(len(data)), total)
	})
	require.NoError(t, err)

	assert.Equal(t, types.FileID(77), res.FileID)
	assert.Equal(t, 3, res.Parts)
	assert.False(t, res.Reused)
	assert.False(t, res.WasCancelled())
	assert.Equal(t, md5Hex(data), res.MD5)

	require.Len(t, f.requests, 1)
	assert.Equal(t, api.UploadRequest{
		Etag:         md5Hex(data),
		FileName:     "payload.bin",
		ParentFileID: 12,
		Size:         int64(len(data)),
		Duplicate:    types.DuplicateFail,
	}, f.requests[0])

	sort.Ints(f.linked)
	assert.Equal(t, []int{1, 2, 3}, f.linked)
	assert.Equal(t, data, f.assembled())
	assert.Equal(t, 1, f.listed)
	assert.Equal(t, 1, f.merged)
	assert.Equal(t, []types.FileID{77}, f.finished)
	assert.Empty(t, s.waits)

	require.Len(t, reports, 3)
	assert.Contains(t, reports, int64(len(data)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.UploadParts))
	assert.Equal(t, float64(len(data)), testutil.ToFloat64(m.UploadBytes))
}

func TestUpload_DedupeShortCircuit(t *testing.T) {
	path, data := writeFile(t, 3*storage.PartSize)
	f := newFakeAPI(&api.UploadResponse{FileID: 5, Reuse: true})
	m := metrics.New(prometheus.NewRegistry())
	e := newEngine(t, f, Options{Metrics: m})

	var last int64
	res, err := e.Upload(context.Background(), Request{Path: path}, nil, func(done, total int64) { last = done })
	require.NoError(t, err)

	assert.True(t, res.Reused)
	assert.Equal(t, types.FileID(5), res.FileID)
	assert.Empty(t, f.linked)
	assert.Empty(t, f.parts)
	assert.Zero(t, f.listed)
	assert.Empty(t, f.finished)
	assert.Equal(t, int64(len(data)), last)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UploadsReused))
}

func duplicateErr() error {
	return &api.ServiceError{Endpoint: "upload_request", Code: api.CodeDuplicateName, Message: "exists"}
}

func TestUpload_DuplicateWithoutResolver(t *testing.T) {
	path, _ := writeFile(t, 10)
	f := newFakeAPI(session())
	f.requestErrs = []error{duplicateErr()}
	e := newEngine(t, f, Options{})

	res, err := e.Upload(context.Background(), Request{Path: path}, nil, nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.ErrorIs(t, err, api.ErrDuplicateName)
	assert.Equal(t, api.CodeDuplicateName, api.StatusCode(err))
	assert.Len(t, f.requests, 1)
}

func TestUpload_DuplicateResolved(t *testing.T) {
	path, data := writeFile(t, 10)
	f := newFakeAPI(session())
	f.requestErrs = []error{duplicateErr()}
	var asked string
	e := newEngine(t, f, Options{OnConflict: func(ctx context.Context, name string) (types.DuplicatePolicy, bool) {
		asked = name
		return types.DuplicateKeepBoth, true
	}})

	res, err := e.Upload(context.Background(), Request{Path: path, Name: "remote.bin"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "remote.bin", asked)
	require.Len(t, f.requests, 2)
	assert.Equal(t, types.DuplicateFail, f.requests[0].Duplicate)
	assert.Equal(t, types.DuplicateKeepBoth, f.requests[1].Duplicate)
	assert.Equal(t, "remote.bin", f.requests[1].FileName)
	assert.Equal(t, data, f.assembled())
	assert.Equal(t, "remote.bin", res.Name)
}

func TestUpload_DuplicateDeclined(t *testing.T) {
	path, _ := writeFile(t, 10)
	f := newFakeAPI(session())
	f.requestErrs = []error{duplicateErr()}
	e := newEngine(t, f, Options{OnConflict: func(ctx context.Context, name string) (types.DuplicatePolicy, bool) {
		return types.DuplicateFail, false
	}})

	res, err := e.Upload(context.Background(), Request{Path: path}, nil, nil)
	require.NoError(t, err)
	assert.True(t, res.WasCancelled())
	assert.Len(t, f.requests, 1)
	assert.Empty(t, f.linked)
}

func TestUpload_Preconditions(t *testing.T) {
	f := newFakeAPI(session())
	e := newEngine(t, f, Options{})
	dir := t.TempDir()

	_, err := e.Upload(context.Background(), Request{Path: filepath.Join(dir, "missing")}, nil, nil)
	assert.ErrorIs(t, err, types.ErrInvalidOperation)

	_, err = e.Upload(context.Background(), Request{Path: dir}, nil, nil)
	assert.ErrorIs(t, err, types.ErrInvalidOperation)

	assert.Empty(t, f.requests)
}

func TestUpload_StageFailures(t *testing.T) {
	linkErr := &api.ServiceError{Endpoint: "part_url", Code: 400, Message: "bad part"}
	completeErr := &api.ServiceError{Endpoint: "upload_complete", Code: 1, Message: "nope"}

	t.Run("part link", func(t *testing.T) {
		path, _ := writeFile(t, 100)
		f := newFakeAPI(session())
		f.partURLErr = linkErr
		e := newEngine(t, f, Options{})

		_, err := e.Upload(context.Background(), Request{Path: path}, nil, nil)
		require.ErrorIs(t, err, ErrUploadFailed)
		assert.Equal(t, 400, api.StatusCode(err))
		assert.Empty(t, f.finished)
	})

	t.Run("upload complete", func(t *testing.T) {
		path, _ := writeFile(t, 100)
		f := newFakeAPI(session())
		f.completeErr = completeErr
		e := newEngine(t, f, Options{})

		_, err := e.Upload(context.Background(), Request{Path: path}, nil, nil)
		require.ErrorIs(t, err, ErrUploadFailed)
		assert.Equal(t, 1, api.StatusCode(err))
	})

	t.Run("part list is advisory", func(t *testing.T) {
		path, _ := writeFile(t, 100)
		f := newFakeAPI(session())
		f.listErr = &api.TransportError{Op: "list parts", Err: errors.New("reset")}
		e := newEngine(t, f, Options{})

		res, err := e.Upload(context.Background(), Request{Path: path}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, types.FileID(77), res.FileID)
		assert.Equal(t, []types.FileID{77}, f.finished)
	})
}

func TestUpload_CancelBetweenParts(t *testing.T) {
	path, _ := writeFile(t, 3*storage.PartSize)
	f := newFakeAPI(session())
	gate := &flagGate{}
	f.onPut = func(part int) { gate.tripped.Store(true) }
	e := newEngine(t, f, Options{Concurrency: 1})

	res, err := e.Upload(context.Background(), Request{Path: path}, gate, nil)
	require.NoError(t, err)
	assert.True(t, res.WasCancelled())
	assert.Equal(t, []int{1}, f.linked)
	assert.Zero(t, f.listed)
	assert.Empty(t, f.finished)
}

func TestUpload_LargeFileWaitsBeforeConfirming(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sparse.bin")
	fh, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, fh.Truncate(storage.LargeUploadThreshold+1))
	require.NoError(t, fh.Close())

	f := newFakeAPI(session())
	s := &sleeps{}
	e := newEngine(t, f, Options{Concurrency: 4, Sleep: s.sleep})

	res, err := e.Upload(context.Background(), Request{Path: path}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 13, res.Parts)
	assert.Equal(t, []time.Duration{CompletionDelay}, s.waits)
	assert.Equal(t, []types.FileID{77}, f.finished)
}

func TestUpload_AsTask(t *testing.T) {
	path, _ := writeFile(t, storage.PartSize+1)
	f := newFakeAPI(session())
	e := newEngine(t, f, Options{})

	var progress []int
	task := transfer.NewTask("upload", e.Func(Request{Path: path}), transfer.Handlers{
		OnProgress: func(p int) { progress = append(progress, p) },
	})
	assert.Equal(t, transfer.StateCompleted, task.Run(context.Background()))

	result, err := task.Result()
	require.NoError(t, err)
	assert.Equal(t, types.FileID(77), result.(*Result).FileID)
	assert.Equal(t, 100, progress[len(progress)-1])
}

func TestUpload_CancelledTask(t *testing.T) {
	path, _ := writeFile(t, 3*storage.PartSize)
	f := newFakeAPI(session())
	e := newEngine(t, f, Options{})

	var task *transfer.Task
	f.onPut = func(part int) { task.Cancel() }
	task = transfer.NewTask("upload", e.Func(Request{Path: path}), transfer.Handlers{})

	assert.Equal(t, transfer.StateCancelled, task.Run(context.Background()))
	assert.Empty(t, f.finished)
}
