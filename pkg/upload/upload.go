// Package upload sends local files to the service: content-hash dedupe
// first, then a multipart transfer of fixed-size parts.
package upload

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pan123/pkg/api"
	"pan123/pkg/metrics"
	"pan123/pkg/storage"
	"pan123/pkg/transfer"
	"pan123/pkg/types"
)

const (
	DefaultConcurrency = 1

	// CompletionDelay is waited before confirming uploads larger than
	// storage.LargeUploadThreshold; the service needs time to assemble them.
	CompletionDelay = 3 * time.Second
)

// ErrUploadFailed wraps every stage failure of an upload.
var ErrUploadFailed = errors.New("upload failed")

// API is the subset of the vendor client the engine drives.
type API interface {
	RequestUpload(ctx context.Context, req api.UploadRequest) (*api.UploadResponse, error)
	PartURL(ctx context.Context, s *types.UploadSession, part int) (string, error)
	PutPart(ctx context.Context, target string, body io.Reader, size int64) error
	ListUploadParts(ctx context.Context, s *types.UploadSession) error
	CompleteMultipart(ctx context.Context, s *types.UploadSession) error
	UploadComplete(ctx context.Context, id types.FileID) error
}

// ConflictResolver picks a duplicate policy after the service reported a
// name clash. Returning false abandons the upload as cancelled.
type ConflictResolver func(ctx context.Context, name string) (types.DuplicatePolicy, bool)

// Options configures an Engine.
type Options struct {
	// Concurrency is the number of parts in flight. 1 uploads in order.
	Concurrency int
	OnConflict  ConflictResolver
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	// Sleep waits before the final confirmation of large files.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Engine uploads files through an API.
type Engine struct {
	api         API
	concurrency int
	onConflict  ConflictResolver
	logger      *zap.Logger
	metrics     *metrics.Metrics
	sleep       func(ctx context.Context, d time.Duration) error
}

func New(a API, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &Engine{
		api:         a,
		concurrency: opts.Concurrency,
		onConflict:  opts.OnConflict,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		sleep:       opts.Sleep,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Request describes one file to upload.
type Request struct {
	Path   string
	Parent types.FileID
	// Name overrides the remote file name; the local base name by default.
	Name string
	// Duplicate is the policy sent with the first session request.
	Duplicate types.DuplicatePolicy
}

// Result describes a finished upload.
type Result struct {
	FileID    types.FileID
	Name      string
	Size      int64
	MD5       string
	Parts     int
	Reused    bool
	Cancelled bool
}

// WasCancelled implements transfer.Canceller.
func (r *Result) WasCancelled() bool {
	return r != nil && r.Cancelled
}

// Func adapts an upload to a supervised task.
func (e *Engine) Func(req Request) transfer.Func {
	return func(ctx context.Context, t *transfer.Task) (interface{}, error) {
		return e.Upload(ctx, req, t, t.Report)
	}
}

// Upload transfers req.Path. gate is consulted between hash blocks and
// parts; report receives the bytes confirmed so far. A cancelled upload
// returns a Result with Cancelled set and no error.
func (e *Engine) Upload(ctx context.Context, req Request, gate transfer.Gate, report func(done, total int64)) (*Result, error) {
	if gate == nil {
		gate = transfer.NopGate
	}
	if report == nil {
		report = func(int64, int64) {}
	}

	info, err := os.Stat(req.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, types.InvalidOperation("%s does not exist", req.Path)
		}
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	if info.IsDir() {
		return nil, types.InvalidOperation("%s is a directory", req.Path)
	}

	name := req.Name
	if name == "" {
		name = filepath.Base(req.Path)
	}
	result := &Result{Name: name, Size: info.Size()}

	f, err := os.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	defer f.Close()

	logger := e.logger.With(zap.String("file", name), zap.Int64("size", info.Size()))

	sum, err := hashFile(ctx, f, gate)
	if err != nil {
		return e.stopped(logger, result, "hash", err)
	}
	result.MD5 = sum

	resp, err := e.requestSession(ctx, logger, api.UploadRequest{
		Etag:         sum,
		FileName:     name,
		ParentFileID: req.Parent,
		Size:         info.Size(),
		Duplicate:    req.Duplicate,
	})
	if err != nil {
		return e.stopped(logger, result, "upload request", err)
	}
	if resp == nil {
		result.Cancelled = true
		return result, nil
	}
	result.FileID = resp.FileID

	if resp.Reuse {
		logger.Info("Upload satisfied by existing content", zap.Int64("file_id", int64(resp.FileID)))
		e.metrics.UploadReused()
		report(info.Size(), info.Size())
		return result, nil
	}

	session := &types.UploadSession{
		Bucket:         resp.Bucket,
		StorageNode:    resp.StorageNode,
		Key:            resp.Key,
		UploadID:       resp.UploadID,
		FileID:         resp.FileID,
		PartSize:       storage.PartSize,
		NextPartNumber: 1,
	}

	parts := storage.PlanParts(info.Size(), session.PartSize)
	result.Parts = len(parts)
	if err := e.sendParts(ctx, f, session, parts, gate, transfer.NewProgress(info.Size(), report)); err != nil {
		return e.stopped(logger, result, "send parts", err)
	}

	if err := gate.Checkpoint(ctx); err != nil {
		return e.stopped(logger, result, "complete", err)
	}
	if err := e.api.ListUploadParts(ctx, session); err != nil {
		if transfer.IsCancelled(err) {
			return e.stopped(logger, result, "list parts", err)
		}
		logger.Warn("Part list handshake failed", zap.Int("code", api.StatusCode(err)), zap.Error(err))
	}
	if err := e.api.CompleteMultipart(ctx, session); err != nil {
		if transfer.IsCancelled(err) {
			return e.stopped(logger, result, "complete multipart", err)
		}
		logger.Warn("Complete multipart failed", zap.Int("code", api.StatusCode(err)), zap.Error(err))
	}

	if info.Size() > storage.LargeUploadThreshold {
		logger.Debug("Waiting before confirming large upload", zap.Duration("delay", CompletionDelay))
		if err := e.sleep(ctx, CompletionDelay); err != nil {
			return e.stopped(logger, result, "complete", err)
		}
	}

	if err := e.api.UploadComplete(ctx, session.FileID); err != nil {
		return e.stopped(logger, result, "upload complete", err)
	}

	logger.Info("Upload completed", zap.Int64("file_id", int64(session.FileID)), zap.Int("parts", len(parts)))
	return result, nil
}

// stopped turns a cooperative stop into a cancelled result and anything
// else into ErrUploadFailed.
func (e *Engine) stopped(logger *zap.Logger, result *Result, stage string, err error) (*Result, error) {
	if transfer.IsCancelled(err) {
		// Sessions cannot be aborted; the service is left to expire them.
		logger.Debug("Upload cancelled", zap.String("stage", stage), zap.Int64("file_id", int64(result.FileID)))
		result.Cancelled = true
		return result, nil
	}
	logger.Error("Upload failed", zap.String("stage", stage), zap.Int("code", api.StatusCode(err)), zap.Error(err))
	return nil, fmt.Errorf("%w: %s: %w", ErrUploadFailed, stage, err)
}

// requestSession opens the session, asking the conflict resolver once when
// the name is taken. A nil response without error means the user declined.
func (e *Engine) requestSession(ctx context.Context, logger *zap.Logger, req api.UploadRequest) (*api.UploadResponse, error) {
	resp, err := e.api.RequestUpload(ctx, req)
	if err == nil || !errors.Is(err, api.ErrDuplicateName) || req.Duplicate != types.DuplicateFail {
		return resp, err
	}
	if e.onConflict == nil {
		return nil, err
	}

	policy, ok := e.onConflict(ctx, req.FileName)
	if !ok || policy == types.DuplicateFail {
		logger.Info("Upload skipped, name already exists")
		return nil, nil
	}
	logger.Info("Name already exists, retrying", zap.Stringer("policy", policy))
	req.Duplicate = policy
	return e.api.RequestUpload(ctx, req)
}

func (e *Engine) sendParts(ctx context.Context, f io.ReaderAt, s *types.UploadSession, parts []storage.Range, gate transfer.Gate, progress *transfer.Progress) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, part := range parts {
		if gctx.Err() != nil {
			break
		}
		part := part
		g.Go(func() error {
			if err := gate.Checkpoint(gctx); err != nil {
				return err
			}
			target, err := e.api.PartURL(gctx, s, part.Index)
			if err != nil {
				return fmt.Errorf("part %d link: %w", part.Index, err)
			}
			body := io.NewSectionReader(f, part.Start, part.Len())
			if err := e.api.PutPart(gctx, target, body, part.Len()); err != nil {
				return fmt.Errorf("part %d: %w", part.Index, err)
			}
			e.metrics.UploadPart(part.Len())
			progress.Add(part.Len())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// A cancel that arrives while the loop stops launching parts leaves
	// no worker error behind.
	return ctx.Err()
}

// hashFile computes the hex MD5 the service dedupes on, checking the gate
// after every block.
func hashFile(ctx context.Context, f io.ReadSeeker, gate transfer.Gate) (string, error) {
	h := md5.New()
	buf := make([]byte, storage.HashBlockSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			if cerr := gate.Checkpoint(ctx); cerr != nil {
				return "", cerr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
