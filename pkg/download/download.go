// Package download resolves remote entries to signed URLs and writes them to
// disk, either as one stream or as parallel byte ranges.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pan123/pkg/api"
	"pan123/pkg/metrics"
	"pan123/pkg/shared"
	"pan123/pkg/storage"
	"pan123/pkg/transfer"
	"pan123/pkg/types"
)

// Strategy names, also used as metric labels.
const (
	StrategySingle   = "single"
	StrategyParallel = "parallel"

	DefaultProbeTimeout = 30 * time.Second

	// FolderArchiveSuffix is appended to folders, which download as zips.
	FolderArchiveSuffix = ".zip"
)

// ErrDownloadFailed wraps every failure of a download.
var ErrDownloadFailed = errors.New("download failed")

// Resolver turns an entry into the URL its bytes are served from.
type Resolver interface {
	ResolveDownloadURL(ctx context.Context, e types.Entry) (string, error)
}

// FolderLister lists a whole folder without disturbing the caller's view.
type FolderLister interface {
	FetchAll(ctx context.Context, folder types.FileID) ([]types.Entry, error)
}

// OverwriteConfirmer is asked before an existing local file is replaced.
type OverwriteConfirmer func(ctx context.Context, path string) bool

// Options configures an Engine.
type Options struct {
	HTTPClient *http.Client
	// Threads caps the range workers of one download.
	Threads int
	// Cutoff is the size above which a ranged download is attempted.
	Cutoff       int64
	ProbeTimeout time.Duration
	IdleTimeout  time.Duration
	Confirm      OverwriteConfirmer
	Lister       FolderLister
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
}

// Engine downloads entries.
type Engine struct {
	resolver     Resolver
	lister       FolderLister
	http         *http.Client
	threads      int
	cutoff       int64
	probeTimeout time.Duration
	idleTimeout  time.Duration
	confirm      OverwriteConfirmer
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

func New(resolver Resolver, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = shared.NewHTTPClient(0)
	}
	if opts.Threads <= 0 {
		opts.Threads = storage.MaxRangeWorkers
	}
	if opts.Threads > storage.MaxRangeWorkers {
		opts.Threads = storage.MaxRangeWorkers
	}
	if opts.Cutoff <= 0 {
		opts.Cutoff = storage.ParallelCutoff
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = shared.DefaultIdleTimeout
	}
	return &Engine{
		resolver:     resolver,
		lister:       opts.Lister,
		http:         opts.HTTPClient,
		threads:      opts.Threads,
		cutoff:       opts.Cutoff,
		probeTimeout: opts.ProbeTimeout,
		idleTimeout:  opts.IdleTimeout,
		confirm:      opts.Confirm,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
	}
}

// Request describes one download.
type Request struct {
	Entry types.Entry
	// Dir is the local directory the entry is written into.
	Dir string
	// Overwrite replaces an existing file without asking.
	Overwrite bool
}

// Result describes a finished download.
type Result struct {
	Path      string
	Size      int64
	Strategy  string
	Files     int
	Skipped   int
	Cancelled bool
}

// WasCancelled implements transfer.Canceller.
func (r *Result) WasCancelled() bool {
	return r != nil && r.Cancelled
}

// TargetPath is where e ends up inside dir.
func TargetPath(dir string, e types.Entry) string {
	name := e.Name
	if e.IsFolder() {
		name += FolderArchiveSuffix
	}
	return filepath.Join(dir, name)
}

// Func adapts a download to a supervised task.
func (e *Engine) Func(req Request) transfer.Func {
	return func(ctx context.Context, t *transfer.Task) (interface{}, error) {
		return e.Download(ctx, req, t, t.Report)
	}
}

// FolderFunc adapts a recursive folder download to a supervised task.
func (e *Engine) FolderFunc(req Request) transfer.Func {
	return func(ctx context.Context, t *transfer.Task) (interface{}, error) {
		return e.DownloadFolder(ctx, req, t, t.Report)
	}
}

// Download writes req.Entry into req.Dir. Bytes go to a temp file that is
// renamed over the target only once complete. A cancelled download leaves
// no artifacts and returns a Result with Cancelled set and no error.
func (e *Engine) Download(ctx context.Context, req Request, gate transfer.Gate, report func(done, total int64)) (*Result, error) {
	if gate == nil {
		gate = transfer.NopGate
	}
	if report == nil {
		report = func(int64, int64) {}
	}

	final := TargetPath(req.Dir, req.Entry)
	result := &Result{Path: final}
	logger := e.logger.With(zap.String("file", final), zap.Int64("file_id", int64(req.Entry.ID)))

	if storage.Exists(final) && !req.Overwrite {
		if e.confirm == nil || !e.confirm(ctx, final) {
			logger.Info("Download skipped, target exists")
			result.Cancelled = true
			return result, nil
		}
	}
	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	temp := storage.TempPath(final)
	e.cleanup(temp)

	target, err := e.resolver.ResolveDownloadURL(ctx, req.Entry)
	if err != nil {
		return e.stopped(logger, result, temp, "resolve", err)
	}

	size, ranged, err := e.probe(ctx, target)
	if err != nil {
		return e.stopped(logger, result, temp, "probe", err)
	}
	result.Size = size

	progress := transfer.NewProgress(size, report)
	if shared.ShouldUseParallel(size, ranged, e.cutoff) {
		result.Strategy = StrategyParallel
		err = e.parallel(ctx, target, temp, size, gate, progress)
	} else {
		result.Strategy = StrategySingle
		err = e.single(ctx, target, temp, size, gate, progress)
	}
	e.metrics.DownloadStrategy(result.Strategy)
	if err != nil {
		return e.stopped(logger, result, temp, result.Strategy, err)
	}

	if err := os.Rename(temp, final); err != nil {
		e.cleanup(temp)
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	result.Size = progress.Done()
	result.Files = 1
	logger.Info("Download completed", zap.String("strategy", result.Strategy), zap.Int64("size", result.Size))
	return result, nil
}

// cleanup removes the temp file and every part file a download of temp can
// leave behind.
func (e *Engine) cleanup(temp string) {
	paths := []string{temp}
	for i := 0; i < storage.MaxRangeWorkers; i++ {
		paths = append(paths, storage.PartPath(temp, i))
	}
	storage.RemoveAll(paths...)
}

func (e *Engine) stopped(logger *zap.Logger, result *Result, temp, stage string, err error) (*Result, error) {
	e.cleanup(temp)
	if transfer.IsCancelled(err) {
		logger.Info("Download cancelled", zap.String("stage", stage))
		result.Cancelled = true
		return result, nil
	}
	logger.Error("Download failed", zap.String("stage", stage), zap.Int("code", api.StatusCode(err)), zap.Error(err))
	return nil, fmt.Errorf("%w: %s: %w", ErrDownloadFailed, stage, err)
}

// probe reports the content length and whether byte ranges are served.
// Servers that reject HEAD are asked with a GET whose body is dropped.
func (e *Engine) probe(ctx context.Context, target string) (int64, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	defer cancel()

	resp, err := e.send(ctx, http.MethodHead, target, "")
	if err == nil && resp.StatusCode >= 400 {
		resp.Body.Close()
		err = fmt.Errorf("HEAD returned %s", resp.Status)
	}
	if err != nil {
		if ctx.Err() != nil {
			return 0, false, ctx.Err()
		}
		e.logger.Debug("HEAD probe rejected, retrying with GET", zap.Error(err))
		resp, err = e.send(ctx, http.MethodGet, target, "")
		if err != nil {
			return 0, false, err
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return 0, false, &api.TransportError{Op: "probe", Err: fmt.Errorf("unexpected HTTP status %s", resp.Status)}
		}
	}
	resp.Body.Close()

	ranged := strings.EqualFold(resp.Header.Get("Accept-Ranges"), "bytes")
	return resp.ContentLength, ranged, nil
}

func (e *Engine) send(ctx context.Context, method, target, rangeHeader string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, &api.TransportError{Op: strings.ToLower(method), Err: err}
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return nil, &api.TransportError{Op: strings.ToLower(method), Err: err}
	}
	return resp, nil
}

// fetch streams one response body into path. With r set only that range is
// requested and a 206 is required.
func (e *Engine) fetch(ctx context.Context, target, path string, r *storage.Range, gate transfer.Gate, progress *transfer.Progress) (int64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var rangeHeader string
	if r != nil {
		rangeHeader = r.Header()
	}
	resp, err := e.send(ctx, http.MethodGet, target, rangeHeader)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch {
	case r != nil && resp.StatusCode != http.StatusPartialContent:
		return 0, &api.TransportError{Op: "range", Err: fmt.Errorf("expected 206 for %s, got %s", rangeHeader, resp.Status)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return 0, &api.TransportError{Op: "get", Err: fmt.Errorf("unexpected HTTP status %s", resp.Status)}
	}

	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	idle := shared.NewIdleReader(resp.Body, e.idleTimeout, cancel)
	defer idle.Stop()

	var body io.Reader = idle
	if r != nil {
		body = io.LimitReader(idle, r.Len())
	}
	written, err := shared.CopyChunks(ctx, out, body, idle.Gate(gate), func(n int64) {
		progress.Add(n)
		e.metrics.Downloaded(n)
	})
	if cerr := out.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil && idle.Expired() {
		err = &api.TransportError{Op: "get", Err: fmt.Errorf("no data for %s: %v", e.idleTimeout, err)}
	}
	return written, err
}

func (e *Engine) single(ctx context.Context, target, temp string, size int64, gate transfer.Gate, progress *transfer.Progress) error {
	written, err := e.fetch(ctx, target, temp, nil, gate, progress)
	if err != nil {
		return err
	}
	if size >= 0 && written != size {
		return &api.TransportError{Op: "get", Err: fmt.Errorf("short body: got %d of %d bytes", written, size)}
	}
	return nil
}

func (e *Engine) parallel(ctx context.Context, target, temp string, size int64, gate transfer.Gate, progress *transfer.Progress) error {
	ranges := storage.SplitRanges(size, e.threads, storage.RangeUnit)
	parts := make([]string, len(ranges))

	g, gctx := errgroup.WithContext(ctx)
	for i, r := range ranges {
		r := r
		parts[i] = storage.PartPath(temp, r.Index)
		part := parts[i]
		g.Go(func() error {
			written, err := e.fetch(gctx, target, part, &r, gate, progress)
			if err == nil && written != r.Len() {
				err = &api.TransportError{Op: "range", Err: fmt.Errorf("range %d: got %d of %d bytes", r.Index, written, r.Len())}
			}
			if err != nil {
				storage.RemoveAll(part)
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return storage.ConcatParts(temp, parts)
}
