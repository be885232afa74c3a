package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"pan123/pkg/transfer"
	"pan123/pkg/types"
)

type job struct {
	entry types.Entry
	dir   string
}

// DownloadFolder mirrors the folder req.Entry into req.Dir/<name>, file by
// file. Listings are fetched whole and never touch a navigator's cursor.
// Files the user declines to overwrite are counted as skipped.
func (e *Engine) DownloadFolder(ctx context.Context, req Request, gate transfer.Gate, report func(done, total int64)) (*Result, error) {
	if gate == nil {
		gate = transfer.NopGate
	}
	if report == nil {
		report = func(int64, int64) {}
	}
	if !req.Entry.IsFolder() {
		return nil, types.InvalidOperation("%q is not a folder", req.Entry.Name)
	}
	if e.lister == nil {
		return nil, fmt.Errorf("%w: no folder lister configured", ErrDownloadFailed)
	}

	root := filepath.Join(req.Dir, req.Entry.Name)
	result := &Result{Path: root}

	jobs, total, err := e.walk(ctx, req.Entry.ID, root, gate)
	if err != nil {
		if transfer.IsCancelled(err) {
			result.Cancelled = true
			return result, nil
		}
		return nil, fmt.Errorf("%w: list %s: %w", ErrDownloadFailed, req.Entry.Name, err)
	}
	e.logger.Info("Downloading folder",
		zap.String("folder", req.Entry.Name),
		zap.Int("files", len(jobs)),
		zap.Int64("bytes", total))

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	progress := transfer.NewProgress(total, report)
	for _, j := range jobs {
		if err := gate.Checkpoint(ctx); err != nil {
			result.Cancelled = true
			return result, nil
		}
		file := &fileProgress{folder: progress}
		res, err := e.Download(ctx, Request{Entry: j.entry, Dir: j.dir, Overwrite: req.Overwrite}, gate, file.report)
		if err != nil {
			return nil, err
		}
		if res.Cancelled {
			if ctx.Err() != nil || gate.Checkpoint(ctx) != nil {
				result.Cancelled = true
				return result, nil
			}
			result.Skipped++
			file.settle(j.entry.Size)
			continue
		}
		result.Files++
		result.Size += res.Size
		file.settle(j.entry.Size)
	}
	return result, nil
}

// fileProgress forwards one file's byte count into the folder total.
// Range workers report concurrently and possibly out of order, so only
// growth is forwarded.
type fileProgress struct {
	folder *transfer.Progress

	mu   sync.Mutex
	sent int64
}

func (f *fileProgress) report(done, _ int64) {
	f.mu.Lock()
	delta := done - f.sent
	if delta > 0 {
		f.sent = done
	}
	f.mu.Unlock()
	if delta > 0 {
		f.folder.Add(delta)
	}
}

// settle accounts the rest of the listed size once the file is finished
// with, so the folder total still adds up when the body size differed or
// the file was skipped.
func (f *fileProgress) settle(size int64) {
	f.mu.Lock()
	delta := size - f.sent
	f.sent = size
	f.mu.Unlock()
	if delta > 0 {
		f.folder.Add(delta)
	}
}

// walk lists the tree below folder depth-first and returns the files to
// fetch with the local directory each one belongs in.
func (e *Engine) walk(ctx context.Context, folder types.FileID, dir string, gate transfer.Gate) ([]job, int64, error) {
	if err := gate.Checkpoint(ctx); err != nil {
		return nil, 0, err
	}
	entries, err := e.lister.FetchAll(ctx, folder)
	if err != nil {
		return nil, 0, err
	}

	var (
		jobs  []job
		total int64
	)
	for _, entry := range entries {
		if entry.IsFolder() {
			sub, n, err := e.walk(ctx, entry.ID, filepath.Join(dir, entry.Name), gate)
			if err != nil {
				return nil, 0, err
			}
			if len(sub) == 0 {
				if err := os.MkdirAll(filepath.Join(dir, entry.Name), 0o755); err != nil {
					return nil, 0, err
				}
			}
			jobs = append(jobs, sub...)
			total += n
			continue
		}
		jobs = append(jobs, job{entry: entry, dir: dir})
		total += entry.Size
	}
	return jobs, total, nil
}
