package shared

import (
	"context"
	"io"
	"sync"
	"time"

	"pan123/pkg/transfer"
)

const (
	// StreamChunkSize is the size of each read in a streaming loop, and so
	// the granularity of pause and cancel checks.
	StreamChunkSize = 64 * 1024
)

// CopyChunks streams src into dst one chunk at a time. After every chunk is
// written, onChunk (if set) is told its size and gate is consulted, so a
// pause blocks between chunks and a cancel stops the copy with the bytes
// written so far.
func CopyChunks(ctx context.Context, dst io.Writer, src io.Reader, gate transfer.Gate, onChunk func(n int64)) (int64, error) {
	if gate == nil {
		gate = transfer.NopGate
	}
	if err := gate.Checkpoint(ctx); err != nil {
		return 0, err
	}

	buffer := make([]byte, StreamChunkSize)
	var written int64
	for {
		n, rerr := src.Read(buffer)
		if n > 0 {
			w, werr := dst.Write(buffer[:n])
			written += int64(w)
			if werr != nil {
				return written, werr
			}
			if w != n {
				return written, io.ErrShortWrite
			}
			if onChunk != nil {
				onChunk(int64(n))
			}
			if err := gate.Checkpoint(ctx); err != nil {
				return written, err
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

// IdleReader cancels its request when no Read completes within timeout, so
// a stalled body cannot block forever.
type IdleReader struct {
	r       io.Reader
	timeout time.Duration
	timer   *time.Timer

	mu      sync.Mutex
	expired bool
	held    bool
	stopped bool
}

// NewIdleReader arms the idle timer immediately. cancel is invoked once if
// it fires.
func NewIdleReader(r io.Reader, timeout time.Duration, cancel context.CancelFunc) *IdleReader {
	ir := &IdleReader{r: r, timeout: timeout}
	ir.timer = time.AfterFunc(timeout, func() {
		ir.mu.Lock()
		ir.expired = true
		ir.mu.Unlock()
		cancel()
	})
	return ir
}

func (ir *IdleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	ir.rearm()
	return n, err
}

func (ir *IdleReader) rearm() {
	ir.mu.Lock()
	defer ir.mu.Unlock()
	if !ir.expired && !ir.held && !ir.stopped {
		ir.timer.Reset(ir.timeout)
	}
}

// Hold disarms the timer until Release. Time spent held is not idle time.
func (ir *IdleReader) Hold() {
	ir.mu.Lock()
	defer ir.mu.Unlock()
	ir.held = true
	ir.timer.Stop()
}

// Release re-arms the timer for a full timeout.
func (ir *IdleReader) Release() {
	ir.mu.Lock()
	ir.held = false
	ir.mu.Unlock()
	ir.rearm()
}

// Gate wraps g so the idle timer is held while a checkpoint blocks on a
// paused task.
func (ir *IdleReader) Gate(g transfer.Gate) transfer.Gate {
	if g == nil {
		g = transfer.NopGate
	}
	return idleGate{gate: g, idle: ir}
}

type idleGate struct {
	gate transfer.Gate
	idle *IdleReader
}

func (g idleGate) Checkpoint(ctx context.Context) error {
	g.idle.Hold()
	defer g.idle.Release()
	return g.gate.Checkpoint(ctx)
}

// Expired reports whether the idle timer fired.
func (ir *IdleReader) Expired() bool {
	ir.mu.Lock()
	defer ir.mu.Unlock()
	return ir.expired
}

// Stop disarms the timer for good.
func (ir *IdleReader) Stop() {
	ir.mu.Lock()
	defer ir.mu.Unlock()
	ir.stopped = true
	ir.timer.Stop()
}
