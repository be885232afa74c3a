// Package navigator tracks the virtual working directory and keeps the
// listing cursor in step with it.
package navigator

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"pan123/pkg/listing"
	"pan123/pkg/types"
)

// Navigator is the stack of folders from the root to the current folder.
// The root frame is never popped.
type Navigator struct {
	cursor *listing.Cursor
	logger *zap.Logger

	mu    sync.Mutex
	stack []types.NavFrame
}

// New creates a navigator at the root. Nothing is fetched until the first
// move or Refresh.
func New(cursor *listing.Cursor, logger *zap.Logger) *Navigator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Navigator{
		cursor: cursor,
		logger: logger,
		stack:  []types.NavFrame{{ID: types.RootID}},
	}
}

// Enter descends into a folder entry.
func (n *Navigator) Enter(ctx context.Context, e types.Entry) ([]types.Entry, error) {
	if !e.IsFolder() {
		return nil, types.InvalidOperation("%q is not a folder", e.Name)
	}
	return n.push(ctx, types.NavFrame{ID: e.ID, Name: e.Name})
}

// EnterIndex descends into entry i of the current listing.
func (n *Navigator) EnterIndex(ctx context.Context, i int) ([]types.Entry, error) {
	e, err := n.cursor.Entry(i)
	if err != nil {
		return nil, err
	}
	return n.Enter(ctx, e)
}

// EnterByID pushes id without checking that it is a folder. The fetch that
// follows surfaces the service error if it is not.
func (n *Navigator) EnterByID(ctx context.Context, id types.FileID) ([]types.Entry, error) {
	return n.push(ctx, types.NavFrame{ID: id})
}

func (n *Navigator) push(ctx context.Context, f types.NavFrame) ([]types.Entry, error) {
	n.mu.Lock()
	n.stack = append(n.stack, f)
	n.mu.Unlock()

	n.logger.Debug("Entering folder", zap.Int64("folder_id", int64(f.ID)), zap.String("name", f.Name))
	return n.Refresh(ctx)
}

// Up returns to the parent folder. At the root it fails with
// types.ErrAlreadyAtRoot and changes nothing.
func (n *Navigator) Up(ctx context.Context) ([]types.Entry, error) {
	n.mu.Lock()
	if len(n.stack) <= 1 {
		n.mu.Unlock()
		return nil, types.ErrAlreadyAtRoot
	}
	n.stack = n.stack[:len(n.stack)-1]
	n.mu.Unlock()

	return n.Refresh(ctx)
}

// ToRoot jumps back to the root folder.
func (n *Navigator) ToRoot(ctx context.Context) ([]types.Entry, error) {
	n.mu.Lock()
	n.stack = n.stack[:1]
	n.mu.Unlock()

	return n.Refresh(ctx)
}

// Refresh discards the current listing and fetches the first pages again.
func (n *Navigator) Refresh(ctx context.Context) ([]types.Entry, error) {
	current := n.Current()
	n.cursor.Reset(current.ID)
	return n.cursor.Fetch(ctx, current.ID, listing.FetchOptions{})
}

// More fetches the next pages of the current folder.
func (n *Navigator) More(ctx context.Context) ([]types.Entry, error) {
	return n.cursor.Fetch(ctx, n.Current().ID, listing.FetchOptions{})
}

// Current returns the top of the stack.
func (n *Navigator) Current() types.NavFrame {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stack[len(n.stack)-1]
}

// Depth returns the stack length; 1 at the root.
func (n *Navigator) Depth() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.stack)
}

// Stack returns a copy of the navigation stack.
func (n *Navigator) Stack() []types.NavFrame {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]types.NavFrame(nil), n.stack...)
}

// Path renders the stack as a slash-separated path. Frames entered by id
// show as "#<id>".
func (n *Navigator) Path() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	var b strings.Builder
	for _, f := range n.stack[1:] {
		b.WriteByte('/')
		if f.Name != "" {
			b.WriteString(f.Name)
		} else {
			b.WriteString("#")
			b.WriteString(formatID(f.ID))
		}
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

// Cursor exposes the listing of the current folder.
func (n *Navigator) Cursor() *listing.Cursor {
	return n.cursor
}

func formatID(id types.FileID) string {
	return strconv.FormatInt(int64(id), 10)
}
