// Package listing accumulates a folder's entries from the paginated list
// endpoint.
package listing

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"pan123/pkg/api"
	"pan123/pkg/metrics"
	"pan123/pkg/types"
)

const (
	DefaultPageSize = 100
	PagesPerFetch   = 3
	ThrottleEvery   = 5
	ThrottleDelay   = 3 * time.Second
)

// Lister fetches one page of a folder listing.
type Lister interface {
	ListPage(ctx context.Context, parent types.FileID, page, limit int) (*api.ListPage, error)
}

// FetchOptions tunes a single Fetch.
type FetchOptions struct {
	// ForceAll restarts from page 1 and fetches until the folder is
	// exhausted, replacing the accumulated list.
	ForceAll bool
	// PageSize is the number of entries requested per page.
	PageSize int
	// Transient returns the entries without touching the cursor.
	Transient bool
}

// Options configures a Cursor.
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Sleep waits between throttled pages. It must return early with an
	// error when ctx ends.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnThrottle is told how far along a large folder is whenever a
	// throttle pause begins.
	OnThrottle func(have, total int64)
}

// Cursor is the accumulated view of one folder. Entries keep server order
// (descending id) and are never re-sorted.
type Cursor struct {
	lister     Lister
	logger     *zap.Logger
	metrics    *metrics.Metrics
	sleep      func(ctx context.Context, d time.Duration) error
	onThrottle func(have, total int64)

	// fetchMu serializes Fetch. mu guards the state below and is never
	// held across a round-trip or a throttle wait.
	fetchMu sync.Mutex

	mu       sync.Mutex
	gen      uint64
	folder   types.FileID
	entries  []types.Entry
	total    int64
	complete bool
	fetched  bool
	nextPage int
}

// New creates a cursor positioned at the root with nothing fetched.
func New(lister Lister, opts Options) *Cursor {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &Cursor{
		lister:     lister,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		sleep:      opts.Sleep,
		onThrottle: opts.OnThrottle,
		folder:     types.RootID,
		nextPage:   1,
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

// Reset discards the accumulated listing and points the cursor at folder.
func (c *Cursor) Reset(folder types.FileID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked(folder)
}

func (c *Cursor) resetLocked(folder types.FileID) {
	c.gen++
	c.folder = folder
	c.entries = nil
	c.total = 0
	c.complete = false
	c.fetched = false
	c.nextPage = 1
}

// Fetch retrieves the next pages of folder. Without ForceAll at most
// PagesPerFetch pages are requested and the cursor remembers where it
// stopped. The newly fetched entries are returned; on error nothing is
// retained and api.StatusCode(err) gives the vendor code (-1 for transport
// failures).
func (c *Cursor) Fetch(ctx context.Context, folder types.FileID, opts FetchOptions) ([]types.Entry, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Transient {
		entries, _, _, err := c.fetchPages(ctx, folder, 1, 0, opts)
		return entries, err
	}

	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	c.mu.Lock()
	if folder != c.folder {
		c.resetLocked(folder)
	}
	if c.fetched && c.complete && !opts.ForceAll {
		c.mu.Unlock()
		return nil, nil
	}
	page, have, gen := c.nextPage, int64(len(c.entries)), c.gen
	c.mu.Unlock()

	if opts.ForceAll {
		page, have = 1, 0
	}

	fresh, total, nextPage, err := c.fetchPages(ctx, folder, page, have, opts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// A Reset while the pages were in flight wins over them.
	if c.gen != gen {
		c.logger.Debug("Discarding listing for a folder that is no longer current",
			zap.Int64("folder_id", int64(folder)))
		return fresh, nil
	}

	if opts.ForceAll {
		c.entries = append([]types.Entry(nil), fresh...)
	} else {
		c.entries = append(c.entries, fresh...)
	}
	c.total = total
	c.complete = int64(len(c.entries)) >= total
	c.fetched = true
	c.nextPage = nextPage

	if !c.complete {
		c.logger.Warn("Folder listing incomplete",
			zap.Int64("folder_id", int64(folder)),
			zap.Int("have", len(c.entries)),
			zap.Int64("total", total))
	}
	return fresh, nil
}

func (c *Cursor) fetchPages(ctx context.Context, folder types.FileID, page int, have int64, opts FetchOptions) ([]types.Entry, int64, int, error) {
	var fresh []types.Entry
	total := int64(-1)
	pages := 0

	for (total == -1 || have < total) && (pages < PagesPerFetch || opts.ForceAll) {
		p, err := c.lister.ListPage(ctx, folder, page, opts.PageSize)
		if err != nil {
			c.logger.Error("Failed to list folder",
				zap.Int64("folder_id", int64(folder)),
				zap.Int("page", page),
				zap.Int("code", api.StatusCode(err)),
				zap.Error(err))
			return nil, 0, 0, err
		}
		c.metrics.ListPage()

		fresh = append(fresh, p.Entries...)
		total = p.Total
		have += int64(len(p.Entries))
		page++
		pages++

		// A short server total would otherwise loop forever.
		if len(p.Entries) == 0 {
			break
		}

		if pages%ThrottleEvery == 0 && have < total {
			c.logger.Warn("Folder has more entries than expected, pausing",
				zap.Int64("folder_id", int64(folder)),
				zap.Int64("have", have),
				zap.Int64("total", total),
				zap.Duration("delay", ThrottleDelay))
			c.metrics.ThrottlePause()
			if c.onThrottle != nil {
				c.onThrottle(have, total)
			}
			if err := c.sleep(ctx, ThrottleDelay); err != nil {
				return nil, 0, 0, err
			}
		}
	}

	if total < 0 {
		total = 0
	}
	return fresh, total, page, nil
}

// FetchAll lists every entry of folder without touching the cursor.
func (c *Cursor) FetchAll(ctx context.Context, folder types.FileID) ([]types.Entry, error) {
	return c.Fetch(ctx, folder, FetchOptions{ForceAll: true, Transient: true})
}

// Folder returns the folder the cursor is positioned at.
func (c *Cursor) Folder() types.FileID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.folder
}

// Entries returns a copy of the accumulated entries.
func (c *Cursor) Entries() []types.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Entry(nil), c.entries...)
}

// Entry returns the entry at index i of the accumulated list.
func (c *Cursor) Entry(i int) (types.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.entries) {
		return types.Entry{}, types.InvalidOperation("index %d out of range [0,%d)", i, len(c.entries))
	}
	return c.entries[i], nil
}

// Len returns the number of accumulated entries.
func (c *Cursor) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Total returns the server-reported entry count of the folder.
func (c *Cursor) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// IsComplete reports whether every entry of the folder has been fetched.
func (c *Cursor) IsComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.complete
}
