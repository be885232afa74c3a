// Package client wires the vendor API, the navigator and the transfer
// engines into one signed-in session.
package client

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"pan123/pkg/api"
	"pan123/pkg/auth"
	"pan123/pkg/config"
	"pan123/pkg/device"
	"pan123/pkg/download"
	"pan123/pkg/listing"
	"pan123/pkg/metrics"
	"pan123/pkg/navigator"
	"pan123/pkg/shared"
	"pan123/pkg/transfer"
	"pan123/pkg/types"
	"pan123/pkg/upload"
)

// tokenSkew signs in slightly before the token actually expires.
const tokenSkew = time.Minute

// Options configures a Session. Only Store is required.
type Options struct {
	Store config.Store
	// BaseURL overrides the configured service root.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	Rand       *rand.Rand
	Now        func() time.Time

	Confirm    download.OverwriteConfirmer
	OnConflict upload.ConflictResolver
	OnThrottle func(have, total int64)
	// Sleep replaces real waits in listings and uploads.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Session is a signed-in view of one account.
type Session struct {
	store   config.Store
	api     *api.Client
	cursor  *listing.Cursor
	nav     *navigator.Navigator
	uploads *upload.Engine
	loads   *download.Engine
	pool    *transfer.Pool
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	record   *config.Record
	recycled []types.Entry
}

// New loads the config record, settles the device identity and builds the
// session. Nothing is sent until Open or Login.
func New(opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("config store is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	rec, err := opts.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	identity, changed := device.Resolve(rec.DeviceType, rec.OSVersion, opts.Rand)
	if changed {
		rec.DeviceType = identity.Model
		rec.OSVersion = identity.OSVersion
		if err := opts.Store.Save(rec); err != nil {
			return nil, fmt.Errorf("failed to save device identity: %w", err)
		}
		opts.Logger.Info("Generated device identity",
			zap.String("device_type", identity.Model),
			zap.String("os_version", identity.OSVersion))
	}

	settings := rec.Settings
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = settings.BaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = shared.NewHTTPClient(settings.MetadataTimeout)
	}

	client := api.New(api.Options{
		BaseURL:         baseURL,
		Identity:        identity,
		Authorization:   rec.Authorization,
		MetadataTimeout: settings.MetadataTimeout,
		PartTimeout:     settings.PartTimeout,
		HTTPClient:      httpClient,
		Metrics:         opts.Metrics,
		Logger:          opts.Logger.Named("api"),
	})

	cursor := listing.New(client, listing.Options{
		Logger:     opts.Logger.Named("listing"),
		Metrics:    opts.Metrics,
		Sleep:      opts.Sleep,
		OnThrottle: opts.OnThrottle,
	})

	return &Session{
		store:  opts.Store,
		api:    client,
		cursor: cursor,
		nav:    navigator.New(cursor, opts.Logger.Named("navigator")),
		uploads: upload.New(client, upload.Options{
			Concurrency: settings.UploadConcurrency,
			OnConflict:  opts.OnConflict,
			Logger:      opts.Logger.Named("upload"),
			Metrics:     opts.Metrics,
			Sleep:       opts.Sleep,
		}),
		loads: download.New(client, download.Options{
			HTTPClient:   client.HTTPClient(),
			Threads:      settings.DownloadThreads,
			Cutoff:       settings.MultiThreadCutoff,
			ProbeTimeout: settings.MetadataTimeout,
			Confirm:      opts.Confirm,
			Lister:       cursor,
			Logger:       opts.Logger.Named("download"),
			Metrics:      opts.Metrics,
		}),
		pool:   transfer.NewPool(settings.WorkerPoolSize, opts.Logger.Named("pool"), opts.Metrics),
		logger: opts.Logger,
		now:    opts.Now,
		record: rec,
	}, nil
}

// Open signs in when the stored token is missing or expired and lists the
// root. A token the server rejects is replaced by one fresh sign-in.
func (s *Session) Open(ctx context.Context) ([]types.Entry, error) {
	if auth.NeedsSignIn(s.api.Authorization(), s.now(), tokenSkew) {
		s.logger.Info("Signing in, no valid token stored")
		if err := s.SignIn(ctx); err != nil {
			return nil, err
		}
		return s.nav.ToRoot(ctx)
	}

	entries, err := s.nav.ToRoot(ctx)
	if err == nil || api.IsTransport(err) {
		return entries, err
	}

	s.logger.Info("Stored token rejected, signing in again", zap.Int("code", api.StatusCode(err)))
	if err := s.SignIn(ctx); err != nil {
		return nil, err
	}
	return s.nav.ToRoot(ctx)
}

// SignIn exchanges the stored credentials for a token and persists it.
func (s *Session) SignIn(ctx context.Context) error {
	s.mu.Lock()
	user, pass := s.record.UserName, s.record.PassWord
	s.mu.Unlock()
	if user == "" || pass == "" {
		return types.InvalidOperation("no credentials stored, run login first")
	}

	token, err := s.api.SignIn(ctx, user, pass)
	if err != nil {
		s.logger.Error("Sign-in failed", zap.Int("code", api.StatusCode(err)), zap.Error(err))
		return fmt.Errorf("sign in: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.Authorization = auth.BearerValue(token)
	if err := s.store.Save(s.record); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	s.logger.Info("Signed in", zap.String("user", user))
	return nil
}

// Login replaces the stored credentials and signs in with them. The old
// credentials are kept if the sign-in fails.
func (s *Session) Login(ctx context.Context, user, pass string) error {
	s.mu.Lock()
	oldUser, oldPass := s.record.UserName, s.record.PassWord
	s.record.UserName, s.record.PassWord = user, pass
	s.mu.Unlock()

	if err := s.SignIn(ctx); err != nil {
		s.mu.Lock()
		s.record.UserName, s.record.PassWord = oldUser, oldPass
		s.mu.Unlock()
		return err
	}
	return nil
}

// Record returns a copy of the persisted record.
func (s *Session) Record() config.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.record
}

func (s *Session) API() *api.Client                { return s.api }
func (s *Session) Navigator() *navigator.Navigator { return s.nav }
func (s *Session) Cursor() *listing.Cursor         { return s.cursor }
func (s *Session) Pool() *transfer.Pool            { return s.pool }

// Mkdir creates name in the current folder. Unless force is set, a folder
// of that name already in the listing is returned instead.
func (s *Session) Mkdir(ctx context.Context, name string, force bool) (types.FileID, error) {
	if name == "" {
		return 0, types.InvalidOperation("folder name is empty")
	}
	if !force {
		for _, e := range s.cursor.Entries() {
			if e.IsFolder() && e.Name == name {
				s.logger.Info("Folder already exists", zap.String("name", name), zap.Int64("file_id", int64(e.ID)))
				return e.ID, nil
			}
		}
	}

	parent := s.nav.Current().ID
	id, err := s.api.Mkdir(ctx, parent, name)
	if err != nil {
		return 0, fmt.Errorf("mkdir %s: %w", name, err)
	}
	s.logger.Info("Created folder", zap.String("name", name), zap.Int64("file_id", int64(id)))
	if _, err := s.nav.Refresh(ctx); err != nil {
		return id, err
	}
	return id, nil
}

// Trash moves entry i of the current listing to the recycle bin.
func (s *Session) Trash(ctx context.Context, i int) (types.Entry, error) {
	e, err := s.cursor.Entry(i)
	if err != nil {
		return types.Entry{}, err
	}
	if err := s.api.Trash(ctx, e, false); err != nil {
		return e, fmt.Errorf("trash %s: %w", e.Name, err)
	}
	s.logger.Info("Moved to recycle bin", zap.String("name", e.Name), zap.Int64("file_id", int64(e.ID)))
	_, err = s.nav.Refresh(ctx)
	return e, err
}

// Recycle lists the recycle bin and remembers it for RestoreIndex.
func (s *Session) Recycle(ctx context.Context) ([]types.Entry, error) {
	entries, err := s.api.Recycle(ctx)
	if err != nil {
		return nil, fmt.Errorf("recycle bin: %w", err)
	}
	s.mu.Lock()
	s.recycled = entries
	s.mu.Unlock()
	return entries, nil
}

// RestoreIndex restores entry i of the last recycle bin listing.
func (s *Session) RestoreIndex(ctx context.Context, i int) (types.Entry, error) {
	s.mu.Lock()
	if i < 0 || i >= len(s.recycled) {
		n := len(s.recycled)
		s.mu.Unlock()
		return types.Entry{}, types.InvalidOperation("index %d out of range [0,%d)", i, n)
	}
	e := s.recycled[i]
	s.mu.Unlock()

	if err := s.Restore(ctx, e); err != nil {
		return e, err
	}
	return e, nil
}

// Restore brings e back out of the recycle bin.
func (s *Session) Restore(ctx context.Context, e types.Entry) error {
	if err := s.api.Trash(ctx, e, true); err != nil {
		return fmt.Errorf("restore %s: %w", e.Name, err)
	}
	s.logger.Info("Restored", zap.String("name", e.Name), zap.Int64("file_id", int64(e.ID)))
	return nil
}

// Share creates a share of the listed entries at indices and returns its
// public URL.
func (s *Session) Share(ctx context.Context, indices []int, password string) (string, error) {
	if len(indices) == 0 {
		return "", types.InvalidOperation("nothing selected")
	}
	ids := make([]types.FileID, 0, len(indices))
	for _, i := range indices {
		e, err := s.cursor.Entry(i)
		if err != nil {
			return "", err
		}
		ids = append(ids, e.ID)
	}

	key, err := s.api.CreateShare(ctx, ids, password)
	if err != nil {
		return "", fmt.Errorf("share: %w", err)
	}
	return s.api.ShareURL(key), nil
}

// Link resolves entry i to its signed download URL without fetching it.
func (s *Session) Link(ctx context.Context, i int) (string, error) {
	e, err := s.cursor.Entry(i)
	if err != nil {
		return "", err
	}
	u, err := s.api.ResolveDownloadURL(ctx, e)
	if err != nil {
		return "", fmt.Errorf("link %s: %w", e.Name, err)
	}
	return u, nil
}

// Upload queues an upload of path into the current folder.
func (s *Session) Upload(ctx context.Context, path string, policy types.DuplicatePolicy, h transfer.Handlers) *transfer.Task {
	req := upload.Request{Path: path, Parent: s.nav.Current().ID, Duplicate: policy}
	return s.pool.Submit(ctx, "upload "+path, s.uploads.Func(req), h)
}

// DownloadOptions tunes Download.
type DownloadOptions struct {
	// Dir defaults to the configured download path.
	Dir       string
	Overwrite bool
	// Recursive mirrors folders file by file instead of fetching a zip.
	Recursive bool
}

// Download queues a download of entry i of the current listing. The index
// is checked before anything is queued.
func (s *Session) Download(ctx context.Context, i int, opts DownloadOptions, h transfer.Handlers) (*transfer.Task, error) {
	e, err := s.cursor.Entry(i)
	if err != nil {
		return nil, err
	}
	return s.DownloadEntry(ctx, e, opts, h), nil
}

// DownloadEntry queues a download of e.
func (s *Session) DownloadEntry(ctx context.Context, e types.Entry, opts DownloadOptions, h transfer.Handlers) *transfer.Task {
	if opts.Dir == "" {
		s.mu.Lock()
		opts.Dir = s.record.Settings.DefaultDownloadPath
		s.mu.Unlock()
	}
	req := download.Request{Entry: e, Dir: opts.Dir, Overwrite: opts.Overwrite}
	if e.IsFolder() && opts.Recursive {
		return s.pool.Submit(ctx, "download "+e.Name+"/", s.loads.FolderFunc(req), h)
	}
	return s.pool.Submit(ctx, "download "+e.Name, s.loads.Func(req), h)
}

// Close cancels outstanding transfers and waits for them to stop.
func (s *Session) Close() {
	s.pool.CancelAll()
	s.pool.Wait()
}
