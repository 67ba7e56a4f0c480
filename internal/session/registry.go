package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultLandingViews are the post-OAuth landing routes
var DefaultLandingViews = LandingViews{"/dashboard"}

// LandingViews lists the routes where race retries may run
type LandingViews []string

// Contains reports whether path is one of the landing views
func (l LandingViews) Contains(path string) bool {
	path = strings.TrimSuffix(path, "/")
	for _, v := range l {
		if strings.TrimSuffix(v, "/") == path {
			return true
		}
	}
	return false
}

// SecretReader resolves the identity behind a session secret
type SecretReader func(ctx context.Context, secret string) (*Identity, error)

// Tab is one attached browser tab with its own store and refresher
type Tab struct {
	ID        string
	Store     *Store
	Refresher *Refresher

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	view     string
	secret   string
	streams  int
	lastSeen time.Time
}

// Context is canceled when the tab is closed
func (t *Tab) Context() context.Context { return t.ctx }

// SetView records the route the tab currently shows
func (t *Tab) SetView(view string) {
	t.mu.Lock()
	t.view = view
	t.lastSeen = time.Now()
	t.mu.Unlock()
}

// View returns the route the tab currently shows
func (t *Tab) View() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view
}

// SetSecret records the session secret the tab's cookies currently carry
func (t *Tab) SetSecret(secret string) {
	t.mu.Lock()
	t.secret = secret
	t.lastSeen = time.Now()
	t.mu.Unlock()
}

// Secret returns the session secret last seen for the tab
func (t *Tab) Secret() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.secret
}

// Attach marks an open event stream; the returned function detaches it
func (t *Tab) Attach() func() {
	t.mu.Lock()
	t.streams++
	t.lastSeen = time.Now()
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			t.streams--
			t.lastSeen = time.Now()
			t.mu.Unlock()
		})
	}
}

func (t *Tab) idleSince(now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.streams > 0 {
		return 0
	}
	return now.Sub(t.lastSeen)
}

func (t *Tab) read(ctx context.Context, read SecretReader) (*Identity, error) {
	secret := t.Secret()
	if secret == "" {
		return nil, ErrNoSession
	}
	return read(ctx, secret)
}

// RegistryConfig configures the tabs created by a Registry
type RegistryConfig struct {
	LandingViews LandingViews
	MaxRetries   *int // nil uses DefaultMaxRetries
	RetryDelay   time.Duration
	IdleTimeout  time.Duration
	Logger       *slog.Logger
	OutcomeHook  func(Outcome, int)
}

// Registry keeps the synchronizer of every attached tab
type Registry struct {
	cfg  RegistryConfig
	read SecretReader

	mu   sync.RWMutex
	tabs map[string]*Tab
}

// NewRegistry creates a registry resolving identities through read
func NewRegistry(read SecretReader, cfg RegistryConfig) *Registry {
	if len(cfg.LandingViews) == 0 {
		cfg.LandingViews = DefaultLandingViews
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 10 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{
		cfg:  cfg,
		read: read,
		tabs: make(map[string]*Tab),
	}
}

// Open returns the tab with the given id, creating it (seeded with seed) when
// it does not exist. An empty id allocates a new one. created reports whether
// the caller must mount the refresher.
func (r *Registry) Open(id, secret, view string, seed *Identity) (tab *Tab, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id != "" {
		if t, ok := r.tabs[id]; ok {
			t.SetSecret(secret)
			t.SetView(view)
			return t, false
		}
	} else {
		id = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Tab{
		ID:       id,
		Store:    NewStore(seed),
		ctx:      ctx,
		cancel:   cancel,
		view:     view,
		secret:   secret,
		lastSeen: time.Now(),
	}
	reader := IdentityReaderFunc(func(ctx context.Context) (*Identity, error) {
		return t.read(ctx, r.read)
	})
	t.Refresher = NewRefresher(t.Store, reader,
		WithLandingView(func() bool { return r.cfg.LandingViews.Contains(t.View()) }),
		WithRetry(RetryLimit(r.cfg.MaxRetries), r.cfg.RetryDelay),
		WithLogger(r.cfg.Logger.With("tab", id)),
		WithOutcomeHook(r.cfg.OutcomeHook),
	)
	r.tabs[id] = t
	return t, true
}

// Get looks up an attached tab
func (r *Registry) Get(id string) (*Tab, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tabs[id]
	return t, ok
}

// Len returns the number of attached tabs
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tabs)
}

// Close detaches a tab and stops its pending retries
func (r *Registry) Close(id string) {
	r.mu.Lock()
	t, ok := r.tabs[id]
	delete(r.tabs, id)
	r.mu.Unlock()
	if ok {
		t.cancel()
		t.Refresher.Stop()
	}
}

// CloseAll detaches every tab
func (r *Registry) CloseAll() {
	r.mu.Lock()
	tabs := r.tabs
	r.tabs = make(map[string]*Tab)
	r.mu.Unlock()
	for _, t := range tabs {
		t.cancel()
		t.Refresher.Stop()
	}
}

// Signal forgets secret on every tab that carried it and delivers ev to
// them. It stands in for the browser storage event other tabs of the same
// browser would see after a sign-out. A tab that is loading gets a cycle
// queued behind the in-flight one instead of a skipped trigger. It returns
// the number of tabs notified.
func (r *Registry) Signal(secret string, ev Event) int {
	if secret == "" {
		return 0
	}
	r.mu.RLock()
	var targets []*Tab
	for _, t := range r.tabs {
		if t.Secret() == secret {
			targets = append(targets, t)
		}
	}
	r.mu.RUnlock()

	for _, t := range targets {
		t.SetSecret("")
		go func(t *Tab) {
			if !t.Refresher.Trigger(t.ctx, ev) {
				t.Refresher.Refresh(t.ctx)
			}
		}(t)
	}
	return len(targets)
}

// StartCleanup reaps idle tabs until ctx is done
func (r *Registry) StartCleanup(ctx context.Context) {
	interval := r.cfg.IdleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				r.reap(now)
			}
		}
	}()
}

func (r *Registry) reap(now time.Time) int {
	r.mu.RLock()
	var idle []string
	for id, t := range r.tabs {
		if t.idleSince(now) > r.cfg.IdleTimeout {
			idle = append(idle, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range idle {
		r.Close(id)
	}
	return len(idle)
}
