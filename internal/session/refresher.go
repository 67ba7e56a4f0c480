package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMaxRetries bounds the post-OAuth race retries
	DefaultMaxRetries = 3
	// DefaultRetryDelay is the fixed delay between race retries
	DefaultRetryDelay = 500 * time.Millisecond
)

// RetryLimit returns *n, or DefaultMaxRetries when n is unset.
// A zero limit disables the race retries.
func RetryLimit(n *int) int {
	if n == nil {
		return DefaultMaxRetries
	}
	return *n
}

// Outcome classifies the end of one refresh attempt
type Outcome string

const (
	OutcomeAuthenticated   Outcome = "authenticated"
	OutcomeRetry           Outcome = "retry"
	OutcomeUnauthenticated Outcome = "unauthenticated"
)

// Scheduler runs f once after d. The returned function cancels f if it has
// not started yet and reports whether it did so.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Option configures a Refresher
type Option func(*Refresher)

// WithLandingView sets the predicate telling whether the tab is currently on a
// post-OAuth landing view, the only place race retries are allowed.
func WithLandingView(fn func() bool) Option {
	return func(r *Refresher) { r.isLanding = fn }
}

// WithScheduler replaces the timer used for retries
func WithScheduler(s Scheduler) Option {
	return func(r *Refresher) { r.scheduler = s }
}

// WithRetry overrides the retry bound and delay
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(r *Refresher) {
		r.maxRetries = maxRetries
		r.retryDelay = delay
	}
}

// WithLogger sets the logger used for swallowed provider failures
func WithLogger(l *slog.Logger) Option {
	return func(r *Refresher) { r.logger = l }
}

// WithOutcomeHook registers a callback invoked once per finished attempt
func WithOutcomeHook(fn func(Outcome, int)) Option {
	return func(r *Refresher) { r.onOutcome = fn }
}

// Refresher reconciles a Store with the identity provider. It is the only
// writer of its Store.
type Refresher struct {
	store      *Store
	reader     IdentityReader
	isLanding  func() bool
	scheduler  Scheduler
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
	onOutcome  func(Outcome, int)

	sf singleflight.Group

	mu        sync.Mutex
	pending   map[uint64]func() bool
	nextTimer uint64
	stopped   bool
	// queued is the context of a cycle requested while another was loading
	queued context.Context
}

// NewRefresher creates a Refresher writing to store
func NewRefresher(store *Store, reader IdentityReader, opts ...Option) *Refresher {
	r := &Refresher{
		store:      store,
		reader:     reader,
		isLanding:  func() bool { return false },
		scheduler:  timeScheduler{},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		logger:     slog.Default(),
		pending:    make(map[uint64]func() bool),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Mount runs the unconditional first refresh cycle
func (r *Refresher) Mount(ctx context.Context) {
	r.refresh(ctx, 0)
}

// Refresh starts a fresh cycle. When a cycle is already loading the new one
// is queued and runs right after the current cycle writes its result, so a
// read that began before a sign-out cannot have the last word.
func (r *Refresher) Refresh(ctx context.Context) {
	r.mu.Lock()
	if r.store.Read().Loading {
		r.queued = ctx
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	r.refresh(ctx, 0)
}

// Trigger handles an environmental event. The cycle only runs when no refresh
// is loading; the return value reports whether it ran.
func (r *Refresher) Trigger(ctx context.Context, ev Event) bool {
	if ev == EventMount {
		r.Mount(ctx)
		return true
	}
	if r.store.Read().Loading {
		r.logger.Debug("session refresh skipped, already loading", "event", ev)
		return false
	}
	r.refresh(ctx, 0)
	return true
}

// Resolve runs a cycle and waits for its authoritative state, or for ctx to
// end, in which case the current (possibly loading) state is returned with
// the context error.
func (r *Refresher) Resolve(ctx context.Context) (State, error) {
	done := make(chan State, 1)
	unsubscribe := r.store.Subscribe(func(st State) {
		if st.Loading {
			return
		}
		select {
		case done <- st:
		default:
		}
	})
	defer unsubscribe()

	r.refresh(ctx, 0)
	if st := r.store.Read(); !st.Loading {
		return st, nil
	}

	select {
	case st := <-done:
		return st, nil
	case <-ctx.Done():
		return r.store.Read(), ctx.Err()
	}
}

// Stop cancels pending retries. Later failures resolve immediately.
func (r *Refresher) Stop() {
	r.mu.Lock()
	r.stopped = true
	pending := r.pending
	r.pending = make(map[uint64]func() bool)
	r.mu.Unlock()

	for _, stop := range pending {
		if stop != nil {
			stop()
		}
	}
}

func (r *Refresher) refresh(ctx context.Context, attempt int) {
	if attempt == 0 {
		r.store.update(func(cur State) (State, bool) {
			if cur.Loading {
				return cur, false
			}
			return State{Identity: cur.Identity, Loading: true}, true
		})
	}

	identity, err := r.read(ctx)
	if err == nil {
		r.store.write(State{Identity: identity})
		r.report(OutcomeAuthenticated, attempt)
		r.runQueued()
		return
	}

	if attempt < r.maxRetries && ctx.Err() == nil && r.isLanding() {
		next := attempt + 1
		scheduled := r.schedule(func() {
			if ctx.Err() != nil {
				return
			}
			r.refresh(ctx, next)
		})
		if scheduled {
			r.logger.Debug("session refresh failed, retrying", "attempt", attempt, "error", err)
			r.report(OutcomeRetry, attempt)
			return
		}
	}

	r.logger.Debug("session refresh failed", "attempt", attempt, "error", err)
	r.store.write(State{})
	r.report(OutcomeUnauthenticated, attempt)
	r.runQueued()
}

// runQueued starts the cycle requested while the one that just resolved was loading
func (r *Refresher) runQueued() {
	r.mu.Lock()
	ctx := r.queued
	r.queued = nil
	r.mu.Unlock()
	if ctx != nil && ctx.Err() == nil {
		r.refresh(ctx, 0)
	}
}

func (r *Refresher) read(ctx context.Context) (*Identity, error) {
	v, err, _ := r.sf.Do("current", func() (any, error) {
		return r.reader.CurrentIdentity(ctx)
	})
	if err != nil {
		return nil, err
	}
	identity, _ := v.(*Identity)
	if identity == nil {
		return nil, ErrNoSession
	}
	return identity, nil
}

func (r *Refresher) schedule(f func()) bool {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return false
	}
	r.nextTimer++
	key := r.nextTimer
	r.pending[key] = nil
	r.mu.Unlock()

	stop := r.scheduler.AfterFunc(r.retryDelay, func() {
		r.mu.Lock()
		_, ok := r.pending[key]
		delete(r.pending, key)
		r.mu.Unlock()
		if ok {
			f()
		}
	})

	r.mu.Lock()
	if _, ok := r.pending[key]; ok {
		r.pending[key] = stop
	}
	r.mu.Unlock()
	return true
}

func (r *Refresher) report(o Outcome, attempt int) {
	if r.onOutcome != nil {
		r.onOutcome(o, attempt)
	}
}
