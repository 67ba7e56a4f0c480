package session

import (
	"sync"
	"sync/atomic"
)

// Listener receives every state transition of a Store
type Listener func(State)

type subscription struct {
	id       uint64
	listener Listener
}

// Store holds the authoritative session state of one tab and broadcasts
// transitions to its subscribers. Only the Refresher writes to it.
type Store struct {
	mu    sync.RWMutex
	state State

	// writeMu serializes write + notify so subscribers see transitions in order
	writeMu sync.Mutex

	subsMu sync.Mutex
	subs   []subscription
	nextID uint64

	// Since of the last unauthenticated state a guard redirected for
	redirected atomic.Uint64
}

// NewStore creates a store, optionally pre-seeded with a server-resolved identity.
// Without a seed the store starts loading.
func NewStore(initial *Identity) *Store {
	return &Store{
		state: State{
			Identity: initial.clone(),
			Loading:  initial == nil,
			Version:  1,
			Since:    1,
		},
	}
}

// Read returns the current state without blocking on refreshes
func (s *Store) Read() State {
	s.mu.RLock()
	st := s.state
	s.mu.RUnlock()
	st.Identity = st.Identity.clone()
	return st
}

// Subscribe registers a listener and returns its unsubscribe handle
func (s *Store) Subscribe(l Listener) func() {
	s.subsMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, listener: l})
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// write replaces the state and notifies subscribers in registration order
func (s *Store) write(next State) {
	s.update(func(State) (State, bool) { return next, true })
}

// update applies fn atomically with respect to other writes. Returning false
// from fn leaves the state untouched and notifies nobody.
func (s *Store) update(fn func(cur State) (State, bool)) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	prev := s.state
	next, ok := fn(prev)
	if !ok {
		s.mu.Unlock()
		return
	}
	next.Identity = next.Identity.clone()
	next.Version = prev.Version + 1
	next.Since = prev.Since
	if next.Status() != prev.Status() {
		next.Since = next.Version
	}
	s.state = next
	s.mu.Unlock()

	s.subsMu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()

	for _, sub := range subs {
		st := next
		st.Identity = next.Identity.clone()
		sub.listener(st)
	}
}

// claimRedirect reports whether the caller is the first to redirect for the
// unauthenticated state that began at version since.
func (s *Store) claimRedirect(since uint64) bool {
	for {
		last := s.redirected.Load()
		if last >= since {
			return false
		}
		if s.redirected.CompareAndSwap(last, since) {
			return true
		}
	}
}
