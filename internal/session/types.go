package session

import (
	"context"
	"errors"
	"maps"
)

var (
	// ErrNoSession is returned by identity readers when no session secret is available
	ErrNoSession = errors.New("no session")
)

// Identity is the signed-in user as known to the client
type Identity struct {
	ID    string         `json:"id"`
	Email string         `json:"email"`
	Name  string         `json:"name,omitempty"`
	Prefs map[string]any `json:"prefs,omitempty"`
}

func (i *Identity) clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	if i.Prefs != nil {
		c.Prefs = maps.Clone(i.Prefs)
	}
	return &c
}

// Status is the guard-level view of a State
type Status string

const (
	StatusLoading         Status = "loading"
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticated   Status = "authenticated"
)

// State is the observable session state of one tab.
// Identity == nil while Loading is true is not authoritative.
type State struct {
	Identity *Identity `json:"identity"`
	Loading  bool      `json:"loading"`
	// Version increases on every write
	Version uint64 `json:"version"`
	// Since is the Version at which the current Status began
	Since uint64 `json:"since"`
}

// Status derives the guard state
func (s State) Status() Status {
	switch {
	case s.Loading:
		return StatusLoading
	case s.Identity == nil:
		return StatusUnauthenticated
	default:
		return StatusAuthenticated
	}
}

// Event is an environmental trigger reported by a tab
type Event string

const (
	EventMount      Event = "mount"
	EventFocus      Event = "focus"
	EventVisibility Event = "visibility"
	EventPopState   Event = "popstate"
	EventStorage    Event = "storage"
)

// ParseEvent validates a trigger name received from a tab. Mount is not accepted.
func ParseEvent(name string) (Event, bool) {
	switch ev := Event(name); ev {
	case EventFocus, EventVisibility, EventPopState, EventStorage:
		return ev, true
	}
	return "", false
}

// IdentityReader asks the identity provider for the current identity
type IdentityReader interface {
	CurrentIdentity(ctx context.Context) (*Identity, error)
}

// IdentityReaderFunc adapts a function to IdentityReader
type IdentityReaderFunc func(ctx context.Context) (*Identity, error)

func (f IdentityReaderFunc) CurrentIdentity(ctx context.Context) (*Identity, error) {
	return f(ctx)
}
