package session

// AuthRequiredTarget is where a guard sends unauthenticated visitors
const AuthRequiredTarget = "/?error=auth_required"

// Render tells a guarded view what to show
type Render int

const (
	// RenderFallback shows the loading placeholder
	RenderFallback Render = iota
	// RenderNothing shows nothing while a redirect is pending
	RenderNothing
	// RenderChildren shows the protected content
	RenderChildren
)

func (r Render) String() string {
	switch r {
	case RenderFallback:
		return "fallback"
	case RenderNothing:
		return "nothing"
	case RenderChildren:
		return "children"
	}
	return "unknown"
}

// Guard gates a protected view on a Store. It holds no state besides its
// subscription; the redirect fires once per transition into the
// unauthenticated state, even across guards mounted on the same store.
type Guard struct {
	store       *Store
	navigate    func(target string)
	unsubscribe func()
}

// NewGuard mounts a guard on store. navigate performs the client-side redirect.
func NewGuard(store *Store, navigate func(target string)) *Guard {
	g := &Guard{store: store, navigate: navigate}
	g.unsubscribe = store.Subscribe(g.observe)
	g.observe(store.Read())
	return g
}

// Decide returns what the guarded view renders for the current state
func (g *Guard) Decide() Render {
	return decide(g.store.Read())
}

// Close unmounts the guard
func (g *Guard) Close() {
	g.unsubscribe()
}

func (g *Guard) observe(st State) {
	if st.Status() != StatusUnauthenticated {
		return
	}
	if g.store.claimRedirect(st.Since) {
		g.navigate(AuthRequiredTarget)
	}
}

func decide(st State) Render {
	switch st.Status() {
	case StatusLoading:
		return RenderFallback
	case StatusUnauthenticated:
		return RenderNothing
	default:
		return RenderChildren
	}
}
