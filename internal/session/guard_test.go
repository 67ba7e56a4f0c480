package session

import "testing"

func TestGuard_Decide(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  Render
	}{
		{name: "loading renders fallback", state: State{Loading: true}, want: RenderFallback},
		{name: "loading with stale identity renders fallback", state: State{Loading: true, Identity: &Identity{ID: "u1"}}, want: RenderFallback},
		{name: "unauthenticated renders nothing", state: State{}, want: RenderNothing},
		{name: "authenticated renders children", state: State{Identity: &Identity{ID: "u1"}}, want: RenderChildren},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(nil)
			store.write(tt.state)
			g := NewGuard(store, func(string) {})
			defer g.Close()
			if got := g.Decide(); got != tt.want {
				t.Errorf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGuard_RedirectOncePerTransition(t *testing.T) {
	store := NewStore(nil)

	var redirects []string
	navigate := func(target string) { redirects = append(redirects, target) }

	g := NewGuard(store, navigate)
	if len(redirects) != 0 {
		t.Fatalf("redirected while loading: %v", redirects)
	}

	store.write(State{})
	if len(redirects) != 1 || redirects[0] != AuthRequiredTarget {
		t.Fatalf("redirects = %v, want one to %s", redirects, AuthRequiredTarget)
	}

	// a second authoritative "absent" write is not a new transition
	store.write(State{})
	if len(redirects) != 1 {
		t.Errorf("redirects after repeated unauthenticated write = %d, want 1", len(redirects))
	}

	// re-mounting on an unchanged state must not fire again
	g.Close()
	g = NewGuard(store, navigate)
	if len(redirects) != 1 {
		t.Errorf("redirects after remount = %d, want 1", len(redirects))
	}

	// loading then unauthenticated again is a new transition
	store.write(State{Loading: true})
	store.write(State{})
	if len(redirects) != 2 {
		t.Errorf("redirects after new transition = %d, want 2", len(redirects))
	}
	g.Close()

	store.write(State{Loading: true})
	store.write(State{})
	if len(redirects) != 2 {
		t.Errorf("closed guard still redirected: %v", redirects)
	}
}

func TestGuard_TwoGuardsShareOneRedirect(t *testing.T) {
	store := NewStore(nil)

	var redirects int
	a := NewGuard(store, func(string) { redirects++ })
	defer a.Close()
	b := NewGuard(store, func(string) { redirects++ })
	defer b.Close()

	store.write(State{})

	if redirects != 1 {
		t.Errorf("redirects = %d, want 1", redirects)
	}
}
