package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stock-dashboard/internal/session"
)

func TestSignOut_End(t *testing.T) {
	p := &fakeProvider{valid: "good", deleteErr: errors.New("session already deleted")}
	reg := session.NewRegistry(func(ctx context.Context, secret string) (*session.Identity, error) {
		return p.CurrentIdentity(ctx, secret)
	}, session.RegistryConfig{})
	defer reg.CloseAll()

	tab, _ := reg.Open("", "good", "/stocks/AAPL", nil)
	tab.Refresher.Mount(tab.Context())
	if tab.Store.Read().Identity == nil {
		t.Fatal("tab not signed in before sign-out")
	}

	s := NewSignOut(p, testCookies, reg, nil)
	rec := httptest.NewRecorder()
	s.End(rec, requestWithSecret("/auth/logout", "good"))

	if len(p.deleted) != 1 || p.deleted[0] != "good" {
		t.Errorf("deleted = %v", p.deleted)
	}
	cleared := map[string]bool{}
	for _, ck := range rec.Result().Cookies() {
		cleared[ck.Name] = ck.MaxAge < 0
	}
	if !cleared["a_session_proj"] || !cleared["a_session_proj_legacy"] {
		t.Errorf("cookies cleared = %v", cleared)
	}

	deadline := time.Now().Add(time.Second)
	for tab.Store.Read().Status() != session.StatusUnauthenticated {
		if time.Now().After(deadline) {
			t.Fatalf("tab state = %+v after sign-out", tab.Store.Read())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSignOut_AlreadySignedOut(t *testing.T) {
	p := &fakeProvider{valid: "good"}
	s := NewSignOut(p, testCookies, nil, nil)

	rec := httptest.NewRecorder()
	s.End(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	s.End(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	if len(p.deleted) != 0 {
		t.Errorf("provider called without a session: %v", p.deleted)
	}
}
