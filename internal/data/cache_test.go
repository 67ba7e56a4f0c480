package data

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *ResponseCache {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewResponseCache(db, nil)
}

func countingServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func get(t *testing.T, client *http.Client, addr string) string {
	t.Helper()
	resp, err := client.Get(addr)
	if err != nil {
		t.Fatalf("GET %s: %v", addr, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func TestResponseCache_HitAndExpiry(t *testing.T) {
	cache := openTestDB(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	srv, hits := countingServer(t, http.StatusOK, `{"c":1}`)
	client := &http.Client{Transport: cache.Transport(nil, FixedTTL(time.Minute))}

	if got := get(t, client, srv.URL+"/quote?symbol=AAPL"); got != `{"c":1}` {
		t.Fatalf("first body = %q", got)
	}
	if got := get(t, client, srv.URL+"/quote?symbol=AAPL"); got != `{"c":1}` {
		t.Fatalf("cached body = %q", got)
	}
	if hits.Load() != 1 {
		t.Errorf("upstream hits = %d, want 1", hits.Load())
	}

	get(t, client, srv.URL+"/quote?symbol=MSFT")
	if hits.Load() != 2 {
		t.Errorf("different URL should miss: hits = %d", hits.Load())
	}

	now = now.Add(2 * time.Minute)
	get(t, client, srv.URL+"/quote?symbol=AAPL")
	if hits.Load() != 3 {
		t.Errorf("expired entry should miss: hits = %d", hits.Load())
	}

	n, err := cache.Purge(context.Background())
	if err != nil || n != 1 {
		t.Errorf("Purge() = %d, %v; want 1 expired entry (MSFT)", n, err)
	}
}

func TestResponseCache_SkipsErrorsAndZeroTTL(t *testing.T) {
	cache := openTestDB(t)

	srv, hits := countingServer(t, http.StatusTooManyRequests, `{"error":"limit"}`)
	client := &http.Client{Transport: cache.Transport(nil, FixedTTL(time.Minute))}
	get(t, client, srv.URL+"/quote")
	get(t, client, srv.URL+"/quote")
	if hits.Load() != 2 {
		t.Errorf("error responses cached: hits = %d", hits.Load())
	}

	ok, okHits := countingServer(t, http.StatusOK, `{}`)
	uncached := &http.Client{Transport: cache.Transport(nil, FixedTTL(0))}
	get(t, uncached, ok.URL+"/x")
	get(t, uncached, ok.URL+"/x")
	if okHits.Load() != 2 {
		t.Errorf("zero TTL cached: hits = %d", okHits.Load())
	}
}

func TestFinnhubTTL(t *testing.T) {
	tests := []struct {
		path string
		want time.Duration
	}{
		{"/api/v1/quote", time.Minute},
		{"/api/v1/stock/profile2", time.Hour},
		{"/api/v1/stock/metric", time.Hour},
		{"/api/v1/company-news", 30 * time.Minute},
		{"/api/v1/news", 30 * time.Minute},
		{"/api/v1/stock/candle", 5 * time.Minute},
		{"/api/v1/search", 0},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "https://finnhub.io"+tt.path, nil)
		if got := FinnhubTTL(req); got != tt.want {
			t.Errorf("FinnhubTTL(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
