package data

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"time"
)

// TTLFunc returns how long a response to req may be served from cache.
// Zero disables caching for the request.
type TTLFunc func(req *http.Request) time.Duration

// FixedTTL caches every request for d
func FixedTTL(d time.Duration) TTLFunc {
	return func(*http.Request) time.Duration { return d }
}

// ResponseCache stores upstream HTTP responses in SQLite
type ResponseCache struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewResponseCache 创建响应缓存
func NewResponseCache(db *sql.DB, logger *slog.Logger) *ResponseCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponseCache{db: db, logger: logger, now: time.Now}
}

// Transport wraps base with the cache
func (c *ResponseCache) Transport(base http.RoundTripper, ttl TTLFunc) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &cachingTransport{cache: c, base: base, ttl: ttl}
}

// Purge drops expired entries
func (c *ResponseCache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, "DELETE FROM http_cache WHERE expires_at <= ?", c.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge http cache: %w", err)
	}
	return res.RowsAffected()
}

// StartPurge purges expired entries every interval until ctx is done
func (c *ResponseCache) StartPurge(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := c.Purge(ctx); err != nil {
					c.logger.Warn("cache purge failed", "error", err)
				} else if n > 0 {
					c.logger.Debug("cache purged", "entries", n)
				}
			}
		}
	}()
}

func (c *ResponseCache) get(ctx context.Context, key string, req *http.Request) (*http.Response, error) {
	var content []byte
	err := c.db.QueryRowContext(ctx,
		"SELECT response FROM http_cache WHERE key = ? AND expires_at > ?", key, c.now().Unix(),
	).Scan(&content)
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(content)), req)
}

func (c *ResponseCache) put(ctx context.Context, key string, resp *http.Response, ttl time.Duration) error {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO http_cache (key, response, expires_at) VALUES (?, ?, ?)",
		key, content, c.now().Add(ttl).Unix(),
	)
	return err
}

// cachingTransport implements http.RoundTripper on top of ResponseCache
type cachingTransport struct {
	cache *ResponseCache
	base  http.RoundTripper
	ttl   TTLFunc
}

func (t *cachingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ttl := t.ttl(req)
	if ttl <= 0 || req.Method != http.MethodGet {
		return t.base.RoundTrip(req)
	}

	key := fmt.Sprintf("%x", sha1.Sum([]byte(req.Method+" "+req.URL.String())))
	cached, err := t.cache.get(req.Context(), key, req)
	if err == nil { // Cache hit
		return cached, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		t.cache.logger.Debug("cache read failed (ignored)", "error", err)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	t.cache.logger.Debug("upstream request", "method", req.Method, "host", req.URL.Host, "path", req.URL.Path, "status", resp.StatusCode)
	if resp.StatusCode >= 300 {
		return resp, nil
	}

	// otherwise attempt to store it in cache
	if err := t.cache.put(req.Context(), key, resp, ttl); err != nil {
		t.cache.logger.Warn("cache write failed (ignored)", "error", err)
	}
	return resp, nil
}
