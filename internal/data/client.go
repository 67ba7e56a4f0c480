package data

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// finnhub 接口缓存时间（按路径前缀）
var finnhubTTL = map[string]time.Duration{
	"/quote":          60 * time.Second,
	"/stock/profile2": time.Hour,
	"/stock/metric":   time.Hour,
	"/company-news":   30 * time.Minute,
	"/news":           30 * time.Minute,
	"/stock/candle":   5 * time.Minute,
}

// aggregatorTTL 新闻聚合缓存时间
const aggregatorTTL = 5 * time.Minute

// FinnhubTTL picks the cache lifetime from the request path
func FinnhubTTL(req *http.Request) time.Duration {
	path := req.URL.Path
	best, ttl := "", time.Duration(0)
	for prefix, d := range finnhubTTL {
		if strings.HasSuffix(path, prefix) && len(prefix) > len(best) {
			best, ttl = prefix, d
		}
	}
	return ttl
}

// ClientFactory 上游 HTTP 客户端工厂
type ClientFactory struct {
	cache   *ResponseCache
	timeout time.Duration
	base    http.RoundTripper
}

// NewClientFactory 创建客户端工厂; cache may be nil to disable caching
func NewClientFactory(cache *ResponseCache, timeout time.Duration) *ClientFactory {
	return &ClientFactory{cache: cache, timeout: timeout, base: http.DefaultTransport}
}

// Client returns an http.Client caching responses for ttl(req)
func (f *ClientFactory) Client(ttl TTLFunc) *http.Client {
	transport := f.base
	if f.cache != nil && ttl != nil {
		transport = f.cache.Transport(f.base, ttl)
	}
	return &http.Client{Transport: transport, Timeout: f.timeout}
}

// Finnhub 返回带路径缓存的 finnhub 客户端
func (f *ClientFactory) Finnhub() *http.Client { return f.Client(FinnhubTTL) }

// Aggregator 返回新闻聚合客户端
func (f *ClientFactory) Aggregator() *http.Client { return f.Client(FixedTTL(aggregatorTTL)) }

// Uncached 返回不缓存的客户端
func (f *ClientFactory) Uncached() *http.Client { return f.Client(nil) }

// StatusError is returned for non-2xx upstream responses
type StatusError struct {
	Host   string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cannot http GET %v%v: status %d", e.Host, e.Path, e.Status)
}

// jwget performs an HTTP GET request and unmarshals the JSON response into data
func jwget(ctx context.Context, client *http.Client, addr string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Host: req.URL.Host, Path: req.URL.Path, Status: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(data); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}
