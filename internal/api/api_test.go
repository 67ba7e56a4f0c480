package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	"stock-dashboard/internal/auth"
	"stock-dashboard/internal/biz"
	"stock-dashboard/internal/session"

	"github.com/shopspring/decimal"
)

var testCookies = auth.Cookies{ProjectID: "proj"}

// fakeProvider accepts the secret "good"
type fakeProvider struct {
	completeErr error

	mu      sync.Mutex
	deleted []string
}

func (p *fakeProvider) CurrentIdentity(ctx context.Context, secret string) (*session.Identity, error) {
	if secret != "good" {
		return nil, auth.ErrUnauthenticated
	}
	return &session.Identity{ID: "u1", Email: "a@example.com", Name: "Ada"}, nil
}

func (p *fakeProvider) AuthURL(successURL, failureURL string) (string, error) {
	return "https://id.example.com/oauth?success=" + url.QueryEscape(successURL) + "&failure=" + url.QueryEscape(failureURL), nil
}

func (p *fakeProvider) CompleteOAuth(ctx context.Context, query url.Values) (string, error) {
	if p.completeErr != nil {
		return "", p.completeErr
	}
	secret := query.Get("secret")
	if secret == "" {
		return "", auth.ErrMissingParams
	}
	return secret, nil
}

func (p *fakeProvider) DeleteSession(ctx context.Context, secret string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, secret)
	return errors.New("session not found")
}

func withSecret(r *http.Request, secret string) *http.Request {
	r.AddCookie(&http.Cookie{Name: testCookies.Name(), Value: secret})
	return r
}

// fakeMarketService serves a fixed quote for AAPL
type fakeMarketService struct {
	mu     sync.Mutex
	trades []Trade
}

var aaplQuote = Quote{Symbol: "AAPL", Current: decimal.RequireFromString("189.84")}

func (s *fakeMarketService) Dashboard(ctx context.Context) (*DashboardView, error) {
	return &DashboardView{Sentiment: "neutral", Quotes: []Quote{aaplQuote}}, nil
}

func (s *fakeMarketService) Stock(ctx context.Context, ticker, rng string) (*StockView, error) {
	q, err := s.Quote(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return &StockView{Ticker: q.Symbol, Quote: q, News: []NewsItem{}}, nil
}

func (s *fakeMarketService) Quote(ctx context.Context, ticker string) (*Quote, error) {
	switch ticker {
	case "AAPL":
		q := aaplQuote
		return &q, nil
	case "bad!":
		return nil, biz.ErrInvalidTicker
	case "DOWN":
		return nil, errors.New("upstream timeout")
	}
	return nil, biz.ErrNoData
}

func (s *fakeMarketService) Profile(ctx context.Context, ticker string) (*Profile, error) {
	return nil, biz.ErrNoData
}

func (s *fakeMarketService) Financials(ctx context.Context, ticker string) (*Financials, error) {
	return nil, biz.ErrNoData
}

func (s *fakeMarketService) CompanyNews(ctx context.Context, ticker string, count int) ([]NewsItem, error) {
	return []NewsItem{}, nil
}

func (s *fakeMarketService) MarketNews(ctx context.Context, count int) ([]NewsItem, error) {
	return []NewsItem{}, nil
}

func (s *fakeMarketService) Candles(ctx context.Context, ticker, rng string) (*CandleSeries, error) {
	if rng == "10y" {
		return nil, biz.ErrInvalidRange
	}
	return &CandleSeries{Symbol: ticker, Range: rng, Status: "no_data", Candles: []Candle{}}, nil
}

func (s *fakeMarketService) Screeners() []string {
	return []string{"most_actives", "day_gainers"}
}

func (s *fakeMarketService) Screen(ctx context.Context, id string, count int) (*ScreenerResult, error) {
	return &ScreenerResult{ID: id, Count: count, Quotes: []map[string]any{}}, nil
}

func (s *fakeMarketService) Headlines(ctx context.Context, period string) (*Headlines, error) {
	return nil, biz.ErrNotConfigured
}

func (s *fakeMarketService) AllHeadlines(ctx context.Context) ([]Headlines, error) {
	return []Headlines{{Period: "day", Title: "Today"}, {Period: "week", Title: "This week"}}, nil
}

func (s *fakeMarketService) Portfolios(ctx context.Context, userID string) (*PortfolioList, error) {
	return &PortfolioList{Success: true, Portfolios: []map[string]any{{"owner": userID}}, Count: 1}, nil
}

func (s *fakeMarketService) RecordTrades(ctx context.Context, trades []Trade) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, trades...)
	return len(trades), nil
}

func (s *fakeMarketService) Trades(ctx context.Context, ticker string, limit int) ([]Trade, error) {
	return []Trade{}, nil
}

var _ MarketService = (*fakeMarketService)(nil)
var _ auth.IdentityProvider = (*fakeProvider)(nil)

// newTestRouter wires the handlers the way main does, without upstream services
func newTestRouter(p *fakeProvider, svc *fakeMarketService, tabs *session.Registry) http.Handler {
	signOut := auth.NewSignOut(p, testCookies, tabs, nil)
	landing, err := NewLandingHandler()
	if err != nil {
		panic(err)
	}
	guard := auth.NewRouteGuard(p, testCookies, auth.GuardConfig{})
	return NewRouter(Handlers{
		Landing:  landing,
		Auth:     NewAuthHandler(p, testCookies, signOut, "http://localhost:3000", "/dashboard", nil),
		Session:  NewSessionHandler(tabs, p, testCookies, nil),
		Views:    NewViewHandler(svc),
		Market:   NewMarketHandler(svc),
		Webhook:  NewWebhookHandler(svc, "hook-secret", nil, nil),
		Tabs:     tabs,
		Identify: auth.OptionalAuthMiddleware(p, testCookies),
	}, auth.AuthMiddleware(p, testCookies), guard.Middleware)
}

func newTestTabs(p *fakeProvider) *session.Registry {
	return session.NewRegistry(p.CurrentIdentity, session.RegistryConfig{})
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}
