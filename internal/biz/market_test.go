package biz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type fakeMarket struct {
	quotes  map[string]*Quote
	newsErr error
	news    []NewsItem

	mu      sync.Mutex
	candleQ []string
}

func (f *fakeMarket) Quote(ctx context.Context, symbol string) (*Quote, error) {
	if q, ok := f.quotes[symbol]; ok {
		return q, nil
	}
	return &Quote{Symbol: symbol}, nil
}

func (f *fakeMarket) Profile(ctx context.Context, symbol string) (*Profile, error) {
	if symbol == "AAPL" {
		return &Profile{Symbol: symbol, Name: "Apple Inc"}, nil
	}
	return &Profile{Symbol: symbol}, nil
}

func (f *fakeMarket) Financials(ctx context.Context, symbol string) (*Financials, error) {
	return &Financials{Symbol: symbol}, nil
}

func (f *fakeMarket) CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]NewsItem, error) {
	return f.news, f.newsErr
}

func (f *fakeMarket) MarketNews(ctx context.Context, category string) ([]NewsItem, error) {
	return f.news, f.newsErr
}

func (f *fakeMarket) Candles(ctx context.Context, symbol, resolution string, from, to time.Time) (*CandleSeries, error) {
	f.mu.Lock()
	f.candleQ = append(f.candleQ, resolution+" "+from.Format("2006-01-02")+" "+to.Format("2006-01-02"))
	f.mu.Unlock()
	return &CandleSeries{Status: "no_data"}, nil
}

type memTrades struct {
	saved []Trade
}

func (m *memTrades) SaveTrades(ctx context.Context, trades []Trade) error {
	m.saved = append(m.saved, trades...)
	return nil
}

func (m *memTrades) Trades(ctx context.Context, symbol string, limit int) ([]Trade, error) {
	return m.saved, nil
}

func (m *memTrades) Close() error { return nil }

func newTestUsecase(m *fakeMarket, trades TradeRepo) *MarketUsecase {
	uc := NewMarketUsecase(m, nil, nil, nil, trades, nil)
	uc.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return uc
}

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "aapl", want: "AAPL"},
		{in: " brk.b ", want: "BRK.B"},
		{in: "^GSPC", want: "^GSPC"},
		{in: "EURUSD=X", want: "EURUSD=X"},
		{in: "", wantErr: true},
		{in: "AAPL;DROP", wantErr: true},
		{in: "ABCDEFGHIJKLM", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeTicker(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTicker) {
					t.Errorf("NormalizeTicker(%q) error = %v, want ErrInvalidTicker", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("NormalizeTicker(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestMarketUsecase_QuoteNoData(t *testing.T) {
	m := &fakeMarket{quotes: map[string]*Quote{
		"AAPL": {Symbol: "AAPL", Current: decimal.RequireFromString("189.84"), Change: decimal.RequireFromString("1.2")},
	}}
	uc := newTestUsecase(m, nil)

	q, err := uc.Quote(context.Background(), "aapl")
	if err != nil || q.Symbol != "AAPL" {
		t.Fatalf("Quote() = %+v, %v", q, err)
	}
	if _, err := uc.Quote(context.Background(), "ZZZZ"); !errors.Is(err, ErrNoData) {
		t.Errorf("Quote(ZZZZ) error = %v, want ErrNoData", err)
	}

	quotes := uc.Quotes(context.Background(), []string{"ZZZZ", "AAPL", "bad ticker"})
	if len(quotes) != 1 || quotes[0].Symbol != "AAPL" {
		t.Errorf("Quotes() = %v", quotes)
	}
}

func TestMarketUsecase_ProfileAndFinancialsNoData(t *testing.T) {
	uc := newTestUsecase(&fakeMarket{}, nil)

	if p, err := uc.Profile(context.Background(), "AAPL"); err != nil || p.Name != "Apple Inc" {
		t.Errorf("Profile(AAPL) = %+v, %v", p, err)
	}
	if _, err := uc.Profile(context.Background(), "MSFT"); !errors.Is(err, ErrNoData) {
		t.Errorf("Profile(MSFT) error = %v, want ErrNoData", err)
	}
	if _, err := uc.Financials(context.Background(), "MSFT"); !errors.Is(err, ErrNoData) {
		t.Errorf("Financials() error = %v, want ErrNoData", err)
	}
}

func TestMarketUsecase_NewsSwallowsErrors(t *testing.T) {
	m := &fakeMarket{newsErr: errors.New("status 429")}
	uc := newTestUsecase(m, nil)

	items, err := uc.CompanyNews(context.Background(), "AAPL", 0)
	if err != nil || items == nil || len(items) != 0 {
		t.Errorf("CompanyNews() = %v, %v; want empty list", items, err)
	}
	if items := uc.MarketNews(context.Background(), 0); items == nil || len(items) != 0 {
		t.Errorf("MarketNews() = %v, want empty list", items)
	}

	m.newsErr = nil
	m.news = make([]NewsItem, 20)
	if items, _ := uc.CompanyNews(context.Background(), "AAPL", 0); len(items) != 5 {
		t.Errorf("CompanyNews() default count = %d, want 5", len(items))
	}
	if items := uc.MarketNews(context.Background(), 0); len(items) != 10 {
		t.Errorf("MarketNews() default count = %d, want 10", len(items))
	}
}

func TestMarketUsecase_CandleRanges(t *testing.T) {
	tests := []struct {
		rng     string
		want    string
		wantErr error
	}{
		{rng: "", want: "D 2025-03-05 2025-03-10"},
		{rng: "1w", want: "D 2025-03-03 2025-03-10"},
		{rng: "3m", want: "D 2024-12-10 2025-03-10"},
		{rng: "1y", want: "W 2024-03-10 2025-03-10"},
		{rng: "5y", wantErr: ErrInvalidRange},
	}
	for _, tt := range tests {
		t.Run(tt.rng, func(t *testing.T) {
			m := &fakeMarket{}
			series, err := newTestUsecase(m, nil).Candles(context.Background(), "AAPL", tt.rng)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Candles() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Candles() error = %v", err)
			}
			if len(m.candleQ) != 1 || m.candleQ[0] != tt.want {
				t.Errorf("upstream query = %v, want %q", m.candleQ, tt.want)
			}
			if series.Status != "no_data" || series.Symbol != "AAPL" {
				t.Errorf("series = %+v", series)
			}
		})
	}
}

func TestMarketUsecase_ScreenAndHeadlinesValidation(t *testing.T) {
	uc := newTestUsecase(&fakeMarket{}, nil)

	if _, err := uc.Screen(context.Background(), "best_stocks_ever", 0); !errors.Is(err, ErrUnknownScreener) {
		t.Errorf("Screen() error = %v, want ErrUnknownScreener", err)
	}
	if _, err := uc.Screen(context.Background(), "day_gainers", 0); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Screen() error = %v, want ErrNotConfigured", err)
	}
	if _, err := uc.Headlines(context.Background(), "year"); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("Headlines() error = %v, want ErrInvalidPeriod", err)
	}
}

func TestMarketUsecase_RecordTrades(t *testing.T) {
	repo := &memTrades{}
	uc := newTestUsecase(&fakeMarket{}, repo)

	n, err := uc.RecordTrades(context.Background(), []Trade{
		{Symbol: "aapl", Price: decimal.RequireFromString("150.25"), Volume: decimal.NewFromInt(100)},
		{Symbol: "not a symbol"},
		{Symbol: "BINANCE:BTCUSDT"},
	})
	if err != nil || n != 1 {
		t.Fatalf("RecordTrades() = %d, %v; want 1", n, err)
	}
	if repo.saved[0].Symbol != "AAPL" {
		t.Errorf("saved = %+v", repo.saved)
	}
}
