package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"stock-dashboard/internal/api"
	"stock-dashboard/internal/biz"

	"github.com/shopspring/decimal"
)

// stubMarket returns a quote for every symbol except ZZZZ and fails profiles
type stubMarket struct {
	resolution string
}

func (m *stubMarket) Quote(ctx context.Context, symbol string) (*biz.Quote, error) {
	if symbol == "ZZZZ" {
		return &biz.Quote{Symbol: symbol}, nil
	}
	return &biz.Quote{
		Symbol:        symbol,
		Current:       decimal.RequireFromString("101.5"),
		Change:        decimal.RequireFromString("1.5"),
		PercentChange: decimal.RequireFromString("1.5"),
	}, nil
}

func (m *stubMarket) Profile(ctx context.Context, symbol string) (*biz.Profile, error) {
	return nil, errors.New("profile upstream down")
}

func (m *stubMarket) Financials(ctx context.Context, symbol string) (*biz.Financials, error) {
	return &biz.Financials{Symbol: symbol, Metric: map[string]any{"beta": 1.2}}, nil
}

func (m *stubMarket) CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]biz.NewsItem, error) {
	items := make([]biz.NewsItem, 8)
	for i := range items {
		items[i] = biz.NewsItem{ID: int64(i), Headline: "h"}
	}
	return items, nil
}

func (m *stubMarket) MarketNews(ctx context.Context, category string) ([]biz.NewsItem, error) {
	return []biz.NewsItem{{ID: 1, Headline: "Markets rally"}}, nil
}

func (m *stubMarket) Candles(ctx context.Context, symbol, resolution string, from, to time.Time) (*biz.CandleSeries, error) {
	m.resolution = resolution
	return &biz.CandleSeries{Status: "ok", Candles: []biz.Candle{{Close: decimal.NewFromInt(100), Volume: 10}}}, nil
}

type stubPortfolios struct{}

func (stubPortfolios) Portfolios(ctx context.Context, userID string) ([]biz.Portfolio, error) {
	return []biz.Portfolio{{"owner": userID}, {"owner": userID}}, nil
}

func newTestService(m *stubMarket) api.MarketService {
	uc := biz.NewMarketUsecase(m, nil, nil, stubPortfolios{}, nil, nil)
	return NewMarketService(uc, nil)
}

func TestStock_DropsFailedPanels(t *testing.T) {
	m := &stubMarket{}
	svc := newTestService(m)

	view, err := svc.Stock(context.Background(), "aapl", "10y")
	if err != nil {
		t.Fatalf("Stock: %v", err)
	}
	if view.Ticker != "AAPL" || view.Quote == nil || !view.Quote.Current.Equal(decimal.RequireFromString("101.5")) {
		t.Errorf("quote = %+v", view.Quote)
	}
	if view.Profile != nil {
		t.Errorf("profile should be dropped, got %+v", view.Profile)
	}
	if view.Financials == nil || view.Financials.Metric["beta"] != 1.2 {
		t.Errorf("financials = %+v", view.Financials)
	}
	if len(view.News) != 5 {
		t.Errorf("news = %d items, want 5", len(view.News))
	}
	if view.Candles == nil || view.Candles.Range != biz.DefaultRange || m.resolution != "D" {
		t.Errorf("candles = %+v, resolution %q", view.Candles, m.resolution)
	}
}

func TestStock_RequiresQuote(t *testing.T) {
	svc := newTestService(&stubMarket{})
	if _, err := svc.Stock(context.Background(), "ZZZZ", "1m"); !errors.Is(err, biz.ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
	if _, err := svc.Quote(context.Background(), "not a ticker"); !errors.Is(err, biz.ErrInvalidTicker) {
		t.Errorf("err = %v, want ErrInvalidTicker", err)
	}
}

func TestDashboard_ShortNamesAndNews(t *testing.T) {
	svc := newTestService(&stubMarket{})
	view, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Quotes) == 0 {
		t.Fatal("no quotes")
	}
	for _, q := range view.Quotes {
		if q.ShortName == "" {
			t.Errorf("quote %s has no short name", q.Symbol)
		}
	}
	if view.Sentiment != "bullish" {
		t.Errorf("sentiment = %q, want bullish for +1.5%%", view.Sentiment)
	}
	if view.TopNews == nil || view.TopNews.Headline != "Markets rally" {
		t.Errorf("top news = %+v", view.TopNews)
	}
}

func TestCollaborators(t *testing.T) {
	svc := newTestService(&stubMarket{})
	ctx := context.Background()

	list, err := svc.Portfolios(ctx, "u1")
	if err != nil || !list.Success || list.Count != 2 || list.Portfolios[0]["owner"] != "u1" {
		t.Errorf("portfolios = %+v, %v", list, err)
	}
	if _, err := svc.Headlines(ctx, "day"); !errors.Is(err, biz.ErrNotConfigured) {
		t.Errorf("headlines err = %v, want ErrNotConfigured", err)
	}
	if _, err := svc.RecordTrades(ctx, []api.Trade{{Symbol: "AAPL"}}); !errors.Is(err, biz.ErrNotConfigured) {
		t.Errorf("trades err = %v, want ErrNotConfigured", err)
	}
	if ids := svc.Screeners(); len(ids) != len(biz.ScreenerIDs) || ids[0] != "most_actives" {
		t.Errorf("screeners = %v", ids)
	}
}
