package biz

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMarketOpen(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before open EDT", time.Date(2025, 3, 10, 13, 29, 0, 0, time.UTC), false},
		{"at open EDT", time.Date(2025, 3, 10, 13, 30, 0, 0, time.UTC), true},
		{"last minute", time.Date(2025, 3, 10, 19, 59, 0, 0, time.UTC), true},
		{"at close", time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC), false},
		{"EST winter open", time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC), true},
		{"EST winter before open", time.Date(2025, 1, 6, 13, 30, 0, 0, time.UTC), false},
		{"saturday", time.Date(2025, 3, 8, 15, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MarketOpen(tt.at); got != tt.want {
				t.Errorf("MarketOpen(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestSentimentOf(t *testing.T) {
	tests := []struct {
		in   string
		want Sentiment
	}{
		{"0.11", Bullish},
		{"0.1", Neutral},
		{"0", Neutral},
		{"-0.1", Neutral},
		{"-0.5", Bearish},
	}
	for _, tt := range tests {
		if got := SentimentOf(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("SentimentOf(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDashboard_Closed(t *testing.T) {
	m := &fakeMarket{
		quotes: map[string]*Quote{
			"MSFT": {Symbol: "MSFT", Current: decimal.NewFromInt(400), PercentChange: decimal.RequireFromString("-1.2")},
			"NVDA": {Symbol: "NVDA", Current: decimal.NewFromInt(120), PercentChange: decimal.RequireFromString("2")},
		},
		news: []NewsItem{{Headline: "Stocks slide"}, {Headline: "second"}},
	}
	uc := newTestUsecase(m, nil)

	d := uc.Dashboard(context.Background())
	if d.MarketOpen {
		t.Fatal("market should be closed at 08:00 ET")
	}
	if len(d.Quotes) != 2 || d.Quotes[0].Symbol != "MSFT" || d.Quotes[0].ShortName != "Microsoft Corp." || d.Quotes[1].Symbol != "NVDA" {
		t.Errorf("Quotes = %+v", d.Quotes)
	}
	if d.Sentiment != Bearish {
		t.Errorf("Sentiment = %s, want bearish from first quote", d.Sentiment)
	}
	if d.TopNews == nil || d.TopNews.Headline != "Stocks slide" {
		t.Errorf("TopNews = %+v", d.TopNews)
	}
}

func TestDashboard_OpenUsesIndices(t *testing.T) {
	m := &fakeMarket{quotes: map[string]*Quote{
		"SPY":  {Symbol: "SPY", Current: decimal.NewFromInt(500), PercentChange: decimal.RequireFromString("0.4")},
		"NFLX": {Symbol: "NFLX", Current: decimal.NewFromInt(900), PercentChange: decimal.RequireFromString("1")},
	}}
	uc := newTestUsecase(m, nil)
	uc.now = func() time.Time { return time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC) }

	d := uc.Dashboard(context.Background())
	if !d.MarketOpen || len(d.Quotes) != 1 || d.Quotes[0].ShortName != "S&P 500" {
		t.Errorf("Dashboard() = %+v", d)
	}
	if d.Sentiment != Bullish || d.TopNews != nil {
		t.Errorf("Sentiment = %s, TopNews = %v", d.Sentiment, d.TopNews)
	}
}

func TestSetDashboardTickers(t *testing.T) {
	uc := newTestUsecase(&fakeMarket{}, nil)
	uc.SetDashboardTickers([]string{"aapl", "bad ticker!", "ZZZ"})
	want := []Listing{{"AAPL", "Apple Inc."}, {"ZZZ", ""}}
	if len(uc.dashboard) != len(want) || uc.dashboard[0] != want[0] || uc.dashboard[1] != want[1] {
		t.Errorf("dashboard = %+v, want %+v", uc.dashboard, want)
	}

	uc.SetDashboardTickers(nil)
	if len(uc.dashboard) != 2 {
		t.Error("empty list should keep the current tickers")
	}
}
