package biz

import (
	"context"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Listing 展示用的 ticker 与简称
type Listing struct {
	Symbol    string
	ShortName string
}

// DashboardTickers are shown while the US market is closed
var DashboardTickers = []Listing{
	{"AAPL", "Apple Inc."},
	{"MSFT", "Microsoft Corp."},
	{"GOOGL", "Alphabet Inc."},
	{"AMZN", "Amazon.com Inc."},
	{"TSLA", "Tesla Inc."},
	{"META", "Meta Platforms Inc."},
	{"NVDA", "NVIDIA Corp."},
	{"NFLX", "Netflix Inc."},
}

// MajorIndices lead the dashboard during trading hours
var MajorIndices = []Listing{
	{"SPY", "S&P 500"},
	{"QQQ", "NASDAQ"},
	{"DIA", "Dow Jones"},
	{"IWM", "Russell 2000"},
}

// PopularStocks follow the indices during trading hours
var PopularStocks = DashboardTickers[:6]

// Sentiment 市场情绪
type Sentiment string

const (
	Bullish Sentiment = "bullish"
	Bearish Sentiment = "bearish"
	Neutral Sentiment = "neutral"
)

var sentimentBand = decimal.RequireFromString("0.1")

// SentimentOf classifies a percent change
func SentimentOf(percentChange decimal.Decimal) Sentiment {
	switch {
	case percentChange.GreaterThan(sentimentBand):
		return Bullish
	case percentChange.LessThan(sentimentBand.Neg()):
		return Bearish
	default:
		return Neutral
	}
}

var newYork = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// MarketOpen reports whether t falls in regular NYSE hours, 9:30 to 16:00 ET on weekdays.
// Exchange holidays are not considered.
func MarketOpen(t time.Time) bool {
	et := t.In(newYork)
	if wd := et.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	minutes := et.Hour()*60 + et.Minute()
	return minutes >= 9*60+30 && minutes < 16*60
}

// ListedQuote 带简称的报价
type ListedQuote struct {
	Listing
	Quote *Quote
}

// Dashboard 首页数据
type Dashboard struct {
	MarketOpen bool
	Sentiment  Sentiment
	Quotes     []ListedQuote
	TopNews    *NewsItem
}

// SetDashboardTickers replaces the closed-market ticker list. Known symbols keep their short name.
func (uc *MarketUsecase) SetDashboardTickers(symbols []string) {
	names := make(map[string]string, len(DashboardTickers))
	for _, l := range DashboardTickers {
		names[l.Symbol] = l.ShortName
	}
	listings := make([]Listing, 0, len(symbols))
	for _, s := range symbols {
		symbol, err := NormalizeTicker(s)
		if err != nil {
			uc.logger.Warn("ignoring dashboard ticker", "ticker", s, "error", err)
			continue
		}
		listings = append(listings, Listing{Symbol: symbol, ShortName: names[symbol]})
	}
	if len(listings) > 0 {
		uc.dashboard = listings
	}
}

// Dashboard 聚合首页: quotes for the current ticker list, the top market headline and the sentiment of the first quote
func (uc *MarketUsecase) Dashboard(ctx context.Context) *Dashboard {
	open := MarketOpen(uc.now())
	listings := uc.dashboard
	if open {
		listings = append(append([]Listing{}, MajorIndices...), PopularStocks...)
	}

	quotes := make([]*Quote, len(listings))
	var news []NewsItem
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	g.Go(func() error {
		news = uc.MarketNews(gctx, 1)
		return nil
	})
	for i, l := range listings {
		g.Go(func() error {
			q, err := uc.Quote(gctx, l.Symbol)
			if err != nil {
				uc.logger.Warn("failed to fetch stock quote", "ticker", l.Symbol, "error", err)
				return nil
			}
			quotes[i] = q
			return nil
		})
	}
	g.Wait()

	d := &Dashboard{MarketOpen: open, Sentiment: Neutral, Quotes: make([]ListedQuote, 0, len(listings))}
	for i, l := range listings {
		if quotes[i] != nil {
			d.Quotes = append(d.Quotes, ListedQuote{Listing: l, Quote: quotes[i]})
		}
	}
	if len(d.Quotes) > 0 {
		d.Sentiment = SentimentOf(d.Quotes[0].Quote.PercentChange)
	}
	if len(news) > 0 && news[0].Headline != "" {
		d.TopNews = &news[0]
	}
	return d
}
