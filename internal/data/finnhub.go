package data

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stock-dashboard/internal/biz"

	"github.com/shopspring/decimal"
)

// finnhubRepo implements biz.MarketRepo against the Finnhub REST API
type finnhubRepo struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewFinnhubRepo 创建 finnhub 行情仓库
func NewFinnhubRepo(baseURL, apiKey string, client *http.Client) biz.MarketRepo {
	return &finnhubRepo{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (r *finnhubRepo) url(endpoint string, params url.Values) (string, error) {
	if r.apiKey == "" {
		return "", fmt.Errorf("finnhub API key is not configured: %w", biz.ErrNotConfigured)
	}
	q := url.Values{}
	q.Set("token", r.apiKey)
	for k, vs := range params {
		for _, v := range vs {
			if v != "" { // Only add non-empty values
				q.Add(k, v)
			}
		}
	}
	return r.baseURL + endpoint + "?" + q.Encode(), nil
}

func (r *finnhubRepo) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	addr, err := r.url(endpoint, params)
	if err != nil {
		return err
	}
	if err := jwget(ctx, r.client, addr, out); err != nil {
		return fmt.Errorf("finnhub %s: %w", endpoint, err)
	}
	return nil
}

type finnhubQuote struct {
	C  decimal.Decimal `json:"c"`
	D  decimal.Decimal `json:"d"`
	DP decimal.Decimal `json:"dp"`
	H  decimal.Decimal `json:"h"`
	L  decimal.Decimal `json:"l"`
	O  decimal.Decimal `json:"o"`
	PC decimal.Decimal `json:"pc"`
	T  int64           `json:"t"`
}

func (r *finnhubRepo) Quote(ctx context.Context, symbol string) (*biz.Quote, error) {
	var q finnhubQuote
	if err := r.get(ctx, "/quote", url.Values{"symbol": {symbol}}, &q); err != nil {
		return nil, err
	}
	return &biz.Quote{
		Symbol:        symbol,
		Current:       q.C,
		Change:        q.D,
		PercentChange: q.DP,
		High:          q.H,
		Low:           q.L,
		Open:          q.O,
		PreviousClose: q.PC,
		Timestamp:     time.Unix(q.T, 0).UTC(),
	}, nil
}

type finnhubProfile struct {
	Country              string          `json:"country"`
	Currency             string          `json:"currency"`
	Exchange             string          `json:"exchange"`
	IPO                  string          `json:"ipo"`
	MarketCapitalization decimal.Decimal `json:"marketCapitalization"`
	Name                 string          `json:"name"`
	Phone                string          `json:"phone"`
	ShareOutstanding     decimal.Decimal `json:"shareOutstanding"`
	Ticker               string          `json:"ticker"`
	WebURL               string          `json:"weburl"`
	Logo                 string          `json:"logo"`
	FinnhubIndustry      string          `json:"finnhubIndustry"`
}

func (r *finnhubRepo) Profile(ctx context.Context, symbol string) (*biz.Profile, error) {
	var p finnhubProfile
	if err := r.get(ctx, "/stock/profile2", url.Values{"symbol": {symbol}}, &p); err != nil {
		return nil, err
	}
	return &biz.Profile{
		Symbol:           symbol,
		Name:             p.Name,
		Country:          p.Country,
		Currency:         p.Currency,
		Exchange:         p.Exchange,
		Industry:         p.FinnhubIndustry,
		IPO:              p.IPO,
		Logo:             p.Logo,
		Phone:            p.Phone,
		WebURL:           p.WebURL,
		MarketCap:        p.MarketCapitalization,
		ShareOutstanding: p.ShareOutstanding,
	}, nil
}

type finnhubMetrics struct {
	Symbol string         `json:"symbol"`
	Metric map[string]any `json:"metric"`
}

func (r *finnhubRepo) Financials(ctx context.Context, symbol string) (*biz.Financials, error) {
	var m finnhubMetrics
	if err := r.get(ctx, "/stock/metric", url.Values{"symbol": {symbol}, "metric": {"all"}}, &m); err != nil {
		return nil, err
	}
	return &biz.Financials{Symbol: symbol, Metric: m.Metric}, nil
}

type finnhubNews struct {
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Image    string `json:"image"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

func toNewsItems(in []finnhubNews) []biz.NewsItem {
	out := make([]biz.NewsItem, 0, len(in))
	for _, n := range in {
		out = append(out, biz.NewsItem{
			ID:       n.ID,
			Category: n.Category,
			Datetime: time.Unix(n.Datetime, 0).UTC(),
			Headline: n.Headline,
			Image:    n.Image,
			Related:  n.Related,
			Source:   n.Source,
			Summary:  n.Summary,
			URL:      n.URL,
		})
	}
	return out
}

func (r *finnhubRepo) CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]biz.NewsItem, error) {
	var news []finnhubNews
	params := url.Values{
		"symbol": {symbol},
		"from":   {from.Format(time.DateOnly)},
		"to":     {to.Format(time.DateOnly)},
	}
	if err := r.get(ctx, "/company-news", params, &news); err != nil {
		return nil, err
	}
	return toNewsItems(news), nil
}

func (r *finnhubRepo) MarketNews(ctx context.Context, category string) ([]biz.NewsItem, error) {
	var news []finnhubNews
	if err := r.get(ctx, "/news", url.Values{"category": {category}}, &news); err != nil {
		return nil, err
	}
	return toNewsItems(news), nil
}

type finnhubCandles struct {
	C []decimal.Decimal `json:"c"`
	H []decimal.Decimal `json:"h"`
	L []decimal.Decimal `json:"l"`
	O []decimal.Decimal `json:"o"`
	T []int64           `json:"t"`
	V []float64         `json:"v"`
	S string            `json:"s"`
}

func (r *finnhubRepo) Candles(ctx context.Context, symbol, resolution string, from, to time.Time) (*biz.CandleSeries, error) {
	var c finnhubCandles
	params := url.Values{
		"symbol":     {symbol},
		"resolution": {resolution},
		"from":       {strconv.FormatInt(from.Unix(), 10)},
		"to":         {strconv.FormatInt(to.Unix(), 10)},
	}
	if err := r.get(ctx, "/stock/candle", params, &c); err != nil {
		return nil, err
	}

	series := &biz.CandleSeries{Status: c.S, Candles: []biz.Candle{}}
	if c.S != "ok" {
		return series, nil
	}
	n := len(c.T)
	if len(c.O) != n || len(c.H) != n || len(c.L) != n || len(c.C) != n {
		return nil, fmt.Errorf("finnhub /stock/candle: mismatched series lengths")
	}
	for i := range n {
		var vol int64
		if i < len(c.V) {
			vol = int64(c.V[i])
		}
		series.Candles = append(series.Candles, biz.Candle{
			Time:   time.Unix(c.T[i], 0).UTC(),
			Open:   c.O[i],
			High:   c.H[i],
			Low:    c.L[i],
			Close:  c.C[i],
			Volume: vol,
		})
	}
	return series, nil
}
