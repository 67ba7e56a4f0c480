package api

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Quote 报价 DTO; decimals serialize as strings
type Quote struct {
	Symbol        string          `json:"symbol"`
	ShortName     string          `json:"short_name,omitempty"`
	Current       decimal.Decimal `json:"current"`
	Change        decimal.Decimal `json:"change"`
	PercentChange decimal.Decimal `json:"percent_change"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Open          decimal.Decimal `json:"open"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Profile 公司概况 DTO
type Profile struct {
	Symbol           string          `json:"symbol"`
	Name             string          `json:"name"`
	Country          string          `json:"country,omitempty"`
	Currency         string          `json:"currency,omitempty"`
	Exchange         string          `json:"exchange,omitempty"`
	Industry         string          `json:"industry,omitempty"`
	IPO              string          `json:"ipo,omitempty"`
	Logo             string          `json:"logo,omitempty"`
	Phone            string          `json:"phone,omitempty"`
	WebURL           string          `json:"weburl,omitempty"`
	MarketCap        decimal.Decimal `json:"market_capitalization"`
	ShareOutstanding decimal.Decimal `json:"share_outstanding"`
}

// Financials 财务指标 DTO
type Financials struct {
	Symbol string         `json:"symbol"`
	Metric map[string]any `json:"metric"`
}

// NewsItem 新闻 DTO
type NewsItem struct {
	ID       int64     `json:"id"`
	Category string    `json:"category,omitempty"`
	Datetime time.Time `json:"datetime"`
	Headline string    `json:"headline"`
	Image    string    `json:"image,omitempty"`
	Related  string    `json:"related,omitempty"`
	Source   string    `json:"source,omitempty"`
	Summary  string    `json:"summary,omitempty"`
	URL      string    `json:"url"`
}

// Candle K 线 DTO
type Candle struct {
	Time   time.Time       `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// CandleSeries K 线序列 DTO
type CandleSeries struct {
	Symbol     string   `json:"symbol"`
	Range      string   `json:"range"`
	Resolution string   `json:"resolution"`
	Status     string   `json:"status"`
	Candles    []Candle `json:"candles"`
}

// ScreenerResult 筛选结果 DTO
type ScreenerResult struct {
	ID     string           `json:"id"`
	Title  string           `json:"title"`
	Count  int              `json:"count"`
	Start  int              `json:"start"`
	Total  int              `json:"total"`
	Quotes []map[string]any `json:"quotes"`
}

// Article 新闻聚合文章 DTO
type Article struct {
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
	Category string `json:"category,omitempty"`
	Snippet  string `json:"snippet,omitempty"`
}

// Headlines 新闻聚合 DTO
type Headlines struct {
	Period   string    `json:"period"`
	Title    string    `json:"title"`
	Articles []Article `json:"articles"`
	Count    int       `json:"count"`
}

// PortfolioList mirrors the portfolio backend response
type PortfolioList struct {
	Success    bool             `json:"success"`
	Portfolios []map[string]any `json:"portfolios"`
	Count      int              `json:"count"`
}

// Trade 成交 DTO
type Trade struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Volume    decimal.Decimal `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}

// DashboardView /dashboard 视图模型
type DashboardView struct {
	User       *UserInfo `json:"user"`
	MarketOpen bool      `json:"market_open"`
	Sentiment  string    `json:"sentiment"`
	TopNews    *NewsItem `json:"top_news,omitempty"`
	Quotes     []Quote   `json:"quotes"`
}

// StockView /stocks/{ticker} 视图模型
type StockView struct {
	Ticker     string        `json:"ticker"`
	Quote      *Quote        `json:"quote"`
	Profile    *Profile      `json:"profile,omitempty"`
	Financials *Financials   `json:"financials,omitempty"`
	News       []NewsItem    `json:"news"`
	Candles    *CandleSeries `json:"candles,omitempty"`
}

// ScreenerView /screener 视图模型
type ScreenerView struct {
	Screeners []string        `json:"screeners"`
	Result    *ScreenerResult `json:"result,omitempty"`
}

// UserInfo 当前用户
type UserInfo struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// MarketService 行情服务接口（由 service 层实现）
type MarketService interface {
	Dashboard(ctx context.Context) (*DashboardView, error)
	Stock(ctx context.Context, ticker, rng string) (*StockView, error)
	Quote(ctx context.Context, ticker string) (*Quote, error)
	Profile(ctx context.Context, ticker string) (*Profile, error)
	Financials(ctx context.Context, ticker string) (*Financials, error)
	CompanyNews(ctx context.Context, ticker string, count int) ([]NewsItem, error)
	MarketNews(ctx context.Context, count int) ([]NewsItem, error)
	Candles(ctx context.Context, ticker, rng string) (*CandleSeries, error)
	Screeners() []string
	Screen(ctx context.Context, id string, count int) (*ScreenerResult, error)
	Headlines(ctx context.Context, period string) (*Headlines, error)
	AllHeadlines(ctx context.Context) ([]Headlines, error)
	Portfolios(ctx context.Context, userID string) (*PortfolioList, error)
	RecordTrades(ctx context.Context, trades []Trade) (int, error)
	Trades(ctx context.Context, ticker string, limit int) ([]Trade, error)
}
