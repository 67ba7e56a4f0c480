package biz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoData          = errors.New("no data available")
	ErrInvalidTicker   = errors.New("invalid ticker")
	ErrInvalidRange    = errors.New("invalid range")
	ErrUnknownScreener = errors.New("unknown screener")
	ErrInvalidPeriod   = errors.New("invalid news period")
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.^=-]{1,12}$`)

// NormalizeTicker 统一大写并校验 ticker
func NormalizeTicker(ticker string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if !tickerPattern.MatchString(t) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicker, ticker)
	}
	return t, nil
}

// Quote 实时报价
type Quote struct {
	Symbol        string
	Current       decimal.Decimal
	Change        decimal.Decimal
	PercentChange decimal.Decimal
	High          decimal.Decimal
	Low           decimal.Decimal
	Open          decimal.Decimal
	PreviousClose decimal.Decimal
	Timestamp     time.Time
}

// Empty reports the upstream "no data" sentinel: c, d and dp all zero
func (q *Quote) Empty() bool {
	return q.Current.IsZero() && q.Change.IsZero() && q.PercentChange.IsZero()
}

// Profile 公司概况
type Profile struct {
	Symbol           string
	Name             string
	Country          string
	Currency         string
	Exchange         string
	Industry         string
	IPO              string
	Logo             string
	Phone            string
	WebURL           string
	MarketCap        decimal.Decimal
	ShareOutstanding decimal.Decimal
}

// Financials 基本财务指标
type Financials struct {
	Symbol string
	Metric map[string]any
}

// NewsItem 新闻条目
type NewsItem struct {
	ID       int64
	Category string
	Datetime time.Time
	Headline string
	Image    string
	Related  string
	Source   string
	Summary  string
	URL      string
}

// Candle K 线
type Candle struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// CandleSeries K 线序列; Status is "ok" or "no_data"
type CandleSeries struct {
	Symbol     string
	Range      string
	Resolution string
	Status     string
	Candles    []Candle
}

// CandleRange 时间范围配置
type CandleRange struct {
	Days       int
	Resolution string
}

// DefaultRange is used when a request names no range
const DefaultRange = "1d"

// CandleRanges maps a chart range to its lookback window and resolution.
// 1d looks back 5 days so daily resolution still shows some data.
var CandleRanges = map[string]CandleRange{
	"1d": {Days: 5, Resolution: "D"},
	"1w": {Days: 7, Resolution: "D"},
	"1m": {Days: 30, Resolution: "D"},
	"3m": {Days: 90, Resolution: "D"},
	"1y": {Days: 365, Resolution: "W"},
}

// ScreenerIDs 预定义筛选器
var ScreenerIDs = []string{
	"most_actives",
	"day_gainers",
	"day_losers",
	"growth_technology_stocks",
	"most_shorted_stocks",
	"undervalued_growth_stocks",
	"aggressive_small_caps",
	"conservative_foreign_funds",
	"high_yield_bond",
	"portfolio_anchors",
	"small_cap_gainers",
	"solid_large_growth_funds",
	"solid_midcap_growth_funds",
	"top_mutual_funds",
	"undervalued_large_caps",
}

// DefaultScreenerCount is the page size of a screener query
const DefaultScreenerCount = 40

// ScreenerResult 筛选结果
type ScreenerResult struct {
	ID     string
	Title  string
	Count  int
	Start  int
	Total  int
	Quotes []map[string]any
}

// Article 新闻聚合文章
type Article struct {
	Title    string
	URL      string
	Category string
	Snippet  string
}

// Headlines 某个周期的新闻
type Headlines struct {
	Period   string
	Title    string
	Articles []Article
}

// HeadlinePeriods 支持的周期
var HeadlinePeriods = []string{"day", "week", "month"}

// Portfolio is an opaque document returned by the portfolio backend
type Portfolio map[string]any

// Trade 实时成交 (webhook)
type Trade struct {
	Symbol string
	Price  decimal.Decimal
	Volume decimal.Decimal
	Time   time.Time
}

// MarketRepo 行情仓库接口
type MarketRepo interface {
	Quote(ctx context.Context, symbol string) (*Quote, error)
	Profile(ctx context.Context, symbol string) (*Profile, error)
	Financials(ctx context.Context, symbol string) (*Financials, error)
	CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]NewsItem, error)
	MarketNews(ctx context.Context, category string) ([]NewsItem, error)
	Candles(ctx context.Context, symbol, resolution string, from, to time.Time) (*CandleSeries, error)
}

// ScreenerRepo 筛选器仓库接口
type ScreenerRepo interface {
	Screen(ctx context.Context, id string, count int) (*ScreenerResult, error)
}

// HeadlineRepo 新闻聚合仓库接口
type HeadlineRepo interface {
	Headlines(ctx context.Context, period string) (*Headlines, error)
	AllHeadlines(ctx context.Context) ([]Headlines, error)
}

// PortfolioRepo 组合仓库接口
type PortfolioRepo interface {
	Portfolios(ctx context.Context, userID string) ([]Portfolio, error)
}

// TradeRepo 成交仓库接口
type TradeRepo interface {
	// SaveTrades 批量保存成交
	SaveTrades(ctx context.Context, trades []Trade) error
	// Trades 按时间倒序返回最近的成交
	Trades(ctx context.Context, symbol string, limit int) ([]Trade, error)
	// Close 关闭仓库连接
	Close() error
}

// MarketUsecase 行情业务逻辑
type MarketUsecase struct {
	market     MarketRepo
	screener   ScreenerRepo
	headlines  HeadlineRepo
	portfolios PortfolioRepo
	trades     TradeRepo
	dashboard  []Listing
	logger     *slog.Logger
	now        func() time.Time
}

// NewMarketUsecase 创建 MarketUsecase. Any repo except market may be nil
// when its collaborator is not configured.
func NewMarketUsecase(market MarketRepo, screener ScreenerRepo, headlines HeadlineRepo, portfolios PortfolioRepo, trades TradeRepo, logger *slog.Logger) *MarketUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketUsecase{
		market:     market,
		screener:   screener,
		headlines:  headlines,
		portfolios: portfolios,
		trades:     trades,
		dashboard:  DashboardTickers,
		logger:     logger,
		now:        time.Now,
	}
}

// ErrNotConfigured is returned when a collaborator has no endpoint configured
var ErrNotConfigured = errors.New("collaborator not configured")

// Quote 获取报价
func (uc *MarketUsecase) Quote(ctx context.Context, ticker string) (*Quote, error) {
	symbol, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	q, err := uc.market.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if q.Empty() {
		return nil, fmt.Errorf("%w for ticker %s", ErrNoData, symbol)
	}
	return q, nil
}

// Quotes 并发获取报价; tickers without data are skipped, order is kept
func (uc *MarketUsecase) Quotes(ctx context.Context, tickers []string) []*Quote {
	results := make([]*Quote, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, t := range tickers {
		g.Go(func() error {
			q, err := uc.Quote(gctx, t)
			if err != nil {
				uc.logger.Warn("failed to fetch stock quote", "ticker", t, "error", err)
				return nil
			}
			results[i] = q
			return nil
		})
	}
	g.Wait()

	quotes := make([]*Quote, 0, len(tickers))
	for _, q := range results {
		if q != nil {
			quotes = append(quotes, q)
		}
	}
	return quotes
}

// Profile 获取公司概况
func (uc *MarketUsecase) Profile(ctx context.Context, ticker string) (*Profile, error) {
	symbol, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	p, err := uc.market.Profile(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: no company profile for %s", ErrNoData, symbol)
	}
	return p, nil
}

// Financials 获取基本财务指标
func (uc *MarketUsecase) Financials(ctx context.Context, ticker string) (*Financials, error) {
	symbol, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	f, err := uc.market.Financials(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(f.Metric) == 0 {
		return nil, fmt.Errorf("%w: no financial data for %s", ErrNoData, symbol)
	}
	return f, nil
}

// CompanyNews 最近 7 天的公司新闻; upstream failures yield an empty list
func (uc *MarketUsecase) CompanyNews(ctx context.Context, ticker string, count int) ([]NewsItem, error) {
	symbol, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = 5
	}
	to := uc.now()
	items, err := uc.market.CompanyNews(ctx, symbol, to.AddDate(0, 0, -7), to)
	if err != nil {
		uc.logger.Warn("failed to fetch company news", "ticker", symbol, "error", err)
		return []NewsItem{}, nil
	}
	return truncate(items, count), nil
}

// MarketNews 市场新闻; upstream failures yield an empty list
func (uc *MarketUsecase) MarketNews(ctx context.Context, count int) []NewsItem {
	if count <= 0 {
		count = 10
	}
	items, err := uc.market.MarketNews(ctx, "general")
	if err != nil {
		uc.logger.Warn("failed to fetch market news", "error", err)
		return []NewsItem{}
	}
	return truncate(items, count)
}

// Candles 获取 K 线
func (uc *MarketUsecase) Candles(ctx context.Context, ticker, rng string) (*CandleSeries, error) {
	symbol, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	if rng == "" {
		rng = DefaultRange
	}
	cr, ok := CandleRanges[rng]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, rng)
	}
	to := uc.now()
	series, err := uc.market.Candles(ctx, symbol, cr.Resolution, to.AddDate(0, 0, -cr.Days), to)
	if err != nil {
		return nil, err
	}
	series.Symbol = symbol
	series.Range = rng
	series.Resolution = cr.Resolution
	return series, nil
}

// Screen 执行预定义筛选
func (uc *MarketUsecase) Screen(ctx context.Context, id string, count int) (*ScreenerResult, error) {
	if !slices.Contains(ScreenerIDs, id) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScreener, id)
	}
	if uc.screener == nil {
		return nil, ErrNotConfigured
	}
	if count <= 0 {
		count = DefaultScreenerCount
	}
	res, err := uc.screener.Screen(ctx, id, count)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch screener stocks: %w", err)
	}
	return res, nil
}

// Headlines 获取新闻聚合
func (uc *MarketUsecase) Headlines(ctx context.Context, period string) (*Headlines, error) {
	if !slices.Contains(HeadlinePeriods, period) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	if uc.headlines == nil {
		return nil, ErrNotConfigured
	}
	return uc.headlines.Headlines(ctx, period)
}

// AllHeadlines 获取全部周期新闻
func (uc *MarketUsecase) AllHeadlines(ctx context.Context) ([]Headlines, error) {
	if uc.headlines == nil {
		return nil, ErrNotConfigured
	}
	return uc.headlines.AllHeadlines(ctx)
}

// Portfolios 获取用户组合
func (uc *MarketUsecase) Portfolios(ctx context.Context, userID string) ([]Portfolio, error) {
	if uc.portfolios == nil {
		return nil, ErrNotConfigured
	}
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	return uc.portfolios.Portfolios(ctx, userID)
}

// RecordTrades 保存 webhook 成交; malformed symbols are dropped
func (uc *MarketUsecase) RecordTrades(ctx context.Context, trades []Trade) (int, error) {
	if uc.trades == nil {
		return 0, ErrNotConfigured
	}
	valid := trades[:0:0]
	for _, t := range trades {
		symbol, err := NormalizeTicker(t.Symbol)
		if err != nil {
			uc.logger.Debug("dropping trade", "symbol", t.Symbol, "error", err)
			continue
		}
		t.Symbol = symbol
		valid = append(valid, t)
	}
	if len(valid) == 0 {
		return 0, nil
	}
	if err := uc.trades.SaveTrades(ctx, valid); err != nil {
		return 0, fmt.Errorf("failed to save trades: %w", err)
	}
	return len(valid), nil
}

// Trades 最近成交
func (uc *MarketUsecase) Trades(ctx context.Context, ticker string, limit int) ([]Trade, error) {
	symbol, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	if uc.trades == nil {
		return nil, ErrNotConfigured
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return uc.trades.Trades(ctx, symbol, limit)
}

func truncate(items []NewsItem, n int) []NewsItem {
	if len(items) > n {
		return items[:n]
	}
	return items
}
