package service

import (
	"context"
	"log/slog"

	"stock-dashboard/internal/api"
	"stock-dashboard/internal/biz"

	"golang.org/x/sync/errgroup"
)

// marketService 行情服务实现
type marketService struct {
	uc     *biz.MarketUsecase
	logger *slog.Logger
}

// NewMarketService 创建 MarketService
func NewMarketService(uc *biz.MarketUsecase, logger *slog.Logger) api.MarketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &marketService{uc: uc, logger: logger}
}

// Dashboard 首页视图
func (s *marketService) Dashboard(ctx context.Context) (*api.DashboardView, error) {
	d := s.uc.Dashboard(ctx)
	view := &api.DashboardView{
		MarketOpen: d.MarketOpen,
		Sentiment:  string(d.Sentiment),
		Quotes:     make([]api.Quote, len(d.Quotes)),
	}
	for i, lq := range d.Quotes {
		view.Quotes[i] = toQuote(lq.Quote)
		view.Quotes[i].ShortName = lq.ShortName
	}
	if d.TopNews != nil {
		n := toNewsItem(*d.TopNews)
		view.TopNews = &n
	}
	return view, nil
}

// Stock 个股视图; only the quote is required, the other panels are dropped on failure
func (s *marketService) Stock(ctx context.Context, ticker, rng string) (*api.StockView, error) {
	if _, ok := biz.CandleRanges[rng]; !ok {
		rng = biz.DefaultRange
	}
	q, err := s.uc.Quote(ctx, ticker)
	if err != nil {
		return nil, err
	}
	quote := toQuote(q)
	view := &api.StockView{Ticker: q.Symbol, Quote: &quote, News: []api.NewsItem{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if p, err := s.uc.Profile(gctx, ticker); err == nil {
			view.Profile = toProfile(p)
		} else {
			s.logger.Debug("stock view without profile", "ticker", ticker, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if f, err := s.uc.Financials(gctx, ticker); err == nil {
			view.Financials = &api.Financials{Symbol: f.Symbol, Metric: f.Metric}
		} else {
			s.logger.Debug("stock view without financials", "ticker", ticker, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if items, err := s.uc.CompanyNews(gctx, ticker, 0); err == nil {
			view.News = toNewsItems(items)
		}
		return nil
	})
	g.Go(func() error {
		if c, err := s.uc.Candles(gctx, ticker, rng); err == nil {
			view.Candles = toCandleSeries(c)
		} else {
			s.logger.Debug("stock view without chart", "ticker", ticker, "error", err)
		}
		return nil
	})
	g.Wait()
	return view, nil
}

func (s *marketService) Quote(ctx context.Context, ticker string) (*api.Quote, error) {
	q, err := s.uc.Quote(ctx, ticker)
	if err != nil {
		return nil, err
	}
	dto := toQuote(q)
	return &dto, nil
}

func (s *marketService) Profile(ctx context.Context, ticker string) (*api.Profile, error) {
	p, err := s.uc.Profile(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return toProfile(p), nil
}

func (s *marketService) Financials(ctx context.Context, ticker string) (*api.Financials, error) {
	f, err := s.uc.Financials(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return &api.Financials{Symbol: f.Symbol, Metric: f.Metric}, nil
}

func (s *marketService) CompanyNews(ctx context.Context, ticker string, count int) ([]api.NewsItem, error) {
	items, err := s.uc.CompanyNews(ctx, ticker, count)
	if err != nil {
		return nil, err
	}
	return toNewsItems(items), nil
}

func (s *marketService) MarketNews(ctx context.Context, count int) ([]api.NewsItem, error) {
	return toNewsItems(s.uc.MarketNews(ctx, count)), nil
}

func (s *marketService) Candles(ctx context.Context, ticker, rng string) (*api.CandleSeries, error) {
	c, err := s.uc.Candles(ctx, ticker, rng)
	if err != nil {
		return nil, err
	}
	return toCandleSeries(c), nil
}

func (s *marketService) Screeners() []string {
	return biz.ScreenerIDs
}

func (s *marketService) Screen(ctx context.Context, id string, count int) (*api.ScreenerResult, error) {
	r, err := s.uc.Screen(ctx, id, count)
	if err != nil {
		return nil, err
	}
	return &api.ScreenerResult{
		ID:     r.ID,
		Title:  r.Title,
		Count:  r.Count,
		Start:  r.Start,
		Total:  r.Total,
		Quotes: r.Quotes,
	}, nil
}

func (s *marketService) Headlines(ctx context.Context, period string) (*api.Headlines, error) {
	h, err := s.uc.Headlines(ctx, period)
	if err != nil {
		return nil, err
	}
	dto := toHeadlines(*h)
	return &dto, nil
}

func (s *marketService) AllHeadlines(ctx context.Context) ([]api.Headlines, error) {
	all, err := s.uc.AllHeadlines(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]api.Headlines, len(all))
	for i, h := range all {
		result[i] = toHeadlines(h)
	}
	return result, nil
}

func (s *marketService) Portfolios(ctx context.Context, userID string) (*api.PortfolioList, error) {
	ps, err := s.uc.Portfolios(ctx, userID)
	if err != nil {
		return nil, err
	}
	list := &api.PortfolioList{Success: true, Portfolios: make([]map[string]any, len(ps)), Count: len(ps)}
	for i, p := range ps {
		list.Portfolios[i] = p
	}
	return list, nil
}

// RecordTrades api DTO -> biz
func (s *marketService) RecordTrades(ctx context.Context, trades []api.Trade) (int, error) {
	bizTrades := make([]biz.Trade, len(trades))
	for i, t := range trades {
		bizTrades[i] = biz.Trade{Symbol: t.Symbol, Price: t.Price, Volume: t.Volume, Time: t.Timestamp}
	}
	return s.uc.RecordTrades(ctx, bizTrades)
}

func (s *marketService) Trades(ctx context.Context, ticker string, limit int) ([]api.Trade, error) {
	trades, err := s.uc.Trades(ctx, ticker, limit)
	if err != nil {
		return nil, err
	}
	result := make([]api.Trade, len(trades))
	for i, t := range trades {
		result[i] = api.Trade{Symbol: t.Symbol, Price: t.Price, Volume: t.Volume, Timestamp: t.Time}
	}
	return result, nil
}

// biz -> api DTO 转换

func toQuote(q *biz.Quote) api.Quote {
	return api.Quote{
		Symbol:        q.Symbol,
		Current:       q.Current,
		Change:        q.Change,
		PercentChange: q.PercentChange,
		High:          q.High,
		Low:           q.Low,
		Open:          q.Open,
		PreviousClose: q.PreviousClose,
		Timestamp:     q.Timestamp,
	}
}

func toProfile(p *biz.Profile) *api.Profile {
	return &api.Profile{
		Symbol:           p.Symbol,
		Name:             p.Name,
		Country:          p.Country,
		Currency:         p.Currency,
		Exchange:         p.Exchange,
		Industry:         p.Industry,
		IPO:              p.IPO,
		Logo:             p.Logo,
		Phone:            p.Phone,
		WebURL:           p.WebURL,
		MarketCap:        p.MarketCap,
		ShareOutstanding: p.ShareOutstanding,
	}
}

func toNewsItem(n biz.NewsItem) api.NewsItem {
	return api.NewsItem{
		ID:       n.ID,
		Category: n.Category,
		Datetime: n.Datetime,
		Headline: n.Headline,
		Image:    n.Image,
		Related:  n.Related,
		Source:   n.Source,
		Summary:  n.Summary,
		URL:      n.URL,
	}
}

func toNewsItems(items []biz.NewsItem) []api.NewsItem {
	result := make([]api.NewsItem, len(items))
	for i, n := range items {
		result[i] = toNewsItem(n)
	}
	return result
}

func toCandleSeries(c *biz.CandleSeries) *api.CandleSeries {
	series := &api.CandleSeries{
		Symbol:     c.Symbol,
		Range:      c.Range,
		Resolution: c.Resolution,
		Status:     c.Status,
		Candles:    make([]api.Candle, len(c.Candles)),
	}
	for i, k := range c.Candles {
		series.Candles[i] = api.Candle{Time: k.Time, Open: k.Open, High: k.High, Low: k.Low, Close: k.Close, Volume: k.Volume}
	}
	return series
}

func toHeadlines(h biz.Headlines) api.Headlines {
	articles := make([]api.Article, len(h.Articles))
	for i, a := range h.Articles {
		articles[i] = api.Article{Title: a.Title, URL: a.URL, Category: a.Category, Snippet: a.Snippet}
	}
	return api.Headlines{Period: h.Period, Title: h.Title, Articles: articles, Count: len(articles)}
}
