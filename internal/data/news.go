package data

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"stock-dashboard/internal/biz"
)

// headlineRepo implements biz.HeadlineRepo against the news aggregator backend
type headlineRepo struct {
	baseURL string
	client  *http.Client
}

// NewHeadlineRepo 创建新闻聚合仓库
func NewHeadlineRepo(baseURL string, client *http.Client) biz.HeadlineRepo {
	return &headlineRepo{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

type aggregatorArticle struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Snippet  string `json:"snippet"`
}

type aggregatorResponse struct {
	Success bool                `json:"success"`
	Period  string              `json:"period"`
	Title   string              `json:"title"`
	Data    []aggregatorArticle `json:"data"`
	Error   string              `json:"error"`
}

type aggregatorPeriod struct {
	Title string              `json:"title"`
	News  []aggregatorArticle `json:"news"`
	Count int                 `json:"count"`
}

type aggregatorAllResponse struct {
	Success bool                        `json:"success"`
	Title   string                      `json:"title"`
	Data    map[string]aggregatorPeriod `json:"data"`
	Error   string                      `json:"error"`
}

func toArticles(in []aggregatorArticle) []biz.Article {
	out := make([]biz.Article, 0, len(in))
	for _, a := range in {
		out = append(out, biz.Article{Title: a.Title, URL: a.URL, Category: a.Category, Snippet: a.Snippet})
	}
	return out
}

func failure(msg, fallback string) error {
	if msg == "" {
		msg = fallback
	}
	return errors.New(msg)
}

func (r *headlineRepo) Headlines(ctx context.Context, period string) (*biz.Headlines, error) {
	var resp aggregatorResponse
	if err := jwget(ctx, r.client, r.baseURL+"/api/news/"+period, &resp); err != nil {
		return nil, fmt.Errorf("news %s: %w", period, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("news %s: %w", period, failure(resp.Error, "Failed to fetch news"))
	}
	return &biz.Headlines{Period: period, Title: resp.Title, Articles: toArticles(resp.Data)}, nil
}

func (r *headlineRepo) AllHeadlines(ctx context.Context) ([]biz.Headlines, error) {
	var resp aggregatorAllResponse
	if err := jwget(ctx, r.client, r.baseURL+"/api/news/all", &resp); err != nil {
		return nil, fmt.Errorf("news all: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("news all: %w", failure(resp.Error, "Failed to fetch all news"))
	}
	out := make([]biz.Headlines, 0, len(biz.HeadlinePeriods))
	for _, period := range biz.HeadlinePeriods {
		p, ok := resp.Data[period]
		if !ok {
			continue
		}
		out = append(out, biz.Headlines{Period: period, Title: p.Title, Articles: toArticles(p.News)})
	}
	return out, nil
}
