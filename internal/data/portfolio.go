package data

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"stock-dashboard/internal/biz"
)

// portfolioRepo implements biz.PortfolioRepo against the portfolio backend
type portfolioRepo struct {
	baseURL string
	client  *http.Client
}

// NewPortfolioRepo 创建组合仓库
func NewPortfolioRepo(baseURL string, client *http.Client) biz.PortfolioRepo {
	return &portfolioRepo{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

type portfolioResponse struct {
	Success    bool            `json:"success"`
	Portfolios []biz.Portfolio `json:"portfolios"`
	Count      int             `json:"count"`
	Error      string          `json:"error"`
}

func (r *portfolioRepo) Portfolios(ctx context.Context, userID string) ([]biz.Portfolio, error) {
	var resp portfolioResponse
	if err := jwget(ctx, r.client, r.baseURL+"/api/portfolio/"+url.PathEscape(userID), &resp); err != nil {
		return nil, fmt.Errorf("portfolio backend: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("portfolio backend: %w", failure(resp.Error, "failed to fetch portfolios"))
	}
	if resp.Portfolios == nil {
		resp.Portfolios = []biz.Portfolio{}
	}
	return resp.Portfolios, nil
}
