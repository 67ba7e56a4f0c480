package data

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"stock-dashboard/internal/biz"

	"github.com/PaesslerAG/jsonpath"
)

const screenerResultPath = "$.finance.result[0]"

// yahooRepo implements biz.ScreenerRepo with the predefined screener endpoint
type yahooRepo struct {
	baseURL string
	client  *http.Client
}

// NewYahooRepo 创建 yahoo 筛选器仓库
func NewYahooRepo(baseURL string, client *http.Client) biz.ScreenerRepo {
	return &yahooRepo{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

func (r *yahooRepo) Screen(ctx context.Context, id string, count int) (*biz.ScreenerResult, error) {
	q := url.Values{}
	q.Set("scrIds", id)
	q.Set("count", strconv.Itoa(count))
	q.Set("region", "US")
	q.Set("lang", "en-US")
	addr := r.baseURL + "/v1/finance/screener/predefined/saved?" + q.Encode()

	var doc any
	if err := jwget(ctx, r.client, addr, &doc); err != nil {
		return nil, fmt.Errorf("yahoo screener %s: %w", id, err)
	}
	return parseScreener(id, doc)
}

// parseScreener extracts the first screener result from a decoded response
func parseScreener(id string, doc any) (*biz.ScreenerResult, error) {
	jval, err := jsonpath.Get(screenerResultPath, doc)
	if err != nil {
		return nil, fmt.Errorf("error parsing %q: %q %w", id, screenerResultPath, err)
	}
	// jsonpath may wrap a single answer in a list; keep the first one if any
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	obj, ok := jval.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: screener %s returned no result", biz.ErrNoData, id)
	}

	res := &biz.ScreenerResult{
		ID:     id,
		Title:  stringField(obj, "title"),
		Count:  intField(obj, "count"),
		Start:  intField(obj, "start"),
		Total:  intField(obj, "total"),
		Quotes: []map[string]any{},
	}
	if quotes, ok := obj["quotes"].([]any); ok {
		for _, q := range quotes {
			if m, ok := q.(map[string]any); ok {
				res.Quotes = append(res.Quotes, m)
			}
		}
	}
	return res, nil
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func intField(obj map[string]any, key string) int {
	f, _ := obj[key].(float64)
	return int(f)
}
