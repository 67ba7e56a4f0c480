package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"stock-dashboard/internal/auth"
	"stock-dashboard/internal/biz"

	"github.com/gorilla/mux"
)

// MarketHandler 行情接口处理器
type MarketHandler struct {
	marketService MarketService
}

// NewMarketHandler 创建 MarketHandler
func NewMarketHandler(marketService MarketService) *MarketHandler {
	return &MarketHandler{marketService: marketService}
}

// RegisterRoutes 注册路由到 mux.Router
func (h *MarketHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/quote/{ticker}", h.quote).Methods(http.MethodGet)
	r.HandleFunc("/profile/{ticker}", h.profile).Methods(http.MethodGet)
	r.HandleFunc("/financials/{ticker}", h.financials).Methods(http.MethodGet)
	r.HandleFunc("/news", h.marketNews).Methods(http.MethodGet)
	r.HandleFunc("/news/{ticker}", h.companyNews).Methods(http.MethodGet)
	r.HandleFunc("/candles/{ticker}", h.candles).Methods(http.MethodGet)
	r.HandleFunc("/screener/{id}", h.screen).Methods(http.MethodGet)
	r.HandleFunc("/headlines/{period}", h.headlines).Methods(http.MethodGet)
	r.HandleFunc("/portfolios", h.portfolios).Methods(http.MethodGet)
	r.HandleFunc("/trades/{ticker}", h.trades).Methods(http.MethodGet)
}

func (h *MarketHandler) quote(w http.ResponseWriter, r *http.Request) {
	resp, err := h.marketService.Quote(r.Context(), mux.Vars(r)["ticker"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MarketHandler) profile(w http.ResponseWriter, r *http.Request) {
	resp, err := h.marketService.Profile(r.Context(), mux.Vars(r)["ticker"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MarketHandler) financials(w http.ResponseWriter, r *http.Request) {
	resp, err := h.marketService.Financials(r.Context(), mux.Vars(r)["ticker"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MarketHandler) marketNews(w http.ResponseWriter, r *http.Request) {
	resp, err := h.marketService.MarketNews(r.Context(), queryInt(r, "count"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MarketHandler) companyNews(w http.ResponseWriter, r *http.Request) {
	resp, err := h.marketService.CompanyNews(r.Context(), mux.Vars(r)["ticker"], queryInt(r, "count"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MarketHandler) candles(w http.ResponseWriter, r *http.Request) {
	resp, err := h.marketService.Candles(r.Context(), mux.Vars(r)["ticker"], r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MarketHandler) screen(w http.ResponseWriter, r *http.Request) {
	resp, err := h.marketService.Screen(r.Context(), mux.Vars(r)["id"], queryInt(r, "count"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// headlines 新闻聚合; period "all" returns every period keyed by name
func (h *MarketHandler) headlines(w http.ResponseWriter, r *http.Request) {
	period := mux.Vars(r)["period"]
	if period == "all" {
		all, err := h.marketService.AllHeadlines(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		byPeriod := make(map[string]Headlines, len(all))
		for _, hl := range all {
			byPeriod[hl.Period] = hl
		}
		writeJSON(w, http.StatusOK, byPeriod)
		return
	}
	resp, err := h.marketService.Headlines(r.Context(), period)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// portfolios 当前用户的组合
func (h *MarketHandler) portfolios(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	resp, err := h.marketService.Portfolios(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MarketHandler) trades(w http.ResponseWriter, r *http.Request) {
	resp, err := h.marketService.Trades(r.Context(), mux.Vars(r)["ticker"], queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps use case errors to HTTP statuses
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, biz.ErrInvalidTicker),
		errors.Is(err, biz.ErrInvalidRange),
		errors.Is(err, biz.ErrUnknownScreener),
		errors.Is(err, biz.ErrInvalidPeriod):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, biz.ErrNoData):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, biz.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
}

// queryInt returns 0 when the parameter is absent or malformed
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}
