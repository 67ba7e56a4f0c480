package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"stock-dashboard/internal/biz"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// WebhookSecretHeader carries the shared secret of the market data webhook
const WebhookSecretHeader = "X-Finnhub-Secret"

// WebhookHandler receives Finnhub webhook deliveries
type WebhookHandler struct {
	marketService MarketService
	secret        string
	logger        *slog.Logger
	onTrades      func(n int)
}

// NewWebhookHandler creates a webhook handler. An empty secret makes every delivery fail with 500.
func NewWebhookHandler(marketService MarketService, secret string, logger *slog.Logger, onTrades func(n int)) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{marketService: marketService, secret: secret, logger: logger, onTrades: onTrades}
}

// RegisterRoutes 注册路由到 mux.Router
func (h *WebhookHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/finnhub-webhook", h.receive).Methods(http.MethodPost)
	r.HandleFunc("/api/finnhub-webhook", h.describe).Methods(http.MethodGet)
}

// webhookTrade is one trade as delivered: symbol, price, time and volume
type webhookTrade struct {
	S string          `json:"s"`
	P decimal.Decimal `json:"p"`
	T int64           `json:"t"`
	V decimal.Decimal `json:"v"`
}

type webhookPayload struct {
	Type string         `json:"type"`
	Data []webhookTrade `json:"data"`
}

// tradeTime accepts both epoch milliseconds and seconds
func tradeTime(t int64) time.Time {
	if t > 1e12 {
		return time.UnixMilli(t).UTC()
	}
	return time.Unix(t, 0).UTC()
}

func (h *WebhookHandler) receive(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		h.logger.Error("FINNHUB_WEBHOOK_SECRET is not set")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Server configuration error"})
		return
	}
	got := r.Header.Get(WebhookSecretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
		h.logger.Info("invalid webhook secret")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Error("webhook error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	if payload.Type == "trade" && len(payload.Data) > 0 {
		trades := make([]Trade, len(payload.Data))
		for i, t := range payload.Data {
			trades[i] = Trade{Symbol: t.S, Price: t.P, Volume: t.V, Timestamp: tradeTime(t.T)}
		}
		n, err := h.marketService.RecordTrades(r.Context(), trades)
		switch {
		case errors.Is(err, biz.ErrNotConfigured):
			h.logger.Debug("trade storage disabled, dropping trades", "count", len(trades))
		case err != nil:
			h.logger.Error("webhook error", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			return
		default:
			h.logger.Debug("webhook trades stored", "received", len(trades), "stored", n)
			if h.onTrades != nil {
				h.onTrades(n)
			}
		}
	} else {
		h.logger.Debug("webhook received", "type", payload.Type)
	}

	// 必须返回 2xx 以确认接收
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *WebhookHandler) describe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Finnhub webhook endpoint"})
}
