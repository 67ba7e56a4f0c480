package api

import (
	"net/http"

	"stock-dashboard/internal/session"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups the handlers mounted by NewRouter. Auth and Session are nil when authentication is disabled.
type Handlers struct {
	Landing http.Handler
	Auth    *AuthHandler
	Session *SessionHandler
	Views   *ViewHandler
	Market  *MarketHandler
	Webhook *WebhookHandler
	Tabs    *session.Registry

	// Identify resolves the visitor on public pages without requiring a session
	Identify func(http.Handler) http.Handler

	Metrics  *Metrics
	Gatherer prometheus.Gatherer
}

// NewRouter 创建路由并注册所有 handler
func NewRouter(h Handlers, authMiddleware, guard func(http.Handler) http.Handler) *mux.Router {
	r := mux.NewRouter()
	if h.Metrics != nil {
		r.Use(MetricsMiddleware(h.Metrics))
	}

	// Health check endpoint (public, no auth)
	r.HandleFunc("/health", NewHealthHandler(h.Tabs)).Methods(http.MethodGet)
	if h.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	if h.Landing != nil {
		landing := h.Landing
		if h.Identify != nil {
			landing = h.Identify(landing)
		}
		r.Handle("/", landing).Methods(http.MethodGet)
	}

	// Public auth routes (no middleware)
	if h.Auth != nil {
		h.Auth.RegisterRoutes(r, authMiddleware)
	}
	if h.Session != nil {
		h.Session.RegisterRoutes(r)
	}
	if h.Webhook != nil {
		h.Webhook.RegisterRoutes(r)
	}

	// Guarded views
	if h.Views != nil {
		h.Views.RegisterRoutes(r, guard)
	}

	// Protected API routes
	apiRouter := r.PathPrefix("/v1").Subrouter()
	if authMiddleware != nil {
		apiRouter.Use(authMiddleware) // Apply auth middleware
	}
	if h.Market != nil {
		h.Market.RegisterRoutes(apiRouter)
	}

	return r
}
