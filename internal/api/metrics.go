package api

import (
	"net/http"
	"strconv"
	"time"

	"stock-dashboard/internal/session"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the dashboard backend.
// Pass to components that need to record metrics.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RefreshOutcomes *prometheus.CounterVec
	GuardRedirects  *prometheus.CounterVec
	SignIns         *prometheus.CounterVec
	WebhookTrades   prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stockdash",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stockdash",
				Name:      "http_request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		RefreshOutcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stockdash",
				Name:      "session_refresh_outcomes_total",
				Help:      "Session refresh attempts by outcome",
			},
			[]string{"outcome", "attempt"},
		),
		GuardRedirects: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stockdash",
				Name:      "guard_redirects_total",
				Help:      "Protected view requests redirected to sign-in",
			},
			[]string{"view"},
		),
		SignIns: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stockdash",
				Name:      "oauth_callbacks_total",
				Help:      "OAuth callbacks by result",
			},
			[]string{"result"}, // result=ok/error
		),
		WebhookTrades: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "stockdash",
				Name:      "webhook_trades_total",
				Help:      "Trades stored from the market data webhook",
			},
		),
	}
}

// RegisterTabs exports the number of attached tabs
func (m *Metrics) RegisterTabs(reg prometheus.Registerer, tabs *session.Registry) {
	promauto.With(reg).NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "stockdash",
			Name:      "attached_tabs",
			Help:      "Number of browser tabs with a hosted session synchronizer",
		},
		func() float64 { return float64(tabs.Len()) },
	)
}

// ObserveRefresh records a refresher outcome
func (m *Metrics) ObserveRefresh(o session.Outcome, attempt int) {
	m.RefreshOutcomes.WithLabelValues(string(o), strconv.Itoa(attempt)).Inc()
}

// ObserveRedirect records a guard redirect for view
func (m *Metrics) ObserveRedirect(view string) {
	m.GuardRedirects.WithLabelValues(view).Inc()
}

// ObserveSignIn records an OAuth callback result
func (m *Metrics) ObserveSignIn(ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	m.SignIns.WithLabelValues(result).Inc()
}

// MetricsMiddleware wraps an HTTP handler to record Prometheus metrics,
// labelled by the matched route template.
func MetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics for /metrics and /health endpoints
			if r.URL.Path == "/metrics" || r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
			metrics.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(wrapped.status)).Inc()
		})
	}
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streams working through the middleware
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
