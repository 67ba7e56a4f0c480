package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stock-dashboard/internal/api"
	"stock-dashboard/internal/auth"
	"stock-dashboard/internal/biz"
	"stock-dashboard/internal/conf"
	"stock-dashboard/internal/data"
	"stock-dashboard/internal/server"
	"stock-dashboard/internal/service"
	"stock-dashboard/internal/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var flagconf string

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func main() {
	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// load config
	cfg, err := conf.Load(flagconf)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	for _, name := range cfg.Missing() {
		logger.Warn("identity provider setting missing", "env", name)
	}

	// 手动依赖注入
	// data 层
	db, err := data.OpenDB(cfg.Data.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.Data.Path, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cache := data.NewResponseCache(db, logger)
	cache.StartPurge(ctx, 10*time.Minute)
	clients := data.NewClientFactory(cache, cfg.Market.Timeout)

	marketRepo := data.NewFinnhubRepo(cfg.Market.FinnhubURL, cfg.Market.FinnhubAPIKey, clients.Finnhub())
	screenerRepo := data.NewYahooRepo(cfg.Market.YahooURL, clients.Uncached())
	tradeRepo := data.NewSQLiteTradeRepo(db)
	var headlineRepo biz.HeadlineRepo
	if cfg.Market.NewsAPIURL != "" {
		headlineRepo = data.NewHeadlineRepo(cfg.Market.NewsAPIURL, clients.Aggregator())
	}
	var portfolioRepo biz.PortfolioRepo
	if cfg.Market.BackendAPIURL != "" {
		portfolioRepo = data.NewPortfolioRepo(cfg.Market.BackendAPIURL, clients.Uncached())
	}

	// biz 层
	marketUsecase := biz.NewMarketUsecase(marketRepo, screenerRepo, headlineRepo, portfolioRepo, tradeRepo, logger)
	marketUsecase.SetDashboardTickers(cfg.Market.Tickers)
	// service 层
	marketService := service.NewMarketService(marketUsecase, logger)

	// metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := api.NewMetrics(reg)

	landing, err := api.NewLandingHandler()
	if err != nil {
		logger.Error("failed to render landing page", "error", err)
		os.Exit(1)
	}
	handlers := api.Handlers{
		Landing:  landing,
		Views:    api.NewViewHandler(marketService),
		Market:   api.NewMarketHandler(marketService),
		Webhook:  api.NewWebhookHandler(marketService, cfg.Market.WebhookSecret, logger, func(n int) { metrics.WebhookTrades.Add(float64(n)) }),
		Metrics:  metrics,
		Gatherer: reg,
	}

	// auth 层
	var authMiddleware, guard func(http.Handler) http.Handler
	var tabs *session.Registry

	if cfg.Auth.Enabled {
		var provider auth.IdentityProvider
		projectID := cfg.Auth.ProjectID
		switch cfg.Auth.Kind {
		case "oidc":
			states := auth.NewStateStore()
			states.StartCleanup(ctx)
			redirectURL := cfg.Auth.GetRedirectURL(cfg.Server.BaseURL)
			oidcClient, err := auth.NewOIDCClient(ctx, &cfg.Auth, redirectURL, states)
			if err != nil {
				logger.Error("failed to init OIDC client", "error", err)
				os.Exit(1)
			}
			provider = oidcClient
			if projectID == "" {
				projectID = cfg.Auth.ClientID
			}
			logger.Info("OIDC authentication enabled", "redirect_url", redirectURL)
		default:
			provider = auth.NewAppwriteClient(&cfg.Auth, &http.Client{Timeout: cfg.Market.Timeout})
			logger.Info("Appwrite authentication enabled", "endpoint", cfg.Auth.Endpoint, "project", projectID)
		}
		cookies := auth.Cookies{ProjectID: projectID, Secure: cfg.Server.Production()}

		tabs = session.NewRegistry(provider.CurrentIdentity, session.RegistryConfig{
			LandingViews: cfg.Session.LandingViews,
			MaxRetries:   cfg.Session.MaxRetries,
			RetryDelay:   cfg.Session.RetryDelay,
			IdleTimeout:  cfg.Session.TabIdleTimeout,
			Logger:       logger,
			OutcomeHook:  metrics.ObserveRefresh,
		})
		tabs.StartCleanup(ctx)
		metrics.RegisterTabs(reg, tabs)

		routeGuard := auth.NewRouteGuard(provider, cookies, auth.GuardConfig{
			LandingViews: cfg.Session.LandingViews,
			MaxRetries:   cfg.Session.MaxRetries,
			RetryDelay:   cfg.Session.RetryDelay,
			Timeout:      cfg.Session.ResolveTimeout,
			Logger:       logger,
			OnOutcome:    metrics.ObserveRefresh,
			OnRedirect:   metrics.ObserveRedirect,
		})
		guard = routeGuard.Middleware
		authMiddleware = auth.AuthMiddleware(provider, cookies)

		signOut := auth.NewSignOut(provider, cookies, tabs, logger)
		handlers.Auth = api.NewAuthHandler(provider, cookies, signOut, cfg.Server.BaseURL, cfg.Session.LandingViews[0], logger)
		handlers.Auth.OnSignIn(metrics.ObserveSignIn)
		handlers.Session = api.NewSessionHandler(tabs, provider, cookies, logger)
		handlers.Tabs = tabs
		handlers.Identify = auth.OptionalAuthMiddleware(provider, cookies)
	} else {
		// Auth disabled, use no-op middleware
		authMiddleware = func(next http.Handler) http.Handler { return next }
		logger.Info("authentication disabled")
	}

	// api 层
	router := api.NewRouter(handlers, authMiddleware, guard)

	onClose := func() {}
	if tabs != nil {
		onClose = tabs.CloseAll
	}
	srv := server.New(cfg.Server.Addr, router, logger, onClose)
	logger.Info("server starting", "addr", cfg.Server.Addr, "env", cfg.Server.Env)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down...")
}
