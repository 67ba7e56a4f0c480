package conf

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the config structure.
type Config struct {
	Server  Server  `yaml:"server"`
	Auth    Auth    `yaml:"auth"`
	Session Session `yaml:"session"`
	Market  Market  `yaml:"market"`
	Data    Data    `yaml:"data"`
}

// Server is the server config.
type Server struct {
	BaseURL  string `yaml:"base_url" validate:"required,url"`
	Addr     string `yaml:"addr" validate:"required"`
	Env      string `yaml:"env" validate:"omitempty,oneof=development production test"`
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// Production reports whether cookies must be marked Secure
func (s *Server) Production() bool {
	return s.Env == "production"
}

// Auth is the authentication config.
type Auth struct {
	Enabled bool `yaml:"enabled"`
	// Kind selects the identity provider: appwrite or oidc
	Kind string `yaml:"kind" validate:"omitempty,oneof=appwrite oidc"`

	// Appwrite
	Endpoint      string `yaml:"endpoint" validate:"omitempty,url"`
	ProjectID     string `yaml:"project_id"`
	DatabaseID    string `yaml:"database_id"`
	OAuthProvider string `yaml:"oauth_provider"`

	// OIDC
	Provider     string   `yaml:"provider" validate:"omitempty,url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"` // Optional: if not set, auto-constructed from server.base_url
	Scopes       []string `yaml:"scopes"`
}

// GetRedirectURL returns the OAuth callback URL
// If RedirectURL is explicitly configured, use it
// Otherwise, construct from server base_url + hardcoded callback path
func (a *Auth) GetRedirectURL(serverBaseURL string) string {
	if a.RedirectURL != "" {
		return a.RedirectURL
	}
	return strings.TrimSuffix(serverBaseURL, "/") + "/auth/callback"
}

// Session configures the per-tab session synchronizers.
type Session struct {
	LandingViews   []string      `yaml:"landing_views"`
	MaxRetries     *int          `yaml:"max_retries" validate:"omitempty,gte=0,lte=10"` // 0 disables retries
	RetryDelay     time.Duration `yaml:"retry_delay"`
	TabIdleTimeout time.Duration `yaml:"tab_idle_timeout"`
	// ResolveTimeout bounds how long a guarded view waits for the session
	ResolveTimeout time.Duration `yaml:"resolve_timeout"`
}

// Market configures the market-data collaborators.
type Market struct {
	FinnhubURL    string   `yaml:"finnhub_url" validate:"required,url"`
	FinnhubAPIKey string   `yaml:"finnhub_api_key"`
	WebhookSecret string   `yaml:"webhook_secret"`
	YahooURL      string   `yaml:"yahoo_url" validate:"required,url"`
	NewsAPIURL    string   `yaml:"news_api_url" validate:"omitempty,url"`
	BackendAPIURL string   `yaml:"backend_api_url" validate:"omitempty,url"`
	Tickers       []string `yaml:"tickers"`
	// Timeout applies to every outbound market request
	Timeout time.Duration `yaml:"timeout"`
}

// Data is the local storage config.
type Data struct {
	Path string `yaml:"path" validate:"required"`
}

// DefaultTickers are shown on the dashboard when none are configured
var DefaultTickers = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "META", "NVDA", "NFLX"}

// Load loads config from file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	// Override server config from env vars if present
	if baseURL := os.Getenv("SERVER_BASE_URL"); baseURL != "" {
		c.Server.BaseURL = baseURL
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		c.Server.Env = env
	}

	// Override auth config from env vars if present
	if v := os.Getenv("APPWRITE_ENDPOINT"); v != "" {
		c.Auth.Endpoint = v
	}
	if v := os.Getenv("APPWRITE_PROJECT_ID"); v != "" {
		c.Auth.ProjectID = v
	}
	if v := os.Getenv("APPWRITE_DATABASE_ID"); v != "" {
		c.Auth.DatabaseID = v
	}
	if secret := os.Getenv("OIDC_CLIENT_SECRET"); secret != "" {
		c.Auth.ClientSecret = secret
	}
	if provider := os.Getenv("OIDC_PROVIDER"); provider != "" {
		c.Auth.Provider = provider
	}
	if redirectURL := os.Getenv("OIDC_REDIRECT_URL"); redirectURL != "" {
		c.Auth.RedirectURL = redirectURL
	}

	// Market collaborators
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Market.FinnhubAPIKey = v
	}
	if v := os.Getenv("FINNHUB_WEBHOOK_SECRET"); v != "" {
		c.Market.WebhookSecret = v
	}
	if v := os.Getenv("NEWS_API_URL"); v != "" {
		c.Market.NewsAPIURL = v
	}
	if v := os.Getenv("BACKEND_API_URL"); v != "" {
		c.Market.BackendAPIURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:3000"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Auth.Kind == "" {
		c.Auth.Kind = "appwrite"
	}
	if c.Auth.OAuthProvider == "" {
		c.Auth.OAuthProvider = "google"
	}
	if len(c.Auth.Scopes) == 0 {
		c.Auth.Scopes = []string{"openid", "profile", "email"}
	}
	if len(c.Session.LandingViews) == 0 {
		c.Session.LandingViews = []string{"/dashboard"}
	}
	if c.Session.MaxRetries == nil {
		retries := 3
		c.Session.MaxRetries = &retries
	}
	if c.Session.RetryDelay == 0 {
		c.Session.RetryDelay = 500 * time.Millisecond
	}
	if c.Session.TabIdleTimeout == 0 {
		c.Session.TabIdleTimeout = 10 * time.Minute
	}
	if c.Session.ResolveTimeout == 0 {
		c.Session.ResolveTimeout = 3 * time.Second
	}
	if c.Market.FinnhubURL == "" {
		c.Market.FinnhubURL = "https://finnhub.io/api/v1"
	}
	if c.Market.YahooURL == "" {
		c.Market.YahooURL = "https://query1.finance.yahoo.com"
	}
	if len(c.Market.Tickers) == 0 {
		c.Market.Tickers = DefaultTickers
	}
	if c.Market.Timeout == 0 {
		c.Market.Timeout = 10 * time.Second
	}
	if c.Data.Path == "" {
		c.Data.Path = "data/market.db"
	}
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if c.Auth.Enabled && c.Auth.Kind == "oidc" {
		if c.Auth.Provider == "" || c.Auth.ClientID == "" {
			return errors.New("auth: oidc requires provider and client_id")
		}
	}
	if c.Session.RetryDelay < 0 || c.Session.ResolveTimeout < 0 {
		return errors.New("session: durations must not be negative")
	}
	return nil
}

// Missing lists the identity provider settings that are not configured.
// They are reported as warnings; the server still starts.
func (c *Config) Missing() []string {
	if !c.Auth.Enabled || c.Auth.Kind != "appwrite" {
		return nil
	}
	var missing []string
	if c.Auth.Endpoint == "" {
		missing = append(missing, "APPWRITE_ENDPOINT")
	}
	if c.Auth.ProjectID == "" {
		missing = append(missing, "APPWRITE_PROJECT_ID")
	}
	if c.Auth.DatabaseID == "" {
		missing = append(missing, "APPWRITE_DATABASE_ID")
	}
	return missing
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Namespace()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", e.Namespace(), e.Param()))
		case "url":
			messages = append(messages, fmt.Sprintf("%s must be a valid URL", e.Namespace()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed %s validation", e.Namespace(), e.Tag()))
		}
	}
	return errors.New(strings.Join(messages, "; "))
}
