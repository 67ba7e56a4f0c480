package conf

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  log_level: debug\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != ":3000" || cfg.Server.Env != "development" {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
	if cfg.Auth.Kind != "appwrite" {
		t.Errorf("Auth.Kind = %q, want appwrite", cfg.Auth.Kind)
	}
	if !reflect.DeepEqual(cfg.Session.LandingViews, []string{"/dashboard"}) {
		t.Errorf("LandingViews = %v", cfg.Session.LandingViews)
	}
	if cfg.Session.MaxRetries == nil || *cfg.Session.MaxRetries != 3 || cfg.Session.RetryDelay != 500*time.Millisecond {
		t.Errorf("retry defaults = %v/%v", cfg.Session.MaxRetries, cfg.Session.RetryDelay)
	}
	if len(cfg.Market.Tickers) != 8 {
		t.Errorf("Tickers = %v", cfg.Market.Tickers)
	}
}

func TestLoad_ZeroRetriesKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, "session:\n  max_retries: 0\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Session.MaxRetries == nil || *cfg.Session.MaxRetries != 0 {
		t.Errorf("MaxRetries = %v, want 0", cfg.Session.MaxRetries)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_BASE_URL", "https://stocks.example.com")
	t.Setenv("APP_ENV", "production")
	t.Setenv("APPWRITE_PROJECT_ID", "proj")
	t.Setenv("FINNHUB_API_KEY", "fh-key")
	t.Setenv("FINNHUB_WEBHOOK_SECRET", "hook")

	cfg, err := Load(writeConfig(t, `
server:
  base_url: http://localhost:3000
session:
  retry_delay: 250ms
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.BaseURL != "https://stocks.example.com" || !cfg.Server.Production() {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Auth.ProjectID != "proj" {
		t.Errorf("ProjectID = %q", cfg.Auth.ProjectID)
	}
	if cfg.Market.FinnhubAPIKey != "fh-key" || cfg.Market.WebhookSecret != "hook" {
		t.Errorf("market = %+v", cfg.Market)
	}
	if cfg.Session.RetryDelay != 250*time.Millisecond {
		t.Errorf("RetryDelay = %v", cfg.Session.RetryDelay)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "unknown provider kind", body: "auth:\n  kind: saml\n", wantErr: "Config.Auth.Kind must be one of"},
		{name: "bad env", body: "server:\n  env: staging\n", wantErr: "Config.Server.Env must be one of"},
		{name: "oidc without client", body: "auth:\n  enabled: true\n  kind: oidc\n", wantErr: "oidc requires provider"},
		{name: "too many retries", body: "session:\n  max_retries: 50\n", wantErr: "MaxRetries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestMissing(t *testing.T) {
	cfg := &Config{Auth: Auth{Enabled: true, Kind: "appwrite", Endpoint: "https://cloud.appwrite.io/v1"}}
	got := cfg.Missing()
	want := []string{"APPWRITE_PROJECT_ID", "APPWRITE_DATABASE_ID"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Missing() = %v, want %v", got, want)
	}

	cfg.Auth.Enabled = false
	if got := cfg.Missing(); got != nil {
		t.Errorf("Missing() with auth disabled = %v", got)
	}
}

func TestGetRedirectURL(t *testing.T) {
	a := &Auth{}
	if got := a.GetRedirectURL("http://localhost:3000/"); got != "http://localhost:3000/auth/callback" {
		t.Errorf("GetRedirectURL() = %q", got)
	}
	a.RedirectURL = "https://id.example.com/cb"
	if got := a.GetRedirectURL("http://localhost:3000"); got != a.RedirectURL {
		t.Errorf("GetRedirectURL() = %q", got)
	}
}
