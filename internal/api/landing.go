package api

import (
	"bytes"
	"html/template"
	"net/http"

	"stock-dashboard/internal/auth"

	"github.com/yuin/goldmark"
)

// bannerMessages maps /?error= codes to the landing banner text
var bannerMessages = map[string]string{
	ErrorAuthRequired:  "Please sign in to access that page.",
	ErrorOAuthFailed:   "Authentication failed. Please try again.",
	ErrorMissingParams: "Authentication error. Please try again.",
	ErrorServerError:   "Server error occurred. Please try again.",
}

// BannerMessage returns the banner for an error code; unknown codes have none
func BannerMessage(code string) (string, bool) {
	msg, ok := bannerMessages[code]
	return msg, ok
}

const landingMarkdown = `# Welcome to Stock0

Your comprehensive stock market dashboard with real-time data,
market analysis, and portfolio management tools.

[Get Started](/dashboard)

## Why Choose Stock0?

- **Real-time Data.** Up-to-the-minute stock prices, market indices, and financial data.
- **Smart Screening.** Filter and discover stocks by sector performance and market cap.
- **Market Analysis.** Charts, headlines, and market sentiment at a glance.
`

var landingPage = template.Must(template.New("landing").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Stock0</title></head>
<body>
{{if .Banner}}<div class="banner error" role="alert">{{.Banner}}{{if .Message}}<div class="detail">{{.Message}}</div>{{end}}</div>
{{end}}<header>{{if .User}}<form class="auth" method="post" action="/auth/logout"><span>{{.User}}</span> <button type="submit">Sign out</button></form>
{{else}}<a class="auth" href="/auth/login">Sign in with Google</a>
{{end}}</header>
<main>{{.Body}}</main>
</body></html>
`))

type landingData struct {
	// User is the signed-in display name, empty for visitors
	User    string
	Banner  string
	Message string
	Body    template.HTML
}

// LandingHandler renders the public landing page with the sign-in banner.
// Mounted behind auth.OptionalAuthMiddleware it offers sign-out to a signed-in user.
type LandingHandler struct {
	body template.HTML
}

// NewLandingHandler renders the landing Markdown once
func NewLandingHandler() (*LandingHandler, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(landingMarkdown), &buf); err != nil {
		return nil, err
	}
	return &LandingHandler{body: template.HTML(buf.String())}, nil
}

func (h *LandingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data := landingData{Body: h.body}
	if user, err := auth.GetUserFromContext(r.Context()); err == nil {
		data.User = user.Name
		if data.User == "" {
			data.User = user.Email
		}
	}
	if msg, ok := BannerMessage(r.URL.Query().Get("error")); ok {
		data.Banner = msg
		data.Message = r.URL.Query().Get("message")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	landingPage.Execute(w, data)
}
