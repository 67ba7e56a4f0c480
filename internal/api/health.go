package api

import (
	"net/http"
	"time"

	"stock-dashboard/internal/session"
)

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Auth      bool   `json:"auth"`
	Tabs      int    `json:"tabs"`
}

// NewHealthHandler reports liveness and the number of attached tabs.
// tabs is nil when authentication is disabled.
func NewHealthHandler(tabs *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().Unix(),
			Auth:      tabs != nil,
		}
		if tabs != nil {
			resp.Tabs = tabs.Len()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
