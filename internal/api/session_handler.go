package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"stock-dashboard/internal/auth"
	"stock-dashboard/internal/session"

	"github.com/gorilla/mux"
)

const keepAliveInterval = 25 * time.Second

// SessionHandler hosts the per-tab session synchronizers
type SessionHandler struct {
	tabs     *session.Registry
	provider auth.IdentityProvider
	cookies  auth.Cookies
	logger   *slog.Logger
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(tabs *session.Registry, p auth.IdentityProvider, cookies auth.Cookies, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{tabs: tabs, provider: p, cookies: cookies, logger: logger}
}

// RegisterRoutes 注册路由到 mux.Router
func (h *SessionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/session/stream", h.stream).Methods(http.MethodGet)
	r.HandleFunc("/api/session/trigger", h.trigger).Methods(http.MethodPost)
}

// stateEvent is the payload of an SSE state event
type stateEvent struct {
	Identity *session.Identity `json:"identity"`
	Loading  bool              `json:"loading"`
	Status   session.Status    `json:"status"`
	Version  uint64            `json:"version"`
}

func newStateEvent(st session.State) stateEvent {
	return stateEvent{Identity: st.Identity, Loading: st.Loading, Status: st.Status(), Version: st.Version}
}

// stream attaches a tab and pushes its session state (SSE)
func (h *SessionHandler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	q := r.URL.Query()
	view := q.Get("view")
	if view == "" {
		view = "/"
	}
	secret := h.cookies.Secret(r)

	// 有 cookie 时服务端预先解析身份作为初始状态
	var seed *session.Identity
	if secret != "" {
		if id, err := h.provider.CurrentIdentity(r.Context(), secret); err == nil {
			seed = id
		}
	}

	tab, created := h.tabs.Open(q.Get("tab"), secret, view, seed)
	detach := tab.Attach()
	defer detach()

	// 设置 SSE 响应头
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // 禁用 nginx 缓冲

	states := make(chan session.State, 1)
	unsubscribe := tab.Store.Subscribe(func(st session.State) { offerLatest(states, st) })
	defer unsubscribe()

	info, _ := json.Marshal(map[string]any{"tab": tab.ID, "is_new": created})
	fmt.Fprintf(w, "event: info\ndata: %s\n\n", info)
	writeState(w, tab.Store.Read())
	flusher.Flush()

	if created {
		go tab.Refresher.Mount(tab.Context())
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-tab.Context().Done():
			fmt.Fprintf(w, "event: closed\ndata: {}\n\n")
			flusher.Flush()
			return
		case st := <-states:
			writeState(w, st)
			flusher.Flush()
		case <-keepAlive.C:
			fmt.Fprintf(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

// offerLatest leaves the newest state in the single-slot ch, replacing
// whatever a slow reader has not taken yet.
func offerLatest(ch chan session.State, st session.State) {
	for {
		select {
		case ch <- st:
			return
		case pending := <-ch:
			if pending.Version > st.Version {
				st = pending
			}
		}
	}
}

func writeState(w http.ResponseWriter, st session.State) {
	data, _ := json.Marshal(newStateEvent(st))
	fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
}

// TriggerRequest 标签页上报的环境事件
type TriggerRequest struct {
	Tab   string `json:"tab"`
	Event string `json:"event"`
	View  string `json:"view,omitempty"`
}

// TriggerResponse reports whether a refresh cycle started
type TriggerResponse struct {
	Ran   bool       `json:"ran"`
	State stateEvent `json:"state"`
}

// trigger runs a refresh for a focus, visibility, popstate or storage event
func (h *SessionHandler) trigger(w http.ResponseWriter, r *http.Request) {
	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}
	ev, ok := session.ParseEvent(req.Event)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown event %q", req.Event)})
		return
	}
	tab, ok := h.tabs.Get(req.Tab)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "tab not found"})
		return
	}

	if req.View != "" {
		tab.SetView(req.View)
	}
	tab.SetSecret(h.cookies.Secret(r))

	ran := tab.Refresher.Trigger(tab.Context(), ev)
	h.logger.Debug("session trigger", "tab", tab.ID, "event", ev, "ran", ran)
	writeJSON(w, http.StatusAccepted, TriggerResponse{Ran: ran, State: newStateEvent(tab.Store.Read())})
}
