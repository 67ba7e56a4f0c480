package api

import (
	"net/http"
	"slices"

	"stock-dashboard/internal/auth"

	"github.com/gorilla/mux"
)

// ViewHandler serves the protected views. Every route runs behind the route guard.
type ViewHandler struct {
	marketService MarketService
}

// NewViewHandler 创建 ViewHandler
func NewViewHandler(marketService MarketService) *ViewHandler {
	return &ViewHandler{marketService: marketService}
}

// RegisterRoutes registers the views, each wrapped in guard
func (h *ViewHandler) RegisterRoutes(r *mux.Router, guard func(http.Handler) http.Handler) {
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}
	r.Handle("/dashboard", guard(http.HandlerFunc(h.dashboard))).Methods(http.MethodGet)
	r.Handle("/stocks/{ticker}", guard(http.HandlerFunc(h.stock))).Methods(http.MethodGet)
	r.Handle("/screener", guard(http.HandlerFunc(h.screener))).Methods(http.MethodGet)
	r.Handle("/portfolio", guard(http.HandlerFunc(h.portfolio))).Methods(http.MethodGet)
}

func currentUser(r *http.Request) *UserInfo {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		return nil
	}
	return &UserInfo{UserID: user.ID, Email: user.Email, Name: user.Name}
}

func (h *ViewHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.marketService.Dashboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	view.User = currentUser(r)
	writeJSON(w, http.StatusOK, view)
}

// stock 个股页; an unknown range falls back to the default
func (h *ViewHandler) stock(w http.ResponseWriter, r *http.Request) {
	view, err := h.marketService.Stock(r.Context(), mux.Vars(r)["ticker"], r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// screener lists the predefined screeners and runs the selected one
func (h *ViewHandler) screener(w http.ResponseWriter, r *http.Request) {
	view := ScreenerView{Screeners: h.marketService.Screeners()}
	id := r.URL.Query().Get("id")
	if id == "" {
		id = view.Screeners[0]
	}
	if !slices.Contains(view.Screeners, id) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown screener " + id})
		return
	}
	result, err := h.marketService.Screen(r.Context(), id, queryInt(r, "count"))
	if err != nil {
		writeError(w, err)
		return
	}
	view.Result = result
	writeJSON(w, http.StatusOK, view)
}

func (h *ViewHandler) portfolio(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	list, err := h.marketService.Portfolios(r.Context(), user.UserID)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "portfolios": []any{}, "count": 0, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, list)
}
