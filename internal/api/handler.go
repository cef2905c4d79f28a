package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ipsguard/internal/blocklist"
	"ipsguard/internal/collector"
	"ipsguard/internal/logger"
	"ipsguard/internal/session"
	"ipsguard/pkg/models"
)

// StartTimeLayout renders alert start times for the dashboard table.
const StartTimeLayout = "01/02/2006, 15:04:05"

// Dashboard is the session surface the API reads from and commands.
type Dashboard interface {
	Alerts() []models.Alert
	Blocked() []string
	Collectors() models.CollectorState
	Unblock(ctx context.Context, addr string) error
	Toggle(ctx context.Context, name string) error
}

// AlertView is an alert with display fields derived for the table.
type AlertView struct {
	models.Alert
	StatusDot        string `json:"status_dot"`
	StartTimeDisplay string `json:"start_time_display"`
}

// CollectorsView is the tri-state collector flags with the derived directive.
type CollectorsView struct {
	models.CollectorState
	AvoidBlocking bool `json:"avoid_blocking"`
}

// Handler serves dashboard reads and operator commands.
type Handler struct {
	dash Dashboard
	loc  *time.Location
}

// NewHandler creates a handler rendering times in loc.
func NewHandler(dash Dashboard, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{dash: dash, loc: loc}
}

// Routes mounts the dashboard endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/alerts", h.ListAlerts)
	r.Get("/blocked", h.ListBlocked)
	r.Post("/blocked/{addr}/unblock", h.Unblock)
	r.Get("/collectors", h.GetCollectors)
	r.Post("/collectors/{name}/toggle", h.Toggle)
	return r
}

func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.dash.Alerts()
	out := make([]AlertView, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, h.view(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) view(a models.Alert) AlertView {
	dot := "red"
	if a.Active() {
		dot = "green"
	}
	display := "—"
	if !a.StartTime.IsZero() {
		display = a.StartTime.In(h.loc).Format(StartTimeLayout)
	}
	return AlertView{Alert: a, StatusDot: dot, StartTimeDisplay: display}
}

func (h *Handler) ListBlocked(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dash.Blocked())
}

func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "addr")
	if err := h.dash.Unblock(r.Context(), addr); err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetCollectors(w http.ResponseWriter, r *http.Request) {
	state := h.dash.Collectors()
	writeJSON(w, http.StatusOK, CollectorsView{CollectorState: state, AvoidBlocking: collector.AvoidBlocking(state)})
}

func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	if err := h.dash.Toggle(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeCommandError(w, err)
		return
	}
	state := h.dash.Collectors()
	writeJSON(w, http.StatusOK, CollectorsView{CollectorState: state, AvoidBlocking: collector.AvoidBlocking(state)})
}

func writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, collector.ErrUnknownCollector), errors.Is(err, blocklist.ErrEmptyAddress):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Errorf("Operator command failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
