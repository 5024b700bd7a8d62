package handlers

import (
	"net/http"
	"time"

	"github.com/MoonsunCreations/Moonsun-Store/internal/platform/httpx"
)

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	started  time.Time
	now      func() time.Time
	ready    func() error
	products func() int
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// WithHealthClock injects a clock for tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.now = clock
		}
	}
}

// WithReadiness makes /readyz report the error returned by check.
func WithReadiness(check func() error) HealthOption {
	return func(h *HealthHandlers) {
		h.ready = check
	}
}

// WithProductCount reports the active catalog size on /healthz.
func WithProductCount(count func() int) HealthOption {
	return func(h *HealthHandlers) {
		h.products = count
	}
}

// NewHealthHandlers builds probe handlers.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	h.started = h.now()
	return h
}

// Healthz reports liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	payload := map[string]any{
		"status":    "ok",
		"uptime":    now.Sub(h.started).Round(time.Second).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	}
	if h.products != nil {
		payload["products"] = h.products()
	}
	httpx.WriteJSON(w, http.StatusOK, payload)
}

// Readyz reports whether the catalog has been loaded.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			httpx.WriteError(r.Context(), w, httpx.NewError("not_ready", err.Error(), http.StatusServiceUnavailable))
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
