package health

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"atti/pkg/platform/httputil"
	"atti/pkg/requestcontext"
)

// Checker reports the health of one dependency.
type Checker interface {
	Health(ctx context.Context) error
}

// CheckFunc adapts a function to Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Health(ctx context.Context) error { return f(ctx) }

// Response is the body of GET /health.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler runs the registered checks concurrently.
type Handler struct {
	logger  *slog.Logger
	timeout time.Duration
	checks  map[string]Checker
}

func New(logger *slog.Logger) *Handler {
	return &Handler{logger: logger, timeout: 2 * time.Second, checks: map[string]Checker{}}
}

// Add registers a named dependency check. Nil checkers are ignored.
func (h *Handler) Add(name string, c Checker) {
	if c != nil {
		h.checks[name] = c
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleHealth)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = h.checks[name].Health(ctx)
		}()
	}
	wg.Wait()

	resp := Response{Status: "ok", Checks: make(map[string]string, len(names))}
	for i, name := range names {
		if results[i] != nil {
			resp.Status = "degraded"
			resp.Checks[name] = "down"
			h.logger.WarnContext(ctx, "health check failed",
				"check", name,
				"error", results[i],
				"request_id", requestcontext.RequestID(ctx),
			)
			continue
		}
		resp.Checks[name] = "up"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}
