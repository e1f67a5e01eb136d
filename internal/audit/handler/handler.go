package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"atti/internal/audit/models"
	"atti/internal/platform/middleware"
	"atti/pkg/platform/httputil"
	"atti/pkg/requestcontext"
)

// Service defines the audit operations exposed over HTTP.
type Service interface {
	Append(ctx context.Context, caller requestcontext.Caller, in models.NewEvent) (*models.Event, error)
	Query(ctx context.Context, caller requestcontext.Caller, f models.Filter) ([]*models.Event, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts GET /audit (admin) and POST /audit (any authenticated caller).
func (h *Handler) Register(r chi.Router) {
	r.With(middleware.RequireRole(h.logger, requestcontext.RoleAdmin)).Get("/audit", h.HandleQuery)
	r.Post("/audit", h.HandleAppend)
}

// HandleQuery handles GET /audit?processInstanceId=&userId=&from=&to=.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, _ := requestcontext.CallerFrom(ctx)

	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.service.Query(ctx, caller, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to query audit log",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEvents(events))
}

// HandleAppend handles POST /audit.
func (h *Handler) HandleAppend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, _ := requestcontext.CallerFrom(ctx)

	req, ok := httputil.DecodeAndPrepare[AppendRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	e, err := h.service.Append(ctx, caller, req.NewEvent())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to append audit event",
			"request_id", requestID,
			"event_type", req.EventType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "audit event appended",
		"request_id", requestID,
		"event_type", e.EventType,
		"process_instance_id", e.ProcessInstanceID,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromEvent(e))
}
