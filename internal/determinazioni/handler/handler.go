package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"atti/internal/determinazioni/models"
	"atti/internal/platform/middleware"
	id "atti/pkg/domain"
	dErrors "atti/pkg/domain-errors"
	"atti/pkg/platform/httputil"
	"atti/pkg/requestcontext"
)

// Service defines the determinazione operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, caller requestcontext.Caller, draft models.Draft) (*models.Determinazione, error)
	FindAll(ctx context.Context, caller requestcontext.Caller) ([]*models.Determinazione, error)
	FindByID(ctx context.Context, caller requestcontext.Caller, detID id.DeterminazioneID) (*models.Determinazione, error)
	UpdateStatus(ctx context.Context, caller requestcontext.Caller, detID id.DeterminazioneID, stato string) (*models.Determinazione, error)
}

// Handler wires determinazione endpoints to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the endpoints. Callers must already be authenticated;
// role checks are applied per route.
func (h *Handler) Register(r chi.Router) {
	r.Route("/determinazioni", func(r chi.Router) {
		r.With(middleware.RequireRole(h.logger, requestcontext.RoleIstruttore, requestcontext.RoleDirigente)).
			Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.With(middleware.RequireRole(h.logger, requestcontext.RoleDirigente)).
			Put("/{id}/stato", h.HandleUpdateStatus)
	})
}

// HandleCreate handles POST /determinazioni.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()
	caller, _ := requestcontext.CallerFrom(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.service.Create(ctx, caller, req.Draft())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create determinazione",
			"request_id", requestID,
			"user", caller.Identity(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "determinazione created",
		"request_id", requestID,
		"user", caller.Identity(),
		"numero", d.Number,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromDeterminazione(d))
}

// HandleList handles GET /determinazioni.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, _ := requestcontext.CallerFrom(ctx)

	all, err := h.service.FindAll(ctx, caller)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list determinazioni",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDeterminazioni(all))
}

// HandleGet handles GET /determinazioni/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, _ := requestcontext.CallerFrom(ctx)

	detID, err := id.ParseDeterminazioneID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	d, err := h.service.FindByID(ctx, caller, detID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to load determinazione",
				"request_id", requestID,
				"determinazione_id", detID.String(),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDeterminazione(d))
}

// HandleUpdateStatus handles PUT /determinazioni/{id}/stato.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, _ := requestcontext.CallerFrom(ctx)

	detID, err := id.ParseDeterminazioneID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.service.UpdateStatus(ctx, caller, detID, req.Stato)
	if err != nil {
		h.logger.WarnContext(ctx, "stato update rejected",
			"request_id", requestID,
			"determinazione_id", detID.String(),
			"stato", req.Stato,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "stato updated",
		"request_id", requestID,
		"user", caller.Identity(),
		"numero", d.Number,
		"stato", string(d.Status),
	)
	httputil.WriteJSON(w, http.StatusOK, FromDeterminazione(d))
}
