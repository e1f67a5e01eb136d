package decisions

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "atti/pkg/domain-errors"
	"atti/pkg/platform/httputil"
	"atti/pkg/requestcontext"
)

type Handler struct {
	catalogue *Catalogue
	logger    *slog.Logger
}

func NewHandler(catalogue *Catalogue, logger *slog.Logger) *Handler {
	return &Handler{catalogue: catalogue, logger: logger}
}

// Register mounts GET /decisions and GET /decisions/{id}. Both are public.
func (h *Handler) Register(r chi.Router) {
	r.Get("/decisions", h.HandleList)
	r.Get("/decisions/{id}", h.HandleGet)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	decisions := h.catalogue.Decisions
	if decisions == nil {
		decisions = []Decision{}
	}
	httputil.WriteJSON(w, http.StatusOK, decisions)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	decisionID := chi.URLParam(r, "id")
	d, ok := h.catalogue.Find(decisionID)
	if !ok {
		h.logger.InfoContext(ctx, "decision not found",
			"request_id", requestcontext.RequestID(ctx),
			"decision_id", decisionID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "decision not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}
