package drafting

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	dErrors "atti/pkg/domain-errors"
	"atti/pkg/platform/httputil"
	"atti/pkg/requestcontext"
)

type Handler struct {
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

// Register mounts GET /normativa. The route expects an authenticated caller.
func (h *Handler) Register(r chi.Router) {
	r.Get("/normativa", h.HandleSearch)
}

type ReferencesResponse struct {
	References          []string `json:"riferimenti"`
	RequiresPublication bool     `json:"richiedePubblicazione"`
}

// HandleSearch handles GET /normativa?q=&importo=&tipologia=.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var amount *float64
	if raw := strings.TrimSpace(q.Get("importo")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "importo must be a non-negative number"))
			return
		}
		amount = &v
	}

	refs := Search(q.Get("q"))
	labels := make([]string, 0, len(refs))
	for _, ref := range refs {
		labels = append(labels, ref.Label())
	}

	h.logger.DebugContext(ctx, "normativa lookup",
		"request_id", requestcontext.RequestID(ctx),
		"query", q.Get("q"),
	)
	httputil.WriteJSON(w, http.StatusOK, ReferencesResponse{
		References:          labels,
		RequiresPublication: RequiresPublication(amount, q.Get("tipologia")),
	})
}
