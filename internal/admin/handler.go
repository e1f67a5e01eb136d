package admin

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"atti/internal/platform/middleware"
	dErrors "atti/pkg/domain-errors"
	"atti/pkg/platform/httputil"
	"atti/pkg/requestcontext"
)

// Handler exposes user administration under /admin/utenti. Every route
// requires the admin role.
type Handler struct {
	idp    IdentityProvider
	logger *slog.Logger
}

func NewHandler(idp IdentityProvider, logger *slog.Logger) *Handler {
	return &Handler{idp: idp, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/admin/utenti", func(r chi.Router) {
		r.Use(middleware.RequireRole(h.logger, requestcontext.RoleAdmin))
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Put("/{id}", h.HandleUpdate)
		r.Put("/{id}/ruoli", h.HandleSetRoles)
		r.Post("/{id}/reset-password", h.HandleResetPassword)
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.idp.ListUsers(ctx)
	if err != nil {
		h.fail(w, r, "failed to list users", "", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromUsers(users))
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	u, err := h.idp.CreateUser(ctx, req.NewUser())
	if err != nil {
		h.fail(w, r, "failed to create user", req.Username, err)
		return
	}
	h.audit(r, "user created", u.ID)
	httputil.WriteJSON(w, http.StatusCreated, FromUser(u))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateUserRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.idp.UpdateUser(ctx, userID, req.Update()); err != nil {
		h.fail(w, r, "failed to update user", userID, err)
		return
	}
	h.audit(r, "user updated", userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSetRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetRolesRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.idp.SetRoles(ctx, userID, req.RoleList()); err != nil {
		h.fail(w, r, "failed to set roles", userID, err)
		return
	}
	h.audit(r, "user roles updated", userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.idp.SendPasswordReset(r.Context(), userID); err != nil {
		h.fail(w, r, "failed to send password reset", userID, err)
		return
	}
	h.audit(r, "password reset requested", userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(chi.URLParam(r, "id"))
	if userID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "user id is required"))
		return "", false
	}
	return userID, true
}

func (h *Handler) audit(r *http.Request, msg, userID string) {
	ctx := r.Context()
	caller, _ := requestcontext.CallerFrom(ctx)
	h.logger.InfoContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit",
		"admin", caller.Identity(),
		"target_user", userID,
	)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg, target string, err error) {
	ctx := r.Context()
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"target_user", target,
		"error", err,
	)
	httputil.WriteError(w, err)
}
