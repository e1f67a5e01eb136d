package service

import (
	"context"
	"log/slog"

	"atti/internal/audit/models"
	id "atti/pkg/domain"
	dErrors "atti/pkg/domain-errors"
	"atti/pkg/requestcontext"
)

// Store appends and queries audit events. Append stamps the event's timestamp.
type Store interface {
	Append(ctx context.Context, e *models.Event) error
	Query(ctx context.Context, f models.Filter) ([]*models.Event, error)
}

// Service records and exposes the audit trail.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append records an event on behalf of caller. A blank user id defaults to
// the caller's identity; any client supplied timestamp is ignored.
func (s *Service) Append(ctx context.Context, caller requestcontext.Caller, in models.NewEvent) (*models.Event, error) {
	if !caller.IsAuthenticated() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	in.Normalize()
	if in.EventType == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "eventType is required")
	}
	if in.UserID == "" {
		in.UserID = caller.Identity()
	}

	e := &models.Event{
		ID:                id.NewAuditEventID(),
		ProcessInstanceID: in.ProcessInstanceID,
		EventType:         in.EventType,
		UserID:            in.UserID,
		Details:           in.Details,
	}
	if err := s.store.Append(ctx, e); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit event")
	}
	return e, nil
}

// Query lists events matching every set filter field, newest first. Only
// administrators may read the trail.
func (s *Service) Query(ctx context.Context, caller requestcontext.Caller, f models.Filter) ([]*models.Event, error) {
	if !caller.IsAuthenticated() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !caller.HasRole(requestcontext.RoleAdmin) {
		s.logger.WarnContext(ctx, "audit read denied",
			"log_type", "audit",
			"event", "ACCESSO_NEGATO",
			"request_id", requestcontext.RequestID(ctx),
			"user", caller.Identity(),
		)
		return nil, dErrors.New(dErrors.CodeForbidden, "admin role required")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	events, err := s.store.Query(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query audit events")
	}
	return events, nil
}
