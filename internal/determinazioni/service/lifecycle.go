package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"atti/internal/determinazioni/models"
	id "atti/pkg/domain"
	dErrors "atti/pkg/domain-errors"
	"atti/pkg/platform/sentinel"
	"atti/pkg/requestcontext"
)

// Create numbers and stores a new draft. The numero is drawn inside the same
// transaction as the insert; a collision on the unique (year, sequence)
// constraint is retried with a fresh number and never persisted.
func (s *Service) Create(ctx context.Context, caller requestcontext.Caller, draft models.Draft) (*models.Determinazione, error) {
	ctx, span := s.tracer.Start(ctx, "determinazioni.Create")
	defer span.End()
	start := time.Now()
	defer s.metrics.ObserveCreate(start)

	if err := requireRole(caller, requestcontext.RoleIstruttore, requestcontext.RoleDirigente); err != nil {
		return nil, endSpan(span, err)
	}

	draft.Normalize()
	if draft.Manager == "" {
		draft.Manager = caller.Identity()
	}
	now := requestcontext.Now(ctx).In(s.location)
	year := now.Year()

	var created *models.Determinazione
	for attempt := 0; ; attempt++ {
		err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			seq, err := s.sequencer.Next(txCtx, year)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to assign numero")
			}
			d, err := models.NewDeterminazione(draft, year, seq, now)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
					return dErrors.New(dErrors.CodeValidation, err.Error())
				}
				return err
			}
			if err := s.store.Create(txCtx, d); err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					return err
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create determinazione")
			}
			created = d
			return nil
		})
		if err == nil {
			break
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, endSpan(span, err)
		}
		if attempt >= s.maxRetries {
			s.metrics.IncNumberingExhausted()
			s.logger.WarnContext(ctx, "numbering retries exhausted",
				"request_id", requestcontext.RequestID(ctx),
				"year", year,
				"attempts", attempt+1,
			)
			return nil, endSpan(span, dErrors.New(dErrors.CodeConflict, "numero already assigned, please retry"))
		}
		s.metrics.IncNumberingRetry()
	}

	span.SetAttributes(
		attribute.Int64("determinazione.id", int64(created.ID)),
		attribute.String("determinazione.numero", created.Number),
	)
	s.metrics.IncCreated()
	s.emit(ctx, caller, models.LifecycleEvent{
		Type:              models.EventCreated,
		DeterminazioneID:  created.ID,
		Number:            created.Number,
		ProcessInstanceID: created.ProcessInstanceID,
		To:                created.Status,
		Actor:             caller.Identity(),
		OccurredAt:        now,
	})
	return created, nil
}

// FindAll lists every determinazione, newest first.
func (s *Service) FindAll(ctx context.Context, caller requestcontext.Caller) ([]*models.Determinazione, error) {
	ctx, span := s.tracer.Start(ctx, "determinazioni.FindAll")
	defer span.End()

	if !caller.IsAuthenticated() {
		return nil, endSpan(span, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
	}
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, endSpan(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list determinazioni"))
	}
	return all, nil
}

func (s *Service) FindByID(ctx context.Context, caller requestcontext.Caller, detID id.DeterminazioneID) (*models.Determinazione, error) {
	ctx, span := s.tracer.Start(ctx, "determinazioni.FindByID",
		trace.WithAttributes(attribute.Int64("determinazione.id", int64(detID))))
	defer span.End()

	if !caller.IsAuthenticated() {
		return nil, endSpan(span, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
	}
	d, err := s.store.FindByID(ctx, detID)
	if err != nil {
		return nil, endSpan(span, wrapStoreErr(err, "failed to load determinazione"))
	}
	return d, nil
}

// UpdateStatus moves a record to stato under the configured transition
// policy. Publication stamps the publication date.
//
// Uses the store's Execute callback so validation and mutation happen under
// the same row lock.
func (s *Service) UpdateStatus(ctx context.Context, caller requestcontext.Caller, detID id.DeterminazioneID, stato string) (*models.Determinazione, error) {
	ctx, span := s.tracer.Start(ctx, "determinazioni.UpdateStatus",
		trace.WithAttributes(attribute.Int64("determinazione.id", int64(detID))))
	defer span.End()

	if err := requireRole(caller, requestcontext.RoleDirigente); err != nil {
		return nil, endSpan(span, err)
	}
	if strings.TrimSpace(stato) == "" {
		return nil, endSpan(span, dErrors.New(dErrors.CodeValidation, "stato is required"))
	}
	to, err := models.ParseStatus(stato)
	if err != nil {
		return nil, endSpan(span, err)
	}

	now := requestcontext.Now(ctx).In(s.location)
	var from models.Status
	var updated *models.Determinazione
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		d, err := s.store.Execute(txCtx, detID,
			func(d *models.Determinazione) error {
				from = d.Status
				if err := d.CanTransition(to, s.policy); err != nil {
					if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
						return dErrors.New(dErrors.CodeConflict, err.Error())
					}
					return err
				}
				return nil
			},
			func(d *models.Determinazione) {
				d.ApplyTransition(to, now)
			},
		)
		if err != nil {
			return wrapStoreErr(err, "failed to update stato")
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, endSpan(span, err)
	}

	span.SetAttributes(attribute.String("determinazione.from", string(from)), attribute.String("determinazione.to", string(to)))
	s.metrics.IncTransition(string(from), string(to))
	event := models.LifecycleEvent{
		Type:              models.EventStatusUpdated,
		DeterminazioneID:  updated.ID,
		Number:            updated.Number,
		ProcessInstanceID: updated.ProcessInstanceID,
		From:              from,
		To:                to,
		Actor:             caller.Identity(),
		OccurredAt:        now,
	}
	s.emit(ctx, caller, event)
	if to == models.StatusPublished {
		event.Type = models.EventPublished
		s.emit(ctx, caller, event)
	}
	return updated, nil
}

// emit runs post-commit side effects. Failures are logged, never returned:
// the state change has already happened.
func (s *Service) emit(ctx context.Context, caller requestcontext.Caller, event models.LifecycleEvent) {
	s.logger.InfoContext(ctx, string(event.Type),
		"log_type", "audit",
		"event", string(event.Type),
		"request_id", requestcontext.RequestID(ctx),
		"determinazione_id", event.DeterminazioneID.String(),
		"numero", event.Number,
		"from", string(event.From),
		"to", string(event.To),
		"actor", event.Actor,
	)
	if s.audit != nil {
		if err := s.audit.RecordLifecycle(ctx, caller, event); err != nil {
			s.logger.ErrorContext(ctx, "failed to record audit event",
				"request_id", requestcontext.RequestID(ctx),
				"event", string(event.Type),
				"error", err,
			)
		}
	}
	if s.events != nil {
		if err := s.events.PublishLifecycle(ctx, event); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish lifecycle event",
				"request_id", requestcontext.RequestID(ctx),
				"event", string(event.Type),
				"error", err,
			)
		}
	}
}

func requireRole(caller requestcontext.Caller, roles ...requestcontext.Role) error {
	if !caller.IsAuthenticated() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !caller.HasAnyRole(roles...) {
		return dErrors.New(dErrors.CodeForbidden, "insufficient role")
	}
	return nil
}

func wrapStoreErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "determinazione not found")
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}

func endSpan(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	return err
}
