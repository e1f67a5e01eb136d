package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	detmetrics "atti/internal/determinazioni/metrics"
	"atti/internal/determinazioni/models"
	"atti/internal/determinazioni/numbering"
	id "atti/pkg/domain"
	"atti/pkg/platform/tx"
	"atti/pkg/requestcontext"
)

const defaultMaxRetries = 3

// Store persists determinazioni. Create assigns the ID and reports a reused
// numero as sentinel.ErrConflict; lookups report misses as sentinel.ErrNotFound.
type Store interface {
	Create(ctx context.Context, d *models.Determinazione) error
	FindByID(ctx context.Context, detID id.DeterminazioneID) (*models.Determinazione, error)
	ListAll(ctx context.Context) ([]*models.Determinazione, error)
	Execute(ctx context.Context, detID id.DeterminazioneID, validate func(*models.Determinazione) error, mutate func(*models.Determinazione)) (*models.Determinazione, error)
}

// AuditRecorder appends lifecycle events to the audit trail.
type AuditRecorder interface {
	RecordLifecycle(ctx context.Context, caller requestcontext.Caller, event models.LifecycleEvent) error
}

// EventPublisher announces lifecycle events to downstream consumers.
type EventPublisher interface {
	PublishLifecycle(ctx context.Context, event models.LifecycleEvent) error
}

// Service owns the determinazione lifecycle: numbering, creation, lookup and
// status transitions.
type Service struct {
	store      Store
	sequencer  numbering.Sequencer
	tx         tx.Runner
	policy     models.TransitionPolicy
	maxRetries int
	location   *time.Location
	audit      AuditRecorder
	events     EventPublisher
	metrics    *detmetrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTx sets the transaction runner. Without one, operations serialize on a
// process local lock.
func WithTx(runner tx.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func WithTransitionPolicy(p models.TransitionPolicy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithMaxRetries bounds how often Create retries after a numero collision.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithLocation sets the time zone the numbering year is computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

func WithAuditRecorder(r AuditRecorder) Option {
	return func(s *Service) {
		s.audit = r
	}
}

func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

func WithMetrics(m *detmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New constructs a Service.
func New(store Store, sequencer numbering.Sequencer, opts ...Option) *Service {
	s := &Service{
		store:      store,
		sequencer:  sequencer,
		policy:     models.PolicyStrict,
		maxRetries: defaultMaxRetries,
		location:   time.Local,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewLocked()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("atti/determinazioni")
	}
	return s
}
