package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"atti/internal/admin"
	"atti/internal/admin/keycloak"
	audithandler "atti/internal/audit/handler"
	auditservice "atti/internal/audit/service"
	auditstore "atti/internal/audit/store"
	"atti/internal/decisions"
	"atti/internal/determinazioni/adapters"
	dethandler "atti/internal/determinazioni/handler"
	detmetrics "atti/internal/determinazioni/metrics"
	"atti/internal/determinazioni/models"
	"atti/internal/determinazioni/numbering"
	"atti/internal/determinazioni/publisher"
	detservice "atti/internal/determinazioni/service"
	detstore "atti/internal/determinazioni/store"
	"atti/internal/drafting"
	jwttoken "atti/internal/jwt_token"
	"atti/internal/platform/config"
	"atti/internal/platform/database"
	"atti/internal/platform/health"
	"atti/internal/platform/kafka"
	"atti/internal/platform/metrics"
	"atti/internal/platform/middleware"
	platformredis "atti/internal/platform/redis"
	"atti/pkg/platform/circuit"
	"atti/pkg/platform/tx"
)

type app struct {
	router  http.Handler
	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type stores struct {
	determinazioni detservice.Store
	maxSequence    numbering.MaxSequenceFinder
	sqlSequencer   numbering.Sequencer
	audit          auditservice.Store
	txRunner       tx.Runner
}

func buildApp(ctx context.Context, cfg config.Config, log *slog.Logger) (a *app, err error) {
	a = &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checks := health.New(log)

	st, err := openStores(ctx, a, cfg, log, checks)
	if err != nil {
		return nil, err
	}

	sequencer, err := buildSequencer(ctx, a, cfg, st, checks)
	if err != nil {
		return nil, err
	}

	policy, err := models.ParseTransitionPolicy(cfg.Lifecycle.Transitions)
	if err != nil {
		return nil, err
	}

	auditSvc := auditservice.New(st.audit, auditservice.WithLogger(log))
	opts := []detservice.Option{
		detservice.WithLogger(log),
		detservice.WithTransitionPolicy(policy),
		detservice.WithMaxRetries(cfg.Lifecycle.MaxRetries),
		detservice.WithMetrics(detmetrics.New(reg)),
	}
	if st.txRunner != nil {
		opts = append(opts, detservice.WithTx(st.txRunner))
	}
	if cfg.Lifecycle.AuditEmission {
		opts = append(opts, detservice.WithAuditRecorder(adapters.NewAuditRecorder(auditSvc)))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, producer.Close)
		if err := producer.EnsureTopic(ctx, 1, 1); err != nil {
			log.Warn("kafka topic bootstrap failed", "topic", producer.Topic(), "error", err)
		}
		checks.Add("kafka", producer)
		breaker := circuit.New("kafka", circuit.WithFailureThreshold(3), circuit.WithCooldown(30*time.Second))
		opts = append(opts, detservice.WithEventPublisher(publisher.NewKafka(producer, publisher.WithBreaker(breaker))))
	}
	detSvc := detservice.New(st.determinazioni, sequencer, opts...)

	validator, err := tokenValidator(cfg.Auth)
	if err != nil {
		return nil, err
	}

	var idp admin.IdentityProvider = admin.Placeholder{}
	if cfg.Keycloak.URL != "" {
		idp = keycloak.New(context.WithoutCancel(ctx), cfg.Keycloak.URL, cfg.Keycloak.Realm, cfg.Keycloak.ClientID, cfg.Keycloak.ClientSecret)
	} else {
		log.Warn("KEYCLOAK_URL not set, user administration uses the placeholder provider")
	}

	catalogue, err := decisions.Load()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Latency(metrics.New(reg)))
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(middleware.ContentTypeJSON)

	checks.Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	decisions.NewHandler(catalogue, log).Register(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, log))
		dethandler.New(detSvc, log).Register(r)
		audithandler.New(auditSvc, log).Register(r)
		drafting.NewHandler(log).Register(r)
		admin.NewHandler(idp, log).Register(r)
	})

	a.router = r
	return a, nil
}

func openStores(ctx context.Context, a *app, cfg config.Config, log *slog.Logger, checks *health.Handler) (stores, error) {
	if cfg.Database.Storage != config.StoragePostgres {
		mem := detstore.NewInMemory()
		return stores{
			determinazioni: mem,
			maxSequence:    mem,
			audit:          auditstore.NewInMemory(),
		}, nil
	}

	gdb, err := database.OpenGorm(cfg.Database, log)
	if err != nil {
		return stores{}, err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}
	det := detstore.NewPostgres(gdb)
	if err := det.Migrate(ctx); err != nil {
		return stores{}, fmt.Errorf("migrate determinazioni: %w", err)
	}

	auditDB, err := database.OpenSQL(ctx, cfg.Database)
	if err != nil {
		return stores{}, err
	}
	a.closers = append(a.closers, func() { _ = auditDB.Close() })
	audit := auditstore.NewPostgres(auditDB)
	if err := audit.Migrate(ctx); err != nil {
		return stores{}, fmt.Errorf("migrate audit_log: %w", err)
	}
	checks.Add("postgres", health.CheckFunc(auditDB.PingContext))

	return stores{
		determinazioni: det,
		maxSequence:    det,
		sqlSequencer:   det.Sequencer(),
		audit:          audit,
		txRunner:       tx.NewGorm(gdb),
	}, nil
}

func buildSequencer(ctx context.Context, a *app, cfg config.Config, st stores, checks *health.Handler) (numbering.Sequencer, error) {
	switch cfg.Lifecycle.Numbering {
	case config.NumberingSQL:
		if st.sqlSequencer == nil {
			return nil, fmt.Errorf("NUMBERING_BACKEND=sql requires STORAGE=postgres")
		}
		return st.sqlSequencer, nil
	case config.NumberingRedis:
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, fmt.Errorf("NUMBERING_BACKEND=redis requires REDIS_URL")
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		checks.Add("redis", client)
		return numbering.NewRedis(client.Client, st.maxSequence), nil
	default:
		return numbering.NewMemory(numbering.WithFloor(st.maxSequence)), nil
	}
}

func tokenValidator(cfg config.Auth) (middleware.TokenValidator, error) {
	if cfg.PublicKeyPEM != "" {
		verifier, err := jwttoken.NewRS256Verifier(cfg.PublicKeyPEM, cfg.Issuer, cfg.Audience)
		if err != nil {
			return nil, fmt.Errorf("jwt public key: %w", err)
		}
		return jwttoken.NewJWTServiceAdapter(verifier), nil
	}
	return jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.SigningKey, cfg.Issuer, cfg.Audience)), nil
}
