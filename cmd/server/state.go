package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cargotrack/internal/audit"
	"cargotrack/internal/persistence"
	"cargotrack/internal/platform/config"
	platformmetrics "cargotrack/internal/platform/metrics"
	platformredis "cargotrack/internal/platform/redis"
	"cargotrack/pkg/platform/circuit"
)

// stateBackend is the configured snapshot store plus what the admin health
// check and shutdown need from it.
type stateBackend struct {
	store  persistence.Store
	health func(ctx context.Context) error
	close  func() error
	name   string
}

func (b *stateBackend) Close(log *slog.Logger) {
	closeQuietly(log, b.name, b.close)
}

func openState(ctx context.Context, cfg config.Server, log *slog.Logger) (*stateBackend, error) {
	codec, err := persistence.CodecByName(cfg.State.Codec)
	if err != nil {
		return nil, err
	}

	backend := strings.ToLower(cfg.State.Backend)
	switch backend {
	case config.BackendFile:
		log.InfoContext(ctx, "using file state store", "path", cfg.State.File, "codec", codec.Name())
		return &stateBackend{store: persistence.NewFileStore(cfg.State.File, codec), name: backend}, nil

	case config.BackendRedis:
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		log.InfoContext(ctx, "using redis state store", "codec", codec.Name())
		return &stateBackend{
			store:  persistence.NewRedisStore(client, cfg.State.Key, codec),
			health: client.Health,
			close:  client.Close,
			name:   backend,
		}, nil

	case config.BackendPostgres, config.BackendSQLite:
		dialect := persistence.Dialect(backend)
		db, err := persistence.Open(ctx, dialect, cfg.State.DSN)
		if err != nil {
			return nil, err
		}
		store := persistence.NewSQLStore(db, dialect, cfg.State.Key, codec)
		if err := store.InitSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init %s schema: %w", backend, err)
		}
		log.InfoContext(ctx, "using sql state store", "dialect", backend, "codec", codec.Name())
		return &stateBackend{store: store, health: db.PingContext, close: db.Close, name: backend}, nil

	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}
}

// auditPipeline is the publisher the model emits to, the worker draining it,
// and the stores the worker appends to.
type auditPipeline struct {
	publisher *audit.Publisher
	worker    *audit.Worker
	ring      *audit.RingStore
	kafka     *audit.KafkaStore
}

func newAuditPipeline(cfg config.AuditConfig, log *slog.Logger, m *platformmetrics.Metrics) (*auditPipeline, error) {
	p := &auditPipeline{
		publisher: audit.NewPublisher(cfg.Buffer, audit.WithDropHook(func(audit.Event) {
			m.IncrementAuditDropped()
		})),
		ring: audit.NewRingStore(cfg.Retain),
	}
	stores := audit.MultiStore{p.ring}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := audit.NewKafkaStore(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, err
		}
		p.kafka = kafka
		breaker := circuit.New("audit-kafka", circuit.WithCooldown(cfg.KafkaCooldown))
		stores = append(stores, audit.NewGuardedStore(kafka, breaker,
			audit.WithGuardLogger(log),
			audit.WithSkipHook(func(audit.Event) { m.IncrementAuditSkipped() }),
		))
		log.Info("publishing audit events to kafka", "brokers", cfg.KafkaBrokers, "topic", kafka.Topic())
	}
	p.worker = audit.NewWorker(stores, p.publisher.Inbox(), audit.WithWorkerLogger(log))
	return p, nil
}

func (p *auditPipeline) Close() {
	if p.kafka != nil {
		p.kafka.Close()
	}
}
