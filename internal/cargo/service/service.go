package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"cargotrack/internal/audit"
	"cargotrack/internal/cargo/directory"
	cargometrics "cargotrack/internal/cargo/metrics"
	"cargotrack/internal/cargo/models"
	"cargotrack/internal/persistence"
	"cargotrack/pkg/requestcontext"
)

type SnapshotStore interface {
	Save(ctx context.Context, snap *persistence.Snapshot) error
	Load(ctx context.Context) (*persistence.Snapshot, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service is the shared cargo model: the item directory and the container
// registry behind one process-wide lock.
//
// Every exported method runs as a single critical section, so the cascade a
// mutation triggers (container, items, trackers, session queues) completes
// before any other command observes the model. The lock is not re-entrant:
// methods never call each other while holding it, and nothing reached from a
// cascade may call back into the Service.
//
// Values returned to callers are views (copies); entity pointers never leave
// the lock.
type Service struct {
	mu         sync.Mutex
	items      *directory.Directory
	containers *directory.Registry

	seq            *models.Sequence
	stationary     []string
	store          SnapshotStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *cargometrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *cargometrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithSnapshotStore sets the store used by Save and Restore.
func WithSnapshotStore(store SnapshotStore) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithSequence replaces the process-wide item id sequence.
func WithSequence(seq *models.Sequence) Option {
	return func(s *Service) {
		if seq != nil {
			s.seq = seq
		}
	}
}

// WithStationaryTypes sets the container types whose items are "waiting".
func WithStationaryTypes(types ...string) Option {
	return func(s *Service) {
		if len(types) > 0 {
			s.stationary = append([]string(nil), types...)
		}
	}
}

// New constructs an empty model.
func New(opts ...Option) *Service {
	s := &Service{
		seq:        models.ItemIDs,
		stationary: models.DefaultStationaryTypes,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.items = s.newDirectory()
	s.containers = directory.NewRegistry()
	return s
}

func (s *Service) newDirectory() *directory.Directory {
	return directory.New(
		directory.WithSequence(s.seq),
		directory.WithItemOptions(models.WithItemReporter(s.reportFailure)),
	)
}

func (s *Service) containerOptions() []models.ContainerOption {
	return []models.ContainerOption{
		models.WithContainerReporter(s.reportFailure),
		models.WithStationaryTypes(s.stationary...),
	}
}

// Stats returns the number of items and containers in the model.
func (s *Service) Stats(_ context.Context) (items, containers int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Len(), s.containers.Len()
}

// reportFailure is the FailureReporter for every entity the service creates.
func (s *Service) reportFailure(source models.Observable, _ models.Subscriber, err error) {
	kind := "generic"
	id := ""
	if source != nil {
		kind = string(source.Kind())
		id = source.ID()
	}
	s.logger.Warn("subscriber notification failed", "source_kind", kind, "source_id", id, "error", err)
	if s.metrics != nil {
		s.metrics.IncrementSubscriberFailure(kind)
	}
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, attributes ...any) {
	if sessionID := requestcontext.SessionID(ctx); sessionID != "" {
		attributes = append(attributes, "session_id", sessionID)
	}
	if user := requestcontext.User(ctx); user != "" {
		attributes = append(attributes, "user", user)
	}
	var publisher audit.Emitter
	if s.auditPublisher != nil {
		publisher = s.auditPublisher
	}
	audit.LogAudit(ctx, s.logger, publisher, action, attributes...)
}

func (s *Service) publishModelSize() {
	if s.metrics != nil {
		s.metrics.SetModelSize(s.items.Len(), s.containers.Len())
	}
}
