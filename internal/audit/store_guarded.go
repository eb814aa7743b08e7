package audit

import (
	"context"
	"io"
	"log/slog"

	"cargotrack/pkg/platform/circuit"
)

// GuardedStore wraps a remote store with a circuit breaker. While the breaker
// is open events are skipped instead of waiting on a dead broker; the ring
// store still receives them through MultiStore.
type GuardedStore struct {
	store   Store
	breaker *circuit.Breaker
	logger  *slog.Logger
	onSkip  func(Event)
}

// GuardedOption configures a GuardedStore.
type GuardedOption func(*GuardedStore)

func WithGuardLogger(logger *slog.Logger) GuardedOption {
	return func(g *GuardedStore) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithSkipHook is called for every event skipped while the breaker is open.
func WithSkipHook(fn func(Event)) GuardedOption {
	return func(g *GuardedStore) {
		g.onSkip = fn
	}
}

func NewGuardedStore(store Store, breaker *circuit.Breaker, opts ...GuardedOption) *GuardedStore {
	g := &GuardedStore{
		store:   store,
		breaker: breaker,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GuardedStore) Append(ctx context.Context, event Event) error {
	if !g.breaker.Allow() {
		if g.onSkip != nil {
			g.onSkip(event)
		}
		return nil
	}
	if err := g.store.Append(ctx, event); err != nil {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "audit store circuit opened", "breaker", g.breaker.Name(), "error", err)
		}
		return err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "audit store circuit closed", "breaker", g.breaker.Name())
	}
	return nil
}
