package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cargotrack/internal/cargo/models"
	"cargotrack/internal/cargo/service"
	"cargotrack/internal/platform/metrics"
	"cargotrack/pkg/requestcontext"
)

// Model is the shared cargo model as used by sessions. Every method runs
// under the model lock.
type Model interface {
	CreateItem(ctx context.Context, fields models.ItemFields) (string, error)
	ListItems(ctx context.Context) []models.ItemView
	Item(ctx context.Context, id string) (models.ItemView, error)
	LoadItem(ctx context.Context, itemID, cid string) (bool, error)
	UnloadItem(ctx context.Context, itemID string) error
	MoveItem(ctx context.Context, itemID, cid string) (bool, error)
	CompleteItem(ctx context.Context, itemID string) (bool, error)
	UpdateItem(ctx context.Context, itemID string, updates map[string]string) (models.ItemView, error)
	DeleteItem(ctx context.Context, itemID string) error
	Attach(ctx context.Context, itemID, user string) error
	Detach(ctx context.Context, itemID, user string) error
	ListAttached(ctx context.Context, user string) ([]models.ItemView, error)

	CreateContainer(ctx context.Context, spec service.ContainerSpec) error
	ListContainers(ctx context.Context) []models.ContainerView
	SetLocation(ctx context.Context, cid string, lon, lat float64) error
	UpdateContainer(ctx context.Context, cid string, updates map[string]string) (models.ContainerView, error)
	DeleteContainer(ctx context.Context, cid string) error

	WatchItem(ctx context.Context, t *models.Tracker, itemID string) error
	UnwatchItem(ctx context.Context, t *models.Tracker, itemID string) error
	WatchContainer(ctx context.Context, t *models.Tracker, cid string) error
	UnwatchContainer(ctx context.Context, t *models.Tracker, cid string) error
	SetView(ctx context.Context, t *models.Tracker, rect models.ViewRect) error
	ClearView(ctx context.Context, t *models.Tracker) error
	StatList(ctx context.Context, t *models.Tracker) ([]models.Status, error)
	DescribeTracker(ctx context.Context, t *models.Tracker) models.TrackerView
	UpdateTracker(ctx context.Context, t *models.Tracker, updates map[string]string) error
	ReleaseTracker(ctx context.Context, t *models.Tracker)

	Save(ctx context.Context) error
}

// Reply is the single response line to a command.
type Reply struct {
	OK   bool
	Text string
	// Close asks the session to shut down after writing the reply.
	Close bool
}

// Line renders the reply as it is written to the wire.
func (r Reply) Line() string {
	prefix := "ERR"
	if r.OK {
		prefix = "OK"
	}
	if r.Text == "" {
		return prefix
	}
	return prefix + " " + r.Text
}

type handlerFunc func(ctx context.Context, s *Session, args []string) (Reply, error)

type command struct {
	usage   string
	minArgs int
	// maxArgs < 0 means extra arguments are ignored.
	maxArgs int
	run     handlerFunc
}

// Dispatcher maps verbs to handlers. It is stateless apart from its table and
// can be shared by every session.
type Dispatcher struct {
	commands map[string]command
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithDispatcherMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithTracer replaces the global otel tracer.
func WithTracer(t trace.Tracer) DispatcherOption {
	return func(d *Dispatcher) {
		if t != nil {
			d.tracer = t
		}
	}
}

// NewDispatcher builds the command table.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		commands: commandTable(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:   otel.Tracer("cargotrack/session"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Verbs returns the registered verbs.
func (d *Dispatcher) Verbs() []string {
	verbs := make([]string, 0, len(d.commands))
	for v := range d.commands {
		verbs = append(verbs, v)
	}
	return verbs
}

// Handle parses and executes one command line. Failures of any kind become an
// ERR reply; a panicking handler is reported as an internal error.
func (d *Dispatcher) Handle(ctx context.Context, s *Session, line string) (reply Reply) {
	start := time.Now()
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Reply{Text: "Unknown command"}
	}
	verb := strings.ToUpper(parts[0])
	args := parts[1:]

	cmd, known := d.commands[verb]
	label := verb
	if !known {
		label = "UNKNOWN"
	}

	ctx = requestcontext.WithSessionID(ctx, s.ID())
	ctx = requestcontext.WithUser(ctx, s.User())
	ctx = requestcontext.WithRemoteAddr(ctx, s.RemoteAddr())
	ctx = requestcontext.WithRequestID(ctx, uuid.NewString())
	ctx = requestcontext.WithTime(ctx, start)

	ctx, span := d.tracer.Start(ctx, "session.command", trace.WithAttributes(
		attribute.String("verb", label),
		attribute.String("session.id", s.ID()),
	))
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "command panicked", "session_id", s.ID(), "verb", label, "panic", fmt.Sprint(r))
			reply = Reply{Text: "internal error"}
		}
		if !reply.OK {
			span.SetStatus(codes.Error, reply.Text)
		}
		span.End()
		if d.metrics != nil {
			d.metrics.ObserveCommand(label, reply.OK, start)
		}
	}()

	if !known {
		return Reply{Text: "Unknown command"}
	}
	if len(args) < cmd.minArgs || (cmd.maxArgs >= 0 && len(args) > cmd.maxArgs) {
		return Reply{Text: "Usage: " + cmd.usage}
	}
	reply, err := cmd.run(ctx, s, args)
	if err != nil {
		span.RecordError(err)
		d.logger.DebugContext(ctx, "command failed", "session_id", s.ID(), "verb", label, "error", err)
		return Reply{Text: err.Error()}
	}
	return reply
}

func ok(format string, args ...any) (Reply, error) {
	return Reply{OK: true, Text: fmt.Sprintf(format, args...)}, nil
}
