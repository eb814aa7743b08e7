package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"cargotrack/internal/cargo/metrics"
	"cargotrack/internal/cargo/service"
	"cargotrack/internal/platform/config"
	"cargotrack/internal/platform/httpserver"
	"cargotrack/internal/platform/logger"
	platformmetrics "cargotrack/internal/platform/metrics"
	"cargotrack/internal/session"
	httptransport "cargotrack/internal/transport/http"
	"cargotrack/internal/transport/tcp"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "cargotrack: %v\n", err)
		os.Exit(1)
	}
}

// run wires the model, the command listener and the admin surface, and keeps
// them running until SIGINT or SIGTERM.
func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := openState(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer state.Close(log)

	platformMetrics := platformmetrics.New()
	cargoMetrics := metrics.New()

	pipeline, err := newAuditPipeline(cfg.Audit, log, platformMetrics)
	if err != nil {
		return err
	}
	defer pipeline.Close()
	auditCtx, stopAudit := context.WithCancel(context.Background())
	auditDone := make(chan error, 1)
	go func() { auditDone <- pipeline.worker.Run(auditCtx) }()

	svc := service.New(
		service.WithLogger(log),
		service.WithMetrics(cargoMetrics),
		service.WithAuditPublisher(pipeline.publisher),
		service.WithSnapshotStore(state.store),
		service.WithStationaryTypes(cfg.StationaryTypes...),
	)
	if cfg.State.LoadOnStartup {
		result, err := svc.Restore(ctx)
		switch {
		case err != nil:
			log.WarnContext(ctx, "state not restored, starting empty", "backend", cfg.State.Backend, "error", err)
		case result.Failed:
			log.WarnContext(ctx, "saved state unreadable, starting empty", "backend", cfg.State.Backend)
		default:
			log.InfoContext(ctx, "state restored",
				"backend", cfg.State.Backend,
				"found", result.Found,
				"items", result.Items,
				"containers", result.Containers,
				"skipped", result.Skipped,
			)
		}
	}

	manager := session.NewManager(svc,
		session.WithManagerLogger(log),
		session.WithManagerMetrics(platformMetrics),
		session.WithManagerAudit(pipeline.publisher),
		session.WithSessionOptions(
			session.WithWaitTimeout(cfg.WaitTimeout),
			session.WithWriteTimeout(cfg.WriteTimeout),
		),
	)
	listener, err := tcp.Listen(cfg.Addr, manager, tcp.WithLogger(log))
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listener.Serve(gctx)
	})
	if cfg.AdminAddr != "" {
		opts := []httptransport.Option{
			httptransport.WithLogger(log),
			httptransport.WithAuditReader(pipeline.ring),
			httptransport.WithGatherer(prometheus.DefaultGatherer),
		}
		if state.health != nil {
			opts = append(opts, httptransport.WithHealthCheck(cfg.State.Backend, state.health))
		}
		if pipeline.kafka != nil {
			opts = append(opts, httptransport.WithHealthCheck("kafka", pipeline.kafka.Ping))
		}
		admin := httpserver.New(cfg.AdminAddr, httptransport.NewRouter(httptransport.New(svc, manager, opts...)))
		g.Go(func() error {
			log.InfoContext(gctx, "admin server listening", "addr", cfg.AdminAddr)
			return httpserver.Run(gctx, admin, shutdownGrace)
		})
	}

	log.InfoContext(ctx, "cargotrack started", "addr", listener.Addr(), "backend", cfg.State.Backend)
	runErr := g.Wait()

	if cfg.State.SaveOnShutdown {
		saveCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		if err := svc.Save(saveCtx); err != nil {
			log.ErrorContext(saveCtx, "state not saved on shutdown", "error", err)
		} else {
			log.InfoContext(saveCtx, "state saved on shutdown", "backend", cfg.State.Backend)
		}
		cancel()
	}

	stopAudit()
	if err := <-auditDone; err != nil {
		log.Warn("audit worker stopped with error", "error", err)
	}
	log.Info("cargotrack stopped")
	return runErr
}

// loadConfig reads the environment and lets flags override it. A bare
// positional argument is taken as the listen port.
func loadConfig(args []string) (config.Server, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return config.Server{}, err
	}

	flags := pflag.NewFlagSet("cargotrack", pflag.ContinueOnError)
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "command listener address")
	flags.StringVar(&cfg.AdminAddr, "admin-addr", cfg.AdminAddr, "admin HTTP address; empty disables the admin server")
	flags.StringVar(&cfg.State.Backend, "backend", cfg.State.Backend, "state backend: file, redis, postgres or sqlite")
	flags.StringVar(&cfg.State.File, "state-file", cfg.State.File, "snapshot path for the file backend")
	flags.StringVar(&cfg.Logger.Level, "log-level", cfg.Logger.Level, "debug, info, warn or error")
	flags.DurationVar(&cfg.WaitTimeout, "wait-timeout", cfg.WaitTimeout, "how long WAIT_EVENTS blocks")
	if err := flags.Parse(args); err != nil {
		return config.Server{}, err
	}

	if port := flags.Arg(0); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n <= 0 || n > 65535 {
			return config.Server{}, fmt.Errorf("invalid port %q", port)
		}
		cfg.Addr = ":" + port
	}
	if err := cfg.Validate(); err != nil {
		return config.Server{}, err
	}
	return cfg, nil
}

func closeQuietly(log *slog.Logger, what string, fn func() error) {
	if fn == nil {
		return
	}
	if err := fn(); err != nil {
		log.Warn("close failed", "resource", what, "error", err)
	}
}
