package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MarketRegime/internal/domain/models"
	"MarketRegime/internal/handler/api"
	mid "MarketRegime/internal/middleware"
	"MarketRegime/internal/service/scheduler"
	"MarketRegime/internal/usecase"
	"MarketRegime/pkg/config"
	xhttp "MarketRegime/pkg/http"
	pkgkafka "MarketRegime/pkg/kafka"
	applogger "MarketRegime/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	runner     *usecase.PipelineRunner
	httpServer *xhttp.Server
	hub        *api.StreamHub
	scheduler  *scheduler.Scheduler
	consumer   *pkgkafka.Consumer
	runReqs    pkgkafka.MessageHandler
	relay      *mid.EventRelay
}

type Option func(*App)

// WithScheduler fires runs on the configured cron. Nil disables it.
func WithScheduler(s *scheduler.Scheduler) Option {
	return func(a *App) { a.scheduler = s }
}

// WithConsumer starts consumer with the run-requests handler.
func WithConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) Option {
	return func(a *App) {
		a.consumer = c
		a.runReqs = h
	}
}

// WithRelay runs the buffered signal relay for the app's lifetime.
func WithRelay(r *mid.EventRelay) Option {
	return func(a *App) { a.relay = r }
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	runner *usecase.PipelineRunner,
	httpServer *xhttp.Server,
	hub *api.StreamHub,
	opts ...Option,
) *App {
	a := &App{
		cfg:        cfg,
		log:        l,
		runner:     runner,
		httpServer: httpServer,
		hub:        hub,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RunOnce performs one synchronous pipeline run and releases the relay.
func (a *App) RunOnce(ctx context.Context, req models.RunRequest) (models.RunSummary, error) {
	if a.relay != nil {
		a.relay.Start(ctx)
	}

	summary, err := a.runner.RunNow(ctx, req)

	stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.relay != nil {
		if rerr := a.relay.Stop(stopCtx); rerr != nil {
			a.log.Warn("relay drain incomplete", applogger.Int("pending", a.relay.Pending()), applogger.Error(rerr))
		}
	}
	return summary, err
}

// Serve starts the HTTP API, scheduler, relay and consumer and blocks until
// SIGINT/SIGTERM or ctx is done.
func (a *App) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.relay != nil {
		a.relay.Start(ctx)
	}

	if a.consumer != nil && a.runReqs != nil {
		a.consumer.RegisterHandler(a.runReqs)
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start failed", applogger.Error(err))
			a.shutdown()
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.runReqs.Topic()))
	}

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	errCh := a.httpServer.Start()
	a.log.Info("service started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("universe", len(a.cfg.Pipeline.Universe)),
		applogger.Bool("schedule", a.scheduler != nil),
		applogger.Bool("kafka", a.consumer != nil),
	)

	var serveErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err, ok := <-errCh:
		if ok && err != nil {
			a.log.Error("http server failed", applogger.Error(err))
			serveErr = err
		}
	}

	a.shutdown()
	return serveErr
}

// shutdown stops intake first, then waits for the in-flight run, then drains
// what that run published.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.log.Warn("scheduler stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if err := a.runner.Wait(ctx); err != nil {
		a.log.Warn("pipeline run still in flight at shutdown", applogger.Error(err))
	}

	if a.relay != nil {
		if err := a.relay.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("relay drain incomplete", applogger.Int("pending", a.relay.Pending()), applogger.Error(err))
		}
	}

	a.hub.Close()
	a.log.Info("shutdown complete", applogger.Duration("budget", a.cfg.Server.ShutdownTimeout.Round(time.Second)))
}
