package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"FinSignal/internal/handler/ws"
	"FinSignal/internal/usecase"
	"FinSignal/pkg/config"
	xhttp "FinSignal/pkg/http"
	pkgkafka "FinSignal/pkg/kafka"
	applogger "FinSignal/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	runner     *usecase.CycleRunner
	hub        *ws.Hub
	consumer   *pkgkafka.Consumer
	httpServer *xhttp.Server
}

// New creates a new App. hub and consumer may be nil.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	runner *usecase.CycleRunner,
	hub *ws.Hub,
	consumer *pkgkafka.Consumer,
	httpServer *xhttp.Server,
) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		log:        log,
		runner:     runner,
		hub:        hub,
		consumer:   consumer,
		httpServer: httpServer,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx ends, then shuts
// down in reverse order.
func (a *App) RunContext(ctx context.Context) error {
	workCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup

	if a.hub != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.hub.Run(workCtx)
		}()
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.log.Info("kafka consumer started", applogger.Strings("topics", a.cfg.Kafka.MarketTopics))
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.runner.Run(workCtx)
	}()

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		cancel()
		wg.Wait()
		return err
	}
	a.log.Info("finsignal started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("source", a.cfg.Source.Type),
		applogger.Int("port", a.cfg.Server.Port),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown(cancel, &wg)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(cancel context.CancelFunc, wg *sync.WaitGroup) error {
	stopCtx, stopCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer stopCancel()

	if err := a.httpServer.Stop(stopCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	// ingestion stops before the cycle loop
	if a.consumer != nil {
		if err := a.consumer.Stop(stopCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	cancel()
	wg.Wait()
	a.log.Info("shutdown complete")
	return nil
}
