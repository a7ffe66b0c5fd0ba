package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"HistPull/internal/usecase"
	"HistPull/pkg/cache"
	pkgch "HistPull/pkg/clickhouse"
	"HistPull/pkg/config"
	xhttp "HistPull/pkg/http"
	applogger "HistPull/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
	uc          *usecase.HistoricalDataUseCase
	chClient    *pkgch.Client
	resultCache cache.Service
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	handler xhttp.Handler,
	uc *usecase.HistoricalDataUseCase,
	chClient *pkgch.Client,
	resultCache cache.Service,
) *App {
	return &App{
		cfg:         cfg,
		logger:      logger,
		httpHandler: handler,
		uc:          uc,
		chClient:    chClient,
		resultCache: resultCache,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := []xhttp.ServerOption{
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(a.logger, 2*time.Second))
	}
	a.httpServer = xhttp.NewServer(a.httpHandler, opts...)

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("serving historical data",
		applogger.String("data_dir", a.cfg.Data.Dir),
		applogger.String("backend", a.cfg.Backend.Type),
		applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.resultCache != nil {
		if err := a.resultCache.Close(); err != nil {
			a.logger.Warn("cache close error", applogger.Error(err))
		}
	}

	// Close persistence backend (store or publisher).
	if a.uc != nil {
		a.uc.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
