package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wichananm65/users-api/internal/domain/repository"
	"github.com/wichananm65/users-api/internal/infrastructure/config"
	"github.com/wichananm65/users-api/internal/infrastructure/database/inmemory"
	"github.com/wichananm65/users-api/internal/infrastructure/database/postgres"
	"github.com/wichananm65/users-api/internal/infrastructure/database/sqlite"
	httpHandler "github.com/wichananm65/users-api/internal/interface/http/handler"
	"github.com/wichananm65/users-api/internal/interface/http/router"
	"github.com/wichananm65/users-api/internal/interface/presenter"
	"github.com/wichananm65/users-api/internal/logging"
	"github.com/wichananm65/users-api/internal/usecase"
)

// main wires dependencies (dependency injection) and starts the HTTP server.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(ctx, "server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger logging.Logger) error {
	gateway, closeGateway, err := openGateway(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeGateway(); err != nil {
			logger.Warn(context.Background(), "close storage", "error", err)
		}
	}()

	userPresenter := presenter.NewUserPresenter()
	userUsecase := usecase.NewUserService(gateway, logger)
	userHandler := httpHandler.NewUserHandler(userUsecase, userPresenter, logger)

	app := router.New(userHandler, logger, cfg.CORSAllowOrigins)

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "starting server", "addr", cfg.Addr, "driver", cfg.DatabaseDriver)
		errCh <- app.Listen(cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openGateway picks the storage gateway for the configured driver and
// returns a function that releases it.
func openGateway(ctx context.Context, cfg config.Config) (repository.UserGateway, func() error, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPgx, config.DriverPostgres:
		repo, err := postgres.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case config.DriverSQLite:
		repo, err := sqlite.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case config.DriverMemory:
		return inmemory.NewUserRepository(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}
