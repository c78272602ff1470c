package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/web-audit/internal/app"
	"github.com/dtnitsch/web-audit/internal/server"
	"github.com/dtnitsch/web-audit/models"
)

const shutdownTimeout = 15 * time.Second

// LoadConfig reads --config and applies the flags shared by every command.
func LoadConfig(c *cli.Context) (models.Config, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("addr") {
		cfg.Server.Addr = c.String("addr")
	}
	if c.IsSet("history-db") {
		cfg.History.Path = c.String("history-db")
	}
	return cfg, nil
}

func ServeAction(c *cli.Context) error {
	logger := app.NewLogger(c.Bool("quiet"), c.Bool("verbose"))

	cfg, err := LoadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	defer a.Close()

	deps := server.Deps{
		Auditor:     a.Auditor,
		Performance: a.Performance,
		Safety:      a.Safety,
		Metrics:     a.Metrics,
	}
	if a.History != nil {
		deps.History = a.History
	}
	srv := server.New(deps, logger)
	srv.RequestTimeout = cfg.Timeouts.Request

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// leave headroom over the request ceiling for writing the report
		WriteTimeout: cfg.Timeouts.Request + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
