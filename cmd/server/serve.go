package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"volunteer_chat/internal/handler"
	"volunteer_chat/internal/jobs"
	"volunteer_chat/internal/middleware"
	"volunteer_chat/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, websocket relay and job scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	migrate, _ := cmd.Flags().GetBool("migrate")

	var extra []gin.HandlerFunc
	if cfg.Telemetry.TracingEnabled {
		shutdown, err := observability.InitTracer(ctx, cfg.Telemetry.ServiceName, os.Stderr, appLogger)
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
		extra = append(extra, otelgin.Middleware(cfg.Telemetry.ServiceName))
	}

	a, err := newApp(ctx, cfg, appLogger, migrate)
	if err != nil {
		return err
	}
	defer a.Close()

	handlers := handler.NewHandlers(a.services, a.dispatcher, a.expiry, a.checks, cfg, appLogger)
	router := handler.NewRouter(handlers,
		middleware.NewAuthMiddleware(cfg.JWT.AccessSecret, appLogger),
		middleware.NewRateLimitMiddleware(a.services.RateLimit, appLogger),
		cfg, appLogger, extra...)

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(appLogger)
		if err := scheduler.AddFeaturedExpiry(cfg.Jobs.FeaturedExpirySpec, a.expiry); err != nil {
			return err
		}
		scheduler.Start()
	}

	// No WriteTimeout: websocket relays hold the connection open.
	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("Starting server", "addr", srv.Addr, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}
	case <-ctx.Done():
	}

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
		return err
	}

	appLogger.Info("Server exited")
	return nil
}
