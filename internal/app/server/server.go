package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/ulule/limiter/v3"

	"leaveportal/internal/domain/auth"
	"leaveportal/internal/domain/leave"
	"leaveportal/internal/domain/reports"
	"leaveportal/internal/platform/apiclient"
	"leaveportal/internal/platform/config"
	"leaveportal/internal/platform/metrics"
	adminhandler "leaveportal/internal/transport/http/handlers/admin"
	authhandler "leaveportal/internal/transport/http/handlers/auth"
	dashboardhandler "leaveportal/internal/transport/http/handlers/dashboard"
	leavehandler "leaveportal/internal/transport/http/handlers/leave"
	opshandler "leaveportal/internal/transport/http/handlers/ops"
	reportshandler "leaveportal/internal/transport/http/handlers/reports"
	settingshandler "leaveportal/internal/transport/http/handlers/settings"
	"leaveportal/internal/transport/http/middleware"
	"leaveportal/internal/transport/http/web"
)

type App struct {
	Config config.Config
	Router http.Handler
}

// New builds the router around an API client for cfg.APIBaseURL.
func New(cfg config.Config) (*App, error) {
	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}
	return NewWithClient(cfg, apiclient.New(cfg.APIBaseURL, cfg.APITimeout, collector), collector)
}

func NewWithClient(cfg config.Config, client *apiclient.Client, collector *metrics.Collector) (*App, error) {
	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	cookies, err := web.NewCookies(cfg)
	if err != nil {
		return nil, fmt.Errorf("session cookies: %w", err)
	}
	authRate, err := limiter.NewRateFromFormatted(cfg.AuthRateLimit)
	if err != nil {
		return nil, fmt.Errorf("auth rate limit: %w", err)
	}

	authService := auth.NewService(client)
	leaveService := leave.NewService(client)
	reportsService := reports.NewService(client)
	guard := middleware.NewSubmitGuard(cfg.SubmitGuardTTL)
	session := middleware.Session(cookies, authService)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes, renderer))

	router.Get("/assets/app.css", web.AppCSS)
	opshandler.NewHandler(client, collector).RegisterRoutes(router)

	router.Group(func(r chi.Router) {
		r.Use(session)
		r.Use(guard.Middleware(renderer))

		authhandler.NewHandler(renderer, authService).RegisterRoutes(r, middleware.AuthRateLimit(authRate, renderer))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			dashboardhandler.NewHandler(renderer, leaveService).RegisterRoutes(r)
			leavehandler.NewHandler(renderer, leaveService).RegisterRoutes(r)
			adminhandler.NewHandler(renderer, leaveService, authService).RegisterRoutes(r)
			reportshandler.NewHandler(renderer, reportsService).RegisterRoutes(r)
			settingshandler.NewHandler(renderer, authService).RegisterRoutes(r)
		})
	})

	router.NotFound(session(http.HandlerFunc(renderer.NotFound)).ServeHTTP)

	return &App{Config: cfg, Router: router}, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context) error {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)})))
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	app, err := New(cfg)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.WriteTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Addr, "api", cfg.APIBaseURL, "env", cfg.Environment)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		slog.Info("shutting down")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func logLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
