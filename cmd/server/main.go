// Package main is the entrypoint for the a1gen API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/a1gen/internal/a1"
	"github.com/kiranshivaraju/a1gen/internal/api"
	"github.com/kiranshivaraju/a1gen/internal/api/handler"
	mw "github.com/kiranshivaraju/a1gen/internal/api/middleware"
	"github.com/kiranshivaraju/a1gen/internal/api/response"
	"github.com/kiranshivaraju/a1gen/internal/config"
	"github.com/kiranshivaraju/a1gen/internal/generation"
	"github.com/kiranshivaraju/a1gen/internal/history"
	"github.com/kiranshivaraju/a1gen/internal/logging"
	"github.com/kiranshivaraju/a1gen/internal/poller"
	"github.com/kiranshivaraju/a1gen/internal/ratelimit"
	_ "go.uber.org/automaxprocs"
)

const shutdownTimeout = 30 * time.Second

// writeMargin covers request decoding, the last poll interval and the response write.
const writeMargin = 30 * time.Second

func main() {
	if err := run(os.Stdout); err != nil {
		// The configured logger may not exist yet.
		logger := logging.New(os.Getenv("A1GEN_ENV"))
		logger.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

func run(out io.Writer) error {
	// 1. Load config, fail fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Built after Load so A1GEN_ENV from .env applies.
	logger := logging.NewWithWriter(cfg.Server.Env, out)
	logger.Info().
		Str("env", cfg.Server.Env).
		Str("history_backend", cfg.History.Backend).
		Strs("profiles", cfg.Profiles.Names()).
		Msg("config loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. History store
	if cfg.History.Backend == "postgres" {
		if err := history.RunMigrations(cfg.History.DatabaseURL, "migrations"); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info().Msg("database migrations applied")
	}

	store, err := history.NewStore(ctx, cfg.History, logger)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	if cfg.History.ImageDir != "" {
		if err := os.MkdirAll(cfg.History.ImageDir, 0o755); err != nil {
			return fmt.Errorf("create image dir: %w", err)
		}
	}

	// 3. Rate limiter, shared through Redis when configured
	limiter, closeLimiter, err := newLimiter(cfg.Proxy)
	if err != nil {
		return fmt.Errorf("create rate limiter: %w", err)
	}
	defer closeLimiter()

	// 4. Generation pipeline
	client := a1.NewHTTPClient(cfg.A1.BaseURL, a1.Timeouts{
		Upload: cfg.A1.UploadTimeout,
		Submit: cfg.A1.SubmitTimeout,
		Poll:   cfg.A1.PollTimeout,
	})
	tracker := poller.New(client,
		poller.Config{Interval: cfg.Poll.Interval, Timeout: cfg.Poll.Timeout},
		poller.WithLogger(logger.With().Str("component", "poller").Logger()),
	)
	svc := generation.NewService(client, tracker, store, config.BaseProfile(),
		generation.WithImageDir(cfg.History.ImageDir),
		generation.WithLogger(logger.With().Str("component", "generation").Logger()),
	)

	// 5. Router
	auth := mw.NewProxyAuth(cfg.Proxy.APIKey, cfg.Proxy.APIKeyHash)
	if !auth.Enabled() {
		logger.Warn().Msg("PROXY_API_KEY not set, protected routes are open")
	}

	router := api.NewRouter(api.Dependencies{
		Logger:            logger,
		Auth:              auth,
		RateLimit:         mw.NewRateLimit(limiter, logger),
		TrustProxyHeaders: cfg.Proxy.TrustProxyHeaders,

		HealthHandler:   healthHandler(store, limiter),
		ProfilesHandler: handler.NewProfilesHandler(cfg.Profiles),
		GenerateHandler: handler.NewGenerateHandler(svc, cfg.Profiles),
		HistoryHandler:  handler.NewHistoryHandler(svc),
	})

	// 6. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout(cfg),
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info().Msg("server stopped gracefully")
	return nil
}

// writeTimeout bounds a response by the worst-case generation: upload, task
// creation and the full polling window.
func writeTimeout(cfg *config.Config) time.Duration {
	return cfg.A1.UploadTimeout + cfg.A1.SubmitTimeout + cfg.Poll.Timeout + cfg.Poll.Interval + writeMargin
}

func newLimiter(cfg config.ProxyConfig) (ratelimit.Limiter, func() error, error) {
	if cfg.RedisURL == "" {
		return ratelimit.NewLocalLimiter(cfg.RateLimitPerMin), func() error { return nil }, nil
	}
	rl, err := ratelimit.NewRedisLimiter(cfg.RedisURL, cfg.RateLimitPerMin)
	if err != nil {
		return nil, nil, err
	}
	return rl, rl.Close, nil
}

// healthHandler checks history storage and rate limiter connectivity.
func healthHandler(store history.Store, limiter ratelimit.Limiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"history":   "ok",
			"ratelimit": "ok",
		}

		if err := store.Ping(r.Context()); err != nil {
			checks["history"] = "degraded"
		}
		if err := limiter.Ping(r.Context()); err != nil {
			checks["ratelimit"] = "degraded"
		}

		degraded := checks["history"] != "ok" || checks["ratelimit"] != "ok"
		if degraded {
			response.Degraded(w, checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
