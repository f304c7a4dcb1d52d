package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-tos/internal/ai"
	"github.com/p-n-ai/pai-tos/internal/authoring"
	"github.com/p-n-ai/pai-tos/internal/exam"
	"github.com/p-n-ai/pai-tos/internal/platform/cache"
	"github.com/p-n-ai/pai-tos/internal/platform/config"
	"github.com/p-n-ai/pai-tos/internal/platform/database"
	"github.com/p-n-ai/pai-tos/internal/tqs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	deps, cleanup, err := setup(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      newMux(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // drafting a full sheet makes many AI calls
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store", cfg.Store.Driver, "drafting", deps.service.CanDraft())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger from the log settings.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// setup connects the configured backends and builds the authoring service.
// The returned cleanup closes every connection that was opened.
func setup(ctx context.Context, cfg *config.Config) (*server, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*server, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	deps := &server{defaults: cfg.Generation}
	svcCfg := authoring.ServiceConfig{}

	if cfg.Store.Driver == config.StorePostgres {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return fail(fmt.Errorf("connecting database: %w", err))
		}
		closers = append(closers, db.Close)

		store, err := authoring.NewPostgresStore(db.Pool)
		if err != nil {
			return fail(err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return fail(err)
		}
		svcCfg.Store = store
		svcCfg.Events = authoring.NewPostgresEventLogger(db.Pool)
		deps.checks = append(deps.checks, check{name: "database", fn: db.HealthCheck})
	}

	var budget ai.BudgetChecker = ai.NewInMemoryBudget(cfg.AI.TokenBudget)
	if cfg.Cache.Enabled {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return fail(fmt.Errorf("connecting cache: %w", err))
		}
		closers = append(closers, func() { _ = c.Close() })
		window := time.Duration(cfg.AI.BudgetWindowHours) * time.Hour
		budget = ai.NewRedisBudget(c.Client, cfg.AI.TokenBudget, window)
		deps.checks = append(deps.checks, check{name: "cache", fn: c.HealthCheck})
	}

	if cfg.Generation.Drafting {
		router := newRouter(cfg.AI)
		svcCfg.Generator = tqs.NewGenerator(router,
			tqs.WithBudget(budget),
			tqs.WithMaxTokens(cfg.Generation.MaxTokens),
		)
	}

	if cfg.Generation.Seed != 0 {
		seed := uint64(cfg.Generation.Seed)
		svcCfg.Seed = func() uint64 { return seed }
	}

	deps.service = authoring.NewService(svcCfg)

	if loader, err := exam.NewLoader(cfg.ExamPath); err != nil {
		slog.Warn("exam definitions unavailable", "path", cfg.ExamPath, "error", err)
	} else {
		deps.exams = loader
	}

	return deps, cleanup, nil
}

// newRouter registers every configured provider. Gemini is preferred for
// drafting; OpenAI is the fallback.
func newRouter(cfg config.AIConfig) *ai.Router {
	router := ai.NewRouter()
	if cfg.Google.APIKey != "" {
		router.Register("google", ai.NewGoogleProvider(cfg.Google.APIKey, ai.WithGoogleModel(cfg.Google.Model)))
	}
	if cfg.OpenAI.APIKey != "" {
		opts := []ai.OpenAIOption{ai.WithOpenAIModel(cfg.OpenAI.Model)}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, ai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		router.Register("openai", ai.NewOpenAIProvider(cfg.OpenAI.APIKey, opts...))
	}
	for _, task := range []ai.TaskType{ai.TaskDraft, ai.TaskRegenerate, ai.TaskRubric} {
		router.Route(task, "google", "openai")
	}
	return router
}
