package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	plhttp "github.com/planloom/planloom/internal/adapter/http"
	"github.com/planloom/planloom/internal/adapter/litellm"
	"github.com/planloom/planloom/internal/adapter/llmgen"
	plnats "github.com/planloom/planloom/internal/adapter/nats"
	"github.com/planloom/planloom/internal/adapter/otel"
	"github.com/planloom/planloom/internal/adapter/postgres"
	"github.com/planloom/planloom/internal/adapter/ristretto"
	"github.com/planloom/planloom/internal/adapter/ws"
	"github.com/planloom/planloom/internal/config"
	"github.com/planloom/planloom/internal/logger"
	"github.com/planloom/planloom/internal/middleware"
	"github.com/planloom/planloom/internal/port/messagequeue"
	"github.com/planloom/planloom/internal/resilience"
	"github.com/planloom/planloom/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"max_rounds", cfg.Orchestrator.MaxRounds,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownOtel, err := otel.Init(ctx, cfg.Logging.Service, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// NATS
	queue, err := plnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Drain() }()

	// View cache
	viewCache, err := ristretto.New(cfg.Cache.MaxBytes)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	// LLM gateway
	llmClient := litellm.NewClient(cfg.LiteLLM.URL, cfg.LiteLLM.MasterKey)
	llmClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	gen := llmgen.New(llmClient, cfg.Orchestrator, cfg.Chat)

	// --- Services ---
	hub := ws.NewHub()
	store := postgres.NewStore(pool)

	projectSvc := service.NewProjectService(store)
	agentSvc := service.NewAgentService(store)
	chatSvc := service.NewChatService(store, gen, hub, cfg.Chat)
	orchestrator := service.NewOrchestratorService(store, gen, hub, queue, viewCache, metrics,
		cfg.Orchestrator, cfg.Cache)
	roadmapSvc := service.NewRoadmapService(store, gen, hub, queue, orchestrator)

	// Resume escalated executions after user feedback: the feedback
	// handler publishes an advance request rather than blocking the
	// HTTP response on a full round of generation calls.
	cancelAdvance, err := queue.Subscribe(ctx, messagequeue.SubjectExecutionAdvance,
		func(ctx context.Context, subject string, data []byte) error {
			var payload messagequeue.ExecutionAdvancePayload
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("decode advance payload: %w", err)
			}
			return orchestrator.ProcessRound(ctx, payload.ExecutionID)
		})
	if err != nil {
		return fmt.Errorf("advance subscriber: %w", err)
	}
	defer cancelAdvance()

	// --- HTTP ---
	handlers := &plhttp.Handlers{
		Projects:     projectSvc,
		Chat:         chatSvc,
		Agents:       agentSvc,
		Roadmaps:     roadmapSvc,
		Orchestrator: orchestrator,
		LiteLLM:      llmClient,
		Queue:        queue,
		Hub:          hub,
	}

	r := chi.NewRouter()

	r.Use(plhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(plhttp.SecurityHeaders)
	r.Use(plhttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(otel.HTTPMiddleware("planloom"))

	plhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Round processing holds the connection across several LLM calls.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
