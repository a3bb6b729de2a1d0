// interprep - Telegram assistant for technical interview preparation.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/interprep/internal/agent"
	"github.com/ashureev/interprep/internal/api"
	"github.com/ashureev/interprep/internal/config"
	"github.com/ashureev/interprep/internal/console"
	"github.com/ashureev/interprep/internal/conversation"
	"github.com/ashureev/interprep/internal/llm"
	_ "github.com/ashureev/interprep/internal/llm/providers"
	"github.com/ashureev/interprep/internal/rag"
	"github.com/ashureev/interprep/internal/router"
	"github.com/ashureev/interprep/internal/store"
	"github.com/ashureev/interprep/internal/transport"
	"github.com/ashureev/interprep/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "telegram_mode", cfg.Telegram.Mode, "llm_provider", cfg.LLM.Provider)

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	// Model client.
	httpClient := &http.Client{Timeout: cfg.LLM.Timeout}
	if cfg.LLM.InsecureTLS {
		slog.Warn("TLS verification disabled for the model endpoint")
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		}
	}

	completer, err := llm.NewClient(cfg.LLM.Provider, cfg.LLM.BaseURL, cfg.LLM.Model,
		llm.WithLogger(logger),
		llm.WithHTTPClient(httpClient),
		llm.WithRetryConfig(llm.RetryConfig{
			MaxAttempts:       cfg.LLM.MaxAttempts,
			BackoffBase:       cfg.LLM.BackoffBase,
			BackoffMultiplier: 2.0,
			MaxBackoff:        30 * time.Second,
		}),
	)
	if err != nil {
		slog.Error("Failed to initialize model client", "error", err)
		os.Exit(1)
	}
	slog.Info("Model client ready", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)

	// Knowledge base. Optional: without it agents run on prompts alone.
	var retriever rag.Retriever = rag.Disabled{}
	if cfg.RAG.Enabled {
		pc, err := rag.NewPinecone(context.Background(), rag.Options{
			APIKey:     cfg.RAG.PineconeAPIKey,
			IndexName:  cfg.RAG.IndexName,
			Namespace:  cfg.RAG.Namespace,
			EmbedModel: cfg.RAG.EmbedModel,
			TopK:       cfg.RAG.TopK,
		}, logger)
		if err != nil {
			slog.Warn("Knowledge base unavailable, continuing without retrieval", "error", err)
		} else {
			retriever = pc
			slog.Info("Knowledge base connected", "index", cfg.RAG.IndexName)
		}
	} else {
		slog.Info("Knowledge base disabled")
	}

	// Routing rules.
	rules := router.DefaultRules()
	if cfg.RouterRulesPath != "" {
		rules, err = router.LoadRules(cfg.RouterRulesPath)
		if err != nil {
			slog.Error("Failed to load routing rules", "path", cfg.RouterRulesPath, "error", err)
			os.Exit(1)
		}
		slog.Info("Routing rules loaded", "path", cfg.RouterRulesPath)
	}

	// Agents and orchestrator.
	msgRouter := router.New(completer, retriever, rules, logger)
	agents := conversation.Agents{
		Assessor:    agent.NewAssessor(completer, retriever, logger),
		Interviewer: agent.NewInterviewer(completer, retriever, cfg.InterviewQuestions, logger),
		Planner:     agent.NewPlanner(completer, retriever, cfg.PlanWeeks, logger),
		Reviewer:    agent.NewReviewer(completer, retriever, logger),
	}
	limiter := conversation.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	orch := conversation.New(repo, msgRouter, agents, limiter, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conversation.StartJanitor(ctx, repo, cfg.SessionStaleAfter, logger)

	// Telegram transport.
	var webhook *transport.Webhook
	switch cfg.Telegram.Mode {
	case "poll":
		bot := transport.NewBot(cfg.Telegram, logger)
		// Telegram refuses getUpdates while a webhook is registered.
		if err := bot.DeleteWebhook(ctx); err != nil {
			slog.Warn("Failed to delete webhook before polling", "error", err)
		}
		go transport.NewPoller(bot, orch, cfg.Telegram.PollTimeout, logger).Run(ctx)
	case "webhook":
		bot := transport.NewBot(cfg.Telegram, logger)
		if err := bot.SetWebhook(ctx, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			slog.Error("Failed to register webhook", "error", err)
			os.Exit(1)
		}
		webhook = transport.NewWebhook(bot, orch, cfg.Telegram.WebhookSecret, logger)
		slog.Info("Webhook registered", "url", cfg.Telegram.WebhookURL)
	default:
		slog.Info("Telegram transport off, console only")
	}

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	// Ops API.
	api.NewHandler(repo, retriever, logger).RegisterRoutes(r)

	// Telegram webhook endpoint.
	if webhook != nil {
		r.Post("/telegram/webhook", webhook.ServeHTTP)
	}

	// Developer console: WebSocket endpoint plus the embedded page.
	r.Get("/ws/console", console.NewHandler(orch, logger).ServeHTTP)
	r.Handle("/*", web.ConsoleHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // console WebSocket connections stay open
		IdleTimeout:  120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
