package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"revisia-backend/internal/config"
	"revisia-backend/internal/database"
	"revisia-backend/internal/handlers"
	"revisia-backend/internal/logger"
	"revisia-backend/internal/middleware"
	"revisia-backend/internal/models"
	"revisia-backend/internal/repository"
	"revisia-backend/internal/router"
	"revisia-backend/internal/services"
)

type subscriptionLookup interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log, err := logger.New(cfg.IsProduction())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	loc, _ := cfg.Location()
	log.Info("configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("history_backend", cfg.HistoryBackend),
		zap.String("llm_provider", cfg.LLMProvider),
		zap.String("quota_timezone", loc.String()),
	)

	// ──── Step 2: Initialize History and Subscription Stores ────
	var (
		history       services.HistoryStore
		subscriptions subscriptionLookup
	)
	switch cfg.HistoryBackend {
	case config.BackendSQLite:
		store, err := repository.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			log.Fatal("sqlite store failed", zap.String("path", cfg.SQLitePath), zap.Error(err))
		}
		defer store.Close()
		history, subscriptions = store, store
		log.Info("sqlite store ready", zap.String("path", cfg.SQLitePath))
	default:
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("postgres connection failed", zap.Error(err))
		}
		defer pool.Close()

		if err := database.RunMigrations(pool, "migrations", log); err != nil {
			log.Fatal("database migration failed", zap.Error(err))
		}
		history = repository.NewHistoryRepo(pool)
		subscriptions = repository.NewSubscriptionRepo(pool)
		log.Info("postgres connected, migrations applied")
	}

	// ──── Step 3: Initialize Redis Cache (optional) ────
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatal("redis connection failed", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("redis connected")
	} else {
		log.Info("REDIS_URL not set, subscription status is not cached")
	}

	// ──── Step 4: Initialize Completion Provider ────
	var llm services.Completer
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		gemini, err := services.NewGeminiCompleter(context.Background(), cfg.LLMAPIKey, cfg.LLMModel)
		if err != nil {
			log.Fatal("gemini client initialization failed", zap.Error(err))
		}
		defer gemini.Close()
		llm = gemini
	default:
		llm = services.NewOpenAICompleter(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTimeout)
	}
	llm = services.NewLimitedCompleter(llm, cfg.LLMConcurrentReqs, cfg.LLMTimeout)
	log.Info("completion provider ready", zap.String("provider", cfg.LLMProvider), zap.Int("concurrency", cfg.LLMConcurrentReqs))

	// ──── Step 5: Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	quota := services.NewQuotaLedger(history, cfg.FreeDailyLimit, loc, time.Now)
	recorder := services.NewHistoryRecorder(history, log.Named("history"), 10*time.Second, time.Now)
	subscriptionService := services.NewSubscriptionService(subscriptions, redisClient, cfg.SubscriptionCacheTTL, log.Named("subscription"))
	assistant := services.NewAssistantService(services.AssistantDeps{
		Quota:    quota,
		Compiler: services.PromptCompiler{},
		LLM:      llm,
		Parser:   services.ResponseParser{},
		Recorder: recorder,
		Timeout:  cfg.LLMTimeout,
		Now:      func() time.Time { return time.Now().In(loc) },
		Log:      log.Named("assistant"),
	})
	fileExtractService := services.NewFileExtractService()

	// ──── Step 6: Initialize Handlers ────
	assistantHandler := handlers.NewAssistantHandler(assistant, subscriptionService, quota, history, cfg.MaxQuizQuestions, log.Named("handlers"))
	documentHandler := handlers.NewDocumentHandler(fileExtractService, cfg.MaxUploadMB, log.Named("handlers"))

	// ──── Step 7: Start HTTP Server ────
	r := router.New(jwtAuth, assistantHandler, documentHandler, cfg.FrontendURL, log.Named("http"))

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// Generations can take as long as the provider timeout.
		WriteTimeout: cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Info("revisia backend ready", zap.String("addr", server.Addr), zap.String("api", "/api/v1"))

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("server error", zap.Error(err))
	}
}
