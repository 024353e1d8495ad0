package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dottraffic/backend/internal/classifier"
	"github.com/dottraffic/backend/internal/config"
	"github.com/dottraffic/backend/internal/handler"
	"github.com/dottraffic/backend/internal/lifecycle"
	"github.com/dottraffic/backend/internal/lock"
	"github.com/dottraffic/backend/internal/logging"
	"github.com/dottraffic/backend/internal/metrics"
	"github.com/dottraffic/backend/internal/repository"
	"github.com/dottraffic/backend/internal/service"
	"github.com/dottraffic/backend/pkg/airtable"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("INFO", os.Stdout)
		logging.Fatal("failed to load config", "error", err)
	}
	logger := logging.Setup(cfg.LogLevel, os.Stdout)

	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logging.Fatal("failed to open record store", "backend", cfg.Store.Backend, "error", err)
	}
	defer store.Close()

	locker, closeLocker, err := newLocker(cfg, logger)
	if err != nil {
		logging.Fatal("failed to connect to redis", "error", err)
	}
	defer closeLocker()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		logging.Fatal("failed to create classifier provider", "provider", cfg.Classifier.Provider, "error", err)
	}
	clf := classifier.New(provider, logger, classifier.WithTimeout(cfg.Classifier.Timeout))

	instructions, err := classifier.LoadInstructions(cfg.Classifier.PromptDir)
	if err != nil {
		logging.Fatal("failed to load prompts", "dir", cfg.Classifier.PromptDir, "error", err)
	}

	stages := lifecycle.Default()
	if cfg.StageTablePath != "" {
		stages, err = lifecycle.Load(cfg.StageTablePath)
		if err != nil {
			logging.Fatal("failed to load stage table", "path", cfg.StageTablePath, "error", err)
		}
	}

	opts := service.Options{
		Fallback:        service.FallbackMode(cfg.Store.Fallback),
		StagePolicy:     service.StagePolicy(cfg.StagePolicy),
		StoreTimeout:    cfg.Store.Timeout,
		MaxAttempts:     cfg.Allocation.MaxAttempts,
		HouseClientCode: cfg.HouseClientCode,
		Logger:          logger,
	}
	if cfg.Allocation.RedisURL != "" {
		// プロセス内ロックは失効しないので、期限で打ち切るのは Redis のときだけ
		opts.LockLease = cfg.Allocation.LockTTL
	}
	allocatorService := service.NewAllocatorService(store.Clients, locker, opts)
	projectService := service.NewProjectStoreService(store.Projects, stages, opts)
	ledgerService := service.NewLedgerService(store.Updates, opts)
	trafficService := service.NewTrafficService(clf, instructions, projectService, allocatorService, opts)
	triageService := service.NewTriageService(clf, instructions, allocatorService, projectService, opts)
	updateService := service.NewUpdateService(clf, instructions, projectService, ledgerService, opts)

	healthHandler := handler.NewHealthHandler(handler.HealthInfo{
		Classifier: clf.ProviderName(),
		Store:      store.Backend,
		Stages:     stages.Stages(),
	})
	trafficHandler := handler.NewTrafficHandler(trafficService)
	triageHandler := handler.NewTriageHandler(triageService)
	updateHandler := handler.NewUpdateHandler(updateService, projectService, ledgerService)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("POST /traffic", trafficHandler.Route)
	mux.HandleFunc("POST /triage", triageHandler.Triage)
	mux.HandleFunc("POST /update", updateHandler.Update)
	mux.HandleFunc("GET /jobs/{jobNumber}/updates", updateHandler.List)
	mux.Handle("GET /metrics", metrics.Handler())

	middlewares := []func(http.Handler) http.Handler{handler.RequestID, handler.RequestLogger, handler.Recover}
	if cfg.RateLimitPerMinute > 0 {
		limiter := handler.NewRateLimiter(cfg.RateLimitPerMinute, cfg.TrustedProxyCount)
		defer limiter.Stop()
		middlewares = append(middlewares, limiter.Middleware)
	}

	// 分類器の呼び出しを待つため WriteTimeout は分類タイムアウトより長くする
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler.Chain(mux, middlewares...),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Classifier.Timeout + 2*cfg.Store.Timeout + 10*time.Second,
	}

	go func() {
		slog.Info("server listening",
			"addr", server.Addr,
			"classifier", clf.ProviderName(),
			"store", store.Backend,
			"fallback", cfg.Store.Fallback,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
}

// openStore は STORE_BACKEND に応じた記録ストアを返す
func openStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		pool, err := repository.NewPool(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repository.NewPgStore(pool), nil
	case config.BackendMemory:
		mem := repository.NewMemoryStore()
		if err := mem.SeedClients(cfg.Store.MemorySeedClients); err != nil {
			return nil, err
		}
		return mem.Store(), nil
	default:
		// 資格情報が無くても起動する。各操作が ErrNotConfigured を返し、フォールバックに乗る。
		if !cfg.Store.AirtableConfigured() {
			slog.Warn("airtable credentials missing, record store operations will degrade")
		}
		client := airtable.NewClient(cfg.Store.AirtableAPIKey, cfg.Store.AirtableBaseID, cfg.Store.Timeout)
		client.BaseURL = cfg.Store.AirtableBaseURL
		return repository.NewAirtableStore(client, repository.AirtableTables{
			Clients: cfg.Store.AirtableClientsTable,
			Jobs:    cfg.Store.AirtableJobsTable,
			Updates: cfg.Store.AirtableUpdatesTable,
		}), nil
	}
}

// newLocker は REDIS_URL があれば Redis ロック、無ければプロセス内ロックを返す
func newLocker(cfg *config.Config, logger *slog.Logger) (lock.Locker, func(), error) {
	if cfg.Allocation.RedisURL == "" {
		return lock.NewLocal(), func() {}, nil
	}
	redisOpts, err := redis.ParseURL(cfg.Allocation.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(redisOpts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			slog.Warn("redis close failed", "error", err)
		}
	}
	return lock.NewRedis(client, cfg.Allocation.LockTTL, "dot:alloc:", logger), closeFn, nil
}

// newProvider は CLASSIFIER_PROVIDER に応じた分類プロバイダを返す
func newProvider(ctx context.Context, cfg *config.Config) (classifier.Provider, error) {
	switch cfg.Classifier.Provider {
	case config.ProviderGemini:
		if cfg.Classifier.GeminiAPIKey == "" {
			slog.Warn("GEMINI_API_KEY is not set, classification requests will fail")
		}
		return classifier.NewGemini(ctx, cfg.Classifier.GeminiAPIKey, cfg.Classifier.GeminiModel)
	default:
		if cfg.Classifier.AnthropicAPIKey == "" {
			slog.Warn("ANTHROPIC_API_KEY is not set, classification requests will fail")
		}
		return classifier.NewAnthropic(cfg.Classifier.AnthropicAPIKey, cfg.Classifier.AnthropicModel, cfg.Classifier.AnthropicBaseURL), nil
	}
}
