// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"loanflow/internal/archive"
	"loanflow/internal/clients/bureau"
	"loanflow/internal/clients/documents"
	"loanflow/internal/clients/genai"
	"loanflow/internal/clients/letters"
	"loanflow/internal/common/aws"
	"loanflow/internal/common/config"
	"loanflow/internal/common/database"
	"loanflow/internal/common/logger"
	"loanflow/internal/common/observability"
	"loanflow/internal/engine"
	"loanflow/internal/notify"
	"loanflow/internal/registry"
	"loanflow/internal/search"
	transport "loanflow/internal/transport/http"
	"loanflow/pkg/doccatalog"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting loanflow server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Conversation registry ---
	var reg engine.Registry
	switch cfg.Registry.Backend {
	case "redis":
		var redisClient *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		reg = registry.NewRedisRegistry(redisClient.Client, time.Duration(cfg.Registry.TTL)*time.Second)
		zapLog.Info("Redis registry connected")
	default:
		reg = registry.NewMemoryRegistry()
		zapLog.Info("In-memory registry selected")
	}

	// --- PostgreSQL archive (optional) ---
	var store *archive.Store
	if cfg.Database.Postgres.Host != "" {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		store = archive.NewStore(pg.DB, log)
		zapLog.Info("PostgreSQL archive connected")
	}

	// --- Decision hooks ---
	var hooks []engine.DecisionHook

	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		hooks = append(hooks, search.NewIndexer(esClient.Client, cfg.Database.Elasticsearch.Index, log))
		zapLog.Info("Elasticsearch indexer enabled")
	}

	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("SES client failed", zap.Error(err))
		}
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("SNS client failed", zap.Error(err))
		}
		hooks = append(hooks, notify.NewNotifier(notify.Config{
			EmailEnabled: cfg.Notifications.Email.Enabled,
			SMSEnabled:   cfg.Notifications.SMS.Enabled,
			FromEmail:    cfg.Notifications.Email.FromEmail,
			OpsEmail:     cfg.Notifications.Email.OpsEmail,
			OpsPhone:     cfg.Notifications.SMS.OpsNumber,
		}, sesClient.Raw(), snsClient.Raw(), log))
		zapLog.Info("Decision notifier enabled")
	}

	// --- Document catalog ---
	catalog := doccatalog.Default()
	if cfg.Catalog.Path != "" {
		catalog, err = doccatalog.Load(cfg.Catalog.Path)
		if err != nil {
			zapLog.Fatal("catalog load failed", zap.Error(err))
		}
	}

	// --- Collaborator clients ---
	genaiClient := genai.NewClient(genai.Config{
		BaseURL:    cfg.APIs.GenAI.BaseURL,
		APIKey:     cfg.APIs.GenAI.APIKey,
		Timeout:    config.GetDuration(cfg.APIs.GenAI.Timeout),
		MaxRetries: cfg.APIs.GenAI.MaxRetries,
	}, log)

	bureauClient := bureau.NewClient(bureau.Config{
		BaseURL: cfg.APIs.CreditBureau.BaseURL,
		APIKey:  cfg.APIs.CreditBureau.APIKey,
		Timeout: config.GetDuration(cfg.APIs.CreditBureau.Timeout),
	}, log)

	docsClient := documents.NewClient(documents.Config{
		BaseURL: cfg.APIs.DocumentService.BaseURL,
		Timeout: config.GetDuration(cfg.APIs.DocumentService.Timeout),
	}, log)

	lettersClient := letters.NewClient(letters.Config{
		BaseURL: cfg.APIs.LetterService.BaseURL,
		Timeout: config.GetDuration(cfg.APIs.LetterService.Timeout),
	}, log)

	deps := engine.Deps{
		Registry: reg,
		Gen:      genaiClient,
		Extract:  genaiClient,
		Bureau:   bureauClient,
		Docs:     docsClient,
		Letters:  lettersClient,
		Catalog:  catalog,
		Hooks:    hooks,
		Logger:   log,
		Obs:      obs,
	}
	if store != nil {
		deps.Recorder = store
	}
	service := engine.NewService(deps)

	var statsSource transport.StatsSource
	if store != nil {
		statsSource = store
	}
	server := transport.NewServer(service, statsSource, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Server stopped gracefully")
}
