package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itskum47/KMRL-DocAI/internal/audit"
	"github.com/itskum47/KMRL-DocAI/internal/config"
	httpserver "github.com/itskum47/KMRL-DocAI/internal/http"
	"github.com/itskum47/KMRL-DocAI/internal/http/handlers"
	"github.com/itskum47/KMRL-DocAI/internal/identity"
	"github.com/itskum47/KMRL-DocAI/internal/queue"
	"github.com/itskum47/KMRL-DocAI/internal/repository"
	"github.com/itskum47/KMRL-DocAI/internal/service"
	"github.com/itskum47/KMRL-DocAI/internal/storage"
	"github.com/itskum47/KMRL-DocAI/internal/worker"
)

type repositories struct {
	documents repository.DocumentsRepository
	tasks     repository.TasksRepository
	audits    repository.AuditRepository
}

func main() {
	logger := log.New(os.Stdout, "[docai] ", log.LstdFlags|log.LUTC|log.Lmicroseconds)
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.Printf("failed loading .env files: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, repoCloser := setupRepositories(ctx, cfg, logger)
	defer repoCloser()

	jobQueue, dequeuer, queueCloser := setupQueue(ctx, cfg, logger)
	defer queueCloser()

	gateway, gatewayCloser := setupStorage(ctx, cfg, logger)
	defer gatewayCloser()

	recorder := audit.NewRecorder(repos.audits, logger)
	documentsService := service.NewDocumentsService(service.DocumentsDependencies{
		Documents: repos.documents,
		Jobs:      jobQueue,
		Gateway:   gateway,
		Recorder:  recorder,
		Logger:    logger,
		SignTTL:   time.Duration(cfg.StorageSignTTLSeconds) * time.Second,
	})
	tasksService := service.NewTasksService(repos.tasks, recorder)
	resultsService := service.NewResultsService(repos.documents, repos.tasks, recorder, logger)

	api := handlers.NewAPI(handlers.APIDependencies{
		Documents:    documentsService,
		Tasks:        tasksService,
		Results:      resultsService,
		Jobs:         jobQueue,
		WebhookToken: cfg.WebhookToken,
		Logger:       logger,
	})

	var verifier identity.Verifier
	if len(cfg.AuthTokens) > 0 {
		static := identity.NewStaticVerifier(cfg.AuthTokens)
		verifier = static
		logger.Printf("static auth enabled tokens=%d", static.Size())
	} else {
		logger.Printf("API_AUTH_TOKENS not configured, auth disabled")
	}

	handler := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         logger,
		Verifier:       verifier,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	if cfg.WorkerStubEnabled {
		stub := worker.NewStub(jobQueue, dequeuer, resultsService, logger)
		go stub.Start(ctx)
		logger.Printf("stub worker enabled and started")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Printf("api listening on :%s", cfg.Port)
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}

func setupRepositories(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (repositories, func()) {
	memory := repositories{
		documents: repository.NewMemoryDocumentsRepository(),
		tasks:     repository.NewMemoryTasksRepository(),
		audits:    repository.NewMemoryAuditRepository(),
	}

	if cfg.DatabaseURL == "" {
		logger.Printf("DATABASE_URL not configured, using in-memory repositories")
		return memory, func() {}
	}

	pool, err := repository.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Printf("failed to initialize postgres pool, fallback to memory: %v", err)
		return memory, func() {}
	}
	logger.Printf("postgres repositories initialized")
	return repositories{
		documents: repository.NewPostgresDocumentsRepository(pool),
		tasks:     repository.NewPostgresTasksRepository(pool),
		audits:    repository.NewPostgresAuditRepository(pool),
	}, pool.Close
}

func setupQueue(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (queue.Queue, queue.Dequeuer, func()) {
	statusTTL := time.Duration(cfg.JobStatusTTLSeconds) * time.Second

	if cfg.RedisAddr == "" {
		logger.Printf("REDIS_ADDR not configured, using local queue fallback")
		local := queue.NewMemoryQueue(cfg.QueueLocalCapacity, statusTTL)
		return local, local, func() {}
	}

	redisQueue, err := queue.NewRedisQueue(ctx, queue.RedisConfig{
		Addr:      cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		QueueKey:  cfg.RedisQueueKey,
		StatusTTL: statusTTL,
	})
	if err != nil {
		logger.Printf("failed to initialize redis queue, fallback to local: %v", err)
		local := queue.NewMemoryQueue(cfg.QueueLocalCapacity, statusTTL)
		return local, local, func() {}
	}
	logger.Printf("redis queue initialized key=%s", cfg.RedisQueueKey)
	return redisQueue, redisQueue, func() {
		_ = redisQueue.Close()
	}
}

func setupStorage(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (storage.Gateway, func()) {
	if cfg.StorageBucket == "" {
		logger.Printf("STORAGE_BUCKET not configured, using local signing fallback")
		return storage.NewLocalGateway(cfg.StorageLocalBaseURL, cfg.StorageLocalSecret), func() {}
	}

	gcs, err := storage.NewGCSGateway(ctx, cfg.StorageBucket)
	if err != nil {
		logger.Printf("failed to initialize object storage client, fallback to local signing: %v", err)
		return storage.NewLocalGateway(cfg.StorageLocalBaseURL, cfg.StorageLocalSecret), func() {}
	}
	logger.Printf("object storage gateway initialized bucket=%s", cfg.StorageBucket)
	return gcs, func() {
		_ = gcs.Close()
	}
}
