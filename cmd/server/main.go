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

	"mergeflow/internal/api"
	"mergeflow/internal/config"
	"mergeflow/internal/metrics"
	"mergeflow/internal/model"
	"mergeflow/internal/repository"
	"mergeflow/internal/service"
	"mergeflow/pkg/logger"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	logger.InitLogger(cfg.Server.Environment)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("application startup failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Infrastructure
	rdb, err := initRedis(cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	etcdCli, err := initEtcd(cfg.Etcd)
	if err != nil {
		return err
	}
	defer etcdCli.Close()

	db, err := initDB(cfg.MySQL)
	if err != nil {
		return err
	}

	// Repositories
	liveRepo := repository.NewLiveRepository(etcdCli)
	auditRepo := repository.NewAuditRepository(db)
	featureRepo := repository.NewFeatureMasterRepository(db)
	revisionRepo := repository.NewRevisionRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	sdkRepo := repository.NewSDKKeyRepository(db)

	// Services
	observer := metrics.NewPrometheusObserver()
	hub := service.NewHub(observer, cfg.Stream.HeartbeatInterval, cfg.Stream.HubBufferSize)

	settings := &service.StaticSettings{
		Policy:    cfg.Review,
		Checklist: cfg.Checklist,
		Overrides: cfg.Projects.ReviewOverrides,
	}

	workflowSvc := service.NewWorkflowService(
		db,
		featureRepo,
		revisionRepo,
		reviewRepo,
		auditRepo,
		outboxRepo,
		liveRepo,
		settings,
		service.RoleCapabilities{},
		observer,
		cfg.Projects.Environments,
	)
	featureSvc := service.NewFeatureService(featureRepo, revisionRepo, reviewRepo, auditRepo, liveRepo, hub)
	authSvc := service.NewAuthService(rdb, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)

	// Background workers
	outboxWorker := service.NewOutboxWorker(outboxRepo, liveRepo, cfg.Workers.OutboxInterval)
	reconciler := service.NewReconciler(etcdCli, liveRepo, featureRepo, cfg.Workers.ReconcilerInterval)

	go func() {
		logger.Info("starting outbox worker")
		outboxWorker.Run(ctx)
	}()
	go func() {
		logger.Info("starting reconciler")
		reconciler.Run(ctx)
	}()
	go func() {
		logger.Info("starting hub")
		hub.Run()
	}()
	go func() {
		logger.Info("starting live config watcher")
		featureSvc.Run(ctx)
	}()

	// HTTP server
	r := api.RegisterRoutes(
		api.NewFeatureHandler(featureSvc),
		api.NewRevisionHandler(workflowSvc),
		api.NewStreamHandler(featureSvc, hub),
		api.NewAuthHandler(authSvc),
		sdkRepo,
		rdb,
		cfg.RateLimit.RequestsPerSecond,
		cfg.Server.Environment,
	)

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.Server.Port),
			zap.String("env", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Signal all workers to stop
	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited properly")
	return nil
}

// -- Infrastructure Initializers --

func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func initEtcd(cfg config.EtcdConfig) (*clientv3.Client, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}
	return client, nil
}

func initDB(cfg config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}

	// Simple auto-migrate for dev convenience
	// In production, you might want to use a proper migration tool like golang-migrate
	err = db.AutoMigrate(
		&model.FeatureMaster{},
		&model.FeatureRevision{},
		&model.ReviewSubmission{},
		&model.FeatureAudit{},
		&model.OutboxTask{},
		&model.SDKClient{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
