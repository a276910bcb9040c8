package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/thesis-review-api/api/swagger"
	"github.com/noah-isme/thesis-review-api/internal/handler"
	"github.com/noah-isme/thesis-review-api/internal/middleware"
	"github.com/noah-isme/thesis-review-api/internal/repository"
	"github.com/noah-isme/thesis-review-api/internal/service"
	"github.com/noah-isme/thesis-review-api/pkg/cache"
	"github.com/noah-isme/thesis-review-api/pkg/config"
	"github.com/noah-isme/thesis-review-api/pkg/database"
	"github.com/noah-isme/thesis-review-api/pkg/jobs"
	"github.com/noah-isme/thesis-review-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/thesis-review-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/thesis-review-api/pkg/middleware/requestid"
	"github.com/noah-isme/thesis-review-api/pkg/storage"
)

// @title Thesis Review API
// @version 1.0.0
// @description Topic registration, tribunal assignment, versioned submissions and verdict aggregation
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := database.NewMigrator(db, logr).Up(ctx, cfg.Database.MigrationsDir)
		if err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		logr.Info("migrations applied", zap.Strings("versions", applied))
	}

	cacheRepo := repository.NewCacheRepository(nil, "thesis")
	if cfg.TopicCache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, topic cache disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, "thesis")
		}
	}
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.TopicCache.TTL, logr, cfg.TopicCache.Enabled)

	txManager := database.NewTxManager(db)
	userRepo := repository.NewUserRepository(db)
	topicRepo := repository.NewTopicRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	blobs, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Fatal("failed to init document storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)
	documentSvc := service.NewDocumentService(blobs, signer, service.DocumentConfig{
		MaxFileSizeBytes: cfg.Documents.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Documents.AllowedMIMEs,
		DownloadPath:     cfg.APIPrefix + "/files/download",
	}, logr)

	cleanupQueue := jobs.NewQueue("document-cleanup", documentSvc.HandleCleanup, jobs.QueueConfig{
		Workers:    cfg.Cleanup.Workers,
		MaxRetries: cfg.Cleanup.Retries,
		RetryDelay: cfg.Cleanup.RetryDelay,
		Logger:     logr,
	})
	cleanupQueue.Start(ctx)
	defer cleanupQueue.Stop()
	documentSvc.UseCleanupQueue(cleanupQueue)

	validate := validator.New()
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})
	auditSvc := service.NewAuditService(auditRepo, logr)
	aggregation := service.NewAggregationEngine(txManager, topicRepo, reviewRepo, metricsSvc, logr)

	topicSvc := service.NewTopicService(txManager, topicRepo, versionRepo, assignmentRepo, reviewRepo, userRepo, documentSvc, cacheSvc, auditSvc, validate, logr)
	assignmentSvc := service.NewAssignmentService(txManager, topicRepo, versionRepo, assignmentRepo, reviewRepo, userRepo, aggregation, cacheSvc, auditSvc, validate, logr)
	versionSvc := service.NewVersionService(txManager, topicRepo, versionRepo, assignmentRepo, reviewRepo, documentSvc, aggregation, cacheSvc, auditSvc, metricsSvc, validate, logr)
	reviewSvc := service.NewReviewService(txManager, topicRepo, assignmentRepo, reviewRepo, aggregation, cacheSvc, auditSvc, metricsSvc, validate, logr)
	feedbackSvc := service.NewFeedbackService(topicRepo, assignmentRepo, feedbackRepo, documentSvc, auditSvc, validate, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, cfg.APIPrefix, middleware.JWT(authSvc), handler.Handlers{
		Topics:      handler.NewTopicHandler(topicSvc),
		Assignments: handler.NewAssignmentHandler(assignmentSvc),
		Versions:    handler.NewVersionHandler(versionSvc),
		Reviews:     handler.NewReviewHandler(reviewSvc),
		Feedback:    handler.NewFeedbackHandler(feedbackSvc),
		Documents:   handler.NewDocumentHandler(documentSvc),
		Metrics: handler.NewMetricsHandler(metricsSvc, map[string]handler.Pinger{
			"database": handler.PingFunc(db.PingContext),
			"cache":    cacheRepo,
		}),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
