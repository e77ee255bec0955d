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

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/nexus-edu/nexus-enroll-api/api/swagger"
	"github.com/nexus-edu/nexus-enroll-api/internal/handler"
	"github.com/nexus-edu/nexus-enroll-api/internal/repository"
	"github.com/nexus-edu/nexus-enroll-api/internal/router"
	"github.com/nexus-edu/nexus-enroll-api/internal/service"
	"github.com/nexus-edu/nexus-enroll-api/pkg/cache"
	"github.com/nexus-edu/nexus-enroll-api/pkg/config"
	"github.com/nexus-edu/nexus-enroll-api/pkg/database"
	"github.com/nexus-edu/nexus-enroll-api/pkg/jobs"
	"github.com/nexus-edu/nexus-enroll-api/pkg/logger"
	"github.com/nexus-edu/nexus-enroll-api/pkg/metrics"
	"github.com/nexus-edu/nexus-enroll-api/pkg/storage"
)

// @title Nexus Enroll API
// @version 1.0
// @description Student enrollment platform: course catalogue, enrollment transactions, grades and reporting.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}

	validate := validator.New()
	m := metrics.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, log)
	defer func() { _ = cacheRepo.Close() }()

	notificationService := service.NewNotificationService(notificationRepo, enrollmentRepo, courseRepo, userRepo, log)

	dispatchQueue := jobs.NewQueue("notifications", dispatchHandler(notificationService, log), jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     log,
	})
	dispatchQueue.Start(context.Background())
	defer dispatchQueue.Stop()

	exportStore, err := storage.NewExportStore(cfg.Reports.ExportDir)
	if err != nil {
		log.Fatal("failed to prepare export directory", zap.Error(err))
	}
	linkSecret := cfg.Reports.ExportLinkSecret
	if linkSecret == "" {
		linkSecret = cfg.JWT.Secret
	}
	linkSigner := storage.NewLinkSigner(linkSecret, cfg.Reports.ExportLinkTTL)

	var catalogCache, reportsCache *repository.CacheRepository
	if cfg.Catalog.CacheEnabled {
		catalogCache = cacheRepo
	}
	if cfg.Reports.CacheEnabled {
		reportsCache = cacheRepo
	}

	authService := service.NewAuthService(userRepo, cfg.JWT, validate, log)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, courseRepo, userRepo, gradeRepo, dispatchQueue, validate, log)
	courseService := service.NewCourseService(courseRepo, enrollmentRepo, userRepo, cacheAsStore(catalogCache), cfg.Catalog.CacheTTL, validate, log)
	userService := service.NewUserService(userRepo, enrollmentRepo, courseRepo, validate, log)
	gradeService := service.NewGradeService(gradeRepo, enrollmentRepo, courseRepo, dispatchQueue, validate, log)
	reportService := service.NewReportService(courseRepo, enrollmentRepo, userRepo, cacheAsStore(reportsCache), cfg.Reports.CacheTTL, log)

	engine := router.New(router.Dependencies{
		Config:        cfg,
		Logger:        log,
		Metrics:       m,
		DB:            db,
		Redis:         redisClient,
		Auth:          authService,
		Enrollments:   handler.NewEnrollmentHandler(enrollmentService, m, log),
		Courses:       handler.NewCourseHandler(courseService, log),
		AuthHandler:   handler.NewAuthHandler(authService, log),
		Grades:        handler.NewGradeHandler(gradeService, log),
		Users:         handler.NewUserHandler(userService, log),
		Reports:       handler.NewReportHandler(reportService, exportStore, linkSigner, log),
		Notifications: handler.NewNotificationHandler(notificationService, log),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

// dispatchHandler routes queued jobs to their notification fan-outs.
func dispatchHandler(notifications *service.NotificationService, log *zap.Logger) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		switch job.Type {
		case service.JobTypeCourseAvailable:
			courseID, ok := job.Payload.(string)
			if !ok {
				log.Error("invalid course_available payload", zap.Any("payload", job.Payload))
				return nil
			}
			return notifications.NotifyCourseAvailable(ctx, courseID)
		case service.JobTypeGradeSubmitted:
			payload, ok := job.Payload.(service.GradeSubmittedJob)
			if !ok {
				log.Error("invalid grade_submitted payload", zap.Any("payload", job.Payload))
				return nil
			}
			return notifications.NotifyGradeSubmitted(ctx, payload.StudentID, payload.CourseID)
		default:
			log.Warn("unknown job type", zap.String("type", job.Type))
			return nil
		}
	}
}

// cacheAsStore avoids handing services a typed-nil interface when a
// cache layer is disabled.
func cacheAsStore(repo *repository.CacheRepository) service.CacheStore {
	if repo == nil {
		return nil
	}
	return repo
}
