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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-change-api/api/swagger"
	"github.com/noah-isme/timetable-change-api/internal/handler"
	"github.com/noah-isme/timetable-change-api/internal/middleware"
	"github.com/noah-isme/timetable-change-api/internal/repository"
	"github.com/noah-isme/timetable-change-api/internal/router"
	"github.com/noah-isme/timetable-change-api/internal/service"
	"github.com/noah-isme/timetable-change-api/internal/timetable"
	"github.com/noah-isme/timetable-change-api/pkg/cache"
	"github.com/noah-isme/timetable-change-api/pkg/config"
	"github.com/noah-isme/timetable-change-api/pkg/database"
	"github.com/noah-isme/timetable-change-api/pkg/jobs"
	"github.com/noah-isme/timetable-change-api/pkg/logger"
)

// @title Timetable Change API
// @version 1.0.0
// @description Validation and approval of timetable swap and leave requests
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, running without directory cache and outcome events", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()
	requestRepo := repository.NewChangeRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	var (
		store     *timetable.Store
		directory service.DirectoryProvider
		source    *repository.SessionRepository
	)
	year := cfg.Timetable.AcademicYear
	if cfg.Timetable.SeedFile != "" {
		seed, err := repository.LoadSeedFile(cfg.Timetable.SeedFile)
		if err != nil {
			return err
		}
		if seed.AcademicYear != "" {
			year = seed.AcademicYear
		}
		store = timetable.NewStore(timetable.WithLogger(logr))
		if err := store.Load(seed.Sessions); err != nil {
			return fmt.Errorf("load seed timetable: %w", err)
		}
		directory = service.NewStaticDirectory(seed.Directory(cfg.Directory.DefaultMaxWeeklyHours))
		logr.Info("timetable seeded from file", zap.String("path", cfg.Timetable.SeedFile), zap.Int("sessions", len(seed.Sessions)))
	} else {
		source = repository.NewSessionRepository(db)
		store = timetable.NewStore(timetable.WithLogger(logr), timetable.WithPersister(source))
		var dirCache service.DirectoryCache
		if redisClient != nil {
			dirCache = repository.NewCacheRepository(redisClient, "timetable")
		}
		directory = service.NewDirectoryService(repository.NewDirectoryRepository(db), dirCache, metrics, cfg.Directory.CacheTTL, cfg.Directory.DefaultMaxWeeklyHours, logr)
	}

	timetableSvc := service.NewTimetableService(store, sessionSourceOrNil(source), directory, year, logr,
		service.WithTimetableSuggestionLimit(cfg.Timetable.SuggestionLimit))
	if source != nil {
		if err := timetableSvc.Reload(ctx); err != nil {
			return err
		}
	}

	var queue *jobs.Queue
	notifier := service.NewNotificationService(nil, logr)
	if cfg.Notifications.Enabled && redisClient != nil {
		worker := service.NewOutcomeWorker(repository.NewEventPublisher(redisClient, cfg.Notifications.Channel), logr)
		queue = jobs.NewQueue("outcome-notifications", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			MaxRetries: cfg.Notifications.Retries,
			RetryDelay: time.Second,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		notifier = service.NewNotificationService(queue, logr, service.WithEnqueueTimeout(cfg.Notifications.EnqueueTimeout))
	}

	applier := service.NewChangeApplier(store, requestRepo, directory, auditRepo, logr,
		service.WithApplierAcademicYear(year),
		service.WithMaxCommitAttempts(cfg.Timetable.MaxCommitAttempts),
		service.WithApplierNotifier(notifier),
		service.WithApplierMetrics(metrics),
	)
	changes := service.NewChangeRequestService(requestRepo, store, directory, applier, auditRepo, validator.New(), logr,
		service.WithChangeRequestConfig(service.ChangeRequestConfig{AcademicYear: year, SuggestionLimit: cfg.Timetable.SuggestionLimit}),
		service.WithChangeRequestNotifier(notifier),
		service.WithChangeRequestMetrics(metrics),
	)
	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Expiry: cfg.JWT.Expiration})

	engine := router.New(router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Tokens:         tokens,
		RateLimiter:    middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logr),
		Observer:       metrics,
		Swaps:          handler.NewSwapRequestHandler(changes),
		Leaves:         handler.NewLeaveRequestHandler(changes),
		Requests:       handler.NewRequestHandler(changes),
		Timetable:      handler.NewTimetableHandler(timetableSvc),
		Metrics:        handler.NewMetricsHandler(metrics, readinessChecks(db, redisClient)),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func sessionSourceOrNil(repo *repository.SessionRepository) service.SessionSource {
	if repo == nil {
		return nil
	}
	return repo
}

func readinessChecks(db *sqlx.DB, client *redis.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"postgres": func(ctx context.Context) error { return db.PingContext(ctx) },
	}
	if client != nil {
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	return checks
}
