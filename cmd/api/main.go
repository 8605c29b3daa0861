package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qapp_backend/internal/adapters"
	"qapp_backend/internal/adapters/storage"
	"qapp_backend/internal/auth"
	"qapp_backend/internal/email"
	"qapp_backend/internal/events"
	apphttp "qapp_backend/internal/http"
	"qapp_backend/internal/http/router"
	"qapp_backend/internal/notification"
	"qapp_backend/internal/questions"
	questionssvc "qapp_backend/internal/questions/service"
	"qapp_backend/internal/reports"
	"qapp_backend/internal/scheduler"
	"qapp_backend/internal/uploads"
	uploadssvc "qapp_backend/internal/uploads/service"
	"qapp_backend/internal/users"
	"qapp_backend/migrations"
	"qapp_backend/platform/config"
	"qapp_backend/platform/db"
	"qapp_backend/platform/logger"
	"qapp_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const storageBucketEnsureErrPrefix = "failed to ensure storage bucket exists: "

// ensureBucket wraps the retry logic for verifying a MinIO bucket exists.
func ensureBucket(ctx context.Context, log *logger.Logger, storageSvc storage.StorageService, bucket string) {
	if err := withRetry(ctx, log, "ensure questions bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic(storageBucketEnsureErrPrefix + err.Error())
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	val := validator.New()

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	bucket := cfg.GetMinioBucketQuestions()
	ensureBucket(ctx, log, storageSvc, bucket)
	publicBase := storage.PublicBase(cfg)
	log.Info("storage service initialized", "bucket", bucket, "publicBase", publicBase)

	cleanupScheduler, closeScheduler := initCleanupScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}
	objectCleaner := adapters.NewObjectCleaner(cleanupScheduler, storageSvc, bucket, log)

	quota, closeQuota := initPresignQuota(cfg, log)
	if closeQuota != nil {
		defer closeQuota()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	notificationModule := notification.New(sender, cfg, objectCleaner, log)
	notificationModule.RegisterHandlers(eventBus)

	uploadsModule := uploads.NewModule(storageSvc, objectCleaner, quota, uploadssvc.Options{
		Bucket:        bucket,
		PublicBaseURL: publicBase,
		TTL:           cfg.GetPresignTTL(),
		MaxFileSize:   cfg.GetUploadMaxFileSize(),
	}, val, log)

	questionsModule := questions.NewModule(pool, eventBus, questionssvc.Options{
		PublicBaseURL: publicBase,
		AppBaseURL:    cfg.GetAppBaseURL(),
	}, val, log)

	// Upload counts on public profiles come straight from the questions table.
	usersModule := users.NewModule(pool, questionsModule.Repository(), val, log)

	// Anti-Corruption Layer: auth only knows its AccountStore port.
	accountStore := adapters.NewAccountStoreAdapter(usersModule.Service())
	authModule := auth.NewModule(accountStore, eventBus, log)

	questionLookup := adapters.NewQuestionLookupAdapter(questionsModule.Repository())
	reportsModule := reports.NewModule(pool, questionLookup, eventBus, val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			usersModule,
			uploadsModule,
			questionsModule,
			reportsModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initCleanupScheduler returns a nil interface when Redis is not configured
// so deletions run inline.
func initCleanupScheduler(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.ObjectCleanupScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; object cleanup runs inline")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize cleanup scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initPresignQuota(cfg *config.Config, log *logger.Logger) (uploadssvc.Quota, func()) {
	if cfg.GetRedisURL() == "" {
		return uploadssvc.NoopQuota{}, nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL; presign quota disabled", "error", err)
		return uploadssvc.NoopQuota{}, nil
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}

	client := redis.NewClient(opt)
	return uploadssvc.NewRedisQuota(client, cfg.GetPresignQuotaPerHour(), time.Hour), func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
