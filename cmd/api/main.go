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
	_ "time/tzdata"

	"salesbot_backend/internal/adapters/storage"
	"salesbot_backend/internal/agent"
	"salesbot_backend/internal/bookings"
	"salesbot_backend/internal/business"
	"salesbot_backend/internal/conversation"
	"salesbot_backend/internal/email"
	"salesbot_backend/internal/events"
	apphttp "salesbot_backend/internal/http"
	"salesbot_backend/internal/http/router"
	"salesbot_backend/internal/notification"
	"salesbot_backend/internal/operator"
	"salesbot_backend/internal/orchestrator"
	"salesbot_backend/internal/scheduler"
	"salesbot_backend/internal/scheduling"
	"salesbot_backend/internal/webhook"
	"salesbot_backend/internal/whatsapp"
	"salesbot_backend/migrations"
	"salesbot_backend/platform/ai/openaicompat"
	"salesbot_backend/platform/config"
	"salesbot_backend/platform/db"
	"salesbot_backend/platform/logger"
	"salesbot_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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

	if cfg.MigrationsEnabled {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, pool, migrations.FS)
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	businessRepo := business.NewRepository(pool)
	seedBusinesses(ctx, cfg, businessRepo, log)

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	alertScheduler, closeScheduler := initAlertScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	dedupe, closeRedis := initDeduper(cfg, log)
	if closeRedis != nil {
		defer closeRedis()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	photos := initPhotoResolver(ctx, cfg, log)
	whatsappClient := whatsapp.NewClient(cfg, photos, log)
	if whatsappClient == nil {
		log.Warn("TWILIO_ACCOUNT_SID not configured; outbound messages are dropped")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	conversationRepo := conversation.NewRepository(pool)
	ledger := bookings.NewRepository(pool)

	llm := openaicompat.NewModel(openaicompat.Config{
		APIKey:  cfg.GetLLMAPIKey(),
		BaseURL: cfg.GetLLMBaseURL(),
		Model:   cfg.GetLLMModel(),
		Timeout: cfg.GetLLMTimeout(),
	})
	generator := agent.NewModelGenerator(llm)
	log.Info("text generation configured", "model", llm.Name())

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(businessRepo, whatsappClient, email.NewSender(cfg), log)
	if alertScheduler != nil {
		notificationModule.SetScheduler(alertScheduler)
	}
	notificationModule.RegisterHandlers(eventBus)

	engine := orchestrator.New(orchestrator.Deps{
		Businesses:    businessRepo,
		Conversations: conversationRepo,
		Ledger:        ledger,
		Mediator:      agent.NewMediator(generator, log),
		Generator:     generator,
		Flow:          scheduling.NewFlow(ledger),
		Sender:        whatsappClient,
		Bus:           eventBus,
		Dedupe:        dedupe,
		Log:           log,
	}, orchestrator.Options{
		OverrideTimeout: cfg.GetHumanOverrideTimeout(),
		HistoryWindow:   cfg.GetHistoryWindow(),
		DefaultTimezone: cfg.GetDefaultTimezone(),
	})

	webhookModule := webhook.NewModule(engine, cfg, log)
	operatorModule := operator.NewModule(conversationRepo, ledger, whatsappClient, cfg.GetHumanOverrideTimeout(), val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			webhookModule,
			operatorModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
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
			log.Error("server shutdown", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// seedBusinesses upserts the snapshots of BUSINESS_CONFIG_FILE, when set.
func seedBusinesses(ctx context.Context, cfg config.BusinessSourceConfig, repo *business.Repo, log *logger.Logger) {
	path := cfg.GetBusinessConfigFile()
	if path == "" {
		return
	}

	src, err := business.LoadFile(path)
	if err != nil {
		log.Error("failed to load business file", "path", path, "error", err)
		panic("failed to load business file: " + err.Error())
	}

	n, err := business.Seed(ctx, src, repo)
	if err != nil {
		log.Error("failed to seed businesses", "seeded", n, "error", err)
		panic("failed to seed businesses: " + err.Error())
	}
	log.Info("businesses seeded", "count", n, "path", path)
}

func initAlertScheduler(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.AlertScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; owner alerts are delivered inline")
		return nil, nil
	}

	alertClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize alert scheduler client", "error", err)
		return nil, nil
	}

	return alertClient, func() {
		_ = alertClient.Close()
	}
}

func initDeduper(cfg config.RedisConfig, log *logger.Logger) (orchestrator.Deduper, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; inbound de-duplication disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL; inbound de-duplication disabled", "error", err)
		return nil, nil
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}

	client := redis.NewClient(opt)
	return orchestrator.NewRedisDeduper(client), func() {
		_ = client.Close()
	}
}

func initPhotoResolver(ctx context.Context, cfg config.MinIOConfig, log *logger.Logger) whatsapp.PhotoResolver {
	if !cfg.IsMinIOEnabled() {
		log.Info("MINIO_ENDPOINT not configured; catalog photos must be absolute URLs")
		return storage.PassthroughResolver{}
	}

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}

	bucket := cfg.GetMinioBucketCatalogPhotos()
	if err := withRetry(ctx, log, "ensure catalog-photos bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "catalogPhotosBucket", bucket)
	return storageSvc
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
