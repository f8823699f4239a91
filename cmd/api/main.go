package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intake_portal_backend/internal/clients"
	"intake_portal_backend/internal/email"
	"intake_portal_backend/internal/events"
	apphttp "intake_portal_backend/internal/http"
	"intake_portal_backend/internal/http/router"
	"intake_portal_backend/internal/outreach"
	outreachrepo "intake_portal_backend/internal/outreach/repository"
	"intake_portal_backend/internal/referral"
	"intake_portal_backend/internal/replymonitor"
	"intake_portal_backend/internal/scheduler"
	"intake_portal_backend/internal/scheduling"
	"intake_portal_backend/internal/settings"
	"intake_portal_backend/platform/config"
	"intake_portal_backend/platform/db"
	"intake_portal_backend/platform/logger"
	"intake_portal_backend/platform/validator"

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

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
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

	rdb, err := newRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}
	defer func() { _ = rdb.Close() }()

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	engineSettings, err := settings.Load(cfg)
	if err != nil {
		log.Error("failed to load engine settings", "error", err)
		panic("failed to load engine settings: " + err.Error())
	}
	log.Info("engine settings loaded",
		"followUp1Days", engineSettings.FollowUp1Days,
		"followUp2Days", engineSettings.FollowUp2Days,
		"autoCloseDays", engineSettings.AutoCloseDays,
		"outreachAttemptCount", engineSettings.OutreachAttemptCount,
	)

	sender := email.NewSender(cfg, log)

	followUpScheduler, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize follow-up scheduler client", "error", err)
		panic("failed to initialize follow-up scheduler client: " + err.Error())
	}
	defer func() { _ = followUpScheduler.Close() }()

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Clients owns the status state machine; every other module mutates
	// client status through its service.
	clientsModule := clients.NewModule(pool, eventBus, log, val)

	outreachModule := outreach.NewModule(pool, clientsModule.Service, sender, followUpScheduler, eventBus, engineSettings, log, val)
	referralModule := referral.NewModule(pool, clientsModule.Service, sender, eventBus, log, val)
	schedulingModule := scheduling.NewModule(pool, clientsModule.Service, eventBus, engineSettings, log, val)

	modules := []apphttp.Module{
		clientsModule,
		outreachModule,
		referralModule,
		schedulingModule,
	}

	if cfg.IsMailboxEnabled() {
		mailbox := replymonitor.NewIMAPMailbox(cfg)
		monitorModule := replymonitor.NewModule(mailbox, rdb, clientsModule.Service, outreachrepo.New(pool), eventBus, log)
		modules = append(modules, monitorModule)
	} else {
		log.Warn("IMAP mailbox not configured; reply monitoring disabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules:  modules,
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func newRedisClient(cfg config.SchedulerConfig) (*redis.Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if cfg.GetRedisTLSInsecure() && opt.TLSConfig != nil {
		opt.TLSConfig.InsecureSkipVerify = true
	}

	return redis.NewClient(opt), nil
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
