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
	"intake_portal_backend/internal/outreach"
	outreachrepo "intake_portal_backend/internal/outreach/repository"
	"intake_portal_backend/internal/replymonitor"
	"intake_portal_backend/internal/scheduler"
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

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	rdb, err := newRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}
	defer func() { _ = rdb.Close() }()

	eventBus := events.NewInMemoryBus(log)

	engineSettings, err := settings.Load(cfg)
	if err != nil {
		log.Error("failed to load engine settings", "error", err)
		panic("failed to load engine settings: " + err.Error())
	}

	sender := email.NewSender(cfg, log)

	followUpScheduler, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize follow-up scheduler client", "error", err)
		panic("failed to initialize follow-up scheduler client: " + err.Error())
	}
	defer func() { _ = followUpScheduler.Close() }()

	val := validator.New()

	// Worker-side module wiring (no HTTP handlers required).
	clientsModule := clients.NewModule(pool, eventBus, log, val)
	outreachModule := outreach.NewModule(pool, clientsModule.Service, sender, followUpScheduler, eventBus, engineSettings, log, val)

	if cfg.IsMailboxEnabled() {
		mailbox := replymonitor.NewIMAPMailbox(cfg)
		monitorModule := replymonitor.NewModule(mailbox, rdb, clientsModule.Service, outreachrepo.New(pool), eventBus, log)
		runner := replymonitor.NewRunner(monitorModule.Service, engineSettings.ReplyCheckInterval(), log)
		go runner.Run(ctx)
	} else {
		log.Warn("IMAP mailbox not configured; reply monitoring disabled")
	}

	autoCloseSweep := scheduler.NewAutoCloseSweep(outreachModule.Service, log, getDurationEnv("AUTO_CLOSE_SWEEP_INTERVAL", time.Hour))
	go autoCloseSweep.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, outreachModule.Service, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
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

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
