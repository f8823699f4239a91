package scheduler

import (
	"context"
	"fmt"

	"intake_portal_backend/platform/config"
	"intake_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// OutreachHandler is the slice of the outreach service the worker drives.
type OutreachHandler interface {
	HandleFollowUpCheck(ctx context.Context, clientID uuid.UUID, attemptNumber int) error
	HandleAutoCloseSweep(ctx context.Context) error
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	outreach OutreachHandler
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, outreach OutreachHandler, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		outreach: outreach,
		log:      log,
	}

	mux.HandleFunc(TaskFollowUpCheck, w.handleFollowUpCheck)

	return w, nil
}

func (w *Worker) handleFollowUpCheck(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowUpCheckPayload(task)
	if err != nil {
		return err
	}

	clientID, err := uuid.Parse(payload.ClientID)
	if err != nil {
		return err
	}

	return w.outreach.HandleFollowUpCheck(ctx, clientID, payload.AttemptNumber)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
