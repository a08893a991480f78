package scheduler

import (
	"context"
	"fmt"
	"time"

	"salesbot_backend/platform/config"
	"salesbot_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// AlertDeliverer sends an owner alert on every configured channel.
type AlertDeliverer interface {
	DeliverOwnerAlert(ctx context.Context, payload OwnerAlertPayload) error
}

// Worker runs the asynq server that processes background tasks.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	deliverer AlertDeliverer
	log       *logger.Logger
}

// NewWorker creates the asynq server and registers the task handlers.
func NewWorker(cfg config.SchedulerConfig, deliverer AlertDeliverer, log *logger.Logger) (*Worker, error) {
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
		Concurrency:    concurrency,
		Queues:         map[string]int{queue: 1},
		RetryDelayFunc: alertRetryDelay,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			log.Error("scheduler: task failed", "type", task.Type(), "retried", retried, "error", err)
		}),
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		deliverer: deliverer,
		log:       log,
	}

	mux.HandleFunc(TaskOwnerAlert, w.handleOwnerAlert)

	return w, nil
}

// Run processes tasks until ctx is cancelled, then waits for in-flight
// alerts to finish.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}
	if err := w.server.Start(w.mux); err != nil {
		w.log.Error("scheduler: worker failed to start", "error", err)
		return
	}
	w.log.Info("scheduler: worker started")
	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("scheduler: worker stopped")
}

// alertRetryDelay backs off 10s, 40s, 90s... capped at five minutes.
func alertRetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	d := time.Duration((n+1)*(n+1)) * 10 * time.Second
	if d > 5*time.Minute {
		return 5 * time.Minute
	}
	return d
}

func (w *Worker) handleOwnerAlert(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseOwnerAlertPayload(task)
	if err != nil {
		// A payload that cannot be decoded never succeeds on retry.
		return fmt.Errorf("decode owner alert: %v: %w", err, asynq.SkipRetry)
	}

	if err := w.deliverer.DeliverOwnerAlert(ctx, payload); err != nil {
		w.log.Warn("scheduler: owner alert delivery failed", "business", payload.BusinessID, "kind", payload.Kind, "error", err)
		return err
	}
	return nil
}
