package scheduler

import (
	"context"
	"fmt"

	"qapp_backend/internal/adapters/storage"
	"qapp_backend/platform/config"
	"qapp_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ObjectDeleter removes objects from a bucket.
type ObjectDeleter interface {
	DeleteObjects(ctx context.Context, bucket string, keys []string) error
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	deleter ObjectDeleter
	bucket  string
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, deleter ObjectDeleter, bucket string, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		deleter: deleter,
		bucket:  bucket,
		log:     log,
	}

	mux.HandleFunc(TaskCleanupObjects, w.handleCleanupObjects)

	return w, nil
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

func (w *Worker) handleCleanupObjects(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCleanupObjectsPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	keys := payload.Keys
	if payload.OwnerID != "" {
		owner, err := uuid.Parse(payload.OwnerID)
		if err != nil {
			return fmt.Errorf("%w: invalid owner id: %v", asynq.SkipRetry, err)
		}
		keys = ownedKeys(owner, keys)
		if dropped := len(payload.Keys) - len(keys); dropped > 0 {
			w.log.Warn("cleanup task contained foreign keys", "owner", owner, "dropped", dropped)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	if err := w.deleter.DeleteObjects(ctx, w.bucket, keys); err != nil {
		return err
	}

	w.log.Info("objects cleaned up", "reason", payload.Reason, "count", len(keys))
	return nil
}

func ownedKeys(owner uuid.UUID, keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if storage.OwnsKey(owner, key) {
			out = append(out, key)
		}
	}
	return out
}
