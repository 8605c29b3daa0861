package adapters

import (
	"context"

	"qapp_backend/internal/scheduler"
	uploadsvc "qapp_backend/internal/uploads/service"
	"qapp_backend/platform/logger"

	"github.com/google/uuid"
)

// ObjectCleaner removes question image objects. Deletions are queued on the
// background worker when a scheduler is configured, and performed inline
// otherwise or when enqueueing fails.
type ObjectCleaner struct {
	scheduler scheduler.ObjectCleanupScheduler
	deleter   scheduler.ObjectDeleter
	bucket    string
	log       *logger.Logger
}

// NewObjectCleaner creates a new object cleaner. sched may be nil.
func NewObjectCleaner(sched scheduler.ObjectCleanupScheduler, deleter scheduler.ObjectDeleter, bucket string, log *logger.Logger) *ObjectCleaner {
	return &ObjectCleaner{scheduler: sched, deleter: deleter, bucket: bucket, log: log}
}

// DiscardObjects deletes keys on behalf of owner. uuid.Nil means the keys
// were already checked by the caller.
func (c *ObjectCleaner) DiscardObjects(ctx context.Context, owner uuid.UUID, keys []string, reason string) error {
	if len(keys) == 0 {
		return nil
	}

	if c.scheduler != nil {
		payload := scheduler.CleanupObjectsPayload{Keys: keys, Reason: reason}
		if owner != uuid.Nil {
			payload.OwnerID = owner.String()
		}
		err := c.scheduler.EnqueueObjectCleanup(ctx, payload)
		if err == nil {
			return nil
		}
		c.log.Warn("failed to enqueue object cleanup, deleting inline", "error", err, "reason", reason)
	}

	return c.deleter.DeleteObjects(ctx, c.bucket, keys)
}

// Compile-time check that ObjectCleaner implements uploads/service.ObjectDiscarder.
var _ uploadsvc.ObjectDiscarder = (*ObjectCleaner)(nil)
