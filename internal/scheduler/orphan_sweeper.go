package scheduler

import (
	"context"
	"time"

	"qapp_backend/internal/adapters/storage"
	"qapp_backend/platform/logger"
)

const (
	defaultOrphanSweepInterval = time.Hour
	defaultOrphanRetention     = 24 * time.Hour
	orphanSweepBatchSize       = 500
)

// ObjectStore lists and removes question image objects.
type ObjectStore interface {
	ListObjects(ctx context.Context, bucket, prefix string, cutoff time.Time) ([]storage.ObjectInfo, error)
	DeleteObjects(ctx context.Context, bucket string, keys []string) error
}

// ImageReferences reports which public image URLs are still referenced by
// a question.
type ImageReferences interface {
	ReferencedImages(ctx context.Context, urls []string) (map[string]bool, error)
}

// OrphanSweeper periodically removes uploaded objects that never became
// part of a question, e.g. after a client crashed between upload and
// record creation.
type OrphanSweeper struct {
	store      ObjectStore
	refs       ImageReferences
	bucket     string
	publicBase string
	log        *logger.Logger
	interval   time.Duration
	retention  time.Duration
	now        func() time.Time
}

func NewOrphanSweeper(store ObjectStore, refs ImageReferences, bucket, publicBase string, log *logger.Logger, interval, retention time.Duration) *OrphanSweeper {
	if interval <= 0 {
		interval = defaultOrphanSweepInterval
	}
	if retention <= 0 {
		retention = defaultOrphanRetention
	}

	return &OrphanSweeper{
		store:      store,
		refs:       refs,
		bucket:     bucket,
		publicBase: publicBase,
		log:        log,
		interval:   interval,
		retention:  retention,
		now:        time.Now,
	}
}

func (s *OrphanSweeper) Run(ctx context.Context) {
	if s == nil || s.store == nil || s.refs == nil {
		return
	}

	s.sweepAndLog(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *OrphanSweeper) sweepAndLog(ctx context.Context) {
	deleted, err := s.Sweep(ctx)
	if err != nil {
		s.log.Warn("orphan sweep failed", "error", err, "deleted", deleted)
		return
	}
	if deleted > 0 {
		s.log.Info("orphan sweep deleted unreferenced objects", "deleted", deleted)
	}
}

// Sweep runs one pass and returns the number of deleted objects.
func (s *OrphanSweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.retention)
	objects, err := s.store.ListObjects(ctx, s.bucket, storage.QuestionsPrefix, cutoff)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for start := 0; start < len(objects); start += orphanSweepBatchSize {
		end := min(start+orphanSweepBatchSize, len(objects))
		batch := objects[start:end]

		urls := make([]string, len(batch))
		for i, obj := range batch {
			urls[i] = storage.PublicURL(s.publicBase, obj.Key)
		}

		referenced, err := s.refs.ReferencedImages(ctx, urls)
		if err != nil {
			return deleted, err
		}

		orphans := make([]string, 0, len(batch))
		for i, obj := range batch {
			if !referenced[urls[i]] {
				orphans = append(orphans, obj.Key)
			}
		}
		if len(orphans) == 0 {
			continue
		}

		if err := s.store.DeleteObjects(ctx, s.bucket, orphans); err != nil {
			return deleted, err
		}
		deleted += len(orphans)
	}

	return deleted, nil
}
