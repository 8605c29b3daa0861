package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"qapp_backend/internal/adapters/storage"
	"qapp_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeStore struct {
	objects []storage.ObjectInfo
	deleted [][]string
	prefix  string
	cutoff  time.Time
	err     error
}

func (f *fakeStore) ListObjects(_ context.Context, _ string, prefix string, cutoff time.Time) ([]storage.ObjectInfo, error) {
	f.prefix = prefix
	f.cutoff = cutoff
	return f.objects, nil
}

func (f *fakeStore) DeleteObjects(_ context.Context, _ string, keys []string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, append([]string(nil), keys...))
	return nil
}

type fakeRefs map[string]bool

func (f fakeRefs) ReferencedImages(_ context.Context, urls []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, u := range urls {
		if f[u] {
			out[u] = true
		}
	}
	return out, nil
}

func TestCleanupPayloadRoundTrip(t *testing.T) {
	task, err := NewCleanupObjectsTask(CleanupObjectsPayload{Keys: []string{"questions/a/b.jpg"}, Reason: ReasonClientDiscard})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskCleanupObjects {
		t.Fatalf("unexpected task type %q", task.Type())
	}
	payload, err := ParseCleanupObjectsPayload(task)
	if err != nil || len(payload.Keys) != 1 || payload.Reason != ReasonClientDiscard {
		t.Fatalf("unexpected payload %+v (%v)", payload, err)
	}
}

func TestWorkerCleanupDropsForeignKeys(t *testing.T) {
	owner := uuid.New()
	store := &fakeStore{}
	w := &Worker{deleter: store, bucket: "qapp-questions", log: logger.Discard()}

	mine := storage.ObjectKey(owner, "a.jpg")
	foreign := storage.ObjectKey(uuid.New(), "b.jpg")
	task, _ := NewCleanupObjectsTask(CleanupObjectsPayload{Keys: []string{mine, foreign}, Reason: ReasonClientDiscard, OwnerID: owner.String()})

	if err := w.handleCleanupObjects(context.Background(), task); err != nil {
		t.Fatalf("handle cleanup: %v", err)
	}
	if len(store.deleted) != 1 || len(store.deleted[0]) != 1 || store.deleted[0][0] != mine {
		t.Fatalf("expected only the owned key to be deleted, got %v", store.deleted)
	}
}

func TestWorkerCleanupSkipsRetryOnBadPayload(t *testing.T) {
	w := &Worker{deleter: &fakeStore{}, log: logger.Discard()}
	err := w.handleCleanupObjects(context.Background(), asynq.NewTask(TaskCleanupObjects, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestWorkerCleanupReturnsDeleteError(t *testing.T) {
	w := &Worker{deleter: &fakeStore{err: errors.New("s3 down")}, log: logger.Discard()}
	task, _ := NewCleanupObjectsTask(CleanupObjectsPayload{Keys: []string{"questions/x/y.jpg"}, Reason: ReasonQuestionDeleted})
	if err := w.handleCleanupObjects(context.Background(), task); err == nil {
		t.Fatal("expected delete error to be returned for retry")
	}
}

func TestOrphanSweeperDeletesUnreferenced(t *testing.T) {
	base := "https://cdn.example.com"
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var objects []storage.ObjectInfo
	refs := fakeRefs{}
	for i := 0; i < orphanSweepBatchSize+3; i++ {
		key := fmt.Sprintf("questions/%s/%d.jpg", uuid.NewString(), i)
		objects = append(objects, storage.ObjectInfo{Key: key})
		if i%2 == 0 {
			refs[storage.PublicURL(base, key)] = true
		}
	}

	store := &fakeStore{objects: objects}
	sweeper := NewOrphanSweeper(store, refs, "qapp-questions", base, logger.Discard(), 0, 0)
	sweeper.now = func() time.Time { return now }

	deleted, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}

	wantDeleted := (orphanSweepBatchSize + 3) / 2
	if deleted != wantDeleted {
		t.Fatalf("expected %d deletions, got %d", wantDeleted, deleted)
	}
	if len(store.deleted) != 2 {
		t.Fatalf("expected two delete batches, got %d", len(store.deleted))
	}
	if store.prefix != storage.QuestionsPrefix {
		t.Fatalf("unexpected list prefix %q", store.prefix)
	}
	if !store.cutoff.Equal(now.Add(-defaultOrphanRetention)) {
		t.Fatalf("unexpected cutoff %s", store.cutoff)
	}
	for _, batch := range store.deleted {
		for _, key := range batch {
			if refs[storage.PublicURL(base, key)] {
				t.Fatalf("referenced key %s was deleted", key)
			}
		}
	}
}
