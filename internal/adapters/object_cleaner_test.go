package adapters

import (
	"context"
	"errors"
	"testing"

	"qapp_backend/internal/scheduler"
	"qapp_backend/platform/logger"

	"github.com/google/uuid"
)

type recordingScheduler struct {
	payloads []scheduler.CleanupObjectsPayload
	err      error
}

func (r *recordingScheduler) EnqueueObjectCleanup(_ context.Context, payload scheduler.CleanupObjectsPayload) error {
	if r.err != nil {
		return r.err
	}
	r.payloads = append(r.payloads, payload)
	return nil
}

type recordingDeleter struct{ keys []string }

func (r *recordingDeleter) DeleteObjects(_ context.Context, _ string, keys []string) error {
	r.keys = append(r.keys, keys...)
	return nil
}

func TestObjectCleanerQueues(t *testing.T) {
	sched := &recordingScheduler{}
	deleter := &recordingDeleter{}
	cleaner := NewObjectCleaner(sched, deleter, "bucket", logger.Discard())
	owner := uuid.New()

	if err := cleaner.DiscardObjects(context.Background(), owner, []string{"questions/x/a.jpg"}, scheduler.ReasonClientDiscard); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if len(sched.payloads) != 1 || sched.payloads[0].OwnerID != owner.String() {
		t.Fatalf("expected queued payload with owner, got %+v", sched.payloads)
	}
	if len(deleter.keys) != 0 {
		t.Fatal("expected no inline deletion")
	}
}

func TestObjectCleanerFallsBackInline(t *testing.T) {
	deleter := &recordingDeleter{}
	cleaner := NewObjectCleaner(&recordingScheduler{err: errors.New("redis down")}, deleter, "bucket", logger.Discard())

	if err := cleaner.DiscardObjects(context.Background(), uuid.Nil, []string{"a", "b"}, scheduler.ReasonQuestionDeleted); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if len(deleter.keys) != 2 {
		t.Fatalf("expected inline deletion, got %v", deleter.keys)
	}

	inline := NewObjectCleaner(nil, deleter, "bucket", logger.Discard())
	if err := inline.DiscardObjects(context.Background(), uuid.Nil, []string{"c"}, scheduler.ReasonQuestionDeleted); err != nil {
		t.Fatalf("discard inline: %v", err)
	}
	if len(deleter.keys) != 3 {
		t.Fatalf("expected inline deletion without scheduler, got %v", deleter.keys)
	}
}
