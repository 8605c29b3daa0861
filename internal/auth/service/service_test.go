package service

import (
	"context"
	"errors"
	"testing"

	"qapp_backend/internal/events"
	"qapp_backend/platform/logger"

	"github.com/google/uuid"
)

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.published = append(b.published, e)
}
func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

type stubStore struct {
	created bool
	err     error
	got     SyncInput
}

func (s *stubStore) SyncAccount(_ context.Context, in SyncInput) (Account, bool, error) {
	s.got = in
	if s.err != nil {
		return Account{}, false, s.err
	}
	return Account{ID: in.UserID, Email: in.Email, DisplayName: in.FullName, Provider: in.Provider}, s.created, nil
}

func TestSyncPublishesUserSynced(t *testing.T) {
	store := &stubStore{created: true}
	bus := &recordingBus{}
	svc := New(store, bus, logger.Discard())
	id := uuid.New()

	resp, err := svc.Sync(context.Background(), SyncInput{UserID: id, Email: "ada@uni.edu", FullName: "Ada", Provider: "google"})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !resp.Created || resp.User.ID != id {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected one event, got %d", len(bus.published))
	}
	evt, ok := bus.published[0].(events.UserSynced)
	if !ok || evt.UserID != id || !evt.Created {
		t.Fatalf("unexpected event %#v", bus.published[0])
	}
}

func TestSyncErrorPublishesNothing(t *testing.T) {
	bus := &recordingBus{}
	svc := New(&stubStore{err: errors.New("db down")}, bus, logger.Discard())

	if _, err := svc.Sync(context.Background(), SyncInput{UserID: uuid.New(), Email: "a@b.c"}); err == nil {
		t.Fatal("expected error")
	}
	if len(bus.published) != 0 {
		t.Fatal("expected no events on failure")
	}
}
