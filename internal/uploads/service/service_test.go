package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"qapp_backend/internal/adapters/storage"
	"qapp_backend/internal/scheduler"
	"qapp_backend/internal/uploads/transport"
	"qapp_backend/platform/apperr"
	"qapp_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type fakePresigner struct {
	calls        int
	contentTypes []string
	ttl          time.Duration
	err          error
}

func (f *fakePresigner) GenerateUploadURL(_ context.Context, bucket, key, contentType string, ttl time.Duration) (*storage.PresignedURL, error) {
	f.calls++
	f.contentTypes = append(f.contentTypes, contentType)
	f.ttl = ttl
	if f.err != nil {
		return nil, f.err
	}
	return &storage.PresignedURL{
		URL:       "https://r2.example.com/" + bucket + "/" + key + "?X-Amz-Signature=abc",
		FileKey:   key,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

type fakeDiscarder struct {
	owner  uuid.UUID
	keys   []string
	reason string
	err    error
}

func (f *fakeDiscarder) DiscardObjects(_ context.Context, owner uuid.UUID, keys []string, reason string) error {
	f.owner, f.keys, f.reason = owner, keys, reason
	return f.err
}

func newService(p Presigner, d ObjectDiscarder, q Quota) *Service {
	return New(p, d, q, Options{Bucket: "qapp-questions", PublicBaseURL: "https://cdn.example.com"}, logger.Discard())
}

func size(n int64) *int64 { return &n }

func TestPresignBatchKeepsOrderAndClientIDs(t *testing.T) {
	presigner := &fakePresigner{}
	svc := newService(presigner, &fakeDiscarder{}, nil)
	owner := uuid.New()

	resp, err := svc.PresignBatch(context.Background(), owner, transport.BatchPresignRequest{Files: []transport.PresignFile{
		{ClientID: "c1", Filename: "p1.JPG", ContentType: "image/jpeg", Size: size(1024)},
		{Filename: "p2.png", ContentType: "image/png"},
		{ClientID: "c3", Filename: "p3", ContentType: "image/webp"},
	}})
	if err != nil {
		t.Fatalf("presign batch: %v", err)
	}

	if resp.ExpiresIn != 600 || presigner.ttl != 600*time.Second {
		t.Fatalf("expected 600s expiry, got %d / %s", resp.ExpiresIn, presigner.ttl)
	}
	if len(resp.URLs) != 3 {
		t.Fatalf("expected 3 grants, got %d", len(resp.URLs))
	}
	if resp.URLs[0].ClientID != "c1" || resp.URLs[2].ClientID != "c3" || resp.URLs[1].ClientID == "" {
		t.Fatalf("unexpected client ids %+v", resp.URLs)
	}

	wantExt := []string{".jpg", ".png", ".jpg"}
	for i, item := range resp.URLs {
		if !storage.OwnsKey(owner, item.Key) || !strings.HasSuffix(item.Key, wantExt[i]) {
			t.Errorf("grant %d: unexpected key %q", i, item.Key)
		}
		if item.PublicURL != "https://cdn.example.com/"+item.Key {
			t.Errorf("grant %d: unexpected public url %q", i, item.PublicURL)
		}
	}
}

func TestPresignBatchRejectsBeforeSigning(t *testing.T) {
	cases := map[string]transport.PresignFile{
		"gif":      {Filename: "a.gif", ContentType: "image/gif"},
		"too big":  {Filename: "a.jpg", ContentType: "image/jpeg", Size: size(storage.MaxImageSize + 1)},
		"zero":     {Filename: "a.jpg", ContentType: "image/jpeg", Size: size(0)},
		"bad type": {Filename: "a.jpg", ContentType: "text/html"},
	}

	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			presigner := &fakePresigner{}
			svc := newService(presigner, &fakeDiscarder{}, nil)
			_, err := svc.PresignBatch(context.Background(), uuid.New(), transport.BatchPresignRequest{Files: []transport.PresignFile{
				{Filename: "ok.jpg", ContentType: "image/jpeg"},
				bad,
			}})
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if presigner.calls != 0 {
				t.Fatalf("expected no presign calls, got %d", presigner.calls)
			}
		})
	}
}

func TestPresignSingleAcceptsExactCap(t *testing.T) {
	svc := newService(&fakePresigner{}, &fakeDiscarder{}, nil)
	resp, err := svc.Presign(context.Background(), uuid.New(), transport.PresignRequest{
		Filename: "scan.webp", ContentType: "image/webp", Size: size(storage.MaxImageSize),
	})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if resp.PresignedURL == "" || !strings.HasSuffix(resp.Key, ".webp") {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestPresignWrapsStorageFailure(t *testing.T) {
	svc := newService(&fakePresigner{err: errors.New("signature failure")}, &fakeDiscarder{}, nil)
	_, err := svc.Presign(context.Background(), uuid.New(), transport.PresignRequest{Filename: "a.jpg", ContentType: "image/jpeg"})
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestDiscardChecksOwnership(t *testing.T) {
	owner := uuid.New()
	discarder := &fakeDiscarder{}
	svc := newService(&fakePresigner{}, discarder, nil)

	mine := storage.ObjectKey(owner, "a.jpg")
	_, err := svc.Discard(context.Background(), owner, transport.DiscardRequest{Keys: []string{mine, storage.ObjectKey(uuid.New(), "b.jpg")}})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if discarder.keys != nil {
		t.Fatal("expected nothing to be discarded")
	}

	resp, err := svc.Discard(context.Background(), owner, transport.DiscardRequest{Keys: []string{mine}})
	if err != nil {
		t.Fatalf("discard: %v", err)
	}
	if resp.Discarded != 1 || discarder.owner != owner || discarder.reason != scheduler.ReasonClientDiscard {
		t.Fatalf("unexpected discard %+v / %+v", resp, discarder)
	}
}

func TestRedisQuota(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	quota := NewRedisQuota(client, 5, time.Hour)
	svc := newService(&fakePresigner{}, &fakeDiscarder{}, quota)
	owner := uuid.New()
	ctx := context.Background()

	files := func(n int) transport.BatchPresignRequest {
		req := transport.BatchPresignRequest{}
		for i := 0; i < n; i++ {
			req.Files = append(req.Files, transport.PresignFile{Filename: "a.jpg", ContentType: "image/jpeg"})
		}
		return req
	}

	if _, err := svc.PresignBatch(ctx, owner, files(3)); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if ttl := mr.TTL(quotaKeyPrefix + owner.String()); ttl != time.Hour {
		t.Fatalf("expected one hour window, got %s", ttl)
	}

	if _, err := svc.PresignBatch(ctx, owner, files(3)); !apperr.Is(err, apperr.KindTooManyRequests) {
		t.Fatalf("expected quota error, got %v", err)
	}
	// The rejected batch must not consume quota.
	if _, err := svc.PresignBatch(ctx, owner, files(2)); err != nil {
		t.Fatalf("expected remaining quota to be usable, got %v", err)
	}
	if _, err := svc.PresignBatch(ctx, uuid.New(), files(5)); err != nil {
		t.Fatalf("expected quota to be per user, got %v", err)
	}

	mr.FastForward(time.Hour + time.Second)
	if _, err := svc.PresignBatch(ctx, owner, files(5)); err != nil {
		t.Fatalf("expected quota to reset after window, got %v", err)
	}
}

func TestNewRedisQuotaDisabled(t *testing.T) {
	if _, ok := NewRedisQuota(nil, 10, time.Hour).(NoopQuota); !ok {
		t.Fatal("expected noop quota without redis")
	}
}

func TestRedisQuotaWindowStartsAtFirstGrant(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	quota := NewRedisQuota(client, 10, time.Hour)
	owner := uuid.New()
	key := quotaKeyPrefix + owner.String()
	ctx := context.Background()

	if err := quota.Reserve(ctx, owner, 4); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	mr.FastForward(40 * time.Minute)
	if err := quota.Reserve(ctx, owner, 4); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	// Later grants do not extend the window.
	if ttl := mr.TTL(key); ttl != 20*time.Minute {
		t.Fatalf("expected 20m left in the window, got %s", ttl)
	}
	if err := quota.Reserve(ctx, owner, 4); !apperr.Is(err, apperr.KindTooManyRequests) {
		t.Fatalf("expected quota error, got %v", err)
	}

	mr.FastForward(20*time.Minute + time.Second)
	if err := quota.Reserve(ctx, owner, 10); err != nil {
		t.Fatalf("expected a fresh window, got %v", err)
	}
}
