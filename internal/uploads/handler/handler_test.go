package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"qapp_backend/internal/adapters/storage"
	"qapp_backend/internal/uploads/service"
	"qapp_backend/internal/uploads/transport"
	"qapp_backend/platform/httpkit"
	"qapp_backend/platform/logger"
	"qapp_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type stubPresigner struct{}

func (stubPresigner) GenerateUploadURL(_ context.Context, _, key, _ string, ttl time.Duration) (*storage.PresignedURL, error) {
	return &storage.PresignedURL{URL: "https://signed/" + key, FileKey: key, ExpiresAt: time.Now().Add(ttl)}, nil
}

type stubDiscarder struct{ calls int }

func (s *stubDiscarder) DiscardObjects(context.Context, uuid.UUID, []string, string) error {
	s.calls++
	return nil
}

func newRouter(owner uuid.UUID, discarder *stubDiscarder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.New(stubPresigner{}, discarder, nil, service.Options{Bucket: "b", PublicBaseURL: "https://cdn.example.com"}, logger.Discard())
	h := New(svc, validator.New())

	r := gin.New()
	authed := r.Group("", func(c *gin.Context) {
		if owner != uuid.Nil {
			httpkit.SetIdentity(c, httpkit.NewIdentity(owner, httpkit.Profile{}))
		}
	})
	authed.POST("/upload/presign", h.Presign)
	authed.POST("/upload/presign/batch", h.PresignBatch)
	authed.POST("/upload/discard", h.Discard)
	return r
}

func do(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPresignBatchEndpoint(t *testing.T) {
	owner := uuid.New()
	r := newRouter(owner, &stubDiscarder{})

	rec := do(r, "/upload/presign/batch", map[string]any{
		"files": []map[string]any{
			{"clientId": "a", "filename": "p1.jpg", "contentType": "image/jpeg", "size": 2048},
			{"clientId": "b", "filename": "p2.png", "contentType": "image/png"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp transport.BatchPresignResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.URLs) != 2 || resp.URLs[0].ClientID != "a" || resp.URLs[1].ClientID != "b" || resp.ExpiresIn != 600 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestPresignBatchValidation(t *testing.T) {
	r := newRouter(uuid.New(), &stubDiscarder{})

	files := make([]map[string]any, 11)
	for i := range files {
		files[i] = map[string]any{"filename": "p.jpg", "contentType": "image/jpeg"}
	}

	cases := map[string]any{
		"empty":      map[string]any{"files": []any{}},
		"eleven":     map[string]any{"files": files},
		"gif":        map[string]any{"files": []any{map[string]any{"filename": "a.gif", "contentType": "image/gif"}}},
		"no name":    map[string]any{"files": []any{map[string]any{"filename": " ", "contentType": "image/jpeg"}}},
		"negative":   map[string]any{"files": []any{map[string]any{"filename": "a.jpg", "contentType": "image/jpeg", "size": -1}}},
		"wrong json": "not an object",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if rec := do(r, "/upload/presign/batch", body); rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPresignRequiresIdentity(t *testing.T) {
	r := newRouter(uuid.Nil, &stubDiscarder{})
	rec := do(r, "/upload/presign", map[string]any{"filename": "a.jpg", "contentType": "image/jpeg"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestDiscardEndpoint(t *testing.T) {
	owner := uuid.New()
	discarder := &stubDiscarder{}
	r := newRouter(owner, discarder)

	rec := do(r, "/upload/discard", map[string]any{"keys": []string{storage.ObjectKey(owner, "a.jpg")}})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if discarder.calls != 1 {
		t.Fatalf("expected one discard call, got %d", discarder.calls)
	}

	rec = do(r, "/upload/discard", map[string]any{"keys": []string{storage.ObjectKey(uuid.New(), "a.jpg")}})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign key, got %d", rec.Code)
	}
}
