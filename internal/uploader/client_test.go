package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestAPIClientPresignBatch(t *testing.T) {
	var gotAuth string
	var gotBody presignBatchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != presignBatchPath || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"urls": []map[string]any{{
				"clientId":     "c1",
				"presignedUrl": "https://r2.example.com/put",
				"key":          "questions/u/x.jpg",
				"publicUrl":    "https://cdn.example.com/questions/u/x.jpg",
				"expiresAt":    "2026-01-01T00:10:00Z",
			}},
			"expiresIn": 600,
		})
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL+"/", "token-123", srv.Client())
	grants, err := c.PresignBatch(context.Background(), []PresignFile{{ClientID: "c1", Filename: "x.jpg", ContentType: "image/jpeg", Size: 10}})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if gotAuth != "Bearer token-123" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
	if len(gotBody.Files) != 1 || gotBody.Files[0].ClientID != "c1" {
		t.Fatalf("unexpected request body %+v", gotBody)
	}
	if len(grants) != 1 || grants[0].Key != "questions/u/x.jpg" || grants[0].ExpiresAt.IsZero() {
		t.Fatalf("unexpected grants %+v", grants)
	}
}

func TestAPIClientSurfacesErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"validation failed","details":[{"field":"title","rule":"min"}]}`)
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL, "t", nil).CreateRecord(context.Background(), RecordRequest{Title: "x"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusBadRequest || httpErr.Message != "validation failed" {
		t.Fatalf("unexpected error %+v", httpErr)
	}
}

func TestAPIClientDiscard(t *testing.T) {
	var got discardRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != discardPath {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"discarded":2}`)
	}))
	defer srv.Close()

	if err := NewAPIClient(srv.URL, "t", srv.Client()).Discard(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if len(got.Keys) != 2 {
		t.Fatalf("unexpected keys %v", got.Keys)
	}
}

func TestObjectStoreClientPut(t *testing.T) {
	var gotType string
	var gotLen int64
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		gotType = r.Header.Get("Content-Type")
		gotLen = r.ContentLength
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := NewObjectStoreClient(srv.Client())
	if err := store.Put(context.Background(), srv.URL+"/bucket/key?X-Amz-Signature=abc", "image/webp", []byte("12345")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if gotType != "image/webp" || gotLen != 5 || gotAuth != "" {
		t.Fatalf("unexpected put headers type=%q len=%d auth=%q", gotType, gotLen, gotAuth)
	}
}

func TestObjectStoreClientParsesS3Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Request has expired</Message></Error>`)
	}))
	defer srv.Close()

	err := NewObjectStoreClient(nil).Put(context.Background(), srv.URL, "image/jpeg", []byte("x"))
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusForbidden || httpErr.Message != "Request has expired" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestPipelineOverHTTP(t *testing.T) {
	var mu sync.Mutex
	var puts []string
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc(presignBatchPath, func(w http.ResponseWriter, r *http.Request) {
		var req presignBatchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		urls := make([]Grant, 0, len(req.Files))
		for _, f := range req.Files {
			urls = append(urls, Grant{
				ClientID:     f.ClientID,
				PresignedURL: srv.URL + "/objects/" + f.ClientID,
				Key:          "questions/u/" + f.ClientID + ".jpg",
				PublicURL:    "https://cdn.example.com/questions/u/" + f.ClientID + ".jpg",
			})
		}
		_ = json.NewEncoder(w).Encode(presignBatchResponse{URLs: urls, ExpiresIn: 600})
	})
	mux.HandleFunc("/objects/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		puts = append(puts, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc(questionsPath, func(w http.ResponseWriter, r *http.Request) {
		var req RecordRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Record{ID: "q-42", Title: req.Title, Images: req.Images, Hashtags: req.Hashtags})
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	api := NewAPIClient(srv.URL, "t", srv.Client())
	o, err := New(Dependencies{
		Presigner: api,
		Store:     NewObjectStoreClient(srv.Client()),
		Records:   api,
	}, Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	rec := &recorder{}
	record, err := o.Upload(context.Background(), jpegs(3), validMeta(), rec)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if record.ID != "q-42" || len(record.Images) != 3 || len(record.Hashtags) != 3 {
		t.Fatalf("unexpected record %+v", record)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(puts) != 3 || puts[0] != "/objects/c1" || puts[2] != "/objects/c3" {
		t.Fatalf("unexpected put order %v", puts)
	}
	if got := rec.progress(); len(got) != 7 || got[6] != 100 {
		t.Fatalf("unexpected trace %v", got)
	}
}
