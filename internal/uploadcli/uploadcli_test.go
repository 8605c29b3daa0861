package uploadcli

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

const testManifest = `title: Calculus I 2023
courseCode: MTH 101
courseName: Calculus I
level: 100
year: 2023
semester: First
hashtags:
  - calculus
  - exam
`

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func smallJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 32, 32)), nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "paper.yaml", []byte(testManifest+"images:\n  - page1.jpg\n  - /abs/page2.jpg\n"))

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	meta := m.Metadata()
	if meta.CourseCode != "MTH 101" || meta.Level != 100 || meta.Semester != "First" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if meta.Hashtags != "calculus,exam" {
		t.Fatalf("expected joined hashtags, got %q", meta.Hashtags)
	}

	paths := m.ImagePaths([]string{"extra.png"})
	want := []string{filepath.Join(dir, "page1.jpg"), "/abs/page2.jpg", "extra.png"}
	if strings.Join(paths, "|") != strings.Join(want, "|") {
		t.Fatalf("expected %v, got %v", want, paths)
	}
}

func TestLoadManifestHashtagString(t *testing.T) {
	path := writeFile(t, t.TempDir(), "paper.yaml", []byte("title: Networks\nhashtags: \"net, tcp\"\n"))
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Metadata().Hashtags != "net, tcp" {
		t.Fatalf("unexpected hashtags %q", m.Hashtags)
	}

	bad := writeFile(t, t.TempDir(), "bad.yaml", []byte("hashtags:\n  a: b\n"))
	if _, err := LoadManifest(bad); err == nil {
		t.Fatal("expected error for mapping hashtags")
	}
}

type fakeAPI struct {
	mu        sync.Mutex
	failPutAt int
	puts      int
	discarded []string
	srv       *httptest.Server
}

func newFakeAPI(t *testing.T, failPutAt int) *fakeAPI {
	t.Helper()
	f := &fakeAPI{failPutAt: failPutAt}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/upload/presign/batch", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid token"}`))
			return
		}
		var req struct {
			Files []struct {
				ClientID string `json:"clientId"`
			} `json:"files"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		urls := make([]map[string]string, 0, len(req.Files))
		for _, file := range req.Files {
			urls = append(urls, map[string]string{
				"clientId":     file.ClientID,
				"presignedUrl": f.srv.URL + "/objects/" + file.ClientID,
				"key":          "questions/u/" + file.ClientID + ".jpg",
				"publicUrl":    "https://cdn.example.com/questions/u/" + file.ClientID + ".jpg",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"urls": urls, "expiresIn": 600})
	})
	mux.HandleFunc("/objects/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.puts++
		n := f.puts
		f.mu.Unlock()
		if n == f.failPutAt {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`<Error><Code>AccessDenied</Code><Message>Request has expired</Message></Error>`))
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v1/questions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"q-1","title":"Calculus I 2023"}`))
	})
	mux.HandleFunc("/api/v1/upload/discard", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Keys []string `json:"keys"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.discarded = append(f.discarded, req.Keys...)
		f.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func runCLI(t *testing.T, env map[string]string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd(Environment{
		Stdout: &stdout,
		Stderr: &stderr,
		Getenv: func(k string) string { return env[k] },
	})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestUploadCommand(t *testing.T) {
	api := newFakeAPI(t, 0)
	dir := t.TempDir()
	manifest := writeFile(t, dir, "paper.yaml", []byte(testManifest))
	img1 := writeFile(t, dir, "p1.jpg", smallJPEG(t))
	img2 := writeFile(t, dir, "p2.jpg", smallJPEG(t))

	stdout, stderr, err := runCLI(t, map[string]string{envToken: "secret", envAPIURL: api.srv.URL},
		"upload", "--manifest", manifest, img1, img2)
	if err != nil {
		t.Fatalf("upload: %v\n%s", err, stderr)
	}
	if strings.TrimSpace(stdout) != "q-1" {
		t.Fatalf("expected record id on stdout, got %q", stdout)
	}
	if !strings.Contains(stderr, "[100%] complete") {
		t.Fatalf("expected progress output, got %q", stderr)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.puts != 2 {
		t.Fatalf("expected 2 puts, got %d", api.puts)
	}
}

func TestUploadCommandCompensatesOnFailure(t *testing.T) {
	api := newFakeAPI(t, 2)
	dir := t.TempDir()
	manifest := writeFile(t, dir, "paper.yaml", []byte(testManifest))
	img1 := writeFile(t, dir, "p1.jpg", smallJPEG(t))
	img2 := writeFile(t, dir, "p2.jpg", smallJPEG(t))

	_, _, err := runCLI(t, map[string]string{envToken: "secret"},
		"upload", "--manifest", manifest, "--api", api.srv.URL, img1, img2)
	if err == nil || !strings.Contains(err.Error(), "upload failed at upload") {
		t.Fatalf("expected upload stage failure, got %v", err)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.discarded) != 1 {
		t.Fatalf("expected the first object to be discarded, got %v", api.discarded)
	}
}

func TestUploadCommandUnauthorized(t *testing.T) {
	api := newFakeAPI(t, 0)
	dir := t.TempDir()
	manifest := writeFile(t, dir, "paper.yaml", []byte(testManifest))
	img := writeFile(t, dir, "p1.jpg", smallJPEG(t))

	_, _, err := runCLI(t, nil, "upload", "--manifest", manifest, "--api", api.srv.URL, "--token", "wrong", img)
	if err == nil || !strings.Contains(err.Error(), "not signed in") {
		t.Fatalf("expected unauthorized hint, got %v", err)
	}
}

func TestUploadCommandRequiresToken(t *testing.T) {
	_, _, err := runCLI(t, nil, "upload", "--manifest", "paper.yaml")
	if err == nil || !strings.Contains(err.Error(), envToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, "paper.yaml", []byte(testManifest))
	img := writeFile(t, dir, "p1.jpg", smallJPEG(t))

	stdout, _, err := runCLI(t, nil, "validate", "--manifest", manifest, img)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.HasPrefix(stdout, "ok: 1 images") {
		t.Fatalf("unexpected output %q", stdout)
	}

	gif := writeFile(t, dir, "anim.gif", []byte("GIF89a\x01\x00\x01\x00"))
	if _, _, err := runCLI(t, nil, "validate", "--manifest", manifest, gif); err == nil || !strings.Contains(err.Error(), "validate") {
		t.Fatalf("expected validation failure for gif, got %v", err)
	}
}
