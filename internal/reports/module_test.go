package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"qapp_backend/internal/events"
	apphttp "qapp_backend/internal/http"
	"qapp_backend/internal/reports/repository"
	"qapp_backend/platform/apperr"
	"qapp_backend/platform/httpkit"
	"qapp_backend/platform/logger"
	"qapp_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type memRepo struct {
	mu      sync.Mutex
	reports []repository.Report
}

func (r *memRepo) Create(_ context.Context, p repository.CreateParams) (repository.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rep := range r.reports {
		if rep.QuestionID == p.QuestionID && rep.ReporterID == p.ReporterID {
			return repository.Report{}, apperr.Conflict("you have already reported this question")
		}
	}
	now := time.Now().UTC()
	rep := repository.Report{
		ID: uuid.New(), QuestionID: p.QuestionID, QuestionTitle: "Calculus I", ReporterID: p.ReporterID,
		Reason: p.Reason, Status: repository.StatusPending, CreatedAt: now, UpdatedAt: now,
	}
	r.reports = append(r.reports, rep)
	return rep, nil
}

func (r *memRepo) List(_ context.Context, p repository.ListParams) ([]repository.Report, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.Report, 0)
	for _, rep := range r.reports {
		if p.Status == nil || rep.Status == *p.Status {
			out = append(out, rep)
		}
	}
	return out, len(out), nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) (repository.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.reports {
		if r.reports[i].ID == id {
			r.reports[i].Status = status
			return r.reports[i], nil
		}
	}
	return repository.Report{}, apperr.NotFound("report not found")
}

type knownQuestions map[uuid.UUID]string

func (k knownQuestions) QuestionTitle(_ context.Context, id uuid.UUID) (string, error) {
	title, ok := k[id]
	if !ok {
		return "", apperr.NotFound("question not found")
	}
	return title, nil
}

type harness struct {
	engine    *gin.Engine
	repo      *memRepo
	bus       *events.InMemoryBus
	question  uuid.UUID
	submitted chan events.ReportSubmitted
}

func newHarness(t *testing.T, roles ...string) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{
		repo:      &memRepo{},
		bus:       events.NewInMemoryBus(logger.Discard()),
		question:  uuid.New(),
		submitted: make(chan events.ReportSubmitted, 4),
	}
	h.bus.Subscribe(events.ReportSubmitted{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		h.submitted <- e.(events.ReportSubmitted)
		return nil
	}))

	m := newModule(h.repo, knownQuestions{h.question: "Calculus I"}, h.bus, validator.New(), logger.Discard())

	caller := uuid.New()
	h.engine = gin.New()
	v1 := h.engine.Group("/api/v1")
	protected := v1.Group("", func(c *gin.Context) {
		httpkit.SetIdentity(c, httpkit.NewIdentity(caller, httpkit.Profile{}, roles...))
	})
	admin := protected.Group("/admin", httpkit.RequireRole("admin"))
	m.RegisterRoutes(&apphttp.RouterContext{Engine: h.engine, V1: v1, Protected: protected, Admin: admin})
	return h
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	h.engine.ServeHTTP(rec, req)
	return rec
}

func TestSubmitReport(t *testing.T) {
	h := newHarness(t)
	path := "/api/v1/questions/" + h.question.String() + "/reports"

	rec := h.do(http.MethodPost, path, map[string]string{"reason": "  Wrong course code  "})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	select {
	case evt := <-h.submitted:
		if evt.QuestionID != h.question || evt.Reason != "Wrong course code" {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("expected ReportSubmitted to be published")
	}

	if rec := h.do(http.MethodPost, path, map[string]string{"reason": "Wrong course code"}); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", rec.Code)
	}
}

func TestSubmitReportErrors(t *testing.T) {
	h := newHarness(t)

	cases := []struct {
		name string
		path string
		body any
		want int
	}{
		{"short reason", "/api/v1/questions/" + h.question.String() + "/reports", map[string]string{"reason": "bad"}, http.StatusBadRequest},
		{"missing question", "/api/v1/questions/" + uuid.NewString() + "/reports", map[string]string{"reason": "Duplicate upload"}, http.StatusNotFound},
		{"bad id", "/api/v1/questions/nope/reports", map[string]string{"reason": "Duplicate upload"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := h.do(http.MethodPost, tc.path, tc.body); rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAdminRoutesRequireRole(t *testing.T) {
	h := newHarness(t)
	if rec := h.do(http.MethodGet, "/api/v1/admin/reports", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without admin role, got %d", rec.Code)
	}
}

func TestAdminModeration(t *testing.T) {
	h := newHarness(t, "admin")
	rec := h.do(http.MethodPost, "/api/v1/questions/"+h.question.String()+"/reports", map[string]string{"reason": "Blurry pages"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: %d", rec.Code)
	}
	var created map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &created)
	id, _ := created["id"].(string)

	rec = h.do(http.MethodGet, "/api/v1/admin/reports?status=pending", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	var list struct {
		Data       []map[string]any `json:"data"`
		Pagination struct {
			Total int `json:"total"`
			Limit int `json:"limit"`
		} `json:"pagination"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Data) != 1 || list.Pagination.Total != 1 || list.Pagination.Limit != 20 {
		t.Fatalf("unexpected list %s", rec.Body.String())
	}

	if rec := h.do(http.MethodGet, "/api/v1/admin/reports?status=closed", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}

	rec = h.do(http.MethodPatch, "/api/v1/admin/reports/"+id, map[string]string{"status": "resolved"})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body.String())
	}
	if rec := h.do(http.MethodPatch, "/api/v1/admin/reports/"+uuid.NewString(), map[string]string{"status": "reviewed"}); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing report, got %d", rec.Code)
	}
}
