package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "qapp_backend/internal/http"

	"github.com/gin-gonic/gin"
)

type routerConfig struct{}

func (routerConfig) GetHTTPAddr() string        { return ":0" }
func (routerConfig) GetCORSAllowAll() bool      { return false }
func (routerConfig) GetCORSOrigins() []string   { return []string{"http://localhost:3000"} }
func (routerConfig) GetCORSAllowCreds() bool    { return true }
func (routerConfig) GetJWTAccessSecret() string { return "secret" }
func (routerConfig) GetJWTAudience() string     { return "authenticated" }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type pingModule struct{}

func (pingModule) Name() string { return "ping" }

func (pingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	ctx.Protected.GET("/secret", func(c *gin.Context) { c.Status(http.StatusOK) })
}

func TestRouterHealthAndModules(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := New(&apphttp.App{Config: routerConfig{}, Health: pinger{}, Modules: []apphttp.Module{pingModule{}}})

	cases := []struct {
		path string
		want int
	}{
		{"/api/health", http.StatusOK},
		{"/api/v1/ping", http.StatusOK},
		{"/api/v1/secret", http.StatusUnauthorized},
		{"/api/v1/missing", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.path, tc.want, rec.Code)
		}
	}
}

func TestRouterHealthReportsUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := New(&apphttp.App{Config: routerConfig{}, Health: pinger{err: errors.New("down")}})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
