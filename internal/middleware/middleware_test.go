package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"launchgpt-go/pkg/log"
	"launchgpt-go/pkg/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newManager(t *testing.T) *token.Manager {
	t.Helper()
	m, err := token.NewManager("secret", time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func gatedRouter(tm *token.Manager) *gin.Engine {
	r := gin.New()
	r.Use(SessionGate(tm, "token"))
	r.GET("/open", func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{"ok": ok, "id": id.UserID})
	})
	r.GET("/closed", func(c *gin.Context) {
		id, ok := RequireIdentity(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id.UserID})
	})
	return r
}

func TestSessionGateNeverAborts(t *testing.T) {
	tm := newManager(t)
	r := gatedRouter(tm)
	good, _ := tm.Issue(5, "u")

	tests := []struct {
		name   string
		cookie string
		auth   string
		want   string
	}{
		{"no cookie", "", "", `"ok":false`},
		{"garbage cookie", "garbage", "", `"ok":false`},
		{"valid cookie", good, "", `"id":5`},
		{"bearer header", "", "Bearer " + good, `"id":5`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/open", nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "token", Value: tc.cookie})
			}
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), tc.want) {
				t.Fatalf("status %d body %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestRequireIdentity(t *testing.T) {
	tm := newManager(t)
	r := gatedRouter(tm)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/closed", nil))
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), `"success":false`) {
		t.Fatalf("expected 401, got %d %s", w.Code, w.Body.String())
	}

	good, _ := tm.Issue(8, "u")
	req := httptest.NewRequest(http.MethodGet, "/closed", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: good})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"id":8`) {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
}

func TestRequestLoggerOmitsBodies(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log.SetLogger(zap.New(core))
	t.Cleanup(func() { log.SetLogger(zap.NewNop()) })

	r := gin.New()
	r.Use(RequestLogger())
	r.POST("/login", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"token": "t0ps3cret"}) })

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"password":"hunter2"}`))
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/login" || fields["statusCode"] != int64(200) {
		t.Fatalf("unexpected fields: %v", fields)
	}
	for k, v := range fields {
		if s, ok := v.(string); ok && (strings.Contains(s, "hunter2") || strings.Contains(s, "t0ps3cret")) {
			t.Fatalf("field %s leaks a secret: %s", k, s)
		}
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" ||
		w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("allowed origin not echoed: %v", w.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin must not be allowed")
	}

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
}
