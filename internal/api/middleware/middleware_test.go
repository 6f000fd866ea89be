package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/timmy/nlsql-console/internal/logger"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	return r
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		config     CORSConfig
		origin     string
		wantOrigin string
	}{
		{"allow all", CORSConfig{AllowAllOrigins: true}, "https://a.example", "*"},
		{"listed origin", CORSConfig{AllowedOrigins: []string{"https://a.example"}}, "https://a.example", "https://a.example"},
		{"case insensitive", CORSConfig{AllowedOrigins: []string{"https://A.example"}}, "https://a.example", "https://a.example"},
		{"unlisted origin", CORSConfig{AllowedOrigins: []string{"https://a.example"}}, "https://b.example", ""},
		{"empty list", CORSConfig{}, "https://b.example", "https://b.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(CORS(tt.config))
			r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d", w.Code)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	r := newEngine(CORS(CORSConfig{AllowAllOrigins: true}))
	r.PUT("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://a.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("missing Access-Control-Allow-Methods")
	}
}

func TestLoggerMiddleware_RequestID(t *testing.T) {
	var seen string
	r := newEngine(LoggerMiddleware(nil))
	r.GET("/x", func(c *gin.Context) {
		seen = logger.GetRequestID(c.Request.Context())
		if GetLogger(c) == nil {
			t.Error("GetLogger returned nil")
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	generated := w.Header().Get(RequestIDHeader)
	if generated == "" || generated != seen {
		t.Errorf("generated request id %q, handler saw %q", generated, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "req-123" || seen != "req-123" {
		t.Errorf("client request id not kept: header %q, handler saw %q", got, seen)
	}
}
