package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shouni/vibe-wallpaper/internal/logger"
	"github.com/shouni/vibe-wallpaper/internal/metrics"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID(t *testing.T) {
	t.Run("generates new request ID when not provided", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetRequestID(c))
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		headerID := w.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, headerID)
		assert.Equal(t, headerID, w.Body.String())
	})

	t.Run("uses existing request ID from header", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetRequestID(c))
		})

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "existing-request-id-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "existing-request-id-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "existing-request-id-123", w.Body.String())
	})
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		status int
		want   string
	}{
		{"logs successful requests", "info", http.StatusOK, "INFO"},
		{"logs 4xx requests as warnings", "warn", http.StatusConflict, "WARN"},
		{"logs 5xx requests as errors", "error", http.StatusBadGateway, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log := logger.New(&logger.Config{Level: tt.level, Format: "json", Output: buf})

			router := gin.New()
			router.Use(RequestID(), Logging(log))
			router.GET("/test", func(c *gin.Context) {
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/test?vibe=neon", nil))

			out := buf.String()
			assert.Contains(t, out, "HTTP Request")
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, "/test")
			assert.Contains(t, out, "vibe=neon")
			assert.Contains(t, out, "request_id")
		})
	}
}

func TestRecovery(t *testing.T) {
	buf := &bytes.Buffer{}
	router := gin.New()
	router.Use(Recovery(logger.New(&logger.Config{Format: "json", Output: buf})))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}`, w.Body.String())
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestMetrics(t *testing.T) {
	m := metrics.New("mw_test", prometheus.NewRegistry())
	router := gin.New()
	router.Use(Metrics(m))
	router.GET("/api/images/:id/select", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/images/abc/select", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/images/:id/select", "4xx")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.HTTPRequestsInFlight))

	t.Run("nil metrics is a no-op", func(t *testing.T) {
		router := gin.New()
		router.Use(Metrics(nil))
		router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/ok", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCORS(t *testing.T) {
	preflight := func(cfg CORSConfig, origin string) *httptest.ResponseRecorder {
		router := gin.New()
		router.Use(CORS(cfg))
		router.GET("/api/state", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest("OPTIONS", "/api/state", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "GET")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("別オリジンのプリフライトに応答する", func(t *testing.T) {
		w := preflight(DefaultCORSConfig(), "http://ui.test")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("同一オリジンには CORS ヘッダを付けない", func(t *testing.T) {
		// httptest のリクエストは Host が example.com になる
		w := preflight(DefaultCORSConfig(), "http://example.com")
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("許可リストに無いオリジンは拒否する", func(t *testing.T) {
		cfg := DefaultCORSConfig()
		cfg.AllowOrigins = []string{"http://ui.test"}
		assert.Equal(t, http.StatusForbidden, preflight(cfg, "http://evil.test").Code)

		w := preflight(cfg, "http://ui.test")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://ui.test", w.Header().Get("Access-Control-Allow-Origin"))
	})
}
