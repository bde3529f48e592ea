package middleware_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/chatrelay/core/logger"
	"github.com/dmitrymomot/chatrelay/middleware"
)

func captureID(got *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, _ = middleware.GetRequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	t.Run("generates_uuid", func(t *testing.T) {
		t.Parallel()
		var id string
		w := httptest.NewRecorder()
		middleware.RequestID()(captureID(&id)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Len(t, id, 36)
		assert.Equal(t, id, w.Header().Get("X-Request-ID"))
	})

	t.Run("ignores_client_id_by_default", func(t *testing.T) {
		t.Parallel()
		var id string
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "client-supplied")
		middleware.RequestID()(captureID(&id)).ServeHTTP(httptest.NewRecorder(), req)

		assert.NotEqual(t, "client-supplied", id)
	})

	t.Run("uses_existing", func(t *testing.T) {
		t.Parallel()
		var id string
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Trace", "abc")
		mw := middleware.RequestIDWithConfig(middleware.RequestIDConfig{HeaderName: "X-Trace", UseExisting: true})
		w := httptest.NewRecorder()
		mw(captureID(&id)).ServeHTTP(w, req)

		assert.Equal(t, "abc", id)
		assert.Equal(t, "abc", w.Header().Get("X-Trace"))
	})

	t.Run("skip", func(t *testing.T) {
		t.Parallel()
		var id string
		mw := middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			Skip: func(r *http.Request) bool { return r.URL.Path == "/health/live" },
		})
		w := httptest.NewRecorder()
		mw(captureID(&id)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

		assert.Empty(t, id)
		assert.Empty(t, w.Header().Get("X-Request-ID"))
	})
}

func TestRequestIDExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithJSONFormatter(),
		logger.WithContextExtractors(middleware.RequestIDExtractor),
	)

	log.InfoContext(middleware.WithRequestID(context.Background(), "req-1"), "hello")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)

	buf.Reset()
	log.InfoContext(context.Background(), "hello")
	assert.NotContains(t, buf.String(), "request_id")
}
