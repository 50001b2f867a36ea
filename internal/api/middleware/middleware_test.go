package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestReadOnly(t *testing.T) {
	for method, want := range map[string]int{
		http.MethodGet:    http.StatusNoContent,
		http.MethodHead:   http.StatusNoContent,
		http.MethodPost:   http.StatusMethodNotAllowed,
		http.MethodDelete: http.StatusMethodNotAllowed,
	} {
		rec := httptest.NewRecorder()
		ReadOnly(ok).ServeHTTP(rec, httptest.NewRequest(method, "/health", nil))
		assert.Equal(t, want, rec.Code, method)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "default-src 'none'", rec.Header().Get("Content-Security-Policy"))
}

func TestMetricsAndLoggerPassThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	Metrics(Logger(zerolog.Nop())(ok)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/health", normalizePath("/health"))
	assert.Equal(t, "/metrics", normalizePath("/metrics"))
	assert.Equal(t, "other", normalizePath("/wp-admin/login.php"))
}
