package logging

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func newTestLogger(out *strings.Builder) *slog.Logger {
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLoggingMiddleware(t *testing.T) {
	var logOutput strings.Builder
	logger := newTestLogger(&logOutput)

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	}))

	t.Run("health and metrics requests are not logged", func(t *testing.T) {
		for _, path := range []string{"/health", "/metrics"} {
			logOutput.Reset()
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

			if rr.Code != http.StatusTeapot {
				t.Errorf("expected status 418, got %d", rr.Code)
			}
			if logOutput.Len() != 0 {
				t.Errorf("expected no log output for %s, got %s", path, logOutput.String())
			}
		}
	})

	t.Run("data requests are logged", func(t *testing.T) {
		logOutput.Reset()
		req := httptest.NewRequest(http.MethodGet, "/data.json?x=1", nil)
		req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-1"))
		handler.ServeHTTP(httptest.NewRecorder(), req)

		out := logOutput.String()
		for _, want := range []string{"level=WARN", "request_id=req-1", "path=/data.json", "x=1", "status_code=418", "bytes_written=2"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected log to contain %q, got %s", want, out)
			}
		}
	})
}

func TestLoggingMiddlewareRevalidation(t *testing.T) {
	var logOutput strings.Builder
	handler := LoggingMiddleware(newTestLogger(&logOutput))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/data.json", nil))

	out := logOutput.String()
	for _, want := range []string{"level=INFO", "revalidated=true", "request_id=unknown", "status_code=304"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log to contain %q, got %s", want, out)
		}
	}
}

func TestLevelForStatus(t *testing.T) {
	testCases := []struct {
		status int
		want   slog.Level
	}{
		{http.StatusOK, slog.LevelInfo},
		{http.StatusNotModified, slog.LevelInfo},
		{http.StatusTooManyRequests, slog.LevelWarn},
		{http.StatusServiceUnavailable, slog.LevelError},
	}

	for _, tc := range testCases {
		if got := levelForStatus(tc.status); got != tc.want {
			t.Errorf("levelForStatus(%d) = %v, want %v", tc.status, got, tc.want)
		}
	}
}
