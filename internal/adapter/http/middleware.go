package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// TraceHeader carries the correlation id between the gateway and this service.
const TraceHeader = "X-Trace-ID"

// RequestLogger logs one line per request. The caller's trace id is reused or a
// new one is generated, and it is echoed back on the response.
func RequestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(TraceHeader)
			if traceID == "" {
				traceID = uuid.NewString()
			}
			w.Header().Set(TraceHeader, traceID)

			reqLogger := logger.With(
				"trace_id", traceID,
				"http_method", r.Method,
				"http_path", r.URL.Path,
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			reqLogger.DebugContext(r.Context(), "request started", "remote_addr", r.RemoteAddr)

			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			reqLogger.Log(r.Context(), level, "request finished",
				"status_code", ww.Status(),
				"bytes_written", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
