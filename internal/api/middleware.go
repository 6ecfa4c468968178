package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ghmd86/document-hub-sub000/internal/logger"
)

// RequestLogger creates a middleware that injects the service logger into the
// request context and logs each completed request with its RequestID, method,
// path, status, and duration.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := middleware.GetReqID(r.Context())
			reqLog := log.With("request_id", reqID)
			r = r.WithContext(logger.WithContext(r.Context(), reqLog))

			// Wrap the ResponseWriter to capture the status code.
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			// Info for success, Warn for 4xx, Error for 5xx.
			level := slog.LevelInfo
			status := ww.Status()
			if status >= 500 {
				level = slog.LevelError
			} else if status >= 400 {
				level = slog.LevelWarn
			}

			reqLog.Log(r.Context(), level, "HTTP request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration", time.Since(start).String(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
