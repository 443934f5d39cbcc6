package middleware

import (
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/wolfman30/session-booking/pkg/logging"
)

const requestIDHeader = "X-Request-ID"

// quietPaths are polled by load balancers and logged at debug level only.
var quietPaths = map[string]bool{"/health": true, "/ready": true}

// requestID prefers the id chi's RequestID middleware stored on the context,
// then the inbound header, and mints one otherwise.
func requestID(r *http.Request) string {
	if id := chimw.GetReqID(r.Context()); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.Header.Get(requestIDHeader)); id != "" {
		return id
	}
	return uuid.NewString()
}

// RequestLogger writes one structured line per request and echoes the
// request id back to the caller.
func RequestLogger(logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			id := requestID(r)
			w.Header().Set(requestIDHeader, id)

			rec := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rec, r)

			status := rec.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []any{
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", rec.BytesWritten(),
				"remote_ip", r.RemoteAddr,
				"elapsed_ms", time.Since(started).Milliseconds(),
			}
			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("http request failed", fields...)
			case quietPaths[r.URL.Path]:
				logger.Debug("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
		})
	}
}
