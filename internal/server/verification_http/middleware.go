package verification_http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"verification_service/internal/metrics"
	"verification_service/pkg/ctxdata"
	"verification_service/pkg/logger"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// NewLoggingMiddleware stamps a trace id on every request, logs its outcome
// and records the request-duration metric.
func NewLoggingMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			traceID, err := uuid.NewV7()
			if err != nil {
				traceID = uuid.New()
			}

			ctx := ctxdata.WithTraceID(r.Context(), traceID.String())
			r = r.WithContext(ctx)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			w.Header().Set("X-Trace-Id", traceID.String())

			next.ServeHTTP(sw, r)

			duration := time.Since(start)
			metrics.APIRequestDuration.WithLabelValues(
				r.URL.Path,
				r.Method,
				strconv.Itoa(sw.status),
			).Observe(duration.Seconds())

			log.Info("request completed",
				zap.String("trace_id", traceID.String()),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("duration", duration),
			)
		})
	}
}

// NewIdentityMiddleware copies the gateway-stamped identity headers into the
// request context. The gateway has already authenticated the caller; requests
// arriving without an identity are rejected.
func NewIdentityMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get("X-User-Id")
			if userID == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			ctx := ctxdata.WithUserID(r.Context(), userID)
			if role := r.Header.Get("X-User-Role"); role != "" {
				ctx = ctxdata.WithUserRole(ctx, role)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
