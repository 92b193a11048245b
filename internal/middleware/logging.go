package middleware

import (
	"net/http"

	"servicehub-be/internal/logger"
	"servicehub-be/internal/metrics"

	"go.uber.org/zap"
)

// responseRecorder lets us capture HTTP status codes
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging writes one structured line per request and feeds the latency
// histogram. rec may be nil.
func Logging(rec *metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			timer := metrics.StartTimer()

			rw := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			duration := timer.Duration()
			rec.ObserveRequest(r.Method, rw.statusCode, duration)

			log := logger.FromCtx(r.Context())
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.statusCode),
				zap.Duration("duration", duration),
				zap.String("remote_ip", r.RemoteAddr),
			}

			if rw.statusCode >= http.StatusInternalServerError {
				log.Error("HTTP Request", fields...)
				return
			}
			log.Info("HTTP Request", fields...)
		})
	}
}
