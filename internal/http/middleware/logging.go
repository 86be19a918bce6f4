package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/auth"
	"github.com/straye-as/offers-api/internal/logger"
	"go.uber.org/zap"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// tenantHolder is filled in by the handler chain so the outer logging
// middleware can see who made the request
type tenantHolder struct {
	tenant *auth.TenantContext
}

// Logging middleware logs HTTP requests. It keeps an incoming X-Request-ID
// or assigns one, and echoes it in the response.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" || len(requestID) > 100 {
				requestID = uuid.New().String()
			}
			w.Header().Set("X-Request-ID", requestID)

			holder := &tenantHolder{}
			ctx := logger.ContextWithRequestID(r.Context(), requestID)
			ctx = contextWithTenantHolder(ctx, holder)

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r.WithContext(ctx))

			duration := time.Since(start)

			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status_code", rw.statusCode),
				zap.Int64("response_size", rw.written),
				zap.Duration("duration", duration),
			}

			if holder.tenant != nil {
				fields = append(fields,
					zap.String("tenant_id", holder.tenant.TenantID.String()),
					zap.String("username", holder.tenant.Username),
				)
			}

			log.Info(
				fmt.Sprintf("%s %-30s -> %3d (%s)",
					r.Method,
					r.URL.Path,
					rw.statusCode,
					duration.Truncate(time.Microsecond),
				),
				fields...,
			)
		})
	}
}
