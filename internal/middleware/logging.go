package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/suqify/grocerynet/internal/authz"
)

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// principalKey carries a slot the auth middleware fills in, so the request
// logger (which runs outside auth) can report who made the call.
type principalKey struct{}

func notePrincipal(ctx context.Context, p authz.Principal) {
	if slot, ok := ctx.Value(principalKey{}).(*authz.Principal); ok {
		*slot = p
	}
}

// RequestLogger returns middleware that logs each HTTP request with method,
// path, status code, duration, remote IP, and the authenticated principal
// when the request carries one.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			var p authz.Principal
			ctx := context.WithValue(r.Context(), principalKey{}, &p)
			next.ServeHTTP(rec, r.WithContext(ctx))

			duration := time.Since(start)
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", duration),
				slog.String("remote", RealIP(r)),
			}
			if p.UserID != 0 {
				attrs = append(attrs,
					slog.String("user", p.Username),
					slog.String("role", string(p.Role)),
				)
			}

			switch {
			case rec.status >= 500:
				logger.LogAttrs(r.Context(), slog.LevelError, "request", attrs...)
			case rec.status >= 400:
				logger.LogAttrs(r.Context(), slog.LevelWarn, "request", attrs...)
			default:
				logger.LogAttrs(r.Context(), slog.LevelInfo, "request", attrs...)
			}
		})
	}
}
