// File: internal/middleware/recovery.go
package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"promptvault/internal/contextutils"
	"promptvault/internal/response"
	"promptvault/internal/services"
)

// Recovery turns a handler panic into a 500 envelope and logs the stack.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recovery(builder *response.Builder, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				contextutils.Logger(r.Context(), logger).Error("Panic recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.ByteString("stack", debug.Stack()),
				)

				builder.WriteError(w, r, services.NewInternalError("internal server error"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
