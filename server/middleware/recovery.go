package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "github.com/kbukum/marathon/errors"
	"github.com/kbukum/marathon/logger"
)

// Recovery returns middleware that recovers from panics, logs the stack and
// answers with the standard INTERNAL_ERROR body when nothing has been written
// yet. http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}

				log.Error("Panic recovered", map[string]interface{}{
					logger.FieldError:     fmt.Sprintf("%v", p),
					"stack":               string(debug.Stack()),
					"path":                r.URL.Path,
					logger.FieldMethod:    r.Method,
					logger.FieldRequestID: r.Header.Get(HeaderRequestID),
				})
				if sw.wroteHeader {
					return
				}

				appErr := apperrors.Internal(fmt.Errorf("panic: %v", p))
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(appErr.HTTPStatus)
				_ = json.NewEncoder(w).Encode(appErr.ToResponse())
			}()
			next.ServeHTTP(sw, r)
		})
	}
}
