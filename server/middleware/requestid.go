package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kbukum/marathon/logger"
)

// HeaderRequestID is the header used to propagate request ids.
const HeaderRequestID = "X-Request-Id"

// RequestID makes sure every request carries an X-Request-Id. An incoming id
// is kept; otherwise a UUID is generated. The id is set on the request, the
// response and the request context (see logger.RequestIDFromContext).
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.New().String()
				r.Header.Set(HeaderRequestID, id)
			}
			w.Header().Set(HeaderRequestID, id)
			next.ServeHTTP(w, r.WithContext(logger.ContextWithRequestID(r.Context(), id)))
		})
	}
}
