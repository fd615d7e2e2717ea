package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/marathon/logger"
)

// quietPaths are polled by probes and would drown the request log.
var quietPaths = map[string]bool{
	"/healthcheck": true,
}

// RequestLogger returns middleware that logs every request with method,
// path, route, status code and duration. Probe paths are skipped.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			fields := map[string]interface{}{
				logger.FieldMethod:   r.Method,
				"path":               r.URL.Path,
				logger.FieldStatus:   sw.status,
				logger.FieldDuration: duration.Milliseconds(),
			}
			if route := RouteFromContext(r.Context()); route != "" {
				fields[logger.FieldRoute] = route
			}
			if id := r.Header.Get(HeaderRequestID); id != "" {
				fields[logger.FieldRequestID] = id
			}

			logByStatus(log, fields, sw.status)
		})
	}
}

// logByStatus logs request fields at a level chosen by status code.
// If log is nil, the global logger is used.
func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
