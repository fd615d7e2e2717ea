package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// HeaderResponseTime carries the server-side processing time of a request.
const HeaderResponseTime = "X-Response-Time"

// RequestRecorder receives one observation per finished request.
// observability.Metrics satisfies it.
type RequestRecorder interface {
	RecordRequestStart(ctx context.Context)
	RecordHTTPRequest(ctx context.Context, method, route string, status int, d time.Duration)
}

type routeKey struct{}

type routeHolder struct {
	route string
}

// SetRoute records the matched route template for the current request so the
// timing middleware can label its observation. It is a no-op outside
// ResponseTime.
func SetRoute(ctx context.Context, route string) {
	if h, ok := ctx.Value(routeKey{}).(*routeHolder); ok {
		h.route = route
	}
}

// RouteFromContext returns the route recorded by SetRoute, or "".
func RouteFromContext(ctx context.Context) string {
	if h, ok := ctx.Value(routeKey{}).(*routeHolder); ok {
		return h.route
	}
	return ""
}

// ResponseTime measures every request and reports it in the X-Response-Time
// header as whole milliseconds ("12ms"). The header is stamped when the
// response header is committed, or after the chain returns if the handler
// wrote nothing. The observation is handed to rec (which may be nil) from a
// deferred finalizer, so it is recorded even when the chain panics.
//
// Headers cannot change once they are on the wire, so a handler that writes
// and then keeps working reports only the time up to its first write in the
// header. The recorded duration always covers the whole chain.
//
// Install it as the outermost middleware.
func ResponseTime(rec RequestRecorder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			holder := &routeHolder{}
			ctx := context.WithValue(r.Context(), routeKey{}, holder)
			r = r.WithContext(ctx)

			sw := newStatusWriter(w)
			sw.onCommit = func(h http.Header) {
				h.Set(HeaderResponseTime, formatMillis(time.Since(start)))
			}
			if rec != nil {
				rec.RecordRequestStart(ctx)
			}

			defer func() {
				p := recover()
				elapsed := time.Since(start)
				status := sw.status
				if !sw.wroteHeader {
					w.Header().Set(HeaderResponseTime, formatMillis(elapsed))
					if p != nil {
						status = http.StatusInternalServerError
					}
				}
				if rec != nil {
					rec.RecordHTTPRequest(ctx, r.Method, holder.route, status, elapsed)
				}
				if p != nil {
					panic(p)
				}
			}()

			next.ServeHTTP(sw, r)
		})
	}
}

func formatMillis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
}
