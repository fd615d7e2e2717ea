// Package router binds handler capabilities to HTTP routes.
//
// A handler describes itself with a Descriptor: a route and one optional
// operation per HTTP method. Bind walks the handlers in order and, for every
// allowed method the descriptor implements, adds a binding to a RouteTable.
// The table is validated up front so conflicting or unreachable routes fail
// startup instead of being silently dropped.
package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/marathon/errors"
	"github.com/kbukum/marathon/server/middleware"
)

// Method names an operation a handler can expose.
type Method string

const (
	Get    Method = "get"
	Post   Method = "post"
	Put    Method = "put"
	Delete Method = "delete"
)

// AllowedMethods is the default method set, in binding order.
var AllowedMethods = []Method{Get, Post, Put, Delete}

// HTTP returns the upper-case HTTP verb.
func (m Method) HTTP() string { return strings.ToUpper(string(m)) }

func (m Method) valid() bool {
	switch m {
	case Get, Post, Put, Delete:
		return true
	}
	return false
}

// HandlerFunc serves one operation. A returned error is rendered by the
// table's error handler.
type HandlerFunc func(c *gin.Context) error

// Descriptor declares a handler's route and the operations it implements.
// A nil operation is not exposed.
type Descriptor struct {
	Name   string
	Route  string
	Get    HandlerFunc
	Post   HandlerFunc
	Put    HandlerFunc
	Delete HandlerFunc
}

func (d Descriptor) operation(m Method) HandlerFunc {
	switch m {
	case Get:
		return d.Get
	case Post:
		return d.Post
	case Put:
		return d.Put
	case Delete:
		return d.Delete
	}
	return nil
}

// Handler is anything that can describe its capabilities.
type Handler interface {
	Descriptor() Descriptor
}

// Binding is one (method, route) entry of a RouteTable.
type Binding struct {
	Method  Method
	Route   string
	Handler string
	fn      HandlerFunc
}

func (b Binding) String() string { return b.Method.HTTP() + " " + b.Route }

// ErrorHandler renders an error returned by a bound operation.
type ErrorHandler func(c *gin.Context, b Binding, err error)

type bindingKey struct {
	method Method
	route  string
}

// RouteTable is the ordered result of Bind.
type RouteTable struct {
	bindings []Binding
	index    map[bindingKey]int
}

// Bind builds a RouteTable from handlers. A nil allowed set means
// AllowedMethods. It fails with INVALID_ROUTE for a missing or malformed
// route, ROUTE_CONFLICT when two handlers claim the same (method, route), and
// UNREACHABLE_ROUTE when a handler exposes no allowed operation.
func Bind(handlers []Handler, allowed []Method) (*RouteTable, error) {
	if allowed == nil {
		allowed = AllowedMethods
	}
	for _, m := range allowed {
		if !m.valid() {
			return nil, apperrors.InvalidConfig("methods", fmt.Sprintf("unknown method %q", m))
		}
	}

	t := &RouteTable{index: make(map[bindingKey]int)}
	for i, h := range handlers {
		if h == nil {
			return nil, apperrors.InvalidRoute(fmt.Sprintf("handler #%d", i), "handler is nil")
		}
		d := h.Descriptor()
		name := d.Name
		if name == "" {
			name = fmt.Sprintf("%T", h)
		}
		if d.Route == "" {
			return nil, apperrors.InvalidRoute(name, "route is empty")
		}
		if !strings.HasPrefix(d.Route, "/") {
			return nil, apperrors.InvalidRoute(name, fmt.Sprintf("route %q must start with /", d.Route))
		}

		bound := 0
		for _, m := range allowed {
			fn := d.operation(m)
			if fn == nil {
				continue
			}
			key := bindingKey{m, d.Route}
			if prev, ok := t.index[key]; ok {
				return nil, apperrors.RouteConflict(string(m), d.Route, t.bindings[prev].Handler, name)
			}
			t.index[key] = len(t.bindings)
			t.bindings = append(t.bindings, Binding{Method: m, Route: d.Route, Handler: name, fn: fn})
			bound++
		}
		if bound == 0 {
			return nil, apperrors.UnreachableRoute(d.Route, name)
		}
	}
	return t, nil
}

// Len returns the number of bindings.
func (t *RouteTable) Len() int { return len(t.bindings) }

// Bindings returns a copy of the bindings in table order.
func (t *RouteTable) Bindings() []Binding {
	out := make([]Binding, len(t.bindings))
	copy(out, t.bindings)
	return out
}

// Lookup finds the binding for method and route.
func (t *RouteTable) Lookup(m Method, route string) (Binding, bool) {
	i, ok := t.index[bindingKey{m, route}]
	if !ok {
		return Binding{}, false
	}
	return t.bindings[i], true
}

// Routes lists the bindings as "METHOD /route" strings.
func (t *RouteTable) Routes() []string {
	out := make([]string, 0, len(t.bindings))
	for _, b := range t.bindings {
		out = append(out, b.String())
	}
	return out
}

// Register mounts every binding on r in table order. Each request gets its
// route recorded for the timing middleware. A nil onError writes the standard
// error body.
func (t *RouteTable) Register(r gin.IRoutes, onError ErrorHandler) {
	if onError == nil {
		onError = writeError
	}
	for _, b := range t.bindings {
		r.Handle(b.Method.HTTP(), b.Route, func(c *gin.Context) {
			middleware.SetRoute(c.Request.Context(), b.Route)
			if err := b.fn(c); err != nil {
				onError(c, b, err)
			}
		})
	}
}

func writeError(c *gin.Context, _ Binding, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(status, appErr.ToResponse())
}
