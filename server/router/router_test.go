package router_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/marathon/errors"
	"github.com/kbukum/marathon/server/router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubHandler struct {
	d router.Descriptor
}

func (s stubHandler) Descriptor() router.Descriptor { return s.d }

func ok(c *gin.Context) error {
	c.String(http.StatusOK, c.Request.Method)
	return nil
}

func TestBindGetOnly(t *testing.T) {
	table, err := router.Bind([]router.Handler{
		stubHandler{router.Descriptor{Name: "health", Route: "/healthcheck", Get: ok}},
	}, router.AllowedMethods)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("expected 1 binding, got %d", table.Len())
	}
	b, found := table.Lookup(router.Get, "/healthcheck")
	if !found || b.Handler != "health" {
		t.Fatalf("Lookup = %+v, %v", b, found)
	}
	if _, found := table.Lookup(router.Post, "/healthcheck"); found {
		t.Fatal("post must not be bound")
	}
}

func TestBindAllMethods(t *testing.T) {
	table, err := router.Bind([]router.Handler{
		stubHandler{router.Descriptor{Name: "templates", Route: "/templates", Get: ok, Post: ok, Put: ok, Delete: ok}},
	}, nil)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	want := []string{"GET /templates", "POST /templates", "PUT /templates", "DELETE /templates"}
	got := table.Routes()
	if len(got) != len(want) {
		t.Fatalf("routes = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("route %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBindRespectsAllowedSet(t *testing.T) {
	table, err := router.Bind([]router.Handler{
		stubHandler{router.Descriptor{Name: "templates", Route: "/templates", Get: ok, Delete: ok}},
	}, []router.Method{router.Get, router.Post})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("expected only GET, got %v", table.Routes())
	}
}

func TestBindErrors(t *testing.T) {
	tests := []struct {
		name     string
		handlers []router.Handler
		allowed  []router.Method
		code     apperrors.ErrorCode
	}{
		{
			name: "conflict",
			handlers: []router.Handler{
				stubHandler{router.Descriptor{Name: "a", Route: "/x", Get: ok}},
				stubHandler{router.Descriptor{Name: "b", Route: "/x", Get: ok, Post: ok}},
			},
			code: apperrors.ErrCodeRouteConflict,
		},
		{
			name: "no operations",
			handlers: []router.Handler{
				stubHandler{router.Descriptor{Name: "a", Route: "/x"}},
			},
			code: apperrors.ErrCodeUnreachableRoute,
		},
		{
			name: "operations outside allowed set",
			handlers: []router.Handler{
				stubHandler{router.Descriptor{Name: "a", Route: "/x", Delete: ok}},
			},
			allowed: []router.Method{router.Get},
			code:    apperrors.ErrCodeUnreachableRoute,
		},
		{
			name: "empty route",
			handlers: []router.Handler{
				stubHandler{router.Descriptor{Name: "a", Get: ok}},
			},
			code: apperrors.ErrCodeInvalidRoute,
		},
		{
			name: "relative route",
			handlers: []router.Handler{
				stubHandler{router.Descriptor{Name: "a", Route: "x", Get: ok}},
			},
			code: apperrors.ErrCodeInvalidRoute,
		},
		{
			name:     "nil handler",
			handlers: []router.Handler{nil},
			code:     apperrors.ErrCodeInvalidRoute,
		},
		{
			name: "unknown method",
			handlers: []router.Handler{
				stubHandler{router.Descriptor{Name: "a", Route: "/x", Get: ok}},
			},
			allowed: []router.Method{"patch"},
			code:    apperrors.ErrCodeInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := router.Bind(tt.handlers, tt.allowed)
			if err == nil {
				t.Fatalf("expected error, got table with %d bindings", table.Len())
			}
			if !apperrors.IsCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestRegisterServesAndRendersErrors(t *testing.T) {
	missing := func(c *gin.Context) error {
		return apperrors.NotFound("template", c.Param("id"))
	}
	broken := func(*gin.Context) error {
		return errors.New("disk on fire")
	}
	table, err := router.Bind([]router.Handler{
		stubHandler{router.Descriptor{Name: "templates", Route: "/templates/:id", Get: ok, Put: broken, Delete: missing}},
	}, nil)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	engine := gin.New()
	table.Register(engine, nil)

	tests := []struct {
		method string
		status int
		code   string
	}{
		{http.MethodGet, http.StatusOK, ""},
		{http.MethodDelete, http.StatusNotFound, "NOT_FOUND"},
		{http.MethodPut, http.StatusInternalServerError, "INTERNAL_ERROR"},
		{http.MethodPost, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		engine.ServeHTTP(rr, httptest.NewRequest(tt.method, "/templates/42", http.NoBody))
		if rr.Code != tt.status {
			t.Fatalf("%s: status %d, want %d", tt.method, rr.Code, tt.status)
		}
		if tt.code == "" {
			continue
		}
		var body apperrors.ErrorResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", tt.method, err)
		}
		if string(body.Error.Code) != tt.code {
			t.Fatalf("%s: code %s, want %s", tt.method, body.Error.Code, tt.code)
		}
	}
}

func TestRegisterCustomErrorHandler(t *testing.T) {
	table, err := router.Bind([]router.Handler{
		stubHandler{router.Descriptor{Name: "fail", Route: "/fail", Post: func(*gin.Context) error {
			return apperrors.Validation("bad body")
		}}},
	}, nil)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	var seen router.Binding
	engine := gin.New()
	table.Register(engine, func(c *gin.Context, b router.Binding, err error) {
		seen = b
		c.Status(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/fail", http.NoBody))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("status %d", rr.Code)
	}
	if seen.String() != "POST /fail" || seen.Handler != "fail" {
		t.Fatalf("binding = %+v", seen)
	}
}
