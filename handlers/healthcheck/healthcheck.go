// Package healthcheck serves GET /healthcheck.
package healthcheck

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/marathon/component"
	apperrors "github.com/kbukum/marathon/errors"
	"github.com/kbukum/marathon/server/router"
)

// Route is the path the handler binds to.
const Route = "/healthcheck"

// StatusWorking is reported while every component is usable.
const StatusWorking = "WORKING"

// Checker returns health status for the connected components.
type Checker func(ctx context.Context) []component.Health

// Response is the healthcheck body.
type Response struct {
	Status     string             `json:"status"`
	Service    string             `json:"service"`
	Timestamp  string             `json:"timestamp"`
	Components []component.Health `json:"components,omitempty"`
}

// Handler reports service health. It only exposes a get operation.
type Handler struct {
	service string
	checker Checker
}

// New returns a healthcheck handler. A nil checker reports no components.
func New(service string, checker Checker) *Handler {
	return &Handler{service: service, checker: checker}
}

// Descriptor implements router.Handler.
func (h *Handler) Descriptor() router.Descriptor {
	return router.Descriptor{
		Name:  "healthcheck",
		Route: Route,
		Get:   h.get,
	}
}

func (h *Handler) get(c *gin.Context) error {
	var components []component.Health
	if h.checker != nil {
		components = h.checker(c.Request.Context())
	}

	var unhealthy []string
	for _, ch := range components {
		if ch.Status == component.StatusUnhealthy {
			unhealthy = append(unhealthy, ch.Name)
		}
	}
	if len(unhealthy) > 0 {
		return apperrors.ServiceUnavailable(h.service).
			WithDetail("unhealthy", unhealthy).
			WithDetail("components", components)
	}

	c.JSON(http.StatusOK, Response{
		Status:     StatusWorking,
		Service:    h.service,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	})
	return nil
}
