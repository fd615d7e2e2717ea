package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed backing service connection.
// The cache, relational store, queue client and queue producer each implement it.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start connects the component. It must return only once the connection
	// is usable or has definitely failed.
	Start(ctx context.Context) error

	// Stop releases the connection.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description holds summary information for the startup summary.
type Description struct {
	// Name is the display name, e.g. "Redis". Falls back to Component.Name.
	Name string
	// Type categorizes the component: "cache", "database", "queue", "producer".
	Type string
	// Details is a one-liner such as "localhost:6379 db=0".
	Details string
}

// Describable is optionally implemented by components that want to appear
// in the startup summary.
type Describable interface {
	Describe() Description
}
