package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kbukum/marathon/component"
	"github.com/kbukum/marathon/logger"
	"github.com/kbukum/marathon/server"
	"github.com/kbukum/marathon/server/router"
)

// InfrastructureInfo describes one connected component.
type InfrastructureInfo struct {
	Name    string
	Type    string // "cache", "database", "queue", "producer", "server"
	Details string
	Status  component.HealthStatus
	Message string
}

// RouteInfo represents a bound HTTP route.
type RouteInfo struct {
	Method  string
	Path    string
	Handler string
}

// Summary tracks and displays the application startup.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	addr            string
	infrastructure  []InfrastructureInfo
	routes          []RouteInfo
	out             io.Writer
}

// NewSummary creates a startup summary printed to out (stdout when nil).
func NewSummary(serviceName, version string, out io.Writer) *Summary {
	if out == nil {
		out = os.Stdout
	}
	return &Summary{serviceName: serviceName, version: version, out: out}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// Collect snapshots component descriptions with live health, the bound
// routes and the listen address.
func (s *Summary) Collect(ctx context.Context, registry *component.Registry, srv *server.Server, table *router.RouteTable) {
	s.infrastructure = s.infrastructure[:0]
	s.routes = s.routes[:0]

	if registry != nil {
		health := registry.HealthAll(ctx)
		for i, c := range registry.All() {
			info := InfrastructureInfo{Name: c.Name()}
			if d, ok := c.(component.Describable); ok {
				desc := d.Describe()
				if desc.Name != "" {
					info.Name = desc.Name
				}
				info.Type = desc.Type
				info.Details = desc.Details
			}
			if i < len(health) {
				info.Status = health[i].Status
				info.Message = health[i].Message
			}
			s.infrastructure = append(s.infrastructure, info)
		}
	}

	if srv != nil {
		s.addr = srv.Addr()
		d := srv.Describe()
		s.infrastructure = append(s.infrastructure, InfrastructureInfo{
			Name:    d.Name,
			Type:    d.Type,
			Details: d.Details,
			Status:  component.StatusHealthy,
		})
	}

	if table != nil {
		for _, b := range table.Bindings() {
			s.routes = append(s.routes, RouteInfo{Method: b.Method.HTTP(), Path: b.Route, Handler: b.Handler})
		}
	}
}

// Infrastructure returns the collected component lines.
func (s *Summary) Infrastructure() []InfrastructureInfo { return s.infrastructure }

// Routes returns the collected routes.
func (s *Summary) Routes() []RouteInfo { return s.routes }

// Addr returns the listen address.
func (s *Summary) Addr() string { return s.addr }

// Display prints the summary tree and logs a one-line structured version.
func (s *Summary) Display(log *logger.Logger) {
	s.Render(s.out)

	healthy := 0
	for _, inf := range s.infrastructure {
		if inf.Status == component.StatusHealthy {
			healthy++
		}
	}
	log.Info("Startup summary", map[string]interface{}{
		"services":           len(s.infrastructure),
		"healthy":            healthy,
		"routes":             len(s.routes),
		"addr":               s.addr,
		logger.FieldDuration: s.startupDuration.Milliseconds(),
	})
}

// Render writes the summary tree to w.
func (s *Summary) Render(w io.Writer) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "🚀 %s v%s started in %.2fs\n\n",
		s.serviceName, s.version, s.startupDuration.Seconds())

	if len(s.infrastructure) > 0 {
		fmt.Fprintf(w, "📊 Infrastructure\n")
		healthy := 0
		for i, inf := range s.infrastructure {
			msg := ""
			if inf.Message != "" {
				msg = fmt.Sprintf(" (%s)", inf.Message)
			}
			fmt.Fprintf(w, "   %s %s %s [%s]: %s%s\n",
				treePrefix(i, len(s.infrastructure)), healthStatusIcon(inf.Status), inf.Name, inf.Type, inf.Details, msg)
			if inf.Status == component.StatusHealthy {
				healthy++
			}
		}
		fmt.Fprintf(w, "\n")

		total := len(s.infrastructure)
		if healthy == total {
			fmt.Fprintf(w, "✅ All components healthy (%d/%d)\n", healthy, total)
		} else {
			fmt.Fprintf(w, "⚠️  Some components have issues (%d/%d healthy)\n", healthy, total)
		}
	} else {
		fmt.Fprintf(w, "   └── No components registered\n")
	}

	if len(s.routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			fmt.Fprintf(w, "   %s %-7s %s → %s\n", treePrefix(i, len(s.routes)), r.Method, r.Path, r.Handler)
		}
	}

	if s.addr != "" {
		fmt.Fprintf(w, "\n👂 Listening on %s\n", s.addr)
	}
	fmt.Fprintf(w, "\n")
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
