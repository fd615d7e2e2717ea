// Package server provides marathon's HTTP server: Gin mounted on a ServeMux
// with h2c support, wrapped by net/http middleware.
//
// # Middleware
//
// Applied to every request, outermost first (server/middleware):
//
//   - ResponseTime: X-Response-Time header and request metrics
//   - Recovery: panic recovery with structured logging
//   - RequestID: request id generation and propagation
//   - RequestLogger: request logging by status
//
// # Routes
//
// Routes are never registered directly. Handlers describe themselves with a
// router.Descriptor, router.Bind validates them into a RouteTable and
// Server.Mount registers the table.
package server
