// Package version carries marathon's build metadata.
//
// Values are set at link time, falling back to the module's VCS stamp:
//
//	go build -ldflags "-X github.com/kbukum/marathon/version.Version=1.0.0" ./cmd/marathon
package version
