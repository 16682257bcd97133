// Package opshttp serves an engine's reports, health checks and metrics as
// JSON endpoints.
package opshttp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danpasecinic/opsdiag"
)

const (
	DefaultRootPath = "/ops"
	DefaultPolicy   = "ops"
	DefaultAddr     = "127.0.0.1:6060"
)

// Routes switches individual endpoints on or off.
type Routes struct {
	Options        bool
	Services       bool
	HostedServices bool
	Caches         bool
	Features       bool
	Environment    bool
	Routes         bool
	Health         bool
	Liveness       bool
	Metrics        bool
}

func AllRoutes() Routes {
	return Routes{
		Options:        true,
		Services:       true,
		HostedServices: true,
		Caches:         true,
		Features:       true,
		Environment:    true,
		Routes:         true,
		Health:         true,
		Liveness:       true,
		Metrics:        true,
	}
}

type Config struct {
	RootPath string
	Routes   Routes

	// ResultStatusCodes must hold a code for every health status.
	ResultStatusCodes     map[opsdiag.HealthStatus]int
	AllowCachingResponses bool
	ExcludeStartupChecks  bool

	// RequestTimeout bounds each request's context. 0 disables it.
	RequestTimeout time.Duration

	// AuthSecret enables HS256 bearer auth. Tokens must carry Policy in
	// their scope claim.
	AuthSecret string
	Policy     string

	// Gatherer backs the metrics route; prometheus.DefaultGatherer when nil.
	Gatherer prometheus.Gatherer
}

func DefaultConfig() Config {
	return Config{
		RootPath: DefaultRootPath,
		Routes:   AllRoutes(),
		ResultStatusCodes: map[opsdiag.HealthStatus]int{
			opsdiag.Healthy:   200,
			opsdiag.Degraded:  503,
			opsdiag.Unhealthy: 503,
		},
		RequestTimeout: 30 * time.Second,
		Policy:         DefaultPolicy,
	}
}
