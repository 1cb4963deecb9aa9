// Package metrics defines the observability interfaces used across the
// data and control planes. Collection is optional: every constructor
// returns nil when metrics are disabled, and callers either check the
// collector for nil or go through the nil-safe Observe* helpers.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registryOnce sync.Once
	registry     *prometheus.Registry
	enabled      atomic.Bool
)

// InitRegistry creates the process-wide Prometheus registry used by every
// metrics constructor in this package. It is idempotent: calling it more
// than once has no effect after the first call.
func InitRegistry() *prometheus.Registry {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		enabled.Store(true)
	})
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return enabled.Load()
}

// GetRegistry returns the process-wide registry, or nil if metrics have not
// been initialized.
func GetRegistry() *prometheus.Registry {
	return registry
}
