package metrics

import "time"

// KIPCMMetrics provides observability for the Kernel IPC Manager's control
// dispatch path: per-message-type latency, factory registration and
// instance-map size. Pass nil to disable collection with zero overhead.
type KIPCMMetrics interface {
	// RecordDispatch records a control message dispatched to a handler,
	// with its message type, outcome ("ok"/"error") and processing
	// duration.
	RecordDispatch(msgType string, outcome string, duration time.Duration)

	// RecordInstanceCount records the current number of live IPCP instances
	// held in the instance map.
	RecordInstanceCount(count int)

	// RecordFactoryRegistered records a Shim/Normal IPCP factory being
	// registered under its type name.
	RecordFactoryRegistered(ipcpType string)
}

// NewKIPCMMetrics creates a new Prometheus-backed KIPCMMetrics instance.
// Returns nil if metrics are not enabled.
func NewKIPCMMetrics() KIPCMMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusKIPCMMetrics()
}

// newPrometheusKIPCMMetrics is implemented in pkg/metrics/prometheus/kipcm.go.
var newPrometheusKIPCMMetrics func() KIPCMMetrics

// RegisterKIPCMMetricsConstructor registers the Prometheus KIPCM metrics
// constructor. Called by pkg/metrics/prometheus/kipcm.go during package
// initialization.
func RegisterKIPCMMetricsConstructor(constructor func() KIPCMMetrics) {
	newPrometheusKIPCMMetrics = constructor
}

// ObserveDispatch records m.RecordDispatch if m is non-nil.
func ObserveDispatch(m KIPCMMetrics, msgType, outcome string, duration time.Duration) {
	if m != nil {
		m.RecordDispatch(msgType, outcome, duration)
	}
}
