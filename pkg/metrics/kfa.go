package metrics

// KFAMetrics provides observability for the Kernel Flow Allocator: port-id
// lifecycle, allocator exhaustion and per-flow queue depth. Pass nil to
// disable collection with zero overhead.
type KFAMetrics interface {
	// RecordFlowState records a port-id transitioning into the given state
	// ("null", "pending", "allocated", "disabled", "deallocated").
	RecordFlowState(state string)

	// RecordPortIDAllocated records a successful port-id allocation.
	RecordPortIDAllocated()

	// RecordPortIDExhausted records a failed allocation because the CIDM/PIDM
	// id-space was saturated.
	RecordPortIDExhausted()

	// RecordSDUQueueDepth records the current depth of a flow's pending SDU
	// queue, as observed after each du_post.
	RecordSDUQueueDepth(portID int32, depth int)

	// RecordProcessFinalised records a cleanup sweep triggered by an owning
	// process terminating, with the number of port-ids it held.
	RecordProcessFinalised(portsReleased int)
}

// NewKFAMetrics creates a new Prometheus-backed KFAMetrics instance.
// Returns nil if metrics are not enabled.
func NewKFAMetrics() KFAMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusKFAMetrics()
}

// newPrometheusKFAMetrics is implemented in pkg/metrics/prometheus/kfa.go.
var newPrometheusKFAMetrics func() KFAMetrics

// RegisterKFAMetricsConstructor registers the Prometheus KFA metrics
// constructor. Called by pkg/metrics/prometheus/kfa.go during package
// initialization.
func RegisterKFAMetricsConstructor(constructor func() KFAMetrics) {
	newPrometheusKFAMetrics = constructor
}

// ObserveFlowState records m.RecordFlowState if m is non-nil.
func ObserveFlowState(m KFAMetrics, state string) {
	if m != nil {
		m.RecordFlowState(state)
	}
}
