package prometheus

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rina-go/rinad/pkg/metrics"
)

// kfaMetrics is the Prometheus implementation of metrics.KFAMetrics.
type kfaMetrics struct {
	flowState        *prometheus.CounterVec
	portIDsAllocated prometheus.Counter
	portIDsExhausted prometheus.Counter
	sduQueueDepth    *prometheus.GaugeVec
	processFinalised prometheus.Counter
}

func init() {
	metrics.RegisterKFAMetricsConstructor(newKFAMetrics)
}

func newKFAMetrics() metrics.KFAMetrics {
	reg := metrics.GetRegistry()

	return &kfaMetrics{
		flowState: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rina_kfa_flow_state_transitions_total",
				Help: "Total flow state transitions, labeled by target state",
			},
			[]string{"state"},
		),
		portIDsAllocated: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "rina_kfa_port_ids_allocated_total",
				Help: "Total successful port-id allocations",
			},
		),
		portIDsExhausted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "rina_kfa_port_ids_exhausted_total",
				Help: "Total failed port-id allocations due to id-space exhaustion",
			},
		),
		sduQueueDepth: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rina_kfa_sdu_queue_depth",
				Help: "Current depth of a flow's pending SDU queue",
			},
			[]string{"port_id"},
		),
		processFinalised: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "rina_kfa_process_finalised_ports_total",
				Help: "Total port-ids released by process-finalised cleanup sweeps",
			},
		),
	}
}

func (m *kfaMetrics) RecordFlowState(state string) {
	m.flowState.WithLabelValues(state).Inc()
}

func (m *kfaMetrics) RecordPortIDAllocated() {
	m.portIDsAllocated.Inc()
}

func (m *kfaMetrics) RecordPortIDExhausted() {
	m.portIDsExhausted.Inc()
}

func (m *kfaMetrics) RecordSDUQueueDepth(portID int32, depth int) {
	m.sduQueueDepth.WithLabelValues(strconv.FormatInt(int64(portID), 10)).Set(float64(depth))
}

func (m *kfaMetrics) RecordProcessFinalised(portsReleased int) {
	m.processFinalised.Add(float64(portsReleased))
}
