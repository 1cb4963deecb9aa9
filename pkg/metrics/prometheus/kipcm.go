package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rina-go/rinad/pkg/metrics"
)

// kipcmMetrics is the Prometheus implementation of metrics.KIPCMMetrics.
type kipcmMetrics struct {
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	instanceCount    prometheus.Gauge
	factories        *prometheus.CounterVec
}

func init() {
	metrics.RegisterKIPCMMetricsConstructor(newKIPCMMetrics)
}

func newKIPCMMetrics() metrics.KIPCMMetrics {
	reg := metrics.GetRegistry()

	return &kipcmMetrics{
		dispatchTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rina_kipcm_dispatch_total",
				Help: "Total control messages dispatched, labeled by message type and outcome",
			},
			[]string{"msg_type", "outcome"},
		),
		dispatchDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rina_kipcm_dispatch_duration_milliseconds",
				Help:    "Duration of control message dispatch handling",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
			},
			[]string{"msg_type"},
		),
		instanceCount: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "rina_kipcm_ipcp_instances",
				Help: "Current number of live IPCP instances in the instance map",
			},
		),
		factories: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rina_kipcm_factories_registered_total",
				Help: "Total IPCP factories registered, labeled by IPCP type",
			},
			[]string{"ipcp_type"},
		),
	}
}

func (m *kipcmMetrics) RecordDispatch(msgType string, outcome string, duration time.Duration) {
	m.dispatchTotal.WithLabelValues(msgType, outcome).Inc()
	m.dispatchDuration.WithLabelValues(msgType).Observe(float64(duration.Microseconds()) / 1000.0)
}

func (m *kipcmMetrics) RecordInstanceCount(count int) {
	m.instanceCount.Set(float64(count))
}

func (m *kipcmMetrics) RecordFactoryRegistered(ipcpType string) {
	m.factories.WithLabelValues(ipcpType).Inc()
}
