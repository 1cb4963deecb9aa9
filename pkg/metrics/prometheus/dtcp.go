package prometheus

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rina-go/rinad/pkg/metrics"
)

// dtcpMetrics is the Prometheus implementation of metrics.DTCPMetrics.
type dtcpMetrics struct {
	retransmissions *prometheus.CounterVec
	cwqDepth        *prometheus.GaugeVec
	rtxqDepth       *prometheus.GaugeVec
	windowLWE       *prometheus.GaugeVec
	windowRWE       *prometheus.GaugeVec
	backpressure    *prometheus.GaugeVec
	rendezvous      *prometheus.CounterVec
}

func init() {
	metrics.RegisterDTCPMetricsConstructor(newDTCPMetrics)
}

func newDTCPMetrics() metrics.DTCPMetrics {
	reg := metrics.GetRegistry()

	return &dtcpMetrics{
		retransmissions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rina_dtcp_retransmissions_total",
				Help: "Total PDUs re-sent from the retransmission queue",
			},
			[]string{"cep_id"},
		),
		cwqDepth: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rina_dtcp_cwq_depth",
				Help: "Current closed-window queue depth",
			},
			[]string{"cep_id"},
		),
		rtxqDepth: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rina_dtcp_rtxq_depth",
				Help: "Current retransmission queue depth",
			},
			[]string{"cep_id"},
		),
		windowLWE: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rina_dtcp_window_lwe",
				Help: "Left window edge of the most recent flow control window update",
			},
			[]string{"cep_id"},
		),
		windowRWE: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rina_dtcp_window_rwe",
				Help: "Right window edge of the most recent flow control window update",
			},
			[]string{"cep_id"},
		),
		backpressure: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rina_dtcp_write_enabled",
				Help: "1 if writes are currently enabled for the connection, 0 if disabled by CWQ backpressure",
			},
			[]string{"cep_id"},
		),
		rendezvous: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rina_dtcp_rendezvous_total",
				Help: "Total RENDEZVOUS PDUs sent while idle",
			},
			[]string{"cep_id"},
		),
	}
}

func (m *dtcpMetrics) RecordRetransmission(cepID int32, count int) {
	m.retransmissions.WithLabelValues(strconv.FormatInt(int64(cepID), 10)).Add(float64(count))
}

func (m *dtcpMetrics) RecordCWQDepth(cepID int32, depth int) {
	m.cwqDepth.WithLabelValues(strconv.FormatInt(int64(cepID), 10)).Set(float64(depth))
}

func (m *dtcpMetrics) RecordRTXQDepth(cepID int32, depth int) {
	m.rtxqDepth.WithLabelValues(strconv.FormatInt(int64(cepID), 10)).Set(float64(depth))
}

func (m *dtcpMetrics) RecordWindowUpdate(cepID int32, lwe, rwe uint64) {
	id := strconv.FormatInt(int64(cepID), 10)
	m.windowLWE.WithLabelValues(id).Set(float64(lwe))
	m.windowRWE.WithLabelValues(id).Set(float64(rwe))
}

func (m *dtcpMetrics) RecordBackpressure(cepID int32, enabled bool) {
	v := 0.0
	if enabled {
		v = 1.0
	}
	m.backpressure.WithLabelValues(strconv.FormatInt(int64(cepID), 10)).Set(v)
}

func (m *dtcpMetrics) RecordRendezvous(cepID int32) {
	m.rendezvous.WithLabelValues(strconv.FormatInt(int64(cepID), 10)).Inc()
}
