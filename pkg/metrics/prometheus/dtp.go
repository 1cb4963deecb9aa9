package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rina-go/rinad/pkg/metrics"
)

// dtpMetrics is the Prometheus implementation of metrics.DTPMetrics.
type dtpMetrics struct {
	pdusSent      *prometheus.CounterVec
	pdusReceived  *prometheus.CounterVec
	bytesSent     *prometheus.CounterVec
	bytesReceived *prometheus.CounterVec
	seqNum        *prometheus.GaugeVec
	gaps          *prometheus.CounterVec
	fragmentation *prometheus.CounterVec
	rtt           *prometheus.HistogramVec
}

func init() {
	metrics.RegisterDTPMetricsConstructor(newDTPMetrics)
}

// newDTPMetrics creates a new Prometheus-backed metrics.DTPMetrics instance.
func newDTPMetrics() metrics.DTPMetrics {
	reg := metrics.GetRegistry()

	return &dtpMetrics{
		pdusSent: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rina_dtp_pdus_sent_total",
				Help: "Total number of PDUs sent by DTP, labeled by PDU type",
			},
			[]string{"cep_id", "pdu_type"},
		),
		pdusReceived: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rina_dtp_pdus_received_total",
				Help: "Total number of PDUs received by DTP, labeled by PDU type",
			},
			[]string{"cep_id", "pdu_type"},
		),
		bytesSent: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rina_dtp_bytes_sent_total",
				Help: "Total bytes sent by DTP",
			},
			[]string{"cep_id"},
		),
		bytesReceived: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rina_dtp_bytes_received_total",
				Help: "Total bytes received by DTP",
			},
			[]string{"cep_id"},
		),
		seqNum: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rina_dtp_seq_num",
				Help: "Highest data sequence number sent on a connection",
			},
			[]string{"cep_id"},
		),
		gaps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rina_dtp_seq_gaps_total",
				Help: "Total number of out-of-order or missing sequence number gaps detected",
			},
			[]string{"cep_id"},
		),
		fragmentation: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rina_dtp_delimiter_events_total",
				Help: "Total delimiter fragmentation/reassembly events",
			},
			[]string{"event"},
		),
		rtt: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rina_dtp_rtt_milliseconds",
				Help:    "Round trip time samples feeding the retransmission timer estimator",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 50, 100, 250, 500, 1000},
			},
			[]string{"cep_id"},
		),
	}
}

func (m *dtpMetrics) RecordPDUSent(cepID int32, pduType string, bytes int) {
	id := strconv.FormatInt(int64(cepID), 10)
	m.pdusSent.WithLabelValues(id, pduType).Inc()
	m.bytesSent.WithLabelValues(id).Add(float64(bytes))
}

func (m *dtpMetrics) RecordPDUReceived(cepID int32, pduType string, bytes int) {
	id := strconv.FormatInt(int64(cepID), 10)
	m.pdusReceived.WithLabelValues(id, pduType).Inc()
	m.bytesReceived.WithLabelValues(id).Add(float64(bytes))
}

func (m *dtpMetrics) RecordSeqNum(cepID int32, seqNum uint64) {
	m.seqNum.WithLabelValues(strconv.FormatInt(int64(cepID), 10)).Set(float64(seqNum))
}

func (m *dtpMetrics) RecordGap(cepID int32, gapSize uint64) {
	m.gaps.WithLabelValues(strconv.FormatInt(int64(cepID), 10)).Add(float64(gapSize))
}

func (m *dtpMetrics) RecordFragmentation(event string, fragments int) {
	m.fragmentation.WithLabelValues(event).Add(float64(fragments))
}

func (m *dtpMetrics) RecordRTT(cepID int32, rtt time.Duration) {
	m.rtt.WithLabelValues(strconv.FormatInt(int64(cepID), 10)).Observe(float64(rtt.Microseconds()) / 1000.0)
}
