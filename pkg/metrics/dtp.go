package metrics

import "time"

// DTPMetrics provides observability for Data Transfer Protocol state
// machines. Implementations track sequence number progression, PDU
// throughput and delimiter fragmentation. Pass nil to disable collection
// with zero overhead.
type DTPMetrics interface {
	// RecordPDUSent records an outbound PDU of the given type and size for
	// one DTP instance, identified by its owning cep-id.
	RecordPDUSent(cepID int32, pduType string, bytes int)

	// RecordPDUReceived records an inbound PDU of the given type and size.
	RecordPDUReceived(cepID int32, pduType string, bytes int)

	// RecordSeqNum records the current highest sequence number sent, for
	// monotonicity dashboards.
	RecordSeqNum(cepID int32, seqNum uint64)

	// RecordGap records a detected out-of-order or missing sequence number
	// gap on the receiving side.
	RecordGap(cepID int32, gapSize uint64)

	// RecordFragmentation records a delimiter fragmentation/reassembly
	// event: "fragment" when an SDU is split, "reassemble" when fragments
	// are joined back into an SDU.
	RecordFragmentation(event string, fragments int)

	// RecordRTT records a round trip time sample used by the retransmission
	// timer estimator.
	RecordRTT(cepID int32, rtt time.Duration)
}

// NewDTPMetrics creates a new Prometheus-backed DTPMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called). When nil
// is returned, callers should pass nil to DTP instances, which results in
// zero overhead.
func NewDTPMetrics() DTPMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusDTPMetrics()
}

// newPrometheusDTPMetrics is implemented in pkg/metrics/prometheus/dtp.go.
// This indirection avoids an import cycle between metrics and prometheus.
var newPrometheusDTPMetrics func() DTPMetrics

// RegisterDTPMetricsConstructor registers the Prometheus DTP metrics
// constructor. Called by pkg/metrics/prometheus/dtp.go during package
// initialization.
func RegisterDTPMetricsConstructor(constructor func() DTPMetrics) {
	newPrometheusDTPMetrics = constructor
}

// ObservePDUSent records m.RecordPDUSent if m is non-nil.
func ObservePDUSent(m DTPMetrics, cepID int32, pduType string, bytes int) {
	if m != nil {
		m.RecordPDUSent(cepID, pduType, bytes)
	}
}

// ObservePDUReceived records m.RecordPDUReceived if m is non-nil.
func ObservePDUReceived(m DTPMetrics, cepID int32, pduType string, bytes int) {
	if m != nil {
		m.RecordPDUReceived(cepID, pduType, bytes)
	}
}
