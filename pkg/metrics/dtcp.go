package metrics

// DTCPMetrics provides observability for Data Transfer Control Protocol
// flow and retransmission control. Pass nil to disable collection with
// zero overhead.
type DTCPMetrics interface {
	// RecordRetransmission records one batch of PDUs re-sent from the
	// retransmission queue (a NACK or a tr-timer expiry); count is the
	// number of PDUs in the batch.
	RecordRetransmission(cepID int32, count int)

	// RecordCWQDepth records the current closed-window queue depth.
	RecordCWQDepth(cepID int32, depth int)

	// RecordRTXQDepth records the current retransmission queue depth.
	RecordRTXQDepth(cepID int32, depth int)

	// RecordWindowUpdate records a flow-control window advertisement.
	RecordWindowUpdate(cepID int32, lwe, rwe uint64)

	// RecordBackpressure records the write-enabled signal for the
	// connection; enabled is false each time a PDU is pushed onto the CWQ,
	// true when a window update drains the CWQ to empty.
	RecordBackpressure(cepID int32, enabled bool)

	// RecordRendezvous records a RENDEZVOUS PDU sent while idle.
	RecordRendezvous(cepID int32)
}

// NewDTCPMetrics creates a new Prometheus-backed DTCPMetrics instance.
// Returns nil if metrics are not enabled.
func NewDTCPMetrics() DTCPMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusDTCPMetrics()
}

// newPrometheusDTCPMetrics is implemented in pkg/metrics/prometheus/dtcp.go.
var newPrometheusDTCPMetrics func() DTCPMetrics

// RegisterDTCPMetricsConstructor registers the Prometheus DTCP metrics
// constructor. Called by pkg/metrics/prometheus/dtcp.go during package
// initialization.
func RegisterDTCPMetricsConstructor(constructor func() DTCPMetrics) {
	newPrometheusDTCPMetrics = constructor
}

// ObserveRetransmission records m.RecordRetransmission if m is non-nil.
func ObserveRetransmission(m DTCPMetrics, cepID int32, count int) {
	if m != nil {
		m.RecordRetransmission(cepID, count)
	}
}

// ObserveBackpressure records m.RecordBackpressure if m is non-nil.
func ObserveBackpressure(m DTCPMetrics, cepID int32, enabled bool) {
	if m != nil {
		m.RecordBackpressure(cepID, enabled)
	}
}
