package logger

import (
	"log/slog"
)

// Standard field keys for structured logging across the data-plane and
// control-plane packages. Use these keys consistently so log aggregation
// and querying stay uniform across DTP, DTCP, EFCP, KFA and KIPCM.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// IPCP / DIF identity
	// ========================================================================
	KeyIPCPName = "ipcp_name" // owning IPCP instance name
	KeyIPCPID   = "ipcp_id"   // owning IPCP instance id
	KeyDIFName  = "dif_name"  // DIF the IPCP belongs to

	// ========================================================================
	// Flow / connection identity
	// ========================================================================
	KeyPortID  = "port_id"  // KFA port-id
	KeyCepID   = "cep_id"   // EFCP connection-endpoint id
	KeyQosID   = "qos_id"   // QoS class id
	KeyAddress = "address"  // source/destination address
	KeyEventID = "event_id" // control-message correlation id

	// ========================================================================
	// PDU / DTP-DTCP
	// ========================================================================
	KeyPDUType  = "pdu_type"  // DT, MGMT, FC, ACK, ACK+FC, CACK, RENDEZVOUS
	KeySeqNum   = "seq_num"   // data sequence number
	KeyCtrlSeq  = "ctrl_seq"  // control sequence number
	KeyLWE      = "lwe"       // left window edge
	KeyRWE      = "rwe"       // right window edge
	KeyCredit   = "credit"    // flow control credit
	KeyRTT      = "rtt_ms"    // round trip time sample, ms
	KeyRetries  = "retries"   // retransmission attempt count
	KeyQueueLen = "queue_len" // CWQ/RTXQ length

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeyErrorCode  = "error_code"  // numeric/status error code
	KeyOperation  = "operation"   // sub-operation type for complex operations
	KeyBytes      = "bytes"       // byte count moved
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// IPCPName returns a slog.Attr for the owning IPCP instance name
func IPCPName(name string) slog.Attr { return slog.String(KeyIPCPName, name) }

// DIFName returns a slog.Attr for the DIF name
func DIFName(name string) slog.Attr { return slog.String(KeyDIFName, name) }

// PortID returns a slog.Attr for a KFA port-id
func PortID(id int32) slog.Attr { return slog.Int(KeyPortID, int(id)) }

// CepID returns a slog.Attr for an EFCP cep-id
func CepID(id int32) slog.Attr { return slog.Int(KeyCepID, int(id)) }

// QosID returns a slog.Attr for a qos-id
func QosID(id uint32) slog.Attr { return slog.Uint64(KeyQosID, uint64(id)) }

// EventID returns a slog.Attr for a control-message event id
func EventID(id uint32) slog.Attr { return slog.Uint64(KeyEventID, uint64(id)) }

// PDUType returns a slog.Attr for the PDU type name
func PDUType(t string) slog.Attr { return slog.String(KeyPDUType, t) }

// SeqNum returns a slog.Attr for a data sequence number
func SeqNum(n uint64) slog.Attr { return slog.Uint64(KeySeqNum, n) }

// CtrlSeq returns a slog.Attr for a control sequence number
func CtrlSeq(n uint64) slog.Attr { return slog.Uint64(KeyCtrlSeq, n) }

// LWE returns a slog.Attr for a left window edge
func LWE(n uint64) slog.Attr { return slog.Uint64(KeyLWE, n) }

// RWE returns a slog.Attr for a right window edge
func RWE(n uint64) slog.Attr { return slog.Uint64(KeyRWE, n) }

// QueueLen returns a slog.Attr for a queue depth
func QueueLen(n int) slog.Attr { return slog.Int(KeyQueueLen, n) }

// Retries returns a slog.Attr for a retry count
func Retries(n int) slog.Attr { return slog.Int(KeyRetries, n) }

// Bytes returns a slog.Attr for a byte count
func Bytes(n int) slog.Attr { return slog.Int(KeyBytes, n) }

// DurationMs returns a slog.Attr for an operation duration in milliseconds
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr wrapping an error's message, or a no-op attr if nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric error/status code
func ErrorCode(code int) slog.Attr { return slog.Int(KeyErrorCode, code) }

// Operation returns a slog.Attr for a sub-operation name
func Operation(name string) slog.Attr { return slog.String(KeyOperation, name) }
