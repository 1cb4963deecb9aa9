package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a single data-plane
// or control-plane operation flowing through an IPCP.
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	IPCPName  string    // owning IPCP instance name
	DIFName   string    // DIF the IPCP belongs to
	PortID    int32     // KFA port-id, -1 if not applicable
	CepID     int32     // EFCP cep-id, -1 if not applicable
	EventID   uint32    // control-message correlation id, 0 if not applicable
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for an IPCP-scoped operation.
func NewLogContext(ipcpName string) *LogContext {
	return &LogContext{
		IPCPName:  ipcpName,
		PortID:    -1,
		CepID:     -1,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithFlow returns a copy with the port-id and cep-id set
func (lc *LogContext) WithFlow(portID, cepID int32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.PortID = portID
		clone.CepID = cepID
	}
	return clone
}

// WithDIF returns a copy with the DIF name set
func (lc *LogContext) WithDIF(dif string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.DIFName = dif
	}
	return clone
}

// WithEvent returns a copy with the control-message event id set
func (lc *LogContext) WithEvent(eventID uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.EventID = eventID
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
