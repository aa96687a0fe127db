package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
)

// TraceparentHeader is the W3C Trace Context header attached to outbound requests.
const TraceparentHeader = "traceparent"

// TraceContext identifies one audit run across its outbound API calls and log lines.
// See: https://www.w3.org/TR/trace-context/
type TraceContext struct {
	// TraceID is the 32-character hex-encoded trace identifier
	TraceID string
	// SpanID is the 16-character hex-encoded span identifier
	SpanID string
	// TraceFlags is the trace flags byte (0x01 = sampled)
	TraceFlags byte
}

type contextKey struct{}

var traceContextKey = contextKey{}

// New generates a fresh trace context with random trace and span IDs.
func New() *TraceContext {
	return &TraceContext{
		TraceID:    randomHex(16),
		SpanID:     randomHex(8),
		TraceFlags: 0x01,
	}
}

// Traceparent renders the context as a traceparent header value.
// Format: {version}-{trace-id}-{parent-id}-{trace-flags}
func (tc *TraceContext) Traceparent() string {
	return fmt.Sprintf("00-%s-%s-%02x", tc.TraceID, tc.SpanID, tc.TraceFlags)
}

// InjectHTTPHeaders sets the traceparent header on an outbound request.
func (tc *TraceContext) InjectHTTPHeaders(headers http.Header) {
	headers.Set(TraceparentHeader, tc.Traceparent())
}

// ContextWith attaches the trace context to ctx.
func ContextWith(ctx context.Context, tc *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey, tc)
}

// FromContext returns the trace context attached to ctx, or nil.
func FromContext(ctx context.Context) *TraceContext {
	tc, _ := ctx.Value(traceContextKey).(*TraceContext)
	return tc
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(b)
}
