// Package trace implements trace/span id generation and propagation
// across asynchronous call chains via context.Context value-chaining, plus
// a locally-scoped OpenTelemetry tracer provider for structured-log
// correlation (no exporter is ever registered — this package never builds
// a tracing backend).
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Context is an immutable trace/span descriptor threaded through a call
// chain. Child spans inherit TraceID and merge Attributes, with child keys
// winning over parent keys.
type Context struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	StartedAt    int64 // epoch ms
	Attributes   map[string]any
}

// GenerateTraceID returns 16 random bytes as 32 lowercase hex characters.
func GenerateTraceID() string { return randomHex(16) }

// GenerateSpanID returns 8 random bytes as 16 lowercase hex characters.
func GenerateSpanID() string { return randomHex(8) }

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing is a fatal environment problem; callers of
		// trace id generation cannot meaningfully recover from it, so we
		// fall back to an all-zero id rather than panicking mid-request.
		return hex.EncodeToString(make([]byte, n))
	}
	return hex.EncodeToString(b)
}

// New creates a root trace context with a fresh trace and span id.
func New(attrs map[string]any) Context {
	return Context{
		TraceID:    GenerateTraceID(),
		SpanID:     GenerateSpanID(),
		StartedAt:  time.Now().UnixMilli(),
		Attributes: attrs,
	}
}

// NewChild creates a child span: same TraceID, new SpanID, ParentSpanID set
// to the parent's SpanID, and attributes merged with the child's keys
// winning.
func NewChild(parent Context, attrs map[string]any) Context {
	merged := make(map[string]any, len(parent.Attributes)+len(attrs))
	for k, v := range parent.Attributes {
		merged[k] = v
	}
	for k, v := range attrs {
		merged[k] = v
	}
	return Context{
		TraceID:      parent.TraceID,
		SpanID:       GenerateSpanID(),
		ParentSpanID: parent.SpanID,
		StartedAt:    time.Now().UnixMilli(),
		Attributes:   merged,
	}
}

type ctxKey struct{}

// With installs tc as the current trace context for the duration of the
// returned context.Context's lineage. Because Go has no implicit
// goroutine-local storage, callers that spawn goroutines must pass the
// returned context explicitly to propagate it; a sibling goroutine that
// does not receive it observes no trace context, matching the source's
// "does not cross a thread-pool boundary" rule.
func With(parent context.Context, tc Context) context.Context {
	return context.WithValue(parent, ctxKey{}, tc)
}

// Current returns the trace context installed by the nearest enclosing
// With call, if any.
func Current(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// CurrentTraceID is a convenience accessor over Current.
func CurrentTraceID(ctx context.Context) (string, bool) {
	tc, ok := Current(ctx)
	if !ok {
		return "", false
	}
	return tc.TraceID, true
}
