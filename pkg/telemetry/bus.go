package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fenwick-run/agentctl/pkg/trace"
)

// Event is what flows through the telemetry bus. It is intentionally
// narrower than CallTelemetry: the bus is a lightweight emission path,
// while CallTelemetry is the durable record shape.
type Event struct {
	TraceID   string
	Provider  string
	Model     string
	Role      Role
	Status    Status
	LatencyMs int64
	Tokens    int64
	Error     string
}

// Listener receives bus events. A panicking or erroring listener must
// never prevent other listeners from observing the event.
type Listener func(Event)

// Bus is a process-wide telemetry listener registry. It is a deliberate
// singleton and exposes Reset for tests.
type Bus struct {
	mu        sync.Mutex
	listeners []Listener
}

var defaultBus = &Bus{}

// Default returns the process-wide Bus singleton.
func Default() *Bus { return defaultBus }

// Register adds a listener and returns an unregister function.
func (b *Bus) Register(l Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
	idx := len(b.listeners) - 1

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if idx < len(b.listeners) {
			b.listeners = append(b.listeners[:idx], b.listeners[idx+1:]...)
		}
	}
}

// Reset clears all listeners. Tests call this between cases.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = nil
}

// Emit enriches event.TraceID from the ambient trace context if unset,
// logs at debug on success / warn on failure, then fans the event out to
// every registered listener in registration order. A listener that panics
// is recovered and does not block the remaining listeners.
func (b *Bus) Emit(ctx context.Context, event Event) {
	if event.TraceID == "" {
		if tid, ok := trace.CurrentTraceID(ctx); ok {
			event.TraceID = tid
		}
	}

	logEvent := log.Debug()
	if event.Status == StatusFailure || event.Status == StatusTimeout {
		logEvent = log.Warn()
	}
	logEvent.
		Str("traceId", event.TraceID).
		Str("provider", event.Provider).
		Str("model", event.Model).
		Str("status", string(event.Status)).
		Int64("latencyMs", event.LatencyMs).
		Msg("telemetry event")

	b.mu.Lock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, l := range listeners {
		func(l Listener) {
			defer func() {
				if r := recover(); r != nil {
					log.Warn().Interface("panic", r).Msg("telemetry listener panicked")
				}
			}()
			l(event)
		}(l)
	}
}

// WithTelemetry times fn, emitting a success event with latency on normal
// return, or a failure event with the error message before rethrowing.
func WithTelemetry[T any](ctx context.Context, bus *Bus, meta Event, fn func(context.Context) (T, error)) (T, error) {
	started := time.Now()
	result, err := fn(ctx)
	latency := time.Since(started).Milliseconds()

	event := meta
	event.LatencyMs = latency
	if err != nil {
		event.Status = StatusFailure
		event.Error = err.Error()
		bus.Emit(ctx, event)
		return result, err
	}

	event.Status = StatusSuccess
	bus.Emit(ctx, event)
	return result, nil
}
