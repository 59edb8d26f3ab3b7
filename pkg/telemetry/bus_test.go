package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_EmitFansOutToAllListeners(t *testing.T) {
	bus := &Bus{}
	var mu sync.Mutex
	var seen []Event

	unregister1 := bus.Register(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e)
	})
	defer unregister1()

	unregister2 := bus.Register(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e)
	})
	defer unregister2()

	bus.Emit(context.Background(), Event{Provider: "openai", Model: "gpt-5", Status: StatusSuccess})

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 2)
}

func TestBus_PanickingListenerDoesNotBlockOthers(t *testing.T) {
	bus := &Bus{}
	called := false

	bus.Register(func(Event) {
		panic("boom")
	})
	bus.Register(func(Event) {
		called = true
	})

	assert.NotPanics(t, func() {
		bus.Emit(context.Background(), Event{})
	})
	assert.True(t, called)
}

func TestBus_Reset(t *testing.T) {
	bus := &Bus{}
	calls := 0
	bus.Register(func(Event) { calls++ })

	bus.Reset()
	bus.Emit(context.Background(), Event{})

	assert.Equal(t, 0, calls)
}

func TestWithTelemetry_SuccessEmitsSuccessStatus(t *testing.T) {
	bus := &Bus{}
	var got Event
	bus.Register(func(e Event) { got = e })

	result, err := WithTelemetry(context.Background(), bus, Event{Provider: "openai", Model: "gpt-5"}, func(context.Context) (string, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, StatusSuccess, got.Status)
}

func TestWithTelemetry_FailureEmitsFailureStatusAndRethrows(t *testing.T) {
	bus := &Bus{}
	var got Event
	bus.Register(func(e Event) { got = e })

	boom := errors.New("boom")
	_, err := WithTelemetry(context.Background(), bus, Event{Provider: "openai", Model: "gpt-5"}, func(context.Context) (string, error) {
		return "", boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, StatusFailure, got.Status)
	assert.Equal(t, "boom", got.Error)
}
