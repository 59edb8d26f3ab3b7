package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIDs_Length(t *testing.T) {
	assert.Len(t, GenerateTraceID(), 32)
	assert.Len(t, GenerateSpanID(), 16)
}

func TestNewChild_InheritsTraceIDMergesAttrs(t *testing.T) {
	root := New(map[string]any{"a": 1, "b": 2})
	child := NewChild(root, map[string]any{"b": 3, "c": 4})

	assert.Equal(t, root.TraceID, child.TraceID)
	assert.Equal(t, root.SpanID, child.ParentSpanID)
	assert.NotEqual(t, root.SpanID, child.SpanID)
	assert.Equal(t, 1, child.Attributes["a"])
	assert.Equal(t, 3, child.Attributes["b"])
	assert.Equal(t, 4, child.Attributes["c"])
}

func TestPropagation_OnlyInsideWithBlock(t *testing.T) {
	root := context.Background()
	tc := New(nil)

	_, ok := Current(root)
	assert.False(t, ok)

	inside := With(root, tc)
	got, ok := Current(inside)
	require.True(t, ok)
	assert.Equal(t, tc.TraceID, got.TraceID)

	// A context derived from root (the "sibling") does not see tc.
	sibling := context.Background()
	_, ok = Current(sibling)
	assert.False(t, ok)
}

func TestPropagation_NestingRestoresOuter(t *testing.T) {
	outer := New(nil)
	inner := New(nil)

	ctx := With(context.Background(), outer)
	nested := With(ctx, inner)

	got, _ := Current(nested)
	assert.Equal(t, inner.TraceID, got.TraceID)

	// The original ctx (outer frame) is untouched by the nested With call.
	got, _ = Current(ctx)
	assert.Equal(t, outer.TraceID, got.TraceID)
}
