package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCallID_ProducesDistinctUUIDs(t *testing.T) {
	a := NewCallID()
	b := NewCallID()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestNewRequestID_ProducesFixedLengthDistinctIDs(t *testing.T) {
	a, err := NewRequestID()
	require.NoError(t, err)
	b, err := NewRequestID()
	require.NoError(t, err)

	assert.Len(t, a, requestIDLength)
	assert.NotEqual(t, a, b)
}
