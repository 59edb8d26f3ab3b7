package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/fenwick-run/agentctl/pkg/escalation"
	"github.com/fenwick-run/agentctl/pkg/taxonomy"
	"github.com/fenwick-run/agentctl/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteWithRetry_TransientThenSuccess(t *testing.T) {
	calls := 0
	var retryCalls, escalationCalls int

	run := func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &taxonomy.FailoverError{Reason: taxonomy.FailoverTimeout}
		}
		return "ok", nil
	}

	result, err := ExecuteWithRetry(context.Background(), run, Options{
		Provider: "anthropic",
		Model:    "claude",
		OnRetry: func(ctx context.Context, d Decision, attempt int) error {
			retryCalls++
			return nil
		},
		OnEscalation: func(ctx context.Context, info escalation.Info) error {
			escalationCalls++
			return nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, retryCalls)
	assert.Equal(t, 0, escalationCalls)
}

func TestExecuteWithRetry_AlwaysTransient_ExactlyTwoAttempts(t *testing.T) {
	calls := 0
	run := func(ctx context.Context) (string, error) {
		calls++
		return "", &taxonomy.FailoverError{Reason: taxonomy.FailoverRateLimit}
	}

	escalations := 0
	_, err := ExecuteWithRetry(context.Background(), run, Options{
		OnEscalation: func(ctx context.Context, info escalation.Info) error {
			escalations++
			return nil
		},
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, escalations)
}

func TestExecuteWithRetry_PermanentFails_ExactlyOneAttempt(t *testing.T) {
	calls := 0
	run := func(ctx context.Context) (string, error) {
		calls++
		return "", &taxonomy.FailoverError{Reason: taxonomy.FailoverAuth}
	}

	_, err := ExecuteWithRetry(context.Background(), run, Options{})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecuteWithRetry_OriginalErrorSurfaced(t *testing.T) {
	sentinel := errors.New("boom: 500 internal server error")
	run := func(ctx context.Context) (string, error) {
		return "", sentinel
	}

	_, err := ExecuteWithRetry(context.Background(), run, Options{})
	require.ErrorIs(t, err, sentinel)
}

func TestExecuteWithRetry_OnRetryErrorDoesNotAbortLoop(t *testing.T) {
	calls := 0
	run := func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &taxonomy.FailoverError{Reason: taxonomy.FailoverTimeout}
		}
		return "ok", nil
	}

	result, err := ExecuteWithRetry(context.Background(), run, Options{
		OnRetry: func(ctx context.Context, d Decision, attempt int) error {
			return errors.New("hook sink unavailable")
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, calls)
}

func TestExecuteWithRetry_RecordsRetryAndEscalationMetrics(t *testing.T) {
	calls := 0
	run := func(ctx context.Context) (string, error) {
		calls++
		return "", &taxonomy.FailoverError{Reason: taxonomy.FailoverRateLimit}
	}

	m := telemetry.NewMetrics()
	_, err := ExecuteWithRetry(context.Background(), run, Options{
		Provider: "anthropic",
		Model:    "claude",
		Metrics:  m,
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestShouldRetry_ExhaustedAfterOne(t *testing.T) {
	d := ShouldRetry(errors.New("rate limit"), 1)
	assert.False(t, d.ShouldRetry)
	assert.Equal(t, "Max retries exhausted", d.Reason)
}

func TestShouldRetry_UnknownNotRetried(t *testing.T) {
	d := ShouldRetry(errors.New("something unexpected"), 0)
	assert.False(t, d.ShouldRetry)
	assert.Equal(t, taxonomy.Unknown, d.Category)
}
