package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOrThrow_PlanRequestValid(t *testing.T) {
	err := ValidateOrThrow(ContractPlanRequest, map[string]any{
		"requestId": "req-1",
		"goal":      "summarize the repo",
		"priority":  "high",
	})
	assert.NoError(t, err)
}

func TestValidateOrThrow_PlanRequestMissingGoal(t *testing.T) {
	err := ValidateOrThrow(ContractPlanRequest, map[string]any{
		"requestId": "req-1",
	})
	require.Error(t, err)

	var cve *ContractValidationError
	require.ErrorAs(t, err, &cve)
	assert.NotEmpty(t, cve.Errors)
}

func TestValidateOrThrow_PlanRequestRejectsBadPriority(t *testing.T) {
	err := ValidateOrThrow(ContractPlanRequest, map[string]any{
		"requestId": "req-1",
		"goal":      "do the thing",
		"priority":  "urgent-ish",
	})
	assert.Error(t, err)
}

func TestValidateOrThrow_TaskEnvelopeValid(t *testing.T) {
	err := ValidateOrThrow(ContractTaskEnvelope, map[string]any{
		"taskId":      "task-1",
		"traceId":     "trace-1",
		"description": "fetch the file",
		"retryCount":  0,
		"status":      "pending",
	})
	assert.NoError(t, err)
}

func TestValidateOrThrow_TaskEnvelopeRejectsNegativeRetryCount(t *testing.T) {
	err := ValidateOrThrow(ContractTaskEnvelope, map[string]any{
		"taskId":      "task-1",
		"traceId":     "trace-1",
		"description": "fetch the file",
		"retryCount":  -1,
	})
	assert.Error(t, err)
}

func TestValidateOrThrow_EscalationSignalValid(t *testing.T) {
	err := ValidateOrThrow(ContractEscalationSignal, map[string]any{
		"category":     "rate_limit",
		"provider":     "openai",
		"model":        "gpt-5",
		"latencyMs":    120,
		"retryCount":   1,
		"errorMessage": "too many requests",
		"escalatedAt":  "2026-08-06T00:00:00Z",
	})
	assert.NoError(t, err)
}

func TestValidateOrThrow_EscalationSignalRejectsUnknownCategory(t *testing.T) {
	err := ValidateOrThrow(ContractEscalationSignal, map[string]any{
		"category":     "not_a_category",
		"provider":     "openai",
		"model":        "gpt-5",
		"latencyMs":    120,
		"retryCount":   1,
		"errorMessage": "too many requests",
		"escalatedAt":  "2026-08-06T00:00:00Z",
	})
	assert.Error(t, err)
}

func TestValidateOrLog_ReturnsFailedResultWithoutError(t *testing.T) {
	result := ValidateOrLog(ContractResult, map[string]any{
		"success": true,
	})
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)
}

func TestValidateOrLog_Success(t *testing.T) {
	result := ValidateOrLog(ContractResult, map[string]any{
		"taskId":  "task-1",
		"success": true,
	})
	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
}

func TestValidateOrThrow_UnknownContract(t *testing.T) {
	err := ValidateOrThrow(Contract("NotAContract"), map[string]any{})
	assert.Error(t, err)
}

func TestValidateOrThrow_PlanArtifactRequiresNonEmptyTasks(t *testing.T) {
	err := ValidateOrThrow(ContractPlanArtifact, map[string]any{
		"requestId": "req-1",
		"tasks":     []any{},
	})
	assert.Error(t, err)
}
