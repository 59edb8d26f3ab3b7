// Package validate enforces the boundary contracts that cross between
// the orchestrator core and its external collaborators: plan requests
// and artifacts, task envelopes dispatched to executors, results
// returned from them, and escalation signals raised on failure. Each
// contract is a JSON Schema document validated with xeipuuv/gojsonschema.
package validate

import "github.com/xeipuuv/gojsonschema"

var closedPriorities = []string{"low", "normal", "high", "critical"}
var closedTaskStatuses = []string{"pending", "running", "succeeded", "failed", "cancelled"}
var closedCategories = []string{"rate_limit", "auth", "timeout", "invalid_request", "server_error", "network", "unknown"}

func nonEmptyString() map[string]any {
	return map[string]any{"type": "string", "minLength": 1}
}

func nonNegativeInteger() map[string]any {
	return map[string]any{"type": "integer", "minimum": 0}
}

func closedEnum(values []string) map[string]any {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return map[string]any{"type": "string", "enum": enum}
}

// planRequestSchema describes the shape of a request to the planning
// engine: a non-empty goal, an optional session key, and an optional
// priority drawn from the closed priority set.
func planRequestSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"required":             []string{"requestId", "goal"},
		"properties": map[string]any{
			"requestId":  nonEmptyString(),
			"goal":       nonEmptyString(),
			"sessionKey": map[string]any{"type": "string"},
			"priority":   closedEnum(closedPriorities),
		},
	}
}

// planArtifactSchema describes the planner's output: an ordered,
// non-empty list of tasks, each with a non-empty id and description.
func planArtifactSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"required":             []string{"requestId", "tasks"},
		"properties": map[string]any{
			"requestId": nonEmptyString(),
			"tasks": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": true,
					"required":             []string{"id", "description"},
					"properties": map[string]any{
						"id":          nonEmptyString(),
						"description": nonEmptyString(),
						"priority":    closedEnum(closedPriorities),
					},
				},
			},
		},
	}
}

// taskEnvelopeSchema describes one unit of dispatchable work handed to an
// executor or subagent.
func taskEnvelopeSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"required":             []string{"taskId", "traceId", "description"},
		"properties": map[string]any{
			"taskId":      nonEmptyString(),
			"traceId":     nonEmptyString(),
			"description": nonEmptyString(),
			"priority":    closedEnum(closedPriorities),
			"retryCount":  nonNegativeInteger(),
			"status":      closedEnum(closedTaskStatuses),
		},
	}
}

// resultSchema describes the envelope returned from an executor: either
// success=true with an output payload, or success=false with errors.
func resultSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"required":             []string{"taskId", "success"},
		"properties": map[string]any{
			"taskId":  nonEmptyString(),
			"success": map[string]any{"type": "boolean"},
			"errors": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}
}

// escalationSignalSchema describes a structured escalation raised after
// exhausting retries for a call.
func escalationSignalSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"required":             []string{"category", "provider", "model", "latencyMs", "retryCount", "errorMessage", "escalatedAt"},
		"properties": map[string]any{
			"category":     closedEnum(closedCategories),
			"provider":     nonEmptyString(),
			"model":        nonEmptyString(),
			"latencyMs":    nonNegativeInteger(),
			"retryCount":   nonNegativeInteger(),
			"errorMessage": nonEmptyString(),
			"errorCode":    map[string]any{"type": "string"},
			"httpStatus":   map[string]any{"type": "integer"},
			"escalatedAt":  nonEmptyString(),
		},
	}
}

// Contract names the five boundary schemas.
type Contract string

const (
	ContractPlanRequest      Contract = "PlanRequest"
	ContractPlanArtifact     Contract = "PlanArtifact"
	ContractTaskEnvelope     Contract = "TaskEnvelope"
	ContractResult           Contract = "Result"
	ContractEscalationSignal Contract = "EscalationSignal"
)

var builders = map[Contract]func() map[string]any{
	ContractPlanRequest:      planRequestSchema,
	ContractPlanArtifact:     planArtifactSchema,
	ContractTaskEnvelope:     taskEnvelopeSchema,
	ContractResult:           resultSchema,
	ContractEscalationSignal: escalationSignalSchema,
}

func compile(c Contract) (*gojsonschema.Schema, error) {
	build, ok := builders[c]
	if !ok {
		return nil, unknownContractError(c)
	}
	loader := gojsonschema.NewGoLoader(build())
	return gojsonschema.NewSchema(loader)
}
