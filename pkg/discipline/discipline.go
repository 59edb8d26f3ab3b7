// Package discipline composes the budgeter, history pruner, and
// tool-result truncator into one per-turn decision and reports what it
// did.
package discipline

import (
	"fmt"

	"github.com/fenwick-run/agentctl/pkg/budget"
	"github.com/fenwick-run/agentctl/pkg/pruner"
	"github.com/fenwick-run/agentctl/pkg/tokens"
	"github.com/fenwick-run/agentctl/pkg/truncate"
)

// Request is the input to EnforceContextDiscipline.
type Request struct {
	ContextWindow  int
	SystemPrompt   string
	HotState       string // already-serialized hot state document, if any
	Messages       []tokens.Message
	ToolResults    []truncate.Item
	BudgetRatios   map[budget.Category]float64
	MinRecentTurns int
}

// Outcome is the result of one discipline pass.
type Outcome struct {
	SystemPrompt string
	Messages     []tokens.Message
	ToolResults  []truncate.Result
	Budget       budget.Allocation
	Actions      []string
}

// EnforceContextDiscipline composes budgeting, pruning, and truncation
// into one decision over a full request shape, returning the resulting
// allocation, pruned history, truncated tool results, and a log of the
// actions taken.
func EnforceContextDiscipline(req Request) (Outcome, error) {
	alloc, err := budget.AllocateBudget(req.ContextWindow, req.BudgetRatios)
	if err != nil {
		return Outcome{}, err
	}

	var actions []string

	sysTokens := charsToTokens(len(req.SystemPrompt))
	hotTokens := charsToTokens(len(req.HotState))
	if sysTokens+hotTokens > alloc[budget.SystemPrompt]+alloc[budget.HotState] {
		actions = append(actions, fmt.Sprintf(
			"system prompt + hot state (%d tokens) exceeds allocated budget (%d tokens); no truncation performed — collaborator must shorten it",
			sysTokens+hotTokens, alloc[budget.SystemPrompt]+alloc[budget.HotState]))
	}

	toolCharBudget := alloc[budget.ToolResults] * 4
	truncatedResults := truncate.TruncateToolResults(req.ToolResults, toolCharBudget)
	alteredCount := 0
	for _, r := range truncatedResults {
		if r.WasTruncated {
			alteredCount++
		}
	}
	if alteredCount > 0 {
		actions = append(actions, fmt.Sprintf("truncated %d of %d tool results to fit budget", alteredCount, len(truncatedResults)))
	}

	pruneResult := pruner.PruneHistory(req.Messages, alloc[budget.History], pruner.Options{MinRecentTurns: req.MinRecentTurns})
	if pruneResult.PrunedCount > 0 {
		actions = append(actions, fmt.Sprintf("pruned %d history messages (%d -> %d tokens)", pruneResult.PrunedCount, pruneResult.TokensBefore, pruneResult.TokensAfter))
	}

	actual := map[budget.Category]int{
		budget.SystemPrompt: sysTokens,
		budget.HotState:      hotTokens,
		budget.History:       pruneResult.TokensAfter,
		budget.ToolResults:   charsToTokens(sumLen(truncatedResults)),
	}
	for _, v := range budget.CheckBudget(alloc, actual) {
		actions = append(actions, fmt.Sprintf("warning: %s over budget by %d tokens", v.Category, v.OverBy))
	}

	if len(actions) == 0 {
		actions = append(actions, "All context within budget — no adjustments needed")
	}

	return Outcome{
		SystemPrompt: req.SystemPrompt,
		Messages:     pruneResult.Messages,
		ToolResults:  truncatedResults,
		Budget:       alloc,
		Actions:      actions,
	}, nil
}

func charsToTokens(chars int) int {
	return (chars + 10 + 3) / 4
}

func sumLen(results []truncate.Result) int {
	total := 0
	for _, r := range results {
		total += len(r.Content)
	}
	return total
}
