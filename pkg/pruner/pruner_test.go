package pruner

import (
	"strings"
	"testing"

	"github.com/fenwick-run/agentctl/pkg/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longMsg(role tokens.Role) tokens.Message {
	return tokens.Message{Role: role, Content: strings.Repeat("x", 150)}
}

func buildHistory() []tokens.Message {
	msgs := []tokens.Message{{Role: tokens.RoleSystem, Content: "system prompt"}}
	for i := 0; i < 10; i++ {
		msgs = append(msgs, longMsg(tokens.RoleUser), longMsg(tokens.RoleAssistant))
	}
	return msgs
}

func TestPruneHistory_WithinBudget_Verbatim(t *testing.T) {
	msgs := []tokens.Message{{Role: tokens.RoleUser, Content: "hi"}}
	result := PruneHistory(msgs, 10000, Options{})
	assert.Equal(t, 0, result.PrunedCount)
	assert.Equal(t, msgs, result.Messages)
}

func TestPruneHistory_PreservesSystemAndRecency(t *testing.T) {
	msgs := buildHistory()
	result := PruneHistory(msgs, 50, Options{MinRecentTurns: 4})

	require.Greater(t, result.PrunedCount, 0)
	assert.Equal(t, msgs[0], result.Messages[0])

	userCount := 0
	for _, m := range result.Messages {
		if m.Role == tokens.RoleUser {
			userCount++
		}
	}
	assert.GreaterOrEqual(t, userCount, 4)
}

func TestPruneHistory_BudgetConservation(t *testing.T) {
	msgs := buildHistory()
	before := tokens.EstimateHistoryTokens(msgs)
	result := PruneHistory(msgs, 50, Options{})

	assert.LessOrEqual(t, tokens.EstimateHistoryTokens(result.Messages), before)
	assert.LessOrEqual(t, result.TokensAfter, result.TokensBefore)
}

func TestPruneHistory_SystemOnlyOverBudget(t *testing.T) {
	msgs := []tokens.Message{
		{Role: tokens.RoleSystem, Content: strings.Repeat("y", 10000)},
	}
	result := PruneHistory(msgs, 1, Options{})
	assert.Equal(t, msgs, result.Messages)
	assert.Equal(t, 0, result.PrunedCount)
}

func TestPruneHistory_TieBreakOldestFirst(t *testing.T) {
	msgs := []tokens.Message{
		longMsg(tokens.RoleUser),
		longMsg(tokens.RoleAssistant),
		longMsg(tokens.RoleUser),
		longMsg(tokens.RoleAssistant),
		longMsg(tokens.RoleUser),
		longMsg(tokens.RoleAssistant),
		longMsg(tokens.RoleUser),
		longMsg(tokens.RoleAssistant),
		longMsg(tokens.RoleUser),
	}
	result := PruneHistory(msgs, tokens.EstimateMessageTokens(msgs[len(msgs)-1])+1, Options{MinRecentTurns: 1})
	// the surviving messages should be a suffix of the original (oldest dropped first)
	assert.Equal(t, msgs[len(msgs)-len(result.Messages):], result.Messages)
}
