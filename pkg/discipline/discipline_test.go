package discipline

import (
	"strings"
	"testing"

	"github.com/fenwick-run/agentctl/pkg/tokens"
	"github.com/fenwick-run/agentctl/pkg/truncate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnforceContextDiscipline_NoAdjustmentsNeeded(t *testing.T) {
	out, err := EnforceContextDiscipline(Request{
		ContextWindow: 100000,
		SystemPrompt:  "be helpful",
		Messages:      []tokens.Message{{Role: tokens.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Contains(t, out.Actions, "All context within budget — no adjustments needed")
}

func TestEnforceContextDiscipline_PrunesAndTruncates(t *testing.T) {
	var msgs []tokens.Message
	msgs = append(msgs, tokens.Message{Role: tokens.RoleSystem, Content: "system"})
	for i := 0; i < 20; i++ {
		msgs = append(msgs, tokens.Message{Role: tokens.RoleUser, Content: strings.Repeat("x", 500)})
		msgs = append(msgs, tokens.Message{Role: tokens.RoleAssistant, Content: strings.Repeat("y", 500)})
	}

	out, err := EnforceContextDiscipline(Request{
		ContextWindow: 1000,
		SystemPrompt:  "short",
		Messages:      msgs,
		ToolResults:   []truncate.Item{{Content: strings.Repeat("z", 5000)}},
	})

	require.NoError(t, err)
	assert.Less(t, len(out.Messages), len(msgs))
	assert.True(t, out.ToolResults[0].WasTruncated)
}

func TestEnforceContextDiscipline_InvalidWindow(t *testing.T) {
	_, err := EnforceContextDiscipline(Request{ContextWindow: 0})
	require.Error(t, err)
}
