package tokens

import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

func TestEstimateMessageTokens_Scenario(t *testing.T) {
	got := EstimateMessageTokens(Message{Role: RoleUser, Content: "hello"})
	assert.Equal(t, 4, got)
}

func TestEstimateMessageTokens_Empty(t *testing.T) {
	assert.Equal(t, 3, EstimateMessageTokens(Message{Role: RoleUser, Content: ""}))
}

func TestEstimateMessageTokens_Monotonicity(t *testing.T) {
	shorter := Message{Role: RoleUser, Content: "abc"}
	longer := Message{Role: RoleUser, Content: "abcdefghijklmnop"}
	require.Less(t, len(shorter.Content), len(longer.Content))
	assert.Less(t, EstimateMessageTokens(shorter), EstimateMessageTokens(longer))
}

func TestEstimateMessageTokens_StructuredParts(t *testing.T) {
	m := Message{
		Role: RoleAssistant,
		Parts: []ContentPart{
			{Kind: PartText, Text: "abcd"},
			{Kind: PartImage},
		},
	}
	// C = 4 (text) + 100 (image overhead) = 104; ceil((104+10)/4) = 29
	assert.Equal(t, 29, EstimateMessageTokens(m))
}

func TestEstimateHistoryTokens_Empty(t *testing.T) {
	assert.Equal(t, 0, EstimateHistoryTokens(nil))
}

func TestEstimateHistoryTokens_Sums(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi"},
	}
	sum := EstimateMessageTokens(msgs[0]) + EstimateMessageTokens(msgs[1])
	assert.Equal(t, sum, EstimateHistoryTokens(msgs))
}
