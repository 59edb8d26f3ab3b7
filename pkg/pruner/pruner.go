// Package pruner drops the oldest non-protected messages from a
// conversation history until it fits a token budget, always preserving
// system messages and the most recent N user turns.
package pruner

import "github.com/fenwick-run/agentctl/pkg/tokens"

const defaultMinRecentTurns = 4

// Options configures PruneHistory.
type Options struct {
	MinRecentTurns int // defaults to 4 when zero
}

// Result is the outcome of a prune pass.
type Result struct {
	Messages    []tokens.Message
	PrunedCount int
	TokensBefore int
	TokensAfter  int
}

// PruneHistory computes tokensBefore; if already within budget, returns
// verbatim; otherwise protects all system messages and the tail window
// covering the last MinRecentTurns user turns, then drops pruneable
// messages oldest-first until the running total is within budget.
func PruneHistory(messages []tokens.Message, budget int, opts Options) Result {
	minRecentTurns := opts.MinRecentTurns
	if minRecentTurns == 0 {
		minRecentTurns = defaultMinRecentTurns
	}

	tokensBefore := tokens.EstimateHistoryTokens(messages)
	if tokensBefore <= budget {
		return Result{
			Messages:     messages,
			PrunedCount:  0,
			TokensBefore: tokensBefore,
			TokensAfter:  tokensBefore,
		}
	}

	protected := make([]bool, len(messages))
	for i, m := range messages {
		if m.Role == tokens.RoleSystem {
			protected[i] = true
		}
	}

	// Walk from the tail, counting user messages until minRecentTurns is
	// reached; every index from that user message onward (in original
	// order) becomes protected.
	userSeen := 0
	protectFrom := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == tokens.RoleSystem {
			continue
		}
		if messages[i].Role == tokens.RoleUser {
			userSeen++
			protectFrom = i
			if userSeen >= minRecentTurns {
				break
			}
		}
	}
	for i := protectFrom; i < len(messages); i++ {
		protected[i] = true
	}

	var pruneable []int
	for i := range messages {
		if !protected[i] {
			pruneable = append(pruneable, i)
		}
	}

	drop := make(map[int]bool, len(pruneable))
	running := tokensBefore
	for _, idx := range pruneable {
		if running <= budget {
			break
		}
		running -= tokens.EstimateMessageTokens(messages[idx])
		drop[idx] = true
	}

	survivors := make([]tokens.Message, 0, len(messages)-len(drop))
	for i, m := range messages {
		if !drop[i] {
			survivors = append(survivors, m)
		}
	}

	tokensAfter := tokens.EstimateHistoryTokens(survivors)
	return Result{
		Messages:     survivors,
		PrunedCount:  len(drop),
		TokensBefore: tokensBefore,
		TokensAfter:  tokensAfter,
	}
}
