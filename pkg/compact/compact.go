// Package compact implements the session auto-compaction guard: a
// threshold + rate-limit + token-growth decision for when to trigger
// semantic compaction of a session's message log, plus the lock-protected
// persistence of that decision.
package compact

import (
	"github.com/fenwick-run/agentctl/pkg/sessionstore"
	"github.com/fenwick-run/agentctl/pkg/telemetry"
	"github.com/fenwick-run/agentctl/pkg/tokens"
)

// Config is the resolved auto-compact guard configuration.
type Config struct {
	Enabled               bool
	ThresholdContextRatio float64
	MinIntervalMs         int64
}

// ResolveConfig applies defaults: enabled=false, thresholdContextRatio=0.5,
// minIntervalMs=600000.
func ResolveConfig(cfg *Config) Config {
	resolved := Config{
		Enabled:               false,
		ThresholdContextRatio: 0.5,
		MinIntervalMs:         600000,
	}
	if cfg == nil {
		return resolved
	}
	resolved.Enabled = cfg.Enabled
	if cfg.ThresholdContextRatio != 0 {
		resolved.ThresholdContextRatio = cfg.ThresholdContextRatio
	}
	if cfg.MinIntervalMs != 0 {
		resolved.MinIntervalMs = cfg.MinIntervalMs
	}
	return resolved
}

// DecisionInput carries everything needed to reach a compaction decision.
type DecisionInput struct {
	Config                  Config
	TotalTokens             int64
	ContextTokens           int64
	Now                     int64
	LastAutoCompactAt       int64
	LastAutoCompactAtTokens int64
}

// Decision is the guard's verdict plus the reason it reached it.
type Decision struct {
	ShouldCompact bool
	Reason        string
}

// Decide runs the guard's reason-precedence chain (first matching check
// wins).
func Decide(in DecisionInput) Decision {
	if !in.Config.Enabled {
		return Decision{ShouldCompact: false, Reason: "disabled"}
	}
	if in.TotalTokens <= 0 || in.ContextTokens <= 0 {
		return Decision{ShouldCompact: false, Reason: "missing-token-metrics"}
	}
	if float64(in.TotalTokens)/float64(in.ContextTokens) < in.Config.ThresholdContextRatio {
		return Decision{ShouldCompact: false, Reason: "below-threshold"}
	}
	if in.LastAutoCompactAt > 0 && in.Now-in.LastAutoCompactAt < in.Config.MinIntervalMs {
		return Decision{ShouldCompact: false, Reason: "rate-limited"}
	}
	if in.TotalTokens <= in.LastAutoCompactAtTokens {
		return Decision{ShouldCompact: false, Reason: "no-token-growth"}
	}
	return Decision{ShouldCompact: true, Reason: "threshold-hit"}
}

// oversizedSafetyMultiplier inflates the raw token estimate to account for
// tokenizer variance between the estimator and whatever tokenizer the
// summarizer's provider actually uses.
const oversizedSafetyMultiplier = 1.2

// HasOversizedMessageForSummary returns true iff any single message, after
// applying the safety multiplier, exceeds 50% of the context window — such
// a message cannot be summarized in a single pass and blocks compaction.
func HasOversizedMessageForSummary(messages []tokens.Message, contextWindowTokens int) bool {
	if contextWindowTokens <= 0 {
		return false
	}
	halfWindow := float64(contextWindowTokens) / 2
	for _, m := range messages {
		estimated := float64(tokens.EstimateMessageTokens(m)) * oversizedSafetyMultiplier
		if estimated > halfWindow {
			return true
		}
	}
	return false
}

// DecideAndRecord wraps Decide inside a session-store update: under the
// store's file lock, it reads the current session entry, computes the
// decision, and — iff shouldCompact — writes the new timestamp/tokens
// before releasing the lock. This prevents two concurrent processes from
// compacting the same session twice. metrics may be nil; when set, every
// decision is recorded on its AutoCompactTotal counter regardless of
// outcome.
func DecideAndRecord(store *sessionstore.Store, sessionKey string, cfg Config, totalTokens, contextTokens, now int64, metrics *telemetry.Metrics) (Decision, error) {
	var decision Decision

	_, err := store.Update(sessionKey, func(cur sessionstore.Entry, exists bool) sessionstore.Entry {
		var lastAt, lastAtTokens int64
		if exists {
			if cur.SessionAutoCompactLastAt != nil {
				lastAt = *cur.SessionAutoCompactLastAt
			}
			if cur.SessionAutoCompactLastAtTokens != nil {
				lastAtTokens = *cur.SessionAutoCompactLastAtTokens
			}
		}

		decision = Decide(DecisionInput{
			Config:                  cfg,
			TotalTokens:             totalTokens,
			ContextTokens:           contextTokens,
			Now:                     now,
			LastAutoCompactAt:       lastAt,
			LastAutoCompactAtTokens: lastAtTokens,
		})

		next := cur
		next.SessionID = sessionKey
		next.UpdatedAt = now
		next.TotalTokens = &totalTokens
		next.ContextTokens = &contextTokens

		if decision.ShouldCompact {
			next.SessionAutoCompactLastAt = &now
			next.SessionAutoCompactLastAtTokens = &totalTokens
		}

		return next
	})

	if metrics != nil {
		metrics.ObserveAutoCompactDecision(decision.Reason, decision.ShouldCompact)
	}

	return decision, err
}
