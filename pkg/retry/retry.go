// Package retry implements the at-most-one-retry policy: a transient
// failure is retried exactly once, a permanent or unknown failure is
// escalated immediately, and a successful run never invokes the
// escalation callback.
package retry

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fenwick-run/agentctl/pkg/escalation"
	"github.com/fenwick-run/agentctl/pkg/taxonomy"
	"github.com/fenwick-run/agentctl/pkg/telemetry"
)

// Decision is the outcome of evaluating whether to retry a failed call.
type Decision struct {
	ShouldRetry bool
	Category    taxonomy.Category
	Reason      string
}

// ShouldRetry decides retry vs escalate from the error's category and the
// number of attempts already made (retryCount).
func ShouldRetry(err error, retryCount int) Decision {
	category := taxonomy.Categorize(err)

	if retryCount >= 1 {
		return Decision{ShouldRetry: false, Category: category, Reason: "Max retries exhausted"}
	}
	if taxonomy.IsTransientCategory(category) {
		return Decision{ShouldRetry: true, Category: category, Reason: "transient"}
	}
	return Decision{ShouldRetry: false, Category: category, Reason: "non-retriable"}
}

// Run is the provider call closure passed to ExecuteWithRetry. It must
// translate ctx cancellation into a returned error (which the taxonomy
// classifies as unknown, hence never retried) rather than relying on any
// implicit cancellation support from this package.
type Run[T any] func(ctx context.Context) (T, error)

// Options configures ExecuteWithRetry.
type Options struct {
	Provider     string
	Model        string
	Metrics      *telemetry.Metrics
	OnRetry      func(ctx context.Context, decision Decision, attempt int) error
	OnEscalation func(ctx context.Context, info escalation.Info) error
}

// ExecuteWithRetry attempts run, retrying at most once on a transient
// failure. The original error (not a wrapper) is surfaced to the caller
// on final failure. A successful call returns immediately and fires
// neither callback. OnRetry and OnEscalation are awaited but their
// returned errors never replace the call's own error or abort the retry
// loop: a failing hook (e.g. a logging sink that's down) must not change
// whether the call itself is retried or escalated, so hook errors are
// only logged.
func ExecuteWithRetry[T any](ctx context.Context, run Run[T], opts Options) (T, error) {
	startedAt := time.Now()
	retryCount := 0

	for {
		result, err := run(ctx)
		if err == nil {
			return result, nil
		}

		decision := ShouldRetry(err, retryCount)
		if decision.ShouldRetry {
			retryCount++
			if opts.Metrics != nil {
				opts.Metrics.ObserveRetry(opts.Provider, opts.Model)
			}
			if opts.OnRetry != nil {
				if cbErr := opts.OnRetry(ctx, decision, retryCount); cbErr != nil {
					log.Warn().Err(cbErr).Str("provider", opts.Provider).Str("model", opts.Model).Msg("retry hook failed")
				}
			}
			continue
		}

		info := escalation.Build(err, escalation.Context{
			Provider:   opts.Provider,
			Model:      opts.Model,
			StartedAt:  startedAt,
			RetryCount: retryCount,
		})
		if opts.Metrics != nil {
			opts.Metrics.ObserveEscalation(string(decision.Category))
		}
		if opts.OnEscalation != nil {
			if cbErr := opts.OnEscalation(ctx, info); cbErr != nil {
				log.Warn().Err(cbErr).Str("provider", opts.Provider).Str("model", opts.Model).Msg("escalation hook failed")
			}
		}

		var zero T
		return zero, err
	}
}
