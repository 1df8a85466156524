package usecase

import (
	"errors"
	"time"

	"log/slog"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/sheet-reeval/internal/domain"
)

// RetryPolicy bounds whole-pipeline retries for callers such as the bulk
// submission workflow. Only transient aggregate failures are retried; the
// pipeline itself never repeats a model inside one pass.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy mirrors the bulk-upload contract: 3 attempts, 1s/2s/4s
// backoff capped at 15s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialInterval: time.Second, MaxInterval: 15 * time.Second, Multiplier: 2.0}
}

// ReEvaluateWithRetry re-invokes the whole operation under the policy when the
// aggregate failure is transient. Safe to repeat: each attempt is an
// independent unit of work against the store.
func (s ReEvaluateService) ReEvaluateWithRetry(ctx domain.Context, in ReEvaluateInput, policy RetryPolicy) (ReEvaluateOutput, error) {
	var out ReEvaluateOutput
	attempt := 0

	op := func() error {
		attempt++
		var err error
		out, err = s.ReEvaluate(ctx, in)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrModelTransient) {
			return backoff.Permanent(err)
		}
		slog.Warn("re-evaluation attempt failed with transient error",
			slog.String("answer_sheet_id", in.AnswerSheetID),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", policy.MaxAttempts),
			slog.Any("error", err))
		return err
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = policy.InitialInterval
	expo.MaxInterval = policy.MaxInterval
	expo.Multiplier = policy.Multiplier
	expo.RandomizationFactor = 0
	expo.MaxElapsedTime = 0

	maxRetries := uint64(0)
	if policy.MaxAttempts > 1 {
		maxRetries = uint64(policy.MaxAttempts - 1)
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(expo, maxRetries), ctx)

	// Retry unwraps Permanent errors, so callers always see the domain error.
	if err := backoff.Retry(op, bo); err != nil {
		return out, err
	}
	return out, nil
}
