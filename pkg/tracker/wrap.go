package tracker

import (
	"context"
	"fmt"
	"time"
)

// Wrap decorates a provider call with cost recording. The returned function
// times fn and, on success, extracts usage from its result and persists a
// record. If fn fails, its error is returned unchanged and nothing is
// recorded: no tokens were consumed.
//
// A recording failure after a successful call is a recording error, not a
// call error: under the default strict policy it is returned alongside the
// (still valid) result; with WithBestEffort it is logged and swallowed.
// Callers running fn in a goroutine or errgroup get the same behavior; the
// wrapper blocks only while awaiting fn.
func Wrap[T any](t *Tracker, call Call, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		start := time.Now()
		result, err := fn(ctx)
		if err != nil {
			return result, err
		}

		if _, recErr := t.TrackResponse(ctx, call, result, time.Since(start)); recErr != nil {
			if t.bestEffort {
				t.logger.Error("cost recording failed",
					"user_id", call.UserID,
					"feature", call.Feature,
					"provider", call.Provider,
					"error", recErr,
				)
				return result, nil
			}
			return result, fmt.Errorf("call succeeded but cost recording failed: %w", recErr)
		}
		return result, nil
	}
}
