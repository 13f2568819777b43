package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/hoosh/hoosh/internal/apperr"
	"github.com/hoosh/hoosh/internal/event"
)

// RetryWithBackoff runs operation, retrying retryable failures with
// exponential backoff (1s, 2s, 4s, ...) up to maxAttempts total attempts,
// emitting a RetryEvent onto sender for each failed attempt that will be
// retried, for a success that follows a failure, and for the final
// failure (spec §4.8); a first-attempt success emits nothing. A
// rate-limit error's RetryAfterSeconds, when present, overrides the
// computed delay for that attempt — ported from the original
// implementation's retry_with_backoff, generalized from a fixed
// max_retries-plus-one-initial-attempt count to maxAttempts total tries.
func RetryWithBackoff[T any](ctx context.Context, sender event.Sender, operationName string, maxAttempts int, operation func(context.Context) (T, error)) (T, error) {
	var zero T
	delay := time.Second

	for attempt := 1; ; attempt++ {
		result, err := operation(ctx)
		if err == nil {
			if attempt > 1 {
				sender.Emit(event.Event{
					Type: event.RetryEvent, OperationName: operationName,
					Attempt: attempt, MaxAttempts: maxAttempts, IsSuccess: true,
					Text: fmt.Sprintf("%s succeeded after %d attempts", operationName, attempt),
				})
			}
			return result, nil
		}

		retryable := apperr.Retryable(err)
		exhausted := attempt >= maxAttempts
		if retryable && !exhausted {
			actualDelay := delay
			if seconds, ok := apperr.RetryAfterSeconds(err); ok {
				actualDelay = time.Duration(seconds) * time.Second
			}

			sender.Emit(event.Event{
				Type: event.RetryEvent, OperationName: operationName,
				Attempt: attempt, MaxAttempts: maxAttempts, IsSuccess: false,
				Text: fmt.Sprintf("Attempt %d/%d failed: %s. Retrying in %s...",
					attempt, maxAttempts, apperr.ShortMessage(err), actualDelay),
			})

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(actualDelay):
			}
			delay *= 2
			continue
		}

		message := fmt.Sprintf("%s: %s", operationName, err.Error())
		if attempt > 1 {
			message = fmt.Sprintf("%s failed after %d attempts: %s", operationName, attempt, err.Error())
		}
		sender.Emit(event.Event{
			Type: event.RetryEvent, OperationName: operationName,
			Attempt: attempt, MaxAttempts: maxAttempts, IsSuccess: false,
			Text: message,
		})
		return zero, err
	}
}
