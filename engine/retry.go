// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package engine

import (
	"context"
	"log/slog"
	"time"
)

// RetryWithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// retryable: decides whether a failed attempt may be repeated; nil retries every error
// Returns the error from the last attempt if all attempts fail.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration, retryable func(error) bool) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}

		// Don't sleep after the last attempt
		if attempt == maxAttempts {
			break
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "error", lastErr)

		// baseDelay * 2^(attempt-1)
		delay := baseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

type retryingEngine struct {
	Engine
	maxAttempts int
	baseDelay   time.Duration
}

// WithRetry wraps e so that calls failing with KindUnavailable are repeated up
// to maxAttempts times. Resource exhaustion and other kinds are returned at once,
// since repeating an identical oversized batch cannot succeed.
// A maxAttempts of 1 or less returns e unchanged.
func WithRetry(e Engine, maxAttempts int, baseDelay time.Duration) Engine {
	if maxAttempts <= 1 {
		return e
	}
	return &retryingEngine{Engine: e, maxAttempts: maxAttempts, baseDelay: baseDelay}
}

func (r *retryingEngine) Embed(ctx context.Context, sequences []string) ([]Matrix, error) {
	var out []Matrix
	err := RetryWithBackoff(ctx, func() error {
		var err error
		out, err = r.Engine.Embed(ctx, sequences)
		return err
	}, r.maxAttempts, r.baseDelay, IsRetryable)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *retryingEngine) Pooled() bool {
	return IsPooled(r.Engine)
}
