// Package resilience provides the retry and timeout patterns used by the
// request coordinator.
//
// # Patterns
//
//   - Retry: runs an operation up to MaxAttempts times, waiting
//     InitialDelay*Multiplier^(attempt-1) between attempts. The delay
//     function is pure (see Retry.DelayFor) and the wait goes through an
//     injectable Sleep, so schedules are testable without real time passing.
//
//   - Timeout: bounds a single attempt. The attempt's context is cancelled
//     on expiry, which aborts context-aware work such as an HTTP request.
//
// # Usage
//
//	executor := resilience.NewExecutor(
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        MaxAttempts:  3,
//	        InitialDelay: time.Second,
//	    })),
//	    resilience.WithTimeout(10*time.Second),
//	)
//
//	attempts, err := executor.Do(ctx, func(ctx context.Context, attempt int) error {
//	    return callBackend(ctx)
//	})
//
// The timeout wraps each attempt individually; the retry loop sits outside
// it, so every attempt owns a fresh deadline.
package resilience
