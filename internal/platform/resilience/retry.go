// Package resilience provides retry-with-backoff used to absorb bounded
// serialization conflicts on the store's claim transaction.
package resilience

import (
	"context"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Retry executes fn with exponential backoff (base delay) plus full jitter,
// up to attempts times. Returns the last error if all attempts fail.
func Retry[T any](ctx context.Context, attempts int, delay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	if attempts <= 0 {
		attempts = 1
	}
	meter := otel.Meter("torc-resilience")
	attemptCounter, _ := meter.Int64Counter("torc_retry_attempts_total")
	successCounter, _ := meter.Int64Counter("torc_retry_success_total")
	failCounter, _ := meter.Int64Counter("torc_retry_fail_total")

	cur := delay
	var lastErr error
	for i := 0; i < attempts; i++ {
		v, err := fn()
		attemptCounter.Add(ctx, 1, metric.WithAttributes())
		if err == nil {
			successCounter.Add(ctx, 1)
			return v, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		if cur > 2*time.Second {
			cur = 2 * time.Second
		}
		sleep := time.Duration(rand.Int63n(int64(cur) + 1))
		select {
		case <-ctx.Done():
			failCounter.Add(ctx, 1)
			return zero, ctx.Err()
		case <-time.After(sleep):
		}
		cur *= 2
	}
	failCounter.Add(ctx, 1)
	return zero, lastErr
}
