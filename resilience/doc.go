// Package resilience guards the analysis service's expensive and remote
// work.
//
// The pipeline runs decode, inference and explanation inside a Bulkhead so
// a burst of uploads cannot exhaust CPU or memory; a full bulkhead is
// reported to clients as an overload. The remote inference client wraps
// each call in an Executor combining CircuitBreaker, Retry and Timeout.
// The HTTP layer throttles clients with a KeyedRateLimiter.
//
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "inference"})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	    resilience.WithTimeout(10*time.Second),
//	)
//	probs, err := resilience.Do(ctx, exec, func(ctx context.Context) (analysis.Probabilities, error) {
//	    return client.predict(ctx, tensor)
//	})
//
// Errors a caller should not retry, such as a rejected request, are
// wrapped with Permanent. They skip Retry and do not trip the breaker.
package resilience
