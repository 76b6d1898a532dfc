// Package retry drives repeated attempts of an operation with exponential
// backoff and jitter.
//
//	err := retry.Do(func() error {
//		return fetchOnce(ctx, url)
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     &retry.ExponentialBackoff{BaseDelay: 800 * time.Millisecond, Multiplier: 1.7},
//		Context:     ctx,
//	})
//
// Only errors classified as retryable by pkg/errors (transport failures) are
// retried by DefaultRetryIf; HTTP status failures surface immediately.
package retry
