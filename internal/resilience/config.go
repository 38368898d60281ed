package resilience

import "time"

// RetryFromSettings builds a RetryConfig from configured attempts and base
// backoff. Zero values keep the defaults.
func RetryFromSettings(attempts, backoffMs int) RetryConfig {
	cfg := DefaultRetryConfig()
	if attempts > 0 {
		cfg.MaxAttempts = attempts
	}
	if backoffMs > 0 {
		cfg.InitialBackoff = time.Duration(backoffMs) * time.Millisecond
	}
	return cfg
}

// BreakerFromSettings builds a CircuitBreakerConfig from the configured
// consecutive-failure threshold.
func BreakerFromSettings(threshold int) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	if threshold > 0 {
		cfg.FailureThreshold = threshold
	}
	return cfg
}

// Millis converts a configured millisecond count to a duration.
func Millis(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
