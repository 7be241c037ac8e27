package circuitbreaker

import "time"

// Config holds the settings of a circuit breaker.
type Config struct {
	Name    string
	Enabled bool

	// MaxRequests bounds the probes let through while half-open. Zero means one.
	MaxRequests uint

	// Interval clears the closed-state counts periodically. Zero never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing. Zero means 60s.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint

	// IsSuccessful decides whether a returned error counts against the breaker.
	// Nil treats every non-nil error as a failure.
	IsSuccessful func(err error) bool

	// OnStateChange is notified on every transition.
	OnStateChange func(name string, from, to State)
}
