// Package prefetch fetches timing-payload chunks ahead of playback. A
// small pure retry policy (exponential backoff plus a failure-count
// circuit breaker) gates every attempt; the Loader wires the policy to an
// actual fetch function, a rate limiter and the chunk cache.
package prefetch

// RetryState is per-resource retry bookkeeping. The caller owns it: the
// loader creates one on the first attempt, bumps Failures on every failed
// attempt and discards the state on success. It never outlives the
// session.
type RetryState struct {
	// LastAttempt is the wall-clock time of the most recent attempt, in
	// epoch milliseconds.
	LastAttempt int64
	// Failures counts consecutive failed attempts.
	Failures int
}

const (
	baseBackoffMS = 2000
	maxBackoffMS  = 16000

	// maxFailures trips the circuit breaker. After this many consecutive
	// failures a resource is not retried again until its state is reset.
	maxFailures = 3
)

// BackoffMS returns the wait before the next attempt after the given
// number of consecutive failures: 2s doubling per failure, capped at 16s.
func BackoffMS(failures int) int64 {
	if failures < 0 {
		failures = 0
	}
	ms := int64(baseBackoffMS)
	for i := 0; i < failures; i++ {
		ms *= 2
		if ms >= maxBackoffMS {
			return maxBackoffMS
		}
	}
	return ms
}

// ShouldRetry decides whether a new attempt may be issued at time now
// (epoch milliseconds). A resource with no prior state is always
// attempted. Once the breaker trips the answer stays false until the
// caller resets the state. Otherwise the backoff window must have fully
// elapsed; the boundary itself is inclusive.
func ShouldRetry(state *RetryState, now int64) bool {
	if state == nil {
		return true
	}
	if state.Failures >= maxFailures {
		return false
	}
	return now-state.LastAttempt >= BackoffMS(state.Failures)
}
