package domain

import "time"

// RateLimitDecision is the outcome of counting one request against a fixed window.
type RateLimitDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, never below one.
func (d RateLimitDecision) RetryAfterSeconds() int {
	seconds := int((d.RetryAfter + time.Second - 1) / time.Second)
	if seconds < 1 {
		return 1
	}
	return seconds
}
