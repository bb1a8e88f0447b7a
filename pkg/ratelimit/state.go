// Package ratelimit tracks the blog backend's request budget and gates
// outgoing requests. It reads the X-RateLimit-Remaining and
// X-RateLimit-Reset response headers and shares the result through Redis
// so every client process sees the same budget.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyRemaining      = "blog:rate_limit:remaining"
	RedisKeyResetTimestamp = "blog:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "blog:rate_limit:last_update"
)

// Response headers read by the tracker.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Thresholds for rate limit decisions.
const (
	// ThresholdCritical blocks all requests when the remaining budget falls below it.
	ThresholdCritical = 5

	// ThresholdWarning throttles requests when the remaining budget falls below it.
	ThresholdWarning = 20

	// ThresholdHealthy marks the budget as healthy at or above it.
	ThresholdHealthy = 50
)

// State is the backend's request budget as last reported.
type State struct {
	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// defaultState is assumed until the backend reports a budget.
func defaultState() *State {
	now := time.Now()
	return &State{
		Remaining:  100,
		ResetAt:    now.Add(60 * time.Second),
		LastUpdate: now,
		IsHealthy:  true,
	}
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked.
// A window that has already reset never blocks.
func (s *State) NeedsCriticalBlock() bool {
	return s.Remaining < ThresholdCritical && s.TimeUntilReset() > 0
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *State) NeedsThrottling() bool {
	return s.Remaining < ThresholdWarning && s.TimeUntilReset() > 0 && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the window resets, 0 if past.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// UpdateHealth updates IsHealthy from Remaining.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
