package retry

import (
	"errors"
	"math"
	"time"
)

// ErrMaxRetriesExceeded is returned once a retried operation has exhausted
// its policy's MaxRetries.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Policy configures how an operation is retried. Reconstructed from its
// call sites in decorator.go (policy.MaxRetries, policy.Validate(),
// policy.RetryableFunc), which the retrieval pack did not otherwise
// include a source file for.
type Policy struct {
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	RetryableFunc func(error) bool
}

// DefaultPolicy matches the bounded-retry-once guidance spec §7 gives for
// infrastructure errors: at most one retry, short backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 1,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Multiplier: 2.0,
	}
}

func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if p.BaseDelay < 0 {
		return errors.New("base delay cannot be negative")
	}
	if p.Multiplier < 1 {
		return errors.New("multiplier must be >= 1")
	}
	return nil
}

// Backoff computes the exponential delay before each retry attempt.
type Backoff struct {
	policy Policy
}

func NewBackoff(policy Policy) *Backoff {
	return &Backoff{policy: policy}
}

// Calculate returns the delay before the given attempt number (1-indexed),
// capped at the policy's MaxDelay.
func (b *Backoff) Calculate(attempt int) time.Duration {
	if b.policy.BaseDelay <= 0 {
		return 0
	}
	multiplier := b.policy.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := float64(b.policy.BaseDelay) * math.Pow(multiplier, float64(attempt-1))
	d := time.Duration(delay)
	if b.policy.MaxDelay > 0 && d > b.policy.MaxDelay {
		return b.policy.MaxDelay
	}
	return d
}
