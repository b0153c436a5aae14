// Package backoff computes retry delays shared by the subscriber and the
// polling fallback.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Policy is capped exponential backoff with additive jitter:
//
//	delay(n) = min(Base * 2^(n-1), Cap) + rand[0, Base)
//
// After MaxAttempts consecutive failures the caller should wait Cooldown
// and restart the attempt count.
type Policy struct {
	Base        time.Duration
	Cap         time.Duration
	MaxAttempts int
	Cooldown    time.Duration

	// Jitter returns a value in [0, n). Defaults to math/rand.
	Jitter func(n int64) int64
}

func Default() Policy {
	return Policy{
		Base:        time.Second,
		Cap:         30 * time.Second,
		MaxAttempts: 5,
		Cooldown:    30 * time.Second,
	}
}

// Delay returns the wait before attempt n (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// A zero Cap means uncapped; doubling stops before overflow.
	d := p.Base
	for i := 1; i < attempt && (p.Cap <= 0 || d < p.Cap) && d <= math.MaxInt64/2; i++ {
		d *= 2
	}
	if p.Cap > 0 && d > p.Cap {
		d = p.Cap
	}
	j := p.jitter()
	if d > math.MaxInt64-j {
		return math.MaxInt64
	}
	return d + j
}

// Exhausted reports whether attempt has used up the budget before a cooldown.
func (p Policy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}

func (p Policy) jitter() time.Duration {
	if p.Base <= 0 {
		return 0
	}
	if p.Jitter != nil {
		return time.Duration(p.Jitter(int64(p.Base)))
	}
	return time.Duration(rand.Int64N(int64(p.Base)))
}

// Tracker counts consecutive failures against a Policy.
type Tracker struct {
	policy   Policy
	attempts int
}

func NewTracker(p Policy) *Tracker {
	return &Tracker{policy: p}
}

// Next records a failure and returns the wait before the next attempt and
// whether it is a cooldown. After a cooldown the count starts over.
func (t *Tracker) Next() (time.Duration, bool) {
	t.attempts++
	if t.policy.Exhausted(t.attempts) {
		t.attempts = 0
		return t.policy.Cooldown, true
	}
	return t.policy.Delay(t.attempts), false
}

// Attempts returns the consecutive failures recorded since the last reset.
func (t *Tracker) Attempts() int {
	return t.attempts
}

func (t *Tracker) Reset() {
	t.attempts = 0
}
