package identity

import "time"

// LockoutPolicy locks an account for Duration after Threshold consecutive
// failed logins.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

func (p LockoutPolicy) normalize() LockoutPolicy {
	if p.Threshold <= 0 {
		p.Threshold = DefaultLockThreshold
	}
	if p.Duration <= 0 {
		p.Duration = DefaultLockDuration
	}
	return p
}

// LockUntil is the end of a lock window starting at now
func (p LockoutPolicy) LockUntil(now time.Time) time.Time {
	return now.Add(p.Duration).UTC()
}

// Reached reports whether count failures lock the account
func (p LockoutPolicy) Reached(count int) bool {
	return count >= p.Threshold
}
