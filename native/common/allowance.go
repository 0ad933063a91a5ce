package common

import (
	"errors"
	"math"
)

var (
	// ErrAllowanceExceeded is returned when the additional spend would cross
	// the configured cap for the current window.
	ErrAllowanceExceeded = errors.New("allowance exceeded")
	// ErrAllowanceOverflow is returned when a usage counter would wrap.
	ErrAllowanceOverflow = errors.New("allowance counter overflow")
)

// Allowance defines a rolling spend cap enforced per address over fixed
// windows (e.g. a 24h large-transfer limit).
type Allowance struct {
	Cap           uint64
	WindowSeconds int64
}

// AllowanceUsage captures the usage counter for a single window.
type AllowanceUsage struct {
	Used        uint64
	WindowStart int64
}

// CheckAllowance verifies the additional spend fits inside the cap for the
// window containing now, resetting the counter when the previous window has
// elapsed. The returned usage reflects the updated counter when the spend is
// admitted; on failure the previous usage is returned unchanged.
func CheckAllowance(a Allowance, now int64, prev AllowanceUsage, spend uint64) (AllowanceUsage, error) {
	next := prev
	if a.WindowSeconds > 0 && now-prev.WindowStart >= a.WindowSeconds {
		next = AllowanceUsage{WindowStart: now}
	}
	if spend > 0 {
		if next.Used > math.MaxUint64-spend {
			return prev, ErrAllowanceOverflow
		}
		next.Used += spend
	}
	if a.Cap > 0 && next.Used > a.Cap {
		return prev, ErrAllowanceExceeded
	}
	return next, nil
}
