package common

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmergencyPaused is returned by guarded operations while the owning
	// instance is emergency paused. The active pause reason is wrapped in.
	ErrEmergencyPaused = errors.New("emergency paused")
	// ErrReentrancyDetected is returned when a guarded operation is entered
	// while a previous invocation has not finished mutating state.
	ErrReentrancyDetected = errors.New("reentrancy detected")
	// ErrUnauthorized is returned when the caller lacks the admin role or
	// capability required for a gated operation.
	ErrUnauthorized = errors.New("unauthorized")
)

// Guard tracks the pause and in-progress flags for a single guarded instance
// (a ledger or a settlement engine). It is not safe for concurrent use on its
// own; the owning instance serializes access with its mutex and the guard
// defends against logical re-entry within a call stack.
type Guard struct {
	paused     bool
	reason     string
	inProgress bool
}

// CheckPause fails with ErrEmergencyPaused while the instance is paused.
func (g *Guard) CheckPause() error {
	if g == nil || !g.paused {
		return nil
	}
	if g.reason != "" {
		return fmt.Errorf("%w: %s", ErrEmergencyPaused, g.reason)
	}
	return ErrEmergencyPaused
}

// CheckReentrancy fails with ErrReentrancyDetected when a guarded operation
// is already in progress.
func (g *Guard) CheckReentrancy() error {
	if g == nil || !g.inProgress {
		return nil
	}
	return ErrReentrancyDetected
}

// Enter performs the pause and reentrancy checks and, on success, marks the
// guard in progress. The returned release function MUST be deferred by the
// caller so the guard returns to idle on every exit path.
func (g *Guard) Enter() (func(), error) {
	if err := g.CheckPause(); err != nil {
		return nil, err
	}
	if err := g.CheckReentrancy(); err != nil {
		return nil, err
	}
	g.inProgress = true
	return func() { g.inProgress = false }, nil
}

// Pause raises the emergency flag with the supplied reason. Authorization is
// the caller's responsibility.
func (g *Guard) Pause(reason string) {
	if g == nil {
		return
	}
	g.paused = true
	g.reason = strings.TrimSpace(reason)
}

// Resume clears the emergency flag and reason.
func (g *Guard) Resume() {
	if g == nil {
		return
	}
	g.paused = false
	g.reason = ""
}

// Paused reports the emergency flag and its reason.
func (g *Guard) Paused() (bool, string) {
	if g == nil {
		return false, ""
	}
	return g.paused, g.reason
}

// InProgress reports whether a guarded operation is currently executing. It
// exists for integrity checks that want to detect a stuck guard.
func (g *Guard) InProgress() bool {
	return g != nil && g.inProgress
}
