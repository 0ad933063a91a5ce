package common

import (
	"errors"
	"testing"
)

func TestGuardEnterRelease(t *testing.T) {
	var g Guard

	release, err := g.Enter()
	if err != nil {
		t.Fatalf("enter on idle guard failed: %v", err)
	}
	if !g.InProgress() {
		t.Fatal("guard should be in progress after enter")
	}
	if _, err := g.Enter(); !errors.Is(err, ErrReentrancyDetected) {
		t.Fatalf("nested enter should fail with ErrReentrancyDetected, got %v", err)
	}
	release()
	if g.InProgress() {
		t.Fatal("guard should be idle after release")
	}

	// The guard must return to idle even when the operation fails after
	// entering, provided release is deferred.
	err = func() (err error) {
		rel, enterErr := g.Enter()
		if enterErr != nil {
			return enterErr
		}
		defer rel()
		return errors.New("business check failed")
	}()
	if err == nil {
		t.Fatal("expected simulated failure")
	}
	if g.InProgress() {
		t.Fatal("guard stuck in progress after failed operation")
	}
}

func TestGuardPause(t *testing.T) {
	var g Guard

	g.Pause("suspicious activity")
	if _, err := g.Enter(); !errors.Is(err, ErrEmergencyPaused) {
		t.Fatalf("enter while paused should fail, got %v", err)
	}
	if err := g.CheckPause(); err == nil || !errors.Is(err, ErrEmergencyPaused) {
		t.Fatalf("expected ErrEmergencyPaused, got %v", err)
	}
	paused, reason := g.Paused()
	if !paused || reason != "suspicious activity" {
		t.Fatalf("unexpected pause state: %v %q", paused, reason)
	}

	g.Resume()
	if _, err := g.Enter(); err != nil {
		t.Fatalf("enter after resume failed: %v", err)
	}
}

func TestCheckAllowance(t *testing.T) {
	limit := Allowance{Cap: 1000, WindowSeconds: 86_400}

	usage, err := CheckAllowance(limit, 0, AllowanceUsage{}, 600)
	if err != nil {
		t.Fatalf("first spend rejected: %v", err)
	}
	if _, err := CheckAllowance(limit, 100, usage, 500); !errors.Is(err, ErrAllowanceExceeded) {
		t.Fatalf("expected ErrAllowanceExceeded, got %v", err)
	}
	// A new window resets the counter.
	usage, err = CheckAllowance(limit, 86_500, usage, 500)
	if err != nil {
		t.Fatalf("spend in new window rejected: %v", err)
	}
	if usage.Used != 500 || usage.WindowStart != 86_500 {
		t.Fatalf("unexpected usage after reset: %+v", usage)
	}
}
