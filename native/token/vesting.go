package token

import (
	"fmt"
	"time"

	"dujyo/core/events"
	"dujyo/native/common"
	"dujyo/native/safemath"
)

// VestingSchedule locks a granted balance on the beneficiary's account and
// releases it linearly after the cliff. The granted amount sits on the
// beneficiary's balance from creation, so supply conservation holds at all
// times; only spendability is deferred.
type VestingSchedule struct {
	Beneficiary string
	Total       uint64
	Released    uint64
	Start       time.Time
	Cliff       time.Duration
	Duration    time.Duration
	Revocable   bool
	Revoked     bool
}

// vestedAt returns the cumulative amount vested at the given instant.
func (s *VestingSchedule) vestedAt(now time.Time) (uint64, error) {
	if now.Before(s.Start.Add(s.Cliff)) {
		return 0, nil
	}
	elapsed := now.Sub(s.Start)
	if elapsed >= s.Duration {
		return s.Total, nil
	}
	// elapsed < duration keeps the 128-bit intermediate below the divisor.
	return safemath.MulDiv(s.Total, uint64(elapsed), uint64(s.Duration), "vesting accrual")
}

// CreateVestingSchedule grants amount from the caller to the beneficiary
// under a linear schedule. The funds move to the beneficiary immediately and
// are locked until released. Admin only; one active schedule per beneficiary.
func (l *Ledger) CreateVestingSchedule(caller, beneficiary string, amount uint64, cliff, duration time.Duration, revocable bool) (string, error) {
	l.mu.Lock()
	rec, evt, err := l.createVestingLocked(caller, beneficiary, amount, cliff, duration, revocable)
	l.mu.Unlock()
	if err != nil {
		return "", err
	}
	l.finish(rec, evt)
	return rec.TxHash, nil
}

func (l *Ledger) createVestingLocked(caller, beneficiary string, amount uint64, cliff, duration time.Duration, revocable bool) (AuditEvent, events.Event, error) {
	release, err := l.guard.Enter()
	if err != nil {
		return AuditEvent{}, nil, err
	}
	defer release()

	if caller != l.admin {
		return AuditEvent{}, nil, common.ErrUnauthorized
	}
	if !validAddress(beneficiary) || beneficiary == caller {
		return AuditEvent{}, nil, ErrInvalidAddress
	}
	if amount == 0 || duration <= 0 || cliff < 0 || cliff > duration {
		return AuditEvent{}, nil, ErrInvalidAmount
	}
	if existing, ok := l.vestingSchedules[beneficiary]; ok && !existing.Revoked {
		return AuditEvent{}, nil, ErrVestingExists
	}
	if l.spendableLocked(caller) < amount {
		return AuditEvent{}, nil, ErrInsufficientBalance
	}

	newFrom, err := safemath.Sub(l.balances[caller], amount, "vesting grant debit")
	if err != nil {
		return AuditEvent{}, nil, fmt.Errorf("%w: %w", ErrInsufficientBalance, err)
	}
	newTo, err := safemath.Add(l.balances[beneficiary], amount, "vesting grant credit")
	if err != nil {
		return AuditEvent{}, nil, err
	}
	newLocked, err := safemath.Add(l.lockedBalances[beneficiary], amount, "vesting lock")
	if err != nil {
		return AuditEvent{}, nil, err
	}

	l.balances[caller] = newFrom
	l.balances[beneficiary] = newTo
	l.lockedBalances[beneficiary] = newLocked
	now := l.clock()
	l.vestingSchedules[beneficiary] = &VestingSchedule{
		Beneficiary: beneficiary,
		Total:       amount,
		Start:       now,
		Cliff:       cliff,
		Duration:    duration,
		Revocable:   revocable,
	}

	hash := l.nextTxHashLocked(KindVestingCreated, caller, beneficiary, amount)
	rec := newAuditEvent(KindVestingCreated, caller, beneficiary, amount, hash, "", now)
	l.appendEventLocked(rec)
	evt := events.VestingCreated{Beneficiary: beneficiary, Amount: amount, TxHash: hash}
	return rec, evt, nil
}

// ReleaseVested unlocks every token vested so far for the beneficiary.
// Returns the amount released.
func (l *Ledger) ReleaseVested(beneficiary string) (uint64, error) {
	l.mu.Lock()
	amount, rec, evt, err := l.releaseVestedLocked(beneficiary)
	l.mu.Unlock()
	if err != nil {
		return 0, err
	}
	l.finish(rec, evt)
	return amount, nil
}

func (l *Ledger) releaseVestedLocked(beneficiary string) (uint64, AuditEvent, events.Event, error) {
	release, err := l.guard.Enter()
	if err != nil {
		return 0, AuditEvent{}, nil, err
	}
	defer release()

	schedule, ok := l.vestingSchedules[beneficiary]
	if !ok {
		return 0, AuditEvent{}, nil, ErrNoVestingSchedule
	}
	if schedule.Revoked {
		return 0, AuditEvent{}, nil, ErrVestingRevoked
	}
	now := l.clock()
	if now.Before(schedule.Start.Add(schedule.Cliff)) {
		return 0, AuditEvent{}, nil, ErrCliffNotReached
	}
	vested, err := schedule.vestedAt(now)
	if err != nil {
		return 0, AuditEvent{}, nil, err
	}
	claimable, err := safemath.Sub(vested, schedule.Released, "vesting claimable")
	if err != nil {
		return 0, AuditEvent{}, nil, err
	}
	if claimable == 0 {
		return 0, AuditEvent{}, nil, ErrNothingToRelease
	}
	newLocked, err := safemath.Sub(l.lockedBalances[beneficiary], claimable, "vesting unlock")
	if err != nil {
		return 0, AuditEvent{}, nil, err
	}

	schedule.Released += claimable
	l.lockedBalances[beneficiary] = newLocked
	if newLocked == 0 {
		delete(l.lockedBalances, beneficiary)
	}
	if schedule.Released == schedule.Total {
		delete(l.vestingSchedules, beneficiary)
	}

	remaining := schedule.Total - schedule.Released
	hash := l.nextTxHashLocked(KindVestingReleased, "", beneficiary, claimable)
	rec := newAuditEvent(KindVestingReleased, "", beneficiary, claimable, hash, "", now)
	l.appendEventLocked(rec)
	evt := events.VestingReleased{Beneficiary: beneficiary, Amount: claimable, Remaining: remaining, TxHash: hash}
	return claimable, rec, evt, nil
}

// RevokeVesting cancels a revocable schedule. Already-vested funds unlock
// for the beneficiary; the unvested remainder returns to the admin. Admin
// only.
func (l *Ledger) RevokeVesting(caller, beneficiary string) (uint64, error) {
	l.mu.Lock()
	returned, rec, err := l.revokeVestingLocked(caller, beneficiary)
	l.mu.Unlock()
	if err != nil {
		return 0, err
	}
	l.finish(rec, nil)
	return returned, nil
}

func (l *Ledger) revokeVestingLocked(caller, beneficiary string) (uint64, AuditEvent, error) {
	release, err := l.guard.Enter()
	if err != nil {
		return 0, AuditEvent{}, err
	}
	defer release()

	if caller != l.admin {
		return 0, AuditEvent{}, common.ErrUnauthorized
	}
	schedule, ok := l.vestingSchedules[beneficiary]
	if !ok {
		return 0, AuditEvent{}, ErrNoVestingSchedule
	}
	if schedule.Revoked {
		return 0, AuditEvent{}, ErrVestingRevoked
	}
	if !schedule.Revocable {
		return 0, AuditEvent{}, ErrVestingNotRevocable
	}

	now := l.clock()
	vested, err := schedule.vestedAt(now)
	if err != nil {
		return 0, AuditEvent{}, err
	}
	// Everything not yet vested goes back to the admin; vested-but-unclaimed
	// funds unlock in place for the beneficiary.
	unvested, err := safemath.Sub(schedule.Total, vested, "revoke unvested")
	if err != nil {
		return 0, AuditEvent{}, err
	}
	stillLocked, err := safemath.Sub(schedule.Total, schedule.Released, "revoke locked")
	if err != nil {
		return 0, AuditEvent{}, err
	}
	newBeneficiary, err := safemath.Sub(l.balances[beneficiary], unvested, "revoke debit")
	if err != nil {
		return 0, AuditEvent{}, err
	}
	newAdmin, err := safemath.Add(l.balances[caller], unvested, "revoke credit")
	if err != nil {
		return 0, AuditEvent{}, err
	}
	newLocked, err := safemath.Sub(l.lockedBalances[beneficiary], stillLocked, "revoke unlock")
	if err != nil {
		return 0, AuditEvent{}, err
	}

	l.balances[beneficiary] = newBeneficiary
	l.balances[caller] = newAdmin
	l.lockedBalances[beneficiary] = newLocked
	if newLocked == 0 {
		delete(l.lockedBalances, beneficiary)
	}
	if l.balances[beneficiary] == 0 && l.lockedBalances[beneficiary] == 0 {
		delete(l.balances, beneficiary)
	}
	schedule.Revoked = true
	delete(l.vestingSchedules, beneficiary)

	hash := l.nextTxHashLocked(KindVestingRevoked, beneficiary, caller, unvested)
	rec := newAuditEvent(KindVestingRevoked, beneficiary, caller, unvested, hash, "", now)
	l.appendEventLocked(rec)
	return unvested, rec, nil
}

// VestingScheduleOf returns a copy of the active schedule for a beneficiary.
func (l *Ledger) VestingScheduleOf(beneficiary string) (VestingSchedule, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	schedule, ok := l.vestingSchedules[beneficiary]
	if !ok {
		return VestingSchedule{}, false
	}
	return *schedule, true
}
