package token

import (
	"fmt"
	"sort"
	"time"

	"dujyo/core/events"
	"dujyo/native/common"
	"dujyo/native/safemath"
)

// SetTimelockDelay configures the execution delay applied to future
// transfers from an account. A zero delay removes the timelock. Admin only.
func (l *Ledger) SetTimelockDelay(caller, account string, delay time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.admin {
		return common.ErrUnauthorized
	}
	if !validAddress(account) {
		return ErrInvalidAddress
	}
	if delay < 0 {
		return ErrInvalidAmount
	}
	if delay == 0 {
		delete(l.timelockDelays, account)
		return nil
	}
	l.timelockDelays[account] = delay
	return nil
}

// PendingTransferOf returns a copy of a queued transfer by hash.
func (l *Ledger) PendingTransferOf(txHash string) (PendingTransfer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pending, ok := l.pendingTransfers[txHash]
	if !ok {
		return PendingTransfer{}, false
	}
	return *pending, true
}

// CancelPendingTransfer drops a queued transfer and unlocks the funds. The
// sender or the admin may cancel.
func (l *Ledger) CancelPendingTransfer(caller, txHash string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	pending, ok := l.pendingTransfers[txHash]
	if !ok {
		return ErrPendingTransferNotFound
	}
	if caller != pending.From && caller != l.admin {
		return common.ErrUnauthorized
	}
	newLocked, err := safemath.Sub(l.lockedBalances[pending.From], pending.Amount, "timelock cancel")
	if err != nil {
		return err
	}
	l.lockedBalances[pending.From] = newLocked
	if newLocked == 0 {
		delete(l.lockedBalances, pending.From)
	}
	delete(l.pendingTransfers, txHash)
	return nil
}

// ExecutePendingTransfers settles every queued transfer whose delay has
// elapsed, oldest first, and returns the number executed. Transfers that
// fail to settle stay queued.
func (l *Ledger) ExecutePendingTransfers() (int, error) {
	l.mu.Lock()
	executed, recs, evts, err := l.executePendingLocked()
	l.mu.Unlock()
	if err != nil {
		return executed, err
	}
	for i := range recs {
		l.finish(recs[i], evts[i])
	}
	return executed, nil
}

func (l *Ledger) executePendingLocked() (int, []AuditEvent, []events.Event, error) {
	release, err := l.guard.Enter()
	if err != nil {
		return 0, nil, nil, err
	}
	defer release()

	now := l.clock()
	due := make([]*PendingTransfer, 0, len(l.pendingTransfers))
	for _, pending := range l.pendingTransfers {
		if !now.Before(pending.ExecuteAt) {
			due = append(due, pending)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ExecuteAt.Before(due[j].ExecuteAt) })

	var (
		recs []AuditEvent
		evts []events.Event
	)
	executed := 0
	for _, pending := range due {
		rec, evt, err := l.settlePendingLocked(pending, now)
		if err != nil {
			// Leave the entry queued; the next sweep retries it.
			continue
		}
		recs = append(recs, rec)
		evts = append(evts, evt)
		executed++
	}
	return executed, recs, evts, nil
}

func (l *Ledger) settlePendingLocked(pending *PendingTransfer, now time.Time) (AuditEvent, events.Event, error) {
	newLocked, err := safemath.Sub(l.lockedBalances[pending.From], pending.Amount, "timelock unlock")
	if err != nil {
		return AuditEvent{}, nil, err
	}
	newFrom, err := safemath.Sub(l.balances[pending.From], pending.Amount, "timelock debit")
	if err != nil {
		return AuditEvent{}, nil, fmt.Errorf("%w: %w", ErrInsufficientBalance, err)
	}
	newTo, err := safemath.Add(l.balances[pending.To], pending.Amount, "timelock credit")
	if err != nil {
		return AuditEvent{}, nil, err
	}

	l.lockedBalances[pending.From] = newLocked
	if newLocked == 0 {
		delete(l.lockedBalances, pending.From)
	}
	l.balances[pending.From] = newFrom
	l.balances[pending.To] = newTo
	if l.balances[pending.From] == 0 && l.lockedBalances[pending.From] == 0 {
		delete(l.balances, pending.From)
	}
	delete(l.pendingTransfers, pending.TxHash)

	rec := newAuditEvent(KindTimelockExec, pending.From, pending.To, pending.Amount, pending.TxHash, "", now)
	l.appendEventLocked(rec)
	evt := events.Transfer{From: pending.From, To: pending.To, Amount: pending.Amount, TxHash: pending.TxHash}
	return rec, evt, nil
}
