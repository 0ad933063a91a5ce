package token

import (
	"time"

	"github.com/google/uuid"
)

// EventKind labels an audit log entry. The set is closed; every mutating
// operation records exactly one entry with its kind.
type EventKind string

const (
	KindMint            EventKind = "mint"
	KindTransfer        EventKind = "transfer"
	KindEmergencyPause  EventKind = "emergency_pause"
	KindEmergencyResume EventKind = "emergency_resume"
	KindPause           EventKind = "pause"
	KindUnpause         EventKind = "unpause"
	KindVestingCreated  EventKind = "vesting_created"
	KindVestingReleased EventKind = "vesting_released"
	KindVestingRevoked  EventKind = "vesting_revoked"
	KindTimelockQueued  EventKind = "timelock_queued"
	KindTimelockExec    EventKind = "timelock_executed"
)

// maxAuditEvents caps the in-memory audit ring. Older entries are evicted
// once the cap is reached; the persistent ledger keeps the full history.
const maxAuditEvents = 10_000

// AuditEvent is one append-only record of a state transition. TxHash is the
// deterministic transaction hash; ID is assigned at record time.
type AuditEvent struct {
	ID        string
	Kind      EventKind
	From      string
	To        string
	Amount    uint64
	TxHash    string
	Reason    string
	Timestamp time.Time
}

func newAuditEvent(kind EventKind, from, to string, amount uint64, txHash, reason string, at time.Time) AuditEvent {
	return AuditEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		From:      from,
		To:        to,
		Amount:    amount,
		TxHash:    txHash,
		Reason:    reason,
		Timestamp: at,
	}
}

// appendEventLocked records evt on the in-memory ring, evicting the oldest
// entry once the cap is hit. Callers must hold the ledger mutex.
func (l *Ledger) appendEventLocked(evt AuditEvent) {
	if len(l.eventLog) >= maxAuditEvents {
		l.eventLog = append(l.eventLog[1:], evt)
		return
	}
	l.eventLog = append(l.eventLog, evt)
}
