package token

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"lukechampine.com/blake3"

	"dujyo/core/events"
	"dujyo/native/common"
	"dujyo/native/safemath"
)

const (
	// DefaultMaxSupply is the hard supply cap applied when the constructor
	// receives a zero cap.
	DefaultMaxSupply = 1_000_000_000

	// largeTransferThreshold is the amount at and above which the sender
	// must be KYC verified.
	largeTransferThreshold = 50_000_000

	// dailyLimitWindow is the rolling window for per-account transfer caps.
	dailyLimitWindow = int64(24 * 60 * 60)
)

// RoyaltyRouter resolves a content reference to a royalty recipient and
// share. Implementations must be pure policy lookups: they are consulted
// while the ledger lock is held and must not call back into the ledger.
type RoyaltyRouter interface {
	Route(contentID string, amount uint64) (recipient string, share uint64, err error)
}

// PendingTransfer is a queued transfer waiting out a sender timelock. The
// amount stays on the sender's balance but is locked until execution.
type PendingTransfer struct {
	TxHash    string
	From      string
	To        string
	Amount    uint64
	ExecuteAt time.Time
}

// Stats is a point-in-time summary of ledger state.
type Stats struct {
	Name             string
	Symbol           string
	Decimals         uint8
	TotalSupply      uint64
	MaxSupply        uint64
	Holders          int
	Paused           bool
	EmergencyPaused  bool
	PauseReason      string
	EventCount       int
	PendingTransfers int
	VestingSchedules int
}

// Ledger is the authoritative token balance book. A single mutex serializes
// every check+effect sequence; events and durable audit writes happen only
// after the lock is released so external collaborators never run inside a
// mutation.
type Ledger struct {
	mu sync.Mutex

	name     string
	symbol   string
	decimals uint8

	totalSupply uint64
	maxSupply   uint64
	balances    map[string]uint64

	admin  string
	paused bool
	guard  common.Guard

	lockedBalances   map[string]uint64
	vestingSchedules map[string]*VestingSchedule
	timelockDelays   map[string]time.Duration
	pendingTransfers map[string]*PendingTransfer

	dailyLimits map[string]common.Allowance
	dailyUsage  map[string]common.AllowanceUsage
	kycVerified map[string]bool

	eventLog  []AuditEvent
	txCounter uint64

	clock   func() time.Time
	emitter events.Emitter
	royalty RoyaltyRouter
	audit   *AuditLedger
}

// NewLedger constructs a ledger with the supplied metadata and admin. A zero
// maxSupply falls back to DefaultMaxSupply.
func NewLedger(name, symbol string, decimals uint8, maxSupply uint64, admin string) *Ledger {
	if maxSupply == 0 {
		maxSupply = DefaultMaxSupply
	}
	return &Ledger{
		name:             name,
		symbol:           symbol,
		decimals:         decimals,
		maxSupply:        maxSupply,
		admin:            admin,
		balances:         make(map[string]uint64),
		lockedBalances:   make(map[string]uint64),
		vestingSchedules: make(map[string]*VestingSchedule),
		timelockDelays:   make(map[string]time.Duration),
		pendingTransfers: make(map[string]*PendingTransfer),
		dailyLimits:      make(map[string]common.Allowance),
		dailyUsage:       make(map[string]common.AllowanceUsage),
		kycVerified:      make(map[string]bool),
		clock:            time.Now,
		emitter:          events.NoopEmitter{},
	}
}

// SetEmitter wires the event sink. Passing nil restores the no-op emitter.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetClock overrides the time source. Passing nil restores time.Now.
func (l *Ledger) SetClock(clock func() time.Time) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if clock == nil {
		l.clock = time.Now
		return
	}
	l.clock = clock
}

// SetRoyaltyRouter wires the content royalty policy consulted on transfers
// that carry a content reference.
func (l *Ledger) SetRoyaltyRouter(router RoyaltyRouter) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.royalty = router
}

// SetAuditLedger wires the durable audit sink. Entries are persisted after
// each mutation completes and the lock is released.
func (l *Ledger) SetAuditLedger(audit *AuditLedger) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.audit = audit
}

func validAddress(addr string) bool {
	return strings.TrimSpace(addr) != ""
}

// nextTxHashLocked derives the deterministic transaction hash for the next
// mutation from its kind, counterparties, amount and the ledger counter.
func (l *Ledger) nextTxHashLocked(kind EventKind, from, to string, amount uint64) string {
	l.txCounter++
	payload := fmt.Sprintf("%s|%s|%s|%d|%d", kind, from, to, amount, l.txCounter)
	sum := blake3.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// spendableLocked returns the portion of an account balance not held by a
// vesting lock or a queued timelocked transfer.
func (l *Ledger) spendableLocked(account string) uint64 {
	balance := l.balances[account]
	locked := l.lockedBalances[account]
	if locked >= balance {
		return 0
	}
	return balance - locked
}

// finish emits evt and persists rec once the caller has released the mutex.
func (l *Ledger) finish(rec AuditEvent, evt events.Event) {
	if evt != nil {
		l.emitter.Emit(evt)
	}
	if l.audit != nil {
		// A sink failure must not unwind a committed mutation; the
		// in-memory log already holds the entry.
		_ = l.audit.Append(rec)
	}
}

// Mint credits newly created supply to an account. Admin only.
func (l *Ledger) Mint(caller, to string, amount uint64) (string, error) {
	l.mu.Lock()
	rec, evt, err := l.mintLocked(caller, to, amount)
	l.mu.Unlock()
	if err != nil {
		return "", err
	}
	l.finish(rec, evt)
	return rec.TxHash, nil
}

func (l *Ledger) mintLocked(caller, to string, amount uint64) (AuditEvent, events.Event, error) {
	release, err := l.guard.Enter()
	if err != nil {
		return AuditEvent{}, nil, err
	}
	defer release()

	if caller != l.admin {
		return AuditEvent{}, nil, common.ErrUnauthorized
	}
	if l.paused {
		return AuditEvent{}, nil, ErrTokenPaused
	}
	if !validAddress(to) {
		return AuditEvent{}, nil, ErrInvalidAddress
	}
	if amount == 0 {
		return AuditEvent{}, nil, ErrInvalidAmount
	}
	newSupply, err := safemath.Add(l.totalSupply, amount, "mint supply")
	if err != nil {
		return AuditEvent{}, nil, fmt.Errorf("%w: %w", ErrSupplyCapExceeded, err)
	}
	if newSupply > l.maxSupply {
		return AuditEvent{}, nil, ErrSupplyCapExceeded
	}
	newBalance, err := safemath.Add(l.balances[to], amount, "mint balance")
	if err != nil {
		return AuditEvent{}, nil, err
	}

	l.totalSupply = newSupply
	l.balances[to] = newBalance

	hash := l.nextTxHashLocked(KindMint, "", to, amount)
	rec := newAuditEvent(KindMint, "", to, amount, hash, "", l.clock())
	l.appendEventLocked(rec)
	evt := events.Mint{To: to, Amount: amount, TotalSupply: newSupply, TxHash: hash}
	return rec, evt, nil
}

// Transfer moves spendable funds between accounts.
func (l *Ledger) Transfer(from, to string, amount uint64) (string, error) {
	return l.TransferWithContent(from, to, amount, "")
}

// TransferWithContent moves funds and, when contentID is set and a royalty
// router is wired, redirects the routed share to the royalty recipient.
// Conservation holds: the sender is debited exactly amount and the credits
// sum to amount.
func (l *Ledger) TransferWithContent(from, to string, amount uint64, contentID string) (string, error) {
	l.mu.Lock()
	rec, evt, err := l.transferLocked(from, to, amount, contentID)
	l.mu.Unlock()
	if err != nil {
		return "", err
	}
	l.finish(rec, evt)
	return rec.TxHash, nil
}

func (l *Ledger) transferLocked(from, to string, amount uint64, contentID string) (AuditEvent, events.Event, error) {
	release, err := l.guard.Enter()
	if err != nil {
		return AuditEvent{}, nil, err
	}
	defer release()

	if l.paused {
		return AuditEvent{}, nil, ErrTokenPaused
	}
	if !validAddress(from) || !validAddress(to) {
		return AuditEvent{}, nil, ErrInvalidAddress
	}
	if amount == 0 || from == to {
		return AuditEvent{}, nil, ErrInvalidAmount
	}
	if amount >= largeTransferThreshold && !l.kycVerified[from] {
		return AuditEvent{}, nil, ErrKYCRequired
	}

	now := l.clock()
	var (
		usage    common.AllowanceUsage
		hasLimit bool
	)
	if limit, ok := l.dailyLimits[from]; ok {
		var aerr error
		usage, aerr = common.CheckAllowance(limit, now.Unix(), l.dailyUsage[from], amount)
		if aerr != nil {
			return AuditEvent{}, nil, fmt.Errorf("%w: %w", ErrDailyLimitExceeded, aerr)
		}
		hasLimit = true
	}
	if l.spendableLocked(from) < amount {
		return AuditEvent{}, nil, ErrInsufficientBalance
	}

	var (
		rec AuditEvent
		evt events.Event
	)
	if delay := l.timelockDelays[from]; delay > 0 {
		rec, evt, err = l.queueTimelockedLocked(from, to, amount, now, delay)
	} else {
		rec, evt, err = l.settleTransferLocked(from, to, amount, contentID, now)
	}
	if err != nil {
		return AuditEvent{}, nil, err
	}
	// The usage counter is committed only once the transfer is admitted.
	if hasLimit {
		l.dailyUsage[from] = usage
	}
	return rec, evt, nil
}

// settleTransferLocked applies the balance effects of an admitted transfer,
// splitting the credit when a royalty route resolves.
func (l *Ledger) settleTransferLocked(from, to string, amount uint64, contentID string, now time.Time) (AuditEvent, events.Event, error) {
	recipientAmount := amount
	royaltyShare := uint64(0)
	royaltyTo := ""
	if contentID != "" && l.royalty != nil {
		recipient, share, err := l.royalty.Route(contentID, amount)
		if err != nil {
			return AuditEvent{}, nil, fmt.Errorf("token: royalty route: %w", err)
		}
		if share > 0 && validAddress(recipient) && recipient != from {
			if share > amount {
				return AuditEvent{}, nil, fmt.Errorf("token: royalty route: %w", ErrInvalidAmount)
			}
			royaltyShare = share
			royaltyTo = recipient
			recipientAmount = amount - share
		}
	}

	newFrom, err := safemath.Sub(l.balances[from], amount, "transfer debit")
	if err != nil {
		return AuditEvent{}, nil, fmt.Errorf("%w: %w", ErrInsufficientBalance, err)
	}
	newTo, err := safemath.Add(l.balances[to], recipientAmount, "transfer credit")
	if err != nil {
		return AuditEvent{}, nil, err
	}
	var newRoyalty uint64
	if royaltyShare > 0 {
		newRoyalty, err = safemath.Add(l.balances[royaltyTo], royaltyShare, "royalty credit")
		if err != nil {
			return AuditEvent{}, nil, err
		}
	}

	l.balances[from] = newFrom
	l.balances[to] = newTo
	if royaltyShare > 0 {
		l.balances[royaltyTo] = newRoyalty
	}
	if l.balances[from] == 0 && l.lockedBalances[from] == 0 {
		delete(l.balances, from)
	}

	hash := l.nextTxHashLocked(KindTransfer, from, to, amount)
	rec := newAuditEvent(KindTransfer, from, to, amount, hash, contentID, now)
	l.appendEventLocked(rec)
	evt := events.Transfer{From: from, To: to, Amount: amount, ContentID: contentID, TxHash: hash}
	return rec, evt, nil
}

// queueTimelockedLocked parks an admitted transfer behind the sender's
// timelock delay. The amount is locked on the sender until execution.
func (l *Ledger) queueTimelockedLocked(from, to string, amount uint64, now time.Time, delay time.Duration) (AuditEvent, events.Event, error) {
	newLocked, err := safemath.Add(l.lockedBalances[from], amount, "timelock lock")
	if err != nil {
		return AuditEvent{}, nil, err
	}
	l.lockedBalances[from] = newLocked

	hash := l.nextTxHashLocked(KindTimelockQueued, from, to, amount)
	l.pendingTransfers[hash] = &PendingTransfer{
		TxHash:    hash,
		From:      from,
		To:        to,
		Amount:    amount,
		ExecuteAt: now.Add(delay),
	}
	rec := newAuditEvent(KindTimelockQueued, from, to, amount, hash, "", now)
	l.appendEventLocked(rec)
	return rec, nil, nil
}

// EmergencyPause halts all guarded operations. Admin only; reason required.
func (l *Ledger) EmergencyPause(caller, reason string) error {
	l.mu.Lock()
	rec, evt, err := l.emergencyPauseLocked(caller, reason)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.finish(rec, evt)
	return nil
}

func (l *Ledger) emergencyPauseLocked(caller, reason string) (AuditEvent, events.Event, error) {
	if caller != l.admin {
		return AuditEvent{}, nil, common.ErrUnauthorized
	}
	if strings.TrimSpace(reason) == "" {
		return AuditEvent{}, nil, fmt.Errorf("token: pause reason required: %w", ErrInvalidAmount)
	}
	l.guard.Pause(reason)
	rec := newAuditEvent(KindEmergencyPause, caller, "", 0, "", reason, l.clock())
	l.appendEventLocked(rec)
	evt := events.EmergencyPause{Module: "token", Reason: reason, Caller: caller}
	return rec, evt, nil
}

// ResumeFromEmergency lifts the emergency pause. Admin only.
func (l *Ledger) ResumeFromEmergency(caller string) error {
	l.mu.Lock()
	rec, evt, err := l.resumeLocked(caller)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.finish(rec, evt)
	return nil
}

func (l *Ledger) resumeLocked(caller string) (AuditEvent, events.Event, error) {
	if caller != l.admin {
		return AuditEvent{}, nil, common.ErrUnauthorized
	}
	l.guard.Resume()
	rec := newAuditEvent(KindEmergencyResume, caller, "", 0, "", "", l.clock())
	l.appendEventLocked(rec)
	evt := events.EmergencyResume{Module: "token", Caller: caller}
	return rec, evt, nil
}

// Pause sets the soft admin pause. Unlike the emergency guard it carries no
// reason and is intended for planned maintenance windows.
func (l *Ledger) Pause(caller string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.admin {
		return common.ErrUnauthorized
	}
	l.paused = true
	l.appendEventLocked(newAuditEvent(KindPause, caller, "", 0, "", "", l.clock()))
	return nil
}

// Unpause clears the soft admin pause.
func (l *Ledger) Unpause(caller string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.admin {
		return common.ErrUnauthorized
	}
	l.paused = false
	l.appendEventLocked(newAuditEvent(KindUnpause, caller, "", 0, "", "", l.clock()))
	return nil
}

// SetKYCVerified toggles the verification flag gating large transfers.
// Admin only.
func (l *Ledger) SetKYCVerified(caller, account string, verified bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.admin {
		return common.ErrUnauthorized
	}
	if !validAddress(account) {
		return ErrInvalidAddress
	}
	if verified {
		l.kycVerified[account] = true
		return nil
	}
	delete(l.kycVerified, account)
	return nil
}

// SetDailyLimit configures the rolling 24h transfer cap for an account. A
// zero cap removes the limit. Admin only.
func (l *Ledger) SetDailyLimit(caller, account string, cap uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.admin {
		return common.ErrUnauthorized
	}
	if !validAddress(account) {
		return ErrInvalidAddress
	}
	if cap == 0 {
		delete(l.dailyLimits, account)
		delete(l.dailyUsage, account)
		return nil
	}
	l.dailyLimits[account] = common.Allowance{Cap: cap, WindowSeconds: dailyLimitWindow}
	return nil
}

// BalanceOf returns the full balance of an account, locked funds included.
func (l *Ledger) BalanceOf(account string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// LockedBalanceOf returns the portion of an account balance held by vesting
// schedules or queued timelocked transfers.
func (l *Ledger) LockedBalanceOf(account string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lockedBalances[account]
}

// SpendableBalanceOf returns balance minus locked funds.
func (l *Ledger) SpendableBalanceOf(account string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.spendableLocked(account)
}

// TotalSupply returns the current circulating supply.
func (l *Ledger) TotalSupply() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalSupply
}

// MaxSupply returns the hard supply cap.
func (l *Ledger) MaxSupply() uint64 { return l.maxSupply }

// AuditLog returns up to limit audit entries, newest first. A zero or
// negative limit returns the full retained log.
func (l *Ledger) AuditLog(limit int) []AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.eventLog)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]AuditEvent, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, l.eventLog[i])
	}
	return out
}

// Stats returns a point-in-time summary of the ledger.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	paused, reason := l.guard.Paused()
	return Stats{
		Name:             l.name,
		Symbol:           l.symbol,
		Decimals:         l.decimals,
		TotalSupply:      l.totalSupply,
		MaxSupply:        l.maxSupply,
		Holders:          len(l.balances),
		Paused:           l.paused,
		EmergencyPaused:  paused,
		PauseReason:      reason,
		EventCount:       len(l.eventLog),
		PendingTransfers: len(l.pendingTransfers),
		VestingSchedules: len(l.vestingSchedules),
	}
}
