package treasury

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"lukechampine.com/blake3"

	"dujyo/core/events"
	"dujyo/native/common"
)

var (
	// ErrNotOwner rejects proposals and signatures from non-owners.
	ErrNotOwner = errors.New("treasury: caller is not an owner")
	// ErrInvalidThreshold rejects wallet configs the owners cannot satisfy.
	ErrInvalidThreshold = errors.New("treasury: invalid threshold")
	// ErrInvalidRecipient rejects blank payout targets.
	ErrInvalidRecipient = errors.New("treasury: invalid recipient")
	// ErrInvalidAmount rejects zero-value proposals.
	ErrInvalidAmount = errors.New("treasury: invalid amount")
	// ErrTransactionNotFound is returned for unknown proposal ids.
	ErrTransactionNotFound = errors.New("treasury: transaction not found")
	// ErrAlreadyConfirmed rejects a second signature from the same owner.
	ErrAlreadyConfirmed = errors.New("treasury: already confirmed")
	// ErrAlreadyExecuted rejects signatures on settled proposals.
	ErrAlreadyExecuted = errors.New("treasury: already executed")
	// ErrTransactionExpired rejects signatures on proposals past the
	// pending TTL.
	ErrTransactionExpired = errors.New("treasury: transaction expired")
	// ErrDailyLimitExceeded rejects settlement past the 24h payout cap.
	ErrDailyLimitExceeded = errors.New("treasury: daily limit exceeded")
	// ErrWalletNotFound is returned by the manager for unknown addresses.
	ErrWalletNotFound = errors.New("treasury: wallet not found")
)

const (
	// pendingTTL is how long an unexecuted proposal stays signable before
	// the sweep collects it.
	pendingTTL = 7 * 24 * time.Hour
	// dailyWindow is the rolling window for the payout cap.
	dailyWindow = int64(24 * 60 * 60)
)

// Settler moves approved funds out of the treasury account. The ledger
// implements it; the wallet never touches balances directly.
type Settler interface {
	Settle(from, to string, amount uint64) (txHash string, err error)
}

// Transaction is a payout proposal working its way toward the signature
// threshold.
type Transaction struct {
	ID            string
	To            string
	Amount        uint64
	Memo          string
	Proposer      string
	Confirmations map[string]bool
	CreatedAt     time.Time
	Executed      bool
	ExecutedAt    time.Time
	SettleHash    string
}

func (tx *Transaction) confirmationCount() int {
	count := 0
	for _, ok := range tx.Confirmations {
		if ok {
			count++
		}
	}
	return count
}

// Wallet is an M-of-N treasury account. Proposals execute automatically once
// the threshold is reached, subject to the rolling daily payout cap.
type Wallet struct {
	mu sync.Mutex

	address   string
	owners    map[string]struct{}
	threshold int
	nonce     uint64

	limit common.Allowance
	usage common.AllowanceUsage

	pending  map[string]*Transaction
	executed []Transaction

	settler Settler
	clock   func() time.Time
	emitter events.Emitter
}

// NewWallet constructs a wallet for the given owners. dailyLimit of zero
// disables the payout cap.
func NewWallet(address string, owners []string, threshold int, dailyLimit uint64, settler Settler) (*Wallet, error) {
	ownerSet := make(map[string]struct{}, len(owners))
	for _, owner := range owners {
		owner = strings.TrimSpace(owner)
		if owner == "" {
			continue
		}
		ownerSet[owner] = struct{}{}
	}
	if threshold < 1 || threshold > len(ownerSet) {
		return nil, ErrInvalidThreshold
	}
	if strings.TrimSpace(address) == "" {
		return nil, ErrInvalidRecipient
	}
	return &Wallet{
		address:   address,
		owners:    ownerSet,
		threshold: threshold,
		limit:     common.Allowance{Cap: dailyLimit, WindowSeconds: dailyWindow},
		pending:   make(map[string]*Transaction),
		settler:   settler,
		clock:     time.Now,
		emitter:   events.NoopEmitter{},
	}, nil
}

// SetClock overrides the time source. Passing nil restores time.Now.
func (w *Wallet) SetClock(clock func() time.Time) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if clock == nil {
		w.clock = time.Now
		return
	}
	w.clock = clock
}

// SetEmitter wires the event sink. Passing nil restores the no-op emitter.
func (w *Wallet) SetEmitter(emitter events.Emitter) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if emitter == nil {
		w.emitter = events.NoopEmitter{}
		return
	}
	w.emitter = emitter
}

// Address returns the treasury account this wallet controls.
func (w *Wallet) Address() string { return w.address }

// Owners returns the owner set, sorted.
func (w *Wallet) Owners() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.owners))
	for owner := range w.owners {
		out = append(out, owner)
	}
	sort.Strings(out)
	return out
}

func (w *Wallet) isOwnerLocked(account string) bool {
	_, ok := w.owners[account]
	return ok
}

// transactionID derives the content-addressed proposal id. The wallet nonce
// makes repeat payouts to the same recipient distinct.
func (w *Wallet) transactionID(to string, amount uint64, memo string, nonce uint64) string {
	payload := fmt.Sprintf("%s|%s|%d|%s|%d", w.address, to, amount, memo, nonce)
	sum := blake3.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// CreateTransaction proposes a payout. The proposer's signature is counted
// immediately, so a 1-of-N wallet settles on proposal.
func (w *Wallet) CreateTransaction(owner, to string, amount uint64, memo string) (string, error) {
	w.mu.Lock()
	id, evt, err := w.createLocked(owner, to, amount, memo)
	w.mu.Unlock()
	if err != nil {
		return "", err
	}
	if evt != nil {
		w.emitter.Emit(evt)
	}
	return id, nil
}

func (w *Wallet) createLocked(owner, to string, amount uint64, memo string) (string, events.Event, error) {
	w.gcLocked()
	if !w.isOwnerLocked(owner) {
		return "", nil, ErrNotOwner
	}
	if strings.TrimSpace(to) == "" {
		return "", nil, ErrInvalidRecipient
	}
	if amount == 0 {
		return "", nil, ErrInvalidAmount
	}
	now := w.clock()
	// Reject proposals that could never clear today's window; the usage is
	// only committed when the transaction actually settles.
	if _, err := common.CheckAllowance(w.limit, now.Unix(), w.usage, amount); err != nil {
		return "", nil, ErrDailyLimitExceeded
	}

	w.nonce++
	tx := &Transaction{
		ID:            w.transactionID(to, amount, memo, w.nonce),
		To:            to,
		Amount:        amount,
		Memo:          memo,
		Proposer:      owner,
		Confirmations: map[string]bool{owner: true},
		CreatedAt:     now,
	}
	w.pending[tx.ID] = tx

	evt := events.Event(events.TreasuryProposed{
		Wallet:    w.address,
		To:        to,
		Amount:    amount,
		Requester: owner,
		TxHash:    tx.ID,
	})
	if tx.confirmationCount() >= w.threshold {
		execEvt, err := w.executeLocked(tx, now)
		if err != nil {
			delete(w.pending, tx.ID)
			return "", nil, err
		}
		return tx.ID, execEvt, nil
	}
	return tx.ID, evt, nil
}

// SignTransaction adds an owner's confirmation and settles the proposal once
// the threshold is met.
func (w *Wallet) SignTransaction(owner, id string) error {
	w.mu.Lock()
	evt, err := w.signLocked(owner, id)
	w.mu.Unlock()
	if err != nil {
		return err
	}
	if evt != nil {
		w.emitter.Emit(evt)
	}
	return nil
}

func (w *Wallet) signLocked(owner, id string) (events.Event, error) {
	if !w.isOwnerLocked(owner) {
		return nil, ErrNotOwner
	}
	tx, ok := w.pending[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	now := w.clock()
	if now.Sub(tx.CreatedAt) > pendingTTL {
		delete(w.pending, id)
		return nil, ErrTransactionExpired
	}
	w.gcLocked()
	if tx.Executed {
		return nil, ErrAlreadyExecuted
	}
	if tx.Confirmations[owner] {
		return nil, ErrAlreadyConfirmed
	}
	tx.Confirmations[owner] = true
	if tx.confirmationCount() < w.threshold {
		return nil, nil
	}
	return w.executeLocked(tx, now)
}

// executeLocked settles a fully signed proposal. The daily cap is charged
// before the settler runs; a settlement failure refunds it.
func (w *Wallet) executeLocked(tx *Transaction, now time.Time) (events.Event, error) {
	usage, err := common.CheckAllowance(w.limit, now.Unix(), w.usage, tx.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDailyLimitExceeded, err)
	}
	if w.settler == nil {
		return nil, fmt.Errorf("treasury: no settler wired")
	}
	settleHash, err := w.settler.Settle(w.address, tx.To, tx.Amount)
	if err != nil {
		return nil, fmt.Errorf("treasury: settle: %w", err)
	}

	w.usage = usage
	tx.Executed = true
	tx.ExecutedAt = now
	tx.SettleHash = settleHash
	delete(w.pending, tx.ID)
	w.executed = append(w.executed, *tx)

	return events.TreasuryExecuted{
		Wallet:     w.address,
		To:         tx.To,
		Amount:     tx.Amount,
		Signatures: tx.confirmationCount(),
		TxHash:     settleHash,
	}, nil
}

// gcLocked drops pending proposals older than the TTL.
func (w *Wallet) gcLocked() {
	now := w.clock()
	for id, tx := range w.pending {
		if now.Sub(tx.CreatedAt) > pendingTTL {
			delete(w.pending, id)
		}
	}
}

// PendingTransactions returns copies of the live proposals, oldest first.
func (w *Wallet) PendingTransactions() []Transaction {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gcLocked()
	out := make([]Transaction, 0, len(w.pending))
	for _, tx := range w.pending {
		clone := *tx
		clone.Confirmations = make(map[string]bool, len(tx.Confirmations))
		for owner, ok := range tx.Confirmations {
			clone.Confirmations[owner] = ok
		}
		out = append(out, clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ExecutedTransactions returns the settlement history, oldest first.
func (w *Wallet) ExecutedTransactions() []Transaction {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Transaction{}, w.executed...)
}

// Manager tracks treasury wallets by deterministic address.
type Manager struct {
	mu      sync.Mutex
	wallets map[string]*Wallet
	nonce   uint64
}

// NewManager returns an empty wallet registry.
func NewManager() *Manager {
	return &Manager{wallets: make(map[string]*Wallet)}
}

// CreateWallet derives a deterministic address from the creator and registry
// nonce, constructs the wallet and registers it.
func (m *Manager) CreateWallet(creator string, owners []string, threshold int, dailyLimit uint64, settler Settler) (*Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonce++
	sum := blake3.Sum256([]byte(fmt.Sprintf("treasury|%s|%d", creator, m.nonce)))
	address := "treasury-" + hex.EncodeToString(sum[:8])
	wallet, err := NewWallet(address, owners, threshold, dailyLimit, settler)
	if err != nil {
		m.nonce--
		return nil, err
	}
	m.wallets[address] = wallet
	return wallet, nil
}

// Wallet looks up a registered wallet by address.
func (m *Manager) Wallet(address string) (*Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wallet, ok := m.wallets[address]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return wallet, nil
}
