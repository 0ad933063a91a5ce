package events

import "strconv"

const (
	// TypeTreasuryProposed is emitted when a multisig transaction is created.
	TypeTreasuryProposed = "treasury.proposed"
	// TypeTreasuryExecuted is emitted when a multisig transaction reaches its
	// signature threshold and settles.
	TypeTreasuryExecuted = "treasury.executed"
)

// TreasuryProposed captures a pending multisig payment awaiting signatures.
type TreasuryProposed struct {
	Wallet    string
	To        string
	Amount    uint64
	Requester string
	TxHash    string
}

func (TreasuryProposed) EventType() string { return TypeTreasuryProposed }

func (e TreasuryProposed) Attributes() map[string]string {
	return map[string]string{
		"wallet":    e.Wallet,
		"to":        e.To,
		"amount":    strconv.FormatUint(e.Amount, 10),
		"requester": e.Requester,
		"txHash":    e.TxHash,
	}
}

// TreasuryExecuted captures a settled multisig payment.
type TreasuryExecuted struct {
	Wallet     string
	To         string
	Amount     uint64
	Signatures int
	TxHash     string
}

func (TreasuryExecuted) EventType() string { return TypeTreasuryExecuted }

func (e TreasuryExecuted) Attributes() map[string]string {
	return map[string]string{
		"wallet":     e.Wallet,
		"to":         e.To,
		"amount":     strconv.FormatUint(e.Amount, 10),
		"signatures": strconv.Itoa(e.Signatures),
		"txHash":     e.TxHash,
	}
}
