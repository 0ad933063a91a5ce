package events

import "strconv"

const (
	// TypeMint is emitted when new supply is credited to an account.
	TypeMint = "token.mint"
	// TypeTransfer is emitted for balance movements between accounts.
	TypeTransfer = "token.transfer"
	// TypeVestingCreated is emitted when a vesting schedule locks funds.
	TypeVestingCreated = "token.vesting.created"
	// TypeVestingReleased is emitted when vested funds unlock.
	TypeVestingReleased = "token.vesting.released"
)

// Mint captures an admin mint of new supply.
type Mint struct {
	To          string
	Amount      uint64
	TotalSupply uint64
	TxHash      string
}

func (Mint) EventType() string { return TypeMint }

func (e Mint) Attributes() map[string]string {
	return map[string]string{
		"to":          e.To,
		"amount":      strconv.FormatUint(e.Amount, 10),
		"totalSupply": strconv.FormatUint(e.TotalSupply, 10),
		"txHash":      e.TxHash,
	}
}

// Transfer captures a balance movement, including the optional content
// reference that routed a royalty split.
type Transfer struct {
	From      string
	To        string
	Amount    uint64
	ContentID string
	TxHash    string
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Attributes() map[string]string {
	attrs := map[string]string{
		"from":   e.From,
		"to":     e.To,
		"amount": strconv.FormatUint(e.Amount, 10),
		"txHash": e.TxHash,
	}
	if e.ContentID != "" {
		attrs["contentId"] = e.ContentID
	}
	return attrs
}

// VestingCreated captures a new vesting schedule.
type VestingCreated struct {
	Beneficiary string
	Amount      uint64
	TxHash      string
}

func (VestingCreated) EventType() string { return TypeVestingCreated }

func (e VestingCreated) Attributes() map[string]string {
	return map[string]string{
		"beneficiary": e.Beneficiary,
		"amount":      strconv.FormatUint(e.Amount, 10),
		"txHash":      e.TxHash,
	}
}

// VestingReleased captures funds unlocking from a schedule.
type VestingReleased struct {
	Beneficiary string
	Amount      uint64
	Remaining   uint64
	TxHash      string
}

func (VestingReleased) EventType() string { return TypeVestingReleased }

func (e VestingReleased) Attributes() map[string]string {
	return map[string]string{
		"beneficiary": e.Beneficiary,
		"amount":      strconv.FormatUint(e.Amount, 10),
		"remaining":   strconv.FormatUint(e.Remaining, 10),
		"txHash":      e.TxHash,
	}
}
