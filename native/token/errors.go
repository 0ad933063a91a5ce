package token

import "errors"

var (
	// ErrInvalidAmount rejects zero amounts and self transfers.
	ErrInvalidAmount = errors.New("token: invalid amount")
	// ErrInvalidAddress rejects blank account identifiers.
	ErrInvalidAddress = errors.New("token: invalid address")
	// ErrSupplyCapExceeded rejects mints that would cross the max supply.
	ErrSupplyCapExceeded = errors.New("token: supply cap exceeded")
	// ErrInsufficientBalance rejects debits beyond the spendable balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	// ErrTokenPaused rejects operations while the soft admin pause is set.
	ErrTokenPaused = errors.New("token: paused")
	// ErrKYCRequired rejects large transfers from unverified accounts.
	ErrKYCRequired = errors.New("token: kyc verification required")
	// ErrDailyLimitExceeded rejects transfers beyond the daily allowance.
	ErrDailyLimitExceeded = errors.New("token: daily transfer limit exceeded")

	// ErrVestingExists rejects a second active schedule for a beneficiary.
	ErrVestingExists = errors.New("token: vesting schedule already exists")
	// ErrNoVestingSchedule is returned when no schedule is configured.
	ErrNoVestingSchedule = errors.New("token: no vesting schedule")
	// ErrVestingRevoked rejects releases from a revoked schedule.
	ErrVestingRevoked = errors.New("token: vesting schedule revoked")
	// ErrVestingNotRevocable rejects revocation of a non-revocable schedule.
	ErrVestingNotRevocable = errors.New("token: vesting schedule not revocable")
	// ErrCliffNotReached rejects releases before the cliff has elapsed.
	ErrCliffNotReached = errors.New("token: cliff period has not ended")
	// ErrNothingToRelease is returned when no vested funds are claimable.
	ErrNothingToRelease = errors.New("token: no tokens available for release")

	// ErrPendingTransferNotFound is returned for unknown timelock hashes.
	ErrPendingTransferNotFound = errors.New("token: pending transfer not found")
)
