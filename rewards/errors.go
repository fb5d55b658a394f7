package rewards

import "errors"

// The engine reports failures through a fixed taxonomy so that callers can
// discriminate the cause with errors.Is instead of parsing message text.
var (
	// Validation failures: the request itself is malformed.
	ErrInvalidAmount   = errors.New("rewards: amount must be positive")
	ErrInvalidDuration = errors.New("rewards: duration must be positive")
	ErrInvalidAsset    = errors.New("rewards: invalid reward asset")
	ErrAssetExists     = errors.New("rewards: reward asset already registered")
	ErrAssetUnknown    = errors.New("rewards: reward asset not registered")
	ErrZeroRate        = errors.New("rewards: deposit too small for the configured duration")
	ErrNoStake         = errors.New("rewards: no stake to distribute against")

	// ErrNotAuthorized rejects gated operations from non-admin callers.
	ErrNotAuthorized = errors.New("rewards: caller is not the administrator")

	// ErrPeriodActive rejects duration changes while a period is still running.
	ErrPeriodActive = errors.New("rewards: distribution period still active")

	// ErrInsufficientStake rejects unstaking more than the recorded balance.
	ErrInsufficientStake = errors.New("rewards: unstake exceeds staked balance")

	// ErrTransferMismatch rejects deposits where the custody vault reported a
	// received amount different from the requested one.
	ErrTransferMismatch = errors.New("rewards: custody moved unexpected amount")

	// ErrReentrantCall rejects nested entry into a mutating operation while
	// another one is still in flight on the same engine instance.
	ErrReentrantCall = errors.New("rewards: reentrant call rejected")

	// ErrNilVault guards engine construction against missing collaborators.
	ErrNilVault = errors.New("rewards: custody vault not configured")
)
