package domain

import "errors"

// Error taxonomy for the execution engine. The retry controller and the
// facade branch on these with errors.Is; the exchange facade wraps raw
// broker errors into one of them.
var (
	// ErrRulesUnavailable aborts the cycle: the engine refuses to operate
	// on guessed constraints.
	ErrRulesUnavailable = errors.New("trading rules unavailable")

	// ErrNoPositionToClose fails a close instruction when the account is flat.
	ErrNoPositionToClose = errors.New("no position to close")

	// ErrInsufficientMargin is the only recoverable exchange error: the
	// retry controller reduces quantity and resubmits.
	ErrInsufficientMargin = errors.New("insufficient margin")

	// ErrExchangeRejected covers every other broker rejection. Not retried.
	ErrExchangeRejected = errors.New("exchange rejected request")
)
