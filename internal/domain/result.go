package domain

import "github.com/shopspring/decimal"

// ExecStatus is the terminal outcome of one executePositionAction call.
type ExecStatus string

const (
	ExecSuccess           ExecStatus = "success"
	ExecPartialThenMarket ExecStatus = "partial_limit_full_market"
	ExecTimeoutThenMarket ExecStatus = "timeout_full_market"
	ExecHold              ExecStatus = "hold"
	ExecFailed            ExecStatus = "failed"
)

// ExecutionResult is the only thing that crosses the engine boundary.
// Every path through the engine terminates in one, including partial
// successes. Warning carries non-fatal problems such as a failed
// stop-loss placement.
type ExecutionResult struct {
	Status    ExecStatus
	FilledQty decimal.Decimal
	AvgPrice  decimal.Decimal
	Reason    string
	Warning   string
}

// Filled checks if the action changed the position.
func (r ExecutionResult) Filled() bool {
	switch r.Status {
	case ExecSuccess, ExecPartialThenMarket, ExecTimeoutThenMarket:
		return true
	}
	return false
}

// HoldResult is the short-circuit result for a hold instruction.
func HoldResult(reason string) ExecutionResult {
	return ExecutionResult{Status: ExecHold, Reason: reason}
}

// FailResult wraps an error into a terminal failed result.
func FailResult(err error) ExecutionResult {
	return ExecutionResult{Status: ExecFailed, Reason: err.Error()}
}
