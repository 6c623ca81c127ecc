package domain

import "fmt"

// Action is the high-level intent of a trading instruction.
type Action string

const (
	ActionOpenLong   Action = "open_long"
	ActionOpenShort  Action = "open_short"
	ActionCloseLong  Action = "close_long"
	ActionCloseShort Action = "close_short"
	ActionHold       Action = "hold"
)

// ParseAction converts an advisor string into an Action.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionOpenLong, ActionOpenShort, ActionCloseLong, ActionCloseShort, ActionHold:
		return Action(s), nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// IsOpen checks if the action opens or increases a position.
func (a Action) IsOpen() bool {
	return a == ActionOpenLong || a == ActionOpenShort
}

// IsClose checks if the action reduces or exits a position.
func (a Action) IsClose() bool {
	return a == ActionCloseLong || a == ActionCloseShort
}

// TradingInstruction is the abstract order the advisor hands to the engine.
// Percentage is the fraction of capital (opens) or of the position (closes)
// to use. Leverage applies to open actions only. Reason is opaque to the
// engine and carried for logging and trade history.
type TradingInstruction struct {
	Action     Action
	Percentage int
	Leverage   int
	Reason     string
}

// Validate rejects instructions the engine cannot size.
func (i TradingInstruction) Validate() error {
	if _, err := ParseAction(string(i.Action)); err != nil {
		return err
	}
	if i.Action == ActionHold {
		return nil
	}
	if i.Percentage < 1 || i.Percentage > 100 {
		return fmt.Errorf("percentage must be in [1,100], got %d", i.Percentage)
	}
	if i.Action.IsOpen() && i.Leverage <= 0 {
		return fmt.Errorf("leverage must be positive for %s, got %d", i.Action, i.Leverage)
	}
	return nil
}
