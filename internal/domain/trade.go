package domain

import "time"

// TradeRecord is one row of trade history: the instruction that was acted
// on, the account state at decision time, and how execution went. Written
// after every cycle and fed back to the advisor for reflection.
type TradeRecord struct {
	ID         int64
	Timestamp  time.Time
	Action     Action
	Percentage int
	Reason     string
	Balance    string
	Price      string
	Reflection string
	Status     ExecStatus
	Detail     string
}
