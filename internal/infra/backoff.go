package infra

import "time"

const (
	backoffBase = time.Second
	backoffCap  = time.Minute
)

// CalculateBackoff returns the delay before reconnect attempt n. The delay
// doubles per attempt, from one second up to a one-minute ceiling.
func CalculateBackoff(attempt int) time.Duration {
	d := backoffBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	return d
}
