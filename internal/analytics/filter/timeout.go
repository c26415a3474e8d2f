package filter

import (
	"fmt"
	"math"
	"strconv"
)

// Statement timeout bounds in milliseconds.
const (
	MinTimeoutMS = 1000
	MaxTimeoutMS = 300000
)

// ValidateTimeout accepts an integral millisecond count in [MinTimeoutMS, MaxTimeoutMS].
func ValidateTimeout(ms float64) (int, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms != math.Trunc(ms) {
		return 0, &ValidationError{
			Field:  "statement_timeout_ms",
			Reason: fmt.Sprintf("must be an integer, got %v", ms),
		}
	}
	if ms < MinTimeoutMS || ms > MaxTimeoutMS {
		return 0, &ValidationError{
			Field:  "statement_timeout_ms",
			Reason: fmt.Sprintf("must be between %d and %d, got %v", MinTimeoutMS, MaxTimeoutMS, ms),
		}
	}
	return int(ms), nil
}

// StatementTimeoutSQL returns the SET LOCAL statement for ms. SET does not take bind
// parameters, so the value is interpolated, and only after ValidateTimeout accepts it.
func StatementTimeoutSQL(ms int) (string, error) {
	valid, err := ValidateTimeout(float64(ms))
	if err != nil {
		return "", err
	}
	return "SET LOCAL statement_timeout = " + strconv.Itoa(valid), nil
}
