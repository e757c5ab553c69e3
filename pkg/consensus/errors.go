package consensus

import "errors"

// Error kinds named in the error handling design. Callers type-assert or
// use errors.Is against the sentinel values below.
var (
	// ErrConfig covers missing validators or malformed input; the
	// affected transaction halts in its current status.
	ErrConfig = errors.New("consensus: configuration error")

	// ErrAppealCapacityExhausted is returned when §4.3's extra-validator
	// draw has no candidates left. Not fatal to the transaction.
	ErrAppealCapacityExhausted = errors.New("consensus: appeal capacity exhausted")

	// ErrNoValidators is returned by the Pending handler when the
	// involved validator set computes empty.
	ErrNoValidators = errors.New("consensus: no validators available")
)

// ConfigError wraps ErrConfig with a reason.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "consensus: config error: " + e.Reason }
func (e *ConfigError) Unwrap() error { return ErrConfig }
