package consensus

import "context"

// Signal is a named out-of-band result a handler can hand back to its
// caller (the dispatcher or the appeal processor) in addition to the next
// status. Only Revealing (validator appeal) and Accepted (leader appeal)
// ever set one.
type Signal int

const (
	SignalNone Signal = iota
	SignalLeaderAppealSuccess
	SignalValidatorAppealSuccess
)

// TransactionContext carries every handle a state machine handler needs.
// It is short-lived and confined to a single dispatcher task (§4.7); it is
// never shared across goroutines.
type TransactionContext struct {
	Ctx context.Context

	Tx       *Transaction
	Store    Store
	Registry Registry
	Executor Executor
	Events   EventBus

	// ValidatorConcurrency bounds parallel validator execution in
	// Committing (recommended ceiling 8, §4.1/§5).
	ValidatorConcurrency int

	// Transient fields, valid only for the lifetime of one Drive call.
	InvolvedValidators  []Validator
	RemainingValidators []Validator
	Leader              *Validator
	NumValidators        int
	RotationCount        int
	UsedLeaders          []string

	Signal Signal
}

// reset clears Signal. Called once at the start of every Drive invocation
// so a reused context never carries a signal over from a previous drive.
// The validator fields are left as the caller set them: a validator
// appeal fills them in before entering Drive at Committing.
func (c *TransactionContext) reset() {
	c.Signal = SignalNone
}
