package consensus

import "context"

// Mode tags which role a node is executing under for one call.
type Mode int

const (
	ModeLeader Mode = iota
	ModeValidator
)

// Executor runs one transaction on one LLM-configured validator and
// returns a receipt. It is consumed, not owned, by this package.
type Executor interface {
	Execute(ctx context.Context, tx *Transaction, mode Mode, snapshot *ContractSnapshot, leaderReceipt *Receipt, node Validator) (*Receipt, error)
}

// Store is the transactional collaborator that owns transactions,
// balances, and contract state. All operations are transactional at the
// task scope (§6).
type Store interface {
	// SaveTransaction persists every mutated field of tx. Each status
	// transition is persisted before the next handler runs (§4.1).
	SaveTransaction(ctx context.Context, tx *Transaction) error
	LoadTransaction(ctx context.Context, hash string) (*Transaction, error)

	// TransactionsByStatus returns transactions in the given status,
	// ordered by CreatedAt ascending.
	TransactionsByStatus(ctx context.Context, status Status) ([]*Transaction, error)

	// TransactionsByAddressAndStatuses returns, for one address, the
	// transactions currently in any of the given statuses, ordered by
	// CreatedAt ascending.
	TransactionsByAddressAndStatuses(ctx context.Context, address string, statuses ...Status) ([]*Transaction, error)

	// TransactionsNewerThan returns transactions on address with
	// CreatedAt > after, ordered by CreatedAt ascending.
	TransactionsNewerThan(ctx context.Context, address string, after int64) ([]*Transaction, error)

	// PredecessorFinalized reports whether the transaction immediately
	// preceding tx (by CreatedAt, same address) has Status Finalized, and
	// whether tx is the first transaction ever seen for the address.
	PredecessorFinalized(ctx context.Context, tx *Transaction) (predecessorFinalized bool, isFirst bool, err error)

	GetBalance(ctx context.Context, address string) (uint64, error)
	SetBalance(ctx context.Context, address string, balance uint64) error

	ContractStore
}

// ContractStore owns a contract's two-slot state model: the "accepted"
// slot (tentative, visible during the finality window) and the
// "finalized" slot (promoted once the finality window elapses).
type ContractStore interface {
	GetAcceptedState(ctx context.Context, address string) ([]byte, error)
	SetAcceptedState(ctx context.Context, address string, state []byte) error
	GetFinalizedState(ctx context.Context, address string) ([]byte, error)
	SetFinalizedState(ctx context.Context, address string, state []byte) error
	GetCode(ctx context.Context, address string) ([]byte, error)
}

// EventLevel tags the severity of an emitted event.
type EventLevel int

const (
	EventInfo EventLevel = iota
	EventSuccess
	EventError
)

// Event is one entry on the produced event bus (§6).
type Event struct {
	Name    string
	Level   EventLevel
	Address string
	TxHash  string
	Message string
}

// EventBus is the produced collaborator transactions and rounds report
// milestones to. The wire/transport for these events is out of scope; an
// EventBus only needs to accept Publish calls.
type EventBus interface {
	Publish(ctx context.Context, ev Event)
}

// Registry lists the current validator pool. Validator registry
// management itself is out of scope; this package only reads it.
type Registry interface {
	AllValidators(ctx context.Context) ([]Validator, error)
}
