// Package consensus implements the transaction lifecycle state machine:
// leader/validator selection, the Pending->Proposing->Committing->Revealing
// round, appeal re-entry, and finalization.
package consensus

import "time"

// Kind tags what a transaction does once accepted.
type Kind int

const (
	KindTransfer Kind = iota
	KindDeployContract
	KindCallContract
)

func (k Kind) String() string {
	switch k {
	case KindTransfer:
		return "transfer"
	case KindDeployContract:
		return "deploy_contract"
	case KindCallContract:
		return "call_contract"
	default:
		return "unknown"
	}
}

// Status is one node of the transaction lifecycle state machine.
type Status int

const (
	StatusPending Status = iota
	StatusActivated
	StatusProposing
	StatusCommitting
	StatusRevealing
	StatusAccepted
	StatusUndetermined
	StatusLeaderTimeout
	StatusFinalized
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusActivated:
		return "Activated"
	case StatusProposing:
		return "Proposing"
	case StatusCommitting:
		return "Committing"
	case StatusRevealing:
		return "Revealing"
	case StatusAccepted:
		return "Accepted"
	case StatusUndetermined:
		return "Undetermined"
	case StatusLeaderTimeout:
		return "LeaderTimeout"
	case StatusFinalized:
		return "Finalized"
	case StatusCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// Terminal reports whether status ends the pending-phase drive (§4.2 Loop B).
func (s Status) Terminal() bool {
	switch s {
	case StatusAccepted, StatusUndetermined, StatusFinalized, StatusCanceled:
		return true
	default:
		return false
	}
}

// Vote is a single node's verdict on a round.
type Vote string

const (
	VoteAgree    Vote = "agree"
	VoteDisagree Vote = "disagree"
	VoteTimeout  Vote = "timeout"
)

// ExecResult is the coarse success/failure of a node's execution.
type ExecResult string

const (
	ExecSuccess ExecResult = "success"
	ExecError   ExecResult = "error"
)

// SubTransactionRequest is a transaction a receipt asks to be spawned, once
// the parent reaches the given phase.
type SubTransactionRequest struct {
	On            string // "accepted" | "finalized"
	ToAddress     string
	Kind          Kind
	Payload       []byte
	DeployPayload []byte
}

// NodeConfig identifies the validator (or leader) that produced a receipt.
type NodeConfig struct {
	Address   string
	LLMConfig string
}

// Receipt is produced by the executor for one node on one round.
type Receipt struct {
	Vote                  Vote
	NodeConfig            NodeConfig
	ExecutionResult       ExecResult
	ContractStateDelta    []byte
	PendingSubTransactions []SubTransactionRequest
	EqOutputs             map[string]string
}

// ConsensusHistoryEntry is one append-only record of a completed round or
// status change (I5).
type ConsensusHistoryEntry struct {
	Round              string
	LeaderReceipt      *Receipt
	ValidatorReceipts  []Receipt
	StatusChange       string
	At                 time.Time
}

// ContractSnapshot is the code+state pair captured on first move to
// Accepted, used to restore state on a successful validator appeal.
type ContractSnapshot struct {
	Code  []byte
	State []byte
}

// Transaction is the central entity driven through the state machine.
type Transaction struct {
	Hash         string
	FromAddress  string
	ToAddress    string
	Kind         Kind
	Payload      []byte
	LeaderOnly   bool
	ConfigRotationRounds int // R, default 3

	Status    Status
	CreatedAt int64 // monotonic per-contract ordering key

	LeaderReceipt     *Receipt
	ValidatorReceipts []Receipt
	Votes             map[string]Vote

	Appealed             bool
	AppealUndetermined   bool
	AppealFailed         int
	TimestampAppeal      *time.Time
	AppealProcessingTime time.Duration

	TimestampAwaitingFinalization *time.Time

	ConsensusHistory []ConsensusHistoryEntry
	ContractSnapshot *ContractSnapshot

	TriggeredBy *string

	// PreviousValidators/PreviousLeader survive a rollback-induced
	// re-entry into Pending so the "tx was rolled back, reuse the set"
	// branch of the Pending handler (§4.1) can recover them.
	PreviousValidators []Validator
	PreviousLeader     *Validator
}

// Validator is consumed from an external registry; the engine never
// mutates it.
type Validator struct {
	Address  string
	Stake    uint64
	LLMConfig string
}

const DefaultValidatorsCount = 5
const DefaultConfigRotationRounds = 3
