// Package llmexec is a pluggable stand-in for the real LLM-backed node
// runtime: the model invocation, prompt construction, and equivalence
// validation (§1 "Non-goals") are produced by the node itself and
// consumed here only through the consensus.Executor interface. This
// package supplies a default implementation wireable into cmd/consensusd
// until a real node binding is configured.
package llmexec

import (
	"context"
	"fmt"

	"github.com/gochain/consensus/pkg/consensus"
)

// Run is the pluggable hook a real deployment replaces: given a
// transaction and the node acting on it, produce a vote and, for the
// leader, a contract state delta. The default always agrees with no
// state change, so a freshly started consensusd is runnable out of the
// box against LeaderOnly transfers and smoke tests.
type Run func(ctx context.Context, tx *consensus.Transaction, mode consensus.Mode, snapshot *consensus.ContractSnapshot, leaderReceipt *consensus.Receipt, node consensus.Validator) (*consensus.Receipt, error)

// Pooled executes Run under a bounded worker pool so a misbehaving or
// slow node binding can't exceed the configured concurrency ceiling.
type Pooled struct {
	run Run
	sem chan struct{}
}

// NewPooled builds a Pooled executor with the default always-agree Run.
// concurrency <= 0 falls back to 8, matching consensus.TransactionContext's
// recommended validator-execution ceiling.
func NewPooled(concurrency int) *Pooled {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Pooled{run: defaultRun, sem: make(chan struct{}, concurrency)}
}

// WithRun swaps in a real node binding (e.g. one that shells out to an
// LLM runtime over the node's configured LLMConfig).
func (p *Pooled) WithRun(run Run) *Pooled {
	p.run = run
	return p
}

func (p *Pooled) Execute(ctx context.Context, tx *consensus.Transaction, mode consensus.Mode, snapshot *consensus.ContractSnapshot, leaderReceipt *consensus.Receipt, node consensus.Validator) (*consensus.Receipt, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.sem }()

	return p.run(ctx, tx, mode, snapshot, leaderReceipt, node)
}

func defaultRun(ctx context.Context, tx *consensus.Transaction, mode consensus.Mode, snapshot *consensus.ContractSnapshot, leaderReceipt *consensus.Receipt, node consensus.Validator) (*consensus.Receipt, error) {
	if tx == nil {
		return nil, fmt.Errorf("llmexec: nil transaction")
	}
	return &consensus.Receipt{
		Vote:            consensus.VoteAgree,
		NodeConfig:      consensus.NodeConfig{Address: node.Address, LLMConfig: node.LLMConfig},
		ExecutionResult: consensus.ExecSuccess,
	}, nil
}
