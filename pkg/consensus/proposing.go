package consensus

import "math/rand"

// handleProposing implements §4.1 "Proposing": shuffle the involved set,
// elect a leader, load the contract snapshot, and execute on the leader.
func handleProposing(ctx *TransactionContext) (Status, error) {
	tx := ctx.Tx

	shuffled := append([]Validator{}, ctx.InvolvedValidators...)
	rand.New(rand.NewSource(seedFor(tx) + int64(ctx.RotationCount))).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if len(shuffled) == 0 {
		return StatusPending, ErrNoValidators
	}
	leader := shuffled[0]
	remaining := append([]Validator{}, shuffled[1:]...)
	if tx.LeaderOnly {
		remaining = nil
	}
	ctx.Leader = &leader
	ctx.RemainingValidators = remaining

	snapshot, err := loadSnapshot(ctx)
	if err != nil {
		return StatusPending, err
	}

	receipt, err := ctx.Executor.Execute(ctx.Ctx, tx, ModeLeader, snapshot, nil, leader)
	if err != nil {
		return StatusPending, err
	}

	tx.LeaderReceipt = receipt
	tx.Votes = make(map[string]Vote)
	tx.Votes[leader.Address] = voteFor(receipt)

	return StatusCommitting, nil
}

// loadSnapshot returns the transaction's own contract snapshot if it has
// one (rollback/appeal re-entry), otherwise pulls the current accepted
// state and code from the store.
func loadSnapshot(ctx *TransactionContext) (*ContractSnapshot, error) {
	if ctx.Tx.ContractSnapshot != nil {
		return ctx.Tx.ContractSnapshot, nil
	}
	code, err := ctx.Store.GetCode(ctx.Ctx, ctx.Tx.ToAddress)
	if err != nil {
		return nil, err
	}
	state, err := ctx.Store.GetAcceptedState(ctx.Ctx, ctx.Tx.ToAddress)
	if err != nil {
		return nil, err
	}
	return &ContractSnapshot{Code: code, State: state}, nil
}

// voteFor maps a receipt to the vote it contributes; a timeout execution
// is counted as disagree everywhere except the history label (§4.1 error
// path rules).
func voteFor(r *Receipt) Vote {
	if r.Vote == VoteTimeout {
		return VoteDisagree
	}
	return r.Vote
}
