package consensus

import "time"

// handleRevealing implements §4.1 "Revealing": tally votes, then branch
// into acceptance, rotation, or (when this round is an in-flight
// validator appeal) appeal pass/fail.
func handleRevealing(ctx *TransactionContext) (Status, error) {
	tx := ctx.Tx

	if tx.Votes == nil {
		tx.Votes = make(map[string]Vote)
	}
	for i, v := range ctx.RemainingValidators {
		if i >= len(tx.ValidatorReceipts) {
			break
		}
		tx.Votes[v.Address] = voteFor(&tx.ValidatorReceipts[i])
	}

	majority := majorityAgrees(tx.Votes)

	if tx.Appealed {
		return revealAppealBranch(ctx, majority)
	}
	return revealRoundBranch(ctx, majority)
}

// majorityAgrees computes |{v : v=agree}| > |votes|/2 over the full vote
// map including the leader. Proposing starts each round with an empty
// map; a validator appeal enters at Committing and so keeps the appealed
// round's votes alongside the new validators' votes.
func majorityAgrees(votes map[string]Vote) bool {
	agree := 0
	for _, v := range votes {
		if v == VoteAgree {
			agree++
		}
	}
	return agree*2 > len(votes)
}

func revealRoundBranch(ctx *TransactionContext, majority bool) (Status, error) {
	tx := ctx.Tx

	if majority {
		return StatusAccepted, nil
	}

	if tx.ConfigRotationRounds <= 0 {
		tx.ConfigRotationRounds = DefaultConfigRotationRounds
	}
	if ctx.RotationCount >= tx.ConfigRotationRounds {
		return StatusUndetermined, nil
	}

	all, err := ctx.Registry.AllValidators(ctx.Ctx)
	if err != nil {
		return StatusPending, &ConfigError{Reason: err.Error()}
	}
	used := UsedLeaderAddresses(tx.ConsensusHistory, tx.LeaderReceipt)
	current := withoutLeader(ctx.InvolvedValidators, ctx.Leader)
	grown, err := AddOneForRotation(current, used, all, seedFor(tx)+int64(ctx.RotationCount)+1)
	if err != nil {
		// AppealCapacityExhausted here is not fatal to the round; the
		// tx stays at its rotation ceiling and goes Undetermined.
		return StatusUndetermined, nil
	}
	ctx.InvolvedValidators = grown
	ctx.RotationCount++

	label := "Leader Rotation"
	if tx.AppealUndetermined {
		label = "Leader Rotation Appeal"
	}
	appendHistory(tx, label, tx.LeaderReceipt, tx.ValidatorReceipts)

	return StatusProposing, nil
}

func revealAppealBranch(ctx *TransactionContext, majority bool) (Status, error) {
	tx := ctx.Tx

	if majority {
		// Appeal failed: the original outcome stands.
		tx.AppealFailed++
		return StatusAccepted, nil
	}

	// Appeal succeeded. Persist the grown validator set this appeal
	// round won, so the next Pending re-entry (pending.go's
	// tx.Appealed branch) rebuilds from it instead of the stale
	// pre-appeal set (§P4: validator count is monotonic non-decreasing
	// across appeal rounds).
	tx.AppealFailed = 0
	tx.TimestampAppeal = nil
	tx.PreviousValidators = ctx.RemainingValidators
	tx.PreviousLeader = ctx.Leader
	appendHistory(tx, "Validator Appeal Successful", nil, nil)
	ctx.Signal = SignalValidatorAppealSuccess
	return tx.Status, nil
}

func appendHistory(tx *Transaction, round string, leaderReceipt *Receipt, validatorReceipts []Receipt) {
	tx.ConsensusHistory = append(tx.ConsensusHistory, ConsensusHistoryEntry{
		Round:             round,
		LeaderReceipt:     leaderReceipt,
		ValidatorReceipts: validatorReceipts,
		StatusChange:      round,
		At:                time.Now(),
	})
}
