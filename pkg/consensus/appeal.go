package consensus

import "time"

// AppealOutcome tells the caller (the appeal-window loop, §4.2 Loop C)
// whether a rollback of newer transactions on the same address is
// required.
type AppealOutcome struct {
	Rollback bool
}

// ProcessValidatorAppeal implements §4.4's Validator Appeal: the
// transaction is Accepted and the user set appealed=true.
func ProcessValidatorAppeal(ctx *TransactionContext) (AppealOutcome, error) {
	tx := ctx.Tx

	all, err := ctx.Registry.AllValidators(ctx.Ctx)
	if err != nil {
		return AppealOutcome{}, &ConfigError{Reason: err.Error()}
	}
	used := UsedLeaderAddresses(tx.ConsensusHistory, tx.LeaderReceipt)
	grown, err := GetExtraValidators(tx.PreviousValidators, used, all, tx.AppealFailed, seedFor(tx)+int64(tx.AppealFailed))
	if err != nil {
		tx.Appealed = false
		now := time.Now()
		if tx.TimestampAppeal != nil {
			tx.AppealProcessingTime += now.Sub(*tx.TimestampAppeal)
		}
		tx.TimestampAppeal = nil
		ctx.Events.Publish(ctx.Ctx, Event{Name: "transaction_appeal_updated", Level: EventError, Address: tx.ToAddress, TxHash: tx.Hash, Message: "appeal capacity exhausted"})
		return AppealOutcome{}, ctx.Store.SaveTransaction(ctx.Ctx, tx)
	}

	ctx.InvolvedValidators = grown
	ctx.RemainingValidators = grown
	ctx.NumValidators = len(grown) + 1
	ctx.Leader = tx.PreviousLeader

	// The leader is not re-executed on an appeal; carry its last vote
	// into the tally so majorityAgrees still counts it (§4.1 Revealing:
	// "over the full vote map including the leader").
	if tx.Votes == nil {
		tx.Votes = make(map[string]Vote)
	}
	if tx.PreviousLeader != nil && tx.LeaderReceipt != nil {
		tx.Votes[tx.PreviousLeader.Address] = voteFor(tx.LeaderReceipt)
	}

	tx.Status = StatusCommitting
	if err := ctx.Store.SaveTransaction(ctx.Ctx, tx); err != nil {
		return AppealOutcome{}, err
	}

	if err := Drive(ctx); err != nil {
		return AppealOutcome{}, err
	}

	if ctx.Signal != SignalValidatorAppealSuccess {
		return AppealOutcome{}, nil
	}

	if tx.ContractSnapshot != nil {
		if err := ctx.Store.SetAcceptedState(ctx.Ctx, tx.ToAddress, tx.ContractSnapshot.State); err != nil {
			return AppealOutcome{}, err
		}
	} else {
		if err := ctx.Store.SetAcceptedState(ctx.Ctx, tx.ToAddress, nil); err != nil {
			return AppealOutcome{}, err
		}
	}
	tx.ContractSnapshot = nil
	tx.Status = StatusPending
	if err := ctx.Store.SaveTransaction(ctx.Ctx, tx); err != nil {
		return AppealOutcome{}, err
	}

	return AppealOutcome{Rollback: true}, nil
}

// ProcessLeaderAppeal implements §4.4's Leader Appeal: the transaction is
// Undetermined and the user set appealed=true.
func ProcessLeaderAppeal(ctx *TransactionContext) (AppealOutcome, error) {
	tx := ctx.Tx

	all, err := ctx.Registry.AllValidators(ctx.Ctx)
	if err != nil {
		return AppealOutcome{}, &ConfigError{Reason: err.Error()}
	}
	used := UsedLeaderAddresses(tx.ConsensusHistory, tx.LeaderReceipt)
	if len(tx.PreviousValidators)+len(used) >= len(all) {
		ctx.Events.Publish(ctx.Ctx, Event{Name: "transaction_appeal_updated", Level: EventError, Address: tx.ToAddress, TxHash: tx.Hash, Message: "leader appeal: no capacity"})
		return AppealOutcome{}, nil
	}

	tx.Appealed = false
	tx.AppealUndetermined = true
	tx.Status = StatusPending
	if err := ctx.Store.SaveTransaction(ctx.Ctx, tx); err != nil {
		return AppealOutcome{}, err
	}

	if err := Drive(ctx); err != nil {
		return AppealOutcome{}, err
	}

	return AppealOutcome{Rollback: tx.Status == StatusAccepted}, nil
}
