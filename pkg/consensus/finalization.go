package consensus

import "time"

// CanFinalize implements §4.5's can_finalize(i): a transaction may
// finalize once it is leader_only or has sat past the finality window
// (net of accumulated appeal processing time), and its predecessor (by
// created_at on the same address) is already Finalized, or it is the
// first transaction ever seen for the address.
func CanFinalize(tx *Transaction, predecessorFinalized, isFirst bool, now time.Time, finalityWindow time.Duration) bool {
	elapsedEnough := tx.LeaderOnly
	if !elapsedEnough && tx.TimestampAwaitingFinalization != nil {
		elapsed := now.Sub(*tx.TimestampAwaitingFinalization) - tx.AppealProcessingTime
		elapsedEnough = elapsed > finalityWindow
	}
	if !elapsedEnough {
		return false
	}
	if isFirst {
		return true
	}
	return predecessorFinalized
}

// Finalize runs the Finalizing state-machine step (§4.5): if the
// transaction is Accepted and leader execution succeeded, promote its
// "accepted" contract state to "finalized" and emit on=finalized
// sub-transactions; then mark the transaction Finalized.
func Finalize(ctx *TransactionContext) error {
	tx := ctx.Tx

	if tx.Status == StatusAccepted && tx.LeaderReceipt != nil && tx.LeaderReceipt.ExecutionResult == ExecSuccess {
		state, err := ctx.Store.GetAcceptedState(ctx.Ctx, tx.ToAddress)
		if err != nil {
			return err
		}
		if err := ctx.Store.SetFinalizedState(ctx.Ctx, tx.ToAddress, state); err != nil {
			return err
		}
		if err := emitSubTransactions(ctx, tx, "finalized"); err != nil {
			return err
		}
	}

	tx.Status = StatusFinalized
	appendHistory(tx, "Finalized", nil, nil)
	ctx.Events.Publish(ctx.Ctx, Event{Name: "transaction_status_updated", Level: EventInfo, Address: tx.ToAddress, TxHash: tx.Hash, Message: "Finalized"})
	return ctx.Store.SaveTransaction(ctx.Ctx, tx)
}
