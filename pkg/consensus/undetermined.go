package consensus

import "time"

// handleUndetermined implements §4.1 "Undetermined": record the result,
// persist a snapshot for future appeals, and label the round.
func handleUndetermined(ctx *TransactionContext) error {
	tx := ctx.Tx
	now := time.Now()

	if !tx.AppealUndetermined {
		tx.TimestampAwaitingFinalization = &now
	}

	if tx.ContractSnapshot == nil {
		code, err := ctx.Store.GetCode(ctx.Ctx, tx.ToAddress)
		if err != nil {
			return err
		}
		state, err := ctx.Store.GetAcceptedState(ctx.Ctx, tx.ToAddress)
		if err != nil {
			return err
		}
		tx.ContractSnapshot = &ContractSnapshot{Code: code, State: state}
	}

	label := "Undetermined"
	if tx.AppealUndetermined {
		label = "Leader Appeal Failed"
		if tx.TimestampAppeal != nil {
			tx.AppealProcessingTime += now.Sub(*tx.TimestampAppeal)
		}
	}
	appendHistory(tx, label, tx.LeaderReceipt, tx.ValidatorReceipts)

	tx.PreviousValidators = ctx.RemainingValidators
	tx.PreviousLeader = ctx.Leader

	ctx.Events.Publish(ctx.Ctx, Event{Name: "transaction_status_updated", Level: EventInfo, Address: tx.ToAddress, TxHash: tx.Hash, Message: label})
	return nil
}
