package consensus

import "time"

// handleAccepted implements §4.1 "Accepted": label the round, persist the
// contract snapshot on first entry, apply the leader's state delta, and
// emit on=accepted sub-transactions.
func handleAccepted(ctx *TransactionContext) error {
	tx := ctx.Tx
	now := time.Now()

	leaderAppealSuccess := tx.AppealUndetermined
	wasAppealed := tx.Appealed

	var label string
	switch {
	case leaderAppealSuccess:
		label = "Leader Appeal Successful"
		tx.AppealUndetermined = false
		tx.AppealProcessingTime = 0
	case wasAppealed:
		label = "Validator Appeal Failed"
		tx.Appealed = false
		if tx.TimestampAppeal != nil {
			tx.AppealProcessingTime += now.Sub(*tx.TimestampAppeal)
		}
	default:
		label = "Accepted"
		if !wasAppealed {
			tx.TimestampAwaitingFinalization = &now
		}
	}

	appendHistory(tx, label, tx.LeaderReceipt, tx.ValidatorReceipts)

	isAppealReentry := wasAppealed || leaderAppealSuccess
	if !isAppealReentry {
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

		if tx.LeaderReceipt != nil && tx.LeaderReceipt.ExecutionResult == ExecSuccess {
			if err := ctx.Store.SetAcceptedState(ctx.Ctx, tx.ToAddress, tx.LeaderReceipt.ContractStateDelta); err != nil {
				return err
			}
			if err := emitSubTransactions(ctx, tx, "accepted"); err != nil {
				return err
			}
		}
	}

	ctx.Events.Publish(ctx.Ctx, Event{Name: "transaction_status_updated", Level: EventInfo, Address: tx.ToAddress, TxHash: tx.Hash, Message: label})

	if leaderAppealSuccess {
		ctx.Signal = SignalLeaderAppealSuccess
	}

	// Remember this round's set so a future rollback-driven re-entry
	// (§4.1 "tx was rolled back") can reuse it.
	tx.PreviousValidators = ctx.RemainingValidators
	tx.PreviousLeader = ctx.Leader

	return nil
}

// emitSubTransactions inserts every pending sub-transaction request whose
// On phase matches, as new Pending transactions with TriggeredBy set.
func emitSubTransactions(ctx *TransactionContext, tx *Transaction, phase string) error {
	if tx.LeaderReceipt == nil {
		return nil
	}
	for _, req := range tx.LeaderReceipt.PendingSubTransactions {
		if req.On != phase {
			continue
		}
		child := &Transaction{
			Hash:                 subTxHash(tx, req),
			FromAddress:          tx.ToAddress,
			ToAddress:            req.ToAddress,
			Kind:                 req.Kind,
			Payload:              req.Payload,
			ConfigRotationRounds: DefaultConfigRotationRounds,
			Status:               StatusPending,
			CreatedAt:            time.Now().UnixNano(),
			TriggeredBy:          &tx.Hash,
		}
		if err := ctx.Store.SaveTransaction(ctx.Ctx, child); err != nil {
			return err
		}
	}
	return nil
}

func subTxHash(parent *Transaction, req SubTransactionRequest) string {
	return parent.Hash + ":" + req.On + ":" + req.ToAddress
}
