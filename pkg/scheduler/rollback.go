package scheduler

import (
	"context"

	"github.com/gochain/consensus/pkg/consensus"
	"github.com/gochain/consensus/pkg/logger"
)

// NewRollback builds a Rollback bound to store and coord (§4.6): reset the
// queue, then reset every transaction newer than after back to Pending
// with its snapshot cleared. It does not touch stop_flag or wait for the
// dispatcher itself. The appeal-window loop calls this whenever
// ProcessValidatorAppeal or ProcessLeaderAppeal reports Rollback: true;
// runAppeal has already raised stop_flag and waited for the address to go
// idle, and lowers stop_flag once the appeal and this sweep are done.
func NewRollback(store consensus.Store, coord *Coordinator, log *logger.Logger) Rollback {
	return func(ctx context.Context, address string, after *consensus.Transaction) error {
		coord.ResetQueue(address)

		newer, err := store.TransactionsNewerThan(ctx, address, after.CreatedAt)
		if err != nil {
			return err
		}

		for _, tx := range newer {
			// Finalized/Canceled are terminal-forever and must not be
			// touched; Accepted/Undetermined are only pending-phase
			// terminal and still have to roll back to Pending here
			// (spec.md §8 scenario 6).
			if tx.Hash == after.Hash || tx.Status == consensus.StatusFinalized || tx.Status == consensus.StatusCanceled {
				continue
			}
			tx.Status = consensus.StatusPending
			tx.ContractSnapshot = nil
			tx.PreviousValidators = nil
			tx.PreviousLeader = nil
			if err := store.SaveTransaction(ctx, tx); err != nil {
				log.Error("rollback: failed to reset %s: %v", tx.Hash, err)
				return err
			}
		}
		return nil
	}
}
