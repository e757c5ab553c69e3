package scheduler

import (
	"context"
	"time"

	"github.com/gochain/consensus/pkg/consensus"
	"github.com/gochain/consensus/pkg/logger"
)

// Rollback is called by the appeal window loop whenever an appeal mutates
// an earlier transaction on an address: every newer transaction on that
// address must be reset to Pending (§4.6). Supplied by pkg/engine, which
// owns the Coordinator the rollback engine drives.
type Rollback func(ctx context.Context, address string, after *consensus.Transaction) error

// FinalityWindow returns the current admin-configurable finality window
// (§6); it is read fresh on every pass so operators can tune it live.
type FinalityWindow func() time.Duration

// RunAppealWindow is Loop C (§4.2): every interval, for each address, walk
// its Accepted and Undetermined transactions oldest-first. An Accepted
// transaction the user flagged appealed is driven through
// ProcessValidatorAppeal; an Undetermined one flagged appealed goes
// through ProcessLeaderAppeal. Anything left Accepted or Undetermined that
// has no pending appeal is checked against CanFinalize and, if ready,
// finalized.
func RunAppealWindow(ctx context.Context, store consensus.Store, coord *Coordinator, newTxCtx CtxFactory, rollback Rollback, metrics Metrics, window FinalityWindow, interval func() time.Duration, log *logger.Logger) {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	ticker := time.NewTicker(interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ticker.Reset(interval())
			if err := appealWindowOnce(ctx, store, coord, newTxCtx, rollback, metrics, window(), log); err != nil {
				log.Error("appeal window: %v", err)
			}
		}
	}
}

func appealWindowOnce(ctx context.Context, store consensus.Store, coord *Coordinator, newTxCtx CtxFactory, rollback Rollback, metrics Metrics, finalityWindow time.Duration, log *logger.Logger) error {
	now := time.Now()
	for _, address := range coord.Addresses() {
		candidates, err := store.TransactionsByAddressAndStatuses(ctx, address, consensus.StatusAccepted, consensus.StatusUndetermined)
		if err != nil {
			return err
		}
		if err := walkAddress(ctx, store, coord, newTxCtx, rollback, metrics, candidates, now, finalityWindow, log); err != nil {
			return err
		}
	}
	return nil
}

func walkAddress(ctx context.Context, store consensus.Store, coord *Coordinator, newTxCtx CtxFactory, rollback Rollback, metrics Metrics, candidates []*consensus.Transaction, now time.Time, finalityWindow time.Duration, log *logger.Logger) error {
	for _, tx := range candidates {
		switch {
		case tx.Status == consensus.StatusAccepted && tx.Appealed:
			if err := runAppeal(ctx, store, coord, newTxCtx, rollback, metrics, tx, consensus.ProcessValidatorAppeal, log); err != nil {
				log.Error("appeal window: validator appeal %s: %v", tx.Hash, err)
			}
		case tx.Status == consensus.StatusUndetermined && tx.Appealed:
			if err := runAppeal(ctx, store, coord, newTxCtx, rollback, metrics, tx, consensus.ProcessLeaderAppeal, log); err != nil {
				log.Error("appeal window: leader appeal %s: %v", tx.Hash, err)
			}
		case tx.Status == consensus.StatusAccepted, tx.Status == consensus.StatusUndetermined:
			// Neither case has a pending appeal (both are handled
			// above); either terminal-pending state is eligible for
			// finalization once its window has elapsed (§4.2 Loop C,
			// §8 scenario 2).
			tryFinalize(ctx, store, newTxCtx, metrics, tx, now, finalityWindow, log)
		}
	}
	return nil
}

func tryFinalize(ctx context.Context, store consensus.Store, newTxCtx CtxFactory, metrics Metrics, tx *consensus.Transaction, now time.Time, finalityWindow time.Duration, log *logger.Logger) {
	finalized, isFirst, err := store.PredecessorFinalized(ctx, tx)
	if err != nil {
		log.Error("appeal window: predecessor check %s: %v", tx.Hash, err)
		return
	}
	if !consensus.CanFinalize(tx, finalized, isFirst, now, finalityWindow) {
		return
	}
	awaitingSince := tx.TimestampAwaitingFinalization
	txCtx := newTxCtx(ctx, tx)
	if err := consensus.Finalize(txCtx); err != nil {
		log.Error("appeal window: finalize %s: %v", tx.Hash, err)
		return
	}
	if awaitingSince != nil {
		metrics.ObserveFinalizationLatency(now.Sub(*awaitingSince) - tx.AppealProcessingTime)
	}
}

type appealFn func(ctx *consensus.TransactionContext) (consensus.AppealOutcome, error)

func runAppeal(ctx context.Context, store consensus.Store, coord *Coordinator, newTxCtx CtxFactory, rollback Rollback, metrics Metrics, tx *consensus.Transaction, process appealFn, log *logger.Logger) error {
	address := tx.ToAddress
	coord.RaiseStop(address)
	defer coord.LowerStop(address)

	if err := waitUntilIdle(ctx, coord, address); err != nil {
		return err
	}

	txCtx := newTxCtx(ctx, tx)
	outcome, err := process(txCtx)
	if err != nil {
		return err
	}
	if outcome.Rollback {
		metrics.IncRollback()
		if err := rollback(ctx, address, tx); err != nil {
			return err
		}
	}
	return nil
}

// waitUntilIdle blocks until no dispatcher task is running for address,
// per §4.6 rollback step 2. It polls rather than parking on a condition
// variable to keep the Coordinator lock-free between checks.
func waitUntilIdle(ctx context.Context, coord *Coordinator, address string) error {
	for coord.IsRunning(address) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return nil
}
