package scheduler

import (
	"context"
	"time"

	"github.com/gochain/consensus/pkg/consensus"
	"github.com/gochain/consensus/pkg/logger"
)

// CtxFactory builds a fresh, per-task TransactionContext for one
// transaction. It is supplied by the engine wiring (pkg/engine), which
// owns the store/registry/executor/event-bus collaborators.
type CtxFactory func(ctx context.Context, tx *consensus.Transaction) *consensus.TransactionContext

// RunDispatcher is Loop B (§4.2): every interval, for each address with a
// non-empty, non-stopped queue, dequeue one transaction and drive it
// through the state machine in its own goroutine. Addresses progress in
// parallel; within an address, work is serialized by the queue and the
// running flag.
func RunDispatcher(ctx context.Context, store consensus.Store, coord *Coordinator, newTxCtx CtxFactory, interval func() time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ticker.Reset(interval())
			dispatchOnce(ctx, store, coord, newTxCtx, log)
		}
	}
}

func dispatchOnce(ctx context.Context, store consensus.Store, coord *Coordinator, newTxCtx CtxFactory, log *logger.Logger) {
	for _, address := range coord.Addresses() {
		hash, ok := coord.TryDequeue(address)
		if !ok {
			continue
		}
		go runTask(ctx, store, coord, newTxCtx, address, hash, log)
	}
}

func runTask(ctx context.Context, store consensus.Store, coord *Coordinator, newTxCtx CtxFactory, address, hash string, log *logger.Logger) {
	defer coord.SetRunning(address, false)

	tx, err := store.LoadTransaction(ctx, hash)
	if err != nil || tx == nil {
		log.Error("dispatcher: failed to load %s: %v", hash, err)
		return
	}

	txCtx := newTxCtx(ctx, tx)
	if err := consensus.Drive(txCtx); err != nil {
		log.Error("dispatcher: %s halted: %v", hash, err)
		return
	}

	log.Info("dispatcher: %s -> %s", hash, tx.Status)
}
