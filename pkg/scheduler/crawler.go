package scheduler

import (
	"context"
	"time"

	"github.com/gochain/consensus/pkg/consensus"
	"github.com/gochain/consensus/pkg/logger"
)

// RunCrawler is Loop A (§4.2): every interval, scan Pending transactions
// ordered by CreatedAt, enqueue each onto its address's queue, and mark it
// Activated so it is never re-enqueued.
func RunCrawler(ctx context.Context, store consensus.Store, coord *Coordinator, interval func() time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ticker.Reset(interval())
			if err := crawlOnce(ctx, store, coord, log); err != nil {
				log.Error("crawler: %v", err)
			}
		}
	}
}

func crawlOnce(ctx context.Context, store consensus.Store, coord *Coordinator, log *logger.Logger) error {
	pending, err := store.TransactionsByStatus(ctx, consensus.StatusPending)
	if err != nil {
		return err
	}

	for _, tx := range pending {
		if !coord.Enqueue(tx.ToAddress, tx.Hash) {
			continue // stop_flag raised for this address; leave it Pending
		}
		tx.Status = consensus.StatusActivated
		if err := store.SaveTransaction(ctx, tx); err != nil {
			log.Error("crawler: failed to activate %s: %v", tx.Hash, err)
			continue
		}
	}
	return nil
}
