package consensus

import (
	"sync"

	"go.uber.org/multierr"
)

// handleCommitting implements §4.1 "Committing": execute every remaining
// validator in parallel (bounded concurrency), collect receipts in
// deterministic order.
func handleCommitting(ctx *TransactionContext) (Status, error) {
	tx := ctx.Tx

	ceiling := ctx.ValidatorConcurrency
	if ceiling <= 0 {
		ceiling = 8
	}

	n := len(ctx.RemainingValidators)
	receipts := make([]Receipt, n)
	errs := make([]error, n)

	sem := make(chan struct{}, ceiling)
	var wg sync.WaitGroup
	for i, v := range ctx.RemainingValidators {
		i, v := i, v
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			snapshot := tx.ContractSnapshot
			r, err := ctx.Executor.Execute(ctx.Ctx, tx, ModeValidator, snapshot, tx.LeaderReceipt, v)
			if err != nil {
				errs[i] = err
				return
			}
			receipts[i] = *r
		}()
	}
	wg.Wait()

	if err := multierr.Combine(errs...); err != nil {
		return StatusPending, err
	}

	tx.ValidatorReceipts = receipts
	return StatusRevealing, nil
}
