package consensus

// roundHandlers dispatches the statuses that are driven automatically,
// one transition at a time, inside a single Drive call. Accepted and
// Undetermined are reached by these handlers but run their own
// once-only side-effect handler (handleAccepted/handleUndetermined)
// before Drive stops.
var roundHandlers = map[Status]func(*TransactionContext) (Status, error){
	StatusPending:    handlePending,
	StatusActivated:  handlePending, // Activated is a crawler bookkeeping marker; it drives identically to Pending.
	StatusProposing:  handleProposing,
	StatusCommitting: handleCommitting,
	StatusRevealing:  handleRevealing,
}

// Drive runs ctx.Tx through the state machine until it reaches a terminal
// status for the pending phase (Accepted or Undetermined), a halt
// (status unchanged, error returned), or an appeal signal. Each
// transition is persisted before the next handler runs (§4.1).
func Drive(ctx *TransactionContext) error {
	ctx.reset()

	for {
		handler, ok := roundHandlers[ctx.Tx.Status]
		if !ok {
			return nil
		}

		next, err := handler(ctx)
		if err != nil {
			return err
		}

		prev := ctx.Tx.Status
		ctx.Tx.Status = next

		if ctx.Signal != SignalNone {
			// A validator-appeal success exits here without running
			// the Accepted side-handler: the caller (appeal
			// processor) drives the rest.
			return ctx.Store.SaveTransaction(ctx.Ctx, ctx.Tx)
		}

		if next == prev {
			// Handler halted without error but without progress
			// (e.g. no validators available was already surfaced as
			// an error above); nothing further to do this tick.
			return ctx.Store.SaveTransaction(ctx.Ctx, ctx.Tx)
		}

		switch next {
		case StatusAccepted:
			if err := handleAccepted(ctx); err != nil {
				return err
			}
			return ctx.Store.SaveTransaction(ctx.Ctx, ctx.Tx)
		case StatusUndetermined:
			if err := handleUndetermined(ctx); err != nil {
				return err
			}
			return ctx.Store.SaveTransaction(ctx.Ctx, ctx.Tx)
		case StatusFinalized, StatusCanceled:
			return ctx.Store.SaveTransaction(ctx.Ctx, ctx.Tx)
		}

		if err := ctx.Store.SaveTransaction(ctx.Ctx, ctx.Tx); err != nil {
			return err
		}
	}
}
