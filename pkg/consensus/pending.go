package consensus

import "time"

// handlePending implements §4.1 "Pending": debit/credit for transfers, or
// compute the involved validator set and move to Proposing.
func handlePending(ctx *TransactionContext) (Status, error) {
	fresh, err := ctx.Store.LoadTransaction(ctx.Ctx, ctx.Tx.Hash)
	if err == nil && fresh != nil {
		*ctx.Tx = *fresh
	}
	tx := ctx.Tx

	if tx.Kind == KindTransfer {
		return handleTransfer(ctx)
	}

	involved, err := computeInvolvedValidators(ctx)
	if err != nil {
		return StatusPending, err
	}
	if len(involved) == 0 {
		ctx.Events.Publish(ctx.Ctx, Event{
			Name: "consensus_event", Level: EventError, Address: tx.ToAddress, TxHash: tx.Hash,
			Message: "no validators available",
		})
		return StatusPending, ErrNoValidators
	}

	ctx.InvolvedValidators = involved
	ctx.NumValidators = len(involved)
	ctx.UsedLeaders = UsedLeaderAddresses(tx.ConsensusHistory, tx.LeaderReceipt)
	return StatusProposing, nil
}

// computeInvolvedValidators implements the four branches of §4.1's Pending
// handler for picking who participates in the next round.
func computeInvolvedValidators(ctx *TransactionContext) ([]Validator, error) {
	tx := ctx.Tx

	switch {
	case tx.Appealed:
		set := withoutLeader(tx.PreviousValidators, tx.PreviousLeader)
		tx.Appealed = false
		return set, nil

	case tx.AppealUndetermined:
		all, err := ctx.Registry.AllValidators(ctx.Ctx)
		if err != nil {
			return nil, &ConfigError{Reason: err.Error()}
		}
		used := UsedLeaderAddresses(tx.ConsensusHistory, tx.LeaderReceipt)
		n := len(tx.PreviousValidators) + 1
		pool := excludeAddresses(sortedByAddress(all), addresses(tx.PreviousValidators), used)
		extra := WeightedSample(pool, n+2, seedFor(tx))
		if len(extra) == 0 {
			return nil, ErrAppealCapacityExhausted
		}
		set := withoutLeader(tx.PreviousValidators, tx.PreviousLeader)
		return append(set, extra...), nil

	case tx.PreviousValidators != nil:
		set := append([]Validator{}, tx.PreviousValidators...)
		if tx.PreviousLeader != nil {
			set = append([]Validator{*tx.PreviousLeader}, set...)
		}
		return set, nil

	default:
		all, err := ctx.Registry.AllValidators(ctx.Ctx)
		if err != nil {
			return nil, &ConfigError{Reason: err.Error()}
		}
		// DefaultValidatorsCount counts validators excluding the leader;
		// the involved set handed to Proposing needs one more slot for
		// the leader itself (§8 scenario 1: 1 leader + 5 validators).
		return WeightedSample(sortedByAddress(all), DefaultValidatorsCount+1, seedFor(tx)), nil
	}
}

func withoutLeader(vs []Validator, leader *Validator) []Validator {
	if leader == nil {
		return append([]Validator{}, vs...)
	}
	out := make([]Validator, 0, len(vs))
	for _, v := range vs {
		if v.Address != leader.Address {
			out = append(out, v)
		}
	}
	return out
}

// seedFor derives a deterministic VRF seed from transaction identity and
// round progress, so repeated drives of the same round produce the same
// draw while later rounds differ.
func seedFor(tx *Transaction) int64 {
	var h int64
	for _, c := range tx.Hash {
		h = h*31 + int64(c)
	}
	return h + tx.CreatedAt + int64(len(tx.ConsensusHistory))
}

// handleTransfer implements I6: a Transfer skips all consensus and goes
// straight to Finalized, or Undetermined on insufficient balance.
func handleTransfer(ctx *TransactionContext) (Status, error) {
	tx := ctx.Tx
	balance, err := ctx.Store.GetBalance(ctx.Ctx, tx.FromAddress)
	if err != nil {
		return StatusPending, err
	}

	var amount uint64
	if len(tx.Payload) >= 8 {
		amount = bytesToUint64(tx.Payload[:8])
	}

	if balance < amount {
		now := time.Now()
		tx.TimestampAwaitingFinalization = &now
		return StatusUndetermined, nil
	}

	if err := ctx.Store.SetBalance(ctx.Ctx, tx.FromAddress, balance-amount); err != nil {
		return StatusPending, err
	}
	toBalance, err := ctx.Store.GetBalance(ctx.Ctx, tx.ToAddress)
	if err != nil {
		return StatusPending, err
	}
	if err := ctx.Store.SetBalance(ctx.Ctx, tx.ToAddress, toBalance+amount); err != nil {
		return StatusPending, err
	}

	return StatusFinalized, nil
}

func bytesToUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
