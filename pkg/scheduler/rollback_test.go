package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gochain/consensus/pkg/consensus"
)

func TestRollback_ResetsNewerNonTerminalTransactions(t *testing.T) {
	store := newMemStore()
	coord := NewCoordinator()
	ctx := context.Background()

	after := &consensus.Transaction{Hash: "tx1", ToAddress: "c1", CreatedAt: 1, Status: consensus.StatusPending}
	require.NoError(t, store.SaveTransaction(ctx, after))

	proposing := &consensus.Transaction{Hash: "tx2", ToAddress: "c1", CreatedAt: 2, Status: consensus.StatusProposing, ContractSnapshot: &consensus.ContractSnapshot{State: []byte("x")}}
	finalized := &consensus.Transaction{Hash: "tx3", ToAddress: "c1", CreatedAt: 3, Status: consensus.StatusFinalized}
	olderSameAddr := &consensus.Transaction{Hash: "tx0", ToAddress: "c1", CreatedAt: 0, Status: consensus.StatusAccepted}
	newerAccepted := &consensus.Transaction{Hash: "tx4", ToAddress: "c1", CreatedAt: 4, Status: consensus.StatusAccepted}
	newerUndetermined := &consensus.Transaction{Hash: "tx5", ToAddress: "c1", CreatedAt: 5, Status: consensus.StatusUndetermined}
	require.NoError(t, store.SaveTransaction(ctx, proposing))
	require.NoError(t, store.SaveTransaction(ctx, finalized))
	require.NoError(t, store.SaveTransaction(ctx, olderSameAddr))
	require.NoError(t, store.SaveTransaction(ctx, newerAccepted))
	require.NoError(t, store.SaveTransaction(ctx, newerUndetermined))

	coord.Enqueue("c1", "stale")

	rollback := NewRollback(store, coord, testLog())
	require.NoError(t, rollback(ctx, "c1", after))

	gotProposing, err := store.LoadTransaction(ctx, "tx2")
	require.NoError(t, err)
	assert.Equal(t, consensus.StatusPending, gotProposing.Status)
	assert.Nil(t, gotProposing.ContractSnapshot)

	// Finalized is terminal: rollback must not touch it.
	gotFinalized, err := store.LoadTransaction(ctx, "tx3")
	require.NoError(t, err)
	assert.Equal(t, consensus.StatusFinalized, gotFinalized.Status)

	// Older-than-after transactions are untouched regardless of status.
	gotOlder, err := store.LoadTransaction(ctx, "tx0")
	require.NoError(t, err)
	assert.Equal(t, consensus.StatusAccepted, gotOlder.Status)

	// Newer Accepted/Undetermined transactions are only pending-phase
	// terminal: they must still roll back to Pending.
	gotNewerAccepted, err := store.LoadTransaction(ctx, "tx4")
	require.NoError(t, err)
	assert.Equal(t, consensus.StatusPending, gotNewerAccepted.Status)

	gotNewerUndetermined, err := store.LoadTransaction(ctx, "tx5")
	require.NoError(t, err)
	assert.Equal(t, consensus.StatusPending, gotNewerUndetermined.Status)

	assert.Equal(t, 0, coord.QueueLen("c1"))
}
