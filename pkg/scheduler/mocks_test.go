package scheduler

import (
	"context"
	"sort"
	"sync"

	"github.com/gochain/consensus/pkg/consensus"
)

// memStore is a minimal in-memory consensus.Store, mirroring the
// teacher's MockChainReader pattern: enough behavior to drive the
// scheduler loops without a real badger instance.
type memStore struct {
	mu       sync.Mutex
	txs      map[string]*consensus.Transaction
	accepted map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{txs: map[string]*consensus.Transaction{}, accepted: map[string][]byte{}}
}

func (s *memStore) SaveTransaction(ctx context.Context, tx *consensus.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tx
	s.txs[tx.Hash] = &cp
	return nil
}

func (s *memStore) LoadTransaction(ctx context.Context, hash string) (*consensus.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[hash]
	if !ok {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

func (s *memStore) all() []*consensus.Transaction {
	out := make([]*consensus.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		cp := *tx
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out
}

func (s *memStore) TransactionsByStatus(ctx context.Context, status consensus.Status) ([]*consensus.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*consensus.Transaction
	for _, tx := range s.all() {
		if tx.Status == status {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *memStore) TransactionsByAddressAndStatuses(ctx context.Context, address string, statuses ...consensus.Status) ([]*consensus.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[consensus.Status]bool{}
	for _, st := range statuses {
		want[st] = true
	}
	var out []*consensus.Transaction
	for _, tx := range s.all() {
		if tx.ToAddress == address && want[tx.Status] {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *memStore) TransactionsNewerThan(ctx context.Context, address string, after int64) ([]*consensus.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*consensus.Transaction
	for _, tx := range s.all() {
		if tx.ToAddress == address && tx.CreatedAt > after {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *memStore) PredecessorFinalized(ctx context.Context, tx *consensus.Transaction) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sameAddress []*consensus.Transaction
	for _, other := range s.all() {
		if other.ToAddress == tx.ToAddress {
			sameAddress = append(sameAddress, other)
		}
	}
	var predecessor *consensus.Transaction
	for _, other := range sameAddress {
		if other.Hash == tx.Hash {
			break
		}
		predecessor = other
	}
	if predecessor == nil {
		return false, true, nil
	}
	return predecessor.Status == consensus.StatusFinalized, false, nil
}

func (s *memStore) GetBalance(ctx context.Context, address string) (uint64, error)      { return 0, nil }
func (s *memStore) SetBalance(ctx context.Context, address string, balance uint64) error { return nil }

func (s *memStore) GetAcceptedState(ctx context.Context, address string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted[address], nil
}

func (s *memStore) SetAcceptedState(ctx context.Context, address string, state []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accepted[address] = state
	return nil
}

func (s *memStore) GetFinalizedState(ctx context.Context, address string) ([]byte, error) { return nil, nil }
func (s *memStore) SetFinalizedState(ctx context.Context, address string, state []byte) error {
	return nil
}
func (s *memStore) GetCode(ctx context.Context, address string) ([]byte, error) { return nil, nil }
func (s *memStore) SetCode(ctx context.Context, address string, code []byte) error { return nil }

type fixedRegistry struct{ validators []consensus.Validator }

func (r fixedRegistry) AllValidators(ctx context.Context) ([]consensus.Validator, error) {
	return r.validators, nil
}

func pool(n int) []consensus.Validator {
	out := make([]consensus.Validator, n)
	for i := 0; i < n; i++ {
		out[i] = consensus.Validator{Address: string(rune('a' + i)), Stake: 1}
	}
	return out
}

type scriptedExecutor struct {
	vote consensus.Vote
}

func (e scriptedExecutor) Execute(ctx context.Context, tx *consensus.Transaction, mode consensus.Mode, snapshot *consensus.ContractSnapshot, leaderReceipt *consensus.Receipt, node consensus.Validator) (*consensus.Receipt, error) {
	return &consensus.Receipt{
		Vote:            e.vote,
		NodeConfig:      consensus.NodeConfig{Address: node.Address},
		ExecutionResult: consensus.ExecSuccess,
	}, nil
}

type noopBus struct{}

func (noopBus) Publish(ctx context.Context, ev consensus.Event) {}
