package consensus

import (
	"context"
	"sync"
)

// memStore is a minimal in-memory Store used across the package's tests,
// mirroring the MockChainReader pattern the teacher repo's consensus
// tests use for its collaborators.
type memStore struct {
	mu            sync.Mutex
	txs           map[string]*Transaction
	balances      map[string]uint64
	acceptedState map[string][]byte
	finalizedState map[string][]byte
	code          map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{
		txs:            make(map[string]*Transaction),
		balances:       make(map[string]uint64),
		acceptedState:  make(map[string][]byte),
		finalizedState: make(map[string][]byte),
		code:           make(map[string][]byte),
	}
}

func (s *memStore) SaveTransaction(ctx context.Context, tx *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tx
	s.txs[tx.Hash] = &cp
	return nil
}

func (s *memStore) LoadTransaction(ctx context.Context, hash string) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[hash]
	if !ok {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

func (s *memStore) TransactionsByStatus(ctx context.Context, status Status) ([]*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Transaction
	for _, tx := range s.txs {
		if tx.Status == status {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) TransactionsByAddressAndStatuses(ctx context.Context, address string, statuses ...Status) ([]*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[Status]struct{})
	for _, st := range statuses {
		want[st] = struct{}{}
	}
	var out []*Transaction
	for _, tx := range s.txs {
		if tx.ToAddress != address {
			continue
		}
		if _, ok := want[tx.Status]; ok {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) TransactionsNewerThan(ctx context.Context, address string, after int64) ([]*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Transaction
	for _, tx := range s.txs {
		if tx.ToAddress == address && tx.CreatedAt > after {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) PredecessorFinalized(ctx context.Context, tx *Transaction) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var predecessor *Transaction
	isFirst := true
	for _, other := range s.txs {
		if other.ToAddress != tx.ToAddress || other.Hash == tx.Hash {
			continue
		}
		if other.CreatedAt < tx.CreatedAt {
			isFirst = false
			if predecessor == nil || other.CreatedAt > predecessor.CreatedAt {
				predecessor = other
			}
		}
	}
	if predecessor == nil {
		return false, isFirst, nil
	}
	return predecessor.Status == StatusFinalized, isFirst, nil
}

func (s *memStore) GetBalance(ctx context.Context, address string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[address], nil
}

func (s *memStore) SetBalance(ctx context.Context, address string, balance uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[address] = balance
	return nil
}

func (s *memStore) GetAcceptedState(ctx context.Context, address string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acceptedState[address], nil
}

func (s *memStore) SetAcceptedState(ctx context.Context, address string, state []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acceptedState[address] = state
	return nil
}

func (s *memStore) GetFinalizedState(ctx context.Context, address string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalizedState[address], nil
}

func (s *memStore) SetFinalizedState(ctx context.Context, address string, state []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizedState[address] = state
	return nil
}

func (s *memStore) GetCode(ctx context.Context, address string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code[address], nil
}

// fixedRegistry always returns the same validator pool.
type fixedRegistry struct {
	validators []Validator
}

func (r *fixedRegistry) AllValidators(ctx context.Context) ([]Validator, error) {
	return r.validators, nil
}

// noopBus discards every event; tests that care about events record them
// instead in recordingBus.
type noopBus struct{}

func (noopBus) Publish(ctx context.Context, ev Event) {}

type recordingBus struct {
	mu     sync.Mutex
	events []Event
}

func (b *recordingBus) Publish(ctx context.Context, ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

// scriptedExecutor returns a pre-programmed vote for every node address,
// falling back to defaultVote. It counts how many times Execute was
// called, for the "number of node executions" assertions in the spec's
// end-to-end scenarios.
type scriptedExecutor struct {
	mu          sync.Mutex
	votes       map[string]Vote
	defaultVote Vote
	calls       int
}

func (e *scriptedExecutor) Execute(ctx context.Context, tx *Transaction, mode Mode, snapshot *ContractSnapshot, leaderReceipt *Receipt, node Validator) (*Receipt, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	vote := e.defaultVote
	if v, ok := e.votes[node.Address]; ok {
		vote = v
	}
	return &Receipt{
		Vote:            vote,
		NodeConfig:      NodeConfig{Address: node.Address},
		ExecutionResult: ExecSuccess,
	}, nil
}

func (e *scriptedExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func pool(n int) []Validator {
	out := make([]Validator, n)
	for i := 0; i < n; i++ {
		out[i] = Validator{Address: string(rune('a' + i)), Stake: uint64(10 + i)}
	}
	return out
}

func newCtx(tx *Transaction, store Store, reg Registry, exec Executor, bus EventBus) *TransactionContext {
	return &TransactionContext{
		Ctx:                  context.Background(),
		Tx:                   tx,
		Store:                store,
		Registry:             reg,
		Executor:             exec,
		Events:               bus,
		ValidatorConcurrency: 8,
	}
}
