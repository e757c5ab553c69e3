// Package txstore is the badger-backed implementation of the consensus
// engine's Store interface: transactions, per-address ordering, balances,
// and the two-slot (accepted/finalized) contract state model.
package txstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gochain/consensus/pkg/consensus"
)

// Config mirrors the teacher's StorageConfig shape.
type Config struct {
	DataDir          string
	SnapshotCacheSize int
}

func DefaultConfig() *Config {
	return &Config{DataDir: "./data", SnapshotCacheSize: 256}
}

// Store is the badger-backed implementation of consensus.Store.
type Store struct {
	mu       sync.RWMutex
	db       *badger.DB
	snapshots *lru.Cache[string, []byte] // address -> accepted state, hot-path read cache
}

// New opens (or creates) a badger database at config.DataDir.
func New(config *Config) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	opts := badger.DefaultOptions(config.DataDir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	cache, err := lru.New[string, []byte](config.SnapshotCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot cache: %w", err)
	}

	return &Store{db: db, snapshots: cache}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func txKey(hash string) []byte   { return []byte("txn:" + hash) }
func balanceKey(addr string) []byte { return []byte("bal:" + addr) }
func acceptedKey(addr string) []byte { return []byte("contract:accepted:" + addr) }
func finalizedKey(addr string) []byte { return []byte("contract:finalized:" + addr) }
func codeKey(addr string) []byte { return []byte("contract:code:" + addr) }

func (s *Store) SaveTransaction(ctx context.Context, tx *consensus.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(txKey(tx.Hash), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store transaction: %w", err)
	}
	return nil
}

func (s *Store) LoadTransaction(ctx context.Context, hash string) (*consensus.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(txKey(hash))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve transaction: %w", err)
	}

	var tx consensus.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	return &tx, nil
}

// allTransactions scans every stored transaction. Acceptable at this
// engine's scale (§2 size budget excludes a secondary-index layer); a
// production deployment would maintain status/address indexes instead of
// scanning the txn: prefix on every poll.
func (s *Store) allTransactions() ([]*consensus.Transaction, error) {
	var out []*consensus.Transaction
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("txn:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var tx consensus.Transaction
			if err := json.Unmarshal(data, &tx); err != nil {
				return err
			}
			out = append(out, &tx)
		}
		return nil
	})
	return out, err
}

func (s *Store) TransactionsByStatus(ctx context.Context, status consensus.Status) ([]*consensus.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.allTransactions()
	if err != nil {
		return nil, err
	}
	var out []*consensus.Transaction
	for _, tx := range all {
		if tx.Status == status {
			out = append(out, tx)
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

func (s *Store) TransactionsByAddressAndStatuses(ctx context.Context, address string, statuses ...consensus.Status) ([]*consensus.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[consensus.Status]struct{}, len(statuses))
	for _, st := range statuses {
		want[st] = struct{}{}
	}

	all, err := s.allTransactions()
	if err != nil {
		return nil, err
	}
	var out []*consensus.Transaction
	for _, tx := range all {
		if tx.ToAddress != address {
			continue
		}
		if _, ok := want[tx.Status]; ok {
			out = append(out, tx)
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

func (s *Store) TransactionsNewerThan(ctx context.Context, address string, after int64) ([]*consensus.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.allTransactions()
	if err != nil {
		return nil, err
	}
	var out []*consensus.Transaction
	for _, tx := range all {
		if tx.ToAddress == address && tx.CreatedAt > after {
			out = append(out, tx)
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

func (s *Store) PredecessorFinalized(ctx context.Context, tx *consensus.Transaction) (bool, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.allTransactions()
	if err != nil {
		return false, false, err
	}
	var sameAddress []*consensus.Transaction
	for _, other := range all {
		if other.ToAddress == tx.ToAddress {
			sameAddress = append(sameAddress, other)
		}
	}
	sortByCreatedAt(sameAddress)

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

func sortByCreatedAt(txs []*consensus.Transaction) {
	sort.Slice(txs, func(i, j int) bool { return txs[i].CreatedAt < txs[j].CreatedAt })
}

func (s *Store) GetBalance(ctx context.Context, address string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var balance uint64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(balanceKey(address))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		_, err = fmt.Sscanf(string(data), "%d", &balance)
		return err
	})
	return balance, err
}

func (s *Store) SetBalance(ctx context.Context, address string, balance uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(balanceKey(address), []byte(fmt.Sprintf("%d", balance)))
	})
}

func (s *Store) GetAcceptedState(ctx context.Context, address string) ([]byte, error) {
	if v, ok := s.snapshots.Get(address); ok {
		return v, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var state []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(acceptedKey(address))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		state, err = item.ValueCopy(nil)
		return err
	})
	if err == nil {
		s.snapshots.Add(address, state)
	}
	return state, err
}

func (s *Store) SetAcceptedState(ctx context.Context, address string, state []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(acceptedKey(address), state)
	})
	if err == nil {
		s.snapshots.Add(address, state)
	}
	return err
}

func (s *Store) GetFinalizedState(ctx context.Context, address string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var state []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(finalizedKey(address))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		state, err = item.ValueCopy(nil)
		return err
	})
	return state, err
}

func (s *Store) SetFinalizedState(ctx context.Context, address string, state []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(finalizedKey(address), state)
	})
}

func (s *Store) GetCode(ctx context.Context, address string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var code []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(codeKey(address))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		code, err = item.ValueCopy(nil)
		return err
	})
	return code, err
}

func (s *Store) SetCode(ctx context.Context, address string, code []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(codeKey(address), code)
	})
}

// Compact runs badger's value-log GC, following the teacher's
// Storage.Compact.
func (s *Store) Compact() error {
	return s.db.RunValueLogGC(0.7)
}
