package txstore

import (
	"context"
	"sync"

	"github.com/gochain/consensus/pkg/consensus"
)

// StaticRegistry is a minimal consensus.Registry: validator registry
// management itself (staking, churn, slashing) is out of scope for this
// engine, which only ever reads the current pool.
type StaticRegistry struct {
	mu         sync.RWMutex
	validators []consensus.Validator
}

func NewStaticRegistry(validators []consensus.Validator) *StaticRegistry {
	return &StaticRegistry{validators: validators}
}

func (r *StaticRegistry) AllValidators(ctx context.Context) ([]consensus.Validator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]consensus.Validator, len(r.validators))
	copy(out, r.validators)
	return out, nil
}

// SetValidators replaces the pool; used by the admin surface / test setup
// to simulate validator churn without owning real registry semantics.
func (r *StaticRegistry) SetValidators(validators []consensus.Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators = validators
}
