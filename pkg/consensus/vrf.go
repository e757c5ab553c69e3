package consensus

import (
	"math"
	"math/rand"
	"sort"
)

// WeightedSample performs stake-weighted sampling without replacement:
// P(candidate i) ∝ stake_i / Σ stake. It returns up to min(k, len(candidates))
// items. Candidates must be pre-sorted by address by the caller (the
// determinism requirement in §4.3 is over (candidates ordered by address,
// seed, k)); this function does not sort them itself so callers can
// control tie-breaking explicitly.
//
// The algorithm is Efraimidis-Spirakis weighted reservoir sampling: each
// candidate gets a key u_i^(1/w_i) for u_i ~ Uniform(0,1) drawn from the
// seeded source, and the top-k keys win. Given the same ordered candidate
// slice and the same seed, the output is identical across runs and
// platforms.
func WeightedSample(candidates []Validator, k int, seed int64) []Validator {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	rng := rand.New(rand.NewSource(seed))

	type keyed struct {
		v   Validator
		key float64
	}
	keys := make([]keyed, len(candidates))
	for i, c := range candidates {
		w := float64(c.Stake)
		if w <= 0 {
			w = 1e-9
		}
		u := rng.Float64()
		if u <= 0 {
			u = 1e-9
		}
		keys[i] = keyed{v: c, key: math.Pow(u, 1/w)}
	}

	sort.SliceStable(keys, func(i, j int) bool { return keys[i].key > keys[j].key })

	out := make([]Validator, k)
	for i := 0; i < k; i++ {
		out[i] = keys[i].v
	}
	return out
}

// sortedByAddress returns a copy of vs sorted by Address, satisfying the
// "candidates ordered by address" precondition of WeightedSample.
func sortedByAddress(vs []Validator) []Validator {
	out := make([]Validator, len(vs))
	copy(out, vs)
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// excludeAddresses returns the candidates whose address is not in any of
// the given exclusion sets.
func excludeAddresses(candidates []Validator, excluded ...[]string) []Validator {
	skip := make(map[string]struct{})
	for _, set := range excluded {
		for _, a := range set {
			skip[a] = struct{}{}
		}
	}
	out := make([]Validator, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := skip[c.Address]; !ok {
			out = append(out, c)
		}
	}
	return out
}

func addresses(vs []Validator) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Address
	}
	return out
}
