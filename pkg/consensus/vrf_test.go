package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeightedSample_Deterministic(t *testing.T) {
	candidates := sortedByAddress(pool(10))

	a := WeightedSample(candidates, 4, 42)
	b := WeightedSample(candidates, 4, 42)

	assert.Equal(t, a, b, "same (candidates, seed, k) must yield the same draw")
}

func TestWeightedSample_DifferentSeedsUsuallyDiffer(t *testing.T) {
	candidates := sortedByAddress(pool(10))

	a := WeightedSample(candidates, 4, 1)
	b := WeightedSample(candidates, 4, 2)

	assert.NotEqual(t, a, b)
}

func TestWeightedSample_ClampsToCandidateCount(t *testing.T) {
	candidates := pool(3)
	out := WeightedSample(candidates, 10, 1)
	assert.Len(t, out, 3)
}

func TestWeightedSample_NoReplacement(t *testing.T) {
	candidates := pool(8)
	out := WeightedSample(candidates, 5, 7)

	seen := make(map[string]bool)
	for _, v := range out {
		assert.False(t, seen[v.Address], "candidate drawn twice")
		seen[v.Address] = true
	}
}
