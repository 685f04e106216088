// Package ranking picks the best-scoring candidates of a search. The
// Ranker interface leaves room for an accelerated implementation; the one
// shipped here computes a softmax on the CPU.
package ranking

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Ranker returns the indices of the top k scores, best first.
type Ranker interface {
	TopK(scores []float64, k int) []int
}

// Softmax ranks by softmax probability. Ties keep input order, so results
// are reproducible for identical inputs.
type Softmax struct{}

// NewSoftmax constructs a Softmax ranker.
func NewSoftmax() *Softmax {
	return &Softmax{}
}

// Probabilities returns the softmax of scores, computed through log-sum-exp
// so large scores do not overflow.
func (Softmax) Probabilities(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	lse := floats.LogSumExp(scores)
	probs := make([]float64, len(scores))
	for i, s := range scores {
		probs[i] = math.Exp(s - lse)
	}
	return probs
}

// TopK implements Ranker. k is clamped to [0, len(scores)].
func (r Softmax) TopK(scores []float64, k int) []int {
	if k > len(scores) {
		k = len(scores)
	}
	if k <= 0 {
		return []int{}
	}
	probs := r.Probabilities(scores)
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return probs[idx[a]] > probs[idx[b]]
	})
	return idx[:k]
}
