// Package position computes ordering keys for sibling lists. Keys are int64
// drawn from a gapped integer space: appends and head inserts step by Step,
// inserts between neighbors bisect the gap. When a gap can no longer be
// bisected the caller renormalizes the whole list through a batch reorder.
package position

import (
	"errors"
	"math"
	"slices"
)

// Step is the spacing between keys assigned by Renormalize and the stride
// used for head/tail inserts.
const Step int64 = 1 << 10

var (
	// ErrExhausted means the target gap cannot be bisected (or the integer
	// range would overflow); the sibling list needs renormalization.
	ErrExhausted = errors.New("position precision exhausted")

	// ErrUnknownAnchor means the insert-after position is not among the
	// siblings; the caller raced a concurrent move and should recompute.
	ErrUnknownAnchor = errors.New("insert anchor not among siblings")
)

// Next returns a key placing a new item after the given sibling position.
// A nil anchor inserts at the head; inserting after the last sibling appends.
// Siblings may arrive in any order; they are sorted before use.
func Next(siblings []int64, after *int64) (int64, error) {
	if len(siblings) == 0 {
		return Step, nil
	}

	sorted := slices.Clone(siblings)
	slices.Sort(sorted)

	if after == nil {
		first := sorted[0]
		if first <= math.MinInt64+Step {
			return 0, ErrExhausted
		}
		return first - Step, nil
	}

	idx, found := slices.BinarySearch(sorted, *after)
	if !found {
		return 0, ErrUnknownAnchor
	}

	if idx == len(sorted)-1 {
		last := sorted[idx]
		if last >= math.MaxInt64-Step {
			return 0, ErrExhausted
		}
		return last + Step, nil
	}

	lo, hi := sorted[idx], sorted[idx+1]
	if hi-lo < 2 {
		return 0, ErrExhausted
	}
	return lo + (hi-lo)/2, nil
}

// Renormalize returns evenly spaced keys for n siblings: Step, 2*Step, ...
// The caller writes them back in its current logical order, so relative
// order is preserved by construction.
func Renormalize(n int) []int64 {
	keys := make([]int64, n)
	for i := range keys {
		keys[i] = Step * int64(i+1)
	}
	return keys
}
