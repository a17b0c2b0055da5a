// Package selector implements the deterministic, seeded sampling
// predicates described in spec.md §4.2: a pure function
// (baseId, key) -> bool used for column, row, block, and partition
// sampling, plus AND-composition (Union) and an index() helper.
package selector

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Selector decides whether a given (baseId, key) pair is selected.
// Implementations must be pure and fork-consistent: identical results
// across machines for the same (seed, baseId, key).
type Selector interface {
	Contains(baseID int, key int64) bool
}

// Index returns the subset of base ids (out of numBases) for which sel
// selects the given key. Used to compute a row's treeIds membership.
func Index(sel Selector, numBases int, key int64) []int {
	out := make([]int, 0, numBases)
	for b := 0; b < numBases; b++ {
		if sel.Contains(b, key) {
			out = append(out, b)
		}
	}
	return out
}

// True always selects.
type True struct{}

func (True) Contains(int, int64) bool { return true }

// Hash deterministically selects a (seed, baseId, key) triple with
// probability rate, via xxhash.Sum64 over the encoded triple (grounded
// on tamirms-streamhash's use of the same package for content
// hashing). The digest, divided by 2^64, gives a uniform [0,1) draw
// that is pure and reproducible across machines.
type Hash struct {
	Seed int64
	Rate float64
}

func (h Hash) Contains(baseID int, key int64) bool {
	return nextDouble(h.Seed, int64(baseID), key) < h.Rate
}

func nextDouble(seed, baseID, key int64) float64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(seed))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(baseID))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(key))
	digest := xxhash.Sum64(buf[:])
	return float64(digest) / (1 << 64)
}

// Union is the AND-composition of two selectors: used to intersect
// tree-level and level-level column sampling (spec.md §4.2).
type Union struct {
	A, B Selector
}

func (u Union) Contains(baseID int, key int64) bool {
	return u.A.Contains(baseID, key) && u.B.Contains(baseID, key)
}

// NewColumnSelector builds the tree-level ∩ level-level column selector
// from the two configured sample rates, falling back to True when a
// rate is 1 (no sampling), matching spec.md §6's (0,1] constraint.
func NewColumnSelector(seed int64, rateByTree, rateByLevel float64) Selector {
	var s Selector = True{}
	if rateByTree < 1 {
		s = Hash{Seed: seed ^ 0x5151, Rate: rateByTree}
	}
	if rateByLevel < 1 {
		lvl := Selector(Hash{Seed: seed ^ 0x3737, Rate: rateByLevel})
		if _, ok := s.(True); ok {
			s = lvl
		} else {
			s = Union{A: s, B: lvl}
		}
	}
	return s
}
