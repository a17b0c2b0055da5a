// Package partition implements the three key-space partitioners over
// (treeId, nodeId, colId) keys described in spec.md §4.3, plus the
// per-depth selection rule between them.
package partition

import (
	"encoding/binary"
	"sort"

	"github.com/zeebo/xxh3"
)

// Key is one histogram/shuffle key.
type Key struct {
	TreeID, NodeID, ColID int
}

// Partitioner maps a Key to a partition index in [0, P). Implementations
// must satisfy: Equal keys under the partitioner's own notion of
// identity map to the same partition (spec.md §4.3's "equals implies
// same partitioning").
type Partitioner interface {
	Partition(k Key) int
	NumPartitions() int
}

func hashKey(a, b, c int) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(a))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(b))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(c))
	return xxh3.Hash(buf[:])
}

// SkipNode partitions by treeId-sorted index and colId, ignoring
// nodeId entirely. This keeps a key's partition stable across a depth
// transition that only changes nodeId, which is what lets the subtract
// strategy derive left-child histograms without a reshuffle.
type SkipNode struct {
	P        int
	TreeRank map[int]int // treeId -> dense sorted rank
}

// NewSkipNode builds a SkipNode partitioner over the given active tree
// ids and partition count.
func NewSkipNode(treeIDs []int, p int) *SkipNode {
	sorted := append([]int(nil), treeIDs...)
	sort.Ints(sorted)
	rank := make(map[int]int, len(sorted))
	for i, t := range sorted {
		rank[t] = i
	}
	return &SkipNode{P: p, TreeRank: rank}
}

func (s *SkipNode) NumPartitions() int { return s.P }

func (s *SkipNode) Partition(k Key) int {
	h := hashKey(s.TreeRank[k.TreeID], 0, k.ColID)
	return int(h % uint64(s.P))
}

// Depth maps nodeId down its ancestor chain until it falls in
// [2^D, 2^(D+1)), then partitions by (treeIndex, ancestorAtDepthD,
// colId). Used when the subtract strategy wants partition stability
// across deeper levels than SkipNode alone would give.
type Depth struct {
	P        int
	D        int
	TreeRank map[int]int
}

// NewDepth builds a Depth(d) partitioner.
func NewDepth(treeIDs []int, p, d int) *Depth {
	sorted := append([]int(nil), treeIDs...)
	sort.Ints(sorted)
	rank := make(map[int]int, len(sorted))
	for i, t := range sorted {
		rank[t] = i
	}
	return &Depth{P: p, D: d, TreeRank: rank}
}

func (dp *Depth) NumPartitions() int { return dp.P }

// Ancestor walks nodeId up the tree (id/2) until it lands in
// [2^d, 2^(d+1)).
func Ancestor(nodeID, d int) int {
	lo, hi := 1<<uint(d), 1<<uint(d+1)
	for nodeID >= hi {
		nodeID /= 2
	}
	for nodeID < lo && nodeID > 0 {
		// shallower than d: nothing to descend to, clamp at root-of-range
		return nodeID
	}
	return nodeID
}

func (dp *Depth) Partition(k Key) int {
	anc := Ancestor(k.NodeID, dp.D)
	h := hashKey(dp.TreeRank[k.TreeID], anc, k.ColID)
	return int(h % uint64(dp.P))
}

// IDRange binary-searches over an ordered (treeId,nodeId) array and
// partitions by that index and colId. Used when the set of active
// nodes is small and known (e.g. a handful of nodes left after the
// subtract strategy's hess/nnz filter).
type IDRange struct {
	P     int
	Order []Key // sorted by (TreeID, NodeID), ColID ignored in Order
}

// NewIDRange builds an IDRange partitioner over the given
// (treeId,nodeId) pairs.
func NewIDRange(pairs []Key, p int) *IDRange {
	order := append([]Key(nil), pairs...)
	sort.Slice(order, func(i, j int) bool {
		if order[i].TreeID != order[j].TreeID {
			return order[i].TreeID < order[j].TreeID
		}
		return order[i].NodeID < order[j].NodeID
	})
	return &IDRange{P: p, Order: order}
}

func (r *IDRange) NumPartitions() int { return r.P }

func (r *IDRange) index(k Key) int {
	return sort.Search(len(r.Order), func(i int) bool {
		o := r.Order[i]
		if o.TreeID != k.TreeID {
			return o.TreeID > k.TreeID
		}
		return o.NodeID >= k.NodeID
	})
}

func (r *IDRange) Partition(k Key) int {
	idx := r.index(k)
	h := hashKey(idx, 0, k.ColID)
	return int(h % uint64(r.P))
}

// Hash is the generic fallback: a plain hash over all three key
// components, used when neither SkipNode nor Depth applies (spec.md
// §4.3's per-depth selection rule's final else-branch).
type Hash struct{ P int }

func (h Hash) NumPartitions() int { return h.P }
func (h Hash) Partition(k Key) int {
	return int(hashKey(k.TreeID, k.NodeID, k.ColID) % uint64(h.P))
}

// Choose implements the per-depth partitioner selection rule of
// spec.md §4.3:
//
//	E ≈ |treeIds| × numCols × colSampleRateByTree × colSampleRateByLevel
//	E ≥ 8P                         -> SkipNode
//	depth>2 && E·2^(d-1) ≥ 8P      -> Depth(d-1)
//	else                            -> Hash
func Choose(treeIDs []int, numCols int, colRateByTree, colRateByLevel float64, p, depth int) Partitioner {
	e := float64(len(treeIDs)) * float64(numCols) * colRateByTree * colRateByLevel
	threshold := 8 * float64(p)
	if e >= threshold {
		return NewSkipNode(treeIDs, p)
	}
	if depth > 2 && e*float64(uint64(1)<<uint(depth-1)) >= threshold {
		return NewDepth(treeIDs, p, depth-1)
	}
	return Hash{P: p}
}
