// Package tree implements the arena-indexed tree model of spec.md §4.6:
// nodes are addressed by id (root=1, left=2n, right=2n+1) in a map
// keyed by id rather than linked parent-to-child, following the teacher's OneTree
// array-of-TreeNode layout (extra_boost/ebl/tree.go) generalized from a
// recursively-grown binary tree to the engine's level-wise grower.
package tree

import (
	"github.com/kelindar/bitmap"

	"github.com/tarstars/hgbm/bin"
	"github.com/tarstars/hgbm/split"
)

// NoSplitLeaf marks a node that reached split search but found no valid
// candidate and degenerated into a leaf (spec.md §4.6 supplemented
// feature) — distinguished from an ordinary leaf so diagnostics can
// tell "ran out of depth" from "gain/hess gates never satisfied".
const NoSplitLeaf = -1

// Node is one slot of the arena. IsLeaf nodes carry Weight; internal
// nodes carry the split payload needed at predict time.
type Node struct {
	ID            int32
	IsLeaf        bool
	NoSplit       bool // true if this leaf is a NoSplitLeaf degenerate case
	ColID         int32
	IsCategorical bool
	Threshold     int32 // numeric/ranking: route left iff bin < Threshold
	LeftBitset    bitmap.Bitmap
	MissingLeft   bool
	Weight        float64
	Gain          float64
	Depth         int
}

// Model is one boosted tree, arena-indexed by node id.
type Model struct {
	Nodes    map[int32]*Node
	MaxDepth int
}

// NewModel allocates an empty arena.
func NewModel(maxDepth int) *Model {
	return &Model{Nodes: map[int32]*Node{}, MaxDepth: maxDepth}
}

// AddLeaf records a terminal node.
func (m *Model) AddLeaf(id int32, depth int, weight float64, noSplit bool) {
	m.Nodes[id] = &Node{ID: id, IsLeaf: true, NoSplit: noSplit, Weight: weight, Depth: depth}
}

// AddSplit records an internal node from a winning split.BestSplit.
func (m *Model) AddSplit(id int32, depth int, s split.BestSplit) {
	m.Nodes[id] = &Node{
		ID:            id,
		IsCategorical: s.Kind == split.Categorical,
		ColID:         int32(s.ColID),
		Threshold:     s.Threshold,
		LeftBitset:    s.LeftBitset,
		MissingLeft:   s.MissingLeft,
		Gain:          s.Gain,
		Depth:         depth,
	}
}

// LeftChild and RightChild compute an id's children in the 2n/2n+1
// arena scheme (spec.md §4.6).
func LeftChild(id int32) int32  { return 2 * id }
func RightChild(id int32) int32 { return 2*id + 1 }

// GoesLeft decides routing for one row at one internal node — exported
// so the boosting loop can route rows between depths while a tree is
// still being grown, before Predict/PredictLeaf has a finished model
// to walk in one shot.
func (n *Node) GoesLeft(colBin int32) bool {
	return n.goesLeft(colBin, colBin == 0)
}

func (n *Node) goesLeft(colBin int32, isMissing bool) bool {
	if isMissing {
		return n.MissingLeft
	}
	if n.IsCategorical {
		return n.LeftBitset.Contains(uint32(colBin))
	}
	return colBin < n.Threshold
}

// Predict walks row from the root and returns the leaf weight
// (spec.md §4.6/§5).
func (m *Model) Predict(row bin.BinVector) float64 {
	id := int32(1)
	for {
		n, ok := m.Nodes[id]
		if !ok || n.IsLeaf {
			if !ok {
				return 0
			}
			return n.Weight
		}
		b := row.At(n.ColID)
		if n.goesLeft(b, b == 0) {
			id = LeftChild(id)
		} else {
			id = RightChild(id)
		}
	}
}

// PredictLeaf returns the id of the leaf row routes to, without
// reading the leaf's weight.
func (m *Model) PredictLeaf(row bin.BinVector) int32 {
	id := int32(1)
	for {
		n, ok := m.Nodes[id]
		if !ok || n.IsLeaf {
			return id
		}
		b := row.At(n.ColID)
		if n.goesLeft(b, b == 0) {
			id = LeftChild(id)
		} else {
			id = RightChild(id)
		}
	}
}

// NumNodes reports the arena's node count.
func (m *Model) NumNodes() int { return len(m.Nodes) }
