package tree

import (
	"github.com/tarstars/hgbm/histogram"
	"github.com/tarstars/hgbm/split"
)

// GrowParams bundles the per-tree hyperparameters the level-wise
// grower consults (spec.md §6).
type GrowParams struct {
	MaxDepth    int
	MaxLeaves   int // <=0 means unbounded; remainingLeaves[t] budget of spec.md §4.6 steps 4/5
	SplitParams split.Params
	IsCatCol    func(colID int32) bool
}

// Grower builds one tree level by level: at each depth it is handed
// the growable (treeId,nodeId,colId) histograms for that depth (by the
// caller, which owns the chosen Strategy and the live treeId so many
// trees of one boosting round can share a single histogram pass), and
// decides, per node, whether to split or settle as a leaf.
// remaining tracks spec.md §4.6's remainingLeaves[t]: it starts at
// MaxLeaves-1 and is decremented once per accepted split (a split turns
// one pending leaf into two, a net +1 leaf), forcing every node still
// active once it hits zero to settle instead of splitting further.
type Grower struct {
	TreeID    int
	Params    GrowParams
	remaining int
}

// NewGrower constructs a grower for one tree of the boosting round. A
// tree starts at one leaf (the root), so MaxLeaves-1 splits are
// available before the budget is exhausted.
func NewGrower(treeID int, p GrowParams) *Grower {
	remaining := p.MaxLeaves - 1
	if p.MaxLeaves <= 0 {
		remaining = 1<<31 - 1
	}
	return &Grower{TreeID: treeID, Params: p, remaining: remaining}
}

// depthHistograms is what the caller supplies per depth: for every
// node active at that depth, the per-column histograms keyed by colId.
type depthHistograms = map[int32]map[int32]*histogram.Histogram

// StepResult reports, for one depth, which nodes will be grown further
// (their ids, to seed the next depth's row routing) versus settled.
type StepResult struct {
	NextNodes []int32
}

// Step consumes one depth's histograms and mutates model in place:
// for every active node it runs the split finder across that node's
// available columns, accepts the best valid split (or settles a leaf,
// marking NoSplitLeaf when the node was eligible to grow but no column
// produced a valid split), per spec.md §4.5/§4.6.
func (g *Grower) Step(model *Model, depth int, active depthHistograms, nodeTotals func(nodeID int32) (float64, float64)) StepResult {
	var next []int32
	atMaxDepth := depth+1 >= g.Params.MaxDepth

	for nodeID, cols := range active {
		var best split.BestSplit
		found := false
		for colID, hist := range cols {
			isCat := g.Params.IsCatCol != nil && g.Params.IsCatCol(colID)
			cand := split.Find(hist, int(colID), split.Numeric, isCat, g.Params.SplitParams)
			if !cand.Valid {
				continue
			}
			if !found || split.Better(best, cand) {
				found = true
				best = cand
			}
		}

		if !found || atMaxDepth || g.remaining <= 0 {
			gSum, hSum := nodeTotals(nodeID)
			w := split.LeafWeight(gSum, hSum, g.Params.SplitParams.RegAlpha, g.Params.SplitParams.RegLambda)
			model.AddLeaf(nodeID, depth, w, !found)
			continue
		}

		model.AddSplit(nodeID, depth, best)
		g.remaining--
		next = append(next, LeftChild(nodeID), RightChild(nodeID))
	}

	return StepResult{NextNodes: next}
}

// SettleRemaining forces every id still pending at the final depth
// into a leaf — called once the grower reaches MaxDepth so no node is
// left without a model entry.
func (g *Grower) SettleRemaining(model *Model, depth int, ids []int32, nodeTotals func(nodeID int32) (float64, float64)) {
	for _, id := range ids {
		if _, ok := model.Nodes[id]; ok {
			continue
		}
		gSum, hSum := nodeTotals(id)
		w := split.LeafWeight(gSum, hSum, g.Params.SplitParams.RegAlpha, g.Params.SplitParams.RegLambda)
		model.AddLeaf(id, depth, w, false)
	}
}
