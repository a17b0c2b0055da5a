package tree

import (
	"testing"

	"github.com/tarstars/hgbm/bin"
	"github.com/tarstars/hgbm/histogram"
	"github.com/tarstars/hgbm/split"
)

func oneColHist(bins []int32, grads, hesses []float64, numBins int) *histogram.Histogram {
	h := histogram.New(numBins, bin.Width32)
	for i, b := range bins {
		h.AddTotal(grads[i], hesses[i])
		if b != 0 {
			h.AddBin(b, grads[i], hesses[i])
		}
	}
	h.Fixup()
	return h
}

func TestGrowerStepSplitsWhenAValidCandidateExists(t *testing.T) {
	bins := []int32{1, 1, 1, 3, 3, 3}
	grads := []float64{-2, -2, -2, 2, 2, 2}
	hesses := []float64{1, 1, 1, 1, 1, 1}
	hist := oneColHist(bins, grads, hesses, 5)

	model := NewModel(3)
	active := depthHistograms{1: {0: hist}}
	g := NewGrower(0, GrowParams{MaxDepth: 3, SplitParams: split.Params{RegLambda: 1}})
	res := g.Step(model, 0, active, func(int32) (float64, float64) { return -6, 6 })

	if len(res.NextNodes) != 2 {
		t.Fatalf("expected a split to produce 2 next nodes, got %d", len(res.NextNodes))
	}
	n := model.Nodes[1]
	if n == nil || n.IsLeaf {
		t.Fatal("node 1 should be an internal split node")
	}
}

func TestGrowerStepSettlesLeafAtMaxDepth(t *testing.T) {
	bins := []int32{1, 1, 3, 3}
	grads := []float64{-2, -2, 2, 2}
	hesses := []float64{1, 1, 1, 1}
	hist := oneColHist(bins, grads, hesses, 5)

	model := NewModel(1)
	active := depthHistograms{1: {0: hist}}
	g := NewGrower(0, GrowParams{MaxDepth: 1, SplitParams: split.Params{RegLambda: 1}})
	res := g.Step(model, 0, active, func(int32) (float64, float64) { return 0, 4 })

	if len(res.NextNodes) != 0 {
		t.Fatalf("at MaxDepth, no further nodes should be produced, got %v", res.NextNodes)
	}
	n := model.Nodes[1]
	if n == nil || !n.IsLeaf {
		t.Fatal("node 1 should have settled as a leaf at MaxDepth")
	}
}

func TestGrowerStepSettlesNoSplitLeafWhenNoColumnQualifies(t *testing.T) {
	// single-bin histogram: no threshold can separate left/right non-trivially
	hist := oneColHist(nil, nil, nil, 2)

	model := NewModel(3)
	active := depthHistograms{1: {0: hist}}
	g := NewGrower(0, GrowParams{MaxDepth: 3, SplitParams: split.Params{RegLambda: 1}})
	g.Step(model, 0, active, func(int32) (float64, float64) { return 0, 2 })

	n := model.Nodes[1]
	if n == nil || !n.IsLeaf || !n.NoSplit {
		t.Fatal("node with no valid split should settle as a NoSplitLeaf")
	}
}

func TestGrowerStepStopsSplittingOnceLeafBudgetIsExhausted(t *testing.T) {
	// Two nodes at depth 1, each with a valid split candidate, but a
	// leaf budget that only has room for one more split (3 leaves
	// total: root starts at 1, MaxLeaves=3 allows 2 splits, and the
	// root split at depth 0 uses the first).
	bins := []int32{1, 1, 1, 3, 3, 3}
	grads := []float64{-2, -2, -2, 2, 2, 2}
	hesses := []float64{1, 1, 1, 1, 1, 1}
	histRoot := oneColHist(bins, grads, hesses, 5)
	histA := oneColHist(bins, grads, hesses, 5)
	histB := oneColHist(bins, grads, hesses, 5)

	model := NewModel(4)
	g := NewGrower(0, GrowParams{MaxDepth: 4, MaxLeaves: 3, SplitParams: split.Params{RegLambda: 1}})
	g.Step(model, 0, depthHistograms{1: {0: histRoot}}, func(int32) (float64, float64) { return -6, 6 })

	active := depthHistograms{2: {0: histA}, 3: {0: histB}}
	res := g.Step(model, 1, active, func(int32) (float64, float64) { return -6, 6 })

	var splitCount, leafCount int
	for _, id := range []int32{2, 3} {
		n := model.Nodes[id]
		if n == nil {
			t.Fatalf("node %d should have settled", id)
		}
		if n.IsLeaf {
			leafCount++
		} else {
			splitCount++
		}
	}
	if splitCount != 1 || leafCount != 1 {
		t.Fatalf("expected exactly one node to split and one to settle once the leaf budget ran out, got splits=%d leaves=%d", splitCount, leafCount)
	}
	if len(res.NextNodes) != 2 {
		t.Fatalf("expected the single accepted split to contribute 2 next nodes, got %d", len(res.NextNodes))
	}
	if g.remaining != 0 {
		t.Fatalf("remaining leaf budget = %d, want 0", g.remaining)
	}
}

func TestSettleRemainingFillsEveryPendingID(t *testing.T) {
	model := NewModel(2)
	g := NewGrower(0, GrowParams{MaxDepth: 2, SplitParams: split.Params{RegLambda: 1}})
	g.SettleRemaining(model, 2, []int32{4, 5}, func(id int32) (float64, float64) {
		return float64(id), 1
	})
	for _, id := range []int32{4, 5} {
		n := model.Nodes[id]
		if n == nil || !n.IsLeaf {
			t.Fatalf("node %d should have been settled by SettleRemaining", id)
		}
	}
}
