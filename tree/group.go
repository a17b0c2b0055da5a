package tree

import (
	"github.com/tarstars/hgbm/histogram"
	"github.com/tarstars/hgbm/partition"
)

// GroupByNode reshapes one strategy's (treeId,nodeId,colId)->histogram
// map into the per-node, per-column view Grower.Step consumes, keeping
// only the entries belonging to treeID. It also returns a nodeTotals
// lookup (any column's histogram carries the full node G/H after
// Fixup, spec.md §4.4) suitable for Grower.Step/SettleRemaining.
func GroupByNode(treeID int, histos map[partition.Key]*histogram.Histogram) (depthHistograms, func(nodeID int32) (float64, float64)) {
	out := depthHistograms{}
	totals := map[int32][2]float64{}

	for key, hist := range histos {
		if key.TreeID != treeID {
			continue
		}
		nodeID := int32(key.NodeID)
		byCol, ok := out[nodeID]
		if !ok {
			byCol = map[int32]*histogram.Histogram{}
			out[nodeID] = byCol
		}
		byCol[int32(key.ColID)] = hist

		if _, seen := totals[nodeID]; !seen {
			g, h := hist.TotalGradHess()
			totals[nodeID] = [2]float64{g, h}
		}
	}

	nodeTotals := func(nodeID int32) (float64, float64) {
		t := totals[nodeID]
		return t[0], t[1]
	}
	return out, nodeTotals
}
