package histogram

import (
	"context"

	"github.com/tarstars/hgbm/bin"
	"github.com/tarstars/hgbm/cluster"
	"github.com/tarstars/hgbm/partition"
	"github.com/tarstars/hgbm/selector"
)

// Row is one discretized training instance as seen by the histogram
// computer: its bins, the base models (trees) it currently belongs
// to, its current leaf (nodeId) in each of those trees, and the
// "recurrent" grad-hess compression described in spec.md §4.4 — one
// (grad,hess) pair per rawSize output, repeated across every base
// model of the same boosting round.
type Row struct {
	Bins     bin.BinVector
	TreeIDs  []int32
	NodeIDs  []int32 // parallel to TreeIDs
	GradHess []float64
}

// Columns describes which columns a tree/round is allowed to see and
// which of those are categorical — TreeConfig's columnSelector /
// catCols from spec.md §3, pre-resolved into an explicit sorted list
// (spec.md's "sortedIndices (if columns pre-sampled)").
type Columns struct {
	Sorted []int32
	ColSel selector.Selector
}

// aggregateKey is the (treeId, nodeId, colId) partition.Key histograms
// are aggregated under.
type aggregateKey = partition.Key

// BuildLocal performs the per-partition local histogram build shared
// by every strategy (spec.md §4.4): for each row filtered by
// nodeFilter, for each (treeId, nodeId) membership, accumulate
// totals, then walk active non-zero bins whose column passes colSel;
// finally seed and fixup slot 0/1 for every selected column of that
// (treeId, nodeId).
func BuildLocal(
	ctx context.Context,
	rows *cluster.Dataset[Row],
	rawSize int,
	numBins int,
	hWidth bin.Width,
	nodeFilter func(nodeID int32) bool,
	cols Columns,
) (map[aggregateKey]*Histogram, error) {
	return cluster.MapReduceByKey(ctx, rows,
		func(_ int, part []Row) map[aggregateKey]*Histogram {
			local := map[aggregateKey]*Histogram{}
			totals := map[partition.Key]struct{ g, h float64 }{}

			for _, row := range part {
				for i, treeID := range row.TreeIDs {
					nodeID := row.NodeIDs[i]
					if !nodeFilter(nodeID) {
						continue
					}
					rawIdx := int(treeID) % rawSize
					g, h := row.GradHess[2*rawIdx], row.GradHess[2*rawIdx+1]
					tnKey := partition.Key{TreeID: int(treeID), NodeID: int(nodeID)}
					t := totals[tnKey]
					t.g += g
					t.h += h
					totals[tnKey] = t

					row.Bins.ActiveIter(func(col, b int32) bool {
						if !cols.ColSel.Contains(int(treeID), int64(col)) {
							return true
						}
						key := aggregateKey{TreeID: int(treeID), NodeID: int(nodeID), ColID: int(col)}
						hist, ok := local[key]
						if !ok {
							hist = New(numBins, hWidth)
							local[key] = hist
						}
						hist.AddBin(b, g, h)
						return true
					})
				}
			}

			for tnKey, t := range totals {
				for _, col := range cols.Sorted {
					key := aggregateKey{TreeID: tnKey.TreeID, NodeID: tnKey.NodeID, ColID: int(col)}
					if _, ok := local[key]; !ok {
						if !cols.ColSel.Contains(tnKey.TreeID, int64(col)) {
							continue
						}
						local[key] = New(numBins, hWidth)
					}
					local[key].AddTotal(t.g, t.h)
				}
			}
			for _, hist := range local {
				hist.Fixup()
			}
			return local
		},
		func(a, b *Histogram) *Histogram { return a.Plus(b) },
	)
}
