package histogram

import (
	"context"

	"github.com/tarstars/hgbm/bin"
	"github.com/tarstars/hgbm/cluster"
)

// Basic rebuilds histograms for every active node at every depth:
// node filter f(n) = n >= 2^depth (spec.md §4.4).
type Basic struct {
	RawSize int
	NumBins int
	HWidth  bin.Width
}

// Compute builds histograms for every active (treeId,nodeId,colId) at
// the given depth.
func (b Basic) Compute(ctx context.Context, rows *cluster.Dataset[Row], depth int, cols Columns) (map[aggregateKey]*Histogram, error) {
	lo := int32(1) << uint(depth)
	return BuildLocal(ctx, rows, b.RawSize, b.NumBins, b.HWidth, func(nodeID int32) bool {
		return nodeID >= lo
	}, cols)
}
