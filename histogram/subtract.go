package histogram

import (
	"context"

	"github.com/tarstars/hgbm/bin"
	"github.com/tarstars/hgbm/cluster"
)

// Subtract builds root histograms at depth 0, then at each deeper
// depth builds only right children and derives left children as
// parent-minus-right, retaining parent histograms in memory between
// depths (spec.md §4.4).
type Subtract struct {
	RawSize     int
	NumBins     int
	HWidth      bin.Width
	MinNodeHess float64

	parents map[aggregateKey]*Histogram
}

// Compute returns the growable histograms for the given depth: a node
// with Σhess < 2·minNodeHess or nnz≤2 is dropped (cannot split
// further). Basic and Vote apply no such filter.
func (s *Subtract) Compute(ctx context.Context, rows *cluster.Dataset[Row], depth int, cols Columns) (map[aggregateKey]*Histogram, error) {
	if depth == 0 {
		roots, err := BuildLocal(ctx, rows, s.RawSize, s.NumBins, s.HWidth, func(nodeID int32) bool {
			return nodeID == 1
		}, cols)
		if err != nil {
			return nil, err
		}
		s.parents = roots
		return filterGrowable(roots, s.MinNodeHess), nil
	}

	lo := int32(1) << uint(depth)
	right, err := BuildLocal(ctx, rows, s.RawSize, s.NumBins, s.HWidth, func(nodeID int32) bool {
		return nodeID >= lo && nodeID%2 == 1
	}, cols)
	if err != nil {
		return nil, err
	}

	result := make(map[aggregateKey]*Histogram, 2*len(right))
	nextParents := make(map[aggregateKey]*Histogram, 2*len(right))
	for key, rightHist := range right {
		parentKey := aggregateKey{TreeID: key.TreeID, NodeID: key.NodeID / 2, ColID: key.ColID}
		parentHist, ok := s.parents[parentKey]
		if !ok {
			// parent was filtered out as non-growable at the shallower
			// depth; its children cannot split either.
			continue
		}
		leftHist := parentHist.Minus(rightHist)
		leftKey := aggregateKey{TreeID: key.TreeID, NodeID: key.NodeID - 1, ColID: key.ColID}

		result[key] = rightHist
		result[leftKey] = leftHist
		nextParents[key] = rightHist
		nextParents[leftKey] = leftHist
	}
	s.parents = nextParents
	return filterGrowable(result, s.MinNodeHess), nil
}

func filterGrowable(m map[aggregateKey]*Histogram, minNodeHess float64) map[aggregateKey]*Histogram {
	out := make(map[aggregateKey]*Histogram, len(m))
	for k, h := range m {
		_, hess := h.TotalGradHess()
		if hess < 2*minNodeHess || h.NNZ() <= 2 {
			continue
		}
		out[k] = h
	}
	return out
}
