package histogram

import (
	"context"
	"sort"

	"github.com/tarstars/hgbm/bin"
	"github.com/tarstars/hgbm/cluster"
	"github.com/tarstars/hgbm/partition"
)

// Vote is the communication-saving strategy (spec.md §4.4, following
// LightGBM's PV-Tree): each worker locally finds its top-K candidate
// columns per (treeId,nodeId); a global 1-vote-per-worker aggregation
// keeps the top-2K columns; only those surviving keys are globally
// reduced.
type Vote struct {
	RawSize int
	NumBins int
	HWidth  bin.Width
	TopK    int
}

type colScore struct {
	col   int32
	score float64
}

// Compute runs the three-step vote protocol. scoreFn ranks a column's
// local histogram (typically the split finder's best gain for that
// histogram) so the top-K/top-2K selection approximates "best global
// split candidate" without a full reduce of every column.
func (v Vote) Compute(ctx context.Context, rows *cluster.Dataset[Row], depth int, cols Columns, scoreFn func(*Histogram) float64) (map[aggregateKey]*Histogram, error) {
	lo := int32(1) << uint(depth)
	nodeFilter := func(nodeID int32) bool { return nodeID >= lo }

	type partialResult struct {
		local map[aggregateKey]*Histogram
		votes map[partition.Key][]int32
	}
	results := make([]partialResult, rows.NumPartitions())

	err := cluster.ForEachPartition(ctx, rows, func(pctx context.Context, idx int, part []Row) error {
		sub := cluster.NewDataset([][]Row{part})
		local, err := BuildLocal(pctx, sub, v.RawSize, v.NumBins, v.HWidth, nodeFilter, cols)
		if err != nil {
			return err
		}

		byNode := map[partition.Key][]colScore{}
		for key, hist := range local {
			tn := partition.Key{TreeID: key.TreeID, NodeID: key.NodeID}
			byNode[tn] = append(byNode[tn], colScore{col: int32(key.ColID), score: scoreFn(hist)})
		}
		votes := map[partition.Key][]int32{}
		for tn, scored := range byNode {
			sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
			k := v.TopK
			if k > len(scored) {
				k = len(scored)
			}
			top := make([]int32, k)
			for i := 0; i < k; i++ {
				top[i] = scored[i].col
			}
			votes[tn] = top
		}
		results[idx] = partialResult{local: local, votes: votes}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Global aggregation: sum 1 vote per worker per column, keep top 2K.
	counts := map[partition.Key]map[int32]int{}
	for _, r := range results {
		for tn, topCols := range r.votes {
			m, ok := counts[tn]
			if !ok {
				m = map[int32]int{}
				counts[tn] = m
			}
			for _, c := range topCols {
				m[c]++
			}
		}
	}
	survivors := map[partition.Key]map[int32]bool{}
	for tn, m := range counts {
		type cc struct {
			col int32
			n   int
		}
		list := make([]cc, 0, len(m))
		for c, n := range m {
			list = append(list, cc{c, n})
		}
		sort.Slice(list, func(i, j int) bool { return list[i].n > list[j].n })
		k := 2 * v.TopK
		if k > len(list) {
			k = len(list)
		}
		set := make(map[int32]bool, k)
		for i := 0; i < k; i++ {
			set[list[i].col] = true
		}
		survivors[tn] = set
	}

	// Reduce only surviving (treeId,nodeId,colId) keys across partitions.
	out := map[aggregateKey]*Histogram{}
	for _, r := range results {
		for key, hist := range r.local {
			tn := partition.Key{TreeID: key.TreeID, NodeID: key.NodeID}
			if set, ok := survivors[tn]; !ok || !set[int32(key.ColID)] {
				continue
			}
			if cur, ok := out[key]; ok {
				out[key] = cur.Plus(hist)
			} else {
				out[key] = hist
			}
		}
	}
	return out, nil
}
