package boost

import (
	"context"
	"encoding/binary"
	"math"
	"math/rand"

	"github.com/kelindar/simd"

	"github.com/tarstars/hgbm/bin"
	"github.com/tarstars/hgbm/checkpoint"
	"github.com/tarstars/hgbm/cluster"
	"github.com/tarstars/hgbm/histogram"
	"github.com/tarstars/hgbm/partition"
	"github.com/tarstars/hgbm/sample"
	"github.com/tarstars/hgbm/selector"
	"github.com/tarstars/hgbm/split"
	"github.com/tarstars/hgbm/tree"
)

// checkpointLevel maps Config's StorageLevel onto checkpoint.StorageLevel
// (same ordering, distinct types: boost's is the hyperparameter-facing
// enum of spec.md §6, checkpoint's is the store-facing one of §4.8).
func checkpointLevel(l StorageLevel) checkpoint.StorageLevel {
	switch l {
	case MemDiskSer:
		return checkpoint.MemoryAndDiskSerialized
	case DiskOnly:
		return checkpoint.DiskOnly
	default:
		return checkpoint.MemoryAndDisk
	}
}

// closerResource adapts a Store's Close into checkpoint.Resource so the
// store is released through the same ResourceCleaner path as every
// other per-fit acquisition (spec.md §5).
type closerResource struct{ close func() error }

func (c closerResource) Release() {
	if err := c.close(); err != nil {
		_ = err // logged by checkpoint.ResourceCleaner's recover wrapper on panic only; Store.Close never errors in practice
	}
}

// encodeRawPreds serializes every row's current raw-prediction vector
// into one flat byte buffer, the payload a Checkpointer materializes
// for the "raw-predictions" role (spec.md §4.1/§4.8).
func encodeRawPreds(rows []*Instance) []byte {
	if len(rows) == 0 {
		return nil
	}
	rawSize := len(rows[0].RawPred)
	buf := make([]byte, 8*rawSize*len(rows))
	for i, r := range rows {
		for k, v := range r.RawPred {
			binary.LittleEndian.PutUint64(buf[8*(i*rawSize+k):], math.Float64bits(v))
		}
	}
	return buf
}

func chunkRows(hrows []histogram.Row, blockSize int) [][]histogram.Row {
	if blockSize <= 0 {
		blockSize = len(hrows)
	}
	if blockSize == 0 {
		return nil
	}
	var out [][]histogram.Row
	for i := 0; i < len(hrows); i += blockSize {
		end := i + blockSize
		if end > len(hrows) {
			end = len(hrows)
		}
		out = append(out, hrows[i:end])
	}
	return out
}

// makeStrategy binds one of the three histogram.Compute methods
// (spec.md §4.4) to a uniform closure shape for the depth loop.
func makeStrategy(cfg Config, hWidth bin.Width) func(ctx context.Context, rows *cluster.Dataset[histogram.Row], depth int, cols histogram.Columns) (map[partition.Key]*histogram.Histogram, error) {
	switch cfg.HistogramComputationType {
	case HistSubtract:
		s := &histogram.Subtract{RawSize: cfg.RawSize, NumBins: cfg.MaxBins, HWidth: hWidth, MinNodeHess: cfg.MinNodeHess}
		return s.Compute
	case HistVote:
		v := histogram.Vote{RawSize: cfg.RawSize, NumBins: cfg.MaxBins, HWidth: hWidth, TopK: voteTopK(cfg)}
		scoreParams := split.Params{
			RegAlpha: cfg.RegAlpha, RegLambda: cfg.RegLambda,
			MinGain: cfg.MinGain, MinNodeHess: cfg.MinNodeHess,
		}
		scoreFn := func(h *histogram.Histogram) float64 {
			s := split.Find(h, 0, split.Numeric, false, scoreParams)
			if !s.Valid {
				return math.Inf(-1)
			}
			return s.Gain
		}
		return func(ctx context.Context, rows *cluster.Dataset[histogram.Row], depth int, cols histogram.Columns) (map[partition.Key]*histogram.Histogram, error) {
			return v.Compute(ctx, rows, depth, cols, scoreFn)
		}
	default:
		b := histogram.Basic{RawSize: cfg.RawSize, NumBins: cfg.MaxBins, HWidth: hWidth}
		return b.Compute
	}
}

func voteTopK(cfg Config) int {
	if cfg.VoteTopK > 0 {
		return cfg.VoteTopK
	}
	return 8
}

// nodeTotalsFromRows sums (grad,hess) for tree t directly from the
// rows' current node membership, independent of any histogram
// strategy's growability filtering — this is what lets a node the
// Subtract/Vote strategy dropped as non-growable (spec.md §4.4's
// "Σhess<2·minNodeHess or nnz≤2") still settle into a correctly
// weighted leaf instead of silently losing its row mass.
func nodeTotalsFromRows(hrows []histogram.Row, rawSize int, t int32) func(nodeID int32) (float64, float64) {
	sums := map[int32][2]float64{}
	rawIdx := int(t) % rawSize
	for _, row := range hrows {
		for j, tid := range row.TreeIDs {
			if tid != t {
				continue
			}
			nid := row.NodeIDs[j]
			s := sums[nid]
			s[0] += row.GradHess[2*rawIdx]
			s[1] += row.GradHess[2*rawIdx+1]
			sums[nid] = s
		}
	}
	return func(nodeID int32) (float64, float64) {
		s := sums[nodeID]
		return s[0], s[1]
	}
}

// activeNodeIDs lists the distinct node ids tree t's rows currently
// occupy that are eligible at this depth (id >= 2^depth).
func activeNodeIDs(hrows []histogram.Row, t int32, depth int) []int32 {
	lo := int32(1) << uint(depth)
	seen := map[int32]bool{}
	for _, row := range hrows {
		for j, tid := range row.TreeIDs {
			if tid == t && row.NodeIDs[j] >= lo {
				seen[row.NodeIDs[j]] = true
			}
		}
	}
	out := make([]int32, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out
}

// Fit runs the boosting loop of spec.md §4.1: dropout (DART), tree
// growing via the sampler+grower+histogram machinery, raw-prediction
// maintenance and callbacks. rows are mutated in place (RawPred is
// updated every iteration). Training ends early only when a callback
// returns stop; Fit evaluates no validation set and does not read
// Config.EarlyStopIters, so IterationInfo.HasValid is always false and
// an EarlyStopping callback never stops a Fit run.
func Fit(ctx context.Context, rows []*Instance, numCols int, catCols map[int32]bool, cfg Config, callbacks []Callback) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	labelsByOutput := make([][]float64, cfg.RawSize)
	for _, r := range rows {
		for k := 0; k < cfg.RawSize && k < len(r.Label); k++ {
			labelsByOutput[k] = append(labelsByOutput[k], r.Label[k])
		}
		if r.RawPred == nil {
			r.RawPred = make([]float64, cfg.RawSize)
		}
	}
	model := NewModel(cfg.Obj, cfg.RawSize, labelsByOutput, "width:round")
	for _, r := range rows {
		copy(r.RawPred, model.RawBaseScore)
	}

	store, err := checkpoint.NewStore(cfg.CheckpointDir)
	if err != nil {
		return nil, err
	}
	cleaner := checkpoint.NewResourceCleaner()
	cleaner.Register(closerResource{close: store.Close})
	defer cleaner.ReleaseAll()
	rawPredCheckpoint := checkpoint.NewCheckpointer(store, "raw-predictions", cfg.CheckpointInterval, checkpointLevel(cfg.StorageLevel2), 2)

	rnd := rand.New(rand.NewSource(cfg.Seed))
	hWidth := bin.ForRange(cfg.MaxBins)
	numTrees := cfg.NumTrees()
	splitParams := split.Params{
		RegAlpha: cfg.RegAlpha, RegLambda: cfg.RegLambda,
		MinGain: cfg.MinGain, MinNodeHess: cfg.MinNodeHess,
		MaxBruteBins: cfg.MaxBruteBins, UnbalancedLoss: cfg.UnbalancedLoss,
	}
	allCols := make([]int32, numCols)
	for c := range allCols {
		allCols[c] = int32(c)
	}

	activeCfg := cfg
	for iter := 0; iter < activeCfg.MaxIter; iter++ {
		var dropped dropSelection
		if activeCfg.BoostType == DART {
			dropped = drawDropout(rnd, len(model.Trees), activeCfg.MinDrop, activeCfg.MaxDrop, activeCfg.DropSkip)
		}
		dset := droppedSet(dropped.Dropped)

		grad := make([][]float64, len(rows))
		hess := make([][]float64, len(rows))
		gradNorm := make([]float64, len(rows))
		for i, r := range rows {
			eff := append([]float64(nil), r.RawPred...)
			for t := range dset {
				k := t % activeCfg.RawSize
				eff[k] -= model.Weights[t] * model.Trees[t].Predict(r.Bins)
			}
			grad[i] = make([]float64, activeCfg.RawSize)
			hess[i] = make([]float64, activeCfg.RawSize)
			var norm float64
			for k := 0; k < activeCfg.RawSize; k++ {
				lbl := 0.0
				if k < len(r.Label) {
					lbl = r.Label[k]
				}
				g, h := activeCfg.Obj.Compute(lbl, eff[k])
				grad[i][k] = g * r.Weight
				hess[i][k] = h * r.Weight
				norm += g * g
			}
			gradNorm[i] = norm
		}

		rowTreeIDs := make([][]int32, len(rows))
		switch activeCfg.SubSampleType {
		case sample.Goss:
			goss := sample.NewGoss(activeCfg.Seed^int64(iter), activeCfg.TopRate, activeCfg.OtherRate, activeCfg.AggregationDepth)
			th := goss.LocalQuantile(gradNorm)
			for i := range rows {
				keep, w := goss.Decide(iter, int64(i), gradNorm[i], th)
				if !keep {
					continue
				}
				if w != 1 {
					for k := range grad[i] {
						grad[i][k] *= w
						hess[i][k] *= w
					}
				}
				ids := make([]int32, numTrees)
				for t := 0; t < numTrees; t++ {
					ids[t] = int32(t)
				}
				rowTreeIDs[i] = ids
			}
		default:
			samp := sample.NewUniform(activeCfg.SubSampleType, activeCfg.Seed^int64(iter), activeCfg.SubSampleRateByTree)
			for i := range rows {
				key := int64(i)
				if samp.Kind() == sample.Partition || samp.Kind() == sample.Block {
					key = int64(i / activeCfg.BlockSize)
				}
				var ids []int32
				for t := 0; t < numTrees; t++ {
					if samp.Contains(t, key) {
						ids = append(ids, int32(t))
					}
				}
				rowTreeIDs[i] = ids
			}
		}

		hrows := make([]histogram.Row, 0, len(rows))
		nodeIDsByRow := make([][]int32, len(rows))
		for i, ids := range rowTreeIDs {
			if len(ids) == 0 {
				continue
			}
			nids := make([]int32, len(ids))
			for j := range nids {
				nids[j] = 1
			}
			nodeIDsByRow[i] = nids
			gh := make([]float64, 2*activeCfg.RawSize)
			for k := 0; k < activeCfg.RawSize; k++ {
				gh[2*k] = grad[i][k]
				gh[2*k+1] = hess[i][k]
			}
			hrows = append(hrows, histogram.Row{Bins: rows[i].Bins, TreeIDs: ids, NodeIDs: nids, GradHess: gh})
		}

		colSel := selector.NewColumnSelector(activeCfg.Seed^int64(iter), activeCfg.ColSampleRateByTree, activeCfg.ColSampleRateByNode)
		cols := histogram.Columns{Sorted: allCols, ColSel: colSel}
		rowDataset := cluster.NewDataset(chunkRows(hrows, activeCfg.BlockSize))
		strategy := makeStrategy(activeCfg, hWidth)

		models := make([]*tree.Model, numTrees)
		growers := make([]*tree.Grower, numTrees)
		for t := range models {
			models[t] = tree.NewModel(activeCfg.MaxDepth)
			growers[t] = tree.NewGrower(t, tree.GrowParams{
				MaxDepth: activeCfg.MaxDepth, MaxLeaves: activeCfg.MaxLeaves, SplitParams: splitParams,
				IsCatCol: func(c int32) bool { return catCols[c] },
			})
		}

		for depth := 0; depth < activeCfg.MaxDepth; depth++ {
			histos, err := strategy(ctx, rowDataset, depth, cols)
			if err != nil {
				return nil, err
			}
			for t := 0; t < numTrees; t++ {
				t32 := int32(t)
				active, _ := tree.GroupByNode(t, histos)
				for _, id := range activeNodeIDs(hrows, t32, depth) {
					if _, ok := active[id]; !ok {
						active[id] = map[int32]*histogram.Histogram{}
					}
				}
				if len(active) == 0 {
					continue
				}
				growers[t].Step(models[t], depth, active, nodeTotalsFromRows(hrows, activeCfg.RawSize, t32))
			}

			for i, ids := range rowTreeIDs {
				nids := nodeIDsByRow[i]
				for j, t := range ids {
					n, ok := models[t].Nodes[nids[j]]
					if !ok || n.IsLeaf {
						continue
					}
					b := rows[i].Bins.At(n.ColID)
					if n.GoesLeft(b) {
						nids[j] = tree.LeftChild(nids[j])
					} else {
						nids[j] = tree.RightChild(nids[j])
					}
				}
			}
		}

		// Fold the step size into the new trees' leaf weights, so a stored
		// tree's output is already its shrunk contribution.
		for _, m := range models {
			for _, n := range m.Nodes {
				if n.IsLeaf {
					n.Weight *= activeCfg.StepSize
				}
			}
		}

		oldWeights := append([]float64(nil), model.Weights...)
		model.Weights = applyDropoutWeights(model.Weights, dropped.Dropped, numTrees)
		k := len(dropped.Dropped)
		newWeight := 1.0
		if activeCfg.BoostType == DART {
			newWeight = 1 / float64(k+1)
		}

		for out := 0; out < activeCfg.RawSize; out++ {
			current := make([]float32, len(rows))
			delta := make([]float32, len(rows))
			for i, r := range rows {
				current[i] = float32(r.RawPred[out])
				var d float64
				for t := out; t < numTrees; t += activeCfg.RawSize {
					d += newWeight * models[t].Predict(r.Bins)
				}
				for _, dt := range dropped.Dropped {
					if dt%activeCfg.RawSize != out {
						continue
					}
					rescaled := (model.Weights[dt] - oldWeights[dt]) * model.Trees[dt].Predict(r.Bins)
					d += rescaled
				}
				delta[i] = float32(d)
			}
			updated := simd.AddFloat32s(current, current, delta)
			for i, r := range rows {
				r.RawPred[out] = float64(updated[i])
			}
		}

		for t := 0; t < numTrees; t++ {
			model.Trees = append(model.Trees, models[t])
		}

		if err := rawPredCheckpoint.Update(iter, encodeRawPreds(rows)); err != nil {
			return nil, err
		}

		info := IterationInfo{Iteration: iter}
		info.TrainMetric = trainMetric(rows)
		stop := false
		for _, cb := range callbacks {
			next, s := cb.OnIteration(info, activeCfg)
			if next != nil {
				activeCfg = *next
			}
			if s {
				stop = true
			}
		}
		if stop {
			break
		}
	}

	return model, nil
}

func trainMetric(rows []*Instance) float64 {
	var sum float64
	for _, r := range rows {
		lbl := 0.0
		if len(r.Label) > 0 {
			lbl = r.Label[0]
		}
		score := 0.0
		if len(r.RawPred) > 0 {
			score = r.RawPred[0]
		}
		diff := score - lbl
		sum += diff * diff
	}
	if len(rows) == 0 {
		return 0
	}
	return sum / float64(len(rows))
}
