package boost

import "github.com/tarstars/hgbm/bin"

// Instance is one discretized training row as the boosting loop sees
// it: its binned features, its (possibly multi-output) label, an
// optional weight, and the raw-prediction accumulator `R` the loop
// maintains across iterations (spec.md §4.1).
type Instance struct {
	Bins    bin.BinVector
	Label   []float64
	Weight  float64
	RawPred []float64 // length rawSize; R_new(x) = R_old(x) + w_t*tree_t(x), stepSize folded into tree_t's leaf weights
}
