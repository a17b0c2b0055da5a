package boost

import (
	"github.com/tarstars/hgbm/bin"
	"github.com/tarstars/hgbm/objfunc"
	"github.com/tarstars/hgbm/tree"
)

// Model is the persisted GBMModel of spec.md §6: the objective name,
// base score per raw output, the tree ensemble, and per-tree weights
// (DART weights; 1 for gbtree).
type Model struct {
	ObjFuncName  string
	RawBaseScore []float64
	Discretizer  string // spec.md §6's discretizationType, kept opaque here
	Trees        []*tree.Model
	Weights      []float64
	RawSize      int
	Metadata     map[string]string
}

// NewModel seeds an empty ensemble with the objective's base score.
func NewModel(obj objfunc.ObjFunc, rawSize int, labelsByOutput [][]float64, discretizer string) *Model {
	base := make([]float64, rawSize)
	for k := 0; k < rawSize && k < len(labelsByOutput); k++ {
		base[k] = obj.BaseScore(labelsByOutput[k])
	}
	return &Model{
		ObjFuncName: obj.Name(), RawBaseScore: base, Discretizer: discretizer,
		RawSize: rawSize, Metadata: map[string]string{},
	}
}

// Predict sums every tree's contribution (its leaf weights already
// include stepSize; scaled by its Weights entry) on top of the base score for one row's
// k-th raw output. Trees are assigned round-robin across the rawSize
// outputs of each boosting round, so tree i belongs to output i%rawSize.
func (m *Model) Predict(row bin.BinVector, k int) float64 {
	score := 0.0
	if k < len(m.RawBaseScore) {
		score = m.RawBaseScore[k]
	}
	for i, t := range m.Trees {
		if i%m.RawSize != k {
			continue
		}
		score += m.Weights[i] * t.Predict(row)
	}
	return score
}
