// Package sample implements the row-subset selection strategies of
// spec.md §4.7: None, Partition, Block, Row, and Goss (gradient-based
// one-side sampling).
package sample

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/tarstars/hgbm/selector"
)

// Kind names one of the five sampling strategies.
type Kind int

const (
	None Kind = iota
	Partition
	Block
	Row
	Goss
)

// Sampler decides, for one row of one base model's boosting round,
// whether the row is used to build histograms at all (the None/
// Partition/Block/Row strategies delegate straight to a selector.Selector)
// and, for Goss, what weight multiplier its gradient/Hessian should
// carry once selected.
type Sampler interface {
	Kind() Kind
}

// UniformSampler wraps a selector.Selector for the None/Partition/
// Block/Row strategies — they differ only in what "key" is hashed
// against (spec.md §4.7): None never samples, Partition keys on
// partition id, Block on block id, Row on row id.
type UniformSampler struct {
	kind Kind
	Sel  selector.Selector
}

func (u UniformSampler) Kind() Kind { return u.kind }

// NewUniform builds a Partition/Block/Row sampler from a rate, or a
// None sampler if rate >= 1.
func NewUniform(kind Kind, seed int64, rate float64) UniformSampler {
	if rate >= 1 {
		return UniformSampler{kind: None, Sel: selector.True{}}
	}
	return UniformSampler{kind: kind, Sel: selector.Hash{Seed: seed, Rate: rate}}
}

// Contains reports whether the row identified by key (partition id,
// block id, or row id depending on Kind) is retained for base model
// treeID.
func (u UniformSampler) Contains(treeID int, key int64) bool {
	return u.Sel.Contains(treeID, key)
}

// GossSampler implements gradient-based one-side sampling (spec.md
// §4.7): every row whose |gradient| ranks in the top topRate fraction
// is kept outright; each of the rest is kept at random with
// probability otherRate/(1-topRate) (about otherRate of all rows) and
// its gradient/Hessian contribution rescaled by (1-topRate)/otherRate
// so the expected sum is unbiased.
type GossSampler struct {
	TopRate, OtherRate float64
	AggregationDepth   int
	sel                selector.Selector
}

// NewGoss builds a Goss sampler. topRate+otherRate must be < 1, per
// spec.md §9's Open Question resolution (SPEC_FULL.md), checked by the
// caller (boost.Config.Validate) rather than here.
func NewGoss(seed int64, topRate, otherRate float64, aggregationDepth int) *GossSampler {
	return &GossSampler{
		TopRate: topRate, OtherRate: otherRate, AggregationDepth: aggregationDepth,
		sel: selector.Hash{Seed: seed, Rate: otherRate / (1 - topRate)},
	}
}

func (g *GossSampler) Kind() Kind { return Goss }

// Threshold holds one partition's locally estimated |gradient|
// quantile cutoff for the top-rate bucket, produced by LocalQuantile
// and combined by MergeThresholds.
type Threshold struct {
	Quantile float64
	Count    int
}

// LocalQuantile estimates the (1-topRate) quantile of absGrad — the
// per-row absolute gradients of one partition — using
// gonum.org/v1/gonum/stat.Quantile over the partition's own sorted
// copy (spec.md §4.7's per-partition local ranking step).
func (g *GossSampler) LocalQuantile(absGrad []float64) Threshold {
	if len(absGrad) == 0 {
		return Threshold{}
	}
	sorted := append([]float64(nil), absGrad...)
	sort.Float64s(sorted)
	q := stat.Quantile(1-g.TopRate, stat.Empirical, sorted, nil)
	return Threshold{Quantile: q, Count: len(sorted)}
}

// MergeThresholds combines two partitions' local Threshold estimates
// into one, count-weighted. boost.Fit does not call it: it takes one
// LocalQuantile over all rows, and AggregationDepth is not read.
func MergeThresholds(a, b Threshold) Threshold {
	if a.Count == 0 {
		return b
	}
	if b.Count == 0 {
		return a
	}
	total := a.Count + b.Count
	q := (a.Quantile*float64(a.Count) + b.Quantile*float64(b.Count)) / float64(total)
	return Threshold{Quantile: q, Count: total}
}

// Decide reports whether row (with absolute gradient absG and row id
// rowKey) is retained, and the weight multiplier its (grad,hess)
// contribution must carry if so: 1 for top-rate rows, and
// (1-topRate)/otherRate for sampled other-rate rows (spec.md §4.7).
func (g *GossSampler) Decide(treeID int, rowKey int64, absG float64, threshold Threshold) (keep bool, weight float64) {
	if absG >= threshold.Quantile {
		return true, 1
	}
	if g.sel.Contains(treeID, rowKey) {
		return true, (1 - g.TopRate) / g.OtherRate
	}
	return false, 0
}
