// Package objfunc holds the pluggable (grad,hess) objective functions
// the boosting loop optimizes. spec.md §1 treats the objective as an
// external plug-in; Regression and BinaryLogistic are kept as the
// reference implementations needed to exercise the engine end-to-end,
// grounded on the teacher's MseLoss/LogLoss lossDer1/lossDer2 shape
// (extra_boost/ebl/find_the_best_split.go), renamed to an explicit
// (grad,hess) = Compute(label, score) interface.
package objfunc

import "math"

// ObjFunc computes the first and second derivative of a loss with
// respect to the current raw score, plus the score that should seed
// the zeroth tree (BaseScore).
type ObjFunc interface {
	Name() string
	Compute(label, score float64) (grad, hess float64)
	BaseScore(labels []float64) float64
}

// Regression is squared-error loss: grad = score-label, hess = 1.
type Regression struct{}

func (Regression) Name() string { return "regression" }

func (Regression) Compute(label, score float64) (float64, float64) {
	return score - label, 1
}

func (Regression) BaseScore(labels []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	var sum float64
	for _, y := range labels {
		sum += y
	}
	return sum / float64(len(labels))
}

// BinaryLogistic is logistic loss over a raw (pre-sigmoid) score:
// grad = p-label, hess = p*(1-p), following the teacher's LogLoss
// derivative shape.
type BinaryLogistic struct{}

func (BinaryLogistic) Name() string { return "binary_logistic" }

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func (BinaryLogistic) Compute(label, score float64) (float64, float64) {
	p := sigmoid(score)
	return p - label, math.Max(p*(1-p), 1e-16)
}

func (BinaryLogistic) BaseScore(labels []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	var sum float64
	for _, y := range labels {
		sum += y
	}
	meanP := sum / float64(len(labels))
	meanP = math.Min(math.Max(meanP, 1e-6), 1-1e-6)
	return math.Log(meanP / (1 - meanP))
}

// ByName resolves one of the two built-in objectives by its Name(),
// for model JSON round-tripping (spec.md §6's objFuncName field).
func ByName(name string) (ObjFunc, bool) {
	switch name {
	case Regression{}.Name():
		return Regression{}, true
	case BinaryLogistic{}.Name():
		return BinaryLogistic{}, true
	default:
		return nil, false
	}
}
