package split

import (
	"testing"

	"github.com/tarstars/hgbm/bin"
	"github.com/tarstars/hgbm/histogram"
)

func buildHist(bins []int32, grads, hesses []float64, numBins int) *histogram.Histogram {
	h := histogram.New(numBins, bin.Width32)
	for i, b := range bins {
		h.AddTotal(grads[i], hesses[i])
		if b != 0 {
			h.AddBin(b, grads[i], hesses[i])
		}
	}
	h.Fixup()
	return h
}

func TestLeafWeightNoRegularization(t *testing.T) {
	w := LeafWeight(10, 5, 0, 0)
	if !floatsClose(w, -2) {
		t.Fatalf("LeafWeight(10,5,0,0) = %v, want -2", w)
	}
}

func TestLeafWeightAlphaShrinksTowardZero(t *testing.T) {
	w := LeafWeight(1, 5, 10, 0) // |g| < alpha: soft-threshold zeroes it out
	if !floatsClose(w, 0) {
		t.Fatalf("LeafWeight(1,5,10,0) = %v, want 0", w)
	}
}

func TestFindNumericFindsCleanThreshold(t *testing.T) {
	// rows with bin<3 have label -1 (grad -1), bin>=3 have label +1 (grad +1)
	bins := []int32{1, 1, 2, 2, 3, 3, 4, 4}
	grads := []float64{-1, -1, -1, -1, 1, 1, 1, 1}
	hesses := []float64{1, 1, 1, 1, 1, 1, 1, 1}
	h := buildHist(bins, grads, hesses, 6)

	best := Find(h, 0, Numeric, false, Params{RegLambda: 1})
	if !best.Valid {
		t.Fatal("expected a valid split")
	}
	if best.Threshold != 3 {
		t.Fatalf("Threshold = %d, want 3 (route bin<3 left)", best.Threshold)
	}
	if best.LeftG >= 0 || best.RightG <= 0 {
		t.Fatalf("left/right grad signs wrong: left=%v right=%v", best.LeftG, best.RightG)
	}
}

func TestFindNumericRespectsMinGain(t *testing.T) {
	bins := []int32{1, 1, 2, 2}
	grads := []float64{1, 1, 1, 1}
	hesses := []float64{1, 1, 1, 1}
	h := buildHist(bins, grads, hesses, 4)

	best := Find(h, 0, Numeric, false, Params{RegLambda: 1, MinGain: 1e9})
	if best.Valid {
		t.Fatal("expected no split to clear an impossibly high MinGain")
	}
}

func TestFindCategoricalBruteForceSeparatesGroups(t *testing.T) {
	// bins 1,2 => negative grad; bins 3,4 => positive grad
	bins := []int32{1, 2, 3, 4}
	grads := []float64{-5, -5, 5, 5}
	hesses := []float64{1, 1, 1, 1}
	h := buildHist(bins, grads, hesses, 5)

	best := Find(h, 0, Categorical, true, Params{RegLambda: 1, MaxBruteBins: 8})
	if !best.Valid {
		t.Fatal("expected a valid categorical split")
	}
	if best.LeftG >= 0 {
		t.Fatalf("expected left side to hold the negative-gradient bins, got LeftG=%v", best.LeftG)
	}
}

func TestBetterBreaksTiesByColIDThenRepr(t *testing.T) {
	a := BestSplit{ColID: 2, Gain: 1, Threshold: 5}
	b := BestSplit{ColID: 1, Gain: 1, Threshold: 5}
	if !Better(a, b) {
		t.Fatal("lower colID should win a gain tie")
	}
	if Better(b, a) {
		t.Fatal("Better must be asymmetric on a real tie-break")
	}
}

func TestBetterPrefersHigherGain(t *testing.T) {
	low := BestSplit{ColID: 0, Gain: 1}
	high := BestSplit{ColID: 0, Gain: 2}
	if !Better(low, high) {
		t.Fatal("higher gain candidate should beat lower gain current best")
	}
}

func floatsClose(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
