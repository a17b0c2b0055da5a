package discretizer

import "testing"

func TestFitRejectsTooFewBins(t *testing.T) {
	if _, err := Fit([][]float64{{1, 2, 3}}, 2, nil); err == nil {
		t.Fatal("expected an error for maxBins < 4")
	}
}

func TestTransformSkipsZeroAndNaN(t *testing.T) {
	disc, err := Fit([][]float64{{0, 1, 2, 3, 4}}, 8, nil)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	bv := disc.Transform([]float64{0})
	if bv.Len() != 0 {
		t.Fatalf("Transform([0]).Len() = %d, want 0 (zero is the reserved missing bucket)", bv.Len())
	}
}

func TestTransformMapsExtremesToEndBins(t *testing.T) {
	disc, err := Fit([][]float64{{1, 2, 3, 4, 5}}, 8, nil)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	lo := disc.Transform([]float64{1})
	hi := disc.Transform([]float64{5})
	if lo.At(0) != 1 {
		t.Fatalf("min value should map to bin 1, got %d", lo.At(0))
	}
	if hi.At(0) != disc.Columns[0].NumBins {
		t.Fatalf("max value should map to the last bin (%d), got %d", disc.Columns[0].NumBins, hi.At(0))
	}
}

func TestTransformIsMonotonicInValue(t *testing.T) {
	disc, err := Fit([][]float64{{0, 10, 20, 30, 40, 50}}, 16, nil)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	prev := int32(-1)
	for v := 0.0; v <= 50; v += 5 {
		b := disc.Transform([]float64{v}).At(0)
		if v > 0 && b < prev {
			t.Fatalf("Transform(%v) bin %d should not decrease from previous bin %d", v, b, prev)
		}
		prev = b
	}
}

func TestCategoricalColumnWrapsModuloNumBins(t *testing.T) {
	disc, err := Fit([][]float64{{0, 1, 2, 3}}, 8, map[int]bool{0: true})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	bv := disc.Transform([]float64{3})
	if bv.At(0) < 1 || bv.At(0) > disc.Columns[0].NumBins {
		t.Fatalf("categorical bin %d out of [1,%d]", bv.At(0), disc.Columns[0].NumBins)
	}
}

func TestNumBinsIncludesReservedBucket(t *testing.T) {
	disc, err := Fit([][]float64{{1, 2, 3}}, 8, nil)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if got := disc.NumBins(0); got != int(disc.Columns[0].NumBins)+1 {
		t.Fatalf("NumBins(0) = %d, want %d", got, disc.Columns[0].NumBins+1)
	}
	if got := disc.NumBins(99); got != 1 {
		t.Fatalf("NumBins(out-of-range) = %d, want 1", got)
	}
}
