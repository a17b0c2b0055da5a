package sample

import "testing"

func TestNewUniformFallsBackToNoneAtFullRate(t *testing.T) {
	s := NewUniform(Row, 1, 1.0)
	if s.Kind() != None {
		t.Fatalf("Kind() = %v, want None at rate 1.0", s.Kind())
	}
	if !s.Contains(0, 12345) {
		t.Fatal("None sampler must retain every row")
	}
}

func TestNewUniformRetainsKind(t *testing.T) {
	s := NewUniform(Block, 1, 0.5)
	if s.Kind() != Block {
		t.Fatalf("Kind() = %v, want Block", s.Kind())
	}
}

func TestUniformContainsIsDeterministic(t *testing.T) {
	s := NewUniform(Row, 7, 0.3)
	a := s.Contains(2, 99)
	b := s.Contains(2, 99)
	if a != b {
		t.Fatal("Contains must be pure for the same (treeID,key)")
	}
}

func TestGossDecideKeepsTopRateOutright(t *testing.T) {
	g := NewGoss(1, 0.2, 0.1, 2)
	th := Threshold{Quantile: 5, Count: 100}
	keep, w := g.Decide(0, 1, 10, th) // absG above threshold
	if !keep || w != 1 {
		t.Fatalf("Decide(top-rate row) = (%v,%v), want (true,1)", keep, w)
	}
}

func TestGossDecideWeightsOtherRateRows(t *testing.T) {
	g := NewGoss(1, 0.2, 0.5, 2)
	th := Threshold{Quantile: 100, Count: 100} // force below-threshold branch
	var anyKept bool
	for i := int64(0); i < 200; i++ {
		keep, w := g.Decide(0, i, 1, th)
		if keep {
			anyKept = true
			want := (1 - g.TopRate) / g.OtherRate
			if !floatsClose(w, want) {
				t.Fatalf("other-rate weight = %v, want %v", w, want)
			}
		}
	}
	if !anyKept {
		t.Fatal("expected at least one other-rate row kept out of 200 draws")
	}
}

func TestMergeThresholdsIsCountWeightedAverage(t *testing.T) {
	a := Threshold{Quantile: 2, Count: 10}
	b := Threshold{Quantile: 4, Count: 30}
	merged := MergeThresholds(a, b)
	want := (2.0*10 + 4.0*30) / 40.0
	if !floatsClose(merged.Quantile, want) {
		t.Fatalf("MergeThresholds = %v, want %v", merged.Quantile, want)
	}
	if merged.Count != 40 {
		t.Fatalf("MergeThresholds.Count = %d, want 40", merged.Count)
	}
}

func TestMergeThresholdsHandlesEmptySide(t *testing.T) {
	a := Threshold{}
	b := Threshold{Quantile: 7, Count: 5}
	if got := MergeThresholds(a, b); got != b {
		t.Fatalf("MergeThresholds(empty,b) = %v, want %v", got, b)
	}
	if got := MergeThresholds(b, a); got != b {
		t.Fatalf("MergeThresholds(b,empty) = %v, want %v", got, b)
	}
}

func TestLocalQuantileEmptyInput(t *testing.T) {
	g := NewGoss(1, 0.2, 0.1, 2)
	th := g.LocalQuantile(nil)
	if th.Count != 0 {
		t.Fatalf("LocalQuantile(nil).Count = %d, want 0", th.Count)
	}
}

func floatsClose(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
