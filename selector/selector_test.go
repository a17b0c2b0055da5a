package selector

import "testing"

func TestHashPurity(t *testing.T) {
	h := Hash{Seed: 42, Rate: 0.3}
	for i := 0; i < 1000; i++ {
		baseID := i % 7
		key := int64(i * 104729)
		a := h.Contains(baseID, key)
		b := h.Contains(baseID, key)
		if a != b {
			t.Fatalf("Contains(%d,%d) not pure: %v vs %v", baseID, key, a, b)
		}
	}
}

func TestHashRateApproximatelyMatchesSelectionFraction(t *testing.T) {
	h := Hash{Seed: 7, Rate: 0.25}
	n := 20000
	selected := 0
	for i := 0; i < n; i++ {
		if h.Contains(0, int64(i)) {
			selected++
		}
	}
	frac := float64(selected) / float64(n)
	if frac < 0.20 || frac > 0.30 {
		t.Fatalf("selection fraction %v too far from rate 0.25", frac)
	}
}

func TestTrueAlwaysSelects(t *testing.T) {
	tr := True{}
	if !tr.Contains(5, 123) {
		t.Fatal("True must always select")
	}
}

func TestUnionIsLogicalAnd(t *testing.T) {
	u := Union{A: True{}, B: Hash{Seed: 1, Rate: 0}}
	if u.Contains(0, 1) {
		t.Fatal("Union with a zero-rate Hash must never select")
	}
	u2 := Union{A: True{}, B: True{}}
	if !u2.Contains(0, 1) {
		t.Fatal("Union of two True selectors must always select")
	}
}

func TestNewColumnSelectorFallsBackToTrueWhenNoSampling(t *testing.T) {
	s := NewColumnSelector(1, 1, 1)
	if _, ok := s.(True); !ok {
		t.Fatalf("expected True when both rates are 1, got %T", s)
	}
}

func TestNewColumnSelectorComposesBothRates(t *testing.T) {
	s := NewColumnSelector(1, 0.5, 0.5)
	switch s.(type) {
	case Union:
	default:
		t.Fatalf("expected Union when both rates < 1, got %T", s)
	}
}

func TestIndexCollectsAllSelectedBases(t *testing.T) {
	s := True{}
	idx := Index(s, 5, 10)
	if len(idx) != 5 {
		t.Fatalf("Index with True selector should return all bases, got %v", idx)
	}
	for b, got := range idx {
		if got != b {
			t.Fatalf("Index order mismatch: %v", idx)
		}
	}
}
