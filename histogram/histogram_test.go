package histogram

import (
	"testing"

	"github.com/tarstars/hgbm/bin"
)

func TestFixupMakesTotalEqualRowSum(t *testing.T) {
	h := New(4, bin.Width32)
	rows := []struct {
		b    int32
		g, w float64
	}{
		{0, 1.5, 0.5}, // zero/missing bucket
		{1, 2.0, 1.0},
		{1, 3.0, 1.0},
		{2, -1.0, 2.0},
	}
	var wantG, wantH float64
	for _, r := range rows {
		wantG += r.g
		wantH += r.w
		h.AddTotal(r.g, r.w)
		if r.b != 0 {
			h.AddBin(r.b, r.g, r.w)
		}
	}
	h.Fixup()

	gotG, gotH := h.TotalGradHess()
	if !floatsClose(gotG, wantG) || !floatsClose(gotH, wantH) {
		t.Fatalf("TotalGradHess = (%v,%v), want (%v,%v)", gotG, gotH, wantG, wantH)
	}

	// after Fixup, slot 0/1 holds exactly the zero/missing bucket (1.5, 0.5)
	zg, zh := h.GradHess(0)
	if !floatsClose(zg, 1.5) || !floatsClose(zh, 0.5) {
		t.Fatalf("zero bucket after Fixup = (%v,%v), want (1.5,0.5)", zg, zh)
	}
}

func TestNNZCountsDistinctTouchedBins(t *testing.T) {
	h := New(8, bin.Width32)
	h.AddBin(1, 1, 1)
	h.AddBin(1, 1, 1)
	h.AddBin(3, 1, 1)
	if h.NNZ() != 2 {
		t.Fatalf("NNZ() = %d, want 2", h.NNZ())
	}
}

func TestPlusSumsBothOperands(t *testing.T) {
	a := New(4, bin.Width32)
	a.AddBin(1, 2, 1)
	b := New(4, bin.Width32)
	b.AddBin(1, 3, 1)
	b.AddBin(2, 5, 2)

	sum := a.Plus(b)
	g, h := sum.GradHess(1)
	if !floatsClose(g, 5) || !floatsClose(h, 2) {
		t.Fatalf("Plus bin1 = (%v,%v), want (5,2)", g, h)
	}
	g2, h2 := sum.GradHess(2)
	if !floatsClose(g2, 5) || !floatsClose(h2, 2) {
		t.Fatalf("Plus bin2 = (%v,%v), want (5,2)", g2, h2)
	}
	if sum.NNZ() != 2 {
		t.Fatalf("Plus NNZ() = %d, want 2", sum.NNZ())
	}
}

func TestMinusIsInverseOfPlus(t *testing.T) {
	parent := New(4, bin.Width32)
	parent.AddBin(1, 10, 4)
	parent.AddBin(2, 6, 3)

	right := New(4, bin.Width32)
	right.AddBin(1, 4, 1)

	left := parent.Minus(right)
	g, h := left.GradHess(1)
	if !floatsClose(g, 6) || !floatsClose(h, 3) {
		t.Fatalf("Minus bin1 = (%v,%v), want (6,3)", g, h)
	}
	g2, h2 := left.GradHess(2)
	if !floatsClose(g2, 6) || !floatsClose(h2, 3) {
		t.Fatalf("Minus bin2 = (%v,%v), want (6,3)", g2, h2)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	h := New(4, bin.Width32)
	h.AddBin(1, 1, 1)
	clone := h.Clone()
	clone.AddBin(1, 100, 100)

	g, _ := h.GradHess(1)
	if !floatsClose(g, 1) {
		t.Fatalf("mutating clone affected original: GradHess(1) = %v", g)
	}
}

func floatsClose(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-6
}
