// Package histogram implements the sparse node histograms of spec.md
// §3/§4.4 and the three strategies (basic, subtract, vote) that
// produce (treeId, nodeId, colId) -> histogram maps.
package histogram

import (
	"github.com/kelindar/bitmap"
	"gorgonia.org/vecf32"
	"gorgonia.org/vecf64"

	"github.com/tarstars/hgbm/bin"
)

// Histogram is one column histogram for one (treeId, nodeId): a dense
// 2*numBins slot vector. Even slot 2b holds the gradient sum for bin
// b, odd slot 2b+1 the Hessian sum. Slots 0/1 hold the zero/missing
// bucket once Fixup has run (spec.md §3).
type Histogram struct {
	numBins int
	width   bin.Width // Width32 selects float64 slots (H=f64), else float32 (H=f32)
	f64     []float64
	f32     []float32
	touched bitmap.Bitmap // bins [1, numBins) seen by at least one row
}

// New allocates an empty histogram with numBins bins, using float64
// slots when hWidth is Width32 and float32 slots otherwise — H's two
// accumulator widths from spec.md §3, keyed off the same bin.Width
// enum the rest of the engine's dispatch table uses.
func New(numBins int, hWidth bin.Width) *Histogram {
	h := &Histogram{numBins: numBins, width: hWidth}
	if hWidth == bin.Width32 {
		h.f64 = make([]float64, 2*numBins)
	} else {
		h.f32 = make([]float32, 2*numBins)
	}
	return h
}

// NumBins reports the bin count.
func (h *Histogram) NumBins() int { return h.numBins }

// AddTotal accumulates into the pre-fixup total (slot 0/1 before
// Fixup subtracts the non-zero-bin sums).
func (h *Histogram) AddTotal(g, h2 float64) {
	h.addSlot(0, g, h2)
}

// AddBin accumulates a row's (grad, hess) contribution into bin b (b>=1).
func (h *Histogram) AddBin(b int32, g, hess float64) {
	h.touched.Set(uint32(b))
	h.addSlot(int(b), g, hess)
}

func (h *Histogram) addSlot(bin int, g, hess float64) {
	if h.f64 != nil {
		h.f64[2*bin] += g
		h.f64[2*bin+1] += hess
		return
	}
	h.f32[2*bin] += float32(g)
	h.f32[2*bin+1] += float32(hess)
}

// GradHess returns the (grad, hess) pair stored in bin b.
func (h *Histogram) GradHess(b int) (float64, float64) {
	if h.f64 != nil {
		return h.f64[2*b], h.f64[2*b+1]
	}
	return float64(h.f32[2*b]), float64(h.f32[2*b+1])
}

// NNZ returns the number of distinct non-zero bins (b>=1) touched by
// at least one row routed to this node/column.
func (h *Histogram) NNZ() int { return h.touched.Count() }

// Fixup subtracts the sum of non-zero bin grad/hess from slot 0/1, so
// that after this call slot 0/1 holds exactly the zero/missing bucket
// (spec.md §4.4's local-build post-process step).
func (h *Histogram) Fixup() {
	var sumG, sumH float64
	h.touched.Range(func(b uint32) {
		g, hess := h.GradHess(int(b))
		sumG += g
		sumH += hess
	})
	if h.f64 != nil {
		h.f64[0] -= sumG
		h.f64[1] -= sumH
		return
	}
	h.f32[0] -= float32(sumG)
	h.f32[1] -= float32(sumH)
}

// TotalGradHess sums grad/hess over every bin, including the
// zero/missing bucket. Invariant (spec.md §8): equals the sum of
// (grad,hess) over every row mapped to this (treeId,nodeId).
func (h *Histogram) TotalGradHess() (float64, float64) {
	var g, hess float64
	if h.f64 != nil {
		for b := 0; b < h.numBins; b++ {
			g += h.f64[2*b]
			hess += h.f64[2*b+1]
		}
		return g, hess
	}
	for b := 0; b < h.numBins; b++ {
		g += float64(h.f32[2*b])
		hess += float64(h.f32[2*b+1])
	}
	return g, hess
}

// Clone deep-copies the histogram, including its touched-bin bitmap.
func (h *Histogram) Clone() *Histogram {
	out := &Histogram{numBins: h.numBins, width: h.width}
	if h.f64 != nil {
		out.f64 = append([]float64(nil), h.f64...)
	} else {
		out.f32 = append([]float32(nil), h.f32...)
	}
	out.touched = h.touched.Clone(nil)
	return out
}

// Plus adds other's slots into a fresh copy of h (used by the basic
// strategy's cross-partition reduce and by the vote strategy's partial
// sums). The widths must match.
func (h *Histogram) Plus(other *Histogram) *Histogram {
	out := h.Clone()
	if out.f64 != nil {
		vecf64.Add(out.f64, other.f64)
	} else {
		vecf32.Add(out.f32, other.f32)
	}
	out.touched.Or(other.touched)
	return out
}

// Minus subtracts other's slots from a fresh copy of h (parent - right
// child, the subtract strategy's core operation, spec.md §4.4).
// touched is conservatively the union of both operands' touched sets,
// since an exact difference could only shrink it — nnz gating (spec.md
// §4.4's "nnz ≤ 2" filter) only needs an upper bound to stay safe.
func (h *Histogram) Minus(other *Histogram) *Histogram {
	out := h.Clone()
	if out.f64 != nil {
		vecf64.Sub(out.f64, other.f64)
	} else {
		vecf32.Sub(out.f32, other.f32)
	}
	out.touched.Or(other.touched)
	return out
}
