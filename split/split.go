// Package split implements the histogram split finder of spec.md §4.5:
// numeric/ranking linear scan, categorical brute-force and sorted-scan
// search, missing-bin left/right trial, and the leaf weight formula.
package split

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"

	"github.com/kelindar/bitmap"

	"github.com/tarstars/hgbm/histogram"
)

// Kind names which split-finding policy produced a BestSplit.
type Kind int

const (
	Numeric Kind = iota
	Categorical
	Ranking
)

// Params bundles the split-finder's hyperparameters (spec.md §6).
type Params struct {
	RegAlpha, RegLambda   float64
	MinGain, MinNodeHess  float64
	MaxBruteBins          int
	UnbalancedLoss        float64 // spec.md §4 supplemented feature, 0 disables it
}

// BestSplit is the winning split candidate for one column.
type BestSplit struct {
	ColID                   int
	Kind                    Kind
	Threshold               int32 // numeric/ranking: go left iff bin < Threshold
	LeftBitset              bitmap.Bitmap
	MissingLeft             bool
	Gain                    float64
	LeftG, LeftH            float64
	RightG, RightH          float64
	LeftWeight, RightWeight float64
	Valid                   bool
}

func softThreshold(g, alpha float64) float64 {
	switch {
	case g > alpha:
		return g - alpha
	case g < -alpha:
		return g + alpha
	default:
		return 0
	}
}

func score(g, h, alpha, lambda float64) float64 {
	st := softThreshold(g, alpha)
	return st * st / (h + lambda)
}

// LeafWeight is the closed-form weight assigned to a node that becomes
// a leaf: w = -soft_threshold(G,α)/(H+λ) (spec.md §4.5).
func LeafWeight(g, h, alpha, lambda float64) float64 {
	return -softThreshold(g, alpha) / (h + lambda)
}

func distToMiddle(b, numBins int) float64 {
	mid := float64(numBins-1) / 2.0
	return math.Abs(float64(b) - mid)
}

// Repr returns a canonical byte representation of the split's payload,
// used for the deterministic (colId, splitDataRepr) tie-break across
// candidate columns (spec.md §4.5).
func (s BestSplit) Repr() []byte {
	if s.Kind == Categorical {
		return []byte(s.LeftBitset.ToBytes())
	}
	var buf [5]byte
	binary.BigEndian.PutUint32(buf[:4], uint32(s.Threshold))
	if s.MissingLeft {
		buf[4] = 1
	}
	return buf[:]
}

// Better reports whether candidate c beats the current best b: higher
// gain wins; ties broken deterministically by (colId, splitDataRepr)
// so results are reproducible across shuffles.
func Better(b, c BestSplit) bool {
	if c.Gain != b.Gain {
		return c.Gain > b.Gain
	}
	if c.ColID != b.ColID {
		return c.ColID < b.ColID
	}
	return bytes.Compare(c.Repr(), b.Repr()) < 0
}

// FindNumeric scans bins in ascending order maintaining a prefix
// (G_L,H_L), trying both missing-bin assignments, and keeps the best
// valid threshold (spec.md §4.5). kind lets the same scan serve both
// Numeric and Ranking ordered-bin features.
func FindNumeric(hist *histogram.Histogram, colID int, kind Kind, p Params) BestSplit {
	G, H := hist.TotalGradHess()
	parentScore := score(G, H, p.RegAlpha, p.RegLambda)

	best := BestSplit{ColID: colID, Kind: kind}
	found := false

	for _, missingLeft := range [2]bool{true, false} {
		var gl, hl float64
		if missingLeft {
			mg, mh := hist.GradHess(0)
			gl, hl = mg, mh
		}
		for b := 1; b < hist.NumBins()-1; b++ {
			g, h := hist.GradHess(b)
			gl += g
			hl += h
			gr, hr := G-gl, H-hl
			if hl < p.MinNodeHess || hr < p.MinNodeHess {
				continue
			}
			gain := score(gl, hl, p.RegAlpha, p.RegLambda) + score(gr, hr, p.RegAlpha, p.RegLambda) - parentScore
			if p.UnbalancedLoss != 0 {
				gain -= p.UnbalancedLoss * distToMiddle(b, hist.NumBins())
			}
			if gain < p.MinGain {
				continue
			}
			cand := BestSplit{
				ColID: colID, Kind: kind, Threshold: int32(b + 1), MissingLeft: missingLeft,
				Gain: gain, LeftG: gl, LeftH: hl, RightG: gr, RightH: hr, Valid: true,
			}
			if !found || Better(best, cand) {
				found = true
				best = cand
			}
		}
	}
	if found {
		best.LeftWeight = LeafWeight(best.LeftG, best.LeftH, p.RegAlpha, p.RegLambda)
		best.RightWeight = LeafWeight(best.RightG, best.RightH, p.RegAlpha, p.RegLambda)
	}
	return best
}

func sortedTouchedBins(hist *histogram.Histogram) []int {
	out := make([]int, 0, hist.NNZ())
	for b := 1; b < hist.NumBins(); b++ {
		g, h := hist.GradHess(b)
		if g != 0 || h != 0 {
			out = append(out, b)
		}
	}
	sort.Ints(out)
	return out
}

// FindCategorical dispatches to the brute-force bipartition search when
// the column has few enough non-zero bins, else to the sorted-scan
// approximation (spec.md §4.5).
func FindCategorical(hist *histogram.Histogram, colID int, p Params) BestSplit {
	bins := sortedTouchedBins(hist)
	if len(bins) < 2 {
		return BestSplit{ColID: colID, Kind: Categorical}
	}
	if len(bins) <= p.MaxBruteBins {
		return bruteCategorical(hist, colID, bins, p)
	}
	return sortedCategorical(hist, colID, bins, p)
}

func bruteCategorical(hist *histogram.Histogram, colID int, bins []int, p Params) BestSplit {
	G, H := hist.TotalGradHess()
	parentScore := score(G, H, p.RegAlpha, p.RegLambda)
	k := len(bins)

	best := BestSplit{ColID: colID, Kind: Categorical}
	found := false

	limit := 1 << uint(k-1)
	for mask := 0; mask < limit-1+1 && mask < limit; mask++ {
		if mask == limit-1 {
			// mask==limit-1 puts every bin left (bins[0] forced in, all
			// others selected): right side would be empty, skip it.
			continue
		}
		for _, missingLeft := range [2]bool{true, false} {
			var gl, hl float64
			var bm bitmap.Bitmap
			bm.Set(uint32(bins[0]))
			bg, bh := hist.GradHess(bins[0])
			gl += bg
			hl += bh
			for i := 1; i < k; i++ {
				if mask&(1<<uint(i-1)) != 0 {
					bm.Set(uint32(bins[i]))
					g, h := hist.GradHess(bins[i])
					gl += g
					hl += h
				}
			}
			if missingLeft {
				mg, mh := hist.GradHess(0)
				gl += mg
				hl += mh
			}
			gr, hr := G-gl, H-hl
			if hl < p.MinNodeHess || hr < p.MinNodeHess {
				continue
			}
			gain := score(gl, hl, p.RegAlpha, p.RegLambda) + score(gr, hr, p.RegAlpha, p.RegLambda) - parentScore
			if gain < p.MinGain {
				continue
			}
			cand := BestSplit{
				ColID: colID, Kind: Categorical, LeftBitset: bm.Clone(nil), MissingLeft: missingLeft,
				Gain: gain, LeftG: gl, LeftH: hl, RightG: gr, RightH: hr, Valid: true,
			}
			if !found || Better(best, cand) {
				found = true
				best = cand
			}
		}
	}
	if found {
		best.LeftWeight = LeafWeight(best.LeftG, best.LeftH, p.RegAlpha, p.RegLambda)
		best.RightWeight = LeafWeight(best.RightG, best.RightH, p.RegAlpha, p.RegLambda)
	}
	return best
}

func sortedCategorical(hist *histogram.Histogram, colID int, bins []int, p Params) BestSplit {
	type ratio struct {
		bin int
		r   float64
	}
	ratios := make([]ratio, len(bins))
	for i, b := range bins {
		g, h := hist.GradHess(b)
		ratios[i] = ratio{bin: b, r: g / (h + p.RegLambda)}
	}
	sort.Slice(ratios, func(i, j int) bool { return ratios[i].r < ratios[j].r })

	G, H := hist.TotalGradHess()
	parentScore := score(G, H, p.RegAlpha, p.RegLambda)

	best := BestSplit{ColID: colID, Kind: Categorical}
	found := false

	for _, missingLeft := range [2]bool{true, false} {
		var gl, hl float64
		var bm bitmap.Bitmap
		if missingLeft {
			mg, mh := hist.GradHess(0)
			gl, hl = mg, mh
		}
		for i := 0; i < len(ratios)-1; i++ {
			b := ratios[i].bin
			g, h := hist.GradHess(b)
			gl += g
			hl += h
			bm.Set(uint32(b))
			gr, hr := G-gl, H-hl
			if hl < p.MinNodeHess || hr < p.MinNodeHess {
				continue
			}
			gain := score(gl, hl, p.RegAlpha, p.RegLambda) + score(gr, hr, p.RegAlpha, p.RegLambda) - parentScore
			if gain < p.MinGain {
				continue
			}
			cand := BestSplit{
				ColID: colID, Kind: Categorical, LeftBitset: bm.Clone(nil), MissingLeft: missingLeft,
				Gain: gain, LeftG: gl, LeftH: hl, RightG: gr, RightH: hr, Valid: true,
			}
			if !found || Better(best, cand) {
				found = true
				best = cand
			}
		}
	}
	if found {
		best.LeftWeight = LeafWeight(best.LeftG, best.LeftH, p.RegAlpha, p.RegLambda)
		best.RightWeight = LeafWeight(best.RightG, best.RightH, p.RegAlpha, p.RegLambda)
	}
	return best
}

// Find dispatches to the numeric/ranking scan or the categorical
// search based on kind.
func Find(hist *histogram.Histogram, colID int, kind Kind, isCategorical bool, p Params) BestSplit {
	if isCategorical {
		return FindCategorical(hist, colID, p)
	}
	return FindNumeric(hist, colID, kind, p)
}
