// Package discretizer provides the minimal concrete feature-to-bin
// mapper needed to exercise the engine end to end. spec.md §1 treats
// the discretizer as an external collaborator (out of scope for the
// core); this is the "width:round" implementation named as the
// default discretizationType in spec.md §6, kept small enough to
// drive the end-to-end test scenarios.
package discretizer

import (
	"math"

	"github.com/tarstars/hgbm/bin"
	"github.com/tarstars/hgbm/herr"
)

// Column holds one feature's width-binning parameters: values are
// bucketed into equal-width bins between Min and Max, rounded to the
// nearest of NumBins buckets. Bin 0 is reserved for zero/missing
// (spec.md GLOSSARY).
type Column struct {
	Min, Max float64
	NumBins  int32
	IsCat    bool
}

// Discretizer maps raw feature vectors to bin.BinVector rows using a
// fixed, fitted set of per-column Column parameters.
type Discretizer struct {
	Columns []Column
}

// Fit computes width:round bucket boundaries from a column-major
// sample of raw feature values (one []float64 per column), using each
// column's observed [min,max] range.
func Fit(columns [][]float64, maxBins int, catCols map[int]bool) (*Discretizer, error) {
	if maxBins < 4 {
		return nil, herr.Config("maxBins", "must be >= 4")
	}
	d := &Discretizer{Columns: make([]Column, len(columns))}
	for c, vals := range columns {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range vals {
			if math.IsNaN(v) {
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if math.IsInf(lo, 1) {
			lo, hi = 0, 0
		}
		nb := int32(maxBins - 1) // bin 0 reserved for zero/missing
		if nb < 1 {
			nb = 1
		}
		d.Columns[c] = Column{Min: lo, Max: hi, NumBins: nb, IsCat: catCols[c]}
	}
	return d, nil
}

// Transform bins one raw row into a sparse bin.BinVector, skipping
// columns whose value is exactly zero or NaN (they fall into the
// reserved zero/missing bin and are simply omitted, per bin.BinVector's
// sparse representation, spec.md §3).
func (d *Discretizer) Transform(row []float64) bin.BinVector {
	var cols, bins []int32
	for c, v := range row {
		if c >= len(d.Columns) {
			break
		}
		if v == 0 || math.IsNaN(v) {
			continue
		}
		col := d.Columns[c]
		var b int32
		if col.IsCat {
			b = int32(v) % col.NumBins
			if b < 0 {
				b += col.NumBins
			}
			b++
		} else {
			span := col.Max - col.Min
			if span <= 0 {
				b = 1
			} else {
				frac := (v - col.Min) / span
				b = int32(math.Round(frac*float64(col.NumBins-1))) + 1
				if b < 1 {
					b = 1
				}
				if b > col.NumBins {
					b = col.NumBins
				}
			}
		}
		cols = append(cols, int32(c))
		bins = append(bins, b)
	}
	return bin.BinVector{Cols: cols, Bins: bins}
}

// NumBins returns the binning width for column c (including the
// reserved zero/missing bucket), used to size histograms.
func (d *Discretizer) NumBins(c int) int {
	if c >= len(d.Columns) {
		return 1
	}
	return int(d.Columns[c].NumBins) + 1
}
