package bin

import "sort"

// BinVector is a sparse vector over colId -> binId. Bin 0 is reserved
// for "zero/missing"; only non-zero bins are stored, sorted by colId.
// It owns its Cols/Bins slices; KVMatrix.Row copies a block's stored
// entries into a new BinVector.
type BinVector struct {
	Cols []int32
	Bins []int32
}

// Len returns the number of stored (non-zero) entries.
func (v BinVector) Len() int { return len(v.Cols) }

// At returns the bin for a given column, or 0 if the column is absent
// (i.e. zero/missing).
func (v BinVector) At(col int32) int32 {
	i := sort.Search(len(v.Cols), func(i int) bool { return v.Cols[i] >= col })
	if i < len(v.Cols) && v.Cols[i] == col {
		return v.Bins[i]
	}
	return 0
}

// ActiveIter calls yield(col, bin) for every stored non-zero entry in
// ascending column order, stopping early if yield returns false.
func (v BinVector) ActiveIter(yield func(col, bin int32) bool) {
	for i := range v.Cols {
		if !yield(v.Cols[i], v.Bins[i]) {
			return
		}
	}
}

// Plus merges two BinVectors' entries into a freshly allocated vector,
// taking the right-hand side's bin on overlap. Used when composing
// sampled/rebinned column slices back together.
func Plus(a, b BinVector) BinVector {
	out := BinVector{
		Cols: make([]int32, 0, len(a.Cols)+len(b.Cols)),
		Bins: make([]int32, 0, len(a.Cols)+len(b.Cols)),
	}
	i, j := 0, 0
	for i < len(a.Cols) && j < len(b.Cols) {
		switch {
		case a.Cols[i] < b.Cols[j]:
			out.Cols = append(out.Cols, a.Cols[i])
			out.Bins = append(out.Bins, a.Bins[i])
			i++
		case a.Cols[i] > b.Cols[j]:
			out.Cols = append(out.Cols, b.Cols[j])
			out.Bins = append(out.Bins, b.Bins[j])
			j++
		default:
			out.Cols = append(out.Cols, b.Cols[j])
			out.Bins = append(out.Bins, b.Bins[j])
			i++
			j++
		}
	}
	out.Cols = append(out.Cols, a.Cols[i:]...)
	out.Bins = append(out.Bins, a.Bins[i:]...)
	out.Cols = append(out.Cols, b.Cols[j:]...)
	out.Bins = append(out.Bins, b.Bins[j:]...)
	return out
}

// Minus removes from a every entry whose column also appears in b,
// regardless of bin value. Used when routing a row out of a sampled
// column subset.
func Minus(a, b BinVector) BinVector {
	out := BinVector{Cols: make([]int32, 0, len(a.Cols)), Bins: make([]int32, 0, len(a.Cols))}
	j := 0
	for i := range a.Cols {
		for j < len(b.Cols) && b.Cols[j] < a.Cols[i] {
			j++
		}
		if j < len(b.Cols) && b.Cols[j] == a.Cols[i] {
			continue
		}
		out.Cols = append(out.Cols, a.Cols[i])
		out.Bins = append(out.Bins, a.Bins[i])
	}
	return out
}

// Slice restricts v to the given sorted, ascending, de-duplicated
// subset of column ids (e.g. a sampled column-selector's columns).
func Slice(v BinVector, cols []int32) BinVector {
	out := BinVector{Cols: make([]int32, 0, len(cols)), Bins: make([]int32, 0, len(cols))}
	i, j := 0, 0
	for i < len(v.Cols) && j < len(cols) {
		switch {
		case v.Cols[i] < cols[j]:
			i++
		case v.Cols[i] > cols[j]:
			j++
		default:
			out.Cols = append(out.Cols, v.Cols[i])
			out.Bins = append(out.Bins, v.Bins[i])
			i++
			j++
		}
	}
	return out
}
