// Package bin implements the compact column-sparse bin vectors, the
// row-block and array-block storage used by the tree grower, and the
// runtime type-width dispatch table described in spec.md §3/§9.
package bin

// Width is the narrowest unsigned integer storage width that covers a
// given id range.
type Width uint8

const (
	Width8 Width = iota
	Width16
	Width32
)

func (w Width) String() string {
	switch w {
	case Width8:
		return "uint8"
	case Width16:
		return "uint16"
	default:
		return "uint32"
	}
}

// Bytes returns the number of bytes a single value of this width occupies.
func (w Width) Bytes() int {
	switch w {
	case Width8:
		return 1
	case Width16:
		return 2
	default:
		return 4
	}
}

// ForRange returns the narrowest width whose unsigned range covers n
// distinct values (ids 0..n-1).
func ForRange(n int) Width {
	switch {
	case n <= 1<<8:
		return Width8
	case n <= 1<<16:
		return Width16
	default:
		return Width32
	}
}

// TNWidths is one of the nine (treeId-width, nodeId-width) combinations
// the dispatch table covers. spec.md §9 flags that the source has a
// duplicated (INT,SHORT) branch where (INT,INT) was intended; Dispatch
// builds and exercises all nine combinations rather than special-casing
// the bug.
type TNWidths struct {
	T, N Width
}

// TNCodec packs/unpacks a (treeId, nodeId) pair into a single uint64 key
// sized according to the chosen widths, for use as a histogram /
// partitioner map key.
type TNCodec struct {
	Widths   TNWidths
	nodeBits uint
	nodeMask uint64
}

func newTNCodec(w TNWidths) TNCodec {
	bits := uint(w.N.Bytes()) * 8
	return TNCodec{Widths: w, nodeBits: bits, nodeMask: (uint64(1) << bits) - 1}
}

// Pack combines a tree id and a node id into one dispatch key.
func (c TNCodec) Pack(treeID, nodeID int) uint64 {
	return uint64(treeID)<<c.nodeBits | (uint64(nodeID) & c.nodeMask)
}

// Unpack recovers (treeId, nodeId) from a key built by Pack.
func (c TNCodec) Unpack(key uint64) (treeID, nodeID int) {
	return int(key >> c.nodeBits), int(key & c.nodeMask)
}

var allWidths = [3]Width{Width8, Width16, Width32}

// Dispatch is the per-fit-call runtime dispatch table: it resolves the
// narrowest widths for T (treeId), N (nodeId), C (colId), B (binId) from
// the sizes known once hyperparameters and dataset shape are fixed, and
// pre-builds the nine TNCodec instantiations so the hot path never
// branches on width again.
type Dispatch struct {
	T, N, C, B Width
	tnCodecs   map[TNWidths]TNCodec
}

// NewDispatch builds the dispatch table for a training run.
//
//   - numTrees    = forestSize * rawSize
//   - maxDepth    bounds the node id range to [1, 2^(maxDepth+1))
//   - numCols     total column count after discretization
//   - maxBins     the largest per-column bin count
func NewDispatch(numTrees, maxDepth, numCols, maxBins int) *Dispatch {
	d := &Dispatch{
		T: ForRange(numTrees),
		N: ForRange(1 << uint(maxDepth+1)),
		C: ForRange(numCols),
		B: ForRange(maxBins),
	}
	d.tnCodecs = make(map[TNWidths]TNCodec, len(allWidths)*len(allWidths))
	for _, t := range allWidths {
		for _, n := range allWidths {
			w := TNWidths{T: t, N: n}
			d.tnCodecs[w] = newTNCodec(w)
		}
	}
	return d
}

// Codec returns the pre-built (T,N) codec for this dispatch's widths.
func (d *Dispatch) Codec() TNCodec {
	return d.tnCodecs[TNWidths{T: d.T, N: d.N}]
}

// CodecFor returns the pre-built codec for an explicit width pair, used
// by components (e.g. the subtract histogram strategy retaining parent
// histograms at a shallower depth) that intentionally operate at a
// narrower width than the table's default.
func (d *Dispatch) CodecFor(w TNWidths) TNCodec {
	return d.tnCodecs[w]
}
