package bin

import (
	"encoding/binary"

	"github.com/apache/arrow/go/arrow/memory"
)

// DefaultBlockSize is the default instance count per block (spec.md §3).
const DefaultBlockSize = 4096

// KVMatrix is a packed row-of-BinVectors block: the unit of persistence
// and shuffling. Entries for all rows in the block are stored in one
// flat (col,bin) int32-pair arena, allocated through an arrow memory
// allocator so the resource cleaner can track and free it as a single
// handle (spec.md §5's broadcast/cleaner registry).
type KVMatrix struct {
	alloc    memory.Allocator
	buf      *memory.Buffer
	rowStart []int32 // len = Rows+1, offsets in entries (not bytes)
	Rows     int
}

const entryBytes = 8 // int32 col + int32 bin

// NewKVMatrix builds an empty block with room for capacityEntries
// (col,bin) pairs across all its rows.
func NewKVMatrix(alloc memory.Allocator, rows, capacityEntries int) *KVMatrix {
	if alloc == nil {
		alloc = memory.NewGoAllocator()
	}
	buf := memory.NewResizableBuffer(alloc)
	buf.Resize(capacityEntries * entryBytes)
	return &KVMatrix{
		alloc:    alloc,
		buf:      buf,
		rowStart: make([]int32, rows+1),
		Rows:     rows,
	}
}

// Release returns the block's backing arena to the allocator. Called by
// the resource cleaner when the block's lifetime ends (spec.md §3's
// "released via the resource cleaner before the next iteration starts").
func (m *KVMatrix) Release() {
	if m.buf != nil {
		m.buf.Release()
		m.buf = nil
	}
}

// SetRow writes row index p's sorted (col,bin) entries. Rows must be
// set in ascending p order exactly once, since entries are appended to
// the shared arena.
func (m *KVMatrix) SetRow(p int, cols, bins []int32) {
	start := int(m.rowStart[p])
	need := (start + len(cols)) * entryBytes
	if need > len(m.buf.Bytes()) {
		m.buf.Resize(need)
	}
	b := m.buf.Bytes()
	for i := range cols {
		off := (start + i) * entryBytes
		binary.LittleEndian.PutUint32(b[off:], uint32(cols[i]))
		binary.LittleEndian.PutUint32(b[off+4:], uint32(bins[i]))
	}
	m.rowStart[p+1] = int32(start + len(cols))
}

// Row returns a BinVector holding a copy of row p's stored entries.
func (m *KVMatrix) Row(p int) BinVector {
	start, end := int(m.rowStart[p]), int(m.rowStart[p+1])
	n := end - start
	cols := make([]int32, n)
	bins := make([]int32, n)
	b := m.buf.Bytes()
	for i := 0; i < n; i++ {
		off := (start + i) * entryBytes
		cols[i] = int32(binary.LittleEndian.Uint32(b[off:]))
		bins[i] = int32(binary.LittleEndian.Uint32(b[off+4:]))
	}
	return BinVector{Cols: cols, Bins: bins}
}

// ArrayBlock is a packed array of fixed-width rows of T, used for
// labels, grad-hess pairs, tree ids and node ids (spec.md §3).
type ArrayBlock[T any] struct {
	Width int // row length
	Data  []T // len = Rows*Width
	Rows  int
}

// NewArrayBlock allocates a zeroed array block of the given shape.
func NewArrayBlock[T any](rows, width int) *ArrayBlock[T] {
	return &ArrayBlock[T]{Width: width, Data: make([]T, rows*width), Rows: rows}
}

// Row returns row p as a slice view into the block's backing array.
func (a *ArrayBlock[T]) Row(p int) []T {
	return a.Data[p*a.Width : (p+1)*a.Width]
}

// CompactArray is a packed array of scalar values (weights, raw
// prediction scalars).
type CompactArray[T any] struct {
	Data []T
}

// NewCompactArray allocates a zeroed compact array of length n.
func NewCompactArray[T any](n int) CompactArray[T] {
	return CompactArray[T]{Data: make([]T, n)}
}
