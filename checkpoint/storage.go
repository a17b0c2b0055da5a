// Package checkpoint implements the checkpointer and resource cleaner
// described in spec.md §4.8/§5: periodic materialization of large
// per-iteration intermediates to stable storage, eviction of the
// oldest materialized generation, and lifetime tracking of
// cached/broadcast handles so every acquisition is released on every
// exit path.
package checkpoint

import (
	"os"

	"github.com/dgraph-io/ristretto"
	"github.com/edsrzf/mmap-go"
	"github.com/klauspost/compress/zstd"
	"github.com/spaolacci/murmur3"

	"github.com/tarstars/hgbm/herr"
)

// StorageLevel mirrors spec.md §5's StorageLevel1/2/3: "NONE" is never
// a valid value anywhere in this engine.
type StorageLevel int

const (
	// MemoryAndDisk is StorageLevel1, used for per-iteration sampled data.
	MemoryAndDisk StorageLevel = iota
	// MemoryAndDiskSerialized is StorageLevel2, used for raw predictions.
	MemoryAndDiskSerialized
	// DiskOnly is StorageLevel3, used for test-side raw predictions.
	DiskOnly
)

// Store is the in-memory (ristretto-backed) + on-disk (mmap + zstd)
// two-tier materialization backend shared by every Checkpointer.
type Store struct {
	mem     *ristretto.Cache
	dir     string
	enc     *zstd.Encoder
	fingers map[string]uint64 // dataset key -> content fingerprint of the last persisted generation
}

// NewStore builds a Store rooted at dir for on-disk materializations.
func NewStore(dir string) (*Store, error) {
	mem, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     1 << 28, // 256MiB admission budget for the memory tier
		BufferItems: 64,
	})
	if err != nil {
		return nil, herr.ResourceErr("allocate memory tier", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, herr.ResourceErr("init compressor", err)
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, herr.ResourceErr("create checkpoint dir", err)
		}
	}
	return &Store{mem: mem, dir: dir, enc: enc, fingers: map[string]uint64{}}, nil
}

// Persist materializes raw bytes for key at the given storage level.
// MemoryAndDisk/MemoryAndDiskSerialized keep a memory-tier copy;
// DiskOnly skips it. A murmur3 fingerprint of the payload is compared
// against the last persisted generation for this key so an unchanged
// payload is not rewritten to stable storage.
func (s *Store) Persist(key string, level StorageLevel, payload []byte) error {
	fp := murmur3.Sum64(payload)
	if prev, ok := s.fingers[key]; ok && prev == fp {
		return nil
	}
	s.fingers[key] = fp

	if level != DiskOnly {
		cost := int64(len(payload))
		s.mem.Set(key, payload, cost)
		s.mem.Wait()
	}
	if s.dir == "" {
		return nil
	}
	compressed := s.enc.EncodeAll(payload, nil)
	path := s.dir + "/" + key + ".zst"
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return herr.ResourceErr("open checkpoint file", err)
	}
	defer f.Close()
	if err := f.Truncate(int64(len(compressed))); err != nil {
		return herr.ResourceErr("size checkpoint file", err)
	}
	if len(compressed) == 0 {
		return nil
	}
	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		return herr.ResourceErr("mmap checkpoint file", err)
	}
	defer m.Unmap()
	copy(m, compressed)
	return m.Flush()
}

// Fetch returns the memory-tier copy of key, if still resident.
func (s *Store) Fetch(key string) ([]byte, bool) {
	v, ok := s.mem.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// Evict drops key from the memory tier; the on-disk generation is left
// in place (it is the "stable storage" copy).
func (s *Store) Evict(key string) {
	s.mem.Del(key)
}

// Close releases the memory tier; it always returns nil.
func (s *Store) Close() error {
	s.mem.Close()
	return nil
}
