package checkpoint

import (
	"testing"
)

func TestStorePersistFetchRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	payload := []byte("histogram bytes")
	if err := store.Persist("k1", MemoryAndDisk, payload); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got, ok := store.Fetch("k1")
	if !ok {
		t.Fatal("Fetch after Persist should find the key")
	}
	if string(got) != string(payload) {
		t.Fatalf("Fetch = %q, want %q", got, payload)
	}
}

func TestStoreDiskOnlySkipsMemoryTier(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	if err := store.Persist("k2", DiskOnly, []byte("x")); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if _, ok := store.Fetch("k2"); ok {
		t.Fatal("DiskOnly persist must not populate the memory tier")
	}
}

func TestEvictRemovesMemoryTierEntry(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	store.Persist("k3", MemoryAndDisk, []byte("y"))
	store.Evict("k3")
	if _, ok := store.Fetch("k3"); ok {
		t.Fatal("Fetch after Evict should miss")
	}
}

func TestCheckpointerRetainsAtMostKeepGenerations(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	c := NewCheckpointer(store, "role", 1, MemoryAndDisk, 2)
	for i := 0; i < 5; i++ {
		if err := c.Update(i, []byte{byte(i)}); err != nil {
			t.Fatalf("Update(%d): %v", i, err)
		}
	}
	if len(c.retained) != 2 {
		t.Fatalf("retained = %d generations, want 2", len(c.retained))
	}
	if _, ok := c.Fetch(4); !ok {
		t.Fatal("the most recent generation must still be retained")
	}
	if _, ok := c.Fetch(0); ok {
		t.Fatal("the oldest generation should have been evicted")
	}
}

func TestCheckpointerIntervalSkipsNonMultiples(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	c := NewCheckpointer(store, "role", 3, MemoryAndDisk, 5)
	c.Update(1, []byte{1})
	c.Update(2, []byte{2})
	c.Update(3, []byte{3})
	if len(c.retained) != 1 {
		t.Fatalf("retained = %d, want 1 (only iteration 3 is a multiple of interval 3)", len(c.retained))
	}
}

type fakeResource struct{ released *bool }

func (f fakeResource) Release() { *f.released = true }

func TestResourceCleanerReleasesInReverseOrder(t *testing.T) {
	var order []int
	c := NewResourceCleaner()
	for i := 0; i < 3; i++ {
		i := i
		c.Register(trackingResource{fn: func() { order = append(order, i) }})
	}
	c.ReleaseAll()
	want := []int{2, 1, 0}
	if len(order) != len(want) {
		t.Fatalf("release order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("release order = %v, want %v", order, want)
		}
	}
}

func TestResourceCleanerRecoversFromPanic(t *testing.T) {
	c := NewResourceCleaner()
	released := false
	c.Register(fakeResource{released: &released})
	c.Register(panicResource{})
	c.ReleaseAll() // must not panic despite the first released resource panicking
	if !released {
		t.Fatal("a panicking resource must not block releasing the rest")
	}
}

type trackingResource struct{ fn func() }

func (t trackingResource) Release() { t.fn() }

type panicResource struct{}

func (panicResource) Release() { panic("boom") }

func TestScopedAlwaysReleases(t *testing.T) {
	released := false
	_ = Scoped(func(c *ResourceCleaner) error {
		c.Register(fakeResource{released: &released})
		return nil
	})
	if !released {
		t.Fatal("Scoped must release registered resources after fn returns")
	}
}
