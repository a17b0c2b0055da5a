package checkpoint

import "log"

// Resource is anything with a lifetime the cleaner should track:
// broadcast handles, persisted datasets, pooled block arenas.
type Resource interface {
	Release()
}

// ResourceCleaner is a scoped resource-acquisition registry: every
// per-iteration read-only datum and cached dataset is registered here
// and released on every exit path at iteration end, regardless of
// whether the iteration succeeded, failed, or was stopped by a
// callback (spec.md §5).
type ResourceCleaner struct {
	resources []Resource
}

// NewResourceCleaner builds an empty cleaner for one iteration's scope.
func NewResourceCleaner() *ResourceCleaner {
	return &ResourceCleaner{}
}

// Register tracks r for release at ReleaseAll.
func (c *ResourceCleaner) Register(r Resource) {
	c.resources = append(c.resources, r)
}

// ReleaseAll releases every tracked resource in reverse registration
// order. Individual release failures (resources here never return an
// error; panics are the only failure mode) are recovered and logged so
// one broken resource doesn't block releasing the rest, matching
// spec.md §7's "broadcast/persist cleanup errors are logged and
// swallowed in clear(blocking=false)".
func (c *ResourceCleaner) ReleaseAll() {
	for i := len(c.resources) - 1; i >= 0; i-- {
		releaseOne(c.resources[i])
	}
	c.resources = nil
}

func releaseOne(r Resource) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("resource cleaner: release failed: %v", rec)
		}
	}()
	r.Release()
}

// Scoped runs fn with a fresh cleaner and guarantees ReleaseAll runs
// even if fn panics or returns an error, mirroring a scoped resource-
// acquisition idiom (spec.md §9's "Broadcast + cleaner" design note).
func Scoped(fn func(c *ResourceCleaner) error) error {
	cleaner := NewResourceCleaner()
	defer cleaner.ReleaseAll()
	return fn(cleaner)
}
