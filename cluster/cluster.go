// Package cluster provides the in-process stand-in for the host
// executor's partitioned-collection abstraction described in spec.md
// §2/§5: partitioned immutable datasets and the map/zip/reduceByKey/
// aggregate/broadcast primitives the rest of the engine is built on.
// No package in this repo reaches for a raw goroutine or channel
// directly outside this one — every suspension point funnels through
// here, mirroring the teacher's own worker-pool boundary
// (tree.go's NewPool/AddTask/WaitAll) generalized with structured
// concurrency instead of a hand-rolled channel pool.
package cluster

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Dataset is a partitioned collection. Partitions are processed
// independently and in parallel; within a partition, iteration is
// strictly sequential (spec.md §5).
type Dataset[T any] struct {
	Partitions [][]T
}

// NewDataset wraps pre-partitioned rows.
func NewDataset[T any](partitions [][]T) *Dataset[T] {
	return &Dataset[T]{Partitions: partitions}
}

// NumPartitions reports the partition count.
func (d *Dataset[T]) NumPartitions() int { return len(d.Partitions) }

// Count returns the total row count across all partitions.
func (d *Dataset[T]) Count() int {
	n := 0
	for _, p := range d.Partitions {
		n += len(p)
	}
	return n
}

// ForEachPartition runs f once per partition, concurrently, via an
// errgroup; the first error cancels ctx and is returned after every
// in-flight partition finishes (spec.md §5's "in-flight partition
// tasks are allowed to finish").
func ForEachPartition[T any](ctx context.Context, d *Dataset[T], f func(ctx context.Context, idx int, rows []T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for i, part := range d.Partitions {
		i, part := i, part
		g.Go(func() error { return f(gctx, i, part) })
	}
	return g.Wait()
}

// Map transforms every partition independently into a new dataset.
func Map[T, U any](ctx context.Context, d *Dataset[T], f func(ctx context.Context, idx int, rows []T) ([]U, error)) (*Dataset[U], error) {
	out := make([][]U, len(d.Partitions))
	err := ForEachPartition(ctx, d, func(c context.Context, idx int, rows []T) error {
		mapped, err := f(c, idx, rows)
		if err != nil {
			return err
		}
		out[idx] = mapped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewDataset(out), nil
}

// ZipPartitions combines two equally-partitioned datasets partition by
// partition (spec.md §5's zipPartitions primitive), e.g. joining a row
// block with its parallel node-id block.
func ZipPartitions[A, B, U any](ctx context.Context, a *Dataset[A], b *Dataset[B], f func(ctx context.Context, idx int, as []A, bs []B) ([]U, error)) (*Dataset[U], error) {
	out := make([][]U, len(a.Partitions))
	g, gctx := errgroup.WithContext(ctx)
	for i := range a.Partitions {
		i := i
		g.Go(func() error {
			mapped, err := f(gctx, i, a.Partitions[i], b.Partitions[i])
			if err != nil {
				return err
			}
			out[i] = mapped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewDataset(out), nil
}

// MapReduceByKey runs localMap over every partition to produce local
// key->value aggregates, then merges across partitions with combine.
// combine must be associative and commutative (spec.md §5).
func MapReduceByKey[T any, K comparable, V any](
	ctx context.Context,
	d *Dataset[T],
	localMap func(idx int, rows []T) map[K]V,
	combine func(a, b V) V,
) (map[K]V, error) {
	partials := make([]map[K]V, len(d.Partitions))
	err := ForEachPartition(ctx, d, func(_ context.Context, idx int, rows []T) error {
		partials[idx] = localMap(idx, rows)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make(map[K]V, len(partials))
	for _, part := range partials {
		for k, v := range part {
			if cur, ok := out[k]; ok {
				out[k] = combine(cur, v)
			} else {
				out[k] = v
			}
		}
	}
	return out, nil
}

// Aggregate reduces the whole dataset to one value via a per-partition
// seqOp fold and a cross-partition combOp merge (spec.md §2).
func Aggregate[T, U any](
	ctx context.Context,
	d *Dataset[T],
	zero func() U,
	seqOp func(acc U, row T) U,
	combOp func(a, b U) U,
) (U, error) {
	var out U
	partials := make([]U, len(d.Partitions))
	err := ForEachPartition(ctx, d, func(_ context.Context, idx int, rows []T) error {
		acc := zero()
		for _, r := range rows {
			acc = seqOp(acc, r)
		}
		partials[idx] = acc
		return nil
	})
	if err != nil {
		return out, err
	}
	out = zero()
	for _, p := range partials {
		out = combOp(out, p)
	}
	return out, nil
}

// Broadcast holds a read-only value shared read access across every
// partition task. It has no Release method, so it is not a
// checkpoint.Resource and is not registered with a ResourceCleaner.
type Broadcast[T any] struct {
	Value T
}

// NewBroadcast wraps v for shared read-only access.
func NewBroadcast[T any](v T) *Broadcast[T] {
	return &Broadcast[T]{Value: v}
}
