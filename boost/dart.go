package boost

import "math/rand"

// dropSelection is the result of one DART dropout draw: the indices
// of dropped trees (empty for gbtree or when the coin flip keeps all
// trees).
type dropSelection struct {
	Dropped []int
}

// drawDropout implements spec.md §4.1 step 1: with probability
// 1-dropSkip, select k in [minDrop, min(maxDrop,len(trees))] trees
// uniformly without replacement; clamp to at least one if any would be
// dropped, else k=0. rnd is the iteration's seeded source so dropout
// is reproducible given Config.Seed.
func drawDropout(rnd *rand.Rand, numTrees, minDrop, maxDrop int, dropSkip float64) dropSelection {
	if numTrees == 0 || rnd.Float64() < dropSkip {
		return dropSelection{}
	}
	hi := maxDrop
	if hi > numTrees {
		hi = numTrees
	}
	lo := minDrop
	if lo > hi {
		lo = hi
	}
	k := lo
	if hi > lo {
		k = lo + rnd.Intn(hi-lo+1)
	}
	if k == 0 && hi > 0 {
		k = 1
	}
	if k == 0 {
		return dropSelection{}
	}
	perm := rnd.Perm(numTrees)
	dropped := append([]int(nil), perm[:k]...)
	return dropSelection{Dropped: dropped}
}

// applyDropoutWeights renormalizes weights per spec.md §4.1 step 4:
// new trees get weight 1/(k+1); each dropped tree's weight is scaled
// by k/(k+1). Non-dropped, pre-existing trees are untouched.
func applyDropoutWeights(weights []float64, dropped []int, numNew int) []float64 {
	k := len(dropped)
	if k == 0 {
		for i := 0; i < numNew; i++ {
			weights = append(weights, 1)
		}
		return weights
	}
	scale := float64(k) / float64(k+1)
	for _, idx := range dropped {
		weights[idx] *= scale
	}
	newWeight := 1 / float64(k+1)
	for i := 0; i < numNew; i++ {
		weights = append(weights, newWeight)
	}
	return weights
}

// droppedSet builds a membership test for the dropout selection.
func droppedSet(dropped []int) map[int]bool {
	m := make(map[int]bool, len(dropped))
	for _, i := range dropped {
		m[i] = true
	}
	return m
}
