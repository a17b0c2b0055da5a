package tree

import (
	"testing"

	"github.com/tarstars/hgbm/bin"
	"github.com/tarstars/hgbm/split"
)

func buildStump(t *testing.T) *Model {
	m := NewModel(2)
	m.AddSplit(1, 0, split.BestSplit{ColID: 3, Kind: split.Numeric, Threshold: 5})
	m.AddLeaf(LeftChild(1), 1, -1, false)
	m.AddLeaf(RightChild(1), 1, 2, false)
	return m
}

func TestChildIDsAreUniqueAndFollow2nScheme(t *testing.T) {
	if LeftChild(1) != 2 || RightChild(1) != 3 {
		t.Fatalf("root children = (%d,%d), want (2,3)", LeftChild(1), RightChild(1))
	}
	if LeftChild(5) != 10 || RightChild(5) != 11 {
		t.Fatalf("node 5 children = (%d,%d), want (10,11)", LeftChild(5), RightChild(5))
	}
	if LeftChild(5) == RightChild(5) {
		t.Fatal("left and right child ids must differ")
	}
}

func TestPredictRoutesByThreshold(t *testing.T) {
	m := buildStump(t)
	left := bin.BinVector{Cols: []int32{3}, Bins: []int32{2}}  // 2 < 5: goes left
	right := bin.BinVector{Cols: []int32{3}, Bins: []int32{9}} // 9 >= 5: goes right

	if got := m.Predict(left); got != -1 {
		t.Fatalf("Predict(left) = %v, want -1", got)
	}
	if got := m.Predict(right); got != 2 {
		t.Fatalf("Predict(right) = %v, want 2", got)
	}
}

func TestPredictLeafMatchesPredictedNode(t *testing.T) {
	m := buildStump(t)
	row := bin.BinVector{Cols: []int32{3}, Bins: []int32{1}}
	leaf := m.PredictLeaf(row)
	if leaf != LeftChild(1) {
		t.Fatalf("PredictLeaf = %d, want %d", leaf, LeftChild(1))
	}
}

func TestMissingRoutesByMissingLeft(t *testing.T) {
	m := NewModel(2)
	m.AddSplit(1, 0, split.BestSplit{ColID: 3, Kind: split.Numeric, Threshold: 5, MissingLeft: false})
	m.AddLeaf(LeftChild(1), 1, -1, false)
	m.AddLeaf(RightChild(1), 1, 2, false)

	missingRow := bin.BinVector{} // column 3 absent => bin 0 => missing
	if got := m.Predict(missingRow); got != 2 {
		t.Fatalf("Predict(missing) = %v, want 2 (MissingLeft=false routes right)", got)
	}
}

func TestJSONRoundTripPreservesPredictions(t *testing.T) {
	m := buildStump(t)
	mj := m.ToJSON()
	rebuilt, err := FromJSON(mj)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	rows := []bin.BinVector{
		{Cols: []int32{3}, Bins: []int32{1}},
		{Cols: []int32{3}, Bins: []int32{9}},
		{},
	}
	for _, row := range rows {
		want := m.Predict(row)
		got := rebuilt.Predict(row)
		if want != got {
			t.Fatalf("round-tripped prediction mismatch: want %v, got %v", want, got)
		}
	}
}

func TestNumNodesCountsEveryAddedNode(t *testing.T) {
	m := buildStump(t)
	if m.NumNodes() != 3 {
		t.Fatalf("NumNodes() = %d, want 3", m.NumNodes())
	}
}
