package tree

import (
	"testing"

	"github.com/tarstars/hgbm/bin"
	"github.com/tarstars/hgbm/histogram"
	"github.com/tarstars/hgbm/partition"
)

func TestGroupByNodeFiltersByTreeAndGroupsByColumn(t *testing.T) {
	h1 := histogram.New(4, bin.Width32)
	h1.AddTotal(3, 2)
	h2 := histogram.New(4, bin.Width32)
	h2.AddTotal(5, 4)
	other := histogram.New(4, bin.Width32)
	other.AddTotal(99, 99)

	histos := map[partition.Key]*histogram.Histogram{
		{TreeID: 1, NodeID: 1, ColID: 0}: h1,
		{TreeID: 1, NodeID: 1, ColID: 1}: h2,
		{TreeID: 2, NodeID: 1, ColID: 0}: other,
	}

	grouped, totals := GroupByNode(1, histos)
	if len(grouped) != 1 {
		t.Fatalf("expected one node for treeID 1, got %d", len(grouped))
	}
	cols, ok := grouped[1]
	if !ok || len(cols) != 2 {
		t.Fatalf("expected node 1 to have 2 columns, got %v", cols)
	}

	g, h := totals(1)
	if g != 3 && g != 5 {
		t.Fatalf("nodeTotals should report one of the columns' totals, got (%v,%v)", g, h)
	}
}

func TestGroupByNodeExcludesOtherTrees(t *testing.T) {
	h := histogram.New(4, bin.Width32)
	histos := map[partition.Key]*histogram.Histogram{
		{TreeID: 7, NodeID: 1, ColID: 0}: h,
	}
	grouped, _ := GroupByNode(3, histos)
	if len(grouped) != 0 {
		t.Fatalf("expected no nodes for an unrelated treeID, got %v", grouped)
	}
}
