package tree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/kelindar/bitmap"

	"github.com/tarstars/hgbm/herr"
)

// nodeJSON is the pre-order wire layout for one Node (spec.md §6's
// model JSON), independent of the in-memory map arena.
type nodeJSON struct {
	ID            int32   `json:"id"`
	IsLeaf        bool    `json:"isLeaf"`
	NoSplit       bool    `json:"noSplit,omitempty"`
	ColID         int32   `json:"colId,omitempty"`
	IsCategorical bool    `json:"isCategorical,omitempty"`
	Threshold     int32   `json:"threshold,omitempty"`
	LeftBitset    []byte  `json:"leftBitset,omitempty"`
	MissingLeft   bool    `json:"missingLeft,omitempty"`
	Weight        float64 `json:"weight,omitempty"`
	Gain          float64 `json:"gain,omitempty"`
}

// ModelJSON is the serializable form of Model: a pre-order node list,
// so the arena can be rebuilt without carrying Go map iteration order.
type ModelJSON struct {
	MaxDepth int        `json:"maxDepth"`
	Nodes    []nodeJSON `json:"nodes"`
}

// ToJSON walks the arena in pre-order starting at the root, producing
// a deterministic wire form (spec.md §6).
func (m *Model) ToJSON() ModelJSON {
	out := ModelJSON{MaxDepth: m.MaxDepth}
	var walk func(id int32)
	walk = func(id int32) {
		n, ok := m.Nodes[id]
		if !ok {
			return
		}
		nj := nodeJSON{
			ID: n.ID, IsLeaf: n.IsLeaf, NoSplit: n.NoSplit,
			ColID: n.ColID, IsCategorical: n.IsCategorical, Threshold: n.Threshold,
			MissingLeft: n.MissingLeft, Weight: n.Weight, Gain: n.Gain,
		}
		if n.IsCategorical {
			nj.LeftBitset = []byte(n.LeftBitset.ToBytes())
		}
		out.Nodes = append(out.Nodes, nj)
		if !n.IsLeaf {
			walk(LeftChild(id))
			walk(RightChild(id))
		}
	}
	walk(1)
	return out
}

// FromJSON rebuilds the arena from a ModelJSON (spec.md §6's
// round-trip requirement).
func FromJSON(mj ModelJSON) (*Model, error) {
	m := NewModel(mj.MaxDepth)
	for _, nj := range mj.Nodes {
		if nj.IsLeaf {
			m.AddLeaf(nj.ID, 0, nj.Weight, nj.NoSplit)
			continue
		}
		n := &Node{
			ID: nj.ID, ColID: nj.ColID, IsCategorical: nj.IsCategorical,
			Threshold: nj.Threshold, MissingLeft: nj.MissingLeft, Gain: nj.Gain,
		}
		if nj.IsCategorical {
			n.LeftBitset = bitmap.FromBytes(nj.LeftBitset)
		}
		m.Nodes[nj.ID] = n
	}
	return m, nil
}

// describe renders one node's graphviz label, in the teacher's terse
// GraphDescription idiom (extra_boost/ebl/tree.go).
func (n *Node) describe() string {
	var sb strings.Builder
	if n.IsLeaf {
		fmt.Fprintf(&sb, "id: %d\n", n.ID)
		fmt.Fprintf(&sb, "weight: %6.5f", n.Weight)
		if n.NoSplit {
			sb.WriteString("\n(no valid split)")
		}
		return sb.String()
	}
	fmt.Fprintf(&sb, "id: %d\n", n.ID)
	fmt.Fprintf(&sb, "gain: %6.5f\n", n.Gain)
	if n.IsCategorical {
		fmt.Fprintf(&sb, "col_%d in {...}", n.ColID)
	} else {
		fmt.Fprintf(&sb, "col_%d < bin_%d", n.ColID, n.Threshold)
	}
	return sb.String()
}

func (m *Model) recurrentDraw(g *cgraph.Graph, id int32, parent *cgraph.Node) error {
	n, ok := m.Nodes[id]
	if !ok {
		return nil
	}
	node, err := g.CreateNode(fmt.Sprint(id))
	if err != nil {
		return herr.ResourceErr(fmt.Sprintf("tree: creating graph node %d", id), err)
	}
	node.Set("label", n.describe())
	if n.IsLeaf {
		node.Set("shape", "box")
	}
	if parent != nil {
		if _, err := g.CreateEdge("", parent, node); err != nil {
			return herr.ResourceErr(fmt.Sprintf("tree: creating graph edge to %d", id), err)
		}
	}
	if !n.IsLeaf {
		if err := m.recurrentDraw(g, LeftChild(id), node); err != nil {
			return err
		}
		if err := m.recurrentDraw(g, RightChild(id), node); err != nil {
			return err
		}
	}
	return nil
}

// DrawGraph renders the tree as a graphviz graph, in the teacher's
// DrawGraph/recurrentDraw idiom (extra_boost/ebl/tree.go), adapted to
// the arena's id-indexed children instead of array indices.
func (m *Model) DrawGraph() (*graphviz.Graphviz, *cgraph.Graph, error) {
	gv := graphviz.New()
	g, err := gv.Graph()
	if err != nil {
		return nil, nil, herr.ResourceErr("tree: allocating graph", err)
	}
	if err := m.recurrentDraw(g, 1, nil); err != nil {
		return nil, nil, err
	}
	return gv, g, nil
}

// RenderFile renders the tree to filename in the requested graphviz
// format ("png", "svg", "jpg").
func (m *Model) RenderFile(filename, format string) error {
	formats := map[string]graphviz.Format{
		"png": graphviz.PNG,
		"svg": graphviz.SVG,
		"jpg": graphviz.JPG,
	}
	f, ok := formats[format]
	if !ok {
		return herr.Config("format", fmt.Sprintf("unknown render format %q", format))
	}
	gv, g, err := m.DrawGraph()
	if err != nil {
		return err
	}
	if err := gv.RenderFilename(g, f, filename); err != nil {
		return herr.ResourceErr(fmt.Sprintf("tree: rendering %s", filename), err)
	}
	return nil
}

// sortedIDs returns the arena's node ids in ascending order.
func (m *Model) sortedIDs() []int32 {
	ids := make([]int32, 0, len(m.Nodes))
	for id := range m.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
