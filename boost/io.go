package boost

import (
	"encoding/json"
	"os"

	"github.com/tarstars/hgbm/herr"
	"github.com/tarstars/hgbm/objfunc"
	"github.com/tarstars/hgbm/tree"
)

// ModelJSON is the persisted GBMModel wire form of spec.md §6:
// {objFuncName, rawBaseScore[], discretizer, trees[], weights[], metadata}.
type ModelJSON struct {
	ObjFuncName  string            `json:"objFuncName"`
	RawBaseScore []float64         `json:"rawBaseScore"`
	Discretizer  string            `json:"discretizer"`
	Trees        []tree.ModelJSON  `json:"trees"`
	Weights      []float64         `json:"weights"`
	RawSize      int               `json:"rawSize"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ToJSON renders the ensemble to its wire form, one tree.ModelJSON per
// tree (tree.Model.ToJSON), so the whole model round-trips without
// carrying any map iteration order.
func (m *Model) ToJSON() ModelJSON {
	out := ModelJSON{
		ObjFuncName: m.ObjFuncName, RawBaseScore: m.RawBaseScore,
		Discretizer: m.Discretizer, Weights: m.Weights,
		RawSize: m.RawSize, Metadata: m.Metadata,
	}
	for _, t := range m.Trees {
		out.Trees = append(out.Trees, t.ToJSON())
	}
	return out
}

// FromJSON rebuilds a Model from its wire form, resolving the
// objective by name (objfunc.ByName).
func FromJSON(mj ModelJSON) (*Model, error) {
	obj, ok := objfunc.ByName(mj.ObjFuncName)
	if !ok {
		return nil, herr.Data("boost: unknown objFuncName "+mj.ObjFuncName, nil)
	}
	m := &Model{
		ObjFuncName: mj.ObjFuncName, RawBaseScore: mj.RawBaseScore,
		Discretizer: mj.Discretizer, Weights: mj.Weights,
		RawSize: mj.RawSize, Metadata: mj.Metadata,
	}
	_ = obj // name validated; Model itself does not need the ObjFunc value
	for _, tj := range mj.Trees {
		t, err := tree.FromJSON(tj)
		if err != nil {
			return nil, err
		}
		m.Trees = append(m.Trees, t)
	}
	return m, nil
}

// Save writes the model's JSON wire form to filename, in the teacher's
// EBooster.Save idiom (extra_boost/ebl/ebooster.go).
func (m *Model) Save(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return herr.ResourceErr("boost: creating "+filename, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(m.ToJSON()); err != nil {
		return herr.ResourceErr("boost: encoding "+filename, err)
	}
	return nil
}

// Load reads a model's JSON wire form from filename, the inverse of Save.
func Load(filename string) (*Model, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, herr.ResourceErr("boost: opening "+filename, err)
	}
	defer f.Close()

	var mj ModelJSON
	if err := json.NewDecoder(f).Decode(&mj); err != nil {
		return nil, herr.ResourceErr("boost: decoding "+filename, err)
	}
	return FromJSON(mj)
}
