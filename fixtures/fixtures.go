// Package fixtures loads .npy test data for the engine's end-to-end
// scenarios, grounded on the teacher's ReadEMatrix/ReadNpy
// (extra_boost/ebl/ematrix.go), adapted to return errors instead of
// calling log.Fatal so test code can assert on load failures.
package fixtures

import (
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/tarstars/hgbm/herr"
)

// ReadNpy loads one .npy file into a dense matrix.
func ReadNpy(fileName string) (*mat.Dense, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, herr.ResourceErr("fixtures: opening "+fileName, err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, herr.ResourceErr("fixtures: reading npy header of "+fileName, err)
	}

	var m mat.Dense
	if err := r.Read(&m); err != nil {
		return nil, herr.ResourceErr("fixtures: decoding "+fileName, err)
	}
	return &m, nil
}

// Dataset bundles a feature matrix and its target column, the minimal
// shape the engine's end-to-end tests need.
type Dataset struct {
	Features *mat.Dense
	Target   *mat.Dense
}

// ReadDataset loads a (features, target) pair from two .npy files.
func ReadDataset(featuresPath, targetPath string) (*Dataset, error) {
	features, err := ReadNpy(featuresPath)
	if err != nil {
		return nil, err
	}
	target, err := ReadNpy(targetPath)
	if err != nil {
		return nil, err
	}
	return &Dataset{Features: features, Target: target}, nil
}

// Rows returns the dataset's feature matrix as row-major []float64
// slices, and its target column as a flat []float64 — the shape
// discretizer.Fit/Transform and boost.Instance consume.
func (d *Dataset) Rows() ([][]float64, []float64) {
	h, w := d.Features.Dims()
	rows := make([][]float64, h)
	for i := 0; i < h; i++ {
		row := make([]float64, w)
		for j := 0; j < w; j++ {
			row[j] = d.Features.At(i, j)
		}
		rows[i] = row
	}
	th, _ := d.Target.Dims()
	target := make([]float64, th)
	for i := 0; i < th; i++ {
		target[i] = d.Target.At(i, 0)
	}
	return rows, target
}
