// Command hgbm-train drives the boosting loop from a JSON config file,
// in the teacher's flag+JSON-config+log.Println idiom
// (extra_boost/extra_boost_main/main.go).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math"
	"os"

	"github.com/tarstars/hgbm/bin"
	"github.com/tarstars/hgbm/boost"
	"github.com/tarstars/hgbm/discretizer"
	"github.com/tarstars/hgbm/fixtures"
	"github.com/tarstars/hgbm/herr"
	"github.com/tarstars/hgbm/objfunc"
	"github.com/tarstars/hgbm/sample"
)

func handleError(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func decodeConfig(srcConfig string, out interface{}) {
	file, err := os.Open(srcConfig)
	handleError(err)
	defer func() { handleError(file.Close()) }()

	dec := json.NewDecoder(file)
	handleError(dec.Decode(out))
}

// TestConfig names one held-out dataset the teacher's PrintMessages
// loop used to log per-iteration loss against.
type TestConfig struct {
	Description       string `json:"description"`
	FileNameFeatures  string `json:"filename_features"`
	FileNameTarget    string `json:"filename_target"`
}

// TrainConfig mirrors the teacher's TrainConfig shape, generalized from
// the intermediate/extra two-matrix layout to a single feature matrix
// plus the engine's boost.Config hyperparameters.
type TrainConfig struct {
	FileNameFeatures     string       `json:"filename_features"`
	FileNameTarget       string       `json:"filename_target"`
	Tests                []TestConfig `json:"tests"`
	FileNameModel        string       `json:"filename_model"`
	FileNameDiscretizer  string       `json:"filename_discretizer"`
	CatCols              []int        `json:"cat_cols"`

	BoostType    string  `json:"boost_type"` // "gbtree" or "dart"
	ObjFunc      string  `json:"obj_func"`   // "regression" or "binary_logistic"
	MaxIter      int     `json:"max_iter"`
	MaxDepth     int     `json:"max_depth"`
	MaxLeaves    int     `json:"max_leaves"`
	MaxBins      int     `json:"max_bins"`
	StepSize     float64 `json:"step_size"`
	RegAlpha     float64 `json:"reg_alpha"`
	RegLambda    float64 `json:"reg_lambda"`
	SubSample    string  `json:"sub_sample_type"` // "none","partition","block","row","goss"
	Seed         int64   `json:"seed"`

	CheckpointDir      string `json:"checkpoint_dir"`
	CheckpointInterval int    `json:"checkpoint_interval"`
}

// logCallback logs each completed iteration's training metric, in the
// teacher's log.Println idiom.
type logCallback struct{}

func (logCallback) OnIteration(info boost.IterationInfo, current boost.Config) (*boost.Config, bool) {
	log.Printf("iter %d: train %6.5f", info.Iteration, info.TrainMetric)
	return nil, false
}

func subSampleKind(name string) sample.Kind {
	switch name {
	case "partition":
		return sample.Partition
	case "block":
		return sample.Block
	case "row":
		return sample.Row
	case "goss":
		return sample.Goss
	default:
		return sample.None
	}
}

func objByName(name string) objfunc.ObjFunc {
	switch name {
	case "binary_logistic":
		return objfunc.BinaryLogistic{}
	default:
		return objfunc.Regression{}
	}
}

func train(srcConfig string) {
	var tc TrainConfig
	decodeConfig(srcConfig, &tc)

	log.Println("load train")
	dataset, err := fixtures.ReadDataset(tc.FileNameFeatures, tc.FileNameTarget)
	handleError(err)
	rows, target := dataset.Rows()

	numCols := 0
	if len(rows) > 0 {
		numCols = len(rows[0])
	}
	catCols := map[int]bool{}
	catColsI32 := map[int32]bool{}
	for _, c := range tc.CatCols {
		catCols[c] = true
		catColsI32[int32(c)] = true
	}

	columns := make([][]float64, numCols)
	for _, row := range rows {
		for c, v := range row {
			columns[c] = append(columns[c], v)
		}
	}
	maxBins := tc.MaxBins
	if maxBins == 0 {
		maxBins = 256
	}
	disc, err := discretizer.Fit(columns, maxBins, catCols)
	handleError(err)

	instances := make([]*boost.Instance, len(rows))
	for i, row := range rows {
		instances[i] = &boost.Instance{
			Bins:   disc.Transform(row),
			Label:  []float64{target[i]},
			Weight: 1,
		}
	}

	cfg := boost.Default()
	cfg.Obj = objByName(tc.ObjFunc)
	if tc.BoostType == "dart" {
		cfg.BoostType = boost.DART
	}
	if tc.MaxIter > 0 {
		cfg.MaxIter = tc.MaxIter
	}
	if tc.MaxDepth > 0 {
		cfg.MaxDepth = tc.MaxDepth
	}
	if tc.MaxLeaves > 0 {
		cfg.MaxLeaves = tc.MaxLeaves
	}
	if tc.MaxBins > 0 {
		cfg.MaxBins = tc.MaxBins
	}
	if tc.StepSize > 0 {
		cfg.StepSize = tc.StepSize
	}
	cfg.RegAlpha = tc.RegAlpha
	if tc.RegLambda > 0 {
		cfg.RegLambda = tc.RegLambda
	}
	cfg.SubSampleType = subSampleKind(tc.SubSample)
	if tc.Seed != 0 {
		cfg.Seed = tc.Seed
	}
	cfg.CheckpointDir = tc.CheckpointDir
	if tc.CheckpointInterval > 0 {
		cfg.CheckpointInterval = tc.CheckpointInterval
	}

	log.Println("fit")
	model, err := boost.Fit(context.Background(), instances, numCols, catColsI32, cfg, []boost.Callback{logCallback{}})
	handleError(err)

	handleError(model.Save(tc.FileNameModel))
	if tc.FileNameDiscretizer != "" {
		handleError(saveDiscretizer(disc, tc.FileNameDiscretizer))
	}

	for _, test := range tc.Tests {
		testSet, err := fixtures.ReadDataset(test.FileNameFeatures, test.FileNameTarget)
		handleError(err)
		testRows, testTarget := testSet.Rows()
		var sum float64
		for i, row := range testRows {
			pred := model.RawBaseScore[0]
			bv := disc.Transform(row)
			pred = model.Predict(bv, 0)
			d := pred - testTarget[i]
			sum += d * d
		}
		if len(testRows) > 0 {
			log.Printf("%s: rmse %6.5f", test.Description, math.Sqrt(sum/float64(len(testRows))))
		}
	}
}

func saveDiscretizer(d *discretizer.Discretizer, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return herr.ResourceErr("hgbm-train: creating "+filename, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(d)
}

func predict(srcConfig string) {
	var pc struct {
		FileNameFeatures    string `json:"filename_features"`
		FileNameModel       string `json:"filename_model"`
		FileNameDiscretizer string `json:"filename_discretizer"`
		FileNameTarget      string `json:"filename_target"`
		TreesNumber         int    `json:"trees_number"`
	}
	decodeConfig(srcConfig, &pc)

	model, err := boost.Load(pc.FileNameModel)
	handleError(err)

	f, err := os.Open(pc.FileNameDiscretizer)
	handleError(err)
	var disc discretizer.Discretizer
	handleError(json.NewDecoder(f).Decode(&disc))
	handleError(f.Close())

	features, err := fixtures.ReadNpy(pc.FileNameFeatures)
	handleError(err)
	h, w := features.Dims()

	preds := make([]float64, h)
	for i := 0; i < h; i++ {
		row := make([]float64, w)
		for j := 0; j < w; j++ {
			row[j] = features.At(i, j)
		}
		var bv bin.BinVector = disc.Transform(row)
		preds[i] = model.Predict(bv, 0)
	}

	out, err := os.Create(pc.FileNameTarget)
	handleError(err)
	defer out.Close()
	handleError(json.NewEncoder(out).Encode(preds))
}

func main() {
	runMode := flag.String("mode", "train", "either 'train' or 'predict'")
	config := flag.String("config", "hgbm_config.json", "a config file for the run of the program")
	flag.Parse()

	switch *runMode {
	case "train":
		train(*config)
	case "predict":
		predict(*config)
	default:
		log.Fatalf("unknown mode %q", *runMode)
	}
}
