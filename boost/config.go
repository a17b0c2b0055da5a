// Package boost implements the outer boosting loop of spec.md §4.1:
// gbtree and DART regimes, raw-prediction maintenance, callbacks, and
// early stopping, over the tree/histogram/split/sample machinery.
package boost

import (
	"github.com/tarstars/hgbm/herr"
	"github.com/tarstars/hgbm/histogram"
	"github.com/tarstars/hgbm/objfunc"
	"github.com/tarstars/hgbm/sample"
)

// BoostType selects the boosting regime.
type BoostType int

const (
	GBTree BoostType = iota
	DART
)

// HistogramComputation selects one of the three strategies of
// spec.md §4.4 (histogram.Basic, *histogram.Subtract, histogram.Vote).
type HistogramComputation int

const (
	HistBasic HistogramComputation = iota
	HistSubtract
	HistVote
)

// StorageLevel mirrors spec.md §6's storageLevel1/2/3 knobs; "NONE" is
// invalid everywhere per spec.md §4.8.
type StorageLevel int

const (
	MemDisk StorageLevel = iota
	MemDiskSer
	DiskOnly
)

// Config is BoostConfig: the immutable per-iteration snapshot of
// hyperparameters (spec.md §6). A callback may publish a new Config
// for the next iteration; nothing here is mutated mid-iteration.
type Config struct {
	BoostType    BoostType
	MaxIter      int
	MaxDepth     int
	MaxLeaves    int
	MaxBins      int
	StepSize     float64
	RegAlpha     float64
	RegLambda    float64
	MinGain      float64
	MinNodeHess  float64

	SubSampleRateByTree float64
	SubSampleRateByNode float64
	ColSampleRateByTree float64
	ColSampleRateByNode float64
	SubSampleType       sample.Kind

	TopRate, OtherRate float64
	AggregationDepth   int

	HistogramComputationType HistogramComputation
	MaxBruteBins             int
	VoteTopK                 int
	UnbalancedLoss           float64

	DropRate, DropSkip float64
	MinDrop, MaxDrop   int

	BlockSize  int
	ForestSize int
	RawSize    int

	ZeroAsMissing bool
	Seed          int64

	CheckpointInterval int
	CheckpointDir      string // "" keeps checkpoints memory-tier only (no on-disk materialization)
	StorageLevel1      StorageLevel
	StorageLevel2      StorageLevel
	StorageLevel3      StorageLevel

	EarlyStopIters int

	Obj objfunc.ObjFunc
}

// NumTrees is numTrees = forestSize x rawSize (spec.md §4.1/GLOSSARY).
func (c Config) NumTrees() int { return c.ForestSize * c.RawSize }

// TreeConfig is the per-iteration, per-base-model snapshot handed to
// one Grower: iteration index, the resolved column selector, which
// sampled columns are categorical, and the pre-sampled sorted column
// list (spec.md §3).
type TreeConfig struct {
	Iteration      int
	ColumnSelector histogram.Columns
	CatCols        map[int32]bool
	SortedIndices  []int32
}

// Default returns spec.md §6's documented defaults.
func Default() Config {
	return Config{
		BoostType: GBTree, MaxIter: 20, MaxDepth: 5, MaxLeaves: 1000, MaxBins: 256,
		StepSize: 0.1, RegAlpha: 0, RegLambda: 1, MinGain: 0, MinNodeHess: 1,
		SubSampleRateByTree: 1, SubSampleRateByNode: 1,
		ColSampleRateByTree: 1, ColSampleRateByNode: 1,
		SubSampleType:    sample.Block,
		TopRate:          0.2, OtherRate: 0.1, AggregationDepth: 2,
		MaxBruteBins:     8, VoteTopK: 8,
		DropRate:         0, DropSkip: 0.5, MinDrop: 0, MaxDrop: 50,
		BlockSize:        4096, ForestSize: 1, RawSize: 1,
		ZeroAsMissing:    false, Seed: -1,
		CheckpointInterval: 10,
		StorageLevel1:      MemDisk, StorageLevel2: MemDiskSer, StorageLevel3: DiskOnly,
		EarlyStopIters:     -1,
		Obj:                objfunc.Regression{},
	}
}

// Validate checks every hyperparameter against spec.md §6's table,
// returning a herr.Config error naming the first offending field.
func (c Config) Validate() error {
	switch {
	case c.MaxIter < 0:
		return herr.Config("maxIter", "must be >= 0")
	case c.MaxDepth < 1 || c.MaxDepth > 30:
		return herr.Config("maxDepth", "must be in [1,30]")
	case c.MaxLeaves < 2:
		return herr.Config("maxLeaves", "must be >= 2")
	case c.MaxBins < 4:
		return herr.Config("maxBins", "must be >= 4")
	case c.StepSize <= 0:
		return herr.Config("stepSize", "must be > 0")
	case c.RegAlpha < 0:
		return herr.Config("regAlpha", "must be >= 0")
	case c.RegLambda < 0:
		return herr.Config("regLambda", "must be >= 0")
	case c.MinGain < 0:
		return herr.Config("minGain", "must be >= 0")
	case c.MinNodeHess < 0:
		return herr.Config("minNodeHess", "must be >= 0")
	case c.SubSampleRateByTree <= 0 || c.SubSampleRateByTree > 1:
		return herr.Config("subSampleRateByTree", "must be in (0,1]")
	case c.SubSampleRateByNode <= 0 || c.SubSampleRateByNode > 1:
		return herr.Config("subSampleRateByNode", "must be in (0,1]")
	case c.ColSampleRateByTree <= 0 || c.ColSampleRateByTree > 1:
		return herr.Config("colSampleRateByTree", "must be in (0,1]")
	case c.ColSampleRateByNode <= 0 || c.ColSampleRateByNode > 1:
		return herr.Config("colSampleRateByNode", "must be in (0,1]")
	case c.SubSampleType == sample.Goss && (c.TopRate <= 0 || c.TopRate >= 1):
		return herr.Config("topRate", "must be in (0,1)")
	case c.SubSampleType == sample.Goss && (c.OtherRate <= 0 || c.OtherRate >= 1):
		return herr.Config("otherRate", "must be in (0,1)")
	case c.SubSampleType == sample.Goss && c.TopRate+c.OtherRate >= 1:
		// Stricter than the naive <=1 admitted elsewhere: spec.md §9's
		// Open Question resolves this to a strict "<1" at fit start.
		return herr.Config("topRate+otherRate", "must be < 1")
	case c.DropRate < 0 || c.DropRate > 1:
		return herr.Config("dropRate", "must be in [0,1]")
	case c.DropSkip < 0 || c.DropSkip > 1:
		return herr.Config("dropSkip", "must be in [0,1]")
	case c.MinDrop < 0:
		return herr.Config("minDrop", "must be >= 0")
	case c.MaxDrop < 0:
		return herr.Config("maxDrop", "must be >= 0")
	case c.BlockSize <= 0:
		return herr.Config("blockSize", "must be > 0")
	case c.ForestSize <= 0:
		return herr.Config("forestSize", "must be > 0")
	case c.RawSize <= 0:
		return herr.Config("rawSize", "must be > 0")
	case c.StorageLevel1 < MemDisk || c.StorageLevel1 > DiskOnly:
		return herr.Config("storageLevel1", "must not be NONE")
	case c.StorageLevel2 < MemDisk || c.StorageLevel2 > DiskOnly:
		return herr.Config("storageLevel2", "must not be NONE")
	case c.StorageLevel3 < MemDisk || c.StorageLevel3 > DiskOnly:
		return herr.Config("storageLevel3", "must not be NONE")
	case c.EarlyStopIters != -1 && c.EarlyStopIters < 1:
		return herr.Config("earlyStopIters", "must be -1 or >= 1")
	case c.Obj == nil:
		return herr.Config("obj", "objective function must be set")
	}
	return nil
}
