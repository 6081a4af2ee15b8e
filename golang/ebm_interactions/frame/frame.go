// Package frame holds the training samples of a dataset in the form the
// boosting and interaction code reads them.
//
// Initialize reserves the frame storage and, while decoding, a scratch column
// of one word per sample through the same allocator.
package frame

import (
	"math"

	"github.com/pkg/errors"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/bag"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/dataset"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/ebmerr"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/feature"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/memory"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// Params carries everything Initialize reads.
type Params struct {
	Classification bool
	ClassCount     int
	Blob           []byte
	SampleCount    int
	Bag            []int8
	InitScores     []float64
	TrainingCount  int
	WeightCount    int
	FeatureCount   int
	ScoreCount     int
	Features       []feature.Feature
	Allocator      memory.Allocator
	Logger         *zap.Logger
}

// Frame stores one row per training sample, replicated as the bag asks.
type Frame struct {
	training       int
	scores         int
	features       int
	classification bool

	weights     []float64
	totalWeight float64
	classes     []int
	targets     []float64
	initScores  *mat.Dense
	bins        []int
	binTensor   *tensor.Dense

	size      uintptr
	allocator memory.Allocator
}

func storageSize(p Params) (uintptr, error) {
	// one word per target, weight, init score and feature bin
	row := uintptr(1)
	if p.WeightCount == 1 {
		row++
	}
	var overflow bool
	if p.InitScores != nil {
		if row, overflow = memory.Add(row, uintptr(p.ScoreCount)); overflow {
			return 0, errors.Wrap(ebmerr.ErrOutOfMemory, "frame row overflows")
		}
	}
	if row, overflow = memory.Add(row, uintptr(p.FeatureCount)); overflow {
		return 0, errors.Wrap(ebmerr.ErrOutOfMemory, "frame row overflows")
	}
	words, err := memory.ArraySize(p.TrainingCount, row)
	if err != nil {
		return 0, err
	}
	size, overflow := memory.Mul(words, 8)
	if overflow {
		return 0, errors.Wrapf(ebmerr.ErrOutOfMemory, "frame of %d samples overflows", p.TrainingCount)
	}
	return size, nil
}

// Initialize decodes the training samples of p.Blob. Every check that depends
// on sample values happens here, so a Frame that is returned is valid.
func Initialize(p Params) (*Frame, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	a := p.Allocator
	if a == nil {
		a = memory.Default()
	}
	if len(p.Features) != p.FeatureCount {
		return nil, errors.Wrapf(ebmerr.ErrUnexpectedInternal, "%d features for feature count %d", len(p.Features), p.FeatureCount)
	}
	if p.WeightCount < 0 || 1 < p.WeightCount {
		return nil, errors.Wrapf(ebmerr.ErrIllegalParamVal, "weight count %d", p.WeightCount)
	}
	training, _, err := bag.Split(p.SampleCount, p.Bag)
	if err != nil {
		return nil, err
	}
	if training != p.TrainingCount {
		return nil, errors.Wrapf(ebmerr.ErrUnexpectedInternal, "bag holds %d training samples, caller counted %d", training, p.TrainingCount)
	}
	if p.InitScores != nil {
		want, overflow := memory.Mul(uintptr(p.SampleCount), uintptr(p.ScoreCount))
		if overflow || uintptr(len(p.InitScores)) != want {
			return nil, errors.Wrapf(ebmerr.ErrIllegalParamVal, "%d init scores for %d samples of %d scores", len(p.InitScores), p.SampleCount, p.ScoreCount)
		}
	}

	size, err := storageSize(p)
	if err != nil {
		return nil, err
	}
	if err := a.Reserve(size); err != nil {
		return nil, err
	}
	f := &Frame{
		training:       p.TrainingCount,
		scores:         p.ScoreCount,
		features:       p.FeatureCount,
		classification: p.Classification,
		size:           size,
		allocator:      a,
	}
	if err := f.load(p); err != nil {
		f.Free()
		return nil, err
	}
	logger.Debug("frame initialized",
		zap.Int("training", f.training),
		zap.Int("features", f.features),
		zap.Int("scores", f.scores),
		zap.Float64("total_weight", f.totalWeight),
		zap.Uintptr("bytes", size))
	return f, nil
}

// load decodes one column at a time into a scratch buffer of one word per
// sample, reserved for the duration of the load.
func (f *Frame) load(p Params) error {
	scratch, err := memory.ArraySize(p.SampleCount, 8)
	if err != nil {
		return err
	}
	if err := f.allocator.Reserve(scratch); err != nil {
		return err
	}
	defer f.allocator.Release(scratch)

	if err := f.loadWeights(p); err != nil {
		return err
	}
	if err := f.loadTargets(p); err != nil {
		return err
	}
	if err := f.loadInitScores(p); err != nil {
		return err
	}
	return f.loadBins(p)
}

func (f *Frame) loadWeights(p Params) error {
	if p.WeightCount == 0 {
		f.totalWeight = float64(f.training)
		return nil
	}
	raw := make([]float64, p.SampleCount)
	if err := dataset.DecodeWeights(p.Blob, 0, raw); err != nil {
		return err
	}
	for i, w := range raw {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return errors.Wrapf(ebmerr.ErrUserParamVal, "sample %d has weight %v", i, w)
		}
	}
	f.weights = make([]float64, f.training)
	replicate(p.Bag, raw, 1, f.weights)
	f.totalWeight = floats.Sum(f.weights)
	if math.IsInf(f.totalWeight, 0) {
		return errors.Wrap(ebmerr.ErrUserParamVal, "total weight overflows")
	}
	return nil
}

func (f *Frame) loadTargets(p Params) error {
	if p.Classification {
		raw := make([]int, p.SampleCount)
		if err := dataset.DecodeTargetClasses(p.Blob, 0, raw); err != nil {
			return err
		}
		f.classes = make([]int, f.training)
		replicate(p.Bag, raw, 1, f.classes)
		return nil
	}
	raw := make([]float64, p.SampleCount)
	if err := dataset.DecodeTargetValues(p.Blob, 0, raw); err != nil {
		return err
	}
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(ebmerr.ErrUserParamVal, "sample %d has target %v", i, v)
		}
	}
	f.targets = make([]float64, f.training)
	replicate(p.Bag, raw, 1, f.targets)
	return nil
}

func (f *Frame) loadInitScores(p Params) error {
	if p.InitScores == nil {
		return nil
	}
	for i, v := range p.InitScores {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(ebmerr.ErrUserParamVal, "init score %d is %v", i, v)
		}
	}
	// mat.NewDense panics on empty dimensions
	if f.training == 0 || f.scores == 0 {
		return nil
	}
	rows := make([]float64, f.training*f.scores)
	replicate(p.Bag, p.InitScores, f.scores, rows)
	f.initScores = mat.NewDense(f.training, f.scores, rows)
	return nil
}

func (f *Frame) loadBins(p Params) error {
	if f.features == 0 {
		return nil
	}
	f.bins = make([]int, f.features*f.training)
	raw := make([]int, p.SampleCount)
	for i := 0; i < f.features; i++ {
		if err := dataset.DecodeFeatureBins(p.Blob, i, raw); err != nil {
			return err
		}
		replicate(p.Bag, raw, 1, f.bins[i*f.training:(i+1)*f.training])
	}
	if f.training != 0 {
		f.binTensor = tensor.New(tensor.WithShape(f.features, f.training), tensor.WithBacking(f.bins))
	}
	return nil
}

// replicate copies rows of width values from src into dst, keeping training
// rows only and repeating each as often as its bag entry says.
func replicate[T any](entries []int8, src []T, width int, dst []T) {
	k := 0
	for row := 0; row*width < len(src); row++ {
		n := 1
		if entries != nil {
			var training bool
			n, training = bag.Replication(entries[row])
			if !training {
				continue
			}
		}
		for ; n > 0; n-- {
			k += copy(dst[k:], src[row*width:(row+1)*width])
		}
	}
}

func (f *Frame) TrainingCount() int { return f.training }
func (f *Frame) ScoreCount() int    { return f.scores }
func (f *Frame) FeatureCount() int  { return f.features }

// Weights returns nil when the dataset has no weight column.
func (f *Frame) Weights() []float64 { return f.weights }

// TotalWeight is the training sample count when there are no weights.
func (f *Frame) TotalWeight() float64 { return f.totalWeight }

// Classes returns the class of every training sample, nil for regression.
func (f *Frame) Classes() []int { return f.classes }

// Targets returns the target of every training sample, nil for classification.
func (f *Frame) Targets() []float64 { return f.targets }

// InitScores returns nil when no scores were supplied or the matrix is empty.
func (f *Frame) InitScores() *mat.Dense { return f.initScores }

// Bins returns a features x training tensor, nil when either is zero.
func (f *Frame) Bins() *tensor.Dense { return f.binTensor }

// Bin returns the bin of feature iFeature for training sample iSample.
func (f *Frame) Bin(iFeature, iSample int) int {
	return f.bins[iFeature*f.training+iSample]
}

// Bytes is the reserved size.
func (f *Frame) Bytes() uintptr { return f.size }

// Free returns the reservation. Nil and repeated calls are ignored.
func (f *Frame) Free() {
	if f == nil || f.allocator == nil {
		return
	}
	f.allocator.Release(f.size)
	f.allocator = nil
	f.weights, f.classes, f.targets, f.bins = nil, nil, nil, nil
	f.initScores, f.binTensor = nil, nil
}
