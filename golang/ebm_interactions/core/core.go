// Package core owns the validated dataset that interaction detection runs on.
//
// A Core is created once from a shared dataset blob and then shared between
// goroutines by reference counting. Everything reachable from a Core is
// immutable after Create returns without error.
package core

import (
	"sort"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/bag"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/bin"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/dataset"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/ebmerr"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/feature"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/frame"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/memory"
	"go.uber.org/zap"
)

// Experimental carries tuning knobs that are not part of the stable
// interface. No key is recognised at the moment.
type Experimental map[string]float64

// Core is the reference counted dataset owner.
type Core struct {
	refCount atomic.Int64

	classCount  int
	sampleCount int
	weightCount int
	training    int
	validation  int
	features    []feature.Feature
	frame       *frame.Frame

	featureBytes uintptr
	allocator    memory.Allocator
	logger       *zap.Logger
	onDestroy    func()
}

// Option configures Create.
type Option func(*Core)

// WithAllocator routes every reservation of the core through a.
func WithAllocator(a memory.Allocator) Option {
	return func(c *Core) {
		if a != nil {
			c.allocator = a
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Core) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDestroyHook registers fn to run once when the last reference is freed.
func WithDestroyHook(fn func()) Option {
	return func(c *Core) {
		c.onDestroy = fn
	}
}

const featureSize = unsafe.Sizeof(feature.Feature{})

// Create validates blob and builds a Core from it. The returned Core is never
// nil, even when err is not, and must always be released with Free.
func Create(blob []byte, bagEntries []int8, initScores []float64, experimental Experimental, opts ...Option) (*Core, error) {
	c := &Core{
		classCount: dataset.Regression,
		allocator:  memory.Default(),
		logger:     zap.NewNop(),
	}
	c.refCount.Store(1)
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("core")
	c.logger.Debug("entered Create", zap.Int("blob_bytes", len(blob)))

	if err := c.build(blob, bagEntries, initScores, experimental); err != nil {
		c.logger.Warn("Create failed", zap.Error(err), zap.Stringer("kind", ebmerr.KindOf(err)))
		return c, err
	}
	c.logger.Debug("exited Create")
	return c, nil
}

func (c *Core) build(blob []byte, bagEntries []int8, initScores []float64, experimental Experimental) error {
	keys := make([]string, 0, len(experimental))
	for k := range experimental {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.logger.Debug("ignoring experimental option", zap.String("key", k), zap.Float64("value", experimental[k]))
	}

	h, err := dataset.DecodeHeader(blob)
	if err != nil {
		return err
	}
	c.sampleCount = h.SampleCount
	c.weightCount = h.WeightCount
	if 1 < h.WeightCount {
		return errors.Wrapf(ebmerr.ErrIllegalParamVal, "%d weight columns, at most 1 supported", h.WeightCount)
	}
	if h.TargetCount != 1 {
		return errors.Wrapf(ebmerr.ErrIllegalParamVal, "%d target columns, exactly 1 required", h.TargetCount)
	}

	if c.classCount, err = dataset.DecodeTarget(blob, 0); err != nil {
		return err
	}
	if c.training, c.validation, err = bag.Split(h.SampleCount, bagEntries); err != nil {
		return err
	}
	c.logger.Debug("decoded header",
		zap.Int("samples", h.SampleCount),
		zap.Int("features", h.FeatureCount),
		zap.Int("weights", h.WeightCount),
		zap.Int("classes", c.classCount),
		zap.Int("training", c.training),
		zap.Int("validation", c.validation))

	if 0 < h.FeatureCount {
		if err := c.buildFeatures(blob, h); err != nil {
			return err
		}
	}

	c.frame, err = frame.Initialize(frame.Params{
		Classification: c.IsClassification(),
		ClassCount:     c.classCount,
		Blob:           blob,
		SampleCount:    h.SampleCount,
		Bag:            bagEntries,
		InitScores:     initScores,
		TrainingCount:  c.training,
		WeightCount:    h.WeightCount,
		FeatureCount:   h.FeatureCount,
		ScoreCount:     c.ScoreCount(),
		Features:       c.features,
		Allocator:      c.allocator,
		Logger:         c.logger,
	})
	return err
}

func (c *Core) buildFeatures(blob []byte, h dataset.Header) error {
	classification := c.IsClassification()
	scores := c.ScoreCount()
	if bin.IsOverflowBinSize[float32](classification, scores) || bin.IsOverflowBinSize[float64](classification, scores) {
		return errors.Wrapf(ebmerr.ErrOutOfMemory, "bin with %d scores overflows", scores)
	}

	size, err := memory.ArraySize(h.FeatureCount, featureSize)
	if err != nil {
		return err
	}
	if err := c.allocator.Reserve(size); err != nil {
		return err
	}
	c.featureBytes = size
	c.features = make([]feature.Feature, h.FeatureCount)

	for i := range c.features {
		info, err := dataset.DecodeFeature(blob, i)
		if err != nil {
			return err
		}
		switch {
		case info.BinCount == 0 && h.SampleCount != 0:
			return errors.Wrapf(ebmerr.ErrIllegalParamVal, "feature %d has no bins but there are %d samples", i, h.SampleCount)
		case info.BinCount == 0:
			c.logger.Info("feature with 0 values", zap.Int("feature", i))
		case info.BinCount == 1:
			c.logger.Info("feature with 1 value", zap.Int("feature", i))
		}
		c.features[i] = feature.FromInfo(info)
	}
	c.logger.Debug("decoded features", zap.Int("features", len(c.features)))
	return nil
}

// AddReference takes another reference and returns c.
func (c *Core) AddReference() *Core {
	c.refCount.Add(1)
	return c
}

// Free drops one reference. The goroutine that drops the last one releases
// everything the Core owns. A nil Core is ignored.
func Free(c *Core) {
	if c == nil {
		return
	}
	remaining := c.refCount.Add(-1)
	if 0 < remaining {
		return
	}
	if remaining < 0 {
		c.logger.Error("Free called on a destroyed core", zap.Int64("references", remaining))
		panic("core: reference count below zero")
	}
	c.logger.Debug("destroying core")
	c.frame.Free()
	c.frame = nil
	if c.featureBytes != 0 {
		c.allocator.Release(c.featureBytes)
		c.featureBytes = 0
	}
	c.features = nil
	if c.onDestroy != nil {
		c.onDestroy()
	}
}
