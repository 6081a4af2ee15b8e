package core

import (
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/dataset"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/feature"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/frame"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/memory"
)

// ClassCount returns dataset.Regression for a continuous target.
func (c *Core) ClassCount() int { return c.classCount }

func (c *Core) IsClassification() bool { return dataset.IsClassification(c.classCount) }

// ScoreCount is the number of scores predicted per sample.
func (c *Core) ScoreCount() int { return dataset.ScoreCount(c.classCount) }

func (c *Core) FeatureCount() int { return len(c.features) }

// Features must not be modified.
func (c *Core) Features() []feature.Feature { return c.features }

func (c *Core) Feature(i int) feature.Feature { return c.features[i] }

func (c *Core) SampleCount() int     { return c.sampleCount }
func (c *Core) WeightCount() int     { return c.weightCount }
func (c *Core) TrainingCount() int   { return c.training }
func (c *Core) ValidationCount() int { return c.validation }

func (c *Core) Frame() *frame.Frame { return c.frame }

// Allocator is the allocator the core was created with.
func (c *Core) Allocator() memory.Allocator { return c.allocator }

// RefCount is a snapshot and may be stale by the time it is read.
func (c *Core) RefCount() int64 { return c.refCount.Load() }
