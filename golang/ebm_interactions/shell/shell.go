// Package shell gives each interaction consumer its own handle on a shared
// core together with scratch histograms it may overwrite freely.
//
// A Shell is not safe for concurrent use. Goroutines that work on the same
// core each create their own.
package shell

import (
	"github.com/pkg/errors"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/bin"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/core"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/ebmerr"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/term"
	"go.uber.org/zap"
)

type Shell struct {
	core      *core.Core
	histogram *bin.Histogram[float64]
	logger    *zap.Logger
}

type Option func(*Shell)

func WithLogger(l *zap.Logger) Option {
	return func(s *Shell) {
		if l != nil {
			s.logger = l
		}
	}
}

// New takes a reference on c that Free gives back.
func New(c *core.Core, opts ...Option) *Shell {
	s := &Shell{core: c.AddReference(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Shell) Core() *core.Core {
	return s.core
}

// Histogram returns a zeroed histogram with room for the bins of t and its
// auxiliary bins. The previous histogram is reused when it is large enough,
// so earlier results are overwritten.
func (s *Shell) Histogram(t *term.Term) (*bin.Histogram[float64], error) {
	if s.core == nil {
		return nil, errors.Wrap(ebmerr.ErrIllegalParamVal, "shell already freed")
	}
	if t.TensorBinCount() == 0 && t.FeatureCount() != 0 {
		return nil, errors.Wrapf(ebmerr.ErrIllegalParamVal, "term over features %v is not bound or has an empty feature", t.FeatureIndices())
	}
	bins := t.TensorBinCount() + t.AuxiliaryBinCount()
	if bins < t.TensorBinCount() {
		return nil, errors.Wrap(ebmerr.ErrOutOfMemory, "histogram bin count overflows")
	}
	scores := s.core.ScoreCount()
	if s.histogram != nil && bins <= s.histogram.Len() && s.histogram.Scores() == scores {
		s.histogram.Zero()
		return s.histogram, nil
	}
	h, err := bin.NewHistogram[float64](s.core.Allocator(), s.core.IsClassification(), scores, bins)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("grew scratch histogram", zap.Int("bins", bins), zap.Uintptr("bytes", h.Bytes()))
	s.histogram.Free()
	s.histogram = h
	return h, nil
}

// Free releases the scratch histogram and the core reference. Repeated calls
// do nothing.
func (s *Shell) Free() {
	if s == nil || s.core == nil {
		return
	}
	s.histogram.Free()
	s.histogram = nil
	core.Free(s.core)
	s.core = nil
}
