package bin

import (
	"github.com/pkg/errors"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/ebmerr"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/memory"
	"gorgonia.org/tensor"
)

//Histogram is a flat array of bins. Gradients is shaped
//[bins, scores, PairWidth] and is nil when either dimension is empty.
type Histogram[F Float] struct {
	Counts    []uint64
	Weights   []F
	Gradients *tensor.Dense

	pairs          []F
	classification bool
	scores         int
	size           uintptr
	allocator      memory.Allocator
}

//NewHistogram reserves and allocates tensorBins bins
func NewHistogram[F Float](a memory.Allocator, classification bool, cScores, tensorBins int) (*Histogram[F], error) {
	if cScores < 0 || tensorBins < 0 {
		return nil, errors.Wrapf(ebmerr.ErrIllegalParamVal, "histogram of %d bins with %d scores", tensorBins, cScores)
	}
	if IsOverflowBinSize[F](classification, cScores) {
		return nil, errors.Wrapf(ebmerr.ErrOutOfMemory, "bin with %d scores overflows", cScores)
	}
	size, err := memory.ArraySize(tensorBins, BinSize[F](classification, cScores))
	if err != nil {
		return nil, err
	}
	if a == nil {
		a = memory.Default()
	}
	if err := a.Reserve(size); err != nil {
		return nil, err
	}

	h := &Histogram[F]{
		Counts:         make([]uint64, tensorBins),
		Weights:        make([]F, tensorBins),
		classification: classification,
		scores:         cScores,
		size:           size,
		allocator:      a,
	}
	width := PairWidth(classification)
	if tensorBins != 0 && cScores != 0 {
		h.pairs = make([]F, tensorBins*cScores*width)
		h.Gradients = tensor.New(tensor.WithShape(tensorBins, cScores, width), tensor.WithBacking(h.pairs))
	}
	return h, nil
}

//Len is the number of bins
func (h *Histogram[F]) Len() int {
	return len(h.Counts)
}

//Scores is the number of gradient pairs per bin
func (h *Histogram[F]) Scores() int {
	return h.scores
}

//Bytes is the reserved size
func (h *Histogram[F]) Bytes() uintptr {
	return h.size
}

//Add accumulates one sample into bin. hessians is ignored for regression.
func (h *Histogram[F]) Add(bin int, weight F, gradients, hessians []F) {
	h.Counts[bin]++
	h.Weights[bin] += weight
	width := PairWidth(h.classification)
	base := bin * h.scores * width
	for s := 0; s < h.scores; s++ {
		h.pairs[base+s*width] += gradients[s]
		if h.classification {
			h.pairs[base+s*width+1] += hessians[s]
		}
	}
}

//Pair returns the accumulated gradient and hessian of one score
func (h *Histogram[F]) Pair(bin, score int) (gradient, hessian F) {
	width := PairWidth(h.classification)
	i := (bin*h.scores + score) * width
	gradient = h.pairs[i]
	if h.classification {
		hessian = h.pairs[i+1]
	}
	return gradient, hessian
}

//Zero clears every bin
func (h *Histogram[F]) Zero() {
	for i := range h.Counts {
		h.Counts[i] = 0
		h.Weights[i] = 0
	}
	if h.Gradients != nil {
		h.Gradients.Zero()
	}
}

//Free returns the reservation. Calling it again does nothing.
func (h *Histogram[F]) Free() {
	if h == nil || h.allocator == nil {
		return
	}
	h.allocator.Release(h.size)
	h.allocator = nil
	h.Counts, h.Weights, h.pairs, h.Gradients = nil, nil, nil, nil
}
