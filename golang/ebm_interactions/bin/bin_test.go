package bin

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/ebmerr"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/memory"
)

func TestBinSize(t *testing.T) {
	// count + weight + gradient, rounded to 8
	assert.Equal(t, uintptr(16), BinSize[float32](false, 1))
	assert.Equal(t, uintptr(24), BinSize[float32](true, 1))
	assert.Equal(t, uintptr(24), BinSize[float64](false, 1))
	assert.Equal(t, uintptr(32), BinSize[float64](true, 1))
	assert.Equal(t, uintptr(16+3*16), BinSize[float64](true, 3))
	assert.Equal(t, uintptr(16), BinSize[float64](true, 0))
}

func TestIsOverflowBinSize(t *testing.T) {
	assert.False(t, IsOverflowBinSize[float32](true, 1000))
	assert.False(t, IsOverflowBinSize[float64](true, 1000))
	assert.True(t, IsOverflowBinSize[float64](true, math.MaxInt))
	assert.True(t, IsOverflowBinSize[float32](false, math.MaxInt/2))
	assert.True(t, IsOverflowBinSize[float64](false, -1))
	assert.Panics(t, func() { BinSize[float64](true, math.MaxInt) })
}

func TestHistogram(t *testing.T) {
	tr := memory.NewTracker(nil)
	h, err := NewHistogram[float64](tr, true, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 3*BinSize[float64](true, 2), h.Bytes())
	assert.Equal(t, []int{3, 2, 2}, []int(h.Gradients.Shape()))

	h.Add(1, 0.5, []float64{1, 2}, []float64{0.25, 0.5})
	h.Add(1, 0.5, []float64{1, 2}, []float64{0.25, 0.5})
	assert.Equal(t, uint64(2), h.Counts[1])
	assert.Equal(t, 1.0, h.Weights[1])
	g, hess := h.Pair(1, 1)
	assert.Equal(t, 4.0, g)
	assert.Equal(t, 1.0, hess)

	v, err := h.Gradients.At(1, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	h.Zero()
	assert.Equal(t, uint64(0), h.Counts[1])
	g, _ = h.Pair(1, 1)
	assert.Zero(t, g)

	h.Free()
	h.Free()
	assert.Equal(t, 0, tr.Live())
}

func TestHistogramRegression(t *testing.T) {
	h, err := NewHistogram[float32](nil, false, 1, 4)
	require.NoError(t, err)
	defer h.Free()
	h.Add(3, 2, []float32{1.5}, nil)
	g, hess := h.Pair(3, 0)
	assert.Equal(t, float32(1.5), g)
	assert.Zero(t, hess)
}

func TestHistogramEmpty(t *testing.T) {
	h, err := NewHistogram[float64](nil, true, 0, 5)
	require.NoError(t, err)
	assert.Nil(t, h.Gradients)
	h.Zero()
	h.Free()
}

func TestHistogramOutOfMemory(t *testing.T) {
	_, err := NewHistogram[float64](memory.NewHeap(64), true, 1, 3)
	assert.Equal(t, ebmerr.OutOfMemory, ebmerr.KindOf(err))

	_, err = NewHistogram[float64](nil, true, 1, math.MaxInt)
	assert.Equal(t, ebmerr.OutOfMemory, ebmerr.KindOf(err))

	_, err = NewHistogram[float64](nil, true, 1, -1)
	assert.Equal(t, ebmerr.IllegalParamVal, ebmerr.KindOf(err))
}
