package term

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/ebmerr"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/feature"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/memory"
)

func TestCountBytesIncreasing(t *testing.T) {
	previous, err := CountBytes(0)
	require.NoError(t, err)
	assert.Equal(t, uintptr(HeaderSize), previous)
	for n := 1; n < 64; n++ {
		size, err := CountBytes(n)
		require.NoError(t, err)
		assert.Greater(t, size, previous)
		previous = size
	}
}

func TestCountBytesRejects(t *testing.T) {
	_, err := CountBytes(-1)
	assert.Equal(t, ebmerr.IllegalParamVal, ebmerr.KindOf(err))
	_, err = CountBytes(math.MaxInt)
	assert.Equal(t, ebmerr.OutOfMemory, ebmerr.KindOf(err))
}

func TestAllocate(t *testing.T) {
	tr := memory.NewTracker(nil)
	for _, n := range []int{0, 1, 2, 5} {
		term, err := Allocate(tr, n)
		require.NoError(t, err)
		assert.Equal(t, n, term.FeatureCount())
		size, _ := CountBytes(n)
		assert.Equal(t, size, term.Bytes())
		assert.Zero(t, term.TensorBinCount())
		Free(term)
		Free(term)
	}
	Free(nil)
	assert.Equal(t, 0, tr.Live())
	assert.Equal(t, 4, tr.Releases())
}

func TestFreeDetectsCorruptHeader(t *testing.T) {
	term, err := Allocate(nil, 2)
	require.NoError(t, err)
	term.put(offFeatureCount, 3)
	assert.Panics(t, func() { Free(term) })
}

func TestAllocateTerms(t *testing.T) {
	tr := memory.NewTracker(nil)
	terms, err := AllocateTerms(tr, 4)
	require.NoError(t, err)
	require.Len(t, terms, 4)
	for _, term := range terms {
		assert.Nil(t, term)
	}
	terms[1], err = Allocate(tr, 1)
	require.NoError(t, err)
	terms[3], err = Allocate(tr, 3)
	require.NoError(t, err)

	FreeTerms(tr, terms)
	assert.Equal(t, 0, tr.Live())
	assert.Equal(t, 3, tr.Releases())

	FreeTerms(tr, nil)
	_, err = AllocateTerms(tr, 0)
	assert.Equal(t, ebmerr.IllegalParamVal, ebmerr.KindOf(err))
}

func TestAllocateFailure(t *testing.T) {
	tr := memory.NewTracker(nil)
	tr.FailAt(1)
	_, err := Allocate(tr, 2)
	assert.Equal(t, ebmerr.OutOfMemory, ebmerr.KindOf(err))
	tr.FailAt(1)
	_, err = AllocateTerms(tr, 2)
	assert.Equal(t, ebmerr.OutOfMemory, ebmerr.KindOf(err))
	assert.Equal(t, 0, tr.Live())
}

func TestBind(t *testing.T) {
	features := []feature.Feature{{BinCount: 3}, {BinCount: 1}, {BinCount: 4}}
	term, err := Allocate(nil, 3)
	require.NoError(t, err)
	defer Free(term)
	term.SetFeatureIndex(0, 0)
	term.SetFeatureIndex(1, 1)
	term.SetFeatureIndex(2, 2)

	require.NoError(t, term.Bind(features))
	assert.Equal(t, []int{0, 1, 2}, term.FeatureIndices())
	assert.Equal(t, 2, term.RealDimensionCount())
	assert.Equal(t, 12, term.TensorBinCount())
	assert.Equal(t, 12/3+12/4, term.AuxiliaryBinCount())
	assert.Equal(t, 1, term.Stride(0))
	assert.Equal(t, 3, term.Stride(1))
	assert.Equal(t, 3, term.Stride(2))
}

func TestBindSingleFeature(t *testing.T) {
	term, err := Allocate(nil, 1)
	require.NoError(t, err)
	defer Free(term)
	term.SetFeatureIndex(0, 1)
	require.NoError(t, term.Bind([]feature.Feature{{BinCount: 2}, {BinCount: 5}}))
	assert.Equal(t, 1, term.RealDimensionCount())
	assert.Equal(t, 5, term.TensorBinCount())
	assert.Zero(t, term.AuxiliaryBinCount())
}

func TestBindRejects(t *testing.T) {
	term, err := Allocate(nil, 2)
	require.NoError(t, err)
	defer Free(term)
	term.SetFeatureIndex(1, 7)
	err = term.Bind([]feature.Feature{{BinCount: 2}})
	assert.Equal(t, ebmerr.IllegalParamVal, ebmerr.KindOf(err))
	assert.Zero(t, term.TensorBinCount())

	term.SetFeatureIndex(1, 1)
	err = term.Bind([]feature.Feature{{BinCount: 2}, {BinCount: math.MaxInt}})
	assert.Equal(t, ebmerr.OutOfMemory, ebmerr.KindOf(err))
}

func TestAllocatePairs(t *testing.T) {
	tr := memory.NewTracker(nil)
	features := []feature.Feature{{BinCount: 3}, {BinCount: 1}, {BinCount: 2}, {BinCount: 4}}
	terms, err := AllocatePairs(tr, features)
	require.NoError(t, err)
	require.Len(t, terms, 3)
	assert.Equal(t, []int{0, 2}, terms[0].FeatureIndices())
	assert.Equal(t, []int{0, 3}, terms[1].FeatureIndices())
	assert.Equal(t, []int{2, 3}, terms[2].FeatureIndices())
	assert.Equal(t, 8, terms[2].TensorBinCount())
	FreeTerms(tr, terms)
	assert.Equal(t, 0, tr.Live())

	terms, err = AllocatePairs(tr, features[:2])
	require.NoError(t, err)
	assert.Nil(t, terms)
}

func TestAllocatePairsPartialFailure(t *testing.T) {
	features := []feature.Feature{{BinCount: 3}, {BinCount: 2}, {BinCount: 4}}
	// slot array, then one reservation per pair
	for fail := 1; fail <= 4; fail++ {
		tr := memory.NewTracker(nil)
		tr.FailAt(fail)
		_, err := AllocatePairs(tr, features)
		assert.Equal(t, ebmerr.OutOfMemory, ebmerr.KindOf(err), "fail at %d", fail)
		assert.Equal(t, 0, tr.Live(), "fail at %d", fail)
	}
}

func TestConcurrentDistinctTerms(t *testing.T) {
	tr := memory.NewTracker(nil)
	features := []feature.Feature{{BinCount: 3}, {BinCount: 2}}
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				term, err := Allocate(tr, 2)
				if err != nil {
					t.Error(err)
					return
				}
				term.SetFeatureIndex(1, 1)
				if err := term.Bind(features); err != nil {
					t.Error(err)
				}
				Free(term)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, tr.Live())
}
