package term

import (
	"github.com/pkg/errors"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/ebmerr"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/feature"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/memory"
)

//Bind fills the derived header fields and strides from the bin counts of the
//referenced features. Nothing is written when it fails.
func (t *Term) Bind(features []feature.Feature) error {
	n := t.FeatureCount()
	strides := make([]uint64, n)
	bins := make([]int, n)
	tensorBins := uintptr(1)
	realDimensions := 0
	for i := 0; i < n; i++ {
		index := t.FeatureIndex(i)
		if index < 0 || len(features) <= index {
			return errors.Wrapf(ebmerr.ErrIllegalParamVal, "dimension %d refers to feature %d of %d", i, index, len(features))
		}
		bins[i] = features[index].BinCount
		if bins[i] > 1 {
			realDimensions++
		}
		strides[i] = uint64(tensorBins)
		var overflow bool
		tensorBins, overflow = memory.Mul(tensorBins, uintptr(bins[i]))
		if overflow || tensorBins > memory.MaxAllocation {
			return errors.Wrapf(ebmerr.ErrOutOfMemory, "tensor of term over features %v overflows", t.FeatureIndices())
		}
	}

	// marginal sweeps of an interaction need one slice per real dimension
	auxiliary := uintptr(0)
	if realDimensions > 1 {
		for _, b := range bins {
			if b <= 1 {
				continue
			}
			var overflow bool
			auxiliary, overflow = memory.Add(auxiliary, tensorBins/uintptr(b))
			if overflow || auxiliary > memory.MaxAllocation {
				return errors.Wrapf(ebmerr.ErrOutOfMemory, "auxiliary bins of term over features %v overflow", t.FeatureIndices())
			}
		}
	}

	for i, s := range strides {
		t.put(t.entry(i)+offStride, s)
	}
	t.put(offRealDimensionCount, uint64(realDimensions))
	t.put(offTensorBinCount, uint64(tensorBins))
	t.put(offAuxiliaryBinCount, uint64(auxiliary))
	return nil
}

//AllocatePairs builds a bound term for every pair of features that have more
//than one bin. No pairs gives a nil slice. On failure every term built so far
//is freed.
func AllocatePairs(a memory.Allocator, features []feature.Feature) ([]*Term, error) {
	useful := feature.Useful(features)
	count := len(useful) * (len(useful) - 1) / 2
	if count == 0 {
		return nil, nil
	}
	terms, err := AllocateTerms(a, count)
	if err != nil {
		return nil, err
	}
	next := 0
	for i := 0; i < len(useful); i++ {
		for j := i + 1; j < len(useful); j++ {
			t, err := Allocate(a, 2)
			if err != nil {
				FreeTerms(a, terms)
				return nil, err
			}
			terms[next] = t
			next++
			t.SetFeatureIndex(0, useful[i])
			t.SetFeatureIndex(1, useful[j])
			if err := t.Bind(features); err != nil {
				FreeTerms(a, terms)
				return nil, err
			}
		}
	}
	return terms, nil
}
