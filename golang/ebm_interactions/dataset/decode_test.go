package dataset_test

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/dataset"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/dataset/datasettest"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/ebmerr"
)

func sample() *datasettest.Builder {
	return datasettest.New(4).
		Feature(3, 0, 1, 2, 1).
		FeatureFlags(2, true, false, true, 1, 1, 0, 0).
		SparseFeature(5, 4, []int{1, 3}, []int{0, 2}).
		Weights(1, 0.5, 2, 1).
		Classification(3, 0, 2, 1, 0)
}

func TestDecodeHeader(t *testing.T) {
	h, err := dataset.DecodeHeader(sample().Bytes())
	require.NoError(t, err)
	assert.Equal(t, dataset.Header{SampleCount: 4, FeatureCount: 3, WeightCount: 1, TargetCount: 1}, h)
}

func TestDecodeHeaderRejects(t *testing.T) {
	valid := sample().Words()
	cases := []struct {
		name  string
		patch func([]uint64) []uint64
	}{
		{"short", func(w []uint64) []uint64 { return w[:3] }},
		{"id", func(w []uint64) []uint64 { w[0] = 0xBAD; return w }},
		{"too many features", func(w []uint64) []uint64 { w[2] = 1 << 40; return w }},
		{"huge count", func(w []uint64) []uint64 { w[3] = math.MaxUint64; return w }},
		{"unaligned offset", func(w []uint64) []uint64 { w[6]++; return w }},
		{"offset inside table", func(w []uint64) []uint64 { w[5] = 8; return w }},
		{"decreasing offsets", func(w []uint64) []uint64 { w[6], w[7] = w[7], w[6]; return w }},
		{"offset past end", func(w []uint64) []uint64 { w[9] = uint64(len(w) * 8); return w }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			words := append([]uint64(nil), valid...)
			_, err := dataset.DecodeHeader(datasettest.Encode(c.patch(words)))
			require.Error(t, err)
			assert.True(t, errors.Is(err, dataset.ErrMalformed), "%v", err)
			assert.Equal(t, ebmerr.IllegalParamVal, ebmerr.KindOf(err))
		})
	}
}

func TestDecodeHeaderIncomplete(t *testing.T) {
	_, err := dataset.DecodeHeader(sample().Building().Bytes())
	assert.True(t, errors.Is(err, dataset.ErrIncomplete))
	assert.Equal(t, ebmerr.IllegalParamVal, ebmerr.KindOf(err))
}

func TestDecodeFeature(t *testing.T) {
	blob := sample().Bytes()

	f, err := dataset.DecodeFeature(blob, 0)
	require.NoError(t, err)
	assert.Equal(t, dataset.FeatureInfo{BinCount: 3}, f)

	f, err = dataset.DecodeFeature(blob, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, f.BinCount)
	assert.True(t, f.Missing)
	assert.False(t, f.Unknown)
	assert.True(t, f.Nominal)

	f, err = dataset.DecodeFeature(blob, 2)
	require.NoError(t, err)
	assert.True(t, f.Sparse)
	assert.Equal(t, 4, f.SparseDefault)
	assert.Equal(t, 2, f.SparseNonDefaultCount)

	_, err = dataset.DecodeFeature(blob, 3)
	assert.Equal(t, ebmerr.IllegalParamVal, ebmerr.KindOf(err))
	_, err = dataset.DecodeFeature(blob, -1)
	assert.Equal(t, ebmerr.IllegalParamVal, ebmerr.KindOf(err))
}

func TestDecodeFeatureRejectsWrongLength(t *testing.T) {
	// three values for four samples
	blob := datasettest.New(4).Feature(3, 0, 1, 2).Classification(2, 0, 1, 0, 1).Bytes()
	_, err := dataset.DecodeFeature(blob, 0)
	assert.True(t, errors.Is(err, dataset.ErrMalformed))
}

func TestDecodeFeatureBins(t *testing.T) {
	blob := sample().Bytes()
	dst := make([]int, 4)

	require.NoError(t, dataset.DecodeFeatureBins(blob, 0, dst))
	assert.Equal(t, []int{0, 1, 2, 1}, dst)

	require.NoError(t, dataset.DecodeFeatureBins(blob, 2, dst))
	assert.Equal(t, []int{4, 0, 4, 2}, dst)

	err := dataset.DecodeFeatureBins(blob, 0, make([]int, 3))
	assert.Equal(t, ebmerr.IllegalParamVal, ebmerr.KindOf(err))
}

func TestDecodeFeatureBinsOutOfRange(t *testing.T) {
	blob := datasettest.New(2).Feature(2, 0, 2).Regression(0, 0).Bytes()
	err := dataset.DecodeFeatureBins(blob, 0, make([]int, 2))
	assert.Equal(t, ebmerr.IllegalParamVal, ebmerr.KindOf(err))

	blob = datasettest.New(3).SparseFeature(4, 0, []int{2, 1}, []int{1, 1}).Regression(0, 0, 0).Bytes()
	err = dataset.DecodeFeatureBins(blob, 0, make([]int, 3))
	assert.True(t, errors.Is(err, dataset.ErrMalformed))
}

func TestDecodeWeights(t *testing.T) {
	dst := make([]float64, 4)
	require.NoError(t, dataset.DecodeWeights(sample().Bytes(), 0, dst))
	assert.Equal(t, []float64{1, 0.5, 2, 1}, dst)

	err := dataset.DecodeWeights(sample().Bytes(), 1, dst)
	assert.Equal(t, ebmerr.IllegalParamVal, ebmerr.KindOf(err))
}

func TestDecodeTarget(t *testing.T) {
	blob := sample().Bytes()
	classes, err := dataset.DecodeTarget(blob, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, classes)
	assert.True(t, dataset.IsClassification(classes))

	dst := make([]int, 4)
	require.NoError(t, dataset.DecodeTargetClasses(blob, 0, dst))
	assert.Equal(t, []int{0, 2, 1, 0}, dst)
	err = dataset.DecodeTargetValues(blob, 0, make([]float64, 4))
	assert.Equal(t, ebmerr.IllegalParamVal, ebmerr.KindOf(err))

	blob = datasettest.New(2).Regression(1.5, -2).Bytes()
	classes, err = dataset.DecodeTarget(blob, 0)
	require.NoError(t, err)
	assert.Equal(t, dataset.Regression, classes)
	values := make([]float64, 2)
	require.NoError(t, dataset.DecodeTargetValues(blob, 0, values))
	assert.Equal(t, []float64{1.5, -2}, values)
}

func TestDecodeTargetClassOutOfRange(t *testing.T) {
	blob := datasettest.New(2).Classification(2, 0, 2).Bytes()
	err := dataset.DecodeTargetClasses(blob, 0, make([]int, 2))
	assert.Equal(t, ebmerr.IllegalParamVal, ebmerr.KindOf(err))
}

func TestScoreCount(t *testing.T) {
	assert.Equal(t, 1, dataset.ScoreCount(dataset.Regression))
	assert.Equal(t, 0, dataset.ScoreCount(0))
	assert.Equal(t, 0, dataset.ScoreCount(1))
	assert.Equal(t, 1, dataset.ScoreCount(2))
	assert.Equal(t, 5, dataset.ScoreCount(5))
}

func TestDecodeDoesNotMutate(t *testing.T) {
	blob := sample().Bytes()
	before := append([]byte(nil), blob...)
	_, _ = dataset.DecodeHeader(blob)
	_, _ = dataset.DecodeFeature(blob, 2)
	_ = dataset.DecodeFeatureBins(blob, 2, make([]int, 4))
	_ = dataset.DecodeTargetClasses(blob, 0, make([]int, 4))
	assert.Equal(t, before, blob)
}

func TestDecodeTruncatedLastSection(t *testing.T) {
	// one target section starting 3 bytes before the end of the blob
	words := datasettest.Encode([]uint64{dataset.HeaderID, 0, 0, 0, 1, 56})
	blob := append(words, make([]byte, 11)...)[:59:59]

	_, err := dataset.DecodeHeader(blob)
	assert.True(t, errors.Is(err, dataset.ErrMalformed), "%v", err)

	_, err = dataset.DecodeTarget(blob, 0)
	assert.True(t, errors.Is(err, dataset.ErrMalformed), "%v", err)
	err = dataset.DecodeTargetValues(blob, 0, nil)
	assert.True(t, errors.Is(err, dataset.ErrMalformed), "%v", err)
}

func TestDecodeTruncatedWeightSection(t *testing.T) {
	words := datasettest.Encode([]uint64{dataset.HeaderID, 0, 0, 1, 0, 56})
	blob := append(words, make([]byte, 13)...)

	_, err := dataset.DecodeHeader(blob)
	assert.True(t, errors.Is(err, dataset.ErrMalformed), "%v", err)
	err = dataset.DecodeWeights(blob, 0, nil)
	assert.True(t, errors.Is(err, dataset.ErrMalformed), "%v", err)
}
