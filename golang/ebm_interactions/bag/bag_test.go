package bag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/ebmerr"
)

func TestSplitNilBag(t *testing.T) {
	training, validation, err := Split(10, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, training)
	assert.Equal(t, 0, validation)
}

func TestSplitReplicates(t *testing.T) {
	training, validation, err := Split(5, []int8{1, -1, 0, 3, -2})
	require.NoError(t, err)
	assert.Equal(t, 4, training)
	assert.Equal(t, 3, validation)
}

func TestSplitExtremes(t *testing.T) {
	training, validation, err := Split(2, []int8{127, -128})
	require.NoError(t, err)
	assert.Equal(t, 127, training)
	assert.Equal(t, 128, validation)
}

func TestSplitRejects(t *testing.T) {
	_, _, err := Split(3, []int8{1, 1})
	assert.Equal(t, ebmerr.IllegalParamVal, ebmerr.KindOf(err))
	_, _, err = Split(-1, nil)
	assert.Equal(t, ebmerr.IllegalParamVal, ebmerr.KindOf(err))
}

func TestSplitEmpty(t *testing.T) {
	training, validation, err := Split(0, []int8{})
	require.NoError(t, err)
	assert.Zero(t, training)
	assert.Zero(t, validation)
}
