package dataset

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/ebmerr"
)

// Header holds the counts stored at the start of a blob.
type Header struct {
	SampleCount  int
	FeatureCount int
	WeightCount  int
	TargetCount  int
}

func (h Header) sectionCount() int {
	return h.FeatureCount + h.WeightCount + h.TargetCount
}

// FeatureInfo describes one feature section.
type FeatureInfo struct {
	BinCount              int
	Missing               bool
	Unknown               bool
	Nominal               bool
	Sparse                bool
	SparseDefault         int
	SparseNonDefaultCount int
}

func readWord(blob []byte, offset int) uint64 {
	return binary.LittleEndian.Uint64(blob[offset : offset+WordSize])
}

func readCount(blob []byte, offset int, name string) (int, error) {
	v := readWord(blob, offset)
	if v > math.MaxInt {
		return 0, errors.Wrapf(ErrMalformed, "%s %d does not fit an int", name, v)
	}
	return int(v), nil
}

// decodeFixed reads the fixed part of the header and checks that the offsets
// table fits in the blob. It does not look at the offsets themselves.
func decodeFixed(blob []byte) (Header, error) {
	var h Header
	if len(blob) < HeaderFixedSize {
		return h, errors.Wrapf(ErrMalformed, "blob of %d bytes is shorter than the %d byte header", len(blob), HeaderFixedSize)
	}
	switch id := readWord(blob, 0); id {
	case HeaderID:
	case HeaderBuildingID:
		return h, errors.WithStack(ErrIncomplete)
	default:
		return h, errors.Wrapf(ErrMalformed, "unknown header id 0x%X", id)
	}

	var err error
	if h.SampleCount, err = readCount(blob, 8, "sample count"); err != nil {
		return h, err
	}
	if h.FeatureCount, err = readCount(blob, 16, "feature count"); err != nil {
		return h, err
	}
	if h.WeightCount, err = readCount(blob, 24, "weight count"); err != nil {
		return h, err
	}
	if h.TargetCount, err = readCount(blob, 32, "target count"); err != nil {
		return h, err
	}

	// each section needs at least its id word after the table, so the number
	// of sections is bounded by the blob length before any sum can overflow
	maxSections := uint64(len(blob)-HeaderFixedSize) / (2 * WordSize)
	if uint64(h.FeatureCount) > maxSections || uint64(h.WeightCount) > maxSections || uint64(h.TargetCount) > maxSections {
		return h, errors.Wrapf(ErrMalformed, "section counts %d/%d/%d do not fit in %d bytes", h.FeatureCount, h.WeightCount, h.TargetCount, len(blob))
	}
	if uint64(h.sectionCount()) > maxSections {
		return h, errors.Wrapf(ErrMalformed, "%d sections do not fit in %d bytes", h.sectionCount(), len(blob))
	}
	return h, nil
}

func tableEnd(h Header) int {
	return HeaderFixedSize + h.sectionCount()*WordSize
}

// sectionBounds returns [start, end) of section i, validating only the two
// offsets involved so that per-section decoding stays O(1).
func sectionBounds(blob []byte, h Header, i int) (int, int, error) {
	n := h.sectionCount()
	if i < 0 || n <= i {
		return 0, 0, errors.Wrapf(ebmerr.ErrIllegalParamVal, "section %d out of range [0, %d)", i, n)
	}
	low := uint64(tableEnd(h))
	startWord := readWord(blob, HeaderFixedSize+i*WordSize)
	if startWord < low || uint64(len(blob)) <= startWord || startWord%WordSize != 0 {
		return 0, 0, errors.Wrapf(ErrMalformed, "section %d offset %d outside [%d, %d) or unaligned", i, startWord, low, len(blob))
	}
	endWord := uint64(len(blob))
	if i+1 < n {
		endWord = readWord(blob, HeaderFixedSize+(i+1)*WordSize)
		if endWord <= startWord || uint64(len(blob)) < endWord || endWord%WordSize != 0 {
			return 0, 0, errors.Wrapf(ErrMalformed, "section %d end %d is not after start %d or lies outside the blob", i, endWord, startWord)
		}
	}
	// every section starts with an id word
	if endWord-startWord < WordSize {
		return 0, 0, errors.Wrapf(ErrMalformed, "section %d holds %d bytes, less than one word", i, endWord-startWord)
	}
	return int(startWord), int(endWord), nil
}

// DecodeHeader validates the header and the whole offsets table.
func DecodeHeader(blob []byte) (Header, error) {
	h, err := decodeFixed(blob)
	if err != nil {
		return h, err
	}
	previous := uint64(tableEnd(h))
	for i := 0; i < h.sectionCount(); i++ {
		offset := readWord(blob, HeaderFixedSize+i*WordSize)
		if offset%WordSize != 0 {
			return h, errors.Wrapf(ErrMalformed, "section %d offset %d is unaligned", i, offset)
		}
		if offset < previous || (i != 0 && offset == previous) {
			return h, errors.Wrapf(ErrMalformed, "section %d offset %d is not increasing", i, offset)
		}
		if uint64(len(blob))-WordSize < offset {
			return h, errors.Wrapf(ErrMalformed, "section %d offset %d leaves no room for an id word in the %d byte blob", i, offset, len(blob))
		}
		previous = offset
	}
	return h, nil
}

// featureSection locates feature iFeature and checks its id word.
func featureSection(blob []byte, iFeature int) (Header, FeatureInfo, int, int, error) {
	var info FeatureInfo
	h, err := decodeFixed(blob)
	if err != nil {
		return h, info, 0, 0, err
	}
	if iFeature < 0 || h.FeatureCount <= iFeature {
		return h, info, 0, 0, errors.Wrapf(ebmerr.ErrIllegalParamVal, "feature %d out of range [0, %d)", iFeature, h.FeatureCount)
	}
	start, end, err := sectionBounds(blob, h, iFeature)
	if err != nil {
		return h, info, 0, 0, err
	}
	if end-start < 2*WordSize {
		return h, info, 0, 0, errors.Wrapf(ErrMalformed, "feature %d section is %d bytes", iFeature, end-start)
	}
	id := readWord(blob, start)
	if id&^FeatureFlagsMask != FeatureID {
		return h, info, 0, 0, errors.Wrapf(ErrMalformed, "feature %d has id 0x%X", iFeature, id)
	}
	info.Missing = id&MissingFlag != 0
	info.Unknown = id&UnknownFlag != 0
	info.Nominal = id&NominalFlag != 0
	info.Sparse = id&SparseFlag != 0
	if info.BinCount, err = readCount(blob, start+WordSize, "bin count"); err != nil {
		return h, info, 0, 0, err
	}

	words := (end - start) / WordSize
	if info.Sparse {
		if words < 4 {
			return h, info, 0, 0, errors.Wrapf(ErrMalformed, "sparse feature %d section has %d words", iFeature, words)
		}
		if info.SparseDefault, err = readCount(blob, start+2*WordSize, "sparse default"); err != nil {
			return h, info, 0, 0, err
		}
		if info.SparseNonDefaultCount, err = readCount(blob, start+3*WordSize, "non-default count"); err != nil {
			return h, info, 0, 0, err
		}
		if info.SparseNonDefaultCount > h.SampleCount || uint64(words-4) != 2*uint64(info.SparseNonDefaultCount) {
			return h, info, 0, 0, errors.Wrapf(ErrMalformed, "sparse feature %d declares %d non-defaults in %d words", iFeature, info.SparseNonDefaultCount, words)
		}
	} else if uint64(words-2) != uint64(h.SampleCount) {
		return h, info, 0, 0, errors.Wrapf(ErrMalformed, "dense feature %d has %d values for %d samples", iFeature, words-2, h.SampleCount)
	}
	return h, info, start, end, nil
}

// DecodeFeature returns the metadata of feature iFeature.
func DecodeFeature(blob []byte, iFeature int) (FeatureInfo, error) {
	_, info, _, _, err := featureSection(blob, iFeature)
	return info, err
}

// DecodeFeatureBins expands feature iFeature into one bin index per sample.
// len(dst) must equal the sample count. Every bin index is checked against
// the feature's bin count.
func DecodeFeatureBins(blob []byte, iFeature int, dst []int) error {
	h, info, start, _, err := featureSection(blob, iFeature)
	if err != nil {
		return err
	}
	if len(dst) != h.SampleCount {
		return errors.Wrapf(ebmerr.ErrIllegalParamVal, "destination holds %d samples, dataset has %d", len(dst), h.SampleCount)
	}
	bins := uint64(info.BinCount)
	if !info.Sparse {
		for i := range dst {
			v := readWord(blob, start+(2+i)*WordSize)
			if bins <= v {
				return errors.Wrapf(ebmerr.ErrIllegalParamVal, "feature %d sample %d has bin %d of %d", iFeature, i, v, bins)
			}
			dst[i] = int(v)
		}
		return nil
	}

	if info.SparseNonDefaultCount < h.SampleCount && bins <= uint64(info.SparseDefault) {
		return errors.Wrapf(ebmerr.ErrIllegalParamVal, "feature %d default bin %d of %d", iFeature, info.SparseDefault, bins)
	}
	for i := range dst {
		dst[i] = info.SparseDefault
	}
	next := uint64(0)
	for j := 0; j < info.SparseNonDefaultCount; j++ {
		pair := start + (4+2*j)*WordSize
		index := readWord(blob, pair)
		v := readWord(blob, pair+WordSize)
		if index < next || uint64(h.SampleCount) <= index {
			return errors.Wrapf(ErrMalformed, "feature %d non-default %d has sample index %d", iFeature, j, index)
		}
		if bins <= v {
			return errors.Wrapf(ebmerr.ErrIllegalParamVal, "feature %d sample %d has bin %d of %d", iFeature, index, v, bins)
		}
		dst[index] = int(v)
		next = index + 1
	}
	return nil
}

// DecodeWeights reads weight column iWeight into dst, which must hold one
// entry per sample.
func DecodeWeights(blob []byte, iWeight int, dst []float64) error {
	h, err := decodeFixed(blob)
	if err != nil {
		return err
	}
	if iWeight < 0 || h.WeightCount <= iWeight {
		return errors.Wrapf(ebmerr.ErrIllegalParamVal, "weight %d out of range [0, %d)", iWeight, h.WeightCount)
	}
	start, end, err := sectionBounds(blob, h, h.FeatureCount+iWeight)
	if err != nil {
		return err
	}
	if id := readWord(blob, start); id != WeightID {
		return errors.Wrapf(ErrMalformed, "weight %d has id 0x%X", iWeight, id)
	}
	if uint64((end-start)/WordSize-1) != uint64(h.SampleCount) {
		return errors.Wrapf(ErrMalformed, "weight %d has %d values for %d samples", iWeight, (end-start)/WordSize-1, h.SampleCount)
	}
	if len(dst) != h.SampleCount {
		return errors.Wrapf(ebmerr.ErrIllegalParamVal, "destination holds %d samples, dataset has %d", len(dst), h.SampleCount)
	}
	for i := range dst {
		dst[i] = math.Float64frombits(readWord(blob, start+(1+i)*WordSize))
	}
	return nil
}

// targetSection locates target iTarget and returns its class count and the
// offset of its first value.
func targetSection(blob []byte, iTarget int) (Header, int, int, error) {
	h, err := decodeFixed(blob)
	if err != nil {
		return h, 0, 0, err
	}
	if iTarget < 0 || h.TargetCount <= iTarget {
		return h, 0, 0, errors.Wrapf(ebmerr.ErrIllegalParamVal, "target %d out of range [0, %d)", iTarget, h.TargetCount)
	}
	start, end, err := sectionBounds(blob, h, h.FeatureCount+h.WeightCount+iTarget)
	if err != nil {
		return h, 0, 0, err
	}
	words := uint64((end - start) / WordSize)
	switch id := readWord(blob, start); id {
	case RegressionID:
		if words < 1 || words-1 != uint64(h.SampleCount) {
			return h, 0, 0, errors.Wrapf(ErrMalformed, "regression target %d has %d values for %d samples", iTarget, words-1, h.SampleCount)
		}
		return h, Regression, start + WordSize, nil
	case ClassificationID:
		if words < 2 || words-2 != uint64(h.SampleCount) {
			return h, 0, 0, errors.Wrapf(ErrMalformed, "classification target %d section has %d words for %d samples", iTarget, words, h.SampleCount)
		}
		classes, err := readCount(blob, start+WordSize, "class count")
		if err != nil {
			return h, 0, 0, err
		}
		return h, classes, start + 2*WordSize, nil
	default:
		return h, 0, 0, errors.Wrapf(ErrMalformed, "target %d has id 0x%X", iTarget, id)
	}
}

// DecodeTarget returns the class count of target iTarget, or Regression.
func DecodeTarget(blob []byte, iTarget int) (int, error) {
	_, classes, _, err := targetSection(blob, iTarget)
	return classes, err
}

// DecodeTargetClasses reads a classification target. Every class index must be
// below the class count.
func DecodeTargetClasses(blob []byte, iTarget int, dst []int) error {
	h, classes, first, err := targetSection(blob, iTarget)
	if err != nil {
		return err
	}
	if !IsClassification(classes) {
		return errors.Wrapf(ebmerr.ErrIllegalParamVal, "target %d is a regression target", iTarget)
	}
	if len(dst) != h.SampleCount {
		return errors.Wrapf(ebmerr.ErrIllegalParamVal, "destination holds %d samples, dataset has %d", len(dst), h.SampleCount)
	}
	for i := range dst {
		v := readWord(blob, first+i*WordSize)
		if uint64(classes) <= v {
			return errors.Wrapf(ebmerr.ErrIllegalParamVal, "target %d sample %d has class %d of %d", iTarget, i, v, classes)
		}
		dst[i] = int(v)
	}
	return nil
}

// DecodeTargetValues reads a regression target.
func DecodeTargetValues(blob []byte, iTarget int, dst []float64) error {
	h, classes, first, err := targetSection(blob, iTarget)
	if err != nil {
		return err
	}
	if IsClassification(classes) {
		return errors.Wrapf(ebmerr.ErrIllegalParamVal, "target %d is a classification target", iTarget)
	}
	if len(dst) != h.SampleCount {
		return errors.Wrapf(ebmerr.ErrIllegalParamVal, "destination holds %d samples, dataset has %d", len(dst), h.SampleCount)
	}
	for i := range dst {
		dst[i] = math.Float64frombits(readWord(blob, first+i*WordSize))
	}
	return nil
}
