// Package datasettest builds shared dataset blobs for tests and tools.
package datasettest

import (
	"encoding/binary"
	"math"

	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/dataset"
)

type section []uint64

// Builder assembles a blob section by section. Sections are laid out in the
// order features, weights, targets regardless of the order of the calls.
type Builder struct {
	samples  int
	features []section
	weights  []section
	targets  []section
	building bool
}

// New starts a blob for sampleCount samples.
func New(sampleCount int) *Builder {
	return &Builder{samples: sampleCount}
}

func featureID(missing, unknown, nominal, sparse bool) uint64 {
	id := dataset.FeatureID
	if missing {
		id |= dataset.MissingFlag
	}
	if unknown {
		id |= dataset.UnknownFlag
	}
	if nominal {
		id |= dataset.NominalFlag
	}
	if sparse {
		id |= dataset.SparseFlag
	}
	return id
}

// Feature adds a dense feature with one bin index per sample.
func (b *Builder) Feature(binCount int, values ...int) *Builder {
	return b.FeatureFlags(binCount, false, false, false, values...)
}

// FeatureFlags adds a dense feature with explicit flags.
func (b *Builder) FeatureFlags(binCount int, missing, unknown, nominal bool, values ...int) *Builder {
	s := section{featureID(missing, unknown, nominal, false), uint64(binCount)}
	for _, v := range values {
		s = append(s, uint64(v))
	}
	b.features = append(b.features, s)
	return b
}

// SparseFeature adds a sparse feature. nonDefault maps sample index to bin.
func (b *Builder) SparseFeature(binCount, defaultValue int, indices, values []int) *Builder {
	s := section{featureID(false, false, false, true), uint64(binCount), uint64(defaultValue), uint64(len(indices))}
	for i := range indices {
		s = append(s, uint64(indices[i]), uint64(values[i]))
	}
	b.features = append(b.features, s)
	return b
}

// Weights adds a weight column.
func (b *Builder) Weights(values ...float64) *Builder {
	s := section{dataset.WeightID}
	for _, v := range values {
		s = append(s, math.Float64bits(v))
	}
	b.weights = append(b.weights, s)
	return b
}

// Classification adds a categorical target.
func (b *Builder) Classification(classCount int, values ...int) *Builder {
	s := section{dataset.ClassificationID, uint64(classCount)}
	for _, v := range values {
		s = append(s, uint64(v))
	}
	b.targets = append(b.targets, s)
	return b
}

// Regression adds a continuous target.
func (b *Builder) Regression(values ...float64) *Builder {
	s := section{dataset.RegressionID}
	for _, v := range values {
		s = append(s, math.Float64bits(v))
	}
	b.targets = append(b.targets, s)
	return b
}

// Building marks the blob as unfinished.
func (b *Builder) Building() *Builder {
	b.building = true
	return b
}

// Words returns the blob as words, which tests patch to build malformed input.
func (b *Builder) Words() []uint64 {
	var all []section
	all = append(all, b.features...)
	all = append(all, b.weights...)
	all = append(all, b.targets...)

	id := dataset.HeaderID
	if b.building {
		id = dataset.HeaderBuildingID
	}
	words := []uint64{id, uint64(b.samples), uint64(len(b.features)), uint64(len(b.weights)), uint64(len(b.targets))}
	offset := uint64(dataset.HeaderFixedSize + len(all)*dataset.WordSize)
	for _, s := range all {
		words = append(words, offset)
		offset += uint64(len(s) * dataset.WordSize)
	}
	for _, s := range all {
		words = append(words, s...)
	}
	return words
}

// Bytes returns the finished blob.
func (b *Builder) Bytes() []byte {
	return Encode(b.Words())
}

// Encode lays words out little endian.
func Encode(words []uint64) []byte {
	blob := make([]byte, len(words)*dataset.WordSize)
	for i, w := range words {
		binary.LittleEndian.PutUint64(blob[i*dataset.WordSize:], w)
	}
	return blob
}
