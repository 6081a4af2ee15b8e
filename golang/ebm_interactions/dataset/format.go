// Package dataset decodes the shared, column oriented dataset blob.
//
// All words are 8 byte little endian. A blob starts with a header
//
//	id, sampleCount, featureCount, weightCount, targetCount,
//	offsets[featureCount+weightCount+targetCount]
//
// followed by one section per feature, weight column and target column, in
// that order. Offsets are absolute, 8 byte aligned and strictly increasing.
// Every function here is stateless and never writes to the blob.
package dataset

import (
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/ebmerr"
)

// Section identifiers.
const (
	HeaderID         uint64 = 0x61E3
	HeaderBuildingID uint64 = 0x103

	FeatureID        uint64 = 0x2B40
	FeatureFlagsMask uint64 = 0xF
	MissingFlag      uint64 = 0x1
	UnknownFlag      uint64 = 0x2
	NominalFlag      uint64 = 0x4
	SparseFlag       uint64 = 0x8

	WeightID         uint64 = 0x31FB
	ClassificationID uint64 = 0x5A92
	RegressionID     uint64 = 0x5B11
)

const (
	WordSize        = 8
	HeaderWords     = 5
	HeaderFixedSize = HeaderWords * WordSize
)

// Regression is the class count reported for a continuous target.
const Regression = -1

var (
	// ErrMalformed is returned for a blob that violates the layout.
	ErrMalformed = ebmerr.New(ebmerr.IllegalParamVal, "malformed shared dataset")
	// ErrIncomplete is returned for a blob whose producer has not finished it.
	ErrIncomplete = ebmerr.New(ebmerr.IllegalParamVal, "shared dataset is still being built")
)

// IsClassification reports whether classCount describes a categorical target.
func IsClassification(classCount int) bool {
	return 0 <= classCount
}

// ScoreCount returns the number of scores predicted per sample. Regression and
// binary classification need one; a target with fewer than two classes has
// nothing to predict.
func ScoreCount(classCount int) int {
	switch {
	case classCount == Regression:
		return 1
	case classCount < 2:
		return 0
	case classCount == 2:
		return 1
	default:
		return classCount
	}
}
