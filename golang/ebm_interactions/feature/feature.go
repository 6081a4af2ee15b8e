// Package feature holds the per feature metadata owned by a core.
package feature

import "github.com/tarstars/ebm_interactions/golang/ebm_interactions/dataset"

//Feature is immutable once the core that built it is returned to the caller
type Feature struct {
	BinCount int
	Missing  bool
	Unknown  bool
	Nominal  bool
}

//FromInfo keeps the fields of a decoded feature record that outlive decoding
func FromInfo(info dataset.FeatureInfo) Feature {
	return Feature{
		BinCount: info.BinCount,
		Missing:  info.Missing,
		Unknown:  info.Unknown,
		Nominal:  info.Nominal,
	}
}

//IsDegenerate reports a feature that cannot split samples
func (f Feature) IsDegenerate() bool {
	return f.BinCount <= 1
}

//Kind names the feature type for printing
func (f Feature) Kind() string {
	if f.Nominal {
		return "nominal"
	}
	return "ordinal"
}

//Useful returns the indices of features with more than one bin
func Useful(features []Feature) []int {
	var indices []int
	for i, f := range features {
		if !f.IsDegenerate() {
			indices = append(indices, i)
		}
	}
	return indices
}
