// Package bag splits samples into training and validation sets.
//
// A bag holds one signed entry per sample. A positive entry puts the sample
// in the training set that many times, a negative entry puts it in the
// validation set -entry times and zero leaves it out.
package bag

import (
	"github.com/pkg/errors"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/ebmerr"
)

// Replication returns how many times a sample with this entry is used and
// whether it lands in the training set.
func Replication(entry int8) (count int, training bool) {
	if entry < 0 {
		return -int(entry), false
	}
	return int(entry), true
}

// Split counts the training and validation samples. A nil bag places every
// sample in the training set once.
func Split(sampleCount int, bag []int8) (training, validation int, err error) {
	if sampleCount < 0 {
		return 0, 0, errors.Wrapf(ebmerr.ErrIllegalParamVal, "negative sample count %d", sampleCount)
	}
	if bag == nil {
		return sampleCount, 0, nil
	}
	if len(bag) != sampleCount {
		return 0, 0, errors.Wrapf(ebmerr.ErrIllegalParamVal, "bag has %d entries for %d samples", len(bag), sampleCount)
	}
	for _, entry := range bag {
		n, isTraining := Replication(entry)
		if isTraining {
			training += n
		} else {
			validation += n
		}
	}
	return training, validation, nil
}
