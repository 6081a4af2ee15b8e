// Package bin sizes and stores histogram bins.
//
// A bin accumulates a sample count, a weight and one gradient pair per score.
// Classification pairs carry a hessian next to the gradient, regression pairs
// carry only the gradient.
package bin

import (
	"unsafe"

	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/memory"
)

//Float is the precision a histogram is accumulated in
type Float interface {
	float32 | float64
}

const countSize = unsafe.Sizeof(uint64(0))

//PairWidth is the number of values stored per score
func PairWidth(classification bool) int {
	if classification {
		return 2
	}
	return 1
}

func binSize[F Float](classification bool, cScores int) (uintptr, bool) {
	if cScores < 0 {
		return 0, true
	}
	var zero F
	floatSize := unsafe.Sizeof(zero)
	pairSize, overflow := memory.Mul(floatSize, uintptr(PairWidth(classification)))
	if overflow {
		return 0, true
	}
	scores, overflow := memory.Mul(pairSize, uintptr(cScores))
	if overflow {
		return 0, true
	}
	size, overflow := memory.Add(scores, countSize+floatSize)
	if overflow {
		return 0, true
	}
	// round up to the count alignment
	size, overflow = memory.Add(size, countSize-1)
	if overflow {
		return 0, true
	}
	return size &^ (countSize - 1), false
}

//IsOverflowBinSize reports whether the size of one bin with cScores scores
//does not fit a uintptr
func IsOverflowBinSize[F Float](classification bool, cScores int) bool {
	_, overflow := binSize[F](classification, cScores)
	return overflow
}

//BinSize is the byte size of one bin. Callers check IsOverflowBinSize first.
func BinSize[F Float](classification bool, cScores int) uintptr {
	size, overflow := binSize[F](classification, cScores)
	if overflow {
		panic("bin: BinSize called for an overflowing bin")
	}
	return size
}
