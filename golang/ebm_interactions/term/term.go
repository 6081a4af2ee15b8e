// Package term allocates the variable length descriptors of single features
// and feature interactions.
//
// A term is one byte buffer: a fixed header followed by one entry per
// dimension.
//
//	header   featureCount, realDimensionCount, tensorBinCount, auxiliaryBinCount
//	entry    featureIndex, stride
//
// All fields are little endian uint64. The derived fields are zero until Bind.
package term

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/ebmerr"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/memory"
)

const (
	HeaderSize = 4 * 8
	EntrySize  = 2 * 8

	offFeatureCount       = 0
	offRealDimensionCount = 8
	offTensorBinCount     = 16
	offAuxiliaryBinCount  = 24

	offFeatureIndex = 0
	offStride       = 8
)

const slotSize = unsafe.Sizeof((*Term)(nil))

//Term is a single feature or an interaction of several features
type Term struct {
	buf       []byte
	allocator memory.Allocator
}

//CountBytes is the buffer size of a term with featureCount dimensions
func CountBytes(featureCount int) (uintptr, error) {
	if featureCount < 0 {
		return 0, errors.Wrapf(ebmerr.ErrIllegalParamVal, "negative feature count %d", featureCount)
	}
	entries, err := memory.ArraySize(featureCount, EntrySize)
	if err != nil {
		return 0, err
	}
	size, overflow := memory.Add(entries, HeaderSize)
	if overflow || size > memory.MaxAllocation {
		return 0, errors.Wrapf(ebmerr.ErrOutOfMemory, "term with %d features overflows", featureCount)
	}
	return size, nil
}

//Allocate reserves a term with featureCount dimensions. Feature indices are
//left at zero for the caller to set.
func Allocate(a memory.Allocator, featureCount int) (*Term, error) {
	size, err := CountBytes(featureCount)
	if err != nil {
		return nil, err
	}
	if a == nil {
		a = memory.Default()
	}
	if err := a.Reserve(size); err != nil {
		return nil, err
	}
	t := &Term{buf: make([]byte, size), allocator: a}
	t.put(offFeatureCount, uint64(featureCount))
	return t, nil
}

//Free releases the term. A nil or already freed term is ignored.
func Free(t *Term) {
	if t == nil || t.allocator == nil {
		return
	}
	size, err := CountBytes(t.FeatureCount())
	if err != nil || size != uintptr(len(t.buf)) {
		panic(fmt.Sprintf("term: buffer of %d bytes does not match %d features", len(t.buf), t.FeatureCount()))
	}
	t.allocator.Release(size)
	t.allocator = nil
	t.buf = nil
}

//AllocateTerms reserves count empty slots
func AllocateTerms(a memory.Allocator, count int) ([]*Term, error) {
	if count <= 0 {
		return nil, errors.Wrapf(ebmerr.ErrIllegalParamVal, "term slot count %d", count)
	}
	size, err := memory.ArraySize(count, slotSize)
	if err != nil {
		return nil, err
	}
	if a == nil {
		a = memory.Default()
	}
	if err := a.Reserve(size); err != nil {
		return nil, err
	}
	return make([]*Term, count), nil
}

//FreeTerms frees every filled slot and then the slots themselves
func FreeTerms(a memory.Allocator, terms []*Term) {
	if terms == nil {
		return
	}
	for i, t := range terms {
		Free(t)
		terms[i] = nil
	}
	if a == nil {
		a = memory.Default()
	}
	a.Release(uintptr(len(terms)) * slotSize)
}

func (t *Term) get(offset int) uint64 {
	return binary.LittleEndian.Uint64(t.buf[offset:])
}

func (t *Term) put(offset int, v uint64) {
	binary.LittleEndian.PutUint64(t.buf[offset:], v)
}

func (t *Term) entry(i int) int {
	if i < 0 || t.FeatureCount() <= i {
		panic(fmt.Sprintf("term: dimension %d out of range [0, %d)", i, t.FeatureCount()))
	}
	return HeaderSize + i*EntrySize
}

//Bytes is the buffer size
func (t *Term) Bytes() uintptr {
	return uintptr(len(t.buf))
}

func (t *Term) FeatureCount() int {
	return int(t.get(offFeatureCount))
}

func (t *Term) RealDimensionCount() int {
	return int(t.get(offRealDimensionCount))
}

func (t *Term) TensorBinCount() int {
	return int(t.get(offTensorBinCount))
}

func (t *Term) AuxiliaryBinCount() int {
	return int(t.get(offAuxiliaryBinCount))
}

func (t *Term) FeatureIndex(dimension int) int {
	return int(t.get(t.entry(dimension) + offFeatureIndex))
}

func (t *Term) SetFeatureIndex(dimension, featureIndex int) {
	t.put(t.entry(dimension)+offFeatureIndex, uint64(featureIndex))
}

//Stride is the distance between neighbouring bins of a dimension in the
//flattened tensor
func (t *Term) Stride(dimension int) int {
	return int(t.get(t.entry(dimension) + offStride))
}

//FeatureIndices lists the features of every dimension
func (t *Term) FeatureIndices() []int {
	indices := make([]int, t.FeatureCount())
	for i := range indices {
		indices[i] = t.FeatureIndex(i)
	}
	return indices
}
