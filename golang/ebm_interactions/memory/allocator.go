// Package memory accounts for the buffers owned by the interaction core.
//
// Go memory is garbage collected, so an Allocator does not hand out raw
// storage. It grants or refuses a byte budget before the caller makes the
// slice, which gives every allocation point a failure path that can be
// exercised and lets tests see leaks and double frees.
package memory

import (
	"math"
	"math/bits"
	"sync"

	"github.com/pkg/errors"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/ebmerr"
)

// Allocator grants byte budgets. Reserve must be paired with exactly one
// Release of the same size.
type Allocator interface {
	Reserve(size uintptr) error
	Release(size uintptr)
}

// MaxAllocation is the largest single reservation accepted by Heap. Anything
// larger cannot be backed by a Go slice.
const MaxAllocation = uintptr(math.MaxInt >> 1)

// Heap is the default Allocator. A zero Limit means no limit beyond
// MaxAllocation per reservation.
type Heap struct {
	Limit uintptr

	mutex sync.Mutex
	inUse uintptr
}

var defaultHeap = &Heap{}

// Default returns the process wide unlimited heap.
func Default() Allocator {
	return defaultHeap
}

// NewHeap creates a heap that refuses reservations once limit bytes are in use.
func NewHeap(limit uintptr) *Heap {
	return &Heap{Limit: limit}
}

// Reserve implements Allocator.
func (h *Heap) Reserve(size uintptr) error {
	if size > MaxAllocation {
		return errors.Wrapf(ebmerr.ErrOutOfMemory, "reservation of %d bytes exceeds %d", size, MaxAllocation)
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()

	total, carry := bits.Add64(uint64(h.inUse), uint64(size), 0)
	if carry != 0 || (h.Limit != 0 && total > uint64(h.Limit)) {
		return errors.Wrapf(ebmerr.ErrOutOfMemory, "heap at capacity (%d of %d bytes in use, %d requested)", h.inUse, h.Limit, size)
	}
	h.inUse = uintptr(total)
	return nil
}

// Release implements Allocator.
func (h *Heap) Release(size uintptr) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if size > h.inUse {
		panic("memory: release exceeds reserved bytes")
	}
	h.inUse -= size
}

// InUse returns the number of reserved bytes.
func (h *Heap) InUse() uintptr {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.inUse
}

// Mul returns a*b, reporting overflow.
func Mul(a, b uintptr) (uintptr, bool) {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > uint64(^uintptr(0)) {
		return 0, true
	}
	return uintptr(lo), false
}

// Add returns a+b, reporting overflow.
func Add(a, b uintptr) (uintptr, bool) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 || sum > uint64(^uintptr(0)) {
		return 0, true
	}
	return uintptr(sum), false
}

// ArraySize returns count*elementSize as a reservation size, failing with
// OutOfMemory when the product does not fit.
func ArraySize(count int, elementSize uintptr) (uintptr, error) {
	if count < 0 {
		return 0, errors.Wrapf(ebmerr.ErrIllegalParamVal, "negative element count %d", count)
	}
	size, overflow := Mul(uintptr(count), elementSize)
	if overflow {
		return 0, errors.Wrapf(ebmerr.ErrOutOfMemory, "%d elements of %d bytes overflow", count, elementSize)
	}
	return size, nil
}
