package memory

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/ebmerr"
)

// Tracker is an Allocator that records every reservation. It can be told to
// fail the n-th reservation, which drives partial-failure paths in tests.
type Tracker struct {
	mutex       sync.Mutex
	next        Allocator
	reserves    int
	releases    int
	outstanding map[uintptr]int
	failAt      int
}

// NewTracker wraps next. A nil next uses the default heap.
func NewTracker(next Allocator) *Tracker {
	if next == nil {
		next = Default()
	}
	return &Tracker{next: next, outstanding: make(map[uintptr]int)}
}

// FailAt makes the n-th reservation (1-based, counted from now) fail with
// OutOfMemory. Zero disables injection.
func (t *Tracker) FailAt(n int) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if n <= 0 {
		t.failAt = 0
		return
	}
	t.failAt = t.reserves + n
}

// Reserve implements Allocator.
func (t *Tracker) Reserve(size uintptr) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	attempt := t.reserves + 1
	if t.failAt != 0 && attempt == t.failAt {
		t.failAt = 0
		t.reserves = attempt
		return errors.Wrapf(ebmerr.ErrOutOfMemory, "injected failure on reservation %d", attempt)
	}
	t.reserves = attempt
	if err := t.next.Reserve(size); err != nil {
		return err
	}
	t.outstanding[size]++
	return nil
}

// Release implements Allocator. Releasing a size that has no outstanding
// reservation is a double free and panics.
func (t *Tracker) Release(size uintptr) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.outstanding[size] == 0 {
		panic(fmt.Sprintf("memory: release of %d bytes without a matching reservation", size))
	}
	t.outstanding[size]--
	if t.outstanding[size] == 0 {
		delete(t.outstanding, size)
	}
	t.releases++
	t.next.Release(size)
}

// Live returns the number of reservations not yet released.
func (t *Tracker) Live() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	n := 0
	for _, c := range t.outstanding {
		n += c
	}
	return n
}

// LiveBytes returns the number of reserved bytes not yet released.
func (t *Tracker) LiveBytes() uintptr {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	var n uintptr
	for size, c := range t.outstanding {
		n += size * uintptr(c)
	}
	return n
}

// Reserves returns the number of Reserve calls, failed ones included.
func (t *Tracker) Reserves() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.reserves
}

// Releases returns the number of Release calls.
func (t *Tracker) Releases() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.releases
}
