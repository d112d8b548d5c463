// Package locked wraps an offset allocator with a mutex so that it can be
// shared between goroutines, for example an allocating worker and a metrics
// scraper. Every call takes the lock for its full duration.
package locked

import (
	"sync"

	"github.com/joshuapare/offsetkit/offset"
)

// Allocator is an offset.Allocator guarded by a mutex.
type Allocator struct {
	mtx sync.Mutex
	a   *offset.Allocator
}

// New returns an allocator that is safe to be accessed concurrently from
// multiple goroutines. a must not be used directly afterwards.
func New(a *offset.Allocator) *Allocator {
	return &Allocator{a: a}
}

// Allocate satisfies offset.Allocator.Allocate.
func (l *Allocator) Allocate(size uint32) (offset.Allocation, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.a.Allocate(size)
}

// Free satisfies offset.Allocator.Free.
func (l *Allocator) Free(al offset.Allocation) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.a.Free(al)
}

// AllocationSize satisfies offset.Allocator.AllocationSize.
func (l *Allocator) AllocationSize(al offset.Allocation) (uint32, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.a.AllocationSize(al)
}

// Reset satisfies offset.Allocator.Reset.
func (l *Allocator) Reset() {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.a.Reset()
}

// StorageReport satisfies offset.Allocator.StorageReport.
func (l *Allocator) StorageReport() offset.StorageReport {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.a.StorageReport()
}

// StorageReportFull satisfies offset.Allocator.StorageReportFull.
func (l *Allocator) StorageReportFull() []offset.FreeRegion {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.a.StorageReportFull()
}

// Stats satisfies offset.Allocator.Stats.
func (l *Allocator) Stats() offset.Stats {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.a.Stats()
}

// Snapshot satisfies offset.Allocator.Snapshot.
func (l *Allocator) Snapshot() *offset.Snapshot {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.a.Snapshot()
}

// LiveAllocations satisfies offset.Allocator.LiveAllocations.
func (l *Allocator) LiveAllocations() uint32 {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.a.LiveAllocations()
}

// Size returns the managed space size. It never changes, so no lock is taken.
func (l *Allocator) Size() uint32 {
	return l.a.Size()
}

// Do runs fn with exclusive access to the underlying allocator, for call
// sequences that must not interleave with other goroutines.
func (l *Allocator) Do(fn func(a *offset.Allocator)) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	fn(l.a)
}
