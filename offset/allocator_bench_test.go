package offset

import (
	"math/rand"
	"testing"
)

// BenchmarkAllocateFree measures an allocate/free pair on an empty allocator.
func BenchmarkAllocateFree(b *testing.B) {
	a, err := New(1<<24, 1024)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := range b.N {
		al, err := a.Allocate(uint32(64 + (i%64)*2))
		if err != nil {
			b.Fatal(err)
		}
		if err := a.Free(al); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFragmented measures allocation churn against a heap with many
// live ranges of mixed sizes.
func BenchmarkFragmented(b *testing.B) {
	const live = 4096
	a, err := New(1<<28, live*2)
	if err != nil {
		b.Fatal(err)
	}
	rng := rand.New(rand.NewSource(42))

	ring := make([]Allocation, live)
	for i := range ring {
		if ring[i], err = a.Allocate(uint32(16 + rng.Intn(4096))); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := range b.N {
		k := i % live
		if err := a.Free(ring[k]); err != nil {
			b.Fatal(err)
		}
		if ring[k], err = a.Allocate(uint32(16 + rng.Intn(4096))); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkStorageReportFull measures the per-bin report over a fragmented
// heap.
func BenchmarkStorageReportFull(b *testing.B) {
	a, err := New(1<<20, 1024)
	if err != nil {
		b.Fatal(err)
	}
	var hold []Allocation
	for i := range 1024 {
		al, err := a.Allocate(uint32(8 + i%200))
		if err != nil {
			b.Fatal(err)
		}
		if i%2 == 0 {
			hold = append(hold, al)
		}
	}
	for _, al := range hold {
		if err := a.Free(al); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		_ = a.StorageReportFull()
	}
}

// BenchmarkReset measures a full reset of a large arena.
func BenchmarkReset(b *testing.B) {
	a, err := New(1<<24, 1<<14)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		a.Reset()
	}
}
