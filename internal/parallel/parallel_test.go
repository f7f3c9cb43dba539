package parallel

import (
	"sync/atomic"
	"testing"
)

func TestFor(t *testing.T) {
	cfg := DefaultConfig()

	var counter int64
	n := 1000

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestForPlanes(t *testing.T) {
	cfg := DefaultConfig()

	batch, channels := 4, 8
	results := make([][]bool, batch)
	for b := range results {
		results[b] = make([]bool, channels)
	}

	ForPlanes(batch, channels, func(b, c int) {
		results[b][c] = true
	}, cfg)

	for b := 0; b < batch; b++ {
		for c := 0; c < channels; c++ {
			if !results[b][c] {
				t.Errorf("Missing plane at [%d][%d]", b, c)
			}
		}
	}
}

func TestFor_Sequential(t *testing.T) {
	cfg := Sequential()

	var counter int64
	For(100, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != 100 {
		t.Errorf("Expected 100, got %d", counter)
	}
}

func TestForPlanes_NoPlaneSplitting(t *testing.T) {
	// Every plane index must be visited exactly once, never twice.
	cfg := DefaultConfig()

	batch, channels := 8, 16
	counts := make([]int64, batch*channels)

	ForPlanes(batch, channels, func(b, c int) {
		atomic.AddInt64(&counts[b*channels+c], 1)
	}, cfg)

	for i, n := range counts {
		if n != 1 {
			t.Errorf("Plane %d visited %d times", i, n)
		}
	}
}

func BenchmarkForPlanes(b *testing.B) {
	cfg := DefaultConfig()
	batch, channels := 16, 64

	b.Run("parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var sum int64
			ForPlanes(batch, channels, func(bc, c int) {
				atomic.AddInt64(&sum, int64(bc*channels+c))
			}, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		cfgSeq := Sequential()
		for i := 0; i < b.N; i++ {
			var sum int64
			ForPlanes(batch, channels, func(bc, c int) {
				atomic.AddInt64(&sum, int64(bc*channels+c))
			}, cfgSeq)
		}
	})
}
