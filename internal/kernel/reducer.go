package kernel

import (
	"fmt"
	"math"

	"github.com/segpool-ml/segpool/internal/tensor"
)

// Policy is the reduction strategy a pooling window applies. A policy
// supplies the reduction's identity element and a strict improvement test;
// because the test is strict, the first winning element in row-major window
// scan order keeps the slot, which fixes tie-breaking for the mask.
type Policy[T tensor.Float] interface {
	// Neutral returns the identity element of the reduction.
	Neutral() T
	// Improves reports whether cand strictly beats cur.
	Improves(cur, cand T) bool
}

// MaxPolicy keeps the largest value in each window.
type MaxPolicy[T tensor.Float] struct{}

// Neutral returns negative infinity.
func (MaxPolicy[T]) Neutral() T { return T(math.Inf(-1)) }

// Improves reports cand > cur.
func (MaxPolicy[T]) Improves(cur, cand T) bool { return cand > cur }

// MinPolicy keeps the smallest value in each window. It shares all the
// pooling scaffolding with MaxPolicy.
type MinPolicy[T tensor.Float] struct{}

// Neutral returns positive infinity.
func (MinPolicy[T]) Neutral() T { return T(math.Inf(1)) }

// Improves reports cand < cur.
func (MinPolicy[T]) Improves(cur, cand T) bool { return cand < cur }

// Reduction selects the pooling policy at runtime. Entry points dispatch
// the tag onto the generic plane kernels, so variants share one body.
type Reduction int

// Supported reductions.
const (
	MaxReduce Reduction = iota
	MinReduce
)

// String returns a human-readable reduction name.
func (r Reduction) String() string {
	switch r {
	case MaxReduce:
		return "max"
	case MinReduce:
		return "min"
	default:
		return "unknown"
	}
}

func (r Reduction) validate() error {
	switch r {
	case MaxReduce, MinReduce:
		return nil
	default:
		return fmt.Errorf("unknown reduction %d", int(r))
	}
}
