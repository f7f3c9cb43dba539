package op

import (
	"github.com/segpool-ml/segpool/internal/kernel"
	"github.com/segpool-ml/segpool/internal/parallel"
)

// Config collects the construction-time parameters of the operators.
// Zero values take the documented defaults; Kernel is always required.
type Config struct {
	// Kernel is the pooling kernel size (y, x). Required, non-zero.
	Kernel [2]int

	// Stride is the window stride (y, x). Default (1, 1).
	Stride [2]int

	// Pad is the zero-padding (y, x). Default (0, 0). The unpooling
	// operator only accepts (0, 0).
	Pad [2]int

	// UnpoolSize is the explicit unpooling target size (y, x). Default
	// (0, 0), meaning "derive from the inverse window geometry".
	UnpoolSize [2]int

	// NumArgs is the number of variadic unpooling inputs. Default 2
	// (data plus pooling mask); must be at least 1.
	NumArgs int

	// Reduction selects the pooling policy. Default max.
	Reduction kernel.Reduction

	// Sigma controls the smooth-L1 turning point: the loss switches from
	// quadratic to linear at |x| = 1/sigma^2. Default 1.
	Sigma float64

	// GradScale scales the smooth-L1 gradient. Default 1.
	GradScale float64

	// FastPathKernels marks that an external fast-path kernel library is
	// in use. It disables backward in-place aliasing, because such
	// libraries need the original input buffer intact.
	FastPathKernels bool

	// Parallel overrides the execution context. Nil means
	// parallel.DefaultConfig().
	Parallel *parallel.Config
}

// window applies the stride default and builds the kernel geometry.
func (c Config) window() kernel.Window {
	strideH, strideW := c.Stride[0], c.Stride[1]
	if strideH == 0 && strideW == 0 {
		strideH, strideW = 1, 1
	}
	return kernel.Window{
		KernelH: c.Kernel[0], KernelW: c.Kernel[1],
		StrideH: strideH, StrideW: strideW,
		PadH: c.Pad[0], PadW: c.Pad[1],
	}
}

// execContext resolves the execution context.
func (c Config) execContext() parallel.Config {
	if c.Parallel != nil {
		return *c.Parallel
	}
	return parallel.DefaultConfig()
}
