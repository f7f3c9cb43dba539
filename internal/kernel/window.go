// Package kernel implements the pooling and unpooling compute kernels on
// raw NCHW feature maps.
//
// Kernels are pure: all routing state between a forward pass and its
// backward pass travels through the explicit mask tensor, never through
// captured kernel state.
package kernel

import "fmt"

// Window describes the sliding receptive field of a pooling operation:
// kernel extent, stride, and zero-padding, all fixed at operator
// construction time.
type Window struct {
	KernelH, KernelW int
	StrideH, StrideW int
	PadH, PadW       int
}

// Validate checks the basic window parameters: non-zero kernel and stride,
// non-negative padding.
func (w Window) Validate() error {
	if w.KernelH <= 0 || w.KernelW <= 0 {
		return fmt.Errorf("kernel must be positive, got (%d,%d)", w.KernelH, w.KernelW)
	}
	if w.StrideH <= 0 || w.StrideW <= 0 {
		return fmt.Errorf("stride must be positive, got (%d,%d)", w.StrideH, w.StrideW)
	}
	if w.PadH < 0 || w.PadW < 0 {
		return fmt.Errorf("pad must be non-negative, got (%d,%d)", w.PadH, w.PadW)
	}
	return nil
}

// RequireEqualStride fails unless the stride is uniform across dimensions.
// The mask encoding assumes one stride, so both kernels demand it.
func (w Window) RequireEqualStride() error {
	if w.StrideH != w.StrideW {
		return fmt.Errorf("only same stride is supported, got (%d,%d)", w.StrideH, w.StrideW)
	}
	return nil
}

// RequireZeroPad fails unless padding is (0,0). Unpooling only supports
// zero padding.
func (w Window) RequireZeroPad() error {
	if w.PadH != 0 || w.PadW != 0 {
		return fmt.Errorf("only zero padding is supported, got (%d,%d)", w.PadH, w.PadW)
	}
	return nil
}

// outputDim computes one pooled spatial dimension. Windows are allowed to
// run past the padded input edge; the min term caps the last window start
// at the final padded element.
func outputDim(in, kernel, stride, pad int) int {
	a := in + 2*pad - kernel + stride - 1
	b := in + 2*pad - 1
	return min(a, b)/stride + 1
}

// inverseDim computes one unpooled spatial dimension, the approximate
// inverse of outputDim. The two compose exactly only when
// (in - kernel) % stride == 0; otherwise the recovered size is short by up
// to stride-1. Callers that need an exact round trip pass an explicit
// target size instead.
func inverseDim(in, kernel, stride, pad int) int {
	return (in-1)*stride + kernel - 2*pad
}

// OutputDims computes the pooled (height, width) for an input plane.
// Fails when the window is too large for the padded input.
func (w Window) OutputDims(h, width int) (int, int, error) {
	outH := outputDim(h, w.KernelH, w.StrideH, w.PadH)
	outW := outputDim(width, w.KernelW, w.StrideW, w.PadW)
	if outH <= 0 || outW <= 0 {
		return 0, 0, fmt.Errorf("kernel size exceeds input: %dx%d pooled from %dx%d gives %dx%d",
			w.KernelH, w.KernelW, h, width, outH, outW)
	}
	return outH, outW, nil
}

// InverseDims computes the unpooled (height, width) for an input plane.
// Fails when the result is not positive.
func (w Window) InverseDims(h, width int) (int, int, error) {
	outH := inverseDim(h, w.KernelH, w.StrideH, w.PadH)
	outW := inverseDim(width, w.KernelW, w.StrideW, w.PadW)
	if outH <= 0 || outW <= 0 {
		return 0, 0, fmt.Errorf("kernel size exceeds input: %dx%d unpooled from %dx%d gives %dx%d",
			w.KernelH, w.KernelW, h, width, outH, outW)
	}
	return outH, outW, nil
}
