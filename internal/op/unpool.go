package op

import (
	"fmt"

	"github.com/segpool-ml/segpool/internal/kernel"
	"github.com/segpool-ml/segpool/internal/parallel"
	"github.com/segpool-ml/segpool/internal/tensor"
)

// Input slots of the Unpool operator.
const (
	UnpoolInData = iota // pooled values to place
	UnpoolInMask        // pooling mask describing where they land
)

// Unpool expands a pooled feature map back to a larger plane, scattering
// each value to the coordinate its pooling mask recorded. Fed the mask and
// output of PoolMask with the original input size as target, it restores
// the original maxima at their original coordinates and neutral (zero)
// everywhere else.
type Unpool struct {
	win        kernel.Window
	unpoolSize [2]int
	numArgs    int
	noInplace  bool
	par        parallel.Config
}

// NewUnpool builds the operator. Only zero padding and uniform strides are
// supported; both are rejected here, before any kernel can run.
func NewUnpool(cfg Config) (*Unpool, error) {
	win := cfg.window()
	if err := win.Validate(); err != nil {
		return nil, &ConfigurationError{Op: "unpool", Err: err}
	}
	if err := win.RequireEqualStride(); err != nil {
		return nil, &ConfigurationError{Op: "unpool", Err: err}
	}
	if err := win.RequireZeroPad(); err != nil {
		return nil, &ConfigurationError{Op: "unpool", Err: err}
	}

	numArgs := cfg.NumArgs
	if numArgs == 0 {
		numArgs = 2 // data plus pooling mask
	}
	if numArgs < 1 {
		return nil, &ConfigurationError{Op: "unpool",
			Err: fmt.Errorf("num_args must be at least 1, got %d", numArgs)}
	}

	return &Unpool{
		win:        win,
		unpoolSize: cfg.UnpoolSize,
		numArgs:    numArgs,
		noInplace:  cfg.FastPathKernels,
		par:        cfg.execContext(),
	}, nil
}

// Name returns the operator type string.
func (u *Unpool) Name() string { return "unpool" }

// targetDims resolves the output plane size: the explicit unpool_size when
// set, otherwise the inverse window geometry.
func (u *Unpool) targetDims(h, w int) (int, int, error) {
	if u.unpoolSize[0] > 0 && u.unpoolSize[1] > 0 {
		return u.unpoolSize[0], u.unpoolSize[1], nil
	}
	return u.win.InverseDims(h, w)
}

// InferShape derives the expanded output shape and checks that every
// variadic input agrees with the data shape on all dimensions.
func (u *Unpool) InferShape(inShapes []tensor.Shape) ([]tensor.Shape, error) {
	if err := checkArity(u.Name(), "shape inference inputs", u.numArgs, len(inShapes)); err != nil {
		return nil, err
	}
	dshape := inShapes[UnpoolInData]
	if err := require4D(u.Name(), "input data", dshape); err != nil {
		return nil, err
	}
	for i := 1; i < u.numArgs; i++ {
		other := inShapes[i]
		if !dshape.Equal(other) {
			return nil, &ShapeMismatchError{Op: u.Name(),
				Err: fmt.Errorf("incompatible shapes: data %v, arg%d %v", dshape, i, other)}
		}
	}

	outH, outW, err := u.targetDims(dshape[2], dshape[3])
	if err != nil {
		return nil, &ShapeMismatchError{Op: u.Name(), Err: err}
	}

	return []tensor.Shape{{dshape[0], dshape[1], outH, outW}}, nil
}

// Forward scatters inputs[UnpoolInData] into the single output at the
// coordinates held by inputs[UnpoolInMask].
func (u *Unpool) Forward(inputs []*tensor.RawTensor, reqs []WriteReq, outputs []*tensor.RawTensor) error {
	if err := checkArity(u.Name(), "forward inputs", 2, len(inputs)); err != nil {
		return err
	}
	if err := checkArity(u.Name(), "forward outputs", 1, len(outputs)); err != nil {
		return err
	}
	if err := checkArity(u.Name(), "forward write requests", 1, len(reqs)); err != nil {
		return err
	}
	if reqs[0] == ReqSkip {
		return nil
	}

	data := inputs[UnpoolInData]
	dshape := data.Shape()
	outH, outW, err := u.targetDims(dshape[2], dshape[3])
	if err != nil {
		return &ConfigurationError{Op: u.Name(), Err: err}
	}

	out, err := kernel.UnpoolForward(data, inputs[UnpoolInMask], outH, outW, u.win, u.par)
	if err != nil {
		return &ConfigurationError{Op: u.Name(), Err: err}
	}
	return assign(outputs[0], out, reqs[0], u.Name())
}

// Backward gathers the data gradient from the scattered positions and
// fills the mask-gradient placeholder. The mask holds coordinate
// encodings, not differentiable signal; its gradient exists only to
// satisfy the uniform operator interface and is always zero.
func (u *Unpool) Backward(outGrads, inData, outData []*tensor.RawTensor, reqs []WriteReq, inGrads []*tensor.RawTensor) error {
	if err := checkArity(u.Name(), "backward output gradients", 1, len(outGrads)); err != nil {
		return err
	}
	if err := checkArity(u.Name(), "backward inputs", 2, len(inData)); err != nil {
		return err
	}
	if err := checkArity(u.Name(), "backward write requests", 2, len(reqs)); err != nil {
		return err
	}
	if err := checkArity(u.Name(), "backward input gradients", 2, len(inGrads)); err != nil {
		return err
	}

	mask := inData[UnpoolInMask]

	if reqs[UnpoolInData] != ReqSkip {
		gradData, err := kernel.UnpoolBackward(outGrads[0], mask, u.win, u.par)
		if err != nil {
			return &ConfigurationError{Op: u.Name(), Err: err}
		}
		if err := assign(inGrads[UnpoolInData], gradData, reqs[UnpoolInData], u.Name()); err != nil {
			return err
		}
	}

	if reqs[UnpoolInMask] != ReqSkip {
		gradMask, err := tensor.ZerosLike(mask)
		if err != nil {
			return &ConfigurationError{Op: u.Name(), Err: err}
		}
		if err := assign(inGrads[UnpoolInMask], gradMask, reqs[UnpoolInMask], u.Name()); err != nil {
			return err
		}
	}
	return nil
}

// BackwardDependency declares what Backward reads: the output gradient and
// both forward inputs (data for its shape, mask for the routing).
func (u *Unpool) BackwardDependency() BackwardDependency {
	return BackwardDependency{
		OutGrads: []int{0},
		Inputs:   []int{UnpoolInData, UnpoolInMask},
	}
}

// BackwardInplacePairs allows the data buffer to be reused as the data
// gradient buffer, unless a fast-path kernel library needs it intact.
func (u *Unpool) BackwardInplacePairs() [][2]int {
	if u.noInplace {
		return nil
	}
	return [][2]int{{UnpoolInData, UnpoolInData}}
}

var _ Operator = (*Unpool)(nil)
