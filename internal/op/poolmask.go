package op

import (
	"github.com/segpool-ml/segpool/internal/kernel"
	"github.com/segpool-ml/segpool/internal/parallel"
	"github.com/segpool-ml/segpool/internal/tensor"
)

// Output slots of the PoolMask operator.
const (
	PoolOutData = iota // pooled values
	PoolOutMask        // argmax mask
)

// PoolMask pools an NCHW feature map and emits both the pooled values and
// the mask of winning coordinates. The mask is the explicit channel that
// carries the forward pass's routing decisions into every later backward
// pass, for this operator and for Unpool.
type PoolMask struct {
	win       kernel.Window
	red       kernel.Reduction
	noInplace bool
	par       parallel.Config
}

// NewPoolMask builds the operator, rejecting unsupported parameters before
// any kernel can run.
func NewPoolMask(cfg Config) (*PoolMask, error) {
	win := cfg.window()
	if err := win.Validate(); err != nil {
		return nil, &ConfigurationError{Op: "pool_mask", Err: err}
	}
	if err := win.RequireEqualStride(); err != nil {
		return nil, &ConfigurationError{Op: "pool_mask", Err: err}
	}
	return &PoolMask{
		win:       win,
		red:       cfg.Reduction,
		noInplace: cfg.FastPathKernels,
		par:       cfg.execContext(),
	}, nil
}

// Name returns the operator type string.
func (p *PoolMask) Name() string { return "pool_mask" }

// Window returns the operator's window geometry.
func (p *PoolMask) Window() kernel.Window { return p.win }

// InferShape derives the (output, mask) shapes from the data shape.
func (p *PoolMask) InferShape(inShapes []tensor.Shape) ([]tensor.Shape, error) {
	if err := checkArity(p.Name(), "shape inference inputs", 1, len(inShapes)); err != nil {
		return nil, err
	}
	dshape := inShapes[0]
	if err := require4D(p.Name(), "input data", dshape); err != nil {
		return nil, err
	}

	outH, outW, err := p.win.OutputDims(dshape[2], dshape[3])
	if err != nil {
		return nil, &ShapeMismatchError{Op: p.Name(), Err: err}
	}

	oshape := tensor.Shape{dshape[0], dshape[1], outH, outW}
	// Output and mask share one shape.
	return []tensor.Shape{oshape, oshape.Clone()}, nil
}

// Forward pools the input into outputs[PoolOutData] and writes the mask
// into outputs[PoolOutMask], honoring the per-output write policy.
func (p *PoolMask) Forward(inputs []*tensor.RawTensor, reqs []WriteReq, outputs []*tensor.RawTensor) error {
	if err := checkArity(p.Name(), "forward inputs", 1, len(inputs)); err != nil {
		return err
	}
	if err := checkArity(p.Name(), "forward outputs", 2, len(outputs)); err != nil {
		return err
	}
	if err := checkArity(p.Name(), "forward write requests", 2, len(reqs)); err != nil {
		return err
	}
	if reqs[PoolOutData] == ReqSkip && reqs[PoolOutMask] == ReqSkip {
		return nil
	}

	out, mask, err := kernel.PoolForward(p.red, inputs[0], p.win, p.par)
	if err != nil {
		return &ConfigurationError{Op: p.Name(), Err: err}
	}
	if err := assign(outputs[PoolOutData], out, reqs[PoolOutData], p.Name()); err != nil {
		return err
	}
	return assign(outputs[PoolOutMask], mask, reqs[PoolOutMask], p.Name())
}

// Backward scatters the pooled-output gradient back through the mask into
// the input gradient. A single input cell that won several overlapping
// windows accumulates all of their contributions.
func (p *PoolMask) Backward(outGrads, inData, outData []*tensor.RawTensor, reqs []WriteReq, inGrads []*tensor.RawTensor) error {
	if err := checkArity(p.Name(), "backward output gradients", 2, len(outGrads)); err != nil {
		return err
	}
	if err := checkArity(p.Name(), "backward inputs", 1, len(inData)); err != nil {
		return err
	}
	if err := checkArity(p.Name(), "backward outputs", 2, len(outData)); err != nil {
		return err
	}
	if err := checkArity(p.Name(), "backward write requests", 1, len(reqs)); err != nil {
		return err
	}
	if err := checkArity(p.Name(), "backward input gradients", 1, len(inGrads)); err != nil {
		return err
	}
	if reqs[0] == ReqSkip {
		return nil
	}

	gradIn, err := kernel.PoolBackward(outGrads[PoolOutData], inData[0], outData[PoolOutMask], p.win, p.par)
	if err != nil {
		return &ConfigurationError{Op: p.Name(), Err: err}
	}
	return assign(inGrads[0], gradIn, reqs[0], p.Name())
}

// BackwardDependency declares what Backward reads: the output gradient,
// the original input, and the forward mask.
func (p *PoolMask) BackwardDependency() BackwardDependency {
	return BackwardDependency{
		OutGrads: []int{PoolOutData},
		Inputs:   []int{0},
		Outputs:  []int{PoolOutMask},
	}
}

// BackwardInplacePairs allows the input-data buffer to be reused as the
// input-gradient buffer, unless a fast-path kernel library needs the
// original data intact.
func (p *PoolMask) BackwardInplacePairs() [][2]int {
	if p.noInplace {
		return nil
	}
	return [][2]int{{0, 0}}
}

var _ Operator = (*PoolMask)(nil)
