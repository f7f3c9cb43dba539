package op

import (
	"fmt"

	"github.com/segpool-ml/segpool/internal/tensor"
)

// Input slots of the SmoothL1 operator.
const (
	SmoothL1InData = iota
	SmoothL1InTarget
	SmoothL1InInsideWeight
	SmoothL1InOutsideWeight
)

// SmoothL1 is the elementwise robust-regression loss
//
//	f(x) = 0.5 * (sigma * x)^2     for |x| < 1 / sigma^2
//	     = |x| - 0.5 / sigma^2     otherwise
//
// applied to (data - target), optionally scaled by per-element inside and
// outside weights (num_args 4). With sigma = 1 it is the Huber loss at
// delta = 1. It shares the adapter machinery with the pooling operators
// but has no window geometry: pure scalar map.
type SmoothL1 struct {
	sigma2    float64
	gradScale float64
	numArgs   int
}

// NewSmoothL1 builds the operator. num_args must be 2 (data, target) or 4
// (data, target, inside_weight, outside_weight).
func NewSmoothL1(cfg Config) (*SmoothL1, error) {
	numArgs := cfg.NumArgs
	if numArgs == 0 {
		numArgs = 2
	}
	if numArgs != 2 && numArgs != 4 {
		return nil, &ConfigurationError{Op: "smooth_l1",
			Err: fmt.Errorf("num_args must be 2 or 4, got %d", numArgs)}
	}
	sigma := cfg.Sigma
	if sigma == 0 {
		sigma = 1
	}
	if sigma < 0 {
		return nil, &ConfigurationError{Op: "smooth_l1",
			Err: fmt.Errorf("sigma must be positive, got %g", sigma)}
	}
	gradScale := cfg.GradScale
	if gradScale == 0 {
		gradScale = 1
	}
	return &SmoothL1{sigma2: sigma * sigma, gradScale: gradScale, numArgs: numArgs}, nil
}

// Name returns the operator type string.
func (s *SmoothL1) Name() string { return "smooth_l1" }

// InferShape derives the output shape (same as data) and checks that all
// inputs agree.
func (s *SmoothL1) InferShape(inShapes []tensor.Shape) ([]tensor.Shape, error) {
	if err := checkArity(s.Name(), "shape inference inputs", s.numArgs, len(inShapes)); err != nil {
		return nil, err
	}
	dshape := inShapes[SmoothL1InData]
	for i := 1; i < s.numArgs; i++ {
		if !dshape.Equal(inShapes[i]) {
			return nil, &ShapeMismatchError{Op: s.Name(),
				Err: fmt.Errorf("incompatible shapes: data %v, arg%d %v", dshape, i, inShapes[i])}
		}
	}
	return []tensor.Shape{dshape.Clone()}, nil
}

// Forward computes the loss surface elementwise.
func (s *SmoothL1) Forward(inputs []*tensor.RawTensor, reqs []WriteReq, outputs []*tensor.RawTensor) error {
	if err := checkArity(s.Name(), "forward inputs", s.numArgs, len(inputs)); err != nil {
		return err
	}
	if err := checkArity(s.Name(), "forward outputs", 1, len(outputs)); err != nil {
		return err
	}
	if err := checkArity(s.Name(), "forward write requests", 1, len(reqs)); err != nil {
		return err
	}
	if reqs[0] == ReqSkip {
		return nil
	}

	data := inputs[SmoothL1InData]
	out, err := tensor.ZerosLike(data)
	if err != nil {
		return &ConfigurationError{Op: s.Name(), Err: err}
	}

	switch data.DType() {
	case tensor.Float32:
		smoothL1Forward(out.AsFloat32(), asFloat32s(inputs), float32(s.sigma2))
	case tensor.Float64:
		smoothL1Forward(out.AsFloat64(), asFloat64s(inputs), s.sigma2)
	default:
		panic(fmt.Sprintf("smooth_l1: unsupported dtype %v", data.DType()))
	}

	return assign(outputs[0], out, reqs[0], s.Name())
}

// Backward computes the loss derivative into the data-gradient slot. The
// remaining slots (target, weights) receive zero: the loss is treated as a
// source of gradient, so nothing flows into its references.
func (s *SmoothL1) Backward(outGrads, inData, outData []*tensor.RawTensor, reqs []WriteReq, inGrads []*tensor.RawTensor) error {
	if err := checkArity(s.Name(), "backward inputs", s.numArgs, len(inData)); err != nil {
		return err
	}
	if err := checkArity(s.Name(), "backward write requests", s.numArgs, len(reqs)); err != nil {
		return err
	}
	if err := checkArity(s.Name(), "backward input gradients", s.numArgs, len(inGrads)); err != nil {
		return err
	}

	data := inData[SmoothL1InData]

	if reqs[SmoothL1InData] != ReqSkip {
		grad, err := tensor.ZerosLike(data)
		if err != nil {
			return &ConfigurationError{Op: s.Name(), Err: err}
		}
		switch data.DType() {
		case tensor.Float32:
			smoothL1Backward(grad.AsFloat32(), asFloat32s(inData), float32(s.sigma2), float32(s.gradScale))
		case tensor.Float64:
			smoothL1Backward(grad.AsFloat64(), asFloat64s(inData), s.sigma2, s.gradScale)
		default:
			panic(fmt.Sprintf("smooth_l1: unsupported dtype %v", data.DType()))
		}
		if err := assign(inGrads[SmoothL1InData], grad, reqs[SmoothL1InData], s.Name()); err != nil {
			return err
		}
	}

	for i := 1; i < s.numArgs; i++ {
		if reqs[i] == ReqSkip {
			continue
		}
		zero, err := tensor.ZerosLike(inData[i])
		if err != nil {
			return &ConfigurationError{Op: s.Name(), Err: err}
		}
		if err := assign(inGrads[i], zero, reqs[i], s.Name()); err != nil {
			return err
		}
	}
	return nil
}

// BackwardDependency declares that Backward reads all forward inputs.
func (s *SmoothL1) BackwardDependency() BackwardDependency {
	deps := make([]int, s.numArgs)
	for i := range deps {
		deps[i] = i
	}
	return BackwardDependency{Inputs: deps}
}

// BackwardInplacePairs returns nothing: the loss gradient never aliases
// its inputs.
func (s *SmoothL1) BackwardInplacePairs() [][2]int { return nil }

// smoothL1Forward evaluates out[i] = ow * f((d - t) * iw).
func smoothL1Forward[T tensor.Float](out []T, in [][]T, sigma2 T) {
	data, target := in[SmoothL1InData], in[SmoothL1InTarget]
	for i := range out {
		x := data[i] - target[i]
		if len(in) >= 3 {
			x *= in[SmoothL1InInsideWeight][i]
		}
		v := smoothL1Value(x, sigma2)
		if len(in) >= 4 {
			v *= in[SmoothL1InOutsideWeight][i]
		}
		out[i] = v
	}
}

// smoothL1Backward evaluates grad[i] = grad_scale * ow * iw * f'(d - t).
func smoothL1Backward[T tensor.Float](grad []T, in [][]T, sigma2, scale T) {
	data, target := in[SmoothL1InData], in[SmoothL1InTarget]
	for i := range grad {
		v := scale * smoothL1Deriv(data[i]-target[i], sigma2)
		if len(in) >= 4 {
			v *= in[SmoothL1InInsideWeight][i] * in[SmoothL1InOutsideWeight][i]
		}
		grad[i] = v
	}
}

// smoothL1Value is the scalar loss map.
func smoothL1Value[T tensor.Float](x, sigma2 T) T {
	switch {
	case x > 1/sigma2:
		return x - 0.5/sigma2
	case x < -1/sigma2:
		return -x - 0.5/sigma2
	default:
		return 0.5 * x * x * sigma2
	}
}

// smoothL1Deriv is the scalar loss derivative.
func smoothL1Deriv[T tensor.Float](x, sigma2 T) T {
	switch {
	case x > 1/sigma2:
		return 1
	case x < -1/sigma2:
		return -1
	default:
		return sigma2 * x
	}
}

// asFloat32s views each tensor's storage as []float32.
func asFloat32s(ts []*tensor.RawTensor) [][]float32 {
	out := make([][]float32, len(ts))
	for i, t := range ts {
		out[i] = t.AsFloat32()
	}
	return out
}

// asFloat64s views each tensor's storage as []float64.
func asFloat64s(ts []*tensor.RawTensor) [][]float64 {
	out := make([][]float64, len(ts))
	for i, t := range ts {
		out[i] = t.AsFloat64()
	}
	return out
}

var _ Operator = (*SmoothL1)(nil)
