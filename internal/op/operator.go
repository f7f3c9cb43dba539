// Package op wraps the segpool kernels in the contracts a graph execution
// framework drives: shape inference, per-slot write policies,
// backward-dependency declaration, and in-place aliasing options.
//
// Operators hold only their construction-time parameters. Every tensor
// (inputs, outputs, gradients, the mask) is supplied fresh by the caller on
// each call and owned by the caller.
package op

import (
	"fmt"

	"github.com/segpool-ml/segpool/internal/tensor"
)

// WriteReq is the write policy a caller requests for one output or
// input-gradient slot.
type WriteReq int

// Supported write policies.
const (
	ReqSkip  WriteReq = iota // leave the buffer untouched
	ReqWrite                 // overwrite the buffer
	ReqAdd                   // accumulate into the buffer
)

// String returns a human-readable policy name.
func (r WriteReq) String() string {
	switch r {
	case ReqSkip:
		return "skip"
	case ReqWrite:
		return "write"
	case ReqAdd:
		return "add"
	default:
		return "unknown"
	}
}

// BackwardDependency names the forward-pass tensors a backward pass reads.
// Indices select into the forward output-gradient, input, and output lists;
// the framework keeps exactly these alive between the passes.
type BackwardDependency struct {
	OutGrads []int
	Inputs   []int
	Outputs  []int
}

// Operator is the contract shared by all segpool operators.
//
// The framework calls InferShape while building the graph, then Forward
// with correctly shaped writable output buffers, and later Backward with
// the tensors BackwardDependency declared, supplied verbatim.
type Operator interface {
	// Name returns the operator's type string.
	Name() string

	// InferShape derives output shapes from input shapes. It returns a
	// ShapeMismatchError (or ArityError for a wrong input count) instead of
	// guessing; a failed inference must prevent graph construction.
	InferShape(inShapes []tensor.Shape) ([]tensor.Shape, error)

	// Forward computes the operator outputs into the provided buffers,
	// honoring one WriteReq per output.
	Forward(inputs []*tensor.RawTensor, reqs []WriteReq, outputs []*tensor.RawTensor) error

	// Backward computes input gradients into the provided buffers,
	// honoring one WriteReq per input.
	Backward(outGrads, inData, outData []*tensor.RawTensor, reqs []WriteReq, inGrads []*tensor.RawTensor) error

	// BackwardDependency declares which forward tensors Backward reads.
	BackwardDependency() BackwardDependency

	// BackwardInplacePairs returns (input index, input-gradient index)
	// pairs whose buffers the framework may alias during Backward. Empty
	// when a fast-path kernel library is active, since such libraries
	// require the original input buffer to stay unmodified.
	BackwardInplacePairs() [][2]int
}

// assign moves a freshly computed result into a caller-provided buffer
// according to the slot's write policy.
func assign(dst, src *tensor.RawTensor, req WriteReq, opName string) error {
	if req == ReqSkip {
		return nil
	}
	if !dst.Shape().Equal(src.Shape()) {
		return &ShapeMismatchError{Op: opName,
			Err: fmt.Errorf("output buffer shape %v, result shape %v", dst.Shape(), src.Shape())}
	}
	if dst.DType() != src.DType() {
		return &ShapeMismatchError{Op: opName,
			Err: fmt.Errorf("output buffer dtype %s, result dtype %s", dst.DType(), src.DType())}
	}

	switch dst.DType() {
	case tensor.Float32:
		d, s := dst.AsFloat32(), src.AsFloat32()
		if req == ReqAdd {
			for i := range d {
				d[i] += s[i]
			}
		} else {
			copy(d, s)
		}
	case tensor.Float64:
		d, s := dst.AsFloat64(), src.AsFloat64()
		if req == ReqAdd {
			for i := range d {
				d[i] += s[i]
			}
		} else {
			copy(d, s)
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %v", opName, dst.DType()))
	}
	return nil
}

// require4D returns a ShapeMismatchError unless the shape is NCHW.
func require4D(opName, name string, s tensor.Shape) error {
	if len(s) != 4 {
		return &ShapeMismatchError{Op: opName,
			Err: fmt.Errorf("%s should be 4D in (batch, channel, y, x), got %v", name, s)}
	}
	return nil
}
