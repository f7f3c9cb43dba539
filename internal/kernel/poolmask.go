package kernel

import (
	"fmt"

	"github.com/segpool-ml/segpool/internal/parallel"
	"github.com/segpool-ml/segpool/internal/tensor"
)

// PoolForward performs windowed pooling and records, per output cell, which
// input coordinate won the reduction.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, out_height, out_width], twice: the pooled
// values and the mask.
//
// Each mask cell holds the flattened index of the winning coordinate in the
// zero-padded input plane (row * paddedWidth + col), stored in the data
// dtype. Ties go to the first maximal element in row-major window scan
// order, because only a strict improvement replaces the current winner.
//
// Windows may run past the padded input edge; such cells are ignored.
// Padding cells inside the window participate with value zero.
func PoolForward(red Reduction, data *tensor.RawTensor, win Window, cfg parallel.Config) (out, mask *tensor.RawTensor, err error) {
	shape := data.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("poolmask: expected 4D input [N,C,H,W], got %dD", len(shape)))
	}
	if err := red.validate(); err != nil {
		return nil, nil, err
	}
	if err := win.Validate(); err != nil {
		return nil, nil, err
	}

	N, C, H, W := shape[0], shape[1], shape[2], shape[3]
	outH, outW, err := win.OutputDims(H, W)
	if err != nil {
		return nil, nil, err
	}

	outShape := tensor.Shape{N, C, outH, outW}
	out, err = tensor.NewRaw(outShape, data.DType())
	if err != nil {
		return nil, nil, err
	}
	mask, err = tensor.NewRaw(outShape, data.DType())
	if err != nil {
		return nil, nil, err
	}

	switch data.DType() {
	case tensor.Float32:
		poolForwardPlanes(red, data.AsFloat32(), out.AsFloat32(), mask.AsFloat32(),
			N, C, H, W, outH, outW, win, cfg)
	case tensor.Float64:
		poolForwardPlanes(red, data.AsFloat64(), out.AsFloat64(), mask.AsFloat64(),
			N, C, H, W, outH, outW, win, cfg)
	default:
		panic(fmt.Sprintf("poolmask: unsupported dtype %v", data.DType()))
	}

	return out, mask, nil
}

// PoolBackward routes pooled-output gradients back to the input coordinates
// the forward pass recorded in the mask.
//
// Because windows may overlap, one input cell can be the recorded winner of
// several output cells; contributions are summed, never overwritten.
// Gradient routed into the zero padding is discarded. Parallelism is over
// (batch, channel) planes only, so the per-plane accumulation never races.
func PoolBackward(gradOut, data, mask *tensor.RawTensor, win Window, cfg parallel.Config) (*tensor.RawTensor, error) {
	shape := data.Shape()
	gradShape := gradOut.Shape()
	if len(shape) != 4 || len(gradShape) != 4 {
		panic(fmt.Sprintf("poolmask: expected 4D tensors, got %dD data, %dD grad",
			len(shape), len(gradShape)))
	}
	if !gradShape.Equal(mask.Shape()) {
		panic(fmt.Sprintf("poolmask: grad shape %v does not match mask shape %v",
			gradShape, mask.Shape()))
	}
	if err := win.Validate(); err != nil {
		return nil, err
	}
	if err := win.RequireEqualStride(); err != nil {
		return nil, err
	}

	N, C, H, W := shape[0], shape[1], shape[2], shape[3]
	outH, outW := gradShape[2], gradShape[3]

	gradIn, err := tensor.NewRaw(shape, gradOut.DType())
	if err != nil {
		return nil, err
	}

	switch gradOut.DType() {
	case tensor.Float32:
		poolBackwardPlanes(gradOut.AsFloat32(), mask.AsFloat32(), gradIn.AsFloat32(),
			N, C, H, W, outH, outW, win, cfg)
	case tensor.Float64:
		poolBackwardPlanes(gradOut.AsFloat64(), mask.AsFloat64(), gradIn.AsFloat64(),
			N, C, H, W, outH, outW, win, cfg)
	default:
		panic(fmt.Sprintf("poolmask: unsupported dtype %v", gradOut.DType()))
	}

	return gradIn, nil
}

// poolForwardPlanes runs the generic plane kernel over the batch*channels
// grid, instantiated for the requested reduction policy.
func poolForwardPlanes[T tensor.Float](red Reduction, src, dst, msk []T, n, c, h, w, outH, outW int, win Window, cfg parallel.Config) {
	parallel.ForPlanes(n, c, func(b, ch int) {
		inOff := (b*c + ch) * h * w
		outOff := (b*c + ch) * outH * outW
		srcPlane := src[inOff : inOff+h*w]
		dstPlane := dst[outOff : outOff+outH*outW]
		mskPlane := msk[outOff : outOff+outH*outW]

		switch red {
		case MinReduce:
			poolPlane(MinPolicy[T]{}, srcPlane, dstPlane, mskPlane, h, w, outH, outW, win)
		default:
			poolPlane(MaxPolicy[T]{}, srcPlane, dstPlane, mskPlane, h, w, outH, outW, win)
		}
	}, cfg)
}

// poolPlane pools a single spatial plane and fills the matching mask plane.
func poolPlane[T tensor.Float, P Policy[T]](pol P, src, dst, msk []T, h, w, outH, outW int, win Window) {
	paddedH := h + 2*win.PadH
	paddedW := w + 2*win.PadW

	for oh := 0; oh < outH; oh++ {
		hStart := oh * win.StrideH
		hEnd := min(hStart+win.KernelH, paddedH)

		for ow := 0; ow < outW; ow++ {
			wStart := ow * win.StrideW
			wEnd := min(wStart+win.KernelW, paddedW)

			best := pol.Neutral()
			bestIdx := -1

			for ph := hStart; ph < hEnd; ph++ {
				y := ph - win.PadH
				for pw := wStart; pw < wEnd; pw++ {
					x := pw - win.PadW

					var val T // zero padding
					if y >= 0 && y < h && x >= 0 && x < w {
						val = src[y*w+x]
					}

					if bestIdx < 0 || pol.Improves(best, val) {
						best = val
						bestIdx = ph*paddedW + pw
					}
				}
			}

			dst[oh*outW+ow] = best
			msk[oh*outW+ow] = T(bestIdx)
		}
	}
}

// poolBackwardPlanes scatters output gradients plane by plane.
func poolBackwardPlanes[T tensor.Float](grad, msk, dst []T, n, c, h, w, outH, outW int, win Window, cfg parallel.Config) {
	parallel.ForPlanes(n, c, func(b, ch int) {
		inOff := (b*c + ch) * h * w
		outOff := (b*c + ch) * outH * outW
		poolBackwardPlane(
			grad[outOff:outOff+outH*outW],
			msk[outOff:outOff+outH*outW],
			dst[inOff:inOff+h*w],
			h, w, win)
	}, cfg)
}

// poolBackwardPlane accumulates one plane's gradient at the coordinates the
// mask recorded. dst must arrive zero-initialized.
func poolBackwardPlane[T tensor.Float](grad, msk, dst []T, h, w int, win Window) {
	paddedW := w + 2*win.PadW

	for i, m := range msk {
		idx := int(m)
		if idx < 0 {
			continue
		}
		y := idx/paddedW - win.PadH
		x := idx%paddedW - win.PadW
		if y < 0 || y >= h || x < 0 || x >= w {
			// Winner was a padding cell; its gradient has nowhere to go.
			continue
		}
		dst[y*w+x] += grad[i]
	}
}
