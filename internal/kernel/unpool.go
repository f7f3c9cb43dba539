package kernel

import (
	"fmt"

	"github.com/segpool-ml/segpool/internal/parallel"
	"github.com/segpool-ml/segpool/internal/tensor"
)

// UnpoolForward scatters a pooled feature map back into a larger plane at
// the coordinates a pooling mask recorded.
//
// Input shapes:  data [N,C,H,W], mask [N,C,H,W] (same shape).
// Output shape:  [N,C,outH,outW], with outH/outW supplied by the caller
// (explicit target size, or Window.InverseDims when no target was given).
//
// The output starts zero-filled; regions no mask entry points at receive no
// contribution, which is the practical stand-in for the reduction's neutral
// element. Mask entries are decoded as flattened indices of the output
// plane; entries outside the plane are dropped. Only zero padding and
// uniform strides are supported.
func UnpoolForward(data, mask *tensor.RawTensor, outH, outW int, win Window, cfg parallel.Config) (*tensor.RawTensor, error) {
	shape := data.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("unpool: expected 4D input [N,C,H,W], got %dD", len(shape)))
	}
	if !shape.Equal(mask.Shape()) {
		panic(fmt.Sprintf("unpool: data shape %v does not match mask shape %v",
			shape, mask.Shape()))
	}
	if err := win.Validate(); err != nil {
		return nil, err
	}
	if err := win.RequireEqualStride(); err != nil {
		return nil, err
	}
	if err := win.RequireZeroPad(); err != nil {
		return nil, err
	}
	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("target size must be positive, got %dx%d", outH, outW)
	}

	N, C, H, W := shape[0], shape[1], shape[2], shape[3]

	out, err := tensor.NewRaw(tensor.Shape{N, C, outH, outW}, data.DType())
	if err != nil {
		return nil, err
	}

	switch data.DType() {
	case tensor.Float32:
		unpoolForwardPlanes(data.AsFloat32(), mask.AsFloat32(), out.AsFloat32(),
			N, C, H, W, outH, outW, cfg)
	case tensor.Float64:
		unpoolForwardPlanes(data.AsFloat64(), mask.AsFloat64(), out.AsFloat64(),
			N, C, H, W, outH, outW, cfg)
	default:
		panic(fmt.Sprintf("unpool: unsupported dtype %v", data.DType()))
	}

	return out, nil
}

// UnpoolBackward gathers, for each pooled cell, the output gradient at the
// coordinate its mask entry pointed to. This is the exact inverse of the
// forward scatter; no summation is needed because each pooled cell reads
// exactly one output coordinate.
func UnpoolBackward(gradOut, mask *tensor.RawTensor, win Window, cfg parallel.Config) (*tensor.RawTensor, error) {
	maskShape := mask.Shape()
	gradShape := gradOut.Shape()
	if len(maskShape) != 4 || len(gradShape) != 4 {
		panic(fmt.Sprintf("unpool: expected 4D tensors, got %dD mask, %dD grad",
			len(maskShape), len(gradShape)))
	}
	if gradShape[0] != maskShape[0] || gradShape[1] != maskShape[1] {
		panic(fmt.Sprintf("unpool: grad batch/channel %v does not match mask %v",
			gradShape, maskShape))
	}
	if err := win.Validate(); err != nil {
		return nil, err
	}
	if err := win.RequireEqualStride(); err != nil {
		return nil, err
	}
	if err := win.RequireZeroPad(); err != nil {
		return nil, err
	}

	N, C, H, W := maskShape[0], maskShape[1], maskShape[2], maskShape[3]
	outH, outW := gradShape[2], gradShape[3]

	gradData, err := tensor.NewRaw(maskShape, gradOut.DType())
	if err != nil {
		return nil, err
	}

	switch gradOut.DType() {
	case tensor.Float32:
		unpoolBackwardPlanes(gradOut.AsFloat32(), mask.AsFloat32(), gradData.AsFloat32(),
			N, C, H, W, outH, outW, cfg)
	case tensor.Float64:
		unpoolBackwardPlanes(gradOut.AsFloat64(), mask.AsFloat64(), gradData.AsFloat64(),
			N, C, H, W, outH, outW, cfg)
	default:
		panic(fmt.Sprintf("unpool: unsupported dtype %v", gradOut.DType()))
	}

	return gradData, nil
}

// unpoolForwardPlanes scatters plane by plane.
func unpoolForwardPlanes[T tensor.Float](src, msk, dst []T, n, c, h, w, outH, outW int, cfg parallel.Config) {
	parallel.ForPlanes(n, c, func(b, ch int) {
		inOff := (b*c + ch) * h * w
		outOff := (b*c + ch) * outH * outW
		unpoolPlane(
			src[inOff:inOff+h*w],
			msk[inOff:inOff+h*w],
			dst[outOff:outOff+outH*outW],
			outH*outW)
	}, cfg)
}

// unpoolPlane writes each source value at the output index its mask entry
// holds. dst must arrive zero-initialized. When overlapping windows
// recorded the same winner twice, the later cell in row-major order wins;
// for masks produced by pooling both cells carry the same value anyway.
func unpoolPlane[T tensor.Float](src, msk, dst []T, outN int) {
	for i, m := range msk {
		idx := int(m)
		if idx < 0 || idx >= outN {
			continue
		}
		dst[idx] = src[i]
	}
}

// unpoolBackwardPlanes gathers plane by plane.
func unpoolBackwardPlanes[T tensor.Float](grad, msk, dst []T, n, c, h, w, outH, outW int, cfg parallel.Config) {
	parallel.ForPlanes(n, c, func(b, ch int) {
		inOff := (b*c + ch) * h * w
		outOff := (b*c + ch) * outH * outW
		unpoolBackwardPlane(
			grad[outOff:outOff+outH*outW],
			msk[inOff:inOff+h*w],
			dst[inOff:inOff+h*w],
			outH*outW)
	}, cfg)
}

// unpoolBackwardPlane reads the gradient back from the scattered positions.
func unpoolBackwardPlane[T tensor.Float](grad, msk, dst []T, outN int) {
	for i, m := range msk {
		idx := int(m)
		if idx < 0 || idx >= outN {
			dst[i] = 0
			continue
		}
		dst[i] = grad[idx]
	}
}
