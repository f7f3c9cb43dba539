// Copyright 2026 Segpool Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the dense NCHW feature maps
// the segpool operators consume and produce.
//
// Example:
//
//	data, err := tensor.FromSlice(
//		[]float32{1, 5, 2, 4, 9, 3, 0, 6, 7},
//		tensor.Shape{1, 1, 3, 3})
package tensor

import (
	"github.com/segpool-ml/segpool/internal/tensor"
)

// Float is a constraint for the element types the kernels support.
type Float = tensor.Float

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
)

// Shape represents the dimensions of a tensor, 4D in
// (batch, channel, height, width) order for feature maps.
type Shape = tensor.Shape

// RawTensor is the dense row-major feature-map buffer.
type RawTensor = tensor.RawTensor

// NewRaw creates a zero-initialized RawTensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// FromSlice creates a RawTensor from existing element data.
func FromSlice[T Float](data []T, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice(data, shape)
}

// Zeros creates a zero-filled RawTensor of the given element type.
func Zeros[T Float](shape Shape) (*RawTensor, error) {
	return tensor.Zeros[T](shape)
}

// Full creates a RawTensor filled with a specific value.
func Full[T Float](shape Shape, value T) (*RawTensor, error) {
	return tensor.Full(shape, value)
}

// ZerosLike creates a zero-filled RawTensor shaped like the reference.
func ZerosLike(ref *RawTensor) (*RawTensor, error) {
	return tensor.ZerosLike(ref)
}
