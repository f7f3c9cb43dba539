package tensor

import "fmt"

// FromSlice creates a RawTensor from existing element data.
// The data is copied into a fresh buffer; len(data) must match the shape.
//
// Example:
//
//	t, err := tensor.FromSlice([]float32{1, 5, 2, 4}, tensor.Shape{1, 1, 2, 2})
func FromSlice[T Float](data []T, shape Shape) (*RawTensor, error) {
	var dummy T
	dtype := inferDataType(dummy)

	raw, err := NewRaw(shape, dtype)
	if err != nil {
		return nil, err
	}
	if len(data) != raw.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, raw.NumElements())
	}

	switch dtype {
	case Float32:
		copy(raw.AsFloat32(), any(data).([]float32))
	case Float64:
		copy(raw.AsFloat64(), any(data).([]float64))
	}
	return raw, nil
}

// Zeros creates a zero-filled RawTensor of the given element type.
func Zeros[T Float](shape Shape) (*RawTensor, error) {
	var dummy T
	return NewRaw(shape, inferDataType(dummy))
}

// Full creates a RawTensor filled with a specific value.
func Full[T Float](shape Shape, value T) (*RawTensor, error) {
	raw, err := Zeros[T](shape)
	if err != nil {
		return nil, err
	}
	switch raw.DType() {
	case Float32:
		data := raw.AsFloat32()
		for i := range data {
			data[i] = float32(value)
		}
	case Float64:
		data := raw.AsFloat64()
		for i := range data {
			data[i] = float64(value)
		}
	}
	return raw, nil
}

// ZerosLike creates a zero-filled RawTensor with the same shape and dtype
// as the reference tensor.
func ZerosLike(ref *RawTensor) (*RawTensor, error) {
	return NewRaw(ref.Shape(), ref.DType())
}
