package tensor

import "testing"

func TestNewRaw(t *testing.T) {
	raw, err := NewRaw(Shape{2, 3, 4, 4}, Float32)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}

	if raw.NumElements() != 96 {
		t.Errorf("NumElements: expected 96, got %d", raw.NumElements())
	}
	if raw.ByteSize() != 96*4 {
		t.Errorf("ByteSize: expected %d, got %d", 96*4, raw.ByteSize())
	}

	// Fresh buffers are zero-initialized.
	for i, v := range raw.AsFloat32() {
		if v != 0 {
			t.Fatalf("Element %d not zero: %f", i, v)
		}
	}
}

func TestNewRaw_InvalidShape(t *testing.T) {
	if _, err := NewRaw(Shape{2, 0, 4}, Float32); err == nil {
		t.Error("Expected error for zero dimension")
	}
	if _, err := NewRaw(Shape{-1}, Float64); err == nil {
		t.Error("Expected error for negative dimension")
	}
}

func TestFromSlice(t *testing.T) {
	raw, err := FromSlice([]float64{1, 2, 3, 4}, Shape{1, 1, 2, 2})
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	if raw.DType() != Float64 {
		t.Errorf("DType: expected float64, got %s", raw.DType())
	}
	data := raw.AsFloat64()
	if data[0] != 1 || data[3] != 4 {
		t.Errorf("Data mismatch: %v", data)
	}
}

func TestFromSlice_LengthMismatch(t *testing.T) {
	if _, err := FromSlice([]float32{1, 2, 3}, Shape{2, 2}); err == nil {
		t.Error("Expected error for length mismatch")
	}
}

func TestAsFloat32_WrongDType(t *testing.T) {
	raw, _ := NewRaw(Shape{2}, Float64)

	defer func() {
		if recover() == nil {
			t.Error("Expected panic for dtype mismatch")
		}
	}()
	raw.AsFloat32()
}

func TestClone_SharedBufferUniqueness(t *testing.T) {
	raw, _ := NewRaw(Shape{4}, Float32)

	if !raw.IsUnique() {
		t.Error("Fresh tensor should be unique")
	}

	clone := raw.Clone()
	if raw.IsUnique() {
		t.Error("Cloned tensor should not be unique")
	}
	if !raw.SharesBuffer(clone) {
		t.Error("Clone should share the buffer")
	}

	// Writes through the clone are visible through the original.
	clone.AsFloat32()[0] = 7
	if raw.AsFloat32()[0] != 7 {
		t.Error("Buffer not shared")
	}

	clone.Release()
	if !raw.IsUnique() {
		t.Error("Releasing the clone should restore uniqueness")
	}
}

func TestFull(t *testing.T) {
	raw, err := Full(Shape{1, 1, 2, 2}, float32(3.5))
	if err != nil {
		t.Fatalf("Full: %v", err)
	}
	for i, v := range raw.AsFloat32() {
		if v != 3.5 {
			t.Errorf("Element %d: expected 3.5, got %f", i, v)
		}
	}
}

func TestZerosLike(t *testing.T) {
	ref, _ := FromSlice([]float64{1, 2, 3, 4}, Shape{2, 2})
	z, err := ZerosLike(ref)
	if err != nil {
		t.Fatalf("ZerosLike: %v", err)
	}
	if !z.Shape().Equal(ref.Shape()) || z.DType() != ref.DType() {
		t.Errorf("Shape/dtype mismatch: %v %s", z.Shape(), z.DType())
	}
	for _, v := range z.AsFloat64() {
		if v != 0 {
			t.Error("ZerosLike not zero-filled")
		}
	}
}

func TestShapeComputeStrides(t *testing.T) {
	strides := Shape{2, 3, 4, 5}.ComputeStrides()
	expected := []int{60, 20, 5, 1}
	for i := range expected {
		if strides[i] != expected[i] {
			t.Errorf("Stride[%d]: expected %d, got %d", i, expected[i], strides[i])
		}
	}
}
