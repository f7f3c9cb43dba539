package kernel

import (
	"testing"

	"github.com/segpool-ml/segpool/internal/parallel"
	"github.com/segpool-ml/segpool/internal/tensor"
)

// TestPoolForward_Basic tests pooled values and mask indices on a 4x4 plane.
func TestPoolForward_Basic(t *testing.T) {
	// Input: [1, 1, 4, 4] with sequential values 1-16
	input, _ := tensor.FromSlice([]float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}, tensor.Shape{1, 1, 4, 4})

	win := Window{KernelH: 2, KernelW: 2, StrideH: 2, StrideW: 2}
	out, mask, err := PoolForward(MaxReduce, input, win, parallel.Sequential())
	if err != nil {
		t.Fatalf("PoolForward: %v", err)
	}

	expectedShape := tensor.Shape{1, 1, 2, 2}
	if !out.Shape().Equal(expectedShape) {
		t.Errorf("Output shape: expected %v, got %v", expectedShape, out.Shape())
	}
	if !mask.Shape().Equal(expectedShape) {
		t.Errorf("Mask shape: expected %v, got %v", expectedShape, mask.Shape())
	}

	// Max of each 2x2 window, and its flat coordinate in the input plane.
	expected := []float32{6, 8, 14, 16}
	expectedIdx := []float32{5, 7, 13, 15}
	outData := out.AsFloat32()
	maskData := mask.AsFloat32()

	for i := range expected {
		if outData[i] != expected[i] {
			t.Errorf("Output[%d]: expected %.1f, got %.1f", i, expected[i], outData[i])
		}
		if maskData[i] != expectedIdx[i] {
			t.Errorf("Mask[%d]: expected %.0f, got %.0f", i, expectedIdx[i], maskData[i])
		}
	}
}

// TestPoolForward_GlobalWindow covers kernel size equal to input size: one
// output cell whose mask points at the plane's argmax.
func TestPoolForward_GlobalWindow(t *testing.T) {
	input, _ := tensor.FromSlice([]float32{
		1, 5, 2,
		4, 9, 3,
		0, 6, 7,
	}, tensor.Shape{1, 1, 3, 3})

	win := Window{KernelH: 3, KernelW: 3, StrideH: 1, StrideW: 1}
	out, mask, err := PoolForward(MaxReduce, input, win, parallel.Sequential())
	if err != nil {
		t.Fatalf("PoolForward: %v", err)
	}

	if !out.Shape().Equal(tensor.Shape{1, 1, 1, 1}) {
		t.Fatalf("Expected single output cell, got %v", out.Shape())
	}
	if got := out.AsFloat32()[0]; got != 9 {
		t.Errorf("Pooled value: expected 9, got %.1f", got)
	}
	// Coordinate (1,1) flattens to 1*3+1 = 4.
	if got := mask.AsFloat32()[0]; got != 4 {
		t.Errorf("Mask: expected 4, got %.0f", got)
	}
}

// TestPoolForward_TieBreak checks that the first maximal element in
// row-major scan order wins.
func TestPoolForward_TieBreak(t *testing.T) {
	input, _ := tensor.FromSlice([]float32{
		7, 7,
		7, 7,
	}, tensor.Shape{1, 1, 2, 2})

	win := Window{KernelH: 2, KernelW: 2, StrideH: 2, StrideW: 2}
	_, mask, err := PoolForward(MaxReduce, input, win, parallel.Sequential())
	if err != nil {
		t.Fatalf("PoolForward: %v", err)
	}

	if got := mask.AsFloat32()[0]; got != 0 {
		t.Errorf("Tie should keep the first element, mask expected 0, got %.0f", got)
	}
}

// TestPoolForward_Padding checks mask coordinates in the padded plane and
// that padding cells lose to any positive value.
func TestPoolForward_Padding(t *testing.T) {
	input, _ := tensor.FromSlice([]float32{
		1, 2,
		3, 4,
	}, tensor.Shape{1, 1, 2, 2})

	win := Window{KernelH: 2, KernelW: 2, StrideH: 2, StrideW: 2, PadH: 1, PadW: 1}
	out, mask, err := PoolForward(MaxReduce, input, win, parallel.Sequential())
	if err != nil {
		t.Fatalf("PoolForward: %v", err)
	}

	// Padded plane is 4x4; the four windows each see one real value.
	if !out.Shape().Equal(tensor.Shape{1, 1, 2, 2}) {
		t.Fatalf("Expected 2x2 output, got %v", out.Shape())
	}
	expected := []float32{1, 2, 3, 4}
	// Real cell (y,x) sits at (y+1)*4 + (x+1) in the padded plane.
	expectedIdx := []float32{5, 6, 9, 10}
	outData := out.AsFloat32()
	maskData := mask.AsFloat32()
	for i := range expected {
		if outData[i] != expected[i] {
			t.Errorf("Output[%d]: expected %.1f, got %.1f", i, expected[i], outData[i])
		}
		if maskData[i] != expectedIdx[i] {
			t.Errorf("Mask[%d]: expected %.0f, got %.0f", i, expectedIdx[i], maskData[i])
		}
	}
}

// TestPoolForward_NegativeInputPadWins checks that with all-negative data a
// zero padding cell can legitimately win the max.
func TestPoolForward_NegativeInputPadWins(t *testing.T) {
	input, _ := tensor.FromSlice([]float32{
		-1, -2,
		-3, -4,
	}, tensor.Shape{1, 1, 2, 2})

	win := Window{KernelH: 2, KernelW: 2, StrideH: 2, StrideW: 2, PadH: 1, PadW: 1}
	out, _, err := PoolForward(MaxReduce, input, win, parallel.Sequential())
	if err != nil {
		t.Fatalf("PoolForward: %v", err)
	}

	for i, v := range out.AsFloat32() {
		if v != 0 {
			t.Errorf("Output[%d]: expected padding zero to win, got %.1f", i, v)
		}
	}
}

// TestPoolForward_MinReduce checks the min policy shares the scaffolding.
func TestPoolForward_MinReduce(t *testing.T) {
	input, _ := tensor.FromSlice([]float32{
		4, 2,
		1, 3,
	}, tensor.Shape{1, 1, 2, 2})

	win := Window{KernelH: 2, KernelW: 2, StrideH: 2, StrideW: 2}
	out, mask, err := PoolForward(MinReduce, input, win, parallel.Sequential())
	if err != nil {
		t.Fatalf("PoolForward: %v", err)
	}

	if got := out.AsFloat32()[0]; got != 1 {
		t.Errorf("Min pool: expected 1, got %.1f", got)
	}
	if got := mask.AsFloat32()[0]; got != 2 {
		t.Errorf("Min mask: expected 2, got %.0f", got)
	}
}

// TestPoolForward_MultiPlane tests independent (batch, channel) planes
// under the parallel execution context.
func TestPoolForward_MultiPlane(t *testing.T) {
	shape := tensor.Shape{2, 3, 4, 4}
	input, _ := tensor.Zeros[float64](shape)
	data := input.AsFloat64()
	// Each plane's values are offset by 100*plane so maxima are distinct.
	for p := 0; p < 6; p++ {
		for i := 0; i < 16; i++ {
			data[p*16+i] = float64(p*100 + i)
		}
	}

	win := Window{KernelH: 2, KernelW: 2, StrideH: 2, StrideW: 2}
	out, mask, err := PoolForward(MaxReduce, input, win, parallel.DefaultConfig())
	if err != nil {
		t.Fatalf("PoolForward: %v", err)
	}

	outData := out.AsFloat64()
	maskData := mask.AsFloat64()
	for p := 0; p < 6; p++ {
		base := float64(p * 100)
		expected := []float64{base + 5, base + 7, base + 13, base + 15}
		expectedIdx := []float64{5, 7, 13, 15}
		for i := range expected {
			if outData[p*4+i] != expected[i] {
				t.Errorf("Plane %d output[%d]: expected %.0f, got %.0f", p, i, expected[i], outData[p*4+i])
			}
			if maskData[p*4+i] != expectedIdx[i] {
				t.Errorf("Plane %d mask[%d]: expected %.0f, got %.0f", p, i, expectedIdx[i], maskData[p*4+i])
			}
		}
	}
}

// TestPoolBackward_Routing checks gradients land exactly where the mask
// points.
func TestPoolBackward_Routing(t *testing.T) {
	input, _ := tensor.FromSlice([]float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}, tensor.Shape{1, 1, 4, 4})

	win := Window{KernelH: 2, KernelW: 2, StrideH: 2, StrideW: 2}
	_, mask, err := PoolForward(MaxReduce, input, win, parallel.Sequential())
	if err != nil {
		t.Fatalf("PoolForward: %v", err)
	}

	gradOut, _ := tensor.FromSlice([]float32{10, 20, 30, 40}, tensor.Shape{1, 1, 2, 2})
	gradIn, err := PoolBackward(gradOut, input, mask, win, parallel.Sequential())
	if err != nil {
		t.Fatalf("PoolBackward: %v", err)
	}

	expected := make([]float32, 16)
	expected[5] = 10
	expected[7] = 20
	expected[13] = 30
	expected[15] = 40
	for i, v := range gradIn.AsFloat32() {
		if v != expected[i] {
			t.Errorf("GradIn[%d]: expected %.1f, got %.1f", i, expected[i], v)
		}
	}
}

// TestPoolBackward_OverlapAccumulates checks that one input cell winning
// several overlapping windows sums all their contributions.
func TestPoolBackward_OverlapAccumulates(t *testing.T) {
	input, _ := tensor.FromSlice([]float32{
		1, 1, 1,
		1, 9, 1,
		1, 1, 1,
	}, tensor.Shape{1, 1, 3, 3})

	win := Window{KernelH: 2, KernelW: 2, StrideH: 1, StrideW: 1}
	_, mask, err := PoolForward(MaxReduce, input, win, parallel.Sequential())
	if err != nil {
		t.Fatalf("PoolForward: %v", err)
	}

	gradOut, _ := tensor.FromSlice([]float32{1, 1, 1, 1}, tensor.Shape{1, 1, 2, 2})
	gradIn, err := PoolBackward(gradOut, input, mask, win, parallel.Sequential())
	if err != nil {
		t.Fatalf("PoolBackward: %v", err)
	}

	data := gradIn.AsFloat32()
	if data[4] != 4 {
		t.Errorf("Center cell should accumulate all 4 windows, expected 4, got %.1f", data[4])
	}
	var sum float32
	for _, v := range data {
		sum += v
	}
	if sum != 4 {
		t.Errorf("Gradient mass not conserved: expected 4, got %.1f", sum)
	}
}

// TestPoolBackward_UnequalStride ensures the backward kernel rejects
// non-uniform strides.
func TestPoolBackward_UnequalStride(t *testing.T) {
	input, _ := tensor.Zeros[float32](tensor.Shape{1, 1, 4, 6})
	gradOut, _ := tensor.Zeros[float32](tensor.Shape{1, 1, 2, 2})
	mask, _ := tensor.Zeros[float32](tensor.Shape{1, 1, 2, 2})

	win := Window{KernelH: 2, KernelW: 2, StrideH: 2, StrideW: 3}
	if _, err := PoolBackward(gradOut, input, mask, win, parallel.Sequential()); err == nil {
		t.Fatal("Expected error for unequal stride")
	}
}

func BenchmarkPoolForward(b *testing.B) {
	input, _ := tensor.Zeros[float32](tensor.Shape{8, 64, 56, 56})
	data := input.AsFloat32()
	for i := range data {
		data[i] = float32(i % 997)
	}
	win := Window{KernelH: 2, KernelW: 2, StrideH: 2, StrideW: 2}

	b.Run("parallel", func(b *testing.B) {
		cfg := parallel.DefaultConfig()
		for i := 0; i < b.N; i++ {
			_, _, _ = PoolForward(MaxReduce, input, win, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		cfg := parallel.Sequential()
		for i := 0; i < b.N; i++ {
			_, _, _ = PoolForward(MaxReduce, input, win, cfg)
		}
	})
}
