package problem

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// assertFloatsEqual checks that two float64 slices are elementwise identical,
// treating NaN as equal to NaN so NaN-filled projections can be compared.
func assertFloatsEqual(t *testing.T, got, want []float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	if !floats.Same(got, want) {
		t.Fatalf("slices differ: got %v, want %v", got, want)
	}
}

// assertIntsEqual checks that two int slices are identical.
func assertIntsEqual(t *testing.T, got, want []int) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("at index %d: got %v, want %v", i, got, want)
		}
	}
}

// assertMatEqual checks that two matrices are elementwise identical, treating
// NaN as equal to NaN.
func assertMatEqual(t *testing.T, got, want mat.Matrix) {
	t.Helper()

	rg, cg := got.Dims()
	rw, cw := want.Dims()
	if rg != rw || cg != cw {
		t.Fatalf("matrix dimensions mismatch: got %dx%d, want %dx%d", rg, cg, rw, cw)
	}

	for i := 0; i < rg; i++ {
		for j := 0; j < cg; j++ {
			g := got.At(i, j)
			w := want.At(i, j)
			if g != w && !(math.IsNaN(g) && math.IsNaN(w)) {
				t.Fatalf("at (%d,%d): got %v, want %v", i, j, g, w)
			}
		}
	}
}

// spyObjective records every partition notification it receives.
type spyObjective struct {
	names []string
	calls int

	dimFull      int
	freeIndices  []int
	fixedIndices []int
	fixedValues  []float64

	err error
}

func (o *spyObjective) UpdateFromProblem(dimFull int, freeIndices, fixedIndices []int, fixedValues []float64) error {
	if o.err != nil {
		return o.err
	}
	o.calls++
	o.dimFull = dimFull
	o.freeIndices = append([]int(nil), freeIndices...)
	o.fixedIndices = append([]int(nil), fixedIndices...)
	o.fixedValues = append([]float64(nil), fixedValues...)
	return nil
}

func (o *spyObjective) ParameterNames() []string {
	return o.names
}
