package problem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// fixedTestProblem builds the problem used by most projection tests:
// dimFull=3 with parameter 1 fixed at 0.5, so free indices are [0, 2].
func fixedTestProblem(t *testing.T) *Problem {
	t.Helper()

	p, err := New(Config{
		LB: []float64{0, 0, 0},
		UB: []float64{1, 1, 1},
	})
	require.NoError(t, err)
	require.NoError(t, p.FixOne(1, 0.5))
	return p
}

func TestFullVector(t *testing.T) {
	p := fixedTestProblem(t)

	t.Run("nil maps to nil", func(t *testing.T) {
		got, err := p.FullVector(nil, nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("full length returned unchanged", func(t *testing.T) {
		x := []float64{1, 2, 3}
		got, err := p.FullVector(x, nil)
		require.NoError(t, err)
		assertFloatsEqual(t, got, x)
	})

	t.Run("fixed positions filled from fillForFixed", func(t *testing.T) {
		got, err := p.FullVector([]float64{10, 20}, []float64{0.5})
		require.NoError(t, err)
		assertFloatsEqual(t, got, []float64{10, 0.5, 20})
	})

	t.Run("fixed positions NaN without fillForFixed", func(t *testing.T) {
		got, err := p.FullVector([]float64{10, 20}, nil)
		require.NoError(t, err)
		assert.Equal(t, 10.0, got[0])
		assert.True(t, math.IsNaN(got[1]))
		assert.Equal(t, 20.0, got[2])
	})

	t.Run("NaN guess entries stay NaN at fixed positions", func(t *testing.T) {
		// A reduced guess row never inherits fixed values implicitly.
		got, err := p.FullVector([]float64{math.NaN(), 0.3}, nil)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(got[0]))
		assert.True(t, math.IsNaN(got[1]))
		assert.Equal(t, 0.3, got[2])
	})

	t.Run("wrong length fails", func(t *testing.T) {
		_, err := p.FullVector([]float64{1, 2, 3, 4}, nil)
		require.Error(t, err)
		assert.True(t, IsDimensionMismatch(err))
	})

	t.Run("wrong fillForFixed length fails", func(t *testing.T) {
		_, err := p.FullVector([]float64{10, 20}, []float64{0.5, 0.6})
		require.Error(t, err)
		assert.True(t, IsDimensionMismatch(err))
	})
}

func TestReducedVector(t *testing.T) {
	p := fixedTestProblem(t)

	t.Run("nil maps to nil", func(t *testing.T) {
		got, err := p.ReducedVector(nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("drops fixed entries in ascending free order", func(t *testing.T) {
		got, err := p.ReducedVector([]float64{10, 99, 20})
		require.NoError(t, err)
		assertFloatsEqual(t, got, []float64{10, 20})
	})

	t.Run("reduced length returned unchanged", func(t *testing.T) {
		x := []float64{10, 20}
		got, err := p.ReducedVector(x)
		require.NoError(t, err)
		assertFloatsEqual(t, got, x)
	})

	t.Run("wrong length fails", func(t *testing.T) {
		_, err := p.ReducedVector([]float64{1})
		require.Error(t, err)
		assert.True(t, IsDimensionMismatch(err))
	})
}

func TestVectorRoundTrip(t *testing.T) {
	p, err := New(Config{
		LB:      Scalar(0),
		UB:      Scalar(1),
		DimFull: 5,
	})
	require.NoError(t, err)
	require.NoError(t, p.Fix([]int{4, 1}, []float64{0.4, 0.1}))

	// Reduced -> full -> reduced is the identity on the free subspace, for
	// any fill of the fixed positions.
	x := []float64{7, 8, 9}
	for _, fill := range [][]float64{nil, {0.4, 0.1}, {-1, -2}} {
		full, err := p.FullVector(x, fill)
		require.NoError(t, err)
		back, err := p.ReducedVector(full)
		require.NoError(t, err)
		assertFloatsEqual(t, back, x)
	}

	// Full -> reduced -> full reproduces the free positions; the fixed
	// positions round-trip only when the fill matches.
	xFull := []float64{1, 2, 3, 4, 5}
	reduced, err := p.ReducedVector(xFull)
	require.NoError(t, err)
	back, err := p.FullVector(reduced, []float64{xFull[4], xFull[1]})
	require.NoError(t, err)
	assertFloatsEqual(t, back, xFull)
}

func TestFullRows(t *testing.T) {
	p := fixedTestProblem(t)

	t.Run("nil maps to nil", func(t *testing.T) {
		got, err := p.FullRows(nil, nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("full width returned unchanged", func(t *testing.T) {
		x := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
		got, err := p.FullRows(x, nil)
		require.NoError(t, err)
		assert.Same(t, x, got)
	})

	t.Run("rows widened along the parameter axis", func(t *testing.T) {
		// Two residual gradients in reduced space.
		x := mat.NewDense(2, 2, []float64{
			10, 20,
			30, 40,
		})
		got, err := p.FullRows(x, nil)
		require.NoError(t, err)

		nan := math.NaN()
		want := mat.NewDense(2, 3, []float64{
			10, nan, 20,
			30, nan, 40,
		})
		assertMatEqual(t, got, want)
	})

	t.Run("fill applied per row", func(t *testing.T) {
		x := mat.NewDense(1, 2, []float64{10, 20})
		got, err := p.FullRows(x, []float64{0.5})
		require.NoError(t, err)
		assertMatEqual(t, got, mat.NewDense(1, 3, []float64{10, 0.5, 20}))
	})

	t.Run("wrong width fails", func(t *testing.T) {
		_, err := p.FullRows(mat.NewDense(1, 4, nil), nil)
		require.Error(t, err)
		assert.True(t, IsDimensionMismatch(err))
	})
}

func TestFullMatrix(t *testing.T) {
	p := fixedTestProblem(t)

	t.Run("nil maps to nil", func(t *testing.T) {
		got, err := p.FullMatrix(nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("values land on the free cross product", func(t *testing.T) {
		x := mat.NewDense(2, 2, []float64{
			1, 2,
			3, 4,
		})
		got, err := p.FullMatrix(x)
		require.NoError(t, err)

		nan := math.NaN()
		want := mat.NewDense(3, 3, []float64{
			1, nan, 2,
			nan, nan, nan,
			3, nan, 4,
		})
		assertMatEqual(t, got, want)
	})

	t.Run("full size returned unchanged", func(t *testing.T) {
		x := mat.NewDense(3, 3, nil)
		got, err := p.FullMatrix(x)
		require.NoError(t, err)
		assert.Same(t, x, got)
	})

	t.Run("wrong size fails", func(t *testing.T) {
		_, err := p.FullMatrix(mat.NewDense(4, 4, nil))
		require.Error(t, err)
		assert.True(t, IsDimensionMismatch(err))
	})
}

func TestReducedMatrix(t *testing.T) {
	p := fixedTestProblem(t)

	t.Run("nil maps to nil", func(t *testing.T) {
		got, err := p.ReducedMatrix(nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("restricts to the free sub-block", func(t *testing.T) {
		xFull := mat.NewDense(3, 3, []float64{
			1, 2, 3,
			4, 5, 6,
			7, 8, 9,
		})
		got, err := p.ReducedMatrix(xFull)
		require.NoError(t, err)
		assertMatEqual(t, got, mat.NewDense(2, 2, []float64{
			1, 3,
			7, 9,
		}))
	})

	t.Run("reduced size returned unchanged", func(t *testing.T) {
		x := mat.NewDense(2, 2, nil)
		got, err := p.ReducedMatrix(x)
		require.NoError(t, err)
		assert.Same(t, x, got)
	})
}

func TestMatrixRoundTrip(t *testing.T) {
	p := fixedTestProblem(t)

	x := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	full, err := p.FullMatrix(x)
	require.NoError(t, err)
	back, err := p.ReducedMatrix(full)
	require.NoError(t, err)
	assertMatEqual(t, back, x)
}

func TestFullIndexToFreeIndex(t *testing.T) {
	p := fixedTestProblem(t)

	tests := []struct {
		name      string
		fullIndex int
		want      int
		invalid   bool
	}{
		{name: "before fixed", fullIndex: 0, want: 0},
		{name: "fixed index", fullIndex: 1, invalid: true},
		{name: "after fixed", fullIndex: 2, want: 1},
		{name: "out of range high", fullIndex: 3, invalid: true},
		{name: "out of range low", fullIndex: -1, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.FullIndexToFreeIndex(tt.fullIndex)
			if tt.invalid {
				require.Error(t, err)
				assert.True(t, IsInvalidIndex(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFullIndexToFreeIndexManyFixed(t *testing.T) {
	p, err := New(Config{
		LB:      Scalar(0),
		UB:      Scalar(1),
		DimFull: 6,
	})
	require.NoError(t, err)
	require.NoError(t, p.Fix([]int{5, 0, 2}, []float64{0, 0, 0}))

	// Free indices are [1, 3, 4].
	for fullIndex, want := range map[int]int{1: 0, 3: 1, 4: 2} {
		got, err := p.FullIndexToFreeIndex(fullIndex)
		require.NoError(t, err)
		assert.Equal(t, want, got, "full index %d", fullIndex)
	}
}
