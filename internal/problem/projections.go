package problem

import (
	"gonum.org/v1/gonum/mat"
)

// FullVector maps a reduced-space vector to full space. Vectors that already
// have full length are returned unchanged. Otherwise the free entries of a
// NaN-filled full-width vector are populated from x, and, if fillForFixed is
// non-nil, the fixed entries from it; without fillForFixed the fixed entries
// stay NaN. Typical usage passes FixedValues for parameter vectors and nil
// for gradients.
//
// A nil input maps to a nil output.
func (p *Problem) FullVector(x []float64, fillForFixed []float64) ([]float64, error) {
	const op = "Problem.FullVector"

	if x == nil {
		return nil, nil
	}
	if len(x) == p.dimFull {
		return x, nil
	}
	if fillForFixed != nil && len(fillForFixed) != len(p.fixedIndices) {
		return nil, newDimensionMismatch(op, "fillForFixed has length %d, want %d",
			len(fillForFixed), len(p.fixedIndices))
	}
	free := p.FreeIndices()
	if len(x) != len(free) {
		return nil, newDimensionMismatch(op, "vector has length %d, want %d (full) or %d (reduced)",
			len(x), p.dimFull, len(free))
	}

	full := nanVector(p.dimFull)
	scatter(full, free, x)
	if fillForFixed != nil {
		scatter(full, p.fixedIndices, fillForFixed)
	}
	return full, nil
}

// FullRows maps a batch of reduced-space vectors to full space, one row at a
// time; the column axis is the parameter axis. This is the shape of
// per-residual gradients. The fill rule is the same as for FullVector. A
// matrix whose width is already DimFull is returned unchanged; nil maps to
// nil.
func (p *Problem) FullRows(x *mat.Dense, fillForFixed []float64) (*mat.Dense, error) {
	const op = "Problem.FullRows"

	if x == nil {
		return nil, nil
	}
	rows, cols := x.Dims()
	if cols == p.dimFull {
		return x, nil
	}
	if fillForFixed != nil && len(fillForFixed) != len(p.fixedIndices) {
		return nil, newDimensionMismatch(op, "fillForFixed has length %d, want %d",
			len(fillForFixed), len(p.fixedIndices))
	}
	free := p.FreeIndices()
	if cols != len(free) {
		return nil, newDimensionMismatch(op, "batch has width %d, want %d (full) or %d (reduced)",
			cols, p.dimFull, len(free))
	}

	full := mat.NewDense(rows, p.dimFull, nil)
	for r := 0; r < rows; r++ {
		row := nanVector(p.dimFull)
		scatter(row, free, x.RawRowView(r))
		if fillForFixed != nil {
			scatter(row, p.fixedIndices, fillForFixed)
		}
		full.SetRow(r, row)
	}
	return full, nil
}

// FullMatrix maps a reduced dim x dim matrix to full space. Values land on
// the free x free cross product; every entry touching a fixed index is NaN.
// Typical usage is the Hessian. A matrix that already has full size is
// returned unchanged; nil maps to nil.
func (p *Problem) FullMatrix(x *mat.Dense) (*mat.Dense, error) {
	const op = "Problem.FullMatrix"

	if x == nil {
		return nil, nil
	}
	rows, cols := x.Dims()
	if rows == p.dimFull && cols == p.dimFull {
		return x, nil
	}
	free := p.FreeIndices()
	if rows != len(free) || cols != len(free) {
		return nil, newDimensionMismatch(op, "matrix is %dx%d, want %dx%d (full) or %dx%d (reduced)",
			rows, cols, p.dimFull, p.dimFull, len(free), len(free))
	}

	full := mat.NewDense(p.dimFull, p.dimFull, nanVector(p.dimFull*p.dimFull))
	for ri, fi := range free {
		for ci, fj := range free {
			full.Set(fi, fj, x.At(ri, ci))
		}
	}
	return full, nil
}

// ReducedVector maps a full-space vector to reduced space by dropping the
// entries at fixed indices, keeping the free entries in ascending index
// order. A vector that already has reduced length is returned unchanged; nil
// maps to nil.
func (p *Problem) ReducedVector(xFull []float64) ([]float64, error) {
	const op = "Problem.ReducedVector"

	if xFull == nil {
		return nil, nil
	}
	free := p.FreeIndices()
	if len(xFull) == len(free) {
		return xFull, nil
	}
	if len(xFull) != p.dimFull {
		return nil, newDimensionMismatch(op, "vector has length %d, want %d (full) or %d (reduced)",
			len(xFull), p.dimFull, len(free))
	}
	return gather(xFull, free), nil
}

// ReducedMatrix restricts a full dimFull x dimFull matrix to its free x free
// sub-block, same ordering rule as ReducedVector. A matrix that already has
// reduced size is returned unchanged; nil maps to nil.
func (p *Problem) ReducedMatrix(xFull *mat.Dense) (*mat.Dense, error) {
	const op = "Problem.ReducedMatrix"

	if xFull == nil {
		return nil, nil
	}
	rows, cols := xFull.Dims()
	free := p.FreeIndices()
	if rows == len(free) && cols == len(free) {
		return xFull, nil
	}
	if rows != p.dimFull || cols != p.dimFull {
		return nil, newDimensionMismatch(op, "matrix is %dx%d, want %dx%d (full) or %dx%d (reduced)",
			rows, cols, p.dimFull, p.dimFull, len(free), len(free))
	}

	reduced := mat.NewDense(len(free), len(free), nil)
	for ri, fi := range free {
		for ci, fj := range free {
			reduced.Set(ri, ci, xFull.At(fi, fj))
		}
	}
	return reduced, nil
}

// FullIndexToFreeIndex returns the reduced-space position of the free
// full-space index i, i.e. i minus the number of fixed indices below it.
// Asking for a fixed or out-of-range index is an InvalidIndex error: a fixed
// coordinate has no reduced-space position.
func (p *Problem) FullIndexToFreeIndex(i int) (int, error) {
	const op = "Problem.FullIndexToFreeIndex"

	if i < 0 || i >= p.dimFull {
		return 0, newInvalidIndex(op, "index %d out of range [0, %d)", i, p.dimFull)
	}
	below := 0
	for _, fi := range p.fixedIndices {
		if fi == i {
			return 0, newInvalidIndex(op, "index %d is fixed and has no free position", i)
		}
		if fi < i {
			below++
		}
	}
	return i - below, nil
}
