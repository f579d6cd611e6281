// Package problem implements the full/reduced parameter-space mapping engine
// behind an optimization problem descriptor.
//
// A Problem owns the authoritative full-space arrays (bounds, guesses, names,
// scales) and the current partition of coordinate indices into free and fixed
// sets. Callers pin parameters with Fix and release them with Unfix; the
// projection methods translate vectors and matrices between the full space of
// dimension DimFull and the reduced space of dimension Dim that an optimizer
// actually searches over.
//
// The reduced space is always the full space restricted to the free indices
// in ascending index order, regardless of the order in which parameters were
// fixed or unfixed.
package problem

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Config describes a problem to be constructed with New.
type Config struct {
	// Objective is notified of the free/fixed partition on every
	// renormalization. May be nil when no collaborator is involved.
	Objective Objective

	// LB and UB are the lower and upper bounds. A length-1 slice is
	// broadcast to DimFull; use Scalar for that. For unbounded directions
	// use +-Inf.
	LB []float64
	UB []float64

	// DimFull is the full problem dimension including fixed parameters.
	// If zero it is inferred from len(LB).
	DimFull int

	// FixedIndices and FixedValues describe the initially fixed
	// parameters. They must have equal length.
	FixedIndices []int
	FixedValues  []float64

	// Guesses are start points for the optimization, one row per guess.
	Guesses [][]float64

	// Names are the per-coordinate parameter names. If the objective
	// declares non-empty names those win; otherwise missing names default
	// to "x0", "x1", ...
	Names []string

	// Scales are the per-coordinate parameter scales, defaulting to lin.
	Scales []Scale

	// Priors is an opaque prior-definition payload carried through for
	// downstream consumers. The engine never inspects it.
	Priors any

	// Logger receives debug logs about partition changes. Nil means no
	// logging.
	Logger *zap.Logger
}

// Scalar returns a bound slice that broadcasts a single value to the full
// dimension during renormalization.
func Scalar(v float64) []float64 {
	return []float64{v}
}

// Problem is the problem formulation: bounds, guesses, names, scales and the
// partition of parameters into free and fixed coordinates.
//
// All mutation goes through Fix and Unfix, each of which ends in a
// renormalization pass that restores every full-space array to length DimFull
// and pushes the new partition to the objective. A Problem whose mutation
// returned a DimensionMismatch error must be discarded.
type Problem struct {
	objective Objective
	logger    *zap.Logger

	dimFull int
	lbFull  []float64
	ubFull  []float64

	// fixedIndices is kept in append order; the sorted free view is always
	// derived on demand, so external query order does not depend on the
	// order in which parameters were fixed.
	fixedIndices []int
	fixedValues  []float64

	guessesFull [][]float64
	names       []string
	scales      []Scale
	priors      any
}

// New constructs a Problem from cfg and runs the initial renormalization.
func New(cfg Config) (*Problem, error) {
	const op = "Problem.New"

	dimFull := cfg.DimFull
	if dimFull == 0 {
		dimFull = len(cfg.LB)
	}
	if dimFull < 0 {
		return nil, newDimensionMismatch(op, "dimFull must be non-negative, got %d", dimFull)
	}

	seen := make(map[int]bool, len(cfg.FixedIndices))
	for _, i := range cfg.FixedIndices {
		if i < 0 || i >= dimFull {
			return nil, newInvalidIndex(op, "fixed index %d out of range [0, %d)", i, dimFull)
		}
		if seen[i] {
			return nil, newInvalidIndex(op, "fixed index %d given twice", i)
		}
		seen[i] = true
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Problem{
		objective:    cfg.Objective,
		logger:       logger.Named("problem"),
		dimFull:      dimFull,
		lbFull:       append([]float64(nil), cfg.LB...),
		ubFull:       append([]float64(nil), cfg.UB...),
		fixedIndices: append([]int(nil), cfg.FixedIndices...),
		fixedValues:  append([]float64(nil), cfg.FixedValues...),
		guessesFull:  copyRows(cfg.Guesses),
		priors:       cfg.Priors,
	}

	// Objective-declared names take priority over caller-supplied names,
	// which in turn take priority over the generated defaults.
	names := cfg.Names
	if namer, ok := cfg.Objective.(ParameterNamer); ok && cfg.Objective != nil {
		if n := namer.ParameterNames(); len(n) > 0 {
			names = n
		}
	}
	if names == nil {
		names = make([]string, dimFull)
		for j := range names {
			names[j] = fmt.Sprintf("x%d", j)
		}
	}
	p.names = append([]string(nil), names...)

	if cfg.Scales == nil {
		p.scales = defaultScales(dimFull)
	} else {
		p.scales = append([]Scale(nil), cfg.Scales...)
	}

	if err := p.normalize(); err != nil {
		return nil, err
	}
	return p, nil
}

// DimFull returns the full problem dimension, including fixed parameters.
func (p *Problem) DimFull() int { return p.dimFull }

// Dim returns the number of free parameters.
func (p *Problem) Dim() int { return p.dimFull - len(p.fixedIndices) }

// FreeIndices returns the indices of the free parameters in ascending order.
// It is derived from the fixed set on every call and never stored, so it can
// not go stale.
func (p *Problem) FreeIndices() []int {
	fixed := make(map[int]bool, len(p.fixedIndices))
	for _, i := range p.fixedIndices {
		fixed[i] = true
	}
	free := make([]int, 0, p.Dim())
	for i := 0; i < p.dimFull; i++ {
		if !fixed[i] {
			free = append(free, i)
		}
	}
	return free
}

// FixedIndices returns the fixed parameter indices in the order they were
// fixed. Callers must not rely on that order; the partition itself is
// order-free.
func (p *Problem) FixedIndices() []int {
	return append([]int(nil), p.fixedIndices...)
}

// FixedValues returns the values pinned at FixedIndices, position-paired.
func (p *Problem) FixedValues() []float64 {
	return append([]float64(nil), p.fixedValues...)
}

// LBFull returns the full-space lower bounds.
func (p *Problem) LBFull() []float64 { return append([]float64(nil), p.lbFull...) }

// UBFull returns the full-space upper bounds.
func (p *Problem) UBFull() []float64 { return append([]float64(nil), p.ubFull...) }

// LB returns the lower bounds restricted to the free parameters.
func (p *Problem) LB() []float64 { return gather(p.lbFull, p.FreeIndices()) }

// UB returns the upper bounds restricted to the free parameters.
func (p *Problem) UB() []float64 { return gather(p.ubFull, p.FreeIndices()) }

// GuessesFull returns the guess rows in full space. Columns at fixed indices
// may hold NaN for guesses that were supplied in reduced space.
func (p *Problem) GuessesFull() [][]float64 { return copyRows(p.guessesFull) }

// Guesses returns the guess rows restricted to the free parameters.
func (p *Problem) Guesses() [][]float64 {
	free := p.FreeIndices()
	rows := make([][]float64, len(p.guessesFull))
	for i, row := range p.guessesFull {
		rows[i] = gather(row, free)
	}
	return rows
}

// Names returns the per-coordinate parameter names.
func (p *Problem) Names() []string { return append([]string(nil), p.names...) }

// Scales returns the per-coordinate parameter scales.
func (p *Problem) Scales() []Scale { return append([]Scale(nil), p.scales...) }

// Priors returns the opaque prior-definition payload, if any.
func (p *Problem) Priors() any { return p.priors }

// Objective returns the notified collaborator, if any.
func (p *Problem) Objective() Objective { return p.objective }

// Fix pins the parameters at the given indices to the given values and
// renormalizes. Fixing an already-fixed index overwrites its pinned value in
// place, so Fix is idempotent per (index, value) pair.
func (p *Problem) Fix(indices []int, values []float64) error {
	const op = "Problem.Fix"

	if len(indices) != len(values) {
		return newDimensionMismatch(op, "got %d indices but %d values", len(indices), len(values))
	}
	for _, i := range indices {
		if i < 0 || i >= p.dimFull {
			return newInvalidIndex(op, "index %d out of range [0, %d)", i, p.dimFull)
		}
	}

	for k, i := range indices {
		if pos := indexOf(p.fixedIndices, i); pos >= 0 {
			p.fixedValues[pos] = values[k]
		} else {
			p.fixedIndices = append(p.fixedIndices, i)
			p.fixedValues = append(p.fixedValues, values[k])
		}
	}

	p.logger.Debug("fixed parameters",
		zap.Ints("indices", indices),
		zap.Float64s("values", values),
		zap.Int("dim", p.Dim()),
	)

	return p.normalize()
}

// FixOne pins a single parameter. Equivalent to Fix with one-element slices.
func (p *Problem) FixOne(index int, value float64) error {
	return p.Fix([]int{index}, []float64{value})
}

// Unfix frees the parameters at the given indices and renormalizes. Indices
// that are not currently fixed are ignored, so Unfix has "ensure free"
// semantics.
func (p *Problem) Unfix(indices []int) error {
	for _, i := range indices {
		if pos := indexOf(p.fixedIndices, i); pos >= 0 {
			p.fixedIndices = append(p.fixedIndices[:pos], p.fixedIndices[pos+1:]...)
			p.fixedValues = append(p.fixedValues[:pos], p.fixedValues[pos+1:]...)
		}
	}

	p.logger.Debug("unfixed parameters",
		zap.Ints("indices", indices),
		zap.Int("dim", p.Dim()),
	)

	return p.normalize()
}

// UnfixOne frees a single parameter. Equivalent to Unfix with a one-element
// slice.
func (p *Problem) UnfixOne(index int) error {
	return p.Unfix([]int{index})
}

// normalize restores every full-space array to length dimFull, pushes the
// partition to the objective and validates the result. It runs after
// construction and after every partition mutation.
//
// Arrays whose length is neither 1 nor dimFull are interpreted as already
// being in reduced space and are scattered back into full space. When no
// parameters are fixed a reduced array and a full array have the same length,
// so the two cases cannot be told apart; the full-space reading wins then.
func (p *Problem) normalize() error {
	const op = "Problem.normalize"

	free := p.FreeIndices()

	lbFull, err := p.normalizeBounds(op, "lb", p.lbFull, free)
	if err != nil {
		return err
	}
	p.lbFull = lbFull

	ubFull, err := p.normalizeBounds(op, "ub", p.ubFull, free)
	if err != nil {
		return err
	}
	p.ubFull = ubFull

	// Guess rows given in reduced space are widened with NaN at the fixed
	// columns. Fixed values are deliberately not back-filled: a guess is a
	// search starting point, not a fixed assignment.
	for r, row := range p.guessesFull {
		if len(row) == p.dimFull {
			continue
		}
		if len(row) != len(free) {
			return newDimensionMismatch(op, "guess row %d has length %d, want %d (full) or %d (reduced)",
				r, len(row), p.dimFull, len(free))
		}
		full := nanVector(p.dimFull)
		scatter(full, free, row)
		p.guessesFull[r] = full
	}

	// The objective must have adopted the new partition before anything
	// else happens; later evaluations rely on it.
	if p.objective != nil {
		if err := p.objective.UpdateFromProblem(p.dimFull, free, p.FixedIndices(), p.FixedValues()); err != nil {
			return wrapError(err, op, "objective rejected partition update")
		}
	}

	if len(p.lbFull) != p.dimFull {
		return newDimensionMismatch(op, "lb has length %d, want %d", len(p.lbFull), p.dimFull)
	}
	if len(p.ubFull) != p.dimFull {
		return newDimensionMismatch(op, "ub has length %d, want %d", len(p.ubFull), p.dimFull)
	}
	if len(p.scales) != p.dimFull {
		return newDimensionMismatch(op, "scales has length %d, want %d", len(p.scales), p.dimFull)
	}
	if len(p.names) != p.dimFull {
		return newDimensionMismatch(op, "names has length %d, want %d", len(p.names), p.dimFull)
	}
	if len(p.fixedIndices) != len(p.fixedValues) {
		return newDimensionMismatch(op, "%d fixed indices but %d fixed values",
			len(p.fixedIndices), len(p.fixedValues))
	}

	return nil
}

// normalizeBounds expands a scalar bound to full length, or scatters a
// reduced-space bound back into full space using the current fixed values at
// the fixed positions.
func (p *Problem) normalizeBounds(op, name string, b []float64, free []int) ([]float64, error) {
	switch {
	case len(b) == p.dimFull:
		return b, nil
	case len(b) == 1:
		full := make([]float64, p.dimFull)
		for i := range full {
			full[i] = b[0]
		}
		return full, nil
	case len(b) == len(free) && len(p.fixedIndices) == len(p.fixedValues):
		full := make([]float64, p.dimFull)
		scatter(full, free, b)
		scatter(full, p.fixedIndices, p.fixedValues)
		return full, nil
	default:
		return nil, newDimensionMismatch(op, "%s has length %d, want %d (full) or %d (reduced)",
			name, len(b), p.dimFull, len(free))
	}
}

func copyRows(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// gather returns v at the given indices, in index order.
func gather(v []float64, indices []int) []float64 {
	out := make([]float64, len(indices))
	for k, i := range indices {
		out[k] = v[i]
	}
	return out
}

// scatter writes src into dst at the given indices, position-paired.
func scatter(dst []float64, indices []int, src []float64) {
	for k, i := range indices {
		dst[i] = src[k]
	}
}

// nanVector returns a length-n vector filled with NaN.
func nanVector(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

// indexOf returns the position of x in s, or -1.
func indexOf(s []int, x int) int {
	for i, v := range s {
		if v == x {
			return i
		}
	}
	return -1
}
