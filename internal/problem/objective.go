package problem

// Objective is the collaborator a problem notifies about its free/fixed
// partition. The notification is sent once per renormalization, i.e. after
// construction and after every Fix or Unfix, so the objective can adapt its
// own input dimensionality before the next evaluation.
//
// UpdateFromProblem must be idempotent: receiving the same partition twice
// must leave the objective in the same state. It must not fail on a valid
// partition; any returned error is treated as fatal by the problem.
type Objective interface {
	UpdateFromProblem(dimFull int, freeIndices, fixedIndices []int, fixedValues []float64) error
}

// ParameterNamer is an optional capability of an Objective. If the objective
// declares non-empty parameter names, those take priority over any names
// supplied at problem construction.
type ParameterNamer interface {
	ParameterNames() []string
}

// BaseObjective is a minimal Objective that records the partition it was
// last notified with. It is useful on its own when the evaluation logic
// lives elsewhere, and as an embeddable base for objectives that only care
// about the bookkeeping.
type BaseObjective struct {
	// Names are the declared parameter names, may be nil.
	Names []string

	dimFull      int
	freeIndices  []int
	fixedIndices []int
	fixedValues  []float64
}

// NewBaseObjective creates a BaseObjective with the given parameter names.
func NewBaseObjective(names ...string) *BaseObjective {
	return &BaseObjective{Names: names}
}

// UpdateFromProblem stores the partition. Slices are copied so later
// mutations of the problem cannot alias the objective's view.
func (o *BaseObjective) UpdateFromProblem(dimFull int, freeIndices, fixedIndices []int, fixedValues []float64) error {
	o.dimFull = dimFull
	o.freeIndices = append([]int(nil), freeIndices...)
	o.fixedIndices = append([]int(nil), fixedIndices...)
	o.fixedValues = append([]float64(nil), fixedValues...)
	return nil
}

// ParameterNames returns the declared names, or nil if none were given.
func (o *BaseObjective) ParameterNames() []string {
	return o.Names
}

// DimFull returns the full dimension from the last notification.
func (o *BaseObjective) DimFull() int { return o.dimFull }

// FreeIndices returns the free indices from the last notification.
func (o *BaseObjective) FreeIndices() []int { return o.freeIndices }

// FixedIndices returns the fixed indices from the last notification.
func (o *BaseObjective) FixedIndices() []int { return o.fixedIndices }

// FixedValues returns the fixed values from the last notification.
func (o *BaseObjective) FixedValues() []float64 { return o.fixedValues }
