package problem

import "fmt"

// Kind classifies a problem error.
type Kind int

const (
	// KindUnknown is the zero value for errors without a specific kind.
	KindUnknown Kind = iota
	// KindDimensionMismatch marks a consistency failure: an array could not
	// be normalized to the full dimension, or the fixed index and value
	// lists drifted apart. The problem must not be used after one of these.
	KindDimensionMismatch
	// KindInvalidIndex marks an index that has no meaning in the requested
	// space, e.g. asking for the free position of a fixed parameter.
	KindInvalidIndex
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindDimensionMismatch:
		return "dimension_mismatch"
	case KindInvalidIndex:
		return "invalid_index"
	default:
		return "unknown"
	}
}

// Error represents a problem error with context
// that can be wrapped with additional information.
type Error struct {
	// Kind classifies the error.
	Kind Kind
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// newDimensionMismatch creates a DimensionMismatch error for the given operation.
func newDimensionMismatch(op, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindDimensionMismatch,
		Message: fmt.Sprintf(format, args...),
		Op:      op,
	}
}

// newInvalidIndex creates an InvalidIndex error for the given operation.
func newInvalidIndex(op, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindInvalidIndex,
		Message: fmt.Sprintf(format, args...),
		Op:      op,
	}
}

// wrapError wraps an existing error with additional context.
// If err is nil, wrapError returns nil.
func wrapError(err error, op, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// AsError checks if an error is of type Error.
// If it is, it returns the error and true. Otherwise, it returns nil and false.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	if e, ok := err.(*Error); ok {
		return e, true
	}
	return nil, false
}

// IsDimensionMismatch reports whether err is a problem error of kind
// DimensionMismatch.
func IsDimensionMismatch(err error) bool {
	e, ok := AsError(err)
	return ok && e.Kind == KindDimensionMismatch
}

// IsInvalidIndex reports whether err is a problem error of kind InvalidIndex.
func IsInvalidIndex(err error) bool {
	e, ok := AsError(err)
	return ok && e.Kind == KindInvalidIndex
}
