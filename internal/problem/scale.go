package problem

import "fmt"

// Scale describes the scale a parameter is declared on. Scales are carried
// through the problem for consumers such as visualization and prior
// generation; the mapping engine itself never transforms values between
// scales.
type Scale string

const (
	// ScaleLin is the linear (identity) scale.
	ScaleLin Scale = "lin"
	// ScaleLog is the natural logarithmic scale.
	ScaleLog Scale = "log"
	// ScaleLog10 is the base-10 logarithmic scale.
	ScaleLog10 Scale = "log10"
)

// ParseScale converts a string to a Scale. An empty string parses to
// ScaleLin.
func ParseScale(s string) (Scale, error) {
	switch Scale(s) {
	case ScaleLin, "":
		return ScaleLin, nil
	case ScaleLog:
		return ScaleLog, nil
	case ScaleLog10:
		return ScaleLog10, nil
	default:
		return "", fmt.Errorf("unsupported parameter scale %q (want lin, log or log10)", s)
	}
}

// defaultScales returns a linear scale for every coordinate.
func defaultScales(n int) []Scale {
	scales := make([]Scale, n)
	for i := range scales {
		scales[i] = ScaleLin
	}
	return scales
}
