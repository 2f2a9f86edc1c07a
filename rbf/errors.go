package rbf

import (
	"fmt"
)

// FitError indicates a correspondence set that cannot be interpolated:
// too few points, duplicated centers or a (near-)singular system. It is
// never retried; the caller needs to supply different points.
//
// The underlying error (if any) can be accessed via errors.Unwrap.
type FitError struct {
	Reason string
	cause  error
}

func (e *FitError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("rbf fit failed: %s: %v", e.Reason, e.cause)
	}
	return fmt.Sprintf("rbf fit failed: %s", e.Reason)
}

func (e *FitError) Unwrap() error { return e.cause }

// DimensionMismatchError indicates points of inconsistent dimensionality
// or src/dest lists of different lengths.
type DimensionMismatchError struct {
	// What names the offending input, e.g. "dest" or "query point".
	What     string
	Index    int
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf(
			"dimension mismatch: %s: expected %d, got %d",
			e.What, e.Expected, e.Actual,
		)
	}
	return fmt.Sprintf(
		"dimension mismatch: %s %d: expected %d, got %d",
		e.What, e.Index, e.Expected, e.Actual,
	)
}

// CheckPoints returns a *DimensionMismatchError if any point in xs does not
// have dimension dim.
func CheckPoints(what string, xs [][]float64, dim int) error {
	for i := range xs {
		if len(xs[i]) != dim {
			return &DimensionMismatchError{
				What: what, Index: i, Expected: dim, Actual: len(xs[i]),
			}
		}
	}
	return nil
}
