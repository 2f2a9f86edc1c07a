/*package gowarp warps coordinates between two spaces that are related only by
a sparse set of corresponding landmark points.

FitTransform fits an exact radial basis function interpolant through the
correspondences. Exact evaluation costs O(N) per point, so bulk work goes
through an Approximation: the exact model sampled once on a lattice and
interpolated separably afterwards. Both satisfy the Warper interface.

	w, err := gowarp.FitTransform(moving, reference, nil)
	if err != nil { return err }
	axes := [][]float64{
		gowarp.Axis(0, nz, 20), gowarp.Axis(0, ny, 20), gowarp.Axis(0, nx, 20),
	}
	fast, err := gowarp.Approximate(w, axes, nil)
	if err != nil { return err }
	out := fast.EvalAll(points)
*/
package gowarp

import (
	"math"

	"github.com/phil-mansfield/gowarp/rbf"
)

// Warper maps points from a source space into a destination space.
//
// Implementations are stateless from the caller's perspective: identical
// inputs always give bit-identical outputs, and EvalAll gives the same
// results as calling Eval on each point. They are safe for concurrent use.
type Warper interface {
	InputDim() int
	OutputDim() int

	// Eval warps a single point. If an output array is given, the result
	// is written to it (the array is still returned as a convenience).
	// Components that cannot be computed, e.g. queries outside an
	// Approximation's lattice, are NaN.
	Eval(x []float64, out ...[]float64) []float64
	// EvalAll warps every point in xs.
	EvalAll(xs [][]float64, out ...[][]float64) [][]float64
}

var (
	_ Warper = &Exact{}
	_ Warper = &Approximation{}
)

type (
	// FitError is returned when the correspondences cannot be fit.
	FitError = rbf.FitError
	// DimensionMismatchError is returned for points of the wrong
	// dimension or src/dest lists of different lengths.
	DimensionMismatchError = rbf.DimensionMismatchError
)

// Evaluate warps one or more points with w after checking that each has
// w.InputDim() coordinates. A single point is treated as a batch of one.
func Evaluate(w Warper, xs ...[]float64) ([][]float64, error) {
	if err := rbf.CheckPoints("query point", xs, w.InputDim()); err != nil {
		return nil, err
	}
	return w.EvalAll(xs), nil
}

// Valid returns true if no component of x is NaN.
func Valid(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

func evalAll(w Warper, xs [][]float64, out [][][]float64) [][]float64 {
	if len(out) == 0 {
		out = [][][]float64{make([][]float64, len(xs))}
	}
	dout := w.OutputDim()
	for i := range xs {
		if out[0][i] == nil {
			out[0][i] = make([]float64, dout)
		}
		w.Eval(xs[i], out[0][i])
	}
	return out[0]
}
