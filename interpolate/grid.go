package interpolate

import (
	"fmt"
	"math"
)

// MaxDims is the largest dimensionality a Grid supports.
const MaxDims = 8

// Grid is a separable interpolator over values sampled on a rectilinear
// lattice. Values are stored row-major: the last axis varies fastest.
//
// A Grid is read-only after construction and is safe for concurrent use.
type Grid struct {
	axes    []Axis
	vals    []float64
	strides []int
	order   Order
}

// NewGrid creates a Grid over the lattice spanned by axes. len(vals) must
// equal the product of the axis lengths. Neither axes nor vals may be
// modified afterwards.
func NewGrid(axes [][]float64, vals []float64, order Order) (*Grid, error) {
	if len(axes) == 0 {
		return nil, fmt.Errorf("grid needs at least one axis")
	} else if len(axes) > MaxDims {
		return nil, fmt.Errorf(
			"grid supports at most %d axes, got %d", MaxDims, len(axes),
		)
	} else if !order.Valid() {
		return nil, fmt.Errorf("unknown interpolation order %s", order)
	}

	g := &Grid{
		axes:    make([]Axis, len(axes)),
		strides: make([]int, len(axes)),
		vals:    vals,
		order:   order,
	}

	for i := range axes {
		if err := g.axes[i].init(axes[i]); err != nil {
			return nil, fmt.Errorf("axis %d: %w", i, err)
		}
	}

	size := 1
	for i := len(axes) - 1; i >= 0; i-- {
		g.strides[i] = size
		size *= len(axes[i])
	}
	if size != len(vals) {
		return nil, fmt.Errorf(
			"len(vals) = %d, but the lattice has %d points", len(vals), size,
		)
	}

	return g, nil
}

// Dim returns the number of axes.
func (g *Grid) Dim() int { return len(g.axes) }

// Order returns the interpolation order.
func (g *Grid) Order() Order { return g.order }

// Axis returns the i-th axis.
func (g *Grid) Axis(i int) *Axis { return &g.axes[i] }

// Values returns the sampled lattice values. They must not be modified.
func (g *Grid) Values() []float64 { return g.vals }

// Eval returns the interpolated value at x, or NaN if any coordinate of x
// lies outside the lattice's bounding box.
func (g *Grid) Eval(x []float64) float64 {
	if len(x) != len(g.axes) {
		panic(fmt.Sprintf(
			"Point of dimension %d given to %d-dimensional Grid.",
			len(x), len(g.axes),
		))
	}

	var (
		idx   [MaxDims][MaxTerms]int
		w     [MaxDims][MaxTerms]float64
		terms [MaxDims]int
		ctr   [MaxDims]int
	)

	dim := len(g.axes)
	for d := 0; d < dim; d++ {
		n, ok := g.order.Weights(&g.axes[d], x[d], &idx[d], &w[d])
		if !ok {
			return math.NaN()
		}
		terms[d] = n
	}

	sum := 0.0
	for {
		off, wt := 0, 1.0
		for d := 0; d < dim; d++ {
			off += idx[d][ctr[d]] * g.strides[d]
			wt *= w[d][ctr[d]]
		}
		sum += wt * g.vals[off]

		// Advance the odometer, last axis fastest.
		d := dim - 1
		for ; d >= 0; d-- {
			ctr[d]++
			if ctr[d] < terms[d] {
				break
			}
			ctr[d] = 0
		}
		if d < 0 {
			break
		}
	}

	return sum
}

// EvalAll evaluates the grid at every point in xs. If an output array is
// given, the output is written to that array (the array is still returned
// as a convenience).
//
// If more than one output array is provided, only the first is used.
func (g *Grid) EvalAll(xs [][]float64, out ...[]float64) []float64 {
	if len(out) == 0 {
		out = [][]float64{make([]float64, len(xs))}
	}
	for i := range xs {
		out[0][i] = g.Eval(xs[i])
	}
	return out[0]
}

// Contains returns true if x lies inside the lattice's bounding box.
func (g *Grid) Contains(x []float64) bool {
	for d := range g.axes {
		if !(x[d] >= g.axes[d].x0 && x[d] <= g.axes[d].lim) {
			return false
		}
	}
	return true
}
