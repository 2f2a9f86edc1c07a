package gowarp

import (
	"fmt"
	"log"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/phil-mansfield/gowarp/interpolate"
)

// ApproxParams controls how an Approximation is built.
type ApproxParams struct {
	// Order is the interpolation order used between lattice nodes.
	Order interpolate.Order
	// Workers is the number of goroutines that sample the lattice. Zero
	// means runtime.NumCPU().
	Workers int
	Log     bool
}

// DefaultApproxParams returns trilinear interpolation sampled on every
// available CPU.
func DefaultApproxParams() *ApproxParams {
	return &ApproxParams{Order: interpolate.Linear}
}

// Approximation is a Warper sampled once on a rectilinear lattice and
// interpolated separably afterwards. It holds no reference to the Warper it
// was built from. Queries outside the lattice's bounding box evaluate to NaN
// in every component.
type Approximation struct {
	din   int
	grids []*interpolate.Grid
}

// Approximate samples w at every node of the lattice spanned by axes and
// returns an interpolator over those samples. There must be one strictly
// increasing axis with at least two nodes per input dimension of w.
//
// Sampling costs one exact evaluation per lattice node and is split across
// p.Workers goroutines. p may be nil.
func Approximate(
	w Warper, axes [][]float64, p *ApproxParams,
) (*Approximation, error) {
	if p == nil {
		p = DefaultApproxParams()
	}
	if len(axes) != w.InputDim() {
		return nil, &DimensionMismatchError{
			What: "lattice axis count", Index: -1,
			Expected: w.InputDim(), Actual: len(axes),
		}
	}

	// Validate axes and order before paying for any sampling.
	if len(axes) > interpolate.MaxDims {
		return nil, fmt.Errorf(
			"lattices support at most %d axes, got %d",
			interpolate.MaxDims, len(axes),
		)
	} else if !p.Order.Valid() {
		return nil, fmt.Errorf("unknown interpolation order %s", p.Order)
	}
	size := 1
	for i := range axes {
		if _, err := interpolate.NewAxis(axes[i]); err != nil {
			return nil, fmt.Errorf("lattice axis %d: %w", i, err)
		}
		size *= len(axes[i])
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if p.Log {
		log.Printf(
			"Sampling %d lattice nodes (%s) with %d workers.",
			size, shapeString(axes), workers,
		)
	}

	dout := w.OutputDim()
	vals := make([][]float64, dout)
	for j := range vals {
		vals[j] = make([]float64, size)
	}

	// Slabs along the first axis are written to disjoint ranges of vals.
	slab := size / len(axes[0])
	n0 := len(axes[0])
	per := (n0 + workers - 1) / workers

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for start := 0; start < n0; start += per {
		start, end := start, start+per
		if end > n0 {
			end = n0
		}
		g.Go(func() error {
			sampleSlabs(w, axes, start, end, slab, vals)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a := &Approximation{din: len(axes), grids: make([]*interpolate.Grid, dout)}
	for j := range vals {
		grid, err := interpolate.NewGrid(axes, vals[j], p.Order)
		if err != nil {
			return nil, err
		}
		a.grids[j] = grid
	}

	if p.Log {
		LogMemoryUsage()
	}
	return a, nil
}

// sampleSlabs evaluates w at the lattice nodes whose first index lies in
// [start, end).
func sampleSlabs(
	w Warper, axes [][]float64, start, end, slab int, vals [][]float64,
) {
	din := len(axes)
	var idx [interpolate.MaxDims]int
	x := make([]float64, din)
	out := make([]float64, len(vals))

	for flat := start * slab; flat < end*slab; flat++ {
		rem := flat
		for i := din - 1; i >= 0; i-- {
			idx[i] = rem % len(axes[i])
			rem /= len(axes[i])
		}
		for i := 0; i < din; i++ {
			x[i] = axes[i][idx[i]]
		}

		w.Eval(x, out)
		for j := range out {
			vals[j][flat] = out[j]
		}
	}
}

func shapeString(axes [][]float64) string {
	s := ""
	for i := range axes {
		if i > 0 {
			s += " x "
		}
		s += fmt.Sprintf("%d", len(axes[i]))
	}
	return s
}

// LogMemoryUsage logs the heap and system memory in use.
func LogMemoryUsage() {
	ms := runtime.MemStats{}
	runtime.ReadMemStats(&ms)
	log.Printf(
		"Alloc: %5d MB, Sys: %5d MB",
		ms.Alloc>>20, ms.Sys>>20,
	)
}

func (a *Approximation) InputDim() int  { return a.din }
func (a *Approximation) OutputDim() int { return len(a.grids) }

// Order returns the interpolation order shared by every output dimension.
func (a *Approximation) Order() interpolate.Order { return a.grids[0].Order() }

// Grid returns the interpolator for the j-th output dimension.
func (a *Approximation) Grid(j int) *interpolate.Grid { return a.grids[j] }

// Bounds returns the lower and upper corners of the lattice.
func (a *Approximation) Bounds() (lo, hi []float64) {
	lo, hi = make([]float64, a.din), make([]float64, a.din)
	g := a.grids[0]
	for i := 0; i < a.din; i++ {
		lo[i], hi[i] = g.Axis(i).Min(), g.Axis(i).Max()
	}
	return lo, hi
}

// Contains returns true if x lies inside the lattice's bounding box.
func (a *Approximation) Contains(x []float64) bool {
	return a.grids[0].Contains(x)
}

// Eval panics if len(x) != a.InputDim().
func (a *Approximation) Eval(x []float64, out ...[]float64) []float64 {
	if len(x) != a.din {
		panic(fmt.Sprintf(
			"Point of dimension %d given to Approximation with input "+
				"dimension %d.", len(x), a.din,
		))
	}
	if len(out) == 0 {
		out = [][]float64{make([]float64, len(a.grids))}
	}
	res := out[0]
	if !a.grids[0].Contains(x) {
		for j := range res {
			res[j] = math.NaN()
		}
		return res
	}
	for j, g := range a.grids {
		res[j] = g.Eval(x)
	}
	return res
}

func (a *Approximation) EvalAll(xs [][]float64, out ...[][]float64) [][]float64 {
	return evalAll(a, xs, out)
}

// Axis returns lattice nodes from lo to at least hi spaced by spacing. The
// last node is the first one that reaches hi, so the returned axis always
// covers [lo, hi]. It panics if spacing is not positive or hi < lo.
func Axis(lo, hi, spacing float64) []float64 {
	if !(spacing > 0) {
		panic(fmt.Sprintf("Axis spacing must be positive, got %g.", spacing))
	} else if hi < lo {
		panic(fmt.Sprintf("Axis range [%g, %g] is empty.", lo, hi))
	}
	n := int(math.Ceil((hi-lo)/spacing)) + 1
	if n < 2 {
		n = 2
	}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = lo + float64(i)*spacing
	}
	return xs
}
