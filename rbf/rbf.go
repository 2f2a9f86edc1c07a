/*package rbf fits radial basis function interpolants through scattered
correspondence points.

A Model maps Din-dimensional points to Dout-dimensional points. Each output
dimension is an independent scalar interpolant

	f(x) = sum_i w_i phi(|x - c_i|) + p(x)

where the c_i are the source points and p is a low-degree polynomial. With
zero smoothing f reproduces every training pair exactly.

The system is assembled on coordinates centered on the mean of the c_i and
divided by half their largest extent, so its conditioning does not depend on
the units of the points. Epsilon and Smoothing are given in the units of the
points and the normalized system respectively.
*/
package rbf

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Params configures a fit. The zero value is not useful; start from
// DefaultParams.
type Params struct {
	Kernel Kernel
	// Epsilon is the shape parameter of Multiquadric, Inverse and
	// Gaussian kernels. Zero means estimate it from the centers.
	Epsilon float64
	// Smoothing is added to the diagonal of the kernel matrix. Zero means
	// exact interpolation.
	Smoothing float64
	// Distance defaults to Euclidean. It is evaluated on normalized
	// coordinates.
	Distance Distance
	// Degree is the degree of the polynomial augmentation: -1 for none,
	// 0 for a constant, 1 for an affine term.
	Degree int
}

// DefaultParams returns the parameters of a thin-plate spline with an
// affine term.
func DefaultParams() *Params {
	return &Params{
		Kernel:   ThinPlate,
		Distance: Euclidean,
		Degree:   1,
	}
}

// Model is a fitted interpolant. It is immutable and safe for concurrent
// use.
type Model struct {
	params    Params
	centers   [][]float64
	din, dout int

	// ncenters are the centers in normalized coordinates and eps is
	// Epsilon in the same units.
	ncenters [][]float64
	eps      float64

	// weights is N x dout, poly is polyTerms x dout, both row-major.
	weights, poly []float64
	polyTerms     int

	// The kernel and polynomial terms are evaluated on (x - shift) / scale.
	shift []float64
	scale float64
}

// Fit solves for the Model that maps each src[i] to dest[i]. p may be nil,
// in which case DefaultParams is used. src and dest are copied.
func Fit(src, dest [][]float64, p *Params) (*Model, error) {
	if p == nil {
		p = DefaultParams()
	}
	if len(src) != len(dest) {
		return nil, &DimensionMismatchError{
			What: "dest point count", Index: -1,
			Expected: len(src), Actual: len(dest),
		}
	} else if len(src) == 0 {
		return nil, &FitError{Reason: "no correspondence points"}
	}

	din, dout := len(src[0]), len(dest[0])
	if din == 0 || dout == 0 {
		return nil, &FitError{Reason: "points must have at least one coordinate"}
	}
	if err := CheckPoints("src point", src, din); err != nil {
		return nil, err
	}
	if err := CheckPoints("dest point", dest, dout); err != nil {
		return nil, err
	}

	if p.Degree < -1 || p.Degree > 1 {
		return nil, fmt.Errorf("polynomial degree must be -1, 0 or 1, got %d", p.Degree)
	} else if p.Smoothing < 0 {
		return nil, fmt.Errorf("smoothing must be non-negative, got %g", p.Smoothing)
	} else if p.Epsilon < 0 {
		return nil, fmt.Errorf("epsilon must be non-negative, got %g", p.Epsilon)
	}

	m := &Model{params: *p, din: din, dout: dout}
	if m.params.Distance == nil {
		m.params.Distance = Euclidean
	}
	if m.params.Epsilon == 0 && m.params.Kernel.UsesEpsilon() {
		m.params.Epsilon = defaultEpsilon(src)
	}

	m.centers = make([][]float64, len(src))
	for i := range src {
		m.centers[i] = append([]float64(nil), src[i]...)
	}

	if i, j, ok := findDuplicate(m.centers); ok {
		return nil, &FitError{
			Reason: fmt.Sprintf("src points %d and %d are identical", i, j),
		}
	}

	m.polyTerms = polyTerms(p.Degree, din)
	if len(src) < m.polyTerms {
		return nil, &FitError{Reason: fmt.Sprintf(
			"%d points cannot determine a degree %d polynomial in %d "+
				"dimensions; need at least %d", len(src), p.Degree, din,
			m.polyTerms,
		)}
	}
	m.initNormalization()

	if err := m.solve(dest); err != nil {
		return nil, err
	}
	return m, nil
}

func polyTerms(degree, din int) int {
	switch degree {
	case -1:
		return 0
	case 0:
		return 1
	}
	return din + 1
}

// initNormalization centers and scales the points so that the kernel and
// polynomial blocks are both of order one.
func (m *Model) initNormalization() {
	m.shift = make([]float64, m.din)
	lo, hi := make([]float64, m.din), make([]float64, m.din)
	copy(lo, m.centers[0])
	copy(hi, m.centers[0])
	for _, c := range m.centers {
		for j := range c {
			m.shift[j] += c[j]
			lo[j] = math.Min(lo[j], c[j])
			hi[j] = math.Max(hi[j], c[j])
		}
	}

	m.scale = 0
	for j := range m.shift {
		m.shift[j] /= float64(len(m.centers))
		m.scale = math.Max(m.scale, (hi[j]-lo[j])/2)
	}
	if m.scale == 0 {
		m.scale = 1
	}

	m.eps = m.params.Epsilon / m.scale
	m.ncenters = make([][]float64, len(m.centers))
	buf := make([]float64, len(m.centers)*m.din)
	for i, c := range m.centers {
		m.ncenters[i] = buf[i*m.din : (i+1)*m.din]
		m.normalize(c, m.ncenters[i])
	}
}

// normalize writes (x - shift) / scale into out.
func (m *Model) normalize(x, out []float64) {
	for j := range x {
		out[j] = (x[j] - m.shift[j]) / m.scale
	}
}

// monomials writes the polynomial terms of the normalized point nx into out.
func (m *Model) monomials(nx, out []float64) {
	if m.polyTerms == 0 {
		return
	}
	out[0] = 1
	copy(out[1:m.polyTerms], nx)
}

func (m *Model) solve(dest [][]float64) error {
	n, np := len(m.centers), m.polyTerms
	size := n + np

	a := mat.NewDense(size, size, nil)
	k, eps, dist := m.params.Kernel, m.eps, m.params.Distance
	for i := 0; i < n; i++ {
		a.Set(i, i, k.Eval(0, eps)+m.params.Smoothing)
		for j := i + 1; j < n; j++ {
			phi := k.Eval(dist(m.ncenters[i], m.ncenters[j]), eps)
			a.Set(i, j, phi)
			a.Set(j, i, phi)
		}
	}

	mono := make([]float64, np)
	for i := 0; i < n; i++ {
		m.monomials(m.ncenters[i], mono)
		for j := 0; j < np; j++ {
			a.Set(i, n+j, mono[j])
			a.Set(n+j, i, mono[j])
		}
	}

	b := mat.NewDense(size, m.dout, nil)
	for i := 0; i < n; i++ {
		b.SetRow(i, dest[i])
	}

	var lu mat.LU
	lu.Factorize(a)
	x := mat.NewDense(size, m.dout, nil)
	if err := lu.SolveTo(x, false, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) ||
			!solved(a, x, b) {
			return &FitError{
				Reason: "interpolation system is singular; points may be " +
					"degenerate (collinear, coplanar or duplicated)",
				cause: err,
			}
		}
	}

	raw := x.RawMatrix()
	m.weights = make([]float64, n*m.dout)
	m.poly = make([]float64, np*m.dout)
	for i := 0; i < size; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+m.dout]
		if i < n {
			copy(m.weights[i*m.dout:], row)
		} else {
			copy(m.poly[(i-n)*m.dout:], row)
		}
	}

	for _, w := range m.weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return &FitError{Reason: "interpolation system produced non-finite weights"}
		}
	}
	return nil
}

// residualTolerance bounds |a x - b| relative to |a| |x| + |b| for an
// ill-conditioned system to still count as solved.
const residualTolerance = 1e-8

// solved returns true if x solves a x = b to within residualTolerance.
func solved(a, x, b *mat.Dense) bool {
	var r mat.Dense
	r.Mul(a, x)
	r.Sub(&r, b)
	res := mat.Norm(&r, 2)
	bound := mat.Norm(a, 2)*mat.Norm(x, 2) + mat.Norm(b, 2)
	return !math.IsNaN(res) && res <= residualTolerance*bound
}

// findDuplicate returns the indices of two identical points, if any exist.
func findDuplicate(xs [][]float64) (i, j int, ok bool) {
	pts := make(kdtree.Points, len(xs))
	for i := range xs {
		pts[i] = kdtree.Point(xs[i])
	}
	tree := kdtree.New(pts, false)

	for i := range xs {
		keeper := kdtree.NewNKeeper(2)
		tree.NearestSet(keeper, kdtree.Point(xs[i]))

		zeros := 0
		for _, c := range keeper.Heap {
			if c.Comparable != nil && c.Dist == 0 {
				zeros++
			}
		}
		if zeros < 2 {
			continue
		}

		for j := range xs {
			if j != i && samePoint(xs[i], xs[j]) {
				return i, j, true
			}
		}
	}
	return -1, -1, false
}

func samePoint(a, b []float64) bool {
	for k := range a {
		if a[k] != b[k] {
			return false
		}
	}
	return true
}

// Eval returns the interpolated value at x. If an output array is given,
// the output is written to that array (the array is still returned as a
// convenience).
//
// Eval panics if len(x) does not match the model's input dimension.
func (m *Model) Eval(x []float64, out ...[]float64) []float64 {
	if len(x) != m.din {
		panic(fmt.Sprintf(
			"Point of dimension %d given to Model with input dimension %d.",
			len(x), m.din,
		))
	}
	if len(out) == 0 {
		out = [][]float64{make([]float64, m.dout)}
	}
	res := out[0]
	for k := range res {
		res[k] = 0
	}

	var nbuf [8]float64
	var nx []float64
	if m.din <= len(nbuf) {
		nx = nbuf[:m.din]
	} else {
		nx = make([]float64, m.din)
	}
	m.normalize(x, nx)

	k, eps, dist := m.params.Kernel, m.eps, m.params.Distance
	for i, c := range m.ncenters {
		phi := k.Eval(dist(nx, c), eps)
		w := m.weights[i*m.dout : (i+1)*m.dout]
		for j := range res {
			res[j] += phi * w[j]
		}
	}

	if m.polyTerms > 0 {
		var buf [8]float64
		var mono []float64
		if m.polyTerms <= len(buf) {
			mono = buf[:m.polyTerms]
		} else {
			mono = make([]float64, m.polyTerms)
		}
		m.monomials(nx, mono)
		for t, v := range mono {
			c := m.poly[t*m.dout : (t+1)*m.dout]
			for j := range res {
				res[j] += v * c[j]
			}
		}
	}

	return res
}

// EvalAll evaluates the model at every point in xs. If an output array is
// given, the output is written to that array.
func (m *Model) EvalAll(xs [][]float64, out ...[][]float64) [][]float64 {
	if len(out) == 0 {
		out = [][][]float64{make([][]float64, len(xs))}
	}
	for i := range xs {
		if out[0][i] == nil {
			out[0][i] = make([]float64, m.dout)
		}
		m.Eval(xs[i], out[0][i])
	}
	return out[0]
}

// InputDim returns the dimension of the source space.
func (m *Model) InputDim() int { return m.din }

// OutputDim returns the dimension of the destination space.
func (m *Model) OutputDim() int { return m.dout }

// Len returns the number of centers.
func (m *Model) Len() int { return len(m.centers) }

// Centers returns the model's centers. They must not be modified.
func (m *Model) Centers() [][]float64 { return m.centers }

// Params returns the parameters the model was fit with, with Epsilon and
// Distance resolved.
func (m *Model) Params() Params { return m.params }
