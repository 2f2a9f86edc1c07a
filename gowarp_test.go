package gowarp

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/phil-mansfield/gowarp/interpolate"
	"github.com/phil-mansfield/gowarp/rbf"
)

func cube(lo, hi float64) [][]float64 {
	pts := [][]float64{}
	for _, z := range []float64{lo, hi} {
		for _, y := range []float64{lo, hi} {
			for _, x := range []float64{lo, hi} {
				pts = append(pts, []float64{z, y, x})
			}
		}
	}
	return pts
}

// bentCube is a cube with a displaced center, which gives a warp with real
// curvature.
func bentCube() (src, dest [][]float64) {
	src = append(cube(0, 10), []float64{5, 5, 5})
	dest = append(cube(0, 10), []float64{6, 4, 5.5})
	return src, dest
}

func randomPoints(r *rand.Rand, n int, lo, hi float64) [][]float64 {
	xs := make([][]float64, n)
	for i := range xs {
		xs[i] = make([]float64, 3)
		for j := range xs[i] {
			xs[i][j] = lo + r.Float64()*(hi-lo)
		}
	}
	return xs
}

func TestFitTransformExactInterpolation(t *testing.T) {
	src, dest := bentCube()
	w, err := FitTransform(src, dest, nil)
	require.NoError(t, err)

	out, err := Evaluate(w, src...)
	require.NoError(t, err)
	for i := range src {
		assert.InDeltaSlice(t, dest[i], out[i], 1e-8, "correspondence %d", i)
	}
}

func TestIdentityWarp(t *testing.T) {
	src := cube(0, 1)
	w, err := FitTransform(src, src, nil)
	require.NoError(t, err)

	axis := []float64{0, 0.5, 1}
	a, err := Approximate(w, [][]float64{axis, axis, axis}, nil)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(1))
	for _, x := range randomPoints(r, 50, 0, 1) {
		assert.InDeltaSlice(t, x, w.Eval(x), 1e-9)
		assert.InDeltaSlice(t, x, a.Eval(x), 1e-9)
	}
}

func TestTranslationWarp(t *testing.T) {
	src := cube(0, 10)
	dest := make([][]float64, len(src))
	for i := range src {
		dest[i] = []float64{src[i][0] + 5, src[i][1], src[i][2]}
	}
	w, err := FitTransform(src, dest, nil)
	require.NoError(t, err)

	axis := []float64{0, 5, 10}
	a, err := Approximate(w, [][]float64{axis, axis, axis}, nil)
	require.NoError(t, err)

	x := []float64{5, 5, 5}
	assert.InDeltaSlice(t, []float64{10, 5, 5}, w.Eval(x), 1e-9)
	assert.InDeltaSlice(t, []float64{10, 5, 5}, a.Eval(x), 1e-9)
	assert.InDeltaSlice(t, []float64{7.5, 2.5, 1}, a.Eval([]float64{2.5, 2.5, 1}), 1e-9)
}

func TestApproximationNodesExact(t *testing.T) {
	src, dest := bentCube()
	w, err := FitTransform(src, dest, nil)
	require.NoError(t, err)

	axes := [][]float64{Axis(0, 10, 2.5), {0, 1, 3, 7, 10}, Axis(-1, 11, 3)}
	for _, order := range []interpolate.Order{
		interpolate.Nearest, interpolate.Linear, interpolate.Cubic,
	} {
		a, err := Approximate(w, axes, &ApproxParams{Order: order, Workers: 3})
		require.NoError(t, err)
		assert.Equal(t, order, a.Order())

		for _, z := range axes[0] {
			for _, y := range axes[1] {
				for _, x := range axes[2] {
					node := []float64{z, y, x}
					assert.InDeltaSlice(t, w.Eval(node), a.Eval(node), 1e-12,
						"%s at %v", order, node)
				}
			}
		}
	}
}

func TestApproximationLinearBounded(t *testing.T) {
	src, dest := bentCube()
	w, err := FitTransform(src, dest, nil)
	require.NoError(t, err)

	axis := Axis(0, 10, 2)
	a, err := Approximate(w, [][]float64{axis, axis, axis}, nil)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(2))
	for _, x := range randomPoints(r, 200, 0, 10) {
		lo := []float64{math.Inf(1), math.Inf(1), math.Inf(1)}
		hi := []float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
		i0, i1, i2 := int(x[0]/2), int(x[1]/2), int(x[2]/2)
		for _, dz := range []int{0, 1} {
			for _, dy := range []int{0, 1} {
				for _, dx := range []int{0, 1} {
					c := w.Eval([]float64{
						axis[i0+dz], axis[i1+dy], axis[i2+dx],
					})
					for j := range c {
						lo[j] = math.Min(lo[j], c[j])
						hi[j] = math.Max(hi[j], c[j])
					}
				}
			}
		}

		got := a.Eval(x)
		for j := range got {
			if got[j] < lo[j]-1e-9 || got[j] > hi[j]+1e-9 {
				t.Errorf("Expected component %d of %v in [%g, %g], got %g.",
					j, x, lo[j], hi[j], got[j])
			}
		}
	}
}

func TestApproximationOutOfBounds(t *testing.T) {
	src := cube(0, 1)
	w, err := FitTransform(src, src, nil)
	require.NoError(t, err)
	axis := []float64{0, 1}
	a, err := Approximate(w, [][]float64{axis, axis, axis}, nil)
	require.NoError(t, err)

	table := [][]float64{
		{-0.1, 0.5, 0.5},
		{0.5, 1.1, 0.5},
		{0.5, 0.5, math.NaN()},
		{math.Inf(1), 0, 0},
	}
	for i, x := range table {
		got := a.Eval(x)
		for j := range got {
			if !math.IsNaN(got[j]) {
				t.Errorf("%d) Expected NaN from %v, got %v.", i, x, got)
				break
			}
		}
		assert.False(t, a.Contains(x))
		assert.False(t, Valid(got))
	}

	lo, hi := a.Bounds()
	assert.Equal(t, []float64{0, 0, 0}, lo)
	assert.Equal(t, []float64{1, 1, 1}, hi)
}

func TestBatchMatchesScalar(t *testing.T) {
	src, dest := bentCube()
	w, err := FitTransform(src, dest, nil)
	require.NoError(t, err)
	axis := Axis(0, 10, 1)
	a, err := Approximate(w, [][]float64{axis, axis, axis}, nil)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(3))
	xs := randomPoints(r, 100, -1, 11)

	for _, warper := range []Warper{w, a} {
		all := warper.EvalAll(xs)
		for i := range xs {
			one := warper.Eval(xs[i])
			for j := range one {
				if math.Float64bits(one[j]) != math.Float64bits(all[i][j]) {
					t.Errorf("%d) Expected batch value %g, got %g.",
						i, one[j], all[i][j])
				}
			}
		}

		again := warper.EvalAll(xs)
		for i := range xs {
			for j := range again[i] {
				if math.Float64bits(again[i][j]) != math.Float64bits(all[i][j]) {
					t.Errorf("%d) Repeated evaluation changed %g to %g.",
						i, all[i][j], again[i][j])
				}
			}
		}
	}
}

func TestApproximateErrors(t *testing.T) {
	src := cube(0, 1)
	w, err := FitTransform(src, src, nil)
	require.NoError(t, err)

	var dm *DimensionMismatchError
	_, err = Approximate(w, [][]float64{{0, 1}, {0, 1}}, nil)
	assert.True(t, errors.As(err, &dm))

	_, err = Approximate(w, [][]float64{{0, 1}, {1, 0}, {0, 1}}, nil)
	assert.Error(t, err)

	_, err = Approximate(w, [][]float64{{0, 1}, {0}, {0, 1}}, nil)
	assert.Error(t, err)
}

func TestApproximateTooManyDimensions(t *testing.T) {
	const din = interpolate.MaxDims + 1
	src := [][]float64{make([]float64, din)}
	for i := 0; i < din; i++ {
		p := make([]float64, din)
		p[i] = 1
		src = append(src, p)
	}
	w, err := FitTransform(src, src, nil)
	require.NoError(t, err)

	axes := make([][]float64, din)
	for i := range axes {
		axes[i] = []float64{0, 1}
	}
	_, err = Approximate(w, axes, nil)
	assert.Error(t, err)
}

func TestApproximateUnknownOrder(t *testing.T) {
	src := cube(0, 1)
	w, err := FitTransform(src, src, nil)
	require.NoError(t, err)

	axis := []float64{0, 1}
	_, err = Approximate(w, [][]float64{axis, axis, axis},
		&ApproxParams{Order: interpolate.Order(7)})
	assert.Error(t, err)
}

func TestEvaluateDimensionMismatch(t *testing.T) {
	src := cube(0, 1)
	w, err := FitTransform(src, src, nil)
	require.NoError(t, err)

	var dm *DimensionMismatchError
	_, err = Evaluate(w, []float64{0, 0, 0}, []float64{1, 1})
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 1, dm.Index)

	_, err = Evaluate(w, []float64{0, 0, 0, 0})
	assert.True(t, errors.As(err, &dm))

	out, err := Evaluate(w, []float64{0.5, 0.5, 0.5})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.5, 0.5}, out[0], 1e-9)
}

func TestFitTransformErrors(t *testing.T) {
	var fe *FitError
	dup := cube(0, 1)
	dup[1] = dup[0]
	_, err := FitTransform(dup, cube(0, 1), nil)
	assert.True(t, errors.As(err, &fe))

	p := rbf.DefaultParams()
	p.Kernel = rbf.Gaussian
	_, err = FitTransform(cube(0, 1), cube(0, 1)[:4], p)
	var dm *DimensionMismatchError
	assert.True(t, errors.As(err, &dm))
}

func TestAxis(t *testing.T) {
	table := []struct {
		lo, hi, spacing float64
		xs              []float64
	}{
		{0, 10, 5, []float64{0, 5, 10}},
		{0, 9, 4, []float64{0, 4, 8, 12}},
		{2, 2, 1, []float64{2, 3}},
		{-1, 1, 0.5, []float64{-1, -0.5, 0, 0.5, 1}},
	}
	for i, test := range table {
		xs := Axis(test.lo, test.hi, test.spacing)
		if !floats.EqualApprox(test.xs, xs, 1e-12) {
			t.Errorf("%d) Expected Axis(%g, %g, %g) = %v, got %v.",
				i, test.lo, test.hi, test.spacing, test.xs, xs)
		}
	}
	assert.Panics(t, func() { Axis(0, 1, 0) })
	assert.Panics(t, func() { Axis(1, 0, 1) })
}

func TestSelect(t *testing.T) {
	src := cube(0, 10)
	w, err := FitTransform(src, src, nil)
	require.NoError(t, err)
	axis := Axis(0, 10, 5)
	axes := [][]float64{axis, axis, axis}

	few, err := Select(w, axes, 10, nil)
	require.NoError(t, err)
	_, ok := few.(*Exact)
	assert.True(t, ok, "few queries should use the exact model")

	many, err := Select(w, axes, 1000000, nil)
	require.NoError(t, err)
	_, ok = many.(*Approximation)
	assert.True(t, ok, "many queries should use an approximation")

	approx, exact := ApproximationCost(w, axes, 100)
	assert.Equal(t, 27.0*8+100, approx)
	assert.Equal(t, 800.0, exact)
}

func BenchmarkApproximationEval(b *testing.B) {
	src, dest := bentCube()
	w, _ := FitTransform(src, dest, nil)
	axis := Axis(0, 10, 1)
	a, _ := Approximate(w, [][]float64{axis, axis, axis}, nil)
	x, out := []float64{3.3, 4.4, 5.5}, make([]float64, 3)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Eval(x, out)
	}
}

func BenchmarkExactEval(b *testing.B) {
	src, dest := bentCube()
	w, _ := FitTransform(src, dest, nil)
	x, out := []float64{3.3, 4.4, 5.5}, make([]float64, 3)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Eval(x, out)
	}
}
