package rbf

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Kernel is a radial basis function phi(r).
type Kernel int

const (
	// ThinPlate is r^2 log(r), the default.
	ThinPlate Kernel = iota
	// Multiquadric is sqrt((r/epsilon)^2 + 1).
	Multiquadric
	// Inverse is 1 / sqrt((r/epsilon)^2 + 1).
	Inverse
	// Gaussian is exp(-(r/epsilon)^2).
	Gaussian
	// Linear is r.
	Linear
	// Cubic is r^3.
	Cubic
	// Quintic is r^5.
	Quintic
)

var kernelNames = map[Kernel]string{
	ThinPlate:    "thin_plate",
	Multiquadric: "multiquadric",
	Inverse:      "inverse",
	Gaussian:     "gaussian",
	Linear:       "linear",
	Cubic:        "cubic",
	Quintic:      "quintic",
}

func (k Kernel) String() string {
	if name, ok := kernelNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kernel(%d)", int(k))
}

// ParseKernel converts a kernel name such as "thin_plate" or "gaussian"
// into a Kernel.
func ParseKernel(s string) (Kernel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.Replace(name, "-", "_", -1)
	if name == "thin_plate_spline" || name == "tps" {
		return ThinPlate, nil
	}
	for k, kName := range kernelNames {
		if kName == name {
			return k, nil
		}
	}
	return ThinPlate, fmt.Errorf("unrecognized kernel '%s'", s)
}

// UsesEpsilon returns true if the kernel has a shape parameter.
func (k Kernel) UsesEpsilon() bool {
	return k == Multiquadric || k == Inverse || k == Gaussian
}

// Eval returns phi(r) for the shape parameter eps.
func (k Kernel) Eval(r, eps float64) float64 {
	switch k {
	case ThinPlate:
		if r == 0 {
			return 0
		}
		return r * r * math.Log(r)
	case Multiquadric:
		s := r / eps
		return math.Sqrt(s*s + 1)
	case Inverse:
		s := r / eps
		return 1 / math.Sqrt(s*s+1)
	case Gaussian:
		s := r / eps
		return math.Exp(-s * s)
	case Linear:
		return r
	case Cubic:
		return r * r * r
	case Quintic:
		r2 := r * r
		return r2 * r2 * r
	}
	panic(fmt.Sprintf("Unknown kernel %d.", int(k)))
}

// Distance computes the distance between two points of equal dimension.
type Distance func(a, b []float64) float64

// Euclidean is the L2 distance.
func Euclidean(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// defaultEpsilon is the average spacing of the centers estimated from
// their bounding box: (prod of non-zero edges / N)^(1 / #edges).
func defaultEpsilon(xs [][]float64) float64 {
	dim := len(xs[0])
	lo, hi := make([]float64, dim), make([]float64, dim)
	copy(lo, xs[0])
	copy(hi, xs[0])
	for _, x := range xs[1:] {
		for j := range x {
			lo[j] = math.Min(lo[j], x[j])
			hi[j] = math.Max(hi[j], x[j])
		}
	}

	floats.Sub(hi, lo)
	prod, n := 1.0, 0
	for _, e := range hi {
		if e != 0 {
			prod *= e
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return math.Pow(prod/float64(len(xs)), 1/float64(n))
}
