package interpolate

import (
	"fmt"
)

// Axis is a strictly increasing sequence of lattice nodes along one
// dimension. It answers "which cell contains x" in O(1) for uniform spacing
// and O(log n) otherwise.
type Axis struct {
	xs          []float64
	x0, dx, lim float64
	n           int
	unif        bool
}

// NewAxis creates an Axis over the nodes xs. xs must hold at least two
// strictly increasing values and must not be modified afterwards.
func NewAxis(xs []float64) (*Axis, error) {
	a := &Axis{}
	if err := a.init(xs); err != nil {
		return nil, err
	}
	return a, nil
}

// NewUniformAxis creates an Axis of n nodes starting at x0 and separated
// by dx.
func NewUniformAxis(x0, dx float64, n int) (*Axis, error) {
	if n < 2 {
		return nil, fmt.Errorf("axis needs at least 2 nodes, got %d", n)
	} else if !(dx > 0) {
		return nil, fmt.Errorf("axis spacing must be positive, got %g", dx)
	}
	a := &Axis{}
	a.unifInit(x0, dx, n)
	return a, nil
}

func (a *Axis) init(xs []float64) error {
	if len(xs) < 2 {
		return fmt.Errorf("axis needs at least 2 nodes, got %d", len(xs))
	}
	for i := 0; i < len(xs)-1; i++ {
		if !(xs[i+1] > xs[i]) {
			return fmt.Errorf(
				"axis nodes must be strictly increasing, but xs[%d] = %g "+
					"and xs[%d] = %g", i, xs[i], i+1, xs[i+1],
			)
		}
	}

	a.xs = xs
	a.x0 = xs[0]
	a.lim = xs[len(xs)-1]
	a.dx = (a.lim - a.x0) / float64(len(xs)-1)
	a.n = len(xs)
	a.unif = false
	return nil
}

func (a *Axis) unifInit(x0, dx float64, n int) {
	a.xs = nil
	a.x0 = x0
	a.lim = float64(n-1)*dx + x0
	a.dx = dx
	a.n = n
	a.unif = true
}

// Len returns the number of nodes.
func (a *Axis) Len() int { return a.n }

// Min returns the first node.
func (a *Axis) Min() float64 { return a.x0 }

// Max returns the last node.
func (a *Axis) Max() float64 { return a.lim }

// Node returns the i-th node.
func (a *Axis) Node(i int) float64 {
	if a.unif {
		return float64(i)*a.dx + a.x0
	}
	return a.xs[i]
}

// Nodes returns a copy of the node coordinates.
func (a *Axis) Nodes() []float64 {
	out := make([]float64, a.n)
	for i := range out {
		out[i] = a.Node(i)
	}
	return out
}

// Search returns the index i of the cell [Node(i), Node(i+1)] containing x.
// The last node belongs to the last cell. ok is false if x is NaN or lies
// outside [Min(), Max()].
func (a *Axis) Search(x float64) (i int, ok bool) {
	if !(x >= a.x0 && x <= a.lim) {
		return -1, false
	}

	if a.unif {
		idx := int((x - a.x0) / a.dx)
		if idx >= a.n-1 {
			idx = a.n - 2
		}
		return idx, true
	}

	// Guess under the assumption of uniform spacing.
	guess := int((x - a.x0) / a.dx)
	if guess >= 0 && guess < a.n-1 &&
		a.xs[guess] <= x && x <= a.xs[guess+1] {
		return guess, true
	}

	lo, hi := 0, a.n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if x >= a.xs[mid] {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, true
}
