package interpolate

import (
	"fmt"
	"strings"
)

// Order selects the separable 1D kernel used between lattice nodes.
type Order int

const (
	// Nearest takes the value of the closest node.
	Nearest Order = iota
	// Linear interpolates between the two nodes of a cell. Results are
	// bounded by the values at the cell's corners.
	Linear
	// Cubic is a local cubic Hermite kernel whose slopes are finite
	// differences of the neighbouring nodes. It passes through every node
	// but may overshoot between them.
	Cubic
)

// MaxTerms is the largest number of nodes any Order combines per axis.
const MaxTerms = 4

func (o Order) String() string {
	switch o {
	case Nearest:
		return "Nearest"
	case Linear:
		return "Linear"
	case Cubic:
		return "Cubic"
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// Valid returns true if o is one of Nearest, Linear or Cubic.
func (o Order) Valid() bool {
	return o == Nearest || o == Linear || o == Cubic
}

// ParseOrder converts a name such as "linear" or "Cubic" into an Order.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nearest", "0":
		return Nearest, nil
	case "linear", "1":
		return Linear, nil
	case "cubic", "3":
		return Cubic, nil
	}
	return Nearest, fmt.Errorf("unrecognized interpolation order '%s'", s)
}

// Weights writes the node indices and weights whose weighted sum gives the
// interpolated value at x along the axis a. It returns the number of terms
// written, or ok = false if x lies outside the axis. Indices may repeat
// near the ends of the axis.
func (o Order) Weights(
	a *Axis, x float64, idx *[MaxTerms]int, w *[MaxTerms]float64,
) (n int, ok bool) {
	i, ok := a.Search(x)
	if !ok {
		return 0, false
	}

	x1, x2 := a.Node(i), a.Node(i+1)
	h := x2 - x1
	t := (x - x1) / h

	switch o {
	case Nearest:
		if x-x1 <= x2-x {
			idx[0] = i
		} else {
			idx[0] = i + 1
		}
		w[0] = 1
		return 1, true

	case Linear:
		idx[0], idx[1] = i, i+1
		w[0], w[1] = 1-t, t
		return 2, true

	case Cubic:
		ia, id := i-1, i+2
		if ia < 0 {
			ia = 0
		}
		if id > a.n-1 {
			id = a.n - 1
		}

		t2, t3 := t*t, t*t*t
		h00 := 2*t3 - 3*t2 + 1
		h10 := t3 - 2*t2 + t
		h01 := -2*t3 + 3*t2
		h11 := t3 - t2

		// Slopes are (p[i+1] - p[ia]) / (x[i+1] - x[ia]) and
		// (p[id] - p[i]) / (x[id] - x[i]).
		c1 := h10 * h / (x2 - a.Node(ia))
		c2 := h11 * h / (a.Node(id) - x1)

		idx[0], idx[1], idx[2], idx[3] = ia, i, i+1, id
		w[0], w[1], w[2], w[3] = -c1, h00-c2, h01+c1, c2
		return 4, true
	}

	panic(fmt.Sprintf("Unknown interpolation order %d.", int(o)))
}
