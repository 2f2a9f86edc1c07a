package gowarp

// ApproximationCost returns the estimated number of kernel evaluations
// needed to build an Approximation over axes and answer queries lookups
// with it, followed by the cost of answering the same queries exactly.
func ApproximationCost(e *Exact, axes [][]float64, queries int) (approx, exact float64) {
	size := 1.0
	for i := range axes {
		size *= float64(len(axes[i]))
	}
	n := float64(e.Model().Len())
	return size*n + float64(queries), float64(queries) * n
}

// Select returns an Approximation of e over axes if building and querying
// it is predicted to be cheaper than answering queries exact evaluations,
// and e otherwise. The returned Warper gives NaN outside the lattice only
// when it is an Approximation.
func Select(
	e *Exact, axes [][]float64, queries int, p *ApproxParams,
) (Warper, error) {
	approx, exact := ApproximationCost(e, axes, queries)
	if approx >= exact {
		return e, nil
	}
	return Approximate(e, axes, p)
}
