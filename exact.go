package gowarp

import (
	"github.com/phil-mansfield/gowarp/rbf"
)

// Exact evaluates a fitted rbf.Model directly. Each query costs O(N) in
// the number of correspondences, so it is meant for small batches and for
// building Approximations.
type Exact struct {
	model *rbf.Model
}

// FitTransform fits a warp that maps each src[i] onto dest[i]. p may be nil
// for a thin-plate spline with an affine term.
func FitTransform(src, dest [][]float64, p *rbf.Params) (*Exact, error) {
	m, err := rbf.Fit(src, dest, p)
	if err != nil {
		return nil, err
	}
	return &Exact{m}, nil
}

// NewExact wraps an already fitted model.
func NewExact(m *rbf.Model) *Exact { return &Exact{m} }

// Model returns the underlying model.
func (e *Exact) Model() *rbf.Model { return e.model }

func (e *Exact) InputDim() int  { return e.model.InputDim() }
func (e *Exact) OutputDim() int { return e.model.OutputDim() }

func (e *Exact) Eval(x []float64, out ...[]float64) []float64 {
	return e.model.Eval(x, out...)
}

func (e *Exact) EvalAll(xs [][]float64, out ...[][]float64) [][]float64 {
	return evalAll(e, xs, out)
}
