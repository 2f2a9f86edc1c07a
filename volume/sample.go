package volume

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/gowarp/interpolate"
)

// Sampler reads a Source at fractional voxel coordinates.
//
// A coordinate that is NaN, or whose nearest voxel lies outside the volume,
// samples to the background value. Inside the volume, Nearest returns the
// nearest voxel and Linear and Cubic interpolate between neighbouring
// voxels, clamping at the faces.
type Sampler struct {
	src        Source
	order      interpolate.Order
	background float64
	shape      Shape
	axes       [3]*interpolate.Axis
}

// NewSampler creates a Sampler. Label volumes may only be sampled with
// interpolate.Nearest.
func NewSampler(
	src Source, order interpolate.Order, background float64,
) (*Sampler, error) {
	if !order.Valid() {
		return nil, fmt.Errorf("unknown interpolation order %s", order)
	} else if src.Kind() == Labels && order != interpolate.Nearest {
		return nil, fmt.Errorf(
			"label volumes can only be sampled with nearest-neighbour "+
				"lookups, not %s interpolation", order,
		)
	}

	s := &Sampler{
		src: src, order: order, background: background, shape: src.Shape(),
	}
	for i, n := range s.shape {
		if n <= 0 {
			return nil, fmt.Errorf("source volume has shape %v", s.shape)
		}
		if n >= 2 {
			axis, err := interpolate.NewUniformAxis(0, 1, n)
			if err != nil {
				return nil, err
			}
			s.axes[i] = axis
		}
	}
	return s, nil
}

// Order returns the interpolation order.
func (s *Sampler) Order() interpolate.Order { return s.order }

// Background returns the value of samples outside the volume.
func (s *Sampler) Background() float64 { return s.background }

// At samples the source at (z, y, x).
func (s *Sampler) At(z, y, x float64) float64 {
	pos := [3]float64{z, y, x}
	var near [3]int
	for i := range pos {
		if math.IsNaN(pos[i]) {
			return s.background
		}
		r := math.Floor(pos[i] + 0.5)
		if r < 0 || r >= float64(s.shape[i]) {
			return s.background
		}
		near[i] = int(r)
	}

	if s.order == interpolate.Nearest {
		return s.src.At(near[0], near[1], near[2])
	}

	var (
		idx   [3][interpolate.MaxTerms]int
		w     [3][interpolate.MaxTerms]float64
		terms [3]int
	)
	for i := range pos {
		if s.axes[i] == nil {
			idx[i][0], w[i][0], terms[i] = 0, 1, 1
			continue
		}
		p := math.Max(0, math.Min(pos[i], float64(s.shape[i]-1)))
		n, ok := s.order.Weights(s.axes[i], p, &idx[i], &w[i])
		if !ok {
			panic(fmt.Sprintf("Clamped coordinate %g outside axis %d.", p, i))
		}
		terms[i] = n
	}

	sum := 0.0
	for a := 0; a < terms[0]; a++ {
		for b := 0; b < terms[1]; b++ {
			wab := w[0][a] * w[1][b]
			for c := 0; c < terms[2]; c++ {
				sum += wab * w[2][c] * s.src.At(idx[0][a], idx[1][b], idx[2][c])
			}
		}
	}
	return sum
}

// Nearest samples src at the voxel nearest to (z, y, x).
func Nearest(src Source, z, y, x, background float64) float64 {
	return mustSampler(src, interpolate.Nearest, background).At(z, y, x)
}

// Linear samples src with trilinear interpolation.
func Linear(src Source, z, y, x, background float64) float64 {
	return mustSampler(src, interpolate.Linear, background).At(z, y, x)
}

// Cubic samples src with tricubic interpolation. The kernel is the local
// Catmull-Rom cubic, not a prefiltered B-spline, so it passes through every
// voxel value.
func Cubic(src Source, z, y, x, background float64) float64 {
	return mustSampler(src, interpolate.Cubic, background).At(z, y, x)
}

func mustSampler(
	src Source, order interpolate.Order, background float64,
) *Sampler {
	s, err := NewSampler(src, order, background)
	if err != nil {
		panic(err.Error())
	}
	return s
}
