/*package volume defines the read and write interfaces that warping jobs use to
access 3D image data, along with in-memory implementations.

All coordinates are (z, y, x) voxel indices: z is the slowest varying axis
and the one volumes are chunked along.
*/
package volume

import (
	"fmt"
)

// Kind describes how voxel values may be combined.
type Kind int

const (
	// Intensity voxels are continuous and may be interpolated.
	Intensity Kind = iota
	// Labels voxels are integer segment ids and must only be sampled with
	// nearest-neighbour lookups.
	Labels
)

func (k Kind) String() string {
	switch k {
	case Intensity:
		return "Intensity"
	case Labels:
		return "Labels"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Source is a read-only volume. Implementations must be safe for concurrent
// reads.
type Source interface {
	Shape() Shape
	Kind() Kind
	// At returns the voxel at (z, y, x), which is always within Shape().
	At(z, y, x int) float64
}

// Destination receives warped output one chunk at a time. Chunks written
// concurrently never overlap.
type Destination interface {
	Shape() Shape
	// WriteChunk writes the box of the given shape starting at offset.
	// vals holds shape.Size() values with x varying fastest.
	WriteChunk(offset, shape Shape, vals []float64) error
}

// ChunkError is returned by WriteChunk implementations for chunks that do
// not fit inside the destination.
type ChunkError struct {
	Offset, Shape, Bounds Shape
	Len                   int
}

func (e *ChunkError) Error() string {
	if e.Len != e.Shape.Size() {
		return fmt.Sprintf(
			"chunk of shape %v holds %d values instead of %d",
			e.Shape, e.Len, e.Shape.Size(),
		)
	}
	return fmt.Sprintf(
		"chunk at %v with shape %v is outside a volume of shape %v",
		e.Offset, e.Shape, e.Bounds,
	)
}

// CheckChunk returns a *ChunkError if the chunk does not fit within a
// volume of shape bounds.
func CheckChunk(bounds, offset, shape Shape, n int) error {
	g := Grid{}
	g.Init(Shape{}, bounds)
	if n != shape.Size() || !g.Contains(offset, shape) {
		return &ChunkError{offset, shape, bounds, n}
	}
	return nil
}

// Float32 is an in-memory float32 volume. It is both a Source and a
// Destination.
type Float32 struct {
	Grid
	kind Kind
	Data []float32
}

// NewFloat32 allocates a zeroed intensity volume.
func NewFloat32(shape Shape) *Float32 {
	return Float32FromData(shape, make([]float32, shape.Size()))
}

// Float32FromData wraps data, which must hold shape.Size() values.
func Float32FromData(shape Shape, data []float32) *Float32 {
	if len(data) != shape.Size() {
		panic(fmt.Sprintf(
			"Volume of shape %v given %d values.", shape, len(data),
		))
	}
	v := &Float32{Data: data, kind: Intensity}
	v.Init(Shape{}, shape)
	return v
}

// SetKind changes the kind reported to samplers.
func (v *Float32) SetKind(k Kind) { v.kind = k }

func (v *Float32) Shape() Shape { return v.Width }
func (v *Float32) Kind() Kind   { return v.kind }

func (v *Float32) At(z, y, x int) float64 {
	return float64(v.Data[v.Idx(z, y, x)])
}

// Set sets the voxel at (z, y, x).
func (v *Float32) Set(z, y, x int, val float64) {
	v.Data[v.Idx(z, y, x)] = float32(val)
}

func (v *Float32) WriteChunk(offset, shape Shape, vals []float64) error {
	if err := CheckChunk(v.Width, offset, shape, len(vals)); err != nil {
		return err
	}
	chunk := NewGrid(offset, shape)
	for i, val := range vals {
		z, y, x := chunk.Coords(i)
		v.Data[v.Idx(z, y, x)] = float32(val)
	}
	return nil
}

// Uint32 is an in-memory label volume. It is both a Source and a
// Destination. Written values are rounded to the nearest id and negative or
// NaN values become 0.
type Uint32 struct {
	Grid
	Data []uint32
}

// NewUint32 allocates a zeroed label volume.
func NewUint32(shape Shape) *Uint32 {
	return Uint32FromData(shape, make([]uint32, shape.Size()))
}

// Uint32FromData wraps data, which must hold shape.Size() values.
func Uint32FromData(shape Shape, data []uint32) *Uint32 {
	if len(data) != shape.Size() {
		panic(fmt.Sprintf(
			"Volume of shape %v given %d values.", shape, len(data),
		))
	}
	v := &Uint32{Data: data}
	v.Init(Shape{}, shape)
	return v
}

func (v *Uint32) Shape() Shape { return v.Width }
func (v *Uint32) Kind() Kind   { return Labels }

func (v *Uint32) At(z, y, x int) float64 {
	return float64(v.Data[v.Idx(z, y, x)])
}

// Set sets the voxel at (z, y, x).
func (v *Uint32) Set(z, y, x int, id uint32) {
	v.Data[v.Idx(z, y, x)] = id
}

func (v *Uint32) WriteChunk(offset, shape Shape, vals []float64) error {
	if err := CheckChunk(v.Width, offset, shape, len(vals)); err != nil {
		return err
	}
	chunk := NewGrid(offset, shape)
	for i, val := range vals {
		z, y, x := chunk.Coords(i)
		v.Data[v.Idx(z, y, x)] = LabelOf(val)
	}
	return nil
}

// LabelOf converts a sampled value into a segment id.
func LabelOf(val float64) uint32 {
	if !(val >= 0) {
		return 0
	} else if val >= 4294967295 {
		return 4294967295
	}
	return uint32(val + 0.5)
}
