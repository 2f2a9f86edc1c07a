package volume

// Shape is the extent of a volume or a sub-volume in (z, y, x) order.
type Shape [3]int

// Size returns the number of voxels in the shape.
func (s Shape) Size() int { return s[0] * s[1] * s[2] }

// Grid provides an interface for reasoning over a 1D slice as if it were a
// 3D box. Indices are (z, y, x) with x varying fastest.
type Grid struct {
	Origin, Width Shape
	Length, Area  int
	Volume        int
	uBounds       [3]int
}

// NewGrid returns a new Grid instance.
func NewGrid(origin, width Shape) *Grid {
	g := &Grid{}
	g.Init(origin, width)
	return g
}

// Init initializes a Grid instance.
func (g *Grid) Init(origin, width Shape) {
	g.Origin = origin
	g.Width = width

	g.Length = width[2]
	g.Area = width[1] * width[2]
	g.Volume = width[0] * width[1] * width[2]

	for i := 0; i < 3; i++ {
		g.uBounds[i] = g.Origin[i] + g.Width[i]
	}
}

// Idx returns the slice index corresponding to a set of coordinates.
func (g *Grid) Idx(z, y, x int) int {
	return (x - g.Origin[2]) + (y-g.Origin[1])*g.Length +
		(z-g.Origin[0])*g.Area
}

// IdxCheck returns an index and true if the given coordinates are valid and
// false otherwise.
func (g *Grid) IdxCheck(z, y, x int) (idx int, ok bool) {
	if !g.BoundsCheck(z, y, x) {
		return -1, false
	}
	return g.Idx(z, y, x), true
}

// BoundsCheck returns true if the given coordinates are within the Grid and
// false otherwise.
func (g *Grid) BoundsCheck(z, y, x int) bool {
	return (g.Origin[0] <= z && g.Origin[1] <= y && g.Origin[2] <= x) &&
		(z < g.uBounds[0] && y < g.uBounds[1] && x < g.uBounds[2])
}

// Coords returns the z, y, x coordinates of a point from its slice index.
func (g *Grid) Coords(idx int) (z, y, x int) {
	x = idx%g.Length + g.Origin[2]
	y = (idx%g.Area)/g.Length + g.Origin[1]
	z = idx/g.Area + g.Origin[0]
	return z, y, x
}

// Contains returns true if the box given by origin and width lies entirely
// within the Grid.
func (g *Grid) Contains(origin, width Shape) bool {
	for i := 0; i < 3; i++ {
		if origin[i] < g.Origin[i] || width[i] < 0 ||
			origin[i]+width[i] > g.uBounds[i] {
			return false
		}
	}
	return true
}
