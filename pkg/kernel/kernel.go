// Package kernel defines the isosurface extraction interface used by the
// volume generator, and the flat render mesh every generator produces.
// Implementations (march, sdfx) turn a sampled density grid into a
// triangle soup.
package kernel

import "github.com/ubisoft/vrtist-sub002/pkg/geom"

// Grid is a dense scalar field sampled on a regular lattice.
// Values are laid out with x varying fastest, then y, then z, so the
// sample at cell (x, y, z) is Values[x + Resolution.X*(y + Resolution.Y*z)]
// and sits at Origin + (x, y, z)*StepSize.
type Grid struct {
	Values     []float64
	Resolution geom.Vec3i
	StepSize   float64
	Origin     geom.Vec3
}

// Index returns the offset of cell (x, y, z) in Values.
func (g Grid) Index(x, y, z int) int {
	return x + g.Resolution.X*(y+g.Resolution.Y*z)
}

// At returns the value of cell (x, y, z).
func (g Grid) At(x, y, z int) float64 {
	return g.Values[g.Index(x, y, z)]
}

// Position returns the location of cell (x, y, z).
func (g Grid) Position(x, y, z int) geom.Vec3 {
	return geom.Vec3{
		X: g.Origin.X + float64(x)*g.StepSize,
		Y: g.Origin.Y + float64(y)*g.StepSize,
		Z: g.Origin.Z + float64(z)*g.StepSize,
	}
}

// Extractable reports whether the grid has at least two samples along
// every axis, the minimum needed to form a single cube.
func (g Grid) Extractable() bool {
	return g.Resolution.MinComponent() >= 2 && float64(len(g.Values)) == g.Resolution.Cells()
}

// OutsideValue is the density assumed beyond the edges of a grid. It is
// always below isoLevel, so extracted surfaces close at the grid boundary.
func OutsideValue(isoLevel float64) float64 {
	if isoLevel > 0 {
		return 0
	}
	return isoLevel - 1
}

// Extractor turns a density grid into a triangle mesh at isoLevel.
// Cells with a value above isoLevel are inside. The result is a triangle
// soup: three fresh vertices per triangle and triangles[i] == i, wound
// counter-clockwise when seen from outside.
type Extractor interface {
	Extract(g Grid, isoLevel float64) (vertices []geom.Vec3, triangles []int, err error)
}

// Releaser is implemented by extractors that cache buffers between calls.
type Releaser interface {
	Release()
}
