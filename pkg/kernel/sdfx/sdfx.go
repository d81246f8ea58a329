// Package sdfx implements kernel.Extractor using the marching cubes
// renderer of the github.com/deadsy/sdfx SDF library. The density grid is
// exposed to sdfx as a signed distance-like field through trilinear
// interpolation.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/ubisoft/vrtist-sub002/pkg/geom"
	"github.com/ubisoft/vrtist-sub002/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Extractor = (*Extractor)(nil)

// Extractor implements kernel.Extractor using sdfx.
type Extractor struct {
	meshCells int
}

// New returns an extractor. meshCells controls the marching cubes
// resolution along the longest axis of the grid; meshCells <= 0 picks one
// cube per grid cell.
func New(meshCells int) *Extractor {
	return &Extractor{meshCells: meshCells}
}

// fieldSDF wraps a kernel.Grid to implement sdf.SDF3. sdfx treats negative
// values as inside, so Evaluate returns isoLevel minus the density.
type fieldSDF struct {
	g       kernel.Grid
	iso     float64
	outside float64
}

// Evaluate returns the signed field value at p.
func (f *fieldSDF) Evaluate(p v3.Vec) float64 {
	return f.iso - f.density(p)
}

// BoundingBox returns the grid extent padded by one step on every side,
// so surfaces touching the grid boundary close.
func (f *fieldSDF) BoundingBox() sdf.Box3 {
	hi := f.g.Position(f.g.Resolution.X-1, f.g.Resolution.Y-1, f.g.Resolution.Z-1)
	s := 2 * f.g.StepSize
	return geom.BoundsFromMinMax(f.g.Origin, hi).SDF().Enlarge(v3.Vec{X: s, Y: s, Z: s})
}

// density trilinearly interpolates the grid at p.
func (f *fieldSDF) density(p v3.Vec) float64 {
	var i [3]int
	var t [3]float64
	rel := [3]float64{
		(p.X - f.g.Origin.X) / f.g.StepSize,
		(p.Y - f.g.Origin.Y) / f.g.StepSize,
		(p.Z - f.g.Origin.Z) / f.g.StepSize,
	}
	for a := 0; a < 3; a++ {
		n := f.g.Resolution.Component(a)
		if rel[a] < 0 || rel[a] > float64(n-1) {
			return f.outside
		}
		i[a] = min(int(math.Floor(rel[a])), n-2)
		t[a] = rel[a] - float64(i[a])
	}

	lerp := func(a, b, t float64) float64 { return a + (b-a)*t }
	at := func(dx, dy, dz int) float64 { return f.g.At(i[0]+dx, i[1]+dy, i[2]+dz) }

	c00 := lerp(at(0, 0, 0), at(1, 0, 0), t[0])
	c10 := lerp(at(0, 1, 0), at(1, 1, 0), t[0])
	c01 := lerp(at(0, 0, 1), at(1, 0, 1), t[0])
	c11 := lerp(at(0, 1, 1), at(1, 1, 1), t[0])
	return lerp(lerp(c00, c10, t[1]), lerp(c01, c11, t[1]), t[2])
}

// Extract polygonises g at isoLevel using marching cubes.
func (e *Extractor) Extract(g kernel.Grid, isoLevel float64) ([]geom.Vec3, []int, error) {
	if g.StepSize <= 0 {
		return nil, nil, fmt.Errorf("sdfx: step size must be positive, got %g", g.StepSize)
	}
	if float64(len(g.Values)) != g.Resolution.Cells() {
		return nil, nil, fmt.Errorf("sdfx: %d values for resolution %dx%dx%d",
			len(g.Values), g.Resolution.X, g.Resolution.Y, g.Resolution.Z)
	}
	if !g.Extractable() {
		return nil, nil, nil
	}

	cells := e.meshCells
	if cells <= 0 {
		r := g.Resolution
		cells = max(r.X, r.Y, r.Z) + 1
	}

	field := &fieldSDF{g: g, iso: isoLevel, outside: kernel.OutsideValue(isoLevel)}
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(field, renderer)

	vertices := make([]geom.Vec3, 0, len(triangles)*3)
	for _, tri := range triangles {
		for _, v := range tri {
			vertices = append(vertices, geom.FromSDF(v))
		}
	}
	indices := make([]int, len(vertices))
	for i := range indices {
		indices[i] = i
	}
	return vertices, indices, nil
}
