// Package freedraw turns a live stream of pen samples into a tube or a
// flat ribbon mesh. Generators are incremental: each new sample extends
// the mesh, and only the tail that depends on the newest sample is
// rewritten. Index-stable buffers are exposed for upload to a renderer.
//
// Generators are not safe for concurrent use. Samples are mapped into the
// generator's working space through a frame captured at construction.
package freedraw

import (
	"github.com/ubisoft/vrtist-sub002/pkg/geom"
	"github.com/ubisoft/vrtist-sub002/pkg/kernel"
)

// minSeparation is the distance under which two samples always count as
// the same point, even for a zero radius.
const minSeparation = 1e-9

// Options configures a Tube.
type Options struct {
	// Sides is the number of vertices per cross-section ring.
	Sides int `json:"sides" toml:"sides"`
	// Subdivisions is the number of rings emitted per Bezier arc between
	// two control points. With 1, there is exactly one ring per control
	// point.
	Subdivisions int `json:"subdivisions" toml:"subdivisions"`
}

// DefaultOptions returns 8 sides and one ring per control point.
func DefaultOptions() Options {
	return Options{Sides: 8, Subdivisions: 1}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.Sides == 0 {
		o.Sides = d.Sides
	}
	if o.Sides < 3 {
		o.Sides = 3
	}
	if o.Subdivisions < 1 {
		o.Subdivisions = d.Subdivisions
	}
	return o
}

// buffers holds the output mesh shared by both generators.
type buffers struct {
	vertices  []geom.Vec3
	normals   []geom.Vec3
	triangles []int
}

// Vertices returns the vertex buffer. The slice is owned by the generator.
func (b *buffers) Vertices() []geom.Vec3 { return b.vertices }

// Normals returns the per-vertex normals, index-aligned with Vertices.
func (b *buffers) Normals() []geom.Vec3 { return b.normals }

// Triangles returns vertex index triples.
func (b *buffers) Triangles() []int { return b.triangles }

// Mesh packs the current buffers into a render mesh.
func (b *buffers) Mesh() *kernel.Mesh {
	return kernel.FromGeometry(b.vertices, b.normals, b.triangles)
}

func (b *buffers) reset() {
	b.vertices = b.vertices[:0]
	b.normals = b.normals[:0]
	b.triangles = b.triangles[:0]
}

// sameSample reports whether next is close enough to anchor to replace it.
func sameSample(anchor, next geom.Vec3, radius float64) bool {
	d := anchor.Distance(next)
	return d < radius || d <= minSeparation
}

// firstPerp returns a unit vector perpendicular to v. Axis-aligned and
// planar directions pick a coordinate axis, so the result never comes
// from a near-zero cross product.
func firstPerp(v geom.Vec3) geom.Vec3 {
	switch {
	case v.X == 0:
		return geom.V3(1, 0, 0)
	case v.Y == 0:
		return geom.V3(0, 1, 0)
	case v.Z == 0:
		return geom.V3(0, 0, 1)
	}
	return geom.V3(v.Z, v.Z, -(v.X + v.Y)).Normalize()
}

// direction normalises v, falling back to fallback when v is zero.
func direction(v, fallback geom.Vec3) geom.Vec3 {
	if n := v.Normalize(); !n.IsZero() {
		return n
	}
	return fallback.Normalize()
}

func cubicBezier(a, b, c, d geom.Vec3, t float64) geom.Vec3 {
	it := 1 - t
	return a.Scale(it * it * it).
		Add(b.Scale(3 * t * it * it)).
		Add(c.Scale(3 * it * t * t)).
		Add(d.Scale(t * t * t))
}
