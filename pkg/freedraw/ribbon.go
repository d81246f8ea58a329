package freedraw

import "github.com/ubisoft/vrtist-sub002/pkg/geom"

// Ribbon builds a flat strip oriented by an external normal per sample.
// Control point i owns vertices 2i (left) and 2i+1 (right); the quad
// between points i-1 and i owns triangle indices [6(i-1), 6i).
type Ribbon struct {
	buffers

	frame geom.Matrix4
	scale float64

	points       []geom.Vec3
	pointNormals []geom.Vec3
	widths       []float64
	anchor       geom.Vec3
	side         geom.Vec3
}

// NewRibbon returns an empty ribbon working in the space defined by frame.
func NewRibbon(frame geom.Matrix4) *Ribbon {
	return &Ribbon{frame: frame, scale: frame.LossyScaleX()}
}

// ControlPoints returns the accepted control points in working space.
func (r *Ribbon) ControlPoints() []geom.Vec3 { return r.points }

// SurfaceNormals returns the unit working-space normal of each control point.
func (r *Ribbon) SurfaceNormals() []geom.Vec3 { return r.pointNormals }

// Widths returns the working-space half-width at each control point.
func (r *Ribbon) Widths() []float64 { return r.widths }

// AddFlatLineControlPoint appends a sample with its surface normal and
// half-width. A sample closer than length to the last appended point
// replaces the last point instead.
func (r *Ribbon) AddFlatLineControlPoint(point, normal geom.Vec3, length float64) {
	next := r.frame.MulPoint(point)
	n := r.frame.MulDirection(normal).Normalize()
	w := r.scale * length

	size := len(r.points)
	if size > 0 && sameSample(r.anchor, next, w) {
		size--
	} else {
		r.anchor = next
	}

	r.points = append(r.points[:size], next)
	r.pointNormals = append(r.pointNormals[:size], n)
	r.widths = append(r.widths[:size], w)
	r.vertices = r.vertices[:2*size]
	r.normals = r.normals[:2*size]
	r.triangles = r.triangles[:6*max(size-1, 0)]

	if size == 0 {
		side := direction(n.Cross(geom.V3(0, 0, 1)), firstPerp(n))
		r.side = side
		r.vertices = append(r.vertices, next.Add(side.Scale(w)), next.Sub(side.Scale(w)))
		r.normals = append(r.normals, n, n)
		return
	}

	prev := r.points[size-1]
	dir := next.Sub(prev).Normalize()
	side := n.Cross(dir).Normalize()
	if side.IsZero() {
		side = r.side
	}
	r.side = side

	pw := r.widths[size-1]
	r.vertices[2*(size-1)] = prev.Add(side.Scale(pw))
	r.vertices[2*(size-1)+1] = prev.Sub(side.Scale(pw))

	r.vertices = append(r.vertices, next.Add(side.Scale(w)), next.Sub(side.Scale(w)))
	r.normals = append(r.normals, n, n)
	r.triangles = append(r.triangles,
		2*size-2, 2*size-1, 2*size+1,
		2*size-2, 2*size+1, 2*size,
	)
}

// Reset clears every buffer. The frame is kept.
func (r *Ribbon) Reset() {
	r.buffers.reset()
	r.points = r.points[:0]
	r.pointNormals = r.pointNormals[:0]
	r.widths = r.widths[:0]
	r.anchor = geom.Vec3{}
	r.side = geom.Vec3{}
}
