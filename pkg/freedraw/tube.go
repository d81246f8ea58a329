package freedraw

import (
	"fmt"
	"math"

	"github.com/ubisoft/vrtist-sub002/pkg/geom"
)

// Tube sweeps a circular cross-section along a piecewise cubic Bezier
// path through the control points.
//
// The path is sampled into line points, one ring of Sides vertices per
// line point. Ring i occupies vertices [i*Sides, (i+1)*Sides) and the quad
// strip between rings i and i+1 occupies triangle indices
// [i*6*Sides, (i+1)*6*Sides). Control point k sits on ring k*Subdivisions.
type Tube struct {
	buffers

	frame geom.Matrix4
	scale float64
	opts  Options

	points []geom.Vec3
	radii  []float64
	anchor geom.Vec3

	line       []geom.Vec3
	lineRadius []float64

	// scratch for reorder
	ring, ringNormals []geom.Vec3
}

// NewTube returns an empty tube working in the space defined by frame.
// Zero options fields take their defaults.
func NewTube(frame geom.Matrix4, opts Options) *Tube {
	return &Tube{
		frame: frame,
		scale: frame.LossyScaleX(),
		opts:  opts.normalized(),
	}
}

// NewTubeFromPoints replays a recorded stroke with an identity frame.
func NewTubeFromPoints(points []geom.Vec3, radii []float64, opts Options) (*Tube, error) {
	if len(points) != len(radii) {
		return nil, fmt.Errorf("freedraw: %d points but %d radii", len(points), len(radii))
	}
	t := NewTube(geom.Identity(), opts)
	for i, p := range points {
		t.AddControlPoint(p, radii[i])
	}
	return t, nil
}

// Options returns the effective options.
func (t *Tube) Options() Options { return t.opts }

// ControlPoints returns the accepted control points in working space.
func (t *Tube) ControlPoints() []geom.Vec3 { return t.points }

// Radii returns the working-space radius of each control point.
func (t *Tube) Radii() []float64 { return t.radii }

// LinePoints returns the ring centres.
func (t *Tube) LinePoints() []geom.Vec3 { return t.line }

// AddControlPoint appends a sample. A sample closer than its radius to the
// last appended control point replaces the last control point instead.
func (t *Tube) AddControlPoint(point geom.Vec3, radius float64) {
	next := t.frame.MulPoint(point)
	r := t.scale * radius

	if n := len(t.points); n > 0 && sameSample(t.anchor, next, r) {
		t.points[n-1] = next
		t.radii[n-1] = r
	} else {
		t.points = append(t.points, next)
		t.radii = append(t.radii, r)
		t.anchor = next
	}
	t.rebuildTail()
}

// Reset clears every buffer. The frame and options are kept.
func (t *Tube) Reset() {
	t.buffers.reset()
	t.points = t.points[:0]
	t.radii = t.radii[:0]
	t.anchor = geom.Vec3{}
	t.line = t.line[:0]
	t.lineRadius = t.lineRadius[:0]
}

// rebuildTail re-tessellates the arcs that depend on the newest control
// point: the arc ending at it, and the arc before that, whose end handle
// is aimed through it.
func (t *Tube) rebuildTail() {
	m := len(t.points) - 1
	if m == 0 {
		t.truncate(0)
		t.appendLinePoint(t.points[0], t.radii[0])
		return
	}

	steps := t.opts.Subdivisions
	first := max(m-2, 0)
	t.truncate(first*steps + 1)

	for seg := first; seg < m; seg++ {
		a, b, c, d := t.handles(seg)
		ra, rd := t.radii[seg], t.radii[seg+1]
		for i := 1; i < steps; i++ {
			u := float64(i) / float64(steps)
			t.appendLinePoint(cubicBezier(a, b, c, d, u), ra+u*(rd-ra))
		}
		t.appendLinePoint(d, rd)
	}
}

// handles returns the Bezier control polygon of the arc from control point
// i to i+1. Handles sit a third of the chord away from the end points,
// aimed along the chord joining the neighbouring control points.
func (t *Tube) handles(i int) (a, b, c, d geom.Vec3) {
	a, d = t.points[i], t.points[i+1]
	chord := d.Sub(a)
	third := chord.Length() / 3

	out := chord
	if i >= 1 {
		out = d.Sub(t.points[i-1])
	}
	in := chord
	if i+2 < len(t.points) {
		in = t.points[i+2].Sub(a)
	}
	b = a.Add(direction(out, chord).Scale(third))
	c = d.Sub(direction(in, chord).Scale(third))
	return a, b, c, d
}

// truncate keeps the first n rings and the strips between them.
func (t *Tube) truncate(n int) {
	s := t.opts.Sides
	t.line = t.line[:n]
	t.lineRadius = t.lineRadius[:n]
	t.vertices = t.vertices[:n*s]
	t.normals = t.normals[:n*s]
	t.triangles = t.triangles[:max(n-1, 0)*6*s]
}

// appendLinePoint adds a ring centred on next. The previous ring is
// re-oriented to the tangent through its neighbours, both rings are
// rotated to line up with their predecessor, and the strip between them is
// stitched.
func (t *Tube) appendLinePoint(next geom.Vec3, r float64) {
	s := t.opts.Sides
	idx := len(t.line)
	t.line = append(t.line, next)
	t.lineRadius = append(t.lineRadius, r)
	for i := 0; i < s; i++ {
		t.vertices = append(t.vertices, geom.Vec3{})
		t.normals = append(t.normals, geom.Vec3{})
	}

	dir := geom.V3(1, 0, 0)
	if idx > 0 {
		curr := t.line[idx-1]
		step := next.Sub(curr)
		span := step
		if idx >= 2 {
			span = next.Sub(t.line[idx-2])
		}
		dir = direction(span, step)
		if dir.IsZero() {
			dir = geom.V3(1, 0, 0)
		}

		t.writeRing(idx-1, curr, dir, t.lineRadius[idx-1])
		if idx > 1 {
			t.reorder(idx - 1)
		}
	}

	t.writeRing(idx, next, dir, r)
	if idx > 0 {
		t.reorder(idx)
		t.stitch(idx - 1)
	}
}

// writeRing places ring k around centre in the plane perpendicular to dir.
// Normals are the unit radial directions.
func (t *Tube) writeRing(k int, centre, dir geom.Vec3, r float64) {
	s := t.opts.Sides
	u := firstPerp(dir)
	v := dir.Cross(u).Normalize()
	for j := 0; j < s; j++ {
		angle := 2 * math.Pi * float64(j) / float64(s)
		radial := u.Scale(math.Cos(angle)).Add(v.Scale(math.Sin(angle)))
		t.vertices[k*s+j] = centre.Add(radial.Scale(r))
		t.normals[k*s+j] = radial
	}
}

// reorder cyclically rotates ring k so that the summed squared distance to
// ring k-1, vertex for vertex, is minimal. Ties keep the smallest shift.
func (t *Tube) reorder(k int) {
	s := t.opts.Sides
	cur := t.vertices[k*s : (k+1)*s]
	curN := t.normals[k*s : (k+1)*s]
	prev := t.vertices[(k-1)*s : k*s]

	best, bestCost := 0, math.Inf(1)
	for shift := 0; shift < s; shift++ {
		var cost float64
		for j := 0; j < s; j++ {
			cost += cur[(j+shift)%s].Sub(prev[j]).LengthSquared()
		}
		if cost < bestCost {
			best, bestCost = shift, cost
		}
	}
	if best == 0 {
		return
	}

	t.ring = append(t.ring[:0], cur...)
	t.ringNormals = append(t.ringNormals[:0], curN...)
	for j := 0; j < s; j++ {
		cur[j] = t.ring[(j+best)%s]
		curN[j] = t.ringNormals[(j+best)%s]
	}
}

// stitch appends the quad strip joining ring k to ring k+1, wound counter
// clockwise seen from outside the tube.
func (t *Tube) stitch(k int) {
	s := t.opts.Sides
	v := k * s
	for q := 0; q < s-1; q++ {
		t.triangles = append(t.triangles,
			v+q, v+q+1, v+q+s,
			v+q+1, v+q+s+1, v+q+s,
		)
	}
	t.triangles = append(t.triangles,
		v+s-1, v, v+2*s-1,
		v, v+s, v+2*s-1,
	)
}
