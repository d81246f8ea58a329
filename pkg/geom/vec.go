// Package geom holds the small value types shared by the stroke generators:
// vectors, affine matrices and axis-aligned bounds. They are defined on the
// sdfx vector, matrix and box types, so converting to and from sdfx is free.
package geom

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Vec3 is a 3D vector or point.
type Vec3 v3.Vec

// V3 is shorthand for Vec3{X: x, Y: y, Z: z}.
func V3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// FromSDF converts an sdfx vector.
func FromSDF(v v3.Vec) Vec3 {
	return Vec3(v)
}

// SDF returns v as an sdfx vector.
func (v Vec3) SDF() v3.Vec {
	return v3.Vec(v)
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3(v.SDF().Add(o.SDF()))
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3(v.SDF().Sub(o.SDF()))
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3(v.SDF().MulScalar(s))
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v.SDF().Dot(o.SDF())
}

// Cross returns the cross product v x o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3(v.SDF().Cross(o.SDF()))
}

// Length returns the magnitude of v.
func (v Vec3) Length() float64 {
	return v.SDF().Length()
}

// LengthSquared returns the squared magnitude of v.
func (v Vec3) LengthSquared() float64 {
	return v.SDF().Length2()
}

// Distance returns the distance between v and o.
func (v Vec3) Distance(o Vec3) float64 {
	return v.Sub(o).Length()
}

// Normalize returns v scaled to unit length. Unlike the sdfx version, the
// zero vector is returned unchanged.
func (v Vec3) Normalize() Vec3 {
	if v.IsZero() {
		return v
	}
	return Vec3(v.SDF().Normalize())
}

// Lerp interpolates linearly between v (t=0) and o (t=1).
func (v Vec3) Lerp(o Vec3, t float64) Vec3 {
	return v.Add(o.Sub(v).Scale(t))
}

// Abs returns the component-wise absolute value.
func (v Vec3) Abs() Vec3 {
	return Vec3(v.SDF().Abs())
}

// Component returns the i-th component (0=X, 1=Y, 2=Z).
func (v Vec3) Component(i int) float64 {
	return v.SDF().Get(i)
}

// WithComponent returns a copy of v with the i-th component set to f.
func (v Vec3) WithComponent(i int, f float64) Vec3 {
	s := v.SDF()
	s.Set(i, f)
	return Vec3(s)
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vec3) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// IsZero reports whether all components are exactly zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Vec3i is an integer triple, used for grid resolutions and cell indices.
type Vec3i struct {
	X int `json:"x" codec:"x"`
	Y int `json:"y" codec:"y"`
	Z int `json:"z" codec:"z"`
}

// Add returns v + o.
func (v Vec3i) Add(o Vec3i) Vec3i {
	return Vec3i{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Volume returns X*Y*Z. Check Cells first for resolutions that may be
// large enough to overflow.
func (v Vec3i) Volume() int {
	return v.X * v.Y * v.Z
}

// Cells returns X*Y*Z computed in float64, which cannot overflow.
func (v Vec3i) Cells() float64 {
	return float64(v.X) * float64(v.Y) * float64(v.Z)
}

// Component returns the i-th component (0=X, 1=Y, 2=Z).
func (v Vec3i) Component(i int) int {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// WithComponent returns a copy of v with the i-th component set to n.
func (v Vec3i) WithComponent(i, n int) Vec3i {
	switch i {
	case 0:
		v.X = n
	case 1:
		v.Y = n
	default:
		v.Z = n
	}
	return v
}

// MinComponent returns the smallest component.
func (v Vec3i) MinComponent() int {
	return min(v.X, v.Y, v.Z)
}
