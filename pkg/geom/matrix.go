package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
)

// Matrix4 is a row-major affine transform. Points are column vectors, so
// a.Mul(b) applies b first, then a.
type Matrix4 sdf.M44

// Identity returns the identity transform.
func Identity() Matrix4 {
	return Matrix4(sdf.Identity3d())
}

// Translation returns a transform moving points by t.
func Translation(t Vec3) Matrix4 {
	return Matrix4(sdf.Translate3d(t.SDF()))
}

// Scaling returns a transform scaling points by s along each axis.
func Scaling(s Vec3) Matrix4 {
	return Matrix4(sdf.Scale3d(s.SDF()))
}

// RotationEuler returns a rotation by Euler angles in degrees, applied
// around X first, then Y, then Z.
func RotationEuler(deg Vec3) Matrix4 {
	r := deg.Scale(math.Pi / 180)
	return Matrix4(sdf.RotateZ(r.Z).Mul(sdf.RotateY(r.Y)).Mul(sdf.RotateX(r.X)))
}

// TRS composes translation, rotation (Euler degrees) and uniform scale.
func TRS(t, rotDeg Vec3, scale float64) Matrix4 {
	return Translation(t).Mul(RotationEuler(rotDeg)).Mul(Scaling(V3(scale, scale, scale)))
}

// SDF returns m as an sdfx matrix.
func (m Matrix4) SDF() sdf.M44 {
	return sdf.M44(m)
}

// Mul returns m * o.
func (m Matrix4) Mul(o Matrix4) Matrix4 {
	return Matrix4(m.SDF().Mul(o.SDF()))
}

// MulPoint transforms a point (translation applies).
func (m Matrix4) MulPoint(p Vec3) Vec3 {
	return FromSDF(m.SDF().MulPosition(p.SDF()))
}

// MulDirection transforms a direction (translation ignored).
func (m Matrix4) MulDirection(d Vec3) Vec3 {
	return Vec3{
		X: m[0]*d.X + m[1]*d.Y + m[2]*d.Z,
		Y: m[4]*d.X + m[5]*d.Y + m[6]*d.Z,
		Z: m[8]*d.X + m[9]*d.Y + m[10]*d.Z,
	}
}

// LossyScaleX returns the length of the transformed X axis. For a TRS
// matrix with uniform scale s this is |s|.
func (m Matrix4) LossyScaleX() float64 {
	return V3(m[0], m[4], m[8]).Length()
}
