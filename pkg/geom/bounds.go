package geom

import (
	"github.com/deadsy/sdfx/sdf"
)

// Bounds is an axis-aligned box. The zero value is the empty box at the
// origin.
type Bounds sdf.Box3

// NewBounds returns a box centred on center with the given full size.
func NewBounds(center, size Vec3) Bounds {
	return Bounds(sdf.NewBox3(center.SDF(), size.SDF()))
}

// BoundsFromMinMax returns the box spanning lo..hi.
func BoundsFromMinMax(lo, hi Vec3) Bounds {
	return Bounds{Min: lo.SDF(), Max: hi.SDF()}
}

// SDF returns b as an sdfx box.
func (b Bounds) SDF() sdf.Box3 {
	return sdf.Box3(b)
}

// Lo returns the lowest corner.
func (b Bounds) Lo() Vec3 {
	return FromSDF(b.Min)
}

// Hi returns the highest corner.
func (b Bounds) Hi() Vec3 {
	return FromSDF(b.Max)
}

// Center returns the centre of the box.
func (b Bounds) Center() Vec3 {
	return FromSDF(b.SDF().Center())
}

// Size returns the full size along each axis.
func (b Bounds) Size() Vec3 {
	return FromSDF(b.SDF().Size())
}

// IsEmpty reports whether the box has zero size.
func (b Bounds) IsEmpty() bool {
	return b.Size().IsZero()
}

// Equals reports whether both corners of b and o agree within tol.
func (b Bounds) Equals(o Bounds, tol float64) bool {
	return b.SDF().Equals(o.SDF(), tol)
}

// Contains reports whether p lies inside the box, with tolerance eps.
func (b Bounds) Contains(p Vec3, eps float64) bool {
	return b.SDF().Enlarge(V3(2*eps, 2*eps, 2*eps).SDF()).Contains(p.SDF())
}

// ContainsBounds reports whether o lies entirely inside b.
func (b Bounds) ContainsBounds(o Bounds, eps float64) bool {
	return b.Contains(o.Lo(), eps) && b.Contains(o.Hi(), eps)
}

// ContainsSphere reports whether the axis-aligned box around the sphere
// (c, r) lies inside b.
func (b Bounds) ContainsSphere(c Vec3, r float64, eps float64) bool {
	ext := V3(r, r, r)
	return b.Contains(c.Sub(ext), eps) && b.Contains(c.Add(ext), eps)
}
