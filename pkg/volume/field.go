package volume

import (
	"math"

	"github.com/ubisoft/vrtist-sub002/pkg/geom"
	"github.com/ubisoft/vrtist-sub002/pkg/kernel"
)

// stepEpsilon absorbs rounding when a distance is converted to a whole
// number of steps.
const stepEpsilon = 1e-9

// grow makes the lattice cover the sphere (point, radius). The first
// deposit centres an even number of cells on point; later deposits add
// whole steps on the sides the sphere protrudes from. Growth past MaxCells
// is refused.
func (g *Generator) grow(point geom.Vec3, radius float64) {
	step := g.stepSize

	if len(g.field) == 0 {
		n := 2*steps(radius, step) + 1
		if !g.fits(n, n, n) {
			return
		}
		half := int(n) / 2
		res := geom.Vec3i{X: int(n), Y: int(n), Z: int(n)}
		g.base = point.Sub(geom.V3(1, 1, 1).Scale(float64(half) * step))
		g.shift = geom.Vec3i{}
		g.resolution = res
		g.field = make([]float64, res.Volume())
		g.syncOrigin()
		g.syncBounds()
		return
	}

	// Step counts stay in float64 until the cap check so an oversized
	// sphere cannot overflow int.
	var neg, pos, size [3]float64
	lo := g.origin
	hi := g.grid().Position(g.resolution.X-1, g.resolution.Y-1, g.resolution.Z-1)
	grown := false
	for a := 0; a < 3; a++ {
		p := point.Component(a)
		if d := lo.Component(a) - (p - radius); d > 0 {
			neg[a] = steps(d, step)
			grown = true
		}
		if d := (p + radius) - hi.Component(a); d > 0 {
			pos[a] = steps(d, step)
			grown = true
		}
		size[a] = float64(g.resolution.Component(a)) + neg[a] + pos[a]
	}
	if !grown || !g.fits(size[0], size[1], size[2]) {
		return
	}

	res := geom.Vec3i{X: int(size[0]), Y: int(size[1]), Z: int(size[2])}
	g.resize(res, geom.Vec3i{X: int(neg[0]), Y: int(neg[1]), Z: int(neg[2])})
}

// steps returns the whole number of steps needed to cover d.
func steps(d, step float64) float64 {
	return math.Ceil(d/step - stepEpsilon)
}

// fits reports whether an x*y*z lattice stays within MaxCells. NaN sizes
// never fit.
func (g *Generator) fits(x, y, z float64) bool {
	return x*y*z <= float64(g.cfg.MaxCells)
}

// resize reallocates the field at res and copies the old values so that
// old cell (x, y, z) becomes (x, y, z) + offset.
func (g *Generator) resize(res, offset geom.Vec3i) {
	old, oldRes := g.field, g.resolution
	field := make([]float64, res.Volume())
	for z := 0; z < oldRes.Z; z++ {
		for y := 0; y < oldRes.Y; y++ {
			src := oldRes.X * (y + oldRes.Y*z)
			dst := offset.X + res.X*((y+offset.Y)+res.Y*(z+offset.Z))
			copy(field[dst:dst+oldRes.X], old[src:src+oldRes.X])
		}
	}
	g.field = field
	g.resolution = res
	g.shift = g.shift.Add(offset)
	g.syncOrigin()
	g.syncBounds()
}

func (g *Generator) syncOrigin() {
	g.origin = geom.Vec3{
		X: g.base.X - float64(g.shift.X)*g.stepSize,
		Y: g.base.Y - float64(g.shift.Y)*g.stepSize,
		Z: g.base.Z - float64(g.shift.Z)*g.stepSize,
	}
}

// syncBounds sets the bounds to the box spanned by the lattice nodes.
func (g *Generator) syncBounds() {
	g.bounds = latticeBounds(g.grid())
}

// latticeBounds returns the box from the first to the last node of grid,
// or the zero box for an empty grid.
func latticeBounds(grid kernel.Grid) geom.Bounds {
	r := grid.Resolution
	if r.X <= 0 || r.Y <= 0 || r.Z <= 0 {
		return geom.Bounds{}
	}
	return geom.BoundsFromMinMax(grid.Origin, grid.Position(r.X-1, r.Y-1, r.Z-1))
}

// addMatter adds strength*clamp01(1 - d/radius) to every cell within
// radius of point. Grids thinner than two cells are left untouched.
func (g *Generator) addMatter(point geom.Vec3, radius, strength float64) {
	if g.resolution.MinComponent() < 2 {
		return
	}
	grid := g.grid()

	var lo, hi [3]int
	for a := 0; a < 3; a++ {
		c := (point.Component(a) - g.origin.Component(a)) / g.stepSize
		r := radius / g.stepSize
		lo[a] = int(max(math.Floor(c-r), 0))
		hi[a] = int(min(math.Ceil(c+r), float64(g.resolution.Component(a)-1)))
	}

	for z := lo[2]; z <= hi[2]; z++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for x := lo[0]; x <= hi[0]; x++ {
				d := grid.Position(x, y, z).Distance(point)
				if influence := 1 - d/radius; influence > 0 {
					g.field[grid.Index(x, y, z)] += strength * min(influence, 1)
				}
			}
		}
	}
}

// Value returns the density of cell (x, y, z), or 0 outside the grid.
func (g *Generator) Value(x, y, z int) float64 {
	r := g.resolution
	if x < 0 || y < 0 || z < 0 || x >= r.X || y >= r.Y || z >= r.Z {
		return 0
	}
	return g.grid().At(x, y, z)
}

// CellAt returns the cell nearest to the working-space position p, and
// whether it lies inside the grid.
func (g *Generator) CellAt(p geom.Vec3) (geom.Vec3i, bool) {
	if g.resolution.Volume() == 0 {
		return geom.Vec3i{}, false
	}
	var c geom.Vec3i
	for a := 0; a < 3; a++ {
		i := int(math.Round((p.Component(a) - g.origin.Component(a)) / g.stepSize))
		if i < 0 || i >= g.resolution.Component(a) {
			return geom.Vec3i{}, false
		}
		c = c.WithComponent(a, i)
	}
	return c, true
}

// ValueAt returns the density of the cell nearest to p, or 0 outside the
// grid.
func (g *Generator) ValueAt(p geom.Vec3) float64 {
	c, ok := g.CellAt(p)
	if !ok {
		return 0
	}
	return g.Value(c.X, c.Y, c.Z)
}
