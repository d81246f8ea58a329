// Package march implements kernel.Extractor with marching tetrahedra over
// the exact voxel lattice of the grid. Each cube is split into the six
// tetrahedra around its main diagonal, so neighbouring cubes always agree
// on shared faces and the surface is watertight without an ambiguity
// table. The grid is padded by one cell of outside density, which closes
// surfaces that touch the grid boundary.
package march

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/ubisoft/vrtist-sub002/pkg/geom"
	"github.com/ubisoft/vrtist-sub002/pkg/kernel"
)

// Compile-time interface checks.
var (
	_ kernel.Extractor = (*Extractor)(nil)
	_ kernel.Releaser  = (*Extractor)(nil)
)

// snapEpsilon is how close, as a fraction of the edge, a crossing must be
// to a corner to land on it.
const snapEpsilon = 1e-9

// tetrahedra lists the corner indices of the six tetrahedra sharing the
// 0-7 diagonal. Corner i sits at offset (i&1, i>>1&1, i>>2&1).
var tetrahedra = [6][4]int{
	{0, 1, 3, 7},
	{0, 1, 5, 7},
	{0, 2, 3, 7},
	{0, 2, 6, 7},
	{0, 4, 5, 7},
	{0, 4, 6, 7},
}

// Extractor runs marching tetrahedra on a pool of workers, one z-slab of
// cubes per task. Slab buffers are kept between calls and reallocated only
// when the grid resolution changes.
type Extractor struct {
	workers int

	mu    sync.Mutex
	key   geom.Vec3i
	slabs [][]geom.Vec3
}

// New returns an extractor using the given number of workers.
// workers <= 0 means runtime.NumCPU().
func New(workers int) *Extractor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Extractor{workers: workers}
}

// Workers returns the size of the worker pool.
func (e *Extractor) Workers() int {
	return e.workers
}

// Release drops the cached slab buffers.
func (e *Extractor) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.slabs = nil
	e.key = geom.Vec3i{}
}

// Extract polygonises g at isoLevel. Grids too small to hold a cube
// produce an empty mesh.
func (e *Extractor) Extract(g kernel.Grid, isoLevel float64) ([]geom.Vec3, []int, error) {
	if g.StepSize <= 0 {
		return nil, nil, fmt.Errorf("march: step size must be positive, got %g", g.StepSize)
	}
	if float64(len(g.Values)) != g.Resolution.Cells() {
		return nil, nil, fmt.Errorf("march: %d values for resolution %dx%dx%d",
			len(g.Values), g.Resolution.X, g.Resolution.Y, g.Resolution.Z)
	}
	if !g.Extractable() {
		return nil, nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// One slab per layer of cubes, including the padding layer at z = -1.
	numSlabs := g.Resolution.Z + 1
	if e.key != g.Resolution || len(e.slabs) != numSlabs {
		e.slabs = make([][]geom.Vec3, numSlabs)
		e.key = g.Resolution
	}

	s := sampler{g: g, iso: isoLevel, outside: kernel.OutsideValue(isoLevel)}

	tasks := make(chan int, numSlabs)
	for i := 0; i < numSlabs; i++ {
		tasks <- i
	}
	close(tasks)

	var wg sync.WaitGroup
	for w := 0; w < min(e.workers, numSlabs); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range tasks {
				e.slabs[i] = s.slab(i-1, e.slabs[i][:0])
			}
		}()
	}
	wg.Wait()

	total := 0
	for _, sl := range e.slabs {
		total += len(sl)
	}
	vertices := make([]geom.Vec3, 0, total)
	for _, sl := range e.slabs {
		vertices = append(vertices, sl...)
	}
	triangles := make([]int, len(vertices))
	for i := range triangles {
		triangles[i] = i
	}
	return vertices, triangles, nil
}

// sampler reads the padded grid.
type sampler struct {
	g       kernel.Grid
	iso     float64
	outside float64
}

func (s *sampler) value(x, y, z int) float64 {
	r := s.g.Resolution
	if x < 0 || y < 0 || z < 0 || x >= r.X || y >= r.Y || z >= r.Z {
		return s.outside
	}
	return s.g.At(x, y, z)
}

// slab polygonises every cube whose lowest corner has the given z,
// appending triangle vertices to out.
func (s *sampler) slab(z int, out []geom.Vec3) []geom.Vec3 {
	r := s.g.Resolution
	var p [8]geom.Vec3
	var v [8]float64
	for y := -1; y < r.Y; y++ {
		for x := -1; x < r.X; x++ {
			inside := 0
			for i := 0; i < 8; i++ {
				cx, cy, cz := x+i&1, y+(i>>1)&1, z+(i>>2)&1
				v[i] = s.value(cx, cy, cz)
				if v[i] > s.iso {
					inside++
				}
			}
			if inside == 0 || inside == 8 {
				continue
			}
			for i := 0; i < 8; i++ {
				p[i] = s.g.Position(x+i&1, y+(i>>1)&1, z+(i>>2)&1)
			}
			for _, t := range tetrahedra {
				out = s.tetra(
					[4]geom.Vec3{p[t[0]], p[t[1]], p[t[2]], p[t[3]]},
					[4]float64{v[t[0]], v[t[1]], v[t[2]], v[t[3]]},
					out,
				)
			}
		}
	}
	return out
}

// tetra emits the zero, one or two triangles where the isosurface cuts a
// tetrahedron.
func (s *sampler) tetra(p [4]geom.Vec3, v [4]float64, out []geom.Vec3) []geom.Vec3 {
	var in, ex [4]int
	ni, ne := 0, 0
	for i := 0; i < 4; i++ {
		if v[i] > s.iso {
			in[ni] = i
			ni++
		} else {
			ex[ne] = i
			ne++
		}
	}
	if ni == 0 || ni == 4 {
		return out
	}

	// Outward direction for this tetrahedron: from the inside corners
	// towards the outside ones.
	var cin, cex geom.Vec3
	for i := 0; i < ni; i++ {
		cin = cin.Add(p[in[i]])
	}
	for i := 0; i < ne; i++ {
		cex = cex.Add(p[ex[i]])
	}
	outward := cex.Scale(1 / float64(ne)).Sub(cin.Scale(1 / float64(ni)))

	// Crossings within snapEpsilon of a corner land exactly on it, so every
	// tetrahedron sharing the corner computes the same vertex and the
	// slivers between them collapse to zero area.
	edge := func(a, b int) geom.Vec3 {
		t := (s.iso - v[a]) / (v[b] - v[a])
		switch {
		case t < snapEpsilon:
			return p[a]
		case t > 1-snapEpsilon:
			return p[b]
		}
		return p[a].Lerp(p[b], t)
	}

	switch ni {
	case 1:
		a := in[0]
		out = emit(out, outward, edge(a, ex[0]), edge(a, ex[1]), edge(a, ex[2]))
	case 3:
		a := ex[0]
		out = emit(out, outward, edge(in[0], a), edge(in[1], a), edge(in[2], a))
	case 2:
		a, b := in[0], in[1]
		c, d := ex[0], ex[1]
		q0, q1, q2, q3 := edge(a, c), edge(a, d), edge(b, d), edge(b, c)
		out = emit(out, outward, q0, q1, q2)
		out = emit(out, outward, q0, q2, q3)
	}
	return out
}

// emit appends triangle abc wound so that its normal agrees with outward.
// Zero-area triangles, which appear when crossings snap to a shared
// corner, are dropped.
func emit(out []geom.Vec3, outward, a, b, c geom.Vec3) []geom.Vec3 {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.LengthSquared() == 0 {
		return out
	}
	if n.Dot(outward) < 0 {
		b, c = c, b
	}
	return append(out, a, b, c)
}
