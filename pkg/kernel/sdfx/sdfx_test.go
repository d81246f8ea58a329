package sdfx

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/ubisoft/vrtist-sub002/pkg/geom"
	"github.com/ubisoft/vrtist-sub002/pkg/kernel"
)

func ballGrid(c geom.Vec3, r, step float64, n int) kernel.Grid {
	half := float64(n-1) / 2 * step
	g := kernel.Grid{
		Values:     make([]float64, n*n*n),
		Resolution: geom.Vec3i{X: n, Y: n, Z: n},
		StepSize:   step,
		Origin:     c.Sub(geom.V3(half, half, half)),
	}
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				d := g.Position(x, y, z).Distance(c)
				g.Values[g.Index(x, y, z)] = math.Max(0, 1-d/r)
			}
		}
	}
	return g
}

func TestBall(t *testing.T) {
	c := geom.V3(0.1, 0.2, -0.3)
	g := ballGrid(c, 0.2, 0.01, 41)

	verts, tris, err := New(0).Extract(g, 0.5)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(tris) == 0 {
		t.Fatal("expected triangles")
	}
	if len(tris)%3 != 0 || len(tris) != len(verts) {
		t.Fatalf("got %d indices for %d vertices, want a triangle soup", len(tris), len(verts))
	}
	for i, v := range verts {
		if d := v.Distance(c); math.Abs(d-0.1) > 0.015 {
			t.Fatalf("vertex %d at distance %.4f from centre, want ~0.1", i, d)
		}
	}

	var vol float64
	for i := 0; i+2 < len(tris); i += 3 {
		a, b, cc := verts[tris[i]].Sub(c), verts[tris[i+1]].Sub(c), verts[tris[i+2]].Sub(c)
		vol += a.Dot(b.Cross(cc)) / 6
	}
	want := 4.0 / 3.0 * math.Pi * 0.001
	if got := math.Abs(vol); math.Abs(got-want)/want > 0.15 {
		t.Fatalf("enclosed volume %.6f, want ~%.6f", got, want)
	}
	t.Logf("ball triangle count: %d", len(tris)/3)
}

func TestMeshCellsControlsDensity(t *testing.T) {
	g := ballGrid(geom.Vec3{}, 0.2, 0.01, 41)

	_, coarse, err := New(12).Extract(g, 0.5)
	if err != nil {
		t.Fatalf("Extract(12) failed: %v", err)
	}
	_, fine, err := New(48).Extract(g, 0.5)
	if err != nil {
		t.Fatalf("Extract(48) failed: %v", err)
	}
	if len(fine) <= len(coarse) {
		t.Fatalf("finer mesh has %d indices, coarse has %d", len(fine), len(coarse))
	}
}

func TestFieldSDF(t *testing.T) {
	g := kernel.Grid{
		Values:     []float64{0, 1, 0, 1, 0, 1, 0, 1},
		Resolution: geom.Vec3i{X: 2, Y: 2, Z: 2},
		StepSize:   2,
		Origin:     geom.V3(-1, -1, -1),
	}
	f := &fieldSDF{g: g, iso: 0.5, outside: kernel.OutsideValue(0.5)}

	tests := []struct {
		name string
		p    v3.Vec
		want float64
	}{
		{"low corner", v3.Vec{X: -1, Y: -1, Z: -1}, 0.5},
		{"high x corner", v3.Vec{X: 1, Y: -1, Z: -1}, -0.5},
		{"centre", v3.Vec{}, 0},
		{"quarter", v3.Vec{X: 0.5, Y: 0.3, Z: -0.7}, 0.5 - 0.75},
		{"outside", v3.Vec{X: 2, Y: 0, Z: 0}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Evaluate(tt.p); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Evaluate(%v) = %g, want %g", tt.p, got, tt.want)
			}
		})
	}

	bb := f.BoundingBox()
	if bb.Min.X != -3 || bb.Max.Z != 3 {
		t.Errorf("bounding box %v, want [-3,3]^3", bb)
	}
}

func TestEmptyAndInvalid(t *testing.T) {
	e := New(0)

	verts, tris, err := e.Extract(kernel.Grid{Resolution: geom.Vec3i{X: 1, Y: 1, Z: 1}, Values: []float64{1}, StepSize: 1}, 0.5)
	if err != nil || len(verts) != 0 || len(tris) != 0 {
		t.Fatalf("single-cell grid: got %d vertices, %d indices, err %v", len(verts), len(tris), err)
	}

	if _, _, err := e.Extract(kernel.Grid{Resolution: geom.Vec3i{X: 2, Y: 2, Z: 2}, Values: make([]float64, 3), StepSize: 1}, 0.5); err == nil {
		t.Fatal("expected error for short value buffer")
	}
}
