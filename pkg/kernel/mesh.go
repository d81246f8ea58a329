package kernel

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/ubisoft/vrtist-sub002/pkg/geom"
)

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"` // which stroke this came from
}

// FromGeometry packs generator buffers into a render mesh. normals may be
// nil, in which case the mesh has no normals until ComputeNormals runs.
func FromGeometry(vertices, normals []geom.Vec3, triangles []int) *Mesh {
	m := &Mesh{
		Vertices: make([]float32, 0, len(vertices)*3),
		Indices:  make([]uint32, 0, len(triangles)),
	}
	for _, v := range vertices {
		m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
	}
	if normals != nil {
		m.Normals = make([]float32, 0, len(normals)*3)
		for _, n := range normals {
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
		}
	}
	for _, i := range triangles {
		m.Indices = append(m.Indices, uint32(i))
	}
	return m
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Validate checks the structural invariants a renderer relies on:
// whole vertices and triangles, normals paired with vertices, and every
// index in range.
func (m *Mesh) Validate() error {
	if len(m.Vertices)%3 != 0 {
		return fmt.Errorf("mesh %q: vertex buffer length %d is not a multiple of 3", m.PartName, len(m.Vertices))
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("mesh %q: index buffer length %d is not a multiple of 3", m.PartName, len(m.Indices))
	}
	if m.Normals != nil && len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("mesh %q: %d normals for %d vertices", m.PartName, len(m.Normals)/3, m.VertexCount())
	}
	n := uint32(m.VertexCount())
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("mesh %q: index %d at position %d out of range (%d vertices)", m.PartName, idx, i, n)
		}
	}
	return nil
}

// ComputeNormals replaces the normals with smooth per-vertex normals,
// accumulated from area-weighted face normals. Vertices that touch no
// triangle get a zero normal.
func (m *Mesh) ComputeNormals() {
	normals := make([]float32, len(m.Vertices))
	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := m.Indices[t], m.Indices[t+1], m.Indices[t+2]
		ax, ay, az := m.vertex(a)
		bx, by, bz := m.vertex(b)
		cx, cy, cz := m.vertex(c)

		ux, uy, uz := bx-ax, by-ay, bz-az
		vx, vy, vz := cx-ax, cy-ay, cz-az
		// Unnormalised cross product: its length is twice the triangle area.
		nx := uy*vz - uz*vy
		ny := uz*vx - ux*vz
		nz := ux*vy - uy*vx

		for _, i := range [3]uint32{a, b, c} {
			normals[3*i] += nx
			normals[3*i+1] += ny
			normals[3*i+2] += nz
		}
	}
	for i := 0; i+2 < len(normals); i += 3 {
		l := math32.Sqrt(normals[i]*normals[i] + normals[i+1]*normals[i+1] + normals[i+2]*normals[i+2])
		if l > 0 {
			normals[i] /= l
			normals[i+1] /= l
			normals[i+2] /= l
		}
	}
	m.Normals = normals
}

func (m *Mesh) vertex(i uint32) (x, y, z float32) {
	return m.Vertices[3*i], m.Vertices[3*i+1], m.Vertices[3*i+2]
}
