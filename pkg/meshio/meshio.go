// Package meshio writes render meshes to Wavefront OBJ, ASCII PLY and STL
// files.
package meshio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/ubisoft/vrtist-sub002/pkg/kernel"
)

// WriteOBJ writes meshes as OBJ objects named after their PartName.
// Indices are offset so every object refers to its own vertices.
func WriteOBJ(w io.Writer, meshes ...*kernel.Mesh) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# vrtist-mesh")

	offset := 1
	for i, m := range meshes {
		name := m.PartName
		if name == "" {
			name = fmt.Sprintf("mesh%d", i)
		}
		fmt.Fprintf(bw, "o %s\n", strings.ReplaceAll(name, " ", "_"))

		for v := 0; v+2 < len(m.Vertices); v += 3 {
			fmt.Fprintf(bw, "v %g %g %g\n", m.Vertices[v], m.Vertices[v+1], m.Vertices[v+2])
		}
		normals := hasNormals(m)
		if normals {
			for n := 0; n+2 < len(m.Normals); n += 3 {
				fmt.Fprintf(bw, "vn %g %g %g\n", m.Normals[n], m.Normals[n+1], m.Normals[n+2])
			}
		}
		for t := 0; t+2 < len(m.Indices); t += 3 {
			a := int(m.Indices[t]) + offset
			b := int(m.Indices[t+1]) + offset
			c := int(m.Indices[t+2]) + offset
			if normals {
				fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", a, a, b, b, c, c)
			} else {
				fmt.Fprintf(bw, "f %d %d %d\n", a, b, c)
			}
		}
		offset += m.VertexCount()
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("meshio: write obj: %w", err)
	}
	return nil
}

// WritePLY writes m as an ASCII PLY with per-vertex normals when present.
func WritePLY(w io.Writer, m *kernel.Mesh) error {
	bw := bufio.NewWriter(w)
	normals := hasNormals(m)

	fmt.Fprintln(bw, "ply")
	fmt.Fprintln(bw, "format ascii 1.0")
	if m.PartName != "" {
		fmt.Fprintf(bw, "comment %s\n", m.PartName)
	}
	fmt.Fprintf(bw, "element vertex %d\n", m.VertexCount())
	fmt.Fprintln(bw, "property float x")
	fmt.Fprintln(bw, "property float y")
	fmt.Fprintln(bw, "property float z")
	if normals {
		fmt.Fprintln(bw, "property float nx")
		fmt.Fprintln(bw, "property float ny")
		fmt.Fprintln(bw, "property float nz")
	}
	fmt.Fprintf(bw, "element face %d\n", m.TriangleCount())
	fmt.Fprintln(bw, "property list uchar int vertex_indices")
	fmt.Fprintln(bw, "end_header")

	for v := 0; v+2 < len(m.Vertices); v += 3 {
		if normals {
			fmt.Fprintf(bw, "%g %g %g %g %g %g\n",
				m.Vertices[v], m.Vertices[v+1], m.Vertices[v+2],
				m.Normals[v], m.Normals[v+1], m.Normals[v+2])
		} else {
			fmt.Fprintf(bw, "%g %g %g\n", m.Vertices[v], m.Vertices[v+1], m.Vertices[v+2])
		}
	}
	for t := 0; t+2 < len(m.Indices); t += 3 {
		fmt.Fprintf(bw, "3 %d %d %d\n", m.Indices[t], m.Indices[t+1], m.Indices[t+2])
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("meshio: write ply: %w", err)
	}
	return nil
}

// Merge concatenates meshes into one, offsetting indices. Normals are kept
// only when every non-empty input has them.
func Merge(meshes ...*kernel.Mesh) *kernel.Mesh {
	out := &kernel.Mesh{}
	normals := len(meshes) > 0
	for _, m := range meshes {
		normals = normals && (m.IsEmpty() || hasNormals(m))
	}
	var names []string
	for _, m := range meshes {
		base := uint32(out.VertexCount())
		out.Vertices = append(out.Vertices, m.Vertices...)
		if normals {
			out.Normals = append(out.Normals, m.Normals...)
		}
		for _, i := range m.Indices {
			out.Indices = append(out.Indices, base+i)
		}
		if m.PartName != "" {
			names = append(names, m.PartName)
		}
	}
	out.PartName = strings.Join(names, "+")
	return out
}

// Triangles converts meshes to sdfx triangles.
func Triangles(meshes ...*kernel.Mesh) []*sdf.Triangle3 {
	var out []*sdf.Triangle3
	for _, m := range meshes {
		vertex := func(i uint32) v3.Vec {
			return v3.Vec{
				X: float64(m.Vertices[3*i]),
				Y: float64(m.Vertices[3*i+1]),
				Z: float64(m.Vertices[3*i+2]),
			}
		}
		for t := 0; t+2 < len(m.Indices); t += 3 {
			out = append(out, &sdf.Triangle3{vertex(m.Indices[t]), vertex(m.Indices[t+1]), vertex(m.Indices[t+2])})
		}
	}
	return out
}

// WriteFile writes meshes to path in the format named by its extension:
// .obj keeps one object per mesh, .ply and .stl merge them.
func WriteFile(path string, meshes ...*kernel.Mesh) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".stl" {
		if err := render.SaveSTL(path, Triangles(meshes...)); err != nil {
			return fmt.Errorf("meshio: %s: %w", path, err)
		}
		return nil
	}
	if ext != ".obj" && ext != ".ply" {
		return fmt.Errorf("meshio: %s: unsupported format %q", path, ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("meshio: %w", err)
	}
	if ext == ".obj" {
		err = WriteOBJ(f, meshes...)
	} else {
		err = WritePLY(f, Merge(meshes...))
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("meshio: %s: %w", path, cerr)
	}
	return err
}

func hasNormals(m *kernel.Mesh) bool {
	return len(m.Normals) > 0 && len(m.Normals) == len(m.Vertices)
}
