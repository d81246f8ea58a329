package meshio

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubisoft/vrtist-sub002/pkg/kernel"
)

func quad(name string, x float32) *kernel.Mesh {
	return &kernel.Mesh{
		Vertices: []float32{x, 0, 0, x + 1, 0, 0, x + 1, 1, 0, x, 1, 0},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:  []uint32{0, 1, 2, 0, 2, 3},
		PartName: name,
	}
}

func linesWithPrefix(text, prefix string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		if strings.HasPrefix(sc.Text(), prefix) {
			out = append(out, sc.Text())
		}
	}
	return out
}

func TestWriteOBJOffsetsIndices(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOBJ(&buf, quad("left", 0), quad("right wing", 2)))
	out := buf.String()

	assert.Equal(t, []string{"o left", "o right_wing"}, linesWithPrefix(out, "o "))
	assert.Len(t, linesWithPrefix(out, "v "), 8)
	assert.Len(t, linesWithPrefix(out, "vn "), 8)

	faces := linesWithPrefix(out, "f ")
	require.Len(t, faces, 4)
	assert.Equal(t, "f 1//1 2//2 3//3", faces[0])
	assert.Equal(t, "f 5//5 7//7 8//8", faces[3])
}

func TestWriteOBJWithoutNormals(t *testing.T) {
	m := quad("", 0)
	m.Normals = nil
	var buf bytes.Buffer
	require.NoError(t, WriteOBJ(&buf, m))

	out := buf.String()
	assert.Contains(t, out, "o mesh0\n")
	assert.Empty(t, linesWithPrefix(out, "vn "))
	assert.Equal(t, "f 1 3 4", linesWithPrefix(out, "f ")[1])
}

func TestWritePLY(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePLY(&buf, quad("q", 0)))
	out := buf.String()

	header, body, ok := strings.Cut(out, "end_header\n")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(header, "ply\nformat ascii 1.0\n"))
	assert.Contains(t, header, "element vertex 4\n")
	assert.Contains(t, header, "property float nz\n")
	assert.Contains(t, header, "element face 2\n")

	rows := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, rows, 6)
	assert.Equal(t, "1 1 0 0 0 1", rows[2])
	assert.Equal(t, "3 0 2 3", rows[5])
}

func TestMerge(t *testing.T) {
	empty := &kernel.Mesh{PartName: "empty"}
	m := Merge(quad("a", 0), empty, quad("b", 2))

	require.NoError(t, m.Validate())
	assert.Equal(t, 8, m.VertexCount())
	assert.Equal(t, 4, m.TriangleCount())
	assert.Len(t, m.Normals, len(m.Vertices), "empty meshes do not drop normals")
	assert.Equal(t, []uint32{4, 6, 7}, m.Indices[9:12])
	assert.Equal(t, "a+empty+b", m.PartName)

	bare := quad("c", 4)
	bare.Normals = nil
	assert.Nil(t, Merge(quad("a", 0), bare).Normals)
}

func TestTriangles(t *testing.T) {
	tris := Triangles(quad("a", 0), quad("b", 2))
	require.Len(t, tris, 4)
	assert.Equal(t, 3.0, tris[2][1].X)
	assert.Equal(t, 1.0, tris[3][2].Y)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"out.obj", "out.PLY", "out.stl"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, WriteFile(path, quad("a", 0), quad("b", 2)))
			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.NotZero(t, info.Size())
		})
	}

	err := WriteFile(filepath.Join(dir, "out.fbx"), quad("a", 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")

	err = WriteFile(filepath.Join(dir, "missing", "out.obj"), quad("a", 0))
	assert.Error(t, err)
}
