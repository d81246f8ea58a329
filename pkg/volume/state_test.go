package volume

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubisoft/vrtist-sub002/pkg/geom"
	"github.com/ubisoft/vrtist-sub002/pkg/kernel/march"
)

func sculpted(t *testing.T) *Generator {
	t.Helper()
	g := newGenerator(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, g.AddPoint(geom.V3(0.03*float64(i), 0.01*float64(i), 0), 0.04))
	}
	return g
}

func TestStateMsgpackRoundTrip(t *testing.T) {
	g := sculpted(t)
	s := g.State()

	var buf bytes.Buffer
	require.NoError(t, s.Encode(&buf))
	got, err := DecodeState(&buf)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestStateJSONRoundTrip(t *testing.T) {
	s := sculpted(t).State()

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stepSize":0.01`)

	var got State
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, s, got)
}

func TestInitFromStateRebuildsMesh(t *testing.T) {
	g := sculpted(t)
	s := g.State()

	h := New(geom.Identity(), DefaultConfig(), march.New(3))
	require.NoError(t, h.InitFromState(s))

	assert.Equal(t, g.ID(), h.ID())
	assert.Equal(t, g.Origin(), h.Origin())
	assert.Equal(t, g.Resolution(), h.Resolution())
	assert.Equal(t, g.Vertices(), h.Vertices())
	assert.Equal(t, g.Triangles(), h.Triangles())

	// The restored field is a copy.
	s.Field[0] = 42
	assert.NotEqual(t, 42.0, h.Field()[0])

	// Editing continues on the same lattice.
	before := h.Resolution()
	require.NoError(t, h.AddPoint(geom.V3(0.3, 0, 0), 0.04))
	assert.NotEqual(t, before, h.Resolution())
	assert.True(t, h.Bounds().ContainsBounds(g.Bounds(), tol))
	assert.Equal(t, g.ValueAt(geom.Vec3{}), h.ValueAt(geom.Vec3{}))
}

func TestInitFromStateKeepsOwnIDWhenUnset(t *testing.T) {
	s := sculpted(t).State()
	s.ID = uuid.Nil

	h := newGenerator(t)
	id := h.ID()
	require.NoError(t, h.InitFromState(s))
	assert.Equal(t, id, h.ID())
}

func TestInvalidState(t *testing.T) {
	valid := State{
		StepSize:   0.1,
		Resolution: geom.Vec3i{X: 2, Y: 2, Z: 2},
		Field:      make([]float64, 8),
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*State)
	}{
		{"zero step", func(s *State) { s.StepSize = 0 }},
		{"nan step", func(s *State) { s.StepSize = math.NaN() }},
		{"short field", func(s *State) { s.Field = s.Field[:7] }},
		{"negative resolution", func(s *State) { s.Resolution.X = -2 }},
		{"infinite origin", func(s *State) { s.Origin.Y = math.Inf(-1) }},
		{"nan value", func(s *State) { s.Field = []float64{0, 0, 0, math.NaN(), 0, 0, 0, 0} }},
		{"bounds off the lattice", func(s *State) {
			s.Bounds = geom.BoundsFromMinMax(geom.Vec3{}, geom.V3(0.1, 0.1, 0.2))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			s.Field = append([]float64(nil), valid.Field...)
			tt.mutate(&s)

			err := s.Validate()
			require.ErrorIs(t, err, ErrInvalidState)

			g := newGenerator(t)
			assert.ErrorIs(t, g.InitFromState(s), ErrInvalidState)
		})
	}
}

func TestStateBounds(t *testing.T) {
	s := sculpted(t).State()
	require.False(t, s.Bounds.IsEmpty())
	require.NoError(t, s.Validate())

	// Zero bounds are recomputed from the lattice.
	want := s.Bounds
	s.Bounds = geom.Bounds{}
	h := newGenerator(t)
	require.NoError(t, h.InitFromState(s))
	assert.True(t, want.Equals(h.Bounds(), tol))

	s.Bounds = geom.NewBounds(want.Center().Add(geom.V3(0.5, 0, 0)), want.Size())
	assert.ErrorIs(t, h.InitFromState(s), ErrInvalidState)
}

func TestDecodeStateRejectsGarbage(t *testing.T) {
	_, err := DecodeState(bytes.NewReader([]byte{0xc1, 0x00}))
	assert.Error(t, err)
}
