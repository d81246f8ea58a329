package volume

import (
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"
	"github.com/ugorji/go/codec"

	"github.com/ubisoft/vrtist-sub002/pkg/geom"
	"github.com/ubisoft/vrtist-sub002/pkg/kernel"
)

// State is the persistable part of a sculpted object. The mesh is not
// stored: it is always regenerated from the field on load.
type State struct {
	ID         uuid.UUID   `json:"id" codec:"id"`
	Origin     geom.Vec3   `json:"origin" codec:"origin"`
	Bounds     geom.Bounds `json:"bounds" codec:"bounds"`
	Field      []float64   `json:"field" codec:"field"`
	Resolution geom.Vec3i  `json:"resolution" codec:"resolution"`
	StepSize   float64     `json:"stepSize" codec:"stepSize"`
}

var msgpackHandle = &codec.MsgpackHandle{}

// boundsTolerance is the allowed bounds error, in steps.
const boundsTolerance = 1e-6

// Validate checks that the field matches the resolution, that the bounds
// agree with the lattice and that every number is usable. Zero bounds are
// accepted and recomputed from the lattice on load.
func (s State) Validate() error {
	if s.StepSize <= 0 || math.IsNaN(s.StepSize) || math.IsInf(s.StepSize, 0) {
		return fmt.Errorf("%w: step size %g", ErrInvalidState, s.StepSize)
	}
	r := s.Resolution
	if r.X < 0 || r.Y < 0 || r.Z < 0 {
		return fmt.Errorf("%w: negative resolution %dx%dx%d", ErrInvalidState, r.X, r.Y, r.Z)
	}
	if float64(len(s.Field)) != r.Cells() {
		return fmt.Errorf("%w: %d values for resolution %dx%dx%d", ErrInvalidState, len(s.Field), r.X, r.Y, r.Z)
	}
	if !s.Origin.IsFinite() {
		return fmt.Errorf("%w: origin %v", ErrInvalidState, s.Origin)
	}
	if s.Bounds != (geom.Bounds{}) {
		want := latticeBounds(kernel.Grid{Origin: s.Origin, Resolution: r, StepSize: s.StepSize})
		if !s.Bounds.Equals(want, boundsTolerance*s.StepSize) {
			return fmt.Errorf("%w: bounds %v do not match the lattice %v", ErrInvalidState, s.Bounds, want)
		}
	}
	for i, v := range s.Field {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: field value %d is %g", ErrInvalidState, i, v)
		}
	}
	return nil
}

// Encode writes s to w in msgpack.
func (s State) Encode(w io.Writer) error {
	if err := codec.NewEncoder(w, msgpackHandle).Encode(s); err != nil {
		return fmt.Errorf("volume: encode state: %w", err)
	}
	return nil
}

// DecodeState reads a msgpack state written by Encode and validates it.
func DecodeState(r io.Reader) (State, error) {
	var s State
	if err := codec.NewDecoder(r, msgpackHandle).Decode(&s); err != nil {
		return State{}, fmt.Errorf("volume: decode state: %w", err)
	}
	if err := s.Validate(); err != nil {
		return State{}, err
	}
	return s, nil
}
