package scene

import (
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/ubisoft/vrtist-sub002/pkg/geom"
)

// StrokeID is a deterministic identifier derived from a stroke's key, so
// the same script yields the same IDs on every evaluation.
type StrokeID uuid.UUID

var strokeNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("vrtist/stroke"))

// NewStrokeID derives the ID for key (a stroke name, or kind and position
// for anonymous strokes).
func NewStrokeID(key string) StrokeID {
	return StrokeID(uuid.NewSHA1(strokeNamespace, []byte(key)))
}

// IsZero reports whether id is unset.
func (id StrokeID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

// Short returns the first 8 hex digits, for messages.
func (id StrokeID) Short() string {
	return hex.EncodeToString(id[:4])
}

// String returns the canonical UUID form.
func (id StrokeID) String() string {
	return uuid.UUID(id).String()
}

// UUID returns id as a uuid.UUID.
func (id StrokeID) UUID() uuid.UUID {
	return uuid.UUID(id)
}

// MarshalText encodes id in canonical UUID form.
func (id StrokeID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText decodes a UUID.
func (id *StrokeID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}

// StrokeKind selects the generator that meshes a stroke.
type StrokeKind int

const (
	KindTube   StrokeKind = iota // circular cross-section sweep
	KindRibbon                   // flat strip oriented by sample normals
	KindSculpt                   // density field deposits
)

func (k StrokeKind) String() string {
	switch k {
	case KindTube:
		return "tube"
	case KindRibbon:
		return "ribbon"
	case KindSculpt:
		return "sculpt"
	default:
		return "unknown"
	}
}

// Sample is one pen position. Radius is the tube radius, the ribbon
// half-width or the sculpt brush radius. Normal is used by ribbons only,
// Strength by sculpts only (nil means the stroke or configured strength).
type Sample struct {
	Position geom.Vec3 `json:"position"`
	Radius   float64   `json:"radius"`
	Normal   geom.Vec3 `json:"normal,omitempty"`
	Strength *float64  `json:"strength,omitempty"`
}

// SculptParams overrides the volume settings for one sculpt stroke. A zero
// StepSize and nil IsoLevel or Strength fall back to the configuration;
// an explicit zero iso level or strength is kept.
type SculptParams struct {
	StepSize float64  `json:"step_size,omitempty"`
	IsoLevel *float64 `json:"iso_level,omitempty"`
	Strength *float64 `json:"strength,omitempty"`
	// Base names an earlier sculpt whose field this stroke keeps editing.
	Base string `json:"base,omitempty"`
}

// Stroke is one drawing gesture.
type Stroke struct {
	ID      StrokeID     `json:"id"`
	Kind    StrokeKind   `json:"kind"`
	Name    string       `json:"name,omitempty"`
	Color   string       `json:"color,omitempty"`
	Frame   geom.Matrix4 `json:"frame"`
	Samples []Sample     `json:"samples"`
	Sculpt  SculptParams `json:"sculpt,omitempty"`
}

// Label returns the stroke name, or its kind and short ID when anonymous.
func (s *Stroke) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Kind.String() + "-" + s.ID.Short()
}
