// Package volume sculpts a scalar density field from a stream of spherical
// deposits and extracts its isosurface after every edit.
//
// The field lives on a regular lattice that grows on demand in whole
// steps, so a cell never moves once written. A Generator is not safe for
// concurrent use.
package volume

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/ubisoft/vrtist-sub002/pkg/geom"
	"github.com/ubisoft/vrtist-sub002/pkg/kernel"
	"github.com/ubisoft/vrtist-sub002/pkg/kernel/march"
)

// ErrInvalidState is returned when a persisted state is inconsistent.
var ErrInvalidState = errors.New("volume: invalid state")

// Config holds the sculpting knobs.
type Config struct {
	// StepSize is the lattice spacing in working space.
	StepSize float64 `json:"stepSize" toml:"step_size"`
	// IsoLevel is the surface threshold: cells above it are inside.
	IsoLevel float64 `json:"isoLevel" toml:"iso_level"`
	// Strength scales the deposits made through AddPoint.
	Strength float64 `json:"strength" toml:"strength"`
	// MaxCells caps the number of lattice cells. Growth beyond it is
	// refused; deposits still land on the existing grid.
	MaxCells int `json:"maxCells" toml:"max_cells"`
}

// DefaultConfig returns a 1 cm lattice, iso level 0.5, unit strength and a
// 128000 cell cap.
func DefaultConfig() Config {
	return Config{StepSize: 0.01, IsoLevel: 0.5, Strength: 1, MaxCells: 128000}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.StepSize <= 0 {
		c.StepSize = d.StepSize
	}
	if c.MaxCells <= 0 {
		c.MaxCells = d.MaxCells
	}
	return c
}

// Sample is one deposit: a sphere of influence with a signed strength.
// Negative strength carves matter away.
type Sample struct {
	Position geom.Vec3 `json:"position"`
	Radius   float64   `json:"radius"`
	Strength float64   `json:"strength"`
}

// Generator accumulates deposits into a density field.
type Generator struct {
	frame     geom.Matrix4
	scale     float64
	cfg       Config
	extractor kernel.Extractor

	id       uuid.UUID
	stepSize float64

	// The origin is base - shift*stepSize, recomputed from integers so
	// repeated growth never drifts off the lattice.
	base       geom.Vec3
	shift      geom.Vec3i
	origin     geom.Vec3
	bounds     geom.Bounds
	resolution geom.Vec3i
	field      []float64

	prev    geom.Vec3
	hasPrev bool

	vertices  []geom.Vec3
	triangles []int
}

// New returns an empty generator working in the space defined by frame.
// A nil extractor selects the CPU marching tetrahedra extractor.
func New(frame geom.Matrix4, cfg Config, extractor kernel.Extractor) *Generator {
	if extractor == nil {
		extractor = march.New(0)
	}
	cfg = cfg.normalized()
	return &Generator{
		frame:     frame,
		scale:     math.Abs(frame.LossyScaleX()),
		cfg:       cfg,
		extractor: extractor,
		id:        uuid.New(),
		stepSize:  cfg.StepSize,
	}
}

// ID identifies the sculpted object across save and load.
func (g *Generator) ID() uuid.UUID { return g.id }

// SetID replaces the identifier.
func (g *Generator) SetID(id uuid.UUID) { g.id = id }

// Config returns the effective configuration.
func (g *Generator) Config() Config { return g.cfg }

// Origin returns the position of cell (0, 0, 0).
func (g *Generator) Origin() geom.Vec3 { return g.origin }

// Bounds returns the box spanned by the lattice.
func (g *Generator) Bounds() geom.Bounds { return g.bounds }

// Resolution returns the number of cells along each axis.
func (g *Generator) Resolution() geom.Vec3i { return g.resolution }

// StepSize returns the lattice spacing.
func (g *Generator) StepSize() float64 { return g.stepSize }

// Field returns the density values, x varying fastest. The slice is owned
// by the generator.
func (g *Generator) Field() []float64 { return g.field }

// Vertices returns the isosurface vertices.
func (g *Generator) Vertices() []geom.Vec3 { return g.vertices }

// Triangles returns the isosurface vertex index triples.
func (g *Generator) Triangles() []int { return g.triangles }

// Mesh packs the isosurface into a render mesh without normals.
func (g *Generator) Mesh() *kernel.Mesh {
	return kernel.FromGeometry(g.vertices, nil, g.triangles)
}

// AddPoint deposits a sphere at point with the configured strength.
func (g *Generator) AddPoint(point geom.Vec3, radius float64) error {
	return g.AddSample(Sample{Position: point, Radius: radius, Strength: g.cfg.Strength})
}

// AddSample deposits s and re-extracts the isosurface. Samples closer than
// half their radius to the last accepted one are ignored, as are samples
// with no radius and samples with non-finite values.
func (g *Generator) AddSample(s Sample) error {
	point := g.frame.MulPoint(s.Position)
	radius := g.scale * s.Radius
	if !(radius > 0) || math.IsInf(radius, 0) || !point.IsFinite() || math.IsNaN(s.Strength) {
		return nil
	}

	if g.hasPrev && g.prev.Distance(point) < 0.5*radius {
		return nil
	}
	g.prev, g.hasPrev = point, true

	g.grow(point, radius)
	g.addMatter(point, radius, s.Strength)
	return g.computeIsosurface()
}

// InitFromState restores a persisted field for editing in place and
// extracts its isosurface. The field is copied.
func (g *Generator) InitFromState(s State) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.ID != uuid.Nil {
		g.id = s.ID
	}
	g.stepSize = s.StepSize
	g.base = s.Origin
	g.shift = geom.Vec3i{}
	g.origin = s.Origin
	g.resolution = s.Resolution
	g.field = append([]float64(nil), s.Field...)
	g.syncBounds()
	g.hasPrev = false
	return g.computeIsosurface()
}

// State returns a snapshot of the persistable field.
func (g *Generator) State() State {
	return State{
		ID:         g.id,
		Origin:     g.origin,
		Bounds:     g.bounds,
		Field:      append([]float64(nil), g.field...),
		Resolution: g.resolution,
		StepSize:   g.stepSize,
	}
}

// Reset clears the field, bounds and mesh, and releases extractor buffers.
// The identifier and configuration are kept.
func (g *Generator) Reset() {
	g.stepSize = g.cfg.StepSize
	g.base = geom.Vec3{}
	g.shift = geom.Vec3i{}
	g.origin = geom.Vec3{}
	g.bounds = geom.Bounds{}
	g.resolution = geom.Vec3i{}
	g.field = nil
	g.prev, g.hasPrev = geom.Vec3{}, false
	g.vertices = nil
	g.triangles = nil
	g.Close()
}

// Close releases buffers cached by the extractor.
func (g *Generator) Close() {
	if r, ok := g.extractor.(kernel.Releaser); ok {
		r.Release()
	}
}

// computeIsosurface replaces the mesh with the isosurface of the field.
// Grids thinner than two cells on any axis keep the current mesh.
func (g *Generator) computeIsosurface() error {
	grid := g.grid()
	if !grid.Extractable() {
		return nil
	}
	vertices, triangles, err := g.extractor.Extract(grid, g.cfg.IsoLevel)
	if err != nil {
		return fmt.Errorf("volume: extract isosurface: %w", err)
	}
	g.vertices, g.triangles = vertices, triangles
	return nil
}

func (g *Generator) grid() kernel.Grid {
	return kernel.Grid{
		Values:     g.field,
		Resolution: g.resolution,
		StepSize:   g.stepSize,
		Origin:     g.origin,
	}
}
