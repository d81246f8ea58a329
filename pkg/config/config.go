// Package config loads the meshing settings from a TOML file. Fields left
// out of the file keep their defaults; unknown fields are rejected.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/ubisoft/vrtist-sub002/pkg/freedraw"
	"github.com/ubisoft/vrtist-sub002/pkg/volume"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Extractor names.
const (
	ExtractorMarch = "march"
	ExtractorSDFX  = "sdfx"
)

// Config is the full set of knobs.
type Config struct {
	Tube    freedraw.Options `toml:"tube"`
	Volume  volume.Config    `toml:"volume"`
	Extract Extract          `toml:"extract"`
}

// Extract selects and tunes the isosurface extractor.
type Extract struct {
	// Kernel is "march" (CPU marching tetrahedra) or "sdfx".
	Kernel string `toml:"kernel"`
	// Workers sizes the march worker pool; 0 means one per CPU.
	Workers int `toml:"workers"`
	// MeshCells is the sdfx marching cubes resolution along the longest
	// axis; 0 means one cube per field cell.
	MeshCells int `toml:"mesh_cells"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Tube:    freedraw.DefaultOptions(),
		Volume:  volume.DefaultConfig(),
		Extract: Extract{Kernel: ExtractorMarch},
	}
}

// Parse reads TOML from r over the defaults and validates the result.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalid, strict.String())
		}
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load parses the TOML file at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first setting out of range.
func (c Config) Validate() error {
	switch {
	case c.Tube.Sides < 3:
		return fmt.Errorf("%w: tube.sides must be at least 3, got %d", ErrInvalid, c.Tube.Sides)
	case c.Tube.Subdivisions < 1:
		return fmt.Errorf("%w: tube.subdivisions must be at least 1, got %d", ErrInvalid, c.Tube.Subdivisions)
	case !(c.Volume.StepSize > 0) || math.IsInf(c.Volume.StepSize, 0):
		return fmt.Errorf("%w: volume.step_size must be positive, got %g", ErrInvalid, c.Volume.StepSize)
	case math.IsNaN(c.Volume.IsoLevel) || math.IsInf(c.Volume.IsoLevel, 0):
		return fmt.Errorf("%w: volume.iso_level must be finite", ErrInvalid)
	case math.IsNaN(c.Volume.Strength) || math.IsInf(c.Volume.Strength, 0):
		return fmt.Errorf("%w: volume.strength must be finite", ErrInvalid)
	case c.Volume.MaxCells < 8:
		return fmt.Errorf("%w: volume.max_cells must be at least 8, got %d", ErrInvalid, c.Volume.MaxCells)
	case c.Extract.Kernel != ExtractorMarch && c.Extract.Kernel != ExtractorSDFX:
		return fmt.Errorf("%w: extract.kernel must be %q or %q, got %q", ErrInvalid, ExtractorMarch, ExtractorSDFX, c.Extract.Kernel)
	case c.Extract.Workers < 0:
		return fmt.Errorf("%w: extract.workers must not be negative, got %d", ErrInvalid, c.Extract.Workers)
	case c.Extract.MeshCells < 0:
		return fmt.Errorf("%w: extract.mesh_cells must not be negative, got %d", ErrInvalid, c.Extract.MeshCells)
	}
	return nil
}
