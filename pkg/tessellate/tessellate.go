// Package tessellate replays the strokes of a scene through their mesh
// generators. One mesh is produced per stroke, in scene order.
package tessellate

import (
	"fmt"

	"github.com/ubisoft/vrtist-sub002/pkg/config"
	"github.com/ubisoft/vrtist-sub002/pkg/freedraw"
	"github.com/ubisoft/vrtist-sub002/pkg/kernel"
	"github.com/ubisoft/vrtist-sub002/pkg/kernel/march"
	"github.com/ubisoft/vrtist-sub002/pkg/kernel/sdfx"
	"github.com/ubisoft/vrtist-sub002/pkg/scene"
	"github.com/ubisoft/vrtist-sub002/pkg/volume"
)

// NewExtractor returns the isosurface extractor named by cfg.
func NewExtractor(cfg config.Extract) (kernel.Extractor, error) {
	switch cfg.Kernel {
	case "", config.ExtractorMarch:
		return march.New(cfg.Workers), nil
	case config.ExtractorSDFX:
		return sdfx.New(cfg.MeshCells), nil
	default:
		return nil, fmt.Errorf("tessellate: unknown extractor %q", cfg.Kernel)
	}
}

// Tessellate meshes every stroke of s. Sculpt strokes with a base continue
// editing the field left by that earlier sculpt. The scene is never
// mutated.
func Tessellate(s *scene.Scene, cfg config.Config) ([]*kernel.Mesh, error) {
	res, err := Replay(s, cfg, nil)
	return res.Meshes, err
}

// Result is the output of Replay.
type Result struct {
	Meshes []*kernel.Mesh
	// States holds the final field of every named sculpt, keyed by name.
	States map[string]volume.State
}

// Replay meshes every stroke of s like Tessellate and also returns the
// fields of named sculpts so they can be persisted. A sculpt base that no
// earlier stroke defines is looked up in loaded, which lets a script keep
// editing a field saved by a previous run.
func Replay(s *scene.Scene, cfg config.Config, loaded map[string]volume.State) (Result, error) {
	res := Result{States: make(map[string]volume.State)}
	if s == nil {
		return res, nil
	}
	ext, err := NewExtractor(cfg.Extract)
	if err != nil {
		return Result{}, err
	}
	if r, ok := ext.(kernel.Releaser); ok {
		defer r.Release()
	}

	r := replay{cfg: cfg, extractor: ext, loaded: loaded, states: res.States}
	res.Meshes = make([]*kernel.Mesh, 0, len(s.Strokes))
	for _, st := range s.Strokes {
		mesh, err := r.stroke(st)
		if err != nil {
			return Result{}, fmt.Errorf("tessellate: stroke %s: %w", st.Label(), err)
		}
		mesh.PartName = st.Label()
		res.Meshes = append(res.Meshes, mesh)
	}
	return res, nil
}

// replay carries what one stroke hands to the next: the shared extractor
// and the fields of named sculpts.
type replay struct {
	cfg       config.Config
	extractor kernel.Extractor
	loaded    map[string]volume.State
	states    map[string]volume.State
}

func (r *replay) stroke(st *scene.Stroke) (*kernel.Mesh, error) {
	switch st.Kind {
	case scene.KindTube:
		return tube(st, r.cfg.Tube), nil
	case scene.KindRibbon:
		return ribbon(st), nil
	case scene.KindSculpt:
		return r.sculpt(st)
	default:
		return nil, fmt.Errorf("unknown stroke kind %d", int(st.Kind))
	}
}

func tube(st *scene.Stroke, opts freedraw.Options) *kernel.Mesh {
	t := freedraw.NewTube(st.Frame, opts)
	for _, smp := range st.Samples {
		t.AddControlPoint(smp.Position, smp.Radius)
	}
	return t.Mesh()
}

func ribbon(st *scene.Stroke) *kernel.Mesh {
	rb := freedraw.NewRibbon(st.Frame)
	for _, smp := range st.Samples {
		rb.AddFlatLineControlPoint(smp.Position, smp.Normal, smp.Radius)
	}
	return rb.Mesh()
}

// sculptConfig applies the per-stroke overrides to the configured volume
// settings.
func sculptConfig(base volume.Config, p scene.SculptParams) volume.Config {
	if p.StepSize > 0 {
		base.StepSize = p.StepSize
	}
	if p.IsoLevel != nil {
		base.IsoLevel = *p.IsoLevel
	}
	if p.Strength != nil {
		base.Strength = *p.Strength
	}
	return base
}

// base returns the field a sculpt continues from: an earlier named sculpt
// of this replay first, then a loaded state.
func (r *replay) base(name string) (volume.State, bool) {
	if state, ok := r.states[name]; ok {
		return state, true
	}
	state, ok := r.loaded[name]
	return state, ok
}

func (r *replay) sculpt(st *scene.Stroke) (*kernel.Mesh, error) {
	cfg := sculptConfig(r.cfg.Volume, st.Sculpt)
	g := volume.New(st.Frame, cfg, r.extractor)
	g.SetID(st.ID.UUID())

	if st.Sculpt.Base != "" {
		state, ok := r.base(st.Sculpt.Base)
		if !ok {
			return nil, fmt.Errorf("no earlier sculpt named %q", st.Sculpt.Base)
		}
		state.ID = st.ID.UUID()
		if err := g.InitFromState(state); err != nil {
			return nil, fmt.Errorf("base %q: %w", st.Sculpt.Base, err)
		}
	}

	for i, smp := range st.Samples {
		strength := cfg.Strength
		if smp.Strength != nil {
			strength = *smp.Strength
		}
		err := g.AddSample(volume.Sample{Position: smp.Position, Radius: smp.Radius, Strength: strength})
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
	}

	if st.Name != "" {
		r.states[st.Name] = g.State()
	}
	mesh := g.Mesh()
	mesh.ComputeNormals()
	return mesh, nil
}
