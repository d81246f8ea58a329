package main

import (
	"log"
	"maps"
	"slices"

	"github.com/ubisoft/vrtist-sub002/pkg/config"
	"github.com/ubisoft/vrtist-sub002/pkg/engine"
	"github.com/ubisoft/vrtist-sub002/pkg/kernel"
	"github.com/ubisoft/vrtist-sub002/pkg/scene"
	"github.com/ubisoft/vrtist-sub002/pkg/tessellate"
	"github.com/ubisoft/vrtist-sub002/pkg/volume"
)

// colorPalette assigns distinct colors to strokes that do not set one.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App runs the script to mesh pipeline. It is safe for concurrent use once
// set up.
type App struct {
	engine *engine.Engine
	cfg    config.Config
	// persisted sculpts a script may name as a base.
	states map[string]volume.State
}

// MeshData is the JSON form of one stroke's mesh.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// Mesh returns d as a render mesh sharing its buffers.
func (d MeshData) Mesh() *kernel.Mesh {
	return &kernel.Mesh{Vertices: d.Vertices, Normals: d.Normals, Indices: d.Indices, PartName: d.PartName}
}

// EvalErrorData is a script error or a validation finding.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
	Stroke  string `json:"stroke,omitempty"`
}

// EvalResult is the full result of one evaluation.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
	// States holds the final volume of every named sculpt, for saving.
	States map[string]volume.State `json:"-"`
}

// NewApp creates an App meshing with cfg.
func NewApp(cfg config.Config) *App {
	return &App{
		engine: engine.NewEngine(),
		cfg:    cfg,
	}
}

// SetStates makes persisted sculpt states available as bases, keyed by
// stroke name. Call it before Evaluate.
func (a *App) SetStates(states map[string]volume.State) {
	a.states = states
}

// Evaluate runs a stroke script and meshes the strokes it draws. Script
// errors and blocking validation errors come back in Errors with no meshes.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	s, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}

	vr := scene.Validate(s, a.cfg.Volume.StepSize, slices.Sorted(maps.Keys(a.states))...)
	for _, w := range vr.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Message, Stroke: label(s, w.StrokeID)})
	}
	if !vr.OK() {
		for _, e := range vr.Errors {
			result.Errors = append(result.Errors, EvalErrorData{Message: e.Message, Stroke: label(s, e.StrokeID)})
		}
		return result
	}

	res, err := tessellate.Replay(s, a.cfg, a.states)
	if err != nil {
		log.Printf("Tessellate error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}

	result.States = res.States
	for i, m := range res.Meshes {
		color := s.Strokes[i].Color
		if color == "" {
			color = colorPalette[i%len(colorPalette)]
		}
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Color:    color,
		})
	}
	return result
}

func label(s *scene.Scene, id scene.StrokeID) string {
	if st := s.Get(id); st != nil {
		return st.Label()
	}
	return ""
}
