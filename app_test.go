package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ubisoft/vrtist-sub002/pkg/config"
	"github.com/ubisoft/vrtist-sub002/pkg/volume"
)

func newTestApp() *App {
	return NewApp(config.Default())
}

func requireNoErrors(t *testing.T, result EvalResult) {
	t.Helper()
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d, stroke %q): %s", e.Line, e.Stroke, e.Message)
		}
		t.FailNow()
	}
}

// TestE2EFlowerExample exercises the full pipeline: script -> engine ->
// scene -> validation -> tessellation -> meshes.
func TestE2EFlowerExample(t *testing.T) {
	source, err := os.ReadFile("examples/flower.vrs")
	if err != nil {
		t.Fatalf("failed to read flower.vrs: %v", err)
	}
	cfg, err := config.Load("examples/vrtist.toml")
	if err != nil {
		t.Fatalf("failed to load vrtist.toml: %v", err)
	}

	result := NewApp(cfg).Evaluate(string(source))
	requireNoErrors(t, result)
	if len(result.Warnings) > 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}

	want := []string{"stem", "leaf-left", "leaf-right", "tendril", "bloom"}
	if len(result.Meshes) != len(want) {
		t.Fatalf("expected %d meshes, got %d", len(want), len(result.Meshes))
	}
	for i, m := range result.Meshes {
		if m.PartName != want[i] {
			t.Errorf("mesh %d is %q, want %q", i, m.PartName, want[i])
		}
		if len(m.Vertices) == 0 || len(m.Indices) == 0 {
			t.Errorf("mesh %q is empty", m.PartName)
		}
		if len(m.Normals) != len(m.Vertices) {
			t.Errorf("mesh %q has %d normals for %d vertex floats", m.PartName, len(m.Normals), len(m.Vertices))
		}
		if err := m.Mesh().Validate(); err != nil {
			t.Errorf("mesh %q: %v", m.PartName, err)
		}
	}

	// 12 sides from the config file.
	if got := len(result.Meshes[0].Vertices) / 3 % 12; got != 0 {
		t.Errorf("stem vertex count is not a multiple of 12 sides")
	}
	if result.Meshes[0].Color != "#2ECC71" {
		t.Errorf("stem color = %q, want the script's color", result.Meshes[0].Color)
	}
	if result.Meshes[3].Color != colorPalette[3] {
		t.Errorf("tendril color = %q, want palette entry %q", result.Meshes[3].Color, colorPalette[3])
	}
}

func TestE2EEmptySource(t *testing.T) {
	result := newTestApp().Evaluate("")

	if len(result.Errors) != 0 || len(result.Meshes) != 0 || len(result.Warnings) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
	// Slices must be non-nil so JSON carries [] rather than null.
	if result.Meshes == nil || result.Errors == nil || result.Warnings == nil {
		t.Error("result slices should be non-nil")
	}
	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"meshes":[],"errors":[],"warnings":[]}` {
		t.Errorf("JSON = %s", data)
	}
}

func TestE2ESyntaxError(t *testing.T) {
	result := newTestApp().Evaluate("(tube (sample (vec3 0 0 0) 0.1)\n(ribbon")

	if len(result.Errors) == 0 {
		t.Fatal("expected at least one eval error")
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes on syntax error, got %d", len(result.Meshes))
	}
	t.Logf("syntax error: line=%d message=%q", result.Errors[0].Line, result.Errors[0].Message)
}

func TestE2EValidationBlocksMeshing(t *testing.T) {
	result := newTestApp().Evaluate(`
(tube :name "ok" (line (vec3 0 0 0) (vec3 1 0 0) 3 0.1))
(tube :name "bad" (sample (vec3 0 0 0) -0.1) (sample (vec3 1 0 0) 0.1))
`)
	if len(result.Errors) == 0 {
		t.Fatal("expected a validation error for a negative radius")
	}
	if result.Errors[0].Stroke != "bad" {
		t.Errorf("error attributed to %q, want bad", result.Errors[0].Stroke)
	}
	if len(result.Meshes) != 0 {
		t.Errorf("validation errors must block meshing, got %d meshes", len(result.Meshes))
	}
}

func TestE2EMissingBase(t *testing.T) {
	result := newTestApp().Evaluate(`(sculpt :base "nothing" (sample (vec3 0 0 0) 0.05))`)
	if len(result.Errors) == 0 {
		t.Fatal("expected an error for an unknown base")
	}
	if !strings.Contains(result.Errors[0].Message, "nothing") {
		t.Errorf("error = %q", result.Errors[0].Message)
	}
}

func TestE2EWarnings(t *testing.T) {
	result := newTestApp().Evaluate(`(tube :name "dot" (sample (vec3 0 0 0) 0.1))`)
	requireNoErrors(t, result)
	if len(result.Warnings) == 0 {
		t.Fatal("a single-sample stroke should warn")
	}
	if result.Warnings[0].Stroke != "dot" {
		t.Errorf("warning attributed to %q", result.Warnings[0].Stroke)
	}
	if len(result.Meshes) != 1 {
		t.Errorf("warnings do not block meshing, got %d meshes", len(result.Meshes))
	}
}

func TestE2ESculptExtractors(t *testing.T) {
	source := `(sculpt :name "blob" (sample (vec3 0 0 0) 0.05) (sample (vec3 0.04 0 0) 0.05))`
	for _, kernel := range []string{config.ExtractorMarch, config.ExtractorSDFX} {
		t.Run(kernel, func(t *testing.T) {
			cfg := config.Default()
			cfg.Extract.Kernel = kernel
			result := NewApp(cfg).Evaluate(source)
			requireNoErrors(t, result)
			if len(result.Meshes) != 1 || len(result.Meshes[0].Indices) == 0 {
				t.Fatalf("expected one non-empty mesh, got %+v", result.Meshes)
			}
		})
	}
}

func TestE2ERapidEvaluation(t *testing.T) {
	// Sequential calls alternating between valid and broken scripts; the
	// engine must recover cleanly between error and success states.
	app := newTestApp()
	sources := []string{
		`(tube (line (vec3 0 0 0) (vec3 1 0 0) 4 0.05))`,
		`(tube (sample`,
		``,
		`(sculpt :base "missing" (sample (vec3 0 0 0) 0.05))`,
		`(ribbon (flat (vec3 0 0 0) (vec3 0 1 0) 0.1) (flat (vec3 1 0 0) (vec3 0 1 0) 0.1))`,
		`;; just a comment`,
		`(undefined-func 1 2 3)`,
		`(sculpt (sample (vec3 0 0 0) 0.05))`,
	}
	wantMeshes := []int{1, 0, 0, 0, 1, 0, 0, 1}

	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked on source %q: %v", i, source, r)
				}
			}()
			result := app.Evaluate(source)
			if len(result.Meshes) != wantMeshes[i] {
				t.Errorf("iteration %d: %d meshes, want %d (errors %v)", i, len(result.Meshes), wantMeshes[i], result.Errors)
			}
		}()
	}
}

func TestE2EColorPaletteWrapping(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString("(tube (line (vec3 0 0 0) (vec3 1 0 0) 2 0.1))\n")
	}
	result := newTestApp().Evaluate(b.String())
	requireNoErrors(t, result)

	if len(result.Meshes) != 10 {
		t.Fatalf("expected 10 meshes, got %d", len(result.Meshes))
	}
	for i, m := range result.Meshes {
		if m.Color != colorPalette[i%len(colorPalette)] {
			t.Errorf("mesh %d color = %q", i, m.Color)
		}
	}
}

func TestRunWritesMeshFile(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "s.vrs")
	if err := os.WriteFile(script, []byte(`(tube :name "t" (line (vec3 0 0 0) (vec3 1 0 0) 3 0.1))`), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"out.obj", "out.ply", "out.stl"} {
		out := filepath.Join(dir, name)
		if err := run([]string{"-config", "examples/vrtist.toml", "-out", out, script}); err != nil {
			t.Fatalf("%s: run failed: %v", name, err)
		}
		if info, err := os.Stat(out); err != nil || info.Size() == 0 {
			t.Errorf("%s: expected a non-empty file, err=%v", name, err)
		}
	}

	obj, err := os.ReadFile(filepath.Join(dir, "out.obj"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(obj), "o t\n") {
		t.Errorf("OBJ should name the stroke, got:\n%s", obj)
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.vrs")
	if err := os.WriteFile(broken, []byte(`(tube`), 0o644); err != nil {
		t.Fatal(err)
	}
	badConfig := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(badConfig, []byte("[tube]\nsides = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"no script", nil},
		{"missing script", []string{filepath.Join(dir, "nope.vrs")}},
		{"script error", []string{"-out", filepath.Join(dir, "x.obj"), broken}},
		{"bad config", []string{"-config", badConfig, broken}},
		{"bad format", []string{"-out", filepath.Join(dir, "x.fbx"), "examples/flower.vrs"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(tt.args); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRunPersistsSculptStates(t *testing.T) {
	dir := t.TempDir()
	stateDir := filepath.Join(dir, "states")
	first := filepath.Join(dir, "first.vrs")
	if err := os.WriteFile(first, []byte(`
(tube :name "stem" (line (vec3 0 0 0) (vec3 0 0.2 0) 3 0.02))
(sculpt :name "blob" (sample (vec3 0 0 0) 0.05))
(sculpt (sample (vec3 0.5 0 0) 0.05))
`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := run([]string{"-state", stateDir, "-out", filepath.Join(dir, "first.obj"), first}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	saved, err := volume.LoadStates(stateDir)
	if err != nil {
		t.Fatalf("load states: %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("expected only the named sculpt to be saved, got %d states", len(saved))
	}
	blob, ok := saved["blob"]
	if !ok {
		t.Fatal("state for blob missing")
	}

	// A second session continues the saved sculpt by naming it as a base.
	second := `(sculpt :name "blob" :base "blob" (sample (vec3 0.08 0 0) 0.05))`
	if result := newTestApp().Evaluate(second); len(result.Errors) == 0 {
		t.Fatal("without saved states the base must be unknown")
	}

	app := newTestApp()
	app.SetStates(saved)
	result := app.Evaluate(second)
	requireNoErrors(t, result)
	if len(result.Meshes) != 1 || len(result.Meshes[0].Indices) == 0 {
		t.Fatalf("expected one non-empty mesh, got %+v", result.Meshes)
	}
	grown, ok := result.States["blob"]
	if !ok {
		t.Fatal("continued sculpt returned no state")
	}
	if grown.Resolution.X <= blob.Resolution.X {
		t.Errorf("resolution %v did not grow from %v", grown.Resolution, blob.Resolution)
	}

	secondPath := filepath.Join(dir, "second.vrs")
	if err := os.WriteFile(secondPath, []byte(second), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := run([]string{"-state", stateDir, "-out", filepath.Join(dir, "second.obj"), secondPath}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	saved, err = volume.LoadStates(stateDir)
	if err != nil {
		t.Fatal(err)
	}
	if saved["blob"].Resolution != grown.Resolution {
		t.Errorf("saved resolution %v, want %v", saved["blob"].Resolution, grown.Resolution)
	}
}

func TestRunRejectsCorruptState(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "s.vrs")
	if err := os.WriteFile(script, []byte(`(sculpt :name "blob" :base "blob" (sample (vec3 0 0 0) 0.05))`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "blob"+volume.StateExt), []byte("not msgpack"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := run([]string{"-state", dir, "-out", filepath.Join(dir, "x.obj"), script}); err == nil {
		t.Error("expected an error for a corrupt state file")
	}
}
