// Command vrtist-mesh evaluates a stroke script and writes the meshes of its
// tubes, ribbons and sculpts to an OBJ, PLY or STL file.
//
//	vrtist-mesh [-config vrtist.toml] [-out mesh.obj] [-json] [-state dir] script.vrs
//
// With -state, every named sculpt is saved to dir after a successful run,
// and sculpts saved earlier can be continued by naming them as a base.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ubisoft/vrtist-sub002/pkg/config"
	"github.com/ubisoft/vrtist-sub002/pkg/kernel"
	"github.com/ubisoft/vrtist-sub002/pkg/meshio"
	"github.com/ubisoft/vrtist-sub002/pkg/volume"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("vrtist-mesh: ")

	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("vrtist-mesh", flag.ContinueOnError)
	configPath := fs.String("config", "", "TOML settings file")
	out := fs.String("out", "out.obj", "output mesh file (.obj, .ply or .stl)")
	asJSON := fs.Bool("json", false, "print the evaluation result as JSON instead of writing a mesh file")
	stateDir := fs.String("state", "", "directory to load sculpt states from and save them to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one script, got %d arguments", fs.NArg())
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}

	source, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	app := NewApp(cfg)
	if *stateDir != "" {
		states, err := volume.LoadStates(*stateDir)
		if err != nil {
			return err
		}
		log.Printf("loaded %d sculpt states from %s", len(states), *stateDir)
		app.SetStates(states)
	}

	result := app.Evaluate(string(source))
	if *stateDir != "" && len(result.Errors) == 0 {
		if err := volume.SaveStates(*stateDir, result.States); err != nil {
			return err
		}
		log.Printf("saved %d sculpt states to %s", len(result.States), *stateDir)
	}
	for _, w := range result.Warnings {
		log.Printf("warning: %s", describe(w))
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			log.Printf("error: %s", describe(e))
		}
		return fmt.Errorf("%s: %d errors", fs.Arg(0), len(result.Errors))
	}

	meshes := make([]*kernel.Mesh, len(result.Meshes))
	for i, m := range result.Meshes {
		meshes[i] = m.Mesh()
	}
	if err := meshio.WriteFile(*out, meshes...); err != nil {
		return err
	}
	log.Printf("wrote %d meshes to %s", len(meshes), *out)
	return nil
}

func describe(e EvalErrorData) string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	case e.Stroke != "":
		return fmt.Sprintf("stroke %s: %s", e.Stroke, e.Message)
	default:
		return e.Message
	}
}
