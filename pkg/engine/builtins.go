package engine

import (
	"fmt"
	"math"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/ubisoft/vrtist-sub002/pkg/geom"
	"github.com/ubisoft/vrtist-sub002/pkg/scene"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values between builtins
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	vec geom.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpFrame wraps the local-to-world matrix a stroke is drawn in.
type sexpFrame struct {
	m geom.Matrix4
}

func (f *sexpFrame) SexpString(ps *zygo.PrintState) string {
	t := f.m.MulPoint(geom.Vec3{})
	return fmt.Sprintf("(frame :at (vec3 %g %g %g))", t.X, t.Y, t.Z)
}
func (f *sexpFrame) Type() *zygo.RegisteredType { return nil }

// sexpSamples carries one or more pen samples. sample and flat return one,
// line and helix return many.
type sexpSamples struct {
	samples []scene.Sample
}

func (s *sexpSamples) SexpString(ps *zygo.PrintState) string {
	if len(s.samples) == 1 {
		p := s.samples[0].Position
		return fmt.Sprintf("(sample (vec3 %g %g %g) %g)", p.X, p.Y, p.Z, s.samples[0].Radius)
	}
	return fmt.Sprintf("(samples %d)", len(s.samples))
}
func (s *sexpSamples) Type() *zygo.RegisteredType { return nil }

// sexpStrokeRef is what the stroke forms return.
type sexpStrokeRef struct {
	id    scene.StrokeID
	label string
}

func (r *sexpStrokeRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(stroke %q)", r.label)
}
func (r *sexpStrokeRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs splits args into keyword and positional arguments. A trailing
// keyword with no value maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// only fails when pa carries a keyword outside allowed.
func (pa kwArgs) only(allowed ...string) error {
	for name := range pa.kw {
		found := false
		for _, a := range allowed {
			if a == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown keyword :%s", name)
		}
	}
	return nil
}

func (pa kwArgs) float(name string, def float64) (float64, error) {
	v, ok := pa.kw[name]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

// optFloat returns nil when the keyword is absent, so an explicit zero is
// distinguishable from an unset value.
func (pa kwArgs) optFloat(name string) (*float64, error) {
	if _, ok := pa.kw[name]; !ok {
		return nil, nil
	}
	f, err := pa.float(name, 0)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (pa kwArgs) vec(name string, def geom.Vec3) (geom.Vec3, error) {
	v, ok := pa.kw[name]
	if !ok {
		return def, nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return geom.Vec3{}, fmt.Errorf("%s: %w", name, err)
	}
	return vec, nil
}

func (pa kwArgs) str(name string) (string, error) {
	v, ok := pa.kw[name]
	if !ok {
		return "", nil
	}
	s, err := toString(v)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		if _, kw := isKW(s); kw {
			return "", fmt.Errorf("expected string, got keyword %s", str.S[len(kwPrefix):])
		}
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (geom.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return geom.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toFrame(s zygo.Sexp) (geom.Matrix4, error) {
	if f, ok := s.(*sexpFrame); ok {
		return f.m, nil
	}
	return geom.Matrix4{}, fmt.Errorf("expected frame, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a list or array to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// collectSamples flattens samples, sample lists and nested lists into out.
func collectSamples(s zygo.Sexp, out []scene.Sample) ([]scene.Sample, error) {
	if v, ok := s.(*sexpSamples); ok {
		return append(out, v.samples...), nil
	}
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, fmt.Errorf("expected samples, got %T (%s)", s, s.SexpString(nil))
	}
	for _, item := range items {
		if out, err = collectSamples(item, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the stroke builtins into env. Stroke forms
// append to s in evaluation order.
//
// Source must go through preprocessSource first so that :keyword tokens
// arrive as recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, s *scene.Scene) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: geom.V3(c[0], c[1], c[2])}, nil
	})

	// -----------------------------------------------------------------------
	// (frame :at (vec3 0 1 0) :rotate (vec3 0 90 0) :scale 2)
	// -----------------------------------------------------------------------
	env.AddFunction("frame", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("at", "rotate", "scale"); err != nil {
			return zygo.SexpNull, fmt.Errorf("frame: %w", err)
		}
		at, err := pa.vec("at", geom.Vec3{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("frame: %w", err)
		}
		rot, err := pa.vec("rotate", geom.Vec3{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("frame: %w", err)
		}
		scale, err := pa.float("scale", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("frame: %w", err)
		}
		if scale == 0 {
			return zygo.SexpNull, fmt.Errorf("frame: scale must not be zero")
		}
		return &sexpFrame{m: geom.TRS(at, rot, scale)}, nil
	})

	// -----------------------------------------------------------------------
	// (sample (vec3 0 0 0) 0.02 :strength -1)
	// -----------------------------------------------------------------------
	env.AddFunction("sample", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("strength"); err != nil {
			return zygo.SexpNull, fmt.Errorf("sample: %w", err)
		}
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("sample requires a position and a radius, got %d arguments", len(pa.positional))
		}
		pos, err := toVec3(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sample: position: %w", err)
		}
		radius, err := toFloat64(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sample: radius: %w", err)
		}
		strength, err := pa.optFloat("strength")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sample: %w", err)
		}
		return &sexpSamples{samples: []scene.Sample{{Position: pos, Radius: radius, Strength: strength}}}, nil
	})

	// -----------------------------------------------------------------------
	// (flat (vec3 0 0 0) (vec3 0 1 0) 0.01)
	// The last argument is the half-width of the ribbon.
	// -----------------------------------------------------------------------
	env.AddFunction("flat", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("flat requires a position, a normal and a width, got %d arguments", len(args))
		}
		pos, err := toVec3(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("flat: position: %w", err)
		}
		normal, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("flat: normal: %w", err)
		}
		width, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("flat: width: %w", err)
		}
		return &sexpSamples{samples: []scene.Sample{{Position: pos, Radius: width, Normal: normal}}}, nil
	})

	// -----------------------------------------------------------------------
	// (line (vec3 0 0 0) (vec3 1 0 0) 10 0.02 :end-radius 0.01 :normal (vec3 0 1 0))
	// Evenly spaced samples from start to end inclusive.
	// -----------------------------------------------------------------------
	env.AddFunction("line", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("end-radius", "normal", "strength"); err != nil {
			return zygo.SexpNull, fmt.Errorf("line: %w", err)
		}
		if len(pa.positional) != 4 {
			return zygo.SexpNull, fmt.Errorf("line requires start, end, count and radius, got %d arguments", len(pa.positional))
		}
		from, err := toVec3(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: start: %w", err)
		}
		to, err := toVec3(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: end: %w", err)
		}
		n, err := toInt(pa.positional[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: count: %w", err)
		}
		if n < 2 {
			return zygo.SexpNull, fmt.Errorf("line: count must be at least 2, got %d", n)
		}
		r0, err := toFloat64(pa.positional[3])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: radius: %w", err)
		}
		r1, err := pa.float("end-radius", r0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: %w", err)
		}
		normal, err := pa.vec("normal", geom.Vec3{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: %w", err)
		}
		strength, err := pa.optFloat("strength")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: %w", err)
		}

		out := make([]scene.Sample, n)
		for i := range out {
			t := float64(i) / float64(n-1)
			out[i] = scene.Sample{
				Position: from.Lerp(to, t),
				Radius:   r0 + (r1-r0)*t,
				Normal:   normal,
				Strength: strength,
			}
		}
		return &sexpSamples{samples: out}, nil
	})

	// -----------------------------------------------------------------------
	// (helix :at (vec3 0 0 0) :radius 0.1 :pitch 0.05 :turns 2 :steps 48 :size 0.01)
	// A helix around the y axis. Sample normals point away from the axis.
	// -----------------------------------------------------------------------
	env.AddFunction("helix", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("at", "radius", "pitch", "turns", "steps", "size", "strength"); err != nil {
			return zygo.SexpNull, fmt.Errorf("helix: %w", err)
		}
		at, err := pa.vec("at", geom.Vec3{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("helix: %w", err)
		}
		var p struct{ radius, pitch, turns, size float64 }
		for _, f := range []struct {
			name string
			dst  *float64
			def  float64
		}{
			{"radius", &p.radius, 0.1},
			{"pitch", &p.pitch, 0.05},
			{"turns", &p.turns, 1},
			{"size", &p.size, 0.01},
		} {
			if *f.dst, err = pa.float(f.name, f.def); err != nil {
				return zygo.SexpNull, fmt.Errorf("helix: %w", err)
			}
		}
		strength, err := pa.optFloat("strength")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("helix: %w", err)
		}
		steps := 32
		if v, ok := pa.kw["steps"]; ok {
			if steps, err = toInt(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("helix: steps: %w", err)
			}
		}
		if steps < 1 {
			return zygo.SexpNull, fmt.Errorf("helix: steps must be positive, got %d", steps)
		}

		n := int(math.Ceil(float64(steps)*math.Abs(p.turns))) + 1
		out := make([]scene.Sample, n)
		for i := range out {
			theta := 2 * math.Pi * float64(i) / float64(steps)
			if p.turns < 0 {
				theta = -theta
			}
			radial := geom.V3(math.Cos(theta), 0, math.Sin(theta))
			out[i] = scene.Sample{
				Position: at.Add(radial.Scale(p.radius)).Add(geom.V3(0, p.pitch*math.Abs(theta)/(2*math.Pi), 0)),
				Radius:   p.size,
				Normal:   radial,
				Strength: strength,
			}
		}
		return &sexpSamples{samples: out}, nil
	})

	// -----------------------------------------------------------------------
	// (tube :name "stem" :color "#3a7" :frame f (sample ...) (line ...) ...)
	// (ribbon ...)
	// (sculpt :step 0.01 :iso 0.5 :strength 1 :base "blob" ...)
	// -----------------------------------------------------------------------
	env.AddFunction("tube", strokeBuiltin(s, scene.KindTube))
	env.AddFunction("ribbon", strokeBuiltin(s, scene.KindRibbon))
	env.AddFunction("sculpt", strokeBuiltin(s, scene.KindSculpt))
}

// strokeBuiltin returns the form that records a stroke of kind k.
// Anonymous strokes are keyed by kind and position in the scene, so their
// IDs are stable across evaluations of the same script.
func strokeBuiltin(s *scene.Scene, k scene.StrokeKind) zygo.ZlispUserFunction {
	allowed := []string{"name", "color", "frame"}
	if k == scene.KindSculpt {
		allowed = append(allowed, "step", "iso", "strength", "base")
	}

	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only(allowed...); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", k, err)
		}

		st := &scene.Stroke{Kind: k, Frame: geom.Identity()}
		var err error
		if st.Name, err = pa.str("name"); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", k, err)
		}
		if st.Color, err = pa.str("color"); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", k, err)
		}
		if v, ok := pa.kw["frame"]; ok {
			if st.Frame, err = toFrame(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: frame: %w", k, err)
			}
		}
		if k == scene.KindSculpt {
			if st.Sculpt.StepSize, err = pa.float("step", 0); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", k, err)
			}
			if st.Sculpt.IsoLevel, err = pa.optFloat("iso"); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", k, err)
			}
			if st.Sculpt.Strength, err = pa.optFloat("strength"); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", k, err)
			}
			if st.Sculpt.Base, err = pa.str("base"); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", k, err)
			}
		}

		for i, arg := range pa.positional {
			if st.Samples, err = collectSamples(arg, st.Samples); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: argument %d: %w", k, i+1, err)
			}
		}

		key := st.Name
		if key == "" {
			key = fmt.Sprintf("%s#%d", k, len(s.Strokes))
		}
		st.ID = scene.NewStrokeID(key)
		s.Add(st)

		return &sexpStrokeRef{id: st.ID, label: st.Label()}, nil
	}
}
