package scene

import (
	"fmt"
	"math"

	"github.com/ubisoft/vrtist-sub002/pkg/geom"
)

// ValidationSeverity indicates whether a validation finding blocks meshing
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks meshing
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	StrokeID StrokeID           // which stroke has the problem (zero if scene-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.StrokeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] stroke %s: %s", e.Severity, e.StrokeID.Short(), e.Message)
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	StrokeID StrokeID
	Message  string
}

// ValidationResult bundles errors (blocking) and warnings (advisory).
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// OK reports whether there are no blocking errors.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Validate checks every stroke of s. defaultStep is the volume step used
// by sculpts that do not set their own. persisted names sculpts saved by
// an earlier run, which a base may refer to when no earlier stroke
// defines it. Validate never mutates s.
func Validate(s *Scene, defaultStep float64, persisted ...string) ValidationResult {
	var result ValidationResult
	result.Errors = append(result.Errors, validateNames(s)...)
	result.Errors = append(result.Errors, validateBases(s, persisted)...)
	for _, st := range s.Strokes {
		result.Errors = append(result.Errors, validateSamples(st)...)
		result.Warnings = append(result.Warnings, sampleWarnings(st, defaultStep)...)
	}
	return result
}

// validateNames reports strokes that reuse a name.
func validateNames(s *Scene) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for _, st := range s.Strokes {
		if st.Name == "" {
			continue
		}
		if seen[st.Name] {
			errs = append(errs, ValidationError{
				StrokeID: st.ID,
				Message:  fmt.Sprintf("duplicate stroke name %q", st.Name),
				Severity: SeverityError,
			})
		}
		seen[st.Name] = true
	}
	return errs
}

// validateBases checks that every sculpt base names an earlier sculpt or a
// persisted one.
func validateBases(s *Scene, persisted []string) []ValidationError {
	known := make(map[string]bool, len(persisted))
	for _, name := range persisted {
		known[name] = true
	}

	var errs []ValidationError
	fail := func(st *Stroke, format string, args ...any) {
		errs = append(errs, ValidationError{
			StrokeID: st.ID,
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
		})
	}
	for i, st := range s.Strokes {
		base := st.Sculpt.Base
		if base == "" {
			continue
		}
		if st.Kind != KindSculpt {
			fail(st, "only sculpt strokes take a base, %s has base %q", st.Kind, base)
			continue
		}

		j := -1
		b := s.Lookup(base)
		if b != nil {
			j = s.IndexOf(b.ID)
		}
		switch {
		case j >= 0 && j < i && b.Kind != KindSculpt:
			fail(st, "base %q is a %s, not a sculpt", base, b.Kind)
		case j >= 0 && j < i, known[base]:
		case j == i:
			fail(st, "base %q refers to the stroke itself", base)
		case j > i:
			fail(st, "base %q is defined after the stroke that uses it", base)
		default:
			fail(st, "base %q does not exist", base)
		}
	}
	return errs
}

// validateSamples checks per-sample numbers and sculpt parameters.
func validateSamples(st *Stroke) []ValidationError {
	var errs []ValidationError
	fail := func(format string, args ...any) {
		errs = append(errs, ValidationError{
			StrokeID: st.ID,
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
		})
	}

	if st.Kind < KindTube || st.Kind > KindSculpt {
		fail("unknown stroke kind %d", int(st.Kind))
	}
	if st.Kind == KindSculpt && (st.Sculpt.StepSize < 0 || !finite(st.Sculpt.StepSize)) {
		fail("sculpt step size is %.4f, must be positive", st.Sculpt.StepSize)
	}
	if !finitePtr(st.Sculpt.IsoLevel) || !finitePtr(st.Sculpt.Strength) {
		fail("sculpt iso level and strength must be finite")
	}

	for i, smp := range st.Samples {
		if !smp.Position.IsFinite() || !smp.Normal.IsFinite() || !finite(smp.Radius) || !finitePtr(smp.Strength) {
			fail("sample %d has a non-finite coordinate", i)
			continue
		}
		if smp.Radius <= 0 {
			fail("sample %d radius is %.4f, must be positive", i, smp.Radius)
		}
		if st.Kind == KindRibbon && smp.Normal.IsZero() {
			fail("sample %d has a zero normal", i)
		}
	}
	return errs
}

// sampleWarnings flags strokes that will mesh to little or nothing.
func sampleWarnings(st *Stroke, defaultStep float64) []ValidationWarning {
	var warnings []ValidationWarning
	warn := func(format string, args ...any) {
		warnings = append(warnings, ValidationWarning{
			StrokeID: st.ID,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	switch st.Kind {
	case KindTube, KindRibbon:
		if len(st.Samples) < 2 {
			warn("%s %s has %d samples and produces no triangles", st.Kind, st.Label(), len(st.Samples))
		}
	case KindSculpt:
		if len(st.Samples) == 0 && st.Sculpt.Base == "" {
			warn("sculpt %s has no samples", st.Label())
		}
		step := st.Sculpt.StepSize
		if step == 0 {
			step = defaultStep
		}
		for i, smp := range st.Samples {
			if smp.Radius > 0 && smp.Radius < step {
				warn("sculpt %s sample %d radius %.4f is below the step size %.4f", st.Label(), i, smp.Radius, step)
				break
			}
		}
	}

	if n := collapsed(st); n > 0 {
		warn("%d samples of %s are closer than their radius allows and will be merged", n, st.Label())
	}
	return warnings
}

// collapsed counts the samples the generator debounce will drop or merge.
func collapsed(st *Stroke) int {
	factor := 1.0
	if st.Kind == KindSculpt {
		factor = 0.5
	}
	n := 0
	var anchor geom.Vec3
	for i, smp := range st.Samples {
		if i > 0 && anchor.Distance(smp.Position) < factor*smp.Radius {
			n++
			continue
		}
		anchor = smp.Position
	}
	return n
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finitePtr(f *float64) bool {
	return f == nil || finite(*f)
}
