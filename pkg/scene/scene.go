// Package scene defines the stroke list produced by script evaluation.
// A Scene is built once per evaluation and not mutated afterwards; the
// tessellator replays each stroke through its generator in order.
package scene

// Scene is an ordered list of strokes with a name index.
type Scene struct {
	Strokes   []*Stroke           `json:"strokes"`
	NameIndex map[string]StrokeID `json:"name_index"`
	Version   uint64              `json:"version"`
}

// New creates an empty Scene.
func New() *Scene {
	return &Scene{
		NameIndex: make(map[string]StrokeID),
	}
}

// Add appends a stroke. A named stroke replaces any earlier entry with the
// same name in the index; Validate reports the duplicate.
func (s *Scene) Add(st *Stroke) {
	s.Strokes = append(s.Strokes, st)
	if st.Name != "" {
		s.NameIndex[st.Name] = st.ID
	}
}

// Get returns the stroke with the given ID, or nil.
func (s *Scene) Get(id StrokeID) *Stroke {
	for _, st := range s.Strokes {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// Lookup returns the stroke with the given name, or nil.
func (s *Scene) Lookup(name string) *Stroke {
	id, ok := s.NameIndex[name]
	if !ok {
		return nil
	}
	return s.Get(id)
}

// IndexOf returns the position of the stroke in the scene, or -1.
func (s *Scene) IndexOf(id StrokeID) int {
	for i, st := range s.Strokes {
		if st.ID == id {
			return i
		}
	}
	return -1
}
