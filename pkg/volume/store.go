package volume

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// StateExt is the file extension of a saved state.
const StateExt = ".vstate"

// SaveStates writes every state to dir as <name>.vstate, creating dir if
// needed. Names are path-escaped so any stroke name is a valid file name.
func SaveStates(dir string, states map[string]State) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("volume: save states: %w", err)
	}
	for name, s := range states {
		if err := saveState(filepath.Join(dir, url.PathEscape(name)+StateExt), s); err != nil {
			return fmt.Errorf("volume: save state %q: %w", name, err)
		}
	}
	return nil
}

func saveState(path string, s State) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = s.Encode(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// LoadStates reads every .vstate file in dir, keyed by the name it was
// saved under. A missing dir yields no states.
func LoadStates(dir string) (map[string]State, error) {
	states := make(map[string]State)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return states, nil
	}
	if err != nil {
		return nil, fmt.Errorf("volume: load states: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), StateExt) {
			continue
		}
		name, err := url.PathUnescape(strings.TrimSuffix(e.Name(), StateExt))
		if err != nil {
			return nil, fmt.Errorf("volume: load states: %s: %w", e.Name(), err)
		}
		s, err := loadState(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("volume: load state %q: %w", name, err)
		}
		states[name] = s
	}
	return states, nil
}

func loadState(path string) (State, error) {
	f, err := os.Open(path)
	if err != nil {
		return State{}, err
	}
	defer f.Close()
	return DecodeState(f)
}
