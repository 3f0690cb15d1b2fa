package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Session is the analyst's current selection of APK ids.
type Session struct {
	// Selected holds APK ids in selection order without duplicates.
	Selected []int64 `yaml:"selected"`
}

// Select adds ids to the selection, ignoring ones already selected.
func (s *Session) Select(ids ...int64) {
	for _, id := range ids {
		if !s.IsSelected(id) {
			s.Selected = append(s.Selected, id)
		}
	}
}

// Clear empties the selection.
func (s *Session) Clear() {
	s.Selected = nil
}

// IsSelected reports whether id is selected.
func (s *Session) IsSelected(id int64) bool {
	return slices.Contains(s.Selected, id)
}

// Empty reports whether nothing is selected.
func (s *Session) Empty() bool {
	return len(s.Selected) == 0
}

// Store persists a Session as YAML at a fixed path.
type Store struct {
	path string
}

// NewStore creates a Store for path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the session file path.
func (st *Store) Path() string {
	return st.path
}

// Load reads the session. A missing file yields an empty session.
func (st *Store) Load() (*Session, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Session{}, nil
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", st.path, err)
	}
	return &s, nil
}

// Save writes s, creating the parent directory when needed.
func (st *Store) Save(s *Session) error {
	if err := os.MkdirAll(filepath.Dir(st.path), 0o750); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(st.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}
