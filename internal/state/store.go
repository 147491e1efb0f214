package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Store reads and writes the state file. There is no locking; a single
// process owns the file and the last write wins.
type Store struct {
	path string
}

// NewStore creates a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load returns the saved state, or Default when the file is missing or
// unreadable.
func (s *Store) Load() State {
	file, err := os.Open(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logrus.WithError(err).WithField("file", s.path).Warn("Failed to open state file, using defaults")
		}
		return Default()
	}
	defer file.Close()

	var st State
	if err := json.NewDecoder(file).Decode(&st); err != nil {
		logrus.WithError(err).WithField("file", s.path).Warn("State file is corrupt, using defaults")
		return Default()
	}

	if st.Version == 0 {
		st.Version = SchemaVersion
	}

	logrus.WithFields(logrus.Fields{
		"file":  s.path,
		"voice": st.SelectedVoice != nil,
		"piper": st.PiperBinary != nil,
	}).Debug("Loaded state")

	return st
}

// Save overwrites the state file with st.
func (s *Store) Save(st State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(st); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	return nil
}
