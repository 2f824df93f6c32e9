package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spherical/book-translator/internal/domain"
)

// ProgressStore holds the single resume record for a run, overwritten
// atomically (write to a temp file, then rename) on every commit.
type ProgressStore struct {
	path string
}

// NewProgressStore creates a progress store backed by the file at path.
func NewProgressStore(path string) *ProgressStore {
	return &ProgressStore{path: path}
}

// Path returns the store's file path.
func (s *ProgressStore) Path() string {
	return s.path
}

// Read loads the saved progress. A missing file returns (nil, nil); a
// corrupt file returns a corruption error so the caller can fall back to
// the result log as ground truth.
func (s *ProgressStore) Read() (*domain.ProgressState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("reading progress file %s", s.path), err)
	}

	var state domain.ProgressState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, domain.CorruptionError(fmt.Sprintf("progress file %s is malformed", s.path), err)
	}
	return &state, nil
}

// Write replaces the progress record. The rename makes the overwrite atomic
// so a crash never leaves a half-written progress file behind.
func (s *ProgressStore) Write(state domain.ProgressState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return domain.IOError("marshaling progress state", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".progress-*")
	if err != nil {
		return domain.IOError("creating temp progress file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return domain.IOError("writing temp progress file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return domain.IOError("syncing temp progress file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return domain.IOError("closing temp progress file", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return domain.IOError(fmt.Sprintf("replacing progress file %s", s.path), err)
	}
	return nil
}
