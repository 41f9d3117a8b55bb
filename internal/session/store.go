package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Store reads and writes the active session pointer.
//
// One record is active at a time; concurrent invocations against the
// same pointer file are excluded by the operator's sequential use, not
// by in-process locking.
type Store interface {
	// Load reads the active session record. Returns ErrNoActiveSession
	// if the pointer file does not exist.
	Load() (*Session, error)

	// Save writes the session record atomically.
	Save(s *Session) error

	// Path returns the pointer file location.
	Path() string
}

// fileStore keeps the session record in a single JSON file.
type fileStore struct {
	path string
}

// NewStore creates a file-backed session store at path.
func NewStore(path string) (Store, error) {
	if path == "" {
		return nil, errors.New("session pointer path is required")
	}
	return &fileStore{path: path}, nil
}

func (f *fileStore) Load() (*Session, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoActiveSession, f.path)
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", f.path, err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session record in %s: %w", f.path, err)
	}

	return &s, nil
}

func (f *fileStore) Save(s *Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid session: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory %s: %w", dir, err)
	}

	// Write to a temp file in the same directory, then rename, so a
	// crash mid-write never leaves a truncated pointer.
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close session file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	return nil
}

func (f *fileStore) Path() string {
	return f.path
}
