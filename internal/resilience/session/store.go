package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/docketry/docketd/internal/core/domain"
)

// TokenStore persists the session across restarts so the agent can resume
// without credentials.
type TokenStore interface {
	// Load returns the persisted session, or nil when none exists.
	Load() (*domain.Session, error)

	// Save stores the session.
	Save(s *domain.Session) error

	// Clear removes the persisted session.
	Clear() error
}

// FileStore persists the session as a JSON file with owner-only permissions.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed token store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load() (*domain.Session, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if s.RefreshToken == "" {
		return nil, nil
	}
	return &s, nil
}

func (f *FileStore) Save(s *domain.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create session dir: %w", err)
		}
	}

	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear() error {
	err := os.Remove(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
