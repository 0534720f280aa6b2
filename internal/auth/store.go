package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"giftboard/internal/model"
)

// Store persists the live credential pair.
type Store interface {
	// Load returns ok=false when nothing usable is stored.
	Load() (creds model.Credentials, ok bool, err error)
	Save(creds model.Credentials) error
}

// FileStore keeps credentials as a JSON object in a single file.
type FileStore struct{ path string }

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load() (model.Credentials, bool, error) {
	var creds model.Credentials
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return creds, false, nil
	}
	if err != nil {
		return creds, false, err
	}
	if err := json.Unmarshal(b, &creds); err != nil {
		return creds, false, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if creds.RefreshToken == "" {
		return creds, false, nil
	}
	return creds, true, nil
}

// Save replaces the file in full. The new content is written to a sibling
// temp file first so a failed write never truncates the stored pair.
func (s *FileStore) Save(creds model.Credentials) error {
	b, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tokens-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
