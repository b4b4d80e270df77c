package prompts

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
)

// keyPattern keeps prompt keys usable as file names: a letter, then letters,
// digits, dots and underscores.
var keyPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._]*$`)

var errNoOverrideDir = errors.New("prompt override directory not configured")

// Store keeps prompt overrides as <key>.tmpl files in one directory. A nil
// Store, or one without a directory, holds no overrides and refuses writes.
type Store struct {
	dir    string
	logger *slog.Logger
}

func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}
}

func (s *Store) enabled() bool { return s != nil && s.dir != "" }

// Path is the override file for key. Keys that could escape the directory
// are rejected.
func (s *Store) Path(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("invalid prompt key %q", key)
	}
	return filepath.Join(s.dir, key+".tmpl"), nil
}

// Get reads the override for key. ok is false, with a nil error, when there
// is none.
func (s *Store) Get(key string) (text, path string, ok bool, err error) {
	if !s.enabled() {
		return "", "", false, nil
	}
	if path, err = s.Path(key); err != nil {
		return "", "", false, err
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", "", false, nil
	case err != nil:
		return "", "", false, fmt.Errorf("read prompt override %s: %w", path, err)
	}
	return string(data), path, true, nil
}

// Put writes text as the override for key and returns the file written.
// The file is replaced by rename.
func (s *Store) Put(key, text string) (string, error) {
	if !s.enabled() {
		return "", errNoOverrideDir
	}
	path, err := s.Path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create prompt directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write prompt override: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write prompt override: %w", err)
	}
	s.logger.Info("wrote prompt override", "key", key, "path", path)
	return path, nil
}

// Delete removes the override for key if there is one.
func (s *Store) Delete(key string) error {
	if !s.enabled() {
		return nil
	}
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete prompt override: %w", err)
	}
	s.logger.Debug("removed prompt override", "key", key)
	return nil
}
