package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps the refresh token on the first line of a file
type FileStore struct {
	path string
}

// NewFileStore creates a token store backed by path. A leading "~/" expands to the home directory.
func NewFileStore(path string) (*FileStore, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: expanded}, nil
}

// Path returns the resolved file path
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the refresh token from the first line of the file
func (s *FileStore) Load() (string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return "", fmt.Errorf("[CREDENTIALS] failed to open token file %s: %w", s.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("[CREDENTIALS] failed to read token file %s: %w", s.path, err)
		}
		return "", fmt.Errorf("[CREDENTIALS] token file %s is empty", s.path)
	}

	token := strings.TrimSpace(scanner.Text())
	if token == "" {
		return "", fmt.Errorf("[CREDENTIALS] token file %s is empty", s.path)
	}
	return token, nil
}

// Save truncates the file and writes token as its only line
func (s *FileStore) Save(token string) error {
	if token == "" {
		return errors.New("[CREDENTIALS] refusing to save an empty refresh token")
	}
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("[CREDENTIALS] failed to write token file %s: %w", s.path, err)
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("[CREDENTIALS] failed to resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
