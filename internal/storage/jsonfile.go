// Package storage provides whole-file JSON persistence with atomic replacement.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
)

// JSONFile reads and writes a single JSON document.
// Writes go through renameio: a synced temporary file in the same directory is
// renamed over the destination, so readers never observe a half-written file.
type JSONFile struct {
	path string
	mu   sync.Mutex
}

// NewJSONFile creates a JSON file handle for path
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Path returns the destination path
func (f *JSONFile) Path() string {
	return f.path
}

// Read decodes the file into v.
// Returns found=false with no error when the file does not exist.
func (f *JSONFile) Read(v interface{}) (found bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("failed to decode %s: %w", f.path, err)
	}

	return true, nil
}

// Write encodes v and atomically replaces the file
func (f *JSONFile) Write(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", f.path, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := renameio.WriteFile(f.path, data, 0644); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}
