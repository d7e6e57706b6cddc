package scanning

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Loader reads the bytes behind an asset handle
type Loader interface {
	Load(uri string) ([]byte, error)
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc func(uri string) ([]byte, error)

// Load calls f(uri)
func (f LoaderFunc) Load(uri string) ([]byte, error) {
	return f(uri)
}

// Storage holds uploaded assets for the lifetime of the process
type Storage interface {
	Loader

	// Save writes data under name and returns the asset handle
	Save(name string, data []byte) (string, error)

	// Delete removes the stored asset
	Delete(uri string) error
}

// LocalStorage implements Storage on the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage rooted at basePath
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// resolve keeps handles inside basePath
func (l *LocalStorage) resolve(uri string) (string, error) {
	name := filepath.Base(filepath.Clean("/" + uri))
	if name == "/" || name == "." {
		return "", fmt.Errorf("invalid asset handle %q", uri)
	}
	return filepath.Join(l.basePath, name), nil
}

// Save writes an asset to local storage
func (l *LocalStorage) Save(name string, data []byte) (string, error) {
	path, err := l.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return filepath.Base(path), nil
}

// Load reads an asset from local storage
func (l *LocalStorage) Load(uri string) ([]byte, error) {
	path, err := l.resolve(uri)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes an asset from local storage
func (l *LocalStorage) Delete(uri string) error {
	path, err := l.resolve(uri)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	spaceRuns   = regexp.MustCompile(`\s+`)
)

// SanitizeFilename drops special characters and truncates long phone-generated names
func SanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeChars.ReplaceAllString(base, "")
	base = spaceRuns.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "document"
	}

	if ext != "" {
		ext = "." + unsafeChars.ReplaceAllString(ext[1:], "")
	}
	if ext == "." {
		ext = ""
	}

	return base + ext
}
