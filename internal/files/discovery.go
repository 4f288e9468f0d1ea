package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindByExtensions lists the regular files of dir whose lower-cased name ends
// with one of exts. Results are in numeric filename order.
func (d *Discovery) FindByExtensions(dir string, exts ...string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	byName := make(map[string]FileInfo)
	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if !HasExtension(name, exts...) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		byName[name] = FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		names = append(names, name)
	}

	SortNumeric(names)

	files := make([]FileInfo, 0, len(names))
	for _, name := range names {
		files = append(files, byName[name])
	}
	return files, nil
}

// FindFilesByPattern finds files matching a glob pattern, in numeric filename order
func (d *Discovery) FindFilesByPattern(dir string, pattern string) ([]FileInfo, error) {
	matches, err := filepath.Glob(filepath.Join(d.resolve(dir), pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	byName := make(map[string]FileInfo)
	var names []string
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		name := filepath.Base(match)
		byName[name] = FileInfo{
			Path:    match,
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		names = append(names, name)
	}

	SortNumeric(names)

	files := make([]FileInfo, 0, len(names))
	for _, name := range names {
		files = append(files, byName[name])
	}
	return files, nil
}

// resolve joins relative directories onto the base path
func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

// HasExtension reports whether name ends with one of exts, ignoring case
func HasExtension(name string, exts ...string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
