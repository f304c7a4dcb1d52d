package exam

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Loader loads and caches exam definitions from the filesystem.
type Loader struct {
	rootDir string
	exams   map[string]Definition
	mu      sync.RWMutex
}

// NewLoader creates a new exam loader and loads every definition under
// rootDir.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		exams:   make(map[string]Definition),
	}

	if err := l.Reload(); err != nil {
		return nil, err
	}

	slog.Info("exam definitions loaded", "dir", rootDir, "exams", l.Len())
	return l, nil
}

// Get returns a definition by ID.
func (l *Loader) Get(id string) (Definition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.exams[id]
	return d, ok
}

// All returns every loaded definition ordered by ID.
func (l *Loader) All() []Definition {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Definition, 0, len(l.exams))
	for _, d := range l.exams {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b Definition) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Len returns the number of loaded definitions.
func (l *Loader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.exams)
}

// Reload rereads rootDir, replacing the cached definitions.
func (l *Loader) Reload() error {
	exams := make(map[string]Definition)
	err := filepath.WalkDir(l.rootDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !isYAML(path) {
			return nil
		}

		d, err := LoadFile(path)
		if err != nil {
			slog.Warn("skipping invalid exam YAML", "path", path, "error", err)
			return nil
		}
		if d.ID == "" {
			return nil // Not an exam file
		}
		if prev, dup := exams[d.ID]; dup {
			slog.Warn("duplicate exam id", "id", d.ID, "path", path, "kept", prev.Path)
			return nil
		}
		exams[d.ID] = *d
		return nil
	})
	if err != nil {
		return fmt.Errorf("loading exams: %w", err)
	}

	l.mu.Lock()
	l.exams = exams
	l.mu.Unlock()
	return nil
}

// LoadFile reads a single exam definition.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path)
}

// Parse decodes an exam definition. path is recorded on the result and may
// be empty.
func Parse(data []byte, path string) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse exam: %w", err)
	}
	d.Path = path
	return &d, nil
}

func isYAML(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}
