// Package source maps dotted Python module names onto files under a
// repository root and loads their contents.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"importguard/internal/logging"
)

// Extension is the file extension of an audited source file.
const Extension = ".py"

// ErrInvalidModule is returned for module names that cannot map to a file.
var ErrInvalidModule = errors.New("invalid module name")

// Module is a dotted logical module name such as "api.core".
type Module string

// String returns the dotted name.
func (m Module) String() string {
	return string(m)
}

// Segments splits the dotted name into its parts.
func (m Module) Segments() []string {
	return strings.Split(string(m), ".")
}

// Validate reports whether m is a non-empty dotted name with no empty
// segments and no path characters.
func (m Module) Validate() error {
	if m == "" {
		return fmt.Errorf("%w: empty", ErrInvalidModule)
	}
	if strings.ContainsAny(string(m), `/\ `) {
		return fmt.Errorf("%w: %q contains path characters", ErrInvalidModule, string(m))
	}
	for _, seg := range m.Segments() {
		if seg == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidModule, string(m))
		}
	}
	return nil
}

// Path returns the file path of m relative to the repository root:
// dots become path separators and the source extension is appended.
func (m Module) Path() string {
	return filepath.Join(m.Segments()...) + Extension
}

// ParseModules validates names and converts them to Modules, keeping order.
func ParseModules(names []string) ([]Module, error) {
	mods := make([]Module, 0, len(names))
	for _, n := range names {
		m := Module(strings.TrimSpace(n))
		if err := m.Validate(); err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, nil
}

// FixtureError reports a module whose backing file could not be read.
// It indicates a misconfigured check, never an architectural violation.
type FixtureError struct {
	Module Module
	Path   string
	Err    error
}

func (e *FixtureError) Error() string {
	return fmt.Sprintf("module %s (%s): %v", e.Module, e.Path, e.Err)
}

func (e *FixtureError) Unwrap() error {
	return e.Err
}

// ResolveRoot returns the absolute directory reached by ascending levels
// parent directories from start.
func ResolveRoot(start string, levels int) (string, error) {
	if levels < 0 {
		return "", fmt.Errorf("root levels must be >= 0, got %d", levels)
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root %s: %w", start, err)
	}
	for i := 0; i < levels; i++ {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("cannot ascend %d levels from %s", levels, start)
		}
		dir = parent
	}

	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root %s is not a directory", dir)
	}
	return dir, nil
}

// Locator resolves modules against a fixed repository root.
type Locator struct {
	root string
}

// NewLocator creates a Locator for root. The root is made absolute once.
func NewLocator(root string) (*Locator, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	logging.SourceDebug("Locator root: %s", abs)
	return &Locator{root: abs}, nil
}

// Root returns the absolute repository root.
func (l *Locator) Root() string {
	return l.root
}

// Locate returns the absolute path backing m.
func (l *Locator) Locate(m Module) string {
	return filepath.Join(l.root, m.Path())
}

// Read loads the full contents of the file backing m.
// Failures are returned as *FixtureError.
func (l *Locator) Read(m Module) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, &FixtureError{Module: m, Err: err}
	}
	path := l.Locate(m)
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Get(logging.CategorySource).Warn("read failed: %s - %v", path, err)
		return nil, &FixtureError{Module: m, Path: path, Err: err}
	}
	logging.SourceDebug("read %s (%d bytes)", m, len(data))
	return data, nil
}

// ModuleFor maps a file path back to its module name. It returns false for
// paths outside the root or without the source extension.
func (l *Locator) ModuleFor(path string) (Module, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(l.root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	if filepath.Ext(rel) != Extension {
		return "", false
	}
	rel = strings.TrimSuffix(rel, Extension)
	m := Module(strings.ReplaceAll(filepath.ToSlash(rel), "/", "."))
	if m.Validate() != nil {
		return "", false
	}
	return m, true
}
