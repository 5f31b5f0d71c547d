package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"importguard/internal/report"
	"importguard/internal/rule"
	"importguard/internal/source"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "importguard.yaml"

// ErrNoBoundaries is returned when a config declares no boundaries.
var ErrNoBoundaries = errors.New("no boundaries configured")

// Config holds all importguard configuration.
type Config struct {
	// Repository root, relative to the config file's directory.
	Root string `yaml:"root"`
	// Parent directories to ascend from Root.
	RootLevels int `yaml:"root_levels"`

	// Concurrent case evaluations; 0 means one per CPU.
	Workers int `yaml:"workers"`

	// Output format: text, table or json.
	Format string `yaml:"format"`

	Boundaries []BoundaryConfig `yaml:"boundaries"`

	Logging LoggingConfig `yaml:"logging"`

	// Directory of the file this config was loaded from.
	dir string
}

// BoundaryConfig declares one domain/IO separation rule.
type BoundaryConfig struct {
	Name            string   `yaml:"name"`
	Rationale       string   `yaml:"rationale,omitempty"`
	Domain          []string `yaml:"domain"`
	IO              []string `yaml:"io"`
	MatchSubmodules bool     `yaml:"match_submodules,omitempty"`
}

// DefaultConfig returns the default configuration: the api package's
// domain modules may not import its file and entry-point modules.
func DefaultConfig() *Config {
	return &Config{
		Root:       ".",
		RootLevels: 0,
		Workers:    0,
		Format:     string(report.FormatText),

		Boundaries: []BoundaryConfig{
			{
				Name:   "domain-io",
				Domain: []string{"api.core", "api.predicates", "api.query"},
				IO:     []string{"api.file", "api.main"},
			},
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	cfg.dir = filepath.Dir(abs)

	data, err := os.ReadFile(abs)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Defaults if the config file doesn't exist
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if root := os.Getenv("IMPORTGUARD_ROOT"); root != "" {
		c.Root = root
	}
	if workers := os.Getenv("IMPORTGUARD_WORKERS"); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			return fmt.Errorf("invalid IMPORTGUARD_WORKERS %q: %w", workers, err)
		}
		c.Workers = n
	}
	if level := os.Getenv("IMPORTGUARD_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// ResolveRoot returns the absolute repository root. A relative Root is taken
// relative to the config file's directory, or the working directory when the
// config was not loaded from a file.
func (c *Config) ResolveRoot() (string, error) {
	root := c.Root
	if root == "" {
		root = "."
	}
	if !filepath.IsAbs(root) && c.dir != "" {
		root = filepath.Join(c.dir, root)
	}
	return source.ResolveRoot(root, c.RootLevels)
}

// GetWorkers returns the worker count, defaulting to one per CPU.
func (c *Config) GetWorkers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// GetFormat returns the parsed output format.
func (c *Config) GetFormat() (report.Format, error) {
	if c.Format == "" {
		return report.FormatText, nil
	}
	return report.ParseFormat(c.Format)
}

// Rules converts the boundary declarations into validated rules.
func (c *Config) Rules() ([]*rule.Boundary, error) {
	if len(c.Boundaries) == 0 {
		return nil, ErrNoBoundaries
	}

	seen := make(map[string]bool, len(c.Boundaries))
	rules := make([]*rule.Boundary, 0, len(c.Boundaries))
	for i, bc := range c.Boundaries {
		name := bc.Name
		if name == "" {
			name = fmt.Sprintf("boundary-%d", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate boundary name %q", name)
		}
		seen[name] = true

		domain, err := source.ParseModules(bc.Domain)
		if err != nil {
			return nil, fmt.Errorf("boundary %q: domain: %w", name, err)
		}
		io, err := source.ParseModules(bc.IO)
		if err != nil {
			return nil, fmt.Errorf("boundary %q: io: %w", name, err)
		}

		b := &rule.Boundary{
			Name:            name,
			Rationale:       bc.Rationale,
			Domain:          domain,
			IO:              io,
			MatchSubmodules: bc.MatchSubmodules,
		}
		if err := b.Validate(); err != nil {
			return nil, err
		}
		rules = append(rules, b)
	}
	return rules, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.RootLevels < 0 {
		return fmt.Errorf("root_levels must be >= 0, got %d", c.RootLevels)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if _, err := c.GetFormat(); err != nil {
		return err
	}
	if _, err := c.Rules(); err != nil {
		return err
	}
	return nil
}
