package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the hub configuration file, located at the hub package root.
const FileName = "graft.yaml"

// DefaultHubDir is the conventional hub location relative to the consuming
// repository when no explicit package root is given.
const DefaultHubDir = ".graft/hub"

// Position values for injection entries.
const (
	PositionPrepend = "prepend"
	PositionAppend  = "append"
	// AfterPrefix introduces an "after:<literal-line>" position.
	AfterPrefix = "after:"
)

// Config represents the hub's declarative manifest: what to inject and
// which hooks to install.
type Config struct {
	Inject []InjectEntry `yaml:"inject"`
	Hooks  HooksConfig   `yaml:"hooks"`
}

// InjectEntry declares one managed injection into a consumer-owned file.
type InjectEntry struct {
	// Target is the file receiving the marked region, relative to the
	// consuming repository root.
	Target string `yaml:"target"`
	// Compare names a hub file whose content is checked against the
	// target for the dogfooding short-circuit. Optional.
	Compare string `yaml:"compare"`
	// Template is the snippet template name under the hub's templates dir.
	Template string `yaml:"template"`
	// Position is prepend, append, or after:<literal-line>.
	Position string `yaml:"position"`
}

// HooksConfig declares the hook scripts to install.
type HooksConfig struct {
	// Source is the hook script directory relative to the hub root.
	Source string `yaml:"source"`
	// Files lists hook script names under Source (pre-commit, ...).
	Files []string `yaml:"files"`
}

// Load reads the hub configuration from hubPath. An absent config file is
// not an error: it returns (nil, nil), meaning the repository has not
// opted into any injections.
func Load(hubPath string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(hubPath, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ResolveHubPath returns the hub's installed location for a consuming
// repository: the explicit override when given (resolved against repoRoot
// if relative), otherwise the conventional default location.
func ResolveHubPath(repoRoot, override string) string {
	if override != "" {
		if filepath.IsAbs(override) {
			return override
		}
		return filepath.Join(repoRoot, override)
	}
	return filepath.Join(repoRoot, DefaultHubDir)
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	for i := range c.Inject {
		c.Inject[i].Target = os.ExpandEnv(c.Inject[i].Target)
		c.Inject[i].Compare = os.ExpandEnv(c.Inject[i].Compare)
		c.Inject[i].Template = os.ExpandEnv(c.Inject[i].Template)
	}
	c.Hooks.Source = os.ExpandEnv(c.Hooks.Source)
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Hooks.Source == "" && len(c.Hooks.Files) > 0 {
		c.Hooks.Source = "hooks"
	}
	for i := range c.Inject {
		if c.Inject[i].Position == "" {
			c.Inject[i].Position = PositionAppend
		}
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	for i, entry := range c.Inject {
		if entry.Target == "" {
			return fmt.Errorf("inject[%d]: target is required", i)
		}
		if entry.Template == "" {
			return fmt.Errorf("inject[%d]: template is required", i)
		}
		if filepath.IsAbs(entry.Target) {
			return fmt.Errorf("inject[%d]: target must be relative to the repository root: %s", i, entry.Target)
		}
		if !ValidPosition(entry.Position) {
			return fmt.Errorf("inject[%d]: invalid position: %s (must be prepend, append, or after:<line>)", i, entry.Position)
		}
	}

	for i, name := range c.Hooks.Files {
		if name == "" {
			return fmt.Errorf("hooks.files[%d]: name must not be empty", i)
		}
		if strings.ContainsRune(name, os.PathSeparator) || name != filepath.Base(name) {
			return fmt.Errorf("hooks.files[%d]: name must be a bare file name: %s", i, name)
		}
	}

	return nil
}

// ValidPosition reports whether position is one of the supported values.
func ValidPosition(position string) bool {
	switch {
	case position == PositionPrepend, position == PositionAppend:
		return true
	case strings.HasPrefix(position, AfterPrefix):
		return strings.TrimPrefix(position, AfterPrefix) != ""
	}
	return false
}

// AfterPattern returns the literal line pattern of an "after:" position
// and whether the position is of that form.
func AfterPattern(position string) (string, bool) {
	if !strings.HasPrefix(position, AfterPrefix) {
		return "", false
	}
	return strings.TrimPrefix(position, AfterPrefix), true
}
