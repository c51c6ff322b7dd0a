// Package config provides configuration loading functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/mikan-dev/splice/internal/domain"
	"github.com/mikan-dev/splice/internal/infra/builtin"
)

// Loader loads configuration from TOML files. Repository config overrides
// global config, which overrides built-in defaults.
type Loader struct {
	spliceDir     string // Path to .git/splice directory
	globalConfDir string // Path to global config directory (e.g., ~/.config/splice)
}

// NewLoader creates a new Loader.
func NewLoader(spliceDir string) *Loader {
	return &Loader{
		spliceDir:     spliceDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config
// directory. This is useful for testing.
func NewLoaderWithGlobalDir(spliceDir, globalConfDir string) *Loader {
	return &Loader{
		spliceDir:     spliceDir,
		globalConfDir: globalConfDir,
	}
}

// defaultGlobalConfigDir returns the default global config directory.
func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalSpliceDir(configHome)
}

// Load returns the merged configuration (defaults <- global <- repo).
func (l *Loader) Load() (*domain.Config, error) {
	base := domain.NewDefaultConfig()
	builtin.Register(base)

	global, err := l.loadFile(filepath.Join(l.globalConfDir, domain.ConfigFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	repo, err := l.loadFile(filepath.Join(l.spliceDir, domain.ConfigFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if global != nil {
		merge(base, global)
	}
	if repo != nil {
		merge(base, repo)
	}
	return base, nil
}

// loadFile loads a configuration from a file.
func (l *Loader) loadFile(path string) (*domain.Config, error) {
	if l.globalConfDir == "" && l.spliceDir == "" {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg domain.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// merge overlays set fields from src onto dst. String and slice fields
// count as set when non-empty; classify.enabled is a pointer so an
// explicit false survives the merge.
func merge(dst, src *domain.Config) {
	if src.Agent.Command != "" {
		dst.Agent.Command = src.Agent.Command
	}
	if src.Agent.Profile != "" {
		dst.Agent.Profile = src.Agent.Profile
	}
	if src.Agent.ReducedProfile != "" {
		dst.Agent.ReducedProfile = src.Agent.ReducedProfile
	}
	for name, cmd := range src.Agent.Profiles {
		if dst.Agent.Profiles == nil {
			dst.Agent.Profiles = map[string]string{}
		}
		dst.Agent.Profiles[name] = cmd
	}
	for point, cmd := range src.Hooks {
		if dst.Hooks == nil {
			dst.Hooks = map[string]string{}
		}
		dst.Hooks[point] = cmd
	}
	if src.Classify.Enabled != nil {
		dst.Classify.Enabled = src.Classify.Enabled
	}
	if src.Log.Level != "" {
		dst.Log.Level = src.Log.Level
	}
	if len(src.SharedFolders) > 0 {
		dst.SharedFolders = src.SharedFolders
	}
}
