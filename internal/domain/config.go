package domain

// Config represents the application configuration.
type Config struct {
	// Hooks maps a hook point name to the shell command run for it.
	Hooks    map[string]string `toml:"hooks"`
	Agent    AgentConfig       `toml:"agent"`
	Classify ClassifyConfig    `toml:"classify"`
	Log      LogConfig         `toml:"log"`
	// SharedFolders are repo-relative directories symlinked into every
	// worktree instead of being copied (build caches, dependency dirs).
	SharedFolders []string `toml:"shared_folders"`
}

// AgentConfig holds executor settings from the [agent] section.
type AgentConfig struct {
	// Profiles maps a profile name to the command line used for that
	// profile. Unknown profiles fall back to Command.
	Profiles       map[string]string `toml:"profiles"`
	Command        string            `toml:"command"`         // Agent subprocess command line
	Profile        string            `toml:"profile"`         // Default executor profile
	ReducedProfile string            `toml:"reduced_profile"` // Profile for compaction/handoff
}

// CommandFor resolves the command line for a profile.
func (a AgentConfig) CommandFor(profile string) string {
	if cmd, ok := a.Profiles[profile]; ok && cmd != "" {
		return cmd
	}
	return a.Command
}

// ClassifyConfig holds post-run classification settings from [classify].
// Enabled is a pointer so an explicit false in one config file is
// distinguishable from the key being absent.
type ClassifyConfig struct {
	Enabled *bool `toml:"enabled"`
}

// ClassifyEnabled reports whether post-run classification is on.
func (c *Config) ClassifyEnabled() bool {
	return c.Classify.Enabled == nil || *c.Classify.Enabled
}

// LogConfig holds logging settings from the [log] section.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// NewDefaultConfig returns the built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Profile:        "default",
			ReducedProfile: "reduced",
		},
		Classify: ClassifyConfig{},
		Log:      LogConfig{Level: "info"},
	}
}
