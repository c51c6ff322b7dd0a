// Package builtin provides built-in agent profiles for known ACP-capable
// CLI tools. This package owns the CLI-specific command lines that domain
// should not know about.
package builtin

import "github.com/mikan-dev/splice/internal/domain"

// builtinProfiles contains preset command lines for agents that speak
// the Agent Client Protocol.
var builtinProfiles = map[string]string{
	"default": "claude-code-acp",
	"reduced": "claude-code-acp --model haiku",
	"gemini":  "gemini --experimental-acp",
}

// Register fills in agent profiles the configuration does not set.
// This should be called after NewDefaultConfig() and before merging user
// config, so user entries win.
func Register(cfg *domain.Config) {
	if cfg.Agent.Profiles == nil {
		cfg.Agent.Profiles = make(map[string]string, len(builtinProfiles))
	}
	for name, command := range builtinProfiles {
		if _, ok := cfg.Agent.Profiles[name]; !ok {
			cfg.Agent.Profiles[name] = command
		}
	}
	if cfg.Agent.Command == "" {
		cfg.Agent.Command = builtinProfiles["default"]
	}
}
