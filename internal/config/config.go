package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/toolgate/toolgate/internal/policy"
	"github.com/toolgate/toolgate/internal/sandbox"
)

// Config holds the global toolgate configuration.
type Config struct {
	Sandbox SandboxConfig `yaml:"sandbox"`
	Policy  PolicyConfig  `yaml:"policy"`
	Audit   AuditConfig   `yaml:"audit"`
	Server  ServerConfig  `yaml:"server"`
}

// SandboxConfig controls the access sandbox.
type SandboxConfig struct {
	Profile      string   `yaml:"profile"`
	ScratchDir   string   `yaml:"scratch_dir"`
	AllowedPaths []string `yaml:"allowed_paths"`
}

// PolicyConfig controls the policy engine.
type PolicyConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Deny             []string `yaml:"deny"`
	Approve          []string `yaml:"approve"`
	MaxExecutionTime string   `yaml:"max_execution_time"`
	// ClassifierScript is an optional Starlark script extending the
	// built-in classifier chain.
	ClassifierScript string `yaml:"classifier_script"`
}

// DefaultMaxExecutionTime is used when no max_execution_time is configured.
const DefaultMaxExecutionTime = 30 * time.Second

// MaxExecutionDuration parses the configured execution limit or returns
// the default.
func (p *PolicyConfig) MaxExecutionDuration() time.Duration {
	if p.MaxExecutionTime != "" {
		dur, err := time.ParseDuration(p.MaxExecutionTime)
		if err == nil {
			return dur
		}
	}
	return DefaultMaxExecutionTime
}

// AuditConfig controls the persistent audit sink.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig controls the serving surfaces.
type ServerConfig struct {
	Socket      string `yaml:"socket"`
	HTTPAddr    string `yaml:"http_addr"`
	IdleTimeout string `yaml:"idle_timeout"`
}

// DefaultIdleTimeout is used when no idle_timeout is configured.
const DefaultIdleTimeout = 5 * time.Minute

// IdleTimeoutDuration parses the configured idle timeout or returns the
// default.
func (s *ServerConfig) IdleTimeoutDuration() time.Duration {
	if s.IdleTimeout != "" {
		dur, err := time.ParseDuration(s.IdleTimeout)
		if err == nil {
			return dur
		}
	}
	return DefaultIdleTimeout
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Sandbox: SandboxConfig{
			Profile: "Net",
		},
		Policy: PolicyConfig{
			Enabled: true,
		},
		Audit: AuditConfig{
			Path: filepath.Join(home, ".local", "share", "toolgate", "audit.jsonl"),
		},
		Server: ServerConfig{
			Socket:   filepath.Join(os.TempDir(), "toolgate.sock"),
			HTTPAddr: "127.0.0.1:8787",
		},
	}
}

// Load reads the config from the standard location
// (~/.config/toolgate/config.yaml). If the file doesn't exist, returns
// the default config.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}

	path := filepath.Join(home, ".config", "toolgate", "config.yaml")
	return LoadFrom(path)
}

// LoadFrom reads the config from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Audit.Path = expandHome(cfg.Audit.Path)
	cfg.Sandbox.ScratchDir = expandHome(cfg.Sandbox.ScratchDir)
	cfg.Policy.ClassifierScript = expandHome(cfg.Policy.ClassifierScript)
	for i, p := range cfg.Sandbox.AllowedPaths {
		cfg.Sandbox.AllowedPaths[i] = expandHome(p)
	}

	return cfg, nil
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, path[1:])
}

// NewSandbox builds a sandbox checker from the config.
func (c *Config) NewSandbox() (*sandbox.ProcessSandbox, error) {
	profile, err := sandbox.ParseProfile(c.Sandbox.Profile)
	if err != nil {
		return nil, err
	}
	sb := sandbox.New(profile)
	if c.Sandbox.ScratchDir != "" {
		sb.SetScratchDir(c.Sandbox.ScratchDir)
	}
	for _, p := range c.Sandbox.AllowedPaths {
		sb.AllowPath(p)
	}
	return sb, nil
}

// NewPolicyEngine builds the policy engine from the config, loading the
// optional classifier script into the chain.
func (c *Config) NewPolicyEngine(sb sandbox.Checker) (*policy.Engine, error) {
	maxExec := c.Policy.MaxExecutionDuration()
	if c.Policy.ClassifierScript == "" {
		return policy.New(sb, c.Policy.Approve, c.Policy.Deny, maxExec), nil
	}

	script, err := policy.LoadScript(c.Policy.ClassifierScript)
	if err != nil {
		return nil, fmt.Errorf("load classifier script: %w", err)
	}
	chain := []policy.Classifier{
		policy.DenyList(c.Policy.Deny),
		policy.ApprovalList(c.Policy.Approve),
		script,
		policy.ShellHeuristic(),
		policy.WriteHeuristic(),
	}
	return policy.NewWithChain(sb, chain, maxExec), nil
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "toolgate", "config.yaml")
}
