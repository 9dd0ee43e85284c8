package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/toolgate/toolgate/internal/policy"
	"github.com/toolgate/toolgate/internal/sandbox"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Sandbox.Profile != "Net" {
		t.Errorf("Sandbox.Profile = %q, want Net", cfg.Sandbox.Profile)
	}
	if !cfg.Policy.Enabled {
		t.Error("policy should be enabled by default")
	}
	if cfg.Audit.Path == "" {
		t.Error("audit path should have a default")
	}
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Sandbox.Profile != "Net" {
		t.Errorf("Sandbox.Profile = %q, want default", cfg.Sandbox.Profile)
	}
}

func TestLoadFromOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
sandbox:
  profile: ReadOnlyFs
  allowed_paths:
    - /srv/data
policy:
  deny:
    - rm_rf
  approve:
    - deploy
  max_execution_time: 45s
server:
  idle_timeout: 2m
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Sandbox.Profile != "ReadOnlyFs" {
		t.Errorf("Sandbox.Profile = %q", cfg.Sandbox.Profile)
	}
	if len(cfg.Sandbox.AllowedPaths) != 1 || cfg.Sandbox.AllowedPaths[0] != "/srv/data" {
		t.Errorf("AllowedPaths = %v", cfg.Sandbox.AllowedPaths)
	}
	if len(cfg.Policy.Deny) != 1 || cfg.Policy.Deny[0] != "rm_rf" {
		t.Errorf("Deny = %v", cfg.Policy.Deny)
	}
	if got := cfg.Policy.MaxExecutionDuration(); got != 45*time.Second {
		t.Errorf("MaxExecutionDuration = %v", got)
	}
	if got := cfg.Server.IdleTimeoutDuration(); got != 2*time.Minute {
		t.Errorf("IdleTimeoutDuration = %v", got)
	}
	// Unset sections keep their defaults.
	if !cfg.Policy.Enabled {
		t.Error("policy enabled default was lost")
	}
}

func TestLoadFromRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("sandbox: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestDurationFallbacks(t *testing.T) {
	p := PolicyConfig{MaxExecutionTime: "garbage"}
	if got := p.MaxExecutionDuration(); got != DefaultMaxExecutionTime {
		t.Errorf("MaxExecutionDuration = %v, want default", got)
	}
	s := ServerConfig{}
	if got := s.IdleTimeoutDuration(); got != DefaultIdleTimeout {
		t.Errorf("IdleTimeoutDuration = %v, want default", got)
	}
}

func TestNewSandbox(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sandbox.Profile = "ScratchFs"
	cfg.Sandbox.ScratchDir = "/tmp/tg-scratch"
	cfg.Sandbox.AllowedPaths = []string{"/srv/data"}

	sb, err := cfg.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	if sb.ProfileName() != "ScratchFs" {
		t.Errorf("ProfileName = %q", sb.ProfileName())
	}
	res := sb.CheckAccess(sandbox.AccessRequest{Kind: sandbox.AccessFileWrite, Target: "/tmp/tg-scratch/x"})
	if !res.Allowed {
		t.Errorf("scratch write denied: %q", res.Reason)
	}
	res = sb.CheckAccess(sandbox.AccessRequest{Kind: sandbox.AccessFileRead, Target: "/etc/passwd"})
	if res.Allowed {
		t.Error("read outside allowed paths permitted")
	}
}

func TestNewSandboxBadProfile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sandbox.Profile = "Bogus"
	if _, err := cfg.NewSandbox(); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestNewPolicyEngine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.Deny = []string{"rm_rf"}
	cfg.Policy.Approve = []string{"deploy"}

	sb, err := cfg.NewSandbox()
	if err != nil {
		t.Fatal(err)
	}
	eng, err := cfg.NewPolicyEngine(sb)
	if err != nil {
		t.Fatalf("NewPolicyEngine: %v", err)
	}
	if d := eng.Evaluate("rm_rf", nil); d.Action != policy.Deny {
		t.Errorf("rm_rf action = %v", d.Action)
	}
	if d := eng.Evaluate("deploy", nil); d.Action != policy.RequireApproval {
		t.Errorf("deploy action = %v", d.Action)
	}
}

func TestNewPolicyEngineWithScript(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "classify.star")
	src := `
def classify(tool, args):
    if tool == "forbidden":
        return {"action": "deny", "reason": "scripted deny", "risk": "critical"}
    return None
`
	if err := os.WriteFile(script, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Policy.ClassifierScript = script

	sb, err := cfg.NewSandbox()
	if err != nil {
		t.Fatal(err)
	}
	eng, err := cfg.NewPolicyEngine(sb)
	if err != nil {
		t.Fatalf("NewPolicyEngine: %v", err)
	}
	if d := eng.Evaluate("forbidden", nil); d.Action != policy.Deny || d.Reason != "scripted deny" {
		t.Errorf("scripted decision = %+v", d)
	}
}
