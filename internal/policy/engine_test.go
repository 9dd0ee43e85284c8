// Copyright 2026 The Toolgate Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"strings"
	"testing"
	"time"

	"github.com/toolgate/toolgate/internal/sandbox"
)

// allowAllSandbox is a stub checker for engine tests.
type allowAllSandbox struct{}

func (allowAllSandbox) CheckAccess(sandbox.AccessRequest) sandbox.AccessResult {
	return sandbox.AccessResult{Allowed: true, Reason: "stub", Profile: "AllowAll"}
}

func (allowAllSandbox) ProfileName() string { return "AllowAll" }

func testEngine(approval, denied []string) *Engine {
	return New(allowAllSandbox{}, approval, denied, 30*time.Second)
}

func TestDeniedToolReturnsDenyCritical(t *testing.T) {
	e := testEngine(nil, []string{"dangerous_tool"})
	d := e.Evaluate("dangerous_tool", nil)
	if d.Action != Deny {
		t.Fatalf("action = %v, want Deny", d.Action)
	}
	if d.RiskLevel != RiskCritical {
		t.Errorf("risk = %v, want Critical", d.RiskLevel)
	}
	if want := "deny list"; !strings.Contains(d.Reason, want) {
		t.Errorf("reason %q should mention %q", d.Reason, want)
	}
}

func TestDenyDominatesApproval(t *testing.T) {
	// A tool on both lists is denied, never rescued by the approval list.
	e := testEngine([]string{"nuke"}, []string{"nuke"})
	d := e.Evaluate("nuke", map[string]any{"target": "prod"})
	if d.Action != Deny || d.RiskLevel != RiskCritical {
		t.Fatalf("got %v/%v, want Deny/Critical", d.Action, d.RiskLevel)
	}
}

func TestApprovalListReturnsRequireApprovalHigh(t *testing.T) {
	e := testEngine([]string{"deploy"}, nil)
	d := e.Evaluate("deploy", nil)
	if d.Action != RequireApproval {
		t.Fatalf("action = %v, want RequireApproval", d.Action)
	}
	if d.RiskLevel != RiskHigh {
		t.Errorf("risk = %v, want High", d.RiskLevel)
	}
}

func TestShellHeuristicByName(t *testing.T) {
	e := testEngine(nil, nil)
	for _, name := range []string{"bash_exec", "run_command", "shell", "system_call", "Terminal", "my_subprocess"} {
		d := e.Evaluate(name, nil)
		if d.Action != RequireApproval {
			t.Errorf("%s: action = %v, want RequireApproval", name, d.Action)
		}
		if d.RiskLevel != RiskHigh {
			t.Errorf("%s: risk = %v, want High", name, d.RiskLevel)
		}
	}
}

func TestWriteHeuristicByName(t *testing.T) {
	e := testEngine(nil, nil)
	for _, name := range []string{"write_file", "save_report", "create_file", "patch_source", "append_log"} {
		d := e.Evaluate(name, nil)
		if d.Action != Allow {
			t.Errorf("%s: action = %v, want Allow", name, d.Action)
		}
		if d.RiskLevel != RiskMedium {
			t.Errorf("%s: risk = %v, want Medium", name, d.RiskLevel)
		}
	}
}

func TestWriteHeuristicByArgs(t *testing.T) {
	e := testEngine(nil, nil)
	tests := []map[string]any{
		{"output_path": "/tmp/out.txt"},
		{"write_path": "/tmp/out.txt", "data": "x"},
	}
	for _, args := range tests {
		d := e.Evaluate("some_tool", args)
		if d.Action != Allow || d.RiskLevel != RiskMedium {
			t.Errorf("args %v: got %v/%v, want Allow/Medium", args, d.Action, d.RiskLevel)
		}
	}
}

func TestDefaultAllowLow(t *testing.T) {
	e := testEngine(nil, nil)
	d := e.Evaluate("echo", map[string]any{"input": "hello"})
	if d.Action != Allow || d.RiskLevel != RiskLow {
		t.Fatalf("got %v/%v, want Allow/Low", d.Action, d.RiskLevel)
	}
}

func TestPrecedenceIsStrict(t *testing.T) {
	// A shell-looking name on the approval list hits rule 2, not rule 3;
	// a write-looking name on the deny list hits rule 1.
	e := testEngine([]string{"run_deploy"}, []string{"write_everything"})

	d := e.Evaluate("run_deploy", nil)
	if !strings.Contains(d.Reason, "explicit approval") {
		t.Errorf("approval list should match before shell heuristic: %q", d.Reason)
	}

	d = e.Evaluate("write_everything", nil)
	if d.Action != Deny {
		t.Errorf("deny list should match before write heuristic, got %v", d.Action)
	}
}

func TestAccessors(t *testing.T) {
	e := testEngine(nil, nil)
	if e.Sandbox().ProfileName() != "AllowAll" {
		t.Errorf("sandbox accessor: %q", e.Sandbox().ProfileName())
	}
	if e.MaxExecutionTime() != 30*time.Second {
		t.Errorf("max execution time: %v", e.MaxExecutionTime())
	}
	if got := e.Chain(); len(got) != 4 || got[0] != "deny-list" {
		t.Errorf("chain = %v", got)
	}
}
