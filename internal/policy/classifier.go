// Copyright 2026 The Toolgate Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"strings"
)

// Classifier inspects one tool call and either returns a decision or nil
// for "no opinion". Classifiers must be pure functions of their inputs
// and their own static configuration.
//
// The built-in heuristics match on name substrings and argument keys.
// That is a best-effort classifier, not semantic analysis; a stricter
// matcher (exact capability tags, a script) can be swapped in without
// touching the precedence logic in Engine.
type Classifier interface {
	Name() string
	Classify(tool string, args map[string]any) *Decision
}

// denyList denies tools by exact name. Deny strictly dominates every
// later classifier, including the approval list.
type denyList struct {
	tools []string
}

// DenyList builds the classifier for explicitly blocked tool names.
func DenyList(tools []string) Classifier {
	return &denyList{tools: tools}
}

func (d *denyList) Name() string { return "deny-list" }

func (d *denyList) Classify(tool string, _ map[string]any) *Decision {
	for _, t := range d.tools {
		if t == tool {
			return &Decision{
				Action:    Deny,
				Reason:    fmt.Sprintf("Tool %q is on the deny list", tool),
				RiskLevel: RiskCritical,
			}
		}
	}
	return nil
}

// approvalList requires explicit approval for tools by exact name.
type approvalList struct {
	tools []string
}

// ApprovalList builds the classifier for approval-gated tool names.
func ApprovalList(tools []string) Classifier {
	return &approvalList{tools: tools}
}

func (a *approvalList) Name() string { return "approval-list" }

func (a *approvalList) Classify(tool string, _ map[string]any) *Decision {
	for _, t := range a.tools {
		if t == tool {
			return &Decision{
				Action:    RequireApproval,
				Reason:    fmt.Sprintf("Tool %q requires explicit approval before execution", tool),
				RiskLevel: RiskHigh,
			}
		}
	}
	return nil
}

// shellMarkers are case-insensitive substrings that flag a tool name as
// shell or command execution.
var shellMarkers = []string{
	"shell",
	"bash",
	"exec",
	"command",
	"run",
	"terminal",
	"system",
	"subprocess",
}

type shellHeuristic struct{}

// ShellHeuristic builds the classifier that routes shell-flavoured tool
// names to approval.
func ShellHeuristic() Classifier { return shellHeuristic{} }

func (shellHeuristic) Name() string { return "shell-heuristic" }

func (shellHeuristic) Classify(tool string, _ map[string]any) *Decision {
	lower := strings.ToLower(tool)
	for _, m := range shellMarkers {
		if strings.Contains(lower, m) {
			return &Decision{
				Action:    RequireApproval,
				Reason:    fmt.Sprintf("Tool %q is a shell/command tool, user approval required", tool),
				RiskLevel: RiskHigh,
			}
		}
	}
	return nil
}

// writeMarkers flag a tool name as a file-write operation. The sandbox,
// not this classifier, enforces where the write may land; the heuristic
// only raises the risk label.
var writeMarkers = []string{
	"write",
	"save",
	"create_file",
	"edit",
	"patch",
	"append",
}

// writeArgKeys are argument keys that imply a write target.
var writeArgKeys = []string{"write_path", "output_path"}

type writeHeuristic struct{}

// WriteHeuristic builds the classifier that labels file-write calls as
// Medium risk while still allowing them.
func WriteHeuristic() Classifier { return writeHeuristic{} }

func (writeHeuristic) Name() string { return "write-heuristic" }

func (writeHeuristic) Classify(tool string, args map[string]any) *Decision {
	if isWriteCall(tool, args) {
		return &Decision{
			Action:    Allow,
			Reason:    fmt.Sprintf("Tool %q involves file writes, allowed at Medium risk", tool),
			RiskLevel: RiskMedium,
		}
	}
	return nil
}

func isWriteCall(tool string, args map[string]any) bool {
	lower := strings.ToLower(tool)
	for _, m := range writeMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	for _, k := range writeArgKeys {
		if _, ok := args[k]; ok {
			return true
		}
	}
	return false
}
