// Copyright 2026 The Toolgate Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"time"

	"github.com/toolgate/toolgate/internal/sandbox"
)

// Engine evaluates tool calls against an ordered classifier chain.
//
// The default chain, in precedence order:
//
//  1. deny list            -> Deny / Critical
//  2. approval list        -> RequireApproval / High
//  3. shell heuristic      -> RequireApproval / High
//  4. file-write heuristic -> Allow / Medium
//  5. fallback             -> Allow / Low
//
// The first classifier with an opinion wins; the rest are skipped.
type Engine struct {
	sandbox          sandbox.Checker
	chain            []Classifier
	maxExecutionTime time.Duration
}

// New creates an engine with the default classifier chain.
func New(sb sandbox.Checker, approval, denied []string, maxExecutionTime time.Duration) *Engine {
	return NewWithChain(sb, DefaultChain(approval, denied), maxExecutionTime)
}

// NewWithChain creates an engine with a caller-supplied classifier chain.
// Order in the slice is precedence order.
func NewWithChain(sb sandbox.Checker, chain []Classifier, maxExecutionTime time.Duration) *Engine {
	return &Engine{
		sandbox:          sb,
		chain:            chain,
		maxExecutionTime: maxExecutionTime,
	}
}

// DefaultChain returns the standard classifier chain for the given deny
// and approval lists.
func DefaultChain(approval, denied []string) []Classifier {
	return []Classifier{
		DenyList(denied),
		ApprovalList(approval),
		ShellHeuristic(),
		WriteHeuristic(),
	}
}

// Evaluate classifies a tool call. It is a pure function of the call and
// the engine's configuration; the only external capability it holds is
// the sandbox checker, exposed to callers via Sandbox.
func (e *Engine) Evaluate(tool string, args map[string]any) Decision {
	for _, c := range e.chain {
		if d := c.Classify(tool, args); d != nil {
			return *d
		}
	}
	return Decision{
		Action:    Allow,
		Reason:    fmt.Sprintf("Tool %q is allowed at Low risk", tool),
		RiskLevel: RiskLow,
	}
}

// Sandbox returns the attached sandbox checker, for callers that need
// finer-grained access checks than the coarse classification above.
func (e *Engine) Sandbox() sandbox.Checker {
	return e.sandbox
}

// MaxExecutionTime is the configured ceiling for tool execution.
// Enforcement is the execution layer's job, not the engine's.
func (e *Engine) MaxExecutionTime() time.Duration {
	return e.maxExecutionTime
}

// Chain returns the classifier names in precedence order, for
// diagnostics.
func (e *Engine) Chain() []string {
	names := make([]string, len(e.chain))
	for i, c := range e.chain {
		names[i] = c.Name()
	}
	return names
}
