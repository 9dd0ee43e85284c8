// Copyright 2026 The Toolgate Authors
// SPDX-License-Identifier: Apache-2.0

// Package policy classifies tool calls before the gate executes them.
//
// The engine is a strict-priority decision list: classifiers run in a
// fixed order and the first one with an opinion wins. Risk levels are
// informational labels on the decision, never control inputs.
package policy

import "fmt"

// Action is the terminal classification of a tool call. The three values
// are distinct outcomes, not points on a severity scale.
type Action int

const (
	Allow           Action = iota // execution may proceed
	Deny                          // execution is forbidden
	RequireApproval               // execution needs explicit approval first
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "Allow"
	case Deny:
		return "Deny"
	case RequireApproval:
		return "RequireApproval"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// RiskLevel labels how risky a call looks. It is surfaced in audit
// entries and error messages; the engine never branches on it.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "Low"
	case RiskMedium:
		return "Medium"
	case RiskHigh:
		return "High"
	case RiskCritical:
		return "Critical"
	default:
		return fmt.Sprintf("risk(%d)", int(r))
	}
}

// Decision is produced once per evaluation and is immutable. Callers that
// want it persisted record it through the audit log.
type Decision struct {
	Action    Action    `json:"action"`
	Reason    string    `json:"reason"`
	RiskLevel RiskLevel `json:"risk_level"`
}
