// Copyright 2026 The Toolgate Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
)

// ScriptClassifier evaluates tool calls with a user-supplied Starlark
// script, letting deployments substitute stricter matching for the
// built-in substring heuristics without touching engine precedence.
//
// The script must define:
//
//	def classify(tool, args):
//	    ...
//
// returning None for "no opinion" or a dict with an "action" key
// ("allow", "deny" or "require_approval") and optional "reason" and
// "risk" ("low", "medium", "high", "critical") keys.
type ScriptClassifier struct {
	path string
	fn   *starlark.Function
}

// LoadScript parses and executes a classifier script, resolving its
// classify function.
func LoadScript(path string) (*ScriptClassifier, error) {
	thread := &starlark.Thread{Name: "policy-load"}
	globals, err := starlark.ExecFile(thread, path, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("load classifier script: %w", err)
	}

	fn, ok := globals["classify"].(*starlark.Function)
	if !ok {
		return nil, fmt.Errorf("classifier script %s does not define classify(tool, args)", path)
	}
	if fn.NumParams() != 2 {
		return nil, fmt.Errorf("classify must take exactly 2 parameters, has %d", fn.NumParams())
	}

	return &ScriptClassifier{path: path, fn: fn}, nil
}

func (s *ScriptClassifier) Name() string { return "script:" + s.path }

// Classify calls the script. Script errors and malformed results are
// treated as "no opinion" so a broken script can never widen access
// beyond what the remaining chain allows.
func (s *ScriptClassifier) Classify(tool string, args map[string]any) *Decision {
	thread := &starlark.Thread{Name: "policy-eval"}
	sargs := starlark.Tuple{starlark.String(tool), toStarlark(args)}

	v, err := starlark.Call(thread, s.fn, sargs, nil)
	if err != nil || v == starlark.None {
		return nil
	}

	dict, ok := v.(*starlark.Dict)
	if !ok {
		return nil
	}

	action, ok := parseScriptAction(dictString(dict, "action"))
	if !ok {
		return nil
	}

	reason := dictString(dict, "reason")
	if reason == "" {
		reason = fmt.Sprintf("Tool %q classified by policy script", tool)
	}

	risk, ok := parseScriptRisk(dictString(dict, "risk"))
	if !ok {
		risk = defaultRiskFor(action)
	}

	return &Decision{Action: action, Reason: reason, RiskLevel: risk}
}

func parseScriptAction(s string) (Action, bool) {
	switch strings.ToLower(s) {
	case "allow":
		return Allow, true
	case "deny":
		return Deny, true
	case "require_approval", "approve":
		return RequireApproval, true
	default:
		return 0, false
	}
}

func parseScriptRisk(s string) (RiskLevel, bool) {
	switch strings.ToLower(s) {
	case "low":
		return RiskLow, true
	case "medium":
		return RiskMedium, true
	case "high":
		return RiskHigh, true
	case "critical":
		return RiskCritical, true
	default:
		return 0, false
	}
}

func defaultRiskFor(a Action) RiskLevel {
	switch a {
	case Deny:
		return RiskCritical
	case RequireApproval:
		return RiskHigh
	default:
		return RiskLow
	}
}

func dictString(d *starlark.Dict, key string) string {
	v, found, err := d.Get(starlark.String(key))
	if err != nil || !found {
		return ""
	}
	s, _ := starlark.AsString(v)
	return s
}

// toStarlark converts decoded JSON values into Starlark values. Unknown
// types become None.
func toStarlark(v any) starlark.Value {
	switch x := v.(type) {
	case nil:
		return starlark.None
	case bool:
		return starlark.Bool(x)
	case string:
		return starlark.String(x)
	case float64:
		if x == float64(int64(x)) {
			return starlark.MakeInt64(int64(x))
		}
		return starlark.Float(x)
	case []any:
		elems := make([]starlark.Value, len(x))
		for i, e := range x {
			elems[i] = toStarlark(e)
		}
		return starlark.NewList(elems)
	case map[string]any:
		d := starlark.NewDict(len(x))
		for k, e := range x {
			_ = d.SetKey(starlark.String(k), toStarlark(e))
		}
		return d
	default:
		return starlark.None
	}
}
