package builtin

import (
	"context"
	"fmt"
	"os"

	"github.com/toolgate/toolgate/internal/sandbox"
	"github.com/toolgate/toolgate/internal/tool"
)

// ReadFile reads a file from disk, consulting the sandbox checker before
// touching the filesystem. A sandbox denial comes back as a failed tool
// result, not an error: it is a hard stop for this one I/O operation,
// distinct from a policy-engine Deny.
type ReadFile struct {
	Sandbox sandbox.Checker
}

func (ReadFile) Name() string { return "read_file" }

func (ReadFile) Description() string { return "Reads a file and returns its contents" }

func (ReadFile) ParametersSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path of the file to read",
			},
		},
		"required": []any{"path"},
	}
}

func (t ReadFile) Execute(_ context.Context, args map[string]any) (tool.Result, error) {
	path, err := tool.RequireStringArg(args, "path")
	if err != nil {
		return tool.Result{}, err
	}

	if res := t.Sandbox.CheckAccess(sandbox.AccessRequest{Kind: sandbox.AccessFileRead, Target: path}); !res.Allowed {
		return tool.Result{Success: false, Error: res.Reason}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return tool.Result{Success: false, Error: err.Error()}, nil
	}
	return tool.Result{Success: true, Output: string(data)}, nil
}

// WriteFile writes content to disk after a sandbox file-write check.
type WriteFile struct {
	Sandbox sandbox.Checker
}

func (WriteFile) Name() string { return "write_file" }

func (WriteFile) Description() string { return "Writes content to a file" }

func (WriteFile) ParametersSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path of the file to write",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Content to write",
			},
		},
		"required": []any{"path", "content"},
	}
}

func (t WriteFile) Execute(_ context.Context, args map[string]any) (tool.Result, error) {
	path, err := tool.RequireStringArg(args, "path")
	if err != nil {
		return tool.Result{}, err
	}
	content := tool.StringArg(args, "content")

	if res := t.Sandbox.CheckAccess(sandbox.AccessRequest{Kind: sandbox.AccessFileWrite, Target: path}); !res.Allowed {
		return tool.Result{Success: false, Error: res.Reason}, nil
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return tool.Result{Success: false, Error: err.Error()}, nil
	}
	return tool.Result{Success: true, Output: fmt.Sprintf("wrote %d bytes to %s", len(content), path)}, nil
}
