package builtin

import (
	"context"

	"github.com/toolgate/toolgate/internal/tool"
)

// Echo returns its input unchanged. It exists to smoke-test the whole
// call pipeline end to end.
type Echo struct{}

func (Echo) Name() string { return "echo" }

func (Echo) Description() string { return "Echoes the provided input back as output" }

func (Echo) ParametersSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input": map[string]any{
				"type":        "string",
				"description": "Text to echo back",
			},
		},
		"required": []any{"input"},
	}
}

func (Echo) Execute(_ context.Context, args map[string]any) (tool.Result, error) {
	return tool.Result{Success: true, Output: tool.StringArg(args, "input")}, nil
}
