package builtin

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/toolgate/toolgate/internal/sandbox"
	"github.com/toolgate/toolgate/internal/tool"
)

const (
	httpGetTimeout  = 30 * time.Second
	httpGetMaxBytes = 1 << 20 // response bodies are truncated past 1 MiB
)

// HTTPGet fetches a URL, gated by the sandbox's network access check.
type HTTPGet struct {
	Sandbox sandbox.Checker
	Client  *http.Client // nil uses a default client with a timeout
}

func (HTTPGet) Name() string { return "http_get" }

func (HTTPGet) Description() string { return "Performs an HTTP GET and returns the response body" }

func (HTTPGet) ParametersSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "URL to fetch",
			},
		},
		"required": []any{"url"},
	}
}

func (t HTTPGet) Execute(ctx context.Context, args map[string]any) (tool.Result, error) {
	url, err := tool.RequireStringArg(args, "url")
	if err != nil {
		return tool.Result{}, err
	}

	if res := t.Sandbox.CheckAccess(sandbox.AccessRequest{Kind: sandbox.AccessNetwork, Target: url}); !res.Allowed {
		return tool.Result{Success: false, Error: res.Reason}, nil
	}

	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: httpGetTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return tool.Result{Success: false, Error: err.Error()}, nil
	}

	resp, err := client.Do(req)
	if err != nil {
		return tool.Result{Success: false, Error: err.Error()}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, httpGetMaxBytes))
	if err != nil {
		return tool.Result{Success: false, Error: err.Error()}, nil
	}

	if resp.StatusCode >= 400 {
		return tool.Result{Success: false, Output: string(body), Error: resp.Status}, nil
	}
	return tool.Result{Success: true, Output: string(body)}, nil
}
