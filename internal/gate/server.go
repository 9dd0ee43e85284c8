// Copyright 2026 The Toolgate Authors
// SPDX-License-Identifier: Apache-2.0

// Package gate implements the JSON-RPC front end that governs tool
// execution. Every tools/call passes through the policy engine before
// the tool runs, and every attempt lands in the audit log next to its
// outcome.
package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/toolgate/toolgate/internal/audit"
	"github.com/toolgate/toolgate/internal/metrics"
	"github.com/toolgate/toolgate/internal/policy"
	"github.com/toolgate/toolgate/internal/tool"
)

const protocolVersion = "2024-11-05"

// JSON-RPC error codes. The -32xxx band below -32000 is reserved by
// the protocol; -32001 and -32002 are the governance extensions.
const (
	codeParseError       = -32700
	codeMethodNotFound   = -32601
	codeInvalidParams    = -32602
	codePolicyDenied     = -32001
	codeApprovalRequired = -32002
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Server dispatches JSON-RPC requests to the tool registry under
// policy governance. The engine and sinks are optional; a Server with
// only a registry answers protocol methods and runs tools ungoverned.
type Server struct {
	registry *tool.Registry
	policy   *policy.Engine
	log      *audit.Log
	sink     *audit.FileSink
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	name     string
	version  string
}

// Option configures a Server.
type Option func(*Server)

// WithPolicy sets the policy engine consulted before every tool call.
func WithPolicy(e *policy.Engine) Option {
	return func(s *Server) { s.policy = e }
}

// WithSink mirrors audit entries to a persistent hash-chained sink.
func WithSink(sink *audit.FileSink) Option {
	return func(s *Server) { s.sink = sink }
}

// WithLogger sets the operational logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics sets the Prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer builds a Server over the given registry.
func NewServer(registry *tool.Registry, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		log:      audit.NewLog(),
		logger:   zerolog.Nop(),
		name:     "toolgate",
		version:  "0.1.0",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuditLog exposes the in-memory audit log.
func (s *Server) AuditLog() *audit.Log {
	return s.log
}

// isNotification reports whether the id marks the request as a
// notification. Both an absent id and a literal null count.
func isNotification(id json.RawMessage) bool {
	return len(id) == 0 || bytes.Equal(id, []byte("null"))
}

// Handle processes one raw JSON-RPC message and returns the serialized
// response. ok is false when no response must be sent, which happens
// for blank lines and notifications.
func (s *Server) Handle(ctx context.Context, line []byte) ([]byte, bool) {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil, false
	}

	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		s.logger.Debug().Err(err).Msg("unparseable request")
		return s.reply(response{
			JSONRPC: "2.0",
			ID:      json.RawMessage("null"),
			Error:   &rpcError{Code: codeParseError, Message: "Parse error: " + err.Error()},
		})
	}

	if isNotification(req.ID) {
		// No recognized method has side effects when called as a
		// notification, so the whole message is dropped.
		s.logger.Debug().Str("method", req.Method).Msg("notification dropped")
		return nil, false
	}

	s.metrics.ObserveRequest(req.Method)

	resp := response{JSONRPC: "2.0", ID: req.ID}
	switch req.Method {
	case "initialize":
		resp.Result = s.handleInitialize()
	case "tools/list":
		resp.Result = s.handleToolsList()
	case "tools/call":
		result, rpcErr := s.handleToolsCall(ctx, req.Params)
		resp.Result, resp.Error = result, rpcErr
	default:
		resp.Error = &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("Method not found: %s", req.Method)}
	}
	return s.reply(resp)
}

func (s *Server) reply(resp response) ([]byte, bool) {
	data, err := json.Marshal(resp)
	if err != nil {
		// Only reachable if a tool smuggled an unmarshalable value
		// into a result.
		s.logger.Error().Err(err).Msg("response marshal failed")
		return nil, false
	}
	return data, true
}

func (s *Server) handleInitialize() any {
	return map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    s.name,
			"version": s.version,
		},
	}
}

func (s *Server) handleToolsList() any {
	specs := s.registry.List()
	tools := make([]map[string]any, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, map[string]any{
			"name":        spec.Name,
			"description": spec.Description,
			"inputSchema": spec.ParametersSchema,
		})
	}
	return map[string]any{"tools": tools}
}

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (any, *rpcError) {
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	var call callParams
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "Invalid params: " + err.Error()}
	}
	if call.Name == "" {
		return nil, &rpcError{Code: codeInvalidParams, Message: "Missing required parameter: name"}
	}

	// arguments is an optional JSON value. Non-object values are not
	// rejected here: the call still goes through policy evaluation and
	// auditing, with the heuristics and the tool seeing an empty map.
	args := map[string]any{}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			args = map[string]any{}
		}
	}

	if s.policy != nil {
		decision := s.policy.Evaluate(call.Name, args)
		s.metrics.ObserveDecision(decision.Action.String())

		// The attempt and the decision outcome land as one adjacent
		// pair, before the tool runs, so the log reads as a strict
		// attempt/verdict transcript even under concurrent calls.
		attempt := audit.New(audit.EventToolCallAttempt, call.Name,
			decision.Action.String(), decision.RiskLevel.String(),
			map[string]any{"arguments": args})
		reasonDetails := map[string]any{"reason": decision.Reason}

		switch decision.Action {
		case policy.Deny:
			s.record(attempt, audit.New(audit.EventAccessDenied, call.Name,
				"Deny", decision.RiskLevel.String(), reasonDetails))
			s.logger.Warn().Str("tool", call.Name).Str("reason", decision.Reason).Msg("tool call denied")
			return nil, &rpcError{Code: codePolicyDenied, Message: decision.Reason}

		case policy.RequireApproval:
			s.record(attempt, audit.New(audit.EventApprovalRequired, call.Name,
				"RequireApproval", decision.RiskLevel.String(), reasonDetails))
			s.logger.Info().Str("tool", call.Name).Str("reason", decision.Reason).Msg("tool call needs approval")
			return nil, &rpcError{Code: codeApprovalRequired, Message: decision.Reason}

		default:
			s.record(attempt, audit.New(audit.EventAccessGranted, call.Name,
				"Allow", decision.RiskLevel.String(), reasonDetails))
		}
	}

	t, ok := s.registry.Get(call.Name)
	if !ok {
		return nil, &rpcError{Code: codeInvalidParams, Message: fmt.Sprintf("Tool not found: %s", call.Name)}
	}

	// The engine's max execution time is configuration the execution
	// layer reads via Engine.MaxExecutionTime; the gate passes the
	// caller's context through untouched.
	result, err := t.Execute(ctx, args)
	if err != nil {
		s.metrics.ObserveToolRun(call.Name, false)
		return nil, &rpcError{Code: codeInvalidParams, Message: "Tool execution error: " + err.Error()}
	}
	s.metrics.ObserveToolRun(call.Name, result.Success)

	if !result.Success {
		text := result.Error
		if text == "" {
			text = "Unknown error"
		}
		return map[string]any{
			"content": []map[string]any{{"type": "text", "text": text}},
			"isError": true,
		}, nil
	}
	return map[string]any{
		"content": []map[string]any{{"type": "text", "text": result.Output}},
	}, nil
}

// record writes the attempt and its outcome adjacently to the in-memory
// log and mirrors both to the persistent sink when one is configured.
func (s *Server) record(attempt, outcome audit.Entry) {
	s.log.RecordPair(attempt, outcome)
	if s.sink == nil {
		return
	}
	if err := s.sink.Append(attempt); err != nil {
		s.logger.Error().Err(err).Msg("audit sink append failed")
		return
	}
	if err := s.sink.Append(outcome); err != nil {
		s.logger.Error().Err(err).Msg("audit sink append failed")
	}
}
