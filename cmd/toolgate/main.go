// Copyright 2026 The Toolgate Authors
// SPDX-License-Identifier: Apache-2.0

// Command toolgate runs the tool-call governance gate. The gate sits
// between an AI agent and its tools: every tools/call is classified by
// the policy engine, checked against the sandbox profile, and audited
// before anything executes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/toolgate/toolgate/internal/audit"
	"github.com/toolgate/toolgate/internal/client"
	"github.com/toolgate/toolgate/internal/config"
	"github.com/toolgate/toolgate/internal/gate"
	"github.com/toolgate/toolgate/internal/metrics"
	"github.com/toolgate/toolgate/internal/tool"
	"github.com/toolgate/toolgate/internal/tool/builtin"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var (
	flagConfig  string
	flagVerbose bool
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "toolgate",
		Short:         "Policy-governed tool execution gate for AI agents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.config/toolgate/config.yaml)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		serveCmd(),
		daemonCmd(),
		httpCmd(),
		callCmd(),
		toolsCmd(),
		auditCmd(),
		versionCmd(),
	)
	return root
}

func newLogger() zerolog.Logger {
	// Protocol responses own stdout; everything operational goes to
	// stderr.
	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.LoadFrom(flagConfig)
	}
	return config.Load()
}

// buildGate assembles the full governed server from config: sandbox,
// policy engine, tool registry, audit sink, and metrics.
func buildGate(logger zerolog.Logger, promReg *prometheus.Registry) (*gate.Server, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	sb, err := cfg.NewSandbox()
	if err != nil {
		return nil, nil, err
	}

	reg := tool.NewRegistry()
	builtin.RegisterAll(reg, sb)

	opts := []gate.Option{gate.WithLogger(logger)}

	if cfg.Policy.Enabled {
		eng, err := cfg.NewPolicyEngine(sb)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, gate.WithPolicy(eng))
	} else {
		logger.Warn().Msg("policy engine disabled, tool calls are ungoverned")
	}

	if cfg.Audit.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Audit.Path), 0700); err != nil {
			return nil, nil, fmt.Errorf("create audit dir: %w", err)
		}
		sink, err := audit.NewFileSink(cfg.Audit.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open audit sink: %w", err)
		}
		opts = append(opts, gate.WithSink(sink))
	}

	if promReg != nil {
		opts = append(opts, gate.WithMetrics(metrics.New(promReg)))
	}

	return gate.NewServer(reg, opts...), cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve JSON-RPC over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()
			srv, _, err := buildGate(logger, nil)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			logger.Info().Msg("serving on stdio")
			return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
		},
	}
}

func daemonCmd() *cobra.Command {
	var socket string
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Serve JSON-RPC over a unix socket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()
			srv, cfg, err := buildGate(logger, nil)
			if err != nil {
				return err
			}
			if socket == "" {
				socket = cfg.Server.Socket
			}

			ctx, cancel := signalContext()
			defer cancel()

			logger.Info().Str("socket", socket).Msg("daemon listening")
			ss := gate.NewSocketServer(srv, socket, cfg.Server.IdleTimeoutDuration())
			return ss.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&socket, "socket", "", "socket path (default from config)")
	return cmd
}

func httpCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve JSON-RPC over HTTP with health and metrics endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()
			promReg := prometheus.NewRegistry()
			srv, cfg, err := buildGate(logger, promReg)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.HTTPAddr
			}

			ctx, cancel := signalContext()
			defer cancel()

			logger.Info().Str("addr", addr).Msg("http listening")
			return srv.ServeHTTP(ctx, addr, promReg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func callCmd() *cobra.Command {
	var (
		socket  string
		httpURL string
		argsRaw string
	)
	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Send one tools/call through a running gate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs := map[string]any{}
			if argsRaw != "" {
				if err := json.Unmarshal([]byte(argsRaw), &toolArgs); err != nil {
					return fmt.Errorf("parse --args: %w", err)
				}
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			req := client.NewCall(1, args[0], toolArgs)
			ctx, cancel := signalContext()
			defer cancel()

			var resp *client.Response
			if httpURL != "" {
				resp, err = client.CallHTTP(ctx, httpURL, req)
			} else {
				if socket == "" {
					socket = cfg.Server.Socket
				}
				resp, err = client.CallSocket(ctx, socket, req)
			}
			if err != nil {
				return err
			}
			if resp == nil {
				return nil
			}
			if resp.Error != nil {
				return resp.Error
			}

			text, isErr, err := client.Text(resp.Result)
			if err != nil {
				return err
			}
			fmt.Println(text)
			if isErr {
				return fmt.Errorf("tool reported failure")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&socket, "socket", "", "daemon socket path (default from config)")
	cmd.Flags().StringVar(&httpURL, "http", "", "gate base URL, overrides the socket")
	cmd.Flags().StringVar(&argsRaw, "args", "", "tool arguments as a JSON object")
	return cmd
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the registered tools",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sb, err := cfg.NewSandbox()
			if err != nil {
				return err
			}

			reg := tool.NewRegistry()
			builtin.RegisterAll(reg, sb)
			for _, spec := range reg.List() {
				fmt.Printf("%-12s %s\n", spec.Name, spec.Description)
			}
			return nil
		},
	}
}

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the persistent audit log",
	}

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Verify the audit log's hash chain",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := audit.Verify(cfg.Audit.Path); err != nil {
				return err
			}
			fmt.Println("audit chain OK")
			return nil
		},
	}

	var tailN int
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print the most recent audit records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			recs, err := audit.Tail(cfg.Audit.Path, tailN)
			if err != nil {
				return err
			}
			for _, rec := range recs {
				data, err := json.Marshal(rec)
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			}
			return nil
		},
	}
	tail.Flags().IntVarP(&tailN, "lines", "n", 20, "number of records")

	cmd.AddCommand(verify, tail)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the toolgate version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Println("toolgate", version)
		},
	}
}
