// Copyright 2026 The Toolgate Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// SocketServer exposes a Server over a unix domain socket. Each
// connection carries newline-delimited JSON-RPC, one message per line,
// with the same notification silence as the stdio surface. The daemon
// exits after idleTimeout with no connections.
type SocketServer struct {
	gate        *Server
	sockPath    string
	idleTimeout time.Duration

	mu        sync.Mutex
	idleTimer *time.Timer
	active    sync.WaitGroup
}

// NewSocketServer wraps gate for serving on sockPath.
func NewSocketServer(gate *Server, sockPath string, idleTimeout time.Duration) *SocketServer {
	return &SocketServer{
		gate:        gate,
		sockPath:    sockPath,
		idleTimeout: idleTimeout,
	}
}

// Run creates the socket listener, writes the pidfile, and serves until
// ctx is cancelled or the idle timer fires.
func (s *SocketServer) Run(ctx context.Context) error {
	dir := filepath.Dir(s.sockPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}

	if err := cleanStaleSocket(s.sockPath); err != nil {
		return err
	}

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	if err := os.Chmod(s.sockPath, 0600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	if err := writePidFile(s.sockPath); err != nil {
		ln.Close()
		return fmt.Errorf("write pid: %w", err)
	}

	defer func() {
		os.Remove(s.sockPath)
		os.Remove(pidPath(s.sockPath))
	}()

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or the idle
// timer fires. The listener is closed on return. Exported so tests can
// pass a listener on a temp socket.
func (s *SocketServer) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	idleCtx, idleCancel := context.WithCancel(ctx)
	defer idleCancel()

	s.mu.Lock()
	s.idleTimer = time.AfterFunc(s.idleTimeout, idleCancel)
	s.mu.Unlock()

	// Close the listener when the context is done (idle or parent cancel).
	go func() {
		<-idleCtx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-idleCtx.Done():
				s.active.Wait()
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		s.resetIdle()

		s.active.Add(1)
		go func() {
			defer s.active.Done()
			defer conn.Close()
			defer s.resetIdle()
			s.handleConnection(idleCtx, conn)
		}()
	}
}

func (s *SocketServer) resetIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer != nil {
		s.idleTimer.Reset(s.idleTimeout)
	}
}

func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		resp, ok := s.gate.Handle(ctx, scanner.Bytes())
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(conn, "%s\n", resp); err != nil {
			return
		}
	}
}

func pidPath(sockPath string) string {
	return sockPath + ".pid"
}

func writePidFile(sockPath string) error {
	return os.WriteFile(pidPath(sockPath), []byte(strconv.Itoa(os.Getpid())), 0600)
}

// cleanStaleSocket removes a socket file if no process is listening on
// it. Returns an error if a live daemon is detected.
func cleanStaleSocket(sockPath string) error {
	if _, err := os.Stat(sockPath); os.IsNotExist(err) {
		return nil
	}

	// Try connecting. If it succeeds, a daemon is already running.
	conn, err := net.Dial("unix", sockPath)
	if err == nil {
		conn.Close()
		return fmt.Errorf("daemon already running (socket %s is active)", sockPath)
	}

	// Check the pidfile for extra safety.
	if data, err := os.ReadFile(pidPath(sockPath)); err == nil {
		if pid, err := strconv.Atoi(string(data)); err == nil {
			proc, err := os.FindProcess(pid)
			if err == nil {
				if err := proc.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("daemon already running (pid %d)", pid)
				}
			}
		}
	}

	// Stale socket, remove it.
	return os.Remove(sockPath)
}
