// Copyright 2026 The Toolgate Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// Large tool outputs embedded in requests can exceed the default
// scanner limit.
const maxLineBytes = 4 << 20

// ServeStdio reads newline-delimited JSON-RPC messages from r and
// writes responses to w until EOF. Notifications and blank lines
// produce no output at all, which keeps the stream aligned for callers
// that pair requests with responses positionally.
//
// Operational logging must go to stderr; stdout carries only protocol
// responses.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		resp, ok := s.Handle(ctx, scanner.Bytes())
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s\n", resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	return nil
}
