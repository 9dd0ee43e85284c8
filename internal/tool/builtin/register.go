// Package builtin holds the tools shipped with the gate. They exist to
// exercise the pipeline and the sandbox boundary; real deployments are
// expected to register their own tools alongside or instead of these.
package builtin

import (
	"github.com/toolgate/toolgate/internal/sandbox"
	"github.com/toolgate/toolgate/internal/tool"
)

// RegisterAll registers every built-in tool. The filesystem and network
// tools consult sb directly on each call.
func RegisterAll(reg *tool.Registry, sb sandbox.Checker) {
	reg.Register(Echo{})
	reg.Register(ReadFile{Sandbox: sb})
	reg.Register(WriteFile{Sandbox: sb})
	reg.Register(HTTPGet{Sandbox: sb})
}
