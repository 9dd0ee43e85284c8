// Package sandbox restricts the I/O surface available to tools.
//
// A sandbox is configured once with a Profile and answers access checks
// synchronously. It never gates process spawning; command-level decisions
// belong to the policy engine.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AccessKind identifies the kind of operation a tool wants to perform.
type AccessKind int

const (
	AccessNetwork   AccessKind = iota // HTTP, TCP, etc.
	AccessFileRead                    // read a file
	AccessFileWrite                   // write a file
	AccessCommand                     // spawn a command
)

func (k AccessKind) String() string {
	switch k {
	case AccessNetwork:
		return "network"
	case AccessFileRead:
		return "file_read"
	case AccessFileWrite:
		return "file_write"
	case AccessCommand:
		return "command"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// AccessRequest asks whether one operation against one target is permitted.
// Requests are transient; they are built per check and never stored.
type AccessRequest struct {
	Kind   AccessKind `json:"kind"`
	Target string     `json:"target"` // URL, file path, or command name
}

// AccessResult is the synchronous answer to an AccessRequest.
type AccessResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
	Profile string `json:"profile"`
}

// Profile names an immutable set of I/O restrictions.
type Profile int

const (
	ProfileNoNet      Profile = iota // no network; filesystem open
	ProfileNet                       // network and filesystem open
	ProfileReadOnlyFs                // network open; no writes at all
	ProfileScratchFs                 // network open; writes confined to scratch dir
)

func (p Profile) String() string {
	switch p {
	case ProfileNoNet:
		return "NoNet"
	case ProfileNet:
		return "Net"
	case ProfileReadOnlyFs:
		return "ReadOnlyFs"
	case ProfileScratchFs:
		return "ScratchFs"
	default:
		return fmt.Sprintf("profile(%d)", int(p))
	}
}

// ParseProfile converts a config string to a Profile.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(s) {
	case "nonet", "no_net":
		return ProfileNoNet, nil
	case "net":
		return ProfileNet, nil
	case "readonlyfs", "read_only_fs", "readonly":
		return ProfileReadOnlyFs, nil
	case "scratchfs", "scratch_fs", "scratch":
		return ProfileScratchFs, nil
	default:
		return 0, fmt.Errorf("unknown sandbox profile: %q", s)
	}
}

// Checker is the abstract capability consumed by the policy engine and by
// tools that touch the filesystem or network. Implementations must be safe
// for concurrent use.
type Checker interface {
	CheckAccess(req AccessRequest) AccessResult
	ProfileName() string
}

// ProcessSandbox enforces a Profile with process-level checks. Configuration
// is fixed before the sandbox is handed out; there are no runtime mutators
// beyond the builder-style setters below.
type ProcessSandbox struct {
	profile      Profile
	allowedPaths []string
	scratchDir   string
}

// New creates a sandbox with the given profile and a scratch directory
// under the system temp dir.
func New(profile Profile) *ProcessSandbox {
	return &ProcessSandbox{
		profile:    profile,
		scratchDir: filepath.Join(os.TempDir(), "toolgate-scratch"),
	}
}

// AllowPath adds a readable path prefix. With no allowed paths configured,
// every read passes; the first AllowPath call switches reads to
// allow-list mode.
func (s *ProcessSandbox) AllowPath(path string) {
	s.allowedPaths = append(s.allowedPaths, path)
}

// SetScratchDir sets the directory writable under ProfileScratchFs.
func (s *ProcessSandbox) SetScratchDir(dir string) {
	s.scratchDir = dir
}

// ScratchDir returns the configured scratch directory.
func (s *ProcessSandbox) ScratchDir() string {
	return s.scratchDir
}

// CheckAccess validates a request against the profile. This is the core
// enforcement point.
func (s *ProcessSandbox) CheckAccess(req AccessRequest) AccessResult {
	switch req.Kind {
	case AccessNetwork:
		return s.checkNetwork(req)
	case AccessFileRead:
		return s.checkFileRead(req)
	case AccessFileWrite:
		return s.checkFileWrite(req)
	case AccessCommand:
		return s.checkCommand(req)
	default:
		return s.deny(fmt.Sprintf("unknown access kind %d", int(req.Kind)))
	}
}

// ProfileName implements Checker.
func (s *ProcessSandbox) ProfileName() string {
	return s.profile.String()
}

func (s *ProcessSandbox) checkNetwork(_ AccessRequest) AccessResult {
	if s.profile == ProfileNoNet {
		return s.deny("Network access is blocked by NoNet profile")
	}
	return s.allow("Network access permitted")
}

func (s *ProcessSandbox) checkFileRead(req AccessRequest) AccessResult {
	// Traversal check precedes everything else.
	if hasTraversal(req.Target) {
		return s.deny("Path traversal detected, access denied")
	}

	// An empty allow-list means unrestricted reads, not "deny all".
	if len(s.allowedPaths) == 0 {
		return s.allow("No path restrictions configured, read allowed")
	}

	for _, p := range s.allowedPaths {
		if underDir(req.Target, p) {
			return s.allow("Path is within allowed paths")
		}
	}
	return s.deny(fmt.Sprintf("Path %q is not within any allowed path", req.Target))
}

func (s *ProcessSandbox) checkFileWrite(req AccessRequest) AccessResult {
	if hasTraversal(req.Target) {
		return s.deny("Path traversal detected, access denied")
	}

	switch s.profile {
	case ProfileReadOnlyFs:
		return s.deny("File writes are blocked by ReadOnlyFs profile")
	case ProfileScratchFs:
		if underDir(req.Target, s.scratchDir) {
			return s.allow("Write within scratch directory is allowed")
		}
		return s.deny(fmt.Sprintf("ScratchFs profile only allows writes under %q", s.scratchDir))
	default:
		// NoNet and Net restrict the network, not the filesystem.
		return s.allow("File write permitted by current profile")
	}
}

func (s *ProcessSandbox) checkCommand(_ AccessRequest) AccessResult {
	// Command gating belongs to the policy engine; the sandbox only
	// restricts I/O.
	return s.allow("Command execution permitted by sandbox")
}

func (s *ProcessSandbox) allow(reason string) AccessResult {
	return AccessResult{Allowed: true, Reason: reason, Profile: s.profile.String()}
}

func (s *ProcessSandbox) deny(reason string) AccessResult {
	return AccessResult{Allowed: false, Reason: reason, Profile: s.profile.String()}
}

// hasTraversal reports whether the path contains a parent-directory segment.
func hasTraversal(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// underDir reports whether target equals dir or sits beneath it. The
// comparison is component-wise, so "/foobar" is not under "/foo".
func underDir(target, dir string) bool {
	if dir == "" {
		return false
	}
	t := filepath.ToSlash(target)
	d := strings.TrimSuffix(filepath.ToSlash(dir), "/")
	return t == d || strings.HasPrefix(t, d+"/")
}
