package builtin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/toolgate/toolgate/internal/sandbox"
	"github.com/toolgate/toolgate/internal/tool"
)

func TestEcho(t *testing.T) {
	res, err := Echo{}.Execute(context.Background(), map[string]any{"input": "hello world"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success || res.Output != "hello world" {
		t.Errorf("got %+v, want success with output %q", res, "hello world")
	}
}

func TestEchoEmptyInput(t *testing.T) {
	res, err := Echo{}.Execute(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success || res.Output != "" {
		t.Errorf("got %+v, want empty success", res)
	}
}

func TestReadFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	rf := ReadFile{Sandbox: sandbox.New(sandbox.ProfileNoNet)}
	res, err := rf.Execute(context.Background(), map[string]any{"path": path})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success || res.Output != "contents" {
		t.Errorf("got %+v", res)
	}
}

func TestReadFileMissingPathArg(t *testing.T) {
	rf := ReadFile{Sandbox: sandbox.New(sandbox.ProfileNoNet)}
	if _, err := rf.Execute(context.Background(), map[string]any{}); err == nil {
		t.Error("expected error for missing path argument")
	}
}

func TestReadFileOutsideAllowListFails(t *testing.T) {
	sb := sandbox.New(sandbox.ProfileNoNet)
	sb.AllowPath("/tmp/allowed")

	rf := ReadFile{Sandbox: sb}
	res, err := rf.Execute(context.Background(), map[string]any{"path": "/etc/passwd"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Error("read outside allow list succeeded")
	}
	if !strings.Contains(res.Error, "not within any allowed") {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	wf := WriteFile{Sandbox: sandbox.New(sandbox.ProfileNet)}
	res, err := wf.Execute(context.Background(), map[string]any{"path": path, "content": "payload"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("write failed: %+v", res)
	}
	if !strings.Contains(res.Output, "7 bytes") {
		t.Errorf("Output = %q", res.Output)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("file contents = %q", data)
	}
}

func TestWriteFileBlockedByReadOnlyProfile(t *testing.T) {
	wf := WriteFile{Sandbox: sandbox.New(sandbox.ProfileReadOnlyFs)}
	res, err := wf.Execute(context.Background(), map[string]any{"path": "/tmp/x", "content": "y"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Error("write succeeded under ReadOnlyFs")
	}
	if !strings.Contains(res.Error, "ReadOnlyFs") {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestWriteFileScratchConfinement(t *testing.T) {
	scratch := t.TempDir()
	sb := sandbox.New(sandbox.ProfileScratchFs)
	sb.SetScratchDir(scratch)

	wf := WriteFile{Sandbox: sb}

	inside := filepath.Join(scratch, "in.txt")
	res, err := wf.Execute(context.Background(), map[string]any{"path": inside, "content": "ok"})
	if err != nil || !res.Success {
		t.Fatalf("scratch write: %+v, %v", res, err)
	}

	res, err = wf.Execute(context.Background(), map[string]any{"path": "/tmp/outside.txt", "content": "no"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Error("write outside scratch dir succeeded")
	}
}

func TestHTTPGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("response body"))
	}))
	defer srv.Close()

	hg := HTTPGet{Sandbox: sandbox.New(sandbox.ProfileNet)}
	res, err := hg.Execute(context.Background(), map[string]any{"url": srv.URL})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success || res.Output != "response body" {
		t.Errorf("got %+v", res)
	}
}

func TestHTTPGetBlockedByNoNet(t *testing.T) {
	hg := HTTPGet{Sandbox: sandbox.New(sandbox.ProfileNoNet)}
	res, err := hg.Execute(context.Background(), map[string]any{"url": "http://example.com"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Error("network access succeeded under NoNet")
	}
	if !strings.Contains(res.Error, "NoNet") {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestHTTPGetErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	hg := HTTPGet{Sandbox: sandbox.New(sandbox.ProfileNet)}
	res, err := hg.Execute(context.Background(), map[string]any{"url": srv.URL})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Error("4xx response reported as success")
	}
	if !strings.Contains(res.Error, "403") {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestRegisterAll(t *testing.T) {
	reg := tool.NewRegistry()
	RegisterAll(reg, sandbox.New(sandbox.ProfileNet))

	for _, name := range []string{"echo", "read_file", "write_file", "http_get"} {
		if _, ok := reg.Get(name); !ok {
			t.Errorf("tool %q not registered", name)
		}
	}
}
