package pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func fakeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a unix shell")
	}
	p := filepath.Join(t.TempDir(), "fake-wkhtmltopdf")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestResolveMissingTool(t *testing.T) {
	_, err := Resolve(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrRendererNotFound) {
		t.Fatalf("want ErrRendererNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "wkhtmltopdf_path") {
		t.Fatalf("error should say how to fix it: %v", err)
	}
	var r *Wkhtmltopdf
	if err := r.Render(context.Background(), "a.html", "a.pdf"); !errors.Is(err, ErrRendererNotFound) {
		t.Fatalf("nil renderer: %v", err)
	}
}

func TestRenderWritesPDF(t *testing.T) {
	tool := fakeTool(t, `for last; do :; done; printf '%%PDF-1.4\n' > "$last"`)
	r, err := New(tool, time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	in := filepath.Join(dir, "r.html")
	out := filepath.Join(dir, "r.pdf")
	if err := os.WriteFile(in, []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Render(context.Background(), in, out); err != nil {
		t.Fatalf("render: %v", err)
	}
	b, _ := os.ReadFile(out)
	if !strings.HasPrefix(string(b), "%PDF") {
		t.Fatalf("unexpected output %q", b)
	}
}

func TestRenderFailures(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "r.pdf")

	failing, err := New(fakeTool(t, "echo 'Exit with code 1 due to network error' >&2; exit 1"), time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = failing.Render(context.Background(), "in.html", out)
	var rerr *RenderError
	if !errors.As(err, &rerr) {
		t.Fatalf("want *RenderError, got %v", err)
	}
	if !strings.Contains(rerr.Error(), "network error") {
		t.Fatalf("stderr not surfaced: %v", rerr)
	}

	silent, err := New(fakeTool(t, "exit 0"), time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := silent.Render(context.Background(), "in.html", out); err == nil {
		t.Fatalf("expected error when no file is produced")
	}

	slow, err := New(fakeTool(t, "exec sleep 5"), 100*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = slow.Render(context.Background(), "in.html", out)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
}
