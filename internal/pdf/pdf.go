// Package pdf converts HTML reports to PDF with an external renderer.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/edadash/internal/logging"
)

// DefaultBinary is the executable looked up on PATH when no path is configured.
const DefaultBinary = "wkhtmltopdf"

// DefaultTimeout bounds one conversion.
const DefaultTimeout = 120 * time.Second

// ErrRendererNotFound indicates the PDF tool is not installed or not executable.
var ErrRendererNotFound = errors.New("pdf renderer not found")

// Renderer converts an HTML file into a PDF file.
type Renderer interface {
	Render(ctx context.Context, htmlPath, pdfPath string) error
}

// RenderError carries the failing tool's output.
type RenderError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *RenderError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if len(msg) > 400 {
		msg = msg[len(msg)-400:]
	}
	if msg == "" {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s failed: %v: %s", e.Tool, e.Err, msg)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Wkhtmltopdf renders with the wkhtmltopdf command-line tool.
type Wkhtmltopdf struct {
	Path    string
	Timeout time.Duration
	Logger  logrus.FieldLogger
	// Args are extra flags placed before the input and output paths.
	Args []string
}

// Resolve locates the tool once: path may be empty (look up DefaultBinary on
// PATH), a bare name, or an absolute path.
func Resolve(path string) (string, error) {
	name := strings.TrimSpace(path)
	if name == "" {
		name = DefaultBinary
	}
	resolved, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q (install wkhtmltopdf or set wkhtmltopdf_path): %v", ErrRendererNotFound, name, err)
	}
	return resolved, nil
}

// New resolves the tool and returns a ready renderer.
func New(path string, timeout time.Duration, log logrus.FieldLogger) (*Wkhtmltopdf, error) {
	resolved, err := Resolve(path)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Wkhtmltopdf{
		Path:    resolved,
		Timeout: timeout,
		Logger:  log,
		Args:    []string{"--quiet", "--encoding", "utf-8", "--enable-local-file-access"},
	}, nil
}

// Render runs the tool and checks it produced a non-empty file.
func (w *Wkhtmltopdf) Render(ctx context.Context, htmlPath, pdfPath string) error {
	if w == nil || w.Path == "" {
		return ErrRendererNotFound
	}
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string(nil), w.Args...), htmlPath, pdfPath)
	cmd := exec.CommandContext(ctx, w.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	log := logging.Or(w.Logger).WithFields(logrus.Fields{"tool": w.Path, "html": htmlPath})
	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w after %s", ctx.Err(), timeout)
		}
		rerr := &RenderError{Tool: DefaultBinary, Stderr: stderr.String(), Err: err}
		log.WithError(rerr).Warn("pdf render failed")
		return rerr
	}
	fi, err := os.Stat(pdfPath)
	if err != nil || fi.Size() == 0 {
		return &RenderError{Tool: DefaultBinary, Stderr: stderr.String(), Err: errors.New("no output produced")}
	}
	log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Debug("rendered pdf")
	return nil
}
