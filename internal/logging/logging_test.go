package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestConfigureText(t *testing.T) {
	var out bytes.Buffer
	l := logrus.New()
	if err := Configure(l, "debug", "text", &out); err != nil {
		t.Fatalf("configure: %v", err)
	}
	l.WithField("column", "price").Info("capped")
	l.Error("broken")
	got := out.String()
	if !strings.Contains(got, `level=info msg=capped column=price`) || !strings.Contains(got, "level=error msg=broken") {
		t.Fatalf("output = %q", got)
	}
}

func TestSetupWritesToStderr(t *testing.T) {
	l := logrus.StandardLogger()
	prev, prevLevel, prevFmt := l.Out, l.GetLevel(), l.Formatter
	t.Cleanup(func() {
		l.SetOutput(prev)
		l.SetLevel(prevLevel)
		l.SetFormatter(prevFmt)
	})
	if err := Setup("info", "text"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if l.Out != os.Stderr {
		t.Fatalf("standard logger writes to %v, want stderr", l.Out)
	}
}

func TestConfigureJSONAndErrors(t *testing.T) {
	var out bytes.Buffer
	l := logrus.New()
	if err := Configure(l, "warn", "json", &out); err != nil {
		t.Fatalf("configure: %v", err)
	}
	l.Info("hidden")
	l.Error("shown")
	if strings.Contains(out.String(), "hidden") {
		t.Fatalf("info should be filtered at warn level: %q", out.String())
	}
	if !strings.Contains(out.String(), `"msg":"shown"`) {
		t.Fatalf("output = %q", out.String())
	}
	if err := Configure(l, "loud", "text", nil); err == nil {
		t.Fatalf("expected bad level error")
	}
	if err := Configure(l, "info", "xml", nil); err == nil {
		t.Fatalf("expected bad format error")
	}
}
