// Package storage holds the file helpers shared by the dashboard and CLI:
// directory creation, atomic writes and sanitized upload names.
package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// EnsureDir ensures the provided directory exists.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// SafeWriteFile writes data to a temp file and atomically renames it into place.
func SafeWriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// PrettyJSON marshals a value as indented JSON.
func PrettyJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return b, nil
}

// SanitizeName reduces a client-supplied file name to a safe base name:
// directory parts are dropped and anything outside letters, digits, '.', '-'
// and '_' becomes '_'. An empty result becomes "upload".
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" || out == "_" {
		return "upload"
	}
	return out
}

// uploadStamp is the layout of the time part of an upload prefix; a dash and
// eight random hex characters follow it.
const uploadStamp = "20060102T150405.000"

var uploadPrefixLen = len(uploadStamp) + 1 + 8

// SaveUpload copies r into dir under a sanitized name prefixed with a
// timestamp and a random tag, so uploads of the same file never collide.
// It returns the saved path.
func SaveUpload(dir, name string, r io.Reader) (string, error) {
	if err := EnsureDir(dir); err != nil {
		return "", fmt.Errorf("ensure data dir: %w", err)
	}
	tag := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	base := time.Now().UTC().Format(uploadStamp) + "-" + tag + "_" + SanitizeName(name)
	path := filepath.Join(dir, base)
	f, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	tmp := f.Name()
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("atomic rename: %w", err)
	}
	return path, nil
}

// OriginalName strips the timestamp prefix SaveUpload adds.
func OriginalName(saved string) string {
	base := filepath.Base(saved)
	if i := strings.IndexByte(base, '_'); i == uploadPrefixLen {
		return base[i+1:]
	}
	return base
}
