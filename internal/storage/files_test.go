package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"sales.csv":               "sales.csv",
		"../../etc/passwd":        "passwd",
		`C:\Users\me\data 1.xlsx`: "data_1.xlsx",
		"résumé.ods":              "r_sum_.ods",
		"..":                      "upload",
		"":                        "upload",
		".hidden.csv":             "hidden.csv",
	}
	for in, want := range cases {
		if got := SanitizeName(in); got != want {
			t.Errorf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSaveUpload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	p, err := SaveUpload(dir, "../my data.csv", strings.NewReader("a,b\n1,2\n"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Dir(p) != dir {
		t.Fatalf("saved outside data dir: %s", p)
	}
	if got := OriginalName(p); got != "my_data.csv" {
		t.Fatalf("original name = %q", got)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "a,b\n1,2\n" {
		t.Fatalf("content = %q, %v", b, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestSaveUploadSameNameTwice(t *testing.T) {
	dir := t.TempDir()
	a, err := SaveUpload(dir, "data.csv", strings.NewReader("first"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := SaveUpload(dir, "data.csv", strings.NewReader("second"))
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatalf("uploads share a path: %s", a)
	}
	if got, _ := os.ReadFile(a); string(got) != "first" {
		t.Fatalf("first upload replaced: %q", got)
	}
	if OriginalName(a) != "data.csv" || OriginalName(b) != "data.csv" {
		t.Fatalf("original names = %q, %q", OriginalName(a), OriginalName(b))
	}
}

func TestSafeWriteFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x.json")
	b, err := PrettyJSON(map[string]int{"a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := SafeWriteFile(p, b); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
	got, _ := os.ReadFile(p)
	if string(got) != "{\n  \"a\": 1\n}" {
		t.Fatalf("got %q", got)
	}
}
