// Package catalog records generated reports in output_dir/catalog.json.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/edadash/internal/storage"
)

const catalogFileName = "catalog.json"

// Entry is one generated report.
type Entry struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Rows      int       `json:"rows"`
	Columns   int       `json:"columns"`
	HTMLPath  string    `json:"html_path"`
	PDFPath   string    `json:"pdf_path,omitempty"`
	JSONPath  string    `json:"json_path,omitempty"`
	Warnings  int       `json:"warnings"`
	CreatedAt time.Time `json:"created_at"`
}

// Catalog is the persisted list of reports for one output directory.
type Catalog struct {
	Entries   map[string]*Entry `json:"entries"`
	UpdatedAt time.Time         `json:"updated_at"`

	// Not serialized: on-disk location of catalog.json
	rootDir string `json:"-"`
}

// New constructs an empty in-memory catalog. Call Save() to persist.
func New(rootDir string) *Catalog {
	return &Catalog{Entries: make(map[string]*Entry), rootDir: rootDir}
}

// Load reads catalog.json from dir. A missing file yields an empty catalog.
func Load(dir string) (*Catalog, error) {
	path := filepath.Join(dir, catalogFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(dir), nil
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if c.Entries == nil {
		c.Entries = make(map[string]*Entry)
	}
	c.rootDir = dir
	return &c, nil
}

// RootDir returns the directory holding catalog.json.
func (c *Catalog) RootDir() string { return c.rootDir }

// Add assigns an ID and creation time when missing and records the entry.
func (c *Catalog) Add(e *Entry) *Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if c.Entries == nil {
		c.Entries = make(map[string]*Entry)
	}
	c.Entries[e.ID] = e
	return e
}

// Get returns an entry by ID.
func (c *Catalog) Get(id string) (*Entry, bool) {
	e, ok := c.Entries[id]
	return e, ok
}

// List returns entries newest first.
func (c *Catalog) List() []*Entry {
	out := make([]*Entry, 0, len(c.Entries))
	for _, e := range c.Entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Save writes catalog.json using atomic write.
func (c *Catalog) Save() error {
	if c.rootDir == "" {
		return errors.New("catalog directory not set")
	}
	if err := storage.EnsureDir(c.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	c.UpdatedAt = time.Now().UTC()
	data, err := storage.PrettyJSON(c)
	if err != nil {
		return err
	}
	return storage.SafeWriteFile(filepath.Join(c.rootDir, catalogFileName), data)
}

var appendMu sync.Mutex

// Append loads the catalog in dir, records e and saves it. Concurrent calls
// within one process are serialized.
func Append(dir string, e *Entry) (*Entry, error) {
	appendMu.Lock()
	defer appendMu.Unlock()
	c, err := Load(dir)
	if err != nil {
		return nil, err
	}
	c.Add(e)
	if err := c.Save(); err != nil {
		return nil, err
	}
	return e, nil
}
