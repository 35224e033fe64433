package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/logging"
	"github.com/sirupsen/logrus"
)

// Format is a supported input file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatXLSX
	FormatXLS
	FormatODS
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	case FormatXLS:
		return "xls"
	case FormatODS:
		return "ods"
	default:
		return "unknown"
	}
}

var extFormats = map[string]Format{
	".csv":  FormatCSV,
	".xlsx": FormatXLSX,
	".xls":  FormatXLS,
	".ods":  FormatODS,
}

// parseFunc reads one file into a dataset, recording each engine or encoding it tried.
type parseFunc func(path string, opt Options) (*dataset.Dataset, []Attempt)

var parsers = map[Format]parseFunc{
	FormatCSV:  parseCSV,
	FormatXLSX: parseWorkbook,
	FormatXLS:  parseWorkbook,
	FormatODS:  parseODS,
}

var (
	// ErrUnsupportedFormat indicates an extension no parser handles.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrCorrupted indicates every parsing attempt failed.
	ErrCorrupted = errors.New("corrupted file")
)

// Attempt records one parsing try (an encoding for CSV, an engine for workbooks).
type Attempt struct {
	Engine string
	Err    error
}

// LoadError reports why a file could not be loaded, with every attempt made.
type LoadError struct {
	Name     string
	Format   Format
	Attempts []Attempt
	Err      error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "unsupported or corrupted file %s", e.Name)
	if errors.Is(e.Err, ErrUnsupportedFormat) {
		fmt.Fprintf(&b, ": %v (supported: %s)", e.Err, strings.Join(Extensions(), ", "))
		return b.String()
	}
	for i, a := range e.Attempts {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %v", a.Engine, a.Err)
	}
	return b.String()
}

func (e *LoadError) Unwrap() []error {
	errs := []error{e.Err}
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Options controls file loading.
type Options struct {
	// Encodings are tried in order for CSV input.
	Encodings []string
	// Delimiter for CSV. If 0, sniffed from the header line.
	Delimiter rune
	// Sheet selects a workbook sheet by name; SheetIndex (1-based) is used otherwise.
	Sheet      string
	SheetIndex int
	Parse      dataset.ParseOptions
	Logger     logrus.FieldLogger
}

// DefaultEncodings is the CSV encoding fallback order.
var DefaultEncodings = []string{"utf-8", "utf-16", "cp1252", "latin-1"}

// DefaultOptions returns the loader defaults.
func DefaultOptions() Options {
	return Options{
		Encodings:  append([]string(nil), DefaultEncodings...),
		SheetIndex: 1,
	}
}

// Extensions lists supported file extensions.
func Extensions() []string {
	out := make([]string, 0, len(extFormats))
	for ext := range extFormats {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// FormatFromPath maps a file extension to a Format.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extFormats[ext]; ok {
		return f, nil
	}
	if ext == "" {
		return FormatUnknown, fmt.Errorf("%w: no extension", ErrUnsupportedFormat)
	}
	return FormatUnknown, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}

// Load reads a CSV, Excel or ODS file into a dataset. It never returns a
// partially parsed table: on failure the error is a *LoadError.
func Load(path string, opt Options) (*dataset.Dataset, error) {
	log := logging.Or(opt.Logger).WithField("file", filepath.Base(path))
	name := filepath.Base(path)
	format, err := FormatFromPath(path)
	if err != nil {
		log.WithError(err).Warn("rejected file")
		return nil, &LoadError{Name: name, Format: format, Err: err}
	}
	opt.Logger = log.WithField("format", format.String())
	ds, attempts := parsers[format](path, opt)
	if ds == nil {
		lerr := &LoadError{Name: name, Format: format, Attempts: attempts, Err: ErrCorrupted}
		log.WithError(lerr).Warn("load failed")
		return nil, lerr
	}
	if err := ds.Validate(); err != nil {
		return nil, &LoadError{Name: name, Format: format, Attempts: []Attempt{{Engine: format.String(), Err: err}}, Err: ErrCorrupted}
	}
	log.WithFields(logrus.Fields{"rows": ds.Rows(), "columns": ds.Width()}).Debug("loaded dataset")
	return ds, nil
}

// fromRows turns header + records from a workbook into a dataset. Entirely
// blank rows are skipped and the header widens to the longest row. Workbook
// numbers are raw values with a '.' decimal point, so the CSV separator
// options do not apply.
func fromRows(name string, rows [][]string) (*dataset.Dataset, error) {
	var kept [][]string
	for _, r := range rows {
		if !blankRow(r) {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return nil, errNoColumns
	}
	header := kept[0]
	width := len(header)
	for _, r := range kept[1:] {
		if len(r) > width {
			width = len(r)
		}
	}
	if width > len(header) {
		header = append(append([]string(nil), header...), make([]string, width-len(header))...)
	}
	return dataset.FromRecords(name, header, kept[1:], dataset.ParseOptions{})
}

var errNoColumns = errors.New("no columns to parse from file")

func blankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
