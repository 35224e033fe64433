package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edadash/internal/loader"
	"github.com/KaramelBytes/edadash/internal/pdf"
	"github.com/KaramelBytes/edadash/internal/session"
	"github.com/KaramelBytes/edadash/internal/storage"
)

// inputFlags are the file-reading flags shared by every command taking a file.
type inputFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | '|' (sniffed if omitted)")
	cmd.Flags().StringVar(&f.decimal, "decimal", "", "CSV decimal separator for numbers: '.'|'comma'")
	cmd.Flags().StringVar(&f.thousands, "thousands", "", "CSV thousands separator for numbers: ','|'.'|'space'")
	cmd.Flags().StringVar(&f.sheetName, "sheet-name", "", "workbook: sheet name to read")
	cmd.Flags().IntVar(&f.sheetIndex, "sheet-index", 1, "workbook: 1-based sheet index (used if --sheet-name not provided)")
}

func (f *inputFlags) apply(opt *loader.Options) error {
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|", "pipe":
		opt.Delimiter = '|'
	default:
		return fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		opt.Parse.DecimalSeparator = ','
	case ".", "dot":
		opt.Parse.DecimalSeparator = '.'
	case "":
	default:
		return fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(f.thousands)) {
	case ",":
		opt.Parse.ThousandsSeparator = ','
	case ".":
		opt.Parse.ThousandsSeparator = '.'
	case "space", " ":
		opt.Parse.ThousandsSeparator = ' '
	case "":
	default:
		return fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	if f.sheetName != "" {
		opt.Sheet = f.sheetName
	}
	if f.sheetIndex > 0 {
		opt.SheetIndex = f.sheetIndex
	}
	return nil
}

// newDashboard builds a dashboard from the loaded config. With wantPDF the
// wkhtmltopdf binary is resolved up front. A configured wkhtmltopdf_path that
// does not resolve is an error; when only the PATH lookup fails, reports are
// written as HTML only.
func newDashboard(in *inputFlags, wantPDF bool) (*session.Dashboard, error) {
	c := currentConfig()
	log := logrus.StandardLogger()
	var renderer pdf.Renderer
	if wantPDF {
		w, err := pdf.New(c.WkhtmltopdfPath, c.PDFTimeout(), log)
		switch {
		case err == nil:
			renderer = w
		case strings.TrimSpace(c.WkhtmltopdfPath) != "":
			return nil, fmt.Errorf("wkhtmltopdf_path: %w", err)
		default:
			fmt.Fprintf(os.Stderr, "⚠ PDF export disabled: %v\n", err)
		}
	}
	d := session.NewDashboard(c, renderer, log)
	if in != nil {
		if err := in.apply(&d.Load); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// openFile loads path into a fresh session state.
func openFile(d *session.Dashboard, path string) (session.State, error) {
	return d.Open(session.NewState(), path)
}

var noticeGlyphs = map[session.Level]string{
	session.LevelSuccess: "✓",
	session.LevelInfo:    "•",
	session.LevelWarn:    "⚠",
	session.LevelError:   "✗",
}

// printNotices writes the state's notices to stdout; errors and warnings go
// to stderr.
func printNotices(st session.State) { printNoticesTo(os.Stdout, st) }

// printNoticesTo is printNotices with info and success lines sent to out.
func printNoticesTo(out io.Writer, st session.State) {
	for _, n := range st.Notices {
		w := out
		if n.Level == session.LevelError || n.Level == session.LevelWarn {
			w = os.Stderr
		}
		fmt.Fprintf(w, "%s %s\n", noticeGlyphs[n.Level], n.Message)
	}
}

// toStdout reports whether an --output value means stdout.
func toStdout(path string) bool { return path == "" || path == "-" }

// writeOutput writes b to path, or to stdout when path is empty or "-".
func writeOutput(path string, b []byte) error {
	if toStdout(path) {
		_, err := os.Stdout.Write(b)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := storage.EnsureDir(dir); err != nil {
			return err
		}
	}
	if err := storage.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// expandInputs resolves globs and literal paths into a sorted, de-duplicated
// file list.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}
