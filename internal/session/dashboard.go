package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/edadash/internal/catalog"
	"github.com/KaramelBytes/edadash/internal/clean"
	"github.com/KaramelBytes/edadash/internal/config"
	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/loader"
	"github.com/KaramelBytes/edadash/internal/logging"
	"github.com/KaramelBytes/edadash/internal/outlier"
	"github.com/KaramelBytes/edadash/internal/pdf"
	"github.com/KaramelBytes/edadash/internal/plot"
	"github.com/KaramelBytes/edadash/internal/profile"
	"github.com/KaramelBytes/edadash/internal/storage"
)

// ErrNoData indicates an operation that needs an uploaded dataset.
var ErrNoData = errors.New("no dataset loaded; upload a file first")

// Dashboard runs interactions. It holds configuration only; all per-user
// data lives in the State values passed in and out.
type Dashboard struct {
	DataDir        string
	OutputDir      string
	ReportBasename string
	Load           loader.Options
	Profile        profile.Options
	IQRK           float64
	// PDF may be nil, in which case reports are HTML only.
	PDF    pdf.Renderer
	Logger logrus.FieldLogger
}

// NewDashboard builds a dashboard from configuration.
func NewDashboard(cfg *config.Global, renderer pdf.Renderer, log logrus.FieldLogger) *Dashboard {
	lopt := loader.DefaultOptions()
	lopt.Encodings = append([]string(nil), cfg.CSVEncodings...)
	popt := profile.DefaultOptions()
	popt.Title = cfg.ReportTitle
	return &Dashboard{
		DataDir:        cfg.DataDir,
		OutputDir:      cfg.OutputDir,
		ReportBasename: cfg.ReportBasename,
		Load:           lopt,
		Profile:        popt,
		IQRK:           outlier.DefaultK,
		PDF:            renderer,
		Logger:         log,
	}
}

// WithSheet returns a copy of the dashboard that reads the given workbook
// sheet. An empty name and index <= 0 keep the configured selection.
func (d *Dashboard) WithSheet(name string, index int) *Dashboard {
	cp := *d
	if name != "" {
		cp.Load.Sheet = name
	}
	if index > 0 {
		cp.Load.SheetIndex = index
	}
	return &cp
}

func (d *Dashboard) log(st State) logrus.FieldLogger {
	l := logging.Or(d.Logger).WithField("session", st.ID)
	if st.FileName != "" {
		l = l.WithField("file", st.FileName)
	}
	return l
}

// fail records err as a notice. Informational errors become info notices.
func (d *Dashboard) fail(st State, err error) (State, error) {
	n := NoticeFor(err)
	if n.Level == LevelInfo {
		d.log(st).WithError(err).Info("request not applicable")
	} else {
		d.log(st).WithError(err).Warn("interaction failed")
	}
	return st.WithNotice(n.Level, n.Message), err
}

// NoticeFor turns an error into the notice shown to the user: info for
// conditions of the data, error otherwise.
func NoticeFor(err error) Notice {
	if dataset.IsInfo(err) {
		return Notice{Level: LevelInfo, Message: capitalize(err.Error())}
	}
	return Notice{Level: LevelError, Message: capitalize(err.Error())}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Upload saves r under the data directory and loads it.
func (d *Dashboard) Upload(st State, name string, r io.Reader) (State, error) {
	path, err := storage.SaveUpload(d.DataDir, name, r)
	if err != nil {
		st.Data = nil
		return d.fail(st, fmt.Errorf("save upload: %w", err))
	}
	return d.open(st, path, storage.OriginalName(path))
}

// Open loads a file already on disk, replacing the session's dataset.
func (d *Dashboard) Open(st State, path string) (State, error) {
	return d.open(st, path, filepath.Base(path))
}

func (d *Dashboard) open(st State, path, name string) (State, error) {
	next := State{ID: st.ID, FileName: name, Path: path}
	opt := d.Load
	opt.Logger = d.log(next)
	ds, err := loader.Load(path, opt)
	if err != nil {
		return d.fail(next, err)
	}
	ds.Name = name
	next.Data = ds
	msg := fmt.Sprintf("Loaded %s: %d rows × %d columns", name, ds.Rows(), ds.Width())
	if len(ds.NumericColumns()) == 0 {
		next = next.WithNotice(LevelSuccess, msg)
		next.Notices = append(next.Notices, Notice{Level: LevelInfo, Message: "No numeric columns: outlier handling and numeric plots are unavailable"})
		return next, nil
	}
	return next.WithNotice(LevelSuccess, msg), nil
}

// DropColumns removes the named columns.
func (d *Dashboard) DropColumns(st State, names []string) (State, error) {
	if !st.HasData() {
		return d.fail(st, ErrNoData)
	}
	if len(names) == 0 {
		return st.WithNotice(LevelInfo, "No columns selected"), nil
	}
	ds, _, err := clean.DropColumns(st.Data, names)
	if err != nil {
		return d.fail(st, err)
	}
	st.Data = ds
	st.Outliers = nil
	st.Plot = plot.Request{}
	st = st.step("drop " + strings.Join(names, ", "))
	d.log(st).WithField("columns", names).Info("dropped columns")
	return st.WithNotice(LevelSuccess, fmt.Sprintf("Dropped %d column(s): %s", len(names), strings.Join(names, ", "))), nil
}

// FillMissing applies a missing-value strategy to the whole table.
func (d *Dashboard) FillMissing(st State, strategy clean.Strategy, opt clean.FillOptions) (State, error) {
	if !st.HasData() {
		return d.fail(st, ErrNoData)
	}
	ds, sum, err := clean.FillMissing(st.Data, strategy, opt)
	if err != nil {
		return d.fail(st, err)
	}
	st.Data = ds
	st.Outliers = nil
	st = st.step("fill missing: " + string(strategy))
	d.log(st).WithFields(logrus.Fields{"strategy": strategy, "filled": sum.CellsFilled(), "removed": sum.RowsRemoved()}).Info("handled missing values")
	if strategy == clean.StrategyDrop {
		return st.WithNotice(LevelSuccess, fmt.Sprintf("Removed %d row(s) with missing values", sum.RowsRemoved())), nil
	}
	return st.WithNotice(LevelSuccess, fmt.Sprintf("Filled %d missing cell(s) using %s", sum.CellsFilled(), strategy)), nil
}

// DropDuplicates removes repeated rows.
func (d *Dashboard) DropDuplicates(st State) (State, error) {
	if !st.HasData() {
		return d.fail(st, ErrNoData)
	}
	ds, sum, err := clean.DropDuplicates(st.Data)
	if err != nil {
		return d.fail(st, err)
	}
	st.Data = ds
	st.Outliers = nil
	st = st.step("drop duplicates")
	return st.WithNotice(LevelSuccess, fmt.Sprintf("Removed %d duplicate row(s)", sum.RowsRemoved())), nil
}

// HandleOutliers detects outliers in column and applies policy.
func (d *Dashboard) HandleOutliers(st State, column string, policy outlier.Policy) (State, error) {
	if !st.HasData() {
		return d.fail(st, ErrNoData)
	}
	ds, res, err := outlier.Handle(st.Data, column, policy, d.IQRK)
	if err != nil {
		return d.fail(st, err)
	}
	st.Data = ds
	st.Outliers = &res
	d.log(st).WithFields(logrus.Fields{"column": column, "policy": policy, "outliers": res.Count}).Info("handled outliers")
	switch {
	case res.Empty:
		return st.WithNotice(LevelInfo, fmt.Sprintf("Column %s has no values; no outliers", column)), nil
	case res.Count == 0:
		return st.WithNotice(LevelSuccess, fmt.Sprintf("No outliers in %s (bounds %.4g to %.4g)", column, res.Bounds.Lower, res.Bounds.Upper)), nil
	}
	if policy != outlier.PolicyNone {
		st = st.step(fmt.Sprintf("outliers %s: %s", policy, column))
	}
	var verb string
	switch policy {
	case outlier.PolicyCap:
		verb = "capped"
	case outlier.PolicyRemove:
		verb = "removed"
	default:
		verb = "found"
	}
	return st.WithNotice(LevelSuccess, fmt.Sprintf("%d outlier(s) %s in %s (bounds %.4g to %.4g)",
		res.Count, verb, column, res.Bounds.Lower, res.Bounds.Upper)), nil
}

// Plot renders a chart, filling unset columns with suggestions.
func (d *Dashboard) Plot(st State, req plot.Request) ([]byte, State, error) {
	if !st.HasData() {
		st, err := d.fail(st, ErrNoData)
		return nil, st, err
	}
	req, err := ResolvePlot(st.Data, req)
	if err != nil {
		st, err := d.fail(st, err)
		return nil, st, err
	}
	png, err := plot.Render(st.Data, req)
	if err != nil {
		st, err := d.fail(st, err)
		return nil, st, err
	}
	st.Plot = req
	return png, st, nil
}

// ResolvePlot fills the unset columns of req with suggestions and checks
// that ds can draw it. A dataset lacking the needed column kinds gives an
// informational error.
func ResolvePlot(ds *dataset.Dataset, req plot.Request) (plot.Request, error) {
	if req.Kind == "" {
		req.Kind = plot.KindHistogram
	}
	if needsSuggestion(req) {
		sug, err := plot.Suggest(ds, req.Kind)
		if err != nil {
			return req, err
		}
		if req.X == "" && (req.Kind != plot.KindLine || req.Y == "") {
			req.X = sug.X
		}
		if req.Y == "" {
			req.Y = sug.Y
		}
	}
	return req, plot.Check(ds, req)
}

// needsSuggestion reports whether a required column is unset. Box plots and
// line charts have meaningful defaults for an empty X.
func needsSuggestion(req plot.Request) bool {
	switch req.Kind {
	case plot.KindScatter:
		return req.X == "" || req.Y == ""
	case plot.KindLine:
		return req.Y == ""
	case plot.KindBox:
		return false
	default:
		return req.X == ""
	}
}

// GenerateReport profiles the current dataset and writes HTML, JSON and,
// when a renderer is configured, PDF files to the output directory.
func (d *Dashboard) GenerateReport(ctx context.Context, st State) (State, error) {
	if !st.HasData() {
		return d.fail(st, ErrNoData)
	}
	if err := st.Data.Validate(); err != nil {
		return d.fail(st, err)
	}
	popt := d.Profile
	popt.Logger = d.log(st)
	popt.IQRK = d.IQRK
	rep, err := profile.Build(st.Data, popt)
	if err != nil {
		return d.fail(st, err)
	}
	files, err := d.writeReport(st, rep)
	if err != nil {
		return d.fail(st, err)
	}
	pdfErr := d.renderPDF(ctx, files)
	entry, err := catalog.Append(d.OutputDir, &catalog.Entry{
		Source:   st.FileName,
		Rows:     rep.Overview.Rows,
		Columns:  rep.Overview.Columns,
		HTMLPath: files.HTML,
		PDFPath:  files.PDF,
		JSONPath: files.JSON,
		Warnings: len(rep.Warnings),
	})
	if err != nil {
		d.log(st).WithError(err).Warn("could not update report catalog")
	} else {
		files.EntryID = entry.ID
	}
	st.Report = files
	msg := "Report generated: " + filepath.Base(files.HTML)
	if files.PDF != "" {
		msg += " and " + filepath.Base(files.PDF)
	}
	st = st.WithNotice(LevelSuccess, msg)
	if pdfErr != nil {
		d.log(st).WithError(pdfErr).Warn("pdf export failed")
		st.Notices = append(st.Notices, Notice{Level: LevelWarn, Message: "PDF export unavailable: " + pdfErr.Error()})
	}
	return st, nil
}

// writeReport writes the HTML and JSON files under a unique stem.
func (d *Dashboard) writeReport(st State, rep *profile.Report) (*ReportFiles, error) {
	if err := storage.EnsureDir(d.OutputDir); err != nil {
		return nil, fmt.Errorf("ensure output dir: %w", err)
	}
	base := d.ReportBasename
	if base == "" {
		base = "eda_report"
	}
	stamp := time.Now().UTC().Format("20060102-150405")
	short := st.ID
	if len(short) > 8 {
		short = short[:8]
	}
	stem := filepath.Join(d.OutputDir, fmt.Sprintf("%s_%s_%s", base, stamp, short))

	html, err := rep.HTML()
	if err != nil {
		return nil, err
	}
	out := &ReportFiles{HTML: stem + ".html", JSON: stem + ".json"}
	if err := storage.SafeWriteFile(out.HTML, html); err != nil {
		return nil, fmt.Errorf("write html report: %w", err)
	}
	js, err := rep.JSON()
	if err != nil {
		return nil, fmt.Errorf("encode json report: %w", err)
	}
	if err := storage.SafeWriteFile(out.JSON, js); err != nil {
		return nil, fmt.Errorf("write json report: %w", err)
	}
	return out, nil
}

// renderPDF converts the HTML report next to itself and records the path on
// success. The HTML report stays usable when it fails.
func (d *Dashboard) renderPDF(ctx context.Context, files *ReportFiles) error {
	if d.PDF == nil {
		return pdf.ErrRendererNotFound
	}
	out := strings.TrimSuffix(files.HTML, ".html") + ".pdf"
	if err := d.PDF.Render(ctx, files.HTML, out); err != nil {
		_ = os.Remove(out)
		return err
	}
	files.PDF = out
	return nil
}

// Export encodes the current dataset as CSV or XLSX. It returns the bytes and
// a download file name.
func (d *Dashboard) Export(st State, format loader.Format) ([]byte, string, error) {
	if !st.HasData() {
		return nil, "", ErrNoData
	}
	stem := strings.TrimSuffix(st.FileName, filepath.Ext(st.FileName))
	if stem == "" {
		stem = "dataset"
	}
	name := fmt.Sprintf("%s_clean.%s", stem, format)
	b, err := loader.Export(st.Data, name)
	if err != nil {
		return nil, "", err
	}
	return b, name, nil
}

// Reset forgets the dataset but keeps the session ID.
func (d *Dashboard) Reset(st State) State {
	return State{ID: st.ID}.WithNotice(LevelInfo, "Session cleared")
}

// Preview renders the first n rows of the dataset as text cells.
func Preview(ds *dataset.Dataset, n int) [][]string {
	if ds == nil {
		return nil
	}
	return ds.Head(n)
}

// Describe is a short text description of the dataset shape.
func Describe(ds *dataset.Dataset) string {
	if ds == nil {
		return ""
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "%d rows × %d columns", ds.Rows(), ds.Width())
	if n := len(ds.NumericColumns()); n > 0 {
		fmt.Fprintf(&b, ", %d numeric", n)
	}
	if n := len(ds.CategoricalColumns()); n > 0 {
		fmt.Fprintf(&b, ", %d categorical", n)
	}
	if m := ds.MissingCells(); m > 0 {
		fmt.Fprintf(&b, ", %d missing cells", m)
	}
	return b.String()
}
