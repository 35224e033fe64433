// Package profile builds an exploratory profiling report for a dataset and
// renders it as HTML, Markdown or JSON.
package profile

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/edadash/internal/clean"
	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/logging"
	"github.com/KaramelBytes/edadash/internal/outlier"
	"github.com/KaramelBytes/edadash/internal/plot"
)

// Options controls report contents.
type Options struct {
	Title string
	// SampleRows is how many head rows to include.
	SampleRows int
	// TopValues limits the value counts listed per categorical column.
	TopValues int
	// IQRK is the multiplier for the outlier fences.
	IQRK float64
	// Plots embeds one chart per column, up to MaxPlots.
	Plots    bool
	MaxPlots int
	// HighMissingPct and HighCardinalityPct trigger warnings.
	HighMissingPct     float64
	HighCardinalityPct float64
	// GroupBy adds per-group numeric summaries keyed by these columns.
	GroupBy []string
	Logger  logrus.FieldLogger
}

// DefaultOptions returns reasonable defaults for profiling.
func DefaultOptions() Options {
	return Options{
		Title:              "EDA Report",
		SampleRows:         5,
		TopValues:          8,
		IQRK:               outlier.DefaultK,
		Plots:              true,
		MaxPlots:           12,
		HighMissingPct:     50,
		HighCardinalityPct: 90,
	}
}

// Report is the profile of one dataset.
type Report struct {
	Title     string          `json:"title"`
	Name      string          `json:"name"`
	Generated time.Time       `json:"generated"`
	Overview  Overview        `json:"overview"`
	Cols      []ColumnSummary `json:"columns"`
	Corr      *CorrMatrix     `json:"correlations,omitempty"`
	Groups    []GroupSummary  `json:"groups,omitempty"`
	Header    []string        `json:"header"`
	Samples   [][]string      `json:"samples"`
	Warnings  []string        `json:"warnings,omitempty"`
	Figures   []Figure        `json:"-"`
}

// Overview holds dataset-level statistics.
type Overview struct {
	Rows          int            `json:"rows"`
	Columns       int            `json:"columns"`
	MissingCells  int            `json:"missing_cells"`
	MissingPct    float64        `json:"missing_pct"`
	DuplicateRows int            `json:"duplicate_rows"`
	MemoryBytes   int64          `json:"memory_bytes"`
	Kinds         map[string]int `json:"kinds"`
}

// ColumnSummary captures the kind and statistics of one column.
type ColumnSummary struct {
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	NonNull    int     `json:"non_null"`
	Missing    int     `json:"missing"`
	MissingPct float64 `json:"missing_pct"`
	Unique     int     `json:"unique"`
	// Numeric stats, set when HasStats.
	HasStats bool    `json:"has_stats"`
	Mean     float64 `json:"mean,omitempty"`
	Std      float64 `json:"std,omitempty"`
	Min      float64 `json:"min,omitempty"`
	Q1       float64 `json:"q1,omitempty"`
	Median   float64 `json:"median,omitempty"`
	Q3       float64 `json:"q3,omitempty"`
	Max      float64 `json:"max,omitempty"`
	Outliers int     `json:"outliers"`
	// Categorical top values
	TopValues    []CategoryCount `json:"top_values,omitempty"`
	ExampleTexts []string        `json:"examples,omitempty"`
}

// CategoryCount is one value and its frequency.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric
// columns. Pairs with fewer than two shared rows or no variance are 0.
type CorrMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// PairCorr is one off-diagonal entry of a CorrMatrix.
type PairCorr struct {
	A, B string
	R    float64
}

// Figure is an embedded chart.
type Figure struct {
	Title string
	PNG   []byte
}

// Build profiles ds. It never modifies ds.
func Build(ds *dataset.Dataset, opt Options) (*Report, error) {
	if ds == nil {
		return nil, fmt.Errorf("profile: no dataset")
	}
	def := DefaultOptions()
	if opt.Title == "" {
		opt.Title = def.Title
	}
	if opt.SampleRows <= 0 {
		opt.SampleRows = def.SampleRows
	}
	if opt.TopValues <= 0 {
		opt.TopValues = def.TopValues
	}
	if opt.HighMissingPct <= 0 {
		opt.HighMissingPct = def.HighMissingPct
	}
	if opt.HighCardinalityPct <= 0 {
		opt.HighCardinalityPct = def.HighCardinalityPct
	}
	log := logging.Or(opt.Logger).WithField("file", ds.Name)

	rep := &Report{
		Title:     opt.Title,
		Name:      ds.Name,
		Generated: time.Now().UTC(),
		Header:    ds.Names(),
		Samples:   ds.Head(opt.SampleRows),
	}
	rep.Overview = overview(ds)

	outliers := map[string]int{}
	for _, r := range outlier.Scan(ds, opt.IQRK) {
		outliers[r.Column] = r.Count
	}
	for _, c := range ds.Columns() {
		s := summarize(c, opt.TopValues)
		s.Outliers = outliers[c.Name]
		rep.Cols = append(rep.Cols, s)
		rep.Warnings = append(rep.Warnings, columnWarnings(s, ds.Rows(), opt)...)
	}
	if rep.Overview.DuplicateRows > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("dataset has %d duplicate rows", rep.Overview.DuplicateRows))
	}
	rep.Corr = correlations(ds)
	if len(opt.GroupBy) > 0 {
		g, err := groupSummaries(ds, opt.GroupBy)
		if err != nil {
			return nil, err
		}
		rep.Groups = g
	}

	if opt.Plots {
		rep.Figures = figures(ds, opt, log)
	}
	log.WithFields(logrus.Fields{"columns": len(rep.Cols), "warnings": len(rep.Warnings), "figures": len(rep.Figures)}).Debug("built profile")
	return rep, nil
}

func overview(ds *dataset.Dataset) Overview {
	ov := Overview{
		Rows:          ds.Rows(),
		Columns:       ds.Width(),
		MissingCells:  ds.MissingCells(),
		DuplicateRows: clean.DuplicateRows(ds),
		Kinds:         map[string]int{},
	}
	if cells := ds.Rows() * ds.Width(); cells > 0 {
		ov.MissingPct = float64(ov.MissingCells) * 100 / float64(cells)
	}
	for _, c := range ds.Columns() {
		ov.Kinds[string(c.Kind)]++
		if c.IsNumeric() {
			ov.MemoryBytes += int64(8 * len(c.Nums))
			continue
		}
		for _, s := range c.Strs {
			ov.MemoryBytes += int64(16 + len(s))
		}
	}
	return ov
}

func summarize(c *dataset.Column, topN int) ColumnSummary {
	n := c.Len()
	s := ColumnSummary{Name: c.Name, Kind: string(c.Kind), Missing: c.Missing()}
	s.NonNull = n - s.Missing
	if n > 0 {
		s.MissingPct = float64(s.Missing) * 100 / float64(n)
	}
	if c.IsNumeric() {
		vals := finiteValues(c.Values())
		s.Unique = uniqueFloats(vals)
		if len(vals) == 0 {
			return s
		}
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		s.HasStats = true
		s.Mean = stat.Mean(vals, nil)
		if len(vals) > 1 {
			s.Std = stat.StdDev(vals, nil)
		}
		s.Min = sorted[0]
		s.Max = sorted[len(sorted)-1]
		s.Q1 = outlier.Quantile(sorted, 0.25)
		s.Median = outlier.Quantile(sorted, 0.5)
		s.Q3 = outlier.Quantile(sorted, 0.75)
		return s
	}
	counts := plot.ValueCounts(c)
	s.Unique = len(counts)
	switch c.Kind {
	case dataset.KindText:
		for _, v := range c.Strs {
			if v != "" && len(s.ExampleTexts) < 3 {
				s.ExampleTexts = append(s.ExampleTexts, v)
			}
		}
	default:
		if len(counts) > topN {
			counts = counts[:topN]
		}
		for _, vc := range counts {
			s.TopValues = append(s.TopValues, CategoryCount{Value: vc.Value, Count: vc.Count})
		}
	}
	return s
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// finiteValues drops ±Inf, which JSON cannot encode.
func finiteValues(vals []float64) []float64 {
	out := vals[:0:0]
	for _, v := range vals {
		if finite(v) {
			out = append(out, v)
		}
	}
	return out
}

func uniqueFloats(vals []float64) int {
	seen := make(map[float64]struct{}, len(vals))
	for _, v := range vals {
		seen[v] = struct{}{}
	}
	return len(seen)
}

func columnWarnings(s ColumnSummary, rows int, opt Options) []string {
	var w []string
	switch {
	case rows > 0 && s.NonNull == 0:
		w = append(w, fmt.Sprintf("column %q has no values", s.Name))
	case s.MissingPct >= opt.HighMissingPct:
		w = append(w, fmt.Sprintf("column %q is %.1f%% missing", s.Name, s.MissingPct))
	}
	if s.NonNull > 1 && s.Unique == 1 {
		w = append(w, fmt.Sprintf("column %q is constant", s.Name))
	}
	if s.Kind != string(dataset.KindNumeric) && s.NonNull > 10 &&
		float64(s.Unique)*100/float64(s.NonNull) >= opt.HighCardinalityPct {
		w = append(w, fmt.Sprintf("column %q has high cardinality (%d distinct values)", s.Name, s.Unique))
	}
	if s.Outliers > 0 {
		w = append(w, fmt.Sprintf("column %q has %d outliers outside the IQR fences", s.Name, s.Outliers))
	}
	return w
}

// correlations computes pairwise-complete Pearson coefficients.
func correlations(ds *dataset.Dataset) *CorrMatrix {
	cols := ds.NumericColumns()
	if len(cols) < 2 {
		return nil
	}
	m := &CorrMatrix{Columns: make([]string, len(cols)), Values: make([][]float64, len(cols))}
	for i, c := range cols {
		m.Columns[i] = c.Name
		m.Values[i] = make([]float64, len(cols))
		m.Values[i][i] = 1
	}
	for a := 0; a < len(cols); a++ {
		for b := a + 1; b < len(cols); b++ {
			r := pearson(cols[a].Nums, cols[b].Nums)
			m.Values[a][b], m.Values[b][a] = r, r
		}
	}
	return m
}

func pearson(x, y []float64) float64 {
	var xs, ys []float64
	for i := range x {
		if !finite(x[i]) || !finite(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return 0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}

// TopPairs lists off-diagonal correlations by descending |r|.
func (m *CorrMatrix) TopPairs(limit int) []PairCorr {
	if m == nil {
		return nil
	}
	var pairs []PairCorr
	n := len(m.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// figures renders a histogram per numeric column and a bar chart per
// categorical column. Columns that cannot be drawn are skipped.
func figures(ds *dataset.Dataset, opt Options, log logrus.FieldLogger) []Figure {
	var out []Figure
	for _, c := range ds.Columns() {
		if opt.MaxPlots > 0 && len(out) >= opt.MaxPlots {
			break
		}
		req := plot.Request{X: c.Name, Width: 640, Height: 360}
		switch c.Kind {
		case dataset.KindNumeric:
			req.Kind = plot.KindHistogram
		case dataset.KindCategorical:
			req.Kind = plot.KindBar
		default:
			continue
		}
		png, err := plot.Render(ds, req)
		if err != nil {
			log.WithField("column", c.Name).WithError(err).Debug("skipping figure")
			continue
		}
		out = append(out, Figure{Title: fmt.Sprintf("%s (%s)", c.Name, req.Kind), PNG: png})
	}
	return out
}

// JSON renders the report as indented JSON, without figures.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
