package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"github.com/KaramelBytes/edadash/internal/clean"
	"github.com/KaramelBytes/edadash/internal/loader"
	"github.com/KaramelBytes/edadash/internal/outlier"
	"github.com/KaramelBytes/edadash/internal/plot"
	"github.com/KaramelBytes/edadash/internal/session"
)

//go:embed page.html.tmpl
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
	"contains": func(slice []string, item string) bool {
		for _, s := range slice {
			if s == item {
				return true
			}
		}
		return false
	},
	"formatSize":   formatSize,
	"formatNumber": func(f float64) string { return strconv.FormatFloat(f, 'g', 6, 64) },
}

var pageTemplate = template.Must(template.New("page.html.tmpl").Funcs(templateFuncs).ParseFS(templateFS, "page.html.tmpl"))

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

type columnView struct {
	Name    string
	Kind    string
	Missing int
}

type page struct {
	State       session.State
	Summary     string
	Header      []string
	Rows        [][]string
	Columns     []columnView
	Numeric     []string
	Categorical []string
	Strategies  []clean.Strategy
	Policies    []outlier.Policy
	PlotKinds   []plot.Kind
	PlotURL     string
	PlotNotice  *session.Notice
	chart       plot.Request
	Extensions  string
	MaxUpload   string
}

// newPage builds the view. A plot form submission arrives as query values on
// the page request and takes precedence over the session's last chart.
func newPage(st session.State, opt Options, query url.Values) page {
	p := page{
		State:      st,
		Strategies: []clean.Strategy{clean.StrategyMean, clean.StrategyMedian, clean.StrategyMode, clean.StrategyDrop},
		Policies:   []outlier.Policy{outlier.PolicyNone, outlier.PolicyCap, outlier.PolicyRemove},
		PlotKinds:  plot.Kinds(),
		Extensions: strings.Join(loader.Extensions(), ","),
		MaxUpload:  formatSize(opt.MaxUploadBytes),
	}
	if !st.HasData() {
		return p
	}
	ds := st.Data
	p.Summary = session.Describe(ds)
	p.Header = ds.Names()
	p.Rows = session.Preview(ds, opt.PreviewRows)
	for _, c := range ds.Columns() {
		p.Columns = append(p.Columns, columnView{Name: c.Name, Kind: string(c.Kind), Missing: c.Missing()})
	}
	for _, c := range ds.NumericColumns() {
		p.Numeric = append(p.Numeric, c.Name)
	}
	for _, c := range ds.CategoricalColumns() {
		p.Categorical = append(p.Categorical, c.Name)
	}
	req, err := session.ResolvePlot(ds, plotRequest(st, query))
	if err != nil {
		n := session.NoticeFor(err)
		n.Message = fmt.Sprintf("Cannot draw %s plot: %v", req.Kind, err)
		p.PlotNotice = &n
		return p
	}
	p.chart = req
	p.PlotURL = plotURL(req, st)
	return p
}

// plotRequest is the chart the page shows: the submitted plot form, else the
// session's last chart, else the default chart for the dataset.
func plotRequest(st session.State, query url.Values) plot.Request {
	req := st.Plot
	if k := query.Get("kind"); k != "" {
		kind, err := plot.ParseKind(k)
		if err != nil {
			kind = plot.Kind(k)
		}
		req = plot.Request{Kind: kind, X: query.Get("x"), Y: query.Get("y")}
		req.Bins, _ = strconv.Atoi(query.Get("bins"))
	}
	if req.Kind == "" && st.HasData() {
		req.Kind = plot.KindHistogram
		if len(st.Data.NumericColumns()) == 0 {
			req.Kind = plot.KindBar
		}
	}
	return req
}

// plotURL points the page image at req. The session version busts caches
// after the data changes.
func plotURL(req plot.Request, st session.State) string {
	q := url.Values{}
	q.Set("kind", string(req.Kind))
	if req.X != "" {
		q.Set("x", req.X)
	}
	if req.Y != "" {
		q.Set("y", req.Y)
	}
	if req.Bins > 0 {
		q.Set("bins", strconv.Itoa(req.Bins))
	}
	q.Set("v", strconv.FormatInt(st.UpdatedAt.UnixNano(), 36))
	return "/plot.png?" + q.Encode()
}
