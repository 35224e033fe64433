package profile

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"math"
)

//go:embed report.html.tmpl
var reportTemplate string

var htmlTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"num": func(v float64) string { return fmt.Sprintf("%.4g", v) },
	"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"bytes": func(n int64) string {
		const unit = 1024
		if n < unit {
			return fmt.Sprintf("%d B", n)
		}
		div, exp := int64(unit), 0
		for m := n / unit; m >= unit; m /= unit {
			div *= unit
			exp++
		}
		return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
	},
	"dataURI": func(png []byte) template.URL {
		return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
	},
	"corrStyle": func(r float64) template.CSS {
		a := math.Min(math.Abs(r), 1)
		if r >= 0 {
			return template.CSS(fmt.Sprintf("background: rgba(31,119,180,%.2f)", a*0.8))
		}
		return template.CSS(fmt.Sprintf("background: rgba(214,39,40,%.2f)", a*0.8))
	},
	"pairs": func(m *CorrMatrix) []PairCorr { return m.TopPairs(10) },
}).Parse(reportTemplate))

// WriteHTML renders the report as a self-contained HTML page.
func (r *Report) WriteHTML(w io.Writer) error {
	return htmlTmpl.Execute(w, r)
}

// HTML renders the report as a self-contained HTML page.
func (r *Report) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.WriteHTML(&buf); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}
