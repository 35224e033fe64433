package plot

import (
	"bytes"
	"fmt"

	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/edadash/internal/dataset"
)

// pngDPI is the resolution vgimg uses for PNG output.
const pngDPI = 96

func pixels(n int) vg.Length { return vg.Length(n) * vg.Inch / pngDPI }

func histogram(ds *dataset.Dataset, req Request) ([]byte, error) {
	col, err := numeric(ds, req.X)
	if err != nil {
		return nil, err
	}
	bins := req.Bins
	if bins <= 0 {
		bins = defaultBins
	}
	p := gplot.New()
	p.Title.Text = titleOr(req, "Distribution of "+col.Name)
	p.X.Label.Text = col.Name
	p.Y.Label.Text = "count"
	h, err := plotter.NewHist(plotter.Values(col.Values()), bins)
	if err != nil {
		return nil, fmt.Errorf("histogram %q: %w", col.Name, err)
	}
	p.Add(h)
	return savePNG(p, req)
}

func box(ds *dataset.Dataset, req Request) ([]byte, error) {
	var cols []*dataset.Column
	if req.X != "" {
		col, err := numeric(ds, req.X)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	} else {
		for _, c := range ds.NumericColumns() {
			if len(c.Values()) > 0 {
				cols = append(cols, c)
			}
			if len(cols) == maxBoxes {
				break
			}
		}
		if len(cols) == 0 {
			return nil, dataset.ErrNoNumericColumns
		}
	}
	p := gplot.New()
	if len(cols) == 1 {
		p.Title.Text = titleOr(req, "Box plot of "+cols[0].Name)
	} else {
		p.Title.Text = titleOr(req, "Box plots")
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		b, err := plotter.NewBoxPlot(vg.Points(20), float64(i), plotter.Values(c.Values()))
		if err != nil {
			return nil, fmt.Errorf("box plot %q: %w", c.Name, err)
		}
		p.Add(b)
		names[i] = c.Name
	}
	p.NominalX(names...)
	return savePNG(p, req)
}

func savePNG(p *gplot.Plot, req Request) ([]byte, error) {
	w, h := req.size()
	wt, err := p.WriterTo(pixels(w), pixels(h), "png")
	if err != nil {
		return nil, fmt.Errorf("render png: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render png: %w", err)
	}
	return buf.Bytes(), nil
}
