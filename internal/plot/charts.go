package plot

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/edadash/internal/dataset"
)

var seriesColor = drawing.Color{R: 31, G: 119, B: 180, A: 255}

// pointStyle renders points only, without a connecting line.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    3,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{StrokeWidth: 2, StrokeColor: col}
}

// paddedRange widens a degenerate range so single-valued series still render.
func paddedRange(vals []float64) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		pad := math.Max(math.Abs(lo)*0.1, 1)
		return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

func scatter(ds *dataset.Dataset, req Request) ([]byte, error) {
	xc, err := numeric(ds, req.X)
	if err != nil {
		return nil, err
	}
	yc, err := numeric(ds, req.Y)
	if err != nil {
		return nil, err
	}
	var xs, ys []float64
	for i := range xc.Nums {
		if xc.IsMissing(i) || yc.IsMissing(i) {
			continue
		}
		xs = append(xs, xc.Nums[i])
		ys = append(ys, yc.Nums[i])
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("%w: no rows with both %q and %q", dataset.ErrEmptyColumn, xc.Name, yc.Name)
	}
	w, h := req.size()
	ch := chart.Chart{
		Title:      titleOr(req, fmt.Sprintf("%s vs %s", yc.Name, xc.Name)),
		Width:      w,
		Height:     h,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: xc.Name, Range: paddedRange(xs)},
		YAxis:      chart.YAxis{Name: yc.Name, Range: paddedRange(ys)},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: yc.Name, XValues: xs, YValues: ys, Style: pointStyle(seriesColor)},
		},
	}
	return renderChart(&ch)
}

func line(ds *dataset.Dataset, req Request) ([]byte, error) {
	yc, err := numeric(ds, req.Y)
	if err != nil {
		return nil, err
	}
	w, h := req.size()
	ch := chart.Chart{
		Width:      w,
		Height:     h,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
	}
	if req.X == "" {
		var xs, ys []float64
		for i, v := range yc.Nums {
			if !math.IsNaN(v) {
				xs = append(xs, float64(i))
				ys = append(ys, v)
			}
		}
		ch.Title = titleOr(req, yc.Name+" by row")
		ch.XAxis = chart.XAxis{Name: "row", Range: paddedRange(xs)}
		ch.YAxis = chart.YAxis{Name: yc.Name, Range: paddedRange(ys)}
		ch.Series = []chart.Series{chart.ContinuousSeries{Name: yc.Name, XValues: xs, YValues: ys, Style: lineStyle(seriesColor)}}
		return renderChart(&ch)
	}

	xc, err := ds.Column(req.X)
	if err != nil {
		return nil, err
	}
	ch.Title = titleOr(req, fmt.Sprintf("%s over %s", yc.Name, xc.Name))
	switch xc.Kind {
	case dataset.KindNumeric:
		type pt struct{ x, y float64 }
		var pts []pt
		for i := range xc.Nums {
			if !xc.IsMissing(i) && !yc.IsMissing(i) {
				pts = append(pts, pt{xc.Nums[i], yc.Nums[i]})
			}
		}
		if len(pts) == 0 {
			return nil, fmt.Errorf("%w: no rows with both %q and %q", dataset.ErrEmptyColumn, xc.Name, yc.Name)
		}
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].x < pts[j].x })
		xs, ys := make([]float64, len(pts)), make([]float64, len(pts))
		for i, p := range pts {
			xs[i], ys[i] = p.x, p.y
		}
		ch.XAxis = chart.XAxis{Name: xc.Name, Range: paddedRange(xs)}
		ch.YAxis = chart.YAxis{Name: yc.Name, Range: paddedRange(ys)}
		ch.Series = []chart.Series{chart.ContinuousSeries{Name: yc.Name, XValues: xs, YValues: ys, Style: lineStyle(seriesColor)}}
	case dataset.KindDatetime:
		type pt struct {
			t time.Time
			y float64
		}
		var pts []pt
		for i, s := range xc.Strs {
			t, ok := dataset.ParseTime(s)
			if !ok || yc.IsMissing(i) {
				continue
			}
			pts = append(pts, pt{t, yc.Nums[i]})
		}
		if len(pts) < 2 {
			return nil, fmt.Errorf("%w: need at least two dated rows of %q", dataset.ErrEmptyColumn, yc.Name)
		}
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].t.Before(pts[j].t) })
		ts, ys := make([]time.Time, len(pts)), make([]float64, len(pts))
		for i, p := range pts {
			ts[i], ys[i] = p.t, p.y
		}
		if ts[0].Equal(ts[len(ts)-1]) {
			return nil, fmt.Errorf("%w: every row of %q has the same date", dataset.ErrEmptyColumn, xc.Name)
		}
		ch.XAxis = chart.XAxis{Name: xc.Name, ValueFormatter: chart.TimeDateValueFormatter}
		ch.YAxis = chart.YAxis{Name: yc.Name, Range: paddedRange(ys)}
		ch.Series = []chart.Series{chart.TimeSeries{Name: yc.Name, XValues: ts, YValues: ys, Style: lineStyle(seriesColor)}}
	default:
		return nil, fmt.Errorf("%w: %q is %s, want numeric or datetime", dataset.ErrNotNumeric, xc.Name, xc.Kind)
	}
	return renderChart(&ch)
}

// ValueCount is one category and its frequency.
type ValueCount struct {
	Value string
	Count int
}

// ValueCounts counts non-missing values, most frequent first, ties by value.
func ValueCounts(c *dataset.Column) []ValueCount {
	counts := map[string]int{}
	for i := 0; i < c.Len(); i++ {
		if !c.IsMissing(i) {
			counts[c.Cell(i)]++
		}
	}
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	return out
}

func bar(ds *dataset.Dataset, req Request) ([]byte, error) {
	col, err := categorical(ds, req.X)
	if err != nil {
		return nil, err
	}
	counts := ValueCounts(col)
	if len(counts) == 0 {
		return nil, fmt.Errorf("%w: %q", dataset.ErrEmptyColumn, col.Name)
	}
	if len(counts) > maxBars {
		counts = counts[:maxBars]
	}
	bars := make([]chart.Value, len(counts))
	for i, vc := range counts {
		label := vc.Value
		if len(label) > 14 {
			label = label[:13] + "…"
		}
		bars[i] = chart.Value{Value: float64(vc.Count), Label: label}
	}
	w, h := req.size()
	if need := 80 + len(bars)*48; need > w {
		w = need
	}
	bc := chart.BarChart{
		Title:      titleOr(req, "Value counts of "+col.Name),
		Width:      w,
		Height:     h,
		BarWidth:   36,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: float64(counts[0].Count)}},
		Bars:       bars,
	}
	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render bar chart: %w", err)
	}
	return buf.Bytes(), nil
}

func renderChart(ch *chart.Chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}
