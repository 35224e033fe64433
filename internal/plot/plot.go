// Package plot renders dataset columns as PNG charts. Distribution charts
// (histogram, box) are drawn with gonum/plot; relationship and count charts
// (scatter, line, bar) with go-chart.
package plot

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/edadash/internal/dataset"
)

// Kind is a chart type.
type Kind string

const (
	KindHistogram Kind = "histogram"
	KindBox       Kind = "box"
	KindScatter   Kind = "scatter"
	KindLine      Kind = "line"
	KindBar       Kind = "bar"
)

// Kinds lists every chart type in display order.
func Kinds() []Kind {
	return []Kind{KindHistogram, KindBox, KindScatter, KindLine, KindBar}
}

// ParseKind accepts a chart type name case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown plot kind %q", s)
}

const (
	defaultWidth  = 800
	defaultHeight = 480
	defaultBins   = 20
	maxBars       = 20
	maxBoxes      = 12
)

// Request selects what to draw. X is the primary column; Y is the vertical
// column for scatter and line charts. An empty X for a box plot draws every
// numeric column side by side; an empty X for a line chart uses row order.
type Request struct {
	Kind   Kind
	X, Y   string
	Bins   int
	Width  int
	Height int
	Title  string
}

func (r Request) size() (int, int) {
	w, h := r.Width, r.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

// Render draws the request and returns PNG bytes. A dataset without the
// columns a chart needs yields an informational error (dataset.IsInfo).
func Render(ds *dataset.Dataset, req Request) ([]byte, error) {
	switch req.Kind {
	case KindHistogram:
		return histogram(ds, req)
	case KindBox:
		return box(ds, req)
	case KindScatter:
		return scatter(ds, req)
	case KindLine:
		return line(ds, req)
	case KindBar:
		return bar(ds, req)
	}
	return nil, fmt.Errorf("unknown plot kind %q", req.Kind)
}

// Suggest fills in default columns for a chart kind: the first numeric
// columns for numeric charts and the first categorical column for bars.
func Suggest(ds *dataset.Dataset, kind Kind) (Request, error) {
	req := Request{Kind: kind}
	switch kind {
	case KindBar:
		cats := ds.CategoricalColumns()
		if len(cats) == 0 {
			return req, dataset.ErrNoCategoricalColumns
		}
		req.X = cats[0].Name
		return req, nil
	case KindHistogram, KindBox:
		nums := ds.NumericColumns()
		if len(nums) == 0 {
			return req, dataset.ErrNoNumericColumns
		}
		req.X = nums[0].Name
		req.Bins = defaultBins
		return req, nil
	case KindScatter:
		nums := ds.NumericColumns()
		if len(nums) == 0 {
			return req, dataset.ErrNoNumericColumns
		}
		req.X, req.Y = nums[0].Name, nums[0].Name
		if len(nums) > 1 {
			req.Y = nums[1].Name
		}
		return req, nil
	case KindLine:
		nums := ds.NumericColumns()
		if len(nums) == 0 {
			return req, dataset.ErrNoNumericColumns
		}
		req.Y = nums[0].Name
		for _, c := range ds.Columns() {
			if c.Kind == dataset.KindDatetime {
				req.X = c.Name
				break
			}
		}
		return req, nil
	}
	return req, fmt.Errorf("unknown plot kind %q", kind)
}

// Check reports whether ds has the columns req needs, without drawing. It
// returns the same errors Render would for missing or mistyped columns.
func Check(ds *dataset.Dataset, req Request) error {
	switch req.Kind {
	case KindHistogram:
		_, err := numeric(ds, req.X)
		return err
	case KindBox:
		if req.X != "" {
			_, err := numeric(ds, req.X)
			return err
		}
		for _, c := range ds.NumericColumns() {
			if len(c.Values()) > 0 {
				return nil
			}
		}
		return dataset.ErrNoNumericColumns
	case KindScatter:
		if _, err := numeric(ds, req.X); err != nil {
			return err
		}
		_, err := numeric(ds, req.Y)
		return err
	case KindLine:
		if _, err := numeric(ds, req.Y); err != nil {
			return err
		}
		if req.X != "" {
			_, err := ds.Column(req.X)
			return err
		}
		return nil
	case KindBar:
		_, err := categorical(ds, req.X)
		return err
	}
	return fmt.Errorf("unknown plot kind %q", req.Kind)
}

// categorical resolves a categorical or text column.
func categorical(ds *dataset.Dataset, name string) (*dataset.Column, error) {
	if len(ds.CategoricalColumns()) == 0 {
		return nil, dataset.ErrNoCategoricalColumns
	}
	col, err := ds.Column(name)
	if err != nil {
		return nil, err
	}
	if !col.IsCategorical() {
		return nil, fmt.Errorf("%w: %q is %s, want categorical", dataset.ErrNoCategoricalColumns, col.Name, col.Kind)
	}
	return col, nil
}

// numeric resolves a numeric column and its non-missing values.
func numeric(ds *dataset.Dataset, name string) (*dataset.Column, error) {
	if len(ds.NumericColumns()) == 0 {
		return nil, dataset.ErrNoNumericColumns
	}
	col, err := ds.Column(name)
	if err != nil {
		return nil, err
	}
	if !col.IsNumeric() {
		return nil, fmt.Errorf("%w: %q is %s", dataset.ErrNotNumeric, name, col.Kind)
	}
	if len(col.Values()) == 0 {
		return nil, fmt.Errorf("%w: %q", dataset.ErrEmptyColumn, name)
	}
	return col, nil
}

func titleOr(req Request, def string) string {
	if req.Title != "" {
		return req.Title
	}
	return def
}
