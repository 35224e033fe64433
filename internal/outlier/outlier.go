// Package outlier finds and handles values outside the interquartile fences
// of a numeric column.
package outlier

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/edadash/internal/dataset"
)

// DefaultK is the IQR multiplier for the Tukey fences.
const DefaultK = 1.5

// Policy selects what happens to detected outliers.
type Policy string

const (
	PolicyNone   Policy = "none"
	PolicyCap    Policy = "cap"
	PolicyRemove Policy = "remove"
)

// ParsePolicy accepts a policy name case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyNone, PolicyCap, PolicyRemove:
		return p, nil
	case "":
		return PolicyNone, nil
	}
	return "", fmt.Errorf("unknown outlier policy %q (want none, cap or remove)", s)
}

// Bounds are the quartiles and fences of one column.
type Bounds struct {
	Q1, Q3       float64
	IQR          float64
	Lower, Upper float64
}

// Contains reports whether v lies within the fences, inclusive.
func (b Bounds) Contains(v float64) bool { return v >= b.Lower && v <= b.Upper }

// Result describes outliers found in a column.
type Result struct {
	Column string
	Policy Policy
	Bounds Bounds
	// Rows are the row indices (in the input dataset) holding outliers.
	Rows  []int
	Count int
	// Empty is set when the column had no non-missing values.
	Empty bool
}

// Quantile interpolates linearly between order statistics of sorted, using
// pos = q*(n-1). It returns NaN for an empty slice.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Quartiles returns Q1 and Q3 of the non-missing values. ok is false when
// there are none.
func Quartiles(vals []float64) (q1, q3 float64, ok bool) {
	cp := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			cp = append(cp, v)
		}
	}
	if len(cp) == 0 {
		return 0, 0, false
	}
	sort.Float64s(cp)
	return Quantile(cp, 0.25), Quantile(cp, 0.75), true
}

// Fences computes Tukey fences with multiplier k (DefaultK when k <= 0).
func Fences(vals []float64, k float64) (Bounds, bool) {
	if k <= 0 {
		k = DefaultK
	}
	q1, q3, ok := Quartiles(vals)
	if !ok {
		return Bounds{}, false
	}
	iqr := q3 - q1
	return Bounds{Q1: q1, Q3: q3, IQR: iqr, Lower: q1 - k*iqr, Upper: q3 + k*iqr}, true
}

// Detect finds outliers in the named numeric column without changing it.
func Detect(ds *dataset.Dataset, column string, k float64) (Result, error) {
	col, err := numericColumn(ds, column)
	if err != nil {
		return Result{}, err
	}
	return detect(col, k), nil
}

func detect(col *dataset.Column, k float64) Result {
	res := Result{Column: col.Name, Policy: PolicyNone}
	b, ok := Fences(col.Nums, k)
	if !ok {
		res.Empty = true
		return res
	}
	res.Bounds = b
	for i, v := range col.Nums {
		if math.IsNaN(v) || b.Contains(v) {
			continue
		}
		res.Rows = append(res.Rows, i)
	}
	res.Count = len(res.Rows)
	return res
}

// Handle detects outliers in column and applies policy. The input dataset is
// never modified: cap and remove return a changed copy, none returns ds.
// Missing values are never outliers and survive every policy.
func Handle(ds *dataset.Dataset, column string, policy Policy, k float64) (*dataset.Dataset, Result, error) {
	res, err := Detect(ds, column, k)
	if err != nil {
		return nil, Result{}, err
	}
	res.Policy = policy
	switch policy {
	case PolicyNone, "":
		res.Policy = PolicyNone
		return ds, res, nil
	case PolicyCap:
		out := ds.Clone()
		if res.Count == 0 {
			return out, res, nil
		}
		col, _ := out.Column(column)
		for _, i := range res.Rows {
			col.Nums[i] = math.Min(math.Max(col.Nums[i], res.Bounds.Lower), res.Bounds.Upper)
		}
		return out, res, nil
	case PolicyRemove:
		out := ds.Clone()
		if res.Count == 0 {
			return out, res, nil
		}
		keep := make([]bool, out.Rows())
		for i := range keep {
			keep[i] = true
		}
		for _, i := range res.Rows {
			keep[i] = false
		}
		if err := out.FilterRows(keep); err != nil {
			return nil, Result{}, err
		}
		return out, res, nil
	}
	return nil, Result{}, fmt.Errorf("unknown outlier policy %q", policy)
}

// Scan reports outliers for every numeric column, in column order.
func Scan(ds *dataset.Dataset, k float64) []Result {
	var out []Result
	for _, c := range ds.NumericColumns() {
		out = append(out, detect(c, k))
	}
	return out
}

func numericColumn(ds *dataset.Dataset, name string) (*dataset.Column, error) {
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
	return col, nil
}
