// Package clean implements the table cleaning operations: dropping columns,
// filling or dropping missing values, and removing duplicate rows. Every
// operation returns a new dataset and leaves its input untouched.
package clean

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/outlier"
)

// Strategy is a missing-value strategy.
type Strategy string

const (
	StrategyMean   Strategy = "mean"
	StrategyMedian Strategy = "median"
	StrategyMode   Strategy = "mode"
	StrategyDrop   Strategy = "drop"
)

// ParseStrategy accepts a strategy name case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyMean, StrategyMedian, StrategyMode, StrategyDrop:
		return st, nil
	}
	return "", fmt.Errorf("unknown missing-value strategy %q (want mean, median, mode or drop)", s)
}

// FillOptions tunes FillMissing.
type FillOptions struct {
	// Categorical also fills categorical and text columns with their most
	// frequent value when the strategy is mode.
	Categorical bool
}

// Summary reports what an operation changed.
type Summary struct {
	RowsBefore, RowsAfter int
	// Filled counts filled cells per column name.
	Filled map[string]int
	// Dropped lists removed column names.
	Dropped []string
}

// RowsRemoved is the number of rows the operation deleted.
func (s Summary) RowsRemoved() int { return s.RowsBefore - s.RowsAfter }

// CellsFilled is the total number of filled cells.
func (s Summary) CellsFilled() int {
	n := 0
	for _, v := range s.Filled {
		n += v
	}
	return n
}

// DropColumns removes exactly the named columns. An unknown name fails with
// dataset.ErrColumnNotFound and nothing is dropped.
func DropColumns(ds *dataset.Dataset, names []string) (*dataset.Dataset, Summary, error) {
	sum := Summary{RowsBefore: ds.Rows(), RowsAfter: ds.Rows()}
	if len(names) == 0 {
		return ds.Clone(), sum, nil
	}
	out := ds.Clone()
	if err := out.DropColumns(names...); err != nil {
		return nil, Summary{}, err
	}
	sum.Dropped = append([]string(nil), names...)
	sum.RowsAfter = out.Rows()
	return out, sum, nil
}

// FillMissing applies one strategy to the whole table. mean, median and mode
// fill every numeric column from its own non-missing values; drop deletes
// each row that has any missing cell. Columns with no values stay missing.
func FillMissing(ds *dataset.Dataset, strategy Strategy, opt FillOptions) (*dataset.Dataset, Summary, error) {
	out := ds.Clone()
	sum := Summary{RowsBefore: ds.Rows(), Filled: map[string]int{}}
	switch strategy {
	case StrategyDrop:
		keep := make([]bool, out.Rows())
		for i := range keep {
			keep[i] = !out.RowHasMissing(i)
		}
		if err := out.FilterRows(keep); err != nil {
			return nil, Summary{}, err
		}
	case StrategyMean, StrategyMedian, StrategyMode:
		for _, c := range out.NumericColumns() {
			vals := c.Values()
			if len(vals) == 0 || len(vals) == len(c.Nums) {
				continue
			}
			fill := numericFill(vals, strategy)
			for i, v := range c.Nums {
				if math.IsNaN(v) {
					c.Nums[i] = fill
					sum.Filled[c.Name]++
				}
			}
		}
		if strategy == StrategyMode && opt.Categorical {
			for _, c := range out.CategoricalColumns() {
				fill, ok := StringMode(c.Strs)
				if !ok {
					continue
				}
				for i, v := range c.Strs {
					if v == "" {
						c.Strs[i] = fill
						sum.Filled[c.Name]++
					}
				}
			}
		}
	default:
		return nil, Summary{}, fmt.Errorf("unknown missing-value strategy %q", strategy)
	}
	sum.RowsAfter = out.Rows()
	return out, sum, nil
}

// DropDuplicates removes rows identical to an earlier row, keeping the first.
func DropDuplicates(ds *dataset.Dataset) (*dataset.Dataset, Summary, error) {
	out := ds.Clone()
	seen := make(map[string]struct{}, out.Rows())
	keep := make([]bool, out.Rows())
	for i := range keep {
		key := strings.Join(out.Row(i), "\x1f")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep[i] = true
	}
	if err := out.FilterRows(keep); err != nil {
		return nil, Summary{}, err
	}
	return out, Summary{RowsBefore: ds.Rows(), RowsAfter: out.Rows()}, nil
}

// DuplicateRows counts rows identical to an earlier row.
func DuplicateRows(ds *dataset.Dataset) int {
	seen := make(map[string]struct{}, ds.Rows())
	n := 0
	for i := 0; i < ds.Rows(); i++ {
		key := strings.Join(ds.Row(i), "\x1f")
		if _, dup := seen[key]; dup {
			n++
			continue
		}
		seen[key] = struct{}{}
	}
	return n
}

func numericFill(vals []float64, strategy Strategy) float64 {
	switch strategy {
	case StrategyMedian:
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		return outlier.Quantile(sorted, 0.5)
	case StrategyMode:
		return Mode(vals)
	default:
		s := 0.0
		for _, v := range vals {
			s += v
		}
		return s / float64(len(vals))
	}
}

// Mode returns the most frequent value; ties go to the smallest value.
// vals must be non-empty.
func Mode(vals []float64) float64 {
	counts := make(map[float64]int, len(vals))
	for _, v := range vals {
		counts[v]++
	}
	best, bestN := math.Inf(1), 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}

// StringMode returns the most frequent non-empty value; ties go to the
// lexically smallest value.
func StringMode(vals []string) (string, bool) {
	counts := map[string]int{}
	for _, v := range vals {
		if v != "" {
			counts[v]++
		}
	}
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best, bestN > 0
}
