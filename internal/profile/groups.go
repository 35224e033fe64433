package profile

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/edadash/internal/dataset"
)

// maxGroups caps the groups kept in a report, largest first.
const maxGroups = 20

// GroupSummary aggregates the numeric columns over the rows sharing one
// combination of group-by values.
type GroupSummary struct {
	Key     string        `json:"key"`
	Size    int           `json:"size"`
	Metrics []GroupMetric `json:"metrics"`
}

// GroupMetric summarizes one numeric column within a group.
type GroupMetric struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

func groupSummaries(ds *dataset.Dataset, by []string) ([]GroupSummary, error) {
	keyCols := make([]*dataset.Column, 0, len(by))
	skip := map[string]bool{}
	for _, name := range by {
		c, err := ds.Column(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("group by: %w", err)
		}
		keyCols = append(keyCols, c)
		skip[c.Name] = true
	}
	if len(keyCols) == 0 {
		return nil, nil
	}

	members := map[string][]int{}
	var order []string
	for i := 0; i < ds.Rows(); i++ {
		parts := make([]string, len(keyCols))
		for j, c := range keyCols {
			v := c.Cell(i)
			if c.IsMissing(i) {
				v = "(missing)"
			}
			parts[j] = fmt.Sprintf("%s=%s", c.Name, v)
		}
		key := strings.Join(parts, " | ")
		if _, ok := members[key]; !ok {
			order = append(order, key)
		}
		members[key] = append(members[key], i)
	}
	sort.SliceStable(order, func(a, b int) bool {
		if len(members[order[a]]) != len(members[order[b]]) {
			return len(members[order[a]]) > len(members[order[b]])
		}
		return order[a] < order[b]
	})
	if len(order) > maxGroups {
		order = order[:maxGroups]
	}

	out := make([]GroupSummary, 0, len(order))
	for _, key := range order {
		rows := members[key]
		g := GroupSummary{Key: key, Size: len(rows)}
		for _, c := range ds.NumericColumns() {
			if skip[c.Name] {
				continue
			}
			vals := make([]float64, 0, len(rows))
			for _, i := range rows {
				if v := c.Nums[i]; finite(v) {
					vals = append(vals, v)
				}
			}
			if len(vals) == 0 {
				continue
			}
			g.Metrics = append(g.Metrics, GroupMetric{
				Column: c.Name,
				Count:  len(vals),
				Mean:   stat.Mean(vals, nil),
				Min:    floats.Min(vals),
				Max:    floats.Max(vals),
			})
		}
		out = append(out, g)
	}
	return out, nil
}
