package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseOptions controls how raw text cells are typed.
type ParseOptions struct {
	// DecimalSeparator defaults to '.'.
	DecimalSeparator rune
	// ThousandsSeparator is stripped before parsing when set.
	ThousandsSeparator rune
}

// missingTokens mirrors the usual spreadsheet/pandas NA spellings.
var missingTokens = map[string]bool{
	"":        true,
	"NA":      true,
	"N/A":     true,
	"n/a":     true,
	"#N/A":    true,
	"#NA":     true,
	"<NA>":    true,
	"NaN":     true,
	"nan":     true,
	"-NaN":    true,
	"-nan":    true,
	"NULL":    true,
	"null":    true,
	"None":    true,
	"-1.#IND": true,
}

// IsMissingToken reports whether a raw cell denotes a missing value.
func IsMissingToken(s string) bool {
	return missingTokens[strings.TrimSpace(s)]
}

// FromRecords builds a dataset from a header and raw text rows, normalizing
// header names and inferring a kind per column. Short rows are padded with
// missing cells; callers reject long rows before calling.
func FromRecords(name string, header []string, records [][]string, opt ParseOptions) (*Dataset, error) {
	names := NormalizeHeader(header)
	ncol := len(names)
	raw := make([][]string, ncol)
	for j := range raw {
		raw[j] = make([]string, len(records))
	}
	for i, rec := range records {
		if len(rec) > ncol {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", i+2, ncol, len(rec))
		}
		for j := 0; j < ncol; j++ {
			if j < len(rec) {
				raw[j][i] = strings.TrimSpace(rec[j])
			}
		}
	}
	cols := make([]*Column, ncol)
	for j := range raw {
		cols[j] = InferColumn(names[j], raw[j], opt)
	}
	return New(name, cols)
}

// NormalizeHeader fills blank names with "Unnamed: <i>" and suffixes
// duplicates with ".1", ".2", ...
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	dups := make(map[string]int)
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for used[name] {
			dups[h]++
			name = fmt.Sprintf("%s.%d", h, dups[h])
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// InferColumn types raw cells. A column is numeric when every non-missing cell
// parses as a number (an all-missing column is numeric, all NaN), datetime when
// every non-missing cell parses as a date, and categorical or text otherwise.
func InferColumn(name string, cells []string, opt ParseOptions) *Column {
	nums := make([]float64, len(cells))
	numeric, dates := true, true
	present := 0
	for i, s := range cells {
		if IsMissingToken(s) {
			nums[i] = math.NaN()
			continue
		}
		present++
		if numeric {
			if x, ok := parseNumeric(s, opt); ok {
				nums[i] = x
			} else {
				numeric = false
			}
		}
		if dates {
			if _, ok := parseTimeMaybe(s); !ok {
				dates = false
			}
		}
	}
	if numeric {
		return NewNumeric(name, nums)
	}
	strs := make([]string, len(cells))
	for i, s := range cells {
		if !IsMissingToken(s) {
			strs[i] = s
		}
	}
	if dates && present > 0 {
		return NewStrings(name, KindDatetime, strs)
	}
	return NewStrings(name, textKind(strs, present), strs)
}

// textKind separates short, repetitive labels from free text.
func textKind(strs []string, present int) Kind {
	uniq := make(map[string]struct{})
	for _, s := range strs {
		if s == "" {
			continue
		}
		if len(s) > 64 {
			return KindText
		}
		uniq[s] = struct{}{}
	}
	if len(uniq) <= 50 || len(uniq)*2 <= present {
		return KindCategorical
	}
	return KindText
}

// ParseTime parses a cell of a datetime column.
func ParseTime(s string) (time.Time, bool) { return parseTimeMaybe(strings.TrimSpace(s)) }

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02T15:04:05", "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumeric(s string, opt ParseOptions) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "\u00a0", "")
	if opt.ThousandsSeparator != 0 && opt.ThousandsSeparator != opt.DecimalSeparator {
		raw = strings.ReplaceAll(raw, string(opt.ThousandsSeparator), "")
	}
	if dec := opt.DecimalSeparator; dec != 0 && dec != '.' {
		if strings.Contains(raw, ".") {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	// Reject hex floats and digit separators that ParseFloat tolerates.
	if strings.ContainsAny(raw, "xXpP_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
