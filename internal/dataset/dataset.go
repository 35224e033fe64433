package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindDatetime    Kind = "datetime"
	KindCategorical Kind = "categorical"
	KindText        Kind = "text"
)

// Column is a named, typed column. Numeric columns keep their cells in Nums
// (NaN marks a missing value); every other kind keeps them in Strs ("" marks
// a missing value).
type Column struct {
	Name string
	Kind Kind
	Nums []float64
	Strs []string
}

// NewNumeric builds a numeric column.
func NewNumeric(name string, vals []float64) *Column {
	return &Column{Name: name, Kind: KindNumeric, Nums: vals}
}

// NewStrings builds a non-numeric column of the given kind.
func NewStrings(name string, kind Kind, vals []string) *Column {
	return &Column{Name: name, Kind: kind, Strs: vals}
}

// IsNumeric reports whether the column holds numbers.
func (c *Column) IsNumeric() bool { return c.Kind == KindNumeric }

// IsCategorical reports whether the column can be counted by value.
func (c *Column) IsCategorical() bool { return c.Kind == KindCategorical || c.Kind == KindText }

// Len returns the number of cells.
func (c *Column) Len() int {
	if c.IsNumeric() {
		return len(c.Nums)
	}
	return len(c.Strs)
}

// IsMissing reports whether cell i is missing.
func (c *Column) IsMissing(i int) bool {
	if c.IsNumeric() {
		return math.IsNaN(c.Nums[i])
	}
	return c.Strs[i] == ""
}

// Missing counts missing cells.
func (c *Column) Missing() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// Cell renders cell i as text; missing cells render as "".
func (c *Column) Cell(i int) string {
	if c.IsNumeric() {
		return FormatFloat(c.Nums[i])
	}
	return c.Strs[i]
}

// Values returns the non-missing numeric values in row order.
func (c *Column) Values() []float64 {
	if !c.IsNumeric() {
		return nil
	}
	out := make([]float64, 0, len(c.Nums))
	for _, v := range c.Nums {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func (c *Column) clone() *Column {
	cp := &Column{Name: c.Name, Kind: c.Kind}
	if c.Nums != nil {
		cp.Nums = append([]float64(nil), c.Nums...)
	}
	if c.Strs != nil {
		cp.Strs = append([]string(nil), c.Strs...)
	}
	return cp
}

func (c *Column) filter(keep []bool) {
	if c.IsNumeric() {
		out := c.Nums[:0]
		for i, v := range c.Nums {
			if keep[i] {
				out = append(out, v)
			}
		}
		c.Nums = out
		return
	}
	out := c.Strs[:0]
	for i, v := range c.Strs {
		if keep[i] {
			out = append(out, v)
		}
	}
	c.Strs = out
}

// Dataset is an in-memory table of rows and named, typed columns.
type Dataset struct {
	Name string
	cols []*Column
	rows int
}

// New assembles a dataset from columns and validates its shape.
func New(name string, cols []*Column) (*Dataset, error) {
	d := &Dataset{Name: name, cols: cols}
	if len(cols) > 0 {
		d.rows = cols[0].Len()
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Rows returns the number of rows.
func (d *Dataset) Rows() int { return d.rows }

// Width returns the number of columns.
func (d *Dataset) Width() int { return len(d.cols) }

// Columns returns the columns in order. The slice must not be modified.
func (d *Dataset) Columns() []*Column { return d.cols }

// Names returns column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by exact name.
func (d *Dataset) Column(name string) (*Column, error) {
	for _, c := range d.cols {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// Has reports whether a column with this name exists.
func (d *Dataset) Has(name string) bool {
	_, err := d.Column(name)
	return err == nil
}

// NumericColumns returns the numeric columns in order.
func (d *Dataset) NumericColumns() []*Column {
	var out []*Column
	for _, c := range d.cols {
		if c.IsNumeric() {
			out = append(out, c)
		}
	}
	return out
}

// CategoricalColumns returns categorical and text columns in order.
func (d *Dataset) CategoricalColumns() []*Column {
	var out []*Column
	for _, c := range d.cols {
		if c.IsCategorical() {
			out = append(out, c)
		}
	}
	return out
}

// Row renders row i as text cells.
func (d *Dataset) Row(i int) []string {
	out := make([]string, len(d.cols))
	for j, c := range d.cols {
		out[j] = c.Cell(i)
	}
	return out
}

// Head renders the first n rows.
func (d *Dataset) Head(n int) [][]string {
	if n > d.rows || n < 0 {
		n = d.rows
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		out[i] = d.Row(i)
	}
	return out
}

// MissingCells counts missing cells across the table.
func (d *Dataset) MissingCells() int {
	n := 0
	for _, c := range d.cols {
		n += c.Missing()
	}
	return n
}

// RowHasMissing reports whether any cell of row i is missing.
func (d *Dataset) RowHasMissing(i int) bool {
	for _, c := range d.cols {
		if c.IsMissing(i) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	cp := &Dataset{Name: d.Name, rows: d.rows, cols: make([]*Column, len(d.cols))}
	for i, c := range d.cols {
		cp.cols[i] = c.clone()
	}
	return cp
}

// FilterRows keeps the rows whose keep flag is set. keep must have one entry per row.
func (d *Dataset) FilterRows(keep []bool) error {
	if len(keep) != d.rows {
		return fmt.Errorf("filter rows: got %d flags for %d rows", len(keep), d.rows)
	}
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}
	for _, c := range d.cols {
		c.filter(keep)
	}
	d.rows = n
	return nil
}

// DropColumns removes the named columns. If any name is unknown nothing is
// removed and ErrColumnNotFound is returned.
func (d *Dataset) DropColumns(names ...string) error {
	drop := make(map[string]bool, len(names))
	var missing []string
	for _, n := range names {
		if !d.Has(n) {
			missing = append(missing, n)
			continue
		}
		drop[n] = true
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, strings.Join(quoteAll(missing), ", "))
	}
	kept := d.cols[:0]
	for _, c := range d.cols {
		if !drop[c.Name] {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(d.cols); i++ {
		d.cols[i] = nil
	}
	d.cols = kept
	if len(d.cols) == 0 {
		d.rows = 0
	}
	return nil
}

// Validate checks the table is rectangular with non-empty, unique column names.
func (d *Dataset) Validate() error {
	seen := make(map[string]bool, len(d.cols))
	for i, c := range d.cols {
		if c == nil {
			return fmt.Errorf("%w: column %d is nil", ErrInvalidShape, i)
		}
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: column %d has no name", ErrInvalidShape, i)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate column %q", ErrInvalidShape, c.Name)
		}
		seen[c.Name] = true
		if c.Len() != d.rows {
			return fmt.Errorf("%w: column %q has %d cells, want %d", ErrInvalidShape, c.Name, c.Len(), d.rows)
		}
		if c.IsNumeric() && c.Strs != nil || !c.IsNumeric() && c.Nums != nil {
			return fmt.Errorf("%w: column %q storage does not match kind %s", ErrInvalidShape, c.Name, c.Kind)
		}
	}
	return nil
}

// WriteCSV writes a header line followed by every row.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < d.rows; i++ {
		if err := cw.Write(d.Row(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatFloat renders a number without exponent; NaN renders as "".
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strconv.Quote(s)
	}
	return out
}
