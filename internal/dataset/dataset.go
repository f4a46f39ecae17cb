package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/calder-stats/semfit/internal/spec"
)

// ColumnType distinguishes numeric and categorical columns.
type ColumnType int

const (
	Numeric ColumnType = iota
	Categorical
)

// Series is the construction form of a single column. Exactly one of
// Nums or Strs must be set; Missing is optional and defaults to all
// present.
type Series struct {
	Name    string
	Nums    []float64
	Strs    []string
	Missing []bool
}

// column is the internal columnar storage. Slices are shared between
// Datasets produced by Rename/Select and are never mutated after
// construction.
type column struct {
	typ     ColumnType
	nums    []float64
	strs    []string
	missing []bool
}

func (c column) length() int {
	if c.typ == Numeric {
		return len(c.nums)
	}
	return len(c.strs)
}

// Dataset is an immutable rectangular table of observations.
type Dataset struct {
	names []string
	index map[string]int
	cols  []column
	n     int
}

// New builds a Dataset from series. All series must have the same
// length and distinct non-empty names.
func New(series []Series) (*Dataset, error) {
	d := &Dataset{index: make(map[string]int, len(series))}
	for i, s := range series {
		if s.Name == "" {
			return nil, fmt.Errorf("series %d: name is required", i)
		}
		if _, dup := d.index[s.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", s.Name)
		}
		var c column
		switch {
		case s.Nums != nil && s.Strs != nil:
			return nil, fmt.Errorf("column %q: both numeric and string data", s.Name)
		case s.Nums != nil:
			c = column{typ: Numeric, nums: append([]float64(nil), s.Nums...)}
		case s.Strs != nil:
			c = column{typ: Categorical, strs: append([]string(nil), s.Strs...)}
		default:
			return nil, fmt.Errorf("column %q: no data", s.Name)
		}
		if s.Missing != nil {
			if len(s.Missing) != c.length() {
				return nil, fmt.Errorf("column %q: missing mask length %d != %d", s.Name, len(s.Missing), c.length())
			}
			c.missing = append([]bool(nil), s.Missing...)
		} else {
			c.missing = make([]bool, c.length())
		}
		if i == 0 {
			d.n = c.length()
		} else if c.length() != d.n {
			return nil, fmt.Errorf("column %q: length %d != %d", s.Name, c.length(), d.n)
		}
		d.index[s.Name] = len(d.cols)
		d.names = append(d.names, s.Name)
		d.cols = append(d.cols, c)
	}
	return d, nil
}

// FromNumeric builds a Dataset of purely numeric columns, in the order
// given by names.
func FromNumeric(names []string, data map[string][]float64) (*Dataset, error) {
	series := make([]Series, 0, len(names))
	for _, n := range names {
		series = append(series, Series{Name: n, Nums: data[n]})
	}
	return New(series)
}

// Columns returns the column names in table order.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.names...)
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return d.n }

// HasColumn reports whether the named column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Type returns the type of the named column.
func (d *Dataset) Type(name string) (ColumnType, error) {
	i, ok := d.index[name]
	if !ok {
		return 0, columnNotFound(name)
	}
	return d.cols[i].typ, nil
}

// Missing reports whether the cell at (name, row) is missing.
func (d *Dataset) Missing(name string, row int) (bool, error) {
	i, ok := d.index[name]
	if !ok {
		return false, columnNotFound(name)
	}
	return d.cols[i].missing[row], nil
}

// Float returns the numeric value at (name, row). Missing cells and
// categorical columns return an error.
func (d *Dataset) Float(name string, row int) (float64, error) {
	i, ok := d.index[name]
	if !ok {
		return 0, columnNotFound(name)
	}
	c := d.cols[i]
	if c.typ != Numeric {
		return 0, &Error{Code: ErrCodeBadPredicate, Column: name, Message: "not a numeric column"}
	}
	if c.missing[row] {
		return 0, fmt.Errorf("column %q row %d: missing value", name, row)
	}
	return c.nums[row], nil
}

// String returns the display value at (name, row): the label for
// categorical columns, the formatted number for numeric ones, and ""
// for missing cells.
func (d *Dataset) String(name string, row int) (string, error) {
	i, ok := d.index[name]
	if !ok {
		return "", columnNotFound(name)
	}
	c := d.cols[i]
	if c.missing[row] {
		return "", nil
	}
	if c.typ == Categorical {
		return c.strs[row], nil
	}
	return formatNum(c.nums[row]), nil
}

// NumericRows returns, for the named columns, the rows where every
// value is present (listwise deletion). The second return value is the
// retained original row indices.
func (d *Dataset) NumericRows(names []string) ([][]float64, []int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		j, ok := d.index[name]
		if !ok {
			return nil, nil, columnNotFound(name)
		}
		if d.cols[j].typ != Numeric {
			return nil, nil, &Error{Code: ErrCodeBadPredicate, Column: name, Message: "not a numeric column"}
		}
		idx[i] = j
	}
	var (
		rows [][]float64
		kept []int
	)
	for r := 0; r < d.n; r++ {
		ok := true
		for _, j := range idx {
			if d.cols[j].missing[r] {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		row := make([]float64, len(idx))
		for i, j := range idx {
			row[i] = d.cols[j].nums[r]
		}
		rows = append(rows, row)
		kept = append(kept, r)
	}
	return rows, kept, nil
}

// Signature returns a content-addressed identity for the dataset,
// covering its column names and cell contents. Fitted models record it
// so a comparison can verify both models saw the same data; two
// distinct row subsets of the same table get distinct signatures even
// when their shapes agree.
func (d *Dataset) Signature() string {
	var b strings.Builder
	b.WriteString(strings.Join(d.names, ","))
	b.WriteByte('\n')
	b.WriteString(strconv.Itoa(d.n))
	for _, c := range d.cols {
		b.WriteByte('\n')
		for r := 0; r < d.n; r++ {
			if r > 0 {
				b.WriteByte(',')
			}
			switch {
			case c.missing[r]:
				b.WriteByte('?')
			case c.typ == Numeric:
				b.WriteString(formatNum(c.nums[r]))
			default:
				b.WriteString(c.strs[r])
			}
		}
	}
	return spec.HashWithDomain(spec.DomainData, []byte(b.String()))
}

// formatNum renders a float the way group keys and cells are displayed:
// integers without a decimal point, everything else in shortest form.
func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
