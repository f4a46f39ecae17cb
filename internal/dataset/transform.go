package dataset

// Rename returns a new Dataset with columns renamed per mapping
// (old name → new name). Every old name must exist and no new name may
// collide with a surviving column. Data is shared, not copied.
func (d *Dataset) Rename(mapping map[string]string) (*Dataset, error) {
	for old := range mapping {
		if !d.HasColumn(old) {
			return nil, columnNotFound(old)
		}
	}

	out := &Dataset{
		names: make([]string, len(d.names)),
		index: make(map[string]int, len(d.names)),
		cols:  d.cols,
		n:     d.n,
	}
	for i, name := range d.names {
		if renamed, ok := mapping[name]; ok {
			name = renamed
		}
		if _, dup := out.index[name]; dup {
			return nil, &Error{Code: ErrCodeDuplicateColumn, Column: name, Message: "rename produces duplicate column"}
		}
		out.names[i] = name
		out.index[name] = i
	}
	return out, nil
}

// Select returns a new Dataset containing only the named columns, in
// the order given. Data is shared, not copied.
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	out := &Dataset{
		index: make(map[string]int, len(names)),
		n:     d.n,
	}
	for _, name := range names {
		i, ok := d.index[name]
		if !ok {
			return nil, columnNotFound(name)
		}
		if _, dup := out.index[name]; dup {
			continue
		}
		out.index[name] = len(out.cols)
		out.names = append(out.names, name)
		out.cols = append(out.cols, d.cols[i])
	}
	return out, nil
}

// Filter returns a new Dataset containing only the rows matching the
// predicate. The column set is preserved. Rows where the predicate
// references a missing value do not match.
func (d *Dataset) Filter(p Predicate) (*Dataset, error) {
	for _, col := range p.Columns() {
		if !d.HasColumn(col) {
			return nil, columnNotFound(col)
		}
	}

	var keep []int
	for r := 0; r < d.n; r++ {
		ok, err := p.Eval(d, r)
		if err != nil {
			return nil, err
		}
		if ok {
			keep = append(keep, r)
		}
	}
	return d.takeRows(keep), nil
}

// takeRows materializes a row subset into fresh column storage.
func (d *Dataset) takeRows(rows []int) *Dataset {
	out := &Dataset{
		names: append([]string(nil), d.names...),
		index: make(map[string]int, len(d.names)),
		cols:  make([]column, len(d.cols)),
		n:     len(rows),
	}
	for name, i := range d.index {
		out.index[name] = i
	}
	for i, c := range d.cols {
		nc := column{typ: c.typ, missing: make([]bool, len(rows))}
		if c.typ == Numeric {
			nc.nums = make([]float64, len(rows))
		} else {
			nc.strs = make([]string, len(rows))
		}
		for j, r := range rows {
			nc.missing[j] = c.missing[r]
			if c.typ == Numeric {
				nc.nums[j] = c.nums[r]
			} else {
				nc.strs[j] = c.strs[r]
			}
		}
		out.cols[i] = nc
	}
	return out
}
