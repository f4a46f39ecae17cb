package dataset

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
)

// Options controls how a labeled tabular file is materialized.
type Options struct {
	// Delimiter is the field separator; ',' when zero.
	Delimiter rune

	// Codebook supplies value labels and missing codes per column.
	Codebook *Codebook

	// UseLabels materializes value labels instead of raw codes for
	// columns the codebook declares labels for. With UseLabels false the
	// raw codes are kept, numeric when parseable.
	UseLabels bool
}

// LoadCSV reads a labeled tabular file from disk.
// Failure is fatal and reported to the user; there is no retry logic.
func LoadCSV(path string, opts Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeFileFormat, Path: path, Message: "cannot open file", Err: err}
	}
	defer f.Close()

	d, err := ReadCSV(f, opts)
	if err != nil {
		var de *Error
		if errors.As(err, &de) && de.Path == "" {
			de.Path = path
		}
		return nil, err
	}
	return d, nil
}

// ReadCSV reads a labeled tabular file from a reader.
func ReadCSV(r io.Reader, opts Options) (*Dataset, error) {
	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, &Error{Code: ErrCodeFileFormat, Message: "cannot read header row", Err: err}
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
		if names[i] == "" {
			return nil, &Error{Code: ErrCodeFileFormat, Message: "empty column name in header"}
		}
	}

	raw := make([][]string, len(names))
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &Error{Code: ErrCodeFileFormat, Message: "malformed row", Err: err}
		}
		for i := range names {
			raw[i] = append(raw[i], strings.TrimSpace(rec[i]))
		}
	}
	if len(raw[0]) == 0 {
		return nil, &Error{Code: ErrCodeFileFormat, Message: "file contains no data rows"}
	}

	series := make([]Series, len(names))
	for i, name := range names {
		series[i] = materializeColumn(name, raw[i], opts)
	}
	return New(series)
}

// SaveCSV writes the dataset to a CSV file. Missing cells render empty;
// numeric cells render in shortest form, so a written file reloads to
// an identical dataset.
func SaveCSV(d *Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &Error{Code: ErrCodeFileFormat, Path: path, Message: "cannot create file", Err: err}
	}
	if err := WriteCSV(f, d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteCSV writes the dataset to a writer in CSV form.
func WriteCSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.names); err != nil {
		return &Error{Code: ErrCodeFileFormat, Message: "write header", Err: err}
	}

	rec := make([]string, len(d.cols))
	for row := 0; row < d.n; row++ {
		for j, c := range d.cols {
			switch {
			case c.missing != nil && c.missing[row]:
				rec[j] = ""
			case c.typ == Numeric:
				rec[j] = formatNum(c.nums[row])
			default:
				rec[j] = c.strs[row]
			}
		}
		if err := cw.Write(rec); err != nil {
			return &Error{Code: ErrCodeFileFormat, Message: "write row", Err: err}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return &Error{Code: ErrCodeFileFormat, Message: "flush", Err: err}
	}
	return nil
}

// materializeColumn decides a column's in-memory shape: labeled columns
// become categorical when labels are requested; otherwise the column is
// numeric iff every present cell parses as a number.
func materializeColumn(name string, cells []string, opts Options) Series {
	v, hasEntry := opts.Codebook.lookup(name)
	missingCode := map[string]bool{}
	if hasEntry {
		for _, m := range v.Missing {
			missingCode[m] = true
		}
	}

	missing := make([]bool, len(cells))
	for i, c := range cells {
		missing[i] = c == "" || missingCode[c]
	}

	if opts.UseLabels && hasEntry && v.HasLabels() {
		strs := make([]string, len(cells))
		for i, c := range cells {
			if missing[i] {
				continue
			}
			if label, ok := v.Values[c]; ok {
				strs[i] = label
			} else {
				strs[i] = c
			}
		}
		return Series{Name: name, Strs: strs, Missing: missing}
	}

	nums := make([]float64, len(cells))
	numeric := true
	for i, c := range cells {
		if missing[i] {
			continue
		}
		n, err := strconv.ParseFloat(c, 64)
		if err != nil {
			numeric = false
			break
		}
		nums[i] = n
	}
	if numeric {
		return Series{Name: name, Nums: nums, Missing: missing}
	}

	strs := make([]string, len(cells))
	for i, c := range cells {
		if !missing[i] {
			strs[i] = c
		}
	}
	return Series{Name: name, Strs: strs, Missing: missing}
}
