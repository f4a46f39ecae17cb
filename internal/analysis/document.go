// Package analysis loads declarative analysis documents and runs them
// end to end: load data, apply transforms, build models, fit, compare,
// test invariance, persist and report. Documents are written in CUE,
// which validates structure and types before any Go code sees them.
package analysis

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Document is a parsed analysis document.
type Document struct {
	Title string
	Data  DataSource

	// Rename maps existing column names to new ones, applied before
	// Filter.
	Rename map[string]string

	// Filter is a row predicate over the renamed columns; empty keeps
	// every row.
	Filter string

	Models      []ModelDef
	Fits        []FitDef
	Comparisons []CompareDef
	Invariance  []InvarianceDef

	// MILimit caps reported modification indices; 0 reports all.
	MILimit int

	Report *ReportDef
}

// DataSource locates the input table.
type DataSource struct {
	CSV       string
	Delimiter string
	Codebook  string
	UseLabels bool
}

// ModelDef declares one model, either from full text or by extending a
// previously declared model with additional relation lines.
type ModelDef struct {
	Name    string
	Text    string
	Extends string
	Add     string
}

// FitDef requests one fit.
type FitDef struct {
	Model       string
	Group       string
	Constraints []string
}

// CompareDef requests a nested-model comparison between two fitted
// models. Nesting decides which is the restricted one.
type CompareDef struct {
	A string
	B string
}

// InvarianceDef requests a full invariance ladder.
type InvarianceDef struct {
	Model string
	Group string
}

// ReportDef requests an HTML report.
type ReportDef struct {
	HTML  string
	Title string
}

// DocumentError represents a document parsing error with source position.
type DocumentError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *DocumentError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadDocument reads and parses an analysis document from a CUE file.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return ParseDocument(path, data)
}

// ParseDocument parses analysis document source. The document lives
// under the top-level "analysis" field.
func ParseDocument(filename string, src []byte) (*Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	root := v.LookupPath(cue.ParsePath("analysis"))
	if !root.Exists() {
		return nil, &DocumentError{
			Field:   "analysis",
			Message: "top-level analysis struct is required",
			Pos:     v.Pos(),
		}
	}
	return parseDocument(root)
}

func parseDocument(v cue.Value) (*Document, error) {
	doc := &Document{}
	var err error

	if doc.Title, err = optString(v, "title"); err != nil {
		return nil, err
	}

	dataVal := v.LookupPath(cue.ParsePath("data"))
	if !dataVal.Exists() {
		return nil, &DocumentError{Field: "data", Message: "data source is required", Pos: v.Pos()}
	}
	if doc.Data, err = parseData(dataVal); err != nil {
		return nil, err
	}

	renameVal := v.LookupPath(cue.ParsePath("rename"))
	if renameVal.Exists() {
		doc.Rename = map[string]string{}
		iter, err := renameVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			to, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			doc.Rename[iter.Label()] = to
		}
	}

	if doc.Filter, err = optString(v, "filter"); err != nil {
		return nil, err
	}

	if doc.Models, err = parseModels(v); err != nil {
		return nil, err
	}
	if len(doc.Models) == 0 {
		return nil, &DocumentError{Field: "models", Message: "at least one model is required", Pos: v.Pos()}
	}

	if doc.Fits, err = parseFits(v); err != nil {
		return nil, err
	}
	if doc.Comparisons, err = parseComparisons(v); err != nil {
		return nil, err
	}
	if doc.Invariance, err = parseInvariance(v); err != nil {
		return nil, err
	}

	miVal := v.LookupPath(cue.ParsePath("mod_indices.limit"))
	if miVal.Exists() {
		limit, err := miVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		doc.MILimit = int(limit)
	}

	reportVal := v.LookupPath(cue.ParsePath("report"))
	if reportVal.Exists() {
		rep := &ReportDef{}
		if rep.HTML, err = optString(reportVal, "html"); err != nil {
			return nil, err
		}
		if rep.Title, err = optString(reportVal, "title"); err != nil {
			return nil, err
		}
		if rep.HTML == "" {
			return nil, &DocumentError{Field: "report.html", Message: "report output path is required", Pos: reportVal.Pos()}
		}
		doc.Report = rep
	}

	return doc, nil
}

func parseData(v cue.Value) (DataSource, error) {
	var ds DataSource
	var err error

	if ds.CSV, err = optString(v, "csv"); err != nil {
		return ds, err
	}
	if ds.CSV == "" {
		return ds, &DocumentError{Field: "data.csv", Message: "csv path is required", Pos: v.Pos()}
	}
	if ds.Delimiter, err = optString(v, "delimiter"); err != nil {
		return ds, err
	}
	if ds.Codebook, err = optString(v, "codebook"); err != nil {
		return ds, err
	}

	labelsVal := v.LookupPath(cue.ParsePath("use_labels"))
	if labelsVal.Exists() {
		if ds.UseLabels, err = labelsVal.Bool(); err != nil {
			return ds, formatCUEError(err)
		}
	}
	if ds.UseLabels && ds.Codebook == "" {
		return ds, &DocumentError{Field: "data.use_labels", Message: "use_labels requires a codebook", Pos: v.Pos()}
	}
	return ds, nil
}

func parseModels(v cue.Value) ([]ModelDef, error) {
	modelsVal := v.LookupPath(cue.ParsePath("models"))
	if !modelsVal.Exists() {
		return nil, nil
	}

	iter, err := modelsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []ModelDef
	declared := map[string]bool{}
	for iter.Next() {
		def := ModelDef{Name: iter.Label()}
		mv := iter.Value()

		if def.Text, err = optString(mv, "text"); err != nil {
			return nil, err
		}
		if def.Extends, err = optString(mv, "extends"); err != nil {
			return nil, err
		}
		if def.Add, err = optString(mv, "add"); err != nil {
			return nil, err
		}

		switch {
		case def.Text != "" && def.Extends != "":
			return nil, &DocumentError{Field: "models." + def.Name,
				Message: "text and extends are mutually exclusive", Pos: mv.Pos()}
		case def.Text == "" && def.Extends == "":
			return nil, &DocumentError{Field: "models." + def.Name,
				Message: "either text or extends is required", Pos: mv.Pos()}
		case def.Extends != "" && !declared[def.Extends]:
			return nil, &DocumentError{Field: "models." + def.Name,
				Message: fmt.Sprintf("extends unknown model %q (models must be declared before use)", def.Extends),
				Pos:     mv.Pos()}
		case def.Extends != "" && def.Add == "":
			return nil, &DocumentError{Field: "models." + def.Name,
				Message: "extends requires add", Pos: mv.Pos()}
		}

		declared[def.Name] = true
		out = append(out, def)
	}
	return out, nil
}

func parseFits(v cue.Value) ([]FitDef, error) {
	fitsVal := v.LookupPath(cue.ParsePath("fits"))
	if !fitsVal.Exists() {
		return nil, nil
	}

	iter, err := fitsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []FitDef
	for iter.Next() {
		fv := iter.Value()
		def := FitDef{}
		if def.Model, err = reqString(fv, "model"); err != nil {
			return nil, err
		}
		if def.Group, err = optString(fv, "group"); err != nil {
			return nil, err
		}

		consVal := fv.LookupPath(cue.ParsePath("constraints"))
		if consVal.Exists() {
			consIter, err := consVal.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for consIter.Next() {
				c, err := consIter.Value().String()
				if err != nil {
					return nil, formatCUEError(err)
				}
				def.Constraints = append(def.Constraints, c)
			}
		}
		out = append(out, def)
	}
	return out, nil
}

func parseComparisons(v cue.Value) ([]CompareDef, error) {
	cmpVal := v.LookupPath(cue.ParsePath("comparisons"))
	if !cmpVal.Exists() {
		return nil, nil
	}

	iter, err := cmpVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []CompareDef
	for iter.Next() {
		cv := iter.Value()
		def := CompareDef{}
		if def.A, err = reqString(cv, "a"); err != nil {
			return nil, err
		}
		if def.B, err = reqString(cv, "b"); err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}

func parseInvariance(v cue.Value) ([]InvarianceDef, error) {
	invVal := v.LookupPath(cue.ParsePath("invariance"))
	if !invVal.Exists() {
		return nil, nil
	}

	iter, err := invVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []InvarianceDef
	for iter.Next() {
		iv := iter.Value()
		def := InvarianceDef{}
		if def.Model, err = reqString(iv, "model"); err != nil {
			return nil, err
		}
		if def.Group, err = reqString(iv, "group"); err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}

func optString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func reqString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &DocumentError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &DocumentError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
