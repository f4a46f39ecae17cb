package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/calder-stats/semfit/internal/dataset"
	"github.com/calder-stats/semfit/internal/engine"
	"github.com/calder-stats/semfit/internal/parser"
	"github.com/calder-stats/semfit/internal/report"
	"github.com/calder-stats/semfit/internal/spec"
	"github.com/calder-stats/semfit/internal/store"
)

// Runner executes analysis documents. The zero value runs fits with the
// default optimizer, resolves paths against the working directory and
// persists nothing.
type Runner struct {
	// Dir resolves relative paths in the document.
	Dir string

	// Store, when set, persists specs, fits and comparisons.
	Store *store.Store

	// Optimizer overrides the fit engine's default estimator.
	Optimizer engine.Optimizer
}

// FitResult pairs a fit request with its outcome.
type FitResult struct {
	Def FitDef
	Fit *engine.FittedModel
}

// CompareResult pairs a comparison request with its outcome.
type CompareResult struct {
	Def CompareDef
	Cmp *engine.Comparison
}

// LadderResult pairs an invariance request with its outcome.
type LadderResult struct {
	Def    InvarianceDef
	Ladder *engine.Ladder
}

// Result is everything a document run produced.
type Result struct {
	Dataset     *dataset.Dataset
	Models      map[string]spec.Model
	ModelOrder  []string
	Fits        []FitResult
	Comparisons []CompareResult
	Ladders     []LadderResult
	RunID       string
}

// Run executes the document stage by stage: data, transforms, models,
// fits, comparisons, invariance, persistence, report. The first failing
// stage aborts the run; completed results stay valid.
func (r *Runner) Run(ctx context.Context, doc *Document) (*Result, error) {
	d, err := r.loadData(doc)
	if err != nil {
		return nil, err
	}

	res := &Result{Dataset: d, Models: map[string]spec.Model{}}

	if err := r.buildModels(doc, res); err != nil {
		return nil, err
	}
	if err := r.runFits(doc, d, res); err != nil {
		return nil, err
	}
	if err := r.runComparisons(doc, res); err != nil {
		return nil, err
	}
	if err := r.runInvariance(doc, d, res); err != nil {
		return nil, err
	}
	if err := r.persist(ctx, d, res); err != nil {
		return nil, err
	}
	if doc.Report != nil {
		if err := r.writeReport(doc, d, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r *Runner) path(p string) string {
	if filepath.IsAbs(p) || r.Dir == "" {
		return p
	}
	return filepath.Join(r.Dir, p)
}

func (r *Runner) loadData(doc *Document) (*dataset.Dataset, error) {
	opts := dataset.Options{UseLabels: doc.Data.UseLabels}
	if doc.Data.Delimiter != "" {
		opts.Delimiter = rune(doc.Data.Delimiter[0])
	}
	if doc.Data.Codebook != "" {
		cb, err := dataset.LoadCodebook(r.path(doc.Data.Codebook))
		if err != nil {
			return nil, err
		}
		opts.Codebook = cb
	}

	d, err := dataset.LoadCSV(r.path(doc.Data.CSV), opts)
	if err != nil {
		return nil, err
	}

	if len(doc.Rename) > 0 {
		if d, err = d.Rename(doc.Rename); err != nil {
			return nil, err
		}
	}
	if doc.Filter != "" {
		pred, err := dataset.ParsePredicate(doc.Filter)
		if err != nil {
			return nil, err
		}
		if d, err = d.Filter(pred); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (r *Runner) buildModels(doc *Document, res *Result) error {
	for _, def := range doc.Models {
		m, err := buildModel(def, res.Models)
		if err != nil {
			return fmt.Errorf("model %s: %w", def.Name, err)
		}
		res.Models[def.Name] = m
		res.ModelOrder = append(res.ModelOrder, def.Name)
	}
	return nil
}

func buildModel(def ModelDef, known map[string]spec.Model) (spec.Model, error) {
	if def.Extends == "" {
		return parser.Parse(def.Name, def.Text)
	}
	extra, err := parser.Parse(def.Name, def.Add)
	if err != nil {
		return spec.Model{}, err
	}
	return spec.Extend(known[def.Extends], def.Name, extra.Relations()...)
}

func (r *Runner) runFits(doc *Document, d *dataset.Dataset, res *Result) error {
	for _, def := range doc.Fits {
		m, ok := res.Models[def.Model]
		if !ok {
			return fmt.Errorf("fit: unknown model %q", def.Model)
		}
		opts := engine.FitOptions{Group: def.Group, Optimizer: r.Optimizer}
		for _, c := range def.Constraints {
			opts.Constraints = append(opts.Constraints, engine.Constraint(c))
		}
		fm, err := engine.Fit(m, d, opts)
		if err != nil {
			return err
		}
		res.Fits = append(res.Fits, FitResult{Def: def, Fit: fm})
	}
	return nil
}

// fitFor finds an existing pooled fit of a model, fitting one on demand
// when a comparison references a model the fits list skipped.
func (r *Runner) fitFor(name string, d *dataset.Dataset, res *Result) (*engine.FittedModel, error) {
	for _, fr := range res.Fits {
		if fr.Def.Model == name && fr.Def.Group == "" && len(fr.Def.Constraints) == 0 {
			return fr.Fit, nil
		}
	}
	m, ok := res.Models[name]
	if !ok {
		return nil, fmt.Errorf("compare: unknown model %q", name)
	}
	fm, err := engine.Fit(m, res.Dataset, engine.FitOptions{Optimizer: r.Optimizer})
	if err != nil {
		return nil, err
	}
	res.Fits = append(res.Fits, FitResult{Def: FitDef{Model: name}, Fit: fm})
	return fm, nil
}

func (r *Runner) runComparisons(doc *Document, res *Result) error {
	for _, def := range doc.Comparisons {
		fa, err := r.fitFor(def.A, res.Dataset, res)
		if err != nil {
			return err
		}
		fb, err := r.fitFor(def.B, res.Dataset, res)
		if err != nil {
			return err
		}
		cmp, err := engine.Compare(fa, fb)
		if err != nil {
			return err
		}
		res.Comparisons = append(res.Comparisons, CompareResult{Def: def, Cmp: cmp})
	}
	return nil
}

func (r *Runner) runInvariance(doc *Document, d *dataset.Dataset, res *Result) error {
	for _, def := range doc.Invariance {
		m, ok := res.Models[def.Model]
		if !ok {
			return fmt.Errorf("invariance: unknown model %q", def.Model)
		}
		ladder, err := engine.Invariance(m, d, def.Group, engine.FitOptions{Optimizer: r.Optimizer})
		if err != nil {
			return err
		}
		res.Ladders = append(res.Ladders, LadderResult{Def: def, Ladder: ladder})
	}
	return nil
}

func (r *Runner) persist(ctx context.Context, d *dataset.Dataset, res *Result) error {
	if r.Store == nil {
		return nil
	}

	run, err := r.Store.BeginRun(ctx, d.Signature())
	if err != nil {
		return err
	}
	res.RunID = run.ID

	for _, name := range res.ModelOrder {
		if _, err := r.Store.WriteSpec(ctx, res.Models[name]); err != nil {
			return err
		}
	}
	for _, fr := range res.Fits {
		if _, _, err := r.Store.WriteFit(ctx, run.ID, fr.Fit); err != nil {
			return err
		}
	}
	for _, cr := range res.Comparisons {
		restricted := res.Models[cr.Cmp.Restricted]
		full := res.Models[cr.Cmp.Full]
		if err := r.Store.WriteComparison(ctx, run.ID, restricted.Hash(), full.Hash(), "", cr.Cmp); err != nil {
			return err
		}
	}
	for _, lr := range res.Ladders {
		for i, fr := range lr.Ladder.Steps {
			if _, _, err := r.Store.WriteFit(ctx, run.ID, fr.Fit); err != nil {
				return err
			}
			if i > 0 {
				hash := fr.Fit.SpecHash
				if err := r.Store.WriteComparison(ctx, run.ID, hash, hash, string(fr.Step), lr.Ladder.Comparisons[i-1]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (r *Runner) writeReport(doc *Document, d *dataset.Dataset, res *Result) error {
	title := doc.Report.Title
	if title == "" {
		title = doc.Title
	}
	if title == "" {
		title = "semfit report"
	}

	rep := report.NewDocument(title, d.Signature())
	for _, fr := range res.Fits {
		rep.AddFit(fr.Fit, doc.MILimit)
	}
	for _, cr := range res.Comparisons {
		rep.AddComparison(cr.Cmp)
	}
	for _, lr := range res.Ladders {
		rep.AddLadder(lr.Ladder)
	}

	f, err := os.Create(r.path(doc.Report.HTML))
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := rep.RenderHTML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
