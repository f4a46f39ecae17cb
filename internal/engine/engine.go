package engine

import (
	"math"
	"sort"

	"github.com/calder-stats/semfit/internal/dataset"
	"github.com/calder-stats/semfit/internal/parser"
	"github.com/calder-stats/semfit/internal/spec"
)

// FitOptions configures a single fit.
type FitOptions struct {
	// Group names the grouping variable for a multigroup fit; empty for
	// a pooled single-group fit.
	Group string `json:"group,omitempty"`

	// Constraints lists cross-group equality constraints.
	Constraints []Constraint `json:"constraints,omitempty"`

	// Optimizer overrides the estimator; nil selects AnchorOptimizer.
	Optimizer Optimizer `json:"-"`
}

func (o FitOptions) optimizer() Optimizer {
	if o.Optimizer != nil {
		return o.Optimizer
	}
	return AnchorOptimizer{}
}

func (o FitOptions) hasConstraint(c Constraint) bool {
	for _, got := range o.Constraints {
		if got == c {
			return true
		}
	}
	return false
}

// GroupStats records one group's size in a fitted model.
type GroupStats struct {
	Name string `json:"name"`
	N    int    `json:"n"`
}

// FittedModel is the read-only result of applying a model
// specification to a dataset. It is created by Fit and only consumed
// afterwards, by the reporter and by comparison routines.
type FittedModel struct {
	Model    spec.Model
	SpecHash string     `json:"spec_hash"`
	DataSig  string     `json:"data_sig"`
	Options  FitOptions `json:"options"`

	Groups     []GroupStats `json:"groups"`
	Indices    FitIndices   `json:"indices"`
	Parameters []Parameter  `json:"parameters"`
	ModIndices []Score      `json:"mod_indices"`

	EngineVersion string `json:"engine_version"`
	Optimizer     string `json:"optimizer"`
}

// LoadingCount returns the number of loading rows in the parameter
// table of the first group (the model's structural loading count,
// independent of the number of groups).
func (fm *FittedModel) LoadingCount() int {
	count := 0
	group := ""
	if len(fm.Groups) > 0 {
		group = fm.Groups[0].Name
	}
	for _, p := range fm.Parameters {
		if p.Kind == ParamLoading && p.Group == group {
			count++
		}
	}
	return count
}

// Fit applies a model specification to a dataset.
//
// Validation runs before estimation: a model variable missing from the
// dataset fails with COLUMN_NOT_FOUND, other structural problems with
// SPECIFICATION, and optimizer failures with NOT_CONVERGED.
func Fit(m spec.Model, d *dataset.Dataset, opts FitOptions) (*FittedModel, error) {
	if verrs := parser.ValidateAgainst(m, d.Columns()); len(verrs) > 0 {
		return nil, specificationError(m, verrs)
	}

	groups, stats, err := groupMoments(m, d, opts.Group)
	if err != nil {
		return nil, err
	}

	problem, err := buildProblem(m, groups, opts.Constraints)
	if err != nil {
		return nil, err
	}

	opt := opts.optimizer()
	sol, err := opt.Estimate(problem)
	if err != nil {
		if IsConvergenceError(err) || IsSpecificationError(err) {
			return nil, err
		}
		return nil, NewConvergenceError(m.Name(), "optimizer failed", err)
	}

	indices, err := computeIndices(problem, sol)
	if err != nil {
		return nil, err
	}

	fm := &FittedModel{
		Model:         m,
		SpecHash:      m.Hash(),
		DataSig:       d.Signature(),
		Options:       opts,
		Groups:        stats,
		Indices:       indices,
		ModIndices:    append([]Score(nil), sol.Scores...),
		EngineVersion: spec.EngineVersion,
		Optimizer:     opt.Name(),
	}
	fm.Parameters = assembleParameters(problem, sol)
	return fm, nil
}

// specificationError maps validation errors onto the fit taxonomy:
// unknown variables surface as COLUMN_NOT_FOUND, everything else as
// SPECIFICATION.
func specificationError(m spec.Model, verrs []parser.ValidationError) *FitError {
	code := ErrCodeSpecification
	details := make(map[string]string, len(verrs))
	for _, v := range verrs {
		details[v.Field] = "[" + v.Code + "] " + v.Message
		if v.Code == parser.ErrUnknownVariable {
			code = ErrCodeColumnNotFound
		}
	}
	return &FitError{
		Code:    code,
		Model:   m.Name(),
		Message: verrs[0].Message,
		Details: details,
	}
}

// groupMoments computes per-group sample moments, partitioning by the
// grouping variable when one is named.
func groupMoments(m spec.Model, d *dataset.Dataset, group string) ([]Moments, []GroupStats, error) {
	vars := m.ObservedVars()

	if group == "" {
		mom, err := computeMoments("", d, vars)
		if err != nil {
			return nil, nil, err
		}
		return []Moments{mom}, []GroupStats{{Name: "", N: mom.N}}, nil
	}

	part, err := d.Partition(group)
	if err != nil {
		if dataset.IsColumnNotFound(err) {
			return nil, nil, &FitError{Code: ErrCodeColumnNotFound, Model: m.Name(),
				Message: "grouping variable " + group + " is not a column of the dataset", Err: err}
		}
		return nil, nil, err
	}
	if len(part.Order) < 2 {
		return nil, nil, &FitError{Code: ErrCodeSpecification, Model: m.Name(),
			Message: "grouping variable " + group + " has fewer than two groups"}
	}

	var (
		moments []Moments
		stats   []GroupStats
	)
	for _, key := range part.Order {
		mom, err := computeMoments(key, part.Groups[key], vars)
		if err != nil {
			return nil, nil, err
		}
		moments = append(moments, mom)
		stats = append(stats, GroupStats{Name: key, N: mom.N})
	}
	return moments, stats, nil
}

// assembleParameters fills estimates into the layout and derives
// standardized loadings where the moments allow it.
func assembleParameters(p *Problem, sol *Solution) []Parameter {
	momentsByGroup := map[string]Moments{}
	for _, g := range p.Groups {
		momentsByGroup[g.Group] = g
	}
	psiLabel := func(latent, group string) string {
		return paramLabel(ParamCovariance, latent, latent, group, false)
	}

	out := make([]Parameter, len(p.Params))
	for i, param := range p.Params {
		if param.Free {
			param.Estimate = sol.Estimates[param.Label]
			if se, ok := sol.StdErrs[param.Label]; ok {
				param.StdErr = se
			} else {
				param.StdErr = math.NaN()
			}
		}
		param.Std = math.NaN()
		if param.Kind == ParamLoading {
			if g, ok := momentsByGroup[param.Group]; ok {
				vi := indexOf(g.Vars)
				psi := sol.Estimates[psiLabel(param.Lhs, param.Group)]
				sd := math.Sqrt(g.Cov.At(vi[param.Rhs], vi[param.Rhs]))
				if psi > 0 && sd > 0 {
					param.Std = param.Estimate * math.Sqrt(psi) / sd
				}
			}
		}
		out[i] = param
	}
	return out
}

// ModificationIndices returns candidate parameter additions ranked by
// expected chi-square improvement. With sortDescending the candidates
// come largest first; ties break on (lhs, rhs, group) so output is
// deterministic. A positive limit truncates the result.
func ModificationIndices(fm *FittedModel, sortDescending bool, limit int) []Score {
	out := append([]Score(nil), fm.ModIndices...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			if sortDescending {
				return out[i].Value > out[j].Value
			}
			return out[i].Value < out[j].Value
		}
		if out[i].Lhs != out[j].Lhs {
			return out[i].Lhs < out[j].Lhs
		}
		if out[i].Rhs != out[j].Rhs {
			return out[i].Rhs < out[j].Rhs
		}
		return out[i].Group < out[j].Group
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
