package engine

import (
	"fmt"

	"github.com/calder-stats/semfit/internal/spec"
)

// Constraint names a cross-group equality constraint.
type Constraint string

const (
	// ConstrainLoadings holds factor loadings equal across groups
	// (weak/metric invariance).
	ConstrainLoadings Constraint = "loadings"

	// ConstrainIntercepts holds indicator intercepts equal across groups
	// (strong/scalar invariance, on top of equal loadings).
	ConstrainIntercepts Constraint = "intercepts"
)

// ParamKind identifies a parameter-table row kind, in lavaan operator
// notation. Variances appear as covariances of a variable with itself.
type ParamKind string

const (
	ParamLoading    ParamKind = "=~"
	ParamRegression ParamKind = "~"
	ParamCovariance ParamKind = "~~"
	ParamIntercept  ParamKind = "~1"
)

// Parameter is one row of the parameter table.
type Parameter struct {
	// Label identifies the underlying estimate. Parameters constrained
	// equal across groups share a label; group-specific parameters carry
	// a group suffix.
	Label string `json:"label"`

	Kind  ParamKind `json:"kind"`
	Lhs   string    `json:"lhs"`
	Rhs   string    `json:"rhs,omitempty"`
	Group string    `json:"group,omitempty"`

	// Free reports whether the parameter is estimated. Fixed parameters
	// (anchor loadings) carry their fixed value in Estimate.
	Free bool `json:"free"`

	Estimate float64 `json:"estimate"`
	StdErr   float64 `json:"std_err,omitempty"`
	Std      float64 `json:"std,omitempty"`
}

// Problem is everything the Optimizer needs: per-group sample moments
// plus the free-parameter layout derived from the model structure.
type Problem struct {
	Model         spec.Model
	Latents       []string
	Vars          []string
	Groups        []Moments
	Params        []Parameter
	MeanStructure bool
	FreeCount     int
	DF            int
	BaselineDF    int
}

// paramLabel builds the estimate label for a parameter-table row.
// Shared (constrained) parameters omit the group suffix so every group
// maps onto the same estimate.
func paramLabel(kind ParamKind, lhs, rhs, group string, shared bool) string {
	label := lhs + string(kind) + rhs
	if group != "" && !shared {
		label += "|" + group
	}
	return label
}

// buildProblem derives the parameter layout and degrees of freedom.
//
// CFA defaults follow the conventional marker-variable scaling: the
// first indicator of each latent is fixed to 1, latent variances and
// all pairwise latent covariances are free, every observed variable
// gets a free residual variance, and the mean structure (indicator
// intercepts, latent means fixed at 0) enters only for multigroup fits.
func buildProblem(m spec.Model, groups []Moments, constraints []Constraint) (*Problem, error) {
	multigroup := len(groups) > 1 || (len(groups) == 1 && groups[0].Group != "")

	shared := map[Constraint]bool{}
	for _, c := range constraints {
		switch c {
		case ConstrainLoadings, ConstrainIntercepts:
			shared[c] = true
		default:
			return nil, &FitError{Code: ErrCodeSpecification, Model: m.Name(),
				Message: fmt.Sprintf("unknown constraint %q", c)}
		}
	}
	if len(shared) > 0 && !multigroup {
		return nil, &FitError{Code: ErrCodeSpecification, Model: m.Name(),
			Message: "equality constraints require a grouping variable"}
	}

	p := &Problem{
		Model:         m,
		Latents:       m.LatentVars(),
		Vars:          m.ObservedVars(),
		Groups:        groups,
		MeanStructure: multigroup,
	}

	for _, g := range groups {
		gname := g.Group

		// Loadings: anchor fixed to 1 per latent, the rest free.
		for _, latent := range p.Latents {
			for i, ind := range m.IndicatorsOf(latent) {
				param := Parameter{
					Kind:  ParamLoading,
					Lhs:   latent,
					Rhs:   ind,
					Group: gname,
				}
				if i == 0 {
					param.Label = paramLabel(ParamLoading, latent, ind, gname, false)
					param.Estimate = 1
				} else {
					param.Free = true
					param.Label = paramLabel(ParamLoading, latent, ind, gname, shared[ConstrainLoadings])
				}
				p.Params = append(p.Params, param)
			}
		}

		// Regressions.
		for _, r := range m.Relations() {
			if r.Kind != spec.Regression {
				continue
			}
			for _, src := range r.Sources {
				p.Params = append(p.Params, Parameter{
					Label: paramLabel(ParamRegression, r.Target, src, gname, false),
					Kind:  ParamRegression,
					Lhs:   r.Target,
					Rhs:   src,
					Group: gname,
					Free:  true,
				})
			}
		}

		// Covariances declared in the model.
		for _, r := range m.Relations() {
			if r.Kind != spec.Covariance {
				continue
			}
			for _, src := range r.Sources {
				lhs, rhs := orderPair(r.Target, src)
				p.Params = append(p.Params, Parameter{
					Label: paramLabel(ParamCovariance, lhs, rhs, gname, false),
					Kind:  ParamCovariance,
					Lhs:   lhs,
					Rhs:   rhs,
					Group: gname,
					Free:  true,
				})
			}
		}

		// Latent variances and pairwise latent covariances.
		for i, a := range p.Latents {
			p.Params = append(p.Params, Parameter{
				Label: paramLabel(ParamCovariance, a, a, gname, false),
				Kind:  ParamCovariance,
				Lhs:   a,
				Rhs:   a,
				Group: gname,
				Free:  true,
			})
			for _, b := range p.Latents[i+1:] {
				lhs, rhs := orderPair(a, b)
				p.Params = append(p.Params, Parameter{
					Label: paramLabel(ParamCovariance, lhs, rhs, gname, false),
					Kind:  ParamCovariance,
					Lhs:   lhs,
					Rhs:   rhs,
					Group: gname,
					Free:  true,
				})
			}
		}

		// Residual variances.
		for _, v := range p.Vars {
			p.Params = append(p.Params, Parameter{
				Label: paramLabel(ParamCovariance, v, v, gname, false),
				Kind:  ParamCovariance,
				Lhs:   v,
				Rhs:   v,
				Group: gname,
				Free:  true,
			})
		}

		// Indicator intercepts (multigroup only; latent means fixed 0).
		if p.MeanStructure {
			for _, v := range p.Vars {
				p.Params = append(p.Params, Parameter{
					Label: paramLabel(ParamIntercept, v, "", gname, shared[ConstrainIntercepts]),
					Kind:  ParamIntercept,
					Lhs:   v,
					Group: gname,
					Free:  true,
				})
			}
		}
	}

	// Distinct free labels: cross-group equalities collapse here.
	labels := map[string]bool{}
	for _, param := range p.Params {
		if param.Free {
			labels[param.Label] = true
		}
	}
	p.FreeCount = len(labels)

	nv := len(p.Vars)
	moments := 0
	for range groups {
		moments += nv * (nv + 1) / 2
		if p.MeanStructure {
			moments += nv
		}
	}
	p.DF = moments - p.FreeCount
	if p.DF < 0 {
		return nil, &FitError{Code: ErrCodeSpecification, Model: m.Name(),
			Message: fmt.Sprintf("model is not identified: %d free parameters for %d sample moments", p.FreeCount, moments)}
	}
	p.BaselineDF = len(groups) * nv * (nv - 1) / 2

	return p, nil
}

// orderPair normalizes a symmetric pair lexicographically.
func orderPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
