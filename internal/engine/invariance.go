package engine

import (
	"fmt"

	"github.com/calder-stats/semfit/internal/dataset"
	"github.com/calder-stats/semfit/internal/spec"
)

// Step names one rung of the measurement-invariance ladder.
type Step string

const (
	// StepConfigural fits the same structure in every group with all
	// parameters free.
	StepConfigural Step = "configural"

	// StepMetric adds cross-group equality of loadings.
	StepMetric Step = "metric"

	// StepScalar adds cross-group equality of intercepts on top of
	// metric.
	StepScalar Step = "scalar"
)

// ladder is the only admissible step order. Each rung constrains
// strictly more than the one before it, so the likelihood-ratio tests
// between adjacent rungs are well defined.
var ladder = []Step{StepConfigural, StepMetric, StepScalar}

// stepConstraints returns the equality constraints a rung imposes.
func stepConstraints(s Step) []Constraint {
	switch s {
	case StepConfigural:
		return nil
	case StepMetric:
		return []Constraint{ConstrainLoadings}
	case StepScalar:
		return []Constraint{ConstrainLoadings, ConstrainIntercepts}
	}
	return nil
}

// stepOf derives the ladder rung a fitted model sits on from its
// constraints, or fails when the constraint set matches no rung.
func stepOf(fm *FittedModel) (Step, error) {
	loadings := fm.Options.hasConstraint(ConstrainLoadings)
	intercepts := fm.Options.hasConstraint(ConstrainIntercepts)
	switch {
	case !loadings && !intercepts:
		return StepConfigural, nil
	case loadings && !intercepts:
		return StepMetric, nil
	case loadings && intercepts:
		return StepScalar, nil
	}
	return "", &FitError{
		Code:    ErrCodeOrderViolation,
		Model:   fm.Model.Name(),
		Message: "intercepts constrained without loadings matches no invariance step",
	}
}

// LadderStep is one fitted rung of an invariance ladder.
type LadderStep struct {
	Step Step         `json:"step"`
	Fit  *FittedModel `json:"fit"`
}

// Ladder is a full measurement-invariance test: the three rungs fit in
// order plus the likelihood-ratio tests between adjacent rungs.
type Ladder struct {
	Group       string        `json:"group"`
	Steps       []LadderStep  `json:"steps"`
	Comparisons []*Comparison `json:"comparisons"`
}

// Invariance runs the whole measurement-invariance ladder for a model
// over the named grouping variable: configural, then metric, then
// scalar, each compared against the rung before it. The order is fixed;
// to test individual transitions use CompareInvariance.
func Invariance(m spec.Model, d *dataset.Dataset, group string, opts FitOptions) (*Ladder, error) {
	if group == "" {
		return nil, &FitError{
			Code:    ErrCodeSpecification,
			Model:   m.Name(),
			Message: "invariance testing requires a grouping variable",
		}
	}

	out := &Ladder{Group: group}
	var prev *FittedModel
	for _, step := range ladder {
		stepOpts := opts
		stepOpts.Group = group
		stepOpts.Constraints = stepConstraints(step)

		fm, err := Fit(m, d, stepOpts)
		if err != nil {
			return nil, fmt.Errorf("fitting %s model: %w", step, err)
		}
		out.Steps = append(out.Steps, LadderStep{Step: step, Fit: fm})

		if prev != nil {
			cmp, err := lrt(fm, prev)
			if err != nil {
				return nil, err
			}
			out.Comparisons = append(out.Comparisons, cmp)
		}
		prev = fm
	}
	return out, nil
}

// CompareInvariance tests one transition of the invariance ladder. The
// two fits must sit on adjacent rungs in ladder order; skipping a rung
// or walking the ladder backwards fails with ORDER_VIOLATION.
func CompareInvariance(prev, next *FittedModel) (*Comparison, error) {
	prevStep, err := stepOf(prev)
	if err != nil {
		return nil, err
	}
	nextStep, err := stepOf(next)
	if err != nil {
		return nil, err
	}

	if stepIndex(nextStep) != stepIndex(prevStep)+1 {
		return nil, &FitError{
			Code:  ErrCodeOrderViolation,
			Model: next.Model.Name(),
			Message: fmt.Sprintf("invariance steps must advance one rung at a time, got %s then %s",
				prevStep, nextStep),
			Details: map[string]string{"prev": string(prevStep), "next": string(nextStep)},
		}
	}
	if prev.DataSig != next.DataSig {
		return nil, NewComparisonError("invariance steps were fit against different datasets", nil)
	}
	if prev.Options.Group != next.Options.Group {
		return nil, NewComparisonError("invariance steps were fit with different grouping variables", nil)
	}
	if prev.SpecHash != next.SpecHash {
		return nil, NewComparisonError("invariance steps must fit the same model specification", map[string]string{
			"prev": prev.SpecHash, "next": next.SpecHash,
		})
	}

	return lrt(next, prev)
}

func stepIndex(s Step) int {
	for i, got := range ladder {
		if got == s {
			return i
		}
	}
	return -1
}
