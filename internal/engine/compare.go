package engine

import (
	"fmt"
	"math"
)

// Comparison is the result of a likelihood-ratio test between two
// nested fitted models.
type Comparison struct {
	// Restricted and Full name the constrained and unconstrained model.
	Restricted string `json:"restricted"`
	Full       string `json:"full"`

	ChiSquareDiff float64 `json:"chisq_diff"`
	DFDiff        int     `json:"df_diff"`
	PValue        float64 `json:"pvalue"`
}

// Compare runs a likelihood-ratio test between two fitted models.
//
// The comparison is valid only when one model's specification strictly
// nests within the other's and both were fit against the same data
// with the same grouping; anything else fails with COMPARISON. The
// nesting check is structural, not textual: relation order, line
// splitting, and model names are irrelevant.
func Compare(a, b *FittedModel) (*Comparison, error) {
	if a.DataSig != b.DataSig {
		return nil, NewComparisonError("models were fit against different datasets", map[string]string{
			"a": a.Model.Name(), "b": b.Model.Name(),
		})
	}
	if a.Options.Group != b.Options.Group {
		return nil, NewComparisonError("models were fit with different grouping variables", map[string]string{
			"a": a.Options.Group, "b": b.Options.Group,
		})
	}

	var restricted, full *FittedModel
	switch {
	case a.Model.NestsStrictly(b.Model):
		restricted, full = a, b
	case b.Model.NestsStrictly(a.Model):
		restricted, full = b, a
	default:
		return nil, NewComparisonError(
			fmt.Sprintf("model %q does not nest within model %q", a.Model.Name(), b.Model.Name()),
			map[string]string{"a": a.SpecHash, "b": b.SpecHash})
	}

	return lrt(restricted, full)
}

// lrt computes the likelihood-ratio statistic between a restricted and
// a full fitted model. The restricted model must carry more degrees of
// freedom.
func lrt(restricted, full *FittedModel) (*Comparison, error) {
	dfDiff := restricted.Indices.DF - full.Indices.DF
	if dfDiff <= 0 {
		return nil, NewComparisonError(
			fmt.Sprintf("restricted model %q frees no fewer parameters than %q",
				restricted.Model.Name(), full.Model.Name()),
			map[string]string{
				"restricted_df": fmt.Sprintf("%d", restricted.Indices.DF),
				"full_df":       fmt.Sprintf("%d", full.Indices.DF),
			})
	}

	diff := restricted.Indices.ChiSquare - full.Indices.ChiSquare
	return &Comparison{
		Restricted:    restricted.Model.Name(),
		Full:          full.Model.Name(),
		ChiSquareDiff: diff,
		DFDiff:        dfDiff,
		PValue:        chiSquareSurvival(math.Max(diff, 0), dfDiff),
	}, nil
}
