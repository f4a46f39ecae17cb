package engine

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// FitIndices summarizes global model fit.
type FitIndices struct {
	ChiSquare float64 `json:"chisq"`
	DF        int     `json:"df"`
	PValue    float64 `json:"pvalue"`

	BaselineChiSquare float64 `json:"baseline_chisq"`
	BaselineDF        int     `json:"baseline_df"`

	CFI   float64 `json:"cfi"`
	TLI   float64 `json:"tli"`
	RMSEA float64 `json:"rmsea"`
	SRMR  float64 `json:"srmr"`

	N int `json:"n"`
}

// chiSquareSurvival returns P(X >= x) for a chi-square variable with
// df degrees of freedom.
func chiSquareSurvival(x float64, df int) float64 {
	if df <= 0 {
		return 1
	}
	if x <= 0 {
		return 1
	}
	return distuv.ChiSquared{K: float64(df)}.Survival(x)
}

// computeIndices converts a discrepancy into the standard index set.
// The baseline (independence) chi-square has the closed form
// N * (log|diag S| - log|S|) per group, weighted like the target model.
func computeIndices(p *Problem, sol *Solution) (FitIndices, error) {
	var totalN float64
	var baseF float64
	for _, g := range p.Groups {
		f, err := baselineDiscrepancy(g, p.Model.Name())
		if err != nil {
			return FitIndices{}, err
		}
		w := float64(g.N)
		baseF += w * f
		totalN += w
	}
	baseF /= totalN

	idx := FitIndices{
		DF:         p.DF,
		BaselineDF: p.BaselineDF,
		N:          int(totalN),
		SRMR:       sol.SRMR,
	}
	idx.ChiSquare = totalN * sol.Discrepancy
	idx.BaselineChiSquare = totalN * baseF
	idx.PValue = chiSquareSurvival(idx.ChiSquare, idx.DF)

	// Incremental indices.
	dT := math.Max(idx.ChiSquare-float64(idx.DF), 0)
	dB := math.Max(idx.BaselineChiSquare-float64(idx.BaselineDF), 0)
	if dB > 0 {
		idx.CFI = 1 - dT/math.Max(dT, dB)
	} else {
		idx.CFI = 1
	}
	if idx.DF > 0 && idx.BaselineDF > 0 {
		rB := idx.BaselineChiSquare / float64(idx.BaselineDF)
		rT := idx.ChiSquare / float64(idx.DF)
		if rB > 1 {
			idx.TLI = (rB - rT) / (rB - 1)
		} else {
			idx.TLI = 1
		}
	} else {
		idx.TLI = 1
	}
	if idx.DF > 0 {
		idx.RMSEA = math.Sqrt(math.Max(idx.ChiSquare-float64(idx.DF), 0) / (float64(idx.DF) * totalN))
	}
	return idx, nil
}

// baselineDiscrepancy evaluates the independence-model discrepancy for
// one group.
func baselineDiscrepancy(g Moments, model string) (float64, error) {
	nv := len(g.Vars)
	var cholS mat.Cholesky
	if !cholS.Factorize(g.Cov) {
		return 0, NewConvergenceError(model, "sample covariance singular", nil)
	}
	logDiag := 0.0
	for i := 0; i < nv; i++ {
		v := g.Cov.At(i, i)
		if v <= 0 {
			return 0, NewConvergenceError(model, "zero-variance variable in sample", nil)
		}
		logDiag += math.Log(v)
	}
	f := logDiag - cholS.LogDet()
	if f < 0 {
		f = 0
	}
	return f, nil
}
