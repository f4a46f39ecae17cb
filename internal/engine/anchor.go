package engine

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/calder-stats/semfit/internal/spec"
)

// AnchorOptimizer produces closed-form anchor-indicator estimates: the
// classic start-value construction for covariance-structure models.
//
// Loadings come from covariance ratios against each factor's marker
// indicator, factor variances from indicator triads, and factor
// covariances from the marker indicators directly. No iteration takes
// place and no standard errors are produced; a full maximum-likelihood
// optimizer plugs in behind the Optimizer interface when exact indices
// are required.
type AnchorOptimizer struct{}

// NewAnchorOptimizer returns the built-in closed-form optimizer.
func NewAnchorOptimizer() AnchorOptimizer { return AnchorOptimizer{} }

// Name implements Optimizer.
func (AnchorOptimizer) Name() string { return "anchor" }

// minRelativeResidual keeps residual variances away from zero so the
// implied covariance matrix stays positive definite.
const minRelativeResidual = 0.05

// covarianceShrink and maxShrinkAttempts govern the repair of an
// indefinite implied matrix: free off-diagonal covariance estimates
// are pulled toward zero until a Cholesky factorization succeeds.
const (
	covarianceShrink  = 0.8
	maxShrinkAttempts = 48
)

// Estimate implements Optimizer.
func (o AnchorOptimizer) Estimate(p *Problem) (*Solution, error) {
	model := p.Model.Name()

	// Pass 1: raw per-group values, N-weighted into shared labels.
	acc := map[string]float64{}
	wsum := map[string]float64{}
	for gi := range p.Groups {
		values, err := o.groupValues(p, gi)
		if err != nil {
			return nil, err
		}
		w := float64(p.Groups[gi].N)
		for label, v := range values {
			acc[label] += w * v
			wsum[label] += w
		}
	}
	estimates := make(map[string]float64, len(acc))
	for label, sum := range acc {
		estimates[label] = sum / wsum[label]
	}
	for _, param := range p.Params {
		if param.Free {
			if _, ok := estimates[param.Label]; !ok {
				return nil, NewConvergenceError(model,
					fmt.Sprintf("no estimate produced for parameter %s", param.Label), nil)
			}
		}
	}

	// Pass 2: implied moments, discrepancy, residual diagnostics.
	sol := &Solution{Estimates: estimates}
	var totalN, srmrAcc float64
	for gi, g := range p.Groups {
		if err := o.shrinkToPositiveDefinite(p, gi, estimates); err != nil {
			return nil, err
		}
		implied, impliedMean, err := o.implied(p, gi, estimates)
		if err != nil {
			return nil, err
		}
		f, err := discrepancy(g, implied, impliedMean, p.MeanStructure, model)
		if err != nil {
			return nil, err
		}
		w := float64(g.N)
		totalN += w
		sol.Discrepancy += w * f

		srmr, scores := residualDiagnostics(p, g, implied)
		srmrAcc += w * srmr
		sol.Scores = append(sol.Scores, scores...)
	}
	sol.Discrepancy /= totalN
	sol.SRMR = srmrAcc / totalN
	return sol, nil
}

// groupValues computes raw closed-form values for one group's
// parameters, keyed by label.
func (o AnchorOptimizer) groupValues(p *Problem, gi int) (map[string]float64, error) {
	g := p.Groups[gi]
	model := p.Model.Name()
	vi := indexOf(g.Vars)

	cov := func(a, b string) float64 { return g.Cov.At(vi[a], vi[b]) }

	// proxy maps a variable to an observed stand-in: latents proxy
	// through their marker indicator.
	anchor := map[string]string{}
	for _, latent := range p.Latents {
		anchor[latent] = p.Model.IndicatorsOf(latent)[0]
	}
	proxy := func(v string) string {
		if a, ok := anchor[v]; ok {
			return a
		}
		return v
	}

	// Factor variances via the indicator triad, falling back to the
	// marker covariance for 2-indicator factors and half the marker
	// variance for single indicators.
	psi := map[string]float64{}
	for _, latent := range p.Latents {
		inds := p.Model.IndicatorsOf(latent)
		a := inds[0]
		var v float64
		switch {
		case len(inds) >= 3 && cov(inds[1], inds[2]) != 0:
			v = cov(a, inds[1]) * cov(a, inds[2]) / cov(inds[1], inds[2])
		case len(inds) >= 2:
			v = cov(a, inds[1])
		default:
			v = cov(a, a) / 2
		}
		if v <= 0 || math.IsNaN(v) {
			v = cov(a, a) / 2
		}
		if v <= 0 {
			return nil, NewConvergenceError(model,
				fmt.Sprintf("degenerate moments for factor %s in group %q", latent, groupLabel(g.Group)), nil)
		}
		psi[latent] = v
	}

	values := map[string]float64{}
	loadingOf := map[[2]string]float64{} // (latent, indicator) → estimate

	for _, param := range p.Params {
		if param.Group != g.Group {
			continue
		}
		if !param.Free {
			if param.Kind == ParamLoading {
				loadingOf[[2]string{param.Lhs, param.Rhs}] = param.Estimate
			}
			continue
		}
		switch param.Kind {
		case ParamLoading:
			lambda := cov(param.Rhs, anchor[param.Lhs]) / psi[param.Lhs]
			loadingOf[[2]string{param.Lhs, param.Rhs}] = lambda
			values[param.Label] = lambda
		case ParamRegression:
			b, err := regressionCoefs(p.Model, g, vi, proxy, param.Lhs)
			if err != nil {
				return nil, err
			}
			values[param.Label] = b[param.Rhs]
		case ParamIntercept:
			values[param.Label] = g.Mean[vi[param.Lhs]]
		case ParamCovariance:
			values[param.Label] = covarianceValue(p, param, psi, loadingOf, cov, proxy)
		}
	}
	return values, nil
}

// covarianceValue estimates a variance or covariance row.
func covarianceValue(p *Problem, param Parameter, psi map[string]float64,
	loadingOf map[[2]string]float64, cov func(a, b string) float64, proxy func(string) string) float64 {

	latent := map[string]bool{}
	for _, l := range p.Latents {
		latent[l] = true
	}

	switch {
	case param.Lhs == param.Rhs && latent[param.Lhs]:
		return psi[param.Lhs]
	case param.Lhs == param.Rhs:
		// Residual variance: total variance minus the common part.
		common := 0.0
		for _, l := range p.Latents {
			if lambda, ok := loadingOf[[2]string{l, param.Lhs}]; ok {
				common += lambda * lambda * psi[l]
			}
		}
		total := cov(param.Lhs, param.Lhs)
		resid := total - common
		if min := minRelativeResidual * total; resid < min {
			resid = min
		}
		return resid
	default:
		return cov(proxy(param.Lhs), proxy(param.Rhs))
	}
}

// shrinkToPositiveDefinite pulls one group's free off-diagonal
// covariance estimates toward zero until the implied covariance matrix
// admits a Cholesky factorization. Marker covariances and triad
// variances are estimated independently; in small groups they can be
// mutually inconsistent and leave the assembled matrix indefinite even
// though every entry is sane on its own. With the off-diagonals at
// zero the matrix is a Gramian plus a positive diagonal, so the loop
// terminates on any input that passed the variance checks.
func (o AnchorOptimizer) shrinkToPositiveDefinite(p *Problem, gi int, estimates map[string]float64) error {
	g := p.Groups[gi]
	for attempt := 0; attempt < maxShrinkAttempts; attempt++ {
		sigma, _, err := o.implied(p, gi, estimates)
		if err != nil {
			return err
		}
		var chol mat.Cholesky
		if chol.Factorize(sigma) {
			return nil
		}

		shrunk := false
		for _, param := range p.Params {
			if param.Group != g.Group || !param.Free {
				continue
			}
			if param.Kind != ParamCovariance || param.Lhs == param.Rhs {
				continue
			}
			if estimates[param.Label] != 0 {
				estimates[param.Label] *= covarianceShrink
				shrunk = true
			}
		}
		if !shrunk {
			break
		}
	}
	return NewConvergenceError(p.Model.Name(),
		fmt.Sprintf("implied covariance not positive definite in group %q", groupLabel(g.Group)), nil)
}

// regressionCoefs solves the normal equations for one regression
// target over its predictors, proxying latents through their markers.
func regressionCoefs(m spec.Model, g Moments, vi map[string]int, proxy func(string) string, target string) (map[string]float64, error) {
	var sources []string
	for _, r := range m.Relations() {
		if r.Kind == spec.Regression && r.Target == target {
			sources = append(sources, r.Sources...)
		}
	}

	k := len(sources)
	sxx := mat.NewSymDense(k, nil)
	sxy := mat.NewVecDense(k, nil)
	for i, a := range sources {
		for j := i; j < k; j++ {
			sxx.SetSym(i, j, g.Cov.At(vi[proxy(a)], vi[proxy(sources[j])]))
		}
		sxy.SetVec(i, g.Cov.At(vi[proxy(a)], vi[proxy(target)]))
	}

	var chol mat.Cholesky
	if !chol.Factorize(sxx) {
		return nil, NewConvergenceError(m.Name(),
			fmt.Sprintf("collinear predictors for %s in group %q", target, groupLabel(g.Group)), nil)
	}
	var b mat.VecDense
	if err := chol.SolveVecTo(&b, sxy); err != nil {
		return nil, NewConvergenceError(m.Name(), "normal equations unsolvable", err)
	}

	out := make(map[string]float64, k)
	for i, s := range sources {
		out[s] = b.AtVec(i)
	}
	return out, nil
}

// implied builds the model-implied covariance matrix and mean vector
// for one group from the resolved estimates, using the reticular (RAM)
// form: Sigma = sel (I-A)^-1 S (I-A)^-T sel'.
func (o AnchorOptimizer) implied(p *Problem, gi int, estimates map[string]float64) (*mat.SymDense, []float64, error) {
	g := p.Groups[gi]
	nv := len(p.Vars)
	all := append(append([]string(nil), p.Vars...), p.Latents...)
	ai := indexOf(all)
	m := len(all)

	value := func(param Parameter) float64 {
		if !param.Free {
			return param.Estimate
		}
		return estimates[param.Label]
	}

	A := mat.NewDense(m, m, nil)
	S := mat.NewDense(m, m, nil)
	nu := make([]float64, m)
	for _, param := range p.Params {
		if param.Group != g.Group {
			continue
		}
		v := value(param)
		switch param.Kind {
		case ParamLoading:
			A.Set(ai[param.Rhs], ai[param.Lhs], v)
		case ParamRegression:
			A.Set(ai[param.Lhs], ai[param.Rhs], v)
		case ParamCovariance:
			S.Set(ai[param.Lhs], ai[param.Rhs], v)
			S.Set(ai[param.Rhs], ai[param.Lhs], v)
		case ParamIntercept:
			nu[ai[param.Lhs]] = v
		}
	}

	ia := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			v := -A.At(i, j)
			if i == j {
				v++
			}
			ia.Set(i, j, v)
		}
	}
	var inv mat.Dense
	if err := inv.Inverse(ia); err != nil {
		return nil, nil, NewConvergenceError(p.Model.Name(), "cyclic structural relations", err)
	}

	var tmp, full mat.Dense
	tmp.Mul(&inv, S)
	full.Mul(&tmp, inv.T())

	sigma := mat.NewSymDense(nv, nil)
	for i := 0; i < nv; i++ {
		for j := i; j < nv; j++ {
			sigma.SetSym(i, j, (full.At(i, j)+full.At(j, i))/2)
		}
	}

	var meanVec mat.VecDense
	meanVec.MulVec(&inv, mat.NewVecDense(m, nu))
	impliedMean := make([]float64, nv)
	for i := 0; i < nv; i++ {
		impliedMean[i] = meanVec.AtVec(i)
	}
	return sigma, impliedMean, nil
}

// discrepancy evaluates the normal-theory ML discrepancy for one group.
func discrepancy(g Moments, sigma *mat.SymDense, impliedMean []float64, meanStructure bool, model string) (float64, error) {
	nv := len(g.Vars)

	var cholSigma, cholS mat.Cholesky
	if !cholSigma.Factorize(sigma) {
		return 0, NewConvergenceError(model,
			fmt.Sprintf("implied covariance not positive definite in group %q", groupLabel(g.Group)), nil)
	}
	if !cholS.Factorize(g.Cov) {
		return 0, NewConvergenceError(model,
			fmt.Sprintf("sample covariance singular in group %q", groupLabel(g.Group)), nil)
	}

	var solved mat.Dense
	if err := cholSigma.SolveTo(&solved, g.Cov); err != nil {
		return 0, NewConvergenceError(model, "discrepancy evaluation failed", err)
	}
	f := cholSigma.LogDet() + mat.Trace(&solved) - cholS.LogDet() - float64(nv)

	if meanStructure {
		diff := mat.NewVecDense(nv, nil)
		for i := 0; i < nv; i++ {
			diff.SetVec(i, g.Mean[i]-impliedMean[i])
		}
		var x mat.VecDense
		if err := cholSigma.SolveVecTo(&x, diff); err != nil {
			return 0, NewConvergenceError(model, "mean-structure evaluation failed", err)
		}
		f += mat.Dot(diff, &x)
	}

	if f < 0 {
		// Rounding can push a saturated fit marginally negative.
		f = 0
	}
	return f, nil
}

// residualDiagnostics computes the group SRMR and modification-index
// candidates from the standardized residual covariances.
func residualDiagnostics(p *Problem, g Moments, sigma *mat.SymDense) (float64, []Score) {
	vi := indexOf(g.Vars)
	nv := len(g.Vars)

	resid := func(a, b string) float64 {
		i, j := vi[a], vi[b]
		den := math.Sqrt(g.Cov.At(i, i) * g.Cov.At(j, j))
		if den == 0 {
			return 0
		}
		return (g.Cov.At(i, j) - sigma.At(i, j)) / den
	}

	var sum float64
	for i := 0; i < nv; i++ {
		for j := i; j < nv; j++ {
			r := resid(g.Vars[i], g.Vars[j])
			sum += r * r
		}
	}
	srmr := math.Sqrt(sum / float64(nv*(nv+1)/2))

	// Candidates: cross-loadings not in the model and residual
	// covariances not declared.
	indicator := map[[2]string]bool{}
	for _, l := range p.Model.Loadings() {
		indicator[[2]string{l.Latent, l.Indicator}] = true
	}
	declared := map[[2]string]bool{}
	for _, r := range p.Model.Relations() {
		if r.Kind != spec.Covariance {
			continue
		}
		for _, s := range r.Sources {
			a, b := orderPair(r.Target, s)
			declared[[2]string{a, b}] = true
		}
	}

	n := float64(g.N)
	var scores []Score
	for _, latent := range p.Latents {
		a := p.Model.IndicatorsOf(latent)[0]
		for _, v := range p.Vars {
			if indicator[[2]string{latent, v}] {
				continue
			}
			r := resid(v, a)
			scores = append(scores, Score{
				Kind: ParamLoading, Lhs: latent, Rhs: v, Group: g.Group, Value: n * r * r,
			})
		}
	}
	for i := 0; i < nv; i++ {
		for j := i + 1; j < nv; j++ {
			a, b := orderPair(g.Vars[i], g.Vars[j])
			if declared[[2]string{a, b}] {
				continue
			}
			r := resid(a, b)
			scores = append(scores, Score{
				Kind: ParamCovariance, Lhs: a, Rhs: b, Group: g.Group, Value: n * r * r,
			})
		}
	}
	return srmr, scores
}

func indexOf(names []string) map[string]int {
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i
	}
	return idx
}
