package testutil

import (
	"github.com/calder-stats/semfit/internal/engine"
)

// FixedOptimizer replays scripted solutions in call order, or a
// scripted error. It lets tests drive the fit pipeline without any
// numerical work.
//
// Each call to Estimate consumes the next entry of Solutions; when the
// script runs out the last entry repeats. A non-nil Err short-circuits
// every call.
type FixedOptimizer struct {
	Solutions []*engine.Solution
	Err       error

	// Calls records the problems Estimate received, for assertions.
	Calls []*engine.Problem

	next int
}

// Name implements engine.Optimizer.
func (o *FixedOptimizer) Name() string { return "fixed" }

// Estimate implements engine.Optimizer.
func (o *FixedOptimizer) Estimate(p *engine.Problem) (*engine.Solution, error) {
	o.Calls = append(o.Calls, p)
	if o.Err != nil {
		return nil, o.Err
	}
	if len(o.Solutions) == 0 {
		return SaturatedSolution(p), nil
	}
	i := o.next
	if i >= len(o.Solutions) {
		i = len(o.Solutions) - 1
	}
	o.next++
	return o.Solutions[i], nil
}

// SaturatedSolution builds a syntactically complete solution for a
// problem: every free label estimated at 1 (variances) or 0.5
// (everything else) with zero discrepancy. Useful when a test only
// cares about plumbing, not values.
func SaturatedSolution(p *engine.Problem) *engine.Solution {
	est := map[string]float64{}
	for _, param := range p.Params {
		if !param.Free {
			continue
		}
		if param.Kind == engine.ParamCovariance && param.Lhs == param.Rhs {
			est[param.Label] = 1
		} else {
			est[param.Label] = 0.5
		}
	}
	return &engine.Solution{Estimates: est, StdErrs: map[string]float64{}}
}
