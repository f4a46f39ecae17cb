package engine

// Optimizer estimates the free parameters of a Problem.
//
// This is the delegation boundary for numerical covariance-structure
// fitting: implementations may run a full maximum-likelihood optimizer,
// call out to an external engine, or (like the built-in
// AnchorOptimizer) produce closed-form approximations. The engine
// treats the optimizer as a black box and only consumes its Solution.
type Optimizer interface {
	// Name identifies the optimizer; fitted results record it alongside
	// the engine version since numerical results are not comparable
	// across estimators.
	Name() string

	// Estimate solves the problem. It should return a FitError with
	// code NOT_CONVERGED when no estimates can be produced.
	Estimate(p *Problem) (*Solution, error)
}

// Score is one modification-index candidate produced by an optimizer:
// a currently-fixed parameter and the expected chi-square improvement
// from freeing it.
type Score struct {
	Kind  ParamKind `json:"kind"`
	Lhs   string    `json:"lhs"`
	Rhs   string    `json:"rhs"`
	Group string    `json:"group,omitempty"`
	Value float64   `json:"value"`
}

// Solution is an optimizer's output.
type Solution struct {
	// Estimates maps parameter labels (see Parameter.Label) to point
	// estimates. Every free label of the Problem must be present.
	Estimates map[string]float64

	// StdErrs maps parameter labels to standard errors, when the
	// optimizer provides them.
	StdErrs map[string]float64

	// Discrepancy is the N-weighted average ML discrepancy across
	// groups at the estimates; the engine converts it to chi-square.
	Discrepancy float64

	// SRMR is the standardized root mean square residual, when the
	// optimizer computes residuals.
	SRMR float64

	// Scores lists modification-index candidates.
	Scores []Score

	// Iterations counts optimizer iterations; zero for closed-form
	// estimators.
	Iterations int
}
