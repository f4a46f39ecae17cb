// Package engine orchestrates model fitting.
//
// The engine is deliberately single-threaded and synchronous: each
// analysis step's output is the next step's input, so fits, comparisons
// and invariance ladders run strictly in sequence with no shared
// mutable state.
//
// Fit Processing Flow:
//  1. The model is validated against the dataset's columns.
//  2. The dataset is partitioned by the grouping variable (multigroup
//     fits only) and per-group sample moments are computed.
//  3. The free-parameter layout, equality constraints, and degrees of
//     freedom are derived from the model structure.
//  4. The Optimizer estimates the free parameters and the discrepancy.
//  5. Fit indices, modification indices, and the parameter table are
//     assembled into a read-only FittedModel.
//
// Numerical maximum-likelihood covariance-structure optimization is NOT
// implemented here: it lives behind the Optimizer interface. The
// built-in AnchorOptimizer produces closed-form anchor-indicator
// estimates (the classic start-value construction), which is enough for
// the structural workflow (parameter counts, nesting, ordering,
// reporting) that this module owns.
package engine
