// Package spec provides the typed model-specification representation.
//
// This package contains type definitions and pure structural operations
// only. All other internal packages import spec; spec imports nothing
// internal. This keeps the model representation the foundational layer
// with no circular dependencies.
//
// A Model is a named, immutable set of declarative relations between
// observed and latent variables. Three relation kinds exist:
//
//   - Measurement (=~): latent variable measured by indicators
//   - Regression  (~):  dependent regressed on predictors
//   - Covariance  (~~): two variables allowed to covary
//
// Models are identified by content-addressed hash of their canonical
// form, so renamed or reordered-but-equivalent specifications compare
// equal and variant models built with Extend stay traceable to their
// base.
package spec
