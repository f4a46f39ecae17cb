// Package dataset provides the in-memory tabular data layer.
//
// A Dataset is an ordered rectangular table of observations: rows are
// subjects, columns are named variables. Column names are stable
// identifiers referenced by model specifications; row order carries no
// analytical meaning.
//
// All transformations (Rename, Filter, Select, Partition) are pure:
// they return a new Dataset and never mutate their input, so no locking
// discipline is needed anywhere in the pipeline.
package dataset
