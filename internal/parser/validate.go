package parser

import (
	"fmt"
	"strings"

	"github.com/calder-stats/semfit/internal/spec"
)

// Validation error codes (E100-E199)
const (
	ErrEmptyModel        = "E101" // model has no relations
	ErrDuplicateRelation = "E102" // identical relation declared twice
	ErrUnknownVariable   = "E103" // observed variable not in dataset columns
	ErrSelfIndicator     = "E104" // latent listed as its own indicator
	ErrLatentCovariate   = "E105" // covariance between a latent and itself
)

// ValidationError represents a model validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateAgainst validates a model against a dataset's column set.
// Returns all errors found (does not fail-fast). Every observed
// variable named by the model must exist as a column; latent variables
// are structural and must not collide with their own indicators.
func ValidateAgainst(m spec.Model, columns []string) []ValidationError {
	var errs []ValidationError

	if m.Empty() {
		return []ValidationError{{
			Field:   "model",
			Message: "model has no relations",
			Code:    ErrEmptyModel,
		}}
	}

	cols := make(map[string]bool, len(columns))
	for _, c := range columns {
		cols[c] = true
	}
	latent := map[string]bool{}
	for _, l := range m.LatentVars() {
		latent[l] = true
	}

	seen := map[string]bool{}
	for _, r := range m.Relations() {
		key := r.Target + string(r.Kind) + strings.Join(r.Sources, "+")
		if seen[key] {
			errs = append(errs, ValidationError{
				Field:   r.Target,
				Message: fmt.Sprintf("relation %q declared more than once", r.Target+" "+string(r.Kind)+" "+strings.Join(r.Sources, " + ")),
				Code:    ErrDuplicateRelation,
			})
		}
		seen[key] = true

		if r.Kind == spec.Measurement {
			for _, s := range r.Sources {
				if s == r.Target {
					errs = append(errs, ValidationError{
						Field:   r.Target,
						Message: fmt.Sprintf("latent %q cannot be its own indicator", r.Target),
						Code:    ErrSelfIndicator,
					})
				}
			}
		}
		if r.Kind == spec.Covariance {
			for _, s := range r.Sources {
				if s == r.Target {
					errs = append(errs, ValidationError{
						Field:   r.Target,
						Message: fmt.Sprintf("covariance of %q with itself is a variance, not a relation", r.Target),
						Code:    ErrLatentCovariate,
					})
				}
			}
		}
	}

	// E103: every observed variable must be a dataset column.
	for _, v := range m.ObservedVars() {
		if !cols[v] {
			errs = append(errs, ValidationError{
				Field:   v,
				Message: fmt.Sprintf("variable %q is not a column of the dataset", v),
				Code:    ErrUnknownVariable,
			})
		}
	}

	return errs
}
