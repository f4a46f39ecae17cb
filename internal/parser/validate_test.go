package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder-stats/semfit/internal/spec"
)

var likertCols = []string{
	"i56", "i57", "i58", "i59", "i60", "i61", "i62", "i63",
	"i64", "i65", "i66", "i67", "Grade",
}

func TestValidateAgainstCleanModel(t *testing.T) {
	m, err := Parse("base", baseText)
	require.NoError(t, err)
	assert.Empty(t, ValidateAgainst(m, likertCols))
}

func TestValidateUnknownVariable(t *testing.T) {
	m, err := Parse("m", "F =~ i56 + i57 + nosuch")
	require.NoError(t, err)

	errs := ValidateAgainst(m, likertCols)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnknownVariable, errs[0].Code)
	assert.Equal(t, "nosuch", errs[0].Field)
}

func TestValidateReportsEveryMissingVariable(t *testing.T) {
	m, err := Parse("m", "F =~ bad1 + bad2 + i56")
	require.NoError(t, err)

	errs := ValidateAgainst(m, likertCols)
	assert.Len(t, errs, 2, "does not fail-fast")
}

func TestValidateEmptyModel(t *testing.T) {
	errs := ValidateAgainst(spec.Model{}, likertCols)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrEmptyModel, errs[0].Code)
}

func TestValidateDuplicateRelation(t *testing.T) {
	m := spec.MustNew("m", []spec.Relation{
		{Kind: spec.Measurement, Target: "F", Sources: []string{"i56", "i57", "i58"}},
		{Kind: spec.Measurement, Target: "F", Sources: []string{"i56", "i57", "i58"}},
	})
	errs := ValidateAgainst(m, likertCols)
	require.NotEmpty(t, errs)
	assert.Equal(t, ErrDuplicateRelation, errs[0].Code)
}

func TestValidateSelfIndicator(t *testing.T) {
	m := spec.MustNew("m", []spec.Relation{
		{Kind: spec.Measurement, Target: "F", Sources: []string{"F", "i56", "i57"}},
	})
	codes := map[string]bool{}
	for _, e := range ValidateAgainst(m, likertCols) {
		codes[e.Code] = true
	}
	assert.True(t, codes[ErrSelfIndicator])
}

func TestValidateSelfCovariance(t *testing.T) {
	m := spec.MustNew("m", []spec.Relation{
		{Kind: spec.Measurement, Target: "F", Sources: []string{"i56", "i57", "i58"}},
		{Kind: spec.Covariance, Target: "i56", Sources: []string{"i56"}},
	})
	codes := map[string]bool{}
	for _, e := range ValidateAgainst(m, likertCols) {
		codes[e.Code] = true
	}
	assert.True(t, codes[ErrLatentCovariate])
}
