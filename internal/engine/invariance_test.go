package engine_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder-stats/semfit/internal/engine"
	"github.com/calder-stats/semfit/internal/testutil"
)

func TestInvarianceLadderOrder(t *testing.T) {
	ladder, err := engine.Invariance(baseModel(t), likert(t), "Grade", engine.FitOptions{})
	require.NoError(t, err)

	require.Len(t, ladder.Steps, 3)
	assert.Equal(t, engine.StepConfigural, ladder.Steps[0].Step)
	assert.Equal(t, engine.StepMetric, ladder.Steps[1].Step)
	assert.Equal(t, engine.StepScalar, ladder.Steps[2].Step)
	assert.Equal(t, "Grade", ladder.Group)

	require.Len(t, ladder.Comparisons, 2)
	for _, cmp := range ladder.Comparisons {
		assert.Greater(t, cmp.DFDiff, 0, "each rung constrains more than the last")
		assert.GreaterOrEqual(t, cmp.PValue, 0.0)
		assert.LessOrEqual(t, cmp.PValue, 1.0)
	}
}

func TestInvarianceDFClimbsTheLadder(t *testing.T) {
	ladder, err := engine.Invariance(baseModel(t), likert(t), "Grade", engine.FitOptions{})
	require.NoError(t, err)

	configural := ladder.Steps[0].Fit.Indices.DF
	metric := ladder.Steps[1].Fit.Indices.DF
	scalar := ladder.Steps[2].Fit.Indices.DF
	assert.Less(t, configural, metric)
	assert.Less(t, metric, scalar)
}

func TestInvarianceSmallGroups(t *testing.T) {
	// Around 34 rows per grade the raw closed-form moments can assemble
	// an indefinite implied matrix; the ladder must still complete.
	ladder, err := engine.Invariance(baseModel(t), testutil.LikertDataset(100), "Grade", engine.FitOptions{})
	require.NoError(t, err)

	require.Len(t, ladder.Steps, 3)
	for _, s := range ladder.Steps {
		idx := s.Fit.Indices
		assert.False(t, math.IsNaN(idx.ChiSquare), "step %s", s.Step)
		assert.GreaterOrEqual(t, idx.ChiSquare, 0.0, "step %s", s.Step)
	}
}

func TestInvarianceRequiresGroup(t *testing.T) {
	_, err := engine.Invariance(baseModel(t), likert(t), "", engine.FitOptions{})
	require.Error(t, err)
	assert.True(t, engine.IsSpecificationError(err))
}

func TestCompareInvarianceAdjacentSteps(t *testing.T) {
	m := baseModel(t)
	d := likert(t)

	configural, err := engine.Fit(m, d, engine.FitOptions{Group: "Grade"})
	require.NoError(t, err)
	metric, err := engine.Fit(m, d, engine.FitOptions{Group: "Grade",
		Constraints: []engine.Constraint{engine.ConstrainLoadings}})
	require.NoError(t, err)

	cmp, err := engine.CompareInvariance(configural, metric)
	require.NoError(t, err)
	assert.Greater(t, cmp.DFDiff, 0)
}

func TestCompareInvarianceRejectsSkippedStep(t *testing.T) {
	m := baseModel(t)
	d := likert(t)

	configural, err := engine.Fit(m, d, engine.FitOptions{Group: "Grade"})
	require.NoError(t, err)
	scalar, err := engine.Fit(m, d, engine.FitOptions{Group: "Grade",
		Constraints: []engine.Constraint{engine.ConstrainLoadings, engine.ConstrainIntercepts}})
	require.NoError(t, err)

	_, err = engine.CompareInvariance(configural, scalar)
	require.Error(t, err)
	assert.True(t, engine.IsOrderViolation(err))
}

func TestCompareInvarianceRejectsBackwardStep(t *testing.T) {
	m := baseModel(t)
	d := likert(t)

	configural, err := engine.Fit(m, d, engine.FitOptions{Group: "Grade"})
	require.NoError(t, err)
	metric, err := engine.Fit(m, d, engine.FitOptions{Group: "Grade",
		Constraints: []engine.Constraint{engine.ConstrainLoadings}})
	require.NoError(t, err)

	_, err = engine.CompareInvariance(metric, configural)
	require.Error(t, err)
	assert.True(t, engine.IsOrderViolation(err))
}

func TestCompareInvarianceRejectsInterceptsWithoutLoadings(t *testing.T) {
	m := baseModel(t)
	d := likert(t)

	configural, err := engine.Fit(m, d, engine.FitOptions{Group: "Grade"})
	require.NoError(t, err)
	odd, err := engine.Fit(m, d, engine.FitOptions{Group: "Grade",
		Constraints: []engine.Constraint{engine.ConstrainIntercepts}})
	require.NoError(t, err)

	_, err = engine.CompareInvariance(configural, odd)
	require.Error(t, err)
	assert.True(t, engine.IsOrderViolation(err))
}
