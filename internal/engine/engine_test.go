package engine_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder-stats/semfit/internal/dataset"
	"github.com/calder-stats/semfit/internal/engine"
	"github.com/calder-stats/semfit/internal/parser"
	"github.com/calder-stats/semfit/internal/spec"
	"github.com/calder-stats/semfit/internal/testutil"
)

func baseModel(t *testing.T) spec.Model {
	t.Helper()
	m, err := parser.Parse("base", testutil.LikertModelText)
	require.NoError(t, err)
	return m
}

func adaptedModel(t *testing.T) spec.Model {
	t.Helper()
	return spec.MustExtend(baseModel(t), "adapted",
		spec.Relation{Kind: spec.Measurement, Target: "WTA", Sources: []string{"i63"}})
}

func likert(t *testing.T) *dataset.Dataset {
	t.Helper()
	return testutil.LikertDataset(300)
}

func TestFitLoadingCounts(t *testing.T) {
	d := likert(t)

	base, err := engine.Fit(baseModel(t), d, engine.FitOptions{})
	require.NoError(t, err)
	assert.Equal(t, 12, base.LoadingCount())

	adapted, err := engine.Fit(adaptedModel(t), d, engine.FitOptions{})
	require.NoError(t, err)
	assert.Equal(t, 13, adapted.LoadingCount(), "cross-loading WTA =~ i63 adds one row")
}

func TestFitMissingColumnFails(t *testing.T) {
	d := likert(t)

	m, err := parser.Parse("bad", "WTA =~ i56 + i57 + i99")
	require.NoError(t, err)

	_, err = engine.Fit(m, d, engine.FitOptions{})
	require.Error(t, err)

	var fe *engine.FitError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, engine.ErrCodeColumnNotFound, fe.Code)
	assert.True(t, engine.IsSpecificationError(err))

	// The same relations over present columns fit cleanly.
	ok, err := parser.Parse("ok", "WTA =~ i56 + i57 + i58")
	require.NoError(t, err)
	_, err = engine.Fit(ok, d, engine.FitOptions{})
	assert.NoError(t, err)
}

func TestFitUnknownGroupingColumn(t *testing.T) {
	_, err := engine.Fit(baseModel(t), likert(t), engine.FitOptions{Group: "School"})
	require.Error(t, err)

	var fe *engine.FitError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, engine.ErrCodeColumnNotFound, fe.Code)
}

func TestFitMultigroupPartition(t *testing.T) {
	d := likert(t)
	fm, err := engine.Fit(baseModel(t), d, engine.FitOptions{Group: "Grade"})
	require.NoError(t, err)

	require.Len(t, fm.Groups, 3)
	assert.Equal(t, "2", fm.Groups[0].Name)
	assert.Equal(t, "3", fm.Groups[1].Name)
	assert.Equal(t, "4", fm.Groups[2].Name)

	total := 0
	for _, g := range fm.Groups {
		total += g.N
	}
	assert.Equal(t, d.Len(), total, "groups partition the dataset")
}

func TestFitRecordsProvenance(t *testing.T) {
	m := baseModel(t)
	d := likert(t)

	fm, err := engine.Fit(m, d, engine.FitOptions{})
	require.NoError(t, err)

	assert.Equal(t, m.Hash(), fm.SpecHash)
	assert.Equal(t, d.Signature(), fm.DataSig)
	assert.Equal(t, spec.EngineVersion, fm.EngineVersion)
	assert.Equal(t, "anchor", fm.Optimizer)
}

func TestFitWrapsOptimizerFailure(t *testing.T) {
	opt := &testutil.FixedOptimizer{Err: errors.New("no gradient")}
	_, err := engine.Fit(baseModel(t), likert(t), engine.FitOptions{Optimizer: opt})
	require.Error(t, err)
	assert.True(t, engine.IsConvergenceError(err))
	require.Len(t, opt.Calls, 1)
}

func TestFitIndicesSane(t *testing.T) {
	fm, err := engine.Fit(baseModel(t), likert(t), engine.FitOptions{})
	require.NoError(t, err)

	idx := fm.Indices
	assert.Equal(t, 51, idx.DF)
	assert.Equal(t, 66, idx.BaselineDF)
	assert.GreaterOrEqual(t, idx.ChiSquare, 0.0)
	assert.GreaterOrEqual(t, idx.PValue, 0.0)
	assert.LessOrEqual(t, idx.PValue, 1.0)
	assert.GreaterOrEqual(t, idx.RMSEA, 0.0)
	assert.LessOrEqual(t, idx.CFI, 1.0)
	assert.GreaterOrEqual(t, idx.SRMR, 0.0)
	assert.Equal(t, 300, idx.N)
}

func TestModificationIndicesSortedAndLimited(t *testing.T) {
	scores := []engine.Score{
		{Kind: engine.ParamCovariance, Lhs: "i56", Rhs: "i60", Value: 3.2},
		{Kind: engine.ParamLoading, Lhs: "EXP", Rhs: "i59", Value: 7.8},
		{Kind: engine.ParamCovariance, Lhs: "i58", Rhs: "i64", Value: 7.8},
		{Kind: engine.ParamLoading, Lhs: "IMP", Rhs: "i56", Value: 0.4},
	}
	opt := &testutil.FixedOptimizer{Solutions: []*engine.Solution{{
		Estimates: map[string]float64{},
		Scores:    scores,
	}}}

	fm, err := engine.Fit(baseModel(t), likert(t), engine.FitOptions{Optimizer: opt})
	require.NoError(t, err)

	all := engine.ModificationIndices(fm, true, 0)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Value, all[i].Value, "descending order")
	}
	// Equal values break the tie on (lhs, rhs, group).
	assert.Equal(t, "EXP", all[0].Lhs)
	assert.Equal(t, "i58", all[1].Lhs)

	top := engine.ModificationIndices(fm, true, 2)
	require.Len(t, top, 2)
	assert.Equal(t, all[:2], top)
}

func TestModificationIndicesFromAnchorFit(t *testing.T) {
	fm, err := engine.Fit(baseModel(t), likert(t), engine.FitOptions{})
	require.NoError(t, err)

	mis := engine.ModificationIndices(fm, true, 10)
	assert.LessOrEqual(t, len(mis), 10)
	for _, s := range mis {
		assert.GreaterOrEqual(t, s.Value, 0.0)
	}
}
