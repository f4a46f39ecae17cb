package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder-stats/semfit/internal/dataset"
	"github.com/calder-stats/semfit/internal/engine"
	"github.com/calder-stats/semfit/internal/parser"
	"github.com/calder-stats/semfit/internal/testutil"
)

func TestCompareNestedModels(t *testing.T) {
	d := likert(t)
	base, err := engine.Fit(baseModel(t), d, engine.FitOptions{})
	require.NoError(t, err)
	adapted, err := engine.Fit(adaptedModel(t), d, engine.FitOptions{})
	require.NoError(t, err)

	cmp, err := engine.Compare(base, adapted)
	require.NoError(t, err)

	assert.Equal(t, "base", cmp.Restricted)
	assert.Equal(t, "adapted", cmp.Full)
	assert.Equal(t, 1, cmp.DFDiff, "one extra loading frees one parameter")
	assert.GreaterOrEqual(t, cmp.PValue, 0.0)
	assert.LessOrEqual(t, cmp.PValue, 1.0)
}

func TestCompareArgumentOrderIrrelevant(t *testing.T) {
	d := likert(t)
	base, err := engine.Fit(baseModel(t), d, engine.FitOptions{})
	require.NoError(t, err)
	adapted, err := engine.Fit(adaptedModel(t), d, engine.FitOptions{})
	require.NoError(t, err)

	ab, err := engine.Compare(base, adapted)
	require.NoError(t, err)
	ba, err := engine.Compare(adapted, base)
	require.NoError(t, err)
	assert.Equal(t, ab, ba, "nesting decides direction, not argument order")
}

func TestCompareNonNestedModels(t *testing.T) {
	d := likert(t)

	a, err := parser.Parse("a", "WTA =~ i56 + i57 + i58")
	require.NoError(t, err)
	b, err := parser.Parse("b", "EXP =~ i60 + i61 + i62")
	require.NoError(t, err)

	fa, err := engine.Fit(a, d, engine.FitOptions{})
	require.NoError(t, err)
	fb, err := engine.Fit(b, d, engine.FitOptions{})
	require.NoError(t, err)

	_, err = engine.Compare(fa, fb)
	require.Error(t, err)
	assert.True(t, engine.IsComparisonError(err))
}

func TestCompareIdenticalModels(t *testing.T) {
	d := likert(t)
	a, err := engine.Fit(baseModel(t), d, engine.FitOptions{})
	require.NoError(t, err)

	m, err := parser.Parse("copy", testutil.LikertModelText)
	require.NoError(t, err)
	b, err := engine.Fit(m, d, engine.FitOptions{})
	require.NoError(t, err)

	// Equivalent specs nest but not strictly; there is nothing to test.
	_, err = engine.Compare(a, b)
	require.Error(t, err)
	assert.True(t, engine.IsComparisonError(err))
}

func TestCompareDifferentDatasets(t *testing.T) {
	a, err := engine.Fit(baseModel(t), testutil.LikertDataset(300), engine.FitOptions{})
	require.NoError(t, err)
	b, err := engine.Fit(adaptedModel(t), testutil.LikertDataset(200), engine.FitOptions{})
	require.NoError(t, err)

	_, err = engine.Compare(a, b)
	require.Error(t, err)
	assert.True(t, engine.IsComparisonError(err))
}

func TestCompareDifferentRowSubsets(t *testing.T) {
	// Same table, same row count, different rows: the data signatures
	// must differ and the comparison must be rejected.
	d := likert(t)
	lower, err := d.Filter(dataset.Or{Terms: []dataset.Predicate{
		dataset.Cmp{Col: "Grade", Op: dataset.OpEq, Num: 2, IsNum: true},
		dataset.Cmp{Col: "Grade", Op: dataset.OpEq, Num: 3, IsNum: true},
	}})
	require.NoError(t, err)
	upper, err := d.Filter(dataset.Or{Terms: []dataset.Predicate{
		dataset.Cmp{Col: "Grade", Op: dataset.OpEq, Num: 3, IsNum: true},
		dataset.Cmp{Col: "Grade", Op: dataset.OpEq, Num: 4, IsNum: true},
	}})
	require.NoError(t, err)
	require.Equal(t, lower.Len(), upper.Len())

	a, err := engine.Fit(baseModel(t), lower, engine.FitOptions{})
	require.NoError(t, err)
	b, err := engine.Fit(adaptedModel(t), upper, engine.FitOptions{})
	require.NoError(t, err)

	_, err = engine.Compare(a, b)
	require.Error(t, err)
	assert.True(t, engine.IsComparisonError(err))
}

func TestCompareDifferentGrouping(t *testing.T) {
	d := likert(t)
	pooled, err := engine.Fit(baseModel(t), d, engine.FitOptions{})
	require.NoError(t, err)
	grouped, err := engine.Fit(adaptedModel(t), d, engine.FitOptions{Group: "Grade"})
	require.NoError(t, err)

	_, err = engine.Compare(pooled, grouped)
	require.Error(t, err)
	assert.True(t, engine.IsComparisonError(err))
}
